package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/EngThi/YT/internal/automation"
	"github.com/EngThi/YT/internal/config"
	"github.com/EngThi/YT/internal/observability"
)

var runQuery string

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Full flow: stealth launch, login, explore, search, save session",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg := config.Get()
		logger := observability.GetLogger()
		defer observability.Sync()

		components, err := NewComponentFactory().Create(ctx, cfg, FactoryOptions{
			NeedsBrowser:     true,
			NeedsCredentials: true,
		})
		if err != nil {
			return err
		}
		defer components.Shutdown()

		var results []automation.VideoResult
		err = components.Monitor.Time(ctx, "run", func(ctx context.Context) error {
			var runErr error
			results, runErr = components.Automator.Run(ctx, runQuery)
			return runErr
		})
		if err != nil {
			return err
		}

		for i, r := range results {
			fmt.Printf("%2d. %s\n    %s\n", i+1, r.Title, r.URL)
		}
		logger.Info("Run finished",
			zap.String("query", runQuery),
			zap.Int("results", len(results)))
		return nil
	},
}

func init() {
	runCmd.Flags().StringVarP(&runQuery, "query", "q", "", "search query to run after exploring")
}
