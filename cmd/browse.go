package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/EngThi/YT/api/schemas"
	"github.com/EngThi/YT/internal/automation"
	"github.com/EngThi/YT/internal/config"
	"github.com/EngThi/YT/internal/observability"
)

var browseQuery string

var browseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Restore a session and browse: explore the feed, optionally search",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg := config.Get()
		logger := observability.GetLogger()
		defer observability.Sync()

		components, err := NewComponentFactory().Create(ctx, cfg, FactoryOptions{
			NeedsBrowser: true,
		})
		if err != nil {
			return err
		}
		defer components.Shutdown()

		a := components.Automator
		result, err := a.Login(ctx, automation.StrategySessionRestore)
		if err != nil {
			return fmt.Errorf("no restorable session (run `yt login` first): %w", err)
		}
		if result != automation.ResultSuccess {
			return fmt.Errorf("stored session no longer authenticates (run `yt login` again)")
		}

		err = components.Monitor.Time(ctx, "explore", func(ctx context.Context) error {
			return a.Explore(ctx, cfg.Browse.ExploreFor)
		})
		if err != nil {
			return err
		}

		if browseQuery != "" {
			var results []automation.VideoResult
			err = components.Monitor.Time(ctx, "search", func(ctx context.Context) error {
				var searchErr error
				results, searchErr = a.Search(ctx, browseQuery)
				return searchErr
			})
			if err != nil {
				return err
			}
			for i, r := range results {
				fmt.Printf("%2d. %s\n    %s\n", i+1, r.Title, r.URL)
			}
		}

		if err := a.SaveSession(ctx, schemas.LoginLoggedIn); err != nil {
			return err
		}
		logger.Info("Browse finished", zap.String("query", browseQuery))
		return nil
	},
}

func init() {
	browseCmd.Flags().StringVarP(&browseQuery, "query", "q", "", "optional search query")
}
