package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/EngThi/YT/internal/config"
	"github.com/EngThi/YT/internal/observability"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Inspect and expire stored sessions",
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		components, err := NewComponentFactory().Create(ctx, config.Get(), FactoryOptions{})
		if err != nil {
			return err
		}
		defer components.Shutdown()

		sessions, err := components.Store.ListSessions(ctx)
		if err != nil {
			return err
		}
		if len(sessions) == 0 {
			fmt.Println("No stored sessions.")
			return nil
		}
		for _, s := range sessions {
			fmt.Printf("%s  persona=%-14s state=%-10s created=%s last=%s urls=%d\n",
				s.ID[:8], s.PersonaName, s.LoginState,
				s.CreatedAt.Local().Format(time.DateTime),
				s.LastAccessed.Local().Format(time.DateTime),
				len(s.URLHistory))
		}
		return nil
	},
}

var sessionsPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete sessions past the retention age",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		components, err := NewComponentFactory().Create(ctx, config.Get(), FactoryOptions{})
		if err != nil {
			return err
		}
		defer components.Shutdown()

		n, err := components.Store.PruneExpiredSessions(ctx)
		if err != nil {
			return err
		}
		observability.GetLogger().Info("Sessions pruned", zap.Int("count", n))
		fmt.Printf("Pruned %d expired session(s).\n", n)
		return nil
	},
}

func init() {
	sessionsCmd.AddCommand(sessionsListCmd)
	sessionsCmd.AddCommand(sessionsPruneCmd)
}
