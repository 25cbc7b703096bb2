package cmd

import (
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/EngThi/YT/internal/config"
	"github.com/EngThi/YT/internal/observability"
	"github.com/EngThi/YT/internal/retention"
)

var (
	cleanEvery  string
	cleanDryRun bool
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Run a retention sweep over screenshots, logs and profiles",
	Long: `Trims screenshots (count and age), rotated log files (age and total
size) and browser profile directories (total size) against the
thresholds in config. Runs once by default; --every keeps the process
alive and sweeps on a cron schedule.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg := config.Get()
		logger := observability.GetLogger()
		defer observability.Sync()

		components, err := NewComponentFactory().Create(ctx, cfg, FactoryOptions{})
		if err != nil {
			return err
		}
		defer components.Shutdown()

		cleaner := retention.NewCleaner(logger, cfg, components.Screenshots, cleanDryRun)

		sweep := func() {
			res, err := cleaner.Run(ctx)
			if err != nil {
				logger.Error("Retention sweep failed", zap.Error(err))
				return
			}
			fmt.Printf("removed: %d screenshots, %d logs, %d profiles (%.1f MB reclaimed)%s\n",
				res.ScreenshotsRemoved, res.LogsRemoved, res.ProfilesRemoved,
				float64(res.BytesReclaimed)/(1024*1024),
				map[bool]string{true: " [dry run]", false: ""}[res.DryRun])
		}

		if cleanEvery == "" {
			sweep()
			return nil
		}

		scheduler := cron.New()
		if _, err := scheduler.AddFunc(cleanEvery, sweep); err != nil {
			return fmt.Errorf("invalid --every schedule %q: %w", cleanEvery, err)
		}
		logger.Info("Retention scheduler started", zap.String("schedule", cleanEvery))
		scheduler.Start()
		defer scheduler.Stop()

		<-ctx.Done()
		logger.Info("Retention scheduler stopping")
		return nil
	},
}

func init() {
	cleanCmd.Flags().StringVar(&cleanEvery, "every", "", `cron schedule for repeated sweeps (e.g. "0 3 * * *")`)
	cleanCmd.Flags().BoolVar(&cleanDryRun, "dry-run", false, "report what would be removed without deleting")
}
