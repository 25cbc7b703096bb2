package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/EngThi/YT/internal/browser"
	"github.com/EngThi/YT/internal/browser/stealth"
	"github.com/EngThi/YT/internal/config"
	"github.com/EngThi/YT/internal/credentials"
	"github.com/EngThi/YT/internal/monitor"
	"github.com/EngThi/YT/internal/observability"
)

var checkBrowser bool

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Doctor: verify credentials, config, directories and the evasion script",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg := config.Get()
		logger := observability.GetLogger()
		defer observability.Sync()

		m := monitor.New(logger)

		m.Register("config", func(context.Context) (monitor.Status, string) {
			if err := cfg.Validate(); err != nil {
				return monitor.StatusCritical, err.Error()
			}
			return monitor.StatusHealthy, "valid"
		})

		m.Register("credentials", func(context.Context) (monitor.Status, string) {
			creds, err := credentials.Load(logger)
			if err != nil {
				// Manual-assisted login still works without them.
				return monitor.StatusWarning, err.Error()
			}
			return monitor.StatusHealthy, fmt.Sprintf("loaded for %s", creds.MaskedEmail())
		})

		for name, dir := range map[string]string{
			"data dir":       cfg.Data.Dir,
			"screenshot dir": cfg.Screenshot.Dir,
			"profile root":   cfg.Browser.ProfileRoot,
			"log dir":        filepath.Dir(cfg.Logger.LogFile),
		} {
			dir := dir
			m.Register(name, func(context.Context) (monitor.Status, string) {
				return checkWritable(dir)
			})
		}

		m.Register("evasion script", func(context.Context) (monitor.Status, string) {
			if err := stealth.ValidateEvasionScript(); err != nil {
				return monitor.StatusCritical, err.Error()
			}
			return monitor.StatusHealthy, "parses"
		})

		if checkBrowser {
			m.Register("browser launch", func(ctx context.Context) (monitor.Status, string) {
				return probeBrowser(ctx, cfg)
			})
		}

		results, overall := m.RunChecks(ctx)
		for _, r := range results {
			mark := map[monitor.Status]string{
				monitor.StatusHealthy:  "ok",
				monitor.StatusWarning:  "warn",
				monitor.StatusCritical: "FAIL",
			}[r.Status]
			fmt.Printf("%-16s %-5s %s (%s)\n", r.Name, mark, r.Detail, r.Latency.Round(time.Millisecond))
		}
		fmt.Printf("overall: %s\n", overall)

		if overall == monitor.StatusCritical {
			return fmt.Errorf("check failed")
		}
		return nil
	},
}

// checkWritable proves a directory exists (creating it if needed) and
// accepts writes.
func checkWritable(dir string) (monitor.Status, string) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return monitor.StatusCritical, err.Error()
	}
	probe := filepath.Join(dir, ".writecheck")
	if err := os.WriteFile(probe, []byte("ok"), 0o600); err != nil {
		return monitor.StatusCritical, err.Error()
	}
	os.Remove(probe)
	return monitor.StatusHealthy, dir
}

// probeBrowser launches Chromium, opens a tab on about:blank and tears
// everything down.
func probeBrowser(ctx context.Context, cfg *config.Config) (monitor.Status, string) {
	logger := observability.GetLogger()
	probeCtx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	persona := stealth.NewRotator(stealth.Catalog(), cfg.Data.Dir).Finalize(stealth.Catalog()[0])
	manager, err := browser.NewManager(probeCtx, logger, cfg, persona)
	if err != nil {
		return monitor.StatusCritical, err.Error()
	}
	defer manager.Shutdown(probeCtx)

	session, err := manager.NewSession(probeCtx)
	if err != nil {
		return monitor.StatusCritical, err.Error()
	}
	defer session.Close(probeCtx)

	return monitor.StatusHealthy, "launched and opened a tab"
}

func init() {
	checkCmd.Flags().BoolVar(&checkBrowser, "browser", false, "also probe a real browser launch")
}
