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

var loginStrategy string

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log into YouTube and persist the session",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg := config.Get()
		logger := observability.GetLogger()
		defer observability.Sync()

		if loginStrategy == "" {
			loginStrategy = cfg.Login.Strategy
		}
		strategy, err := automation.ParseStrategy(loginStrategy)
		if err != nil {
			return err
		}

		// Session restore and manual assistance work without stored
		// credentials; the automatic form flow does not.
		needsCreds := strategy == automation.StrategyAutomatic || strategy == automation.StrategyHybrid

		components, err := NewComponentFactory().Create(ctx, cfg, FactoryOptions{
			NeedsBrowser:     true,
			NeedsCredentials: needsCreds,
		})
		if err != nil {
			return err
		}
		defer components.Shutdown()

		var result automation.Result
		err = components.Monitor.Time(ctx, "login", func(ctx context.Context) error {
			var loginErr error
			result, loginErr = components.Automator.Login(ctx, strategy)
			return loginErr
		})
		if err != nil {
			return err
		}
		if result != automation.ResultSuccess {
			return fmt.Errorf("login ended with result %q", result)
		}

		if err := components.Automator.SaveSession(ctx, schemas.LoginLoggedIn); err != nil {
			return err
		}
		logger.Info("Login complete", zap.String("strategy", string(strategy)))
		return nil
	},
}

func init() {
	loginCmd.Flags().StringVar(&loginStrategy, "strategy", "",
		"login strategy: session_restore|automatic|manual_assisted|hybrid (default from config)")
}
