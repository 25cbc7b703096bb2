package cmd

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/EngThi/YT/api/schemas"
	"github.com/EngThi/YT/internal/automation"
	"github.com/EngThi/YT/internal/browser"
	"github.com/EngThi/YT/internal/browser/stealth"
	"github.com/EngThi/YT/internal/config"
	"github.com/EngThi/YT/internal/credentials"
	"github.com/EngThi/YT/internal/humanoid"
	"github.com/EngThi/YT/internal/monitor"
	"github.com/EngThi/YT/internal/observability"
	"github.com/EngThi/YT/internal/screenshot"
	"github.com/EngThi/YT/internal/store"
)

// Components holds the initialized services a browsing flow needs.
// It centralizes lifecycle management so commands stay thin.
type Components struct {
	Store          *store.Store
	Screenshots    *screenshot.Manager
	BrowserManager *browser.Manager
	Session        *browser.Session
	Humanoid       *humanoid.Humanoid
	Automator      *automation.Automator
	Monitor        *monitor.Monitor
	Credentials    *credentials.Credentials
}

// Shutdown releases resources in dependency order: the tab first, then
// the browser process, then the store.
func (c *Components) Shutdown() {
	logger := observability.GetLogger()
	logger.Debug("Beginning component shutdown sequence")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if c.Session != nil {
		if err := c.Session.Close(shutdownCtx); err != nil {
			logger.Warn("Error closing browser session", zap.Error(err))
		}
	}
	if c.BrowserManager != nil {
		if err := c.BrowserManager.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Error during browser manager shutdown", zap.Error(err))
		}
	}
	if c.Store != nil {
		if err := c.Store.Close(); err != nil {
			logger.Warn("Error closing store", zap.Error(err))
		}
	}
	logger.Info("All components shut down")
}

// FactoryOptions tune what Create builds.
type FactoryOptions struct {
	// NeedsBrowser launches Chromium and opens a tab.
	NeedsBrowser bool
	// NeedsCredentials loads and validates the account credentials.
	NeedsCredentials bool
}

// ComponentFactory builds the component set. The indirection keeps the
// command bodies testable against fakes.
type ComponentFactory interface {
	Create(ctx context.Context, cfg *config.Config, opts FactoryOptions) (*Components, error)
}

type concreteFactory struct{}

// NewComponentFactory creates the production factory.
func NewComponentFactory() ComponentFactory {
	return &concreteFactory{}
}

// Create handles dependency injection for a flow. Cleanup of partially
// built components happens here, not in the callers.
func (f *concreteFactory) Create(ctx context.Context, cfg *config.Config, opts FactoryOptions) (*Components, error) {
	logger := observability.GetLogger()
	components := &Components{Monitor: monitor.New(logger)}

	var initializationErr error
	defer func() {
		if initializationErr != nil {
			logger.Warn("Initialization failed, shutting down partially created components", zap.Error(initializationErr))
			components.Shutdown()
		}
	}()

	// 1. Store.
	st, err := store.Open(cfg.Data.Dir, cfg.Session.MaxAge, logger)
	if err != nil {
		initializationErr = err
		return nil, initializationErr
	}
	components.Store = st
	logger.Debug("Store initialized")

	// 2. Screenshot manager.
	shots, err := screenshot.NewManager(logger, st, cfg.Screenshot.Dir, cfg.Screenshot.Enabled)
	if err != nil {
		initializationErr = err
		return nil, initializationErr
	}
	components.Screenshots = shots

	// 3. Credentials.
	if opts.NeedsCredentials {
		creds, err := credentials.Load(logger)
		if err != nil {
			initializationErr = err
			return nil, initializationErr
		}
		components.Credentials = creds
	}

	if !opts.NeedsBrowser {
		return components, nil
	}

	// 4. Persona selection, rotated or pinned.
	persona, err := selectPersona(cfg, logger)
	if err != nil {
		initializationErr = err
		return nil, initializationErr
	}
	logger.Info("Persona selected",
		zap.String("persona", persona.Name),
		zap.String("profile_dir", persona.ProfileDir))

	// 5. Browser manager and one tab.
	manager, err := browser.NewManager(ctx, logger, cfg, persona)
	if err != nil {
		initializationErr = fmt.Errorf("failed to initialize browser manager: %w", err)
		return nil, initializationErr
	}
	components.BrowserManager = manager

	session, err := manager.NewSession(ctx)
	if err != nil {
		initializationErr = fmt.Errorf("failed to open browser session: %w", err)
		return nil, initializationErr
	}
	components.Session = session
	logger.Debug("Browser session opened", zap.String("session_id", session.ID()))

	// 6. Humanoid input simulator driving the session.
	components.Humanoid = humanoid.New(cfg.Browser.Humanoid, logger, session)

	// 7. Automator tying the flows together.
	components.Automator = automation.NewAutomator(
		logger, session, components.Humanoid, st, shots, components.Credentials, cfg)

	logger.Info("All components initialized")
	return components, nil
}

// selectPersona honors a pinned stealth.persona, otherwise rotates.
func selectPersona(cfg *config.Config, logger *zap.Logger) (schemas.Persona, error) {
	rotator := stealth.NewRotator(stealth.Catalog(), cfg.Data.Dir)
	if cfg.Stealth.Persona != "" {
		p, err := stealth.PersonaByName(cfg.Stealth.Persona)
		if err != nil {
			return schemas.Persona{}, err
		}
		return rotator.Finalize(p), nil
	}
	if !cfg.Stealth.RotateProfiles {
		logger.Debug("Profile rotation disabled, using first catalog persona")
		return rotator.Finalize(stealth.Catalog()[0]), nil
	}
	return rotator.Next()
}
