package browser

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/EngThi/YT/api/schemas"
	"github.com/EngThi/YT/internal/browser/stealth"
	"github.com/EngThi/YT/internal/config"
)

// Manager owns the browser executable through a chromedp ExecAllocator and
// tracks the sessions opened against it. One Manager per process.
type Manager struct {
	logger  *zap.Logger
	cfg     *config.Config
	persona schemas.Persona

	allocatorCtx    context.Context
	allocatorCancel context.CancelFunc

	sessions map[string]*Session
	mu       sync.Mutex
}

// NewManager creates the manager and starts the allocator for the given
// persona. The persona decides the profile directory and window size, so it
// is fixed for the manager's lifetime.
func NewManager(ctx context.Context, logger *zap.Logger, cfg *config.Config, persona schemas.Persona) (*Manager, error) {
	m := &Manager{
		logger:   logger.Named("browser_manager"),
		cfg:      cfg,
		persona:  persona,
		sessions: make(map[string]*Session),
	}

	opts, err := m.generateAllocatorOptions()
	if err != nil {
		return nil, err
	}

	m.allocatorCtx, m.allocatorCancel = chromedp.NewExecAllocator(ctx, opts...)

	m.logger.Info("Browser manager initialized",
		zap.Bool("headless", cfg.Browser.Headless),
		zap.String("persona", persona.Name),
		zap.String("profile_dir", persona.ProfileDir),
	)
	return m, nil
}

// generateAllocatorOptions builds the launch flag set. The flags mirror a
// regular desktop Chrome launch as closely as possible.
func (m *Manager) generateAllocatorOptions() ([]chromedp.ExecAllocatorOption, error) {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)

	browserCfg := m.cfg.Browser

	if browserCfg.Headless {
		opts = append(opts, chromedp.Headless)
	} else {
		// DefaultExecAllocatorOptions force headless; undo that.
		opts = append(opts, chromedp.Flag("headless", false))
	}
	if browserCfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(browserCfg.ExecPath))
	}

	opts = append(opts,
		// Automation banner and blink-side automation signals.
		chromedp.Flag("enable-automation", false),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),

		chromedp.Flag("no-first-run", true),
		chromedp.Flag("no-default-browser-check", true),
		chromedp.Flag("disable-infobars", true),
		chromedp.Flag("disable-sync", true),
		chromedp.Flag("disable-background-networking", true),
		chromedp.Flag("disable-default-apps", true),
		chromedp.Flag("disable-hang-monitor", true),
		chromedp.Flag("disable-prompt-on-repost", true),
		chromedp.Flag("metrics-recording-only", true),
		chromedp.Flag("mute-audio", true),
		chromedp.Flag("disable-gpu", browserCfg.Headless),
	)

	if m.persona.Locale != "" {
		opts = append(opts, chromedp.Flag("lang", m.persona.Locale))
	}
	if m.persona.Screen.Width > 0 && m.persona.Screen.Height > 0 {
		opts = append(opts, chromedp.WindowSize(int(m.persona.Screen.Width), int(m.persona.Screen.Height)))
	}

	// A persistent profile keeps cookies, cache and local storage across
	// runs, which fresh empty profiles never have.
	if m.persona.ProfileDir != "" {
		profileDir := filepath.Join(browserCfg.ProfileRoot, m.persona.ProfileDir)
		if err := os.MkdirAll(profileDir, 0o755); err != nil {
			return nil, fmt.Errorf("browser: failed to create profile dir %s: %w", profileDir, err)
		}
		opts = append(opts, chromedp.UserDataDir(profileDir))
	}

	for _, arg := range browserCfg.Args {
		opts = append(opts, chromedp.Flag(arg, true))
	}

	return opts, nil
}

// NewSession opens a fresh tab, applies the persona overrides and evasion
// script, and returns the wrapped session.
func (m *Manager) NewSession(parent context.Context) (*Session, error) {
	ctx, cancel := chromedp.NewContext(m.allocatorCtx,
		chromedp.WithLogf(m.logger.Sugar().Debugf),
		chromedp.WithErrorf(m.logger.Sugar().Errorf),
	)

	// Tie the tab to the caller's lifecycle.
	go func() {
		select {
		case <-parent.Done():
			cancel()
		case <-ctx.Done():
		}
	}()

	if err := chromedp.Run(ctx, chromedp.Navigate("about:blank")); err != nil {
		cancel()
		return nil, fmt.Errorf("browser: failed to open tab: %w", err)
	}

	if err := chromedp.Run(ctx, stealth.Apply(m.persona, m.logger)); err != nil {
		// Non-fatal: a partially spoofed session is still usable.
		m.logger.Warn("Failed to apply persona overrides", zap.Error(err))
	}

	sessionID := uuid.New().String()
	s := newSession(ctx, cancel, m, sessionID, m.logger, m.cfg, m.persona)

	m.mu.Lock()
	m.sessions[sessionID] = s
	m.mu.Unlock()

	m.logger.Debug("Browser session opened", zap.String("session_id", sessionID))
	return s, nil
}

// unregisterSession removes a closed session from tracking.
func (m *Manager) unregisterSession(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionID)
}

// Persona returns the persona this manager launched with.
func (m *Manager) Persona() schemas.Persona {
	return m.persona
}

// Shutdown closes all open sessions with a per-session timeout, then tears
// down the browser process.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.logger.Info("Shutting down browser manager...")

	m.mu.Lock()
	sessionsToClose := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessionsToClose = append(sessionsToClose, s)
	}
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	var wg sync.WaitGroup
	for _, s := range sessionsToClose {
		wg.Add(1)
		go func(s *Session) {
			defer wg.Done()
			closeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			if err := s.Close(closeCtx); err != nil {
				m.logger.Warn("Error closing session during shutdown",
					zap.String("session_id", s.ID()), zap.Error(err))
			}
		}(s)
	}
	wg.Wait()

	if m.allocatorCancel != nil {
		m.allocatorCancel()
	}

	m.logger.Info("Browser manager shutdown complete.")
	return nil
}
