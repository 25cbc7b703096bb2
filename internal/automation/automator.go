// Package automation drives the YouTube flows: logging in under one of
// four strategies, exploring the feed and searching, all through the
// humanized input simulator and selector fallback lists.
package automation

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/chromedp/cdproto/network"
	"go.uber.org/zap"

	"github.com/EngThi/YT/api/schemas"
	"github.com/EngThi/YT/internal/config"
	"github.com/EngThi/YT/internal/credentials"
	"github.com/EngThi/YT/internal/humanoid"
	"github.com/EngThi/YT/internal/screenshot"
	"github.com/EngThi/YT/internal/store"
)

// Page is the slice of a browser session the flows drive.
type Page interface {
	ID() string
	Persona() schemas.Persona
	Navigate(ctx context.Context, url string) error
	Location(ctx context.Context) (string, error)
	Title(ctx context.Context) (string, error)
	HTML(ctx context.Context) (string, error)
	ResolveFirst(ctx context.Context, selectors []string) (string, error)
	IsVisible(ctx context.Context, selector string) bool
	WaitVisible(ctx context.Context, selector string, timeout time.Duration) error
	ExportCookies(ctx context.Context) ([]*network.Cookie, error)
	ImportCookies(ctx context.Context, cookies []*network.Cookie) error
	Screenshot(ctx context.Context) ([]byte, error)
}

// Interactor is the humanized input surface the flows use.
type Interactor interface {
	IntelligentClick(ctx context.Context, selector string, opts *humanoid.InteractionOptions) error
	TypeText(ctx context.Context, text string, opts *humanoid.TypeOptions) error
	PressKey(ctx context.Context, key string) error
	ScrollBy(ctx context.Context, deltaY float64) error
	ScrollToElement(ctx context.Context, selector string) error
	MoveToVector(ctx context.Context, target humanoid.Vector2D, opts *humanoid.InteractionOptions) error
	CognitivePause(ctx context.Context, meanMs, stdDevMs float64) error
	Hesitate(ctx context.Context, duration time.Duration) error
}

// Automator owns one session's worth of flow state.
type Automator struct {
	log   *zap.Logger
	page  Page
	human Interactor
	store *store.Store
	shots *screenshot.Manager
	creds *credentials.Credentials
	cfg   *config.Config
	rng   *rand.Rand

	sessionRecordID string
	visited         []string
}

// NewAutomator wires the flows together. creds may be nil when only
// session-restore or browse flows will run.
func NewAutomator(logger *zap.Logger, page Page, human Interactor, st *store.Store,
	shots *screenshot.Manager, creds *credentials.Credentials, cfg *config.Config) *Automator {
	return &Automator{
		log:             logger.Named("automation"),
		page:            page,
		human:           human,
		store:           st,
		shots:           shots,
		creds:           creds,
		cfg:             cfg,
		rng:             rand.New(rand.NewSource(time.Now().UnixNano())),
		sessionRecordID: page.ID(),
	}
}

// Run is the full flow: login, explore, search, persist.
func (a *Automator) Run(ctx context.Context, query string) ([]VideoResult, error) {
	a.checkpoint(ctx, "initialized")

	strategy, err := ParseStrategy(a.cfg.Login.Strategy)
	if err != nil {
		return nil, err
	}
	result, err := a.Login(ctx, strategy)
	if err != nil {
		a.shots.CaptureError(ctx, a.page, "login_failed", err)
		return nil, err
	}
	if result != ResultSuccess {
		a.shots.CaptureError(ctx, a.page, "login_"+string(result), nil)
		return nil, fmt.Errorf("automation: login ended with result %q", result)
	}
	a.checkpoint(ctx, "logged_in")

	if err := a.page.Navigate(ctx, youtubeHomeURL); err != nil {
		return nil, err
	}
	a.recordVisit(ctx)
	a.checkpoint(ctx, "homepage")

	if err := a.Explore(ctx, a.cfg.Browse.ExploreFor); err != nil {
		return nil, err
	}
	a.checkpoint(ctx, "explored")

	var results []VideoResult
	if query != "" {
		results, err = a.Search(ctx, query)
		if err != nil {
			a.shots.CaptureError(ctx, a.page, "search_failed", err)
			return nil, err
		}
		a.checkpoint(ctx, "search_results")
	}

	if err := a.SaveSession(ctx, schemas.LoginLoggedIn); err != nil {
		return results, err
	}
	a.checkpoint(ctx, "session_saved")
	return results, nil
}

// SaveSession exports cookies and upserts the session record.
func (a *Automator) SaveSession(ctx context.Context, state schemas.LoginState) error {
	cookies, err := a.page.ExportCookies(ctx)
	if err != nil {
		return fmt.Errorf("automation: failed to export cookies: %w", err)
	}
	persona := a.page.Persona()
	rec := &store.SessionRecord{
		ID:          a.sessionRecordID,
		PersonaName: persona.Name,
		UserAgent:   persona.UserAgent,
		ViewportW:   persona.Screen.Width,
		ViewportH:   persona.Screen.Height,
		LoginState:  state,
		URLHistory:  a.visited,
	}
	if err := a.store.SaveSession(ctx, rec, cookies); err != nil {
		return err
	}
	a.log.Info("Session persisted",
		zap.String("session_id", rec.ID),
		zap.String("login_state", string(state)),
		zap.Int("cookies", len(cookies)))
	return nil
}

func (a *Automator) checkpoint(ctx context.Context, name string) {
	if _, err := a.shots.Checkpoint(ctx, a.page, name); err != nil {
		a.log.Warn("Checkpoint screenshot failed", zap.String("name", name), zap.Error(err))
	}
}

func (a *Automator) recordVisit(ctx context.Context) {
	url, err := a.page.Location(ctx)
	if err != nil || url == "" {
		return
	}
	if n := len(a.visited); n > 0 && a.visited[n-1] == url {
		return
	}
	a.visited = append(a.visited, url)
}
