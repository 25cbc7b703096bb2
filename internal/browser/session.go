package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/EngThi/YT/api/schemas"
	"github.com/EngThi/YT/internal/config"
	"github.com/EngThi/YT/internal/humanoid"
)

// ErrNoSelectorMatched reports that none of the selectors in a fallback
// list resolved to a visible element.
var ErrNoSelectorMatched = errors.New("browser: no selector in fallback list matched")

// Session wraps one browser tab. It exposes navigation, selector fallback
// resolution, cookie transfer and screenshots, and implements
// humanoid.Executor so the simulator can drive the tab directly.
type Session struct {
	ctx     context.Context
	cancel  context.CancelFunc
	manager *Manager
	id      string
	logger  *zap.Logger
	cfg     *config.Config
	persona schemas.Persona
	rng     *rand.Rand

	closeOnce sync.Once
}

var _ humanoid.Executor = (*Session)(nil)

func newSession(ctx context.Context, cancel context.CancelFunc, m *Manager, id string, logger *zap.Logger, cfg *config.Config, persona schemas.Persona) *Session {
	return &Session{
		ctx:     ctx,
		cancel:  cancel,
		manager: m,
		id:      id,
		logger:  logger.Named("session").With(zap.String("session_id", id)),
		cfg:     cfg,
		persona: persona,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Context exposes the underlying chromedp context for callers that run
// their own actions against the tab.
func (s *Session) Context() context.Context { return s.ctx }

// Persona returns the persona applied to this tab.
func (s *Session) Persona() schemas.Persona { return s.persona }

// Navigate loads a URL with short human-paced delays on either side and
// waits for the document body.
func (s *Session) Navigate(ctx context.Context, url string) error {
	// A person does not fire navigations back to back.
	if err := s.Sleep(ctx, time.Duration(500+s.rng.Intn(1000))*time.Millisecond); err != nil {
		return err
	}

	navCtx, cancel := context.WithTimeout(s.ctx, s.cfg.Browser.NavigationTimeout)
	defer cancel()

	s.logger.Debug("Navigating", zap.String("url", url))
	err := chromedp.Run(navCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if err != nil {
		return fmt.Errorf("browser: navigation to %s failed: %w", url, err)
	}

	return s.Sleep(ctx, time.Duration(1000+s.rng.Intn(1000))*time.Millisecond)
}

// Location returns the current page URL.
func (s *Session) Location(ctx context.Context) (string, error) {
	var loc string
	if err := s.run(ctx, chromedp.Location(&loc)); err != nil {
		return "", fmt.Errorf("browser: failed to read location: %w", err)
	}
	return loc, nil
}

// Title returns the current page title.
func (s *Session) Title(ctx context.Context) (string, error) {
	var title string
	if err := s.run(ctx, chromedp.Title(&title)); err != nil {
		return "", fmt.Errorf("browser: failed to read title: %w", err)
	}
	return title, nil
}

// HTML returns the rendered document markup.
func (s *Session) HTML(ctx context.Context) (string, error) {
	var html string
	if err := s.run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("browser: failed to capture html: %w", err)
	}
	return html, nil
}

// WaitVisible blocks until the selector resolves to a visible element or
// the timeout elapses.
func (s *Session) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	waitCtx, cancel := context.WithTimeout(s.ctx, timeout)
	defer cancel()
	if err := chromedp.Run(waitCtx, chromedp.WaitVisible(selector, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("browser: selector %q not visible within %s: %w", selector, timeout, err)
	}
	return nil
}

// ResolveFirst tries each selector in order and returns the first one that
// resolves to a visible element. The per-try timeout comes from config.
func (s *Session) ResolveFirst(ctx context.Context, selectors []string) (string, error) {
	perTry := s.cfg.Browser.SelectorTimeout
	for _, sel := range selectors {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if err := s.WaitVisible(ctx, sel, perTry); err == nil {
			s.logger.Debug("Selector resolved", zap.String("selector", sel))
			return sel, nil
		}
	}
	return "", fmt.Errorf("%w: tried %d selectors", ErrNoSelectorMatched, len(selectors))
}

// IsVisible reports whether a selector currently resolves to a visible
// element, using a single short attempt.
func (s *Session) IsVisible(ctx context.Context, selector string) bool {
	return s.WaitVisible(ctx, selector, s.cfg.Browser.SelectorTimeout) == nil
}

// ExportCookies reads all cookies from the browser.
func (s *Session) ExportCookies(ctx context.Context) ([]*network.Cookie, error) {
	var cookies []*network.Cookie
	err := s.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		cookies, err = network.GetCookies().Do(ctx)
		return err
	}))
	if err != nil {
		return nil, fmt.Errorf("browser: cookie export failed: %w", err)
	}
	return cookies, nil
}

// ImportCookies installs cookies into the browser before navigation.
func (s *Session) ImportCookies(ctx context.Context, cookies []*network.Cookie) error {
	err := s.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		for _, c := range cookies {
			p := network.SetCookie(c.Name, c.Value).
				WithDomain(c.Domain).
				WithPath(c.Path).
				WithSecure(c.Secure).
				WithHTTPOnly(c.HTTPOnly)
			if c.Expires > 0 {
				expires := cdpTimeSinceEpoch(c.Expires)
				p = p.WithExpires(&expires)
			}
			if err := p.Do(ctx); err != nil {
				return fmt.Errorf("set cookie %s: %w", c.Name, err)
			}
		}
		return nil
	}))
	if err != nil {
		return fmt.Errorf("browser: cookie import failed: %w", err)
	}
	return nil
}

// Screenshot captures the current viewport as PNG.
func (s *Session) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	err := s.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		buf, err = page.CaptureScreenshot().Do(ctx)
		return err
	}))
	if err != nil {
		return nil, fmt.Errorf("browser: screenshot failed: %w", err)
	}
	return buf, nil
}

// FullScreenshot captures the whole page at the configured quality.
func (s *Session) FullScreenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	if err := s.run(ctx, chromedp.FullScreenshot(&buf, s.cfg.Screenshot.Quality)); err != nil {
		return nil, fmt.Errorf("browser: full screenshot failed: %w", err)
	}
	return buf, nil
}

// ExecuteScript evaluates a JS function expression with JSON-encoded
// arguments, awaiting promises, and returns the raw JSON result.
// Implements humanoid.Executor.
func (s *Session) ExecuteScript(ctx context.Context, script string, args []interface{}) (json.RawMessage, error) {
	encoded := make([]string, 0, len(args))
	for _, a := range args {
		b, err := json.Marshal(a)
		if err != nil {
			return nil, fmt.Errorf("browser: cannot encode script argument: %w", err)
		}
		encoded = append(encoded, string(b))
	}
	expr := fmt.Sprintf("(%s)(%s)", script, strings.Join(encoded, ", "))

	var result json.RawMessage
	err := s.run(ctx, chromedp.Evaluate(expr, &result,
		func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
			return p.WithAwaitPromise(true)
		}))
	if err != nil {
		return nil, fmt.Errorf("browser: script evaluation failed: %w", err)
	}
	return result, nil
}

// DispatchMouseEvent forwards a synthetic mouse event through the CDP
// Input domain. Implements humanoid.Executor.
func (s *Session) DispatchMouseEvent(ctx context.Context, data schemas.MouseEventData) error {
	return s.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var typ input.MouseType
		switch data.Type {
		case schemas.MouseMove:
			typ = input.MouseMoved
		case schemas.MousePress:
			typ = input.MousePressed
		case schemas.MouseRelease:
			typ = input.MouseReleased
		case schemas.MouseWheel:
			typ = input.MouseWheel
		default:
			return fmt.Errorf("unknown mouse event type %q", data.Type)
		}

		p := input.DispatchMouseEvent(typ, data.X, data.Y).
			WithButton(input.MouseButton(data.Button)).
			WithButtons(data.Buttons)
		if data.ClickCount > 0 {
			p = p.WithClickCount(data.ClickCount)
		}
		if data.Type == schemas.MouseWheel {
			p = p.WithDeltaX(data.DeltaX).WithDeltaY(data.DeltaY)
		}
		return p.Do(ctx)
	}))
}

// cdpTimeSinceEpoch converts cookie expiry seconds to the CDP timestamp type.
func cdpTimeSinceEpoch(sec float64) cdp.TimeSinceEpoch {
	return cdp.TimeSinceEpoch(time.Unix(int64(sec), 0))
}

// namedKey carries the CDP fields of a non-printable key.
type namedKey struct {
	key  string
	code string
	vk   int64
	text string
}

var namedKeys = map[string]namedKey{
	"Enter":     {key: "Enter", code: "Enter", vk: 13, text: "\r"},
	"Backspace": {key: "Backspace", code: "Backspace", vk: 8},
	"Tab":       {key: "Tab", code: "Tab", vk: 9, text: "\t"},
	"Escape":    {key: "Escape", code: "Escape", vk: 27},
}

// DispatchKeyEvent forwards a synthetic keyboard event. Printable runes go
// through Input.insertText semantics; named keys get a down/up cycle.
// Implements humanoid.Executor.
func (s *Session) DispatchKeyEvent(ctx context.Context, data schemas.KeyEventData) error {
	return s.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		switch data.Type {
		case schemas.KeyChar:
			return input.DispatchKeyEvent(input.KeyChar).
				WithText(data.Text).
				WithUnmodifiedText(data.Text).
				Do(ctx)
		case schemas.KeyPress:
			k, ok := namedKeys[data.Key]
			if !ok {
				return fmt.Errorf("unknown named key %q", data.Key)
			}
			down := input.DispatchKeyEvent(input.KeyDown).
				WithKey(k.key).
				WithCode(k.code).
				WithWindowsVirtualKeyCode(k.vk)
			if k.text != "" {
				down = down.WithText(k.text).WithUnmodifiedText(k.text)
			}
			if err := down.Do(ctx); err != nil {
				return err
			}
			return input.DispatchKeyEvent(input.KeyUp).
				WithKey(k.key).
				WithCode(k.code).
				WithWindowsVirtualKeyCode(k.vk).
				Do(ctx)
		default:
			return fmt.Errorf("unknown key event type %q", data.Type)
		}
	}))
}

// Sleep blocks for the duration or until either the caller's context or
// the tab dies. Implements humanoid.Executor.
func (s *Session) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-s.ctx.Done():
		return s.ctx.Err()
	}
}

// Close tears the tab down and unregisters it from the manager.
func (s *Session) Close(ctx context.Context) error {
	s.closeOnce.Do(func() {
		s.logger.Debug("Closing browser session")
		s.cancel()
		s.manager.unregisterSession(s.id)
	})
	return nil
}

// run executes chromedp actions against the tab, honoring the caller's
// context for cancellation.
func (s *Session) run(ctx context.Context, actions ...chromedp.Action) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	done := make(chan error, 1)
	go func() {
		done <- chromedp.Run(s.ctx, actions...)
	}()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
