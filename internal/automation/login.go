package automation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/EngThi/YT/api/schemas"
	"github.com/EngThi/YT/internal/humanoid"
	"github.com/EngThi/YT/internal/store"
)

// Strategy selects how a login is attempted.
type Strategy string

const (
	StrategySessionRestore Strategy = "session_restore"
	StrategyAutomatic      Strategy = "automatic"
	StrategyManualAssisted Strategy = "manual_assisted"
	StrategyHybrid         Strategy = "hybrid"
)

// ParseStrategy validates a config or flag value.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case StrategySessionRestore, StrategyAutomatic, StrategyManualAssisted, StrategyHybrid:
		return Strategy(s), nil
	default:
		return "", fmt.Errorf("automation: unknown login strategy %q", s)
	}
}

// Result classifies how a login attempt ended.
type Result string

const (
	ResultSuccess            Result = "success"
	ResultFailed             Result = "failed"
	ResultRequires2FA        Result = "requires_2fa"
	ResultCaptchaRequired    Result = "captcha_required"
	ResultAccountLocked      Result = "account_locked"
	ResultManualIntervention Result = "manual_intervention"
)

// Login runs the chosen strategy. Hybrid tries session restore, then
// the automatic flow, then hands over to the operator.
func (a *Automator) Login(ctx context.Context, strategy Strategy) (Result, error) {
	a.log.Info("Starting login", zap.String("strategy", string(strategy)))

	switch strategy {
	case StrategySessionRestore:
		return a.restoreSession(ctx)
	case StrategyAutomatic:
		return a.automaticLogin(ctx)
	case StrategyManualAssisted:
		return a.manualAssistedLogin(ctx)
	case StrategyHybrid:
		// fallthrough below
	default:
		return ResultFailed, fmt.Errorf("automation: unknown login strategy %q", strategy)
	}

	if result, err := a.restoreSession(ctx); err == nil && result == ResultSuccess {
		return result, nil
	} else if err != nil && !errors.Is(err, store.ErrSessionNotFound) && !errors.Is(err, store.ErrSessionExpired) {
		a.log.Warn("Session restore failed, falling through", zap.Error(err))
	}

	result, err := a.automaticLogin(ctx)
	if err != nil {
		a.log.Warn("Automatic login failed, handing over", zap.Error(err))
		return a.manualAssistedLogin(ctx)
	}
	switch result {
	case ResultSuccess:
		return result, nil
	case ResultAccountLocked:
		// No point asking the operator to type into a locked account.
		return result, nil
	default:
		a.log.Info("Automatic login blocked, handing over", zap.String("result", string(result)))
		return a.manualAssistedLogin(ctx)
	}
}

// restoreSession imports the latest logged-in session's cookies and
// verifies they still authenticate.
func (a *Automator) restoreSession(ctx context.Context) (Result, error) {
	latest, err := a.store.LatestSession(ctx)
	if err != nil {
		return ResultFailed, err
	}
	rec, cookies, err := a.store.LoadSession(ctx, latest.ID)
	if err != nil {
		return ResultFailed, err
	}
	if len(cookies) == 0 {
		return ResultFailed, fmt.Errorf("automation: stored session %s has no cookies", rec.ID)
	}
	if err := a.page.ImportCookies(ctx, cookies); err != nil {
		return ResultFailed, err
	}
	if err := a.page.Navigate(ctx, youtubeHomeURL); err != nil {
		return ResultFailed, err
	}
	a.recordVisit(ctx)

	if !a.IsLoggedIn(ctx) {
		a.log.Info("Restored cookies no longer authenticate", zap.String("session_id", rec.ID))
		return ResultFailed, nil
	}

	// Continue the restored session's record so its history accumulates.
	a.sessionRecordID = rec.ID
	a.visited = append(rec.URLHistory, a.visited...)
	if err := a.store.TouchSession(ctx, rec.ID); err != nil {
		a.log.Warn("Failed to touch restored session", zap.Error(err))
	}
	a.log.Info("Session restored", zap.String("session_id", rec.ID))
	return ResultSuccess, nil
}

// automaticLogin walks the Google sign-in form with humanized input.
func (a *Automator) automaticLogin(ctx context.Context) (Result, error) {
	if a.creds == nil {
		return ResultFailed, fmt.Errorf("automation: automatic login needs credentials")
	}

	if err := a.page.Navigate(ctx, googleSignInURL); err != nil {
		return ResultFailed, err
	}
	a.recordVisit(ctx)

	// An authenticated profile gets bounced straight back to YouTube.
	if loc, err := a.page.Location(ctx); err == nil && strings.Contains(loc, "youtube.com") {
		if a.IsLoggedIn(ctx) {
			return ResultSuccess, nil
		}
	}

	emailSel, err := a.awaitAny(ctx, emailFieldSelectors, a.cfg.Login.StepTimeout)
	if err != nil {
		return a.classifyObstacle(ctx), nil
	}
	if err := a.human.IntelligentClick(ctx, emailSel, nil); err != nil {
		return ResultFailed, err
	}
	if err := a.human.TypeText(ctx, a.creds.Email, nil); err != nil {
		return ResultFailed, err
	}
	if err := a.clickFirst(ctx, identifierNextSelectors); err != nil {
		return ResultFailed, err
	}

	passwordSel, err := a.awaitAny(ctx, passwordFieldSelectors, a.cfg.Login.StepTimeout)
	if err != nil {
		result := a.classifyObstacle(ctx)
		a.log.Info("Password field never appeared", zap.String("classified", string(result)))
		return result, nil
	}
	if err := a.human.CognitivePause(ctx, 600, 200); err != nil {
		return ResultFailed, err
	}
	if err := a.human.IntelligentClick(ctx, passwordSel, nil); err != nil {
		return ResultFailed, err
	}
	if err := a.human.TypeText(ctx, a.creds.Password, &humanoid.TypeOptions{Secret: true}); err != nil {
		return ResultFailed, err
	}
	if err := a.clickFirst(ctx, passwordNextSelectors); err != nil {
		return ResultFailed, err
	}

	if _, err := a.awaitLoggedIn(ctx, a.cfg.Login.StepTimeout); err != nil {
		return a.classifyObstacle(ctx), nil
	}

	a.log.Info("Automatic login succeeded", zap.String("email", a.creds.MaskedEmail()))
	return ResultSuccess, nil
}

// manualAssistedLogin opens the sign-in page and waits for the operator
// to finish, polling for the logged-in state.
func (a *Automator) manualAssistedLogin(ctx context.Context) (Result, error) {
	if loc, err := a.page.Location(ctx); err != nil || !strings.Contains(loc, "accounts.google.com") {
		if err := a.page.Navigate(ctx, googleSignInURL); err != nil {
			return ResultFailed, err
		}
		a.recordVisit(ctx)
	}

	a.log.Info("Waiting for manual login in the browser window",
		zap.Duration("timeout", a.cfg.Login.ManualTimeout))

	deadline := time.Now().Add(a.cfg.Login.ManualTimeout)
	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return ResultFailed, ctx.Err()
		case <-time.After(5 * time.Second):
		}
		if a.probeLoggedInQuietly(ctx) {
			a.log.Info("Manual login detected")
			return ResultSuccess, nil
		}
	}
	return ResultManualIntervention, nil
}

// IsLoggedIn probes for the signed-in avatar on YouTube, navigating
// there first if the page is elsewhere.
func (a *Automator) IsLoggedIn(ctx context.Context) bool {
	loc, err := a.page.Location(ctx)
	if err != nil {
		return false
	}
	if !strings.Contains(loc, "youtube.com") {
		if err := a.page.Navigate(ctx, youtubeHomeURL); err != nil {
			return false
		}
		a.recordVisit(ctx)
	}
	_, err = a.page.ResolveFirst(ctx, avatarSelectors)
	return err == nil
}

// probeLoggedInQuietly checks without navigating, so it never yanks the
// page out from under an operator mid-form.
func (a *Automator) probeLoggedInQuietly(ctx context.Context) bool {
	loc, err := a.page.Location(ctx)
	if err != nil || !strings.Contains(loc, "youtube.com") {
		return false
	}
	_, err = a.page.ResolveFirst(ctx, avatarSelectors)
	return err == nil
}

// Logout opens the avatar menu and follows the sign-out link.
func (a *Automator) Logout(ctx context.Context) error {
	avatarSel, err := a.page.ResolveFirst(ctx, avatarSelectors)
	if err != nil {
		return fmt.Errorf("automation: no signed-in avatar to log out from: %w", err)
	}
	if err := a.human.IntelligentClick(ctx, avatarSel, nil); err != nil {
		return err
	}
	if err := a.human.CognitivePause(ctx, 800, 200); err != nil {
		return err
	}
	signOutSel, err := a.awaitAny(ctx, signOutSelectors, a.cfg.Login.StepTimeout)
	if err != nil {
		return fmt.Errorf("automation: sign-out entry not found: %w", err)
	}
	if err := a.human.IntelligentClick(ctx, signOutSel, nil); err != nil {
		return err
	}
	if a.IsLoggedIn(ctx) {
		return fmt.Errorf("automation: still logged in after sign-out")
	}
	return a.SaveSession(ctx, schemas.LoginUnknown)
}

// classifyObstacle decides why the flow stalled: captcha, a second
// factor, a lockout page, or nothing recognizable.
func (a *Automator) classifyObstacle(ctx context.Context) Result {
	if _, err := a.page.ResolveFirst(ctx, captchaSelectors); err == nil {
		return ResultCaptchaRequired
	}
	if _, err := a.page.ResolveFirst(ctx, twoFactorSelectors); err == nil {
		return ResultRequires2FA
	}
	if html, err := a.page.HTML(ctx); err == nil {
		for _, phrase := range lockoutPhrases {
			if strings.Contains(html, phrase) {
				return ResultAccountLocked
			}
		}
	}
	return ResultFailed
}

// awaitAny polls the fallback list until one selector resolves or the
// timeout passes.
func (a *Automator) awaitAny(ctx context.Context, selectors []string, timeout time.Duration) (string, error) {
	deadline := time.Now().Add(timeout)
	for {
		sel, err := a.page.ResolveFirst(ctx, selectors)
		if err == nil {
			return sel, nil
		}
		if time.Now().After(deadline) {
			return "", err
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(500 * time.Millisecond):
		}
	}
}

// awaitLoggedIn polls for the authenticated state after the final Next.
func (a *Automator) awaitLoggedIn(ctx context.Context, timeout time.Duration) (bool, error) {
	deadline := time.Now().Add(timeout)
	for {
		if a.probeLoggedInQuietly(ctx) {
			return true, nil
		}
		if loc, err := a.page.Location(ctx); err == nil && strings.Contains(loc, "youtube.com") {
			// Redirected but avatar not rendered yet; give it a beat.
			if a.IsLoggedIn(ctx) {
				return true, nil
			}
		}
		if time.Now().After(deadline) {
			return false, fmt.Errorf("automation: login verification timed out")
		}
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(time.Second):
		}
	}
}

func (a *Automator) clickFirst(ctx context.Context, selectors []string) error {
	sel, err := a.page.ResolveFirst(ctx, selectors)
	if err != nil {
		return err
	}
	return a.human.IntelligentClick(ctx, sel, nil)
}
