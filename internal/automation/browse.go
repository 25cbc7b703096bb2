package automation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/EngThi/YT/internal/humanoid"
)

// VideoResult is one extracted search hit.
type VideoResult struct {
	Title string
	URL   string
}

// Explore idles on the current page like a person deciding what to
// watch: reading pauses scaled to content length, smooth scrolls, the
// occasional mouse drift, and sometimes a detour to the trending feed.
func (a *Automator) Explore(ctx context.Context, duration time.Duration) error {
	a.log.Info("Exploring", zap.Duration("for", duration))
	deadline := time.Now().Add(duration)

	visitedTrending := false
	for time.Now().Before(deadline) {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		pause := a.readingPause(ctx)
		if err := a.human.CognitivePause(ctx, float64(pause.Milliseconds()), float64(pause.Milliseconds())/4); err != nil {
			return err
		}

		roll := a.rng.Float64()
		switch {
		case !visitedTrending && roll < a.cfg.Browse.TrendingProbability:
			visitedTrending = true
			if err := a.page.Navigate(ctx, youtubeTrendingURL); err != nil {
				a.log.Warn("Trending visit failed", zap.Error(err))
				continue
			}
			a.recordVisit(ctx)
		case roll < 0.75:
			delta := 250 + a.rng.Float64()*550
			if err := a.human.ScrollBy(ctx, delta); err != nil {
				return err
			}
		default:
			if err := a.driftMouse(ctx); err != nil {
				return err
			}
		}
	}
	a.log.Debug("Exploration finished", zap.Bool("visited_trending", visitedTrending))
	return nil
}

// Search types the query into the search box, submits it and extracts
// result titles from the rendered page.
func (a *Automator) Search(ctx context.Context, query string) ([]VideoResult, error) {
	if query == "" {
		return nil, fmt.Errorf("automation: empty search query")
	}
	a.log.Info("Searching", zap.String("query", query))

	boxSel, err := a.awaitAny(ctx, searchBoxSelectors, a.cfg.Login.StepTimeout)
	if err != nil {
		return nil, fmt.Errorf("automation: search box not found: %w", err)
	}
	if err := a.human.IntelligentClick(ctx, boxSel, nil); err != nil {
		return nil, err
	}
	if err := a.human.TypeText(ctx, query, nil); err != nil {
		return nil, err
	}
	if err := a.human.CognitivePause(ctx, 400, 150); err != nil {
		return nil, err
	}
	if err := a.human.PressKey(ctx, "Enter"); err != nil {
		return nil, err
	}

	if _, err := a.awaitAny(ctx, searchResultSelectors, a.cfg.Login.StepTimeout); err != nil {
		return nil, fmt.Errorf("automation: no search results rendered: %w", err)
	}
	a.recordVisit(ctx)

	// Let lazy-rendered results land, then read the page like a person
	// scanning the list.
	if err := a.human.ScrollBy(ctx, 300+a.rng.Float64()*300); err != nil {
		return nil, err
	}

	html, err := a.page.HTML(ctx)
	if err != nil {
		return nil, err
	}
	results, err := extractResults(html, a.cfg.Browse.MaxSearchResults)
	if err != nil {
		return nil, err
	}
	a.log.Info("Search results extracted", zap.Int("count", len(results)))
	return results, nil
}

// extractResults pulls video titles and links out of a results page.
func extractResults(html string, max int) ([]VideoResult, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("automation: failed to parse results page: %w", err)
	}

	var out []VideoResult
	seen := make(map[string]bool)
	doc.Find(`a#video-title`).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		href, ok := sel.Attr("href")
		if !ok || !strings.HasPrefix(href, "/watch") {
			return true
		}
		title := strings.TrimSpace(sel.AttrOr("title", ""))
		if title == "" {
			title = strings.TrimSpace(sel.Text())
		}
		if title == "" || seen[href] {
			return true
		}
		seen[href] = true
		out = append(out, VideoResult{
			Title: title,
			URL:   "https://www.youtube.com" + href,
		})
		return max <= 0 || len(out) < max
	})
	return out, nil
}

// readingPause scales a base pause to how much text the page carries.
func (a *Automator) readingPause(ctx context.Context) time.Duration {
	base := 800 * time.Millisecond
	html, err := a.page.HTML(ctx)
	if err != nil {
		return base
	}
	factor := float64(len(html)) / 200000.0
	if factor > 2.0 {
		factor = 2.0
	}
	return base + time.Duration(factor*float64(1200*time.Millisecond))
}

// driftMouse wanders toward a random point inside the viewport.
func (a *Automator) driftMouse(ctx context.Context) error {
	screen := a.page.Persona().Screen
	target := humanoid.Vector2D{
		X: 100 + a.rng.Float64()*float64(screen.Width-200),
		Y: 120 + a.rng.Float64()*float64(screen.Height-260),
	}
	if err := a.human.MoveToVector(ctx, target, nil); err != nil {
		return err
	}
	return a.human.Hesitate(ctx, time.Duration(300+a.rng.Intn(700))*time.Millisecond)
}
