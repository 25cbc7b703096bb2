package humanoid

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/EngThi/YT/api/schemas"
)

// scrollProbeJS measures where an element sits relative to the viewport and
// how text-dense the page is. Density slows scrolling down the way reading
// does.
const scrollProbeJS = `(selector) => {
	const el = selector ? document.querySelector(selector) : null;
	const viewportHeight = window.innerHeight;
	const density = Math.min(1.5, (document.body.innerText || '').length / 3000);
	if (!el) {
		return { elementExists: false, delta: 0, viewportHeight: viewportHeight, contentDensity: density };
	}
	const r = el.getBoundingClientRect();
	const margin = 30;
	let delta = 0;
	if (r.top < margin) {
		delta = r.top - viewportHeight * (0.2 + Math.random() * 0.3);
	} else if (r.bottom > viewportHeight - margin) {
		delta = r.bottom - viewportHeight * (0.4 + Math.random() * 0.3);
	}
	return { elementExists: true, delta: delta, viewportHeight: viewportHeight, contentDensity: density };
}`

type scrollProbe struct {
	ElementExists  bool    `json:"elementExists"`
	Delta          float64 `json:"delta"`
	ViewportHeight float64 `json:"viewportHeight"`
	ContentDensity float64 `json:"contentDensity"`
}

// ScrollBy scrolls vertically by the given distance using humanized wheel
// bursts with reading pauses between them.
func (h *Humanoid) ScrollBy(ctx context.Context, deltaY float64) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.scrollDistance(ctx, deltaY, 0)
}

// ScrollToElement brings the selector into comfortable view.
func (h *Humanoid) ScrollToElement(ctx context.Context, selector string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.intelligentScroll(ctx, selector)
}

// intelligentScroll brings a selector into comfortable view, scrolling in
// chunks and occasionally regressing like a reader who went too far.
// Assumes the lock is held.
func (h *Humanoid) intelligentScroll(ctx context.Context, selector string) error {
	shouldRegress := h.rng.Float64() < h.dynamicConfig.ScrollRegressionProbability

	const maxIterations = 15
	for iteration := 1; iteration <= maxIterations; iteration++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		probe, err := h.probeScroll(ctx, selector)
		if err != nil {
			h.logger.Warn("scroll probe failed", zap.Error(err), zap.Int("iteration", iteration))
			if err := h.executor.Sleep(ctx, 100*time.Millisecond); err != nil {
				return err
			}
			continue
		}

		if !probe.ElementExists {
			h.logger.Debug("scroll target does not exist", zap.String("selector", selector))
			return nil
		}
		if math.Abs(probe.Delta) < 5 {
			return nil
		}

		// Scroll a fraction of the remaining distance, slower on dense pages.
		densityImpact := math.Max(0.1, 1.0-probe.ContentDensity*h.dynamicConfig.ScrollReadDensityFactor)
		chunk := probe.Delta * (0.6 + h.rng.Float64()*0.4) * densityImpact
		if err := h.scrollDistance(ctx, chunk, probe.ContentDensity); err != nil {
			return err
		}

		if shouldRegress && iteration > 2 && math.Abs(probe.Delta) > 100 {
			h.logger.Debug("simulating scroll regression")
			back := -chunk * (0.2 + h.rng.Float64()*0.3)
			if err := h.scrollDistance(ctx, back, probe.ContentDensity); err != nil {
				return err
			}
			shouldRegress = false
			// Re-reading after backtracking.
			if err := h.cognitivePause(ctx, 300, 100); err != nil {
				return err
			}
		}
	}

	h.logger.Warn("scroll gave up before reaching target", zap.String("selector", selector))
	// The caller decides what a still-hidden element means.
	return nil
}

// scrollDistance emits wheel events covering the distance in bursts of
// 40-160px with short pauses between them. Assumes the lock is held.
func (h *Humanoid) scrollDistance(ctx context.Context, distance, contentDensity float64) error {
	remaining := distance
	for math.Abs(remaining) > 1 {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		burst := 40.0 + h.rng.Float64()*120.0
		if burst > math.Abs(remaining) {
			burst = math.Abs(remaining)
		}
		if remaining < 0 {
			burst = -burst
		}

		err := h.executor.DispatchMouseEvent(ctx, schemas.MouseEventData{
			Type:   schemas.MouseWheel,
			X:      h.currentPos.X,
			Y:      h.currentPos.Y,
			Button: schemas.ButtonNone,
			DeltaY: burst,
		})
		if err != nil {
			return err
		}
		remaining -= burst

		pause := h.calculateScrollPause(contentDensity)
		if err := h.executor.Sleep(ctx, pause); err != nil {
			return err
		}
	}
	return nil
}

// probeScroll runs the probe script. Assumes the lock is held.
func (h *Humanoid) probeScroll(ctx context.Context, selector string) (*scrollProbe, error) {
	raw, err := h.executor.ExecuteScript(ctx, scrollProbeJS, []interface{}{selector})
	if err != nil {
		return nil, fmt.Errorf("humanoid: scroll probe execution: %w", err)
	}
	if len(raw) == 0 || string(raw) == "null" {
		return nil, fmt.Errorf("humanoid: scroll probe returned no result")
	}
	var probe scrollProbe
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, fmt.Errorf("humanoid: scroll probe payload: %w", err)
	}
	return &probe, nil
}

// calculateScrollPause scales the inter-burst pause with content density
// and fatigue. Assumes the lock is held.
func (h *Humanoid) calculateScrollPause(contentDensity float64) time.Duration {
	pauseMs := 60 + contentDensity*400*h.dynamicConfig.ScrollReadDensityFactor
	pauseMs *= 1.0 + h.fatigueLevel*0.5
	pauseMs = math.Max(30, math.Min(1200, pauseMs))
	// Jitter so bursts are not metronomic.
	pauseMs *= 0.7 + h.rng.Float64()*0.6
	return time.Duration(pauseMs) * time.Millisecond
}
