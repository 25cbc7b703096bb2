package humanoid

import (
	"context"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/EngThi/YT/api/schemas"
)

// IntelligentClick moves to the element and performs a full human click:
// verification pause, press with click noise, a held tremor phase, release.
func (h *Humanoid) IntelligentClick(ctx context.Context, selector string, opts *InteractionOptions) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.moveToSelector(ctx, selector, opts); err != nil {
		return err
	}

	// Final verification before committing.
	if err := h.cognitivePause(ctx, 50, 20); err != nil {
		return err
	}

	clickPos := h.applyClickNoise(h.currentPos)
	err := h.executor.DispatchMouseEvent(ctx, schemas.MouseEventData{
		Type:       schemas.MousePress,
		X:          clickPos.X,
		Y:          clickPos.Y,
		Button:     schemas.ButtonLeft,
		ClickCount: 1,
		Buttons:    1,
	})
	if err != nil {
		return err
	}
	h.currentPos = clickPos
	h.currentButtonState = schemas.ButtonLeft

	// Hold with tremor; hesitate preserves the pressed bitfield.
	holdDuration := h.calculateClickHoldDuration()
	if err := h.hesitate(ctx, holdDuration); err != nil {
		h.logger.Warn("click hold interrupted, releasing mouse", zap.Error(err))
		// The original context may already be cancelled.
		h.releaseMouse(context.Background())
		return err
	}

	h.currentPos = h.applyClickNoise(h.currentPos)
	if err := h.releaseMouse(ctx); err != nil {
		return err
	}

	h.updateFatigue(0.1)
	return nil
}

// calculateTerminalFittsLaw estimates the verification time at the end of a
// movement from Fitts's index of difficulty. Assumes the lock is held.
func (h *Humanoid) calculateTerminalFittsLaw(distance float64) time.Duration {
	const W = 20.0 // assumed target width for the verification phase
	id := math.Log2(1.0 + distance/W)

	mt := h.dynamicConfig.FittsA + h.dynamicConfig.FittsB*id
	mt += mt * (h.rng.Float64()*0.3 - 0.15)
	if mt < 0 {
		mt = 0
	}
	return time.Duration(mt) * time.Millisecond
}

// calculateClickHoldDuration draws a hold time from a Gaussian skewed
// towards short clicks, clamped to the configured bounds and lengthened by
// fatigue. Assumes the lock is held.
func (h *Humanoid) calculateClickHoldDuration() time.Duration {
	minMs := float64(h.baseConfig.ClickHoldMinMs)
	maxMs := float64(h.baseConfig.ClickHoldMaxMs)

	mean := (minMs + maxMs) / 2.0 * 0.9
	stdDev := (maxMs - minMs) / 5.0

	durationMs := mean + h.rng.NormFloat64()*stdDev
	durationMs = math.Max(minMs, math.Min(maxMs, durationMs))
	durationMs *= 1.0 + h.fatigueLevel*0.25

	return time.Duration(durationMs) * time.Millisecond
}
