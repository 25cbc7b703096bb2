package humanoid

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/EngThi/YT/api/schemas"
)

// MoveTo moves the cursor onto the element matched by the selector.
func (h *Humanoid) MoveTo(ctx context.Context, selector string, opts *InteractionOptions) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.moveToSelector(ctx, selector, opts)
}

// MoveToVector moves the cursor to a specific coordinate.
func (h *Humanoid) MoveToVector(ctx context.Context, target Vector2D, opts *InteractionOptions) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.moveToVector(ctx, target, opts)
}

// moveToSelector assumes the lock is held.
func (h *Humanoid) moveToSelector(ctx context.Context, selector string, opts *InteractionOptions) error {
	if err := h.ensureVisible(ctx, selector, opts); err != nil {
		// Scrolling failure is not fatal; the element may already be in view.
		h.logger.Warn("failed to ensure element visibility before moving",
			zap.String("selector", selector), zap.Error(err))
	}

	geo, err := h.getElementBoxBySelector(ctx, selector)
	if err != nil {
		return fmt.Errorf("humanoid: failed to locate target %q: %w", selector, err)
	}

	center, valid := boxToCenter(geo)
	if !valid {
		return fmt.Errorf("humanoid: element %q has invalid geometry", selector)
	}

	target := h.calculateTargetPoint(geo, center, Vector2D{})
	return h.moveToVector(ctx, target, opts)
}

// moveToVector assumes the lock is held.
func (h *Humanoid) moveToVector(ctx context.Context, target Vector2D, opts *InteractionOptions) error {
	startPos := h.currentPos
	dist := startPos.Dist(target)
	if dist < 1.5 {
		return nil
	}

	h.updateFatigue(dist / 1000.0)

	var field *PotentialField
	if opts != nil {
		field = opts.Field
	}

	finalVelocity, err := h.simulateTrajectory(ctx, startPos, target, field, h.currentButtonState)
	if err != nil {
		return err
	}

	// Significant movements end with a verification pause before acting.
	if dist > 20.0 {
		terminalPause := h.calculateTerminalFittsLaw(dist)
		h.recoverFatigue(terminalPause)
		if err := h.hesitate(ctx, terminalPause); err != nil {
			return err
		}
	}

	h.logger.Debug("move completed",
		zap.Float64("distance", dist),
		zap.Float64("finalSpeed", finalVelocity.Mag()))
	return nil
}

// calculateTargetPoint picks a realistic aim point inside an element: a
// normal distribution around the center, biased by approach velocity, with
// motor noise, clamped inside the box. Assumes the lock is held.
func (h *Humanoid) calculateTargetPoint(geo *schemas.ElementGeometry, center Vector2D, estimatedFinalVelocity Vector2D) Vector2D {
	if geo == nil || geo.Width <= 0 || geo.Height <= 0 {
		return center
	}

	width, height := geo.Width, geo.Height
	clickNoiseStrength := h.dynamicConfig.ClickNoise

	// Aim within the inner 80% of the element; +/- 3 sigma covers it.
	stdDevX := width * 0.8 / 6.0
	stdDevY := height * 0.8 / 6.0
	offsetX := h.rng.NormFloat64() * stdDevX
	offsetY := h.rng.NormFloat64() * stdDevY

	// Fast approaches overshoot slightly in the direction of travel.
	speed := estimatedFinalVelocity.Mag()
	if speed > 500.0 {
		normalized := math.Min(1.0, speed/maxVelocity)
		velDir := estimatedFinalVelocity.Normalize()
		offsetX += velDir.X * normalized * width * 0.1
		offsetY += velDir.Y * normalized * height * 0.1
	}

	offsetX += h.rng.NormFloat64() * clickNoiseStrength
	offsetY += h.rng.NormFloat64() * clickNoiseStrength

	finalX := center.X + offsetX
	finalY := center.Y + offsetY

	// Clamp strictly inside the element with a 1px margin.
	minX, maxX := center.X-width/2.0+1.0, center.X+width/2.0-1.0
	minY, maxY := center.Y-height/2.0+1.0, center.Y+height/2.0-1.0
	finalX = math.Max(minX, math.Min(maxX, finalX))
	finalY = math.Max(minY, math.Min(maxY, finalY))

	return Vector2D{X: finalX, Y: finalY}
}
