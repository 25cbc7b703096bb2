package humanoid

import (
	"context"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/EngThi/YT/api/schemas"
)

const (
	// timeStep is the physics granularity (200Hz).
	timeStep = 5 * time.Millisecond
	// maxSimulationTime bounds a single movement so an unreachable target
	// cannot spin forever.
	maxSimulationTime = 10 * time.Second
)

// simulateTrajectory moves the cursor from start to end with a spring-damped
// system. The spring pulls toward the target, damping opposes velocity, and
// an optional potential field adds external forces. The model produces the
// bell-shaped velocity profile and occasional submovements of real pointing.
// Assumes the lock is held. Returns the final velocity.
func (h *Humanoid) simulateTrajectory(ctx context.Context, start, end Vector2D, field *PotentialField, buttonState schemas.MouseButton) (Vector2D, error) {
	currentPos := start
	velocity := Vector2D{}
	t := time.Duration(0)

	omega := h.dynamicConfig.Omega
	zeta := h.dynamicConfig.Zeta

	if field == nil {
		field = NewPotentialField()
	}

	buttons := buttonsBitfield(buttonState)
	perlinMagnitude := h.dynamicConfig.PerlinAmplitude
	const perlinFrequency = 0.8

	currentTarget := end
	isMicroCorrection := false
	initialDist := start.Dist(end)

	startTime := time.Now()

	for t < maxSimulationTime {
		if ctx.Err() != nil {
			return velocity, ctx.Err()
		}

		distanceToTarget := currentPos.Dist(currentTarget)
		speed := velocity.Mag()

		// Terminate when close and slow.
		if distanceToTarget < 1.0 && speed < 50.0 {
			if currentTarget == end {
				break
			}
			// Submovement finished; refocus on the real target.
			currentTarget = end
			isMicroCorrection = false
			continue
		}

		// Mid-flight correction: when time-to-contact gets short but the
		// cursor is still off, the brain re-plans toward a jittered
		// sub-target.
		if !isMicroCorrection && initialDist > h.dynamicConfig.MicroCorrectionThreshold {
			ttc := distanceToTarget / math.Max(1.0, speed)
			if ttc < 0.1 && distanceToTarget > 15.0 && h.rng.Float64() < 0.3 {
				isMicroCorrection = true
				adjustment := 0.8 + h.rng.Float64()*0.4
				currentTarget = currentPos.Add(end.Sub(currentPos).Mul(adjustment))
				h.logger.Debug("initiating micro-correction",
					zap.Float64("distance", distanceToTarget),
					zap.Float64("ttc", ttc))
			}
		}

		// F = ma with m = 1: spring k = omega^2, damping c = 2*zeta*omega.
		springForce := currentTarget.Sub(currentPos).Mul(omega * omega)
		dampingForce := velocity.Mul(-2.0 * zeta * omega)
		externalForce := field.CalculateNetForce(currentPos)
		acceleration := springForce.Add(dampingForce).Add(externalForce)

		// Semi-implicit Euler.
		dt := timeStep.Seconds()
		velocity = velocity.Add(acceleration.Mul(dt))
		if velocity.Mag() > maxVelocity {
			velocity = velocity.Normalize().Mul(maxVelocity)
		}
		currentPos = currentPos.Add(velocity.Mul(dt))

		// Perlin drift plus Gaussian tremor on top of the physics.
		elapsed := time.Since(startTime).Seconds()
		drift := Vector2D{
			X: h.noiseX.Noise1D(elapsed*perlinFrequency) * perlinMagnitude,
			Y: h.noiseY.Noise1D(elapsed*perlinFrequency) * perlinMagnitude,
		}
		finalPoint := h.applyGaussianNoise(currentPos.Add(drift))

		err := h.executor.DispatchMouseEvent(ctx, schemas.MouseEventData{
			Type:    schemas.MouseMove,
			X:       finalPoint.X,
			Y:       finalPoint.Y,
			Button:  schemas.ButtonNone,
			Buttons: buttons,
		})
		if err != nil {
			if ctx.Err() == nil {
				h.logger.Warn("mouse move dispatch failed", zap.Error(err))
			}
			return velocity, err
		}

		h.currentPos = finalPoint
		t += timeStep

		// Jitter the sleep to avoid perfectly periodic events.
		sleep := timeStep + time.Duration(h.rng.Intn(3)-1)*time.Millisecond
		if sleep > 0 {
			if err := h.executor.Sleep(ctx, sleep); err != nil {
				return velocity, err
			}
		}
	}

	if t >= maxSimulationTime {
		h.logger.Warn("movement simulation timed out", zap.Any("start", start), zap.Any("end", end))
	}
	return velocity, nil
}
