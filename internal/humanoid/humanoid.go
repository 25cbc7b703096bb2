package humanoid

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/aquilax/go-perlin"
	"go.uber.org/zap"

	"github.com/EngThi/YT/api/schemas"
)

// maxVelocity caps cursor speed in pixels per second.
const maxVelocity = 6000.0

// Humanoid holds the state of one simulated operator: randomness, fatigue,
// cursor position and the noise generators feeding drift and tremor.
type Humanoid struct {
	// mu protects all mutable state. Public methods lock it; internal
	// lowercase helpers assume it is held.
	mu                 sync.Mutex
	baseConfig         Config
	dynamicConfig      Config
	logger             *zap.Logger
	executor           Executor
	currentPos         Vector2D
	currentButtonState schemas.MouseButton
	fatigueLevel       float64
	lastActionTime     time.Time
	rng                *rand.Rand
	noiseX             *perlin.Perlin
	noiseY             *perlin.Perlin
}

// New creates and initializes a Humanoid.
func New(config Config, logger *zap.Logger, executor Executor) *Humanoid {
	h := &Humanoid{
		logger:   logger,
		executor: executor,
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	seed := time.Now().UnixNano()
	rng := config.Rng
	if rng == nil {
		rng = rand.New(rand.NewSource(seed))
	}

	config.NormalizeTypoRates()
	config.FinalizeSessionPersona(rng)

	alpha, beta, n := 2.0, 2.0, int32(3)

	h.baseConfig = config
	h.dynamicConfig = config
	h.rng = rng
	h.lastActionTime = time.Now()
	h.currentButtonState = schemas.ButtonNone
	h.noiseX = perlin.NewPerlin(alpha, beta, n, seed)
	h.noiseY = perlin.NewPerlin(alpha, beta, n, seed+1)

	return h
}

// NewTestHumanoid creates a fully deterministic instance for tests.
func NewTestHumanoid(executor Executor, seed int64) *Humanoid {
	config := DefaultConfig()
	config.Rng = rand.New(rand.NewSource(seed))

	h := New(config, zap.NewNop(), executor)

	h.mu.Lock()
	defer h.mu.Unlock()

	h.noiseX = perlin.NewPerlin(2, 2, 3, seed)
	h.noiseY = perlin.NewPerlin(2, 2, 3, seed+1)

	// Fixed dynamic parameters so assertions are stable.
	h.dynamicConfig.FittsA = 100.0
	h.dynamicConfig.FittsB = 150.0
	h.dynamicConfig.Omega = 30.0
	h.dynamicConfig.Zeta = 0.8
	h.dynamicConfig.PerlinAmplitude = 2.0
	h.dynamicConfig.GaussianStrength = 0.5

	return h
}

// Position returns the current cursor position.
func (h *Humanoid) Position() Vector2D {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.currentPos
}

// SetPosition moves the virtual cursor without dispatching events. Used to
// anchor the simulation after navigation.
func (h *Humanoid) SetPosition(pos Vector2D) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.currentPos = pos
}

// ensureVisible scrolls the target into view unless the options opt out.
// Assumes the lock is held.
func (h *Humanoid) ensureVisible(ctx context.Context, selector string, opts *InteractionOptions) error {
	shouldEnsure := true
	if opts != nil && opts.EnsureVisible != nil {
		shouldEnsure = *opts.EnsureVisible
	}
	if shouldEnsure {
		return h.intelligentScroll(ctx, selector)
	}
	return nil
}

// releaseMouse releases the left button if our state says it is down. The
// internal state is cleared even when the dispatch fails, otherwise the
// simulation would stay stuck mid-click. Assumes the lock is held.
func (h *Humanoid) releaseMouse(ctx context.Context) error {
	if h.currentButtonState != schemas.ButtonLeft {
		return nil
	}

	pos := h.currentPos
	err := h.executor.DispatchMouseEvent(ctx, schemas.MouseEventData{
		Type:       schemas.MouseRelease,
		X:          pos.X,
		Y:          pos.Y,
		Button:     schemas.ButtonLeft,
		ClickCount: 1,
		Buttons:    0,
	})
	if err != nil {
		h.logger.Error("mouse release dispatch failed, clearing button state anyway", zap.Error(err))
	}
	h.currentButtonState = schemas.ButtonNone
	return err
}
