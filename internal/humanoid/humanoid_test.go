package humanoid

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EngThi/YT/api/schemas"
)

// fakeExecutor records every dispatched event and answers scripts from a
// canned handler. Sleep is a no-op so simulations run at full speed.
type fakeExecutor struct {
	mu          sync.Mutex
	mouseEvents []schemas.MouseEventData
	keyEvents   []schemas.KeyEventData
	scriptFn    func(script string, args []interface{}) (json.RawMessage, error)
}

func (f *fakeExecutor) DispatchMouseEvent(ctx context.Context, data schemas.MouseEventData) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mouseEvents = append(f.mouseEvents, data)
	return nil
}

func (f *fakeExecutor) DispatchKeyEvent(ctx context.Context, data schemas.KeyEventData) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keyEvents = append(f.keyEvents, data)
	return nil
}

func (f *fakeExecutor) ExecuteScript(ctx context.Context, script string, args []interface{}) (json.RawMessage, error) {
	if f.scriptFn != nil {
		return f.scriptFn(script, args)
	}
	// Default: element at a fixed location, already in view.
	if strings.Contains(script, "getBoundingClientRect") && !strings.Contains(script, "innerText") {
		return json.RawMessage(`{"x":300,"y":200,"width":120,"height":40}`), nil
	}
	return json.RawMessage(`{"elementExists":true,"delta":0,"viewportHeight":800,"contentDensity":0.2}`), nil
}

func (f *fakeExecutor) Sleep(ctx context.Context, d time.Duration) error {
	return ctx.Err()
}

func (f *fakeExecutor) eventsOfType(t schemas.MouseEventType) []schemas.MouseEventData {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []schemas.MouseEventData
	for _, e := range f.mouseEvents {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

func TestMoveToVector(t *testing.T) {
	exec := &fakeExecutor{}
	h := NewTestHumanoid(exec, 42)

	target := Vector2D{X: 500, Y: 400}
	err := h.MoveToVector(context.Background(), target, nil)
	require.NoError(t, err)

	moves := exec.eventsOfType(schemas.MouseMove)
	require.NotEmpty(t, moves, "movement should dispatch mouse move events")

	// The cursor should settle near the target; drift and tremor keep it
	// from landing exactly.
	final := h.Position()
	assert.InDelta(t, target.X, final.X, 15.0)
	assert.InDelta(t, target.Y, final.Y, 15.0)
}

func TestMoveToVectorShortDistanceIsNoop(t *testing.T) {
	exec := &fakeExecutor{}
	h := NewTestHumanoid(exec, 1)
	h.SetPosition(Vector2D{X: 100, Y: 100})

	err := h.MoveToVector(context.Background(), Vector2D{X: 100.5, Y: 100.5}, nil)
	require.NoError(t, err)
	assert.Empty(t, exec.mouseEvents)
}

func TestIntelligentClick(t *testing.T) {
	exec := &fakeExecutor{}
	h := NewTestHumanoid(exec, 7)

	err := h.IntelligentClick(context.Background(), "#signin", nil)
	require.NoError(t, err)

	presses := exec.eventsOfType(schemas.MousePress)
	releases := exec.eventsOfType(schemas.MouseRelease)
	require.Len(t, presses, 1)
	require.Len(t, releases, 1)

	press := presses[0]
	assert.Equal(t, schemas.ButtonLeft, press.Button)
	assert.EqualValues(t, 1, press.ClickCount)
	assert.EqualValues(t, 1, press.Buttons)

	// Press lands on the element (x:300 y:200 w:120 h:40) plus click noise.
	assert.InDelta(t, 360.0, press.X, 80.0)
	assert.InDelta(t, 220.0, press.Y, 40.0)

	release := releases[0]
	assert.Equal(t, schemas.ButtonLeft, release.Button)
	assert.EqualValues(t, 0, release.Buttons)

	// Press precedes release in the event stream.
	exec.mu.Lock()
	pressIdx, releaseIdx := -1, -1
	for i, e := range exec.mouseEvents {
		switch e.Type {
		case schemas.MousePress:
			pressIdx = i
		case schemas.MouseRelease:
			releaseIdx = i
		}
	}
	exec.mu.Unlock()
	assert.Less(t, pressIdx, releaseIdx)

	// Button state must not be left dangling.
	h.mu.Lock()
	assert.Equal(t, schemas.ButtonNone, h.currentButtonState)
	h.mu.Unlock()
}

func TestIntelligentClickMissingElement(t *testing.T) {
	exec := &fakeExecutor{
		scriptFn: func(script string, args []interface{}) (json.RawMessage, error) {
			if strings.Contains(script, "elementExists") {
				return json.RawMessage(`{"elementExists":false,"delta":0,"viewportHeight":800,"contentDensity":0}`), nil
			}
			return json.RawMessage(`null`), nil
		},
	}
	h := NewTestHumanoid(exec, 3)

	err := h.IntelligentClick(context.Background(), "#ghost", nil)
	require.Error(t, err)
	assert.Empty(t, exec.eventsOfType(schemas.MousePress))
}

func TestScrollByDispatchesWheelBursts(t *testing.T) {
	exec := &fakeExecutor{}
	h := NewTestHumanoid(exec, 11)

	err := h.ScrollBy(context.Background(), 600)
	require.NoError(t, err)

	wheels := exec.eventsOfType(schemas.MouseWheel)
	require.NotEmpty(t, wheels)

	var total float64
	for _, w := range wheels {
		assert.Greater(t, w.DeltaY, 0.0)
		assert.LessOrEqual(t, w.DeltaY, 161.0)
		total += w.DeltaY
	}
	assert.InDelta(t, 600.0, total, 2.0)
}

func TestScrollByNegative(t *testing.T) {
	exec := &fakeExecutor{}
	h := NewTestHumanoid(exec, 12)

	require.NoError(t, h.ScrollBy(context.Background(), -300))
	wheels := exec.eventsOfType(schemas.MouseWheel)
	require.NotEmpty(t, wheels)
	for _, w := range wheels {
		assert.Less(t, w.DeltaY, 0.0)
	}
}

func TestFatigueBounds(t *testing.T) {
	h := NewTestHumanoid(&fakeExecutor{}, 5)

	h.mu.Lock()
	defer h.mu.Unlock()

	for i := 0; i < 1000; i++ {
		h.updateFatigue(1.0)
	}
	assert.Equal(t, 1.0, h.fatigueLevel)
	// Fatigue slows the motor parameters down.
	assert.Less(t, h.dynamicConfig.Omega, h.baseConfig.Omega)
	assert.Greater(t, h.dynamicConfig.GaussianStrength, h.baseConfig.GaussianStrength)

	h.recoverFatigue(24 * time.Hour)
	assert.Equal(t, 0.0, h.fatigueLevel)
}

func TestPotentialField(t *testing.T) {
	field := NewPotentialField()
	field.AddRepulsor(Vector2D{X: 100, Y: 100}, 500, 50)

	t.Run("no force outside radius", func(t *testing.T) {
		force := field.CalculateNetForce(Vector2D{X: 300, Y: 300})
		assert.Equal(t, Vector2D{}, force)
	})

	t.Run("pushes away inside radius", func(t *testing.T) {
		force := field.CalculateNetForce(Vector2D{X: 120, Y: 100})
		assert.Greater(t, force.X, 0.0)
		assert.InDelta(t, 0.0, force.Y, 1e-9)
	})
}

func TestCancelledContextStopsMovement(t *testing.T) {
	exec := &fakeExecutor{}
	h := NewTestHumanoid(exec, 9)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := h.MoveToVector(ctx, Vector2D{X: 800, Y: 600}, nil)
	require.ErrorIs(t, err, context.Canceled)
}

func TestClickHoldDurationWithinBounds(t *testing.T) {
	h := NewTestHumanoid(&fakeExecutor{}, 21)

	h.mu.Lock()
	defer h.mu.Unlock()
	minHold := time.Duration(h.baseConfig.ClickHoldMinMs) * time.Millisecond
	maxHold := time.Duration(float64(h.baseConfig.ClickHoldMaxMs)*1.25) * time.Millisecond

	for i := 0; i < 200; i++ {
		d := h.calculateClickHoldDuration()
		assert.GreaterOrEqual(t, d, minHold, fmt.Sprintf("iteration %d", i))
		assert.LessOrEqual(t, d, maxHold, fmt.Sprintf("iteration %d", i))
	}
}
