package humanoid

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/EngThi/YT/api/schemas"
)

// Executor abstracts the browser layer the simulation drives. The browser
// session implements it over CDP; tests supply fakes.
type Executor interface {
	DispatchMouseEvent(ctx context.Context, data schemas.MouseEventData) error
	DispatchKeyEvent(ctx context.Context, data schemas.KeyEventData) error
	// ExecuteScript evaluates a JS function expression with the given
	// arguments and returns its JSON-encoded result.
	ExecuteScript(ctx context.Context, script string, args []interface{}) (json.RawMessage, error)
	// Sleep blocks for the duration or until the context is cancelled.
	Sleep(ctx context.Context, d time.Duration) error
}

const elementBoxJS = `(selector) => {
	const el = document.querySelector(selector);
	if (!el) { return null; }
	const r = el.getBoundingClientRect();
	return { x: r.x, y: r.y, width: r.width, height: r.height };
}`

// getElementBoxBySelector measures an element's viewport box. It assumes
// the caller holds the lock.
func (h *Humanoid) getElementBoxBySelector(ctx context.Context, selector string) (*schemas.ElementGeometry, error) {
	raw, err := h.executor.ExecuteScript(ctx, elementBoxJS, []interface{}{selector})
	if err != nil {
		return nil, fmt.Errorf("humanoid: geometry lookup failed for %q: %w", selector, err)
	}
	if len(raw) == 0 || string(raw) == "null" {
		return nil, fmt.Errorf("humanoid: no element matches %q", selector)
	}
	var geo schemas.ElementGeometry
	if err := json.Unmarshal(raw, &geo); err != nil {
		return nil, fmt.Errorf("humanoid: bad geometry payload for %q: %w", selector, err)
	}
	return &geo, nil
}

// boxToCenter returns the center of a box and whether the box is usable.
func boxToCenter(geo *schemas.ElementGeometry) (Vector2D, bool) {
	if geo == nil || geo.Width <= 0 || geo.Height <= 0 {
		return Vector2D{}, false
	}
	return Vector2D{X: geo.X + geo.Width/2.0, Y: geo.Y + geo.Height/2.0}, true
}
