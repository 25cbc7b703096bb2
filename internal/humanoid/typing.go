package humanoid

import (
	"context"
	"strings"
	"time"
	"unicode"

	"go.uber.org/zap"

	"github.com/EngThi/YT/api/schemas"
)

// TypeOptions tunes a single typing action.
type TypeOptions struct {
	// Secret suppresses typo simulation and content logging. Backspacing
	// through a password field can desynchronize with the page's masking,
	// and secrets must never reach the log.
	Secret bool
}

// qwertyNeighbors maps each key to its physical neighbors for typo
// generation. Lowercase only; case is restored after lookup.
var qwertyNeighbors = map[rune]string{
	'q': "wa", 'w': "qes", 'e': "wrd", 'r': "etf", 't': "ryg", 'y': "tuh",
	'u': "yij", 'i': "uok", 'o': "ipl", 'p': "ol",
	'a': "qsz", 's': "awdx", 'd': "sefc", 'f': "drgv", 'g': "fthb",
	'h': "gyjn", 'j': "hukm", 'k': "jil", 'l': "kop",
	'z': "asx", 'x': "zsc", 'c': "xdv", 'v': "cfb", 'b': "vgn",
	'n': "bhm", 'm': "njk",
}

// TypeText types the text rune by rune with humanized pacing: variable
// inter-key delays, slower punctuation and shifted characters, occasional
// thinking pauses, and (for non-secret text) typos that get noticed and
// backspaced. Empty text is a no-op.
func (h *Humanoid) TypeText(ctx context.Context, text string, opts *TypeOptions) error {
	if text == "" {
		return nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	secret := opts != nil && opts.Secret
	if !secret {
		h.logger.Debug("typing text", zap.Int("length", len(text)))
	}

	for i, r := range text {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		// A short reflection sometimes precedes a word boundary.
		if i > 0 && h.rng.Float64() < h.dynamicConfig.ThinkingPauseProbability {
			if err := h.cognitivePause(ctx, 400, 150); err != nil {
				return err
			}
		}

		if !secret && h.rng.Float64() < h.dynamicConfig.TypoRate {
			if err := h.typeTypo(ctx, r); err != nil {
				return err
			}
		}

		if err := h.dispatchRune(ctx, r); err != nil {
			return err
		}

		if err := h.executor.Sleep(ctx, h.keyDelay(r)); err != nil {
			return err
		}
	}

	h.updateFatigue(float64(len(text)) / 100.0)
	return nil
}

// PressKey presses a named key such as "Enter" or "Tab" with a small
// preceding pause.
func (h *Humanoid) PressKey(ctx context.Context, key string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.cognitivePause(ctx, 120, 40); err != nil {
		return err
	}
	return h.executor.DispatchKeyEvent(ctx, schemas.KeyEventData{
		Type: schemas.KeyPress,
		Key:  key,
	})
}

// typeTypo types a neighboring key, "notices" it after a beat, and
// backspaces. Assumes the lock is held.
func (h *Humanoid) typeTypo(ctx context.Context, intended rune) error {
	wrong := h.neighborOf(intended)
	if wrong == 0 {
		return nil
	}

	if err := h.dispatchRune(ctx, wrong); err != nil {
		return err
	}
	// Noticing the mistake takes longer than a normal key interval.
	if err := h.executor.Sleep(ctx, h.keyDelay(wrong)+time.Duration(100+h.rng.Intn(200))*time.Millisecond); err != nil {
		return err
	}
	if err := h.executor.DispatchKeyEvent(ctx, schemas.KeyEventData{
		Type: schemas.KeyPress,
		Key:  "Backspace",
	}); err != nil {
		return err
	}
	return h.executor.Sleep(ctx, h.keyDelay(intended))
}

// neighborOf picks a random physical neighbor of the rune, preserving case.
// Returns 0 when the rune has no mapped neighbors. Assumes the lock is held.
func (h *Humanoid) neighborOf(r rune) rune {
	lower := unicode.ToLower(r)
	neighbors, ok := qwertyNeighbors[lower]
	if !ok || len(neighbors) == 0 {
		return 0
	}
	picked := rune(neighbors[h.rng.Intn(len(neighbors))])
	if unicode.IsUpper(r) {
		picked = unicode.ToUpper(picked)
	}
	return picked
}

// dispatchRune sends one printable rune. Assumes the lock is held.
func (h *Humanoid) dispatchRune(ctx context.Context, r rune) error {
	return h.executor.DispatchKeyEvent(ctx, schemas.KeyEventData{
		Type: schemas.KeyChar,
		Text: string(r),
	})
}

// keyDelay draws the inter-key delay for a rune. Space, punctuation and
// shifted characters are slower; fatigue stretches everything.
// Assumes the lock is held.
func (h *Humanoid) keyDelay(r rune) time.Duration {
	minMs := float64(h.baseConfig.KeyDelayMinMs)
	maxMs := float64(h.baseConfig.KeyDelayMaxMs)
	if maxMs <= minMs {
		maxMs = minMs + 1
	}

	ms := minMs + h.rng.Float64()*(maxMs-minMs)
	switch {
	case r == ' ':
		ms *= 1.3
	case unicode.IsUpper(r):
		ms *= 1.4
	case strings.ContainsRune(".,!?;:@", r):
		ms *= 1.5
	case unicode.IsDigit(r):
		ms *= 1.2
	}
	ms *= 1.0 + h.fatigueLevel*0.5

	return time.Duration(ms) * time.Millisecond
}
