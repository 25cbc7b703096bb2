// Package screenshot captures checkpoint PNGs into a managed directory
// tree and records their metadata in the store.
package screenshot

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/EngThi/YT/internal/store"
)

// Categories partition captures by purpose. Each one maps to a
// subdirectory under the screenshot root.
const (
	CategorySessions = "sessions"
	CategoryErrors   = "errors"
	CategorySuccess  = "success"
	CategoryDebug    = "debug"
)

// Capturer is the slice of a browser session the manager needs.
type Capturer interface {
	ID() string
	Screenshot(ctx context.Context) ([]byte, error)
	Location(ctx context.Context) (string, error)
}

// Manager writes captures to disk and metadata to the store. A nil or
// disabled manager turns every call into a cheap no-op so callers can
// checkpoint unconditionally.
type Manager struct {
	log     *zap.Logger
	store   *store.Store
	dir     string
	enabled bool

	mu   sync.Mutex
	step int
}

// NewManager creates the category subdirectories up front.
func NewManager(logger *zap.Logger, st *store.Store, dir string, enabled bool) (*Manager, error) {
	if enabled {
		for _, cat := range []string{CategorySessions, CategoryErrors, CategorySuccess, CategoryDebug} {
			if err := os.MkdirAll(filepath.Join(dir, cat), 0o755); err != nil {
				return nil, fmt.Errorf("screenshot: failed to create %s dir: %w", cat, err)
			}
		}
	}
	return &Manager{
		log:     logger.Named("screenshot"),
		store:   st,
		dir:     dir,
		enabled: enabled,
	}, nil
}

// Enabled reports whether captures actually happen.
func (m *Manager) Enabled() bool {
	return m != nil && m.enabled
}

// Checkpoint captures under an auto-numbered action name such as
// "03_search_results". Numbering is per-manager and monotonic.
func (m *Manager) Checkpoint(ctx context.Context, sess Capturer, name string) (*store.ScreenshotRecord, error) {
	if !m.Enabled() {
		return nil, nil
	}
	m.mu.Lock()
	m.step++
	action := fmt.Sprintf("%02d_%s", m.step, name)
	m.mu.Unlock()
	return m.Capture(ctx, sess, action, CategorySessions, nil)
}

// CaptureError records a failure capture tagged with the triggering error.
// The capture itself failing is logged but never masks the original error.
func (m *Manager) CaptureError(ctx context.Context, sess Capturer, action string, cause error) {
	if !m.Enabled() {
		return
	}
	tags := []string{"error"}
	if _, err := m.capture(ctx, sess, action, CategoryErrors, tags, cause); err != nil {
		m.log.Warn("Error screenshot failed", zap.String("action", action), zap.Error(err))
	}
}

// Capture takes a screenshot, writes it under the category subdirectory
// and persists a metadata record.
func (m *Manager) Capture(ctx context.Context, sess Capturer, action, category string, tags []string) (*store.ScreenshotRecord, error) {
	if !m.Enabled() {
		return nil, nil
	}
	return m.capture(ctx, sess, action, category, tags, nil)
}

func (m *Manager) capture(ctx context.Context, sess Capturer, action, category string, tags []string, cause error) (*store.ScreenshotRecord, error) {
	now := time.Now()
	id := uuid.New().String()
	name := fmt.Sprintf("%s_%s_%s.png", now.Format("20060102_150405"), sanitizeAction(action), id[:8])
	path := filepath.Join(m.dir, category, name)

	rec := &store.ScreenshotRecord{
		ID:        id,
		SessionID: sess.ID(),
		FilePath:  path,
		Action:    action,
		Category:  category,
		TakenAt:   now.UTC(),
		Tags:      tags,
	}
	if cause != nil {
		rec.Error = cause.Error()
	}

	url, err := sess.Location(ctx)
	if err != nil {
		m.log.Debug("Could not read page URL for screenshot", zap.Error(err))
	}
	rec.URL = url

	data, err := sess.Screenshot(ctx)
	if err != nil {
		rec.Success = false
		if rec.Error == "" {
			rec.Error = err.Error()
		}
		if dbErr := m.store.InsertScreenshot(ctx, rec); dbErr != nil {
			m.log.Warn("Failed to record screenshot failure", zap.Error(dbErr))
		}
		return rec, fmt.Errorf("screenshot: capture %q failed: %w", action, err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, fmt.Errorf("screenshot: failed to write %s: %w", path, err)
	}
	sum := md5.Sum(data)
	rec.SizeBytes = int64(len(data))
	rec.MD5 = hex.EncodeToString(sum[:])
	rec.Success = cause == nil

	if err := m.store.InsertScreenshot(ctx, rec); err != nil {
		return nil, err
	}
	m.log.Debug("Screenshot captured",
		zap.String("action", action),
		zap.String("category", category),
		zap.String("path", path),
		zap.Int64("bytes", rec.SizeBytes))
	return rec, nil
}

// Stats proxies the store aggregation.
func (m *Manager) Stats(ctx context.Context) (*store.ScreenshotStats, error) {
	return m.store.Stats(ctx)
}

// CleanupOlderThan deletes captures (files and metadata) past the given
// age and returns how many files went away.
func (m *Manager) CleanupOlderThan(ctx context.Context, age time.Duration) (int, error) {
	cutoff := time.Now().UTC().Add(-age)
	paths, err := m.store.DeleteScreenshotsBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			m.log.Warn("Failed to delete old screenshot", zap.String("path", p), zap.Error(err))
			continue
		}
		removed++
	}
	if removed > 0 {
		m.log.Info("Removed old screenshots", zap.Int("count", removed))
	}
	return removed, nil
}

func sanitizeAction(action string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			return r
		default:
			return '_'
		}
	}, action)
}
