package screenshot

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/EngThi/YT/internal/store"
)

type fakePage struct {
	id    string
	url   string
	data  []byte
	err   error
	calls int
}

func (f *fakePage) ID() string { return f.id }

func (f *fakePage) Screenshot(context.Context) ([]byte, error) {
	f.calls++
	return f.data, f.err
}

func (f *fakePage) Location(context.Context) (string, error) { return f.url, nil }

func newTestManager(t *testing.T) (*Manager, *store.Store, string) {
	t.Helper()
	logger := zaptest.NewLogger(t)
	st, err := store.Open(t.TempDir(), time.Hour, logger)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	dir := t.TempDir()
	m, err := NewManager(logger, st, dir, true)
	require.NoError(t, err)
	return m, st, dir
}

func TestNewManagerCreatesCategoryDirs(t *testing.T) {
	_, _, dir := newTestManager(t)
	for _, cat := range []string{"sessions", "errors", "success", "debug"} {
		info, err := os.Stat(filepath.Join(dir, cat))
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}

func TestCaptureWritesFileAndMetadata(t *testing.T) {
	m, st, dir := newTestManager(t)
	page := &fakePage{id: "sess-1", url: "https://www.youtube.com/", data: []byte("png-bytes")}

	rec, err := m.Capture(context.Background(), page, "homepage", CategorySessions, []string{"smoke"})
	require.NoError(t, err)
	require.NotNil(t, rec)

	assert.True(t, rec.Success)
	assert.Equal(t, "https://www.youtube.com/", rec.URL)
	assert.EqualValues(t, len("png-bytes"), rec.SizeBytes)
	assert.Len(t, rec.MD5, 32)
	assert.True(t, strings.HasPrefix(rec.FilePath, filepath.Join(dir, "sessions")))
	assert.True(t, strings.HasSuffix(rec.FilePath, ".png"))

	data, err := os.ReadFile(rec.FilePath)
	require.NoError(t, err)
	assert.Equal(t, []byte("png-bytes"), data)

	list, err := st.ListScreenshots(context.Background(), "sess-1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, rec.ID, list[0].ID)
}

func TestCheckpointNumbersActions(t *testing.T) {
	m, _, _ := newTestManager(t)
	page := &fakePage{id: "s", url: "u", data: []byte("x")}

	first, err := m.Checkpoint(context.Background(), page, "initialized")
	require.NoError(t, err)
	second, err := m.Checkpoint(context.Background(), page, "homepage")
	require.NoError(t, err)

	assert.Equal(t, "01_initialized", first.Action)
	assert.Equal(t, "02_homepage", second.Action)
}

func TestCaptureFailureIsRecorded(t *testing.T) {
	m, st, _ := newTestManager(t)
	page := &fakePage{id: "s", err: errors.New("tab gone")}

	rec, err := m.Capture(context.Background(), page, "homepage", CategoryDebug, nil)
	require.Error(t, err)
	require.NotNil(t, rec)
	assert.False(t, rec.Success)
	assert.Contains(t, rec.Error, "tab gone")

	list, err := st.ListScreenshots(context.Background(), "s")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.False(t, list[0].Success)
}

func TestCaptureErrorNeverPanicsOnFailure(t *testing.T) {
	m, _, _ := newTestManager(t)
	page := &fakePage{id: "s", err: errors.New("tab gone")}
	m.CaptureError(context.Background(), page, "login_failed", errors.New("bad password"))
	assert.Equal(t, 1, page.calls)
}

func TestDisabledManagerIsNoop(t *testing.T) {
	logger := zaptest.NewLogger(t)
	st, err := store.Open(t.TempDir(), time.Hour, logger)
	require.NoError(t, err)
	defer st.Close()

	m, err := NewManager(logger, st, t.TempDir(), false)
	require.NoError(t, err)

	page := &fakePage{id: "s", data: []byte("x")}
	rec, err := m.Capture(context.Background(), page, "homepage", CategorySessions, nil)
	require.NoError(t, err)
	assert.Nil(t, rec)
	assert.Zero(t, page.calls)

	var nilMgr *Manager
	assert.False(t, nilMgr.Enabled())
}

func TestCleanupOlderThan(t *testing.T) {
	m, st, dir := newTestManager(t)
	ctx := context.Background()

	oldPath := filepath.Join(dir, "sessions", "old.png")
	require.NoError(t, os.WriteFile(oldPath, []byte("old"), 0o644))
	require.NoError(t, st.InsertScreenshot(ctx, &store.ScreenshotRecord{
		ID: "old", SessionID: "s", FilePath: oldPath, Category: CategorySessions,
		Action: "homepage", TakenAt: time.Now().UTC().Add(-72 * time.Hour), Success: true,
	}))
	page := &fakePage{id: "s", url: "u", data: []byte("fresh")}
	fresh, err := m.Capture(ctx, page, "homepage", CategorySessions, nil)
	require.NoError(t, err)

	removed, err := m.CleanupOlderThan(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = os.Stat(oldPath)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(fresh.FilePath)
	assert.NoError(t, err)
}

func TestSanitizeAction(t *testing.T) {
	assert.Equal(t, "search_results", sanitizeAction("search results"))
	assert.Equal(t, "03_login-done", sanitizeAction("03_login-done"))
	assert.Equal(t, "a_b_c", sanitizeAction("a/b\\c"))
}
