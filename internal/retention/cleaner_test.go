package retention

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/EngThi/YT/internal/config"
)

func writeAged(t *testing.T, path string, size int, age time.Duration) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, make([]byte, size), 0o644))
	stamp := time.Now().Add(-age)
	require.NoError(t, os.Chtimes(path, stamp, stamp))
}

func testCleanerConfig(t *testing.T) *config.Config {
	t.Helper()
	root := t.TempDir()
	cfg := &config.Config{}
	cfg.Screenshot.Dir = filepath.Join(root, "screenshots")
	cfg.Logger.LogFile = filepath.Join(root, "logs", "yt.log")
	cfg.Browser.ProfileRoot = filepath.Join(root, "browser_profiles")
	cfg.Retention = config.RetentionConfig{
		Screenshots: config.ScreenshotRetention{MaxCount: 2, MaxAgeDays: 7},
		Logs:        config.LogRetention{MaxAgeDays: 7, MaxTotalMB: 1},
		Profiles:    config.ProfileRetention{MaxTotalMB: 1},
	}
	return cfg
}

func TestSweepScreenshotsByAgeAndCount(t *testing.T) {
	cfg := testCleanerConfig(t)
	dir := cfg.Screenshot.Dir

	writeAged(t, filepath.Join(dir, "sessions", "ancient.png"), 10, 30*24*time.Hour)
	writeAged(t, filepath.Join(dir, "sessions", "old1.png"), 10, 3*24*time.Hour)
	writeAged(t, filepath.Join(dir, "sessions", "old2.png"), 10, 2*24*time.Hour)
	writeAged(t, filepath.Join(dir, "sessions", "fresh.png"), 10, time.Hour)
	writeAged(t, filepath.Join(dir, "sessions", "notes.txt"), 10, 30*24*time.Hour)

	c := NewCleaner(zaptest.NewLogger(t), cfg, nil, false)
	res, err := c.Run(context.Background())
	require.NoError(t, err)

	// ancient by age, old1 by count cap of 2.
	assert.Equal(t, 2, res.ScreenshotsRemoved)
	assert.NoFileExists(t, filepath.Join(dir, "sessions", "ancient.png"))
	assert.NoFileExists(t, filepath.Join(dir, "sessions", "old1.png"))
	assert.FileExists(t, filepath.Join(dir, "sessions", "old2.png"))
	assert.FileExists(t, filepath.Join(dir, "sessions", "fresh.png"))
	assert.FileExists(t, filepath.Join(dir, "sessions", "notes.txt"), "non-png files are untouched")
}

func TestSweepLogsKeepsActiveFile(t *testing.T) {
	cfg := testCleanerConfig(t)
	logDir := filepath.Dir(cfg.Logger.LogFile)

	writeAged(t, cfg.Logger.LogFile, 100, 30*24*time.Hour)
	writeAged(t, filepath.Join(logDir, "yt-2026-07-01.log.gz"), 100, 30*24*time.Hour)
	writeAged(t, filepath.Join(logDir, "yt-2026-08-20.log"), 100, 2*24*time.Hour)

	c := NewCleaner(zaptest.NewLogger(t), cfg, nil, false)
	res, err := c.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, res.LogsRemoved)
	assert.FileExists(t, cfg.Logger.LogFile, "active log survives any age")
	assert.NoFileExists(t, filepath.Join(logDir, "yt-2026-07-01.log.gz"))
	assert.FileExists(t, filepath.Join(logDir, "yt-2026-08-20.log"))
}

func TestSweepLogsBySize(t *testing.T) {
	cfg := testCleanerConfig(t)
	cfg.Retention.Logs.MaxAgeDays = 0
	cfg.Retention.Logs.MaxTotalMB = 1
	logDir := filepath.Dir(cfg.Logger.LogFile)

	// Two rotated files of 700KB each exceed the 1MB cap; the older one
	// goes first and brings the total back under.
	writeAged(t, filepath.Join(logDir, "yt-2026-08-01.log"), 700*1024, 48*time.Hour)
	writeAged(t, filepath.Join(logDir, "yt-2026-08-15.log"), 700*1024, 24*time.Hour)

	c := NewCleaner(zaptest.NewLogger(t), cfg, nil, false)
	res, err := c.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, res.LogsRemoved)
	assert.NoFileExists(t, filepath.Join(logDir, "yt-2026-08-01.log"))
	assert.FileExists(t, filepath.Join(logDir, "yt-2026-08-15.log"))
}

func TestSweepProfilesOldestFirst(t *testing.T) {
	cfg := testCleanerConfig(t)
	root := cfg.Browser.ProfileRoot

	writeAged(t, filepath.Join(root, "context_old", "Default", "Cookies"), 700*1024, 72*time.Hour)
	writeAged(t, filepath.Join(root, "context_new", "Default", "Cookies"), 700*1024, time.Hour)
	oldStamp := time.Now().Add(-72 * time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(root, "context_old"), oldStamp, oldStamp))

	c := NewCleaner(zaptest.NewLogger(t), cfg, nil, false)
	res, err := c.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, res.ProfilesRemoved)
	assert.NoDirExists(t, filepath.Join(root, "context_old"))
	assert.DirExists(t, filepath.Join(root, "context_new"))
	assert.Greater(t, res.BytesReclaimed, int64(0))
}

func TestDryRunRemovesNothing(t *testing.T) {
	cfg := testCleanerConfig(t)
	dir := cfg.Screenshot.Dir
	writeAged(t, filepath.Join(dir, "sessions", "ancient.png"), 10, 30*24*time.Hour)

	c := NewCleaner(zaptest.NewLogger(t), cfg, nil, true)
	res, err := c.Run(context.Background())
	require.NoError(t, err)

	assert.True(t, res.DryRun)
	assert.Equal(t, 1, res.ScreenshotsRemoved)
	assert.FileExists(t, filepath.Join(dir, "sessions", "ancient.png"))
}

func TestRunOnMissingDirectories(t *testing.T) {
	cfg := testCleanerConfig(t)
	// None of the directories exist yet; a sweep must still succeed.
	c := NewCleaner(zaptest.NewLogger(t), cfg, nil, false)
	res, err := c.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, res.ScreenshotsRemoved)
	assert.Zero(t, res.LogsRemoved)
	assert.Zero(t, res.ProfilesRemoved)
}
