// Package retention trims screenshots, rotated logs and browser
// profiles against the static thresholds in config. One sweep can run
// ad hoc or on a schedule.
package retention

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/EngThi/YT/internal/config"
	"github.com/EngThi/YT/internal/screenshot"
)

// Result reports what a sweep removed (or, in dry-run, would remove).
type Result struct {
	ScreenshotsRemoved int
	LogsRemoved        int
	ProfilesRemoved    int
	BytesReclaimed     int64
	DryRun             bool
}

// Cleaner enforces the retention thresholds.
type Cleaner struct {
	log         *zap.Logger
	cfg         config.RetentionConfig
	shots       *screenshot.Manager
	shotDir     string
	logFile     string
	profileRoot string
	dryRun      bool
}

// NewCleaner wires a sweep against the configured directories. shots
// may be nil when screenshot metadata is not managed (dry runs still
// count files).
func NewCleaner(logger *zap.Logger, cfg *config.Config, shots *screenshot.Manager, dryRun bool) *Cleaner {
	return &Cleaner{
		log:         logger.Named("retention"),
		cfg:         cfg.Retention,
		shots:       shots,
		shotDir:     cfg.Screenshot.Dir,
		logFile:     cfg.Logger.LogFile,
		profileRoot: cfg.Browser.ProfileRoot,
		dryRun:      dryRun,
	}
}

// Run performs one sweep across all three concerns. Partial failures
// are logged and the sweep continues; only setup-level errors abort.
func (c *Cleaner) Run(ctx context.Context) (*Result, error) {
	res := &Result{DryRun: c.dryRun}

	if err := c.sweepScreenshots(ctx, res); err != nil {
		c.log.Warn("Screenshot sweep failed", zap.Error(err))
	}
	if err := c.sweepLogs(res); err != nil {
		c.log.Warn("Log sweep failed", zap.Error(err))
	}
	if err := c.sweepProfiles(res); err != nil {
		c.log.Warn("Profile sweep failed", zap.Error(err))
	}

	c.log.Info("Retention sweep finished",
		zap.Bool("dry_run", res.DryRun),
		zap.Int("screenshots", res.ScreenshotsRemoved),
		zap.Int("logs", res.LogsRemoved),
		zap.Int("profiles", res.ProfilesRemoved),
		zap.Int64("bytes_reclaimed", res.BytesReclaimed))
	return res, nil
}

type agedFile struct {
	path    string
	modTime time.Time
	size    int64
}

// sweepScreenshots removes captures past the age threshold, then the
// oldest ones beyond the count threshold.
func (c *Cleaner) sweepScreenshots(ctx context.Context, res *Result) error {
	files, err := collectFiles(c.shotDir, func(name string) bool {
		return strings.HasSuffix(name, ".png")
	})
	if err != nil {
		return err
	}

	cutoff := time.Now().Add(-time.Duration(c.cfg.Screenshots.MaxAgeDays) * 24 * time.Hour)
	var doomed []agedFile
	var kept []agedFile
	for _, f := range files {
		if c.cfg.Screenshots.MaxAgeDays > 0 && f.modTime.Before(cutoff) {
			doomed = append(doomed, f)
		} else {
			kept = append(kept, f)
		}
	}

	// Oldest first beyond the count cap.
	if max := c.cfg.Screenshots.MaxCount; max > 0 && len(kept) > max {
		sort.Slice(kept, func(i, j int) bool { return kept[i].modTime.Before(kept[j].modTime) })
		doomed = append(doomed, kept[:len(kept)-max]...)
	}

	for _, f := range doomed {
		if c.remove(f, &res.BytesReclaimed) {
			res.ScreenshotsRemoved++
		}
	}

	// Keep the metadata table in step with the age threshold.
	if !c.dryRun && c.shots != nil && c.cfg.Screenshots.MaxAgeDays > 0 {
		age := time.Duration(c.cfg.Screenshots.MaxAgeDays) * 24 * time.Hour
		if _, err := c.shots.CleanupOlderThan(ctx, age); err != nil {
			c.log.Warn("Screenshot metadata cleanup failed", zap.Error(err))
		}
	}
	return nil
}

// sweepLogs deletes rotated log files past the age threshold, then the
// oldest until the total size fits. The active log file is never
// touched.
func (c *Cleaner) sweepLogs(res *Result) error {
	dir := filepath.Dir(c.logFile)
	active := filepath.Base(c.logFile)

	files, err := collectFiles(dir, func(name string) bool {
		if name == active {
			return false
		}
		return strings.Contains(name, ".log")
	})
	if err != nil {
		return err
	}

	cutoff := time.Now().Add(-time.Duration(c.cfg.Logs.MaxAgeDays) * 24 * time.Hour)
	var kept []agedFile
	for _, f := range files {
		if c.cfg.Logs.MaxAgeDays > 0 && f.modTime.Before(cutoff) {
			if c.remove(f, &res.BytesReclaimed) {
				res.LogsRemoved++
			}
			continue
		}
		kept = append(kept, f)
	}

	maxBytes := int64(c.cfg.Logs.MaxTotalMB) * 1024 * 1024
	if maxBytes <= 0 {
		return nil
	}
	var total int64
	for _, f := range kept {
		total += f.size
	}
	sort.Slice(kept, func(i, j int) bool { return kept[i].modTime.Before(kept[j].modTime) })
	for _, f := range kept {
		if total <= maxBytes {
			break
		}
		if c.remove(f, &res.BytesReclaimed) {
			res.LogsRemoved++
			total -= f.size
		}
	}
	return nil
}

// sweepProfiles removes the oldest-modified profile directories until
// the root fits under the size threshold.
func (c *Cleaner) sweepProfiles(res *Result) error {
	maxBytes := int64(c.cfg.Profiles.MaxTotalMB) * 1024 * 1024
	if maxBytes <= 0 {
		return nil
	}

	entries, err := os.ReadDir(c.profileRoot)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("retention: failed to read profile root: %w", err)
	}

	type profileDir struct {
		path    string
		modTime time.Time
		size    int64
	}
	var dirs []profileDir
	var total int64
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		path := filepath.Join(c.profileRoot, e.Name())
		size := dirSize(path)
		info, err := e.Info()
		if err != nil {
			continue
		}
		dirs = append(dirs, profileDir{path: path, modTime: info.ModTime(), size: size})
		total += size
	}

	sort.Slice(dirs, func(i, j int) bool { return dirs[i].modTime.Before(dirs[j].modTime) })
	for _, d := range dirs {
		if total <= maxBytes {
			break
		}
		if c.dryRun {
			c.log.Info("Would remove profile dir", zap.String("path", d.path), zap.Int64("bytes", d.size))
		} else if err := os.RemoveAll(d.path); err != nil {
			c.log.Warn("Failed to remove profile dir", zap.String("path", d.path), zap.Error(err))
			continue
		}
		res.ProfilesRemoved++
		res.BytesReclaimed += d.size
		total -= d.size
	}
	return nil
}

// remove deletes one file unless dry-running. Either way the result
// counts it.
func (c *Cleaner) remove(f agedFile, reclaimed *int64) bool {
	if c.dryRun {
		c.log.Info("Would remove", zap.String("path", f.path), zap.Int64("bytes", f.size))
		*reclaimed += f.size
		return true
	}
	if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
		c.log.Warn("Failed to remove file", zap.String("path", f.path), zap.Error(err))
		return false
	}
	*reclaimed += f.size
	return true
}

func collectFiles(root string, match func(name string) bool) ([]agedFile, error) {
	var out []agedFile
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if d.IsDir() || !match(d.Name()) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		out = append(out, agedFile{path: path, modTime: info.ModTime(), size: info.Size()})
		return nil
	})
	if os.IsNotExist(err) {
		return nil, nil
	}
	return out, err
}

func dirSize(root string) int64 {
	var total int64
	filepath.WalkDir(root, func(_ string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if info, err := d.Info(); err == nil {
			total += info.Size()
		}
		return nil
	})
	return total
}
