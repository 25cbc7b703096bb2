package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// ScreenshotRecord is the metadata row accompanying one capture on disk.
type ScreenshotRecord struct {
	ID        string
	SessionID string
	FilePath  string
	URL       string
	Action    string
	Category  string
	TakenAt   time.Time
	SizeBytes int64
	MD5       string
	Success   bool
	Error     string
	Tags      []string
}

// ScreenshotStats aggregates the screenshot table for reporting.
type ScreenshotStats struct {
	Total      int64
	TotalBytes int64
	ByCategory map[string]int64
	Failed     int64
}

// InsertScreenshot records a capture.
func (s *Store) InsertScreenshot(ctx context.Context, rec *ScreenshotRecord) error {
	if rec.ID == "" {
		return fmt.Errorf("store: screenshot record needs an id")
	}
	if rec.TakenAt.IsZero() {
		rec.TakenAt = time.Now().UTC()
	}
	tags, err := json.Marshal(rec.Tags)
	if err != nil {
		return fmt.Errorf("store: failed to encode screenshot tags: %w", err)
	}

	success := 0
	if rec.Success {
		success = 1
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO screenshots (id, session_id, file_path, url, action, category, taken_at, size_bytes, md5, success, error, tags)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.SessionID, rec.FilePath, rec.URL, rec.Action, rec.Category,
		rec.TakenAt, rec.SizeBytes, rec.MD5, success, rec.Error, string(tags))
	if err != nil {
		return fmt.Errorf("store: failed to insert screenshot: %w", err)
	}
	return nil
}

// ListScreenshots returns the captures of a session, oldest first.
func (s *Store) ListScreenshots(ctx context.Context, sessionID string) ([]*ScreenshotRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, file_path, url, action, category, taken_at, size_bytes, md5, success, error, tags
		FROM screenshots WHERE session_id = ? ORDER BY taken_at ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("store: failed to list screenshots: %w", err)
	}
	defer rows.Close()

	var out []*ScreenshotRecord
	for rows.Next() {
		var rec ScreenshotRecord
		var success int
		var tags string
		err := rows.Scan(&rec.ID, &rec.SessionID, &rec.FilePath, &rec.URL, &rec.Action, &rec.Category,
			&rec.TakenAt, &rec.SizeBytes, &rec.MD5, &success, &rec.Error, &tags)
		if err != nil {
			return nil, fmt.Errorf("store: failed to scan screenshot: %w", err)
		}
		rec.Success = success == 1
		if err := json.Unmarshal([]byte(tags), &rec.Tags); err != nil {
			return nil, fmt.Errorf("store: corrupt screenshot tags for %s: %w", rec.ID, err)
		}
		out = append(out, &rec)
	}
	return out, rows.Err()
}

// Stats aggregates counts and sizes across all screenshots.
func (s *Store) Stats(ctx context.Context) (*ScreenshotStats, error) {
	stats := &ScreenshotStats{ByCategory: make(map[string]int64)}

	row := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(size_bytes), 0), COALESCE(SUM(CASE WHEN success = 0 THEN 1 ELSE 0 END), 0) FROM screenshots`)
	if err := row.Scan(&stats.Total, &stats.TotalBytes, &stats.Failed); err != nil {
		return nil, fmt.Errorf("store: failed to aggregate screenshots: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT category, COUNT(*) FROM screenshots GROUP BY category`)
	if err != nil {
		return nil, fmt.Errorf("store: failed to group screenshots: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var category string
		var count int64
		if err := rows.Scan(&category, &count); err != nil {
			return nil, err
		}
		stats.ByCategory[category] = count
	}
	return stats, rows.Err()
}

// DeleteScreenshotsBefore removes metadata rows older than the cutoff and
// returns the file paths of the removed rows so the caller can delete the
// files themselves.
func (s *Store) DeleteScreenshotsBefore(ctx context.Context, cutoff time.Time) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT file_path FROM screenshots WHERE taken_at < ?`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("store: failed to find old screenshots: %w", err)
	}
	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			rows.Close()
			return nil, err
		}
		paths = append(paths, p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM screenshots WHERE taken_at < ?`, cutoff); err != nil {
		return nil, fmt.Errorf("store: failed to delete old screenshots: %w", err)
	}
	if len(paths) > 0 {
		s.log.Debug("Deleted old screenshot metadata", zap.Int("count", len(paths)))
	}
	return paths, nil
}
