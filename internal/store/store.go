// Package store persists sessions and screenshot metadata in a local
// sqlite database. Cookie payloads are sealed with secretbox and kept as
// files next to the database.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

var (
	// ErrSessionNotFound reports a lookup for an id the store never saw
	// or already deleted.
	ErrSessionNotFound = errors.New("store: session not found")
	// ErrSessionExpired reports a session past the retention age. Loads
	// fail soft on it so callers fall back to a fresh login.
	ErrSessionExpired = errors.New("store: session expired")
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id            TEXT PRIMARY KEY,
	persona_name  TEXT NOT NULL,
	user_agent    TEXT NOT NULL,
	viewport_w    INTEGER NOT NULL,
	viewport_h    INTEGER NOT NULL,
	created_at    TIMESTAMP NOT NULL,
	last_accessed TIMESTAMP NOT NULL,
	login_state   TEXT NOT NULL,
	url_history   TEXT NOT NULL DEFAULT '[]',
	tags          TEXT NOT NULL DEFAULT '[]'
);
CREATE TABLE IF NOT EXISTS screenshots (
	id         TEXT PRIMARY KEY,
	session_id TEXT NOT NULL,
	file_path  TEXT NOT NULL,
	url        TEXT NOT NULL,
	action     TEXT NOT NULL,
	category   TEXT NOT NULL,
	taken_at   TIMESTAMP NOT NULL,
	size_bytes INTEGER NOT NULL,
	md5        TEXT NOT NULL,
	success    INTEGER NOT NULL DEFAULT 1,
	error      TEXT NOT NULL DEFAULT '',
	tags       TEXT NOT NULL DEFAULT '[]'
);
CREATE INDEX IF NOT EXISTS idx_screenshots_session ON screenshots(session_id);
CREATE INDEX IF NOT EXISTS idx_screenshots_taken_at ON screenshots(taken_at);
`

// Store wraps the database, the payload encryption key and the session
// retention policy.
type Store struct {
	db      *sql.DB
	log     *zap.Logger
	dataDir string
	key     [32]byte
	maxAge  time.Duration
}

// Open creates the data directory, opens (or creates) the database,
// bootstraps the schema and loads the encryption key.
func Open(dataDir string, maxAge time.Duration, logger *zap.Logger) (*Store, error) {
	if err := os.MkdirAll(filepath.Join(dataDir, "cookies"), 0o700); err != nil {
		return nil, fmt.Errorf("store: failed to create data dir: %w", err)
	}

	dbPath := filepath.Join(dataDir, "yt.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("store: failed to open database: %w", err)
	}
	// sqlite handles one writer; keep the pool honest about it.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: schema bootstrap failed: %w", err)
	}

	s := &Store{
		db:      db,
		log:     logger.Named("store"),
		dataDir: dataDir,
		maxAge:  maxAge,
	}
	if err := s.loadOrCreateKey(); err != nil {
		db.Close()
		return nil, err
	}

	s.log.Debug("Store opened", zap.String("path", dbPath))
	return s, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
