package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/cdproto/network"
	"go.uber.org/zap"

	"github.com/EngThi/YT/api/schemas"
)

// SessionRecord is the persisted description of one browsing session.
type SessionRecord struct {
	ID           string
	PersonaName  string
	UserAgent    string
	ViewportW    int64
	ViewportH    int64
	CreatedAt    time.Time
	LastAccessed time.Time
	LoginState   schemas.LoginState
	URLHistory   []string
	Tags         []string
}

func (s *Store) cookiePath(sessionID string) string {
	return filepath.Join(s.dataDir, "cookies", sessionID+".bin")
}

// SaveSession upserts the record and writes the encrypted cookie payload.
func (s *Store) SaveSession(ctx context.Context, rec *SessionRecord, cookies []*network.Cookie) error {
	if rec.ID == "" {
		return fmt.Errorf("store: session record needs an id")
	}
	now := time.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.LastAccessed = now

	history, err := json.Marshal(rec.URLHistory)
	if err != nil {
		return fmt.Errorf("store: failed to encode url history: %w", err)
	}
	tags, err := json.Marshal(rec.Tags)
	if err != nil {
		return fmt.Errorf("store: failed to encode tags: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, persona_name, user_agent, viewport_w, viewport_h, created_at, last_accessed, login_state, url_history, tags)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			persona_name = excluded.persona_name,
			user_agent = excluded.user_agent,
			viewport_w = excluded.viewport_w,
			viewport_h = excluded.viewport_h,
			last_accessed = excluded.last_accessed,
			login_state = excluded.login_state,
			url_history = excluded.url_history,
			tags = excluded.tags`,
		rec.ID, rec.PersonaName, rec.UserAgent, rec.ViewportW, rec.ViewportH,
		rec.CreatedAt, rec.LastAccessed, string(rec.LoginState), string(history), string(tags))
	if err != nil {
		return fmt.Errorf("store: failed to save session: %w", err)
	}

	if cookies != nil {
		payload, err := json.Marshal(cookies)
		if err != nil {
			return fmt.Errorf("store: failed to encode cookies: %w", err)
		}
		sealed, err := s.seal(payload)
		if err != nil {
			return err
		}
		if err := os.WriteFile(s.cookiePath(rec.ID), sealed, 0o600); err != nil {
			return fmt.Errorf("store: failed to write cookie payload: %w", err)
		}
	}

	s.log.Debug("Session saved", zap.String("session_id", rec.ID), zap.String("login_state", string(rec.LoginState)))
	return nil
}

// LoadSession returns the record and decrypted cookies. Sessions past the
// retention age return ErrSessionExpired.
func (s *Store) LoadSession(ctx context.Context, id string) (*SessionRecord, []*network.Cookie, error) {
	rec, err := s.scanSession(s.db.QueryRowContext(ctx, `
		SELECT id, persona_name, user_agent, viewport_w, viewport_h, created_at, last_accessed, login_state, url_history, tags
		FROM sessions WHERE id = ?`, id))
	if err != nil {
		return nil, nil, err
	}

	if s.maxAge > 0 && time.Since(rec.CreatedAt) > s.maxAge {
		return nil, nil, fmt.Errorf("%w: created %s", ErrSessionExpired, rec.CreatedAt.Format(time.RFC3339))
	}

	var cookies []*network.Cookie
	sealed, err := os.ReadFile(s.cookiePath(id))
	switch {
	case err == nil:
		payload, err := s.open(sealed)
		if err != nil {
			return nil, nil, err
		}
		if err := json.Unmarshal(payload, &cookies); err != nil {
			return nil, nil, fmt.Errorf("store: failed to decode cookies: %w", err)
		}
	case os.IsNotExist(err):
		// A session without cookies is still loadable.
	default:
		return nil, nil, fmt.Errorf("store: failed to read cookie payload: %w", err)
	}

	return rec, cookies, nil
}

// LatestSession returns the most recently accessed unexpired session that
// reached the logged-in state.
func (s *Store) LatestSession(ctx context.Context) (*SessionRecord, error) {
	cutoff := time.Now().UTC().Add(-s.maxAge)
	rec, err := s.scanSession(s.db.QueryRowContext(ctx, `
		SELECT id, persona_name, user_agent, viewport_w, viewport_h, created_at, last_accessed, login_state, url_history, tags
		FROM sessions
		WHERE login_state = ? AND created_at > ?
		ORDER BY last_accessed DESC LIMIT 1`,
		string(schemas.LoginLoggedIn), cutoff))
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// ListSessions returns all sessions, newest first.
func (s *Store) ListSessions(ctx context.Context) ([]*SessionRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, persona_name, user_agent, viewport_w, viewport_h, created_at, last_accessed, login_state, url_history, tags
		FROM sessions ORDER BY last_accessed DESC`)
	if err != nil {
		return nil, fmt.Errorf("store: failed to list sessions: %w", err)
	}
	defer rows.Close()

	var out []*SessionRecord
	for rows.Next() {
		rec, err := s.scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// TouchSession bumps the last-accessed timestamp.
func (s *Store) TouchSession(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET last_accessed = ? WHERE id = ?`, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("store: failed to touch session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// DeleteSession removes the record and its cookie payload.
func (s *Store) DeleteSession(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("store: failed to delete session: %w", err)
	}
	if err := os.Remove(s.cookiePath(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("store: failed to delete cookie payload: %w", err)
	}
	return nil
}

// PruneExpiredSessions deletes every session past the retention age and
// returns how many went away.
func (s *Store) PruneExpiredSessions(ctx context.Context) (int, error) {
	cutoff := time.Now().UTC().Add(-s.maxAge)
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM sessions WHERE created_at <= ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("store: failed to find expired sessions: %w", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, err
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	for _, id := range ids {
		if err := s.DeleteSession(ctx, id); err != nil {
			return 0, err
		}
	}
	if len(ids) > 0 {
		s.log.Info("Pruned expired sessions", zap.Int("count", len(ids)))
	}
	return len(ids), nil
}

// rowScanner covers both sql.Row and sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func (s *Store) scanSession(row rowScanner) (*SessionRecord, error) {
	var rec SessionRecord
	var loginState, history, tags string
	err := row.Scan(&rec.ID, &rec.PersonaName, &rec.UserAgent, &rec.ViewportW, &rec.ViewportH,
		&rec.CreatedAt, &rec.LastAccessed, &loginState, &history, &tags)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: failed to scan session: %w", err)
	}
	rec.LoginState = schemas.LoginState(loginState)
	if err := json.Unmarshal([]byte(history), &rec.URLHistory); err != nil {
		return nil, fmt.Errorf("store: corrupt url history for %s: %w", rec.ID, err)
	}
	if err := json.Unmarshal([]byte(tags), &rec.Tags); err != nil {
		return nil, fmt.Errorf("store: corrupt tags for %s: %w", rec.ID, err)
	}
	return &rec, nil
}
