package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/EngThi/YT/api/schemas"
)

func newTestStore(t *testing.T, maxAge time.Duration) *Store {
	t.Helper()
	s, err := Open(t.TempDir(), maxAge, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSessionRoundTrip(t *testing.T) {
	s := newTestStore(t, 7*24*time.Hour)
	ctx := context.Background()

	cookies := []*network.Cookie{
		{Name: "SID", Value: "abc123", Domain: ".youtube.com", Path: "/", Secure: true, HTTPOnly: true},
		{Name: "PREF", Value: "hl=pt-BR", Domain: ".youtube.com", Path: "/"},
	}
	rec := &SessionRecord{
		ID:          uuid.New().String(),
		PersonaName: "win11-desktop",
		UserAgent:   "Mozilla/5.0 test",
		ViewportW:   1920,
		ViewportH:   1080,
		LoginState:  schemas.LoginLoggedIn,
		URLHistory:  []string{"https://www.youtube.com/"},
		Tags:        []string{"test"},
	}
	require.NoError(t, s.SaveSession(ctx, rec, cookies))

	got, gotCookies, err := s.LoadSession(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.PersonaName, got.PersonaName)
	assert.Equal(t, schemas.LoginLoggedIn, got.LoginState)
	assert.Equal(t, rec.URLHistory, got.URLHistory)
	require.Len(t, gotCookies, 2)
	assert.Equal(t, "SID", gotCookies[0].Name)
	assert.Equal(t, "abc123", gotCookies[0].Value)
}

func TestCookiePayloadIsEncryptedOnDisk(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir, time.Hour, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer s.Close()
	ctx := context.Background()

	rec := &SessionRecord{ID: uuid.New().String(), PersonaName: "p", UserAgent: "ua", LoginState: schemas.LoginLoggedIn}
	cookies := []*network.Cookie{{Name: "SID", Value: "topsecretvalue", Domain: ".youtube.com"}}
	require.NoError(t, s.SaveSession(ctx, rec, cookies))

	raw, err := os.ReadFile(filepath.Join(dir, "cookies", rec.ID+".bin"))
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "topsecretvalue")
}

func TestLoadSessionNotFound(t *testing.T) {
	s := newTestStore(t, time.Hour)
	_, _, err := s.LoadSession(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestLoadSessionExpired(t *testing.T) {
	s := newTestStore(t, time.Hour)
	ctx := context.Background()

	rec := &SessionRecord{
		ID:          uuid.New().String(),
		PersonaName: "p",
		UserAgent:   "ua",
		LoginState:  schemas.LoginLoggedIn,
		CreatedAt:   time.Now().UTC().Add(-2 * time.Hour),
	}
	require.NoError(t, s.SaveSession(ctx, rec, nil))

	_, _, err := s.LoadSession(ctx, rec.ID)
	assert.ErrorIs(t, err, ErrSessionExpired)
}

func TestLatestSessionSkipsNotLoggedIn(t *testing.T) {
	s := newTestStore(t, 24*time.Hour)
	ctx := context.Background()

	failed := &SessionRecord{ID: "a", PersonaName: "p", UserAgent: "ua", LoginState: schemas.LoginFailed}
	require.NoError(t, s.SaveSession(ctx, failed, nil))

	_, err := s.LatestSession(ctx)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	ok := &SessionRecord{ID: "b", PersonaName: "p", UserAgent: "ua", LoginState: schemas.LoginLoggedIn}
	require.NoError(t, s.SaveSession(ctx, ok, nil))

	got, err := s.LatestSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, "b", got.ID)
}

func TestPruneExpiredSessions(t *testing.T) {
	s := newTestStore(t, time.Hour)
	ctx := context.Background()

	old := &SessionRecord{
		ID: "old", PersonaName: "p", UserAgent: "ua",
		LoginState: schemas.LoginLoggedIn,
		CreatedAt:  time.Now().UTC().Add(-48 * time.Hour),
	}
	fresh := &SessionRecord{ID: "fresh", PersonaName: "p", UserAgent: "ua", LoginState: schemas.LoginLoggedIn}
	require.NoError(t, s.SaveSession(ctx, old, []*network.Cookie{{Name: "x", Value: "y"}}))
	require.NoError(t, s.SaveSession(ctx, fresh, nil))

	n, err := s.PruneExpiredSessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	sessions, err := s.ListSessions(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "fresh", sessions[0].ID)

	// The cookie payload follows the record.
	_, err = os.Stat(s.cookiePath("old"))
	assert.True(t, os.IsNotExist(err))
}

func TestScreenshotRecordsAndStats(t *testing.T) {
	s := newTestStore(t, time.Hour)
	ctx := context.Background()

	now := time.Now().UTC()
	records := []*ScreenshotRecord{
		{ID: "1", SessionID: "s1", FilePath: "/tmp/a.png", URL: "u", Action: "homepage", Category: "sessions", TakenAt: now.Add(-48 * time.Hour), SizeBytes: 100, MD5: "m1", Success: true},
		{ID: "2", SessionID: "s1", FilePath: "/tmp/b.png", URL: "u", Action: "login_error", Category: "errors", TakenAt: now, SizeBytes: 200, MD5: "m2", Success: false, Error: "boom"},
		{ID: "3", SessionID: "s2", FilePath: "/tmp/c.png", URL: "u", Action: "search", Category: "sessions", TakenAt: now, SizeBytes: 300, MD5: "m3", Success: true},
	}
	for _, r := range records {
		require.NoError(t, s.InsertScreenshot(ctx, r))
	}

	list, err := s.ListScreenshots(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "1", list[0].ID, "oldest first")

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, stats.Total)
	assert.EqualValues(t, 600, stats.TotalBytes)
	assert.EqualValues(t, 1, stats.Failed)
	assert.EqualValues(t, 2, stats.ByCategory["sessions"])

	paths, err := s.DeleteScreenshotsBefore(ctx, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, []string{"/tmp/a.png"}, paths)

	stats, err = s.Stats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, stats.Total)
}

func TestSealOpenRoundTrip(t *testing.T) {
	s := newTestStore(t, time.Hour)

	sealed, err := s.seal([]byte("payload"))
	require.NoError(t, err)
	assert.NotContains(t, string(sealed), "payload")

	opened, err := s.open(sealed)
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), opened)

	_, err = s.open([]byte("short"))
	assert.Error(t, err)

	sealed[len(sealed)-1] ^= 0xff
	_, err = s.open(sealed)
	assert.Error(t, err)
}

func TestKeyPersistsAcrossOpens(t *testing.T) {
	dir := t.TempDir()
	logger := zaptest.NewLogger(t)

	s1, err := Open(dir, time.Hour, logger)
	require.NoError(t, err)
	sealed, err := s1.seal([]byte("across"))
	require.NoError(t, err)
	require.NoError(t, s1.Close())

	s2, err := Open(dir, time.Hour, logger)
	require.NoError(t, err)
	defer s2.Close()
	opened, err := s2.open(sealed)
	require.NoError(t, err)
	assert.Equal(t, []byte("across"), opened)
}
