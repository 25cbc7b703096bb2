package browser

import (
	"context"
	"math/rand"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/EngThi/YT/api/schemas"
	"github.com/EngThi/YT/internal/config"
)

func testManager(t *testing.T) *Manager {
	t.Helper()
	cfg := &config.Config{}
	cfg.Browser.ProfileRoot = filepath.Join(t.TempDir(), "profiles")
	return &Manager{
		logger: zaptest.NewLogger(t),
		cfg:    cfg,
		persona: schemas.Persona{
			Name:       "test",
			Locale:     "pt-BR",
			ProfileDir: "context_test",
			Screen:     schemas.ScreenProperties{Width: 1280, Height: 800},
		},
		sessions: make(map[string]*Session),
	}
}

func TestGenerateAllocatorOptionsCreatesProfileDir(t *testing.T) {
	m := testManager(t)

	opts, err := m.generateAllocatorOptions()
	require.NoError(t, err)
	assert.NotEmpty(t, opts)

	info, err := os.Stat(filepath.Join(m.cfg.Browser.ProfileRoot, "context_test"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestGenerateAllocatorOptionsWithoutProfileDir(t *testing.T) {
	m := testManager(t)
	m.persona.ProfileDir = ""

	_, err := m.generateAllocatorOptions()
	require.NoError(t, err)

	entries, err := os.ReadDir(filepath.Dir(m.cfg.Browser.ProfileRoot))
	require.NoError(t, err)
	assert.Empty(t, entries, "no profile dir should be created for an ephemeral persona")
}

func TestNamedKeysCoverLoginFlow(t *testing.T) {
	for _, key := range []string{"Enter", "Backspace", "Tab", "Escape"} {
		def, ok := namedKeys[key]
		require.True(t, ok, "key %q must be mapped", key)
		assert.NotZero(t, def.vk)
	}
	assert.Equal(t, "\r", namedKeys["Enter"].text)
	assert.Empty(t, namedKeys["Backspace"].text, "backspace must not insert text")
}

func TestSessionSleepHonorsCallerContext(t *testing.T) {
	s := &Session{
		ctx:    context.Background(),
		logger: zaptest.NewLogger(t),
		rng:    rand.New(rand.NewSource(1)),
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := s.Sleep(ctx, time.Second)
	assert.ErrorIs(t, err, context.Canceled)

	start := time.Now()
	require.NoError(t, s.Sleep(context.Background(), 10*time.Millisecond))
	assert.GreaterOrEqual(t, time.Since(start), 10*time.Millisecond)
}

func TestSessionSleepHonorsTabContext(t *testing.T) {
	tabCtx, tabCancel := context.WithCancel(context.Background())
	s := &Session{
		ctx:    tabCtx,
		logger: zaptest.NewLogger(t),
		rng:    rand.New(rand.NewSource(1)),
	}
	tabCancel()

	err := s.Sleep(context.Background(), time.Second)
	assert.Error(t, err, "a dead tab must not keep sleepers alive")
}
