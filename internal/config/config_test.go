package config

import (
	"sync"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultedConfig(t *testing.T) *Config {
	t.Helper()
	v := viper.New()
	SetDefaults(v)
	var cfg Config
	require.NoError(t, v.Unmarshal(&cfg))
	return &cfg
}

func TestDefaultsProduceValidConfig(t *testing.T) {
	cfg := defaultedConfig(t)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, "console", cfg.Logger.Format)
	assert.Equal(t, "data", cfg.Data.Dir)
	assert.Equal(t, 45*time.Second, cfg.Browser.NavigationTimeout)
	assert.Equal(t, 7*24*time.Hour, cfg.Session.MaxAge)
	assert.Equal(t, "hybrid", cfg.Login.Strategy)
	assert.True(t, cfg.Stealth.RotateProfiles)
	assert.True(t, cfg.Screenshot.Enabled)
	assert.Equal(t, 100, cfg.Retention.Screenshots.MaxCount)
	assert.InDelta(t, 0.3, cfg.Browse.TrendingProbability, 1e-9)
}

func TestDefaultsIncludeHumanoidTuning(t *testing.T) {
	cfg := defaultedConfig(t)
	assert.Greater(t, cfg.Browser.Humanoid.Omega, 0.0)
	assert.Greater(t, cfg.Browser.Humanoid.KeyDelayMaxMs, cfg.Browser.Humanoid.KeyDelayMinMs)
	assert.Greater(t, cfg.Browser.Humanoid.TypoRate, 0.0)
}

func TestValidateRejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"bad logger format", func(c *Config) { c.Logger.Format = "xml" }},
		{"bad login strategy", func(c *Config) { c.Login.Strategy = "bribe" }},
		{"zero navigation timeout", func(c *Config) { c.Browser.NavigationTimeout = 0 }},
		{"zero selector timeout", func(c *Config) { c.Browser.SelectorTimeout = 0 }},
		{"zero session age", func(c *Config) { c.Session.MaxAge = 0 }},
		{"trending out of range", func(c *Config) { c.Browse.TrendingProbability = 1.5 }},
		{"empty data dir", func(c *Config) { c.Data.Dir = "" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := defaultedConfig(t)
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestGetUninitializedPanics(t *testing.T) {
	instance = nil
	once = sync.Once{}
	assert.Panics(t, func() { Get() })
}

func TestLoadAndGet(t *testing.T) {
	instance = nil
	once = sync.Once{}

	v := viper.New()
	SetDefaults(v)
	v.Set("login.strategy", "automatic")

	require.NoError(t, Load(v))
	cfg := Get()
	assert.Equal(t, "automatic", cfg.Login.Strategy)

	// Load is once-only; later calls keep the first instance.
	v.Set("login.strategy", "manual_assisted")
	require.NoError(t, Load(v))
	assert.Equal(t, "automatic", Get().Login.Strategy)
}

func TestLoadInvalidConfig(t *testing.T) {
	instance = nil
	once = sync.Once{}

	v := viper.New()
	SetDefaults(v)
	v.Set("login.strategy", "bribe")

	assert.Error(t, Load(v))
}

func TestSetOverridesForTests(t *testing.T) {
	cfg := defaultedConfig(t)
	cfg.Data.Dir = "elsewhere"
	Set(cfg)
	assert.Equal(t, "elsewhere", Get().Data.Dir)
}
