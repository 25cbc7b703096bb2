// The application's root configuration tree, loaded once through Viper and
// shared as a singleton.
package config

import (
	"fmt"
	"sync"
	"time"

	"github.com/spf13/viper"

	"github.com/EngThi/YT/internal/humanoid"
)

var (
	instance *Config
	once     sync.Once
)

// Config is the root configuration structure for the entire application.
type Config struct {
	Logger     LoggerConfig     `mapstructure:"logger"`
	Data       DataConfig       `mapstructure:"data"`
	Browser    BrowserConfig    `mapstructure:"browser"`
	Stealth    StealthConfig    `mapstructure:"stealth"`
	Session    SessionConfig    `mapstructure:"session"`
	Screenshot ScreenshotConfig `mapstructure:"screenshot"`
	Retention  RetentionConfig  `mapstructure:"retention"`
	Login      LoginConfig      `mapstructure:"login"`
	Browse     BrowseConfig     `mapstructure:"browse"`
}

// ColorConfig defines the color settings for different log levels.
// These are used for console output to make logs more readable.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" json:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" json:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" json:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" json:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" json:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" json:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" json:"fatal" yaml:"fatal"`
}

// LoggerConfig holds all the configuration for the logger.
// This is the single source of truth for this struct.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" json:"level" yaml:"level"`
	Format      string      `mapstructure:"format" json:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" json:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" json:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" json:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" json:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" json:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" json:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" json:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" json:"colors" yaml:"colors"`
}

// DataConfig locates everything the tool persists between runs.
type DataConfig struct {
	// Dir is the root of all local state: the session database, the
	// encryption key file and the encrypted cookie payloads.
	Dir string `mapstructure:"dir"`
}

// BrowserConfig holds settings for the Chromium instance under control.
type BrowserConfig struct {
	Headless bool `mapstructure:"headless"`
	// ExecPath overrides chromedp's browser auto-detection when set.
	ExecPath string `mapstructure:"exec_path"`
	// Args are appended to the built-in stealth launch flags.
	Args []string `mapstructure:"args"`
	// ProfileRoot is where per-persona profile directories live.
	ProfileRoot       string          `mapstructure:"profile_root"`
	NavigationTimeout time.Duration   `mapstructure:"navigation_timeout"`
	// SelectorTimeout bounds each attempt in a selector fallback list.
	SelectorTimeout time.Duration   `mapstructure:"selector_timeout"`
	Humanoid        humanoid.Config `mapstructure:"humanoid"`
}

// StealthConfig selects and rotates the spoofed browser persona.
type StealthConfig struct {
	// Persona pins a named fingerprint from the catalog. Empty means
	// rotate through the catalog round-robin across runs.
	Persona string `mapstructure:"persona"`
	// RotateProfiles pairs each persona with its own profile directory.
	RotateProfiles bool `mapstructure:"rotate_profiles"`
}

// SessionConfig governs persisted login sessions.
type SessionConfig struct {
	// MaxAge is how long a saved session stays restorable.
	MaxAge time.Duration `mapstructure:"max_age"`
}

// ScreenshotConfig governs checkpoint captures.
type ScreenshotConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Dir     string `mapstructure:"dir"`
	// Quality applies to full-page JPEG captures; checkpoint PNGs ignore it.
	Quality int `mapstructure:"quality"`
}

// RetentionConfig holds the static thresholds the cleaner enforces.
type RetentionConfig struct {
	Screenshots ScreenshotRetention `mapstructure:"screenshots"`
	Logs        LogRetention        `mapstructure:"logs"`
	Profiles    ProfileRetention    `mapstructure:"profiles"`
}

type ScreenshotRetention struct {
	MaxCount   int `mapstructure:"max_count"`
	MaxAgeDays int `mapstructure:"max_age_days"`
}

type LogRetention struct {
	MaxAgeDays int `mapstructure:"max_age_days"`
	MaxTotalMB int `mapstructure:"max_total_mb"`
}

type ProfileRetention struct {
	MaxTotalMB int `mapstructure:"max_total_mb"`
}

// LoginConfig tunes the login flows.
type LoginConfig struct {
	// Strategy is one of session_restore, automatic, manual_assisted, hybrid.
	Strategy string `mapstructure:"strategy"`
	// ManualTimeout bounds how long the assisted flow waits for the user
	// to finish signing in.
	ManualTimeout time.Duration `mapstructure:"manual_timeout"`
	// StepTimeout bounds each individual form step (email, password, 2FA).
	StepTimeout time.Duration `mapstructure:"step_timeout"`
}

// BrowseConfig tunes the exploration behavior after login.
type BrowseConfig struct {
	// ExploreFor is the target duration of the idle browse phase.
	ExploreFor time.Duration `mapstructure:"explore_for"`
	// TrendingProbability is the chance of a detour to the trending page.
	TrendingProbability float64 `mapstructure:"trending_probability"`
	MaxSearchResults    int     `mapstructure:"max_search_results"`
}

// SetDefaults registers every default so the tool runs with no config file.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.service_name", "yt")
	v.SetDefault("logger.log_file", "logs/yt.log")
	v.SetDefault("logger.max_size", 10)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 7)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")
	v.SetDefault("logger.colors.dpanic", "magenta")
	v.SetDefault("logger.colors.panic", "magenta")
	v.SetDefault("logger.colors.fatal", "magenta")

	v.SetDefault("data.dir", "data")

	v.SetDefault("browser.headless", false)
	v.SetDefault("browser.profile_root", "browser_profiles")
	v.SetDefault("browser.navigation_timeout", 45*time.Second)
	v.SetDefault("browser.selector_timeout", 3*time.Second)

	v.SetDefault("stealth.rotate_profiles", true)

	v.SetDefault("session.max_age", 7*24*time.Hour)

	v.SetDefault("screenshot.enabled", true)
	v.SetDefault("screenshot.dir", "screenshots")
	v.SetDefault("screenshot.quality", 85)

	v.SetDefault("retention.screenshots.max_count", 100)
	v.SetDefault("retention.screenshots.max_age_days", 7)
	v.SetDefault("retention.logs.max_age_days", 7)
	v.SetDefault("retention.logs.max_total_mb", 100)
	v.SetDefault("retention.profiles.max_total_mb", 500)

	v.SetDefault("login.strategy", "hybrid")
	v.SetDefault("login.manual_timeout", 5*time.Minute)
	v.SetDefault("login.step_timeout", 30*time.Second)

	v.SetDefault("browse.explore_for", 45*time.Second)
	v.SetDefault("browse.trending_probability", 0.3)
	v.SetDefault("browse.max_search_results", 10)

	humanoid.SetDefaults(v, "browser.humanoid")
}

// Validate rejects configurations the rest of the code cannot act on.
func (c *Config) Validate() error {
	switch c.Logger.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("config: unknown logger format %q", c.Logger.Format)
	}
	switch c.Login.Strategy {
	case "session_restore", "automatic", "manual_assisted", "hybrid":
	default:
		return fmt.Errorf("config: unknown login strategy %q", c.Login.Strategy)
	}
	if c.Browser.NavigationTimeout <= 0 {
		return fmt.Errorf("config: browser.navigation_timeout must be positive")
	}
	if c.Browser.SelectorTimeout <= 0 {
		return fmt.Errorf("config: browser.selector_timeout must be positive")
	}
	if c.Session.MaxAge <= 0 {
		return fmt.Errorf("config: session.max_age must be positive")
	}
	if c.Browse.TrendingProbability < 0 || c.Browse.TrendingProbability > 1 {
		return fmt.Errorf("config: browse.trending_probability must be in [0,1]")
	}
	if c.Data.Dir == "" {
		return fmt.Errorf("config: data.dir must not be empty")
	}
	return nil
}

// Load initializes the configuration singleton from Viper.
func Load(v *viper.Viper) error {
	var loadErr error
	once.Do(func() {
		var cfg Config
		if err := v.Unmarshal(&cfg); err != nil {
			loadErr = fmt.Errorf("error unmarshaling config: %w", err)
			return
		}
		if err := cfg.Validate(); err != nil {
			loadErr = err
			return
		}
		instance = &cfg
	})
	return loadErr
}

// Set installs an already-built configuration. Intended for tests.
func Set(cfg *Config) {
	instance = cfg
}

// Get returns the loaded configuration instance.
func Get() *Config {
	if instance == nil {
		panic("Configuration not initialized. Call config.Load() in the root command.")
	}
	return instance
}
