package humanoid

import (
	"math"
	"math/rand"

	"github.com/spf13/viper"
)

// Config holds the motor-control parameters of the simulation. All values
// are per-session bases; fatigue modulates a dynamic copy at runtime.
type Config struct {
	// Fitts's law coefficients (ms) for verification pauses.
	FittsA float64 `mapstructure:"fitts_a"`
	FittsB float64 `mapstructure:"fitts_b"`

	// Spring-damped trajectory parameters. Omega is the natural frequency
	// (higher is faster), Zeta the damping ratio (lower oscillates more).
	Omega float64 `mapstructure:"omega"`
	Zeta  float64 `mapstructure:"zeta"`

	// PerlinAmplitude scales low-frequency drift, GaussianStrength the
	// high-frequency tremor, ClickNoise the displacement while clicking.
	PerlinAmplitude  float64 `mapstructure:"perlin_amplitude"`
	GaussianStrength float64 `mapstructure:"gaussian_strength"`
	ClickNoise       float64 `mapstructure:"click_noise"`

	ClickHoldMinMs int `mapstructure:"click_hold_min_ms"`
	ClickHoldMaxMs int `mapstructure:"click_hold_max_ms"`

	// MicroCorrectionThreshold is the minimum movement distance (px) that
	// can trigger a mid-flight submovement.
	MicroCorrectionThreshold float64 `mapstructure:"micro_correction_threshold"`

	FatigueIncreaseRate float64 `mapstructure:"fatigue_increase_rate"`
	FatigueRecoveryRate float64 `mapstructure:"fatigue_recovery_rate"`

	// Typing behavior.
	TypoRate                 float64 `mapstructure:"typo_rate"`
	KeyDelayMinMs            int     `mapstructure:"key_delay_min_ms"`
	KeyDelayMaxMs            int     `mapstructure:"key_delay_max_ms"`
	ThinkingPauseProbability float64 `mapstructure:"thinking_pause_probability"`

	// Scrolling behavior.
	ScrollReadDensityFactor     float64 `mapstructure:"scroll_read_density_factor"`
	ScrollOvershootProbability  float64 `mapstructure:"scroll_overshoot_probability"`
	ScrollRegressionProbability float64 `mapstructure:"scroll_regression_probability"`
	ScrollWheelProbability      float64 `mapstructure:"scroll_wheel_probability"`

	// Rng overrides the randomness source; used by tests for determinism.
	Rng *rand.Rand `mapstructure:"-"`
}

// DefaultConfig returns the baseline motor profile.
func DefaultConfig() Config {
	return Config{
		FittsA:                      100.0,
		FittsB:                      150.0,
		Omega:                       30.0,
		Zeta:                        0.85,
		PerlinAmplitude:             2.0,
		GaussianStrength:            0.5,
		ClickNoise:                  1.5,
		ClickHoldMinMs:              40,
		ClickHoldMaxMs:              140,
		MicroCorrectionThreshold:    150.0,
		FatigueIncreaseRate:         0.02,
		FatigueRecoveryRate:         0.005,
		TypoRate:                    0.03,
		KeyDelayMinMs:               80,
		KeyDelayMaxMs:               200,
		ThinkingPauseProbability:    0.05,
		ScrollReadDensityFactor:     0.4,
		ScrollOvershootProbability:  0.15,
		ScrollRegressionProbability: 0.1,
		ScrollWheelProbability:      0.7,
	}
}

// SetDefaults registers the default motor profile under the given viper key
// prefix so the values are tunable from the config file.
func SetDefaults(v *viper.Viper, prefix string) {
	def := DefaultConfig()
	v.SetDefault(prefix+".fitts_a", def.FittsA)
	v.SetDefault(prefix+".fitts_b", def.FittsB)
	v.SetDefault(prefix+".omega", def.Omega)
	v.SetDefault(prefix+".zeta", def.Zeta)
	v.SetDefault(prefix+".perlin_amplitude", def.PerlinAmplitude)
	v.SetDefault(prefix+".gaussian_strength", def.GaussianStrength)
	v.SetDefault(prefix+".click_noise", def.ClickNoise)
	v.SetDefault(prefix+".click_hold_min_ms", def.ClickHoldMinMs)
	v.SetDefault(prefix+".click_hold_max_ms", def.ClickHoldMaxMs)
	v.SetDefault(prefix+".micro_correction_threshold", def.MicroCorrectionThreshold)
	v.SetDefault(prefix+".fatigue_increase_rate", def.FatigueIncreaseRate)
	v.SetDefault(prefix+".fatigue_recovery_rate", def.FatigueRecoveryRate)
	v.SetDefault(prefix+".typo_rate", def.TypoRate)
	v.SetDefault(prefix+".key_delay_min_ms", def.KeyDelayMinMs)
	v.SetDefault(prefix+".key_delay_max_ms", def.KeyDelayMaxMs)
	v.SetDefault(prefix+".thinking_pause_probability", def.ThinkingPauseProbability)
	v.SetDefault(prefix+".scroll_read_density_factor", def.ScrollReadDensityFactor)
	v.SetDefault(prefix+".scroll_overshoot_probability", def.ScrollOvershootProbability)
	v.SetDefault(prefix+".scroll_regression_probability", def.ScrollRegressionProbability)
	v.SetDefault(prefix+".scroll_wheel_probability", def.ScrollWheelProbability)
}

// NormalizeTypoRates clamps the typo rate into a plausible range. Fatigue
// can raise it at runtime, but never beyond 25%.
func (c *Config) NormalizeTypoRates() {
	if c.TypoRate < 0 {
		c.TypoRate = 0
	}
	c.TypoRate = math.Min(0.25, c.TypoRate)
}

// FinalizeSessionPersona jitters the motor parameters so every session has
// a slightly different hand. Ranges stay within +/- 10% of the base.
func (c *Config) FinalizeSessionPersona(rng *rand.Rand) {
	jitter := func(v float64) float64 {
		return v * (0.9 + rng.Float64()*0.2)
	}
	c.FittsA = jitter(c.FittsA)
	c.FittsB = jitter(c.FittsB)
	c.Omega = jitter(c.Omega)
	c.Zeta = math.Min(1.0, jitter(c.Zeta))
	c.PerlinAmplitude = jitter(c.PerlinAmplitude)
	c.GaussianStrength = jitter(c.GaussianStrength)
	c.ClickNoise = jitter(c.ClickNoise)
	c.TypoRate = jitter(c.TypoRate)
	c.NormalizeTypoRates()
	if c.KeyDelayMaxMs <= c.KeyDelayMinMs {
		c.KeyDelayMaxMs = c.KeyDelayMinMs + 1
	}
}
