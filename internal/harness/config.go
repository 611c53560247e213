package harness

import (
	"fmt"
	"time"

	"github.com/roach88/scratchbench/internal/sim"
	"github.com/roach88/scratchbench/internal/timing"
)

// DefaultCaseTimeout is the case budget when neither the case, the caller
// nor the scenario declares one.
const DefaultCaseTimeout = 10 * time.Second

// Config is what the caller of a scenario may tune.
type Config struct {
	// Timeout is the per-case budget. Zero defers to the scenario default.
	Timeout time.Duration

	// SpriteName overrides the actor the scenario observes.
	SpriteName string

	// Overrides carries scenario-specific options.
	Overrides map[string]any
}

// ParseConfig reads a loosely typed option map such as a decoded JSON or YAML
// request body. "timeout" is in seconds; "spriteName" and "sprite_name" are
// both accepted; every other key is kept as an override.
func ParseConfig(m map[string]any) (Config, error) {
	var cfg Config
	for k, v := range m {
		switch k {
		case "timeout":
			secs, ok := sim.ToNumber(v)
			if !ok {
				return Config{}, fmt.Errorf("timeout: want non-negative seconds, got %v", v)
			}
			d, err := timing.Seconds(secs)
			if err != nil {
				return Config{}, fmt.Errorf("timeout: %w", err)
			}
			cfg.Timeout = d
		case "spriteName", "sprite_name", "sprite":
			name, ok := v.(string)
			if !ok {
				return Config{}, fmt.Errorf("%s: want string, got %T", k, v)
			}
			cfg.SpriteName = name
		default:
			if cfg.Overrides == nil {
				cfg.Overrides = map[string]any{}
			}
			cfg.Overrides[k] = v
		}
	}
	return cfg, nil
}

// Override returns a scenario-specific option.
func (c Config) Override(key string) (any, bool) {
	v, ok := c.Overrides[key]
	return v, ok
}

// Float returns a numeric override, or def when absent or not numeric.
func (c Config) Float(key string, def float64) float64 {
	if v, ok := c.Overrides[key]; ok {
		if n, ok := sim.ToNumber(v); ok {
			return n
		}
	}
	return def
}

// String returns a textual override, or def when absent.
func (c Config) String(key, def string) string {
	if v, ok := c.Overrides[key]; ok {
		if s := sim.ToString(v); s != "" {
			return s
		}
	}
	return def
}

// Millis returns an override given in milliseconds as a Duration, or def
// when absent or not a valid duration.
func (c Config) Millis(key string, def time.Duration) time.Duration {
	if v, ok := c.Overrides[key]; ok {
		if n, ok := sim.ToNumber(v); ok {
			if d, err := timing.Millis(n); err == nil {
				return d
			}
		}
	}
	return def
}
