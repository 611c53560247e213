// Package config loads application settings from a .env file, the
// environment and an optional YAML file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/roach88/scratchbench/internal/timing"
)

// Simulation backends.
const (
	BackendMemsim  = "memsim"
	BackendBrowser = "browser"
)

// Environment variables read by Load.
const (
	EnvBackend       = "SCRATCHBENCH_BACKEND"
	EnvChromeURL     = "SCRATCHBENCH_CHROME_URL"
	EnvGUIURL        = "SCRATCHBENCH_GUI_URL"
	EnvDB            = "SCRATCHBENCH_DB"
	EnvSafetyTimeout = "SCRATCHBENCH_SAFETY_TIMEOUT"
	EnvHeadful       = "SCRATCHBENCH_HEADFUL"
)

// App holds the application configuration.
type App struct {
	// Backend is memsim or browser.
	Backend string `yaml:"backend"`

	// ChromeURL is the DevTools websocket of a running Chrome. Empty
	// launches a local headless one.
	ChromeURL string `yaml:"chrome_url"`
	GUIURL    string `yaml:"gui_url"`
	Headful   bool   `yaml:"headful"`

	// DB is the run ledger path. Empty disables persistence.
	DB string `yaml:"db"`

	// SafetyTimeout bounds one whole evaluation, in seconds.
	SafetyTimeout float64 `yaml:"safety_timeout"`

	// Definitions are scenario files loaded next to the built-in ones.
	Definitions []string `yaml:"definitions"`
}

// Defaults returns the configuration used when nothing is set.
func Defaults() *App {
	return &App{
		Backend:       BackendMemsim,
		GUIURL:        "http://localhost:8601",
		DB:            "scratchbench.db",
		SafetyTimeout: 120,
	}
}

// Load reads ./.env (when present), then the environment, then file (when
// not empty). Later sources win.
func Load(file string) (*App, error) {
	return LoadFrom(".env", file)
}

// LoadFrom is Load with an explicit .env path.
func LoadFrom(envFile, file string) (*App, error) {
	// godotenv never overrides variables that are already set
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("error loading %s: %w", envFile, err)
	}

	cfg := Defaults()
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if file != "" {
		if err := cfg.applyFile(file); err != nil {
			return nil, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *App) applyEnv() error {
	c.Backend = getEnv(EnvBackend, c.Backend)
	c.ChromeURL = getEnv(EnvChromeURL, c.ChromeURL)
	c.GUIURL = getEnv(EnvGUIURL, c.GUIURL)
	c.DB = getEnv(EnvDB, c.DB)

	if v := os.Getenv(EnvSafetyTimeout); v != "" {
		secs, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvSafetyTimeout, err)
		}
		c.SafetyTimeout = secs
	}
	if v := os.Getenv(EnvHeadful); v != "" {
		headful, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvHeadful, err)
		}
		c.Headful = headful
	}
	return nil
}

// applyFile overlays the keys present in a YAML file. Unknown keys are
// rejected.
func (c *App) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// Validate checks the backend name and the safety timeout.
func (c *App) Validate() error {
	switch c.Backend {
	case BackendMemsim, BackendBrowser:
	default:
		return fmt.Errorf("unknown backend %q (want %s or %s)", c.Backend, BackendMemsim, BackendBrowser)
	}
	if c.SafetyTimeout <= 0 {
		return fmt.Errorf("safety timeout must be positive, got %v", c.SafetyTimeout)
	}
	if _, err := timing.Seconds(c.SafetyTimeout); err != nil {
		return fmt.Errorf("safety timeout: %w", err)
	}
	return nil
}

// Safety returns SafetyTimeout as a Duration. It is zero for a timeout that
// does not pass Validate.
func (c *App) Safety() time.Duration {
	d, _ := timing.Seconds(c.SafetyTimeout)
	return d
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
