package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv unsets every variable Load reads and restores them after the
// test. Unset rather than empty, so a .env file may still provide them.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{EnvBackend, EnvChromeURL, EnvGUIURL, EnvDB, EnvSafetyTimeout, EnvHeadful} {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadFrom_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "missing.env"), "")
	require.NoError(t, err)
	assert.Equal(t, Defaults(), cfg)
	assert.Equal(t, 120*time.Second, cfg.Safety())
}

func TestLoadFrom_Environment(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvBackend, "browser")
	t.Setenv(EnvChromeURL, "ws://127.0.0.1:9222/devtools/browser/abc")
	t.Setenv(EnvSafetyTimeout, "30.5")
	t.Setenv(EnvHeadful, "true")

	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "missing.env"), "")
	require.NoError(t, err)
	assert.Equal(t, BackendBrowser, cfg.Backend)
	assert.Equal(t, "ws://127.0.0.1:9222/devtools/browser/abc", cfg.ChromeURL)
	assert.True(t, cfg.Headful)
	assert.Equal(t, 30500*time.Millisecond, cfg.Safety())
}

func TestLoadFrom_DotEnv(t *testing.T) {
	clearEnv(t)
	envFile := writeFile(t, ".env", "SCRATCHBENCH_DB=/tmp/runs.db\nSCRATCHBENCH_GUI_URL=http://gui:8601\n")

	cfg, err := LoadFrom(envFile, "")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/runs.db", cfg.DB)
	assert.Equal(t, "http://gui:8601", cfg.GUIURL)
}

func TestLoadFrom_FileOverlaysEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvBackend, "browser")
	t.Setenv(EnvDB, "env.db")

	file := writeFile(t, "scratchbench.yaml", `
backend: memsim
safety_timeout: 45
definitions:
  - defs/walk.yaml
`)

	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "missing.env"), file)
	require.NoError(t, err)
	assert.Equal(t, BackendMemsim, cfg.Backend)
	assert.Equal(t, "env.db", cfg.DB, "keys absent from the file keep their value")
	assert.Equal(t, 45.0, cfg.SafetyTimeout)
	assert.Equal(t, []string{"defs/walk.yaml"}, cfg.Definitions)
}

func TestLoadFrom_Errors(t *testing.T) {
	noEnv := filepath.Join(t.TempDir(), "missing.env")

	tests := []struct {
		name    string
		env     map[string]string
		file    string
		wantErr string
	}{
		{
			name:    "unknown backend",
			env:     map[string]string{EnvBackend: "electron"},
			wantErr: "unknown backend",
		},
		{
			name:    "bad safety timeout",
			env:     map[string]string{EnvSafetyTimeout: "soon"},
			wantErr: EnvSafetyTimeout,
		},
		{
			name:    "overflowing safety timeout",
			file:    "safety_timeout: 1000000000000\n",
			wantErr: "overflows a duration",
		},
		{
			name:    "non-positive safety timeout",
			file:    "safety_timeout: 0\n",
			wantErr: "safety timeout must be positive",
		},
		{
			name:    "unknown file key",
			file:    "backend: memsim\nbakend: browser\n",
			wantErr: "field bakend not found",
		},
		{
			name:    "bad headful",
			env:     map[string]string{EnvHeadful: "maybe"},
			wantErr: EnvHeadful,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			file := ""
			if tt.file != "" {
				file = writeFile(t, "cfg.yaml", tt.file)
			}

			_, err := LoadFrom(noEnv, file)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadFrom_MissingConfigFile(t *testing.T) {
	clearEnv(t)
	_, err := LoadFrom(filepath.Join(t.TempDir(), "missing.env"), filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoadFrom_EmptyFile(t *testing.T) {
	clearEnv(t)
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "missing.env"), writeFile(t, "empty.yaml", ""))
	require.NoError(t, err)
	assert.Equal(t, Defaults(), cfg)
}
