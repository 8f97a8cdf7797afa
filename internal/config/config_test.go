package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoad_Full(t *testing.T) {
	path := writeConfig(t, `executable: bin/server
args: ["--port", "8080"]
env_file: secrets.env
env_file_override: true
inherit_env: false
strip_secrets: true
env_passthrough: [MY_TOKEN]
env:
  LOG_LEVEL: debug
unset: [DEBUG]
doppler:
  project: my-project
  config: dev
  secrets: [SUPABASE_ACCESS_TOKEN]
  cache_ttl: 10m
supervisor:
  kill_after: 3s
telemetry:
  enabled: true
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	dir := filepath.Dir(path)
	assert.Equal(t, filepath.Join(dir, "bin", "server"), cfg.Executable)
	assert.Equal(t, []string{"--port", "8080"}, cfg.Args)
	assert.Equal(t, filepath.Join(dir, "secrets.env"), cfg.EnvFile)
	assert.True(t, cfg.EnvFileRequired())
	assert.True(t, cfg.EnvFileOverride)
	assert.False(t, cfg.Inherit())
	assert.True(t, cfg.StripSecrets)
	assert.Equal(t, []string{"MY_TOKEN"}, cfg.EnvPassthrough)
	assert.Equal(t, map[string]string{"LOG_LEVEL": "debug"}, cfg.Env)
	assert.Equal(t, []string{"DEBUG"}, cfg.Unset)
	require.NotNil(t, cfg.Doppler)
	assert.Equal(t, "my-project", cfg.Doppler.Project)
	assert.Equal(t, 10*time.Minute, cfg.DopplerCacheTTL())
	assert.Equal(t, 3*time.Second, cfg.KillAfter())
	assert.True(t, cfg.TelemetryEnabled())
	assert.Equal(t, dir, cfg.ConfigDir())
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, "executable: supabase-mcp-server\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	// bare names are left for PATH lookup
	assert.Equal(t, "supabase-mcp-server", cfg.Executable)
	assert.Equal(t, filepath.Join(filepath.Dir(path), DefaultEnvFile), cfg.EnvFile)
	assert.False(t, cfg.EnvFileRequired())
	assert.True(t, cfg.Inherit())
	assert.Equal(t, DefaultKillAfter, cfg.KillAfter())
	assert.Equal(t, 5*time.Minute, cfg.DopplerCacheTTL())
	assert.False(t, cfg.TelemetryEnabled())
	assert.Nil(t, cfg.Doppler)
}

func TestLoad_HomeRelativeExecutable(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	path := writeConfig(t, "executable: ~/.local/bin/supabase-mcp-server\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".local", "bin", "supabase-mcp-server"), cfg.Executable)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name     string
		config   string
		errorMsg string
	}{
		{
			name:     "invalid yaml",
			config:   "executable: [unterminated\n",
			errorMsg: "parse config",
		},
		{
			name: "doppler missing project",
			config: `doppler:
  config: dev
  secrets: [A]
`,
			errorMsg: "doppler.project is required",
		},
		{
			name: "doppler missing config",
			config: `doppler:
  project: p
  secrets: [A]
`,
			errorMsg: "doppler.config is required",
		},
		{
			name: "doppler without secrets",
			config: `doppler:
  project: p
  config: dev
`,
			errorMsg: "doppler.secrets must list",
		},
		{
			name: "doppler bad ttl",
			config: `doppler:
  project: p
  config: dev
  secrets: [A]
  cache_ttl: soon
`,
			errorMsg: "invalid doppler.cache_ttl",
		},
		{
			name: "bad kill_after",
			config: `supervisor:
  kill_after: forever
`,
			errorMsg: "invalid supervisor.kill_after",
		},
		{
			name: "negative kill_after",
			config: `supervisor:
  kill_after: -1s
`,
			errorMsg: "must be positive",
		},
		{
			name: "bad env key",
			config: `env:
  "BAD KEY": x
`,
			errorMsg: "invalid variable name",
		},
		{
			name:     "empty unset entry",
			config:   "unset: [\"\"]\n",
			errorMsg: "unset[0]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.config))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errorMsg)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config")
}

func TestDefault(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	cfg := Default()
	assert.Empty(t, cfg.Executable)
	assert.True(t, cfg.Inherit())
	assert.False(t, cfg.EnvFileRequired())
	assert.Equal(t, DefaultEnvFile, filepath.Base(cfg.EnvFile))
}

func TestSetEnvFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, "executable: /bin/true\n"))
	require.NoError(t, err)

	wd := t.TempDir()
	t.Chdir(wd)

	require.NoError(t, cfg.SetEnvFile("other.env"))
	assertSamePath(t, wd, filepath.Dir(cfg.EnvFile))
	assert.Equal(t, "other.env", filepath.Base(cfg.EnvFile))
	assert.True(t, cfg.EnvFileRequired())

	require.NoError(t, cfg.SetEnvFile("/abs/prod.env"))
	assert.Equal(t, "/abs/prod.env", cfg.EnvFile)
}
