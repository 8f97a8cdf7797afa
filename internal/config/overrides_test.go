package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadOverrides(t *testing.T) {
	t.Setenv("LAUNCHWARDEN_CONFIG", "/etc/lw.yaml")
	t.Setenv("LAUNCHWARDEN_KILL_AFTER", "3s")
	t.Setenv("LAUNCHWARDEN_VERBOSE", "true")
	t.Setenv("LAUNCHWARDEN_LOG_FORMAT", "json")

	o, err := LoadOverrides()
	require.NoError(t, err)
	assert.Equal(t, "/etc/lw.yaml", o.Config)
	assert.Equal(t, 3*time.Second, o.KillAfter)
	assert.True(t, o.Verbose)
	assert.Equal(t, "json", o.LogFormat)
	assert.Empty(t, o.EnvFile)
	assert.False(t, o.Telemetry)
}

func TestLoadOverrides_Invalid(t *testing.T) {
	t.Setenv("LAUNCHWARDEN_KILL_AFTER", "soon")

	_, err := LoadOverrides()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LAUNCHWARDEN_")
}
