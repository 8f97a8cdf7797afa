package secrets

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seslattery/launchwarden/internal/config"
	"github.com/seslattery/launchwarden/internal/doppler"
)

func mapLookup(m map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

func dopplerConfig(names ...string) *config.Config {
	return &config.Config{Doppler: &config.DopplerEntry{
		Project: "proj",
		Config:  "dev",
		Secrets: names,
	}}
}

func TestNewSource_DopplerWhenTokenSet(t *testing.T) {
	src, err := NewSource(dopplerConfig("A"), mapLookup(map[string]string{doppler.TokenEnv: "dp.st.x"}))
	require.NoError(t, err)
	assert.IsType(t, &doppler.Store{}, src)
}

func TestNewSource_EnvFallback(t *testing.T) {
	lookup := mapLookup(map[string]string{"A": "from-env", "B": ""})
	src, err := NewSource(dopplerConfig("A", "B"), lookup)
	require.NoError(t, err)
	require.IsType(t, &MemorySource{}, src)

	got, err := src.Resolve(context.Background(), []string{"A"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"A": "from-env"}, got)

	// empty values count as unset
	_, err = src.Resolve(context.Background(), []string{"B"})
	assert.ErrorIs(t, err, ErrSecretNotFound)
}

func TestNewSource_NoDoppler(t *testing.T) {
	cfg := &config.Config{}
	src, err := NewSource(cfg, mapLookup(map[string]string{doppler.TokenEnv: "x"}))
	require.NoError(t, err)
	assert.Empty(t, Names(cfg))

	got, err := src.Resolve(context.Background(), Names(cfg))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestMemorySource_CopiesInput(t *testing.T) {
	in := map[string]string{"K": "v1"}
	src := NewMemorySource(in)
	in["K"] = "v2"

	got, err := src.Resolve(context.Background(), []string{"K"})
	require.NoError(t, err)
	assert.Equal(t, "v1", got["K"])
}

func TestMemorySource_MissingNamesSecret(t *testing.T) {
	_, err := NewMemorySource(nil).Resolve(context.Background(), []string{"MISSING_TOKEN"})
	require.ErrorIs(t, err, ErrSecretNotFound)
	assert.Contains(t, err.Error(), "MISSING_TOKEN")
}
