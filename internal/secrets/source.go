// Package secrets resolves the secret values injected into a child's
// environment, from Doppler when it is configured or from the caller's own
// environment otherwise.
package secrets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/seslattery/launchwarden/internal/config"
	"github.com/seslattery/launchwarden/internal/doppler"
)

// ErrSecretNotFound is returned when a requested secret has no value.
var ErrSecretNotFound = errors.New("secret not found")

// Source resolves a set of secret names to their values.
type Source interface {
	Resolve(ctx context.Context, names []string) (map[string]string, error)
}

// LookupFunc reads one variable, like os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// NewSource picks the secret source for cfg.
// If Doppler is configured and DOPPLER_TOKEN is set, returns a Doppler store.
// Otherwise the secrets are read from lookup, so a developer can export them
// locally instead of talking to Doppler.
func NewSource(cfg *config.Config, lookup LookupFunc) (Source, error) {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	if cfg.Doppler == nil {
		return NewMemorySource(nil), nil
	}

	if token, _ := lookup(doppler.TokenEnv); token != "" {
		baseURL, _ := lookup("DOPPLER_API_URL")
		return doppler.NewStore(doppler.Options{
			Token:    token,
			BaseURL:  baseURL,
			Project:  cfg.Doppler.Project,
			Config:   cfg.Doppler.Config,
			CacheTTL: cfg.DopplerCacheTTL(),
			Timeout:  5 * time.Second,
		}), nil
	}

	return newEnvSource(cfg.Doppler.Secrets, lookup), nil
}

// Names returns the secret names cfg asks for.
func Names(cfg *config.Config) []string {
	if cfg.Doppler == nil {
		return nil
	}
	return cfg.Doppler.Secrets
}

func newEnvSource(names []string, lookup LookupFunc) *MemorySource {
	values := make(map[string]string)
	for _, name := range names {
		if val, ok := lookup(name); ok && val != "" {
			values[name] = val
		}
	}
	return NewMemorySource(values)
}

// MemorySource serves secrets from a fixed map.
type MemorySource struct {
	secrets map[string]string
}

// NewMemorySource creates a source over a copy of secrets.
func NewMemorySource(secrets map[string]string) *MemorySource {
	values := make(map[string]string, len(secrets))
	for k, v := range secrets {
		values[k] = v
	}
	return &MemorySource{secrets: values}
}

// Resolve returns the requested secrets or ErrSecretNotFound for the first
// name it does not hold.
func (s *MemorySource) Resolve(_ context.Context, names []string) (map[string]string, error) {
	out := make(map[string]string, len(names))
	for _, name := range names {
		val, ok := s.secrets[name]
		if !ok {
			return nil, fmt.Errorf("%s: %w", name, ErrSecretNotFound)
		}
		out[name] = val
	}
	return out, nil
}

var (
	_ Source = (*MemorySource)(nil)
	_ Source = (*doppler.Store)(nil)
)
