package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrNoExecutable is returned when neither the config nor the command line
// names the program to launch.
var ErrNoExecutable = errors.New("no executable configured")

// DefaultEnvFile is read when env_file is not set.
const DefaultEnvFile = ".env"

// DefaultKillAfter is the grace period between a termination request and a
// forced kill.
const DefaultKillAfter = 10 * time.Second

// Config represents the launchwarden configuration file.
type Config struct {
	Executable string   `yaml:"executable"`
	Args       []string `yaml:"args,omitempty"`

	EnvFile         string            `yaml:"env_file,omitempty"`
	EnvFileOverride bool              `yaml:"env_file_override,omitempty"`
	InheritEnv      *bool             `yaml:"inherit_env,omitempty"`
	StripSecrets    bool              `yaml:"strip_secrets,omitempty"`
	EnvPassthrough  []string          `yaml:"env_passthrough,omitempty"`
	Env             map[string]string `yaml:"env,omitempty"`
	Unset           []string          `yaml:"unset,omitempty"`

	Doppler    *DopplerEntry    `yaml:"doppler,omitempty"`
	Supervisor *SupervisorEntry `yaml:"supervisor,omitempty"`
	Telemetry  *TelemetryEntry  `yaml:"telemetry,omitempty"`

	// configDir is the directory containing the config file.
	// Used for resolving relative paths.
	configDir string
	// envFileExplicit records whether env_file was set by the user, in
	// which case a missing file is an error.
	envFileExplicit bool
}

// DopplerEntry configures Doppler as a source of injected secrets.
type DopplerEntry struct {
	Project  string   `yaml:"project"`
	Config   string   `yaml:"config"`
	Secrets  []string `yaml:"secrets"`
	CacheTTL string   `yaml:"cache_ttl,omitempty"` // e.g., "5m", "1h"
}

// SupervisorEntry configures child process handling.
type SupervisorEntry struct {
	KillAfter string `yaml:"kill_after,omitempty"` // default: 10s
}

// TelemetryEntry configures OpenTelemetry export.
type TelemetryEntry struct {
	Enabled bool   `yaml:"enabled"`
	Output  string `yaml:"output,omitempty"` // file for stdout exporters; empty discards
}

// Load reads and parses a configuration file.
func Load(path string) (*Config, error) {
	path = ExpandPath(path)

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}

	// #nosec G304 -- Config path comes from CLI flag or discovery
	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.configDir = filepath.Dir(absPath)
	cfg.envFileExplicit = cfg.EnvFile != ""
	cfg.ApplyDefaults()
	cfg.resolvePaths()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Default returns the configuration used when no file exists: inherit the
// environment and read .env from the working directory.
func Default() *Config {
	cfg := &Config{}
	if wd, err := os.Getwd(); err == nil {
		cfg.configDir = wd
	}
	cfg.ApplyDefaults()
	cfg.resolvePaths()
	return cfg
}

// ConfigDir returns the directory relative paths are resolved against.
func (c *Config) ConfigDir() string {
	return c.configDir
}

// EnvFileRequired reports whether a missing env file should be an error.
func (c *Config) EnvFileRequired() bool {
	return c.envFileExplicit
}

// SetEnvFile overrides env_file from the command line. Relative paths are
// taken from the working directory and the file becomes required.
func (c *Config) SetEnvFile(path string) error {
	abs, err := filepath.Abs(ExpandPath(path))
	if err != nil {
		return fmt.Errorf("resolve env file: %w", err)
	}
	c.EnvFile = abs
	c.envFileExplicit = true
	return nil
}

// ApplyDefaults fills in default values for unset fields.
func (c *Config) ApplyDefaults() {
	if c.EnvFile == "" {
		c.EnvFile = DefaultEnvFile
	}
	if c.InheritEnv == nil {
		inherit := true
		c.InheritEnv = &inherit
	}
	if c.Supervisor == nil {
		c.Supervisor = &SupervisorEntry{}
	}
}

// resolvePaths makes env_file and a relative executable path absolute with
// respect to the config directory. Bare executable names are left for PATH
// lookup.
func (c *Config) resolvePaths() {
	c.EnvFile = c.resolvePath(c.EnvFile)
	if strings.ContainsRune(c.Executable, '/') || strings.ContainsRune(c.Executable, filepath.Separator) || strings.HasPrefix(c.Executable, "~") {
		c.Executable = c.resolvePath(c.Executable)
	}
}

// resolvePath resolves a path relative to the config directory.
// - Paths starting with / are absolute (unchanged)
// - Paths starting with ~ are home-relative (expanded)
// - Everything else is config-relative
func (c *Config) resolvePath(path string) string {
	if path == "" {
		return path
	}
	path = ExpandPath(path)
	if filepath.IsAbs(path) || c.configDir == "" {
		return path
	}
	return filepath.Join(c.configDir, path)
}

// Inherit reports whether the child starts from the caller's environment.
func (c *Config) Inherit() bool {
	return c.InheritEnv == nil || *c.InheritEnv
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	for key := range c.Env {
		if key == "" || strings.ContainsAny(key, "= \t\n") {
			return fmt.Errorf("env: invalid variable name %q", key)
		}
	}
	for i, key := range c.Unset {
		if key == "" {
			return fmt.Errorf("unset[%d]: variable name is required", i)
		}
	}

	if c.Doppler != nil {
		if c.Doppler.Project == "" {
			return fmt.Errorf("doppler.project is required when doppler section is present")
		}
		if c.Doppler.Config == "" {
			return fmt.Errorf("doppler.config is required when doppler section is present")
		}
		if len(c.Doppler.Secrets) == 0 {
			return fmt.Errorf("doppler.secrets must list at least one secret name")
		}
		if c.Doppler.CacheTTL != "" {
			if _, err := time.ParseDuration(c.Doppler.CacheTTL); err != nil {
				return fmt.Errorf("invalid doppler.cache_ttl: %w", err)
			}
		}
	}

	if c.Supervisor != nil && c.Supervisor.KillAfter != "" {
		d, err := time.ParseDuration(c.Supervisor.KillAfter)
		if err != nil {
			return fmt.Errorf("invalid supervisor.kill_after: %w", err)
		}
		if d <= 0 {
			return fmt.Errorf("supervisor.kill_after must be positive, got %s", d)
		}
	}

	return nil
}

// KillAfter returns the configured termination grace period.
// Returns DefaultKillAfter if not configured.
func (c *Config) KillAfter() time.Duration {
	if c.Supervisor != nil && c.Supervisor.KillAfter != "" {
		if d, err := time.ParseDuration(c.Supervisor.KillAfter); err == nil && d > 0 {
			return d
		}
	}
	return DefaultKillAfter
}

// DopplerCacheTTL returns the configured Doppler cache TTL, defaulting to
// five minutes.
func (c *Config) DopplerCacheTTL() time.Duration {
	if c.Doppler != nil && c.Doppler.CacheTTL != "" {
		if d, err := time.ParseDuration(c.Doppler.CacheTTL); err == nil {
			return d
		}
	}
	return 5 * time.Minute
}

// TelemetryEnabled reports whether OpenTelemetry export was requested.
func (c *Config) TelemetryEnabled() bool {
	return c.Telemetry != nil && c.Telemetry.Enabled
}
