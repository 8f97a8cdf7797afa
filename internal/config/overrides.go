package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix prefixes the variables read by LoadOverrides.
const EnvPrefix = "LAUNCHWARDEN"

// Overrides are settings taken from LAUNCHWARDEN_* variables. Command-line
// flags beat them; they beat the config file.
type Overrides struct {
	Config    string        `envconfig:"CONFIG"`
	EnvFile   string        `envconfig:"ENV_FILE"`
	LogFormat string        `envconfig:"LOG_FORMAT"`
	Verbose   bool          `envconfig:"VERBOSE"`
	KillAfter time.Duration `envconfig:"KILL_AFTER"`
	Telemetry bool          `envconfig:"OTEL"`
}

// LoadOverrides reads Overrides from the process environment.
func LoadOverrides() (Overrides, error) {
	var o Overrides
	if err := envconfig.Process(EnvPrefix, &o); err != nil {
		return Overrides{}, fmt.Errorf("read %s_* settings: %w", EnvPrefix, err)
	}
	return o, nil
}
