package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/seslattery/launchwarden/internal/config"
	"github.com/seslattery/launchwarden/internal/env"
	"github.com/seslattery/launchwarden/internal/logging"
)

// knownSubcommands lists the subcommands that must not be mistaken for the
// program to launch.
var knownSubcommands = map[string]bool{
	"run":        true,
	"env":        true,
	"init":       true,
	"help":       true,
	"completion": true,
}

// valueFlags are the flags whose value is a separate argument unless given
// as --flag=value.
var valueFlags = map[string]bool{
	"--config":     true,
	"--env-file":   true,
	"--env":        true,
	"-e":           true,
	"--log-format": true,
	"--kill-after": true,
}

// rootOptions holds the flags shared by every command.
type rootOptions struct {
	configPath string
	verbose    bool
	logFormat  string
}

// launchOptions holds the flags that shape the child's environment.
type launchOptions struct {
	envFile   string
	env       []string
	killAfter time.Duration
	otel      bool
}

func newRootCmd() *cobra.Command {
	ro := &rootOptions{}
	lo := &launchOptions{}

	root := &cobra.Command{
		Use:   "launchwarden [flags] [command [args...]]",
		Short: "Launch a server process with a managed environment",
		Long: `launchwarden starts one server process with an environment built from
the current environment, a .env file, optional Doppler secrets and explicit
overrides. It waits for the process and exits with its status.

With no arguments the executable from the config file is launched.

Example:
  launchwarden
  launchwarden -e LOG_LEVEL=debug supabase-mcp-server --read-only
  launchwarden run --env-file prod.env -- ./bin/server`,
		Version: version,
		Args:    cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLaunch(cmd, ro, lo, args)
		},
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&ro.configPath, "config", "", "Configuration file path (default: auto-discover .launchwarden/config.yaml)")
	pf.BoolVarP(&ro.verbose, "verbose", "v", false, "Enable debug logging")
	pf.StringVar(&ro.logFormat, "log-format", "text", "Log format: text or json")

	addLaunchFlags(root, lo)

	root.AddCommand(newRunCmd(ro, lo))
	root.AddCommand(newEnvCmd(ro))
	root.AddCommand(newInitCmd())
	return root
}

func addLaunchFlags(cmd *cobra.Command, lo *launchOptions) {
	f := cmd.Flags()
	f.StringVar(&lo.envFile, "env-file", "", "Env file to load (default: .env next to the config)")
	f.StringArrayVarP(&lo.env, "env", "e", nil, "Set a variable in the child environment (KEY=VALUE, repeatable)")
	f.DurationVar(&lo.killAfter, "kill-after", 0, "Grace period before a terminated child is killed (default from config, 10s)")
	f.BoolVar(&lo.otel, "otel", false, "Export OpenTelemetry traces and metrics")
}

// applyEnvOverrides fills options whose flags were not given from the
// LAUNCHWARDEN_* variables.
func applyEnvOverrides(cmd *cobra.Command, ro *rootOptions, lo *launchOptions) error {
	o, err := config.LoadOverrides()
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if !flags.Changed("config") && o.Config != "" {
		ro.configPath = o.Config
	}
	if !flags.Changed("log-format") && o.LogFormat != "" {
		ro.logFormat = o.LogFormat
	}
	if !flags.Changed("verbose") && o.Verbose {
		ro.verbose = true
	}
	if !flags.Changed("env-file") && o.EnvFile != "" {
		lo.envFile = o.EnvFile
	}
	if !flags.Changed("kill-after") && o.KillAfter != 0 {
		lo.killAfter = o.KillAfter
	}
	if !flags.Changed("otel") && o.Telemetry {
		lo.otel = true
	}
	return nil
}

// loadConfig reads the config named by --config, or the discovered one, or
// falls back to defaults when there is none.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		path = config.DiscoverConfig()
		if path == "" {
			return config.Default(), nil
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config %s: %w", path, err)
	}
	return cfg, nil
}

// applyLaunchFlags folds command-line overrides into cfg and returns the
// parsed --env assignments.
func applyLaunchFlags(cfg *config.Config, lo *launchOptions) (map[string]string, error) {
	if lo.envFile != "" {
		if err := cfg.SetEnvFile(lo.envFile); err != nil {
			return nil, err
		}
	}
	if lo.killAfter < 0 {
		return nil, fmt.Errorf("--kill-after must be positive, got %s", lo.killAfter)
	}
	if lo.killAfter > 0 {
		cfg.Supervisor = &config.SupervisorEntry{KillAfter: lo.killAfter.String()}
	}
	if lo.otel {
		if cfg.Telemetry == nil {
			cfg.Telemetry = &config.TelemetryEntry{}
		}
		cfg.Telemetry.Enabled = true
	}
	assignments, err := env.ParseAssignments(lo.env)
	if err != nil {
		return nil, fmt.Errorf("--env: %w", err)
	}
	return assignments, nil
}

func newLogger(ro *rootOptions, w io.Writer) (*slog.Logger, error) {
	return logging.New(logging.Options{
		Verbose: ro.verbose,
		Format:  ro.logFormat,
		Writer:  w,
	})
}

// shouldRewriteArgs reports whether args name a program to launch without a
// subcommand, as in `launchwarden server --port 80`.
func shouldRewriteArgs(args []string) bool {
	i := firstPositional(args)
	if i < 0 || args[i] == "--" {
		return false
	}
	return !knownSubcommands[args[i]]
}

// insertArgSeparator adds "--" before the first positional argument so the
// program's own flags are not parsed as ours.
func insertArgSeparator(args []string) []string {
	i := firstPositional(args)
	if i < 0 {
		return args
	}
	result := make([]string, 0, len(args)+1)
	result = append(result, args[:i]...)
	result = append(result, "--")
	return append(result, args[i:]...)
}

// firstPositional returns the index of the first argument that is neither a
// flag nor a flag's value, or -1.
func firstPositional(args []string) int {
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			return i
		}
		if !strings.HasPrefix(arg, "-") || arg == "-" {
			return i
		}
		if valueFlags[arg] {
			i++
		}
	}
	return -1
}
