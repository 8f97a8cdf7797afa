package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/seslattery/launchwarden/internal/config"
	"github.com/seslattery/launchwarden/internal/launch"
	"github.com/seslattery/launchwarden/internal/telemetry"
)

func newRunCmd(ro *rootOptions, lo *launchOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [flags] [-- <command> [args...]]",
		Short: "Launch the configured executable, or the given command",
		Long: `Launch one process with the managed environment and wait for it.

The exit status of launchwarden is the exit status of the process, 128+N
when it was killed by signal N, 127 when the executable does not exist and
126 when it could not be executed.

Example:
  launchwarden run
  launchwarden run -e PORT=9000 -- ./bin/server --verbose`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLaunch(cmd, ro, lo, args)
		},
	}
	cmd.Flags().SetInterspersed(false)
	addLaunchFlags(cmd, lo)
	return cmd
}

func runLaunch(cmd *cobra.Command, ro *rootOptions, lo *launchOptions, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if err := applyEnvOverrides(cmd, ro, lo); err != nil {
		return err
	}

	logger, err := newLogger(ro, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	cfg, err := loadConfig(ro.configPath)
	if err != nil {
		return err
	}
	cliEnv, err := applyLaunchFlags(cfg, lo)
	if err != nil {
		return err
	}

	opts := launch.Options{
		Env:    cliEnv,
		Stdin:  cmd.InOrStdin(),
		Stdout: cmd.OutOrStdout(),
		Stderr: cmd.ErrOrStderr(),
		Logger: logger,
	}
	if len(args) > 0 {
		opts.Executable, opts.Args = args[0], args[1:]
	}
	if opts.Executable == "" && cfg.Executable == "" {
		return fmt.Errorf("%w: set executable in the config or pass a command", config.ErrNoExecutable)
	}

	telemetryOut, closeOut, err := telemetryWriter(cfg)
	if err != nil {
		return err
	}
	defer closeOut()
	shutdown, err := telemetry.Init(ctx, telemetry.Config{
		Enabled: cfg.TelemetryEnabled(),
		Version: version,
		Writer:  telemetryOut,
		Logger:  logger,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			logger.Warn("telemetry shutdown failed", "error", err)
		}
	}()

	outcome, err := launch.Run(ctx, cfg, opts)
	if err != nil {
		return err
	}
	if code := outcome.ExitCode(); code != 0 {
		return &exitCodeError{code: code}
	}
	return nil
}

func telemetryWriter(cfg *config.Config) (io.Writer, func(), error) {
	if !cfg.TelemetryEnabled() || cfg.Telemetry.Output == "" {
		return io.Discard, func() {}, nil
	}
	path := config.ExpandPath(cfg.Telemetry.Output)
	// #nosec G304 -- path comes from the user's own config
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("open telemetry output: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}
