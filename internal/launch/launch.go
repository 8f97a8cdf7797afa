// Package launch turns a loaded configuration into a LaunchSpec and runs it
// under a supervisor.
package launch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/seslattery/launchwarden/internal/config"
	"github.com/seslattery/launchwarden/internal/env"
	"github.com/seslattery/launchwarden/internal/logging"
	"github.com/seslattery/launchwarden/internal/secrets"
	"github.com/seslattery/launchwarden/internal/supervisor"
)

// Options carries the per-invocation inputs that sit on top of the config.
type Options struct {
	// Executable replaces the configured executable and Args replaces the
	// configured args when set.
	Executable string
	Args       []string
	// Env holds command-line assignments. They beat every other source.
	Env map[string]string

	// Parent is the inherited environment. Nil means os.Environ().
	Parent []string
	// Lookup reads variables for the secret source. Nil means os.LookupEnv.
	Lookup secrets.LookupFunc
	// Secrets replaces the source NewSource would pick.
	Secrets secrets.Source

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// Signals delivers host signals to forward to the child. Nil subscribes
	// to SIGINT and SIGTERM.
	Signals <-chan os.Signal

	Logger *slog.Logger
}

// BuildSpec resolves the executable and assembles the child environment.
func BuildSpec(ctx context.Context, cfg *config.Config, opts Options) (supervisor.LaunchSpec, error) {
	path, args := cfg.Executable, cfg.Args
	if opts.Executable != "" {
		path, args = opts.Executable, opts.Args
	}
	if path == "" {
		return supervisor.LaunchSpec{}, config.ErrNoExecutable
	}

	vars, err := Environment(ctx, cfg, opts)
	if err != nil {
		return supervisor.LaunchSpec{}, err
	}
	return supervisor.LaunchSpec{Path: path, Args: args, Env: vars}, nil
}

// Environment returns the variables the child would be started with.
// Sources are applied lowest first: inherited environment, env file,
// secrets, config env, command-line env; unset entries are removed last.
func Environment(ctx context.Context, cfg *config.Config, opts Options) (map[string]string, error) {
	parent, layers, envOpts, err := sources(ctx, cfg, opts)
	if err != nil {
		return nil, err
	}
	return env.Build(parent, layers, envOpts), nil
}

// Origins maps each variable Environment would return to the source that
// set it: "inherited", "env_file", "secrets", "config" or "cli".
func Origins(ctx context.Context, cfg *config.Config, opts Options) (map[string]string, error) {
	parent, layers, envOpts, err := sources(ctx, cfg, opts)
	if err != nil {
		return nil, err
	}
	return env.Origins(parent, layers, envOpts), nil
}

func sources(ctx context.Context, cfg *config.Config, opts Options) ([]string, []env.Layer, env.Options, error) {
	var parent []string
	if cfg.Inherit() {
		parent = opts.Parent
		if parent == nil {
			parent = os.Environ()
		}
	}

	dotenv, err := config.LoadEnvFile(cfg.EnvFile, cfg.EnvFileRequired())
	if err != nil {
		return nil, nil, env.Options{}, err
	}

	injected, err := resolveSecrets(ctx, cfg, opts)
	if err != nil {
		return nil, nil, env.Options{}, err
	}

	layers := []env.Layer{
		{Name: "env_file", Vars: dotenv, Override: cfg.EnvFileOverride},
		{Name: "secrets", Vars: injected, Override: true},
		{Name: "config", Vars: cfg.Env, Override: true},
		{Name: "cli", Vars: opts.Env, Override: true},
	}
	return parent, layers, env.Options{
		StripSecrets: cfg.StripSecrets,
		Passthrough:  cfg.EnvPassthrough,
		Unset:        cfg.Unset,
	}, nil
}

func resolveSecrets(ctx context.Context, cfg *config.Config, opts Options) (map[string]string, error) {
	names := secrets.Names(cfg)
	if len(names) == 0 {
		return nil, nil
	}
	src := opts.Secrets
	if src == nil {
		var err error
		if src, err = secrets.NewSource(cfg, opts.Lookup); err != nil {
			return nil, fmt.Errorf("failed to build secret source: %w", err)
		}
	}
	values, err := src.Resolve(ctx, names)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve secrets: %w", err)
	}
	return values, nil
}

// Run builds the launch spec, supervises the child until it exits and
// returns its outcome. The error is non-nil only when nothing could be
// launched because the configuration or its inputs are unusable.
func Run(ctx context.Context, cfg *config.Config, opts Options) (supervisor.ExitOutcome, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	ctx = logging.ContextAttrs(ctx, slog.String("run_id", uuid.NewString()))

	spec, err := BuildSpec(ctx, cfg, opts)
	if err != nil {
		return supervisor.ExitOutcome{}, err
	}

	sup := supervisor.New(supervisor.Options{
		Stdin:     opts.Stdin,
		Stdout:    opts.Stdout,
		Stderr:    opts.Stderr,
		KillAfter: cfg.KillAfter(),
		Logger:    logger,
	})

	stop := forwardSignals(ctx, sup, opts.Signals, logger)
	defer stop()

	logger.InfoContext(ctx, "launching", "executable", spec.Path, "args", len(spec.Args), "env_vars", len(spec.Env))
	outcome, err := sup.Run(ctx, spec)
	if err != nil {
		return supervisor.ExitOutcome{}, err
	}

	switch {
	case outcome.Kind == supervisor.LaunchFailed:
		logger.ErrorContext(ctx, "launch failed",
			"executable", spec.Path,
			"error", outcome.Cause,
			"exit_code", outcome.ExitCode(),
			"hint", "check the executable path in the config or on the command line")
	case outcome.Success():
		logger.InfoContext(ctx, "finished", "executable", spec.Path, "exit_code", 0, "duration", outcome.Duration())
	default:
		logger.WarnContext(ctx, "finished",
			"executable", spec.Path,
			"outcome", outcome.String(),
			"exit_code", outcome.ExitCode(),
			"duration", outcome.Duration())
	}
	return outcome, nil
}

// forwardSignals calls Terminate on sup for every host signal received until
// the returned stop func runs. stop waits for the forwarding goroutine.
func forwardSignals(ctx context.Context, sup *supervisor.Supervisor, sigs <-chan os.Signal, logger *slog.Logger) func() {
	var unsubscribe func()
	if sigs == nil {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
		sigs = ch
		unsubscribe = func() { signal.Stop(ch) }
	}

	done := make(chan struct{})
	var g errgroup.Group
	g.Go(func() error {
		for {
			select {
			case <-done:
				return nil
			case sig, ok := <-sigs:
				if !ok {
					return nil
				}
				logger.InfoContext(ctx, "received signal, terminating child", "signal", sig.String())
				if err := sup.Terminate(); err != nil && !errors.Is(err, supervisor.ErrNotRunning) {
					logger.WarnContext(ctx, "terminate failed", "error", err)
				}
			}
		}
	})

	return func() {
		close(done)
		_ = g.Wait()
		if unsubscribe != nil {
			unsubscribe()
		}
	}
}
