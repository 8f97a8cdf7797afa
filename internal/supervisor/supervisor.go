// Package supervisor runs exactly one child process at a time: it launches
// the child with an explicit environment, blocks until the child exits and
// reports how it ended as an ExitOutcome.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "launchwarden"

// DefaultKillAfter is how long a terminated child may take to exit before it
// is killed outright.
const DefaultKillAfter = 10 * time.Second

var (
	ErrEmptyPath     = errors.New("launch spec has no executable path")
	ErrRunInProgress = errors.New("supervisor already has a child in flight")
	ErrNotRunning    = errors.New("no child process is running")
)

// State is the lifecycle position of the current (or most recent) run.
type State int

const (
	StateNotStarted State = iota
	StateLaunching
	StateRunning
	StateCompleted
	StateTerminatedBySignal
	StateLaunchFailed
)

func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not_started"
	case StateLaunching:
		return "launching"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateTerminatedBySignal:
		return "terminated_by_signal"
	case StateLaunchFailed:
		return "launch_failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition is possible for this run.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateTerminatedBySignal || s == StateLaunchFailed
}

func stateFor(k Kind) State {
	switch k {
	case Completed:
		return StateCompleted
	case TerminatedBySignal:
		return StateTerminatedBySignal
	default:
		return StateLaunchFailed
	}
}

// ChildHandle identifies the running child. It is only valid while the
// supervisor reports StateRunning.
type ChildHandle struct {
	PID     int
	Path    string
	Started time.Time
}

// Options configures a Supervisor.
type Options struct {
	// Standard streams handed to the child. Nil means inherit from this
	// process.
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// KillAfter bounds how long a child may ignore a termination request.
	// Defaults to DefaultKillAfter.
	KillAfter time.Duration

	Logger *slog.Logger
}

// Supervisor owns the lifecycle of one child process at a time.
type Supervisor struct {
	stdin     io.Reader
	stdout    io.Writer
	stderr    io.Writer
	killAfter time.Duration
	logger    *slog.Logger

	tracer      trace.Tracer
	runCounter  metric.Int64Counter
	runDuration metric.Float64Histogram

	mu               sync.Mutex
	state            State
	proc             *os.Process
	handle           ChildHandle
	pendingTerminate bool
	killTimer        *time.Timer
}

// New creates a Supervisor in StateNotStarted.
func New(opts Options) *Supervisor {
	if opts.Stdin == nil {
		opts.Stdin = os.Stdin
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if opts.KillAfter <= 0 {
		opts.KillAfter = DefaultKillAfter
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	meter := otel.Meter(instrumentationName)
	//nolint:errcheck // meter creation errors are non-fatal
	runCounter, _ := meter.Int64Counter("launchwarden.runs.total",
		metric.WithDescription("Total number of supervised runs by outcome"))
	//nolint:errcheck // meter creation errors are non-fatal
	runDuration, _ := meter.Float64Histogram("launchwarden.run.duration",
		metric.WithDescription("Wall-clock lifetime of supervised children in seconds"),
		metric.WithUnit("s"))

	return &Supervisor{
		stdin:       opts.Stdin,
		stdout:      opts.Stdout,
		stderr:      opts.Stderr,
		killAfter:   opts.KillAfter,
		logger:      opts.Logger,
		tracer:      otel.Tracer(instrumentationName),
		runCounter:  runCounter,
		runDuration: runDuration,
	}
}

// State returns the lifecycle state of the current or most recent run.
func (s *Supervisor) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Handle returns the running child, or false when no child is running.
func (s *Supervisor) Handle() (ChildHandle, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateRunning {
		return ChildHandle{}, false
	}
	return s.handle, true
}

// Run starts the child described by spec and blocks until it exits.
//
// Everything that happens to the child, including a failure to start it, is
// reported through the returned ExitOutcome. The error is non-nil only when
// no launch was attempted: ErrEmptyPath, or ErrRunInProgress when another Run
// on this Supervisor has not returned yet.
//
// Cancelling ctx terminates the child the same way Terminate does.
func (s *Supervisor) Run(ctx context.Context, spec LaunchSpec) (ExitOutcome, error) {
	if spec.Path == "" {
		return ExitOutcome{}, ErrEmptyPath
	}
	spec = spec.clone()

	s.mu.Lock()
	if s.state == StateLaunching || s.state == StateRunning {
		s.mu.Unlock()
		return ExitOutcome{}, ErrRunInProgress
	}
	s.state = StateLaunching
	s.pendingTerminate = false
	s.mu.Unlock()

	ctx, span := s.tracer.Start(ctx, "supervisor.run",
		trace.WithAttributes(
			attribute.String("process.executable.path", spec.Path),
			attribute.Int("process.args.count", len(spec.Args)),
		),
	)
	defer span.End()

	cmd := exec.CommandContext(ctx, spec.Path, spec.Args...)
	cmd.Env = spec.Environ()
	cmd.Stdin = s.stdin
	cmd.Stdout = s.stdout
	cmd.Stderr = s.stderr
	cmd.Cancel = func() error {
		return terminateProcess(cmd.Process)
	}
	cmd.WaitDelay = s.killAfter

	started := time.Now()
	if err := cmd.Start(); err != nil {
		outcome := ExitOutcome{
			Kind:    LaunchFailed,
			Cause:   err,
			Path:    spec.Path,
			Started: started,
			Stopped: time.Now(),
		}
		s.finish(ctx, span, outcome)
		return outcome, nil
	}

	s.mu.Lock()
	s.state = StateRunning
	s.proc = cmd.Process
	s.handle = ChildHandle{PID: cmd.Process.Pid, Path: spec.Path, Started: started}
	if s.pendingTerminate {
		if err := s.terminateLocked(); err != nil {
			s.logger.WarnContext(ctx, "deferred terminate failed", "pid", cmd.Process.Pid, "error", err)
		}
	}
	s.mu.Unlock()

	span.SetAttributes(attribute.Int("process.pid", cmd.Process.Pid))
	s.logger.DebugContext(ctx, "child started", "executable", spec.Path, "pid", cmd.Process.Pid)

	waitErr := cmd.Wait()
	outcome := outcomeFromState(cmd.ProcessState, waitErr)
	if waitErr != nil && cmd.ProcessState != nil {
		var exitErr *exec.ExitError
		if !errors.As(waitErr, &exitErr) {
			s.logger.DebugContext(ctx, "wait returned after child exit", "pid", cmd.Process.Pid, "error", waitErr)
		}
	}
	outcome.Path = spec.Path
	outcome.PID = cmd.Process.Pid
	outcome.Started = started
	outcome.Stopped = time.Now()

	s.finish(ctx, span, outcome)
	return outcome, nil
}

// Terminate asks the running child to exit and kills it if it is still alive
// after the KillAfter grace period. The pending Run then returns. A request
// made while the child is still being launched is delivered once it starts.
func (s *Supervisor) Terminate() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateLaunching:
		s.pendingTerminate = true
		return nil
	case StateRunning:
		return s.terminateLocked()
	default:
		return ErrNotRunning
	}
}

func (s *Supervisor) terminateLocked() error {
	proc := s.proc
	if err := terminateProcess(proc); err != nil {
		if errors.Is(err, os.ErrProcessDone) {
			return ErrNotRunning
		}
		return fmt.Errorf("terminate pid %d: %w", proc.Pid, err)
	}
	if s.killTimer == nil {
		s.killTimer = time.AfterFunc(s.killAfter, func() {
			if err := proc.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
				s.logger.Warn("kill after grace period failed", "pid", proc.Pid, "error", err)
			}
		})
	}
	return nil
}

func (s *Supervisor) finish(ctx context.Context, span trace.Span, outcome ExitOutcome) {
	s.mu.Lock()
	if s.killTimer != nil {
		s.killTimer.Stop()
		s.killTimer = nil
	}
	s.proc = nil
	s.handle = ChildHandle{}
	s.pendingTerminate = false
	s.state = stateFor(outcome.Kind)
	s.mu.Unlock()

	kind := attribute.String("outcome", outcome.Kind.String())
	span.SetAttributes(kind, attribute.Int("process.exit.code", outcome.ExitCode()))
	if !outcome.Success() {
		span.SetStatus(codes.Error, outcome.String())
	}
	s.runCounter.Add(ctx, 1, metric.WithAttributes(kind))
	s.runDuration.Record(ctx, outcome.Duration().Seconds(), metric.WithAttributes(kind))

	s.logger.DebugContext(ctx, "child finished",
		"executable", outcome.Path,
		"outcome", outcome.Kind.String(),
		"exit_code", outcome.ExitCode(),
		"duration", outcome.Duration())
}

func outcomeFromState(state *os.ProcessState, waitErr error) ExitOutcome {
	if state == nil {
		return ExitOutcome{Kind: LaunchFailed, Cause: waitErr}
	}
	if sig, ok := exitSignal(state); ok {
		return ExitOutcome{Kind: TerminatedBySignal, Signal: sig}
	}
	return ExitOutcome{Kind: Completed, Code: state.ExitCode()}
}
