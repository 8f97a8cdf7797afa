package supervisor

import (
	"errors"
	"fmt"
	"io/fs"
	"os/exec"
	"time"
)

// Kind tags an ExitOutcome.
type Kind int

const (
	// Completed means the child ran and reported an exit status.
	Completed Kind = iota + 1
	// TerminatedBySignal means the child was killed by a signal.
	TerminatedBySignal
	// LaunchFailed means the OS refused to create the child.
	LaunchFailed
)

func (k Kind) String() string {
	switch k {
	case Completed:
		return "completed"
	case TerminatedBySignal:
		return "terminated_by_signal"
	case LaunchFailed:
		return "launch_failed"
	default:
		return "unknown"
	}
}

// Exit codes reported for outcomes that carry no child status of their own.
const (
	ExitCodeNotFound      = 127
	ExitCodeCannotExecute = 126
	signalExitBase        = 128
)

// ExitOutcome is the result of one supervision cycle.
type ExitOutcome struct {
	Kind Kind

	// Code is the child's exit status. Only meaningful for Completed.
	Code int
	// Signal is the number of the signal that killed the child. Only
	// meaningful for TerminatedBySignal.
	Signal int
	// Cause explains a LaunchFailed outcome.
	Cause error

	Path    string
	PID     int
	Started time.Time
	Stopped time.Time
}

// Success reports whether the child completed with status 0.
func (o ExitOutcome) Success() bool {
	return o.Kind == Completed && o.Code == 0
}

// Duration is the wall-clock time between launch and exit.
func (o ExitOutcome) Duration() time.Duration {
	if o.Started.IsZero() || o.Stopped.IsZero() {
		return 0
	}
	return o.Stopped.Sub(o.Started)
}

// ExitCode translates the outcome into a status suitable for the hosting
// program's own exit: the child's code, 128+signal for a signal death, 127
// when the executable does not exist and 126 for any other launch failure.
func (o ExitOutcome) ExitCode() int {
	switch o.Kind {
	case Completed:
		return o.Code
	case TerminatedBySignal:
		return signalExitBase + o.Signal
	case LaunchFailed:
		if errors.Is(o.Cause, fs.ErrNotExist) || errors.Is(o.Cause, exec.ErrNotFound) {
			return ExitCodeNotFound
		}
		return ExitCodeCannotExecute
	default:
		return 1
	}
}

func (o ExitOutcome) String() string {
	switch o.Kind {
	case Completed:
		return fmt.Sprintf("exited with status %d", o.Code)
	case TerminatedBySignal:
		return fmt.Sprintf("terminated by %s", signalName(o.Signal))
	case LaunchFailed:
		return fmt.Sprintf("launch failed: %v", o.Cause)
	default:
		return "no outcome"
	}
}

// Err returns nil for a successful outcome and an *OutcomeError otherwise.
func (o ExitOutcome) Err() error {
	if o.Success() {
		return nil
	}
	return &OutcomeError{Outcome: o}
}

// OutcomeError lets a non-successful ExitOutcome travel through error returns.
type OutcomeError struct {
	Outcome ExitOutcome
}

func (e *OutcomeError) Error() string {
	if e.Outcome.Path == "" {
		return e.Outcome.String()
	}
	return e.Outcome.Path + ": " + e.Outcome.String()
}

func (e *OutcomeError) Unwrap() error {
	return e.Outcome.Cause
}
