package runner

import (
	"fmt"
	"time"

	"github.com/gmahomarf/msbuild-runner/internal/command"
)

// Kind classifies how a run ended.
type Kind string

const (
	// Succeeded means the process exited with code 0.
	Succeeded Kind = "succeeded"
	// FailedWithCode means the process ran and exited non-zero.
	FailedWithCode Kind = "failed_with_code"
	// FailedToSpawn means the process could not be started or failed at
	// the OS level before reporting an exit code.
	FailedToSpawn Kind = "failed_to_spawn"
)

// Outcome is the terminal state of one run.
type Outcome struct {
	RunID    string          // unique identifier for this run
	Project  string          // project or solution that was built, may be empty
	Command  command.Command // what was spawned
	Kind     Kind
	Code     int   // exit code, meaningful for Succeeded and FailedWithCode
	Cause    error // spawn or wait error, set for FailedToSpawn
	Started  time.Time
	Duration time.Duration
}

// Err returns the error a caller should see for this outcome. Failures are
// only surfaced when errorOnFail is set; spawn causes are returned as is.
func (o *Outcome) Err(errorOnFail bool) error {
	if !errorOnFail {
		return nil
	}
	switch o.Kind {
	case FailedWithCode:
		return &ExitError{Code: o.Code}
	case FailedToSpawn:
		return o.Cause
	}
	return nil
}

// Message is the uncoloured banner logged for this outcome.
func (o *Outcome) Message() string {
	switch o.Kind {
	case Succeeded:
		return "Build complete!"
	case FailedWithCode:
		return fmt.Sprintf("Build failed with code %d!", o.Code)
	default:
		return "Build failed!"
	}
}

// ExitError reports a build tool that exited with a non-zero code.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("build failed with code %d", e.Code)
}
