package invoke

import (
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// ConfigurationError reports a malformed CommandSpec: an empty token
// sequence or an environment variable with an empty name.
type ConfigurationError struct {
	Message string
}

func (e ConfigurationError) Error() string {
	return e.Message
}

// SpawnError reports a failure before any process output exists:
// executable resolution failed, the log line could not be written, or
// the OS refused to spawn.
type SpawnError struct {
	Executable string
	Command    string
	Err        error
}

func (e SpawnError) Error() string {
	return fmt.Sprintf("spawning '%s' failed: %v", e.Executable, e.Err)
}

func (e SpawnError) Unwrap() error {
	return e.Err
}

// NotFound reports whether the executable could not be resolved.
func (e SpawnError) NotFound() bool {
	return errors.Is(e.Err, exec.ErrNotFound)
}

// IoError reports a mid-flight pipe read or write failure. Whatever output
// was captured before the failure is preserved for diagnostics.
type IoError struct {
	Command       string
	Stage         string // "stdin", "stdout", "stderr" or "wait"
	PartialStdout []byte
	PartialStderr []byte
	Err           error
}

func (e IoError) Error() string {
	return fmt.Sprintf("%s:\n  i/o error on %s: %v", e.Command, e.Stage, e.Err)
}

func (e IoError) Unwrap() error {
	return e.Err
}

// EncodingError reports that a text-shaped facet was requested but the
// captured bytes are not valid UTF-8. Offset is the position of the first
// invalid byte sequence.
type EncodingError struct {
	Command string
	Stream  string // "stdout" or "stderr"
	Offset  int
}

func (e EncodingError) Error() string {
	return fmt.Sprintf("%s:\n  invalid utf-8 written to %s at byte %d", e.Command, e.Stream, e.Offset)
}

// StatusError reports that the child terminated unsuccessfully while no
// status-shaped facet was requested. Stderr holds the captured standard
// error when it was captured, nil otherwise.
type StatusError struct {
	Command string
	Status  Status
	Stderr  []byte
}

func (e StatusError) Error() string {
	var b strings.Builder
	if e.Status.Signaled {
		fmt.Fprintf(&b, "%s:\n  terminated by signal: %s", e.Command, e.Status.Signal)
	} else {
		fmt.Fprintf(&b, "%s:\n  exited with exit code: %d", e.Command, e.Status.Code)
	}
	if len(e.Stderr) > 0 {
		fmt.Fprintf(&b, "\n  stderr: %s", strings.TrimRight(string(e.Stderr), "\n"))
	}
	return b.String()
}
