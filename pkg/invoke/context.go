package invoke

import "io"

// Context bundles every OS-facing capability the engine uses: working
// directory, environment snapshot, the stdin source and stdout/stderr
// passthrough sinks, the log sink, and the spawn primitive. Production
// delegates to the real operating system; Simulated redirects everything
// to in-memory state so tests run hermetically.
//
// A Context is scoped to a unit of work by the caller and may be shared
// read-mostly across sibling invocations within that scope.
type Context interface {
	// LookPath resolves an executable name. The returned error wraps
	// exec.ErrNotFound when resolution fails.
	LookPath(name string) (string, error)
	// Environ returns the inherited environment as "NAME=value" entries.
	Environ() []string
	// Workdir returns the default working directory, or "" to inherit
	// the calling process's directory.
	Workdir() string
	// Stdin is the passthrough source for a child whose stdin is not piped.
	Stdin() io.Reader
	// Stdout is the passthrough sink for a child whose stdout is not piped.
	Stdout() io.Writer
	// Stderr is the passthrough sink for a child whose stderr is not piped.
	Stderr() io.Writer
	// Log is the sink for logged command lines. Writes through the
	// returned writer are serialized across invocations sharing this
	// Context.
	Log() io.Writer
	// Spawn starts one child process.
	Spawn(req SpawnRequest) (Handle, error)
}

// SpawnRequest describes one process to spawn: the resolved executable
// path, the full argv (token list, executable reference first), working
// directory, complete environment block, and which standard streams are
// piped. A stream that is not piped is connected to the Context's
// passthrough source or sink.
type SpawnRequest struct {
	Path       string
	Args       []string
	Dir        string
	Env        []string
	PipeStdin  bool
	PipeStdout bool
	PipeStderr bool
}

// Handle is one live child process. The pipe accessors return nil for
// streams that were not piped. Wait blocks until termination and reports
// the outcome; a nonzero exit code is a Status, not an error. Kill
// terminates the process; the blocking Wait then returns.
type Handle interface {
	StdinPipe() io.WriteCloser
	StdoutPipe() io.ReadCloser
	StderrPipe() io.ReadCloser
	Wait() (Status, error)
	Kill() error
}
