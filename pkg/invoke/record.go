package invoke

// Status is the termination outcome of one child process.
type Status struct {
	// Code is the exit code, or -1 when the process was signaled.
	Code int
	// Signaled reports whether the process was terminated by a signal.
	Signaled bool
	// Signal names the terminating signal when Signaled is true.
	Signal string
}

// Success reports whether the process exited normally with code zero.
func (s Status) Success() bool {
	return !s.Signaled && s.Code == 0
}

// Record is the immutable result of running one CommandSpec once.
// It is produced exactly once by the engine and consumed only by facet
// extraction and the status policy; stream fields are nil when the
// corresponding stream was not piped.
type Record struct {
	RunID    string
	Stdout   []byte
	Stderr   []byte
	Combined []byte
	Status   Status
}
