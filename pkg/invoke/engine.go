// Package invoke composes child-process invocations from small typed
// contributions, runs them, and projects the outcome into exactly the
// result facets the caller asked for. Every OS-facing capability goes
// through a Context, so the whole engine can run against an in-memory
// simulation in tests.
package invoke

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sync"
	"syscall"

	"github.com/google/uuid"
)

// Run executes one CommandSpec under the given Context and returns the
// facets named by the request. The call blocks until the child
// terminates. Nonzero exit or signal termination is an error only when
// no status-shaped facet was requested; see StatusError.
func Run(ctx Context, spec *CommandSpec, req OutputRequest) (*Result, error) {
	inv, err := Start(ctx, spec, req)
	if err != nil {
		return nil, err
	}
	return inv.Wait()
}

// Start spawns the process and returns the live invocation without
// waiting for termination. This exposes the process handle so a caller
// wanting a timeout can race Wait against an external timer and Kill the
// process; the engine itself has no cancellation primitive.
func Start(ctx Context, spec *CommandSpec, req OutputRequest) (*Invocation, error) {
	if spec == nil || len(spec.tokens) == 0 {
		return nil, ConfigurationError{Message: "no command given: the token sequence is empty"}
	}
	command := spec.CommandLine()

	path, err := ctx.LookPath(spec.tokens[0])
	if err != nil {
		return nil, SpawnError{Executable: spec.tokens[0], Command: command, Err: err}
	}

	if spec.logged {
		if _, err := fmt.Fprintf(ctx.Log(), "+ %s\n", command); err != nil {
			// No process exists yet, so this is a launch failure, not a
			// mid-flight pipe failure.
			return nil, SpawnError{
				Executable: spec.tokens[0],
				Command:    command,
				Err:        fmt.Errorf("writing log line: %w", err),
			}
		}
	}

	dir := spec.dir
	if dir == "" {
		dir = ctx.Workdir()
	}

	handle, err := ctx.Spawn(SpawnRequest{
		Path:       path,
		Args:       spec.Tokens(),
		Dir:        dir,
		Env:        mergeEnviron(ctx.Environ(), spec.env),
		PipeStdin:  spec.hasStdin,
		PipeStdout: req.CaptureStdout(),
		PipeStderr: req.CaptureStderr(),
	})
	if err != nil {
		return nil, SpawnError{Executable: spec.tokens[0], Command: command, Err: err}
	}

	inv := &Invocation{
		command:      command,
		req:          req,
		runID:        uuid.New().String(),
		handle:       handle,
		wantCombined: req.Has(Combined),
	}
	inv.startPumps(spec)
	return inv, nil
}

// Invocation is one live child process together with its stream pumps.
// It is produced by Start and consumed exactly once by Wait.
type Invocation struct {
	command      string
	req          OutputRequest
	runID        string
	handle       Handle
	wantCombined bool

	wg        sync.WaitGroup
	stdoutBuf bytes.Buffer
	stderrBuf bytes.Buffer

	mu       sync.Mutex
	combined bytes.Buffer
	ioStage  string
	ioErr    error
}

// RunID identifies this invocation.
func (inv *Invocation) RunID() string {
	return inv.runID
}

// Kill terminates the live process. The pending Wait then returns,
// normally with a StatusError describing the signal termination.
func (inv *Invocation) Kill() error {
	return inv.handle.Kill()
}

// startPumps wires one goroutine per piped stream. Draining stdout and
// stderr on independent goroutines is what prevents the classic deadlock
// where a blocking read on one pipe starves the other until the child
// fills its OS buffer. The stdin writer runs on a third goroutine and
// closes the pipe after the payload so the child observes end-of-input.
func (inv *Invocation) startPumps(spec *CommandSpec) {
	if inv.req.CaptureStdout() {
		inv.wg.Add(1)
		go inv.pump("stdout", inv.handle.StdoutPipe(), &inv.stdoutBuf)
	}
	if inv.req.CaptureStderr() {
		inv.wg.Add(1)
		go inv.pump("stderr", inv.handle.StderrPipe(), &inv.stderrBuf)
	}
	if payload, ok := spec.StdinPayload(); ok {
		inv.wg.Add(1)
		go func() {
			defer inv.wg.Done()
			w := inv.handle.StdinPipe()
			_, err := w.Write(payload)
			if cerr := w.Close(); err == nil {
				err = cerr
			}
			if err != nil && !ignorableStdinError(err) {
				inv.recordIOErr("stdin", err)
			}
		}()
	}
}

func (inv *Invocation) pump(stream string, r io.ReadCloser, buf *bytes.Buffer) {
	defer inv.wg.Done()
	chunk := make([]byte, 4096)
	for {
		n, err := r.Read(chunk)
		if n > 0 {
			buf.Write(chunk[:n])
			if inv.wantCombined {
				inv.mu.Lock()
				inv.combined.Write(chunk[:n])
				inv.mu.Unlock()
			}
		}
		if err != nil {
			if err != io.EOF {
				inv.recordIOErr(stream, err)
			}
			return
		}
	}
}

func (inv *Invocation) recordIOErr(stage string, err error) {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	if inv.ioErr == nil {
		inv.ioStage = stage
		inv.ioErr = err
	}
}

// ignorableStdinError filters the broken-pipe family: a child that exits
// without consuming its stdin is not an invocation failure.
func ignorableStdinError(err error) bool {
	return errors.Is(err, io.ErrClosedPipe) || errors.Is(err, syscall.EPIPE)
}

// Wait blocks until the child terminates and all stream pumps drained,
// then finalizes the Record, applies the status policy, and extracts the
// requested facets.
func (inv *Invocation) Wait() (*Result, error) {
	inv.wg.Wait()

	status, waitErr := inv.handle.Wait()

	rec := &Record{RunID: inv.runID, Status: status}
	if inv.req.CaptureStdout() {
		rec.Stdout = inv.stdoutBuf.Bytes()
	}
	if inv.req.CaptureStderr() {
		rec.Stderr = inv.stderrBuf.Bytes()
	}
	if inv.wantCombined {
		rec.Combined = inv.combined.Bytes()
	}

	if waitErr != nil {
		return nil, IoError{
			Command:       inv.command,
			Stage:         "wait",
			PartialStdout: rec.Stdout,
			PartialStderr: rec.Stderr,
			Err:           waitErr,
		}
	}
	inv.mu.Lock()
	ioStage, ioErr := inv.ioStage, inv.ioErr
	inv.mu.Unlock()
	if ioErr != nil {
		return nil, IoError{
			Command:       inv.command,
			Stage:         ioStage,
			PartialStdout: rec.Stdout,
			PartialStderr: rec.Stderr,
			Err:           ioErr,
		}
	}

	if !status.Success() && !inv.req.wantsStatus() {
		return nil, StatusError{Command: inv.command, Status: status, Stderr: rec.Stderr}
	}

	return inv.req.extract(rec, inv.command)
}
