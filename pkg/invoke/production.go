package invoke

import (
	"errors"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"
)

// Production returns a Context that delegates every capability to the
// real operating system: PATH resolution, the process environment, the
// calling program's standard streams, and os/exec process creation.
// The log sink writes to standard error. Production Contexts are safe
// for concurrent use; each invocation spawns an independent process.
func Production() Context {
	return &productionContext{}
}

type productionContext struct {
	logMu sync.Mutex
}

func (p *productionContext) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}

func (p *productionContext) Environ() []string {
	return os.Environ()
}

func (p *productionContext) Workdir() string {
	return ""
}

func (p *productionContext) Stdin() io.Reader {
	return os.Stdin
}

func (p *productionContext) Stdout() io.Writer {
	return os.Stdout
}

func (p *productionContext) Stderr() io.Writer {
	return os.Stderr
}

func (p *productionContext) Log() io.Writer {
	return &lockedWriter{mu: &p.logMu, w: os.Stderr}
}

func (p *productionContext) Spawn(req SpawnRequest) (Handle, error) {
	cmd := &exec.Cmd{
		Path: req.Path,
		Args: req.Args,
		Dir:  req.Dir,
		Env:  req.Env,
	}
	h := &osHandle{cmd: cmd}
	var err error
	if req.PipeStdin {
		if h.stdin, err = cmd.StdinPipe(); err != nil {
			return nil, err
		}
	} else {
		cmd.Stdin = p.Stdin()
	}
	if req.PipeStdout {
		if h.stdout, err = cmd.StdoutPipe(); err != nil {
			return nil, err
		}
	} else {
		cmd.Stdout = p.Stdout()
	}
	if req.PipeStderr {
		if h.stderr, err = cmd.StderrPipe(); err != nil {
			return nil, err
		}
	} else {
		cmd.Stderr = p.Stderr()
	}
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return h, nil
}

type osHandle struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.ReadCloser
	stderr io.ReadCloser
}

func (h *osHandle) StdinPipe() io.WriteCloser { return h.stdin }
func (h *osHandle) StdoutPipe() io.ReadCloser { return h.stdout }
func (h *osHandle) StderrPipe() io.ReadCloser { return h.stderr }

func (h *osHandle) Wait() (Status, error) {
	err := h.cmd.Wait()
	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		return Status{}, err
	}
	state := h.cmd.ProcessState
	status := Status{Code: state.ExitCode()}
	if ws, ok := state.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		status.Signaled = true
		status.Signal = ws.Signal().String()
	}
	return status, nil
}

func (h *osHandle) Kill() error {
	return h.cmd.Process.Kill()
}

// lockedWriter serializes writes to a shared sink so that logged command
// lines from sibling invocations never interleave.
type lockedWriter struct {
	mu *sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}
