package invoke

import (
	"bytes"
	"fmt"
	"io"
	"os/exec"
	"sort"
	"sync"
	"sync/atomic"
)

// Simulated is an in-memory Context: working directory, environment,
// stdin source, stdout/stderr sinks, log sink, and a fake process table
// of registered programs. A CommandSpec executed under Simulated never
// touches the real filesystem, environment, or an OS process, which makes
// tests deterministic and hermetic, with exact assertions on logged
// command lines and captured I/O.
//
// A Simulated Context is scoped to one unit of work: create it at the
// start, run invocations, then Close it to assert no process leaked.
// Sharing one instance across test goroutines requires external
// synchronization.
type Simulated struct {
	mu       sync.Mutex
	cwd      string
	env      map[string]string
	programs map[string]Program
	stdin    []byte
	stdout   lockedBuffer
	stderr   lockedBuffer
	log      lockedBuffer
	live     atomic.Int32
}

// Program is one entry in the fake process table. It runs on its own
// goroutine with the wired streams and returns the exit code.
type Program func(p *ProgramInfo) int

// ProgramInfo is the view a simulated program has of its process: argv
// (program name first), working directory, environment block, wired
// standard streams, and a channel closed when the handle is killed.
type ProgramInfo struct {
	Args   []string
	Dir    string
	Env    []string
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	Killed <-chan struct{}
}

// Getenv returns the value of the named variable in the program's
// environment block, or "".
func (p *ProgramInfo) Getenv(name string) string {
	prefix := name + "="
	for _, entry := range p.Env {
		if len(entry) >= len(prefix) && entry[:len(prefix)] == prefix {
			return entry[len(prefix):]
		}
	}
	return ""
}

// NewSimulated returns an empty simulated Context with working
// directory "/".
func NewSimulated() *Simulated {
	return &Simulated{
		cwd:      "/",
		env:      make(map[string]string),
		programs: make(map[string]Program),
	}
}

// Register adds a program to the fake process table under the given name.
func (s *Simulated) Register(name string, p Program) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.programs[name] = p
}

// Setenv sets one variable in the simulated environment snapshot.
func (s *Simulated) Setenv(name, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.env[name] = value
}

// Chdir sets the simulated working directory.
func (s *Simulated) Chdir(dir string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cwd = dir
}

// SetStdin sets the bytes served to children whose stdin is not piped.
func (s *Simulated) SetStdin(data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stdin = append([]byte(nil), data...)
}

// StdoutString returns everything passed through to the stdout sink.
func (s *Simulated) StdoutString() string { return s.stdout.String() }

// StderrString returns everything passed through to the stderr sink.
func (s *Simulated) StderrString() string { return s.stderr.String() }

// LogString returns everything written to the log sink.
func (s *Simulated) LogString() string { return s.log.String() }

// Close tears down the Context and fails if any spawned process is still
// live, which would mean a leaked handle.
func (s *Simulated) Close() error {
	if n := s.live.Load(); n != 0 {
		return fmt.Errorf("simulated context closed with %d live process(es)", n)
	}
	return nil
}

func (s *Simulated) LookPath(name string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.programs[name]; !ok {
		return "", &exec.Error{Name: name, Err: exec.ErrNotFound}
	}
	return name, nil
}

func (s *Simulated) Environ() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries := make([]string, 0, len(s.env))
	for name, value := range s.env {
		entries = append(entries, name+"="+value)
	}
	sort.Strings(entries)
	return entries
}

func (s *Simulated) Workdir() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cwd
}

func (s *Simulated) Stdin() io.Reader {
	s.mu.Lock()
	defer s.mu.Unlock()
	return bytes.NewReader(s.stdin)
}

func (s *Simulated) Stdout() io.Writer { return &s.stdout }
func (s *Simulated) Stderr() io.Writer { return &s.stderr }
func (s *Simulated) Log() io.Writer    { return &s.log }

func (s *Simulated) Spawn(req SpawnRequest) (Handle, error) {
	s.mu.Lock()
	program, ok := s.programs[req.Path]
	s.mu.Unlock()
	if !ok {
		return nil, &exec.Error{Name: req.Path, Err: exec.ErrNotFound}
	}

	killed := make(chan struct{})
	h := &simHandle{done: make(chan struct{}), killed: killed}
	info := &ProgramInfo{
		Args:   append([]string(nil), req.Args...),
		Dir:    req.Dir,
		Env:    append([]string(nil), req.Env...),
		Killed: killed,
	}
	if req.PipeStdin {
		pr, pw := io.Pipe()
		h.stdin = pw
		h.stdinRead = pr
		info.Stdin = pr
	} else {
		info.Stdin = s.Stdin()
	}
	if req.PipeStdout {
		pr, pw := io.Pipe()
		h.stdout = pr
		h.stdoutWrite = pw
		info.Stdout = pw
	} else {
		info.Stdout = &s.stdout
	}
	if req.PipeStderr {
		pr, pw := io.Pipe()
		h.stderr = pr
		h.stderrWrite = pw
		info.Stderr = pw
	} else {
		info.Stderr = &s.stderr
	}

	s.live.Add(1)
	go func() {
		code := program(info)
		if h.stdoutWrite != nil {
			h.stdoutWrite.Close()
		}
		if h.stderrWrite != nil {
			h.stderrWrite.Close()
		}
		if h.stdinRead != nil {
			h.stdinRead.Close()
		}
		if h.wasKilled() {
			h.status = Status{Code: -1, Signaled: true, Signal: "killed"}
		} else {
			h.status = Status{Code: code}
		}
		s.live.Add(-1)
		close(h.done)
	}()
	return h, nil
}

type simHandle struct {
	stdin       io.WriteCloser
	stdinRead   *io.PipeReader
	stdout      io.ReadCloser
	stdoutWrite *io.PipeWriter
	stderr      io.ReadCloser
	stderrWrite *io.PipeWriter
	status      Status
	done        chan struct{}
	killed      chan struct{}
	killOnce    sync.Once
	killFlag    atomic.Bool
}

func (h *simHandle) StdinPipe() io.WriteCloser { return h.stdin }
func (h *simHandle) StdoutPipe() io.ReadCloser { return h.stdout }
func (h *simHandle) StderrPipe() io.ReadCloser { return h.stderr }

func (h *simHandle) Wait() (Status, error) {
	<-h.done
	return h.status, nil
}

// Kill is cooperative: it closes the program's Killed channel and its
// stdin pipe. The program is expected to return once it observes either.
func (h *simHandle) Kill() error {
	h.killOnce.Do(func() {
		h.killFlag.Store(true)
		close(h.killed)
		if h.stdinRead != nil {
			h.stdinRead.Close()
		}
	})
	return nil
}

func (h *simHandle) wasKilled() bool {
	return h.killFlag.Load()
}

// lockedBuffer is a bytes.Buffer safe for writes from program goroutines
// racing the test goroutine's reads.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
