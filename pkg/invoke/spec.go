package invoke

import (
	"sort"
	"strings"
)

// CommandSpec is the fully assembled description of one child-process
// invocation: the argument tokens (the first token names the executable),
// an optional working-directory override, an environment overlay applied
// on top of the inherited environment, an optional stdin payload, and a
// flag controlling command-line logging.
//
// A CommandSpec is built once with New and is immutable afterwards.
type CommandSpec struct {
	tokens   []string
	dir      string
	env      map[string]string
	stdin    []byte
	hasStdin bool
	logged   bool
}

// Arg is one contribution to a CommandSpec. Contributions are folded
// left-to-right by New: token-producing contributions append positionally,
// scalar contributions (working directory, stdin payload, logging flag)
// overwrite any earlier value.
type Arg interface {
	apply(*CommandSpec) error
}

type argFunc func(*CommandSpec) error

func (f argFunc) apply(s *CommandSpec) error { return f(s) }

// New folds the given contributions into a CommandSpec.
// It fails with ConfigurationError if the resulting token sequence is
// empty or an environment variable with an empty name was added.
func New(args ...Arg) (*CommandSpec, error) {
	spec := &CommandSpec{env: make(map[string]string)}
	for _, arg := range args {
		if err := arg.apply(spec); err != nil {
			return nil, err
		}
	}
	if len(spec.tokens) == 0 {
		return nil, ConfigurationError{Message: "no command given: the token sequence is empty"}
	}
	return spec, nil
}

// Token appends a single argument token verbatim.
func Token(token string) Arg {
	return argFunc(func(s *CommandSpec) error {
		s.tokens = append(s.tokens, token)
		return nil
	})
}

// Args appends each given token in order.
func Args(tokens ...string) Arg {
	return argFunc(func(s *CommandSpec) error {
		s.tokens = append(s.tokens, tokens...)
		return nil
	})
}

// Split splits the given string on whitespace and appends the resulting
// words as separate tokens. Empty fragments are discarded and the relative
// order of the words is preserved. This is the only string-expansion
// behavior supported; no shell syntax is interpreted.
func Split(s string) Arg {
	return argFunc(func(spec *CommandSpec) error {
		spec.tokens = append(spec.tokens, strings.Fields(s)...)
		return nil
	})
}

// Path appends a filesystem path as a single token, never splitting it.
func Path(p string) Arg {
	return argFunc(func(s *CommandSpec) error {
		s.tokens = append(s.tokens, p)
		return nil
	})
}

// Dir overrides the working directory of the child process. A later Dir
// contribution wins over an earlier one.
func Dir(dir string) Arg {
	return argFunc(func(s *CommandSpec) error {
		s.dir = dir
		return nil
	})
}

// Env adds one environment variable to the overlay applied on top of the
// inherited environment. Later writes to the same name win. An empty name
// fails the fold with ConfigurationError.
func Env(name, value string) Arg {
	return argFunc(func(s *CommandSpec) error {
		if name == "" {
			return ConfigurationError{Message: "environment variable with empty name"}
		}
		s.env[name] = value
		return nil
	})
}

// Stdin sets the payload written to the child's standard input. The pipe
// is closed after the full payload is written so the child observes
// end-of-input. A later Stdin contribution replaces an earlier one.
func Stdin(payload []byte) Arg {
	return argFunc(func(s *CommandSpec) error {
		s.stdin = append([]byte(nil), payload...)
		s.hasStdin = true
		return nil
	})
}

// StdinString is Stdin for string payloads.
func StdinString(payload string) Arg {
	return Stdin([]byte(payload))
}

// LogCommand enables logging of the assembled command line to the
// Context's log sink before the process is spawned.
func LogCommand() Arg {
	return argFunc(func(s *CommandSpec) error {
		s.logged = true
		return nil
	})
}

// Splice folds an already-built CommandSpec into the one under
// construction: its tokens are appended, its environment overlay is
// merged (later writes win), and its scalar settings overwrite where set.
func Splice(other *CommandSpec) Arg {
	return argFunc(func(s *CommandSpec) error {
		if other == nil {
			return nil
		}
		s.tokens = append(s.tokens, other.tokens...)
		for name, value := range other.env {
			s.env[name] = value
		}
		if other.dir != "" {
			s.dir = other.dir
		}
		if other.hasStdin {
			s.stdin = append([]byte(nil), other.stdin...)
			s.hasStdin = true
		}
		if other.logged {
			s.logged = true
		}
		return nil
	})
}

// Tokens returns a copy of the argument tokens, executable first.
func (s *CommandSpec) Tokens() []string {
	return append([]string(nil), s.tokens...)
}

// Executable returns the first token.
func (s *CommandSpec) Executable() string {
	return s.tokens[0]
}

// Dir returns the working-directory override, or "" when the child
// inherits the parent's directory.
func (s *CommandSpec) Dir() string {
	return s.dir
}

// EnvOverlay returns a copy of the environment overlay.
func (s *CommandSpec) EnvOverlay() map[string]string {
	overlay := make(map[string]string, len(s.env))
	for name, value := range s.env {
		overlay[name] = value
	}
	return overlay
}

// StdinPayload returns the stdin payload and whether one was set.
func (s *CommandSpec) StdinPayload() ([]byte, bool) {
	if !s.hasStdin {
		return nil, false
	}
	return append([]byte(nil), s.stdin...), true
}

// Logged reports whether command-line logging is enabled.
func (s *CommandSpec) Logged() bool {
	return s.logged
}

// mergeEnviron applies the overlay on top of the inherited environment.
// Overlay values win over inherited ones. The result is sorted so the
// child sees a deterministic environment block.
func mergeEnviron(base []string, overlay map[string]string) []string {
	merged := make(map[string]string, len(base)+len(overlay))
	for _, entry := range base {
		if name, value, ok := strings.Cut(entry, "="); ok {
			merged[name] = value
		}
	}
	for name, value := range overlay {
		merged[name] = value
	}
	result := make([]string, 0, len(merged))
	for name, value := range merged {
		result = append(result, name+"="+value)
	}
	sort.Strings(result)
	return result
}
