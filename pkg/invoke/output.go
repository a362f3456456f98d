package invoke

import (
	"sort"
	"strings"
	"unicode/utf8"
)

// Facet names one derivable piece of the result of an invocation.
// The caller declares the full set of wanted facets before the process is
// spawned; a stream is piped and buffered only if some requested facet
// needs it.
type Facet int

const (
	// ExitCode requests the child's exit code. Requesting it (or Success)
	// suppresses StatusError on unsuccessful termination.
	ExitCode Facet = iota + 1
	// Success requests the boolean success flag of the termination outcome.
	Success
	// StdoutBytes requests the raw captured stdout bytes.
	StdoutBytes
	// StdoutText requests captured stdout decoded as UTF-8 text.
	StdoutText
	// StdoutTrimmed requests captured stdout decoded as UTF-8 text with
	// trailing newlines trimmed.
	StdoutTrimmed
	// StderrBytes requests the raw captured stderr bytes.
	StderrBytes
	// StderrText requests captured stderr decoded as UTF-8 text.
	StderrText
	// StderrTrimmed requests captured stderr decoded as UTF-8 text with
	// trailing newlines trimmed.
	StderrTrimmed
	// Combined requests stdout and stderr interleaved in arrival order.
	Combined
	// Discard requests nothing: no capture buffers are allocated and no
	// stream is piped.
	Discard
)

func (f Facet) String() string {
	switch f {
	case ExitCode:
		return "exit-code"
	case Success:
		return "success"
	case StdoutBytes:
		return "stdout-bytes"
	case StdoutText:
		return "stdout-text"
	case StdoutTrimmed:
		return "stdout-trimmed"
	case StderrBytes:
		return "stderr-bytes"
	case StderrText:
		return "stderr-text"
	case StderrTrimmed:
		return "stderr-trimmed"
	case Combined:
		return "combined"
	case Discard:
		return "discard"
	}
	return "unknown"
}

// OutputRequest is the caller's declared set of wanted facets. It is known
// entirely before spawning and decides which streams are piped versus
// passed through to the Context's sinks.
type OutputRequest struct {
	facets map[Facet]struct{}
}

// Want builds an OutputRequest from the given facets. An empty request
// captures nothing and behaves like Want(Discard).
func Want(facets ...Facet) OutputRequest {
	set := make(map[Facet]struct{}, len(facets))
	for _, f := range facets {
		set[f] = struct{}{}
	}
	return OutputRequest{facets: set}
}

// Has reports whether the facet was requested.
func (r OutputRequest) Has(f Facet) bool {
	_, ok := r.facets[f]
	return ok
}

// Facets returns the requested facets in stable order.
func (r OutputRequest) Facets() []Facet {
	facets := make([]Facet, 0, len(r.facets))
	for f := range r.facets {
		facets = append(facets, f)
	}
	sort.Slice(facets, func(i, j int) bool { return facets[i] < facets[j] })
	return facets
}

// CaptureStdout reports whether some requested facet needs stdout piped
// and buffered.
func (r OutputRequest) CaptureStdout() bool {
	return r.Has(StdoutBytes) || r.Has(StdoutText) || r.Has(StdoutTrimmed) || r.Has(Combined)
}

// CaptureStderr reports whether some requested facet needs stderr piped
// and buffered.
func (r OutputRequest) CaptureStderr() bool {
	return r.Has(StderrBytes) || r.Has(StderrText) || r.Has(StderrTrimmed) || r.Has(Combined)
}

// wantsStatus reports whether a status-shaped facet was requested, which
// is the opt-out signal for StatusError regardless of what else is in the
// request.
func (r OutputRequest) wantsStatus() bool {
	return r.Has(ExitCode) || r.Has(Success)
}

// Result carries the requested facets of one completed invocation.
// Only fields corresponding to requested facets are populated.
type Result struct {
	// RunID uniquely identifies the invocation that produced this result.
	RunID string
	// Status is populated when ExitCode or Success was requested.
	Status Status
	// Stdout holds the raw bytes when StdoutBytes was requested.
	Stdout []byte
	// StdoutText holds decoded stdout when StdoutText was requested.
	StdoutText string
	// StdoutTrimmed holds decoded stdout with trailing newlines trimmed
	// when StdoutTrimmed was requested.
	StdoutTrimmed string
	// Stderr holds the raw bytes when StderrBytes was requested.
	Stderr []byte
	// StderrText holds decoded stderr when StderrText was requested.
	StderrText string
	// StderrTrimmed holds decoded stderr with trailing newlines trimmed
	// when StderrTrimmed was requested.
	StderrTrimmed string
	// Combined holds the arrival-order interleaving of stdout and stderr
	// when Combined was requested.
	Combined []byte
}

// extract projects a completed record into the requested typed result.
// It is pure over the record; closed pipes are never re-read. Decoding to
// text fails with EncodingError only for text-shaped facets; byte-shaped
// facets never fail.
func (r OutputRequest) extract(rec *Record, command string) (*Result, error) {
	res := &Result{RunID: rec.RunID}
	if r.wantsStatus() {
		res.Status = rec.Status
	}
	if r.Has(StdoutBytes) {
		res.Stdout = append([]byte(nil), rec.Stdout...)
	}
	if r.Has(StdoutText) || r.Has(StdoutTrimmed) {
		text, err := decodeText(rec.Stdout, "stdout", command)
		if err != nil {
			return nil, err
		}
		if r.Has(StdoutText) {
			res.StdoutText = text
		}
		if r.Has(StdoutTrimmed) {
			res.StdoutTrimmed = strings.TrimRight(text, "\r\n")
		}
	}
	if r.Has(StderrBytes) {
		res.Stderr = append([]byte(nil), rec.Stderr...)
	}
	if r.Has(StderrText) || r.Has(StderrTrimmed) {
		text, err := decodeText(rec.Stderr, "stderr", command)
		if err != nil {
			return nil, err
		}
		if r.Has(StderrText) {
			res.StderrText = text
		}
		if r.Has(StderrTrimmed) {
			res.StderrTrimmed = strings.TrimRight(text, "\r\n")
		}
	}
	if r.Has(Combined) {
		res.Combined = append([]byte(nil), rec.Combined...)
	}
	return res, nil
}

func decodeText(b []byte, stream, command string) (string, error) {
	if !utf8.Valid(b) {
		return "", EncodingError{Command: command, Stream: stream, Offset: invalidOffset(b)}
	}
	return string(b), nil
}

// invalidOffset returns the byte offset of the first invalid UTF-8
// sequence. The caller guarantees one exists.
func invalidOffset(b []byte) int {
	for i := 0; i < len(b); {
		r, size := utf8.DecodeRune(b[i:])
		if r == utf8.RuneError && size == 1 {
			return i
		}
		i += size
	}
	return -1
}
