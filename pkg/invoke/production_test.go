package invoke

import (
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireUnix(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("production tests rely on unix shell utilities")
	}
}

func TestProduction_CapturesStdout(t *testing.T) {
	requireUnix(t)

	res, err := Run(Production(), mustSpec(t, Args("echo", "foo")), Want(StdoutText))
	require.NoError(t, err)
	assert.Equal(t, "foo\n", res.StdoutText)
}

// The same echo-style command yields identical captured stdout under the
// production and simulated contexts.
func TestProduction_MatchesSimulatedEcho(t *testing.T) {
	requireUnix(t)

	spec := mustSpec(t, Args("echo", "one", "two"))

	prod, err := Run(Production(), spec, Want(StdoutText))
	require.NoError(t, err)

	sim := NewSimulated()
	defer func() { require.NoError(t, sim.Close()) }()
	sim.Register("echo", func(p *ProgramInfo) int {
		fmt.Fprintln(p.Stdout, strings.Join(p.Args[1:], " "))
		return 0
	})
	simulated, err := Run(sim, spec, Want(StdoutText))
	require.NoError(t, err)

	assert.Equal(t, prod.StdoutText, simulated.StdoutText)
}

func TestProduction_ExitCodeFacet(t *testing.T) {
	requireUnix(t)

	res, err := Run(Production(), mustSpec(t, Args("sh", "-c", "exit 7")), Want(StdoutText, ExitCode))
	require.NoError(t, err)
	assert.Equal(t, 7, res.Status.Code)
	assert.Empty(t, res.StdoutText)
}

func TestProduction_UnrequestedFailure(t *testing.T) {
	requireUnix(t)

	_, err := Run(Production(), mustSpec(t, Args("sh", "-c", "echo oops 1>&2; exit 3")), Want(StderrText))
	var statusErr StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, 3, statusErr.Status.Code)
	assert.Equal(t, "oops\n", string(statusErr.Stderr))
}

func TestProduction_BothStreams(t *testing.T) {
	requireUnix(t)

	res, err := Run(Production(),
		mustSpec(t, Args("sh", "-c", "echo out; echo err 1>&2")),
		Want(StdoutText, StderrText),
	)
	require.NoError(t, err)
	assert.Equal(t, "out\n", res.StdoutText)
	assert.Equal(t, "err\n", res.StderrText)
}

func TestProduction_StdinPayload(t *testing.T) {
	requireUnix(t)

	res, err := Run(Production(), mustSpec(t, Token("cat"), StdinString("hello stdin")), Want(StdoutText))
	require.NoError(t, err)
	assert.Equal(t, "hello stdin", res.StdoutText)
}

func TestProduction_NotFound(t *testing.T) {
	_, err := Run(Production(), mustSpec(t, Token("definitely-not-a-real-binary-4b1a")), Want(StdoutText))
	var spawnErr SpawnError
	require.ErrorAs(t, err, &spawnErr)
	assert.True(t, spawnErr.NotFound())
}

func TestProduction_SignalTermination(t *testing.T) {
	requireUnix(t)

	res, err := Run(Production(), mustSpec(t, Args("sh", "-c", "kill -TERM $$")), Want(Success))
	require.NoError(t, err)
	assert.True(t, res.Status.Signaled)
	assert.False(t, res.Status.Success())
}

func TestProduction_EnvironmentOverlay(t *testing.T) {
	requireUnix(t)

	res, err := Run(Production(),
		mustSpec(t, Args("sh", "-c", "printf '%s' \"$RUNCMD_TEST_VAR\""), Env("RUNCMD_TEST_VAR", "wired")),
		Want(StdoutText),
	)
	require.NoError(t, err)
	assert.Equal(t, "wired", res.StdoutText)
}

func TestProduction_WorkingDirectory(t *testing.T) {
	requireUnix(t)

	dir := t.TempDir()
	// TempDir can live behind a symlink; pwd reports the physical path.
	resolved, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)

	res, err := Run(Production(), mustSpec(t, Token("pwd"), Dir(dir)), Want(StdoutTrimmed))
	require.NoError(t, err)
	assert.Equal(t, resolved, res.StdoutTrimmed)
}
