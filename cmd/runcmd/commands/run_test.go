package commands

import (
	"bytes"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/systmms/runcmd/internal/config"
	"github.com/systmms/runcmd/internal/logging"
	"github.com/systmms/runcmd/pkg/invoke"
)

func requireUnix(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("test relies on POSIX shell tools")
	}
}

func testConfig(t *testing.T, content string) *config.Config {
	t.Helper()

	path := filepath.Join(t.TempDir(), "runcmd.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	return &config.Config{
		Path:   path,
		Logger: logging.New(false, true),
	}
}

func execute(t *testing.T, cfg *config.Config, args ...string) (string, string, error) {
	t.Helper()

	cmd := NewRunCommand(cfg)
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestRunCommand_MissingCommand(t *testing.T) {
	cfg := testConfig(t, "version: 0\n")

	_, _, err := execute(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "No command specified")
}

func TestRunCommand_InvalidEnvPair(t *testing.T) {
	cfg := testConfig(t, "version: 0\n")

	_, _, err := execute(t, cfg, "--env", "MISSING_EQUALS", "--", "true")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid --env value")
}

func TestRunCommand_InvalidCapture(t *testing.T) {
	cfg := testConfig(t, "version: 0\n")

	_, _, err := execute(t, cfg, "--capture", "everything", "--", "true")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Unknown --capture value")
}

func TestRunCommand_CapturesStdout(t *testing.T) {
	requireUnix(t)
	cfg := testConfig(t, "version: 0\n")

	out, _, err := execute(t, cfg, "--", "echo", "hello")
	require.NoError(t, err)
	assert.Equal(t, "hello\n", out)
}

func TestRunCommand_TrimsOutput(t *testing.T) {
	requireUnix(t)
	cfg := testConfig(t, "version: 0\n")

	out, _, err := execute(t, cfg, "--trim", "--", "echo", "hello")
	require.NoError(t, err)
	assert.Equal(t, "hello\n", out)
}

func TestRunCommand_StatusPrintsExitCode(t *testing.T) {
	requireUnix(t)
	cfg := testConfig(t, "version: 0\n")

	out, _, err := execute(t, cfg, "--status", "--", "sh", "-c", "exit 3")
	require.NoError(t, err)
	assert.Equal(t, "3\n", out)
}

func TestRunCommand_NonZeroExitFails(t *testing.T) {
	requireUnix(t)
	cfg := testConfig(t, "version: 0\n")

	_, _, err := execute(t, cfg, "--", "sh", "-c", "exit 7")
	require.Error(t, err)

	var statusErr invoke.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, 7, statusErr.Status.Code)
}

func TestRunCommand_EnvFlagOverridesConfig(t *testing.T) {
	requireUnix(t)
	cfg := testConfig(t, `version: 0
env:
  RUNCMD_TEST_GREETING: from-config
`)

	out, _, err := execute(t, cfg,
		"--env", "RUNCMD_TEST_GREETING=from-flag",
		"--", "sh", "-c", `printf "%s" "$RUNCMD_TEST_GREETING"`)
	require.NoError(t, err)
	assert.Equal(t, "from-flag", out)
}

func TestRunCommand_ConfigEnvApplies(t *testing.T) {
	requireUnix(t)
	cfg := testConfig(t, `version: 0
env:
  RUNCMD_TEST_GREETING: from-config
`)

	out, _, err := execute(t, cfg,
		"--", "sh", "-c", `printf "%s" "$RUNCMD_TEST_GREETING"`)
	require.NoError(t, err)
	assert.Equal(t, "from-config", out)
}

func TestRunCommand_StdinFile(t *testing.T) {
	requireUnix(t)
	cfg := testConfig(t, "version: 0\n")

	stdinPath := filepath.Join(t.TempDir(), "input.txt")
	require.NoError(t, os.WriteFile(stdinPath, []byte("piped data"), 0644))

	out, _, err := execute(t, cfg, "--stdin-file", stdinPath, "--", "cat")
	require.NoError(t, err)
	assert.Equal(t, "piped data", out)
}

func TestRunCommand_StderrCapture(t *testing.T) {
	requireUnix(t)
	cfg := testConfig(t, "version: 0\n")

	out, errOut, err := execute(t, cfg,
		"--capture", "stderr",
		"--", "sh", "-c", `echo oops >&2`)
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.Equal(t, "oops\n", errOut)
}

func TestRunCommand_CombinedCapture(t *testing.T) {
	requireUnix(t)
	cfg := testConfig(t, "version: 0\n")

	out, _, err := execute(t, cfg,
		"--capture", "combined",
		"--", "sh", "-c", `echo one; echo two >&2`)
	require.NoError(t, err)
	assert.Contains(t, out, "one\n")
	assert.Contains(t, out, "two\n")
}

func TestRunCommand_WorkingDirFlag(t *testing.T) {
	requireUnix(t)
	cfg := testConfig(t, "version: 0\n")

	dir := t.TempDir()
	resolved, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)

	out, _, execErr := execute(t, cfg, "--dir", dir, "--trim", "--", "pwd")
	require.NoError(t, execErr)
	assert.Equal(t, resolved+"\n", out)
}

func TestRunCommand_MissingExecutableSuggestion(t *testing.T) {
	cfg := testConfig(t, "version: 0\n")

	_, _, err := execute(t, cfg, "--", "runcmd-no-such-tool-4af1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Command 'runcmd-no-such-tool-4af1' not found")
	assert.Contains(t, err.Error(), "💡")
	assert.Contains(t, err.Error(), "is installed and in your PATH")
}

func TestRunCommand_KnownToolSuggestion(t *testing.T) {
	if _, err := exec.LookPath("cargo"); err == nil {
		t.Skip("cargo resolved on PATH")
	}
	cfg := testConfig(t, "version: 0\n")

	_, _, err := execute(t, cfg, "--", "cargo", "build")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "https://rustup.rs/")
}

func TestRunCommand_MissingStdinFile(t *testing.T) {
	cfg := testConfig(t, "version: 0\n")

	_, _, err := execute(t, cfg,
		"--stdin-file", filepath.Join(t.TempDir(), "absent.txt"),
		"--", "cat")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Failed to read stdin file")
}
