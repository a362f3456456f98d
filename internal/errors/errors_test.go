package errors_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/systmms/runcmd/internal/errors"
)

// TestUserErrorFormatting verifies UserError displays properly
func TestUserErrorFormatting(t *testing.T) {
	t.Parallel()

	err := errors.UserError{
		Message:    "Operation failed",
		Details:    "Pipe closed early",
		Suggestion: "Check the command output above",
	}

	errMsg := err.Error()

	assert.Contains(t, errMsg, "Operation failed")
	assert.Contains(t, errMsg, "Pipe closed early")
	assert.Contains(t, errMsg, "Check the command output above")
	assert.Contains(t, errMsg, "💡")
}

// TestUserErrorFallsBackToWrapped verifies the wrapped error is shown when
// no message is set
func TestUserErrorFallsBackToWrapped(t *testing.T) {
	t.Parallel()

	inner := fmt.Errorf("underlying failure")
	err := errors.UserError{Err: inner}

	assert.Contains(t, err.Error(), "underlying failure")
	assert.ErrorIs(t, err, inner)
}

// TestConfigErrorFormatting verifies ConfigError displays with context
func TestConfigErrorFormatting(t *testing.T) {
	t.Parallel()

	err := errors.ConfigError{
		Field:      "env.PATH",
		Value:      "",
		Message:    "Empty variable name",
		Suggestion: "Remove the empty key from runcmd.yaml",
	}

	errMsg := err.Error()

	assert.Contains(t, errMsg, "env.PATH")
	assert.Contains(t, errMsg, "Empty variable name")
	assert.Contains(t, errMsg, "Remove the empty key")
}

// TestWrapCommandNotFound verifies known tools get install suggestions
func TestWrapCommandNotFound(t *testing.T) {
	t.Parallel()

	err := errors.WrapCommandNotFound("git", fmt.Errorf("not found"))
	assert.Contains(t, err.Error(), "git-scm.com")

	err = errors.WrapCommandNotFound("obscure-tool", fmt.Errorf("not found"))
	assert.Contains(t, err.Error(), "installed and in your PATH")
}

// TestSimplifyError verifies common technical errors become friendly
func TestSimplifyError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    error
		contains string
	}{
		{
			name:     "yaml error",
			input:    fmt.Errorf("yaml: line 3: mapping values are not allowed"),
			contains: "Invalid YAML format",
		},
		{
			name:     "permission denied",
			input:    fmt.Errorf("open /etc/secret: permission denied"),
			contains: "Permission denied",
		},
		{
			name:     "missing file",
			input:    fmt.Errorf("stat /nope: no such file or directory"),
			contains: "not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			simplified := errors.SimplifyError(tt.input)
			assert.Contains(t, simplified.Error(), tt.contains)
		})
	}

	assert.Nil(t, errors.SimplifyError(nil))

	// User-shaped errors pass through untouched.
	userErr := errors.UserError{Message: "already friendly"}
	assert.Equal(t, userErr, errors.SimplifyError(userErr))
}
