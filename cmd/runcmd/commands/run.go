package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/systmms/runcmd/internal/config"
	rcerrors "github.com/systmms/runcmd/internal/errors"
	"github.com/systmms/runcmd/internal/metrics"
	"github.com/systmms/runcmd/pkg/invoke"
)

func NewRunCommand(cfg *config.Config) *cobra.Command {
	var (
		workingDir string
		envPairs   []string
		stdinFile  string
		logCmd     bool
		capture    string
		trim       bool
		status     bool
	)

	cmd := &cobra.Command{
		Use:   "run [flags] -- <command> [args...]",
		Short: "Run a command and report its output and exit status",
		Long: `Run a child process with the requested stream wiring. Captured output
is written to runcmd's own streams; uncaptured streams pass through to
the terminal unchanged.

The command must be separated from runcmd arguments with '--'.

Examples:
  runcmd run -- ls -la
  runcmd run --capture combined -- make test
  runcmd run --env GIT_PAGER=cat --trim -- git rev-parse HEAD
  runcmd run --status -- grep -q TODO main.go`,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Validate arguments
			if len(args) == 0 {
				return rcerrors.UserError{
					Message:    "No command specified",
					Suggestion: "Use: runcmd run [flags] -- <command> [args...]",
				}
			}

			// Load configuration
			if err := cfg.Load(); err != nil {
				return err
			}
			def := cfg.Definition

			specArgs := []invoke.Arg{invoke.Args(args...)}

			if def.LogCommands || logCmd {
				specArgs = append(specArgs, invoke.LogCommand())
			}

			dir := def.Dir
			if workingDir != "" {
				dir = workingDir
			}
			if dir != "" {
				specArgs = append(specArgs, invoke.Dir(dir))
			}

			// Config-level variables first so --env pairs win.
			for name, value := range def.Env {
				specArgs = append(specArgs, invoke.Env(name, value))
			}
			for _, pair := range envPairs {
				name, value, ok := strings.Cut(pair, "=")
				if !ok {
					return rcerrors.UserError{
						Message:    fmt.Sprintf("Invalid --env value %q", pair),
						Suggestion: "Use --env NAME=VALUE",
					}
				}
				specArgs = append(specArgs, invoke.Env(name, value))
			}

			if stdinFile != "" {
				payload, err := os.ReadFile(stdinFile)
				if err != nil {
					return rcerrors.UserError{
						Message:    "Failed to read stdin file",
						Details:    err.Error(),
						Suggestion: "Check the --stdin-file path and permissions",
						Err:        err,
					}
				}
				specArgs = append(specArgs, invoke.Stdin(payload))
			}

			spec, err := invoke.New(specArgs...)
			if err != nil {
				return err
			}

			facets, err := captureFacets(capture, trim)
			if err != nil {
				return err
			}
			if status {
				facets = append(facets, invoke.ExitCode)
			}
			req := invoke.Want(facets...)

			// Metrics are opt-in via runcmd.yaml and exposed only while
			// the child runs.
			runMetrics := metrics.NewRunMetrics()
			if def.Metrics.Enabled {
				server := metrics.NewServer(def.Metrics.MetricsPort(), def.Metrics.MetricsPath(), cfg.Logger)
				if err := server.Start(); err != nil {
					cfg.Logger.Warn("Failed to start metrics server: %v", err)
				}
				defer func() {
					ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
					defer cancel()
					_ = server.Stop(ctx)
				}()
			}

			runMetrics.RecordRunStarted(spec.Executable())
			started := time.Now()

			result, err := invoke.Run(invoke.Production(), spec, req)

			elapsed := time.Since(started).Seconds()
			if err != nil {
				runMetrics.RecordRunCompleted(spec.Executable(), "failure", elapsed)

				var spawnErr invoke.SpawnError
				if errors.As(err, &spawnErr) && spawnErr.NotFound() {
					return rcerrors.WrapCommandNotFound(spec.Executable(), err)
				}
				return err
			}
			runMetrics.RecordRunCompleted(spec.Executable(), "success", elapsed)

			cfg.Logger.Debug("run %s finished in %.3fs", result.RunID, elapsed)

			printResult(cmd, result, capture, trim, status)
			return nil
		},
	}

	cmd.Flags().StringVar(&workingDir, "dir", "", "Working directory for the command")
	cmd.Flags().StringArrayVar(&envPairs, "env", nil, "Environment variable NAME=VALUE (repeatable)")
	cmd.Flags().StringVar(&stdinFile, "stdin-file", "", "File to feed to the command's standard input")
	cmd.Flags().BoolVar(&logCmd, "log", false, "Log the command line before running it")
	cmd.Flags().StringVar(&capture, "capture", "stdout", "Streams to capture: stdout, stderr, combined, or none")
	cmd.Flags().BoolVar(&trim, "trim", false, "Trim trailing newlines from captured text")
	cmd.Flags().BoolVar(&status, "status", false, "Print the exit code instead of failing on non-zero exit")

	return cmd
}

// captureFacets maps the --capture flag to output facets.
func captureFacets(capture string, trim bool) ([]invoke.Facet, error) {
	switch capture {
	case "stdout":
		if trim {
			return []invoke.Facet{invoke.StdoutTrimmed}, nil
		}
		return []invoke.Facet{invoke.StdoutText}, nil
	case "stderr":
		if trim {
			return []invoke.Facet{invoke.StderrTrimmed}, nil
		}
		return []invoke.Facet{invoke.StderrText}, nil
	case "combined":
		return []invoke.Facet{invoke.Combined}, nil
	case "none":
		return []invoke.Facet{invoke.Discard}, nil
	}
	return nil, rcerrors.UserError{
		Message:    fmt.Sprintf("Unknown --capture value %q", capture),
		Suggestion: "Use one of: stdout, stderr, combined, none",
	}
}

func printResult(cmd *cobra.Command, result *invoke.Result, capture string, trim, status bool) {
	switch capture {
	case "stdout":
		if trim {
			if result.StdoutTrimmed != "" {
				fmt.Fprintln(cmd.OutOrStdout(), result.StdoutTrimmed)
			}
		} else {
			fmt.Fprint(cmd.OutOrStdout(), result.StdoutText)
		}
	case "stderr":
		if trim {
			if result.StderrTrimmed != "" {
				fmt.Fprintln(cmd.ErrOrStderr(), result.StderrTrimmed)
			}
		} else {
			fmt.Fprint(cmd.ErrOrStderr(), result.StderrText)
		}
	case "combined":
		_, _ = cmd.OutOrStdout().Write(result.Combined)
	}

	if status {
		fmt.Fprintln(cmd.OutOrStdout(), result.Status.Code)
	}
}
