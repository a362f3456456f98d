package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/systmms/runcmd/cmd/runcmd/commands"
	"github.com/systmms/runcmd/internal/config"
	"github.com/systmms/runcmd/internal/logging"
	"github.com/systmms/runcmd/pkg/invoke"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)

		// Mirror the child's exit code when it failed cleanly.
		var statusErr invoke.StatusError
		if errors.As(err, &statusErr) && !statusErr.Status.Signaled && statusErr.Status.Code > 0 {
			os.Exit(statusErr.Status.Code)
		}
		os.Exit(1)
	}
}

func run() error {
	// Global flags
	var (
		configFile string
		noColor    bool
		debug      bool
	)

	// Create config placeholder
	cfg := &config.Config{}

	rootCmd := &cobra.Command{
		Use:   "runcmd",
		Short: "Run child processes with explicit capture and status control",
		Long: `runcmd executes a child process, wires its standard streams the way
you ask for, and reports the outcome without hiding failures.`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Initialize logger with parsed flags
			logger := logging.New(debug, noColor)

			// Update config with parsed values
			cfg.Path = configFile
			cfg.Logger = logger
		},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", config.DefaultPath, "Config file path")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")

	// Add commands
	rootCmd.AddCommand(
		commands.NewRunCommand(cfg),
		commands.NewVersionCommand(version, commit, date),
		commands.NewCompletionCommand(cfg),
	)

	return rootCmd.Execute()
}
