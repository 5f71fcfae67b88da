// Package main is the entry point for the botstrap CLI.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/flemzord/botstrap/internal/execx"
)

// Set by goreleaser ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// errCheckFailed makes verify and doctor exit 1 after printing their report.
var errCheckFailed = errors.New("check failed")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := rootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		if !errors.Is(err, errCheckFailed) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(exitCode(err))
	}
}

// exitCode mirrors the exit status of a failed subprocess and is 1 for
// every other failure.
func exitCode(err error) int {
	if code, ok := execx.ExitCode(err); ok && code > 0 {
		return code
	}
	return 1
}

func rootCmd() *cobra.Command {
	run := runCmd()
	root := &cobra.Command{
		Use:   "botstrap",
		Short: "Prepare a working directory for a Telegram + Google Sheets bot",
		Long: `botstrap creates a Python virtual environment, activates it for the
detected shell, installs the bot's packages, and scaffolds the entry point.
Running without a subcommand is the same as "botstrap run".`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          run.RunE,
	}

	pf := root.PersistentFlags()
	pf.StringP("config", "c", "", "Path to configuration file")
	pf.StringP("workdir", "C", "", "Directory to bootstrap (default: current directory)")
	pf.String("shell", "", "Activation shell: modern, legacy, posix or auto")
	pf.String("log-level", "", "Log level: debug, info, warn or error")
	addRunFlags(root)

	root.AddCommand(
		run,
		detectCmd(),
		verifyCmd(),
		doctorCmd(),
		historyCmd(),
		watchCmd(),
		initCmd(),
		configCmd(),
		versionCmd(),
	)
	return root
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "botstrap %s (commit: %s, built: %s)\n", version, commit, date)
		},
	}
}
