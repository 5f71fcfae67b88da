package main

import (
	"github.com/spf13/cobra"

	"github.com/flemzord/botstrap/pkg/app"
)

// newApp builds an App from the flags shared by every command.
func newApp(cmd *cobra.Command) (*app.App, error) {
	flags := cmd.Flags()
	cfgPath, _ := flags.GetString("config")
	workDir, _ := flags.GetString("workdir")
	shellName, _ := flags.GetString("shell")
	logLevel, _ := flags.GetString("log-level")
	rollback, _ := flags.GetBool("rollback")
	forceInstall, _ := flags.GetBool("force-install")

	return app.New(app.Options{
		ConfigPath:   cfgPath,
		WorkDir:      workDir,
		Shell:        shellName,
		Rollback:     rollback,
		ForceInstall: forceInstall,
		LogLevel:     logLevel,
		Version:      version,
		Commit:       commit,
		Date:         date,
		Stdout:       cmd.OutOrStdout(),
		Stderr:       cmd.ErrOrStderr(),
	})
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("rollback", false, "Remove the environment if this run created it and a later step fails")
	cmd.Flags().Bool("force-install", false, "Run pip even when the package set is unchanged")
}

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Create the environment, install packages and scaffold the bot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			report, err := a.Run(cmd.Context())
			if report != nil {
				a.Printer().Report(report)
			}
			return err
		},
	}
	addRunFlags(cmd)
	return cmd
}

func detectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "detect",
		Short: "Show the detected shell and how to activate the environment",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			activation, detected, err := a.Activation()
			if err != nil {
				return err
			}
			a.Printer().Detection(activation, detected)
			return nil
		},
	}
}

func verifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Check the environment for missing packages without changing it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			v, err := a.Verify(cmd.Context())
			if err != nil {
				return err
			}
			a.Printer().Verification(v)
			if !v.OK() {
				return errCheckFailed
			}
			return nil
		},
	}
}

func doctorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check that the bot's .env and credentials are ready",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			online, _ := cmd.Flags().GetBool("online")
			report := a.Doctor(cmd.Context(), online)
			a.Printer().Doctor(report)
			if !report.OK() {
				return errCheckFailed
			}
			return nil
		},
	}
	cmd.Flags().Bool("online", false, "Validate the bot token against the Telegram API")
	return cmd
}

func historyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent runs from the journal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			n, _ := cmd.Flags().GetInt("limit")
			runs, err := a.History(cmd.Context(), n)
			if err != nil {
				return err
			}
			a.Printer().History(runs)
			return nil
		},
	}
	cmd.Flags().IntP("limit", "n", 10, "Number of runs to show")
	return cmd
}

func watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Re-verify on a schedule and serve /health and /metrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			return a.Watch(cmd.Context())
		},
	}
}
