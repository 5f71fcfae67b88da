package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/flemzord/botstrap/internal/config"
	"github.com/flemzord/botstrap/internal/ui"
	"github.com/flemzord/botstrap/pkg/app"
)

func initCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a botstrap.yaml in the working directory",
		Long: `init asks for the common settings when stdin is a terminal and writes
them to botstrap.yaml. With --defaults, or when stdin is not a terminal, the
defaults are written as-is. An existing file is never overwritten.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, _ := cmd.Flags().GetString("config")
			if path == "" {
				workDir, _ := cmd.Flags().GetString("workdir")
				path = filepath.Join(workDir, config.FileName)
			}
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("%s: %w", path, app.ErrConfigExists)
			}

			cfg := config.Default()
			useDefaults, _ := cmd.Flags().GetBool("defaults")
			if !useDefaults && ui.IsTerminal(os.Stdin) {
				accessible, _ := cmd.Flags().GetBool("accessible")
				if err := ui.RunWizard(cmd.Context(), cfg, ui.WizardOptions{
					In:         cmd.InOrStdin(),
					Out:        cmd.OutOrStdout(),
					Accessible: accessible,
				}); err != nil {
					return err
				}
			}

			if err := app.WriteConfig(path, cfg); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().Bool("defaults", false, "Write the defaults without prompting")
	cmd.Flags().Bool("accessible", false, "Use plain prompts instead of the interactive form")
	return cmd
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "check [path]",
		Short: "Validate configuration",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				if err := cmd.Flags().Set("config", args[0]); err != nil {
					return err
				}
			}
			a, err := newApp(cmd)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			source := a.ConfigPath
			if source == "" {
				source = "built-in defaults"
			}
			fmt.Fprintf(out, "Configuration OK (%s)\n", source)
			fmt.Fprintf(out, "  environment: %s\n", a.Config.Environment.Dir)
			fmt.Fprintf(out, "  entry point: %s\n", a.Config.EntryPoint)
			fmt.Fprintf(out, "  packages:\n")
			for _, p := range a.Config.Packages {
				fmt.Fprintf(out, "    %s\n", p)
			}
			return nil
		},
	})
	return cmd
}
