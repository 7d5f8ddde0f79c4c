package commands

import (
	"runtime"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	// Version information - set at build time
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

type globalFlags struct {
	configPath string
	noColor    bool
}

// NewRootCommand creates the root command
func NewRootCommand(opts Options) *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "mapper",
		Short: "Record mapper tooling",
		Long: color.CyanString(`mapper - record and collection mapping

Applies, inspects and rolls back the migrations registered by an
application against its configured storage (memory, sql or redis).`),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "Path to the config file (default ./mapper.yml)")
	rootCmd.PersistentFlags().BoolVar(&flags.noColor, "no-color", false, "Disable colored output")

	rootCmd.AddCommand(NewVersionCommand())
	rootCmd.AddCommand(NewMigrateCommand(opts, flags))

	return rootCmd
}

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			title := color.New(color.FgCyan, color.Bold)
			value := color.New(color.FgWhite)

			title.Fprint(out, "mapper version: ")
			value.Fprintln(out, Version)
			title.Fprint(out, "Git commit: ")
			value.Fprintln(out, GitCommit)
			title.Fprint(out, "Build date: ")
			value.Fprintln(out, BuildDate)
			title.Fprint(out, "Go version: ")
			value.Fprintln(out, runtime.Version())
		},
	}
}

// Execute runs the root command
func Execute(opts Options) error {
	rootCmd := NewRootCommand(opts)
	if err := rootCmd.Execute(); err != nil {
		errorColor := color.New(color.FgRed, color.Bold)
		errorColor.Fprintf(rootCmd.ErrOrStderr(), "Error: %v\n", err)
		return err
	}
	return nil
}
