package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"github.com/conduit-lang/mapper/internal/cli/ui"
	"github.com/conduit-lang/mapper/internal/orm/migrate"
)

// confirm asks a yes/no question on the terminal
var confirm = func(message string) (bool, error) {
	ok := false
	err := survey.AskOne(&survey.Confirm{Message: message, Default: false}, &ok)
	return ok, err
}

// NewMigrateCommand creates the migrate command
func NewMigrateCommand(opts Options, flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Migration commands",
		Long: `Apply and roll back registered migrations.

Applied migrations are recorded in the migrations collection, one record
per migration keyed by migration id.

Available subcommands:
  up       - Apply all pending migrations
  status   - Show migration status
  rollback - Roll back the most recent migrations`,
	}

	cmd.AddCommand(newMigrateUpCommand(opts, flags))
	cmd.AddCommand(newMigrateStatusCommand(opts, flags))
	cmd.AddCommand(newMigrateRollbackCommand(opts, flags))

	return cmd
}

func newMigrateUpCommand(opts Options, flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openEnvironment(cmd.Context(), flags.configPath, opts)
			if err != nil {
				ui.ConfigError(err.Error(), flags.noColor).Write(cmd.ErrOrStderr())
				return err
			}
			defer env.Close()

			out := cmd.OutOrStdout()
			applied, err := env.runner.Up(cmd.Context())
			for _, id := range applied {
				ui.Success(out, "Applied "+id, flags.noColor)
			}
			if err != nil {
				consequence := fmt.Sprintf("%d migration(s) were applied before the failure.", len(applied))
				ui.MigrationError(err.Error(), consequence, nil, flags.noColor).Write(cmd.ErrOrStderr())
				return err
			}

			if len(applied) == 0 {
				ui.Info(out, "No pending migrations", flags.noColor)
				return nil
			}
			ui.Success(out, fmt.Sprintf("Applied %d migration(s)", len(applied)), flags.noColor)
			return nil
		},
	}
}

func newMigrateStatusCommand(opts Options, flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openEnvironment(cmd.Context(), flags.configPath, opts)
			if err != nil {
				ui.ConfigError(err.Error(), flags.noColor).Write(cmd.ErrOrStderr())
				return err
			}
			defer env.Close()

			status, err := env.runner.Status(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			ui.Header(out, "Migrations", flags.noColor)
			table := ui.NewTable(out, []string{"Migration", "Status", "Applied At"}, flags.noColor)
			for _, m := range status.Applied {
				table.AddRow(m.ID, "applied", m.AppliedAt.Format(time.RFC3339))
			}
			for _, id := range status.Pending {
				table.AddRow(id, "pending", "")
			}
			table.Render()

			fmt.Fprintln(out)
			ui.Info(out, status.Summary(), flags.noColor)
			return nil
		},
	}
}

// RollbackResult is the outcome of a rollback. Error is set when a
// migration failed; the migrations in RolledBack stay rolled back.
type RollbackResult struct {
	RolledBack []string
	Error      error
}

// RunRollback rolls back migrations and reports the failure in the result
// instead of returning it
func RunRollback(ctx context.Context, runner *migrate.Runner, opts migrate.RollbackOptions) RollbackResult {
	rolledBack, err := runner.Rollback(ctx, opts)
	return RollbackResult{RolledBack: rolledBack, Error: err}
}

func newMigrateRollbackCommand(opts Options, flags *globalFlags) *cobra.Command {
	var (
		steps int
		until string
		yes   bool
	)

	cmd := &cobra.Command{
		Use:   "rollback [--steps N] [--until ID]",
		Short: "Roll back the most recent migrations",
		Long: `Roll back the most recent migrations, newest first.

--steps selects how many migrations to roll back (default 1).
--until rolls back down to and including the named migration.
A failing migration stops the rollback; migrations rolled back before it
stay rolled back.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			rollback := migrate.RollbackOptions{Steps: steps, Until: until}
			out := cmd.OutOrStdout()

			if !yes {
				ok, err := confirm(describeRollback(rollback))
				if err != nil {
					return err
				}
				if !ok {
					ui.Info(out, "Rollback cancelled", flags.noColor)
					return nil
				}
			}

			env, err := openEnvironment(cmd.Context(), flags.configPath, opts)
			if err != nil {
				ui.ConfigError(err.Error(), flags.noColor).Write(cmd.ErrOrStderr())
				return err
			}
			defer env.Close()

			result := RunRollback(cmd.Context(), env.runner, rollback)
			for _, id := range result.RolledBack {
				ui.Success(out, "Rolled back "+id, flags.noColor)
			}

			if result.Error != nil {
				var suggestions []string
				if until != "" && errors.Is(result.Error, migrate.ErrUnknownMigration) {
					suggestions = appliedSuggestions(cmd.Context(), env.runner, until)
				}
				consequence := fmt.Sprintf("%d migration(s) were rolled back before the failure.", len(result.RolledBack))
				ui.MigrationError(result.Error.Error(), consequence, suggestions, flags.noColor).Write(cmd.ErrOrStderr())
				return result.Error
			}

			if len(result.RolledBack) == 0 {
				ui.Info(out, "No migrations to roll back", flags.noColor)
				return nil
			}
			ui.Success(out, fmt.Sprintf("Rolled back %d migration(s)", len(result.RolledBack)), flags.noColor)
			return nil
		},
	}

	cmd.Flags().IntVarP(&steps, "steps", "n", 0, "Number of migrations to roll back")
	cmd.Flags().StringVar(&until, "until", "", "Roll back down to and including this migration")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")

	return cmd
}

func describeRollback(opts migrate.RollbackOptions) string {
	switch {
	case opts.Until != "" && opts.Steps > 0:
		return fmt.Sprintf("Roll back at most %d migration(s) down to %s?", opts.Steps, opts.Until)
	case opts.Until != "":
		return fmt.Sprintf("Roll back every migration down to %s?", opts.Until)
	case opts.Steps > 1:
		return fmt.Sprintf("Roll back the last %d migrations?", opts.Steps)
	}
	return "Roll back the last migration?"
}

func appliedSuggestions(ctx context.Context, runner *migrate.Runner, target string) []string {
	status, err := runner.Status(ctx)
	if err != nil {
		return nil
	}
	ids := make([]string, len(status.Applied))
	for i, m := range status.Applied {
		ids[i] = m.ID
	}
	return ui.Suggest(target, ids, 3)
}
