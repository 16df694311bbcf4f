package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/grimoire/internal/store"
)

// RunsOptions holds flags for the runs and export commands.
type RunsOptions struct {
	*RootOptions
	Database string
	Output   string
	Delete   string
}

// NewRunsCommand creates the runs command.
func NewRunsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List stored enrichment runs",
		Long: `List the runs stored in the database, oldest first.

Two runs with the same plan hash and snapshot hash produced identical
output. --delete removes one run and its stored entities.

Examples:
  grimoire runs --db ./grimoire.db
  grimoire runs --db ./grimoire.db --format json
  grimoire runs --db ./grimoire.db --delete <run-id>`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRuns(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Delete, "delete", "", "delete the run with this id")

	return cmd
}

func runRuns(opts *RunsOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	if _, err := os.Stat(opts.Database); err != nil {
		return WrapExitError(ExitCommandError, "database not found", err)
	}
	sess, err := openSession(opts.RootOptions, cmd, opts.Database)
	if err != nil {
		return err
	}
	defer sess.Close()

	ctx := commandContext(cmd)
	if opts.Delete != "" {
		err := sess.store.DeleteRun(ctx, opts.Delete)
		if errors.Is(err, store.ErrRunNotFound) {
			return WrapExitError(ExitCommandError, fmt.Sprintf("run %s", opts.Delete), err)
		}
		if err != nil {
			return WrapExitError(ExitFailure, "failed to delete run", err)
		}
		return formatter.Success(map[string]string{"deleted": opts.Delete}, fmt.Sprintf("Deleted run %s\n", opts.Delete))
	}

	runs, err := sess.store.Runs(ctx)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to list runs", err)
	}
	if runs == nil {
		runs = []store.Run{}
	}

	return formatter.Success(runs, formatRunsText(runs))
}

func formatRunsText(runs []store.Run) string {
	if len(runs) == 0 {
		return "No runs stored.\n"
	}
	var b strings.Builder
	for _, r := range runs {
		fmt.Fprintf(&b, "%4d  %s  %s  %5d entities  %6dms  %s\n",
			r.Seq, r.ID, r.CreatedAt, r.EntityCount, r.DurationMS, short(r.SnapshotHash))
	}
	return b.String()
}

func short(hash string) string {
	if len(hash) > 12 {
		return hash[:12]
	}
	return hash
}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "export <run-id>",
		Short: "Export the entities of a stored run",
		Long: `Print the enriched entities stored for a run, as a JSON array.

Examples:
  grimoire export --db ./grimoire.db 01936f2e-7b1c-7c3a-9f5e-2d4b6a8c0e1f
  grimoire export --db ./grimoire.db <run-id> --output mage.json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write entities to this file instead of stdout")

	return cmd
}

func runExport(opts *RunsOptions, runID string, cmd *cobra.Command) error {
	if _, err := os.Stat(opts.Database); err != nil {
		return WrapExitError(ExitCommandError, "database not found", err)
	}
	sess, err := openSession(opts.RootOptions, cmd, opts.Database)
	if err != nil {
		return err
	}
	defer sess.Close()

	docs, err := sess.store.ReadSnapshot(commandContext(cmd), runID)
	if errors.Is(err, store.ErrRunNotFound) {
		return WrapExitError(ExitCommandError, fmt.Sprintf("run %s", runID), err)
	}
	if err != nil {
		return WrapExitError(ExitFailure, "failed to read run", err)
	}

	data, err := json.MarshalIndent(docs, "", "  ")
	if err != nil {
		return WrapExitError(ExitFailure, "failed to encode entities", err)
	}
	data = append(data, '\n')

	if opts.Output != "" {
		if err := os.WriteFile(opts.Output, data, 0o644); err != nil {
			return WrapExitError(ExitCommandError, "failed to write output", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Exported %d entities to %s\n", len(docs), opts.Output)
		return nil
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}
