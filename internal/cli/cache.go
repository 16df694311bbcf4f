package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// CacheOptions holds flags for the cache command.
type CacheOptions struct {
	*RootOptions
	Database string
	Purge    bool
}

// NewCacheCommand creates the cache command.
func NewCacheCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CacheOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "cache",
		Short: "List or purge cached tables",
		Long: `List the reference tables cached in the database, or remove them all
with --purge.

Examples:
  grimoire cache --db ./grimoire.db
  grimoire cache --db ./grimoire.db --purge`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCache(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().BoolVar(&opts.Purge, "purge", false, "remove every cached table")

	return cmd
}

func runCache(opts *CacheOptions, cmd *cobra.Command) error {
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
	if opts.Purge {
		n, err := sess.store.PurgeTables(ctx)
		if err != nil {
			return WrapExitError(ExitFailure, "failed to purge cache", err)
		}
		return formatter.Success(map[string]int64{"purged": n}, fmt.Sprintf("Purged %d cached table(s)\n", n))
	}

	tables, err := sess.store.CachedTables(ctx)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to list cache", err)
	}

	var b strings.Builder
	if len(tables) == 0 {
		b.WriteString("Cache is empty.\n")
	}
	for _, t := range tables {
		fmt.Fprintf(&b, "%s  %10d bytes  %s  %s\n", t.FetchedAt, t.Size, short(t.SHA256), t.Locator)
	}
	return formatter.Success(tables, b.String())
}
