package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/grimoire/internal/dbc"
)

// FetchOptions holds flags for the fetch command.
type FetchOptions struct {
	*RootOptions
	Database string
}

// FetchedTable describes one fetched table.
type FetchedTable struct {
	Name     string `json:"name"`
	Locator  string `json:"locator"`
	Rows     int    `json:"rows"`
	Bytes    int    `json:"bytes"`
	Warnings int    `json:"warnings"`
}

// NewFetchCommand creates the fetch command.
func NewFetchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &FetchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "fetch <table>...",
		Short: "Fetch reference tables into the cache",
		Long: `Download reference tables from the configured source and store them in
the database cache, so later runs read them locally.

Examples:
  grimoire fetch --db ./grimoire.db SpellMisc SpellName SpellEffect`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFetch(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database")

	return cmd
}

func runFetch(opts *FetchOptions, tables []string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	sess, err := openSession(opts.RootOptions, cmd, opts.Database)
	if err != nil {
		return err
	}
	defer sess.Close()
	if err := sess.requireStore(); err != nil {
		return err
	}

	ctx := commandContext(cmd)
	src := sess.source()

	fetched := make([]FetchedTable, 0, len(tables))
	for _, name := range tables {
		formatter.VerboseLog("Fetching %s", name)
		data, err := src.Fetch(ctx, name)
		if err != nil {
			return WrapExitError(ExitFailure, fmt.Sprintf("failed to fetch %s", name), err)
		}
		raw, err := dbc.Parse(name, data)
		if err != nil {
			return WrapExitError(ExitFailure, fmt.Sprintf("failed to parse %s", name), err)
		}
		for _, w := range raw.Warnings {
			sess.logger.Warn("table row repaired", "table", name, "row", w.Row, "message", w.Message)
		}
		fetched = append(fetched, FetchedTable{
			Name:     name,
			Locator:  src.Locator(name),
			Rows:     len(raw.Records),
			Bytes:    len(data),
			Warnings: len(raw.Warnings),
		})
	}

	return formatter.Success(fetched, formatFetchText(fetched))
}

func formatFetchText(tables []FetchedTable) string {
	var b strings.Builder
	for _, t := range tables {
		fmt.Fprintf(&b, "%-24s %8d rows  %s\n", t.Name, t.Rows, t.Locator)
	}
	return b.String()
}
