package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/grimoire/internal/catalog"
	"github.com/roach88/grimoire/internal/engine"
	"github.com/roach88/grimoire/internal/enrich"
	"github.com/roach88/grimoire/internal/enrichers"
	"github.com/roach88/grimoire/internal/store"
)

// EnrichOptions holds flags for the enrich command.
type EnrichOptions struct {
	*RootOptions
	Enrichers []string
	Database  string
	Output    string
	Trace     bool

	// RunIDs overrides the run id generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	RunIDs engine.RunIDGenerator
}

// EnrichResult is the JSON payload of the enrich command.
type EnrichResult struct {
	RunID      string            `json:"runId"`
	Plan       []string          `json:"plan"`
	Tables     []string          `json:"tables"`
	Duplicates []int64           `json:"duplicates"`
	Stages     []engine.Stage    `json:"stages"`
	Snapshot   string            `json:"snapshotHash"`
	Output     string            `json:"output,omitempty"`
	Entities   []json.RawMessage `json:"entities,omitempty"`
}

// NewEnrichCommand creates the enrich command.
func NewEnrichCommand(rootOpts *RootOptions) *cobra.Command {
	return newEnrichCommand(&EnrichOptions{RootOptions: rootOpts})
}

func newEnrichCommand(opts *EnrichOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "enrich <catalog-dir>",
		Short: "Enrich a catalog's entities",
		Long: `Load a CUE entity catalog, run the selected enrichers over it and print
the enriched entities.

Enrichers come from --enrichers, else the catalog's "enrichers" list, else
every registered enricher. With a database the run and its snapshot are
stored and fetched tables are cached.

Examples:
  grimoire enrich ./catalogs/mage
  grimoire enrich ./catalogs/mage --enrichers gcd,cooldown --db ./grimoire.db
  grimoire enrich ./catalogs/mage --output mage.json --trace`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEnrich(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringSliceVar(&opts.Enrichers, "enrichers", nil, "enrichers to run (comma-separated)")
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database for the table cache and run history")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write enriched entities to this file")
	cmd.Flags().BoolVar(&opts.Trace, "trace", false, "print OpenTelemetry spans to stderr")

	return cmd
}

func runEnrich(opts *EnrichOptions, catalogDir string, cmd *cobra.Command) error {
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

	cat, errs := catalog.Load(catalogDir, catalog.FailFast)
	if len(errs) > 0 {
		return WrapExitError(ExitCommandError, "failed to load catalog", errs[0])
	}
	formatter.VerboseLog("Loaded catalog %q: %d entities", cat.Name, len(cat.Entities))

	names := opts.Enrichers
	if len(names) == 0 {
		names = cat.Enrichers
	}
	requested, err := enrichers.Select(names)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid enricher selection", err)
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engineOpts := []engine.Option{
		engine.WithLogger(sess.logger),
		engine.WithPreloadLimit(sess.cfg.Engine.PreloadLimit),
	}
	if opts.RunIDs != nil {
		engineOpts = append(engineOpts, engine.WithRunIDGenerator(opts.RunIDs))
	}
	if opts.Trace {
		tracer, shutdown, err := startTracing(cmd.ErrOrStderr())
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to start tracing", err)
		}
		defer func() {
			if err := shutdown(context.Background()); err != nil {
				sess.logger.Error("error flushing spans", "error", err)
			}
		}()
		engineOpts = append(engineOpts, engine.WithTracer(tracer))
	}

	eng := engine.New(sess.tables(), engineOpts...)
	report, err := eng.Execute(ctx, requested, cat.Entities)
	if err != nil {
		code := "ERROR"
		var ee *enrich.Error
		if errors.As(err, &ee) {
			code = string(ee.Code)
		}
		if opts.Format == "json" {
			_ = formatter.Error(code, err.Error(), nil)
		}
		return WrapExitError(ExitFailure, "enrichment failed", err)
	}

	docs, hash, err := store.Snapshot(report.Entities)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to encode entities", err)
	}

	result := EnrichResult{
		RunID:      report.RunID,
		Plan:       report.Plan.Names(),
		Tables:     tableNames(report.Plan.Tables),
		Duplicates: nonNilIDs(report.Duplicates),
		Stages:     report.Stages,
		Snapshot:   hash,
	}

	if sess.store != nil {
		planHash, err := report.Plan.Hash()
		if err != nil {
			return WrapExitError(ExitFailure, "failed to hash plan", err)
		}
		_, err = sess.store.WriteRun(ctx, store.Run{
			ID:         report.RunID,
			PlanHash:   planHash,
			Enrichers:  result.Plan,
			Tables:     result.Tables,
			DurationMS: report.Duration.Milliseconds(),
		}, report.Entities)
		if err != nil {
			return WrapExitError(ExitFailure, "failed to store run", err)
		}
	}

	if opts.Output != "" {
		data, err := json.MarshalIndent(docs, "", "  ")
		if err != nil {
			return WrapExitError(ExitFailure, "failed to encode entities", err)
		}
		if err := os.WriteFile(opts.Output, append(data, '\n'), 0o644); err != nil {
			return WrapExitError(ExitCommandError, "failed to write output", err)
		}
		result.Output = opts.Output
	} else {
		result.Entities = docs
	}

	return formatter.Success(result, formatEnrichText(result, docs))
}

func formatEnrichText(r EnrichResult, docs []json.RawMessage) string {
	var b strings.Builder
	if r.Output == "" {
		for _, doc := range docs {
			b.Write(doc)
			b.WriteByte('\n')
		}
		return b.String()
	}
	fmt.Fprintf(&b, "Run %s: %d entities enriched by %s\n", r.RunID, len(docs), strings.Join(r.Plan, ", "))
	fmt.Fprintf(&b, "Snapshot %s written to %s\n", r.Snapshot, r.Output)
	return b.String()
}

func tableNames(refs []enrich.TableRef) []string {
	out := make([]string, len(refs))
	for i, ref := range refs {
		out[i] = ref.String()
	}
	return out
}

func nonNilIDs(ids []int64) []int64 {
	if ids == nil {
		return []int64{}
	}
	return ids
}

// commandContext returns the command's context, or Background when the
// command was executed without one.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
