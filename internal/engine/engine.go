package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/grimoire/internal/dbc"
	"github.com/roach88/grimoire/internal/enrich"
	"github.com/roach88/grimoire/internal/entity"
	"github.com/roach88/grimoire/internal/plan"
)

// TableStore loads and serves reference tables. *dbc.Store implements it.
//
// LoadTable must be safe for concurrent use; the engine calls it from
// several goroutines during preload.
type TableStore interface {
	LoadTable(ctx context.Context, name, key string) (*dbc.Table, error)
	Table(name, key string) (*dbc.Table, error)
}

// RunIDGenerator generates run identifiers.
// Implemented by UUIDv7Generator (production) and FixedGenerator (tests).
type RunIDGenerator interface {
	Generate() string
}

// Engine executes enrichment runs. An Engine holds no per-run state and
// may run several times; each run gets a fresh cache.
type Engine struct {
	tables       TableStore
	logger       *slog.Logger
	runIDs       RunIDGenerator
	tracer       trace.Tracer
	preloadLimit int
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithRunIDGenerator sets the run id source. Default: UUIDv7Generator.
func WithRunIDGenerator(g RunIDGenerator) Option {
	return func(e *Engine) {
		e.runIDs = g
	}
}

// WithTracer sets the OpenTelemetry tracer. Default: the global provider's
// "grimoire/engine" tracer, which is a no-op unless a provider is installed.
func WithTracer(t trace.Tracer) Option {
	return func(e *Engine) {
		e.tracer = t
	}
}

// WithPreloadLimit caps concurrent table loads. n <= 0 means no limit.
func WithPreloadLimit(n int) Option {
	return func(e *Engine) {
		e.preloadLimit = n
	}
}

// New creates an Engine reading tables from tables.
func New(tables TableStore, opts ...Option) *Engine {
	e := &Engine{
		tables: tables,
		logger: slog.Default(),
		runIDs: UUIDv7Generator{},
		tracer: otel.Tracer("grimoire/engine"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Stage records one enricher's execution.
type Stage struct {
	Name     string        `json:"name"`
	Duration time.Duration `json:"duration"`
	Fields   int           `json:"fields"` // fields merged across all entities
}

// Report describes a completed run.
type Report struct {
	RunID string
	Plan  *plan.Plan

	// Entities is the slice passed to Execute, enriched in place.
	Entities []*entity.Entity

	// Duplicates lists ids seen more than once. The later entity was
	// enriched; earlier ones were left untouched.
	Duplicates []int64

	Stages   []Stage
	Duration time.Duration
}

// Run enriches entities with requested (and their dependencies) and returns
// the same slice. Errors are those of Execute.
func (e *Engine) Run(ctx context.Context, requested map[string]*enrich.Enricher, entities []*entity.Entity) ([]*entity.Entity, error) {
	report, err := e.Execute(ctx, requested, entities)
	if err != nil {
		return nil, err
	}
	return report.Entities, nil
}

// Execute is Run with a full report.
//
// Failures are *enrich.Error values. An error returned by an enricher's
// Compute is wrapped with code COMPUTE_FAILED, so errors.Is and errors.As
// still reach the original cause. Nil entries in entities are skipped.
func (e *Engine) Execute(ctx context.Context, requested map[string]*enrich.Enricher, entities []*entity.Entity) (*Report, error) {
	start := time.Now()
	runID := e.runIDs.Generate()
	logger := e.logger.With("run_id", runID)

	ctx, span := e.tracer.Start(ctx, "enrich.Run",
		trace.WithAttributes(
			attribute.String("run.id", runID),
			attribute.Int("run.entities", len(entities)),
			attribute.Int("run.requested", len(requested)),
		),
	)
	defer span.End()

	fail := func(err error) (*Report, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Error("enrichment run failed", "error", err)
		return nil, err
	}

	p, err := plan.Build(requested)
	if err != nil {
		return fail(err)
	}
	span.SetAttributes(
		attribute.StringSlice("plan.order", p.Names()),
		attribute.Int("plan.tables", len(p.Tables)),
	)
	logger.Debug("plan built", "order", p.Names(), "tables", len(p.Tables))

	if err := e.preload(ctx, p.Tables); err != nil {
		return fail(err)
	}

	idx, dups := entity.NewIndex(entities)
	for _, id := range dups {
		logger.Warn("duplicate entity id", "id", id)
	}

	report := &Report{
		RunID:      runID,
		Plan:       p,
		Entities:   entities,
		Duplicates: dups,
		Stages:     make([]Stage, 0, len(p.Order)),
	}

	cache := enrich.NewCache()
	for _, en := range p.Order {
		if err := ctx.Err(); err != nil {
			return fail(fmt.Errorf("run %s: before %s: %w", runID, en.Name, err))
		}
		stage, err := e.runStage(ctx, logger, en, idx, cache)
		if err != nil {
			return fail(err)
		}
		report.Stages = append(report.Stages, stage)
	}

	report.Duration = time.Since(start)
	span.SetStatus(codes.Ok, "")
	logger.Info("enrichment run complete",
		"enrichers", len(p.Order),
		"entities", idx.Len(),
		"tables", len(p.Tables),
		"duration", report.Duration,
	)
	return report, nil
}

// preload loads every table concurrently and waits for all of them.
func (e *Engine) preload(ctx context.Context, tables []enrich.TableRef) error {
	ctx, span := e.tracer.Start(ctx, "enrich.Preload",
		trace.WithAttributes(attribute.Int("preload.tables", len(tables))),
	)
	defer span.End()

	g, gctx := errgroup.WithContext(ctx)
	if e.preloadLimit > 0 {
		g.SetLimit(e.preloadLimit)
	}
	for _, t := range tables {
		g.Go(func() error {
			_, tspan := e.tracer.Start(gctx, "enrich.LoadTable",
				trace.WithAttributes(
					attribute.String("table.name", t.Name),
					attribute.String("table.key", t.Key),
				),
			)
			defer tspan.End()

			if _, err := e.tables.LoadTable(gctx, t.Name, t.Key); err != nil {
				tspan.RecordError(err)
				tspan.SetStatus(codes.Error, err.Error())
				return &enrich.Error{
					Code:    enrich.ErrCodePreloadFailed,
					Message: fmt.Sprintf("load table %s", t),
					Err:     err,
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

// runStage computes one enricher over every entity.
func (e *Engine) runStage(ctx context.Context, logger *slog.Logger, en *enrich.Enricher, idx *entity.Index, cache *enrich.Cache) (Stage, error) {
	_, span := e.tracer.Start(ctx, "enrich.Stage",
		trace.WithAttributes(attribute.String("enricher", en.Name)),
	)
	defer span.End()

	start := time.Now()
	in := enrich.NewInput(en, e.tables, idx, cache, logger)
	merged := 0

	for _, ent := range idx.Entities() {
		fields, err := en.Compute(in, ent)
		if err != nil {
			err = enrich.NewComputeError(en.Name, ent.ID, err)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return Stage{}, err
		}

		for _, name := range fields.Names() {
			if !en.ProvidesField(name) {
				err := &enrich.Error{
					Code:     enrich.ErrCodeUndeclaredField,
					Message:  fmt.Sprintf("returned undeclared field %q", name),
					Enricher: en.Name,
					EntityID: ent.ID,
				}
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
				return Stage{}, err
			}
		}

		for _, name := range ent.Merge(en.Name, fields) {
			logger.Debug("field overwritten",
				"field", name,
				"entity", ent.ID,
				"enricher", en.Name,
			)
		}
		merged += len(fields)
	}

	stage := Stage{Name: en.Name, Duration: time.Since(start), Fields: merged}
	span.SetAttributes(attribute.Int("stage.fields", merged))
	logger.Debug("stage complete", "enricher", en.Name, "fields", merged, "duration", stage.Duration)
	return stage, nil
}
