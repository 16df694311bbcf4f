package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/grimoire/internal/canon"
	"github.com/roach88/grimoire/internal/entity"
)

// ErrRunNotFound is returned when a run id is not in the database.
var ErrRunNotFound = errors.New("run not found")

// Run is the stored record of one enrichment run.
type Run struct {
	ID           string   `json:"id"`
	Seq          int64    `json:"seq"`
	PlanHash     string   `json:"planHash"`
	Enrichers    []string `json:"enrichers"`
	Tables       []string `json:"tables"`
	EntityCount  int      `json:"entityCount"`
	SnapshotHash string   `json:"snapshotHash"`
	DurationMS   int64    `json:"durationMs"`
	CreatedAt    string   `json:"createdAt"`
}

// Snapshot encodes entities as canonical JSON and hashes the list with
// canon.DomainSnapshot. Identical enriched output gives an identical hash.
func Snapshot(entities []*entity.Entity) ([]json.RawMessage, string, error) {
	docs := make([]json.RawMessage, len(entities))
	for i, e := range entities {
		data, err := canon.Marshal(e)
		if err != nil {
			return nil, "", fmt.Errorf("encode entity %d: %w", e.ID, err)
		}
		docs[i] = data
	}
	hash, err := canon.Hash(canon.DomainSnapshot, docs)
	if err != nil {
		return nil, "", fmt.Errorf("hash snapshot: %w", err)
	}
	return docs, hash, nil
}

// WriteRun stores a run and the snapshot of its entities in one
// transaction. run.Seq, run.EntityCount, run.SnapshotHash and an empty
// run.CreatedAt are filled in; the completed record is returned.
func (s *Store) WriteRun(ctx context.Context, run Run, entities []*entity.Entity) (Run, error) {
	docs, hash, err := Snapshot(entities)
	if err != nil {
		return Run{}, fmt.Errorf("write run %s: %w", run.ID, err)
	}
	run.EntityCount = len(entities)
	run.SnapshotHash = hash
	if run.CreatedAt == "" {
		run.CreatedAt = s.now()
	}

	enrichers, err := json.Marshal(nonNil(run.Enrichers))
	if err != nil {
		return Run{}, fmt.Errorf("write run %s: %w", run.ID, err)
	}
	tables, err := json.Marshal(nonNil(run.Tables))
	if err != nil {
		return Run{}, fmt.Errorf("write run %s: %w", run.ID, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Run{}, fmt.Errorf("write run %s: begin tx: %w", run.ID, err)
	}
	defer tx.Rollback() // No-op if committed

	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM runs`).Scan(&run.Seq); err != nil {
		return Run{}, fmt.Errorf("write run %s: next seq: %w", run.ID, err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs
		(id, seq, plan_hash, enrichers, tables, entity_count, snapshot_hash, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		run.ID,
		run.Seq,
		run.PlanHash,
		string(enrichers),
		string(tables),
		run.EntityCount,
		run.SnapshotHash,
		run.DurationMS,
		run.CreatedAt,
	)
	if err != nil {
		return Run{}, fmt.Errorf("write run %s: %w", run.ID, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO run_entities (run_id, seq, entity_id, data) VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return Run{}, fmt.Errorf("write run %s: prepare: %w", run.ID, err)
	}
	defer stmt.Close()

	for i, doc := range docs {
		if _, err := stmt.ExecContext(ctx, run.ID, i, entities[i].ID, string(doc)); err != nil {
			return Run{}, fmt.Errorf("write run %s: entity %d: %w", run.ID, entities[i].ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return Run{}, fmt.Errorf("write run %s: commit: %w", run.ID, err)
	}

	s.logger.Info("run stored",
		slog.String("run_id", run.ID),
		slog.Int64("seq", run.Seq),
		slog.Int("entities", run.EntityCount),
		slog.String("snapshot_hash", run.SnapshotHash))
	return run, nil
}

// Runs lists stored runs, oldest first.
func (s *Store) Runs(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, seq, plan_hash, enrichers, tables, entity_count, snapshot_hash, duration_ms, created_at
		FROM runs
		ORDER BY seq ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// GetRun returns one run. Unknown ids wrap ErrRunNotFound.
func (s *Store) GetRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, seq, plan_hash, enrichers, tables, entity_count, snapshot_hash, duration_ms, created_at
		FROM runs
		WHERE id = ?
	`, id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("get run %s: %w", id, ErrRunNotFound)
	}
	return r, err
}

// ReadSnapshot returns the stored entity documents of a run in collection
// order. Unknown ids wrap ErrRunNotFound.
func (s *Store) ReadSnapshot(ctx context.Context, runID string) ([]json.RawMessage, error) {
	if _, err := s.GetRun(ctx, runID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT data FROM run_entities
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query snapshot %s: %w", runID, err)
	}
	defer rows.Close()

	docs := []json.RawMessage{}
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scan snapshot %s: %w", runID, err)
		}
		docs = append(docs, json.RawMessage(data))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshot %s: %w", runID, err)
	}
	return docs, nil
}

// DeleteRun removes a run and its snapshot.
func (s *Store) DeleteRun(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete run %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete run %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("delete run %s: %w", id, ErrRunNotFound)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var (
		r                 Run
		enrichers, tables string
	)
	err := row.Scan(&r.ID, &r.Seq, &r.PlanHash, &enrichers, &tables,
		&r.EntityCount, &r.SnapshotHash, &r.DurationMS, &r.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	if err := json.Unmarshal([]byte(enrichers), &r.Enrichers); err != nil {
		return Run{}, fmt.Errorf("unmarshal enrichers of run %s: %w", r.ID, err)
	}
	if err := json.Unmarshal([]byte(tables), &r.Tables); err != nil {
		return Run{}, fmt.Errorf("unmarshal tables of run %s: %w", r.ID, err)
	}
	return r, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
