package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// CachedTable describes one cached raw table.
type CachedTable struct {
	Locator   string `json:"locator"`
	SHA256    string `json:"sha256"`
	Size      int64  `json:"size"`
	FetchedAt string `json:"fetchedAt"`
}

// GetTable returns the cached bytes for locator. ok is false on a miss.
func (s *Store) GetTable(ctx context.Context, locator string) (data []byte, ok bool, err error) {
	err = s.db.QueryRowContext(ctx, `
		SELECT data FROM table_cache WHERE locator = ?
	`, locator).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get cached table %s: %w", locator, err)
	}
	return data, true, nil
}

// PutTable stores data for locator, replacing any previous entry.
func (s *Store) PutTable(ctx context.Context, locator string, data []byte) error {
	sum := sha256.Sum256(data)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO table_cache (locator, data, sha256, size, fetched_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(locator) DO UPDATE SET
			data = excluded.data,
			sha256 = excluded.sha256,
			size = excluded.size,
			fetched_at = excluded.fetched_at
	`, locator, data, hex.EncodeToString(sum[:]), len(data), s.now())
	if err != nil {
		return fmt.Errorf("put cached table %s: %w", locator, err)
	}
	s.logger.Debug("table cached", slog.String("locator", locator), slog.Int("bytes", len(data)))
	return nil
}

// CachedTables lists cache entries ordered by locator.
func (s *Store) CachedTables(ctx context.Context) ([]CachedTable, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT locator, sha256, size, fetched_at
		FROM table_cache
		ORDER BY locator COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query cached tables: %w", err)
	}
	defer rows.Close()

	out := []CachedTable{}
	for rows.Next() {
		var t CachedTable
		if err := rows.Scan(&t.Locator, &t.SHA256, &t.Size, &t.FetchedAt); err != nil {
			return nil, fmt.Errorf("scan cached table: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cached tables: %w", err)
	}
	return out, nil
}

// PurgeTables removes every cache entry and reports how many were removed.
func (s *Store) PurgeTables(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM table_cache`)
	if err != nil {
		return 0, fmt.Errorf("purge table cache: %w", err)
	}
	return res.RowsAffected()
}

func utcNow() string {
	return time.Now().UTC().Format(time.RFC3339)
}
