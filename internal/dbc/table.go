package dbc

import (
	"fmt"
	"strconv"
	"strings"
)

// Row is one record of a table. The zero Row has no columns and reads as
// empty everywhere.
type Row struct {
	raw    *Raw
	values []string
}

// String returns the cell for col, or "" if the column does not exist.
func (r Row) String(col string) string {
	if r.raw == nil {
		return ""
	}
	i, ok := r.raw.columns[col]
	if !ok {
		return ""
	}
	return r.values[i]
}

// Int returns the cell for col as an integer. Empty or malformed cells read
// as 0. Flag columns exported as unsigned 32-bit values are accepted.
func (r Row) Int(col string) int64 {
	s := strings.TrimSpace(r.String(col))
	if s == "" {
		return 0
	}
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v
	}
	if v, err := strconv.ParseUint(s, 10, 64); err == nil {
		return int64(v)
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int64(f)
	}
	return 0
}

// Float returns the cell for col as a float. Empty or malformed cells read
// as 0.
func (r Row) Float(col string) float64 {
	s := strings.TrimSpace(r.String(col))
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}

// Has reports whether the row's table has the column.
func (r Row) Has(col string) bool {
	if r.raw == nil {
		return false
	}
	_, ok := r.raw.columns[col]
	return ok
}

// Table is a Raw table indexed by one integer key column.
type Table struct {
	Name string
	Key  string

	rows  []Row
	byKey map[int64][]Row
}

// NewTable indexes raw by the key column. Rows keep their file order within
// each key.
func NewTable(raw *Raw, key string) (*Table, error) {
	if _, ok := raw.Column(key); !ok {
		return nil, fmt.Errorf("table %s: key column %q not found", raw.Name, key)
	}

	t := &Table{
		Name:  raw.Name,
		Key:   key,
		rows:  make([]Row, len(raw.Records)),
		byKey: make(map[int64][]Row),
	}
	for i, rec := range raw.Records {
		row := Row{raw: raw, values: rec}
		t.rows[i] = row
		id := row.Int(key)
		t.byKey[id] = append(t.byKey[id], row)
	}
	return t, nil
}

// First returns the first row whose key equals id.
func (t *Table) First(id int64) (Row, bool) {
	rows := t.byKey[id]
	if len(rows) == 0 {
		return Row{}, false
	}
	return rows[0], true
}

// All returns every row whose key equals id, in file order.
func (t *Table) All(id int64) []Row {
	return t.byKey[id]
}

// Rows returns every row in file order.
func (t *Table) Rows() []Row {
	return t.rows
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.rows)
}
