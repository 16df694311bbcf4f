package dbc

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ParseWarning is a non-fatal issue found while parsing a table.
type ParseWarning struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// Raw is a parsed table before indexing.
type Raw struct {
	Name     string
	Header   []string
	Records  [][]string
	Warnings []ParseWarning

	columns map[string]int
}

// Column returns the index of a header column.
func (r *Raw) Column(name string) (int, bool) {
	i, ok := r.columns[name]
	return i, ok
}

// Parse reads CSV data with a header row. Rows with a different number of
// cells than the header are padded or truncated and reported as warnings.
// Rows the CSV reader rejects are skipped with a warning.
func Parse(name string, data []byte) (*Raw, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("table %s: empty file, no header row", name)
		}
		return nil, fmt.Errorf("table %s: read header: %w", name, err)
	}

	raw := &Raw{
		Name:    name,
		Header:  make([]string, len(header)),
		columns: make(map[string]int, len(header)),
	}
	for i, h := range header {
		h = strings.TrimSpace(h)
		raw.Header[i] = h
		if _, dup := raw.columns[h]; !dup {
			raw.columns[h] = i
		}
	}

	width := len(raw.Header)
	rowNum := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		rowNum++
		if err != nil {
			raw.Warnings = append(raw.Warnings, ParseWarning{
				Row:     rowNum,
				Message: fmt.Sprintf("parse error: %v", err),
			})
			continue
		}

		switch {
		case len(record) < width:
			raw.Warnings = append(raw.Warnings, ParseWarning{
				Row:     rowNum,
				Message: fmt.Sprintf("row has %d columns, expected %d; padding with empty values", len(record), width),
			})
			padded := make([]string, width)
			copy(padded, record)
			record = padded
		case len(record) > width:
			raw.Warnings = append(raw.Warnings, ParseWarning{
				Row:     rowNum,
				Message: fmt.Sprintf("row has %d columns, expected %d; truncating extra columns", len(record), width),
			})
			record = record[:width]
		}
		raw.Records = append(raw.Records, record)
	}

	return raw, nil
}
