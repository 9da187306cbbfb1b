// Package snapshot encodes fetched datasets as CSV and keeps the latest one
// in a configurable backend so a cold start can build a table without
// hitting the upstream API.
package snapshot

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/alanyoungcy/polyscreen/internal/domain"
)

// Encode writes t as CSV. Only columns with at least one non-blank cell are
// kept, and they are written in sorted order; rows lacking a column get an
// empty cell.
func Encode(t domain.RawTable) ([]byte, error) {
	cols := domain.UsedColumns(t.Rows)

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(cols); err != nil {
		return nil, fmt.Errorf("snapshot: write header: %w", err)
	}
	record := make([]string, len(cols))
	for _, row := range t.Rows {
		for i, col := range cols {
			record[i] = row[col]
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("snapshot: write row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("snapshot: flush: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode reads CSV data with a header row. Short rows are tolerated; missing
// trailing cells are simply absent from the row map.
func Decode(data []byte) (domain.RawTable, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	header, err := r.Read()
	if err == io.EOF {
		return domain.RawTable{}, nil
	}
	if err != nil {
		return domain.RawTable{}, fmt.Errorf("snapshot: read header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	t := domain.RawTable{Columns: header}
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return domain.RawTable{}, fmt.Errorf("snapshot: read row %d: %w", len(t.Rows)+1, err)
		}
		row := make(map[string]string, len(header))
		for i, v := range rec {
			if i < len(header) {
				row[header[i]] = v
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}
