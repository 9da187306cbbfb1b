package domain

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// RawTable is a tabular dataset as produced by the fetcher or read from a
// snapshot: an ordered header and one string cell per column per row. Rows
// may omit columns.
type RawTable struct {
	Columns []string
	Rows    []map[string]string
}

// Has reports whether col is part of the header.
func (t RawTable) Has(col string) bool {
	for _, c := range t.Columns {
		if c == col {
			return true
		}
	}
	return false
}

// NewRawTable builds a RawTable whose header is the sorted set of columns
// holding at least one non-blank cell.
func NewRawTable(rows []map[string]string) RawTable {
	return RawTable{Columns: UsedColumns(rows), Rows: rows}
}

// UsedColumns returns, sorted, every column with a non-blank cell in rows.
func UsedColumns(rows []map[string]string) []string {
	used := make(map[string]struct{})
	for _, row := range rows {
		for col, v := range row {
			if strings.TrimSpace(v) != "" {
				used[col] = struct{}{}
			}
		}
	}
	cols := make([]string, 0, len(used))
	for col := range used {
		cols = append(cols, col)
	}
	sort.Strings(cols)
	return cols
}

// Table is one fully built, immutable load of markets with all derived
// columns. A refresh builds a new Table and replaces the old one wholesale.
type Table struct {
	ID       uuid.UUID
	LoadedAt time.Time
	Source   string
	Markets  []Market

	// MaxLiquidity is the table-wide liquidity max used by the quality score.
	MaxLiquidity float64

	// Notices are informational messages about absent columns or dropped
	// rows. They are never fatal.
	Notices []string
}

// Snapshot returns a copy of the market rows so callers can narrow, score
// and sort them without touching the table.
func (t *Table) Snapshot() []Market {
	out := make([]Market, len(t.Markets))
	copy(out, t.Markets)
	return out
}

// Lookup returns the market with the given id.
func (t *Table) Lookup(id string) (Market, bool) {
	for i := range t.Markets {
		if t.Markets[i].ID == id {
			return t.Markets[i], true
		}
	}
	return Market{}, false
}
