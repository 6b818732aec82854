// Package bdd is the ergonomics surface handler authors import: assertions,
// data tables, and the per-scenario handle (logging, embeds, State<T>).
//
// Grounded on pkg/cacik's Table/Row, Assert and Context/Data types, kept
// close to their shape but retargeted onto pkg/cuke.DataTable and
// pkg/state.Store instead of the teacher's own map-based scenario data.
package bdd

import (
	"iter"
	"strings"

	"github.com/gherkindog/gherkindog/pkg/cuke"
)

// Row is one row of a Table.
type Row struct {
	cells   []string
	headers []string
}

// Get returns the cell value by column header name (case-insensitive).
func (r Row) Get(col string) string {
	colLower := strings.ToLower(col)
	for i, h := range r.headers {
		if strings.ToLower(h) == colLower {
			if i < len(r.cells) {
				return r.cells[i]
			}
			return ""
		}
	}
	return ""
}

// Cell returns the cell value by column index (0-based).
func (r Row) Cell(index int) string {
	if index < 0 || index >= len(r.cells) {
		return ""
	}
	return r.cells[index]
}

// Values returns all cell values in order.
func (r Row) Values() []string {
	cp := make([]string, len(r.cells))
	copy(cp, r.cells)
	return cp
}

// Len returns the number of cells in the row.
func (r Row) Len() int {
	return len(r.cells)
}

// Table is the handler-facing view of a step's DataTable argument.
type Table struct {
	headers []string
	rows    []Row
}

// NewTable converts a cuke.DataTable into a Table. The first row is
// used as column headers for Row.Get lookups.
func NewTable(dt cuke.DataTable) Table {
	if len(dt.Rows) == 0 {
		return Table{}
	}

	headers := make([]string, len(dt.Rows[0].Cells))
	copy(headers, dt.Rows[0].Cells)

	rows := make([]Row, len(dt.Rows))
	for i, row := range dt.Rows {
		cells := make([]string, len(row.Cells))
		copy(cells, row.Cells)
		rows[i] = Row{cells: cells, headers: headers}
	}

	return Table{headers: headers, rows: rows}
}

// Headers returns the column headers (values from the first row).
func (t Table) Headers() []string {
	cp := make([]string, len(t.headers))
	copy(cp, t.headers)
	return cp
}

// Len returns the total number of rows (including the header row).
func (t Table) Len() int {
	return len(t.rows)
}

// All iterates every row, including the header row.
func (t Table) All() iter.Seq2[int, Row] {
	return func(yield func(int, Row) bool) {
		for i, row := range t.rows {
			if !yield(i, row) {
				return
			}
		}
	}
}

// SkipHeader iterates data rows only, skipping the first row. Row.Get
// still resolves column names against the skipped header row.
func (t Table) SkipHeader() iter.Seq2[int, Row] {
	return func(yield func(int, Row) bool) {
		for i := 1; i < len(t.rows); i++ {
			if !yield(i-1, t.rows[i]) {
				return
			}
		}
	}
}
