// Package report holds the table shape shared by every suite and renders
// suite results as markdown.
package report

import (
	"fmt"
	"sort"
	"strings"
)

// CellSeparator joins multiple items inside one table cell.
const CellSeparator = "<br/>"

// Table is an ordered list of rows below a header row.
type Table struct {
	Header []string   `json:"header"`
	Rows   [][]string `json:"rows"`
}

// NewTable returns an empty table with the given header.
func NewTable(header ...string) *Table {
	return &Table{Header: header}
}

// Append adds a row. Values are formatted with fmt.Sprint.
func (t *Table) Append(values ...any) {
	row := make([]string, len(values))
	for i, v := range values {
		row[i] = fmt.Sprint(v)
	}
	t.Rows = append(t.Rows, row)
}

// Len returns the number of rows, excluding the header.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// SortBy orders the rows by key. The sort is stable: rows with equal keys keep
// their insertion order, in either direction.
func (t *Table) SortBy(key func(row []string) float64, reverse bool) {
	sort.SliceStable(t.Rows, func(i, j int) bool {
		ki, kj := key(t.Rows[i]), key(t.Rows[j])
		if reverse {
			return ki > kj
		}
		return ki < kj
	})
}

// Cell renders items as one table cell, wrapping each in backticks.
func Cell(items []string) string {
	quoted := make([]string, len(items))
	for i, item := range items {
		quoted[i] = "`" + item + "`"
	}
	return strings.Join(quoted, CellSeparator)
}

// Result is the outcome of one suite: a summary table, whether the suite
// passed, and a details table that may contain only its header.
type Result struct {
	Name    string `json:"name"`
	Summary *Table `json:"summary"`
	Passed  bool   `json:"passed"`
	Details *Table `json:"details"`
}
