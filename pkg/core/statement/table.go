// Package statement models exported financial statement grids and extracts
// named line items from them.
package statement

import (
	"fmt"
	"strings"
)

// Kind identifies the statement a table was exported from.
type Kind string

const (
	Income   Kind = "income"
	Balance  Kind = "balance"
	CashFlow Kind = "cash_flow"
)

// Kinds lists every statement kind in load order.
var Kinds = []Kind{Income, Balance, CashFlow}

// Source tells whether a table carries the long history or the trailing
// window (LTM/TTM) used to refresh the latest point.
type Source string

const (
	History  Source = "history"
	Trailing Source = "trailing"
)

// Period is one column of a statement.
type Period struct {
	Label string `json:"label"`
	Year  int    `json:"year"`
}

// Row is one line item. Cells are aligned with the table's periods.
type Row struct {
	Label string
	Cells []string
}

// Table is a parsed statement grid: period columns × line-item rows, in
// ascending fiscal-year order. A Table is immutable once built; accessors
// hand out copies.
type Table struct {
	name    string
	kind    Kind
	source  Source
	periods []Period
	rows    []Row
}

// NewTable builds a Table from a raw grid as read from a spreadsheet,
// HTML export or CSV file. The first row whose cells name at least one
// period is the header; rows above it are titles. Period columns ordered
// newest-first are reversed.
func NewTable(name string, kind Kind, source Source, grid [][]string) (*Table, error) {
	if len(grid) == 0 {
		return nil, fmt.Errorf("statement %s: empty grid", name)
	}

	headerIdx, cols := findHeader(grid)
	var periods []Period
	if headerIdx >= 0 {
		periods = resolvePeriods(grid[headerIdx], cols)
	} else {
		// No recognisable header: every column after the label is a period
		// and years are ordinal positions.
		headerIdx = -1
		cols = nil
		width := 0
		for _, r := range grid {
			if len(r) > width {
				width = len(r)
			}
		}
		for c := 1; c < width; c++ {
			cols = append(cols, c)
			periods = append(periods, Period{Label: fmt.Sprintf("P%d", c), Year: c})
		}
	}
	if len(periods) == 0 {
		return nil, fmt.Errorf("statement %s: no period columns", name)
	}

	labelCols := cols[0]
	var rows []Row
	for _, raw := range grid[headerIdx+1:] {
		label := rowLabel(raw, labelCols)
		if label == "" {
			continue
		}
		cells := make([]string, len(cols))
		for i, c := range cols {
			if c < len(raw) {
				cells[i] = strings.TrimSpace(raw[c])
			}
		}
		rows = append(rows, Row{Label: label, Cells: cells})
	}

	t := &Table{name: name, kind: kind, source: source, periods: periods, rows: rows}
	t.normalizeOrder()
	return t, nil
}

// rowLabel returns the first non-empty cell to the left of the first period
// column.
func rowLabel(raw []string, firstPeriodCol int) string {
	for c := 0; c < firstPeriodCol && c < len(raw); c++ {
		if l := strings.TrimSpace(raw[c]); l != "" {
			return l
		}
	}
	return ""
}

// normalizeOrder makes periods ascending and unique by year. When a year
// repeats (quarterly columns inside one fiscal year) the chronologically
// later column wins; columns that go back in time are dropped.
func (t *Table) normalizeOrder() {
	n := len(t.periods)
	if n > 1 && t.periods[0].Year > t.periods[n-1].Year {
		for i, j := 0, n-1; i < j; i, j = i+1, j-1 {
			t.periods[i], t.periods[j] = t.periods[j], t.periods[i]
		}
		for _, r := range t.rows {
			for i, j := 0, len(r.Cells)-1; i < j; i, j = i+1, j-1 {
				r.Cells[i], r.Cells[j] = r.Cells[j], r.Cells[i]
			}
		}
	}

	keep := make([]int, 0, n)
	for i := range t.periods {
		if len(keep) > 0 {
			last := t.periods[keep[len(keep)-1]].Year
			if last == t.periods[i].Year {
				keep[len(keep)-1] = i
				continue
			}
			if last > t.periods[i].Year {
				continue
			}
		}
		keep = append(keep, i)
	}
	if len(keep) == n {
		return
	}
	periods := make([]Period, len(keep))
	for i, k := range keep {
		periods[i] = t.periods[k]
	}
	for r := range t.rows {
		cells := make([]string, len(keep))
		for i, k := range keep {
			cells[i] = t.rows[r].Cells[k]
		}
		t.rows[r].Cells = cells
	}
	t.periods = periods
}

// Name is the file or sheet the table came from.
func (t *Table) Name() string { return t.name }

// Kind returns the statement kind.
func (t *Table) Kind() Kind { return t.kind }

// Source returns whether this is a history or trailing table.
func (t *Table) Source() Source { return t.source }

// Periods returns a copy of the period columns.
func (t *Table) Periods() []Period {
	return append([]Period(nil), t.periods...)
}

// Years returns the fiscal year of every period column.
func (t *Table) Years() []int {
	out := make([]int, len(t.periods))
	for i, p := range t.periods {
		out[i] = p.Year
	}
	return out
}

// NumRows returns the number of line items.
func (t *Table) NumRows() int { return len(t.rows) }

// Row returns a copy of line item i.
func (t *Table) Row(i int) Row {
	r := t.rows[i]
	return Row{Label: r.Label, Cells: append([]string(nil), r.Cells...)}
}

// Labels returns every line-item label in table order.
func (t *Table) Labels() []string {
	out := make([]string, len(t.rows))
	for i, r := range t.rows {
		out[i] = r.Label
	}
	return out
}
