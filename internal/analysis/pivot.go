package analysis

import (
	"sort"
	"strings"

	"github.com/KaramelBytes/crimelens-cli/internal/crime"
)

// Pivot is a two-way count table (rows x columns) with zero fill.
type Pivot struct {
	Rows  []string
	Cols  []string
	cells map[string]map[string]int
	total int
}

// NewPivot counts records by (rowKey, colKey). Rows and Cols are sorted
// lexically.
func NewPivot(records []crime.Record, rowKey, colKey KeyFunc) *Pivot {
	p := &Pivot{cells: make(map[string]map[string]int)}
	cols := make(map[string]struct{})
	for i := range records {
		r := orUnknown(rowKey(&records[i]))
		c := orUnknown(colKey(&records[i]))
		row := p.cells[r]
		if row == nil {
			row = make(map[string]int)
			p.cells[r] = row
		}
		row[c]++
		cols[c] = struct{}{}
		p.total++
	}
	for r := range p.cells {
		p.Rows = append(p.Rows, r)
	}
	for c := range cols {
		p.Cols = append(p.Cols, c)
	}
	sort.Strings(p.Rows)
	sort.Strings(p.Cols)
	return p
}

func orUnknown(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return Unknown
	}
	return s
}

// Get returns the count at (row, col); missing combinations are 0.
func (p *Pivot) Get(row, col string) int {
	return p.cells[row][col]
}

// Total is the number of records the pivot was built from.
func (p *Pivot) Total() int { return p.total }

// Sub returns the grid for the given row and column labels, in that order.
// Labels absent from the pivot produce zero rows or columns.
func (p *Pivot) Sub(rows, cols []string) [][]int {
	grid := make([][]int, len(rows))
	for i, r := range rows {
		grid[i] = make([]int, len(cols))
		for j, c := range cols {
			grid[i][j] = p.Get(r, c)
		}
	}
	return grid
}
