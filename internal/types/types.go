package types

import "context"

// Record is one extracted source row.
type Record struct {
	Name      string
	MetricUSD float64
}

// Table is the ordered frame handed from stage to stage. Cells hold
// string, float64, int64 or nil.
type Table struct {
	Columns []string
	Rows    [][]any
}

func NewTable(columns []string) *Table {
	cols := make([]string, len(columns))
	copy(cols, columns)
	return &Table{Columns: cols}
}

func (t *Table) Len() int { return len(t.Rows) }

// ColumnIndex returns the position of name, or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// AppendRecord adds r as a row. The table is expected to start with the
// name and metric columns; any further columns are left nil.
func (t *Table) AppendRecord(r Record) {
	row := make([]any, len(t.Columns))
	if len(row) > 0 {
		row[0] = r.Name
	}
	if len(row) > 1 {
		row[1] = r.MetricUSD
	}
	t.Rows = append(t.Rows, row)
}

// AddColumn appends a column computed from each existing row.
func (t *Table) AddColumn(name string, fn func(row []any) any) {
	t.Columns = append(t.Columns, name)
	for i, row := range t.Rows {
		t.Rows[i] = append(row, fn(row))
	}
}

// Column returns the values of the named column, or nil when absent.
func (t *Table) Column(name string) []any {
	idx := t.ColumnIndex(name)
	if idx < 0 {
		return nil
	}
	out := make([]any, len(t.Rows))
	for i, row := range t.Rows {
		out[i] = row[idx]
	}
	return out
}

func (t *Table) Clone() *Table {
	c := NewTable(t.Columns)
	c.Rows = make([][]any, len(t.Rows))
	for i, row := range t.Rows {
		r := make([]any, len(row), len(row)+4)
		copy(r, row)
		c.Rows[i] = r
	}
	return c
}

type Sink interface {
	Name() string
	Load(ctx context.Context, t *Table) error
	Close() error
}
