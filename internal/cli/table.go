package cli

import "fmt"

// Table holds rows of printable values under optional headers.
type Table struct {
	headers []string
	rows    [][]string
}

// NewTable returns an empty table with the given headers.
func NewTable(headers ...string) *Table {
	return &Table{headers: headers}
}

func (t *Table) Headers() []string { return t.headers }

func (t *Table) Rows() [][]string { return t.rows }

// AddRow appends a row. With headers set, missing cells are left empty
// and extra values are dropped.
func (t *Table) AddRow(values ...any) {
	n := len(values)
	if len(t.headers) > 0 {
		n = len(t.headers)
	}

	row := make([]string, n)
	for i := 0; i < n && i < len(values); i++ {
		row[i] = fmt.Sprint(values[i])
	}
	t.rows = append(t.rows, row)
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.rows) }
