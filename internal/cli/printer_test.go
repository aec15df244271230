package cli

import (
	"bytes"
	"os"
	"testing"

	"github.com/pterm/pterm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	pterm.DisableColor()
	os.Exit(m.Run())
}

func TestPrinter_PrintfOut(t *testing.T) {
	t.Parallel()

	const expected = "test"

	var out bytes.Buffer

	printer := NewPrinter(
		WithOut{Out: &out},
	)

	require.NoError(t, printer.PrintfOut(expected))

	assert.Equal(t, expected, out.String())
}

func TestPrinter_PrintfErr(t *testing.T) {
	t.Parallel()

	const expected = "test"

	var err bytes.Buffer

	printer := NewPrinter(
		WithErr{Err: &err},
	)

	require.NoError(t, printer.PrintfErr(expected))

	assert.Equal(t, expected, err.String())
}

func TestPrinter_PrintTable(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		table    func() *Table
		plain    bool
		expected string
	}{
		"headers": {
			table: func() *Table {
				tbl := NewTable("Name", "Severity")
				tbl.AddRow("no-banned-files", "error")
				return tbl
			},
			expected: "Name             Severity\nno-banned-files  error\n\n",
		},
		"plain": {
			table: func() *Table {
				tbl := NewTable("Name", "Severity")
				tbl.AddRow("no-banned-files", "error")
				return tbl
			},
			plain:    true,
			expected: "no-banned-files\terror\n\n",
		},
		"no headers": {
			table: func() *Table {
				tbl := NewTable()
				tbl.AddRow(1, 2, 3)
				return tbl
			},
			expected: "1  2  3\n\n",
		},
		"empty": {
			table:    func() *Table { return NewTable("Name") },
			expected: "",
		},
	}

	for name, tc := range tests {
		tc := tc

		t.Run(name, func(t *testing.T) {
			t.Parallel()

			var out bytes.Buffer
			printer := NewPrinter(WithOut{Out: &out}, WithPlain(tc.plain))

			require.NoError(t, printer.PrintTable(tc.table()))
			assert.Equal(t, tc.expected, out.String())
		})
	}
}

func TestTable_AddRow(t *testing.T) {
	t.Parallel()

	tbl := NewTable("A", "B")
	tbl.AddRow("1")
	tbl.AddRow("1", 2, "dropped")

	assert.Equal(t, [][]string{{"1", ""}, {"1", "2"}}, tbl.Rows())
}
