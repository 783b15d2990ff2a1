package tabular

// Table is the raw in-memory form of an uploaded tabular file: a header plus
// untyped string rows, column order as in the source file.
type Table struct {
	Columns []string
	Rows    [][]string
}

// ColumnIndex returns the position of name in the header, or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Cell returns the value at (row, col), tolerating short rows.
func (t *Table) Cell(row, col int) string {
	if row < 0 || row >= len(t.Rows) || col < 0 {
		return ""
	}
	r := t.Rows[row]
	if col >= len(r) {
		return ""
	}
	return r[col]
}
