package models

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
)

// Row maps column name to cell text.
type Row map[string]string

// Table is an ordered set of columns and the rows under them. Cells for
// columns a row does not carry read as "".
type Table struct {
	Columns []string
	Rows    []Row
}

// NewTable creates an empty table with the given columns.
func NewTable(columns ...string) *Table {
	cols := make([]string, len(columns))
	copy(cols, columns)
	return &Table{Columns: cols}
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// HasColumn reports whether name is one of the table's columns.
func (t *Table) HasColumn(name string) bool {
	return t.ColumnIndex(name) >= 0
}

// ColumnIndex returns the position of name, or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Append adds a row.
func (t *Table) Append(r Row) {
	t.Rows = append(t.Rows, r)
}

// Cell returns the value at row i, column name, or "" when either is out of
// range.
func (t *Table) Cell(i int, name string) string {
	if i < 0 || i >= len(t.Rows) {
		return ""
	}
	return t.Rows[i][name]
}

// Clone returns a deep copy.
func (t *Table) Clone() *Table {
	out := NewTable(t.Columns...)
	out.Rows = make([]Row, len(t.Rows))
	for i, r := range t.Rows {
		cp := make(Row, len(r))
		for k, v := range r {
			cp[k] = v
		}
		out.Rows[i] = cp
	}
	return out
}

// Vehicles returns the rows in typed form.
func (t *Table) Vehicles() []Vehicle {
	out := make([]Vehicle, 0, t.Len())
	for _, r := range t.Rows {
		out = append(out, VehicleFromRow(r))
	}
	return out
}

// Records returns the rows as string slices in column order, for writers.
func (t *Table) Records() [][]string {
	out := make([][]string, 0, len(t.Rows))
	for _, r := range t.Rows {
		rec := make([]string, len(t.Columns))
		for i, c := range t.Columns {
			rec[i] = r[c]
		}
		out = append(out, rec)
	}
	return out
}

// Fingerprint is a content hash over columns and cells, used as a cache key.
func (t *Table) Fingerprint() string {
	h := sha256.New()
	for _, c := range t.Columns {
		io.WriteString(h, c)
		h.Write([]byte{0x1f})
	}
	h.Write([]byte{0x1e})
	for _, rec := range t.Records() {
		for _, v := range rec {
			io.WriteString(h, v)
			h.Write([]byte{0x1f})
		}
		h.Write([]byte{0x1e})
	}
	return hex.EncodeToString(h.Sum(nil))
}
