package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCellOutOfRange(t *testing.T) {
	tbl := NewTable(ColVIN)
	tbl.Append(Row{ColVIN: "V1"})

	tests := []struct {
		i    int
		col  string
		want string
	}{
		{0, ColVIN, "V1"},
		{0, ColTrim, ""},
		{1, ColVIN, ""},
		{-1, ColVIN, ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tbl.Cell(tt.i, tt.col), "Cell(%d, %q)", tt.i, tt.col)
	}
}
