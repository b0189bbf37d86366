package reader

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

const exportHTML = `<html><body>
<table border="1">
  <tr><th>LOCATION</th><th>VIN</th><th>MODEL</th><th></th></tr>
  <tr><td>DLR INV</td><td> 1N4BL4DV5PN300001 </td><td>ALT</td><td>x</td></tr>
  <tr><td>RETAILED</td><td>1N4BL4DV5PN300002</td></tr>
</table>
<table><tr><th>ignored</th></tr></table>
</body></html>`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestReadHTMLTableIgnoresExtension(t *testing.T) {
	path := writeFile(t, "VinpipeReport.xls", exportHTML)

	tbl, err := ReadHTMLTable(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"LOCATION", "VIN", "MODEL", "Unnamed: 3"}, tbl.Columns)
	require.Equal(t, 2, tbl.Len())
	assert.Equal(t, "1N4BL4DV5PN300001", tbl.Cell(0, "VIN"))
	assert.Equal(t, "RETAILED", tbl.Cell(1, "LOCATION"))
	assert.Equal(t, "", tbl.Cell(1, "MODEL"), "short rows are padded")
}

func TestParseHTMLTableDuplicateHeaders(t *testing.T) {
	tbl, err := ParseHTMLTable(strings.NewReader(
		`<table><tr><td>A</td><td>A</td></tr><tr><td>1</td><td>2</td></tr></table>`))
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "A.1"}, tbl.Columns)
	assert.Equal(t, "2", tbl.Cell(0, "A.1"))
}

func TestHeaderNamesUnique(t *testing.T) {
	tests := []struct {
		in   []string
		want []string
	}{
		{[]string{"A", "A", "A.1"}, []string{"A", "A.1", "A.1.1"}},
		{[]string{"A.1", "A", "A"}, []string{"A.1", "A", "A.2"}},
		{[]string{"A", "A", "A"}, []string{"A", "A.1", "A.2"}},
		{[]string{"", ""}, []string{"Unnamed: 0", "Unnamed: 1"}},
	}
	for _, tt := range tests {
		got := headerNames(tt.in)
		assert.Equal(t, tt.want, got, "headerNames(%q)", tt.in)
	}
}

func TestParseHTMLTableKeepsSuffixCollision(t *testing.T) {
	tbl, err := ParseHTMLTable(strings.NewReader(
		`<table><tr><td>A</td><td>A</td><td>A.1</td></tr><tr><td>1</td><td>2</td><td>3</td></tr></table>`))
	require.NoError(t, err)
	assert.Equal(t, "2", tbl.Cell(0, "A.1"))
	assert.Equal(t, "3", tbl.Cell(0, "A.1.1"))
}

func TestParseHTMLTableSkipsNestedRows(t *testing.T) {
	tbl, err := ParseHTMLTable(strings.NewReader(
		`<table><tr><th>A</th></tr><tr><td><table><tr><td>inner</td></tr></table></td></tr></table>`))
	require.NoError(t, err)
	require.Equal(t, 1, tbl.Len())
	assert.Equal(t, "inner", tbl.Cell(0, "A"))
}

func TestReadHTMLTableMissingFile(t *testing.T) {
	_, err := ReadHTMLTable(filepath.Join(t.TempDir(), "nope.xls"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSourceNotFound)
	assert.False(t, errors.Is(err, ErrParse))

	var se *SourceError
	require.ErrorAs(t, err, &se)
	assert.Contains(t, se.Path, "nope.xls")
}

func TestReadHTMLTableNotATable(t *testing.T) {
	path := writeFile(t, "garbage.xls", "PK\x03\x04 this is not html with a table")

	_, err := ReadHTMLTable(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrParse)
}

func TestReadWorkbook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "current_inventory.xlsx")

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]interface{}{"Current Inventory"}))
	require.NoError(t, f.SetSheetRow(sheet, "A4", &[]interface{}{
		"Select", "Photo", "Stock #", "Year", "Model", "Trim", "Color", "Interior",
		"VIN", "MSRP", "Age", "Status", "Location", "Beyond Range",
	}))
	require.NoError(t, f.SetSheetRow(sheet, "A5", &[]interface{}{
		"", "", "N1234", "2024", "ROG", "SV", "KH3-CHARCOAL", "CLOTH",
		"JN8BT3BB1PW000001", "32150", "12", "In Stock", "LOT A", "junk",
	}))
	require.NoError(t, f.SetSheetRow(sheet, "A6", &[]interface{}{
		"", "", "N1235", "2024", "KIC", "S", "ZZZ9", "CLOTH",
		"3N1CP5BV1PL000002", "22050", "3", "In Stock", "LOT B",
	}))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	tbl, err := ReadWorkbook(path, DefaultWorkbookLayout())
	require.NoError(t, err)

	assert.Equal(t, []string{
		WBStockNumber, WBModelYear, WBModelCode, WBTrim, WBColor, WBInterior,
		WBVIN, WBMSRP, WBDaysInStock, WBStatus, WBLocation,
	}, tbl.Columns)
	assert.False(t, tbl.HasColumn("Select"))
	require.Equal(t, 2, tbl.Len())
	assert.Equal(t, "SUPER BLACK", tbl.Cell(0, WBColor))
	assert.Equal(t, "ZZZ9", tbl.Cell(1, WBColor), "unknown color codes pass through")
	assert.Equal(t, "12", tbl.Cell(0, WBDaysInStock))
}

func TestReadWorkbookMissing(t *testing.T) {
	_, err := ReadWorkbook(filepath.Join(t.TempDir(), "missing.xlsx"), DefaultWorkbookLayout())
	assert.ErrorIs(t, err, ErrSourceNotFound)
}

func TestReadWorkbookNotASpreadsheet(t *testing.T) {
	path := writeFile(t, "inventory.xlsx", "<html></html>")
	_, err := ReadWorkbook(path, DefaultWorkbookLayout())
	assert.ErrorIs(t, err, ErrParse)
}
