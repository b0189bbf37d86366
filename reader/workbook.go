package reader

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/xuri/excelize/v2"

	"vinpipe/lookup"
	"vinpipe/models"
)

// Columns of the reference "current inventory" workbook after renaming.
const (
	WBStockNumber = "stock_number"
	WBModelYear   = "model_year"
	WBModelCode   = "model_code"
	WBTrim        = "trim"
	WBColor       = "color"
	WBInterior    = "interior"
	WBVIN         = "vin"
	WBMSRP        = "msrp"
	WBDaysInStock = "days_in_stock"
	WBStatus      = "status"
	WBLocation    = "location"
)

// WorkbookLayout describes where the table sits in the workbook and how its
// headers map onto output columns.
type WorkbookLayout struct {
	Sheet       string // "" means the first sheet
	HeaderRow   int    // 1-based
	FirstColumn string
	LastColumn  string
	Drop        []string
	Rename      map[string]string
	Order       []string
}

// DefaultWorkbookLayout is the layout of the current-inventory workbook: a
// banner above the header on row 4, columns A..M, and two selection/photo
// columns that never hold data.
func DefaultWorkbookLayout() WorkbookLayout {
	return WorkbookLayout{
		HeaderRow:   4,
		FirstColumn: "A",
		LastColumn:  "M",
		Drop:        []string{"Select", "Photo"},
		Rename: map[string]string{
			"Stock #":  WBStockNumber,
			"Year":     WBModelYear,
			"Model":    WBModelCode,
			"Trim":     WBTrim,
			"Color":    WBColor,
			"Interior": WBInterior,
			"VIN":      WBVIN,
			"MSRP":     WBMSRP,
			"Age":      WBDaysInStock,
			"Status":   WBStatus,
			"Location": WBLocation,
		},
		Order: []string{
			WBStockNumber, WBModelYear, WBModelCode, WBTrim, WBColor, WBInterior,
			WBVIN, WBMSRP, WBDaysInStock, WBStatus, WBLocation,
		},
	}
}

// ReadWorkbook loads the reference workbook at path using layout. The color
// column is decoded from its first three characters.
func ReadWorkbook(path string, layout WorkbookLayout) (*models.Table, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, notFound(path, err)
		}
		return nil, parseFailure(path, err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, parseFailure(path, err)
	}
	defer f.Close()

	t, err := workbookTable(f, layout)
	if err != nil {
		return nil, parseFailure(path, err)
	}
	return t, nil
}

func workbookTable(f *excelize.File, layout WorkbookLayout) (*models.Table, error) {
	sheet := layout.Sheet
	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	if sheet == "" {
		return nil, errors.New("workbook has no sheets")
	}

	first, err := excelize.ColumnNameToNumber(layout.FirstColumn)
	if err != nil {
		return nil, fmt.Errorf("first column: %w", err)
	}
	last, err := excelize.ColumnNameToNumber(layout.LastColumn)
	if err != nil {
		return nil, fmt.Errorf("last column: %w", err)
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	if len(rows) < layout.HeaderRow || layout.HeaderRow < 1 {
		return nil, fmt.Errorf("sheet %q has no header at row %d", sheet, layout.HeaderRow)
	}

	// source position -> output column
	targets := make(map[int]string)
	header := rows[layout.HeaderRow-1]
	for i := first - 1; i < last && i < len(header); i++ {
		name := strings.TrimSpace(header[i])
		if containsFold(layout.Drop, name) {
			continue
		}
		if out, ok := layout.Rename[name]; ok {
			targets[i] = out
		}
	}
	if len(targets) == 0 {
		return nil, fmt.Errorf("sheet %q: no known columns in header row %d", sheet, layout.HeaderRow)
	}

	present := make(map[string]bool, len(targets))
	for _, c := range targets {
		present[c] = true
	}
	var columns []string
	for _, c := range layout.Order {
		if present[c] {
			columns = append(columns, c)
		}
	}

	t := models.NewTable(columns...)
	for _, raw := range rows[layout.HeaderRow:] {
		if blank(raw) {
			continue
		}
		row := make(models.Row, len(columns))
		for _, c := range columns {
			row[c] = ""
		}
		for i, c := range targets {
			if i < len(raw) {
				row[c] = strings.TrimSpace(raw[i])
			}
		}
		if v, ok := row[WBColor]; ok && v != "" {
			row[WBColor] = lookup.ColorNameFromPrefix(v)
		}
		t.Append(row)
	}
	return t, nil
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}

func blank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
