package services

import (
	"sort"
	"strings"

	"vinpipe/lookup"
	"vinpipe/models"
	"vinpipe/utils"
)

// optionBlob is the intermediate column holding the raw option-code list the
// package label is derived from. It never leaves the normalizer.
const optionBlob = "_option_blob"

// sourceColumns is the allow-list of export headers and the canonical column
// each one becomes. Headers are matched case-insensitively.
var sourceColumns = []struct {
	source    string
	canonical string
}{
	{"LOCATION", models.ColLocation},
	{"ORDER NUMBER", models.ColOrderNumber},
	{"MY", models.ColModelYear},
	{"MODEL", models.ColModelCode},
	{"TRIM", models.ColTrim},
	{"DRIVE", models.ColDrivetrain},
	{"EXT COLOR", models.ColExteriorColor},
	{"INT COLOR", models.ColInterior},
	{"FOC", models.ColFactoryOptionCode},
	{"GOPTS", optionBlob},
	{"VIN", models.ColVIN},
	{"DEALER NAME", models.ColDealerName},
	{"DELIVERY DATE", models.ColDeliveryDate},
	{"ETA", models.ColETADate},
	{"ORDER DATE", models.ColOrderDate},
	{"SOLD DATE", models.ColSoldDate},
	{"CUSTOMER NAME", models.ColCustomerName},
	{"CUSTOMER EMAIL", models.ColCustomerEmail},
}

var dateColumns = []string{
	models.ColETADate, models.ColDeliveryDate, models.ColOrderDate, models.ColSoldDate,
}

// Normalizer turns a raw store export table into a canonical vehicle table.
type Normalizer struct {
	logger *utils.Logger
}

// NewNormalizer creates a Normalizer with the given logger.
func NewNormalizer(logger *utils.Logger) *Normalizer {
	return &Normalizer{logger: logger}
}

// Normalize selects and renames the allow-listed columns, derives model year,
// option code, color, dates and package, stamps storeFile on every row and
// sorts by model code. The raw table is not modified.
func (n *Normalizer) Normalize(raw *models.Table, storeFile string) *models.Table {
	rename := make(map[string]string)
	present := make(map[string]bool)
	for _, col := range raw.Columns {
		key := strings.ToUpper(strings.TrimSpace(col))
		for _, sc := range sourceColumns {
			if sc.source == key && !present[sc.canonical] {
				rename[col] = sc.canonical
				present[sc.canonical] = true
			}
		}
	}
	for _, sc := range sourceColumns {
		if !present[sc.canonical] {
			n.logger.Debug("[normalizer] %s: export has no %q column", storeFile, sc.source)
		}
	}

	// package and store_file always exist, wherever drivetrain ends up
	present[models.ColPackage] = true
	present[models.ColStoreFile] = true
	var columns []string
	for _, c := range models.CanonicalColumns {
		if present[c] {
			columns = append(columns, c)
		}
	}

	out := models.NewTable(columns...)
	badDates := 0
	for _, r := range raw.Rows {
		row := make(models.Row, len(columns)+1)
		for _, c := range columns {
			row[c] = ""
		}
		for src, dst := range rename {
			row[dst] = r[src]
		}

		if present[models.ColModelYear] {
			row[models.ColModelYear] = stripCheckChar(row[models.ColModelYear])
		}
		if present[models.ColFactoryOptionCode] {
			row[models.ColFactoryOptionCode] = strings.ReplaceAll(row[models.ColFactoryOptionCode], ",", "")
		}
		if present[models.ColExteriorColor] {
			row[models.ColExteriorColor] = lookup.ColorName(row[models.ColExteriorColor])
		}
		for _, dc := range dateColumns {
			if !present[dc] {
				continue
			}
			rawDate := row[dc]
			row[dc] = NormalizeDate(rawDate)
			if row[dc] == "" && strings.TrimSpace(rawDate) != "" {
				badDates++
			}
		}

		row[models.ColPackage] = lookup.PackageLabel(row[optionBlob])
		delete(row, optionBlob)
		row[models.ColStoreFile] = storeFile

		out.Append(row)
	}

	sort.SliceStable(out.Rows, func(i, j int) bool {
		return out.Rows[i][models.ColModelCode] < out.Rows[j][models.ColModelCode]
	})

	if badDates > 0 {
		n.logger.Warn("[normalizer] %s: %d unparsable date cells left empty", storeFile, badDates)
	}
	n.logger.Info("[normalizer] %s: normalized %d rows, %d columns", storeFile, out.Len(), len(columns))
	return out
}

// stripCheckChar drops the trailing check character exports append to the
// model year ("2024A" -> "2024").
func stripCheckChar(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	runes := []rune(s)
	return string(runes[:len(runes)-1])
}
