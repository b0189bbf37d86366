package services

import "vinpipe/models"

// Union concatenates tables with outer column alignment: the result carries
// every column seen, in first-seen order, and cells a source table lacks are
// "". Rows are never deduplicated; nil tables are skipped.
func Union(tables ...*models.Table) *models.Table {
	var columns []string
	seen := make(map[string]bool)
	for _, t := range tables {
		if t == nil {
			continue
		}
		for _, c := range t.Columns {
			if !seen[c] {
				seen[c] = true
				columns = append(columns, c)
			}
		}
	}

	out := models.NewTable(columns...)
	for _, t := range tables {
		if t == nil {
			continue
		}
		for _, r := range t.Rows {
			row := make(models.Row, len(columns))
			for _, c := range columns {
				row[c] = r[c]
			}
			out.Append(row)
		}
	}
	return out
}
