package reader

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"vinpipe/models"
)

// ReadHTMLTable opens path and parses the first HTML <table> in it. The file
// extension is ignored: exports arrive as HTML saved with ".xls".
func ReadHTMLTable(path string) (*models.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, notFound(path, err)
		}
		return nil, parseFailure(path, err)
	}
	defer f.Close()

	t, err := ParseHTMLTable(f)
	if err != nil {
		return nil, parseFailure(path, err)
	}
	return t, nil
}

// ParseHTMLTable reads the first <table> from r. The first row holding any
// cells is the header; later rows are padded or cut to the header width.
func ParseHTMLTable(r io.Reader) (*models.Table, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("read html: %w", err)
	}

	table := doc.Find("table").First()
	if table.Length() == 0 {
		return nil, errors.New("no <table> element")
	}

	var header []string
	var records [][]string
	table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		// rows of nested tables belong to those tables
		if !tr.Closest("table").IsSelection(table) {
			return
		}
		var cells []string
		tr.ChildrenFiltered("th, td").Each(func(_ int, c *goquery.Selection) {
			cells = append(cells, cleanCell(c.Text()))
		})
		if len(cells) == 0 {
			return
		}
		if header == nil {
			header = headerNames(cells)
			return
		}
		records = append(records, cells)
	})

	if header == nil {
		return nil, errors.New("table has no header row")
	}

	t := models.NewTable(header...)
	for _, rec := range records {
		row := make(models.Row, len(header))
		for i, col := range header {
			if i < len(rec) {
				row[col] = rec[i]
			} else {
				row[col] = ""
			}
		}
		t.Append(row)
	}
	return t, nil
}

// headerNames fills blank headers with positional names and suffixes repeats
// so every column name is unique.
func headerNames(cells []string) []string {
	out := make([]string, len(cells))
	seen := make(map[string]int, len(cells))
	for i, c := range cells {
		name := c
		if name == "" {
			name = fmt.Sprintf("Unnamed: %d", i)
		}
		if n, dup := seen[name]; dup {
			base := name
			for {
				n++
				name = fmt.Sprintf("%s.%d", base, n)
				if _, taken := seen[name]; !taken {
					break
				}
			}
			seen[base] = n
		}
		seen[name] = 0
		out[i] = name
	}
	return out
}

func cleanCell(s string) string {
	// Fields also splits on non-breaking spaces
	return strings.Join(strings.Fields(s), " ")
}
