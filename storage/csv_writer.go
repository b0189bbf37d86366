package storage

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/jszwec/csvutil"

	"vinpipe/models"
)

// CSVWriter writes canonical tables to a CSV file, one column per Vehicle
// field. It is safe for concurrent use.
type CSVWriter struct {
	mu   sync.Mutex
	path string
}

// NewCSVWriter prepares a writer for path. Intermediate directories are
// created automatically.
func NewCSVWriter(path string) (*CSVWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("csv: create output dir: %w", err)
	}
	return &CSVWriter{path: path}, nil
}

// Path returns the output file.
func (c *CSVWriter) Path() string {
	return c.path
}

// Write replaces the file with t. The header is written even for an empty
// table.
func (c *CSVWriter) Write(t *models.Table) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	f, err := os.Create(c.path)
	if err != nil {
		return fmt.Errorf("csv: create file %q: %w", c.path, err)
	}
	defer f.Close()

	if err := EncodeCSV(f, t); err != nil {
		return err
	}
	return f.Close()
}

// Close is a no-op; each Write opens and closes its own file.
func (c *CSVWriter) Close() error {
	return nil
}

// EncodeCSV writes t to w in Vehicle column order.
func EncodeCSV(w io.Writer, t *models.Table) error {
	cw := csv.NewWriter(w)
	enc := csvutil.NewEncoder(cw)

	if err := enc.EncodeHeader(models.Vehicle{}); err != nil {
		return fmt.Errorf("csv: write header: %w", err)
	}
	for _, v := range t.Vehicles() {
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("csv: write row %s: %w", v.VIN, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// ReadEditsCSV decodes an edits file. Each row carries only the columns the
// file has; header names are trimmed and lower-cased. Columns outside the
// canonical set are kept so the caller can reject them.
func ReadEditsCSV(r io.Reader) ([]models.Row, error) {
	cr := csv.NewReader(r)
	raw, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("csv: read edits header: %w", err)
	}

	header := make([]string, len(raw))
	for i, h := range raw {
		header[i] = strings.ToLower(strings.TrimSpace(h))
	}

	dec, err := csvutil.NewDecoder(cr, header...)
	if err != nil {
		return nil, fmt.Errorf("csv: edits decoder: %w", err)
	}

	var edits []models.Row
	for {
		var v models.Vehicle
		if err := dec.Decode(&v); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("csv: decode edit %d: %w", len(edits)+1, err)
		}

		known := v.Row(header)
		rec := dec.Record()
		row := make(models.Row, len(header))
		for i, col := range header {
			if models.IsCanonicalColumn(col) {
				row[col] = known[col]
			} else if i < len(rec) {
				row[col] = rec[i]
			}
		}
		edits = append(edits, row)
	}
	return edits, nil
}
