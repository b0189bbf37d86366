package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vinpipe/models"
	"vinpipe/reader"
	"vinpipe/utils"
)

// writeExport writes an HTML export with the usual store columns.
func writeExport(t *testing.T, dir, name string, rows ...[]string) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("<html><body><table><tr>")
	for _, h := range []string{"LOCATION", "MY", "MODEL", "DRIVE", "GOPTS", "VIN", "DEALER NAME", "ETA"} {
		fmt.Fprintf(&b, "<th>%s</th>", h)
	}
	b.WriteString("</tr>")
	for _, r := range rows {
		b.WriteString("<tr>")
		for _, c := range r {
			fmt.Fprintf(&b, "<td>%s</td>", c)
		}
		b.WriteString("</tr>")
	}
	b.WriteString("</table></body></html>")

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	return path
}

func fourStores(t *testing.T) []Source {
	dir := t.TempDir()
	return []Source{
		{Store: "CN", Path: writeExport(t, dir, "VinpipeReport.xls",
			[]string{"DLR INV", "2024A", "ROG", "AWD", "PR1", "VIN-CN-1", "CONCORD NISSAN", "3/15/2024"},
			[]string{"DLR INV", "2024A", "ALT", "FWD", "", "VIN-CN-2", "CONCORD NISSAN", ""})},
		{Store: "WS", Path: filepath.Join(dir, "VinpipeReport.xls (1)")},
		{Store: "LN", Path: writeExport(t, dir, "VinpipeReport.xls (2)",
			[]string{"RETAILED", "2025B", "KIC", "FWD", "CN1", "VIN-LN-1", "LAKE NORMAN NISSAN", "4/1/2024"})},
		{Store: "HK", Path: writeExport(t, dir, "VinpipeReport.xls (3)",
			[]string{"DLR INV", "2024C", "SEN", "FWD", "TE2", "VIN-HK-1", "HICKORY NISSAN", "3/20/2024"})},
	}
}

func TestLoadAllSkipsMissingStore(t *testing.T) {
	loader := NewLoader(utils.NewNopLogger(), 8)

	res, err := loader.LoadAll(context.Background(), fourStores(t))
	require.NoError(t, err)

	require.Len(t, res.Failures, 1)
	assert.Equal(t, "WS", res.Failures[0].Store)
	assert.True(t, errors.Is(res.Failures[0].Err, reader.ErrSourceNotFound))
	assert.Nil(t, res.Table("WS"))

	require.Len(t, res.Stores, 3)
	assert.Equal(t, 4, res.Union.Len())

	for _, r := range res.Union.Rows {
		assert.NotEqual(t, "VinpipeReport.xls (1)", r[models.ColStoreFile])
	}
	for _, c := range res.Union.Columns {
		assert.True(t, models.IsCanonicalColumn(c))
	}
	assert.Equal(t, "PRM", res.Table("CN").Rows[1][models.ColPackage], "ROG sorts after ALT")
	assert.Equal(t, "2025", res.Table("LN").Rows[0][models.ColModelYear])
}

func TestLoadAllFeedsReport(t *testing.T) {
	loader := NewLoader(utils.NewNopLogger(), 8)
	res, err := loader.LoadAll(context.Background(), fourStores(t))
	require.NoError(t, err)

	r := newTestReporter().Generate(res.Union, march2024)
	assert.Equal(t, 1, r.Incoming.At("ROGUE", "CN"))
	assert.Equal(t, 1, r.Incoming.At("SENTRA", "HK"))
	assert.Equal(t, 0, r.Incoming.At("ROGUE", "WS"))
	assert.Equal(t, 2, r.Incoming.GrandTotal())
	assert.Equal(t, 1, r.Outlook[0].Incoming.At("KICKS", "LN"))
}

func TestLoadStoreCache(t *testing.T) {
	dir := t.TempDir()
	path := writeExport(t, dir, "export.html",
		[]string{"DLR INV", "2024A", "ROG", "AWD", "", "V1", "CONCORD NISSAN", ""})

	loader := NewLoader(utils.NewNopLogger(), 8)
	reads := 0
	loader.read = func(p string) (*models.Table, error) {
		reads++
		return reader.ReadHTMLTable(p)
	}
	src := Source{Store: "CN", Path: path}

	first, err := loader.LoadStore(src)
	require.NoError(t, err)
	first.Rows[0][models.ColVIN] = "mutated"

	second, err := loader.LoadStore(src)
	require.NoError(t, err)
	assert.Equal(t, 1, reads, "unchanged file is read once")
	assert.Equal(t, "V1", second.Rows[0][models.ColVIN], "callers get copies")

	writeExport(t, dir, "export.html",
		[]string{"DLR INV", "2024A", "ROG", "AWD", "", "V1", "CONCORD NISSAN", ""},
		[]string{"DLR INV", "2024A", "ALT", "FWD", "", "V2", "CONCORD NISSAN", ""})
	later := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(path, later, later))

	third, err := loader.LoadStore(src)
	require.NoError(t, err)
	assert.Equal(t, 2, reads)
	assert.Equal(t, 2, third.Len())

	loader.Invalidate(path)
	_, err = loader.LoadStore(src)
	require.NoError(t, err)
	assert.Equal(t, 3, reads)
}

func TestLoadStoreParseError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.xls")
	require.NoError(t, os.WriteFile(path, []byte("<html><p>session expired</p></html>"), 0o644))

	_, err := NewLoader(utils.NewNopLogger(), 4).LoadStore(Source{Store: "CN", Path: path})
	require.Error(t, err)
	assert.True(t, errors.Is(err, reader.ErrParse))

	var se *reader.SourceError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, path, se.Path)
}

func TestLoadAllHonoursCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewLoader(utils.NewNopLogger(), 4).LoadAll(ctx, fourStores(t))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestUnionAlignsColumns(t *testing.T) {
	a := models.NewTable("vin", "model_code")
	a.Append(models.Row{"vin": "V1", "model_code": "ROG"})
	b := models.NewTable("vin", "eta_date")
	b.Append(models.Row{"vin": "V1", "eta_date": "03-01-2024"})
	b.Append(models.Row{"vin": "V2", "eta_date": ""})

	u := Union(a, nil, b)

	assert.Equal(t, []string{"vin", "model_code", "eta_date"}, u.Columns)
	require.Equal(t, a.Len()+b.Len(), u.Len(), "no dedup")
	assert.Equal(t, "", u.Rows[0]["eta_date"])
	assert.Equal(t, "", u.Rows[1]["model_code"])
	assert.Equal(t, "03-01-2024", u.Rows[1]["eta_date"])
}

func TestUnionOfNothing(t *testing.T) {
	u := Union()
	assert.Equal(t, 0, u.Len())
	assert.Empty(t, u.Columns)
}
