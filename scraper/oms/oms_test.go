package oms

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vinpipe/config"
	"vinpipe/utils"
)

func TestParseCookieHeader(t *testing.T) {
	got := ParseCookieHeader(`"JSESSIONID=abc123; SMSESSION=x=y ; broken; =v"`)
	assert.Equal(t, []Cookie{
		{Name: "JSESSIONID", Value: "abc123"},
		{Name: "SMSESSION", Value: "x=y"},
	}, got)
}

func TestCookieParamsCoverBothDomains(t *testing.T) {
	params := cookieParams([]Cookie{{Name: "a", Value: "1"}})
	require.Len(t, params, 2)
	assert.Equal(t, "oms-b.nnanet.com", params[0].Domain)
	assert.Equal(t, ".nnanet.com", params[1].Domain)
}

func TestShortCookieID(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{"foo=1; JSESSIONID=0123456789ABCDEF", "JSESSIONID:89ABCDEF"},
		{"JSESSIONID=short", "JSESSIONID:short"},
		{"SMSESSION=aaaaaaaaaaaaaaaaaaaaaaaaaaaa", "SMSESSION=aaaaaaaaaaaaaa..."},
		{"a=b", "a=b"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ShortCookieID(tt.header))
	}
}

func TestOutputName(t *testing.T) {
	now := time.Date(2024, time.March, 5, 14, 0, 0, 0, time.UTC)
	assert.Equal(t, "Hickory90.xls", OutputName("Hickory", 90, false, now))
	assert.Equal(t, "Hickory90_20240305.xls", OutputName("Hickory", 90, true, now))
}

func TestForms(t *testing.T) {
	q := SellDaysQuery(90, 26)
	assert.Equal(t, "90", q.Get("rollDays"))
	assert.Equal(t, "26", q.Get("sellDays"))
	assert.Equal(t, "selldays", q.Get("sourcePage"))

	f := ExportForm("5544", 45)
	assert.Equal(t, "5544", f.Get("dlrNum"))
	assert.Equal(t, "", f.Get("rollDays"), "only 30 and 90 day spans are sent")
	assert.Equal(t, "Excel", f.Get("contentType"))
}

func TestCheckExport(t *testing.T) {
	login := []byte("<html><body><form>Please Sign In to continue</form></body></html>")

	assert.NoError(t, CheckExport(200, "application/vnd.ms-excel", []byte("<table>...</table>")))
	assert.NoError(t, CheckExport(200, "text/html; excel", login), "excel-typed html is an export")
	assert.ErrorIs(t, CheckExport(200, "text/html;charset=UTF-8", login), ErrLoginPage)
	assert.NoError(t, CheckExport(200, "text/html", []byte("<table><tr><td>VIN</td></tr></table>")))
	assert.Error(t, CheckExport(500, "application/vnd.ms-excel", nil))

	late := append([]byte(strings.Repeat("x", 4000)), []byte("login")...)
	assert.NoError(t, CheckExport(200, "text/html", late), "only the head of the body is inspected")
}

func TestDownloadMissingCookies(t *testing.T) {
	cfg := &config.Config{
		ExportDir:      t.TempDir(),
		MaxConcurrency: 2,
		RateLimitMs:    0,
		MaxRetries:     1,
		RollDays:       90,
		SellDays:       26,
	}
	d := New(cfg, utils.NewNopLogger())
	d.cookieFor = func(string) string { return "" }

	jobs := JobsFromStores(config.DefaultStores())
	results, err := d.Download(context.Background(), jobs)

	require.Error(t, err)
	require.Len(t, results, len(jobs))
	for i, r := range results {
		assert.Equal(t, jobs[i], r.Job)
		assert.True(t, errors.Is(r.Err, ErrNoCookie))
		assert.Empty(t, r.Path)
	}
	assert.Contains(t, results[0].Err.Error(), "CONCORD_COOKIE")
}
