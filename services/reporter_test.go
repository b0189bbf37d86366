package services

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vinpipe/lookup"
	"vinpipe/models"
	"vinpipe/utils"
)

var march2024 = time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC)

func vehicleTable(rows ...models.Row) *models.Table {
	t := models.NewTable(models.CanonicalColumns...)
	for _, r := range rows {
		t.Append(r)
	}
	return t
}

func vehicle(model, dealer string, cells map[string]string) models.Row {
	r := models.Row{models.ColModelCode: model, models.ColDealerName: dealer}
	for k, v := range cells {
		r[k] = v
	}
	return r
}

func newTestReporter() *ReportService { return NewReportService(utils.NewNopLogger(), 64) }

func TestIncomingTwoStores(t *testing.T) {
	table := vehicleTable(
		vehicle("ROG", "CONCORD NISSAN", map[string]string{models.ColETADate: "03-15-2024"}),
	)
	s := newTestReporter()

	p := s.Incoming(table, MonthWindow(march2024, 0), []string{"ROG"}, []string{"CN", "WS"})

	assert.Equal(t, 1, p.At("ROGUE", "CN"))
	assert.Equal(t, 0, p.At("ROGUE", "WS"))
	assert.Equal(t, 1, p.At("ROGUE", models.TotalLabel))
	assert.Equal(t, 1, p.At(models.TotalLabel, models.TotalLabel))
	assert.Equal(t, 1, p.GrandTotal())
}

func TestPivotCoversFullGrid(t *testing.T) {
	s := newTestReporter()
	p := s.Incoming(vehicleTable(), MonthWindow(march2024, 0), lookup.Models(), lookup.Stores())

	assert.Len(t, p.RowLabels(), len(lookup.Models())+1)
	assert.Len(t, p.ColumnLabels(), len(lookup.Stores())+1)
	assert.Equal(t, models.TotalLabel, p.RowLabels()[len(lookup.Models())])
	for _, row := range p.Counts {
		for _, v := range row {
			assert.Zero(t, v)
		}
	}
}

func TestRowsOutsideGridAreNotCounted(t *testing.T) {
	table := vehicleTable(
		vehicle("ROG", "CONCORD NISSAN", map[string]string{models.ColETADate: "03-02-2024"}),
		vehicle("XYZ", "CONCORD NISSAN", map[string]string{models.ColETADate: "03-02-2024"}),
		vehicle("ROG", "SOMEWHERE ELSE NISSAN", map[string]string{models.ColETADate: "03-02-2024"}),
	)

	p := newTestReporter().Incoming(table, MonthWindow(march2024, 0), []string{"ROG"}, []string{"CN"})
	assert.Equal(t, 1, p.GrandTotal())
}

func TestRetailedHasNoUpperBound(t *testing.T) {
	table := vehicleTable(
		vehicle("ALT", "WINSTON-SALEM NISSAN", map[string]string{
			models.ColLocation: models.LocationRetailed, models.ColSoldDate: "03-01-2024"}),
		vehicle("ALT", "WINSTON-SALEM NISSAN", map[string]string{
			models.ColLocation: models.LocationRetailed, models.ColSoldDate: "06-20-2024"}),
		vehicle("ALT", "WINSTON-SALEM NISSAN", map[string]string{
			models.ColLocation: models.LocationRetailed, models.ColSoldDate: "02-29-2024"}),
		vehicle("ALT", "WINSTON-SALEM NISSAN", map[string]string{
			models.ColLocation: models.LocationDealerInv, models.ColSoldDate: "03-05-2024"}),
	)

	p := newTestReporter().Retailed(table, MonthWindow(march2024, 0), []string{"ALT"}, []string{"WS"})
	assert.Equal(t, 2, p.At("ALTIMA", "WS"))
}

func TestOnHandIgnoresWindow(t *testing.T) {
	table := vehicleTable(
		vehicle("KIC", "LAKE NORMAN NISSAN", map[string]string{models.ColLocation: models.LocationDealerInv}),
		vehicle("KIC", "LAKE NORMAN NISSAN", map[string]string{
			models.ColLocation: models.LocationDealerInv, models.ColETADate: "01-01-2020"}),
		vehicle("KIC", "LAKE NORMAN NISSAN", map[string]string{
			models.ColLocation: models.LocationDealerInv, models.ColSoldDate: "03-03-2024"}),
		vehicle("KIC", "LAKE NORMAN NISSAN", map[string]string{models.ColLocation: "IN TRANSIT"}),
	)

	p := newTestReporter().OnHand(table, []string{"KIC"}, []string{"LN"})
	assert.Equal(t, 2, p.At("KICKS", "LN"))
}

func TestDeliveredWindowIsInclusive(t *testing.T) {
	table := vehicleTable(
		vehicle("SEN", "CONCORD NISSAN", map[string]string{models.ColDeliveryDate: "03-01-2024"}),
		vehicle("SEN", "CONCORD NISSAN", map[string]string{models.ColDeliveryDate: "03-31-2024"}),
		vehicle("SEN", "CONCORD NISSAN", map[string]string{models.ColDeliveryDate: "04-01-2024"}),
		vehicle("SEN", "CONCORD NISSAN", map[string]string{models.ColDeliveryDate: ""}),
	)

	p := newTestReporter().Delivered(table, MonthWindow(march2024, 0), []string{"SEN"}, []string{"CN"})
	assert.Equal(t, 2, p.GrandTotal())
}

func TestBalanceToArrive(t *testing.T) {
	table := vehicleTable(
		vehicle("ROG", "CONCORD NISSAN", map[string]string{models.ColETADate: "03-04-2024"}),
		vehicle("ROG", "CONCORD NISSAN", map[string]string{models.ColETADate: "03-05-2024"}),
		vehicle("ROG", "CONCORD NISSAN", map[string]string{models.ColDeliveryDate: "03-06-2024"}),
		vehicle("ALT", "WINSTON-SALEM NISSAN", map[string]string{models.ColDeliveryDate: "03-06-2024"}),
	)
	s := newTestReporter()
	w := MonthWindow(march2024, 0)
	codes, stores := []string{"ROG", "ALT"}, []string{"CN", "WS"}

	in := s.Incoming(table, w, codes, stores)
	del := s.Delivered(table, w, codes, stores)
	bal, err := BalanceToArrive(in, del)
	require.NoError(t, err)

	for i := range bal.Counts {
		for j := range bal.Counts[i] {
			assert.Equal(t, in.Counts[i][j]-del.Counts[i][j], bal.Counts[i][j])
		}
	}
	assert.Equal(t, 1, bal.At("ROGUE", "CN"))
	assert.Equal(t, -1, bal.At("ALTIMA", "WS"), "negative balances are kept")
	assert.Equal(t, 0, bal.GrandTotal())
}

func TestBalanceToArriveShapeMismatch(t *testing.T) {
	a := models.NewPivot(ViewIncoming, []string{"ROGUE"}, []string{"CN"})
	b := models.NewPivot(ViewDelivered, []string{"ROGUE"}, []string{"CN", "WS"})

	_, err := BalanceToArrive(a, b)
	assert.Error(t, err)
}

func TestMonthWindow(t *testing.T) {
	tests := []struct {
		name      string
		ref       time.Time
		offset    int
		wantStart string
		wantEnd   string
	}{
		{"leap february", time.Date(2024, time.February, 14, 0, 0, 0, 0, time.UTC), 0, "2024-02-01", "2024-02-29"},
		{"next month", march2024, 1, "2024-04-01", "2024-04-30"},
		{"across year end", time.Date(2024, time.November, 30, 0, 0, 0, 0, time.UTC), 2, "2025-01-01", "2025-01-31"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := MonthWindow(tt.ref, tt.offset)
			assert.Equal(t, tt.wantStart, w.Start.Format("2006-01-02"))
			assert.Equal(t, tt.wantEnd, w.End.Format("2006-01-02"))
		})
	}
}

func TestGenerateOutlook(t *testing.T) {
	table := vehicleTable(
		vehicle("ROG", "CONCORD NISSAN", map[string]string{models.ColETADate: "04-10-2024"}),
		vehicle("ROG", "CONCORD NISSAN", map[string]string{models.ColETADate: "05-10-2024"}),
		vehicle("ROG", "CONCORD NISSAN", map[string]string{models.ColETADate: "05-11-2024"}),
	)

	r := newTestReporter().Generate(table, march2024)

	assert.Equal(t, 3, r.Rows)
	assert.Equal(t, 0, r.Incoming.GrandTotal())
	require.Len(t, r.Outlook, 2)
	assert.Equal(t, 1, r.Outlook[0].Incoming.At("ROGUE", "CN"))
	assert.Equal(t, 2, r.Outlook[1].Incoming.At("ROGUE", "CN"))
	assert.Equal(t, 2, r.Outlook[1].Balance.GrandTotal())
}

func TestReportCacheKeyedOnContent(t *testing.T) {
	s := newTestReporter()
	w := MonthWindow(march2024, 0)
	table := vehicleTable(vehicle("ROG", "CONCORD NISSAN", map[string]string{models.ColETADate: "03-15-2024"}))

	first := s.Incoming(table, w, []string{"ROG"}, []string{"CN"})
	again := s.Incoming(table.Clone(), w, []string{"ROG"}, []string{"CN"})
	assert.Same(t, first, again, "identical content hits the cache")

	table.Append(vehicle("ROG", "CONCORD NISSAN", map[string]string{models.ColETADate: "03-16-2024"}))
	changed := s.Incoming(table, w, []string{"ROG"}, []string{"CN"})
	assert.NotSame(t, first, changed)
	assert.Equal(t, 2, changed.GrandTotal())

	s.Invalidate()
	assert.NotSame(t, changed, s.Incoming(table, w, []string{"ROG"}, []string{"CN"}))
}

func TestPrintWritesEveryView(t *testing.T) {
	var buf bytes.Buffer
	s := newTestReporter()
	s.SetOutput(&buf)

	s.Print(s.Generate(vehicleTable(), march2024))

	out := buf.String()
	assert.Contains(t, out, "March 2024")
	assert.Contains(t, out, "Balance to arrive May 2024")
	assert.Contains(t, out, "ROGUE")
}
