package services

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"vinpipe/lookup"
	"vinpipe/metrics"
	"vinpipe/models"
	"vinpipe/utils"
)

// View names.
const (
	ViewIncoming  = "incoming"
	ViewRetailed  = "retailed"
	ViewOnHand    = "on_hand"
	ViewDelivered = "delivered"
	ViewBalance   = "balance_to_arrive"
)

// ReportService builds store × model cross-tabs over a unioned table.
// Results are memoized by table content and parameters.
type ReportService struct {
	logger *utils.Logger
	cache  *lru.Cache[string, *models.Pivot]
	out    io.Writer
}

// NewReportService creates a ReportService holding up to cacheSize pivots.
func NewReportService(logger *utils.Logger, cacheSize int) *ReportService {
	if cacheSize < 1 {
		cacheSize = 1
	}
	cache, _ := lru.New[string, *models.Pivot](cacheSize)
	return &ReportService{logger: logger, cache: cache, out: os.Stdout}
}

// SetOutput redirects Print.
func (s *ReportService) SetOutput(w io.Writer) {
	s.out = w
}

// Invalidate drops every memoized pivot.
func (s *ReportService) Invalidate() {
	s.cache.Purge()
}

// MonthWindow returns the first through last day of the month offset months
// after ref's month.
func MonthWindow(ref time.Time, offset int) models.Window {
	start := time.Date(ref.Year(), ref.Month()+time.Month(offset), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, -1)
	return models.Window{Start: start, End: end}
}

// Incoming counts vehicles whose ETA falls inside w.
func (s *ReportService) Incoming(t *models.Table, w models.Window, modelCodes, stores []string) *models.Pivot {
	return s.view(ViewIncoming, t, t.Fingerprint(), w, modelCodes, stores)
}

// Retailed counts RETAILED vehicles sold on or after w.Start. w.End is not
// applied: sales keep counting forward from the start date.
func (s *ReportService) Retailed(t *models.Table, w models.Window, modelCodes, stores []string) *models.Pivot {
	return s.view(ViewRetailed, t, t.Fingerprint(), w, modelCodes, stores)
}

// OnHand counts DLR INV vehicles with no sold date. It is not windowed.
func (s *ReportService) OnHand(t *models.Table, modelCodes, stores []string) *models.Pivot {
	return s.view(ViewOnHand, t, t.Fingerprint(), models.Window{}, modelCodes, stores)
}

// Delivered counts vehicles whose delivery date falls inside w.
func (s *ReportService) Delivered(t *models.Table, w models.Window, modelCodes, stores []string) *models.Pivot {
	return s.view(ViewDelivered, t, t.Fingerprint(), w, modelCodes, stores)
}

// BalanceToArrive subtracts delivered from incoming cell by cell, totals
// included. Cells may go negative and are kept as-is.
func BalanceToArrive(incoming, delivered *models.Pivot) (*models.Pivot, error) {
	if !sameLabels(incoming.Models, delivered.Models) || !sameLabels(incoming.Stores, delivered.Stores) {
		return nil, fmt.Errorf("report: balance: pivot shapes differ (%dx%d vs %dx%d)",
			len(incoming.Models), len(incoming.Stores), len(delivered.Models), len(delivered.Stores))
	}
	out := models.NewPivot(ViewBalance, incoming.Models, incoming.Stores)
	for i := range out.Counts {
		for j := range out.Counts[i] {
			out.Counts[i][j] = incoming.Counts[i][j] - delivered.Counts[i][j]
		}
	}
	return out, nil
}

// Generate builds the full report for the month containing ref plus the
// incoming and balance outlook for the two following months, using the
// default model and store lists.
func (s *ReportService) Generate(t *models.Table, ref time.Time) *models.InventoryReport {
	return s.GenerateFor(t, ref, lookup.Models(), lookup.Stores())
}

// GenerateFor is Generate with explicit model and store lists.
func (s *ReportService) GenerateFor(t *models.Table, ref time.Time, modelCodes, stores []string) *models.InventoryReport {
	timer := metrics.NewTimer()
	fp := t.Fingerprint()
	w := MonthWindow(ref, 0)

	report := &models.InventoryReport{
		Reference: ref,
		Window:    w,
		Rows:      t.Len(),
		Incoming:  s.view(ViewIncoming, t, fp, w, modelCodes, stores),
		Retailed:  s.view(ViewRetailed, t, fp, w, modelCodes, stores),
		OnHand:    s.view(ViewOnHand, t, fp, models.Window{}, modelCodes, stores),
		Delivered: s.view(ViewDelivered, t, fp, w, modelCodes, stores),
	}
	// same shape by construction
	report.Balance, _ = BalanceToArrive(report.Incoming, report.Delivered)

	for offset := 1; offset <= 2; offset++ {
		mw := MonthWindow(ref, offset)
		in := s.view(ViewIncoming, t, fp, mw, modelCodes, stores)
		del := s.view(ViewDelivered, t, fp, mw, modelCodes, stores)
		bal, _ := BalanceToArrive(in, del)
		report.Outlook = append(report.Outlook, models.MonthOutlook{Window: mw, Incoming: in, Balance: bal})
	}

	metrics.RecordReport(timer.Duration())
	s.logger.Info("[report] Generated report for %s over %d rows", w, t.Len())
	return report
}

func (s *ReportService) view(name string, t *models.Table, fingerprint string, w models.Window, modelCodes, stores []string) *models.Pivot {
	key := strings.Join([]string{
		name, fingerprint, w.String(), strings.Join(modelCodes, ","), strings.Join(stores, ","),
	}, "|")
	if p, ok := s.cache.Get(key); ok {
		s.logger.Debug("[report] cache hit for %s %s", name, w)
		return p
	}

	p := crossTab(name, t, predicateFor(name, w), modelCodes, stores)
	s.cache.Add(key, p)
	return p
}

func predicateFor(name string, w models.Window) func(models.Row) bool {
	inWindow := func(cell string) bool {
		d, ok := canonicalDate(cell)
		return ok && w.Contains(d)
	}

	switch name {
	case ViewIncoming:
		return func(r models.Row) bool { return inWindow(r[models.ColETADate]) }
	case ViewRetailed:
		return func(r models.Row) bool {
			if r[models.ColLocation] != models.LocationRetailed {
				return false
			}
			d, ok := canonicalDate(r[models.ColSoldDate])
			return ok && !d.Before(w.Start)
		}
	case ViewOnHand:
		return func(r models.Row) bool {
			return r[models.ColLocation] == models.LocationDealerInv && r[models.ColSoldDate] == ""
		}
	case ViewDelivered:
		return func(r models.Row) bool { return inWindow(r[models.ColDeliveryDate]) }
	}
	return func(models.Row) bool { return false }
}

// crossTab counts matching rows by (model, store) over the full
// modelCodes × stores grid and fills in the totals. Rows whose model or
// store is outside the grid are not counted.
func crossTab(name string, t *models.Table, match func(models.Row) bool, modelCodes, stores []string) *models.Pivot {
	labels := make([]string, len(modelCodes))
	modelIdx := make(map[string]int, len(modelCodes))
	for i, code := range modelCodes {
		labels[i] = lookup.ModelName(code)
		modelIdx[code] = i
	}
	storeIdx := make(map[string]int, len(stores))
	for j, st := range stores {
		storeIdx[st] = j
	}

	p := models.NewPivot(name, labels, stores)
	for _, r := range t.Rows {
		if !match(r) {
			continue
		}
		i, ok := modelIdx[r[models.ColModelCode]]
		if !ok {
			continue
		}
		j, ok := storeIdx[lookup.StoreFor(r[models.ColDealerName])]
		if !ok {
			continue
		}
		p.Counts[i][j]++
	}

	nm, ns := len(modelCodes), len(stores)
	for i := 0; i < nm; i++ {
		for j := 0; j < ns; j++ {
			p.Counts[i][ns] += p.Counts[i][j]
			p.Counts[nm][j] += p.Counts[i][j]
		}
		p.Counts[nm][ns] += p.Counts[i][ns]
	}
	return p
}

func sameLabels(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Print writes the report to the configured output.
func (s *ReportService) Print(r *models.InventoryReport) {
	sep := strings.Repeat("═", 64)

	fmt.Fprintf(s.out, "\n\033[1;35m%s\033[0m\n", sep)
	fmt.Fprintf(s.out, "\033[1;35m  STORE INVENTORY REPORT  %s\033[0m\n", r.Reference.Format("January 2006"))
	fmt.Fprintf(s.out, "\033[1;35m%s\033[0m\n", sep)
	fmt.Fprintf(s.out, "  Vehicles in union : \033[1m%d\033[0m\n", r.Rows)
	fmt.Fprintf(s.out, "  Window            : %s\n\n", r.Window)

	s.printPivot("Incoming", r.Incoming)
	s.printPivot("Retailed (sold on or after window start)", r.Retailed)
	s.printPivot("Dealer inventory on hand", r.OnHand)
	s.printPivot("Delivered", r.Delivered)
	s.printPivot("Balance to arrive", r.Balance)

	for _, o := range r.Outlook {
		month := o.Window.Start.Format("January 2006")
		s.printPivot("Incoming "+month, o.Incoming)
		s.printPivot("Balance to arrive "+month, o.Balance)
	}

	fmt.Fprintf(s.out, "\033[1;35m%s\033[0m\n\n", sep)
}

func (s *ReportService) printPivot(title string, p *models.Pivot) {
	if p == nil {
		return
	}
	thin := strings.Repeat("─", 64)
	fmt.Fprintf(s.out, "\033[1;33m  %s\033[0m\n", title)
	fmt.Fprintf(s.out, "  %s\n", thin)

	fmt.Fprintf(s.out, "  %-14s", "")
	for _, c := range p.ColumnLabels() {
		fmt.Fprintf(s.out, "%7s", c)
	}
	fmt.Fprintln(s.out)
	for i, label := range p.RowLabels() {
		fmt.Fprintf(s.out, "  %-14s", truncate(label, 14))
		for _, v := range p.Counts[i] {
			fmt.Fprintf(s.out, "%7d", v)
		}
		fmt.Fprintln(s.out)
	}
	fmt.Fprintln(s.out)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
