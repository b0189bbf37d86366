package models

import "time"

// TotalLabel names the trailing row and column of a Pivot.
const TotalLabel = "Total"

// Pivot is a model × store count matrix. Counts has one row per model plus a
// trailing total row, and one column per store plus a trailing total column.
type Pivot struct {
	Name   string
	Models []string
	Stores []string
	Counts [][]int
}

// NewPivot creates a zero-filled pivot of the given shape.
func NewPivot(name string, models, stores []string) *Pivot {
	counts := make([][]int, len(models)+1)
	for i := range counts {
		counts[i] = make([]int, len(stores)+1)
	}
	return &Pivot{
		Name:   name,
		Models: append([]string(nil), models...),
		Stores: append([]string(nil), stores...),
		Counts: counts,
	}
}

// RowLabels returns the model labels followed by TotalLabel.
func (p *Pivot) RowLabels() []string {
	return append(append([]string(nil), p.Models...), TotalLabel)
}

// ColumnLabels returns the store labels followed by TotalLabel.
func (p *Pivot) ColumnLabels() []string {
	return append(append([]string(nil), p.Stores...), TotalLabel)
}

// At returns the cell for the given labels; either may be TotalLabel.
// Unknown labels read as 0.
func (p *Pivot) At(model, store string) int {
	i := indexOf(p.RowLabels(), model)
	j := indexOf(p.ColumnLabels(), store)
	if i < 0 || j < 0 {
		return 0
	}
	return p.Counts[i][j]
}

// GrandTotal returns the bottom-right cell.
func (p *Pivot) GrandTotal() int {
	return p.Counts[len(p.Models)][len(p.Stores)]
}

func indexOf(labels []string, s string) int {
	for i, l := range labels {
		if l == s {
			return i
		}
	}
	return -1
}

// Window is an inclusive calendar-date range.
type Window struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether d falls on or between Start and End, by date.
func (w Window) Contains(d time.Time) bool {
	return !d.Before(w.Start) && !d.After(w.End)
}

func (w Window) String() string {
	return w.Start.Format("2006-01-02") + ".." + w.End.Format("2006-01-02")
}

// MonthOutlook is the forward view for one month after the reference month.
type MonthOutlook struct {
	Window   Window
	Incoming *Pivot
	Balance  *Pivot
}

// InventoryReport holds the cross-store views for one reference date.
type InventoryReport struct {
	Reference time.Time
	Window    Window
	Incoming  *Pivot
	Retailed  *Pivot
	OnHand    *Pivot
	Delivered *Pivot
	Balance   *Pivot
	Outlook   []MonthOutlook
	Rows      int
}
