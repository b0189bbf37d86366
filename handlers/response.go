package handlers

import (
	"encoding/json"
	"net/http"

	"vinpipe/models"
)

// Helper to respond with JSON
func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		http.Error(w, `{"error":"Failed to marshal JSON response"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

type tableJSON struct {
	Columns []string     `json:"columns"`
	Rows    []models.Row `json:"rows"`
	Count   int          `json:"count"`
}

// filterTable keeps rows matching every query parameter that names a
// column, e.g. ?model_code=ROG&location=DLR%20INV.
func filterTable(t *models.Table, r *http.Request) tableJSON {
	filters := make(map[string]string)
	for k, v := range r.URL.Query() {
		if t.HasColumn(k) && len(v) > 0 {
			filters[k] = v[0]
		}
	}

	rows := make([]models.Row, 0, t.Len())
	for _, row := range t.Rows {
		keep := true
		for col, want := range filters {
			if row[col] != want {
				keep = false
				break
			}
		}
		if keep {
			rows = append(rows, row)
		}
	}
	return tableJSON{Columns: t.Columns, Rows: rows, Count: len(rows)}
}

type pivotJSON struct {
	Name    string   `json:"name"`
	Rows    []string `json:"rows"`
	Columns []string `json:"columns"`
	Counts  [][]int  `json:"counts"`
}

type outlookJSON struct {
	Start    string    `json:"start"`
	End      string    `json:"end"`
	Incoming pivotJSON `json:"incoming"`
	Balance  pivotJSON `json:"balance_to_arrive"`
}

type reportJSON struct {
	Reference string        `json:"reference"`
	Start     string        `json:"start"`
	End       string        `json:"end"`
	Rows      int           `json:"rows"`
	Incoming  pivotJSON     `json:"incoming"`
	Retailed  pivotJSON     `json:"retailed"`
	OnHand    pivotJSON     `json:"on_hand"`
	Delivered pivotJSON     `json:"delivered"`
	Balance   pivotJSON     `json:"balance_to_arrive"`
	Outlook   []outlookJSON `json:"outlook"`
}

func toPivotJSON(p *models.Pivot) pivotJSON {
	return pivotJSON{Name: p.Name, Rows: p.RowLabels(), Columns: p.ColumnLabels(), Counts: p.Counts}
}

func reportResponse(r *models.InventoryReport) reportJSON {
	const day = "2006-01-02"
	out := reportJSON{
		Reference: r.Reference.Format(day),
		Start:     r.Window.Start.Format(day),
		End:       r.Window.End.Format(day),
		Rows:      r.Rows,
		Incoming:  toPivotJSON(r.Incoming),
		Retailed:  toPivotJSON(r.Retailed),
		OnHand:    toPivotJSON(r.OnHand),
		Delivered: toPivotJSON(r.Delivered),
		Balance:   toPivotJSON(r.Balance),
	}
	for _, o := range r.Outlook {
		out.Outlook = append(out.Outlook, outlookJSON{
			Start:    o.Window.Start.Format(day),
			End:      o.Window.End.Format(day),
			Incoming: toPivotJSON(o.Incoming),
			Balance:  toPivotJSON(o.Balance),
		})
	}
	return out
}
