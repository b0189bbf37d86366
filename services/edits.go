package services

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"vinpipe/metrics"
	"vinpipe/models"
	"vinpipe/utils"
)

// EditStoreKey is the edit field that pins a row to one store. It is routing
// information and never reaches the table.
const EditStoreKey = "store"

var (
	// ErrMissingVIN is returned for an edit row without a vin.
	ErrMissingVIN = errors.New("edit row has no vin")
	// ErrUnknownStore is returned when an edit names a store that did not load.
	ErrUnknownStore = errors.New("store did not load")
	// ErrStoreRequired is returned for a new vin sent without a store.
	ErrStoreRequired = errors.New("new vin needs a store")
)

// AmbiguousVINError is returned when a vin is held by several stores and the
// edit does not name one.
type AmbiguousVINError struct {
	VIN    string
	Stores []string
}

func (e *AmbiguousVINError) Error() string {
	return fmt.Sprintf("vin %s is held by stores %s; name one", e.VIN, strings.Join(e.Stores, ", "))
}

// DuplicateVINError is returned when an edit targets a vin the base table
// holds more than once, so there is no single row to update.
type DuplicateVINError struct {
	VIN  string
	Rows []int
}

func (e *DuplicateVINError) Error() string {
	return fmt.Sprintf("vin %s appears in %d rows (%v)", e.VIN, len(e.Rows), e.Rows)
}

// UnknownColumnError is returned for an edit cell outside the canonical
// vocabulary.
type UnknownColumnError struct {
	Column string
}

func (e *UnknownColumnError) Error() string {
	return fmt.Sprintf("unknown column %q", e.Column)
}

// EditResult is the merged table and what changed.
type EditResult struct {
	Table    *models.Table
	Updated  int
	Inserted int
}

// ApplyEdits upserts edit rows into a copy of base, keyed by vin. A matching
// row has the edit's cells overwritten; an unknown vin is appended. Every
// edit is validated before anything is applied, and base is never modified.
func ApplyEdits(base *models.Table, edits []models.Row) (*EditResult, error) {
	index := make(map[string][]int, base.Len())
	for i, r := range base.Rows {
		vin := strings.TrimSpace(r[models.ColVIN])
		if vin != "" {
			index[vin] = append(index[vin], i)
		}
	}

	for n, e := range edits {
		vin := strings.TrimSpace(e[models.ColVIN])
		if vin == "" {
			return nil, fmt.Errorf("edit %d: %w", n+1, ErrMissingVIN)
		}
		for col := range e {
			if !models.IsCanonicalColumn(col) {
				return nil, fmt.Errorf("edit %d (vin %s): %w", n+1, vin, &UnknownColumnError{Column: col})
			}
		}
		if rows := index[vin]; len(rows) > 1 {
			return nil, fmt.Errorf("edit %d: %w", n+1, &DuplicateVINError{VIN: vin, Rows: rows})
		}
	}

	out := base.Clone()
	res := &EditResult{Table: out}
	for _, e := range edits {
		vin := strings.TrimSpace(e[models.ColVIN])
		for col := range e {
			if !out.HasColumn(col) {
				out.Columns = append(out.Columns, col)
			}
		}

		if rows, ok := index[vin]; ok {
			row := out.Rows[rows[0]]
			for col, v := range e {
				row[col] = v
			}
			row[models.ColVIN] = vin
			res.Updated++
			continue
		}

		row := make(models.Row, len(out.Columns))
		for _, c := range out.Columns {
			row[c] = ""
		}
		for col, v := range e {
			row[col] = v
		}
		row[models.ColVIN] = vin
		out.Append(row)
		index[vin] = []int{out.Len() - 1}
		res.Inserted++
	}

	metrics.RecordEdits(res.Updated, res.Inserted)
	return res, nil
}

// StoreEditResult is a load result with edits applied to the owning store
// tables and the union rebuilt from them.
type StoreEditResult struct {
	Result   *LoadResult
	Updated  int
	Inserted int
}

// ApplyStoreEdits routes each edit to one store table and upserts it there.
// The store is the edit's "store" field when set, otherwise the only store
// holding the vin. All stores are validated before any table is replaced, and
// res is never modified.
func ApplyStoreEdits(res *LoadResult, edits []models.Row) (*StoreEditResult, error) {
	owners := make(map[string][]string)
	for _, st := range res.Stores {
		for _, r := range st.Table.Rows {
			vin := strings.TrimSpace(r[models.ColVIN])
			if vin == "" {
				continue
			}
			if held := owners[vin]; len(held) == 0 || held[len(held)-1] != st.Store {
				owners[vin] = append(held, st.Store)
			}
		}
	}

	groups := make(map[string][]models.Row)
	for n, e := range edits {
		vin := strings.TrimSpace(e[models.ColVIN])
		if vin == "" {
			return nil, fmt.Errorf("edit %d: %w", n+1, ErrMissingVIN)
		}

		store := strings.TrimSpace(e[EditStoreKey])
		switch held := owners[vin]; {
		case store != "":
			if res.Table(store) == nil {
				return nil, fmt.Errorf("edit %d (vin %s): %w: %s", n+1, vin, ErrUnknownStore, store)
			}
		case len(held) == 0:
			return nil, fmt.Errorf("edit %d (vin %s): %w", n+1, vin, ErrStoreRequired)
		case len(held) > 1:
			return nil, fmt.Errorf("edit %d: %w", n+1, &AmbiguousVINError{VIN: vin, Stores: held})
		default:
			store = held[0]
		}

		row := make(models.Row, len(e))
		for col, v := range e {
			if col != EditStoreKey {
				row[col] = v
			}
		}
		groups[store] = append(groups[store], row)
	}

	next := &LoadResult{
		Stores:   make([]StoreTable, len(res.Stores)),
		Failures: res.Failures,
	}
	out := &StoreEditResult{Result: next}
	tables := make([]*models.Table, len(res.Stores))
	for i, st := range res.Stores {
		next.Stores[i] = st
		tables[i] = st.Table
		rows, ok := groups[st.Store]
		if !ok {
			continue
		}
		applied, err := ApplyEdits(st.Table, rows)
		if err != nil {
			return nil, fmt.Errorf("store %s: %w", st.Store, err)
		}
		next.Stores[i].Table = applied.Table
		tables[i] = applied.Table
		out.Updated += applied.Updated
		out.Inserted += applied.Inserted
	}
	next.Union = Union(tables...)
	return out, nil
}

// DuplicateVINs lists the vins that occur more than once in t, sorted. The
// union keeps such rows; this only surfaces them.
func DuplicateVINs(t *models.Table) []string {
	seen := utils.NewKeySet()
	dups := utils.NewKeySet()
	var out []string
	for _, r := range t.Rows {
		vin := strings.TrimSpace(r[models.ColVIN])
		if vin == "" {
			continue
		}
		if !seen.Add(vin) && dups.Add(vin) {
			out = append(out, vin)
		}
	}
	sort.Strings(out)
	return out
}
