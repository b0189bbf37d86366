package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"vinpipe/models"
	"vinpipe/reader"
	"vinpipe/services"
	"vinpipe/storage"
	"vinpipe/utils"
)

// Deps are the collaborators a Server needs. Snapshot and Publisher may be
// nil.
type Deps struct {
	Logger     *utils.Logger
	Loader     *services.Loader
	Reporter   *services.ReportService
	Sources    []services.Source
	Snapshot   storage.TableWriter
	Publisher  storage.Publisher
	PublishKey string

	WorkbookPath string
}

// Server exposes the loaded inventory over HTTP. The in-memory table is
// guarded by a mutex; concurrent edits are last-write-wins.
type Server struct {
	deps Deps
	now  func() time.Time

	mu     sync.RWMutex
	result *services.LoadResult
}

// NewServer creates a Server with nothing loaded yet.
func NewServer(deps Deps) *Server {
	return &Server{
		deps:   deps,
		now:    time.Now,
		result: &services.LoadResult{Union: models.NewTable()},
	}
}

// Reload re-reads every store export.
func (s *Server) Reload(ctx context.Context) error {
	res, err := s.deps.Loader.LoadAll(ctx, s.deps.Sources)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.result = res
	s.mu.Unlock()
	return nil
}

// Routes returns the API mux.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", s.health)
	mux.HandleFunc("GET /api/stores", s.stores)
	mux.HandleFunc("GET /api/stores/{store}", s.store)
	mux.HandleFunc("GET /api/inventory", s.inventory)
	mux.HandleFunc("GET /api/reports", s.report)
	mux.HandleFunc("GET /api/workbook", s.workbook)
	mux.HandleFunc("POST /api/edits", s.edits)
	mux.HandleFunc("POST /api/stores/{store}/edits", s.edits)
	mux.HandleFunc("GET /api/snapshot", s.storedSnapshot)
	mux.HandleFunc("POST /api/reload", s.reload)
	mux.Handle("GET /metrics", promhttp.Handler())
	return s.logRequests(mux)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.deps.Logger.Debug("[http] %s %s (%v)", r.Method, r.URL.Path, time.Since(start))
	})
}

func (s *Server) snapshot() *services.LoadResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.result
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	res := s.snapshot()
	respondWithJSON(w, http.StatusOK, map[string]any{
		"status":        "ok",
		"rows":          res.Union.Len(),
		"stores_loaded": len(res.Stores),
		"stores_failed": len(res.Failures),
	})
}

type storeStatus struct {
	Store string `json:"store"`
	Path  string `json:"path"`
	Rows  int    `json:"rows"`
	Error string `json:"error,omitempty"`
}

func (s *Server) stores(w http.ResponseWriter, r *http.Request) {
	res := s.snapshot()
	out := make([]storeStatus, 0, len(s.deps.Sources))
	for _, src := range s.deps.Sources {
		st := storeStatus{Store: src.Store, Path: src.Path}
		if t := res.Table(src.Store); t != nil {
			st.Rows = t.Len()
		}
		for _, f := range res.Failures {
			if f.Store == src.Store {
				st.Error = f.Err.Error()
			}
		}
		out = append(out, st)
	}
	respondWithJSON(w, http.StatusOK, out)
}

func (s *Server) store(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("store")
	res := s.snapshot()
	if t := res.Table(name); t != nil {
		respondWithJSON(w, http.StatusOK, filterTable(t, r))
		return
	}
	for _, f := range res.Failures {
		if f.Store == name {
			respondWithError(w, http.StatusNotFound, fmt.Sprintf("store %s did not load: %v", name, f.Err))
			return
		}
	}
	respondWithError(w, http.StatusNotFound, fmt.Sprintf("unknown store %q", name))
}

func (s *Server) inventory(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, filterTable(s.snapshot().Union, r))
}

func (s *Server) report(w http.ResponseWriter, r *http.Request) {
	ref := s.now()
	if q := r.URL.Query().Get("ref"); q != "" {
		d, err := time.Parse("2006-01-02", q)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "ref must be YYYY-MM-DD")
			return
		}
		ref = d
	}
	report := s.deps.Reporter.Generate(s.snapshot().Union, ref)
	respondWithJSON(w, http.StatusOK, reportResponse(report))
}

func (s *Server) workbook(w http.ResponseWriter, r *http.Request) {
	if s.deps.WorkbookPath == "" {
		respondWithError(w, http.StatusNotFound, "no workbook configured")
		return
	}
	t, err := reader.ReadWorkbook(s.deps.WorkbookPath, reader.DefaultWorkbookLayout())
	if err != nil {
		code := http.StatusInternalServerError
		if errors.Is(err, reader.ErrSourceNotFound) {
			code = http.StatusNotFound
		}
		respondWithError(w, code, err.Error())
		return
	}
	respondWithJSON(w, http.StatusOK, filterTable(t, r))
}

type editsRequest struct {
	Edits []models.Row `json:"edits"`
}

type editsResponse struct {
	Updated       int    `json:"updated"`
	Inserted      int    `json:"inserted"`
	Rows          int    `json:"rows"`
	SnapshotRun   string `json:"snapshot_run,omitempty"`
	SnapshotError string `json:"snapshot_error,omitempty"`
	PublishError  string `json:"publish_error,omitempty"`
	Published     bool   `json:"published"`
}

// edits applies upserts to the owning store tables and rebuilds the union.
// Under /api/stores/{store}/edits every row is pinned to that store.
func (s *Server) edits(w http.ResponseWriter, r *http.Request) {
	edits, err := decodeEdits(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(edits) == 0 {
		respondWithError(w, http.StatusBadRequest, "no edits in request")
		return
	}
	if store := r.PathValue("store"); store != "" {
		for _, e := range edits {
			if e != nil {
				e[services.EditStoreKey] = store
			}
		}
	}

	s.mu.Lock()
	applied, err := services.ApplyStoreEdits(s.result, edits)
	if err != nil {
		s.mu.Unlock()
		respondWithError(w, editStatus(err), err.Error())
		return
	}
	s.result = applied.Result
	s.mu.Unlock()

	union := applied.Result.Union
	s.deps.Logger.Info("[http] Applied edits: %d updated, %d inserted", applied.Updated, applied.Inserted)
	resp := editsResponse{Updated: applied.Updated, Inserted: applied.Inserted, Rows: union.Len()}

	if s.deps.Snapshot != nil {
		if err := s.deps.Snapshot.Write(union); err != nil {
			s.deps.Logger.Error("[http] snapshot after edit failed: %v", err)
			resp.SnapshotError = err.Error()
		} else if rs, ok := s.deps.Snapshot.(interface{ RunID() string }); ok {
			resp.SnapshotRun = rs.RunID()
		}
	}

	if s.deps.Publisher != nil {
		if err := s.publish(r.Context(), union); err != nil {
			resp.PublishError = err.Error()
		} else {
			resp.Published = true
		}
	}

	respondWithJSON(w, http.StatusOK, resp)
}

func (s *Server) publish(ctx context.Context, t *models.Table) error {
	blob, err := storage.RenderHTML(t, "Inventory")
	if err != nil {
		return err
	}
	return s.deps.Publisher.Publish(ctx, s.deps.PublishKey, blob)
}

func (s *Server) reload(w http.ResponseWriter, r *http.Request) {
	if err := s.Reload(r.Context()); err != nil {
		respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.health(w, r)
}

// decodeEdits accepts {"edits": [...]} JSON or an edits CSV.
func decodeEdits(r *http.Request) ([]models.Row, error) {
	body := io.LimitReader(r.Body, 10<<20)
	mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mt == "text/csv" {
		return storage.ReadEditsCSV(body)
	}

	var req editsRequest
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		return nil, fmt.Errorf("invalid edits body: %w", err)
	}
	return req.Edits, nil
}

func editStatus(err error) int {
	var dup *services.DuplicateVINError
	var amb *services.AmbiguousVINError
	switch {
	case errors.As(err, &dup), errors.As(err, &amb):
		return http.StatusConflict
	case errors.Is(err, services.ErrUnknownStore):
		return http.StatusNotFound
	}
	return http.StatusUnprocessableEntity
}

// storedSnapshot returns the table last written to the snapshot store.
func (s *Server) storedSnapshot(w http.ResponseWriter, r *http.Request) {
	fetcher, ok := s.deps.Snapshot.(storage.TableFetcher)
	if !ok {
		respondWithError(w, http.StatusNotFound, "no snapshot store configured")
		return
	}
	t, err := fetcher.FetchAll()
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondWithJSON(w, http.StatusOK, filterTable(t, r))
}
