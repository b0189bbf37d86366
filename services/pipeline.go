package services

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"vinpipe/metrics"
	"vinpipe/models"
	"vinpipe/reader"
	"vinpipe/utils"
)

// Source is one store export to load.
type Source struct {
	Store string
	Path  string
}

// StoreTable is one store's canonical table.
type StoreTable struct {
	Store string
	Table *models.Table
}

// StoreFailure records why a store contributed no rows.
type StoreFailure struct {
	Store string
	Path  string
	Err   error
}

// LoadResult is the outcome of loading every configured store.
type LoadResult struct {
	Stores   []StoreTable
	Union    *models.Table
	Failures []StoreFailure
}

// Table returns the canonical table for store, or nil if it failed to load.
func (r *LoadResult) Table(store string) *models.Table {
	for _, st := range r.Stores {
		if st.Store == store {
			return st.Table
		}
	}
	return nil
}

// Loader reads and normalizes store exports. Normalized tables are cached
// by (path, modification time, size), so an unchanged file is parsed once.
type Loader struct {
	logger     *utils.Logger
	normalizer *Normalizer
	cache      *lru.Cache[string, *models.Table]
	read       func(path string) (*models.Table, error)
}

// NewLoader creates a Loader caching up to cacheSize normalized exports.
func NewLoader(logger *utils.Logger, cacheSize int) *Loader {
	if cacheSize < 1 {
		cacheSize = 1
	}
	cache, _ := lru.New[string, *models.Table](cacheSize)
	return &Loader{
		logger:     logger,
		normalizer: NewNormalizer(logger),
		cache:      cache,
		read:       reader.ReadHTMLTable,
	}
}

// LoadStore reads and normalizes one export. Errors unwrap to
// reader.ErrSourceNotFound or reader.ErrParse.
func (l *Loader) LoadStore(src Source) (*models.Table, error) {
	info, err := os.Stat(src.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &reader.SourceError{Path: src.Path, Kind: reader.ErrSourceNotFound, Err: err}
		}
		return nil, &reader.SourceError{Path: src.Path, Kind: reader.ErrParse, Err: err}
	}

	key := fmt.Sprintf("%s|%d|%d", src.Path, info.ModTime().UnixNano(), info.Size())
	if t, ok := l.cache.Get(key); ok {
		metrics.RecordCache(true)
		l.logger.Debug("[loader] %s: cache hit for %s", src.Store, src.Path)
		return t.Clone(), nil
	}
	metrics.RecordCache(false)

	raw, err := l.read(src.Path)
	if err != nil {
		return nil, err
	}

	t := l.normalizer.Normalize(raw, filepath.Base(src.Path))
	l.Invalidate(src.Path)
	l.cache.Add(key, t)
	return t.Clone(), nil
}

// LoadAll loads every source in order. A store that fails is recorded in
// Failures and skipped; the union holds whatever loaded. Only a cancelled
// ctx stops the loop early.
func (l *Loader) LoadAll(ctx context.Context, sources []Source) (*LoadResult, error) {
	result := &LoadResult{}
	tables := make([]*models.Table, 0, len(sources))

	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		timer := metrics.NewTimer()
		t, err := l.LoadStore(src)
		if err != nil {
			status := "parse_error"
			if errors.Is(err, reader.ErrSourceNotFound) {
				status = "not_found"
			}
			metrics.RecordLoad(src.Store, status, 0, timer.Duration())
			l.logger.With("path", src.Path).Error("[loader] %s: skipped: %v", src.Store, err)
			result.Failures = append(result.Failures, StoreFailure{Store: src.Store, Path: src.Path, Err: err})
			continue
		}

		metrics.RecordLoad(src.Store, "ok", t.Len(), timer.Duration())
		result.Stores = append(result.Stores, StoreTable{Store: src.Store, Table: t})
		tables = append(tables, t)
	}

	result.Union = Union(tables...)
	if dups := DuplicateVINs(result.Union); len(dups) > 0 {
		l.logger.Warn("[loader] %d vins appear more than once across stores", len(dups))
	}
	l.logger.Info("[loader] Loaded %d/%d stores, %d vehicles in union",
		len(result.Stores), len(sources), result.Union.Len())
	return result, nil
}

// Invalidate drops every cached version of path.
func (l *Loader) Invalidate(path string) {
	prefix := path + "|"
	for _, k := range l.cache.Keys() {
		if strings.HasPrefix(k, prefix) {
			l.cache.Remove(k)
		}
	}
}

// Purge empties the cache.
func (l *Loader) Purge() {
	l.cache.Purge()
}
