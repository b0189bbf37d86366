package storage

import (
	"context"

	"vinpipe/models"
)

// TableWriter is the interface any table sink must satisfy.
type TableWriter interface {
	Write(t *models.Table) error
	Close() error
}

// TableFetcher reads back the last table a sink stored.
type TableFetcher interface {
	FetchAll() (*models.Table, error)
}

// Publisher overwrites a named object in remote storage.
type Publisher interface {
	Publish(ctx context.Context, key string, blob []byte) error
}
