// Package reader turns store export files into raw tables.
package reader

import (
	"errors"
	"fmt"
)

var (
	// ErrSourceNotFound means the export path does not exist.
	ErrSourceNotFound = errors.New("source not found")
	// ErrParse means the file exists but holds no recognizable table.
	ErrParse = errors.New("parse error")
)

// SourceError reports a failure for one source file. It unwraps to
// ErrSourceNotFound or ErrParse.
type SourceError struct {
	Path string
	Kind error
	Err  error
}

func (e *SourceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v: %v", e.Path, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Path, e.Kind)
}

func (e *SourceError) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

func notFound(path string, err error) error {
	return &SourceError{Path: path, Kind: ErrSourceNotFound, Err: err}
}

func parseFailure(path string, err error) error {
	return &SourceError{Path: path, Kind: ErrParse, Err: err}
}
