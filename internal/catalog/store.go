package catalog

import (
	"context"

	"github.com/go-faster/errors"
)

var (
	ErrStorageRead  = errors.New("catalog storage read failed")
	ErrStorageWrite = errors.New("catalog storage write failed")
)

// Store persists the whole catalog as one document.
//
// Load returns an error matching ErrStorageRead when the document is missing,
// unreadable or malformed. Save replaces the document completely and returns
// an error matching ErrStorageWrite on failure. Save must not retain the slice.
type Store interface {
	Load(ctx context.Context) ([]Product, error)
	Save(ctx context.Context, products []Product) error
}

const (
	opRead  = "read"
	opWrite = "write"
)

// StorageError records a failed store operation and the location it addressed.
type StorageError struct {
	Op   string
	Path string
	Err  error
}

func (e *StorageError) Error() string {
	return "catalog storage " + e.Op + " " + e.Path + ": " + e.Err.Error()
}

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool {
	switch target {
	case ErrStorageRead:
		return e.Op == opRead
	case ErrStorageWrite:
		return e.Op == opWrite
	}
	return false
}
