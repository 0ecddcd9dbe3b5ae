package store

import (
	"context"
	"errors"
	"fmt"

	"taskapi/internal/models"
)

// Store defines the interface for task persistence.
//
// Load and Save each read or replace the whole collection and take no locks.
// Callers that load, modify and save must hold Lock for the whole sequence,
// otherwise two concurrent writers can both load the same state and the second
// Save silently discards the first one's change.
type Store interface {
	Load(ctx context.Context) (models.Collection, error)
	Save(ctx context.Context, tasks models.Collection) error

	// Lock blocks until the caller has exclusive write access or ctx is done.
	Lock(ctx context.Context) (unlock func(), err error)

	// Lifecycle
	Close() error
}

// Kind classifies a storage failure.
type Kind int

const (
	KindRead Kind = iota + 1
	KindWrite
	KindFormat
)

func (k Kind) String() string {
	switch k {
	case KindRead:
		return "read"
	case KindWrite:
		return "write"
	case KindFormat:
		return "format"
	default:
		return "unknown"
	}
}

// Sentinels for matching a StorageError's kind with errors.Is.
var (
	ErrRead   = errors.New("storage read failed")
	ErrWrite  = errors.New("storage write failed")
	ErrFormat = errors.New("storage contents invalid")
)

// StorageError reports a failure of the backing file or database.
type StorageError struct {
	Kind Kind
	Path string
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Kind, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for e's kind.
func (e *StorageError) Is(target error) bool {
	switch target {
	case ErrRead:
		return e.Kind == KindRead
	case ErrWrite:
		return e.Kind == KindWrite
	case ErrFormat:
		return e.Kind == KindFormat
	}
	return false
}

// Open returns the store for the given driver name.
func Open(driver, path string) (Store, error) {
	switch driver {
	case "", "json":
		return NewJSONStore(path)
	case "sqlite":
		return NewSQLiteStore(path)
	default:
		return nil, fmt.Errorf("unknown store driver %q", driver)
	}
}
