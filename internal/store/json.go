package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"golang.org/x/sync/semaphore"

	"taskapi/internal/models"
)

const lockRetryDelay = 10 * time.Millisecond

// envelope is the on-disk layout: {"tasks": [...]}.
type envelope struct {
	Tasks *models.Collection `json:"tasks"`
}

// JSONStore implements the Store interface over a single JSON file.
type JSONStore struct {
	path string
	sem  *semaphore.Weighted
	flk  *flock.Flock
}

// NewJSONStore opens the task file at path, creating it with an empty
// collection if it does not exist yet.
func NewJSONStore(path string) (*JSONStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("store path is required")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	s := &JSONStore{
		path: path,
		sem:  semaphoreFor(path),
		flk:  flock.New(path + ".lock"),
	}

	if err := s.init(); err != nil {
		s.flk.Close()
		return nil, err
	}

	return s, nil
}

func (s *JSONStore) init() error {
	ctx := context.Background()
	unlock, err := s.Lock(ctx)
	if err != nil {
		return fmt.Errorf("failed to lock %s: %w", s.path, err)
	}
	defer unlock()

	_, err = os.Stat(s.path)
	if err == nil {
		return nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return &StorageError{Kind: KindRead, Path: s.path, Err: err}
	}
	return s.Save(ctx, models.Collection{})
}

// Path returns the location of the task file.
func (s *JSONStore) Path() string {
	return s.path
}

// Load reads and parses the whole task file.
func (s *JSONStore) Load(ctx context.Context) (models.Collection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, &StorageError{Kind: KindRead, Path: s.path, Err: err}
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, &StorageError{Kind: KindFormat, Path: s.path, Err: err}
	}
	if env.Tasks == nil {
		return nil, &StorageError{Kind: KindFormat, Path: s.path, Err: errors.New(`missing "tasks" array`)}
	}

	tasks := *env.Tasks
	if err := tasks.Check(); err != nil {
		return nil, &StorageError{Kind: KindFormat, Path: s.path, Err: err}
	}
	if tasks == nil {
		tasks = models.Collection{}
	}

	return tasks, nil
}

// Save replaces the task file with tasks. The write goes through a temporary
// file and a rename, so readers never see a partially written file.
func (s *JSONStore) Save(ctx context.Context, tasks models.Collection) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if tasks == nil {
		tasks = models.Collection{}
	}
	if err := tasks.Check(); err != nil {
		return &StorageError{Kind: KindWrite, Path: s.path, Err: err}
	}

	data, err := json.MarshalIndent(envelope{Tasks: &tasks}, "", "  ")
	if err != nil {
		return &StorageError{Kind: KindWrite, Path: s.path, Err: fmt.Errorf("marshal tasks: %w", err)}
	}
	data = append(data, '\n')

	if err := writeFileAtomic(s.path, data, 0o644); err != nil {
		return &StorageError{Kind: KindWrite, Path: s.path, Err: err}
	}

	return nil
}

// Lock takes the in-process lock for the file, then an advisory lock on
// "<path>.lock" shared with other processes.
func (s *JSONStore) Lock(ctx context.Context) (func(), error) {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}

	locked, err := s.flk.TryLockContext(ctx, lockRetryDelay)
	if err != nil || !locked {
		s.sem.Release(1)
		if err == nil {
			err = fmt.Errorf("could not lock %s", s.flk.Path())
		}
		return nil, err
	}

	return func() {
		_ = s.flk.Unlock()
		s.sem.Release(1)
	}, nil
}

// Close releases the lock file handle.
func (s *JSONStore) Close() error {
	return s.flk.Close()
}

func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	base := filepath.Base(path)

	tmp, err := os.CreateTemp(dir, base+".tmp.*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		_ = tmp.Close()
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		return err
	}
	committed = true

	return syncDir(dir)
}

func syncDir(dir string) error {
	f, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Sync()
}
