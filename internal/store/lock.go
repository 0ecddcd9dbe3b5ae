package store

import (
	"path/filepath"
	"sync"

	"golang.org/x/sync/semaphore"
)

var pathLocks = struct {
	sync.Mutex
	m map[string]*semaphore.Weighted
}{m: make(map[string]*semaphore.Weighted)}

// semaphoreFor returns the process-wide one-slot semaphore for path, so separate
// store values opened on the same file still exclude each other.
func semaphoreFor(path string) *semaphore.Weighted {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}

	pathLocks.Lock()
	defer pathLocks.Unlock()

	sem, ok := pathLocks.m[path]
	if !ok {
		sem = semaphore.NewWeighted(1)
		pathLocks.m[path] = sem
	}
	return sem
}
