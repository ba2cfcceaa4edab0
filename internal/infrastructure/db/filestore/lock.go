package filestore

import (
	"context"
	"sync"
)

// Locker serializes read-modify-write cycles on the document. Lock blocks until
// the lock is held or ctx is done, and returns the function that releases it.
type Locker interface {
	Lock(ctx context.Context) (unlock func(), err error)
}

// MutexLocker serializes access within a single process.
type MutexLocker struct {
	mu sync.Mutex
}

func (l *MutexLocker) Lock(_ context.Context) (func(), error) {
	l.mu.Lock()
	return l.mu.Unlock, nil
}
