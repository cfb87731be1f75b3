package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"golang.org/x/sync/semaphore"

	"github.com/stacklok/toolhive-assetsync/internal/naming"
	"github.com/stacklok/toolhive-assetsync/internal/syncerr"
)

// lockRetryDelay is how often a blocked process retries the working copy file lock
const lockRetryDelay = 100 * time.Millisecond

// keyLock holds the in-process locks of one resource key
type keyLock struct {
	// operation admits one download or update at a time
	operation *semaphore.Weighted

	// state guards the working copy contents and the record against concurrent readers
	state sync.RWMutex
}

// keyLocks hands out per-key locks; keys never share a lock
type keyLocks struct {
	dir string

	mu    sync.Mutex
	locks map[naming.ResourceKey]*keyLock
}

func newKeyLocks(dir string) *keyLocks {
	return &keyLocks{
		dir:   dir,
		locks: make(map[naming.ResourceKey]*keyLock),
	}
}

func (l *keyLocks) get(key naming.ResourceKey) *keyLock {
	l.mu.Lock()
	defer l.mu.Unlock()

	lock, ok := l.locks[key]
	if !ok {
		lock = &keyLock{operation: semaphore.NewWeighted(1)}
		l.locks[key] = lock
	}
	return lock
}

func (l *keyLocks) state(key naming.ResourceKey) *sync.RWMutex {
	return &l.get(key).state
}

// lockOperation takes the in-process semaphore first, then the file lock shared with other processes
func (l *keyLocks) lockOperation(ctx context.Context, key naming.ResourceKey) (func(), error) {
	lock := l.get(key)
	if err := lock.operation.Acquire(ctx, 1); err != nil {
		return nil, syncerr.Wrap(syncerr.CodeBusy, "", key.String(), err, "gave up waiting for working copy lock")
	}

	lockPath := filepath.Join(l.dir, key.Locale, key.Type+".lock")
	if err := os.MkdirAll(filepath.Dir(lockPath), 0750); err != nil {
		lock.operation.Release(1)
		return nil, syncerr.Wrap(syncerr.CodeStorage, "", key.String(), err, "failed to create lock directory")
	}

	fileLock := flock.New(lockPath)
	locked, err := fileLock.TryLockContext(ctx, lockRetryDelay)
	if err != nil || !locked {
		lock.operation.Release(1)
		if err == nil {
			err = errors.New("lock not acquired")
		}
		return nil, syncerr.Wrap(syncerr.CodeBusy, "", key.String(), err, "working copy is locked by another process")
	}

	return func() {
		_ = fileLock.Unlock()
		lock.operation.Release(1)
	}, nil
}
