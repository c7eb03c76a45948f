package lock

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"
)

// maxReaders bounds concurrent readers of one product.
// An exclusive lock acquires the whole weight.
const maxReaders = 1 << 16

type productKey struct {
	storeID uuid.UUID
	barcode string
}

type entry struct {
	sem  *semaphore.Weighted
	refs int
}

// MemoryLocker is a per-product read/write lock for single-process deployments.
// Waiting honours ctx cancellation.
type MemoryLocker struct {
	mu      sync.Mutex
	entries map[productKey]*entry
}

// NewMemoryLocker creates a MemoryLocker
func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{entries: make(map[productKey]*entry)}
}

// Lock takes the product exclusively
func (l *MemoryLocker) Lock(ctx context.Context, storeID uuid.UUID, barcode string) (func(), error) {
	return l.acquire(ctx, productKey{storeID, barcode}, maxReaders)
}

// RLock takes the product shared with other readers
func (l *MemoryLocker) RLock(ctx context.Context, storeID uuid.UUID, barcode string) (func(), error) {
	return l.acquire(ctx, productKey{storeID, barcode}, 1)
}

func (l *MemoryLocker) acquire(ctx context.Context, key productKey, weight int64) (func(), error) {
	l.mu.Lock()
	e, ok := l.entries[key]
	if !ok {
		e = &entry{sem: semaphore.NewWeighted(maxReaders)}
		l.entries[key] = e
	}
	e.refs++
	l.mu.Unlock()

	if err := e.sem.Acquire(ctx, weight); err != nil {
		l.forget(key, e)
		return nil, err
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			e.sem.Release(weight)
			l.forget(key, e)
		})
	}, nil
}

func (l *MemoryLocker) forget(key productKey, e *entry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(l.entries, key)
	}
}
