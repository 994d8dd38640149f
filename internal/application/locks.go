package application

import (
	"context"
	"sort"
	"sync"
)

// keyedLocks hands out one semaphore per key. Entries are dropped once no
// holder or waiter references them.
type keyedLocks struct {
	mu      sync.Mutex
	entries map[string]*keyedLock
}

type keyedLock struct {
	sem  chan struct{}
	refs int
}

func newKeyedLocks() *keyedLocks {
	return &keyedLocks{entries: make(map[string]*keyedLock)}
}

// acquire locks every key in sorted order and returns a release func. When
// ctx ends first, the keys already held are released and ctx.Err() is returned.
func (k *keyedLocks) acquire(ctx context.Context, keys []string) (func(), error) {
	sorted := uniqueSorted(keys)
	held := make([]string, 0, len(sorted))

	release := func() {
		for i := len(held) - 1; i >= 0; i-- {
			k.unlock(held[i])
		}
	}

	for _, key := range sorted {
		entry := k.ref(key)
		select {
		case entry.sem <- struct{}{}:
			held = append(held, key)
		case <-ctx.Done():
			k.unref(key)
			release()
			return nil, ctx.Err()
		}
	}
	return release, nil
}

func (k *keyedLocks) ref(key string) *keyedLock {
	k.mu.Lock()
	defer k.mu.Unlock()
	entry, ok := k.entries[key]
	if !ok {
		entry = &keyedLock{sem: make(chan struct{}, 1)}
		k.entries[key] = entry
	}
	entry.refs++
	return entry
}

func (k *keyedLocks) unlock(key string) {
	k.mu.Lock()
	entry := k.entries[key]
	k.mu.Unlock()
	<-entry.sem
	k.unref(key)
}

func (k *keyedLocks) unref(key string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	entry := k.entries[key]
	entry.refs--
	if entry.refs == 0 {
		delete(k.entries, key)
	}
}

// size reports how many keys are tracked.
func (k *keyedLocks) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.entries)
}

func uniqueSorted(keys []string) []string {
	out := make([]string, 0, len(keys))
	seen := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, key)
	}
	sort.Strings(out)
	return out
}
