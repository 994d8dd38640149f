package application

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/example/parish-roster/internal/scheduler"
)

// draftStore keeps open drafts in memory. Entries expire after ttl without
// access and the least recently used entry is evicted when the store is full.
type draftStore struct {
	cache *lru.Cache[string, *draftEntry]
	ttl   time.Duration
	now   func() time.Time
}

// draftEntry serializes access to one draft.
type draftEntry struct {
	mu        sync.Mutex
	draft     *scheduler.Draft
	expiresAt atomic.Int64
}

func newDraftStore(size int, ttl time.Duration, now func() time.Time) (*draftStore, error) {
	if size <= 0 {
		size = 1024
	}
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	if now == nil {
		now = time.Now
	}
	cache, err := lru.New[string, *draftEntry](size)
	if err != nil {
		return nil, fmt.Errorf("create draft cache: %w", err)
	}
	return &draftStore{cache: cache, ttl: ttl, now: now}, nil
}

func (s *draftStore) put(draft *scheduler.Draft) {
	entry := &draftEntry{draft: draft}
	entry.expiresAt.Store(s.now().Add(s.ttl).UnixNano())
	s.cache.Add(draft.ID(), entry)
}

func (s *draftStore) get(id string) (*draftEntry, bool) {
	entry, ok := s.cache.Get(id)
	if !ok {
		return nil, false
	}
	now := s.now()
	if now.UnixNano() > entry.expiresAt.Load() {
		s.cache.Remove(id)
		return nil, false
	}
	entry.expiresAt.Store(now.Add(s.ttl).UnixNano())
	return entry, true
}

// with runs fn while holding the draft's lock. ErrNotFound is returned for
// unknown or expired drafts.
func (s *draftStore) with(id string, fn func(draft *scheduler.Draft) error) error {
	entry, ok := s.get(id)
	if !ok {
		return ErrNotFound
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return fn(entry.draft)
}

func (s *draftStore) remove(id string) bool {
	return s.cache.Remove(id)
}

func (s *draftStore) len() int {
	return s.cache.Len()
}
