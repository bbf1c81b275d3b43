package store

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/Lllllllleong/formsummary/internal/models"
)

const defaultShardCount = 32

type shard struct {
	mu      sync.RWMutex
	records map[string]models.Submission
}

// MemoryStore keeps records in process memory, spread over shards so that
// unrelated ids do not contend on one lock. Each operation holds a single
// shard lock for a single map operation.
type MemoryStore struct {
	shards []*shard
	ttl    time.Duration
	now    func() time.Time
}

// MemoryOption customises a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithRetentionTTL enables eviction of terminal records older than ttl.
// Records still IN_PROGRESS are never evicted.
func WithRetentionTTL(ttl time.Duration) MemoryOption {
	return func(s *MemoryStore) { s.ttl = ttl }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) { s.now = now }
}

// WithShardCount sets the number of shards. Values below 1 are ignored.
func WithShardCount(n int) MemoryOption {
	return func(s *MemoryStore) {
		if n > 0 {
			s.shards = make([]*shard, n)
		}
	}
}

// NewMemoryStore returns an empty in-process store.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		shards: make([]*shard, defaultShardCount),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	for i := range s.shards {
		s.shards[i] = &shard{records: make(map[string]models.Submission)}
	}
	return s
}

func (s *MemoryStore) shardFor(id string) *shard {
	return s.shards[xxhash.Sum64String(id)%uint64(len(s.shards))]
}

func (s *MemoryStore) TryBeginProcessing(_ context.Context, id string) (bool, error) {
	if id == "" {
		return false, ErrEmptyID
	}
	sh := s.shardFor(id)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	if _, exists := sh.records[id]; exists {
		return false, nil
	}
	now := s.now()
	sh.records[id] = models.Submission{
		ID:        id,
		Status:    models.StatusInProgress,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return true, nil
}

func (s *MemoryStore) Complete(_ context.Context, id, result string) error {
	return s.finish(id, func(rec *models.Submission) {
		rec.Status = models.StatusDone
		rec.Result = result
	})
}

func (s *MemoryStore) Fail(_ context.Context, id, message string) error {
	return s.finish(id, func(rec *models.Submission) {
		rec.Status = models.StatusFailed
		rec.Error = message
	})
}

func (s *MemoryStore) finish(id string, apply func(*models.Submission)) error {
	sh := s.shardFor(id)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	rec, ok := sh.records[id]
	if !ok {
		return fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	if rec.Status != models.StatusInProgress {
		return fmt.Errorf("%w: %q is already %s", ErrInvalidTransition, id, rec.Status)
	}
	apply(&rec)
	rec.UpdatedAt = s.now()
	sh.records[id] = rec
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (models.Submission, bool, error) {
	sh := s.shardFor(id)
	sh.mu.RLock()
	rec, ok := sh.records[id]
	sh.mu.RUnlock()
	return rec, ok, nil
}

// Len returns the number of records currently held.
func (s *MemoryStore) Len() int {
	n := 0
	for _, sh := range s.shards {
		sh.mu.RLock()
		n += len(sh.records)
		sh.mu.RUnlock()
	}
	return n
}

// Sweep evicts terminal records whose last update is older than the retention
// TTL and returns how many were removed. It is a no-op when no TTL is set.
func (s *MemoryStore) Sweep(now time.Time) int {
	if s.ttl <= 0 {
		return 0
	}
	cutoff := now.Add(-s.ttl)
	removed := 0
	for _, sh := range s.shards {
		sh.mu.Lock()
		for id, rec := range sh.records {
			if rec.IsTerminal() && rec.UpdatedAt.Before(cutoff) {
				delete(sh.records, id)
				removed++
			}
		}
		sh.mu.Unlock()
	}
	return removed
}

// RunJanitor sweeps every interval until ctx is done.
func (s *MemoryStore) RunJanitor(ctx context.Context, interval time.Duration) error {
	if s.ttl <= 0 || interval <= 0 {
		return nil
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if removed := s.Sweep(s.now()); removed > 0 {
				slog.Info("Evicted expired submissions.", "removed", removed, "remaining", s.Len())
			}
		}
	}
}
