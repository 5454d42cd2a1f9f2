package credits

import (
	"context"
	"sync"
	"time"
)

type memoryStore struct {
	mu   sync.RWMutex
	data map[string]Balance
}

func newMemoryStore() *memoryStore {
	return &memoryStore{data: make(map[string]Balance)}
}

func (s *memoryStore) Get(ctx context.Context, ownerID string) (Balance, error) {
	if err := ctx.Err(); err != nil {
		return Balance{}, err
	}
	s.mu.RLock()
	b, ok := s.data[ownerID]
	s.mu.RUnlock()
	if ok && time.Now().UTC().Before(b.ResetsAt) {
		return b, nil
	}
	return s.ensure(ctx, ownerID)
}

func (s *memoryStore) EnsurePeriod(ctx context.Context, ownerID string) (Balance, error) {
	return s.ensure(ctx, ownerID)
}

func (s *memoryStore) ensure(ctx context.Context, ownerID string) (Balance, error) {
	if err := ctx.Err(); err != nil {
		return Balance{}, err
	}
	now := time.Now().UTC()
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.data[ownerID]
	if !ok {
		b = defaultBalance()
	}
	if now.After(b.ResetsAt) || now.Equal(b.ResetsAt) {
		b.Used = 0
		b.ResetsAt = now.Add(resetPeriod)
	}
	s.data[ownerID] = b
	return b, nil
}

func (s *memoryStore) Deduct(ctx context.Context, ownerID string, n int) (Balance, error) {
	if n <= 0 {
		return s.ensure(ctx, ownerID)
	}
	if err := ctx.Err(); err != nil {
		return Balance{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	b, ok := s.data[ownerID]
	if !ok {
		b = defaultBalance()
	}
	if now.After(b.ResetsAt) || now.Equal(b.ResetsAt) {
		b.Used = 0
		b.ResetsAt = now.Add(resetPeriod)
	}
	if b.Used+n > b.Limit {
		return Balance{}, ErrInsufficientCredits
	}
	b.Used += n
	s.data[ownerID] = b
	return b, nil
}

func (s *memoryStore) Reset(ctx context.Context, ownerID string) (Balance, error) {
	if err := ctx.Err(); err != nil {
		return Balance{}, err
	}
	now := time.Now().UTC()
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.data[ownerID]
	if !ok {
		b = defaultBalance()
	}
	b.Used = 0
	b.ResetsAt = now.Add(resetPeriod)
	s.data[ownerID] = b
	return b, nil
}
