package idempotency

import (
	"context"
	"sync"
	"time"

	"marketplace-orders/internal/domain"
)

type entry struct {
	orderID   string
	expiresAt time.Time
}

type memoryStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]entry
}

func NewMemory(ttl time.Duration) Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &memoryStore{ttl: ttl, now: time.Now, entries: make(map[string]entry)}
}

func (s *memoryStore) Reserve(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	if e, ok := s.entries[key]; ok && now.Before(e.expiresAt) {
		if e.orderID == pendingMarker {
			return "", domain.ErrCheckoutInProgress
		}
		return e.orderID, nil
	}
	s.entries[key] = entry{orderID: pendingMarker, expiresAt: now.Add(s.ttl)}
	return "", nil
}

func (s *memoryStore) Bind(_ context.Context, key, orderID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = entry{orderID: orderID, expiresAt: s.now().Add(s.ttl)}
	return nil
}

func (s *memoryStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[key]; ok && e.orderID == pendingMarker {
		delete(s.entries, key)
	}
	return nil
}
