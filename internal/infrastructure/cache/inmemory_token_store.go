package cache

import (
	"context"
	"sync"
	"time"

	"github.com/shopkart/fulfillment/internal/infrastructure/carrier"
)

// InMemoryTokenStore keeps the carrier token in process memory.
// Suitable for single-instance deployments and testing.
// WARNING: each process instance logs in separately, which can exhaust the
// carrier's session limit in distributed deployments.
type InMemoryTokenStore struct {
	mu     sync.RWMutex
	token  *carrier.CachedToken
	stored time.Time
	ttl    time.Duration
}

// NewInMemoryTokenStore creates an empty in-memory token store
func NewInMemoryTokenStore() *InMemoryTokenStore {
	return &InMemoryTokenStore{}
}

// Get returns the stored token, or (nil, nil) if none is stored or the TTL
// recorded at store time has elapsed.
func (s *InMemoryTokenStore) Get(ctx context.Context) (*carrier.CachedToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.token == nil {
		return nil, nil
	}
	if s.ttl > 0 && time.Since(s.stored) > s.ttl {
		return nil, nil
	}
	token := *s.token
	return &token, nil
}

// PutWithTTL stores the token and remembers the TTL for expiry on read
func (s *InMemoryTokenStore) PutWithTTL(ctx context.Context, token carrier.CachedToken, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = &token
	s.stored = time.Now()
	s.ttl = ttl
	return nil
}

// Clear removes the stored token
func (s *InMemoryTokenStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = nil
	return nil
}

// Ensure InMemoryTokenStore implements carrier.TokenStore
var _ carrier.TokenStore = (*InMemoryTokenStore)(nil)
