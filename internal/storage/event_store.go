package storage

import (
	"context"
	"sync"
	"time"

	"github.com/radiusdt/funnelpulse/internal/models"
)

// InMemoryEventStore provides in-memory event storage, used in development
// and tests when ClickHouse is not configured.
type InMemoryEventStore struct {
	mu sync.RWMutex

	// events per tenant, append order
	events map[string][]models.FunnelEvent
}

// NewInMemoryEventStore creates a new in-memory event store.
func NewInMemoryEventStore() *InMemoryEventStore {
	return &InMemoryEventStore{
		events: make(map[string][]models.FunnelEvent),
	}
}

func (s *InMemoryEventStore) InsertEvents(ctx context.Context, events []models.FunnelEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range events {
		s.events[e.TenantID] = append(s.events[e.TenantID], e)
	}
	return nil
}

func (s *InMemoryEventStore) FetchWindow(ctx context.Context, tenantID string, start, end time.Time) ([]models.FunnelEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]models.FunnelEvent, 0)
	for _, e := range s.events[tenantID] {
		if e.OccurredAt.Before(start) || e.OccurredAt.After(end) {
			continue
		}
		result = append(result, e)
	}
	return result, nil
}

func (s *InMemoryEventStore) CountActiveSessions(ctx context.Context, tenantID string, since time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, e := range s.events[tenantID] {
		if e.OccurredAt.Before(since) {
			continue
		}
		seen[e.SessionID] = struct{}{}
	}
	return len(seen), nil
}

// Len returns the number of stored events for a tenant.
func (s *InMemoryEventStore) Len(tenantID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events[tenantID])
}
