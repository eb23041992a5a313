package storage

import (
	"context"
	"time"

	"github.com/radiusdt/funnelpulse/internal/models"
)

// EventStore is the event-window collaborator boundary. The aggregation
// engine treats it as a black box: it fetches a bounded window per request
// and never retries on the store's behalf.
type EventStore interface {
	// InsertEvents appends a batch of events. Events are immutable once
	// stored.
	InsertEvents(ctx context.Context, events []models.FunnelEvent) error

	// FetchWindow returns all events for one tenant in [start, end].
	FetchWindow(ctx context.Context, tenantID string, start, end time.Time) ([]models.FunnelEvent, error)

	// CountActiveSessions returns the number of distinct session ids
	// observed in any event since the given instant.
	CountActiveSessions(ctx context.Context, tenantID string, since time.Time) (int, error)
}

// TenantRepo resolves API credentials to tenants.
type TenantRepo interface {
	// GetByAPIKey returns the tenant owning the key, or nil when unknown.
	GetByAPIKey(ctx context.Context, apiKey string) (*models.Tenant, error)
}
