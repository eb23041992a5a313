package storage_test

import (
	"context"
	"testing"
	"time"

	"github.com/radiusdt/funnelpulse/internal/models"
	"github.com/radiusdt/funnelpulse/internal/storage"
)

func storedEvent(tenant, session string, at time.Time) models.FunnelEvent {
	return models.FunnelEvent{
		TenantID:   tenant,
		SessionID:  session,
		Step:       models.StepLanding,
		EventType:  models.EventPageView,
		OccurredAt: at,
	}
}

func TestInMemoryFetchWindowBounds(t *testing.T) {
	ctx := context.Background()
	store := storage.NewInMemoryEventStore()
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	err := store.InsertEvents(ctx, []models.FunnelEvent{
		storedEvent("t1", "before", base.Add(-time.Minute)),
		storedEvent("t1", "at-start", base),
		storedEvent("t1", "inside", base.Add(time.Hour)),
		storedEvent("t1", "at-end", base.Add(2*time.Hour)),
		storedEvent("t1", "after", base.Add(2*time.Hour+time.Second)),
	})
	if err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	got, err := store.FetchWindow(ctx, "t1", base, base.Add(2*time.Hour))
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("fetched %d events, want 3 (window is inclusive)", len(got))
	}
	for _, e := range got {
		if e.SessionID == "before" || e.SessionID == "after" {
			t.Errorf("event %q leaked outside the window", e.SessionID)
		}
	}
}

func TestInMemoryTenantIsolation(t *testing.T) {
	ctx := context.Background()
	store := storage.NewInMemoryEventStore()
	at := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	store.InsertEvents(ctx, []models.FunnelEvent{
		storedEvent("t1", "s1", at),
		storedEvent("t2", "s1", at),
		storedEvent("t2", "s2", at),
	})

	got, err := store.FetchWindow(ctx, "t1", at.Add(-time.Hour), at.Add(time.Hour))
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("tenant t1 sees %d events, want 1", len(got))
	}
	if store.Len("t2") != 2 {
		t.Errorf("tenant t2 holds %d events, want 2", store.Len("t2"))
	}
}

func TestInMemoryCountActiveSessions(t *testing.T) {
	ctx := context.Background()
	store := storage.NewInMemoryEventStore()
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	cutoff := now.Add(-5 * time.Minute)

	store.InsertEvents(ctx, []models.FunnelEvent{
		storedEvent("t1", "old", now.Add(-time.Hour)),
		storedEvent("t1", "fresh-1", now.Add(-time.Minute)),
		storedEvent("t1", "fresh-1", now.Add(-30*time.Second)),
		storedEvent("t1", "fresh-2", now),
	})

	count, err := store.CountActiveSessions(ctx, "t1", cutoff)
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	// fresh-1 appears twice but is one session.
	if count != 2 {
		t.Errorf("active sessions = %d, want 2", count)
	}
}

func TestInMemoryUnknownTenant(t *testing.T) {
	ctx := context.Background()
	store := storage.NewInMemoryEventStore()
	now := time.Now()

	got, err := store.FetchWindow(ctx, "nobody", now.Add(-time.Hour), now)
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("fetched %d events for an unknown tenant, want 0", len(got))
	}

	count, err := store.CountActiveSessions(ctx, "nobody", now.Add(-time.Hour))
	if err != nil || count != 0 {
		t.Errorf("count = %d, err = %v; want 0, nil", count, err)
	}
}
