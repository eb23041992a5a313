package funnel

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/radiusdt/funnelpulse/internal/config"
	"github.com/radiusdt/funnelpulse/internal/live"
	"github.com/radiusdt/funnelpulse/internal/models"
	"github.com/radiusdt/funnelpulse/internal/storage"
)

type fakeStore struct {
	events    []models.FunnelEvent
	fetchErr  error
	insertErr error
	countErr  error
	active    int

	inserted []models.FunnelEvent
}

func (f *fakeStore) InsertEvents(_ context.Context, events []models.FunnelEvent) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.inserted = append(f.inserted, events...)
	return nil
}

func (f *fakeStore) FetchWindow(_ context.Context, _ string, _, _ time.Time) ([]models.FunnelEvent, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.events, nil
}

func (f *fakeStore) CountActiveSessions(_ context.Context, _ string, _ time.Time) (int, error) {
	if f.countErr != nil {
		return 0, f.countErr
	}
	return f.active, nil
}

type fakeTracker struct {
	count    int
	countErr error
	touched  []string
	touchErr error
}

func (f *fakeTracker) Touch(_ context.Context, _, sessionID string, _ time.Time) error {
	if f.touchErr != nil {
		return f.touchErr
	}
	f.touched = append(f.touched, sessionID)
	return nil
}

func (f *fakeTracker) CountSince(_ context.Context, _ string, _ time.Time) (int, error) {
	return f.count, f.countErr
}

var testNow = time.Date(2026, 8, 15, 10, 30, 0, 0, time.UTC)

func newTestService(store *fakeStore, tracker *fakeTracker) *Service {
	cfg := config.FunnelConfig{
		DefaultWindow: 30 * 24 * time.Hour,
		ActiveWindow:  5 * time.Minute,
	}
	// Typed nils must not become non-nil interfaces.
	var es storage.EventStore
	if store != nil {
		es = store
	}
	var tr live.Tracker
	if tracker != nil {
		tr = tracker
	}
	s := NewService(es, tr, cfg, zap.NewNop(), nil)
	s.now = func() time.Time { return testNow }
	return s
}

func TestWindowDefaults(t *testing.T) {
	s := newTestService(nil, nil)

	start, end := s.Window(time.Time{}, time.Time{})
	if !end.Equal(testNow) {
		t.Errorf("end = %v, want %v", end, testNow)
	}
	if !start.Equal(testNow.Add(-30 * 24 * time.Hour)) {
		t.Errorf("start = %v, want 30 days before now", start)
	}

	explicit := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	start, end = s.Window(explicit, explicit.Add(time.Hour))
	if !start.Equal(explicit) || !end.Equal(explicit.Add(time.Hour)) {
		t.Errorf("explicit bounds were altered: %v .. %v", start, end)
	}
}

func TestReportWithoutStoreServesZeroShape(t *testing.T) {
	s := newTestService(nil, nil)

	rep, err := s.Report(context.Background(), "t1", time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rep.Summary.Sessions != 0 || len(rep.StepMetrics) != len(models.StepOrder) {
		t.Errorf("expected zero-valued report, got %+v", rep.Summary)
	}
}

func TestReportSurfacesFetchErrors(t *testing.T) {
	store := &fakeStore{fetchErr: errors.New("connection refused")}
	s := newTestService(store, nil)

	_, err := s.Report(context.Background(), "t1", time.Time{}, time.Time{})
	if err == nil {
		t.Fatal("expected an error from a failing store")
	}
	if !errors.Is(err, store.fetchErr) {
		t.Errorf("error does not wrap the store failure: %v", err)
	}
}

func TestReportAggregatesStoreWindow(t *testing.T) {
	store := &fakeStore{events: []models.FunnelEvent{
		{SessionID: "s1", Step: models.StepLanding, EventType: models.EventPageView},
		{SessionID: "s1", Step: models.StepCheckout, EventType: models.EventPurchase, RevenueMinorUnits: 4200},
	}}
	s := newTestService(store, nil)

	rep, err := s.Report(context.Background(), "t1", time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rep.Summary.Sessions != 1 || rep.Summary.Purchases != 1 {
		t.Errorf("summary = %+v, want 1 session and 1 purchase", rep.Summary)
	}
	if rep.Summary.TotalRevenue != 42.00 {
		t.Errorf("total revenue = %v, want 42.00", rep.Summary.TotalRevenue)
	}
}

func TestActiveSessionsPrefersTracker(t *testing.T) {
	store := &fakeStore{active: 7}
	tracker := &fakeTracker{count: 12}
	s := newTestService(store, tracker)

	got := s.ActiveSessions(context.Background(), "t1")
	if got.Count != 12 {
		t.Errorf("count = %d, want 12 from the tracker", got.Count)
	}
	if !got.Timestamp.Equal(testNow) {
		t.Errorf("timestamp = %v, want %v", got.Timestamp, testNow)
	}
}

func TestActiveSessionsFallsBackToStore(t *testing.T) {
	store := &fakeStore{active: 7}
	tracker := &fakeTracker{countErr: errors.New("redis down")}
	s := newTestService(store, tracker)

	if got := s.ActiveSessions(context.Background(), "t1"); got.Count != 7 {
		t.Errorf("count = %d, want 7 from the store fallback", got.Count)
	}
}

func TestActiveSessionsNeverFails(t *testing.T) {
	store := &fakeStore{countErr: errors.New("clickhouse down")}
	tracker := &fakeTracker{countErr: errors.New("redis down")}
	s := newTestService(store, tracker)

	if got := s.ActiveSessions(context.Background(), "t1"); got.Count != 0 {
		t.Errorf("count = %d, want 0 when every backend fails", got.Count)
	}

	bare := newTestService(nil, nil)
	if got := bare.ActiveSessions(context.Background(), "t1"); got.Count != 0 {
		t.Errorf("count = %d, want 0 with no backends at all", got.Count)
	}
}

func TestIngestStampsAndStores(t *testing.T) {
	store := &fakeStore{}
	tracker := &fakeTracker{}
	s := newTestService(store, tracker)

	stored, err := s.Ingest(context.Background(), "acme", []models.FunnelEvent{
		{SessionID: "s1", Step: models.StepLanding, EventType: models.EventPageView},
		{SessionID: "s2", Step: models.StepCheckout, EventType: models.EventPurchase, RevenueMinorUnits: 100,
			OccurredAt: time.Date(2026, 8, 15, 9, 0, 0, 0, time.UTC)},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stored != 2 || len(store.inserted) != 2 {
		t.Fatalf("stored = %d (inserted %d), want 2", stored, len(store.inserted))
	}

	first := store.inserted[0]
	if first.ID == "" {
		t.Error("event id was not assigned")
	}
	if first.TenantID != "acme" {
		t.Errorf("tenant id = %q, want acme", first.TenantID)
	}
	if !first.OccurredAt.Equal(testNow) {
		t.Errorf("missing timestamp defaulted to %v, want %v", first.OccurredAt, testNow)
	}
	// A caller-supplied timestamp is preserved.
	if store.inserted[1].OccurredAt.Equal(testNow) {
		t.Error("caller timestamp was overwritten")
	}

	if len(tracker.touched) != 2 {
		t.Errorf("tracker touched %d sessions, want 2", len(tracker.touched))
	}
}

func TestIngestDropsUnattributableEvents(t *testing.T) {
	store := &fakeStore{}
	s := newTestService(store, nil)

	stored, err := s.Ingest(context.Background(), "acme", []models.FunnelEvent{
		{SessionID: "", Step: models.StepLanding, EventType: models.EventPageView},
		{SessionID: "s1", Step: models.StepLanding, EventType: "not-a-type"},
		{SessionID: "s2", Step: "not-a-step", EventType: models.EventPageView},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Unknown steps pass through; the read side skips them.
	if stored != 1 {
		t.Errorf("stored = %d, want 1", stored)
	}
}

func TestIngestTrackerFailureIsNotFatal(t *testing.T) {
	store := &fakeStore{}
	tracker := &fakeTracker{touchErr: errors.New("redis down")}
	s := newTestService(store, tracker)

	stored, err := s.Ingest(context.Background(), "acme", []models.FunnelEvent{
		{SessionID: "s1", Step: models.StepLanding, EventType: models.EventPageView},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stored != 1 {
		t.Errorf("stored = %d, want 1", stored)
	}
}

func TestIngestWithoutStoreErrors(t *testing.T) {
	s := newTestService(nil, nil)
	if _, err := s.Ingest(context.Background(), "acme", []models.FunnelEvent{
		{SessionID: "s1", Step: models.StepLanding, EventType: models.EventPageView},
	}); err == nil {
		t.Fatal("expected an error with no store configured")
	}
}
