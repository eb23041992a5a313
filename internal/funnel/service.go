package funnel

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/radiusdt/funnelpulse/internal/config"
	"github.com/radiusdt/funnelpulse/internal/live"
	"github.com/radiusdt/funnelpulse/internal/metrics"
	"github.com/radiusdt/funnelpulse/internal/models"
	"github.com/radiusdt/funnelpulse/internal/storage"
)

// Service runs the aggregation pipeline: fetch window, one linear scan,
// assemble. Each invocation is synchronous and builds request-local state
// only, so concurrent queries for different tenants share nothing.
type Service struct {
	store   storage.EventStore
	tracker live.Tracker
	cfg     config.FunnelConfig
	logger  *zap.Logger
	metrics *metrics.Metrics

	now func() time.Time
}

// NewService creates the metrics service. store may be nil when no event
// store is configured; queries then soft-fail to the all-zero shape.
// tracker may be nil; the liveness count then falls back to a store scan.
func NewService(store storage.EventStore, tracker live.Tracker, cfg config.FunnelConfig, logger *zap.Logger, m *metrics.Metrics) *Service {
	return &Service{
		store:   store,
		tracker: tracker,
		cfg:     cfg,
		logger:  logger,
		metrics: m,
		now:     time.Now,
	}
}

// Window applies the default lookback to missing bounds.
func (s *Service) Window(start, end time.Time) (time.Time, time.Time) {
	if end.IsZero() {
		end = s.now().UTC()
	}
	if start.IsZero() {
		start = end.Add(-s.cfg.DefaultWindow)
	}
	return start, end
}

// Report fetches the tenant's event window and aggregates it into the
// metrics response. An unconfigured store yields the all-zero shape with no
// error; a reachable-but-failing store surfaces the fetch error.
func (s *Service) Report(ctx context.Context, tenantID string, start, end time.Time) (models.MetricsReport, error) {
	start, end = s.Window(start, end)

	if s.store == nil {
		return EmptyReport(start, end), nil
	}

	events, err := s.store.FetchWindow(ctx, tenantID, start, end)
	if err != nil {
		s.metrics.RecordEventStoreError("fetch_window")
		return models.MetricsReport{}, fmt.Errorf("failed to fetch event window: %w", err)
	}

	began := time.Now()
	report := BuildReport(Aggregate(events), Summarize(events), start, end)
	s.metrics.RecordAggregation(len(events), time.Since(began))

	return report, nil
}

// ActiveSessions returns the distinct-session count for the trailing
// window. It never fails: this is a best-effort liveness indicator, so any
// backend error degrades to a zero count.
func (s *Service) ActiveSessions(ctx context.Context, tenantID string) models.ActiveSessions {
	now := s.now().UTC()
	since := now.Add(-s.cfg.ActiveWindow)

	if s.tracker != nil {
		count, err := s.tracker.CountSince(ctx, tenantID, since)
		if err == nil {
			s.metrics.RecordActiveSessionQuery("tracker", "ok")
			return models.ActiveSessions{Count: count, Timestamp: now}
		}
		s.metrics.RecordActiveSessionQuery("tracker", "error")
		if s.logger != nil {
			s.logger.Warn("live tracker unavailable, falling back to event store",
				zap.String("tenant_id", tenantID),
				zap.Error(err),
			)
		}
	}

	if s.store != nil {
		count, err := s.store.CountActiveSessions(ctx, tenantID, since)
		if err == nil {
			s.metrics.RecordActiveSessionQuery("store", "ok")
			return models.ActiveSessions{Count: count, Timestamp: now}
		}
		s.metrics.RecordActiveSessionQuery("store", "error")
		s.metrics.RecordEventStoreError("count_active")
		if s.logger != nil {
			s.logger.Warn("active session count failed",
				zap.String("tenant_id", tenantID),
				zap.Error(err),
			)
		}
	}

	return models.ActiveSessions{Count: 0, Timestamp: now}
}

// Ingest stamps, stores and live-tracks a batch of events for one tenant.
// Events without a session id or with an unrecognized event type are
// dropped and counted; unknown steps are stored as-is since the aggregator
// guards against them on the read side. Returns the number of stored
// events.
func (s *Service) Ingest(ctx context.Context, tenantID string, events []models.FunnelEvent) (int, error) {
	if s.store == nil {
		return 0, fmt.Errorf("no event store configured")
	}

	now := s.now().UTC()
	accepted := make([]models.FunnelEvent, 0, len(events))
	for _, e := range events {
		if e.SessionID == "" || !e.EventType.Valid() {
			s.metrics.RecordSkippedEvent()
			continue
		}
		e.ID = uuid.New().String()
		e.TenantID = tenantID
		if e.OccurredAt.IsZero() {
			e.OccurredAt = now
		}
		accepted = append(accepted, e)
	}

	if len(accepted) == 0 {
		return 0, nil
	}

	if err := s.store.InsertEvents(ctx, accepted); err != nil {
		s.metrics.RecordEventStoreError("insert")
		return 0, fmt.Errorf("failed to insert events: %w", err)
	}

	for _, e := range accepted {
		s.metrics.RecordIngestedEvent(string(e.Step), string(e.EventType))
		if s.tracker == nil {
			continue
		}
		if err := s.tracker.Touch(ctx, tenantID, e.SessionID, e.OccurredAt); err != nil && s.logger != nil {
			s.logger.Debug("failed to touch live session", zap.Error(err))
		}
	}
	s.metrics.RecordIngestBatch()

	return len(accepted), nil
}
