package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/radiusdt/funnelpulse/internal/models"
)

// ClickHouseEventStore persists funnel events in a ClickHouse table. Column
// order in the batch insert must match the funnel_events schema.
type ClickHouseEventStore struct {
	conn driver.Conn
}

// NewClickHouseEventStore creates a ClickHouse-backed event store.
func NewClickHouseEventStore(conn driver.Conn) *ClickHouseEventStore {
	return &ClickHouseEventStore{conn: conn}
}

func (s *ClickHouseEventStore) InsertEvents(ctx context.Context, events []models.FunnelEvent) error {
	if len(events) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO funnel_events (
			event_id, tenant_id, session_id, step, event_type,
			revenue_minor_units, variant, occurred_at, page_path, user_agent, geo_country
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare batch insert: %w", err)
	}

	for _, e := range events {
		if err := batch.Append(
			e.ID,
			e.TenantID,
			e.SessionID,
			string(e.Step),
			string(e.EventType),
			e.RevenueMinorUnits,
			e.Variant,
			e.OccurredAt,
			e.PagePath,
			e.UserAgent,
			e.GeoCountry,
		); err != nil {
			return fmt.Errorf("failed to append event %s to batch: %w", e.ID, err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send batch: %w", err)
	}
	return nil
}

func (s *ClickHouseEventStore) FetchWindow(ctx context.Context, tenantID string, start, end time.Time) ([]models.FunnelEvent, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT event_id, tenant_id, session_id, step, event_type,
		       revenue_minor_units, variant, occurred_at, page_path, user_agent, geo_country
		FROM funnel_events
		WHERE tenant_id = ? AND occurred_at >= ? AND occurred_at <= ?
	`, tenantID, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query event window: %w", err)
	}
	defer rows.Close()

	var events []models.FunnelEvent
	for rows.Next() {
		var (
			e         models.FunnelEvent
			step      string
			eventType string
		)
		if err := rows.Scan(
			&e.ID,
			&e.TenantID,
			&e.SessionID,
			&step,
			&eventType,
			&e.RevenueMinorUnits,
			&e.Variant,
			&e.OccurredAt,
			&e.PagePath,
			&e.UserAgent,
			&e.GeoCountry,
		); err != nil {
			return nil, fmt.Errorf("failed to scan event row: %w", err)
		}
		e.Step = models.Step(step)
		e.EventType = models.EventType(eventType)
		events = append(events, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row error during event window query: %w", err)
	}
	return events, nil
}

func (s *ClickHouseEventStore) CountActiveSessions(ctx context.Context, tenantID string, since time.Time) (int, error) {
	var count uint64
	err := s.conn.QueryRow(ctx, `
		SELECT uniq(session_id)
		FROM funnel_events
		WHERE tenant_id = ? AND occurred_at >= ?
	`, tenantID, since).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count active sessions: %w", err)
	}
	return int(count), nil
}
