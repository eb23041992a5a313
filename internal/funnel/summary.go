package funnel

import (
	"github.com/radiusdt/funnelpulse/internal/models"
)

// SummaryTotals holds the funnel-wide tallies. Entry sessions are page
// views at the first step only; purchasing sessions are distinct sessions
// with a primary purchase event (upsell/downsell acceptances earn revenue
// but do not mint a customer). Revenue accumulates in integer minor units
// across every conversion kind so there is no floating-point drift.
type SummaryTotals struct {
	EntrySessions      map[string]struct{}
	PurchasingSessions map[string]struct{}
	TotalRevenueMinor  int64
}

// Summarize scans the full event window and builds the funnel-wide totals.
// Like Aggregate, it skips malformed events and is order-independent.
func Summarize(events []models.FunnelEvent) *SummaryTotals {
	sum := &SummaryTotals{
		EntrySessions:      make(map[string]struct{}),
		PurchasingSessions: make(map[string]struct{}),
	}

	for _, e := range events {
		if !e.WellFormed() {
			continue
		}

		if e.EventType == models.EventPageView && e.Step == models.EntryStep {
			sum.EntrySessions[e.SessionID] = struct{}{}
		}

		if e.EventType == models.EventPurchase {
			sum.PurchasingSessions[e.SessionID] = struct{}{}
		}

		if e.EventType.IsConversion() {
			sum.TotalRevenueMinor += e.RevenueMinorUnits
		}
	}

	return sum
}

// ConversionRate returns purchasing sessions per entry session as a
// percentage, 0 when nothing entered the funnel.
func (s *SummaryTotals) ConversionRate() float64 {
	if len(s.EntrySessions) == 0 {
		return 0
	}
	return float64(len(s.PurchasingSessions)) / float64(len(s.EntrySessions)) * 100
}

// AOVMinor returns average order value per paying customer in minor units,
// 0 when there are no customers.
func (s *SummaryTotals) AOVMinor() float64 {
	if len(s.PurchasingSessions) == 0 {
		return 0
	}
	return float64(s.TotalRevenueMinor) / float64(len(s.PurchasingSessions))
}
