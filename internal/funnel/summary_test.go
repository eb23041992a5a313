package funnel_test

import (
	"math"
	"testing"

	"github.com/radiusdt/funnelpulse/internal/funnel"
	"github.com/radiusdt/funnelpulse/internal/models"
)

// Eighty distinct sessions view the landing page (some twice), fifteen of
// them purchase across twenty purchase events of 5000 minor units each.
func scenarioEvents() []models.FunnelEvent {
	var events []models.FunnelEvent
	for i := 0; i < 100; i++ {
		events = append(events, ev(sessionID(i%80), models.StepLanding, models.EventPageView, 0))
	}
	for i := 0; i < 20; i++ {
		events = append(events, ev(sessionID(i%15), models.StepCheckout, models.EventPurchase, 5000))
	}
	return events
}

func sessionID(n int) string {
	return "sess-" + string(rune('A'+n/26)) + string(rune('a'+n%26))
}

func TestSummarizeScenario(t *testing.T) {
	sum := funnel.Summarize(scenarioEvents())

	if got := len(sum.EntrySessions); got != 80 {
		t.Errorf("entry sessions = %d, want 80", got)
	}
	if got := len(sum.PurchasingSessions); got != 15 {
		t.Errorf("purchasing sessions = %d, want 15", got)
	}
	if got := sum.TotalRevenueMinor; got != 100000 {
		t.Errorf("total revenue = %d, want 100000", got)
	}
	if got := sum.ConversionRate(); got != 18.75 {
		t.Errorf("conversion rate = %v, want 18.75", got)
	}
}

func TestSummarizeCustomersVersusRevenue(t *testing.T) {
	// Upsell acceptances earn revenue but never mint a customer.
	events := []models.FunnelEvent{
		ev("s1", models.StepLanding, models.EventPageView, 0),
		ev("s1", models.StepCheckout, models.EventPurchase, 10000),
		ev("s1", models.StepUpsell1, models.EventUpsellAccept, 2500),
		ev("s1", models.StepDownsell1, models.EventDownsellAccept, 1000),
	}

	sum := funnel.Summarize(events)

	if got := len(sum.PurchasingSessions); got != 1 {
		t.Errorf("purchasing sessions = %d, want 1", got)
	}
	if got := sum.TotalRevenueMinor; got != 13500 {
		t.Errorf("total revenue = %d, want 13500", got)
	}
	if got := sum.AOVMinor(); got != 13500 {
		t.Errorf("aov = %v, want 13500", got)
	}
}

func TestSummarizeEntrySessionsAreFirstStepOnly(t *testing.T) {
	events := []models.FunnelEvent{
		ev("s1", models.StepCheckout, models.EventPageView, 0),
		ev("s2", models.StepThankYou, models.EventPageView, 0),
	}

	sum := funnel.Summarize(events)
	if got := len(sum.EntrySessions); got != 0 {
		t.Errorf("entry sessions = %d, want 0 (no landing page views)", got)
	}
}

func TestSummarizeDivisionSafety(t *testing.T) {
	sum := funnel.Summarize(nil)

	for name, v := range map[string]float64{
		"conversion rate": sum.ConversionRate(),
		"aov":             sum.AOVMinor(),
	} {
		if v != 0 {
			t.Errorf("%s = %v, want 0 for empty window", name, v)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Errorf("%s = %v, must be finite", name, v)
		}
	}
}

func TestRevenueConservation(t *testing.T) {
	events := scenarioEvents()
	events = append(events,
		ev("s1", models.StepUpsell1, models.EventUpsellAccept, 999),
		ev("s2", models.StepUpsell2, models.EventUpsellAccept, 1),
		ev("s3", models.StepDownsell1, models.EventDownsellAccept, 250),
	)

	agg := funnel.Aggregate(events)
	sum := funnel.Summarize(events)

	var perStep int64
	for _, acc := range agg.Steps {
		perStep += acc.RevenueMinor
	}
	if perStep != sum.TotalRevenueMinor {
		t.Errorf("step revenue sum = %d, summary total = %d; must be equal", perStep, sum.TotalRevenueMinor)
	}
}
