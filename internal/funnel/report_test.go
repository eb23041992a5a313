package funnel_test

import (
	"testing"
	"time"

	"github.com/radiusdt/funnelpulse/internal/funnel"
	"github.com/radiusdt/funnelpulse/internal/models"
)

func TestBuildReportEmptyWindow(t *testing.T) {
	start := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)

	rep := funnel.EmptyReport(start, end)

	if rep.Summary.Sessions != 0 || rep.Summary.Purchases != 0 {
		t.Errorf("summary counts = %+v, want zeros", rep.Summary)
	}
	if rep.Summary.ConversionRate != 0 || rep.Summary.AOVPerCustomer != 0 || rep.Summary.TotalRevenue != 0 {
		t.Errorf("summary rates = %+v, want zeros", rep.Summary)
	}
	if len(rep.StepMetrics) != len(models.StepOrder) {
		t.Fatalf("step metrics = %d entries, want %d", len(rep.StepMetrics), len(models.StepOrder))
	}
	for _, sm := range rep.StepMetrics {
		if sm.Sessions != 0 || sm.Purchases != 0 || sm.Revenue != 0 || sm.ConversionRate != 0 {
			t.Errorf("step %s not zeroed: %+v", sm.Step, sm)
		}
	}
	if len(rep.ABTests) != 0 {
		t.Errorf("ab tests = %d, want 0", len(rep.ABTests))
	}
}

func TestBuildReportStepOrderingFollowsFunnel(t *testing.T) {
	// Feed events in reverse funnel order; output order must not care.
	events := []models.FunnelEvent{
		ev("s1", models.StepThankYou, models.EventPageView, 0),
		ev("s1", models.StepCheckout, models.EventPageView, 0),
		ev("s1", models.StepLanding, models.EventPageView, 0),
	}

	rep := report(t, events)

	for i, sm := range rep.StepMetrics {
		if sm.Step != string(models.StepOrder[i]) {
			t.Errorf("step[%d] = %s, want %s", i, sm.Step, models.StepOrder[i])
		}
	}
}

func TestBuildReportCurrencyAndRounding(t *testing.T) {
	rep := report(t, scenarioEvents())

	// 20 purchases x 5000 minor units.
	if rep.Summary.TotalRevenue != 1000.00 {
		t.Errorf("total revenue = %v, want 1000.00 major units", rep.Summary.TotalRevenue)
	}
	// 15/80 = 18.75%, display-rounded to one decimal.
	if rep.Summary.ConversionRate != 18.8 {
		t.Errorf("conversion rate = %v, want 18.8", rep.Summary.ConversionRate)
	}
	if rep.Summary.UniqueCustomers != 15 {
		t.Errorf("unique customers = %d, want 15", rep.Summary.UniqueCustomers)
	}
	// 100000 minor / 15 customers = 6666.66... minor = 66.67 major.
	if rep.Summary.AOVPerCustomer != 66.67 {
		t.Errorf("aov = %v, want 66.67", rep.Summary.AOVPerCustomer)
	}

	checkout := rep.StepMetrics[models.StepCheckout.Index()]
	if checkout.Revenue != 1000.00 {
		t.Errorf("checkout revenue = %v, want 1000.00", checkout.Revenue)
	}
	if checkout.Purchases != 20 {
		t.Errorf("checkout purchases = %d, want 20", checkout.Purchases)
	}
}

func TestBuildReportABTests(t *testing.T) {
	var events []models.FunnelEvent
	addArm := func(variant string, sessions, purchases int) {
		for i := 0; i < sessions; i++ {
			events = append(events, vev(variant+sessionID(i), models.StepCheckout, models.EventPageView, 0, variant))
		}
		for i := 0; i < purchases; i++ {
			events = append(events, vev(variant+sessionID(i), models.StepCheckout, models.EventPurchase, 2000, variant))
		}
	}
	addArm("A", 120, 18)
	addArm("B", 130, 12)
	// A second experiment at upsell-1 without enough traffic.
	events = append(events,
		vev("x1", models.StepUpsell1, models.EventPageView, 0, "on"),
		vev("x2", models.StepUpsell1, models.EventPageView, 0, "off"),
	)

	rep := report(t, events)

	if len(rep.ABTests) != 2 {
		t.Fatalf("ab tests = %d, want 2", len(rep.ABTests))
	}

	checkout := rep.ABTests[0]
	if checkout.Step != string(models.StepCheckout) {
		t.Errorf("first test step = %s, want checkout", checkout.Step)
	}
	if checkout.Status != models.VerdictWinner {
		t.Fatalf("checkout status = %s, want %s", checkout.Status, models.VerdictWinner)
	}
	if checkout.Verdict == nil {
		t.Fatal("checkout verdict missing")
	}
	if checkout.Verdict.Winner != "A" || checkout.Verdict.RunnerUp != "B" {
		t.Errorf("verdict = %s over %s, want A over B", checkout.Verdict.Winner, checkout.Verdict.RunnerUp)
	}
	if checkout.Verdict.LiftPct != 62.5 {
		t.Errorf("lift = %v, want 62.5", checkout.Verdict.LiftPct)
	}
	if checkout.Verdict.ConfidencePct != 85 {
		t.Errorf("confidence = %d, want 85", checkout.Verdict.ConfidencePct)
	}
	// Variants are listed winner-first.
	if checkout.Variants[0].Variant != "A" {
		t.Errorf("leading variant = %s, want A", checkout.Variants[0].Variant)
	}
	if checkout.Variants[0].Revenue != 360.00 {
		t.Errorf("variant A revenue = %v, want 360.00", checkout.Variants[0].Revenue)
	}

	upsell := rep.ABTests[1]
	if upsell.Status != models.VerdictInsufficientData {
		t.Errorf("upsell status = %s, want %s", upsell.Status, models.VerdictInsufficientData)
	}
	if upsell.Verdict != nil {
		t.Errorf("upsell verdict = %+v, want nil", upsell.Verdict)
	}
}
