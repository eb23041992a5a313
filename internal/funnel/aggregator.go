package funnel

import (
	"github.com/radiusdt/funnelpulse/internal/models"
)

// StepAccumulator collects one step's tallies during a single window scan.
// Sessions is a set keyed by session id, which is what makes repeated page
// views by the same visitor count once. Purchases and revenue are
// deliberately not deduplicated: a session may legitimately accept an
// upsell more than once, and retry filtering belongs to the ingestion side.
type StepAccumulator struct {
	Step         models.Step
	Sessions     map[string]struct{}
	Purchases    int
	RevenueMinor int64
}

func newStepAccumulator(step models.Step) *StepAccumulator {
	return &StepAccumulator{
		Step:     step,
		Sessions: make(map[string]struct{}),
	}
}

func (a *StepAccumulator) observe(e models.FunnelEvent) {
	switch {
	case e.EventType == models.EventPageView:
		a.Sessions[e.SessionID] = struct{}{}
	case e.EventType.IsConversion():
		a.Purchases++
		a.RevenueMinor += e.RevenueMinorUnits
	}
}

// SessionCount returns the number of distinct sessions seen at this step.
func (a *StepAccumulator) SessionCount() int {
	return len(a.Sessions)
}

// ConversionRate returns purchases per session as a percentage, 0 when the
// step saw no sessions.
func (a *StepAccumulator) ConversionRate() float64 {
	if len(a.Sessions) == 0 {
		return 0
	}
	return float64(a.Purchases) / float64(len(a.Sessions)) * 100
}

// VariantKey identifies one A/B arm at one step.
type VariantKey struct {
	Step    models.Step
	Variant string
}

// Aggregation holds the per-step and per-arm accumulators for one window.
// It is request-local and discarded once the report is assembled.
type Aggregation struct {
	Steps    map[models.Step]*StepAccumulator
	Variants map[VariantKey]*StepAccumulator
}

// Aggregate performs one linear scan over the event window. The result is
// independent of event order and idempotent for a fixed snapshot: sets make
// session counting naturally idempotent, and the counters are plain sums.
// Events with unknown steps, unknown types or empty session ids are skipped
// silently.
func Aggregate(events []models.FunnelEvent) *Aggregation {
	agg := &Aggregation{
		Steps:    make(map[models.Step]*StepAccumulator),
		Variants: make(map[VariantKey]*StepAccumulator),
	}

	for _, e := range events {
		if !e.WellFormed() {
			continue
		}

		acc, ok := agg.Steps[e.Step]
		if !ok {
			acc = newStepAccumulator(e.Step)
			agg.Steps[e.Step] = acc
		}
		acc.observe(e)

		if e.Variant == "" {
			continue
		}
		key := VariantKey{Step: e.Step, Variant: e.Variant}
		varAcc, ok := agg.Variants[key]
		if !ok {
			varAcc = newStepAccumulator(e.Step)
			agg.Variants[key] = varAcc
		}
		varAcc.observe(e)
	}

	return agg
}
