package funnel

import (
	"math"
	"time"

	"github.com/radiusdt/funnelpulse/internal/models"
)

// minorUnitsPerMajor converts integer minor units to major currency units.
const minorUnitsPerMajor = 100

// BuildReport composes the final metrics response from the window's
// accumulators. This is the only place currency leaves minor units and
// percentages get display rounding. Every funnel step appears in the
// output, zero-valued when the window had no events for it, ordered by the
// funnel enumeration rather than event arrival.
func BuildReport(agg *Aggregation, sum *SummaryTotals, start, end time.Time) models.MetricsReport {
	report := models.MetricsReport{
		Summary:     buildSummary(sum),
		StepMetrics: make([]models.StepMetrics, 0, len(models.StepOrder)),
		ABTests:     buildABTests(agg),
		StartDate:   start,
		EndDate:     end,
	}

	for _, step := range models.StepOrder {
		sm := models.StepMetrics{Step: string(step)}
		if acc, ok := agg.Steps[step]; ok {
			sm.Sessions = acc.SessionCount()
			sm.Purchases = acc.Purchases
			sm.Revenue = toMajor(acc.RevenueMinor)
			sm.ConversionRate = roundPct(acc.ConversionRate())
		}
		report.StepMetrics = append(report.StepMetrics, sm)
	}

	return report
}

func buildSummary(sum *SummaryTotals) models.FunnelSummary {
	customers := len(sum.PurchasingSessions)
	return models.FunnelSummary{
		Sessions:        len(sum.EntrySessions),
		Purchases:       customers,
		ConversionRate:  roundPct(sum.ConversionRate()),
		TotalRevenue:    toMajor(sum.TotalRevenueMinor),
		UniqueCustomers: customers,
		AOVPerCustomer:  roundMoney(sum.AOVMinor() / minorUnitsPerMajor),
	}
}

func buildABTests(agg *Aggregation) []models.ABTest {
	armsByStep := make(map[models.Step][]Arm)
	accByKey := make(map[VariantKey]*StepAccumulator, len(agg.Variants))

	for key, acc := range agg.Variants {
		armsByStep[key.Step] = append(armsByStep[key.Step], Arm{
			Variant:   key.Variant,
			Sessions:  acc.SessionCount(),
			Purchases: acc.Purchases,
		})
		accByKey[key] = acc
	}

	tests := make([]models.ABTest, 0, len(armsByStep))
	for _, step := range models.StepOrder {
		arms, ok := armsByStep[step]
		if !ok {
			continue
		}

		ranked := RankArms(arms)
		test := models.ABTest{
			Step:     string(step),
			Status:   models.VerdictInsufficientData,
			Variants: make([]models.VariantMetrics, 0, len(ranked)),
		}

		for _, arm := range ranked {
			acc := accByKey[VariantKey{Step: step, Variant: arm.Variant}]
			test.Variants = append(test.Variants, models.VariantMetrics{
				Step:           string(step),
				Variant:        arm.Variant,
				Sessions:       arm.Sessions,
				Purchases:      arm.Purchases,
				Revenue:        toMajor(acc.RevenueMinor),
				ConversionRate: roundPct(arm.Rate()),
			})
		}

		if verdict := EvaluateExperiment(arms); verdict != nil {
			test.Status = models.VerdictWinner
			test.Verdict = &models.ExperimentVerdict{
				Winner:        verdict.Winner.Variant,
				RunnerUp:      verdict.RunnerUp.Variant,
				LiftPct:       roundPct(verdict.LiftPct),
				ConfidencePct: verdict.ConfidencePct,
			}
		}

		tests = append(tests, test)
	}

	return tests
}

// EmptyReport returns the all-zero metrics shape served when no event store
// is configured: the dashboard must always have something to render.
func EmptyReport(start, end time.Time) models.MetricsReport {
	return BuildReport(Aggregate(nil), Summarize(nil), start, end)
}

// roundPct rounds a percentage to one decimal place for display.
func roundPct(v float64) float64 {
	return math.Round(v*10) / 10
}

// roundMoney rounds a major-unit amount to cents.
func roundMoney(v float64) float64 {
	return math.Round(v*100) / 100
}

func toMajor(minor int64) float64 {
	return float64(minor) / minorUnitsPerMajor
}
