package models

import "time"

// Report shapes returned by the metrics API. All currency fields are in
// major units and all percentages are display-rounded; the conversion from
// internal minor-unit integers happens in the assembler, nowhere else.

// StepMetrics aggregates one funnel step.
type StepMetrics struct {
	Step      string  `json:"step"`
	Sessions  int     `json:"sessions"`
	Purchases int     `json:"purchases"`
	Revenue   float64 `json:"revenue"`
	// ConversionRate is purchases/sessions as a percentage, 0 when the
	// step saw no sessions.
	ConversionRate float64 `json:"conversionRate"`
}

// FunnelSummary aggregates the whole funnel.
type FunnelSummary struct {
	Sessions        int     `json:"sessions"`
	Purchases       int     `json:"purchases"`
	ConversionRate  float64 `json:"conversionRate"`
	TotalRevenue    float64 `json:"totalRevenue"`
	UniqueCustomers int     `json:"uniqueCustomers"`
	AOVPerCustomer  float64 `json:"aovPerCustomer"`
}

// VariantMetrics aggregates one A/B arm at one step.
type VariantMetrics struct {
	Step           string  `json:"step"`
	Variant        string  `json:"variant"`
	Sessions       int     `json:"sessions"`
	Purchases      int     `json:"purchases"`
	Revenue        float64 `json:"revenue"`
	ConversionRate float64 `json:"conversionRate"`
}

// Experiment verdict statuses.
const (
	VerdictWinner           = "winner"
	VerdictInsufficientData = "insufficient_data"
)

// ExperimentVerdict is the head-to-head outcome between the top two arms.
type ExperimentVerdict struct {
	Winner        string  `json:"winner"`
	RunnerUp      string  `json:"runnerUp"`
	LiftPct       float64 `json:"liftPct"`
	ConfidencePct int     `json:"confidencePct"`
}

// ABTest groups the variant metrics observed at a step with the verdict.
// Verdict is nil while either leading arm is below the minimum sample gate.
type ABTest struct {
	Step     string             `json:"step"`
	Status   string             `json:"status"`
	Variants []VariantMetrics   `json:"variants"`
	Verdict  *ExperimentVerdict `json:"verdict,omitempty"`
}

// MetricsReport is the full metrics API response.
type MetricsReport struct {
	Summary     FunnelSummary `json:"summary"`
	StepMetrics []StepMetrics `json:"stepMetrics"`
	ABTests     []ABTest      `json:"abTests"`
	StartDate   time.Time     `json:"startDate"`
	EndDate     time.Time     `json:"endDate"`
}

// ActiveSessions is the liveness poll response.
type ActiveSessions struct {
	Count     int       `json:"count"`
	Timestamp time.Time `json:"timestamp"`
}
