package models

import (
	"time"
)

// ===========================================
// FUNNEL STEPS
// ===========================================

// Step is one stage in the fixed funnel sequence a visitor passes through.
type Step string

const (
	StepLanding   Step = "landing"
	StepCheckout  Step = "checkout"
	StepUpsell1   Step = "upsell-1"
	StepDownsell1 Step = "downsell-1"
	StepUpsell2   Step = "upsell-2"
	StepThankYou  Step = "thank-you"
)

// StepOrder is the canonical funnel ordering. Output step metrics follow
// this order, never event insertion order.
var StepOrder = []Step{
	StepLanding,
	StepCheckout,
	StepUpsell1,
	StepDownsell1,
	StepUpsell2,
	StepThankYou,
}

// EntryStep is the first funnel step; funnel-wide session counts are
// anchored to page views here.
const EntryStep = StepLanding

var stepIndex = func() map[Step]int {
	m := make(map[Step]int, len(StepOrder))
	for i, s := range StepOrder {
		m[s] = i
	}
	return m
}()

// Valid reports whether s is part of the funnel enumeration.
func (s Step) Valid() bool {
	_, ok := stepIndex[s]
	return ok
}

// Index returns the position of s in the funnel, or -1 for unknown steps.
func (s Step) Index() int {
	if i, ok := stepIndex[s]; ok {
		return i
	}
	return -1
}

// ===========================================
// EVENT TYPES
// ===========================================

// EventType tags what a visitor did at a funnel step.
type EventType string

const (
	EventPageView       EventType = "page_view"
	EventPurchase       EventType = "purchase"
	EventUpsellAccept   EventType = "upsell_accept"
	EventDownsellAccept EventType = "downsell_accept"
	EventOther          EventType = "other"
)

// Valid reports whether t is a recognized event type.
func (t EventType) Valid() bool {
	switch t {
	case EventPageView, EventPurchase, EventUpsellAccept, EventDownsellAccept, EventOther:
		return true
	}
	return false
}

// IsConversion reports whether t carries revenue. Primary purchases and
// upsell/downsell acceptances all count; page views and "other" do not.
func (t EventType) IsConversion() bool {
	switch t {
	case EventPurchase, EventUpsellAccept, EventDownsellAccept:
		return true
	}
	return false
}

// ===========================================
// FUNNEL EVENT
// ===========================================

// FunnelEvent is one observed visitor action. Events are immutable and
// append-only; the aggregation engine never mutates or persists them.
type FunnelEvent struct {
	ID        string    `json:"eventId,omitempty"`
	TenantID  string    `json:"tenantId,omitempty"`
	SessionID string    `json:"sessionId"`
	Step      Step      `json:"step"`
	EventType EventType `json:"eventType"`

	// RevenueMinorUnits is in the smallest currency unit. Accumulation
	// happens in integers; conversion to major units is an output concern.
	RevenueMinorUnits int64 `json:"revenueMinorUnits"`

	// Variant identifies an A/B arm. Tagging is optional and partial
	// coverage across a step's events is expected.
	Variant string `json:"variant,omitempty"`

	OccurredAt time.Time `json:"occurredAt"`

	// Ingest enrichment
	PagePath   string `json:"pagePath,omitempty"`
	UserAgent  string `json:"userAgent,omitempty"`
	GeoCountry string `json:"geoCountry,omitempty"`
}

// WellFormed reports whether the event can be attributed to a funnel step.
// Malformed events are skipped by the aggregation engine, not errored.
func (e FunnelEvent) WellFormed() bool {
	return e.SessionID != "" && e.Step.Valid() && e.EventType.Valid()
}
