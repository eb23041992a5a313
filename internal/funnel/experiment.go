package funnel

import (
	"sort"
)

// Sample-size gates for experiment verdicts. The confidence tiers are a
// coarse proxy for statistical power keyed on combined sample size, not a
// computed p-value; the dashboard renders the tier percentages as-is.
const (
	MinSampleSessions = 100

	highConfidenceSessions   = 500
	mediumConfidenceSessions = 200

	highConfidencePct   = 95
	mediumConfidencePct = 85
	lowConfidencePct    = 70
)

// Arm is one experiment arm's tallies at a step.
type Arm struct {
	Variant   string
	Sessions  int
	Purchases int
}

// Rate returns the arm's conversion rate as a percentage, 0-guarded.
func (a Arm) Rate() float64 {
	if a.Sessions == 0 {
		return 0
	}
	return float64(a.Purchases) / float64(a.Sessions) * 100
}

// Verdict is the head-to-head outcome between the two leading arms.
// Arms beyond the runner-up inform nothing; the engine only reports a
// winner/runner-up pair.
type Verdict struct {
	Winner        Arm
	RunnerUp      Arm
	LiftPct       float64
	ConfidencePct int
}

// RankArms orders arms by conversion rate descending, breaking ties by
// variant name so the ranking is deterministic for a fixed snapshot.
func RankArms(arms []Arm) []Arm {
	ranked := make([]Arm, len(arms))
	copy(ranked, arms)
	sort.SliceStable(ranked, func(i, j int) bool {
		ri, rj := ranked[i].Rate(), ranked[j].Rate()
		if ri != rj {
			return ri > rj
		}
		return ranked[i].Variant < ranked[j].Variant
	})
	return ranked
}

// EvaluateExperiment produces a verdict for two or more arms at one step.
// It returns nil when there is insufficient data: fewer than two arms, or
// either leading arm below the minimum-sample gate. When the runner-up
// converted nothing the lift is reported as 0 rather than infinity.
func EvaluateExperiment(arms []Arm) *Verdict {
	if len(arms) < 2 {
		return nil
	}

	ranked := RankArms(arms)
	winner, runnerUp := ranked[0], ranked[1]

	if winner.Sessions < MinSampleSessions || runnerUp.Sessions < MinSampleSessions {
		return nil
	}

	winnerRate, runnerUpRate := winner.Rate(), runnerUp.Rate()

	lift := 0.0
	if runnerUpRate > 0 {
		lift = (winnerRate - runnerUpRate) / runnerUpRate * 100
	}

	combined := winner.Sessions + runnerUp.Sessions
	confidence := lowConfidencePct
	switch {
	case combined > highConfidenceSessions:
		confidence = highConfidencePct
	case combined > mediumConfidenceSessions:
		confidence = mediumConfidencePct
	}

	return &Verdict{
		Winner:        winner,
		RunnerUp:      runnerUp,
		LiftPct:       lift,
		ConfidencePct: confidence,
	}
}
