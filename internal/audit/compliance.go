package audit

import (
	"math"

	"github.com/hummbl-dev/hummbl-agent-federation/internal/violations"
)

// Totals summarizes enforcement counters. The enforcer produces one;
// the scorer only reads it.
type Totals struct {
	TotalEnforced int `json:"total_enforced"`
	Allowed       int `json:"allowed"`
	Blocked       int `json:"blocked"`
	Escalated     int `json:"escalated"`
}

// Breakdown holds the four compliance sub-scores, each 0-100.
type Breakdown struct {
	PolicyAdherence int `json:"policy_adherence"`
	ViolationRate   int `json:"violation_rate"`
	ResolutionRate  int `json:"resolution_rate"`
	AuditCoverage   int `json:"audit_coverage"`
}

// Score is a weighted compliance score with grade and recommendations.
type Score struct {
	Overall         int       `json:"overall"`
	Breakdown       Breakdown `json:"breakdown"`
	Grade           string    `json:"grade"`
	Recommendations []string  `json:"recommendations"`
}

// ComputeScore scores compliance from violation statistics, enforcement
// totals, and the number of audit events on record.
//
// Weights: policy_adherence 0.35, violation_rate 0.25, resolution_rate
// 0.20, audit_coverage 0.20. Zero denominators score 100 (a system that
// has enforced nothing has violated nothing).
func ComputeScore(stats violations.Stats, totals Totals, auditEvents int) Score {
	b := Breakdown{
		PolicyAdherence: policyAdherence(totals),
		ViolationRate:   violationRate(stats, totals),
		ResolutionRate:  resolutionRate(stats),
		AuditCoverage:   auditCoverage(auditEvents, totals),
	}

	overall := int(math.Round(
		float64(b.PolicyAdherence)*0.35 +
			float64(b.ViolationRate)*0.25 +
			float64(b.ResolutionRate)*0.20 +
			float64(b.AuditCoverage)*0.20))

	return Score{
		Overall:         overall,
		Breakdown:       b,
		Grade:           grade(overall),
		Recommendations: recommendations(b),
	}
}

func policyAdherence(t Totals) int {
	if t.TotalEnforced == 0 {
		return 100
	}
	return int(math.Round(float64(t.Allowed+t.Escalated) / float64(t.TotalEnforced) * 100))
}

func violationRate(stats violations.Stats, t Totals) int {
	if t.TotalEnforced == 0 {
		return 100
	}
	rate := float64(stats.Total) / float64(t.TotalEnforced)
	return int(math.Round(math.Max(0, 100-rate*100)))
}

func resolutionRate(stats violations.Stats) int {
	if stats.Total == 0 {
		return 100
	}
	resolved := stats.Total - stats.Unresolved
	return int(math.Round(float64(resolved) / float64(stats.Total) * 100))
}

func auditCoverage(events int, t Totals) int {
	if t.TotalEnforced == 0 {
		return 100
	}
	coverage := float64(events) / float64(t.TotalEnforced)
	return int(math.Round(math.Min(100, coverage*100)))
}

func grade(score int) string {
	switch {
	case score >= 90:
		return "A"
	case score >= 80:
		return "B"
	case score >= 70:
		return "C"
	case score >= 60:
		return "D"
	default:
		return "F"
	}
}

func recommendations(b Breakdown) []string {
	var recs []string
	if b.PolicyAdherence < 80 {
		recs = append(recs, "Review and update policies to reduce blocked actions")
	}
	if b.ViolationRate < 80 {
		recs = append(recs, "Investigate recurring violations and address root causes")
	}
	if b.ResolutionRate < 80 {
		recs = append(recs, "Resolve outstanding violations to improve compliance")
	}
	if b.AuditCoverage < 80 {
		recs = append(recs, "Ensure all actions have corresponding audit events")
	}
	if len(recs) == 0 {
		recs = append(recs, "Maintain current compliance practices")
	}
	return recs
}
