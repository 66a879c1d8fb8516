package audit

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/hummbl-dev/hummbl-agent-federation/internal/violations"
)

// Period is the reporting window.
type Period struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Summary aggregates enforcement and violation counts for the report.
type Summary struct {
	TotalActions         int `json:"total_actions"`
	Allowed              int `json:"allowed"`
	Blocked              int `json:"blocked"`
	Escalated            int `json:"escalated"`
	Violations           int `json:"violations"`
	UnresolvedViolations int `json:"unresolved_violations"`
}

// TopViolation is one row of the report's most-violated-actions table.
type TopViolation struct {
	ActionID string          `json:"action_id"`
	Count    int             `json:"count"`
	Type     violations.Type `json:"type"`
}

// Report is a point-in-time compliance report.
type Report struct {
	GeneratedAt    string         `json:"generated_at"`
	Period         Period         `json:"period"`
	Score          Score          `json:"score"`
	Summary        Summary        `json:"summary"`
	TopViolations  []TopViolation `json:"top_violations"`
	AuditTrailHash string         `json:"audit_trail_hash"`
}

// GenerateReport builds a compliance report over [start, end]. The trail
// hash covers the full exported ledger, so any change to the stored
// events changes the hash.
func GenerateReport(ledger *Ledger, store *violations.Store, totals Totals, start, end, now time.Time) Report {
	stats := store.Stats()
	score := ComputeScore(stats, totals, ledger.Len())

	return Report{
		GeneratedAt: now.UTC().Format(time.RFC3339),
		Period: Period{
			Start: start.UTC().Format(time.RFC3339),
			End:   end.UTC().Format(time.RFC3339),
		},
		Score: score,
		Summary: Summary{
			TotalActions:         totals.TotalEnforced,
			Allowed:              totals.Allowed,
			Blocked:              totals.Blocked,
			Escalated:            totals.Escalated,
			Violations:           stats.Total,
			UnresolvedViolations: stats.Unresolved,
		},
		TopViolations:  topViolations(store.All(), 5),
		AuditTrailHash: Hash([]byte(ledger.ExportJSONL())),
	}
}

// topViolations counts violations per action and returns the top n by
// count. The type recorded is the first one seen for that action; ties
// keep first-seen order.
func topViolations(all []violations.Violation, n int) []TopViolation {
	index := make(map[string]int)
	var rows []TopViolation
	for _, v := range all {
		if i, ok := index[v.ActionID]; ok {
			rows[i].Count++
			continue
		}
		index[v.ActionID] = len(rows)
		rows = append(rows, TopViolation{ActionID: v.ActionID, Count: 1, Type: v.Type})
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Count > rows[j].Count })
	if len(rows) > n {
		rows = rows[:n]
	}
	return rows
}

// FormatReportMarkdown renders a report as a markdown document.
func FormatReportMarkdown(r Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# G.A.S. Compliance Report\n\n")
	fmt.Fprintf(&b, "**Generated:** %s\n", r.GeneratedAt)
	fmt.Fprintf(&b, "**Period:** %s to %s\n\n", r.Period.Start, r.Period.End)

	fmt.Fprintf(&b, "## Compliance Score\n\n")
	fmt.Fprintf(&b, "**Overall:** %d/100 (Grade: %s)\n\n", r.Score.Overall, r.Score.Grade)
	fmt.Fprintf(&b, "| Metric | Score |\n|--------|-------|\n")
	fmt.Fprintf(&b, "| Policy Adherence | %d%% |\n", r.Score.Breakdown.PolicyAdherence)
	fmt.Fprintf(&b, "| Violation Rate | %d%% |\n", r.Score.Breakdown.ViolationRate)
	fmt.Fprintf(&b, "| Resolution Rate | %d%% |\n", r.Score.Breakdown.ResolutionRate)
	fmt.Fprintf(&b, "| Audit Coverage | %d%% |\n\n", r.Score.Breakdown.AuditCoverage)

	fmt.Fprintf(&b, "## Summary\n\n")
	fmt.Fprintf(&b, "- **Total Actions:** %d\n", r.Summary.TotalActions)
	fmt.Fprintf(&b, "- **Allowed:** %d\n", r.Summary.Allowed)
	fmt.Fprintf(&b, "- **Blocked:** %d\n", r.Summary.Blocked)
	fmt.Fprintf(&b, "- **Escalated:** %d\n", r.Summary.Escalated)
	fmt.Fprintf(&b, "- **Violations:** %d\n", r.Summary.Violations)
	fmt.Fprintf(&b, "- **Unresolved:** %d\n\n", r.Summary.UnresolvedViolations)

	if len(r.TopViolations) > 0 {
		fmt.Fprintf(&b, "## Top Violations\n\n")
		fmt.Fprintf(&b, "| Action | Count | Type |\n|--------|-------|------|\n")
		for _, v := range r.TopViolations {
			fmt.Fprintf(&b, "| %s | %d | %s |\n", v.ActionID, v.Count, v.Type)
		}
		fmt.Fprintf(&b, "\n")
	}

	if len(r.Score.Recommendations) > 0 {
		fmt.Fprintf(&b, "## Recommendations\n\n")
		for _, rec := range r.Score.Recommendations {
			fmt.Fprintf(&b, "- %s\n", rec)
		}
		fmt.Fprintf(&b, "\n")
	}

	fmt.Fprintf(&b, "---\n\n")
	fmt.Fprintf(&b, "Audit Trail Hash: `%s`\n", r.AuditTrailHash)
	return b.String()
}
