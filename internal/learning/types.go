// Package learning derives policy signals from violation history:
// learned patterns, feedback-driven weight adjustments, policy
// proposals, and compliance benchmarks.
package learning

import (
	"github.com/hummbl-dev/hummbl-agent-federation/internal/violations"
)

// PatternType classifies a learned violation pattern.
type PatternType string

const (
	PatternRecurringViolation PatternType = "RECURRING_VIOLATION"
	PatternPolicyGap          PatternType = "POLICY_GAP"
	PatternAuthorityMismatch  PatternType = "AUTHORITY_MISMATCH"
	PatternScopeCreep         PatternType = "SCOPE_CREEP"
	PatternRateAbuse          PatternType = "RATE_ABUSE"
)

// SuggestedAction is the remediation a learned pattern points at.
type SuggestedAction string

const (
	SuggestUpdatePolicy    SuggestedAction = "UPDATE_POLICY"
	SuggestAdjustThreshold SuggestedAction = "ADJUST_THRESHOLD"
	SuggestAddException    SuggestedAction = "ADD_EXCEPTION"
	SuggestEscalateToOwner SuggestedAction = "ESCALATE_TO_OWNER"
	SuggestNoAction        SuggestedAction = "NO_ACTION"
)

// LearnedPattern is a violation pattern promoted into learning state.
type LearnedPattern struct {
	ID              string          `json:"id"`
	PatternType     PatternType     `json:"pattern_type"`
	ActionID        string          `json:"action_id"`
	ViolationType   violations.Type `json:"violation_type"`
	Frequency       int             `json:"frequency"`
	FirstSeen       string          `json:"first_seen"`
	LastSeen        string          `json:"last_seen"`
	Confidence      float64         `json:"confidence"`
	SuggestedAction SuggestedAction `json:"suggested_action"`
}

// FeedbackType classifies operator feedback on an enforcement decision.
type FeedbackType string

const (
	FeedbackOverrideApproved   FeedbackType = "OVERRIDE_APPROVED"
	FeedbackOverrideRejected   FeedbackType = "OVERRIDE_REJECTED"
	FeedbackEscalationResolved FeedbackType = "ESCALATION_RESOLVED"
	FeedbackPolicyUpdated      FeedbackType = "POLICY_UPDATED"
	FeedbackFalsePositive      FeedbackType = "FALSE_POSITIVE"
	FeedbackTruePositive       FeedbackType = "TRUE_POSITIVE"
)

// FeedbackRecord is one piece of recorded feedback and the weight
// adjustment it carried.
type FeedbackRecord struct {
	ID               string       `json:"id"`
	Timestamp        string       `json:"timestamp"`
	ActionID         string       `json:"action_id"`
	FeedbackType     FeedbackType `json:"feedback_type"`
	Source           string       `json:"source"`
	Reason           string       `json:"reason,omitempty"`
	WeightAdjustment float64      `json:"weight_adjustment"`
}

// Weights holds tolerance adjustments per action and per violation type,
// each clamped to [-1, 1].
type Weights struct {
	Actions map[string]float64          `json:"actions"`
	Types   map[violations.Type]float64 `json:"types"`
}

// ProposalStatus is a policy proposal's review state.
type ProposalStatus string

const (
	ProposalDraft         ProposalStatus = "DRAFT"
	ProposalPendingReview ProposalStatus = "PENDING_REVIEW"
	ProposalApproved      ProposalStatus = "APPROVED"
	ProposalRejected      ProposalStatus = "REJECTED"
	ProposalImplemented   ProposalStatus = "IMPLEMENTED"
)

// ProposalType names the policy change a proposal suggests.
type ProposalType string

const (
	ProposalAdjustClassification ProposalType = "ADJUST_CLASSIFICATION"
	ProposalAdjustAuthority      ProposalType = "ADJUST_AUTHORITY"
	ProposalAddAction            ProposalType = "ADD_ACTION"
	ProposalRemoveAction         ProposalType = "REMOVE_ACTION"
	ProposalUpdateMRCC           ProposalType = "UPDATE_MRCC"
	ProposalUpdateNCC            ProposalType = "UPDATE_NCC"
	ProposalAddException         ProposalType = "ADD_EXCEPTION"
)

// Proposal is a generated policy change suggestion awaiting review.
type Proposal struct {
	ID            string         `json:"id"`
	CreatedAt     string         `json:"created_at"`
	Status        ProposalStatus `json:"status"`
	ProposalType  ProposalType   `json:"proposal_type"`
	ActionID      string         `json:"action_id,omitempty"`
	CurrentValue  string         `json:"current_value,omitempty"`
	ProposedValue string         `json:"proposed_value,omitempty"`
	Rationale     string         `json:"rationale"`
	Evidence      []string       `json:"evidence"`
	Confidence    float64        `json:"confidence"`
	GitopsBranch  string         `json:"gitops_branch,omitempty"`
}

// BenchmarkType selects the compliance standard to benchmark against.
type BenchmarkType string

const (
	BenchmarkSOC2     BenchmarkType = "SOC2"
	BenchmarkISO27001 BenchmarkType = "ISO27001"
	BenchmarkNIST     BenchmarkType = "NIST"
	BenchmarkCustom   BenchmarkType = "CUSTOM"
)

// GapSeverity grades a benchmark gap.
type GapSeverity string

const (
	GapLow    GapSeverity = "LOW"
	GapMedium GapSeverity = "MEDIUM"
	GapHigh   GapSeverity = "HIGH"
)

// Gap is one unmet control in a benchmark run.
type Gap struct {
	ControlID   string      `json:"control_id"`
	Description string      `json:"description"`
	Severity    GapSeverity `json:"severity"`
	Remediation string      `json:"remediation,omitempty"`
}

// BenchmarkResult is the outcome of one benchmark run.
type BenchmarkResult struct {
	ID            string        `json:"id"`
	Timestamp     string        `json:"timestamp"`
	BenchmarkType BenchmarkType `json:"benchmark_type"`
	Standard      string        `json:"standard"`
	Score         int           `json:"score"`
	Gaps          []Gap         `json:"gaps"`
}

// State is the full learning state: the blob checkpoints persist.
type State struct {
	Version    string            `json:"version"`
	UpdatedAt  string            `json:"updated_at"`
	Patterns   []LearnedPattern  `json:"patterns"`
	Feedback   []FeedbackRecord  `json:"feedback"`
	Weights    Weights           `json:"weights"`
	Proposals  []Proposal        `json:"proposals"`
	Benchmarks []BenchmarkResult `json:"benchmarks"`
}
