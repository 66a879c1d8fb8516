// Package violations captures, filters, and statistically summarizes
// policy violations, and mines them for recurring patterns.
package violations

import "time"

// Type classifies what rule a violation broke.
type Type string

const (
	MRCCExceeded     Type = "MRCC_EXCEEDED"
	ForbiddenAction  Type = "FORBIDDEN_ACTION"
	AuthorityMissing Type = "AUTHORITY_MISSING"
	ScopeExceeded    Type = "SCOPE_EXCEEDED"
	RateLimit        Type = "RATE_LIMIT"
	EpochViolation   Type = "EPOCH_VIOLATION"
	PolicyMismatch   Type = "POLICY_MISMATCH"
)

// Types lists every violation type, in declaration order.
var Types = []Type{
	MRCCExceeded,
	ForbiddenAction,
	AuthorityMissing,
	ScopeExceeded,
	RateLimit,
	EpochViolation,
	PolicyMismatch,
}

// Severity ranks how serious a violation is.
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// Severities lists every severity, lowest first.
var Severities = []Severity{SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical}

// Context records who attempted what when the violation was raised.
type Context struct {
	Actor         string `json:"actor"`
	Target        string `json:"target,omitempty"`
	RequestedCAES string `json:"requested_caes,omitempty"`
	AllowedCAES   string `json:"allowed_caes,omitempty"`
	PolicyRef     string `json:"policy_ref,omitempty"`
	EpochID       string `json:"epoch_id,omitempty"`
}

// ResolutionType classifies how a violation was closed out.
type ResolutionType string

const (
	ResolutionApproved  ResolutionType = "APPROVED"
	ResolutionBlocked   ResolutionType = "BLOCKED"
	ResolutionEscalated ResolutionType = "ESCALATED"
	ResolutionException ResolutionType = "EXCEPTION"
)

// Resolution is attached to a violation when it is resolved.
type Resolution struct {
	ResolvedAt     string         `json:"resolved_at"`
	ResolvedBy     string         `json:"resolved_by"`
	ResolutionType ResolutionType `json:"resolution_type"`
	Notes          string         `json:"notes,omitempty"`
}

// Violation is one captured policy violation. Immutable after capture
// except for Resolution, which Store.Resolve attaches in place.
type Violation struct {
	ID         string      `json:"id"`
	Timestamp  string      `json:"timestamp"`
	ActionID   string      `json:"action_id"`
	CAES       string      `json:"caes"`
	Type       Type        `json:"violation_type"`
	Severity   Severity    `json:"severity"`
	Context    Context     `json:"context"`
	Resolution *Resolution `json:"resolution,omitempty"`
}

// Resolved reports whether a resolution has been attached.
func (v Violation) Resolved() bool { return v.Resolution != nil }

// when parses the violation timestamp; ok=false for unparsable values,
// which time-range filters exclude.
func (v Violation) when() (time.Time, bool) {
	t, err := time.Parse(time.RFC3339, v.Timestamp)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
