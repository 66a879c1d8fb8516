// Package enforce turns validation verdicts into enforcement outcomes
// and audit events, including cross-domain veto resolution.
package enforce

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hummbl-dev/hummbl-agent-federation/internal/audit"
	"github.com/hummbl-dev/hummbl-agent-federation/internal/caes"
	"github.com/hummbl-dev/hummbl-agent-federation/internal/policy"
	"github.com/hummbl-dev/hummbl-agent-federation/internal/space"
	"github.com/hummbl-dev/hummbl-agent-federation/internal/violations"
)

// Config selects the action space and policy references one enforcement
// runs against.
type Config struct {
	Space      *space.Space
	PolicyRefs []string
}

// Result is the outcome of enforcing one action.
type Result struct {
	ActionID           string                 `json:"action_id"`
	Outcome            audit.Outcome          `json:"outcome"`
	AuditEvent         audit.Event            `json:"audit_event"`
	Violations         []violations.Violation `json:"violations"`
	RequiresApproval   []string               `json:"requires_approval,omitempty"`
	CheckpointRequired bool                   `json:"checkpoint_required"`
}

// DomainPolicy is one governance domain in a cross-domain check. Higher
// priority means more restrictive and is evaluated first.
type DomainPolicy struct {
	Domain   string
	Space    *space.Space
	Priority int
}

// Summary reports the enforcement counters.
type Summary struct {
	audit.Totals
	ViolationsCaptured int `json:"violations_captured"`
}

// Enforcer validates actions, captures their violations, and decides
// ALLOWED/BLOCKED/ESCALATED. Counters only move through RecordResult so
// callers choose which enforcements count.
type Enforcer struct {
	mu       sync.Mutex
	store    *violations.Store
	counters Summary
	now      func() time.Time
	newID    func() string
}

// Option configures an Enforcer.
type Option func(*Enforcer)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(e *Enforcer) { e.now = now }
}

// WithIDGenerator overrides audit event id generation.
func WithIDGenerator(newID func() string) Option {
	return func(e *Enforcer) { e.newID = newID }
}

// New returns an enforcer that captures violations into store.
func New(store *violations.Store, opts ...Option) *Enforcer {
	e := &Enforcer{
		store: store,
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Enforce validates one action and decides its outcome:
//
//   - invalid: ESCALATED when the action declares escalates_to, else
//     BLOCKED
//   - valid RESTRICTED: ESCALATED with requires_approval naming the
//     action's authority
//   - valid otherwise: ALLOWED
//
// checkpoint_required is set whenever the classification level is >= 2,
// independent of the outcome. Every call produces an audit event, even
// for blocked actions, and every violation found during validation is
// captured into the store.
func (e *Enforcer) Enforce(actionID string, cfg Config, ctx policy.Context) Result {
	validation := policy.ValidateAction(actionID, cfg.Space, ctx)
	for _, v := range validation.Violations {
		e.store.Capture(v)
	}

	action := cfg.Space.Action(actionID)

	var outcome audit.Outcome
	var requiresApproval []string
	switch {
	case !validation.Valid:
		if action != nil && action.EscalatesTo != "" {
			outcome = audit.OutcomeEscalated
		} else {
			outcome = audit.OutcomeBlocked
		}
	case action.Status == space.StatusRestricted:
		outcome = audit.OutcomeEscalated
		requiresApproval = []string{action.Authority}
	default:
		outcome = audit.OutcomeAllowed
	}

	checkpointRequired := false
	if action != nil {
		if code, ok := caes.Parse(action.CAES); ok && caes.Level(code.Classification) >= 2 {
			checkpointRequired = true
		}
	}

	return Result{
		ActionID:           actionID,
		Outcome:            outcome,
		AuditEvent:         e.newEvent(actionID, action, outcome, ctx, cfg.PolicyRefs),
		Violations:         validation.Violations,
		RequiresApproval:   requiresApproval,
		CheckpointRequired: checkpointRequired,
	}
}

func (e *Enforcer) newEvent(actionID string, action *space.ActionDefinition, outcome audit.Outcome, ctx policy.Context, policyRefs []string) audit.Event {
	code := "UNKNOWN"
	if action != nil {
		code = action.CAES
	}
	return audit.Event{
		ID:         e.newID(),
		Timestamp:  e.now().UTC().Format(time.RFC3339),
		ActionID:   actionID,
		CAES:       code,
		Actor:      ctx.Actor,
		Outcome:    outcome,
		PolicyRefs: policyRefs,
	}
}

// EnforceBatch enforces each id independently, in order.
func (e *Enforcer) EnforceBatch(actionIDs []string, cfg Config, ctx policy.Context) []Result {
	results := make([]Result, 0, len(actionIDs))
	for _, id := range actionIDs {
		results = append(results, e.Enforce(id, cfg, ctx))
	}
	return results
}

// EnforceCrossDomain enforces one action across multiple governance
// domains. Domains are checked in descending priority order (ties keep
// input order). The first BLOCKED verdict wins outright. An ESCALATED
// verdict stands unless a lower-priority domain blocks, in which case
// that block wins. When every domain allows, the action is re-enforced
// against the highest-priority domain with policy refs aggregated across
// all domains.
func (e *Enforcer) EnforceCrossDomain(actionID string, domains []DomainPolicy, ctx policy.Context) Result {
	sorted := make([]DomainPolicy, len(domains))
	copy(sorted, domains)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Priority > sorted[j].Priority })

	for i, d := range sorted {
		result := e.Enforce(actionID, domainConfig(d), ctx)
		if result.Outcome == audit.OutcomeBlocked {
			return result
		}
		if result.Outcome == audit.OutcomeEscalated {
			for _, rem := range sorted[i+1:] {
				remResult := e.Enforce(actionID, domainConfig(rem), ctx)
				if remResult.Outcome == audit.OutcomeBlocked {
					return remResult
				}
			}
			return result
		}
	}

	top := &space.Space{Version: "0"}
	if len(sorted) > 0 {
		top = sorted[0].Space
	}
	refs := make([]string, 0, len(sorted))
	for _, d := range sorted {
		refs = append(refs, d.Domain+":policy")
	}
	return e.Enforce(actionID, Config{Space: top, PolicyRefs: refs}, ctx)
}

func domainConfig(d DomainPolicy) Config {
	return Config{Space: d.Space, PolicyRefs: []string{d.Domain + ":policy"}}
}

// RecordResult counts a result into the running totals. Enforce never
// counts on its own.
func (e *Enforcer) RecordResult(r Result) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.counters.TotalEnforced++
	switch r.Outcome {
	case audit.OutcomeAllowed:
		e.counters.Allowed++
	case audit.OutcomeBlocked:
		e.counters.Blocked++
	case audit.OutcomeEscalated:
		e.counters.Escalated++
	}
	e.counters.ViolationsCaptured += len(r.Violations)
}

// Summary returns the current counters.
func (e *Enforcer) Summary() Summary {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.counters
}

// ResetCounters zeroes the running totals.
func (e *Enforcer) ResetCounters() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.counters = Summary{}
}
