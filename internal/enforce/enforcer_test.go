package enforce

import (
	"testing"
	"time"

	"github.com/hummbl-dev/hummbl-agent-federation/internal/audit"
	"github.com/hummbl-dev/hummbl-agent-federation/internal/policy"
	"github.com/hummbl-dev/hummbl-agent-federation/internal/space"
	"github.com/hummbl-dev/hummbl-agent-federation/internal/violations"
)

func testSpace() *space.Space {
	return &space.Space{
		Version: "1.0",
		Actions: []space.ActionDefinition{
			{ID: "flag_violation", CAES: "C2-A1-E2-S2", Authority: "A1-NOTIFY", Status: space.StatusAllowed},
			{ID: "read_logs", CAES: "C1-A0-E1-S1", Authority: "A0-SELF", Status: space.StatusAllowed},
			{ID: "deploy_service", CAES: "C3-A2-E3-S3", Authority: "A2-REVIEW", Status: space.StatusRestricted},
			{ID: "expand_autonomy", CAES: "C5-A4-E5-S4", Authority: "A4-MULTI", Status: space.StatusForbidden},
			{ID: "purge_archive", CAES: "C3-A3-E3-S3", Authority: "A3-APPROVE", Status: space.StatusForbidden, EscalatesTo: "owner_review"},
		},
		MRCC: space.ConstraintSet{
			MaxClassification: "C3",
			MaxScope:          "S3",
			MaxEffect:         "E3",
			ForbiddenActions:  []string{"expand_autonomy"},
		},
	}
}

func newTestEnforcer() (*Enforcer, *violations.Store) {
	store := violations.NewStore()
	ts := time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)
	e := New(store, WithClock(func() time.Time { return ts }))
	return e, store
}

func TestEnforceAllowed(t *testing.T) {
	e, store := newTestEnforcer()
	res := e.Enforce("read_logs", Config{Space: testSpace(), PolicyRefs: []string{"base:policy"}}, policy.Context{Actor: "agent"})

	if res.Outcome != audit.OutcomeAllowed {
		t.Errorf("outcome = %s, want ALLOWED", res.Outcome)
	}
	if res.CheckpointRequired {
		t.Error("C1 action should not require a checkpoint")
	}
	if len(res.RequiresApproval) != 0 {
		t.Errorf("requires_approval = %v, want none", res.RequiresApproval)
	}
	if res.AuditEvent.ID == "" || res.AuditEvent.CAES != "C1-A0-E1-S1" {
		t.Errorf("audit event = %+v", res.AuditEvent)
	}
	if res.AuditEvent.Timestamp != "2026-08-15T12:00:00Z" {
		t.Errorf("timestamp = %s", res.AuditEvent.Timestamp)
	}
	if len(store.All()) != 0 {
		t.Error("allowed action should capture no violations")
	}
}

func TestEnforceCheckpointIndependentOfOutcome(t *testing.T) {
	e, _ := newTestEnforcer()
	sp := testSpace()

	// Valid C2 action.
	if res := e.Enforce("flag_violation", Config{Space: sp}, policy.Context{Actor: "agent"}); !res.CheckpointRequired {
		t.Error("C2 allowed action should require a checkpoint")
	}
	// Blocked C5 action still requires one.
	if res := e.Enforce("expand_autonomy", Config{Space: sp}, policy.Context{Actor: "agent"}); !res.CheckpointRequired {
		t.Error("C5 blocked action should require a checkpoint")
	}
	// Unknown action cannot.
	if res := e.Enforce("missing", Config{Space: sp}, policy.Context{Actor: "agent"}); res.CheckpointRequired {
		t.Error("unknown action should not require a checkpoint")
	}
}

func TestEnforceRestrictedEscalates(t *testing.T) {
	e, _ := newTestEnforcer()
	res := e.Enforce("deploy_service", Config{Space: testSpace()}, policy.Context{Actor: "agent"})

	if res.Outcome != audit.OutcomeEscalated {
		t.Fatalf("outcome = %s, want ESCALATED", res.Outcome)
	}
	if len(res.RequiresApproval) != 1 || res.RequiresApproval[0] != "A2-REVIEW" {
		t.Errorf("requires_approval = %v, want [A2-REVIEW]", res.RequiresApproval)
	}
}

func TestEnforceForbiddenBlocksAndCaptures(t *testing.T) {
	e, store := newTestEnforcer()
	res := e.Enforce("expand_autonomy", Config{Space: testSpace()}, policy.Context{Actor: "agent"})

	if res.Outcome != audit.OutcomeBlocked {
		t.Fatalf("outcome = %s, want BLOCKED", res.Outcome)
	}
	if len(res.Violations) == 0 {
		t.Fatal("expected violations")
	}
	if got := len(store.All()); got != len(res.Violations) {
		t.Errorf("captured %d violations, result carries %d", got, len(res.Violations))
	}
	if res.AuditEvent.Outcome != audit.OutcomeBlocked {
		t.Error("audit event should record the blocked outcome")
	}
}

func TestEnforceInvalidWithEscalationPath(t *testing.T) {
	e, _ := newTestEnforcer()
	res := e.Enforce("purge_archive", Config{Space: testSpace()}, policy.Context{Actor: "agent"})
	if res.Outcome != audit.OutcomeEscalated {
		t.Errorf("outcome = %s, want ESCALATED via escalates_to", res.Outcome)
	}
}

func TestEnforceUnknownActionBlocked(t *testing.T) {
	e, _ := newTestEnforcer()
	res := e.Enforce("missing", Config{Space: testSpace()}, policy.Context{Actor: "agent"})
	if res.Outcome != audit.OutcomeBlocked {
		t.Errorf("outcome = %s, want BLOCKED", res.Outcome)
	}
	if res.AuditEvent.CAES != "UNKNOWN" {
		t.Errorf("caes = %s, want UNKNOWN", res.AuditEvent.CAES)
	}
}

func TestRepeatedEnforcementDistinctAuditIDs(t *testing.T) {
	e, store := newTestEnforcer()
	cfg := Config{Space: testSpace()}
	r1 := e.Enforce("expand_autonomy", cfg, policy.Context{Actor: "agent"})
	r2 := e.Enforce("expand_autonomy", cfg, policy.Context{Actor: "agent"})

	if r1.AuditEvent.ID == r2.AuditEvent.ID {
		t.Error("repeated enforcement should produce distinct audit ids")
	}
	// Violations accumulate, no dedupe.
	if got := len(store.All()); got != len(r1.Violations)+len(r2.Violations) {
		t.Errorf("store has %d violations, want %d", got, len(r1.Violations)+len(r2.Violations))
	}
}

func TestEnforceBatch(t *testing.T) {
	e, _ := newTestEnforcer()
	results := e.EnforceBatch([]string{"read_logs", "expand_autonomy"}, Config{Space: testSpace()}, policy.Context{Actor: "agent"})
	if len(results) != 2 {
		t.Fatalf("results = %d", len(results))
	}
	if results[0].Outcome != audit.OutcomeAllowed || results[1].Outcome != audit.OutcomeBlocked {
		t.Errorf("outcomes = %s/%s", results[0].Outcome, results[1].Outcome)
	}
}

func TestEnforceCrossDomainVeto(t *testing.T) {
	// Permissive domain allows risky_op; restrictive domain forbids it.
	permissive := &space.Space{
		Version: "1.0",
		Actions: []space.ActionDefinition{
			{ID: "risky_op", CAES: "C2-A1-E2-S2", Authority: "A1-NOTIFY", Status: space.StatusAllowed},
		},
	}
	restrictive := &space.Space{
		Version: "1.0",
		Actions: []space.ActionDefinition{
			{ID: "risky_op", CAES: "C2-A1-E2-S2", Authority: "A1-NOTIFY", Status: space.StatusForbidden},
		},
	}

	e, _ := newTestEnforcer()
	ctx := policy.Context{Actor: "agent"}

	// Restrictive domain has higher priority: immediate block.
	res := e.EnforceCrossDomain("risky_op", []DomainPolicy{
		{Domain: "team", Space: permissive, Priority: 1},
		{Domain: "org", Space: restrictive, Priority: 10},
	}, ctx)
	if res.Outcome != audit.OutcomeBlocked {
		t.Errorf("outcome = %s, want BLOCKED by org domain", res.Outcome)
	}
	if len(res.AuditEvent.PolicyRefs) != 1 || res.AuditEvent.PolicyRefs[0] != "org:policy" {
		t.Errorf("policy refs = %v", res.AuditEvent.PolicyRefs)
	}

	// Lower-priority restrictive domain still vetoes a permissive one.
	res = e.EnforceCrossDomain("risky_op", []DomainPolicy{
		{Domain: "team", Space: permissive, Priority: 10},
		{Domain: "org", Space: restrictive, Priority: 1},
	}, ctx)
	if res.Outcome != audit.OutcomeBlocked {
		t.Errorf("outcome = %s, want BLOCKED despite permissive priority", res.Outcome)
	}
}

func TestEnforceCrossDomainEscalationCheckedForVeto(t *testing.T) {
	restricted := &space.Space{
		Version: "1.0",
		Actions: []space.ActionDefinition{
			{ID: "risky_op", CAES: "C2-A1-E2-S2", Authority: "A2-REVIEW", Status: space.StatusRestricted},
		},
	}
	forbidding := &space.Space{
		Version: "1.0",
		Actions: []space.ActionDefinition{
			{ID: "risky_op", CAES: "C2-A1-E2-S2", Authority: "A1-NOTIFY", Status: space.StatusForbidden},
		},
	}
	allowing := &space.Space{
		Version: "1.0",
		Actions: []space.ActionDefinition{
			{ID: "risky_op", CAES: "C2-A1-E2-S2", Authority: "A1-NOTIFY", Status: space.StatusAllowed},
		},
	}

	e, _ := newTestEnforcer()
	ctx := policy.Context{Actor: "agent"}

	// Escalation from the top domain stands when the rest allow.
	res := e.EnforceCrossDomain("risky_op", []DomainPolicy{
		{Domain: "org", Space: restricted, Priority: 10},
		{Domain: "team", Space: allowing, Priority: 1},
	}, ctx)
	if res.Outcome != audit.OutcomeEscalated {
		t.Errorf("outcome = %s, want ESCALATED", res.Outcome)
	}

	// A harder veto further down overrides the escalation.
	res = e.EnforceCrossDomain("risky_op", []DomainPolicy{
		{Domain: "org", Space: restricted, Priority: 10},
		{Domain: "team", Space: forbidding, Priority: 1},
	}, ctx)
	if res.Outcome != audit.OutcomeBlocked {
		t.Errorf("outcome = %s, want BLOCKED by lower-priority veto", res.Outcome)
	}
}

func TestEnforceCrossDomainAllAllowAggregatesRefs(t *testing.T) {
	allowing := func() *space.Space {
		return &space.Space{
			Version: "1.0",
			Actions: []space.ActionDefinition{
				{ID: "risky_op", CAES: "C1-A0-E1-S1", Authority: "A0-SELF", Status: space.StatusAllowed},
			},
		}
	}

	e, _ := newTestEnforcer()
	res := e.EnforceCrossDomain("risky_op", []DomainPolicy{
		{Domain: "team", Space: allowing(), Priority: 1},
		{Domain: "org", Space: allowing(), Priority: 10},
	}, policy.Context{Actor: "agent"})

	if res.Outcome != audit.OutcomeAllowed {
		t.Fatalf("outcome = %s, want ALLOWED", res.Outcome)
	}
	refs := res.AuditEvent.PolicyRefs
	if len(refs) != 2 || refs[0] != "org:policy" || refs[1] != "team:policy" {
		t.Errorf("policy refs = %v, want [org:policy team:policy]", refs)
	}
}

func TestCountersOnlyMoveThroughRecordResult(t *testing.T) {
	e, _ := newTestEnforcer()
	cfg := Config{Space: testSpace()}
	ctx := policy.Context{Actor: "agent"}

	e.Enforce("read_logs", cfg, ctx)
	if s := e.Summary(); s.TotalEnforced != 0 {
		t.Fatalf("Enforce alone should not count, got %+v", s)
	}

	e.RecordResult(e.Enforce("read_logs", cfg, ctx))
	e.RecordResult(e.Enforce("deploy_service", cfg, ctx))
	e.RecordResult(e.Enforce("expand_autonomy", cfg, ctx))

	s := e.Summary()
	if s.TotalEnforced != 3 || s.Allowed != 1 || s.Escalated != 1 || s.Blocked != 1 {
		t.Errorf("summary = %+v", s)
	}
	if s.ViolationsCaptured == 0 {
		t.Error("blocked enforcement should count its violations")
	}

	e.ResetCounters()
	if s := e.Summary(); s.TotalEnforced != 0 || s.ViolationsCaptured != 0 {
		t.Errorf("after reset: %+v", s)
	}
}
