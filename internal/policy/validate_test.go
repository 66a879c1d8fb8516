package policy

import (
	"testing"

	"github.com/hummbl-dev/hummbl-agent-federation/internal/space"
	"github.com/hummbl-dev/hummbl-agent-federation/internal/violations"
)

func testSpace() *space.Space {
	return &space.Space{
		Version: "1.0",
		Actions: []space.ActionDefinition{
			{ID: "flag_violation", CAES: "C2-A1-E2-S2", Authority: "A1-NOTIFY", Status: space.StatusAllowed},
			{ID: "deploy_service", CAES: "C3-A2-E3-S3", Authority: "A2-REVIEW", Status: space.StatusRestricted},
			{ID: "expand_autonomy", CAES: "C5-A4-E5-S4", Authority: "A4-MULTI", Status: space.StatusForbidden},
			{ID: "purge_archive", CAES: "C4-A3-E5-S3", Authority: "A3-APPROVE", Status: space.StatusForbiddenWithoutOverride},
			{ID: "bad_code", CAES: "garbage", Authority: "A0-SELF", Status: space.StatusAllowed},
		},
		MRCC: space.ConstraintSet{
			MaxClassification: "C3",
			MaxScope:          "S3",
			MaxEffect:         "E3",
			ForbiddenActions:  []string{"expand_autonomy"},
			RateLimits:        map[string]int{"C2_per_hour": 10, "total_per_minute": 30},
		},
		NCC: space.ConstraintSet{
			DiscouragedActions: []string{"deploy_service"},
		},
	}
}

func findCheck(t *testing.T, res Result, name string) Check {
	t.Helper()
	for _, c := range res.Checks {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("check %q not found in %+v", name, res.Checks)
	return Check{}
}

func hasCheck(res Result, name string) bool {
	for _, c := range res.Checks {
		if c.Name == name {
			return true
		}
	}
	return false
}

func TestUnknownActionShortCircuits(t *testing.T) {
	res := ValidateAction("nonexistent", testSpace(), Context{Actor: "agent"})
	if res.Valid {
		t.Error("unknown action should be invalid")
	}
	if len(res.Checks) != 1 || res.Checks[0].Name != "action_exists" || res.Checks[0].OK {
		t.Errorf("checks = %+v, want single failing action_exists", res.Checks)
	}
	if len(res.Violations) != 0 {
		t.Error("unknown action emits no violations")
	}
}

func TestAllowedActionPasses(t *testing.T) {
	res := ValidateAction("flag_violation", testSpace(), Context{Actor: "agent"})
	if !res.Valid {
		t.Fatalf("expected valid, checks: %+v", res.Checks)
	}
	if len(res.Violations) != 0 {
		t.Errorf("violations = %+v, want none", res.Violations)
	}
}

func TestForbiddenActionScenario(t *testing.T) {
	// expand_autonomy is both FORBIDDEN by status and in the MRCC
	// forbidden list: invalid, with a CRITICAL FORBIDDEN_ACTION violation.
	res := ValidateAction("expand_autonomy", testSpace(), Context{Actor: "agent"})
	if res.Valid {
		t.Fatal("expected invalid")
	}

	var critical bool
	for _, v := range res.Violations {
		if v.Type == violations.ForbiddenAction && v.Severity == violations.SeverityCritical {
			critical = true
		}
	}
	if !critical {
		t.Errorf("want CRITICAL FORBIDDEN_ACTION violation, got %+v", res.Violations)
	}

	// Status failure also emits the HIGH-severity variant.
	var high bool
	for _, v := range res.Violations {
		if v.Type == violations.ForbiddenAction && v.Severity == violations.SeverityHigh {
			high = true
		}
	}
	if !high {
		t.Error("want HIGH FORBIDDEN_ACTION violation from status check")
	}
}

func TestForbiddenWithoutOverrideFails(t *testing.T) {
	res := ValidateAction("purge_archive", testSpace(), Context{Actor: "agent"})
	if res.Valid {
		t.Error("FORBIDDEN_WITHOUT_OVERRIDE should fail validation")
	}
	if c := findCheck(t, res, "action_status"); c.OK {
		t.Error("action_status should fail")
	}
}

func TestRestrictedPassesAnnotated(t *testing.T) {
	res := ValidateAction("deploy_service", testSpace(), Context{Actor: "agent"})
	if !res.Valid {
		t.Fatalf("RESTRICTED within bounds should be valid, checks: %+v", res.Checks)
	}
	c := findCheck(t, res, "action_status")
	if !c.OK || c.Reason == "" {
		t.Errorf("action_status = %+v, want passing with approval annotation", c)
	}
	if len(res.Recommendations) != 1 {
		t.Errorf("recommendations = %v, want NCC discouraged note", res.Recommendations)
	}
}

func TestUnparsableCAESClosesMRCCOnly(t *testing.T) {
	res := ValidateAction("bad_code", testSpace(), Context{Actor: "agent"})
	if res.Valid {
		t.Error("caes_parse failure should invalidate")
	}
	if c := findCheck(t, res, "caes_parse"); c.OK {
		t.Error("caes_parse should fail")
	}
	// MRCC bound checks are closed; forbidden membership is too (it
	// lives behind the parse), but status was still checked.
	if hasCheck(res, "mrcc_classification") {
		t.Error("mrcc_classification should not run after parse failure")
	}
	if c := findCheck(t, res, "action_status"); !c.OK {
		t.Error("status check should still pass")
	}
}

func TestMRCCBoundViolations(t *testing.T) {
	sp := testSpace()
	sp.MRCC.MaxClassification = "C1"
	sp.MRCC.MaxScope = "S1"
	sp.MRCC.MaxEffect = "E1"

	res := ValidateAction("flag_violation", sp, Context{Actor: "agent"})
	if res.Valid {
		t.Fatal("expected invalid")
	}

	types := map[violations.Type]int{}
	for _, v := range res.Violations {
		types[v.Type]++
	}
	if types[violations.MRCCExceeded] != 1 {
		t.Errorf("MRCC_EXCEEDED count = %d, want 1", types[violations.MRCCExceeded])
	}
	if types[violations.ScopeExceeded] != 1 {
		t.Errorf("SCOPE_EXCEEDED count = %d, want 1", types[violations.ScopeExceeded])
	}

	// Effect excess fails its check but emits no violation.
	if c := findCheck(t, res, "mrcc_effect"); c.OK {
		t.Error("mrcc_effect should fail")
	}
	if len(res.Violations) != 2 {
		t.Errorf("violations = %d, want 2 (effect excess emits none)", len(res.Violations))
	}
}

func TestRateLimitsOnlyWithCounts(t *testing.T) {
	sp := testSpace()

	res := ValidateAction("flag_violation", sp, Context{Actor: "agent"})
	if hasCheck(res, "rate_limit") {
		t.Error("rate_limit should not run without caller counts")
	}

	res = ValidateAction("flag_violation", sp, Context{
		Actor:      "agent",
		RateCounts: map[string]int{"C2_per_hour": 10},
	})
	if res.Valid {
		t.Fatal("expected rate limit breach")
	}
	c := findCheck(t, res, "rate_limit")
	if c.OK {
		t.Error("rate_limit should fail at the limit")
	}
	if len(res.Violations) != 1 {
		t.Fatalf("violations = %d, want 1", len(res.Violations))
	}
	v := res.Violations[0]
	if v.Type != violations.RateLimit || v.Severity != violations.SeverityMedium {
		t.Errorf("violation = %+v, want MEDIUM RATE_LIMIT", v)
	}
	if v.Context.Actor != "rate_checker" {
		t.Errorf("actor = %q, want rate_checker", v.Context.Actor)
	}
}

func TestTotalRateLimit(t *testing.T) {
	res := ValidateAction("flag_violation", testSpace(), Context{
		Actor:      "agent",
		RateCounts: map[string]int{"total_per_minute": 30},
	})
	if res.Valid {
		t.Error("total_per_minute breach should invalidate")
	}
}

func TestRateLimitUnderLimitPasses(t *testing.T) {
	res := ValidateAction("flag_violation", testSpace(), Context{
		Actor:      "agent",
		RateCounts: map[string]int{"C2_per_hour": 9, "total_per_minute": 29},
	})
	if !res.Valid {
		t.Errorf("expected valid under limits, checks: %+v", res.Checks)
	}
}

func TestEpochMonotonicChecks(t *testing.T) {
	sp := testSpace()
	sp.MRCC.ForbiddenActions = nil // isolate the epoch check
	sp.CurrentEpoch = &space.Epoch{
		ID:                  "epoch-1",
		MonotonicProperties: []string{"autonomy_level_cannot_increase", "forbidden_stays_forbidden"},
	}

	res := ValidateAction("expand_autonomy", sp, Context{Actor: "agent", EpochID: "epoch-1"})
	c := findCheck(t, res, "epoch_monotonic")
	if c.OK {
		t.Error("expand_autonomy should violate the epoch")
	}
	var epochViolation bool
	for _, v := range res.Violations {
		if v.Type == violations.EpochViolation && v.Severity == violations.SeverityCritical {
			epochViolation = true
			if v.Context.EpochID != "epoch-1" {
				t.Errorf("epoch id = %q", v.Context.EpochID)
			}
		}
	}
	if !epochViolation {
		t.Error("want CRITICAL EPOCH_VIOLATION")
	}

	// Without an epoch the check does not run at all.
	sp.CurrentEpoch = nil
	res = ValidateAction("flag_violation", sp, Context{Actor: "agent"})
	if hasCheck(res, "epoch_monotonic") {
		t.Error("epoch check should not run without an active epoch")
	}
}

func TestValidateActionsIndependent(t *testing.T) {
	results := ValidateActions([]string{"flag_violation", "expand_autonomy", "missing"}, testSpace(), Context{Actor: "agent"})
	if len(results) != 3 {
		t.Fatalf("results = %d", len(results))
	}
	if !results[0].Valid || results[1].Valid || results[2].Valid {
		t.Errorf("validity = %v/%v/%v, want true/false/false",
			results[0].Valid, results[1].Valid, results[2].Valid)
	}
}

func TestAllowedActionsExcludesForbidden(t *testing.T) {
	allowed := AllowedActions(testSpace())
	for _, a := range allowed {
		if a.Status.Forbidden() {
			t.Errorf("forbidden action %q in allowed list", a.ID)
		}
	}
	ids := map[string]bool{}
	for _, a := range allowed {
		ids[a.ID] = true
	}
	if !ids["flag_violation"] || !ids["deploy_service"] {
		t.Errorf("allowed = %v", ids)
	}
	if ids["expand_autonomy"] || ids["purge_archive"] || ids["bad_code"] {
		t.Errorf("allowed = %v includes excluded actions", ids)
	}
}

func TestAllowedActionsRespectsMRCCMaxima(t *testing.T) {
	sp := testSpace()
	sp.MRCC.MaxClassification = "C2"
	ids := map[string]bool{}
	for _, a := range AllowedActions(sp) {
		ids[a.ID] = true
	}
	if ids["deploy_service"] {
		t.Error("C3 action should be excluded under max C2")
	}
	if !ids["flag_violation"] {
		t.Error("C2 action should remain allowed")
	}
}
