// Package policy validates actions against an action space: static
// status, MRCC bounds, rate limits, and epoch monotonic invariants.
//
// Validation is one pass per action. Each check produces a pass/fail
// record; specific failing checks also emit Violation records. The
// overall verdict is the AND of all check outcomes; NCC recommendations
// never affect it.
package policy

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hummbl-dev/hummbl-agent-federation/internal/caes"
	"github.com/hummbl-dev/hummbl-agent-federation/internal/space"
	"github.com/hummbl-dev/hummbl-agent-federation/internal/violations"
)

// Context carries per-call validation inputs. RateCounts is supplied by
// the caller (the validator tracks no counters itself); rate checks only
// run when it is non-nil.
type Context struct {
	Actor      string
	EpochID    string
	RateCounts map[string]int
}

// Check is one validation step's outcome.
type Check struct {
	Name   string `json:"check"`
	OK     bool   `json:"ok"`
	Reason string `json:"reason,omitempty"`
}

// Result is the outcome of validating one action.
type Result struct {
	Valid           bool                   `json:"valid"`
	ActionID        string                 `json:"action_id"`
	Checks          []Check                `json:"checks"`
	Violations      []violations.Violation `json:"violations"`
	Recommendations []string               `json:"recommendations,omitempty"`
}

// ValidateAction checks one action against the action space.
//
// Check order (must not be changed):
//  1. action_exists — unknown id short-circuits everything else
//  2. action_status — FORBIDDEN* fail; RESTRICTED passes annotated
//  3. caes_parse — failure closes the MRCC bound checks only
//  4. mrcc_classification / mrcc_scope / mrcc_effect bounds
//  5. mrcc_forbidden membership
//  6. rate_limit (only when ctx.RateCounts is supplied)
//  7. epoch_monotonic (only when an epoch is active)
//  8. NCC discouraged list — recommendation only, never fails
func ValidateAction(actionID string, sp *space.Space, ctx Context) Result {
	res := Result{ActionID: actionID}

	action := sp.Action(actionID)
	if action == nil {
		res.Checks = append(res.Checks, Check{
			Name:   "action_exists",
			OK:     false,
			Reason: fmt.Sprintf("action %q not found in action space", actionID),
		})
		return res
	}
	res.Checks = append(res.Checks, Check{Name: "action_exists", OK: true})

	statusCheck := checkStatus(action)
	res.Checks = append(res.Checks, statusCheck)
	if !statusCheck.OK {
		res.Violations = append(res.Violations,
			newViolation(action, violations.ForbiddenAction, violations.SeverityHigh, ctx))
	}

	mrccChecks, mrccViolations := checkMRCC(action, sp.MRCC, ctx)
	res.Checks = append(res.Checks, mrccChecks...)
	res.Violations = append(res.Violations, mrccViolations...)

	if ctx.RateCounts != nil {
		rateCheck, rateViolation := checkRateLimits(action, sp.MRCC, ctx.RateCounts)
		res.Checks = append(res.Checks, rateCheck)
		if rateViolation != nil {
			res.Violations = append(res.Violations, *rateViolation)
		}
	}

	if sp.CurrentEpoch != nil {
		epochCheck := checkEpoch(action, sp.CurrentEpoch)
		res.Checks = append(res.Checks, epochCheck)
		if !epochCheck.OK {
			res.Violations = append(res.Violations,
				newViolation(action, violations.EpochViolation, violations.SeverityCritical, ctx))
		}
	}

	if sp.NCC.DiscouragesAction(actionID) {
		res.Recommendations = append(res.Recommendations,
			fmt.Sprintf("action %q is discouraged by NCC; consider alternatives", actionID))
	}

	res.Valid = true
	for _, c := range res.Checks {
		if !c.OK {
			res.Valid = false
			break
		}
	}
	return res
}

// ValidateActions validates each id independently; no state is shared
// between calls.
func ValidateActions(actionIDs []string, sp *space.Space, ctx Context) []Result {
	results := make([]Result, 0, len(actionIDs))
	for _, id := range actionIDs {
		results = append(results, ValidateAction(id, sp, ctx))
	}
	return results
}

// AllowedActions returns the actions that are not forbidden and whose
// CAES code lies within the MRCC maxima (unset maxima default to the
// top level).
func AllowedActions(sp *space.Space) []space.ActionDefinition {
	maxC := sp.MRCC.MaxClassification
	if maxC == "" {
		maxC = "C5"
	}
	maxS := sp.MRCC.MaxScope
	if maxS == "" {
		maxS = "S5"
	}
	maxE := sp.MRCC.MaxEffect
	if maxE == "" {
		maxE = "E5"
	}

	var allowed []space.ActionDefinition
	for _, action := range sp.Actions {
		if action.Status.Forbidden() {
			continue
		}
		code, ok := caes.Parse(action.CAES)
		if !ok {
			continue
		}
		if caes.WithinLimits(code, maxC, maxS, maxE) {
			allowed = append(allowed, action)
		}
	}
	return allowed
}

func checkStatus(action *space.ActionDefinition) Check {
	switch action.Status {
	case space.StatusForbidden:
		return Check{
			Name:   "action_status",
			OK:     false,
			Reason: fmt.Sprintf("action %q is FORBIDDEN", action.ID),
		}
	case space.StatusForbiddenWithoutOverride:
		return Check{
			Name:   "action_status",
			OK:     false,
			Reason: fmt.Sprintf("action %q requires explicit override", action.ID),
		}
	case space.StatusRestricted:
		return Check{
			Name:   "action_status",
			OK:     true,
			Reason: fmt.Sprintf("action %q is RESTRICTED (approval required)", action.ID),
		}
	default:
		return Check{Name: "action_status", OK: true}
	}
}

func checkMRCC(action *space.ActionDefinition, mrcc space.ConstraintSet, ctx Context) ([]Check, []violations.Violation) {
	var checks []Check
	var found []violations.Violation

	code, ok := caes.Parse(action.CAES)
	if !ok {
		checks = append(checks, Check{
			Name:   "caes_parse",
			OK:     false,
			Reason: fmt.Sprintf("invalid CAES code: %s", action.CAES),
		})
		return checks, found
	}
	checks = append(checks, Check{Name: "caes_parse", OK: true})

	if mrcc.MaxClassification != "" {
		ok := caes.Level(code.Classification) <= caes.Level(mrcc.MaxClassification)
		c := Check{Name: "mrcc_classification", OK: ok}
		if !ok {
			c.Reason = fmt.Sprintf("%s exceeds max %s", code.Classification, mrcc.MaxClassification)
			found = append(found, newViolation(action, violations.MRCCExceeded, violations.SeverityHigh, ctx))
		}
		checks = append(checks, c)
	}

	if mrcc.MaxScope != "" {
		ok := caes.Level(code.Scope) <= caes.Level(mrcc.MaxScope)
		c := Check{Name: "mrcc_scope", OK: ok}
		if !ok {
			c.Reason = fmt.Sprintf("%s exceeds max %s", code.Scope, mrcc.MaxScope)
			found = append(found, newViolation(action, violations.ScopeExceeded, violations.SeverityHigh, ctx))
		}
		checks = append(checks, c)
	}

	// Effect excess fails the check but emits no violation record.
	if mrcc.MaxEffect != "" {
		ok := caes.Level(code.Effect) <= caes.Level(mrcc.MaxEffect)
		c := Check{Name: "mrcc_effect", OK: ok}
		if !ok {
			c.Reason = fmt.Sprintf("%s exceeds max %s", code.Effect, mrcc.MaxEffect)
		}
		checks = append(checks, c)
	}

	if mrcc.ForbidsAction(action.ID) {
		checks = append(checks, Check{
			Name:   "mrcc_forbidden",
			OK:     false,
			Reason: fmt.Sprintf("action %q is in MRCC forbidden list", action.ID),
		})
		found = append(found, newViolation(action, violations.ForbiddenAction, violations.SeverityCritical, ctx))
	} else {
		checks = append(checks, Check{Name: "mrcc_forbidden", OK: true})
	}

	return checks, found
}

// checkRateLimits checks the per-classification-per-hour key and the
// total_per_minute key against caller-supplied counts. Violations carry
// the synthetic actor "rate_checker".
func checkRateLimits(action *space.ActionDefinition, mrcc space.ConstraintSet, counts map[string]int) (Check, *violations.Violation) {
	pass := Check{Name: "rate_limit", OK: true}
	if len(mrcc.RateLimits) == 0 {
		return pass, nil
	}

	code, ok := caes.Parse(action.CAES)
	if !ok {
		return pass, nil
	}

	classKey := code.Classification + "_per_hour"
	if limit := mrcc.RateLimits[classKey]; limit > 0 {
		if current := counts[classKey]; current >= limit {
			v := rateViolation(action)
			return Check{
				Name:   "rate_limit",
				OK:     false,
				Reason: fmt.Sprintf("rate limit exceeded: %d/%d for %s", current, limit, classKey),
			}, &v
		}
	}

	if limit := mrcc.RateLimits["total_per_minute"]; limit > 0 {
		if current := counts["total_per_minute"]; current >= limit {
			v := rateViolation(action)
			return Check{
				Name:   "rate_limit",
				OK:     false,
				Reason: fmt.Sprintf("total rate limit exceeded: %d/%d", current, limit),
			}, &v
		}
	}

	return pass, nil
}

func checkEpoch(action *space.ActionDefinition, epoch *space.Epoch) Check {
	if _, ok := caes.Parse(action.CAES); !ok {
		return Check{Name: "epoch_monotonic", OK: true}
	}

	if epoch.HasProperty("autonomy_level_cannot_increase") && action.ID == "expand_autonomy" {
		return Check{
			Name:   "epoch_monotonic",
			OK:     false,
			Reason: "monotonic property violation: autonomy_level_cannot_increase",
		}
	}

	if epoch.HasProperty("forbidden_stays_forbidden") && action.Status == space.StatusForbidden {
		return Check{
			Name:   "epoch_monotonic",
			OK:     false,
			Reason: "monotonic property violation: forbidden_stays_forbidden",
		}
	}

	return Check{Name: "epoch_monotonic", OK: true}
}

func newViolation(action *space.ActionDefinition, t violations.Type, sev violations.Severity, ctx Context) violations.Violation {
	return violations.Violation{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		ActionID:  action.ID,
		CAES:      action.CAES,
		Type:      t,
		Severity:  sev,
		Context: violations.Context{
			Actor:   ctx.Actor,
			EpochID: ctx.EpochID,
		},
	}
}

func rateViolation(action *space.ActionDefinition) violations.Violation {
	return violations.Violation{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		ActionID:  action.ID,
		CAES:      action.CAES,
		Type:      violations.RateLimit,
		Severity:  violations.SeverityMedium,
		Context:   violations.Context{Actor: "rate_checker"},
	}
}
