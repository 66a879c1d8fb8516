package tuples

import (
	"math"
	"regexp"
	"sort"
	"strings"
)

// Code identifies a validation outcome. OK means Serialize will succeed;
// every other code names the first failing check.
type Code string

const (
	OK                    Code = "TUPLES_V1_OK"
	PrincipalEmpty        Code = "TUPLES_V1_ERR_PRINCIPAL_EMPTY"
	PrincipalLength       Code = "TUPLES_V1_ERR_PRINCIPAL_LENGTH"
	PrincipalWhitespace   Code = "TUPLES_V1_ERR_PRINCIPAL_WHITESPACE"
	CapabilityEmpty       Code = "TUPLES_V1_ERR_CAPABILITY_EMPTY"
	CapabilityLength      Code = "TUPLES_V1_ERR_CAPABILITY_LENGTH"
	CapabilityFormat      Code = "TUPLES_V1_ERR_CAPABILITY_FORMAT"
	CapabilityWhitespace  Code = "TUPLES_V1_ERR_CAPABILITY_WHITESPACE"
	ScopeMissing          Code = "TUPLES_V1_ERR_SCOPE_MISSING"
	ScopeStringLength     Code = "TUPLES_V1_ERR_SCOPE_STRING_LENGTH"
	ScopeStringWhitespace Code = "TUPLES_V1_ERR_SCOPE_STRING_WHITESPACE"
	ScopeMapEmpty         Code = "TUPLES_V1_ERR_SCOPE_MAP_EMPTY"
	ScopeMapTooLarge      Code = "TUPLES_V1_ERR_SCOPE_MAP_TOO_LARGE"
	ScopeKeyFormat        Code = "TUPLES_V1_ERR_SCOPE_KEY_FORMAT"
	ScopeDupKey           Code = "TUPLES_V1_ERR_SCOPE_DUP_KEY"
	ScopeValueType        Code = "TUPLES_V1_ERR_SCOPE_VALUE_TYPE"
	ScopeValueLength      Code = "TUPLES_V1_ERR_SCOPE_VALUE_LENGTH"
	ScopeNumberNonFinite  Code = "TUPLES_V1_ERR_SCOPE_NUMBER_NONFINITE"
)

// Result is the outcome of Validate. Detail names the offending map key
// when a per-key check fails.
type Result struct {
	OK     bool
	Code   Code
	Detail string
}

var (
	capabilityRe = regexp.MustCompile(`^[a-z0-9][a-z0-9_.:\-{};=|\\]*$`)
	scopeKeyRe   = regexp.MustCompile(`^[a-z0-9][a-z0-9_.:-]{0,63}$`)
)

func trimMismatch(s string) bool {
	return strings.TrimSpace(s) != s
}

// Validate runs the ordered tuple checks and returns the first failure.
// Checks are fail-fast, not exhaustive: a tuple with several defects
// reports only the earliest one in the fixed order.
func Validate(t Tuple) Result {
	if t.Principal == "" {
		return Result{Code: PrincipalEmpty}
	}
	if len(t.Principal) > 256 {
		return Result{Code: PrincipalLength}
	}
	if trimMismatch(t.Principal) {
		return Result{Code: PrincipalWhitespace}
	}

	if t.Capability == "" {
		return Result{Code: CapabilityEmpty}
	}
	if len(t.Capability) > 256 {
		return Result{Code: CapabilityLength}
	}
	if trimMismatch(t.Capability) {
		return Result{Code: CapabilityWhitespace}
	}
	if !capabilityRe.MatchString(t.Capability) {
		return Result{Code: CapabilityFormat}
	}

	switch t.Scope.Kind {
	case ScopeString:
		if len(t.Scope.Str) < 1 || len(t.Scope.Str) > 512 {
			return Result{Code: ScopeStringLength}
		}
		if trimMismatch(t.Scope.Str) {
			return Result{Code: ScopeStringWhitespace}
		}
		return Result{OK: true, Code: OK}

	case ScopeMap:
		return validateScopeMap(t.Scope.Map)

	default:
		return Result{Code: ScopeMissing}
	}
}

func validateScopeMap(m map[string]Value) Result {
	if len(m) == 0 {
		return Result{Code: ScopeMapEmpty}
	}
	if len(m) > 16 {
		return Result{Code: ScopeMapTooLarge}
	}

	// Sorted iteration so the first reported failure is deterministic.
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if !scopeKeyRe.MatchString(key) {
			return Result{Code: ScopeKeyFormat, Detail: key}
		}
		v := m[key]
		switch v.Kind {
		case KindString:
			if len(v.Str) > 256 {
				return Result{Code: ScopeValueLength, Detail: key}
			}
		case KindNumber:
			if math.IsNaN(v.Num) || math.IsInf(v.Num, 0) {
				return Result{Code: ScopeNumberNonFinite, Detail: key}
			}
		case KindBool:
		default:
			return Result{Code: ScopeValueType, Detail: key}
		}
	}

	return Result{OK: true, Code: OK}
}
