// Package caes parses, formats, and compares CAES risk codes.
//
// A CAES code classifies one action along four axes: Classification
// (risk), Authority (approval), Effect (reversibility), and Scope (blast
// radius). Each component carries a digit 0-5 and, except for
// classification, an optional uppercase label, e.g. "C2-A1-NOTIFY-E2-CHECKPOINT-S2-DOMAIN".
package caes

import "regexp"

// Code is a parsed CAES code. Components keep their label form, so
// Classification is always "C<d>" while the other three are "X<d>" or
// "X<d>-LABEL".
type Code struct {
	Classification string `json:"classification" yaml:"classification"`
	Authority      string `json:"authority" yaml:"authority"`
	Effect         string `json:"effect" yaml:"effect"`
	Scope          string `json:"scope" yaml:"scope"`
}

var (
	labeledRe = regexp.MustCompile(`^(C[0-5])-(A[0-5](?:-[A-Z]+)?)-(E[0-5](?:-[A-Z]+)?)-(S[0-5](?:-[A-Z]+)?)$`)
	simpleRe  = regexp.MustCompile(`^(C[0-5])-(A[0-5])-(E[0-5])-(S[0-5])$`)
	levelRe   = regexp.MustCompile(`[CAES](\d)`)
)

// Parse parses a CAES string in either the fully labeled form
// "C2-A1-NOTIFY-E2-CHECKPOINT-S2-DOMAIN" or the bare four-field form
// "C2-A1-E2-S2". Bare components expand to the default labels
// SELF (authority), PURE (effect), and SELF (scope).
// Returns ok=false on any other input.
func Parse(s string) (Code, bool) {
	// The bare form is a subset of the labeled grammar, so it must be
	// matched first to get its default labels.
	if m := simpleRe.FindStringSubmatch(s); m != nil {
		return Code{
			Classification: m[1],
			Authority:      m[2] + "-SELF",
			Effect:         m[3] + "-PURE",
			Scope:          m[4] + "-SELF",
		}, true
	}
	if m := labeledRe.FindStringSubmatch(s); m != nil {
		return Code{
			Classification: m[1],
			Authority:      m[2],
			Effect:         m[3],
			Scope:          m[4],
		}, true
	}
	return Code{}, false
}

// Level extracts the numeric level from a CAES component such as "C3" or
// "A2-REVIEW". Returns -1 if the component carries no level digit.
func Level(component string) int {
	m := levelRe.FindStringSubmatch(component)
	if m == nil {
		return -1
	}
	return int(m[1][0] - '0')
}

// Compare orders two codes lexicographically over their
// (classification, authority, effect, scope) levels, classification
// first. Returns a negative, zero, or positive value.
func Compare(a, b Code) int {
	if d := Level(a.Classification) - Level(b.Classification); d != 0 {
		return d
	}
	if d := Level(a.Authority) - Level(b.Authority); d != 0 {
		return d
	}
	if d := Level(a.Effect) - Level(b.Effect); d != 0 {
		return d
	}
	return Level(a.Scope) - Level(b.Scope)
}

// WithinLimits reports whether the code's classification, scope, and
// effect levels are each at or below the corresponding maximum.
func WithinLimits(code Code, maxC, maxS, maxE string) bool {
	return Level(code.Classification) <= Level(maxC) &&
		Level(code.Scope) <= Level(maxS) &&
		Level(code.Effect) <= Level(maxE)
}

// Format renders a code back to its string form. Output re-parses to an
// equal Code; bare input formats fully labeled because Parse expands the
// default labels.
func Format(code Code) string {
	return code.Classification + "-" + code.Authority + "-" + code.Effect + "-" + code.Scope
}

var riskDescriptions = map[string]string{
	"C0": "None - Pure observation",
	"C1": "Low - Reversible changes",
	"C2": "Medium - Significant, reviewable",
	"C3": "High - Enforcement, limited reversal",
	"C4": "Critical - Structural changes",
	"C5": "Restricted - Self-modification",
}

var authorityDescriptions = map[string]string{
	"A0-SELF":      "Self-authorized",
	"A1-NOTIFY":    "Self + notify owner",
	"A2-REVIEW":    "Requires review",
	"A3-APPROVE":   "Requires explicit approval",
	"A4-MULTI":     "Requires multi-party approval",
	"A5-EMERGENCY": "Emergency/security only",
}

// RiskDescription returns the human-readable meaning of a classification
// level such as "C3".
func RiskDescription(level string) string {
	if d, ok := riskDescriptions[level]; ok {
		return d
	}
	return "Unknown classification level"
}

// AuthorityDescription returns the human-readable meaning of an authority
// level such as "A2-REVIEW".
func AuthorityDescription(level string) string {
	if d, ok := authorityDescriptions[level]; ok {
		return d
	}
	return "Unknown authority level"
}
