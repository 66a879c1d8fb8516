// Package tuples validates and canonically serializes capability tuples.
//
// A tuple is a (principal, capability, scope) authorization assertion.
// Its canonical wire form is the identity downstream components hash and
// sign, so Serialize must be byte-deterministic for any valid tuple.
package tuples

// SpecVersion identifies the tuple wire format implemented here.
const SpecVersion = "v1"

// Tuple is a capability assertion. Immutable once validated; construct
// the scope with StringScope or MapScope.
type Tuple struct {
	Principal  string
	Capability string
	Scope      Scope
}

// ScopeKind discriminates the two scope shapes.
type ScopeKind string

const (
	ScopeUnset  ScopeKind = ""
	ScopeString ScopeKind = "string"
	ScopeMap    ScopeKind = "map"
)

// Scope is either a free-form string or a flat map of scalar values.
type Scope struct {
	Kind ScopeKind
	Str  string
	Map  map[string]Value
}

// StringScope wraps a string scope.
func StringScope(s string) Scope {
	return Scope{Kind: ScopeString, Str: s}
}

// MapScope wraps a map scope.
func MapScope(m map[string]Value) Scope {
	return Scope{Kind: ScopeMap, Map: m}
}

// ValueKind discriminates scope map scalar values.
type ValueKind string

const (
	KindString ValueKind = "string"
	KindNumber ValueKind = "number"
	KindBool   ValueKind = "bool"
)

// Value is a scope map scalar: string, finite number, or bool.
type Value struct {
	Kind ValueKind
	Str  string
	Num  float64
	Bool bool
}

// String wraps a string scalar.
func String(s string) Value { return Value{Kind: KindString, Str: s} }

// Number wraps a numeric scalar.
func Number(f float64) Value { return Value{Kind: KindNumber, Num: f} }

// Bool wraps a boolean scalar.
func Bool(b bool) Value { return Value{Kind: KindBool, Bool: b} }
