package tuples

import (
	"math"
	"strings"
	"testing"
)

func validMapTuple() Tuple {
	return Tuple{
		Principal:  "agent-7",
		Capability: "llm.call",
		Scope: MapScope(map[string]Value{
			"model":  String("sonnet"),
			"tokens": Number(4096),
			"stream": Bool(true),
		}),
	}
}

func TestEscape(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"plain", "plain"},
		{`a|b`, `a\|b`},
		{`a\b`, `a\\b`},
		{`{k=v;}`, `\{k\=v\;\}`},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Escape(tt.in); got != tt.want {
			t.Errorf("Escape(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSerializeStringScope(t *testing.T) {
	tup := Tuple{
		Principal:  "owner",
		Capability: "fs.read",
		Scope:      StringScope("/data/reports"),
	}
	wire, err := Serialize(tup)
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	if wire != "owner|fs.read|scope=/data/reports" {
		t.Errorf("wire = %q", wire)
	}
}

func TestSerializeMapScopeCanonical(t *testing.T) {
	wire, err := Serialize(validMapTuple())
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	want := "agent-7|llm.call|scope{model=sonnet;stream=true;tokens=4096}"
	if wire != want {
		t.Errorf("wire = %q, want %q", wire, want)
	}
}

func TestSerializeDeterministic(t *testing.T) {
	// Same entries, different insertion orders: identical wire output.
	a := map[string]Value{}
	b := map[string]Value{}
	entries := []struct {
		k string
		v Value
	}{
		{"zone", String("eu")},
		{"attempts", Number(3)},
		{"dry_run", Bool(false)},
		{"owner", String("root")},
	}
	for _, e := range entries {
		a[e.k] = e.v
	}
	for i := len(entries) - 1; i >= 0; i-- {
		b[entries[i].k] = entries[i].v
	}

	ta := Tuple{Principal: "p", Capability: "cap", Scope: MapScope(a)}
	tb := Tuple{Principal: "p", Capability: "cap", Scope: MapScope(b)}
	for i := 0; i < 50; i++ {
		wa, err := Serialize(ta)
		if err != nil {
			t.Fatal(err)
		}
		wb, err := Serialize(tb)
		if err != nil {
			t.Fatal(err)
		}
		if wa != wb {
			t.Fatalf("serialization diverged: %q vs %q", wa, wb)
		}
	}
}

func TestSerializeNumberForms(t *testing.T) {
	tests := []struct {
		n    float64
		want string
	}{
		{0, "0"},
		{math.Copysign(0, -1), "0"},
		{1, "1"},
		{-2.5, "-2.5"},
		{1e6, "1e+06"},
	}
	for _, tt := range tests {
		tup := Tuple{
			Principal:  "p",
			Capability: "cap",
			Scope:      MapScope(map[string]Value{"n": Number(tt.n)}),
		}
		wire, err := Serialize(tup)
		if err != nil {
			t.Fatalf("Serialize(%v): %v", tt.n, err)
		}
		want := "p|cap|scope{n=" + tt.want + "}"
		if wire != want {
			t.Errorf("Serialize(%v) = %q, want %q", tt.n, wire, want)
		}
	}
}

func TestSerializeRejectsNonFinite(t *testing.T) {
	for _, n := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		tup := Tuple{
			Principal:  "p",
			Capability: "cap",
			Scope:      MapScope(map[string]Value{"n": Number(n)}),
		}
		if _, err := Serialize(tup); err == nil {
			t.Errorf("Serialize with value %v: expected error", n)
		}
	}
}

func TestValidateFirstFailureWins(t *testing.T) {
	tests := []struct {
		name string
		tup  Tuple
		want Code
	}{
		{"principal empty", Tuple{Capability: "cap", Scope: StringScope("s")}, PrincipalEmpty},
		{"principal long", Tuple{Principal: strings.Repeat("p", 257), Capability: "cap", Scope: StringScope("s")}, PrincipalLength},
		{"principal whitespace", Tuple{Principal: " p", Capability: "cap", Scope: StringScope("s")}, PrincipalWhitespace},
		{"capability empty", Tuple{Principal: "p", Scope: StringScope("s")}, CapabilityEmpty},
		{"capability long", Tuple{Principal: "p", Capability: "c" + strings.Repeat("a", 256), Scope: StringScope("s")}, CapabilityLength},
		{"capability whitespace", Tuple{Principal: "p", Capability: "cap ", Scope: StringScope("s")}, CapabilityWhitespace},
		{"capability format", Tuple{Principal: "p", Capability: "Cap!", Scope: StringScope("s")}, CapabilityFormat},
		{"scope missing", Tuple{Principal: "p", Capability: "cap"}, ScopeMissing},
		{"scope string empty", Tuple{Principal: "p", Capability: "cap", Scope: StringScope("")}, ScopeStringLength},
		{"scope string long", Tuple{Principal: "p", Capability: "cap", Scope: StringScope(strings.Repeat("s", 513))}, ScopeStringLength},
		{"scope string whitespace", Tuple{Principal: "p", Capability: "cap", Scope: StringScope("s ")}, ScopeStringWhitespace},
		{"scope map empty", Tuple{Principal: "p", Capability: "cap", Scope: MapScope(map[string]Value{})}, ScopeMapEmpty},
		{"scope key format", Tuple{Principal: "p", Capability: "cap", Scope: MapScope(map[string]Value{"Bad Key": String("v")})}, ScopeKeyFormat},
		{"scope value long", Tuple{Principal: "p", Capability: "cap", Scope: MapScope(map[string]Value{"k": String(strings.Repeat("v", 257))})}, ScopeValueLength},
		{"scope value nonfinite", Tuple{Principal: "p", Capability: "cap", Scope: MapScope(map[string]Value{"k": Number(math.NaN())})}, ScopeNumberNonFinite},
		{"scope value untyped", Tuple{Principal: "p", Capability: "cap", Scope: MapScope(map[string]Value{"k": {}})}, ScopeValueType},
	}
	for _, tt := range tests {
		res := Validate(tt.tup)
		if res.OK || res.Code != tt.want {
			t.Errorf("%s: Validate = %+v, want code %s", tt.name, res, tt.want)
		}
	}
}

func TestValidateMapTooLarge(t *testing.T) {
	m := map[string]Value{}
	for i := 0; i < 17; i++ {
		m["k"+strings.Repeat("x", i)] = Bool(true)
	}
	res := Validate(Tuple{Principal: "p", Capability: "cap", Scope: MapScope(m)})
	if res.Code != ScopeMapTooLarge {
		t.Errorf("Validate = %+v, want %s", res, ScopeMapTooLarge)
	}
}

func TestValidateOKIffSerializeSucceeds(t *testing.T) {
	tuples := []Tuple{
		validMapTuple(),
		{Principal: "p", Capability: "cap", Scope: StringScope("s")},
		{Principal: "p", Capability: "cap"},
		{Principal: "p", Capability: "cap", Scope: MapScope(map[string]Value{"k": Number(math.Inf(1))})},
		{Principal: "p", Capability: "cap", Scope: MapScope(map[string]Value{"k": {}})},
	}
	for i, tup := range tuples {
		res := Validate(tup)
		_, err := Serialize(tup)
		if res.OK != (err == nil) {
			t.Errorf("tuple %d: Validate.OK=%v but Serialize err=%v", i, res.OK, err)
		}
	}
}

func TestParseRoundTrip(t *testing.T) {
	orig := validMapTuple()
	wire, err := Serialize(orig)
	if err != nil {
		t.Fatal(err)
	}
	back, err := Parse(wire)
	if err != nil {
		t.Fatalf("Parse(%q): %v", wire, err)
	}
	if back.Principal != orig.Principal || back.Capability != orig.Capability {
		t.Errorf("principal/capability mismatch: %+v", back)
	}
	if back.Scope.Kind != ScopeMap || len(back.Scope.Map) != len(orig.Scope.Map) {
		t.Fatalf("scope mismatch: %+v", back.Scope)
	}
	for k, v := range orig.Scope.Map {
		if back.Scope.Map[k] != v {
			t.Errorf("scope[%q] = %+v, want %+v", k, back.Scope.Map[k], v)
		}
	}

	rewire, err := Serialize(back)
	if err != nil {
		t.Fatal(err)
	}
	if rewire != wire {
		t.Errorf("re-serialize = %q, want %q", rewire, wire)
	}
}

func TestParseRoundTripEscapedStringScope(t *testing.T) {
	orig := Tuple{
		Principal:  "team|ops",
		Capability: "exec",
		Scope:      StringScope(`cmd={rm};target=\tmp`),
	}
	wire, err := Serialize(orig)
	if err != nil {
		t.Fatal(err)
	}
	back, err := Parse(wire)
	if err != nil {
		t.Fatalf("Parse(%q): %v", wire, err)
	}
	if back.Principal != orig.Principal || back.Capability != orig.Capability ||
		back.Scope.Kind != orig.Scope.Kind || back.Scope.Str != orig.Scope.Str {
		t.Errorf("round trip = %+v, want %+v", back, orig)
	}
}

func TestParseRejectsMalformed(t *testing.T) {
	bad := []string{
		"",
		"p|cap",
		"p|cap|noscope",
		"p|cap|scope{unterminated",
		"p|cap|scope{k=1;k=2}",
		"p|cap|scope{}",
		`p|cap|scope=trailing\`,
		"p|cap|scope=s|extra",
	}
	for _, wire := range bad {
		if _, err := Parse(wire); err == nil {
			t.Errorf("Parse(%q): expected error", wire)
		}
	}
}

func FuzzParse(f *testing.F) {
	f.Add("owner|fs.read|scope=/data/reports")
	f.Add("agent-7|llm.call|scope{model=sonnet;stream=true;tokens=4096}")
	f.Add(`a\|b|cap|scope=x`)
	f.Fuzz(func(t *testing.T, wire string) {
		tup, err := Parse(wire)
		if err != nil {
			return
		}
		// Anything Parse accepts must serialize cleanly.
		if _, err := Serialize(tup); err != nil {
			t.Fatalf("Parse accepted %q but Serialize failed: %v", wire, err)
		}
	})
}
