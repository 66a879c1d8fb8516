package tuples

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Serialize renders a tuple to its canonical wire form:
//
//	principal|capability|scope=<value>
//	principal|capability|scope{k1=v1;k2=v2}
//
// Map entries are sorted by key in ascending byte order, keys and string
// values are escaped, booleans render as true/false, and numbers use
// standard decimal formatting with -0 normalized to 0. Serialization is
// deterministic for any valid tuple regardless of map iteration order.
func Serialize(t Tuple) (string, error) {
	principal := Escape(t.Principal)
	capability := Escape(t.Capability)

	var scope string
	switch t.Scope.Kind {
	case ScopeString:
		scope = "scope=" + Escape(t.Scope.Str)

	case ScopeMap:
		keys := make([]string, 0, len(t.Scope.Map))
		for k := range t.Scope.Map {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		pairs := make([]string, 0, len(keys))
		for _, k := range keys {
			v, err := serializeScalar(t.Scope.Map[k])
			if err != nil {
				return "", fmt.Errorf("tuples: scope key %q: %w", k, err)
			}
			pairs = append(pairs, Escape(k)+"="+v)
		}
		scope = "scope{" + strings.Join(pairs, ";") + "}"

	default:
		return "", errors.New("tuples: scope must be a string or flat map")
	}

	return principal + "|" + capability + "|" + scope, nil
}

func serializeScalar(v Value) (string, error) {
	switch v.Kind {
	case KindString:
		return Escape(v.Str), nil
	case KindBool:
		if v.Bool {
			return "true", nil
		}
		return "false", nil
	case KindNumber:
		if math.IsNaN(v.Num) || math.IsInf(v.Num, 0) {
			return "", errors.New("numeric values must be finite")
		}
		n := v.Num
		if n == 0 && math.Signbit(n) {
			n = 0 // collapse -0 to 0
		}
		return strconv.FormatFloat(n, 'g', -1, 64), nil
	default:
		return "", errors.New("unsupported scalar value")
	}
}
