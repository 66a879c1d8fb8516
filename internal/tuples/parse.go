package tuples

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Parse decodes a canonical wire string back into a Tuple. It is the
// inverse of Serialize for valid tuples, with one caveat: map values
// that serialize identically to a boolean or number literal (the strings
// "true", "false", or a bare decimal) decode to that scalar kind.
func Parse(wire string) (Tuple, error) {
	parts, err := splitUnescaped(wire, '|')
	if err != nil {
		return Tuple{}, err
	}
	if len(parts) != 3 {
		return Tuple{}, fmt.Errorf("tuples: expected 3 components, got %d", len(parts))
	}

	t := Tuple{
		Principal:  unescape(parts[0]),
		Capability: unescape(parts[1]),
	}

	scope := parts[2]
	switch {
	case strings.HasPrefix(scope, "scope="):
		t.Scope = StringScope(unescape(scope[len("scope="):]))

	case strings.HasPrefix(scope, "scope{") && strings.HasSuffix(scope, "}"):
		m, err := parseScopeMap(scope[len("scope{") : len(scope)-1])
		if err != nil {
			return Tuple{}, err
		}
		t.Scope = MapScope(m)

	default:
		return Tuple{}, errors.New("tuples: malformed scope component")
	}

	if res := Validate(t); !res.OK {
		return Tuple{}, fmt.Errorf("tuples: parsed tuple invalid: %s", res.Code)
	}
	return t, nil
}

func parseScopeMap(body string) (map[string]Value, error) {
	entries, err := splitUnescaped(body, ';')
	if err != nil {
		return nil, err
	}

	m := make(map[string]Value, len(entries))
	for _, entry := range entries {
		kv, err := splitUnescaped(entry, '=')
		if err != nil {
			return nil, err
		}
		if len(kv) != 2 {
			return nil, fmt.Errorf("tuples: malformed scope entry %q", entry)
		}
		key := unescape(kv[0])
		if _, dup := m[key]; dup {
			return nil, fmt.Errorf("tuples: duplicate scope key %q", key)
		}
		m[key] = parseScalar(kv[1])
	}
	return m, nil
}

// parseScalar infers the scalar kind from the raw (still escaped) token.
// Escaped tokens are always strings; bare tokens try bool, then number.
func parseScalar(raw string) Value {
	if !strings.ContainsRune(raw, '\\') {
		switch raw {
		case "true":
			return Bool(true)
		case "false":
			return Bool(false)
		}
		if n, err := strconv.ParseFloat(raw, 64); err == nil {
			return Number(n)
		}
	}
	return String(unescape(raw))
}

// splitUnescaped splits s on sep, honoring backslash escapes. A trailing
// lone backslash is an error since it escapes nothing.
func splitUnescaped(s string, sep byte) ([]string, error) {
	var parts []string
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\':
			if i+1 >= len(s) {
				return nil, errors.New("tuples: dangling escape character")
			}
			i++
		case sep:
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	return append(parts, s[start:]), nil
}
