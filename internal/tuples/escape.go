package tuples

import "strings"

// escapable is the set of characters that carry structure in the wire
// format and must be backslash-escaped inside components.
const escapable = `\|{};=`

// Escape backslash-escapes the characters \ | { } ; = in a tuple
// component.
func Escape(s string) string {
	if !strings.ContainsAny(s, escapable) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + 4)
	for i := 0; i < len(s); i++ {
		if strings.IndexByte(escapable, s[i]) >= 0 {
			b.WriteByte('\\')
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

// unescape reverses Escape: a backslash makes the following byte
// literal. A trailing lone backslash is itself kept literal.
func unescape(s string) string {
	if !strings.ContainsRune(s, '\\') {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			i++
		}
		b.WriteByte(s[i])
	}
	return b.String()
}
