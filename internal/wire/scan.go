package wire

import "strings"

// keyAt returns the index just past the quoted key at or after from, or -1.
func keyAt(s, key string, from int) int {
	if from < 0 || from >= len(s) {
		return -1
	}
	i := strings.Index(s[from:], `"`+key+`"`)
	if i < 0 {
		return -1
	}
	return from + i + len(key) + 2
}

// plainString reads the first quoted string starting at or after from. Escapes
// are not interpreted; the first following quote closes the value. It returns
// the value and the index of the closing quote.
func plainString(s string, from int) (string, int, bool) {
	open := strings.IndexByte(s[from:], '"')
	if open < 0 {
		return "", -1, false
	}
	start := from + open + 1
	end := strings.IndexByte(s[start:], '"')
	if end < 0 {
		return "", -1, false
	}
	return s[start : start+end], start + end, true
}

// escapedString reads the first quoted string starting at or after from,
// skipping quotes that are escaped by an odd run of backslashes. The raw,
// still-escaped value is returned together with the index of the closing
// quote. An unterminated value runs to the end of s and reports end == len(s).
func escapedString(s string, from int) (string, int, bool) {
	open := strings.IndexByte(s[from:], '"')
	if open < 0 {
		return "", -1, false
	}
	start := from + open + 1
	for i := start; i < len(s); i++ {
		if s[i] != '"' {
			continue
		}
		if !escapedAt(s, i) {
			return s[start:i], i, true
		}
	}
	return s[start:], len(s), true
}

// escapedAt reports whether the byte at i is preceded by an odd number of
// backslashes.
func escapedAt(s string, i int) bool {
	n := 0
	for j := i - 1; j >= 0 && s[j] == '\\'; j-- {
		n++
	}
	return n%2 == 1
}

// balanced returns the span s[open:end] where s[open] is lo and end is one
// past the byte that brings the depth back to zero. Scanning never passes
// limit. ok is false when the span does not close before limit.
func balanced(s string, open, limit int, lo, hi byte) (span string, end int, ok bool) {
	if limit > len(s) {
		limit = len(s)
	}
	depth := 1
	i := open + 1
	for i < limit && depth > 0 {
		switch s[i] {
		case lo:
			depth++
		case hi:
			depth--
		}
		i++
	}
	if depth != 0 {
		return "", i, false
	}
	return s[open:i], i, true
}

// unescape resolves backslash escapes in a single forward pass. Unknown
// sequences are kept verbatim.
func unescape(raw string) string {
	if strings.IndexByte(raw, '\\') < 0 {
		return raw
	}
	var b strings.Builder
	b.Grow(len(raw))
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if c != '\\' || i+1 == len(raw) {
			b.WriteByte(c)
			continue
		}
		switch raw[i+1] {
		case 'n':
			b.WriteByte('\n')
		case '"':
			b.WriteByte('"')
		case '\\':
			b.WriteByte('\\')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case '/':
			b.WriteByte('/')
		default:
			b.WriteByte(c)
			b.WriteByte(raw[i+1])
		}
		i++
	}
	return b.String()
}

// skipSpace returns the index of the first non-whitespace byte at or after i.
func skipSpace(s string, i int) int {
	for i < len(s) {
		switch s[i] {
		case ' ', '\t', '\n', '\r':
			i++
		default:
			return i
		}
	}
	return i
}

// valueStart returns the index of the first byte of the value following a
// key that ends at keyEnd, skipping the colon and surrounding whitespace.
func valueStart(s string, keyEnd int) int {
	i := skipSpace(s, keyEnd)
	if i < len(s) && s[i] == ':' {
		i = skipSpace(s, i+1)
	}
	return i
}
