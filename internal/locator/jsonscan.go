package locator

import "strings"

// scanBalanced returns the span of a balanced JSON value ([ ... ] or
// { ... }) starting at src[start], honoring string literals and escapes.
// Naive regex can't locate these spans because provider payloads nest
// braces arbitrarily deep. Returns the end index (exclusive) and ok.
func scanBalanced(src string, start int) (int, bool) {
	if start >= len(src) {
		return 0, false
	}
	open := src[start]
	var close byte
	switch open {
	case '[':
		close = ']'
	case '{':
		close = '}'
	default:
		return 0, false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(src); i++ {
		c := src[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return i + 1, true
			}
		}
	}
	return 0, false
}

// findArrayLiteral locates a JSON array literal assigned to any of the
// given variable or property names inside a script body, e.g.
// `var locations = [...]` or `"stores": [...]`. Returns the literal text.
func findArrayLiteral(script string, names []string) (string, bool) {
	for _, name := range names {
		for _, pattern := range []string{
			name + " = [",
			name + " =[",
			name + "=[",
			`"` + name + `": [`,
			`"` + name + `":[`,
			`'` + name + `': [`,
		} {
			idx := strings.Index(script, pattern)
			if idx < 0 {
				continue
			}
			start := idx + strings.Index(pattern, "[")
			end, ok := scanBalanced(script, start)
			if !ok {
				continue
			}
			return script[start:end], true
		}
	}
	return "", false
}
