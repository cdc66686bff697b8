// File path: internal/guardrail/lexer.go
package guardrail

import "strings"

// scrub returns sql with comment bodies and string literal contents replaced
// by spaces. The output has the same length as the input, so every regex
// match offset on the scrubbed text maps directly back onto the original.
func scrub(sql string) string {
	const (
		stateNormal = iota
		stateSingleQuote
		stateDoubleQuote
		stateLineComment
		stateBlockComment
	)
	out := []byte(sql)
	state := stateNormal
	for i := 0; i < len(out); i++ {
		c := out[i]
		switch state {
		case stateNormal:
			switch {
			case c == '\'':
				state = stateSingleQuote
			case c == '"':
				state = stateDoubleQuote
			case c == '-' && i+1 < len(out) && out[i+1] == '-':
				out[i] = ' '
				state = stateLineComment
			case c == '/' && i+1 < len(out) && out[i+1] == '*':
				out[i] = ' '
				state = stateBlockComment
			}
		case stateSingleQuote:
			if c == '\'' {
				// A doubled quote is an escaped quote inside the literal.
				if i+1 < len(out) && out[i+1] == '\'' {
					out[i] = ' '
					out[i+1] = ' '
					i++
					continue
				}
				state = stateNormal
				continue
			}
			out[i] = ' '
		case stateDoubleQuote:
			if c == '"' {
				state = stateNormal
				continue
			}
			out[i] = ' '
		case stateLineComment:
			if c == '\n' {
				state = stateNormal
				continue
			}
			out[i] = ' '
		case stateBlockComment:
			if c == '*' && i+1 < len(out) && out[i+1] == '/' {
				out[i] = ' '
				out[i+1] = ' '
				i++
				state = stateNormal
				continue
			}
			if c != '\n' {
				out[i] = ' '
			}
		}
	}
	return string(out)
}

type segment struct {
	start, end int
}

// splitStatements splits the scrubbed text on semicolons and returns the
// spans that carry non-whitespace content. A lone trailing semicolon is not a
// second statement.
func splitStatements(scrubbed string) []segment {
	var segments []segment
	start := 0
	flush := func(end int) {
		if strings.TrimSpace(scrubbed[start:end]) != "" {
			segments = append(segments, segment{start: start, end: end})
		}
		start = end + 1
	}
	for i := 0; i < len(scrubbed); i++ {
		if scrubbed[i] == ';' {
			flush(i)
		}
	}
	if start <= len(scrubbed) {
		flush(len(scrubbed))
	}
	return segments
}

// trimBounds returns the bounds of the non-whitespace content of text, for
// slicing the scrubbed and the original text identically.
func trimBounds(text string) (int, int) {
	start := 0
	for start < len(text) && isSpace(text[start]) {
		start++
	}
	end := len(text)
	for end > start && isSpace(text[end-1]) {
		end--
	}
	return start, end
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}
