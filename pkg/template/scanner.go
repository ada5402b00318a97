package template

import (
	"regexp"
	"strings"
)

const (
	openingDelimiter = '{'
	closingDelimiter = '}'
	expressionMarker = ':'
	escapeMarker     = '\\'
	nestingMarker    = "."
	referenceMarker  = "@"
)

// segment is either a literal run of the pattern or a placeholder.
type segment struct {
	literal     string
	placeholder *placeholder
}

type placeholder struct {
	// name as written in the pattern, e.g. "#asset.name".
	name string
	// path is name split on the nesting marker.
	path []string
	// expression is the unescaped regexp source; empty means the default expression.
	expression string
	offset     int

	// set at compile time
	label   string
	matcher *regexp.Regexp
}

func (p *placeholder) isReference() bool {
	return strings.Contains(p.name, referenceMarker)
}

// scan splits a pattern into literal and placeholder segments. Inside an expression a
// backslash escapes the following character; only \{ and \} are unescaped, any other
// pair is kept verbatim for the regexp engine.
func scan(pattern string) ([]segment, error) {
	var (
		segments []segment
		literal  strings.Builder
	)

	flush := func() {
		if literal.Len() > 0 {
			segments = append(segments, segment{literal: literal.String()})
			literal.Reset()
		}
	}

	cursor := 0
	for cursor < len(pattern) {
		switch pattern[cursor] {
		case openingDelimiter:
			flush()
			p, next, err := scanPlaceholder(pattern, cursor)
			if err != nil {
				return nil, err
			}
			segments = append(segments, segment{placeholder: p})
			cursor = next
		case closingDelimiter:
			return nil, malformed(pattern, cursor, "unmatched '}'")
		default:
			literal.WriteByte(pattern[cursor])
			cursor++
		}
	}
	flush()
	return segments, nil
}

// scanPlaceholder reads the placeholder opening at start and returns it together with
// the offset just past its closing delimiter.
func scanPlaceholder(pattern string, start int) (*placeholder, int, error) {
	cursor := start + 1
	nameStart := cursor
	for cursor < len(pattern) {
		c := pattern[cursor]
		if c == expressionMarker || c == closingDelimiter {
			break
		}
		if c == openingDelimiter {
			return nil, 0, malformed(pattern, cursor, "unexpected '{' in placeholder name")
		}
		if !isNameChar(c) {
			return nil, 0, malformed(pattern, cursor, "invalid character "+quoteByte(c)+" in placeholder name")
		}
		cursor++
	}
	if cursor >= len(pattern) {
		return nil, 0, malformed(pattern, start, "unterminated placeholder")
	}

	name := pattern[nameStart:cursor]
	if name == "" {
		return nil, 0, malformed(pattern, start, "empty placeholder name")
	}
	path := strings.Split(name, nestingMarker)
	for _, part := range path {
		if part == "" {
			return nil, 0, malformed(pattern, nameStart, "empty key in placeholder name "+quote(name))
		}
	}

	p := &placeholder{name: name, path: path, offset: start}
	if pattern[cursor] == closingDelimiter {
		return p, cursor + 1, nil
	}

	// expression
	cursor++
	var expression strings.Builder
	for cursor < len(pattern) {
		c := pattern[cursor]
		switch {
		case c == escapeMarker && cursor+1 < len(pattern):
			next := pattern[cursor+1]
			if next != openingDelimiter && next != closingDelimiter {
				expression.WriteByte(c)
			}
			expression.WriteByte(next)
			cursor += 2
		case c == openingDelimiter:
			return nil, 0, malformed(pattern, cursor, "unescaped '{' in expression of "+quote(name))
		case c == closingDelimiter:
			if expression.Len() == 0 {
				return nil, 0, malformed(pattern, cursor, "empty expression for "+quote(name))
			}
			p.expression = expression.String()
			return p, cursor + 1, nil
		default:
			expression.WriteByte(c)
			cursor++
		}
	}
	return nil, 0, malformed(pattern, start, "unterminated placeholder "+quote(name))
}

func isNameChar(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	case c == '_', c == '#', c == '@', c == '.':
		return true
	}
	return false
}

func malformed(pattern string, offset int, reason string) *MalformedPatternError {
	return &MalformedPatternError{Pattern: pattern, Offset: offset, Reason: reason}
}

func quote(s string) string { return "'" + s + "'" }

func quoteByte(c byte) string { return quote(string(c)) }
