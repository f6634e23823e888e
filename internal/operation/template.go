// Package operation parses templated GraphQL operations and injects row values
// into their placeholder markers.
//
// Two marker forms are recognised inside the operation body:
//
//	$name            rendered as a quoted GraphQL string
//	{{name|filter}}  rendered according to filter (str, int, float, bool, raw)
//
// A {{name}} marker placed inside a string literal is injected escaped and
// unquoted, so "prefix-{{name}}" stays a single valid string. A $name inside a
// string literal is left alone.
package operation

import (
	"strings"
)

// Filter names accepted after the pipe in a {{name|filter}} marker.
const (
	FilterStr   = "str"
	FilterInt   = "int"
	FilterFloat = "float"
	FilterBool  = "bool"
	FilterRaw   = "raw"
)

var knownFilters = map[string]bool{
	FilterStr:   true,
	FilterInt:   true,
	FilterFloat: true,
	FilterBool:  true,
	FilterRaw:   true,
}

// Root operation keywords a template may start with.
var rootKeywords = []string{"query", "mutation"}

// position tells the injector where a marker sits in the body.
type position int

const (
	posValue       position = iota // Bare argument position.
	posString                      // Inside "...".
	posBlockString                 // Inside """...""".
)

// Marker is a single placeholder occurrence in the operation body.
type Marker struct {
	Name   string
	Filter string
	pos    position
}

type segment struct {
	text   string
	marker *Marker
}

// Template is a parsed operation: its root header and the body with markers located.
type Template struct {
	// RootType is everything before the opening brace, e.g. "mutation" or "query Login".
	RootType string
	// Body is the text inside the outer selection set, dedented and trimmed.
	Body string

	segments []segment
	markers  []string
}

// Markers returns the distinct marker names in first-seen order.
func (t *Template) Markers() []string {
	out := make([]string, len(t.markers))
	copy(out, t.markers)
	return out
}

// Filters returns the filter used by every occurrence of each marker name.
func (t *Template) Filters() map[string][]string {
	out := make(map[string][]string)
	for _, seg := range t.segments {
		if seg.marker != nil {
			out[seg.marker.Name] = append(out[seg.marker.Name], seg.marker.Filter)
		}
	}
	return out
}

// Parse extracts the root operation keyword and the operation body from raw template source.
func Parse(src string) (*Template, error) {
	open := findOpenBrace(src)
	if open < 0 {
		return nil, &MalformedTemplateError{Reason: "no operation body found", Offset: -1}
	}

	header := strings.TrimSpace(stripComments(src[:open]))
	if !hasRootKeyword(header) {
		return nil, &MalformedTemplateError{Reason: "missing root operation keyword (query or mutation)", Offset: 0}
	}

	closing, err := matchBrace(src, open)
	if err != nil {
		return nil, err
	}

	if rest := strings.TrimSpace(stripComments(src[closing+1:])); rest != "" {
		return nil, &MalformedTemplateError{Reason: "unexpected text after operation body", Offset: closing + 1}
	}

	body := dedent(src[open+1 : closing])
	if strings.TrimSpace(body) == "" {
		return nil, &MalformedTemplateError{Reason: "empty operation body", Offset: open}
	}

	segments, err := scanMarkers(body)
	if err != nil {
		return nil, err
	}

	t := &Template{
		RootType: header,
		Body:     body,
		segments: segments,
	}
	seen := make(map[string]bool)
	for _, seg := range segments {
		if seg.marker != nil && !seen[seg.marker.Name] {
			seen[seg.marker.Name] = true
			t.markers = append(t.markers, seg.marker.Name)
		}
	}
	return t, nil
}

func hasRootKeyword(header string) bool {
	for _, kw := range rootKeywords {
		if !strings.HasPrefix(header, kw) {
			continue
		}
		rest := header[len(kw):]
		if rest == "" || rest[0] == ' ' || rest[0] == '\t' || rest[0] == '\n' || rest[0] == '\r' || rest[0] == '(' {
			return true
		}
	}
	return false
}

// findOpenBrace returns the index of the first '{' that is not inside a comment.
func findOpenBrace(src string) int {
	for i := 0; i < len(src); i++ {
		switch src[i] {
		case '#':
			i = skipComment(src, i)
		case '{':
			return i
		}
	}
	return -1
}

// matchBrace returns the index of the '}' closing the brace at open.
// Braces inside strings, block strings and comments are ignored.
func matchBrace(src string, open int) (int, error) {
	depth := 0
	for i := open; i < len(src); i++ {
		switch src[i] {
		case '#':
			i = skipComment(src, i)
		case '"':
			end, err := skipString(src, i)
			if err != nil {
				return -1, err
			}
			i = end
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i, nil
			}
		}
	}
	return -1, &MalformedTemplateError{Reason: "unbalanced braces in operation body", Offset: open}
}

// skipComment returns the index of the last byte of the comment starting at i.
func skipComment(src string, i int) int {
	if nl := strings.IndexByte(src[i:], '\n'); nl >= 0 {
		return i + nl
	}
	return len(src) - 1
}

// skipString returns the index of the closing quote of the string starting at i.
func skipString(src string, i int) (int, error) {
	if strings.HasPrefix(src[i:], `"""`) {
		for j := i + 3; j < len(src); j++ {
			if src[j] == '\\' && strings.HasPrefix(src[j+1:], `"""`) {
				j += 3
				continue
			}
			if strings.HasPrefix(src[j:], `"""`) {
				return j + 2, nil
			}
		}
		return -1, &MalformedTemplateError{Reason: "unterminated block string", Offset: i}
	}
	for j := i + 1; j < len(src); j++ {
		switch src[j] {
		case '\\':
			j++
		case '"':
			return j, nil
		case '\n':
			return -1, &MalformedTemplateError{Reason: "unterminated string", Offset: i}
		}
	}
	return -1, &MalformedTemplateError{Reason: "unterminated string", Offset: i}
}

func stripComments(s string) string {
	if !strings.Contains(s, "#") {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		if idx := strings.IndexByte(line, '#'); idx >= 0 {
			lines[i] = line[:idx]
		}
	}
	return strings.Join(lines, "\n")
}

// dedent trims blank leading and trailing lines and removes the indentation common to all lines.
func dedent(s string) string {
	lines := strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
	for len(lines) > 0 && strings.TrimSpace(lines[0]) == "" {
		lines = lines[1:]
	}
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}

	prefix := -1
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		n := len(line) - len(strings.TrimLeft(line, " \t"))
		if prefix < 0 || n < prefix {
			prefix = n
		}
	}
	for i, line := range lines {
		if len(line) >= prefix && prefix > 0 {
			lines[i] = line[prefix:]
		}
		lines[i] = strings.TrimRight(lines[i], " \t")
	}
	return strings.Join(lines, "\n")
}
