package operation

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Values supplies the string value for a marker name. A CSV row is the usual implementation.
type Values interface {
	Lookup(name string) (string, bool)
}

// Map is a Values backed by a plain map.
type Map map[string]string

// Lookup implements Values.
func (m Map) Lookup(name string) (string, bool) {
	v, ok := m[name]
	return v, ok
}

var (
	intLiteral   = regexp.MustCompile(`^-?(0|[1-9][0-9]*)$`)
	floatLiteral = regexp.MustCompile(`^-?(0|[1-9][0-9]*)(\.[0-9]+)?([eE][+-]?[0-9]+)?$`)
)

// Inject replaces every marker in the body with the matching value and returns the concrete operation.
func (t *Template) Inject(v Values) (string, error) {
	var b strings.Builder
	b.Grow(len(t.Body))
	for _, seg := range t.segments {
		if seg.marker == nil {
			b.WriteString(seg.text)
			continue
		}
		raw, ok := v.Lookup(seg.marker.Name)
		if !ok {
			return "", &MissingVariableError{Name: seg.marker.Name}
		}
		out, err := seg.marker.render(raw)
		if err != nil {
			return "", err
		}
		b.WriteString(out)
	}
	return b.String(), nil
}

func (m *Marker) render(value string) (string, error) {
	switch m.pos {
	case posString:
		return EscapeString(value), nil
	case posBlockString:
		return strings.ReplaceAll(value, `"""`, `\"""`), nil
	}

	switch m.Filter {
	case FilterRaw:
		return value, nil
	case FilterInt:
		s := strings.TrimSpace(value)
		if !intLiteral.MatchString(s) {
			return "", &InvalidValueError{Name: m.Name, Filter: m.Filter, Value: value}
		}
		return s, nil
	case FilterFloat:
		s := strings.TrimSpace(value)
		if !floatLiteral.MatchString(s) {
			return "", &InvalidValueError{Name: m.Name, Filter: m.Filter, Value: value}
		}
		if f, err := strconv.ParseFloat(s, 64); err != nil || math.IsInf(f, 0) {
			return "", &InvalidValueError{Name: m.Name, Filter: m.Filter, Value: value}
		}
		return s, nil
	case FilterBool:
		b, err := strconv.ParseBool(strings.TrimSpace(value))
		if err != nil {
			return "", &InvalidValueError{Name: m.Name, Filter: m.Filter, Value: value}
		}
		return strconv.FormatBool(b), nil
	default:
		return Quote(value), nil
	}
}

// Quote renders s as a GraphQL string literal.
func Quote(s string) string {
	return `"` + EscapeString(s) + `"`
}

// EscapeString escapes s for use between the quotes of a GraphQL string literal.
func EscapeString(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		case '\b':
			b.WriteString(`\b`)
		case '\f':
			b.WriteString(`\f`)
		default:
			if r < 0x20 || r == 0x7f {
				fmt.Fprintf(&b, `\u%04x`, r)
				continue
			}
			b.WriteRune(r)
		}
	}
	return b.String()
}
