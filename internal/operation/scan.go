package operation

import (
	"fmt"
	"strings"
)

// scanMarkers splits the body into literal text and marker segments.
func scanMarkers(body string) ([]segment, error) {
	var segs []segment
	var lit strings.Builder
	flush := func() {
		if lit.Len() > 0 {
			segs = append(segs, segment{text: lit.String()})
			lit.Reset()
		}
	}

	pos := posValue
	for i := 0; i < len(body); {
		c := body[i]
		switch {
		case pos == posValue && c == '#':
			end := skipComment(body, i)
			lit.WriteString(body[i : end+1])
			i = end + 1
		case pos == posValue && strings.HasPrefix(body[i:], `"""`):
			pos = posBlockString
			lit.WriteString(`"""`)
			i += 3
		case pos == posValue && c == '"':
			pos = posString
			lit.WriteByte(c)
			i++
		case pos == posBlockString && strings.HasPrefix(body[i:], `\"""`):
			lit.WriteString(`\"""`)
			i += 4
		case pos == posBlockString && strings.HasPrefix(body[i:], `"""`):
			pos = posValue
			lit.WriteString(`"""`)
			i += 3
		case pos == posString && c == '\\' && i+1 < len(body):
			lit.WriteString(body[i : i+2])
			i += 2
		case pos == posString && c == '"':
			pos = posValue
			lit.WriteByte(c)
			i++
		case strings.HasPrefix(body[i:], "{{"):
			end := strings.Index(body[i+2:], "}}")
			if end < 0 {
				return nil, &MalformedTemplateError{Reason: "unterminated {{ marker", Offset: i}
			}
			m, err := parseMarker(body[i+2:i+2+end], pos, i)
			if err != nil {
				return nil, err
			}
			flush()
			segs = append(segs, segment{marker: m})
			i += end + 4
		case pos == posValue && c == '$' && i+1 < len(body) && isNameStart(body[i+1]):
			j := i + 1
			for j < len(body) && isNameChar(body[j]) {
				j++
			}
			flush()
			segs = append(segs, segment{marker: &Marker{Name: body[i+1 : j], Filter: FilterStr, pos: posValue}})
			i = j
		default:
			lit.WriteByte(c)
			i++
		}
	}
	flush()
	return segs, nil
}

func parseMarker(content string, pos position, offset int) (*Marker, error) {
	name, filter, hasFilter := strings.Cut(content, "|")
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, &MalformedTemplateError{Reason: "empty marker name", Offset: offset}
	}
	filter = strings.TrimSpace(filter)
	if !hasFilter || filter == "" {
		filter = FilterStr
	}
	if !knownFilters[filter] {
		return nil, &MalformedTemplateError{Reason: fmt.Sprintf("unknown marker filter %q", filter), Offset: offset}
	}
	return &Marker{Name: name, Filter: filter, pos: pos}, nil
}

func isNameStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isNameChar(c byte) bool {
	return isNameStart(c) || (c >= '0' && c <= '9')
}
