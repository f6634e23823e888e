// Package input reads the CSV rows that feed the template markers.
package input

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"
)

// Row is one CSV record keyed by header name. Column order follows the header.
type Row struct {
	Line    int // 1-based line of the record in the source file.
	columns []string
	values  []string
}

// NewRow builds a Row from parallel header and value slices.
func NewRow(line int, columns, values []string) Row {
	return Row{Line: line, columns: columns, values: values}
}

// Lookup returns the value of the named column.
func (r Row) Lookup(name string) (string, bool) {
	for i, c := range r.columns {
		if c == name {
			return r.values[i], true
		}
	}
	return "", false
}

// Columns returns the header names in file order.
func (r Row) Columns() []string {
	return r.columns
}

// Map returns the row as a plain map.
func (r Row) Map() map[string]string {
	m := make(map[string]string, len(r.columns))
	for i, c := range r.columns {
		m[c] = r.values[i]
	}
	return m
}

// MarshalJSON renders the row as an object with keys in header order.
func (r Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, c := range r.columns {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(c)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(r.values[i])
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// ErrNoRows is returned when a CSV file has a header but no records.
var ErrNoRows = errors.New("input CSV has no data rows")

// ParseDelimiter turns a user supplied delimiter into a rune. "\t" and "tab" mean a tab.
func ParseDelimiter(s string) (rune, error) {
	switch strings.ToLower(s) {
	case "":
		return ',', nil
	case `\t`, "tab":
		return '\t', nil
	}
	if utf8.RuneCountInString(s) != 1 {
		return 0, fmt.Errorf("delimiter must be a single character, got %q", s)
	}
	r, _ := utf8.DecodeRuneInString(s)
	if r == '"' || r == '\r' || r == '\n' || r == utf8.RuneError {
		return 0, fmt.Errorf("invalid delimiter %q", s)
	}
	return r, nil
}

// ReadCSVFile opens path and reads it with ReadCSV.
func ReadCSVFile(path string, delimiter rune) ([]string, []Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()
	return ReadCSV(f, delimiter)
}

// ReadCSV reads a header line followed by records. Leading spaces in fields are trimmed
// and every record must have as many fields as the header.
func ReadCSV(r io.Reader, delimiter rune) ([]string, []Row, error) {
	reader := csv.NewReader(r)
	reader.Comma = delimiter
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = 0

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, fmt.Errorf("input CSV is empty")
	}
	if err != nil {
		return nil, nil, fmt.Errorf("reading CSV header: %w", err)
	}
	header[0] = strings.TrimPrefix(header[0], "\uFEFF")

	seen := make(map[string]bool, len(header))
	for i, h := range header {
		h = strings.TrimSpace(h)
		if h == "" {
			return nil, nil, fmt.Errorf("CSV header column %d is empty", i+1)
		}
		if seen[h] {
			return nil, nil, fmt.Errorf("CSV header column %q is duplicated", h)
		}
		seen[h] = true
		header[i] = h
	}

	var rows []Row
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("reading CSV: %w", err)
		}
		line, _ := reader.FieldPos(0)
		rows = append(rows, NewRow(line, header, record))
	}

	if len(rows) == 0 {
		return header, nil, ErrNoRows
	}
	return header, rows, nil
}
