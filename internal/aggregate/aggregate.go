// Package aggregate folds per-batch GraphQL responses into run-wide totals.
package aggregate

import (
	"bytes"
	"encoding/json"

	"github.com/tidwall/gjson"
)

// Source is anything carrying top-level "data" and "errors" values.
// *dispatch.Response satisfies it.
type Source interface {
	Data() gjson.Result
	Errors() gjson.Result
	IsObject() bool
}

// MergeStats describes what a single Merge contributed.
type MergeStats struct {
	DataEntries int      // Entries copied from the "data" object.
	Errors      int      // Entries appended from the "errors" array.
	Overwritten []string // Keys already present before this merge.
	Malformed   []string // Human-readable notes about parts that were present but unusable.
}

// Aggregate is the accumulated data mapping and errors sequence of a run.
// It only grows. It is not safe for concurrent use.
type Aggregate struct {
	keys   []string
	data   map[string]json.RawMessage
	errors []json.RawMessage
}

// New returns an empty Aggregate.
func New() *Aggregate {
	return &Aggregate{data: make(map[string]json.RawMessage)}
}

// Merge folds resp into the aggregate. Missing keys contribute nothing; keys of the
// wrong shape are skipped and noted in the returned stats. Merge never fails.
func (a *Aggregate) Merge(resp Source) MergeStats {
	var stats MergeStats
	if resp == nil {
		return stats
	}
	if !resp.IsObject() {
		stats.Malformed = append(stats.Malformed, "response body is not a JSON object")
		return stats
	}

	data := resp.Data()
	switch {
	case !data.Exists(), data.Type == gjson.Null:
	case data.IsObject():
		data.ForEach(func(key, value gjson.Result) bool {
			k := key.String()
			if _, dup := a.data[k]; dup {
				stats.Overwritten = append(stats.Overwritten, k)
			} else {
				a.keys = append(a.keys, k)
			}
			a.data[k] = json.RawMessage(value.Raw)
			stats.DataEntries++
			return true
		})
	default:
		stats.Malformed = append(stats.Malformed, "\"data\" is not an object")
	}

	errs := resp.Errors()
	switch {
	case !errs.Exists(), errs.Type == gjson.Null:
	case errs.IsArray():
		errs.ForEach(func(_, value gjson.Result) bool {
			a.errors = append(a.errors, json.RawMessage(value.Raw))
			stats.Errors++
			return true
		})
	default:
		stats.Malformed = append(stats.Malformed, "\"errors\" is not an array")
	}

	return stats
}

// Len returns the number of data entries.
func (a *Aggregate) Len() int {
	return len(a.keys)
}

// Keys returns data keys in first-seen order.
func (a *Aggregate) Keys() []string {
	out := make([]string, len(a.keys))
	copy(out, a.keys)
	return out
}

// Get returns the raw value stored under key.
func (a *Aggregate) Get(key string) (json.RawMessage, bool) {
	v, ok := a.data[key]
	return v, ok
}

// Errors returns the accumulated errors in arrival order.
func (a *Aggregate) Errors() []json.RawMessage {
	out := make([]json.RawMessage, len(a.errors))
	copy(out, a.errors)
	return out
}

// Data returns the data mapping as an ordered JSON object.
func (a *Aggregate) Data() OrderedData {
	return OrderedData{keys: a.Keys(), values: a.data}
}

// OrderedData marshals to a JSON object whose keys keep first-seen order,
// so alias10 does not sort before alias2 in reports.
type OrderedData struct {
	keys   []string
	values map[string]json.RawMessage
}

// MarshalJSON implements json.Marshaler.
func (d OrderedData) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range d.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(d.values[k])
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
