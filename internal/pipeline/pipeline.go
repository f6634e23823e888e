// Package pipeline drives a run: inject each row, pack aliased instances into
// batches, send every batch and fold the responses into one aggregate.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"Crackgo/internal/aggregate"
	"Crackgo/internal/batch"
	"Crackgo/internal/dispatch"
	"Crackgo/internal/input"
	"Crackgo/internal/logger"
	"Crackgo/internal/match"
	"Crackgo/internal/operation"
)

// Sender delivers one batch document and returns the parsed response.
// *dispatch.Dispatcher is the production implementation.
type Sender interface {
	Send(ctx context.Context, endpoint, document string) (*dispatch.Response, error)
}

// Options configures a Runner.
type Options struct {
	Endpoint    string
	BatchSize   int
	AliasPrefix string
	Delay       time.Duration  // Pause between consecutive batches.
	Matcher     *match.Matcher // Optional predicate flagging interesting results.
}

// Match is a result the matcher flagged, with the row that produced it.
type Match struct {
	Alias  string          `json:"alias"`
	Input  input.Row       `json:"input"`
	Result json.RawMessage `json:"result"`
}

// Result describes a finished or aborted run.
type Result struct {
	Rows           int
	BatchesPlanned int
	BatchesSent    int
	AliasesUsed    int
	Aggregate      *aggregate.Aggregate
	Matches        []Match
	Aborted        bool
}

// Runner owns the run configuration. Per-run state (alias counter, open batch,
// aggregate) lives in Run, so a Runner can be reused.
type Runner struct {
	tmpl   *operation.Template
	sender Sender
	opts   Options
	log    *logger.Logger
}

// NewRunner validates opts and returns a Runner.
func NewRunner(tmpl *operation.Template, sender Sender, log *logger.Logger, opts Options) (*Runner, error) {
	if tmpl == nil {
		return nil, errors.New("pipeline: template is required")
	}
	if sender == nil {
		return nil, errors.New("pipeline: sender is required")
	}
	if opts.BatchSize < 1 {
		return nil, fmt.Errorf("pipeline: batch size must be at least 1, got %d", opts.BatchSize)
	}
	if opts.AliasPrefix == "" {
		return nil, errors.New("pipeline: alias prefix is required")
	}
	return &Runner{tmpl: tmpl, sender: sender, opts: opts, log: log}, nil
}

// PlannedBatches returns ceil(rows / size).
func PlannedBatches(rows, size int) int {
	if rows <= 0 || size <= 0 {
		return 0
	}
	return (rows + size - 1) / size
}

// run is the mutable state of a single Run call.
type run struct {
	*Runner
	nextAlias int
	asm       *batch.Assembler
	pending   map[string]input.Row // Rows of the open batch keyed by alias.
	result    *Result
}

// Run processes rows in order. On a transport or injection failure it stops and returns
// the result so far (Aborted set) together with the error; batches already merged stay in it.
func (r *Runner) Run(ctx context.Context, rows []input.Row) (*Result, error) {
	st := &run{
		Runner:    r,
		nextAlias: 1,
		asm:       batch.NewAssembler(r.opts.AliasPrefix),
		pending:   make(map[string]input.Row),
		result: &Result{
			Rows:           len(rows),
			BatchesPlanned: PlannedBatches(len(rows), r.opts.BatchSize),
			Aggregate:      aggregate.New(),
		},
	}

	r.log.Info("Packing %d row(s) into %d batch(es) of up to %d operation(s).", len(rows), st.result.BatchesPlanned, r.opts.BatchSize)

	for _, row := range rows {
		body, err := r.tmpl.Inject(row)
		if err != nil {
			st.result.Aborted = true
			return st.result, fmt.Errorf("row at line %d: %w", row.Line, err)
		}

		id := st.nextAlias
		st.nextAlias++
		st.asm.Append(id, body)
		st.pending[st.asm.Alias(id)] = row
		st.result.AliasesUsed++

		if st.asm.IsFull(r.opts.BatchSize) {
			if err := st.flush(ctx); err != nil {
				st.result.Aborted = true
				return st.result, err
			}
		}
	}

	if st.asm.Len() > 0 {
		if err := st.flush(ctx); err != nil {
			st.result.Aborted = true
			return st.result, err
		}
	}
	return st.result, nil
}

// flush seals the open batch, sends it and merges the response.
func (st *run) flush(ctx context.Context) error {
	aliases := st.asm.Aliases()
	rows := st.pending
	st.pending = make(map[string]input.Row)
	doc := st.asm.SealAndRender(st.tmpl.RootType)

	n := st.result.BatchesSent + 1
	if n > 1 && st.opts.Delay > 0 {
		st.log.Debug("Waiting %s before batch %d.", st.opts.Delay, n)
		select {
		case <-ctx.Done():
			return fmt.Errorf("batch %d of %d: %w", n, st.result.BatchesPlanned, ctx.Err())
		case <-time.After(st.opts.Delay):
		}
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("batch %d of %d: %w", n, st.result.BatchesPlanned, err)
	}

	st.log.Info("Sending batch %d of %d to %s...", n, st.result.BatchesPlanned, st.opts.Endpoint)
	resp, err := st.sender.Send(ctx, st.opts.Endpoint, doc)
	if err != nil {
		return fmt.Errorf("batch %d of %d: %w", n, st.result.BatchesPlanned, err)
	}
	st.result.BatchesSent++

	stats := st.result.Aggregate.Merge(resp)
	for _, note := range stats.Malformed {
		st.log.Warn("Batch %d: %s; counting it as no contribution.", n, note)
	}
	if len(stats.Overwritten) > 0 {
		st.log.Warn("Batch %d: response reused %d key(s) already seen (e.g. %s); keeping the latest values.", n, len(stats.Overwritten), stats.Overwritten[0])
	}
	if stats.DataEntries < len(aliases) {
		st.log.Debug("Batch %d: %d of %d aliases came back in data.", n, stats.DataEntries, len(aliases))
	}
	st.log.Debug("Batch %d merged: %d data entr(ies), %d error(s).", n, stats.DataEntries, stats.Errors)

	st.matchBatch(aliases, rows)
	return nil
}

// matchBatch runs the matcher over the aliases of the batch just merged.
func (st *run) matchBatch(aliases []string, rows map[string]input.Row) {
	if st.opts.Matcher == nil {
		return
	}
	for _, alias := range aliases {
		value, ok := st.result.Aggregate.Get(alias)
		if !ok {
			continue
		}
		row := rows[alias]
		hit, err := st.opts.Matcher.Eval(alias, value, row.Map())
		if err != nil {
			st.log.Debug("Match expression failed for %s: %v", alias, err)
			continue
		}
		if hit {
			st.log.Success("Match on %s (line %d): %s", alias, row.Line, string(value))
			st.result.Matches = append(st.result.Matches, Match{Alias: alias, Input: row, Result: value})
		}
	}
}
