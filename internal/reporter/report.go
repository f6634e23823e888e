package reporter

import (
	"encoding/json"
	"time"

	"Crackgo/internal/aggregate"
	"Crackgo/internal/pipeline"

	"github.com/google/uuid"
)

// Report is the persisted result of a run: a summary plus the merged data and errors.
type Report struct {
	RunSummary RunSummary           `json:"run_summary"`
	Data       aggregate.OrderedData `json:"data"`
	Errors     []json.RawMessage    `json:"errors"`
	Matches    []pipeline.Match     `json:"matches,omitempty"`
}

// RunSummary contains metadata and a summary of the run.
type RunSummary struct {
	RunID          string `json:"run_id"`
	TargetURL      string `json:"target_url"`
	QueryFile      string `json:"query_file"`
	InputFile      string `json:"input_file"`
	RunStartTime   string `json:"run_start_time"`
	RunEndTime     string `json:"run_end_time"`
	TotalDuration  string `json:"total_duration"`
	Rows           int    `json:"rows"`
	BatchSize      int    `json:"batch_size"`
	BatchesPlanned int    `json:"batches_planned"`
	BatchesSent    int    `json:"batches_sent"`
	DataEntries    int    `json:"data_entries"`
	ErrorsReturned int    `json:"errors_returned"`
	TotalMatches   int    `json:"total_matches"`
	Aborted        bool   `json:"aborted"`
	AbortReason    string `json:"abort_reason,omitempty"`
}

// NewReport creates a new report instance with a fresh run id.
// Errors is initialized so it is never null in the JSON output.
func NewReport(target, queryFile, inputFile string, batchSize int, startTime time.Time) *Report {
	return &Report{
		RunSummary: RunSummary{
			RunID:        uuid.NewString(),
			TargetURL:    target,
			QueryFile:    queryFile,
			InputFile:    inputFile,
			RunStartTime: startTime.Format(time.RFC3339),
			BatchSize:    batchSize,
		},
		Data:   aggregate.New().Data(),
		Errors: make([]json.RawMessage, 0),
	}
}

// Finalize completes the report from the pipeline result before saving.
// runErr is the error that stopped the run, if any.
func (r *Report) Finalize(endTime, startTime time.Time, result *pipeline.Result, runErr error) {
	r.RunSummary.RunEndTime = endTime.Format(time.RFC3339)
	r.RunSummary.TotalDuration = endTime.Sub(startTime).Round(time.Millisecond).String()
	if runErr != nil {
		r.RunSummary.Aborted = true
		r.RunSummary.AbortReason = runErr.Error()
	}
	if result == nil {
		return
	}

	r.RunSummary.Rows = result.Rows
	r.RunSummary.BatchesPlanned = result.BatchesPlanned
	r.RunSummary.BatchesSent = result.BatchesSent
	r.RunSummary.Aborted = r.RunSummary.Aborted || result.Aborted
	r.RunSummary.TotalMatches = len(result.Matches)
	r.Matches = result.Matches

	if result.Aggregate != nil {
		r.Data = result.Aggregate.Data()
		r.Errors = result.Aggregate.Errors()
		r.RunSummary.DataEntries = result.Aggregate.Len()
		r.RunSummary.ErrorsReturned = len(r.Errors)
	}
}
