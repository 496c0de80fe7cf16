package pipeline

import (
	"time"

	"github.com/joseph-ayodele/pagemeta/constants"
	"github.com/joseph-ayodele/pagemeta/internal/modelsvc"
)

// ItemResult is the tagged outcome of one unit of stage work: a page, or a
// table/figure sub-element. A stage never aborts on a failed item; it records
// the reason here and moves on.
type ItemResult struct {
	ID     string `json:"id"`
	OK     bool   `json:"ok"`
	Reason string `json:"reason,omitempty"`
}

// StageResult is the uniform outcome every stage reports.
//
// Status is derived from the counters: any failed item makes the stage
// partial, zero processed items with skips makes it skipped, and error is
// reserved for precondition faults that stop the stage before item work
// (plus panics caught by the orchestrator).
type StageResult struct {
	Stage     constants.StageName   `json:"stage"`
	Status    constants.StageStatus `json:"status"`
	Message   string                `json:"message,omitempty"`
	Error     string                `json:"error,omitempty"`
	Total     int                   `json:"total"`
	Processed int                   `json:"processed"`
	Failed    int                   `json:"failed"`
	Skipped   int                   `json:"skipped"`
	Items     []ItemResult          `json:"items,omitempty"`
	ElapsedMS int64                 `json:"elapsed_ms"`
}

// stageRun accumulates a StageResult while a stage executes.
type stageRun struct {
	StageResult
	start time.Time
}

func begin(stage constants.StageName) *stageRun {
	return &stageRun{StageResult: StageResult{Stage: stage}, start: time.Now()}
}

func (r *stageRun) ok(id string) {
	r.Items = append(r.Items, ItemResult{ID: id, OK: true})
	r.Processed++
}

func (r *stageRun) fail(id string, err error) {
	r.Items = append(r.Items, ItemResult{ID: id, Reason: err.Error()})
	r.Failed++
}

// abort ends the stage with an error status before any item work completes.
func (r *stageRun) abort(err error) StageResult {
	r.Status = constants.StatusError
	r.Error = err.Error()
	r.ElapsedMS = time.Since(r.start).Milliseconds()
	return r.StageResult
}

// skipAll ends the stage without doing anything, counting n bypassed items.
func (r *stageRun) skipAll(message string, n int) StageResult {
	r.Status = constants.StatusSkipped
	r.Message = message
	r.Skipped += n
	r.ElapsedMS = time.Since(r.start).Milliseconds()
	return r.StageResult
}

// done derives the final status from the counters.
func (r *stageRun) done() StageResult {
	switch {
	case r.Failed > 0:
		r.Status = constants.StatusPartial
	case r.Processed == 0 && r.Skipped > 0:
		r.Status = constants.StatusSkipped
	default:
		r.Status = constants.StatusSuccess
	}
	r.ElapsedMS = time.Since(r.start).Milliseconds()
	return r.StageResult
}

// Report is the outcome of one orchestrator run: every executed stage's
// result in execution order, plus the cost ledger snapshot.
type Report struct {
	RunID     string           `json:"run_id"`
	Document  string           `json:"document"`
	Model     string           `json:"model"`
	StartedAt time.Time        `json:"started_at"`
	ElapsedMS int64            `json:"elapsed_ms"`
	Stages    []StageResult    `json:"stages"`
	Cost      modelsvc.Summary `json:"cost"`
}

// Result returns the named stage's result, if that stage ran.
func (r Report) Result(stage constants.StageName) (StageResult, bool) {
	for _, s := range r.Stages {
		if s.Stage == stage {
			return s, true
		}
	}
	return StageResult{}, false
}

// HasErrors reports whether any stage ended with an error status.
func (r Report) HasErrors() bool {
	for _, s := range r.Stages {
		if s.Status == constants.StatusError {
			return true
		}
	}
	return false
}
