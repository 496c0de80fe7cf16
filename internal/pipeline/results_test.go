package pipeline

import (
	"errors"
	"testing"

	"github.com/joseph-ayodele/pagemeta/constants"
)

func TestStageRunStatusDerivation(t *testing.T) {
	tests := []struct {
		name    string
		ok      int
		failed  int
		skipped int
		want    constants.StageStatus
	}{
		{"all processed", 3, 0, 0, constants.StatusSuccess},
		{"some failed", 2, 1, 0, constants.StatusPartial},
		{"all failed", 0, 2, 0, constants.StatusPartial},
		{"all skipped", 0, 0, 4, constants.StatusSkipped},
		{"processed and skipped", 1, 0, 3, constants.StatusSuccess},
		{"nothing in scope", 0, 0, 0, constants.StatusSuccess},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := begin(constants.StageTables)
			for i := 0; i < tt.ok; i++ {
				r.ok("item")
			}
			for i := 0; i < tt.failed; i++ {
				r.fail("item", errors.New("boom"))
			}
			r.Skipped = tt.skipped

			res := r.done()
			if res.Status != tt.want {
				t.Errorf("status = %s, want %s", res.Status, tt.want)
			}
			if res.Processed != tt.ok || res.Failed != tt.failed {
				t.Errorf("counters = %d/%d, want %d/%d", res.Processed, res.Failed, tt.ok, tt.failed)
			}
		})
	}
}

func TestReportLookups(t *testing.T) {
	r := Report{Stages: []StageResult{
		{Stage: constants.StageExtract, Status: constants.StatusSuccess},
		{Stage: constants.StageContext, Status: constants.StatusError, Error: "count pages: boom"},
	}}

	if res, ok := r.Result(constants.StageContext); !ok || res.Error == "" {
		t.Errorf("Result(context) = %+v, %t", res, ok)
	}
	if _, ok := r.Result(constants.StageImages); ok {
		t.Error("Result reported a stage that never ran")
	}
	if !r.HasErrors() {
		t.Error("HasErrors missed the error stage")
	}

	if (Report{}).HasErrors() {
		t.Error("empty report reports errors")
	}
}
