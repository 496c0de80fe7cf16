// Package pipeline contains the document processing stages and the
// orchestrator that runs them: extraction, table correction, context
// generation, flag enhancement, and per-table/per-figure semantic metadata.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/joseph-ayodele/pagemeta/constants"
)

// Stage is one named pipeline unit. Run never returns a Go error: item
// failures are tallied inside the StageResult and precondition faults come
// back as an error-status result, so one stage can never abort the run.
type Stage interface {
	Name() constants.StageName
	Run(ctx context.Context) StageResult
}

func pageID(page int) string { return fmt.Sprintf("page_%d", page) }

// capCount caps a 1..total page iteration; max 0 means no cap.
func capCount(total, max int) int {
	if max > 0 && max < total {
		return max
	}
	return total
}

// capPages truncates an ascending page list; max 0 means no cap.
func capPages(pages []int, max int) []int {
	if max > 0 && len(pages) > max {
		return pages[:max]
	}
	return pages
}

func stageLog(l *slog.Logger) *slog.Logger {
	if l != nil {
		return l
	}
	return slog.Default()
}
