// Package report renders the artifact tree of one document into an XLSX
// workbook: a Pages sheet with the per-page inventory and, when run history
// is available, a Runs sheet with recent runs.
package report

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/pagemeta/internal/artifact"
	"github.com/joseph-ayodele/pagemeta/internal/common"
	"github.com/joseph-ayodele/pagemeta/internal/history"
)

// maxRunsPerSheet bounds the Runs sheet; older runs stay in the database.
const maxRunsPerSheet = 50

// RunLister supplies recent run rows for the Runs sheet. *history.Store
// satisfies it; a nil lister omits the sheet.
type RunLister interface {
	ListRunsForStem(stem string, limit int) ([]*history.Run, error)
}

// Service produces XLSX bytes from a document's artifact tree.
type Service struct {
	store  *artifact.Store
	runs   RunLister
	logger *slog.Logger
}

func NewService(store *artifact.Store, runs RunLister, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, runs: runs, logger: logger}
}

// ExportXLSX returns an XLSX workbook (as bytes) describing every extracted
// page of the document, with titles and keywords where the context stages
// have run.
func (s *Service) ExportXLSX(ctx context.Context) ([]byte, error) {
	start := time.Now()

	pages, err := s.store.PageNumbers()
	if err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}
	if len(pages) == 0 {
		return nil, common.NotFoundErrorf("no extraction output under %s; run the extract stage first", s.store.Root())
	}

	f := excelize.NewFile()
	const sheet = "Pages"
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)
	_ = f.DeleteSheet("Sheet1")

	headers := []string{
		"Page",
		"Title",
		"Language",
		"Tables",
		"Figures",
		"Text Blocks",
		"Table Records",
		"Image Records",
		"Keywords",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	for _, page := range pages {
		structural, haveStructural, err := s.store.ReadStructural(page)
		if err != nil {
			return nil, fmt.Errorf("page %d structural: %w", page, err)
		}
		pageCtx, haveContext, err := s.store.ReadContext(page)
		if err != nil {
			return nil, fmt.Errorf("page %d context: %w", page, err)
		}

		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}

		write(1, page)
		if haveContext {
			write(2, truncate(pageCtx.Title, 80))
		}
		if haveStructural {
			write(3, structural.Language)
			write(4, len(structural.Tables))
			write(5, len(structural.Figures))
			write(6, len(structural.TextBlocks))
		}
		if haveContext {
			write(7, len(pageCtx.TableMetadata))
			write(8, len(pageCtx.ImageMetadata))
			write(9, truncate(strings.Join(pageCtx.Keywords, ", "), 140))
		}

		row++
	}

	// Widen a few columns
	_ = f.SetColWidth(sheet, "A", "A", 8)  // page
	_ = f.SetColWidth(sheet, "B", "B", 40) // title
	_ = f.SetColWidth(sheet, "C", "H", 12) // language + counts
	_ = f.SetColWidth(sheet, "I", "I", 60) // keywords

	runRows := s.writeRunsSheet(f)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("report.xlsx.ok",
		"document", s.store.Stem(),
		"pages", len(pages),
		"runs", runRows,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

// writeRunsSheet appends the Runs sheet and returns the number of run rows
// written. History problems degrade to an absent sheet, never a failed
// report.
func (s *Service) writeRunsSheet(f *excelize.File) int {
	if s.runs == nil {
		return 0
	}
	runs, err := s.runs.ListRunsForStem(s.store.Stem(), maxRunsPerSheet)
	if err != nil {
		s.logger.Warn("report.runs.unavailable", "error", err)
		return 0
	}
	if len(runs) == 0 {
		return 0
	}

	const sheet = "Runs"
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			s.logger.Warn("report.runs.unavailable", "error", err)
			return 0
		}
	}

	headers := []string{
		"Run ID",
		"Started",
		"Finished",
		"Model",
		"Stages",
		"Calls",
		"Tokens",
		"Cost (USD)",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	for _, r := range runs {
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}

		write(1, r.ID)
		write(2, r.StartedAt)
		write(3, r.FinishedAt)
		write(4, r.Model)
		write(5, r.StageSummary())
		write(6, r.CallCount)
		write(7, r.TotalTokens)
		write(8, fmt.Sprintf("%.4f", r.TotalCost))

		row++
	}

	_ = f.SetColWidth(sheet, "A", "A", 38) // run id
	_ = f.SetColWidth(sheet, "B", "C", 22) // timestamps
	_ = f.SetColWidth(sheet, "D", "D", 24) // model
	_ = f.SetColWidth(sheet, "E", "E", 60) // stage summary
	_ = f.SetColWidth(sheet, "F", "H", 12) // totals

	return len(runs)
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	if n <= 1 {
		return s[:n]
	}
	return s[:n-1] + "…"
}
