package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/joseph-ayodele/pagemeta/constants"
	"github.com/joseph-ayodele/pagemeta/internal/artifact"
	"github.com/joseph-ayodele/pagemeta/internal/metadata"
)

// EnhanceStage folds each page's structural inventory into its context
// record: presence flags, element counts, and the content summary echo.
// Pages missing either record are skipped, not failed; the stage is local
// and makes no external calls.
type EnhanceStage struct {
	Store        *artifact.Store
	PageCount    func(path string) (int, error)
	DocumentPath string
	MaxPages     int
	Log          *slog.Logger
}

func (s *EnhanceStage) Name() constants.StageName { return constants.StageEnhance }

func (s *EnhanceStage) Run(ctx context.Context) StageResult {
	log := stageLog(s.Log)
	res := begin(s.Name())

	total, err := s.PageCount(s.DocumentPath)
	if err != nil {
		return res.abort(fmt.Errorf("count pages in %s: %w", s.DocumentPath, err))
	}
	pages := capCount(total, s.MaxPages)
	res.Total = pages

	for page := 1; page <= pages; page++ {
		structural, foundStructural, err := s.Store.ReadStructural(page)
		if err != nil {
			res.fail(pageID(page), err)
			continue
		}
		ctxMeta, foundContext, err := s.Store.ReadContext(page)
		if err != nil {
			res.fail(pageID(page), err)
			continue
		}
		if !foundStructural || !foundContext {
			res.Skipped++
			continue
		}

		merged := metadata.EnhanceFlags(ctxMeta, structural)
		if err := s.Store.WriteContext(page, merged); err != nil {
			log.Error("enhance.page_failed", "page", page, "error", err)
			res.fail(pageID(page), err)
			continue
		}
		res.ok(pageID(page))
	}
	return res.done()
}
