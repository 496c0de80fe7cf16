package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/pagemeta/constants"
	"github.com/joseph-ayodele/pagemeta/internal/artifact"
	"github.com/joseph-ayodele/pagemeta/internal/common"
	"github.com/joseph-ayodele/pagemeta/internal/extract"
	"github.com/joseph-ayodele/pagemeta/internal/langdetect"
	"github.com/joseph-ayodele/pagemeta/internal/metadata"
)

// minFigureArea drops icon-sized picture crops (logos, bullets, border art)
// from the figure inventory. Pixels, width times height.
const minFigureArea = 400

// ExtractStage renders each page to a full-page PNG and runs layout analysis
// on it, writing the page's structural metadata plus one HTML+PNG pair per
// table and one PNG per kept figure. Pages are converted one at a time so a
// single bad page cannot sink the rest of the document.
type ExtractStage struct {
	Store        *artifact.Store
	Converter    extract.Converter
	Renderer     extract.Renderer
	PageCount    func(path string) (int, error)
	DocumentPath string
	MaxPages     int
	SkipIfExists bool
	Log          *slog.Logger
}

func (s *ExtractStage) Name() constants.StageName { return constants.StageExtract }

func (s *ExtractStage) Run(ctx context.Context) StageResult {
	log := stageLog(s.Log)
	res := begin(s.Name())

	if s.SkipIfExists {
		if pages, err := s.Store.PageNumbers(); err == nil && len(pages) > 0 {
			log.Info("extract.skip", "stem", s.Store.Stem(), "pages", len(pages))
			return res.skipAll(fmt.Sprintf("extraction output already exists for %s", s.Store.Stem()), len(pages))
		}
	}

	total, err := s.PageCount(s.DocumentPath)
	if err != nil {
		return res.abort(fmt.Errorf("count pages in %s: %w", s.DocumentPath, err))
	}
	pages := capCount(total, s.MaxPages)
	res.Total = pages
	log.Info("extract.start", "document", s.DocumentPath, "pages", pages, "total_pages", total)

	for page := 1; page <= pages; page++ {
		if err := s.extractPage(ctx, page); err != nil {
			log.Error("extract.page_failed", "page", page, "error", err)
			res.fail(pageID(page), err)
			continue
		}
		res.ok(pageID(page))
	}
	return res.done()
}

func (s *ExtractStage) extractPage(ctx context.Context, page int) error {
	doc, err := s.Converter.Convert(ctx, s.DocumentPath, &extract.PageRange{From: page, To: page})
	if err != nil {
		return err
	}
	layout := pickPage(doc, page)
	if layout == nil {
		return common.NotFoundErrorf("page %d missing from conversion result", page)
	}

	if err := s.Store.EnsurePageDirs(page); err != nil {
		return err
	}

	png, err := s.Renderer.RenderPage(ctx, s.DocumentPath, page)
	if err != nil {
		return err
	}
	if err := s.Store.WritePageImage(page, png); err != nil {
		return err
	}

	m := metadata.Structural{
		PageNumber: page,
		PageImage:  filepath.Base(s.Store.PageImagePath(page)),
		Tables:     []string{},
		Figures:    []string{},
		TextBlocks: []string{},
	}

	tableIdx := 0
	for _, t := range layout.Tables {
		tableIdx++
		if err := s.Store.WriteTableHTML(page, tableIdx, t.HTML); err != nil {
			return err
		}
		if err := s.Store.WriteTableImage(page, tableIdx, t.Image); err != nil {
			return err
		}
		m.Tables = append(m.Tables, metadata.TableID(page, tableIdx))
	}

	figIdx := 0
	for _, p := range layout.Pictures {
		if p.Width*p.Height < minFigureArea {
			continue
		}
		figIdx++
		if err := s.Store.WriteImage(page, figIdx, p.Image); err != nil {
			return err
		}
		m.Figures = append(m.Figures, metadata.ImageID(page, figIdx))
	}

	if len(layout.TextBlocks) > 0 {
		text := strings.Join(layout.TextBlocks, "\n\n")
		if err := s.Store.WriteText(page, text); err != nil {
			return err
		}
		m.TextBlocks = append(m.TextBlocks, filepath.Base(s.Store.TextPath(page)))
		if code, _, ok := langdetect.Detect(text); ok {
			m.Language = code
		}
	}

	return s.Store.WriteStructural(page, m)
}

// pickPage finds the requested page in a conversion result. Single-page
// conversions are accepted regardless of the reported number, since some
// backends report positions relative to the requested range.
func pickPage(doc *extract.Document, page int) *extract.Page {
	for i := range doc.Pages {
		if doc.Pages[i].PageNumber == page {
			return &doc.Pages[i]
		}
	}
	if len(doc.Pages) == 1 {
		return &doc.Pages[0]
	}
	return nil
}
