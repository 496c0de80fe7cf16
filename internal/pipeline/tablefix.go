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
	"github.com/joseph-ayodele/pagemeta/internal/metadata"
	"github.com/joseph-ayodele/pagemeta/internal/modelsvc"
	"github.com/joseph-ayodele/pagemeta/internal/tablehtml"
)

// TableFixStage reconciles every extracted table's HTML against its cropped
// image and overwrites the HTML artifact with the corrected version. It runs
// straight off the extraction output, before any context metadata exists.
type TableFixStage struct {
	Store       *artifact.Store
	Client      modelsvc.Client
	Model       string
	Temperature float32
	MaxTokens   int
	MaxPages    int
	Log         *slog.Logger
}

func (s *TableFixStage) Name() constants.StageName { return constants.StageTableFix }

func (s *TableFixStage) Run(ctx context.Context) StageResult {
	log := stageLog(s.Log)
	res := begin(s.Name())

	pages, err := s.Store.PageNumbers()
	if err != nil {
		return res.abort(err)
	}
	if len(pages) == 0 {
		return res.abort(common.NotFoundErrorf("no extraction output under %s; run the extract stage first", s.Store.Root()))
	}
	pages = capPages(pages, s.MaxPages)

	for _, page := range pages {
		htmls, err := s.Store.ListTableHTML(page)
		if err != nil {
			res.fail(pageID(page), err)
			continue
		}
		for _, path := range htmls {
			id := strings.TrimSuffix(filepath.Base(path), ".html")
			res.Total++
			if err := s.fixTable(ctx, page, id, path); err != nil {
				log.Error("tablefix.failed", "table", id, "error", err)
				res.fail(id, err)
				continue
			}
			log.Info("tablefix.ok", "table", id)
			res.ok(id)
		}
	}
	return res.done()
}

func (s *TableFixStage) fixTable(ctx context.Context, page int, id, htmlPath string) error {
	key, okID := metadata.ParseElementID(id)
	if !okID {
		return common.ValidationError("table artifact %q: malformed identifier", id)
	}

	html, found, err := s.Store.ReadBytes(htmlPath)
	if err != nil {
		return err
	}
	if !found {
		return common.NotFoundErrorf("table html for %s not found", id)
	}
	png, found, err := s.Store.ReadBytes(s.Store.TableImagePath(page, key.Index))
	if err != nil {
		return err
	}
	if !found {
		return common.NotFoundErrorf("table image for %s not found", id)
	}

	resp, err := s.Client.Complete(ctx, modelsvc.Request{
		CallType:    modelsvc.CallImproveTableHTML,
		Model:       s.Model,
		Temperature: s.Temperature,
		MaxTokens:   s.MaxTokens,
		Messages: []modelsvc.Message{
			modelsvc.UserMessage(
				modelsvc.TextPart(renderTableFixPrompt(string(html))),
				modelsvc.ImagePart(modelsvc.DataURI("image/png", png)),
			),
		},
	})
	if err != nil {
		return err
	}

	fixed := modelsvc.StripCodeFences(resp.Content)
	if fixed == "" {
		return common.ParseError("improve table "+id, fmt.Errorf("model returned empty content"))
	}
	// The original artifact survives when the model mangles the markup.
	if err := tablehtml.Validate(fixed); err != nil {
		return common.ParseError("improve table "+id, err)
	}
	return s.Store.WriteTableHTML(page, key.Index, fixed)
}
