package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/joseph-ayodele/pagemeta/constants"
	"github.com/joseph-ayodele/pagemeta/internal/artifact"
	"github.com/joseph-ayodele/pagemeta/internal/common"
	"github.com/joseph-ayodele/pagemeta/internal/metadata"
	"github.com/joseph-ayodele/pagemeta/internal/modelsvc"
	"github.com/joseph-ayodele/pagemeta/internal/window"
)

// defaultContextMaxTokens bounds the context generation response when no
// explicit limit is configured. Context records carry per-element summaries
// and need headroom that the provider defaults do not give.
const defaultContextMaxTokens = 10000

// ContextStage generates the per-page context metadata record from a page
// window: the current page's image plus the structural metadata and text of
// the neighboring pages. Pages that already carry a record are skipped when
// skip-if-exists is on.
type ContextStage struct {
	Store        *artifact.Store
	Windows      *window.Builder
	Client       modelsvc.Client
	PageCount    func(path string) (int, error)
	DocumentPath string
	Model        string
	Temperature  float32
	MaxTokens    int
	MaxPages     int
	SkipIfExists bool
	Log          *slog.Logger
}

func (s *ContextStage) Name() constants.StageName { return constants.StageContext }

func (s *ContextStage) Run(ctx context.Context) StageResult {
	log := stageLog(s.Log)
	res := begin(s.Name())

	if !s.Store.Exists() {
		return res.abort(common.NotFoundErrorf("no extraction output under %s; run the extract stage first", s.Store.Root()))
	}
	total, err := s.PageCount(s.DocumentPath)
	if err != nil {
		return res.abort(fmt.Errorf("count pages in %s: %w", s.DocumentPath, err))
	}
	pages := capCount(total, s.MaxPages)
	res.Total = pages

	for page := 1; page <= pages; page++ {
		if s.SkipIfExists && s.Store.HasContext(page) {
			res.Skipped++
			continue
		}
		if err := s.generate(ctx, page); err != nil {
			log.Error("context.page_failed", "page", page, "error", err)
			res.fail(pageID(page), err)
			continue
		}
		log.Info("context.page_ok", "page", page)
		res.ok(pageID(page))
	}
	return res.done()
}

func (s *ContextStage) generate(ctx context.Context, page int) error {
	w, err := s.Windows.Build(page)
	if err != nil {
		return err
	}

	parts := []modelsvc.Part{modelsvc.TextPart(renderContextPrompt(w))}
	for _, uri := range windowImageURIs(w) {
		parts = append(parts, modelsvc.ImagePart(uri))
	}

	maxTokens := s.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultContextMaxTokens
	}
	resp, err := s.Client.Complete(ctx, modelsvc.Request{
		CallType:    modelsvc.CallContextMetadata,
		Model:       s.Model,
		Temperature: s.Temperature,
		MaxTokens:   maxTokens,
		Messages:    []modelsvc.Message{modelsvc.UserMessage(parts...)},
	})
	if err != nil {
		return err
	}

	cleaned := modelsvc.ExtractJSON(resp.Content)
	var meta metadata.Context
	if err := json.Unmarshal([]byte(cleaned), &meta); err != nil {
		return common.ParseError(fmt.Sprintf("context metadata for page %d", page), err)
	}
	return s.Store.WriteContext(page, meta)
}

// windowImageURIs orders the window's page images current first, then
// previous, then next, dropping pages whose image could not be read.
func windowImageURIs(w window.Window) []string {
	var uris []string
	if w.Current.ImageDataURI != "" {
		uris = append(uris, w.Current.ImageDataURI)
	}
	if w.Previous != nil && w.Previous.ImageDataURI != "" {
		uris = append(uris, w.Previous.ImageDataURI)
	}
	if w.Next != nil && w.Next.ImageDataURI != "" {
		uris = append(uris, w.Next.ImageDataURI)
	}
	return uris
}
