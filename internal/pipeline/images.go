package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/pagemeta/constants"
	"github.com/joseph-ayodele/pagemeta/internal/artifact"
	"github.com/joseph-ayodele/pagemeta/internal/common"
	"github.com/joseph-ayodele/pagemeta/internal/metadata"
	"github.com/joseph-ayodele/pagemeta/internal/modelsvc"
)

// ImagesStage generates semantic metadata for every figure on every page
// whose context record declares figures, passing the page text along for
// caption and model-number context. After attaching the record list it also
// correlates the records back onto the figure content elements.
type ImagesStage struct {
	Store       *artifact.Store
	Client      modelsvc.Client
	Model       string
	Temperature float32
	MaxTokens   int
	MaxPages    int
	Log         *slog.Logger
}

func (s *ImagesStage) Name() constants.StageName { return constants.StageImages }

func (s *ImagesStage) Run(ctx context.Context) StageResult {
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
	schema := metadata.BuildImageMetadataSchema()

	for _, page := range pages {
		ctxMeta, found, err := s.Store.ReadContext(page)
		if err != nil {
			res.fail(pageID(page), err)
			continue
		}
		if !found {
			res.Skipped++
			continue
		}
		if !ctxMeta.HasFigures {
			continue
		}

		pageText, _, err := s.Store.ReadText(page)
		if err != nil {
			res.fail(pageID(page), err)
			continue
		}
		paths, err := s.Store.ListImages(page)
		if err != nil {
			res.fail(pageID(page), err)
			continue
		}

		var records []metadata.ImageMetadata
		for _, path := range paths {
			id := strings.TrimSuffix(filepath.Base(path), ".png")
			res.Total++
			rec, err := s.describeImage(ctx, id, path, pageText, schema)
			if err != nil {
				log.Error("images.failed", "image", id, "error", err)
				res.fail(id, err)
				continue
			}
			records = append(records, rec)
			log.Info("images.ok", "image", id)
			res.ok(id)
		}

		if len(records) > 0 {
			updated := metadata.AttachImageMetadata(ctxMeta, records)
			updated = metadata.CorrelateImages(updated, records)
			if err := s.Store.WriteContext(page, updated); err != nil {
				res.fail(pageID(page), err)
			}
		}
	}
	return res.done()
}

func (s *ImagesStage) describeImage(ctx context.Context, id, path, pageText string, schema map[string]any) (metadata.ImageMetadata, error) {
	var rec metadata.ImageMetadata

	uri, err := modelsvc.FileDataURI(path)
	if err != nil {
		return rec, err
	}

	resp, err := s.Client.Complete(ctx, modelsvc.Request{
		CallType:    modelsvc.CallImageMetadata,
		Model:       s.Model,
		Temperature: s.Temperature,
		MaxTokens:   s.MaxTokens,
		JSONMode:    true,
		Messages: []modelsvc.Message{
			modelsvc.UserMessage(
				modelsvc.TextPart(renderImagePrompt(pageText)),
				modelsvc.ImagePart(uri),
			),
		},
	})
	if err != nil {
		return rec, err
	}

	cleaned := modelsvc.ExtractJSON(resp.Content)
	if err := metadata.ValidateAgainstSchema(schema, []byte(cleaned)); err != nil {
		return rec, common.ParseError(fmt.Sprintf("image metadata for %s", id), err)
	}
	if err := json.Unmarshal([]byte(cleaned), &rec); err != nil {
		return rec, common.ParseError(fmt.Sprintf("image metadata for %s", id), err)
	}

	rec.ImageID = id
	rec.ImageFile = filepath.Base(path)
	return rec, nil
}
