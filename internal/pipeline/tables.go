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
	"github.com/joseph-ayodele/pagemeta/internal/tablehtml"
)

// TablesStage generates semantic metadata for every table on every page whose
// context record declares tables. Each record is derived from the table's
// HTML and cropped image, supplemented locally with row/column statistics,
// and the page's full record list replaces the previous one wholesale.
type TablesStage struct {
	Store       *artifact.Store
	Client      modelsvc.Client
	Model       string
	Temperature float32
	MaxTokens   int
	MaxPages    int
	Log         *slog.Logger
}

func (s *TablesStage) Name() constants.StageName { return constants.StageTables }

func (s *TablesStage) Run(ctx context.Context) StageResult {
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
	schema := metadata.BuildTableMetadataSchema()

	for _, page := range pages {
		ctxMeta, foundContext, err := s.Store.ReadContext(page)
		if err != nil {
			res.fail(pageID(page), err)
			continue
		}
		_, foundStructural, err := s.Store.ReadStructural(page)
		if err != nil {
			res.fail(pageID(page), err)
			continue
		}
		if !foundContext || !foundStructural {
			res.Skipped++
			continue
		}
		if !ctxMeta.HasTables {
			continue
		}

		htmls, err := s.Store.ListTableHTML(page)
		if err != nil {
			res.fail(pageID(page), err)
			continue
		}

		var records []metadata.TableMetadata
		for _, path := range htmls {
			id := strings.TrimSuffix(filepath.Base(path), ".html")
			res.Total++
			rec, err := s.describeTable(ctx, page, id, path, schema)
			if err != nil {
				log.Error("tables.failed", "table", id, "error", err)
				res.fail(id, err)
				continue
			}
			records = append(records, rec)
			log.Info("tables.ok", "table", id)
			res.ok(id)
		}

		if len(records) > 0 {
			updated := metadata.AttachTableMetadata(ctxMeta, records)
			if err := s.Store.WriteContext(page, updated); err != nil {
				res.fail(pageID(page), err)
			}
		}
	}
	return res.done()
}

func (s *TablesStage) describeTable(ctx context.Context, page int, id, htmlPath string, schema map[string]any) (metadata.TableMetadata, error) {
	var rec metadata.TableMetadata

	key, okID := metadata.ParseElementID(id)
	if !okID {
		return rec, common.ValidationError("table artifact %q: malformed identifier", id)
	}
	html, found, err := s.Store.ReadBytes(htmlPath)
	if err != nil {
		return rec, err
	}
	if !found {
		return rec, common.NotFoundErrorf("table html for %s not found", id)
	}
	imagePath := s.Store.TableImagePath(page, key.Index)
	png, found, err := s.Store.ReadBytes(imagePath)
	if err != nil {
		return rec, err
	}
	if !found {
		return rec, common.NotFoundErrorf("table image for %s not found", id)
	}

	resp, err := s.Client.Complete(ctx, modelsvc.Request{
		CallType:    modelsvc.CallTableMetadata,
		Model:       s.Model,
		Temperature: s.Temperature,
		MaxTokens:   s.MaxTokens,
		JSONMode:    true,
		Messages: []modelsvc.Message{
			modelsvc.UserMessage(
				modelsvc.TextPart(tableMetadataPrompt),
				modelsvc.ImagePart(modelsvc.DataURI("image/png", png)),
				modelsvc.TextPart(wrapTableHTML(string(html))),
			),
		},
	})
	if err != nil {
		return rec, err
	}

	cleaned := modelsvc.ExtractJSON(resp.Content)
	if err := metadata.ValidateAgainstSchema(schema, []byte(cleaned)); err != nil {
		return rec, common.ParseError(fmt.Sprintf("table metadata for %s", id), err)
	}
	if err := json.Unmarshal([]byte(cleaned), &rec); err != nil {
		return rec, common.ParseError(fmt.Sprintf("table metadata for %s", id), err)
	}

	rec.TableID = id
	rec.TableFile = filepath.Base(htmlPath)
	rec.TableImage = filepath.Base(imagePath)
	rec.TableHTML = string(html)
	if stats, err := tablehtml.Inspect(string(html)); err == nil {
		rec.RowCount = stats.RowCount
		rec.ColumnCount = stats.ColumnCount
		rec.ColumnHeaders = stats.Headers
	}
	return rec, nil
}
