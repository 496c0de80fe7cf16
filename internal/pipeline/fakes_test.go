package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"testing"

	"github.com/joseph-ayodele/pagemeta/internal/artifact"
	"github.com/joseph-ayodele/pagemeta/internal/extract"
	"github.com/joseph-ayodele/pagemeta/internal/modelsvc"
)

// fakeModel serves canned content per call type and records every request.
type fakeModel struct {
	content map[string]string
	fail    map[string]error
	usage   modelsvc.Usage
	calls   []modelsvc.Request
}

func newFakeModel() *fakeModel {
	return &fakeModel{
		content: map[string]string{
			modelsvc.CallImproveTableHTML: cannedFixedTable,
			modelsvc.CallContextMetadata:  cannedContext,
			modelsvc.CallTableMetadata:    cannedTableMetadata,
			modelsvc.CallImageMetadata:    cannedImageMetadata,
		},
		fail:  map[string]error{},
		usage: modelsvc.Usage{PromptTokens: 100, CompletionTokens: 50, TotalTokens: 150},
	}
}

func (f *fakeModel) Complete(_ context.Context, req modelsvc.Request) (modelsvc.Response, error) {
	f.calls = append(f.calls, req)
	if err := f.fail[req.CallType]; err != nil {
		return modelsvc.Response{}, err
	}
	content, ok := f.content[req.CallType]
	if !ok {
		return modelsvc.Response{}, fmt.Errorf("unexpected call type %q", req.CallType)
	}
	return modelsvc.Response{Content: content, Usage: f.usage}, nil
}

func (f *fakeModel) callsOfType(callType string) []modelsvc.Request {
	var out []modelsvc.Request
	for _, c := range f.calls {
		if c.CallType == callType {
			out = append(out, c)
		}
	}
	return out
}

// fakeConverter serves one scripted layout per page.
type fakeConverter struct {
	pages map[int]extract.Page
	fail  map[int]error
	calls []extract.PageRange
}

func (f *fakeConverter) Convert(_ context.Context, _ string, pr *extract.PageRange) (*extract.Document, error) {
	f.calls = append(f.calls, *pr)
	if err := f.fail[pr.From]; err != nil {
		return nil, err
	}
	p, ok := f.pages[pr.From]
	if !ok {
		return &extract.Document{}, nil
	}
	return &extract.Document{Pages: []extract.Page{p}}, nil
}

type fakeRenderer struct {
	fail map[int]error
}

func (f *fakeRenderer) RenderPage(_ context.Context, _ string, page int) ([]byte, error) {
	if err := f.fail[page]; err != nil {
		return nil, err
	}
	return []byte(fmt.Sprintf("png-%d", page)), nil
}

func fixedPageCount(n int) func(string) (int, error) {
	return func(string) (int, error) { return n, nil }
}

func newTestStore(t *testing.T) *artifact.Store {
	t.Helper()
	return artifact.NewStore(t.TempDir(), "/docs/manual.pdf")
}

func quietLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// twoPageLayout is the standard extraction fixture: page 1 carries one table,
// one keeper figure and one icon-sized figure, page 2 is text only.
func twoPageLayout() map[int]extract.Page {
	return map[int]extract.Page{
		1: {
			PageNumber: 1,
			Tables:     []extract.Table{{HTML: "<table><tr><td>DN15</td></tr></table>", Image: []byte("table-png")}},
			Pictures: []extract.Picture{
				{Image: []byte("figure-png"), Width: 100, Height: 80},
				{Image: []byte("icon-png"), Width: 10, Height: 10},
			},
			TextBlocks: []string{"Hydraulic system", "Operating pressure 16 bar"},
		},
		2: {
			PageNumber: 2,
			TextBlocks: []string{"Maintenance schedule"},
		},
	}
}

const cannedFixedTable = "```html\n<table><thead><tr><th>Size</th></tr></thead><tbody><tr><td>DN15</td></tr></tbody></table>\n```"

const cannedContext = "```json\n" + `{
  "title": "Hydraulic specifications",
  "summary": "Operating limits for the hydraulic system.",
  "keywords": ["hydraulic", "pressure"],
  "entities": ["BBV43"],
  "content_elements": [
    {"element_id": "table-1-1", "type": "table", "title": "Pressure limits"},
    {"element_id": "image-1-1", "type": "figure", "title": "Pump overview"}
  ]
}` + "\n```"

const cannedTableMetadata = `{
  "title": "Pressure limits by valve size",
  "summary": "Maximum working pressure per DN size.",
  "keywords": ["pressure", "DN"],
  "entities": ["BBV43"],
  "component_type": "Ball Valve",
  "application_context": ["steam systems"]
}`

const cannedImageMetadata = `{
  "image_type": "diagram",
  "title": "Pump assembly diagram",
  "summary": "Exploded view of the pump assembly.",
  "natural_description": "The diagram shows the pump barrel, piston rod and end cap with numbered callouts.",
  "keywords": ["pump", "assembly"],
  "entities": ["642"],
  "model_applicability": ["642", "943"],
  "application_context": ["maintenance"]
}`
