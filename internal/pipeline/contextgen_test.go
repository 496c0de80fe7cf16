package pipeline

import (
	"context"
	"strings"
	"testing"

	"github.com/joseph-ayodele/pagemeta/constants"
	"github.com/joseph-ayodele/pagemeta/internal/artifact"
	"github.com/joseph-ayodele/pagemeta/internal/metadata"
	"github.com/joseph-ayodele/pagemeta/internal/modelsvc"
	"github.com/joseph-ayodele/pagemeta/internal/window"
)

func seedExtractedPage(t *testing.T, store *artifact.Store, page int, text string) {
	t.Helper()
	if err := store.EnsurePageDirs(page); err != nil {
		t.Fatal(err)
	}
	if err := store.WritePageImage(page, []byte("img")); err != nil {
		t.Fatal(err)
	}
	m := metadata.Structural{
		PageNumber: page,
		PageImage:  "page_image.png",
		Tables:     []string{},
		Figures:    []string{},
		TextBlocks: []string{},
	}
	if text != "" {
		if err := store.WriteText(page, text); err != nil {
			t.Fatal(err)
		}
		m.TextBlocks = append(m.TextBlocks, "text.txt")
	}
	if err := store.WriteStructural(page, m); err != nil {
		t.Fatal(err)
	}
}

func newContextStage(store *artifact.Store, model *fakeModel, pages int) *ContextStage {
	return &ContextStage{
		Store:        store,
		Windows:      window.NewBuilder(store),
		Client:       model,
		PageCount:    fixedPageCount(pages),
		DocumentPath: "/docs/manual.pdf",
		Model:        "openai/gpt-4o",
		SkipIfExists: true,
		Log:          quietLogger(),
	}
}

func TestContextStageGeneratesRecords(t *testing.T) {
	store := newTestStore(t)
	seedExtractedPage(t, store, 1, "Hydraulic system overview")
	seedExtractedPage(t, store, 2, "Maintenance schedule")
	model := newFakeModel()

	res := newContextStage(store, model, 2).Run(context.Background())

	if res.Status != constants.StatusSuccess {
		t.Fatalf("status = %s, want success (error=%q)", res.Status, res.Error)
	}
	if res.Processed != 2 || res.Skipped != 0 {
		t.Fatalf("processed=%d skipped=%d, want 2/0", res.Processed, res.Skipped)
	}

	meta, found, err := store.ReadContext(1)
	if err != nil || !found {
		t.Fatalf("context page 1: found=%t err=%v", found, err)
	}
	if meta.Title != "Hydraulic specifications" {
		t.Errorf("title = %q", meta.Title)
	}
	if len(meta.ContentElements) != 2 {
		t.Errorf("content elements = %d, want 2", len(meta.ContentElements))
	}

	// Flags belong to the enhance stage; a fresh record must not carry them.
	raw, found, err := store.ReadContextRaw(1)
	if err != nil || !found {
		t.Fatal("raw context missing")
	}
	if strings.Contains(raw, "has_tables") {
		t.Error("fresh context record carries structural flags")
	}
}

func TestContextStageSkipsExistingRecords(t *testing.T) {
	store := newTestStore(t)
	seedExtractedPage(t, store, 1, "")
	seedExtractedPage(t, store, 2, "")
	model := newFakeModel()

	stage := newContextStage(store, model, 2)
	if res := stage.Run(context.Background()); res.Status != constants.StatusSuccess {
		t.Fatalf("first run status = %s (error=%q)", res.Status, res.Error)
	}
	firstCalls := len(model.calls)

	res := stage.Run(context.Background())
	if res.Status != constants.StatusSkipped {
		t.Fatalf("second run status = %s, want skipped", res.Status)
	}
	if res.Processed != 0 || res.Skipped != 2 {
		t.Fatalf("second run processed=%d skipped=%d, want 0/2", res.Processed, res.Skipped)
	}
	if len(model.calls) != firstCalls {
		t.Errorf("model called again on skipped pages: %d -> %d", firstCalls, len(model.calls))
	}
}

func TestContextStagePromptCarriesWindow(t *testing.T) {
	store := newTestStore(t)
	seedExtractedPage(t, store, 1, "Hydraulic system overview")
	seedExtractedPage(t, store, 2, "Maintenance schedule")
	model := newFakeModel()

	newContextStage(store, model, 2).Run(context.Background())

	if len(model.calls) != 2 {
		t.Fatalf("model calls = %d, want 2", len(model.calls))
	}
	first := model.calls[0]
	prompt := first.Messages[0].Parts[0].Text

	if !strings.Contains(prompt, `"page_number": 1`) {
		t.Error("prompt missing current page structural metadata")
	}
	if !strings.Contains(prompt, `"page_number": 2`) {
		t.Error("prompt missing next page structural metadata")
	}
	if !strings.Contains(prompt, "Hydraulic system overview") || !strings.Contains(prompt, "Maintenance schedule") {
		t.Error("prompt missing page text")
	}
	// Page 1 has no predecessor: its slot degrades to an empty object.
	if !strings.Contains(prompt, "Previous page structural metadata:\n{}") {
		t.Error("prompt missing empty previous-page placeholder")
	}

	// Image parts: current page first, then the existing neighbor.
	var images []string
	for _, p := range first.Messages[0].Parts[1:] {
		images = append(images, p.ImageURI)
	}
	if len(images) != 2 {
		t.Fatalf("image parts = %d, want 2", len(images))
	}
	for i, uri := range images {
		if !strings.HasPrefix(uri, "data:image/png;base64,") {
			t.Errorf("image %d = %q", i, uri)
		}
	}

	if first.MaxTokens != defaultContextMaxTokens {
		t.Errorf("max tokens = %d, want %d", first.MaxTokens, defaultContextMaxTokens)
	}
	if first.JSONMode {
		t.Error("context call must not force JSON mode; output is parse-validated")
	}
	if first.CallType != modelsvc.CallContextMetadata {
		t.Errorf("call type = %q", first.CallType)
	}
}

func TestContextStageMalformedResponse(t *testing.T) {
	store := newTestStore(t)
	seedExtractedPage(t, store, 1, "")
	model := newFakeModel()
	model.content[modelsvc.CallContextMetadata] = "Sorry, I cannot help with that."

	res := newContextStage(store, model, 1).Run(context.Background())

	if res.Status != constants.StatusPartial || res.Failed != 1 {
		t.Fatalf("status=%s failed=%d, want partial/1", res.Status, res.Failed)
	}
	if _, found, _ := store.ReadContext(1); found {
		t.Error("malformed response must not be persisted")
	}
	if !strings.Contains(res.Items[0].Reason, "parse") {
		t.Errorf("reason = %q", res.Items[0].Reason)
	}
}

func TestContextStageProseWrappedResponse(t *testing.T) {
	store := newTestStore(t)
	seedExtractedPage(t, store, 1, "")
	model := newFakeModel()
	model.content[modelsvc.CallContextMetadata] = "Here is the metadata you asked for:\n" +
		`{"title": "Wrapped title", "summary": "Wrapped summary."}` + "\nLet me know if you need more."

	res := newContextStage(store, model, 1).Run(context.Background())

	if res.Status != constants.StatusSuccess {
		t.Fatalf("status = %s, want success (error=%q)", res.Status, res.Error)
	}
	meta, found, err := store.ReadContext(1)
	if err != nil || !found {
		t.Fatalf("context record: found=%t err=%v", found, err)
	}
	if meta.Title != "Wrapped title" {
		t.Errorf("title = %q", meta.Title)
	}
}

func TestContextStageNoExtractionOutput(t *testing.T) {
	store := newTestStore(t)
	res := newContextStage(store, newFakeModel(), 2).Run(context.Background())

	if res.Status != constants.StatusError {
		t.Fatalf("status = %s, want error", res.Status)
	}
}
