package pipeline

import (
	"context"
	"errors"
	"os"
	"reflect"
	"testing"

	"github.com/joseph-ayodele/pagemeta/constants"
	"github.com/joseph-ayodele/pagemeta/internal/artifact"
	"github.com/joseph-ayodele/pagemeta/internal/extract"
)

func newExtractStage(store *artifact.Store, conv *fakeConverter, pages int) *ExtractStage {
	return &ExtractStage{
		Store:        store,
		Converter:    conv,
		Renderer:     &fakeRenderer{},
		PageCount:    fixedPageCount(pages),
		DocumentPath: "/docs/manual.pdf",
		Log:          quietLogger(),
	}
}

func TestExtractStageWritesArtifacts(t *testing.T) {
	store := newTestStore(t)
	conv := &fakeConverter{pages: twoPageLayout()}
	res := newExtractStage(store, conv, 2).Run(context.Background())

	if res.Status != constants.StatusSuccess {
		t.Fatalf("status = %s, want success (error=%q)", res.Status, res.Error)
	}
	if res.Processed != 2 || res.Failed != 0 || res.Total != 2 {
		t.Fatalf("processed=%d failed=%d total=%d, want 2/0/2", res.Processed, res.Failed, res.Total)
	}

	m, found, err := store.ReadStructural(1)
	if err != nil || !found {
		t.Fatalf("structural page 1: found=%t err=%v", found, err)
	}
	if got, want := m.Tables, []string{"table-1-1"}; !reflect.DeepEqual(got, want) {
		t.Errorf("tables = %v, want %v", got, want)
	}
	// Only the 100x80 picture survives the area filter; the 10x10 icon does not.
	if got, want := m.Figures, []string{"image-1-1"}; !reflect.DeepEqual(got, want) {
		t.Errorf("figures = %v, want %v", got, want)
	}
	if m.PageImage != "page_1_full.png" {
		t.Errorf("page image = %q", m.PageImage)
	}
	if got, want := m.TextBlocks, []string{"page_1_text.txt"}; !reflect.DeepEqual(got, want) {
		t.Errorf("text blocks = %v, want %v", got, want)
	}

	text, found, err := store.ReadText(1)
	if err != nil || !found {
		t.Fatalf("text page 1: found=%t err=%v", found, err)
	}
	if text != "Hydraulic system\n\nOperating pressure 16 bar" {
		t.Errorf("text = %q", text)
	}

	if _, err := os.Stat(store.TableHTMLPath(1, 1)); err != nil {
		t.Errorf("table html missing: %v", err)
	}
	if _, err := os.Stat(store.TableImagePath(1, 1)); err != nil {
		t.Errorf("table image missing: %v", err)
	}
	if _, err := os.Stat(store.ImagePath(1, 1)); err != nil {
		t.Errorf("figure image missing: %v", err)
	}
	if _, err := os.Stat(store.ImagePath(1, 2)); !os.IsNotExist(err) {
		t.Errorf("icon-sized figure should not be written, stat err = %v", err)
	}

	// Page 2 has no tables and no figures, only text.
	m2, found, err := store.ReadStructural(2)
	if err != nil || !found {
		t.Fatalf("structural page 2: found=%t err=%v", found, err)
	}
	if len(m2.Tables) != 0 || len(m2.Figures) != 0 {
		t.Errorf("page 2 tables=%v figures=%v, want empty", m2.Tables, m2.Figures)
	}
}

func TestExtractStageConvertsOnePageAtATime(t *testing.T) {
	store := newTestStore(t)
	conv := &fakeConverter{pages: twoPageLayout()}
	newExtractStage(store, conv, 2).Run(context.Background())

	want := []extract.PageRange{{From: 1, To: 1}, {From: 2, To: 2}}
	if !reflect.DeepEqual(conv.calls, want) {
		t.Fatalf("convert calls = %v, want %v", conv.calls, want)
	}
}

func TestExtractStagePageFailureIsolated(t *testing.T) {
	store := newTestStore(t)
	conv := &fakeConverter{
		pages: twoPageLayout(),
		fail:  map[int]error{1: errors.New("conversion backend down")},
	}
	res := newExtractStage(store, conv, 2).Run(context.Background())

	if res.Status != constants.StatusPartial {
		t.Fatalf("status = %s, want partial", res.Status)
	}
	if res.Processed != 1 || res.Failed != 1 {
		t.Fatalf("processed=%d failed=%d, want 1/1", res.Processed, res.Failed)
	}
	if _, found, _ := store.ReadStructural(2); !found {
		t.Error("page 2 should still have been extracted")
	}
	var failedItem ItemResult
	for _, it := range res.Items {
		if !it.OK {
			failedItem = it
		}
	}
	if failedItem.ID != "page_1" || failedItem.Reason == "" {
		t.Errorf("failed item = %+v", failedItem)
	}
}

func TestExtractStageSkipIfExists(t *testing.T) {
	store := newTestStore(t)
	if err := store.EnsurePageDirs(1); err != nil {
		t.Fatal(err)
	}

	conv := &fakeConverter{pages: twoPageLayout()}
	stage := newExtractStage(store, conv, 2)
	stage.SkipIfExists = true
	res := stage.Run(context.Background())

	if res.Status != constants.StatusSkipped {
		t.Fatalf("status = %s, want skipped", res.Status)
	}
	if len(conv.calls) != 0 {
		t.Errorf("converter called %d times on skipped stage", len(conv.calls))
	}
}

func TestExtractStageMaxPagesCap(t *testing.T) {
	store := newTestStore(t)
	conv := &fakeConverter{pages: twoPageLayout()}
	stage := newExtractStage(store, conv, 2)
	stage.MaxPages = 1
	res := stage.Run(context.Background())

	if res.Processed != 1 || res.Total != 1 {
		t.Fatalf("processed=%d total=%d, want 1/1", res.Processed, res.Total)
	}
	if _, found, _ := store.ReadStructural(2); found {
		t.Error("page 2 extracted despite cap")
	}
}

func TestExtractStagePageCountError(t *testing.T) {
	store := newTestStore(t)
	stage := newExtractStage(store, &fakeConverter{}, 0)
	stage.PageCount = func(string) (int, error) { return 0, errors.New("not a pdf") }
	res := stage.Run(context.Background())

	if res.Status != constants.StatusError {
		t.Fatalf("status = %s, want error", res.Status)
	}
	if res.Error == "" {
		t.Error("error message empty")
	}
}
