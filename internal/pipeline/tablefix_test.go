package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/joseph-ayodele/pagemeta/constants"
	"github.com/joseph-ayodele/pagemeta/internal/artifact"
	"github.com/joseph-ayodele/pagemeta/internal/modelsvc"
)

const rawTableHTML = "<table><tr><td>DN15</td><td>DN20</td></tr></table>"

func seedTable(t *testing.T, store *artifact.Store, page, index int, withImage bool) {
	t.Helper()
	if err := store.EnsurePageDirs(page); err != nil {
		t.Fatal(err)
	}
	if err := store.WriteTableHTML(page, index, rawTableHTML); err != nil {
		t.Fatal(err)
	}
	if withImage {
		if err := store.WriteTableImage(page, index, []byte("table-png")); err != nil {
			t.Fatal(err)
		}
	}
}

func newTableFixStage(store *artifact.Store, model *fakeModel) *TableFixStage {
	return &TableFixStage{
		Store:  store,
		Client: model,
		Model:  "openai/gpt-4o",
		Log:    quietLogger(),
	}
}

func TestTableFixStageOverwritesHTML(t *testing.T) {
	store := newTestStore(t)
	seedTable(t, store, 1, 1, true)
	model := newFakeModel()

	res := newTableFixStage(store, model).Run(context.Background())

	if res.Status != constants.StatusSuccess {
		t.Fatalf("status = %s, want success (error=%q)", res.Status, res.Error)
	}
	if res.Processed != 1 || res.Total != 1 {
		t.Fatalf("processed=%d total=%d, want 1/1", res.Processed, res.Total)
	}

	html, found, err := store.ReadBytes(store.TableHTMLPath(1, 1))
	if err != nil || !found {
		t.Fatalf("read fixed html: found=%t err=%v", found, err)
	}
	want := modelsvc.StripCodeFences(cannedFixedTable)
	if string(html) != want {
		t.Errorf("fixed html = %q, want %q", html, want)
	}

	if len(model.calls) != 1 {
		t.Fatalf("model calls = %d, want 1", len(model.calls))
	}
	req := model.calls[0]
	if req.CallType != modelsvc.CallImproveTableHTML {
		t.Errorf("call type = %q", req.CallType)
	}
	parts := req.Messages[0].Parts
	if len(parts) != 2 {
		t.Fatalf("parts = %d, want prompt + image", len(parts))
	}
	if !strings.Contains(parts[0].Text, rawTableHTML) {
		t.Error("prompt does not carry the original html")
	}
	if !strings.HasPrefix(parts[1].ImageURI, "data:image/png;base64,") {
		t.Errorf("image part = %q", parts[1].ImageURI)
	}
}

func TestTableFixStageMissingImageFails(t *testing.T) {
	store := newTestStore(t)
	seedTable(t, store, 1, 1, false)
	model := newFakeModel()

	res := newTableFixStage(store, model).Run(context.Background())

	if res.Status != constants.StatusPartial {
		t.Fatalf("status = %s, want partial", res.Status)
	}
	if res.Failed != 1 || len(model.calls) != 0 {
		t.Fatalf("failed=%d calls=%d, want 1/0", res.Failed, len(model.calls))
	}
	if res.Items[0].ID != "table-1-1" || !strings.Contains(res.Items[0].Reason, "table image") {
		t.Errorf("item = %+v", res.Items[0])
	}
}

func TestTableFixStageModelFailure(t *testing.T) {
	store := newTestStore(t)
	seedTable(t, store, 1, 1, true)
	model := newFakeModel()
	model.fail[modelsvc.CallImproveTableHTML] = errors.New("rate limited")

	res := newTableFixStage(store, model).Run(context.Background())

	if res.Status != constants.StatusPartial || res.Failed != 1 {
		t.Fatalf("status=%s failed=%d, want partial/1", res.Status, res.Failed)
	}
	// The artifact must be left untouched on failure.
	html, _, err := store.ReadBytes(store.TableHTMLPath(1, 1))
	if err != nil {
		t.Fatal(err)
	}
	if string(html) != rawTableHTML {
		t.Errorf("html overwritten on failure: %q", html)
	}
}

func TestTableFixStageEmptyModelContent(t *testing.T) {
	store := newTestStore(t)
	seedTable(t, store, 1, 1, true)
	model := newFakeModel()
	model.content[modelsvc.CallImproveTableHTML] = "```html\n```"

	res := newTableFixStage(store, model).Run(context.Background())

	if res.Failed != 1 {
		t.Fatalf("failed = %d, want 1", res.Failed)
	}
	html, _, _ := store.ReadBytes(store.TableHTMLPath(1, 1))
	if string(html) != rawTableHTML {
		t.Errorf("html overwritten with empty content: %q", html)
	}
}

func TestTableFixStageRejectsNonTableContent(t *testing.T) {
	store := newTestStore(t)
	seedTable(t, store, 1, 1, true)
	model := newFakeModel()
	model.content[modelsvc.CallImproveTableHTML] = "The image does not contain a readable table."

	res := newTableFixStage(store, model).Run(context.Background())

	if res.Failed != 1 {
		t.Fatalf("failed = %d, want 1", res.Failed)
	}
	if !strings.Contains(res.Items[0].Reason, "<table>") {
		t.Errorf("reason = %q, want table validation failure", res.Items[0].Reason)
	}
	html, _, _ := store.ReadBytes(store.TableHTMLPath(1, 1))
	if string(html) != rawTableHTML {
		t.Errorf("html overwritten with non-table content: %q", html)
	}
}

func TestTableFixStageNoExtractionOutput(t *testing.T) {
	store := newTestStore(t)
	res := newTableFixStage(store, newFakeModel()).Run(context.Background())

	if res.Status != constants.StatusError {
		t.Fatalf("status = %s, want error", res.Status)
	}
	if !strings.Contains(res.Error, "extract stage") {
		t.Errorf("error = %q", res.Error)
	}
}
