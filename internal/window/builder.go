// Package window assembles the three-page context handed to the semantic
// metadata stage: the current page plus its immediate neighbors.
package window

import (
	"github.com/joseph-ayodele/pagemeta/internal/artifact"
	"github.com/joseph-ayodele/pagemeta/internal/common"
	"github.com/joseph-ayodele/pagemeta/internal/modelsvc"
)

// Snapshot is everything known about one page at prompt time. Structural and
// context metadata are carried as raw JSON so a missing or unreadable file
// degrades to "{}" instead of failing the window.
type Snapshot struct {
	PageNumber   int
	ImagePath    string
	ImageDataURI string
	Structural   string
	Context      string
	Text         string
}

// EmptySnapshot is the placeholder for a page that was never extracted.
func EmptySnapshot(page int) Snapshot {
	return Snapshot{PageNumber: page, Structural: "{}", Context: "{}"}
}

// Window is the current page plus optional neighbors. Previous and Next are
// nil at document boundaries or when the neighbor directory is absent.
type Window struct {
	Previous *Snapshot
	Current  Snapshot
	Next     *Snapshot
}

// Builder reads windows out of an artifact store. It never writes.
type Builder struct {
	store *artifact.Store
}

func NewBuilder(store *artifact.Store) *Builder {
	return &Builder{store: store}
}

// Build assembles the window around page. The current page directory must
// exist; neighbor lookups and all per-page reads degrade silently.
func (b *Builder) Build(page int) (Window, error) {
	if page < 1 {
		return Window{}, common.ValidationError("page index %d: must be >= 1", page)
	}
	if !b.store.PageExists(page) {
		return Window{}, common.NotFoundErrorf("page %d: no page directory under %s", page, b.store.Root())
	}

	w := Window{Current: b.snapshot(page)}
	if page > 1 && b.store.PageExists(page-1) {
		prev := b.snapshot(page - 1)
		w.Previous = &prev
	}
	if b.store.PageExists(page + 1) {
		next := b.snapshot(page + 1)
		w.Next = &next
	}
	return w, nil
}

// snapshot reads whatever artifacts the page has. Each read is independent,
// so one bad file leaves only its own field at the placeholder value.
func (b *Builder) snapshot(page int) Snapshot {
	snap := EmptySnapshot(page)
	snap.ImagePath = b.store.PageImagePath(page)
	if uri, err := modelsvc.FileDataURI(snap.ImagePath); err == nil {
		snap.ImageDataURI = uri
	}
	if raw, found, err := b.store.ReadStructuralRaw(page); err == nil && found {
		snap.Structural = raw
	}
	if raw, found, err := b.store.ReadContextRaw(page); err == nil && found {
		snap.Context = raw
	}
	if text, found, err := b.store.ReadText(page); err == nil && found {
		snap.Text = text
	}
	return snap
}
