package artifact

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/pagemeta/internal/metadata"
)

// Store is the per-document artifact hierarchy under <outputRoot>/<stem>.
// It is the only persistence layer of the pipeline: every stage reads and
// writes through it, and skip-if-exists decisions probe it directly.
//
// Layout per page:
//
//	page_<n>/page_<n>_full.png
//	page_<n>/metadata_page_<n>.json
//	page_<n>/context_metadata_page_<n>.json
//	page_<n>/tables/table-<n>-<k>.html + .png
//	page_<n>/images/image-<n>-<k>.png
//	page_<n>/text/page_<n>_text.txt
type Store struct {
	root string
	stem string
}

// DocumentStem derives the canonical identifier that namespaces a document's
// artifacts: the filename without its extension.
func DocumentStem(documentPath string) string {
	base := filepath.Base(documentPath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// NewStore roots a store for one document under outputRoot.
func NewStore(outputRoot, documentPath string) *Store {
	stem := DocumentStem(documentPath)
	return &Store{root: filepath.Join(outputRoot, stem), stem: stem}
}

func (s *Store) Root() string { return s.root }
func (s *Store) Stem() string { return s.stem }

// Exists reports whether the document root has been created at all.
func (s *Store) Exists() bool {
	st, err := os.Stat(s.root)
	return err == nil && st.IsDir()
}

func (s *Store) PageDir(page int) string {
	return filepath.Join(s.root, fmt.Sprintf("page_%d", page))
}

func (s *Store) TablesDir(page int) string { return filepath.Join(s.PageDir(page), "tables") }
func (s *Store) ImagesDir(page int) string { return filepath.Join(s.PageDir(page), "images") }
func (s *Store) TextDir(page int) string   { return filepath.Join(s.PageDir(page), "text") }

func (s *Store) PageImagePath(page int) string {
	return filepath.Join(s.PageDir(page), fmt.Sprintf("page_%d_full.png", page))
}

func (s *Store) StructuralPath(page int) string {
	return filepath.Join(s.PageDir(page), fmt.Sprintf("metadata_page_%d.json", page))
}

func (s *Store) ContextPath(page int) string {
	return filepath.Join(s.PageDir(page), fmt.Sprintf("context_metadata_page_%d.json", page))
}

func (s *Store) TextPath(page int) string {
	return filepath.Join(s.TextDir(page), fmt.Sprintf("page_%d_text.txt", page))
}

func (s *Store) TableHTMLPath(page, index int) string {
	return filepath.Join(s.TablesDir(page), fmt.Sprintf("table-%d-%d.html", page, index))
}

func (s *Store) TableImagePath(page, index int) string {
	return filepath.Join(s.TablesDir(page), fmt.Sprintf("table-%d-%d.png", page, index))
}

func (s *Store) ImagePath(page, index int) string {
	return filepath.Join(s.ImagesDir(page), fmt.Sprintf("image-%d-%d.png", page, index))
}

// EnsurePageDirs creates a page directory with its three sub-element dirs.
func (s *Store) EnsurePageDirs(page int) error {
	for _, dir := range []string{s.PageDir(page), s.TablesDir(page), s.ImagesDir(page), s.TextDir(page)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}

// PageExists reports whether the page directory has been created.
func (s *Store) PageExists(page int) bool {
	st, err := os.Stat(s.PageDir(page))
	return err == nil && st.IsDir()
}

// PageNumbers lists the pages present in the store, sorted numerically.
func (s *Store) PageNumbers() ([]int, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", s.root, err)
	}
	var pages []int
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		n, ok := parsePageDirName(e.Name())
		if !ok {
			continue
		}
		pages = append(pages, n)
	}
	sort.Ints(pages)
	return pages, nil
}

func parsePageDirName(name string) (int, bool) {
	rest, ok := strings.CutPrefix(name, "page_")
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}

// ReadStructural loads a page's structural record. Absence is reported via
// the found flag, not an error.
func (s *Store) ReadStructural(page int) (metadata.Structural, bool, error) {
	var m metadata.Structural
	data, found, err := readFile(s.StructuralPath(page))
	if err != nil || !found {
		return m, found, err
	}
	if err := json.Unmarshal(data, &m); err != nil {
		return m, true, fmt.Errorf("decode %s: %w", s.StructuralPath(page), err)
	}
	return m, true, nil
}

func (s *Store) WriteStructural(page int, m metadata.Structural) error {
	return writeJSON(s.StructuralPath(page), m)
}

// ReadContext loads a page's context record with the found-flag convention.
func (s *Store) ReadContext(page int) (metadata.Context, bool, error) {
	var c metadata.Context
	data, found, err := readFile(s.ContextPath(page))
	if err != nil || !found {
		return c, found, err
	}
	if err := json.Unmarshal(data, &c); err != nil {
		return c, true, fmt.Errorf("decode %s: %w", s.ContextPath(page), err)
	}
	return c, true, nil
}

func (s *Store) WriteContext(page int, c metadata.Context) error {
	return writeJSON(s.ContextPath(page), c)
}

// HasContext probes for a persisted context record without decoding it.
func (s *Store) HasContext(page int) bool {
	st, err := os.Stat(s.ContextPath(page))
	return err == nil && !st.IsDir()
}

// ReadStructuralRaw returns the structural record's file content verbatim,
// for embedding into prompts.
func (s *Store) ReadStructuralRaw(page int) (string, bool, error) {
	data, found, err := readFile(s.StructuralPath(page))
	return string(data), found, err
}

// ReadContextRaw returns the context record's file content verbatim.
func (s *Store) ReadContextRaw(page int) (string, bool, error) {
	data, found, err := readFile(s.ContextPath(page))
	return string(data), found, err
}

// ReadText returns the page's unified text blob.
func (s *Store) ReadText(page int) (string, bool, error) {
	data, found, err := readFile(s.TextPath(page))
	return string(data), found, err
}

func (s *Store) WriteText(page int, text string) error {
	return writeFile(s.TextPath(page), []byte(text))
}

func (s *Store) WritePageImage(page int, png []byte) error {
	return writeFile(s.PageImagePath(page), png)
}

func (s *Store) WriteTableHTML(page, index int, html string) error {
	return writeFile(s.TableHTMLPath(page, index), []byte(html))
}

func (s *Store) WriteTableImage(page, index int, png []byte) error {
	return writeFile(s.TableImagePath(page, index), png)
}

func (s *Store) WriteImage(page, index int, png []byte) error {
	return writeFile(s.ImagePath(page, index), png)
}

// ReadBytes reads an arbitrary artifact by absolute path with the found-flag
// convention, for callers holding a path from one of the List helpers.
func (s *Store) ReadBytes(path string) ([]byte, bool, error) {
	return readFile(path)
}

// ListTableHTML returns the page's table HTML paths ordered by element index.
func (s *Store) ListTableHTML(page int) ([]string, error) {
	return s.listElements(s.TablesDir(page), ".html")
}

// ListImages returns the page's figure image paths ordered by element index.
func (s *Store) ListImages(page int) ([]string, error) {
	return s.listElements(s.ImagesDir(page), ".png")
}

func (s *Store) listElements(dir, ext string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", dir, err)
	}
	type numbered struct {
		path  string
		index int
	}
	var items []numbered
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ext {
			continue
		}
		stem := strings.TrimSuffix(e.Name(), ext)
		key, ok := metadata.ParseElementID(stem)
		if !ok {
			continue
		}
		items = append(items, numbered{path: filepath.Join(dir, e.Name()), index: key.Index})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].index < items[j].index })
	paths := make([]string, len(items))
	for i, it := range items {
		paths[i] = it.path
	}
	return paths, nil
}

func readFile(path string) ([]byte, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("read %s: %w", path, err)
	}
	return data, true, nil
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return writeFile(path, data)
}
