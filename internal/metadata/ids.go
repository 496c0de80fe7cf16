package metadata

import (
	"fmt"
	"regexp"
	"strconv"
)

// ElementKind is the identifier prefix of a content element.
type ElementKind string

const (
	KindTable  ElementKind = "table"
	KindFigure ElementKind = "figure"
	KindImage  ElementKind = "image"
)

// ElementKey is the structured form of an element identifier.
type ElementKey struct {
	Kind  ElementKind
	Page  int
	Index int
}

var elementIDRe = regexp.MustCompile(`^(figure|image|table)-(\d+)-(\d+)$`)

// ParseElementID parses identifiers of the form <kind>-<page>-<index>.
// This is the single place identifier syntax is interpreted; callers must
// not pattern-match identifiers themselves.
func ParseElementID(id string) (ElementKey, bool) {
	m := elementIDRe.FindStringSubmatch(id)
	if m == nil {
		return ElementKey{}, false
	}
	page, err := strconv.Atoi(m[2])
	if err != nil {
		return ElementKey{}, false
	}
	index, err := strconv.Atoi(m[3])
	if err != nil {
		return ElementKey{}, false
	}
	return ElementKey{Kind: ElementKind(m[1]), Page: page, Index: index}, true
}

func (k ElementKey) String() string {
	return fmt.Sprintf("%s-%d-%d", k.Kind, k.Page, k.Index)
}

// ImageIDCandidates returns the accepted identifier spellings for a figure
// element, in resolution order. Extraction names figure artifacts with the
// image- prefix while content elements use figure-, so both spellings occur
// in the wild; image- is probed first and wins when both are present.
func (k ElementKey) ImageIDCandidates() []string {
	return []string{
		ElementKey{Kind: KindImage, Page: k.Page, Index: k.Index}.String(),
		ElementKey{Kind: KindFigure, Page: k.Page, Index: k.Index}.String(),
	}
}

// TableID builds the canonical table identifier for a page/index pair.
func TableID(page, index int) string {
	return ElementKey{Kind: KindTable, Page: page, Index: index}.String()
}

// ImageID builds the canonical image identifier for a page/index pair.
func ImageID(page, index int) string {
	return ElementKey{Kind: KindImage, Page: page, Index: index}.String()
}
