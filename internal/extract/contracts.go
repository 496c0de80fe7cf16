// Package extract defines the layout extraction backend: the service that
// turns a PDF page into tables, pictures and text regions, plus the renderer
// that rasterizes full pages.
package extract

import "context"

// PageRange is an inclusive 1-based page span.
type PageRange struct {
	From int `json:"from_page"`
	To   int `json:"to_page"`
}

// Table is one detected table: an HTML rendering and a cropped PNG.
type Table struct {
	HTML  string `json:"html"`
	Image []byte `json:"image_png"`
}

// Picture is one detected figure with its pixel dimensions. Callers use the
// dimensions to filter out icon-sized crops.
type Picture struct {
	Image  []byte `json:"image_png"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// Page is the structural readout of a single document page.
type Page struct {
	PageNumber int       `json:"page_number"`
	Tables     []Table   `json:"tables"`
	Pictures   []Picture `json:"pictures"`
	TextBlocks []string  `json:"text_blocks"`
}

// Document is a converter result covering one or more pages.
type Document struct {
	Pages []Page `json:"pages"`
}

// Converter runs document layout analysis. Conversion is expensive, so the
// extract stage asks for one page at a time and a bad page cannot sink the
// rest of the document.
type Converter interface {
	Convert(ctx context.Context, documentPath string, pages *PageRange) (*Document, error)
}

// Renderer rasterizes one page to a full-page PNG.
type Renderer interface {
	RenderPage(ctx context.Context, documentPath string, page int) ([]byte, error)
}
