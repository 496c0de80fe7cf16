package pipeline

import (
	"strings"

	"github.com/joseph-ayodele/pagemeta/internal/window"
)

// Prompt templates for the four model call types. Placeholders use the
// {name} form and are substituted verbatim; JSON braces inside the templates
// are literal.

const contextMetadataPrompt = `You are a technical documentation assistant generating page-level metadata for technical manuals and service documents.

You are given:
1. An image of the current page (and, when available, images of the previous and next pages).
2. Structural metadata for the previous, current, and next pages listing each page's tables, figures, and text blocks by identifier.
3. The extracted text of the previous, current, and next pages.

Use the neighboring pages only as context. Your metadata must describe the CURRENT page.

Return metadata in the following JSON format:

{
  "title": "string, <= 15 words, the page's purpose and scope",
  "summary": "string, 2-4 sentences describing what the page covers",
  "keywords": ["5-10 specific, searchable terms"],
  "entities": ["model numbers, component IDs, standards, brands, part numbers"],
  "content_elements": [
    {
      "element_id": "identifier copied from the structural metadata, e.g. 'table-3-1' or 'image-3-1'",
      "type": "table" | "figure" | "text_block",
      "title": "short label for this element",
      "summary": "1-2 sentences on what this element shows",
      "keywords": ["terms specific to this element"]
    }
  ]
}

Instructions:
- Produce exactly one content element per table and figure listed in the current page's structural metadata, reusing the listed identifiers unchanged.
- Figures use type "figure"; tables use type "table"; notable text regions may be added with type "text_block".
- Use precise, domain-specific language; prefer terminology that appears on the page.
- If a field has no relevant information, return an empty string or empty list.
- Return only the JSON object, with no explanations or commentary.

Previous page structural metadata:
{metadata_page_n_1}

Current page structural metadata:
{metadata_page_n}

Next page structural metadata:
{metadata_page_n_plus_1}

Previous page text:
{page_n_1_text}

Current page text:
{page_n_text}

Next page text:
{page_n_plus_1_text}
`

const improveTableStructurePrompt = `You are an expert table structure analyst with a visual-first approach. Given an image of a technical table and its extracted HTML version, analyze the image first, then correct the HTML so that rendering it would reproduce the image exactly.

Workflow:
1. Count every visible row and column in the image. Map every header tier, merged cell, and empty cell.
2. Compare the HTML against the image row by row and cell by cell. Every visible character must have an HTML equivalent; no HTML content may exist that is not visible in the image.
3. Correct the HTML: add missing cells, remove artifacts, move misplaced values, and fix colspan/rowspan so spans match the visual layout.

Rules:
- The image is the primary source of truth. Where the HTML and the image disagree, the image wins.
- If the same value appears under multiple column headers, keep each occurrence as its own <td>. Use colspan only where the image visually merges cells. Never collapse repeated values into one merged cell.
- Preserve empty cells as empty <td> elements so the grid stays intact.
- Reproduce special characters and units exactly as shown (for example degree signs, superscripts, m3/h, bar).
- Keep numerical precision exactly as displayed.

Return only the corrected HTML table, structured as <table> with <thead> and <tbody>, without explanations, commentary, or code fences.

{html_content}
`

const tableMetadataPrompt = `You are a technical documentation assistant specializing in extracting structured metadata for tables from engineering manuals and service documents.

You are given:
1. An image of a table extracted from a PDF page.
2. The table's HTML version.

Tables in technical documents encode specifications, capacities, torque values, part listings, and operating limits. Read both the image and the HTML, and generate metadata in the following JSON format:

{
  "title": "string, <= 15 words, the table's purpose and scope",
  "summary": "string, 1-2 sentence explanation of what the table specifies",
  "keywords": ["5-10 specific, searchable terms"],
  "dates": ["date mentions such as 'April 11, 2019'"],
  "locations": ["geographic or organizational references"],
  "entities": ["model numbers, component IDs, standards, brands, part numbers"],
  "model_name": "string or null, e.g. 'BBV43' if clearly stated",
  "component_type": "string or null, e.g. 'Hydraulic Cylinder'",
  "application_context": ["industrial or mechanical domains, e.g. 'maintenance', 'assembly'"],
  "related_figures": [
    {
      "label": "e.g. 'Fig. 2'",
      "description": "how that figure relates to this table"
    }
  ]
}

Instructions:
- Use precise and domain-specific language; prefer the table's own column headers and units.
- If a field has no relevant information, return null or an empty list.
- Identify relationships to figures referenced in or near the table.
- Return only the JSON object, with no explanations or commentary.
`

const imageMetadataPrompt = `You are a technical documentation assistant specializing in extracting structured metadata for images and diagrams from engineering manuals and service documents.

You are given:
1. An image or diagram extracted from a PDF page.
2. The full text of the PDF page (optional, for context).

First classify the image: "diagram" for technical drawings, schematics, exploded views, wiring or hydraulic diagrams; "image" for photos, illustrations, logos, and general pictures.

Images in technical documents depend on surrounding context. Use the page text to resolve captions, figure labels, units, model numbers, and references to related tables.

Generate metadata in the following JSON format:

{
  "image_type": "diagram" | "image",
  "title": "string, <= 15 words, the image's purpose and scope",
  "summary": "string, 1-2 sentence explanation incorporating context such as operating limits or safety notes",
  "natural_description": "string, a comprehensive 3-5 sentence paragraph describing what is visually shown: key components, labels and callouts, spatial relationships, and technical details",
  "keywords": ["5-10 specific, searchable terms"],
  "dates": ["date mentions such as 'April 11, 2019'"],
  "locations": ["geographic or organizational references"],
  "entities": ["model numbers, component IDs, standards, brands, part numbers"],
  "model_name": "string or null, e.g. 'BBV43' if clearly mentioned",
  "component_type": "string or null, e.g. 'Electrical Schematic'",
  "model_applicability": ["specific models if mentioned, e.g. '642', '943'"],
  "application_context": ["industrial or mechanical domains, e.g. 'troubleshooting'"],
  "related_tables": [
    {
      "label": "e.g. 'Table 1'",
      "description": "how that table relates to or supports the image"
    }
  ]
}

Instructions:
- Do not simply list what you see; describe relationships and purpose.
- Infer model references and application context from the page text where possible.
- If a field has no relevant information, return null or an empty list.
- Return only the JSON object, with no explanations or commentary.

page_text: {page_text}
`

// noPageText is substituted when a page has no extracted text artifact.
const noPageText = "No page text available."

func renderContextPrompt(w window.Window) string {
	prev := w.Previous
	if prev == nil {
		s := window.EmptySnapshot(w.Current.PageNumber - 1)
		prev = &s
	}
	next := w.Next
	if next == nil {
		s := window.EmptySnapshot(w.Current.PageNumber + 1)
		next = &s
	}
	return strings.NewReplacer(
		"{metadata_page_n_1}", prev.Structural,
		"{metadata_page_n}", w.Current.Structural,
		"{metadata_page_n_plus_1}", next.Structural,
		"{page_n_1_text}", prev.Text,
		"{page_n_text}", w.Current.Text,
		"{page_n_plus_1_text}", next.Text,
	).Replace(contextMetadataPrompt)
}

func renderTableFixPrompt(html string) string {
	return strings.Replace(improveTableStructurePrompt, "{html_content}", html, 1)
}

func renderImagePrompt(pageText string) string {
	if strings.TrimSpace(pageText) == "" {
		pageText = noPageText
	}
	return strings.Replace(imageMetadataPrompt, "{page_text}", pageText, 1)
}

// wrapTableHTML frames raw table HTML the way the table metadata call expects
// its second text part.
func wrapTableHTML(html string) string {
	return "<html><body>" + html + "</body></html>"
}
