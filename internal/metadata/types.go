package metadata

import (
	"encoding/json"
)

// Structural is the per-page inventory written once by the extract stage.
// It is read-only afterward and serves as the oracle for "does this page
// have tables/figures".
type Structural struct {
	PageNumber int      `json:"page_number"`
	PageImage  string   `json:"page_image"`
	Tables     []string `json:"tables"`
	Figures    []string `json:"figures"`
	TextBlocks []string `json:"text_blocks"`
	Language   string   `json:"language,omitempty"`
}

// ContentSummary echoes the raw structural id lists into context metadata.
type ContentSummary struct {
	Tables     []string `json:"tables"`
	Figures    []string `json:"figures"`
	TextBlocks []string `json:"text_blocks"`
}

// RelatedRef is a cross-reference to another element on the page
// (a figure referenced by a table, or vice versa).
type RelatedRef struct {
	Label       string `json:"label"`
	Description string `json:"description,omitempty"`
}

// ImageMetadata is one model-generated record for a figure sub-element.
type ImageMetadata struct {
	ImageID            string       `json:"image_id,omitempty"`
	ImageFile          string       `json:"image_file,omitempty"`
	ImageType          string       `json:"image_type"`
	Title              string       `json:"title"`
	Summary            string       `json:"summary"`
	NaturalDescription string       `json:"natural_description"`
	Keywords           []string     `json:"keywords"`
	Dates              []string     `json:"dates,omitempty"`
	Locations          []string     `json:"locations,omitempty"`
	Entities           []string     `json:"entities,omitempty"`
	ModelName          string       `json:"model_name,omitempty"`
	ComponentType      string       `json:"component_type,omitempty"`
	ModelApplicability []string     `json:"model_applicability,omitempty"`
	ApplicationContext []string     `json:"application_context,omitempty"`
	RelatedTables      []RelatedRef `json:"related_tables,omitempty"`
}

// TableMetadata is one model-generated record for a table sub-element.
// RowCount/ColumnCount/ColumnHeaders are derived locally from the table HTML,
// not asked of the model.
type TableMetadata struct {
	TableID            string       `json:"table_id,omitempty"`
	TableFile          string       `json:"table_file,omitempty"`
	TableImage         string       `json:"table_image,omitempty"`
	TableHTML          string       `json:"table_html,omitempty"`
	Title              string       `json:"title"`
	Summary            string       `json:"summary"`
	Keywords           []string     `json:"keywords"`
	Dates              []string     `json:"dates,omitempty"`
	Locations          []string     `json:"locations,omitempty"`
	Entities           []string     `json:"entities,omitempty"`
	ModelName          string       `json:"model_name,omitempty"`
	ComponentType      string       `json:"component_type,omitempty"`
	ApplicationContext []string     `json:"application_context,omitempty"`
	RelatedFigures     []RelatedRef `json:"related_figures,omitempty"`
	RowCount           int          `json:"row_count,omitempty"`
	ColumnCount        int          `json:"column_count,omitempty"`
	ColumnHeaders      []string     `json:"column_headers,omitempty"`
}

// ContentElement is one entry of Context.ContentElements, addressable by a
// stable element_id of the form (figure|image|table)-<page>-<index>.
// Model-supplied fields outside the core set survive round-trips in Extra.
type ContentElement struct {
	ElementID          string
	Type               string
	Title              string
	Summary            string
	Keywords           []string
	Entities           []string
	ImageType          string
	NaturalDescription string
	Dates              []string
	Locations          []string
	ModelName          string
	ComponentType      string
	ModelApplicability []string
	ApplicationContext []string
	RelatedTables      []RelatedRef

	Extra map[string]json.RawMessage
}

// Context is the per-page semantic record. The model produces its initial
// shape; later stages merge fields in additively. Unknown keys from the
// model are preserved verbatim in Extra so repeated read-modify-write
// cycles never lose data.
type Context struct {
	Title    string
	Summary  string
	Keywords []string
	Entities []string

	ContentElements []ContentElement

	HasTables      bool
	HasFigures     bool
	HasTextBlocks  bool
	TableCount     int
	FigureCount    int
	TextBlockCount int
	ContentSummary *ContentSummary

	ImageMetadata []ImageMetadata
	TableMetadata []TableMetadata

	Extra map[string]json.RawMessage

	// flagged marks that the structural flags have been folded in; the
	// flag/count fields are serialized only once that has happened.
	flagged bool
}

func (c Context) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, 16)
	if c.Title != "" {
		m["title"] = c.Title
	}
	if c.Summary != "" {
		m["summary"] = c.Summary
	}
	if len(c.Keywords) > 0 {
		m["keywords"] = c.Keywords
	}
	if len(c.Entities) > 0 {
		m["entities"] = c.Entities
	}
	if len(c.ContentElements) > 0 {
		m["content_elements"] = c.ContentElements
	}
	if c.flagged {
		m["has_tables"] = c.HasTables
		m["has_figures"] = c.HasFigures
		m["has_text_blocks"] = c.HasTextBlocks
		m["table_count"] = c.TableCount
		m["figure_count"] = c.FigureCount
		m["text_block_count"] = c.TextBlockCount
		if c.ContentSummary != nil {
			m["content_summary"] = c.ContentSummary
		}
	}
	if len(c.ImageMetadata) > 0 {
		m["image_metadata"] = c.ImageMetadata
	}
	if len(c.TableMetadata) > 0 {
		m["table_metadata"] = c.TableMetadata
	}
	for k, v := range c.Extra {
		if _, taken := m[k]; !taken {
			m[k] = v
		}
	}
	return json.Marshal(m)
}

func (c *Context) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*c = Context{}
	_, hasFlags := raw["has_tables"]
	take := func(key string, dst any) error {
		v, ok := raw[key]
		if !ok {
			return nil
		}
		delete(raw, key)
		return json.Unmarshal(v, dst)
	}
	for key, dst := range map[string]any{
		"title":            &c.Title,
		"summary":          &c.Summary,
		"keywords":         &c.Keywords,
		"entities":         &c.Entities,
		"content_elements": &c.ContentElements,
		"has_tables":       &c.HasTables,
		"has_figures":      &c.HasFigures,
		"has_text_blocks":  &c.HasTextBlocks,
		"table_count":      &c.TableCount,
		"figure_count":     &c.FigureCount,
		"text_block_count": &c.TextBlockCount,
		"content_summary":  &c.ContentSummary,
		"image_metadata":   &c.ImageMetadata,
		"table_metadata":   &c.TableMetadata,
	} {
		if err := take(key, dst); err != nil {
			return err
		}
	}
	c.flagged = hasFlags
	if len(raw) > 0 {
		c.Extra = raw
	}
	return nil
}

func (e ContentElement) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, 8)
	m["element_id"] = e.ElementID
	m["type"] = e.Type
	if e.Title != "" {
		m["title"] = e.Title
	}
	if e.Summary != "" {
		m["summary"] = e.Summary
	}
	if len(e.Keywords) > 0 {
		m["keywords"] = e.Keywords
	}
	if len(e.Entities) > 0 {
		m["entities"] = e.Entities
	}
	if e.ImageType != "" {
		m["image_type"] = e.ImageType
	}
	if e.NaturalDescription != "" {
		m["natural_description"] = e.NaturalDescription
	}
	if len(e.Dates) > 0 {
		m["dates"] = e.Dates
	}
	if len(e.Locations) > 0 {
		m["locations"] = e.Locations
	}
	if e.ModelName != "" {
		m["model_name"] = e.ModelName
	}
	if e.ComponentType != "" {
		m["component_type"] = e.ComponentType
	}
	if len(e.ModelApplicability) > 0 {
		m["model_applicability"] = e.ModelApplicability
	}
	if len(e.ApplicationContext) > 0 {
		m["application_context"] = e.ApplicationContext
	}
	if len(e.RelatedTables) > 0 {
		m["related_tables"] = e.RelatedTables
	}
	for k, v := range e.Extra {
		if _, taken := m[k]; !taken {
			m[k] = v
		}
	}
	return json.Marshal(m)
}

func (e *ContentElement) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*e = ContentElement{}
	take := func(key string, dst any) error {
		v, ok := raw[key]
		if !ok {
			return nil
		}
		delete(raw, key)
		return json.Unmarshal(v, dst)
	}
	for key, dst := range map[string]any{
		"element_id":          &e.ElementID,
		"type":                &e.Type,
		"title":               &e.Title,
		"summary":             &e.Summary,
		"keywords":            &e.Keywords,
		"entities":            &e.Entities,
		"image_type":          &e.ImageType,
		"natural_description": &e.NaturalDescription,
		"dates":               &e.Dates,
		"locations":           &e.Locations,
		"model_name":          &e.ModelName,
		"component_type":      &e.ComponentType,
		"model_applicability": &e.ModelApplicability,
		"application_context": &e.ApplicationContext,
		"related_tables":      &e.RelatedTables,
	} {
		if err := take(key, dst); err != nil {
			return err
		}
	}
	if len(raw) > 0 {
		e.Extra = raw
	}
	return nil
}
