package metadata

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// BuildTableMetadataSchema returns the JSON-Schema (draft 2020-12 subset) a
// table-metadata model response must satisfy, as a generic map so it can be
// sent verbatim as a response schema and validated locally.
func BuildTableMetadataSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"title":               map[string]any{"type": "string", "minLength": 1},
			"summary":             map[string]any{"type": "string", "minLength": 1},
			"keywords":            stringArrayProp(),
			"dates":               stringArrayProp(),
			"locations":           stringArrayProp(),
			"entities":            stringArrayProp(),
			"model_name":          map[string]any{"type": "string"},
			"component_type":      map[string]any{"type": "string"},
			"application_context": stringArrayProp(),
			"related_figures":     relatedRefArrayProp(),
		},
		"required": []string{"title", "summary", "keywords"},
	}
}

// BuildImageMetadataSchema returns the JSON-Schema an image-metadata model
// response must satisfy.
func BuildImageMetadataSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"image_type":          map[string]any{"type": "string", "minLength": 1},
			"title":               map[string]any{"type": "string", "minLength": 1},
			"summary":             map[string]any{"type": "string", "minLength": 1},
			"natural_description": map[string]any{"type": "string"},
			"keywords":            stringArrayProp(),
			"dates":               stringArrayProp(),
			"locations":           stringArrayProp(),
			"entities":            stringArrayProp(),
			"model_name":          map[string]any{"type": "string"},
			"component_type":      map[string]any{"type": "string"},
			"model_applicability": stringArrayProp(),
			"application_context": stringArrayProp(),
			"related_tables":      relatedRefArrayProp(),
		},
		"required": []string{"image_type", "title", "summary", "natural_description", "keywords"},
	}
}

func stringArrayProp() map[string]any {
	return map[string]any{
		"type":  "array",
		"items": map[string]any{"type": "string"},
	}
}

func relatedRefArrayProp() map[string]any {
	return map[string]any{
		"type": "array",
		"items": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"label":       map[string]any{"type": "string", "minLength": 1},
				"description": map[string]any{"type": "string"},
			},
			"required": []string{"label"},
		},
	}
}

// ValidateAgainstSchema validates data against schemaMap.
func ValidateAgainstSchema(schemaMap map[string]any, data []byte) error {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(b)); err != nil {
		return fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}
