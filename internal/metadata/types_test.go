package metadata

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestContextRoundTripPreservesUnknownFields(t *testing.T) {
	raw := []byte(`{
		"title": "Installation overview",
		"keywords": ["install", "torque"],
		"topics": ["assembly", "maintenance"],
		"section_hint": {"chapter": 3},
		"content_elements": [
			{"element_id": "figure-1-1", "type": "figure", "confidence": 0.92}
		]
	}`)

	var ctx Context
	if err := json.Unmarshal(raw, &ctx); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if ctx.Title != "Installation overview" || len(ctx.Keywords) != 2 {
		t.Fatalf("core fields lost: %+v", ctx)
	}
	if _, ok := ctx.Extra["topics"]; !ok {
		t.Fatal("unknown field topics not captured")
	}
	if _, ok := ctx.ContentElements[0].Extra["confidence"]; !ok {
		t.Fatal("unknown element field confidence not captured")
	}

	out, err := json.Marshal(ctx)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	for _, key := range []string{`"topics"`, `"section_hint"`, `"confidence"`} {
		if !bytes.Contains(out, []byte(key)) {
			t.Errorf("round-trip dropped %s: %s", key, out)
		}
	}
}

func TestContextFlagsAppearOnlyAfterEnhancement(t *testing.T) {
	ctx := Context{Title: "Before"}

	before, err := json.Marshal(ctx)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if bytes.Contains(before, []byte("has_tables")) {
		t.Errorf("flags present before enhancement: %s", before)
	}

	enhanced := EnhanceFlags(ctx, Structural{Tables: []string{"table-1-1"}})
	after, err := json.Marshal(enhanced)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !bytes.Contains(after, []byte(`"has_tables":true`)) {
		t.Errorf("flags missing after enhancement: %s", after)
	}
	if !bytes.Contains(after, []byte(`"table_count":1`)) {
		t.Errorf("counts missing after enhancement: %s", after)
	}

	// The enhanced shape must survive a read-modify-write cycle.
	var reread Context
	if err := json.Unmarshal(after, &reread); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	again, err := json.Marshal(reread)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !bytes.Equal(after, again) {
		t.Errorf("round trip changed bytes:\n first: %s\nsecond: %s", after, again)
	}
}

func TestContextRejectsMalformedCoreFields(t *testing.T) {
	raw := []byte(`{"keywords": "not-a-list"}`)
	var ctx Context
	if err := json.Unmarshal(raw, &ctx); err == nil {
		t.Error("expected error for keywords of wrong type")
	}
}

func TestStructuralMarshalShape(t *testing.T) {
	s := Structural{
		PageNumber: 2,
		PageImage:  "page_2_full.png",
		Tables:     []string{"table-2-1"},
		Figures:    []string{},
		TextBlocks: []string{"page_2_text.txt"},
		Language:   "en",
	}
	data, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	for _, key := range []string{`"page_number":2`, `"figures":[]`, `"language":"en"`} {
		if !bytes.Contains(data, []byte(key)) {
			t.Errorf("missing %s in %s", key, data)
		}
	}

	var back Structural
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.PageNumber != 2 || len(back.Tables) != 1 {
		t.Errorf("round trip = %+v", back)
	}
}

func TestValidateAgainstSchema(t *testing.T) {
	schema := BuildImageMetadataSchema()

	valid := []byte(`{
		"image_type": "diagram",
		"title": "Gearbox cutaway",
		"summary": "Cutaway view of the gearbox.",
		"natural_description": "A labeled cutaway drawing of a gearbox.",
		"keywords": ["gearbox", "cutaway"]
	}`)
	if err := ValidateAgainstSchema(schema, valid); err != nil {
		t.Errorf("valid payload rejected: %v", err)
	}

	missingRequired := []byte(`{"title": "No type"}`)
	if err := ValidateAgainstSchema(schema, missingRequired); err == nil {
		t.Error("payload missing required fields accepted")
	}

	wrongType := []byte(`{
		"image_type": "diagram",
		"title": "t",
		"summary": "s",
		"natural_description": "d",
		"keywords": "not-a-list"
	}`)
	if err := ValidateAgainstSchema(schema, wrongType); err == nil {
		t.Error("payload with wrong keyword type accepted")
	}
}
