package metadata

// Merge operations folding one metadata fragment into another. All three are
// pure: inputs are never mutated, outputs are copies. The governing policy
// for every copied field: a non-empty value is never replaced by an empty one.

// EnhanceFlags folds the structural inventory into a copy of ctx: presence
// flags, counts, and a content_summary echo of the raw id lists. All other
// fields pass through untouched. Idempotent for unchanged inputs.
func EnhanceFlags(ctx Context, structural Structural) Context {
	out := ctx
	out.HasTables = len(structural.Tables) > 0
	out.HasFigures = len(structural.Figures) > 0
	out.HasTextBlocks = len(structural.TextBlocks) > 0
	out.TableCount = len(structural.Tables)
	out.FigureCount = len(structural.Figures)
	out.TextBlockCount = len(structural.TextBlocks)
	out.ContentSummary = &ContentSummary{
		Tables:     copyStrings(structural.Tables),
		Figures:    copyStrings(structural.Figures),
		TextBlocks: copyStrings(structural.TextBlocks),
	}
	out.flagged = true
	return out
}

// CorrelateImages matches generated image records back to the figure-typed
// content elements of ctx by identifier and folds the matched record's
// fields in. Elements without a match pass through unchanged.
func CorrelateImages(ctx Context, records []ImageMetadata) Context {
	if len(ctx.ContentElements) == 0 || len(records) == 0 {
		return ctx
	}
	lookup := make(map[string]ImageMetadata, len(records))
	for _, r := range records {
		if r.ImageID != "" {
			lookup[r.ImageID] = r
		}
	}
	out := ctx
	out.ContentElements = make([]ContentElement, len(ctx.ContentElements))
	for i, el := range ctx.ContentElements {
		out.ContentElements[i] = correlateElement(el, lookup)
	}
	return out
}

func correlateElement(el ContentElement, lookup map[string]ImageMetadata) ContentElement {
	if el.Type != string(KindFigure) {
		return el
	}
	key, ok := ParseElementID(el.ElementID)
	if !ok {
		return el
	}
	var match *ImageMetadata
	for _, id := range key.ImageIDCandidates() {
		if m, found := lookup[id]; found {
			match = &m
			break
		}
	}
	if match == nil {
		return el
	}
	if match.ImageType != "" {
		el.ImageType = match.ImageType
	}
	if match.NaturalDescription != "" {
		el.NaturalDescription = match.NaturalDescription
	}
	if match.Title != "" {
		el.Title = match.Title
	}
	if match.Summary != "" {
		el.Summary = match.Summary
	}
	el.Keywords = UnionStrings(el.Keywords, match.Keywords)
	el.Entities = UnionStrings(el.Entities, match.Entities)
	if len(match.Dates) > 0 {
		el.Dates = copyStrings(match.Dates)
	}
	if len(match.Locations) > 0 {
		el.Locations = copyStrings(match.Locations)
	}
	if match.ModelName != "" {
		el.ModelName = match.ModelName
	}
	if match.ComponentType != "" {
		el.ComponentType = match.ComponentType
	}
	if len(match.ModelApplicability) > 0 {
		el.ModelApplicability = copyStrings(match.ModelApplicability)
	}
	if len(match.ApplicationContext) > 0 {
		el.ApplicationContext = copyStrings(match.ApplicationContext)
	}
	if len(match.RelatedTables) > 0 {
		el.RelatedTables = append([]RelatedRef(nil), match.RelatedTables...)
	}
	return el
}

// AttachImageMetadata sets the freshly generated image record list on a copy
// of ctx. The list is the stage's complete output for the page, so it
// replaces any previous list wholesale.
func AttachImageMetadata(ctx Context, records []ImageMetadata) Context {
	out := ctx
	out.ImageMetadata = append([]ImageMetadata(nil), records...)
	return out
}

// AttachTableMetadata is the table counterpart of AttachImageMetadata.
func AttachTableMetadata(ctx Context, records []TableMetadata) Context {
	out := ctx
	out.TableMetadata = append([]TableMetadata(nil), records...)
	return out
}

// UnionStrings merges b into a as sets: duplicates collapse, first
// occurrence keeps its position so the result is deterministic.
func UnionStrings(a, b []string) []string {
	if len(a) == 0 && len(b) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, list := range [2][]string{a, b} {
		for _, s := range list {
			if _, dup := seen[s]; dup {
				continue
			}
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	return out
}

func copyStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return append([]string{}, s...)
}
