package constants

// StageName identifies one pipeline stage. These names are the CLI vocabulary
// for --stages and the keys of the run report.
type StageName string

const (
	StageExtract  StageName = "extract"  // page images + structural artifacts
	StageTableFix StageName = "tablefix" // reconcile table HTML against its image
	StageContext  StageName = "context"  // per-page context metadata from a page window
	StageEnhance  StageName = "enhance"  // structural flags folded into context metadata
	StageTables   StageName = "tables"   // per-table semantic metadata
	StageImages   StageName = "images"   // per-figure semantic metadata
)

// StageOrder is the fixed dependency order. Selected subsets always execute
// in this order regardless of how they were requested.
var StageOrder = []StageName{
	StageExtract,
	StageTableFix,
	StageContext,
	StageEnhance,
	StageTables,
	StageImages,
}
