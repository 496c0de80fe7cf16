package constants

// StageStatus is the canonical status a pipeline stage reports.
type StageStatus string

// Stable values (these exact strings appear in run reports and history rows).
const (
	StatusSuccess StageStatus = "success" // every item processed
	StatusPartial StageStatus = "partial" // at least one item failed, others did not
	StatusSkipped StageStatus = "skipped" // outputs already present, nothing to do
	StatusError   StageStatus = "error"   // precondition failure or stage-level fault
)
