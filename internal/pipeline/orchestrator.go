package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/pagemeta/constants"
	"github.com/joseph-ayodele/pagemeta/internal/artifact"
	"github.com/joseph-ayodele/pagemeta/internal/common"
	"github.com/joseph-ayodele/pagemeta/internal/extract"
	"github.com/joseph-ayodele/pagemeta/internal/modelsvc"
	"github.com/joseph-ayodele/pagemeta/internal/pdfinfo"
	"github.com/joseph-ayodele/pagemeta/internal/window"
)

// Deps carries the backends the stages run against. Client is the raw model
// client; the orchestrator wraps it with its own cost ledger.
type Deps struct {
	Store     *artifact.Store
	Converter extract.Converter
	Renderer  extract.Renderer
	Client    modelsvc.Client
	// PageCount overrides the PDF page counter; nil means pdfinfo.PageCount.
	PageCount func(path string) (int, error)
	Logger    *slog.Logger
}

// Orchestrator owns one pipeline run: the stage registry, the cost ledger,
// and the fault isolation between stages.
type Orchestrator struct {
	cfg    *common.Config
	log    *slog.Logger
	ledger *modelsvc.CostLedger
	stages map[constants.StageName]Stage
}

func NewOrchestrator(cfg *common.Config, deps Deps) *Orchestrator {
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	pageCount := deps.PageCount
	if pageCount == nil {
		pageCount = pdfinfo.PageCount
	}

	ledger := modelsvc.NewCostLedger()
	client := modelsvc.WithLedger(deps.Client, ledger)

	stages := map[constants.StageName]Stage{
		constants.StageExtract: &ExtractStage{
			Store:        deps.Store,
			Converter:    deps.Converter,
			Renderer:     deps.Renderer,
			PageCount:    pageCount,
			DocumentPath: cfg.DocumentPath,
			MaxPages:     cfg.MaxPages,
			SkipIfExists: cfg.SkipExtractIfExists,
			Log:          log,
		},
		constants.StageTableFix: &TableFixStage{
			Store:       deps.Store,
			Client:      client,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			MaxTokens:   cfg.MaxTokens,
			MaxPages:    cfg.MaxPages,
			Log:         log,
		},
		constants.StageContext: &ContextStage{
			Store:        deps.Store,
			Windows:      window.NewBuilder(deps.Store),
			Client:       client,
			PageCount:    pageCount,
			DocumentPath: cfg.DocumentPath,
			Model:        cfg.Model,
			Temperature:  cfg.Temperature,
			MaxTokens:    cfg.MaxTokens,
			MaxPages:     cfg.MaxPages,
			SkipIfExists: cfg.SkipContextIfExists,
			Log:          log,
		},
		constants.StageEnhance: &EnhanceStage{
			Store:        deps.Store,
			PageCount:    pageCount,
			DocumentPath: cfg.DocumentPath,
			MaxPages:     cfg.MaxPages,
			Log:          log,
		},
		constants.StageTables: &TablesStage{
			Store:       deps.Store,
			Client:      client,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			MaxTokens:   cfg.MaxTokens,
			MaxPages:    cfg.MaxPages,
			Log:         log,
		},
		constants.StageImages: &ImagesStage{
			Store:       deps.Store,
			Client:      client,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			MaxTokens:   cfg.MaxTokens,
			MaxPages:    cfg.MaxPages,
			Log:         log,
		},
	}

	return &Orchestrator{cfg: cfg, log: log, ledger: ledger, stages: stages}
}

// Run executes the selected stages sequentially. An empty selection means
// every stage in dependency order. Unknown names fail validation before
// anything runs; a faulting stage is recorded as its error result and the
// run continues with the next stage.
func (o *Orchestrator) Run(ctx context.Context, names []constants.StageName) (Report, error) {
	selected, err := o.resolve(names)
	if err != nil {
		return Report{}, err
	}

	report := Report{
		RunID:     uuid.New().String(),
		Document:  o.cfg.DocumentPath,
		Model:     o.cfg.Model,
		StartedAt: time.Now(),
	}
	o.log.Info("pipeline.run.start",
		"run_id", report.RunID,
		"document", report.Document,
		"model", report.Model,
		"stages", stageNames(selected),
	)

	for _, name := range selected {
		o.log.Info("pipeline.stage.start", "run_id", report.RunID, "stage", name)
		res := o.runStage(ctx, o.stages[name])
		report.Stages = append(report.Stages, res)
		if res.Status == constants.StatusError {
			o.log.Error("pipeline.stage.error", "run_id", report.RunID, "stage", name, "error", res.Error)
			continue
		}
		o.log.Info("pipeline.stage.done",
			"run_id", report.RunID,
			"stage", name,
			"status", res.Status,
			"processed", res.Processed,
			"failed", res.Failed,
			"skipped", res.Skipped,
			"elapsed_ms", res.ElapsedMS,
		)
	}

	report.Cost = o.ledger.Snapshot()
	report.ElapsedMS = time.Since(report.StartedAt).Milliseconds()
	o.log.Info("pipeline.run.done",
		"run_id", report.RunID,
		"elapsed_ms", report.ElapsedMS,
		"calls", report.Cost.CallCount,
		"total_tokens", report.Cost.TotalTokens,
		"total_cost_usd", report.Cost.TotalCost,
	)
	return report, nil
}

// runStage confines a stage panic to that stage's result.
func (o *Orchestrator) runStage(ctx context.Context, stage Stage) (res StageResult) {
	defer func() {
		if r := recover(); r != nil {
			res = StageResult{
				Stage:  stage.Name(),
				Status: constants.StatusError,
				Error:  fmt.Sprintf("stage panic: %v", r),
			}
		}
	}()
	return stage.Run(ctx)
}

// resolve validates the requested stage names and normalizes them to the
// fixed dependency order, deduplicated. Empty input selects every stage.
func (o *Orchestrator) resolve(names []constants.StageName) ([]constants.StageName, error) {
	if len(names) == 0 {
		return constants.StageOrder, nil
	}
	requested := make(map[constants.StageName]bool, len(names))
	var invalid []string
	for _, n := range names {
		if _, ok := o.stages[n]; !ok {
			invalid = append(invalid, string(n))
			continue
		}
		requested[n] = true
	}
	if len(invalid) > 0 {
		return nil, common.ValidationError("unknown stage name(s): %s (valid stages: %s)",
			strings.Join(invalid, ", "), strings.Join(stageNames(constants.StageOrder), ", "))
	}
	selected := make([]constants.StageName, 0, len(requested))
	for _, n := range constants.StageOrder {
		if requested[n] {
			selected = append(selected, n)
		}
	}
	return selected, nil
}

func stageNames(stages []constants.StageName) []string {
	out := make([]string, len(stages))
	for i, s := range stages {
		out[i] = string(s)
	}
	return out
}
