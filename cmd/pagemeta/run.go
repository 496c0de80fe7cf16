package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/pagemeta/constants"
	"github.com/joseph-ayodele/pagemeta/internal/artifact"
	"github.com/joseph-ayodele/pagemeta/internal/common"
	"github.com/joseph-ayodele/pagemeta/internal/extract"
	"github.com/joseph-ayodele/pagemeta/internal/history"
	"github.com/joseph-ayodele/pagemeta/internal/modelsvc"
	"github.com/joseph-ayodele/pagemeta/internal/modelsvc/gemini"
	"github.com/joseph-ayodele/pagemeta/internal/modelsvc/openai"
	"github.com/joseph-ayodele/pagemeta/internal/pipeline"
)

func runCmd(cfgFile *string) *cobra.Command {
	var stages string
	var out string
	var model string
	var maxPages int
	var forceExtract bool
	var forceContext bool
	var noHistory bool

	cmd := &cobra.Command{
		Use:   "run <document.pdf>",
		Short: "Run the metadata pipeline over a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*cfgFile)
			if err != nil {
				return err
			}
			cfg.DocumentPath = args[0]
			if out != "" {
				cfg.OutputDir = out
			}
			if model != "" {
				cfg.Model = model
			}
			if cmd.Flags().Changed("max-pages") {
				cfg.MaxPages = maxPages
			}
			if forceExtract {
				cfg.SkipExtractIfExists = false
			}
			if forceContext {
				cfg.SkipContextIfExists = false
			}
			if noHistory {
				cfg.History.Disabled = true
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			selected, err := parseStageNames(stages)
			if err != nil {
				return err
			}

			logger := slog.Default()
			extractor, err := extract.NewServiceClient(extract.ServiceConfig{
				BaseURL: cfg.Extractor.BaseURL,
				Timeout: cfg.Extractor.Timeout,
			}, logger)
			if err != nil {
				return err
			}
			client, err := buildModelClient(cmd, cfg, logger)
			if err != nil {
				return err
			}

			store := artifact.NewStore(cfg.OutputDir, cfg.DocumentPath)
			orch := pipeline.NewOrchestrator(cfg, pipeline.Deps{
				Store:     store,
				Converter: extractor,
				Renderer:  extractor,
				Client:    client,
				Logger:    logger,
			})

			rep, err := orch.Run(cmd.Context(), selected)
			if err != nil {
				return err
			}

			if !cfg.History.Disabled {
				recordRun(cfg, rep, logger)
			}

			b, err := json.MarshalIndent(rep, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(b))

			if rep.HasErrors() {
				return fmt.Errorf("run %s finished with stage errors", rep.RunID)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&stages, "stages", "", "comma-separated stage subset (default: all, in dependency order)")
	cmd.Flags().StringVarP(&out, "output", "o", "", "artifact output root (default: $PAGEMETA_OUTPUT_DIR or ./output)")
	cmd.Flags().StringVar(&model, "model", "", "provider-prefixed model id, e.g. openai/gpt-4o")
	cmd.Flags().IntVar(&maxPages, "max-pages", 0, "cap page iteration in every stage (0 = all pages)")
	cmd.Flags().BoolVar(&forceExtract, "force-extract", false, "re-extract even when page artifacts already exist")
	cmd.Flags().BoolVar(&forceContext, "force-context", false, "regenerate context metadata even when records already exist")
	cmd.Flags().BoolVar(&noHistory, "no-history", false, "do not record this run in the history database")
	return cmd
}

// parseStageNames splits a --stages value into stage names. Validation of
// the names themselves happens in the orchestrator, which knows the
// registered set.
func parseStageNames(s string) ([]constants.StageName, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var names []constants.StageName
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			return nil, common.ValidationError("empty stage name in --stages %q", s)
		}
		names = append(names, constants.StageName(part))
	}
	return names, nil
}

// buildModelClient registers one provider client per configured credential
// behind the prefix router. Validate has already guaranteed at least one.
func buildModelClient(cmd *cobra.Command, cfg *common.Config, logger *slog.Logger) (modelsvc.Client, error) {
	router := modelsvc.NewRouter()
	if cfg.OpenAI.APIKey != "" {
		c, err := openai.NewClient(openai.Config{
			APIKey:  cfg.OpenAI.APIKey,
			BaseURL: cfg.OpenAI.BaseURL,
			Timeout: cfg.OpenAI.Timeout,
		}, logger)
		if err != nil {
			return nil, err
		}
		router.Register("openai", c)
	}
	if cfg.Gemini.APIKey != "" {
		c, err := gemini.NewClient(cmd.Context(), gemini.Config{APIKey: cfg.Gemini.APIKey}, logger)
		if err != nil {
			return nil, err
		}
		router.Register("gemini", c)
	}
	return router, nil
}

// recordRun persists the report to the history sidecar. History problems
// are logged and swallowed: the run itself already succeeded or failed on
// its own terms.
func recordRun(cfg *common.Config, rep pipeline.Report, logger *slog.Logger) {
	path := cfg.HistoryDBPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		logger.Warn("history.unavailable", "path", path, "error", err)
		return
	}
	hs, err := history.OpenStore(path)
	if err != nil {
		logger.Warn("history.unavailable", "path", path, "error", err)
		return
	}
	defer hs.Close()
	if err := hs.RecordRun(rep); err != nil {
		logger.Warn("history.record_failed", "run_id", rep.RunID, "error", err)
		return
	}
	logger.Info("history.recorded", "run_id", rep.RunID, "path", path)
}
