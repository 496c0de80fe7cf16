package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/pagemeta/internal/artifact"
	"github.com/joseph-ayodele/pagemeta/internal/history"
	"github.com/joseph-ayodele/pagemeta/internal/report"
)

func reportCmd(cfgFile *string) *cobra.Command {
	var out string
	var xlsxPath string

	cmd := &cobra.Command{
		Use:   "report <document.pdf|stem>",
		Short: "Export an XLSX workbook describing a document's extracted pages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*cfgFile)
			if err != nil {
				return err
			}
			if out != "" {
				cfg.OutputDir = out
			}

			logger := slog.Default()
			store := artifact.NewStore(cfg.OutputDir, args[0])

			var lister report.RunLister
			if !cfg.History.Disabled {
				if hs := openHistoryIfPresent(cfg.HistoryDBPath(), logger); hs != nil {
					defer hs.Close()
					lister = hs
				}
			}

			svc := report.NewService(store, lister, logger)
			data, err := svc.ExportXLSX(cmd.Context())
			if err != nil {
				return err
			}

			if xlsxPath == "" {
				xlsxPath = filepath.Join(cfg.OutputDir, store.Stem()+"_report.xlsx")
			}
			if err := os.WriteFile(xlsxPath, data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", xlsxPath, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "report written to %s\n", xlsxPath)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "artifact output root (default: $PAGEMETA_OUTPUT_DIR or ./output)")
	cmd.Flags().StringVar(&xlsxPath, "xlsx", "", "workbook destination (default: <output root>/<stem>_report.xlsx)")
	return cmd
}

// openHistoryIfPresent opens the history database only when its file already
// exists; a report must never create one.
func openHistoryIfPresent(path string, logger *slog.Logger) *history.Store {
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	hs, err := history.OpenStore(path)
	if err != nil {
		logger.Warn("history.unavailable", "path", path, "error", err)
		return nil
	}
	return hs
}
