package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/pagemeta/internal/common"
)

func main() {
	var cfgFile, logLevel, logFormat string

	root := &cobra.Command{
		Use:           "pagemeta",
		Short:         "Extract per-page structural and semantic metadata from PDF documents",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			slog.SetDefault(newLogger(logLevel, logFormat))
		},
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "YAML config file overlaid on env settings")
	root.PersistentFlags().StringVar(&logLevel, "log-level", envOr("PAGEMETA_LOG_LEVEL", "info"), "log level: debug|info|warn|error")
	root.PersistentFlags().StringVar(&logFormat, "log-format", envOr("PAGEMETA_LOG_FORMAT", "text"), "log format: text|json")

	root.AddCommand(runCmd(&cfgFile))
	root.AddCommand(stagesCmd())
	root.AddCommand(reportCmd(&cfgFile))
	root.AddCommand(historyCmd(&cfgFile))

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// newLogger builds the process logger. Logs go to stderr so stdout stays
// clean for command output (the run summary JSON, the stage listing).
func newLogger(level, format string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// loadConfig assembles the effective config: env defaults, then the YAML
// file when one was given.
func loadConfig(cfgFile string) (*common.Config, error) {
	cfg := common.LoadConfig()
	if cfgFile != "" {
		if err := cfg.LoadConfigFile(cfgFile); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}
