package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/pagemeta/constants"
)

var stageDescriptions = map[constants.StageName]string{
	constants.StageExtract:  "render page images and extract tables, figures and text",
	constants.StageTableFix: "reconcile extracted table HTML against the table image",
	constants.StageContext:  "generate per-page context metadata from a three-page window",
	constants.StageEnhance:  "fold structural flags and counts into context metadata",
	constants.StageTables:   "describe each table and attach its metadata record",
	constants.StageImages:   "describe each figure and correlate it with page elements",
}

func stagesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stages",
		Short: "List pipeline stages in execution order",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, name := range constants.StageOrder {
				fmt.Fprintf(w, "%s\t%s\n", name, stageDescriptions[name])
			}
			w.Flush()
		},
	}
}
