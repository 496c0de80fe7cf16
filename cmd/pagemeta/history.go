package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/pagemeta/internal/history"
)

func historyCmd(cfgFile *string) *cobra.Command {
	var limit int
	var stem string

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent pipeline runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*cfgFile)
			if err != nil {
				return err
			}

			path := cfg.HistoryDBPath()
			if _, err := os.Stat(path); err != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "no run history at %s\n", path)
				return nil
			}
			hs, err := history.OpenStore(path)
			if err != nil {
				return err
			}
			defer hs.Close()

			var runs []*history.Run
			if stem != "" {
				runs, err = hs.ListRunsForStem(stem, limit)
			} else {
				runs, err = hs.ListRuns(limit)
			}
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no runs recorded")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "STARTED\tRUN ID\tDOCUMENT\tMODEL\tCALLS\tCOST\tSTAGES")
			for _, r := range runs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t$%.4f\t%s\n",
					r.StartedAt, r.ID, r.Stem, r.Model, r.CallCount, r.TotalCost, r.StageSummary())
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of runs to list (0 = all)")
	cmd.Flags().StringVar(&stem, "document", "", "only list runs for this document stem")
	return cmd
}
