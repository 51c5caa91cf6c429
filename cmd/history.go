package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var histLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent analysis runs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openHistory()
		if err != nil {
			return err
		}
		if store == nil {
			fmt.Println("History is disabled (set history_enabled: true)")
			return nil
		}
		defer store.Close()
		runs, err := store.Recent(cmd.Context(), histLimit)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Println("No runs recorded yet")
			return nil
		}
		tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "WHEN\tMODE\tSOURCE\tSAFE\tACTION\tESCALATION\tVERDICT")
		for _, r := range runs {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
				r.CreatedAt.Local().Format(time.DateTime), r.Mode, r.Source,
				r.Safe, r.Action, r.Escalation, r.Verdict.Headline())
		}
		return tw.Flush()
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntVarP(&histLimit, "limit", "n", 20, "number of runs to show")
}
