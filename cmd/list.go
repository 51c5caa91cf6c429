package cmd

import (
	"fmt"

	"github.com/KaramelBytes/effluent-cli/internal/session"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List measurement sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := defaultSessionsDir()
		if err != nil {
			return err
		}
		sessions, err := session.List(root)
		if err != nil {
			return err
		}
		if len(sessions) == 0 {
			fmt.Println("(no sessions)")
			return nil
		}
		for _, s := range sessions {
			last := "not analyzed"
			if s.LastRun != nil {
				last = s.LastRun.Summary.Verdict.Headline()
			}
			fmt.Printf("- %s: %s pH, %d row(s), %s\n", s.Name, s.Mode, len(s.Entries), last)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}
