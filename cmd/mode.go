package cmd

import (
	"fmt"

	"github.com/KaramelBytes/effluent-cli/internal/catalog"
	"github.com/spf13/cobra"
)

var modeSession string

var modeCmd = &cobra.Command{
	Use:   "mode [Alkaline|Neutral]",
	Short: "Show or switch the pH mode of a session",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(modeSession)
		if err != nil {
			return err
		}
		if len(args) == 0 {
			fmt.Printf("%s: %s pH\n", s.Name, s.Mode)
			return nil
		}
		mode, err := catalog.ParseMode(args[0])
		if err != nil {
			return err
		}
		table, err := activeTable(mode)
		if err != nil {
			return err
		}
		before := make([]*string, len(s.Entries))
		for i, e := range s.Entries {
			before[i] = e.Analyte
		}
		s.SetMode(table)
		for i, e := range s.Entries {
			if before[i] != nil && e.Analyte == nil {
				fmt.Printf("⚠ Row %d: %s has no %s pH threshold; analyte cleared\n", i+1, *before[i], mode)
			}
		}
		if err := s.Save(); err != nil {
			return err
		}
		fmt.Printf("✓ '%s' now uses %s pH thresholds\n", s.Name, mode)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(modeCmd)
	modeCmd.Flags().StringVarP(&modeSession, "session", "s", "", "session name (default: session in the working directory)")
}
