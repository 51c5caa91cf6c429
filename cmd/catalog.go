package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/KaramelBytes/effluent-cli/internal/catalog"
	"github.com/KaramelBytes/effluent-cli/internal/report"
	"github.com/spf13/cobra"
)

var catFormat string

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Inspect or validate threshold catalogs",
}

var catalogShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the action and escalation levels for the selected mode",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		mode, err := selectedMode()
		if err != nil {
			return err
		}
		table, err := activeTable(mode)
		if err != nil {
			return err
		}
		f, err := report.ParseFormat(catFormat)
		if err != nil {
			return err
		}
		switch f {
		case report.Text:
			return report.CatalogText(os.Stdout, table)
		case report.JSON:
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(struct {
				Mode       catalog.Mode        `json:"mode"`
				Thresholds []catalog.Threshold `json:"thresholds"`
			}{table.Mode(), table.Thresholds()})
		default:
			fmt.Print(report.CatalogMarkdown(table))
			return nil
		}
	},
}

var catalogValidateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Check a threshold file (.yaml, .json, .csv, .tsv, .xlsx) for errors",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := catalog.LoadFile(args[0])
		if err != nil {
			return err
		}
		for _, mode := range catalog.Modes() {
			t, err := c.Resolve(mode)
			if err != nil {
				return err
			}
			fmt.Printf("✓ %s pH: %d analytes\n", mode, t.Len())
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(catalogCmd)
	catalogCmd.AddCommand(catalogShowCmd)
	catalogCmd.AddCommand(catalogValidateCmd)
	catalogShowCmd.Flags().StringVar(&catFormat, "format", "text", "output format: md | text | json")
}
