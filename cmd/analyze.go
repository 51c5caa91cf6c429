package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/effluent-cli/internal/catalog"
	"github.com/KaramelBytes/effluent-cli/internal/engine"
	"github.com/KaramelBytes/effluent-cli/internal/measure"
	"github.com/KaramelBytes/effluent-cli/internal/report"
	"github.com/KaramelBytes/effluent-cli/internal/tabular"
	"github.com/KaramelBytes/effluent-cli/internal/utils"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	anaSession    string
	anaFile       string
	anaFormat     string
	anaOutputPath string
	anaDelimiter  string
	anaDecimal    string
	anaThousands  string
	anaSheetName  string
	anaSheetIndex int
	anaNoHistory  bool
)

// noEligibleWarning is shown instead of a report when nothing can be classified.
const noEligibleWarning = "⚠ Please select at least one analyte and enter a concentration greater than 0."

var analyzeCmd = &cobra.Command{
	Use:   "analyze [analyte=concentration ...]",
	Short: "Classify measurements and report the production verdict",
	Long: `Classify measurements against the action and escalation levels of the selected pH mode.

Measurements come from one of:
  - analyte=concentration arguments, e.g. "Chloride (Cl-)=12" "mercury=0.4ug/L"
  - --file, a CSV/TSV/XLSX sheet with analyte and concentration columns
  - a session (-s or the session in the working directory), whose result is saved

Numbers are read locale-aware. A value with a single ',' and no '.' is taken as a
decimal comma, so "1,000" means 1.0 mg/L. Pass --thousands ',' (or --decimal) to
read it as 1000.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		opt, err := sheetOptions(anaDelimiter, anaDecimal, anaThousands, anaSheetName, anaSheetIndex)
		if err != nil {
			return err
		}
		format, err := outputFormat(cmd)
		if err != nil {
			return err
		}

		var (
			rep    *engine.Report
			source string
		)
		switch {
		case len(args) > 0 || anaFile != "":
			if anaSession != "" {
				return errors.New("use either measurements/--file or --session, not both")
			}
			rep, source, err = analyzeStateless(args, anaFile, opt, cmd.ErrOrStderr())
		default:
			rep, source, err = analyzeSession(anaSession)
		}
		if errors.Is(err, engine.ErrNoEligibleEntries) {
			fmt.Fprintln(cmd.OutOrStdout(), noEligibleWarning)
			return nil
		}
		if err != nil {
			return err
		}

		if !anaNoHistory {
			recordRun(cmd.Context(), rep, source)
		}
		return emitReport(cmd.OutOrStdout(), rep, format, anaOutputPath)
	},
}

// analyzeStateless classifies pairs and/or a sheet against the selected mode.
// Notices about skipped rows go to notices, never to the report stream.
func analyzeStateless(args []string, file string, opt tabular.Options, notices io.Writer) (*engine.Report, string, error) {
	mode, err := selectedMode()
	if err != nil {
		return nil, "", err
	}
	table, err := activeTable(mode)
	if err != nil {
		return nil, "", err
	}
	entries, err := measure.ParsePairs(args, opt)
	if err != nil {
		return nil, "", err
	}
	source := "cli"
	if file != "" {
		t, err := tabular.ReadFile(file, opt)
		if err != nil {
			return nil, "", err
		}
		fromFile, err := measure.Entries(t, opt)
		if err != nil {
			return nil, "", err
		}
		entries = append(entries, fromFile...)
		source = "file:" + filepath.Base(file)
	}
	for _, e := range entries {
		if e.Analyte != nil {
			if _, ok := table.Lookup(*e.Analyte); !ok {
				fmt.Fprintf(notices, "⚠ Skipping %q: no %s pH threshold\n", *e.Analyte, mode)
			}
		}
	}
	rep, err := engine.Analyze(entries, table)
	return rep, source, err
}

func analyzeSession(name string) (*engine.Report, string, error) {
	s, table, err := openSessionTable(name)
	if err != nil {
		return nil, "", err
	}
	if flagMode != "" {
		if m, err := catalog.ParseMode(flagMode); err == nil && m != s.Mode {
			return nil, "", fmt.Errorf("session '%s' uses %s pH; switch with 'effluent mode %s -s %s'", s.Name, s.Mode, m, s.Name)
		}
	}
	rep, err := s.Analyze(table)
	if serr := s.Save(); serr != nil {
		return nil, "", serr
	}
	return rep, "session:" + s.Name, err
}

// recordRun appends rep to the run history. Failures are logged, not returned.
func recordRun(ctx context.Context, rep *engine.Report, source string) {
	store, err := openHistory()
	if err != nil {
		logger.Warn("history unavailable", zap.Error(err))
		return
	}
	if store == nil {
		return
	}
	defer store.Close()
	if ctx == nil {
		ctx = context.Background()
	}
	if err := store.Record(ctx, rep, source); err != nil {
		logger.Warn("record run failed", zap.String("run_id", rep.RunID), zap.Error(err))
	}
}

func emitReport(w io.Writer, rep *engine.Report, format report.Format, outPath string) error {
	var buf bytes.Buffer
	if err := report.Write(&buf, rep, format); err != nil {
		return err
	}
	if outPath != "" {
		if err := utils.SafeWriteFile(outPath, buf.Bytes()); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
		fmt.Fprintf(w, "✓ Wrote %s report to %s (%s)\n", format, outPath, rep.Summary.Verdict.Headline())
		return nil
	}
	_, err := w.Write(buf.Bytes())
	return err
}

func outputFormat(cmd *cobra.Command) (report.Format, error) {
	if !cmd.Flags().Changed("format") && cfg != nil && cfg.OutputFormat != "" {
		return report.ParseFormat(cfg.OutputFormat)
	}
	return report.ParseFormat(anaFormat)
}

// sheetOptions turns the shared spreadsheet flags into reader options.
func sheetOptions(delimiter, decimal, thousands, sheetName string, sheetIndex int) (tabular.Options, error) {
	opt := tabular.DefaultOptions()
	if delimiter != "" {
		switch delimiter {
		case ",":
			opt.Delimiter = ','
		case "\t", "tab":
			opt.Delimiter = '\t'
		case ";":
			opt.Delimiter = ';'
		default:
			return opt, fmt.Errorf("unsupported --delimiter: %s", delimiter)
		}
	}
	// Locale separators
	switch strings.ToLower(strings.TrimSpace(decimal)) {
	case ",", "comma":
		opt.DecimalSeparator = ','
	case ".", "dot":
		opt.DecimalSeparator = '.'
	case "":
	default:
		return opt, fmt.Errorf("unsupported --decimal: %s (use '.'|'comma')", decimal)
	}
	switch strings.ToLower(strings.TrimSpace(thousands)) {
	case ",":
		opt.ThousandsSeparator = ','
	case ".":
		opt.ThousandsSeparator = '.'
	case "space", " ":
		opt.ThousandsSeparator = ' '
	case "":
	default:
		return opt, fmt.Errorf("unsupported --thousands: %s (use ','|'.'|'space')", thousands)
	}
	opt.SheetName = sheetName
	if sheetIndex > 0 {
		opt.SheetIndex = sheetIndex
	}
	return opt, nil
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().StringVarP(&anaSession, "session", "s", "", "session to analyze (default: session in the working directory)")
	analyzeCmd.Flags().StringVarP(&anaFile, "file", "f", "", "CSV/TSV/XLSX sheet with analyte and concentration columns")
	analyzeCmd.Flags().StringVar(&anaFormat, "format", "md", "output format: md | text | json")
	analyzeCmd.Flags().StringVarP(&anaOutputPath, "output", "o", "", "write the report to this path instead of stdout")
	analyzeCmd.Flags().StringVar(&anaDelimiter, "delimiter", "", "CSV delimiter: ',' | ';' | 'tab'")
	analyzeCmd.Flags().StringVar(&anaDecimal, "decimal", "", "decimal separator for numbers: '.'|'comma' (auto-detect if omitted)")
	analyzeCmd.Flags().StringVar(&anaThousands, "thousands", "", "thousands separator for numbers: ','|'.'|'space' (auto-detect if omitted)")
	analyzeCmd.Flags().StringVar(&anaSheetName, "sheet-name", "", "XLSX: sheet name to read")
	analyzeCmd.Flags().IntVar(&anaSheetIndex, "sheet-index", 1, "XLSX: 1-based sheet index (used if --sheet-name not provided)")
	analyzeCmd.Flags().BoolVar(&anaNoHistory, "no-history", false, "do not record this run in the history log")
}
