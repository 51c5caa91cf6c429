package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/KaramelBytes/effluent-cli/internal/engine"
	"github.com/KaramelBytes/effluent-cli/internal/report"
	"github.com/spf13/cobra"
)

var (
	abDelimiter  string
	abDecimal    string
	abThousands  string
	abSheetName  string
	abSheetIndex int
	abMaxRows    int
	abFormat     string
	abOutDir     string
	abNoHistory  bool
	abQuiet      bool
)

var analyzeBatchCmd = &cobra.Command{
	Use:   "analyze-batch <files...>",
	Short: "Analyze multiple CSV/TSV/XLSX result sheets with progress",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		files := expandInputs(args)
		if len(files) == 0 {
			return fmt.Errorf("no input files matched")
		}

		opt, err := sheetOptions(abDelimiter, abDecimal, abThousands, abSheetName, abSheetIndex)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("max-rows") {
			opt.MaxRows = abMaxRows
		}
		format := report.Markdown
		if cmd.Flags().Changed("format") {
			format, err = report.ParseFormat(abFormat)
		} else if cfg != nil && cfg.OutputFormat != "" {
			format, err = report.ParseFormat(cfg.OutputFormat)
		}
		if err != nil {
			return err
		}
		if abOutDir != "" {
			if err := os.MkdirAll(abOutDir, 0o755); err != nil {
				return err
			}
		}

		out := cmd.OutOrStdout()
		notices := cmd.ErrOrStderr()
		if abQuiet {
			notices = io.Discard
		}

		total := len(files)
		var worst engine.Verdict
		for i, path := range files {
			if !abQuiet {
				fmt.Fprintf(out, "[%d/%d] Processing %s...\n", i+1, total, filepath.Base(path))
			}
			rep, _, err := analyzeStateless(nil, path, opt, notices)
			if errors.Is(err, engine.ErrNoEligibleEntries) {
				if !abQuiet {
					fmt.Fprintf(out, "⚠ %s: no classifiable rows, skipped\n", filepath.Base(path))
				}
				continue
			}
			if err != nil {
				return fmt.Errorf("%s: %w", filepath.Base(path), err)
			}
			if !abNoHistory {
				recordRun(cmd.Context(), rep, "file:"+filepath.Base(path))
			}
			if rep.Summary.Verdict > worst {
				worst = rep.Summary.Verdict
			}

			var buf bytes.Buffer
			if err := report.Write(&buf, rep, format); err != nil {
				return err
			}
			if abOutDir == "" {
				if !abQuiet {
					fmt.Fprintln(out, buf.String())
				}
				continue
			}
			outFile := uniqueReportPath(abOutDir, path, format)
			if err := os.WriteFile(outFile, buf.Bytes(), 0o644); err != nil {
				return fmt.Errorf("write report: %w", err)
			}
			if !abQuiet {
				fmt.Fprintf(out, "✓ %s: %s -> %s\n", filepath.Base(path), rep.Summary.Verdict.Headline(), filepath.Base(outFile))
			}
		}
		if !abQuiet {
			fmt.Fprintf(out, "Batch verdict: %s\n", worst.Headline())
		}
		return nil
	},
}

// expandInputs globs each argument, keeps literal paths that exist, and
// returns the de-duplicated list in sorted order.
func expandInputs(args []string) []string {
	var files []string
	seen := map[string]struct{}{}
	for _, arg := range args {
		matches, _ := filepath.Glob(arg)
		if len(matches) == 0 {
			// treat as literal path if exists
			if _, err := os.Stat(arg); err == nil {
				matches = []string{arg}
			}
		}
		for _, m := range matches {
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			files = append(files, m)
		}
	}
	sort.Strings(files)
	return files
}

// uniqueReportPath picks <base>.<ext> in dir, or <base>__N.<ext> when taken.
func uniqueReportPath(dir, input string, f report.Format) string {
	base := filepath.Base(input)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if abSheetName != "" {
		stem += "__sheet-" + slug(abSheetName)
	}
	ext := string(f)
	outFile := filepath.Join(dir, stem+"."+ext)
	if _, statErr := os.Stat(outFile); statErr != nil {
		return outFile
	}
	for idx := 2; ; idx++ {
		cand := filepath.Join(dir, fmt.Sprintf("%s__%d.%s", stem, idx, ext))
		if _, err := os.Stat(cand); os.IsNotExist(err) {
			if !abQuiet {
				fmt.Printf("⚠ Detected existing report, writing to %s to avoid overwrite.\n", filepath.Base(cand))
			}
			return cand
		}
	}
}

func slug(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else if r == ' ' || r == '-' || r == '_' {
			b.WriteRune('-')
		}
	}
	out := strings.Trim(b.String(), "-")
	if out == "" {
		out = "sheet"
	}
	return out
}

func init() {
	rootCmd.AddCommand(analyzeBatchCmd)
	analyzeBatchCmd.Flags().StringVar(&abDelimiter, "delimiter", "", "CSV delimiter: ',' | ';' | 'tab'")
	analyzeBatchCmd.Flags().StringVar(&abDecimal, "decimal", "", "decimal separator for numbers: '.'|'comma' (auto-detect if omitted)")
	analyzeBatchCmd.Flags().StringVar(&abThousands, "thousands", "", "thousands separator for numbers: ','|'.'|'space' (auto-detect if omitted)")
	analyzeBatchCmd.Flags().StringVar(&abSheetName, "sheet-name", "", "XLSX: sheet name to read")
	analyzeBatchCmd.Flags().IntVar(&abSheetIndex, "sheet-index", 1, "XLSX: 1-based sheet index (used if --sheet-name not provided)")
	analyzeBatchCmd.Flags().IntVar(&abMaxRows, "max-rows", 10000, "maximum rows to read per file (0 = unlimited)")
	analyzeBatchCmd.Flags().StringVar(&abFormat, "format", "md", "report format: md | text | json")
	analyzeBatchCmd.Flags().StringVar(&abOutDir, "out-dir", "", "write one report per file into this directory")
	analyzeBatchCmd.Flags().BoolVar(&abNoHistory, "no-history", false, "do not record these runs in the history log")
	analyzeBatchCmd.Flags().BoolVar(&abQuiet, "quiet", false, "suppress progress and non-essential output")
}
