package cmd

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/KaramelBytes/effluent-cli/internal/catalog"
	"github.com/KaramelBytes/effluent-cli/internal/engine"
	"github.com/KaramelBytes/effluent-cli/internal/measure"
	"github.com/KaramelBytes/effluent-cli/internal/session"
	"github.com/KaramelBytes/effluent-cli/internal/tabular"
	"github.com/spf13/cobra"
)

var (
	entrySession      string
	entrySetAnalyte   string
	entrySetConc      string
	entryUnsetAnalyte bool
	entryUnsetConc    bool
	entryAvailable    bool
)

var entryCmd = &cobra.Command{
	Use:   "entry",
	Short: "Edit the measurement rows of a session",
}

var entryAddCmd = &cobra.Command{
	Use:   "add [analyte] [concentration]",
	Short: "Append a row (blank when no arguments are given)",
	Args:  cobra.MaximumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, table, err := openSessionTable(entrySession)
		if err != nil {
			return err
		}
		var e engine.Entry
		if len(args) > 0 {
			name := args[0]
			e.Analyte = &name
		}
		if len(args) > 1 {
			v, err := measure.Concentration(args[1], "", tabular.Options{})
			if err != nil {
				return err
			}
			e.Concentration = &v
		}
		if err := s.AddRow(e, table); err != nil {
			return err
		}
		if err := s.Save(); err != nil {
			return err
		}
		fmt.Printf("✓ Added row %d to '%s'\n", len(s.Entries), s.Name)
		return nil
	},
}

var entrySetCmd = &cobra.Command{
	Use:   "set <row>",
	Short: "Change the analyte and/or concentration of a row (1-based)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, table, err := openSessionTable(entrySession)
		if err != nil {
			return err
		}
		i, err := rowIndex(args[0], len(s.Entries))
		if err != nil {
			return err
		}
		e := s.Entries[i]
		if cmd.Flags().Changed("analyte") {
			name := entrySetAnalyte
			e.Analyte = &name
		}
		if entryUnsetAnalyte {
			e.Analyte = nil
		}
		if cmd.Flags().Changed("conc") {
			v, err := measure.Concentration(entrySetConc, "", tabular.Options{})
			if err != nil {
				return err
			}
			e.Concentration = &v
		}
		if entryUnsetConc {
			e.Concentration = nil
		}
		if err := s.SetRow(i, e, table); err != nil {
			return err
		}
		if err := s.Save(); err != nil {
			return err
		}
		fmt.Printf("✓ Updated row %d: %s\n", i+1, describeEntry(s.Entries[i]))
		return nil
	},
}

var entryRemoveCmd = &cobra.Command{
	Use:   "remove <row>",
	Short: "Remove a row (1-based); the last row cannot be removed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(entrySession)
		if err != nil {
			return err
		}
		i, err := rowIndex(args[0], len(s.Entries))
		if err != nil {
			return err
		}
		if err := s.RemoveRow(i); err != nil {
			if errors.Is(err, session.ErrLastRow) {
				return fmt.Errorf("'%s' has only one row; use 'entry clear' to reset it", s.Name)
			}
			return err
		}
		if err := s.Save(); err != nil {
			return err
		}
		fmt.Printf("✓ Removed row %d from '%s'\n", i+1, s.Name)
		return nil
	},
}

var entryClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Reset a session to a single blank row",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(entrySession)
		if err != nil {
			return err
		}
		s.Clear()
		if err := s.Save(); err != nil {
			return err
		}
		fmt.Printf("✓ Cleared '%s'\n", s.Name)
		return nil
	},
}

var entryListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show the rows of a session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, table, err := openSessionTable(entrySession)
		if err != nil {
			return err
		}
		fmt.Printf("%s (%s pH)\n", s.Name, s.Mode)
		for i, e := range s.Entries {
			fmt.Printf("%d. %s\n", i+1, describeEntry(e))
		}
		if entryAvailable {
			fmt.Println("\nAvailable analytes:")
			for _, name := range s.Available(table, -1) {
				fmt.Printf("- %s\n", name)
			}
		}
		return nil
	},
}

// openSessionTable loads a session with the threshold table for its mode.
func openSessionTable(name string) (*session.Session, *catalog.Table, error) {
	s, err := openSession(name)
	if err != nil {
		return nil, nil, err
	}
	table, err := activeTable(s.Mode)
	if err != nil {
		return nil, nil, err
	}
	return s, table, nil
}

func rowIndex(arg string, rows int) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(arg))
	if err != nil || n < 1 || n > rows {
		return 0, fmt.Errorf("invalid row %q (have %d row(s))", arg, rows)
	}
	return n - 1, nil
}

func describeEntry(e engine.Entry) string {
	analyte := "(no analyte)"
	if e.Analyte != nil {
		analyte = *e.Analyte
	}
	conc := "(no concentration)"
	if e.Concentration != nil {
		conc = engine.FormatLevel(*e.Concentration) + " mg/L"
	}
	return analyte + ": " + conc
}

func init() {
	rootCmd.AddCommand(entryCmd)
	entryCmd.PersistentFlags().StringVarP(&entrySession, "session", "s", "", "session name (default: session in the working directory)")
	entryCmd.AddCommand(entryAddCmd, entrySetCmd, entryRemoveCmd, entryClearCmd, entryListCmd)

	entrySetCmd.Flags().StringVar(&entrySetAnalyte, "analyte", "", "analyte name")
	entrySetCmd.Flags().StringVar(&entrySetConc, "conc", "", "concentration, e.g. 12, 0.4ug/L or \"1,5 ppm\"")
	entrySetCmd.Flags().BoolVar(&entryUnsetAnalyte, "unset-analyte", false, "clear the analyte")
	entrySetCmd.Flags().BoolVar(&entryUnsetConc, "unset-conc", false, "clear the concentration")
	entryListCmd.Flags().BoolVar(&entryAvailable, "available", false, "also list analytes not yet selected")
}
