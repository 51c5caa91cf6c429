// Package measure turns lab result sheets and command-line pairs into
// engine entries, normalising every concentration to mg/L.
package measure

import (
	"fmt"
	"strings"

	"github.com/KaramelBytes/effluent-cli/internal/engine"
	"github.com/KaramelBytes/effluent-cli/internal/tabular"
)

// Entries maps a long-format sheet, one analyte per row, into entries. The
// concentration column may declare a unit in its header ("Concentration (ug/L)")
// and individual cells may carry their own ("0.4 ug/L"), which wins.
// Blank cells leave the field unset; Classify drops such rows later.
func Entries(t *tabular.Table, opt tabular.Options) ([]engine.Entry, error) {
	nameCol, _ := t.Column("analyte", "parameter", "species", "name")
	concCol, colUnit := t.Column("concentration", "conc", "value", "result")
	if nameCol < 0 {
		return nil, fmt.Errorf("%s: missing analyte column", t.Name)
	}
	if concCol < 0 {
		return nil, fmt.Errorf("%s: missing concentration column", t.Name)
	}
	out := make([]engine.Entry, 0, len(t.Rows))
	for i, row := range t.Rows {
		line := i + 2
		var e engine.Entry
		if name := strings.TrimSpace(cell(row, nameCol)); name != "" {
			e.Analyte = &name
		}
		raw := strings.TrimSpace(cell(row, concCol))
		if raw != "" {
			v, err := Concentration(raw, colUnit, opt)
			if err != nil {
				return nil, fmt.Errorf("%s line %d: %w", t.Name, line, err)
			}
			e.Concentration = &v
		}
		if e.Analyte == nil && e.Concentration == nil {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// ParsePairs reads "analyte=value[unit]" arguments such as
// "Mercury (Hg2+)=0.4ug/L" or "chloride=12".
func ParsePairs(args []string, opt tabular.Options) ([]engine.Entry, error) {
	out := make([]engine.Entry, 0, len(args))
	for _, a := range args {
		i := strings.LastIndex(a, "=")
		if i <= 0 {
			return nil, fmt.Errorf("invalid measurement %q (want analyte=value)", a)
		}
		name := strings.TrimSpace(a[:i])
		raw := strings.TrimSpace(a[i+1:])
		if name == "" || raw == "" {
			return nil, fmt.Errorf("invalid measurement %q (want analyte=value)", a)
		}
		v, err := Concentration(raw, "", opt)
		if err != nil {
			return nil, fmt.Errorf("measurement %q: %w", a, err)
		}
		out = append(out, engine.NewEntry(name, v))
	}
	return out, nil
}

// Concentration parses "0.4 ug/L", "12" or "1,5 ppm" into mg/L. defaultUnit
// applies when the value carries none.
func Concentration(raw, defaultUnit string, opt tabular.Options) (float64, error) {
	num, unit := tabular.SplitValueUnit(raw)
	if unit == "" {
		unit = defaultUnit
	}
	v, ok := tabular.ParseNumber(num, opt)
	if !ok {
		return 0, fmt.Errorf("not a number: %q", raw)
	}
	return tabular.ToMilligramsPerLitre(v, unit)
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}
