package catalog

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/effluent-cli/internal/tabular"
	"gopkg.in/yaml.v3"
)

//go:embed data/thresholds.yaml
var builtinThresholds []byte

// document is the on-disk shape shared by the YAML and JSON catalog files.
type document struct {
	Modes map[string][]Threshold `yaml:"modes" json:"modes"`
}

// Default returns the built-in catalog.
func Default() (*Catalog, error) {
	c, err := Decode(builtinThresholds, "yaml")
	if err != nil {
		return nil, fmt.Errorf("built-in catalog: %w", err)
	}
	return c, nil
}

// MustDefault is Default for process start-up, where bad built-in data is fatal.
func MustDefault() *Catalog {
	c, err := Default()
	if err != nil {
		panic(err)
	}
	return c
}

// Decode parses a catalog document in "yaml" or "json" format.
func Decode(data []byte, format string) (*Catalog, error) {
	var doc document
	switch strings.ToLower(format) {
	case "yaml", "yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&doc); err != nil {
			return nil, fmt.Errorf("parse catalog yaml: %w", err)
		}
	case "json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&doc); err != nil {
			return nil, fmt.Errorf("parse catalog json: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported catalog format: %s", format)
	}
	tables := make(map[Mode][]Threshold, len(doc.Modes))
	for key, items := range doc.Modes {
		mode, err := ParseMode(key)
		if err != nil {
			return nil, err
		}
		if _, dup := tables[mode]; dup {
			return nil, &ConfigurationError{Mode: mode, Reason: "mode defined twice"}
		}
		tables[mode] = items
	}
	return New(tables)
}

// LoadFile reads an external catalog. YAML and JSON files use the same schema
// as the built-in data; CSV, TSV and XLSX sheets need one row per threshold
// with mode, analyte, action_level, escalation_level, rationale and citation
// columns. Level columns may declare a unit, e.g. "action_level (ug/L)".
func LoadFile(path string) (*Catalog, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml", ".json":
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read catalog: %w", err)
		}
		return Decode(b, strings.TrimPrefix(ext, "."))
	case ".csv", ".tsv", ".xlsx":
		t, err := tabular.ReadFile(path, tabular.DefaultOptions())
		if err != nil {
			return nil, fmt.Errorf("read catalog sheet: %w", err)
		}
		return FromTable(t, tabular.DefaultOptions())
	default:
		return nil, fmt.Errorf("unsupported catalog file %s (use .yaml, .json, .csv, .tsv or .xlsx)", filepath.Base(path))
	}
}

// FromTable builds a catalog from a threshold sheet.
func FromTable(t *tabular.Table, opt tabular.Options) (*Catalog, error) {
	modeCol, _ := t.Column("mode", "ph_mode", "ph")
	nameCol, _ := t.Column("analyte", "parameter")
	actCol, actUnit := t.Column("action_level", "action")
	escCol, escUnit := t.Column("escalation_level", "escalation")
	whyCol, _ := t.Column("rationale", "why_it_matters")
	citeCol, _ := t.Column("citation", "reference")
	required := []struct {
		col   int
		label string
	}{{modeCol, "mode"}, {nameCol, "analyte"}, {actCol, "action_level"}, {escCol, "escalation_level"}}
	for _, r := range required {
		if r.col < 0 {
			return nil, &ConfigurationError{Reason: fmt.Sprintf("%s: missing %s column", t.Name, r.label)}
		}
	}
	data := map[Mode][]Threshold{}
	for i, row := range t.Rows {
		line := i + 2 // header is line 1
		name := strings.TrimSpace(cell(row, nameCol))
		if name == "" {
			continue
		}
		mode, err := ParseMode(cell(row, modeCol))
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", t.Name, line, err)
		}
		act, err := level(cell(row, actCol), actUnit, opt)
		if err != nil {
			return nil, &ConfigurationError{Mode: mode, Analyte: name, Reason: fmt.Sprintf("line %d: action level: %v", line, err)}
		}
		esc, err := level(cell(row, escCol), escUnit, opt)
		if err != nil {
			return nil, &ConfigurationError{Mode: mode, Analyte: name, Reason: fmt.Sprintf("line %d: escalation level: %v", line, err)}
		}
		data[mode] = append(data[mode], Threshold{
			Analyte:         name,
			ActionLevel:     act,
			EscalationLevel: esc,
			Rationale:       strings.TrimSpace(cell(row, whyCol)),
			Citation:        strings.TrimSpace(cell(row, citeCol)),
		})
	}
	return New(data)
}

func level(raw, unit string, opt tabular.Options) (float64, error) {
	v, ok := tabular.ParseNumber(raw, opt)
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
