// Package catalog holds the per-analyte action and escalation levels for each
// pH regime. A Catalog is validated once when it is built and is read-only
// afterwards, so it can be shared freely between requests.
package catalog

import (
	"fmt"
	"math"
	"regexp"
	"strings"
)

// Threshold is one analyte's pair of limits (mg/L) with the reason it matters
// and the literature reference backing it.
type Threshold struct {
	Analyte         string  `yaml:"analyte" json:"analyte"`
	ActionLevel     float64 `yaml:"action_level" json:"action_level"`
	EscalationLevel float64 `yaml:"escalation_level" json:"escalation_level"`
	Rationale       string  `yaml:"rationale" json:"rationale"`
	Citation        string  `yaml:"citation" json:"citation"`
}

// Table is the ordered set of thresholds for a single mode.
type Table struct {
	mode  Mode
	items []Threshold
	exact map[string]int
	fold  map[string]int
}

// Mode returns the pH regime the table belongs to.
func (t *Table) Mode() Mode { return t.mode }

// Len returns the number of analytes in the table.
func (t *Table) Len() int { return len(t.items) }

// Thresholds returns a copy of the table in its declared order.
func (t *Table) Thresholds() []Threshold {
	out := make([]Threshold, len(t.items))
	copy(out, t.items)
	return out
}

// Names returns the analyte names in declared order.
func (t *Table) Names() []string {
	out := make([]string, len(t.items))
	for i, th := range t.items {
		out[i] = th.Analyte
	}
	return out
}

// Lookup resolves an analyte name. Exact names win; otherwise the match is
// case-insensitive and also accepts the species name without its formula,
// e.g. "chloride" for "Chloride (Cl-)".
func (t *Table) Lookup(name string) (Threshold, bool) {
	if t == nil {
		return Threshold{}, false
	}
	name = strings.TrimSpace(name)
	if i, ok := t.exact[name]; ok {
		return t.items[i], true
	}
	if i, ok := t.fold[foldKey(name)]; ok {
		return t.items[i], true
	}
	// "Sulphide (S2-/HS-)" still finds "Sulphide (HS-/S2-)".
	if sp := species(name); sp != "" {
		if i, ok := t.fold[foldKey(sp)]; ok {
			return t.items[i], true
		}
	}
	return Threshold{}, false
}

// Catalog maps every supported mode to its threshold table.
type Catalog struct {
	tables map[Mode]*Table
}

// New validates the given data and builds a Catalog. Both modes must be
// present; every record needs positive levels with the escalation level
// strictly above the action level, and names must be unique within a mode.
func New(data map[Mode][]Threshold) (*Catalog, error) {
	c := &Catalog{tables: make(map[Mode]*Table, len(data))}
	for mode := range data {
		if !mode.Valid() {
			return nil, &ConfigurationError{Mode: mode, Reason: "unknown pH mode"}
		}
	}
	for _, mode := range Modes() {
		t, err := newTable(mode, data[mode])
		if err != nil {
			return nil, err
		}
		c.tables[mode] = t
	}
	return c, nil
}

// Resolve returns the table for mode.
func (c *Catalog) Resolve(mode Mode) (*Table, error) {
	if c == nil {
		return nil, &ConfigurationError{Mode: mode, Reason: "catalog not loaded"}
	}
	t, ok := c.tables[mode]
	if !ok {
		return nil, &ConfigurationError{Mode: mode, Reason: "unknown pH mode"}
	}
	return t, nil
}

func newTable(mode Mode, items []Threshold) (*Table, error) {
	if len(items) == 0 {
		return nil, &ConfigurationError{Mode: mode, Reason: "no thresholds defined"}
	}
	t := &Table{
		mode:  mode,
		items: make([]Threshold, 0, len(items)),
		exact: make(map[string]int, len(items)),
		fold:  make(map[string]int, len(items)*2),
	}
	for _, th := range items {
		th.Analyte = strings.TrimSpace(th.Analyte)
		if err := validate(mode, th); err != nil {
			return nil, err
		}
		if _, dup := t.exact[th.Analyte]; dup {
			return nil, &ConfigurationError{Mode: mode, Analyte: th.Analyte, Reason: "duplicate analyte"}
		}
		t.exact[th.Analyte] = len(t.items)
		t.items = append(t.items, th)
	}
	t.buildAliases()
	return t, nil
}

func validate(mode Mode, th Threshold) error {
	if th.Analyte == "" {
		return &ConfigurationError{Mode: mode, Reason: "threshold with empty analyte name"}
	}
	if !finite(th.ActionLevel) || th.ActionLevel <= 0 {
		return &ConfigurationError{Mode: mode, Analyte: th.Analyte,
			Reason: fmt.Sprintf("action level must be a positive number, got %v", th.ActionLevel)}
	}
	if !finite(th.EscalationLevel) || th.EscalationLevel <= 0 {
		return &ConfigurationError{Mode: mode, Analyte: th.Analyte,
			Reason: fmt.Sprintf("escalation level must be a positive number, got %v", th.EscalationLevel)}
	}
	if th.EscalationLevel <= th.ActionLevel {
		return &ConfigurationError{Mode: mode, Analyte: th.Analyte,
			Reason: fmt.Sprintf("escalation level %v must be greater than action level %v", th.EscalationLevel, th.ActionLevel)}
	}
	return nil
}

// buildAliases registers case-folded full names and species names. An alias
// claimed by two analytes is dropped so lookups never guess.
func (t *Table) buildAliases() {
	claims := map[string][]int{}
	for i, th := range t.items {
		keys := []string{foldKey(th.Analyte)}
		if sp := species(th.Analyte); sp != "" && foldKey(sp) != keys[0] {
			keys = append(keys, foldKey(sp))
		}
		for _, k := range keys {
			claims[k] = append(claims[k], i)
		}
	}
	for k, idx := range claims {
		if len(idx) == 1 {
			t.fold[k] = idx[0]
		}
	}
}

var formulaSuffix = regexp.MustCompile(`^(.*?)\s*\([^)]*\)\s*$`)

// species strips a trailing parenthesised formula: "Nitrate (NO3- as N)" -> "Nitrate".
func species(name string) string {
	if m := formulaSuffix.FindStringSubmatch(name); len(m) == 2 {
		return strings.TrimSpace(m[1])
	}
	return ""
}

func foldKey(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

func finite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }
