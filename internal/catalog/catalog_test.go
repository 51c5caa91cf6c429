package catalog_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/KaramelBytes/effluent-cli/internal/catalog"
)

func TestDefaultCatalogInvariants(t *testing.T) {
	c, err := catalog.Default()
	if err != nil {
		t.Fatalf("default: %v", err)
	}
	wantLen := map[catalog.Mode]int{catalog.Alkaline: 15, catalog.Neutral: 21}
	for _, mode := range catalog.Modes() {
		tb, err := c.Resolve(mode)
		if err != nil {
			t.Fatalf("resolve %s: %v", mode, err)
		}
		if tb.Len() != wantLen[mode] {
			t.Errorf("%s: got %d analytes, want %d", mode, tb.Len(), wantLen[mode])
		}
		for _, th := range tb.Thresholds() {
			if th.ActionLevel <= 0 || th.EscalationLevel <= th.ActionLevel {
				t.Errorf("%s/%s: bad levels %v/%v", mode, th.Analyte, th.ActionLevel, th.EscalationLevel)
			}
			if th.Rationale == "" || th.Citation == "" {
				t.Errorf("%s/%s: missing rationale or citation", mode, th.Analyte)
			}
		}
	}
}

func TestDefaultCatalogValues(t *testing.T) {
	c := catalog.MustDefault()
	alk, _ := c.Resolve(catalog.Alkaline)
	neu, _ := c.Resolve(catalog.Neutral)

	cl, ok := alk.Lookup("Chloride (Cl-)")
	if !ok || cl.ActionLevel != 10.0 || cl.EscalationLevel != 50.0 {
		t.Fatalf("alkaline chloride: %+v ok=%v", cl, ok)
	}
	cl, ok = neu.Lookup("Chloride (Cl-)")
	if !ok || cl.ActionLevel != 5.0 || cl.EscalationLevel != 20.0 {
		t.Fatalf("neutral chloride: %+v ok=%v", cl, ok)
	}
	hg, ok := neu.Lookup("Mercury (Hg2+)")
	if !ok || hg.ActionLevel != 0.0005 || hg.EscalationLevel != 0.001 {
		t.Fatalf("neutral mercury: %+v ok=%v", hg, ok)
	}
	if names := alk.Names(); names[0] != "Chloride (Cl-)" || names[len(names)-1] != "Mercury (Hg2+)" {
		t.Fatalf("alkaline order not preserved: %v", names)
	}
	if _, ok := alk.Lookup("Bromide (Br-)"); ok {
		t.Fatalf("bromide is neutral-only")
	}
}

func TestLookupAliases(t *testing.T) {
	tb, _ := catalog.MustDefault().Resolve(catalog.Neutral)
	cases := map[string]string{
		"Chloride (Cl-)":        "Chloride (Cl-)",
		"chloride (cl-)":        "Chloride (Cl-)",
		"Chloride":              "Chloride (Cl-)",
		"  nitrate ":            "Nitrate (NO3- as N)",
		"carbonate/bicarbonate": "Carbonate/Bicarbonate",
		"Sulphide":              "Sulphide (HS-/S2-)",
		"Sulphide (S2-/HS-)":    "Sulphide (HS-/S2-)",
	}
	for in, want := range cases {
		th, ok := tb.Lookup(in)
		if !ok || th.Analyte != want {
			t.Errorf("Lookup(%q) = %q ok=%v, want %q", in, th.Analyte, ok, want)
		}
	}
	if _, ok := tb.Lookup("Unobtainium"); ok {
		t.Errorf("unexpected match for unknown analyte")
	}
}

func TestAmbiguousAliasIsNotRegistered(t *testing.T) {
	c, err := catalog.New(map[catalog.Mode][]catalog.Threshold{
		catalog.Alkaline: {
			{Analyte: "Iron (Fe2+)", ActionLevel: 1, EscalationLevel: 2},
			{Analyte: "Iron (Fe3+)", ActionLevel: 1, EscalationLevel: 3},
		},
		catalog.Neutral: {{Analyte: "Iron", ActionLevel: 1, EscalationLevel: 2}},
	})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	alk, _ := c.Resolve(catalog.Alkaline)
	if _, ok := alk.Lookup("iron"); ok {
		t.Fatalf("ambiguous species alias should not resolve")
	}
	if th, ok := alk.Lookup("iron (fe3+)"); !ok || th.EscalationLevel != 3 {
		t.Fatalf("full-name fold should still resolve: %+v", th)
	}
}

func TestNewRejectsCorruptData(t *testing.T) {
	good := []catalog.Threshold{{Analyte: "X", ActionLevel: 1, EscalationLevel: 2}}
	cases := []struct {
		name string
		data map[catalog.Mode][]catalog.Threshold
	}{
		{"escalation equals action", map[catalog.Mode][]catalog.Threshold{
			catalog.Alkaline: {{Analyte: "Chloride", ActionLevel: 10, EscalationLevel: 10}},
			catalog.Neutral:  good,
		}},
		{"escalation below action", map[catalog.Mode][]catalog.Threshold{
			catalog.Alkaline: good,
			catalog.Neutral:  {{Analyte: "Mercury", ActionLevel: 0.001, EscalationLevel: 0.0005}},
		}},
		{"zero action level", map[catalog.Mode][]catalog.Threshold{
			catalog.Alkaline: {{Analyte: "Y", ActionLevel: 0, EscalationLevel: 1}},
			catalog.Neutral:  good,
		}},
		{"duplicate analyte", map[catalog.Mode][]catalog.Threshold{
			catalog.Alkaline: {good[0], good[0]},
			catalog.Neutral:  good,
		}},
		{"empty name", map[catalog.Mode][]catalog.Threshold{
			catalog.Alkaline: {{Analyte: " ", ActionLevel: 1, EscalationLevel: 2}},
			catalog.Neutral:  good,
		}},
		{"missing mode", map[catalog.Mode][]catalog.Threshold{
			catalog.Alkaline: good,
		}},
		{"unknown mode", map[catalog.Mode][]catalog.Threshold{
			catalog.Alkaline: good,
			catalog.Neutral:  good,
			"Acidic":         good,
		}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := catalog.New(c.data)
			var ce *catalog.ConfigurationError
			if !errors.As(err, &ce) {
				t.Fatalf("expected ConfigurationError, got %v", err)
			}
		})
	}
}

func TestParseMode(t *testing.T) {
	for in, want := range map[string]catalog.Mode{
		"Alkaline":    catalog.Alkaline,
		"alkaline pH": catalog.Alkaline,
		"NEUTRAL":     catalog.Neutral,
		"Neutral pH":  catalog.Neutral,
	} {
		got, err := catalog.ParseMode(in)
		if err != nil || got != want {
			t.Errorf("ParseMode(%q) = %q, %v", in, got, err)
		}
	}
	_, err := catalog.ParseMode("acidic")
	var ce *catalog.ConfigurationError
	if !errors.As(err, &ce) {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}
	if _, err := catalog.MustDefault().Resolve("Acidic"); !errors.As(err, &ce) {
		t.Fatalf("resolve unknown mode: expected ConfigurationError, got %v", err)
	}
}

func TestLoadFileYAMLRejectsCorruptEntry(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "levels.yaml")
	body := `modes:
  Alkaline:
    - analyte: "Chloride (Cl-)"
      action_level: 50
      escalation_level: 10
      rationale: "r"
      citation: "c"
  Neutral:
    - analyte: "Chloride (Cl-)"
      action_level: 5
      escalation_level: 20
      rationale: "r"
      citation: "c"
`
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, err := catalog.LoadFile(p)
	var ce *catalog.ConfigurationError
	if !errors.As(err, &ce) {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}
	if ce.Mode != catalog.Alkaline || ce.Analyte != "Chloride (Cl-)" {
		t.Fatalf("error should name the entry: %+v", ce)
	}
}

func TestLoadFileJSON(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "levels.json")
	body := `{"modes":{"alkaline":[{"analyte":"Chloride (Cl-)","action_level":10,"escalation_level":50,"rationale":"r","citation":"c"}],
"neutral":[{"analyte":"Chloride (Cl-)","action_level":5,"escalation_level":20,"rationale":"r","citation":"c"}]}}`
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	c, err := catalog.LoadFile(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	tb, _ := c.Resolve(catalog.Neutral)
	if th, ok := tb.Lookup("chloride"); !ok || th.ActionLevel != 5 {
		t.Fatalf("unexpected neutral chloride: %+v", th)
	}
}

func TestLoadFileCSVConvertsUnits(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "levels.csv")
	rows := []string{
		"Mode,Analyte,Action Level (ug/L),Escalation Level (ug/L),Why it matters,Citation",
		"Alkaline pH,Mercury (Hg2+),0.5,1,Amalgams,\"Liu et al., 2002\"",
		"",
		"Neutral pH,Mercury (Hg2+),0.5,1,Amalgams,\"Liu et al., 2002\"",
	}
	if err := os.WriteFile(p, []byte(strings.Join(rows, "\n")), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	c, err := catalog.LoadFile(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	tb, _ := c.Resolve(catalog.Alkaline)
	th, ok := tb.Lookup("Mercury (Hg2+)")
	if !ok || th.ActionLevel != 0.0005 || th.EscalationLevel != 0.001 {
		t.Fatalf("unexpected mercury: %+v", th)
	}
	if th.Rationale != "Amalgams" || th.Citation != "Liu et al., 2002" {
		t.Fatalf("text columns not mapped: %+v", th)
	}
}

func TestLoadFileUnsupported(t *testing.T) {
	if _, err := catalog.LoadFile("levels.ini"); err == nil {
		t.Fatalf("expected error for unsupported extension")
	}
}
