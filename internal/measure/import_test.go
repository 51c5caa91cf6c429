package measure

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/KaramelBytes/effluent-cli/internal/tabular"
)

func TestEntriesFromCSV(t *testing.T) {
	rows := []string{
		"Sample,Analyte,Concentration (ug/L)",
		"S1,Mercury (Hg2+),0.4",
		"S1,Chloride (Cl-),12 mg/L",
		"S1,Lead (Pb2+),",
		",,",
		"S1,,3",
	}
	p := filepath.Join(t.TempDir(), "lab.csv")
	if err := os.WriteFile(p, []byte(strings.Join(rows, "\n")), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	tb, err := tabular.ReadFile(p, tabular.DefaultOptions())
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	got, err := Entries(tb, tabular.DefaultOptions())
	if err != nil {
		t.Fatalf("entries: %v", err)
	}
	if len(got) != 4 {
		t.Fatalf("expected 4 entries (blank row skipped), got %d", len(got))
	}
	if *got[0].Analyte != "Mercury (Hg2+)" || math.Abs(*got[0].Concentration-0.0004) > 1e-15 {
		t.Errorf("header unit not applied: %v %v", *got[0].Analyte, *got[0].Concentration)
	}
	if *got[1].Concentration != 12 {
		t.Errorf("cell unit should override header unit, got %v", *got[1].Concentration)
	}
	if got[2].Concentration != nil || got[2].Complete() {
		t.Errorf("blank concentration should stay unset")
	}
	if got[3].Analyte != nil {
		t.Errorf("blank analyte should stay unset")
	}
}

func TestEntriesErrors(t *testing.T) {
	noConc := &tabular.Table{Name: "x.csv", Header: []string{"Analyte", "Note"}}
	if _, err := Entries(noConc, tabular.DefaultOptions()); err == nil {
		t.Fatalf("expected missing column error")
	}
	bad := &tabular.Table{
		Name:   "x.csv",
		Header: []string{"Parameter", "Value"},
		Rows:   [][]string{{"Chloride", "lots"}},
	}
	_, err := Entries(bad, tabular.DefaultOptions())
	if err == nil || !strings.Contains(err.Error(), "line 2") {
		t.Fatalf("expected line-numbered parse error, got %v", err)
	}
}

func TestParsePairs(t *testing.T) {
	got, err := ParsePairs([]string{"Mercury (Hg2+)=0.4ug/L", "chloride = 12", "Lead=0,5 ppb"}, tabular.Options{})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := []struct {
		name string
		conc float64
	}{{"Mercury (Hg2+)", 0.0004}, {"chloride", 12}, {"Lead", 0.0005}}
	for i, w := range want {
		if *got[i].Analyte != w.name || math.Abs(*got[i].Concentration-w.conc) > 1e-15 {
			t.Errorf("pair %d: got %q=%v want %q=%v", i, *got[i].Analyte, *got[i].Concentration, w.name, w.conc)
		}
	}
	for _, bad := range []string{"chloride", "=5", "chloride=", "chloride=5 furlongs"} {
		if _, err := ParsePairs([]string{bad}, tabular.Options{}); err == nil {
			t.Errorf("ParsePairs(%q): expected error", bad)
		}
	}
}
