package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/KaramelBytes/effluent-cli/internal/catalog"
	"github.com/KaramelBytes/effluent-cli/internal/engine"
)

func sampleReport(t *testing.T) *engine.Report {
	t.Helper()
	tb, err := catalog.MustDefault().Resolve(catalog.Neutral)
	if err != nil {
		t.Fatal(err)
	}
	r, err := engine.Analyze([]engine.Entry{
		engine.NewEntry("Chloride (Cl-)", 1.5),
		engine.NewEntry("Mercury (Hg2+)", 0.0012345678),
	}, tb)
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": Markdown, "markdown": Markdown, "TEXT": Text, "json": JSON} {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseFormat(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseFormat("pdf"); err == nil {
		t.Errorf("expected error for pdf")
	}
}

func TestRenderMarkdown(t *testing.T) {
	md := RenderMarkdown(sampleReport(t))
	for _, want := range []string{
		"## CRITICAL: Production Should Be Stopped",
		"| 1 | 0 | 1 | 2 |",
		"### Mercury (Hg2+): Escalation",
		"- Concentration: 0.001235 mg/L",
		"- Action level: 0.0005 mg/L",
		"- Times action level: 2.5x",
		"Reference: ",
		"| Chloride (Cl-) | 1.500000 | 5.0000 | 20.0000 | 0.0 | OK |",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q\n%s", want, md)
		}
	}
}

func TestRenderText(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, sampleReport(t), Text); err != nil {
		t.Fatalf("write: %v", err)
	}
	out := buf.String()
	if !strings.HasPrefix(out, "CRITICAL: Production Should Be Stopped\n") {
		t.Fatalf("text should open with the verdict:\n%s", out)
	}
	if !strings.Contains(out, "ANALYTE") || !strings.Contains(out, "2.5x") {
		t.Fatalf("text table incomplete:\n%s", out)
	}
	if strings.Contains(out, "- Chloride (Cl-):") {
		t.Fatalf("safe rows should not repeat their message:\n%s", out)
	}
}

func TestRenderJSONKeepsFullPrecision(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, sampleReport(t), JSON); err != nil {
		t.Fatalf("write: %v", err)
	}
	var doc struct {
		RunID    string `json:"run_id"`
		Mode     string `json:"mode"`
		Headline string `json:"headline"`
		Summary  struct {
			Verdict string `json:"verdict"`
		} `json:"summary"`
		Results []struct {
			Concentration float64 `json:"concentration"`
			Status        string  `json:"status"`
		} `json:"results"`
		Chart []struct {
			Badge string `json:"badge"`
		} `json:"chart"`
	}
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("decode: %v\n%s", err, buf.String())
	}
	if doc.RunID == "" || doc.Mode != "Neutral" || doc.Summary.Verdict != "critical_stop" {
		t.Fatalf("unexpected header: %+v", doc)
	}
	if doc.Headline != "CRITICAL: Production Should Be Stopped" {
		t.Fatalf("unexpected headline %q", doc.Headline)
	}
	if len(doc.Results) != 2 || doc.Results[1].Concentration != 0.0012345678 || doc.Results[1].Status != "escalation" {
		t.Fatalf("unexpected results: %+v", doc.Results)
	}
	if len(doc.Chart) != 2 || doc.Chart[1].Badge != "2.5x" {
		t.Fatalf("unexpected chart: %+v", doc.Chart)
	}
}

func TestCatalogRenderers(t *testing.T) {
	tb, _ := catalog.MustDefault().Resolve(catalog.Alkaline)
	md := CatalogMarkdown(tb)
	if !strings.HasPrefix(md, "# Alkaline pH thresholds") || !strings.Contains(md, "| Chloride (Cl-) | 10 | 50 |") {
		t.Fatalf("unexpected catalog markdown:\n%s", md)
	}
	var buf bytes.Buffer
	if err := CatalogText(&buf, tb); err != nil {
		t.Fatal(err)
	}
	if got := strings.Count(buf.String(), "\n"); got != tb.Len()+2 {
		t.Fatalf("expected %d lines, got %d", tb.Len()+2, got)
	}
}
