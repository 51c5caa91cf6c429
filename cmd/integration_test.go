package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/KaramelBytes/effluent-cli/internal/catalog"
	"github.com/KaramelBytes/effluent-cli/internal/engine"
	"github.com/KaramelBytes/effluent-cli/internal/history"
	"github.com/KaramelBytes/effluent-cli/internal/session"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// resetFlags restores every flag in the tree to its default so values and
// Changed state do not leak between invocations.
func resetFlags(c *cobra.Command) {
	reset := func(fl *pflag.Flag) {
		_ = fl.Value.Set(fl.DefValue)
		fl.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

func execute(args ...string) error {
	resetFlags(rootCmd)
	rootCmd.SetArgs(args)
	return rootCmd.Execute()
}

// runCmd is a helper to execute the root command with args.
func runCmd(t *testing.T, args ...string) {
	t.Helper()
	if err := execute(args...); err != nil {
		t.Fatalf("command %v failed: %v", args, err)
	}
}

// runCmdOutput runs args and returns what the command wrote to stdout and stderr.
func runCmdOutput(t *testing.T, args ...string) (string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	defer func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	}()
	runCmd(t, args...)
	return stdout.String(), stderr.String()
}

func runCmdErr(t *testing.T, args ...string) error {
	t.Helper()
	err := execute(args...)
	if err == nil {
		t.Fatalf("command %v: expected an error", args)
	}
	return err
}

// tempHome isolates config, sessions and history under a fresh HOME.
func tempHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	return home
}

func loadSession(t *testing.T, home, name string) *session.Session {
	t.Helper()
	s, err := session.Load(filepath.Join(home, ".effluent", "sessions", name))
	if err != nil {
		t.Fatalf("load session %s: %v", name, err)
	}
	return s
}

func readDocument(t *testing.T, path string) map[string]any {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	var doc map[string]any
	if err := json.Unmarshal(b, &doc); err != nil {
		t.Fatalf("decode %s: %v", path, err)
	}
	return doc
}

func TestCLI_SessionWorkflow(t *testing.T) {
	home := tempHome(t)

	runCmd(t, "init", "plant", "--mode", "Alkaline")
	s := loadSession(t, home, "plant")
	if s.Mode != catalog.Alkaline || len(s.Entries) != 1 {
		t.Fatalf("unexpected new session: mode=%s rows=%d", s.Mode, len(s.Entries))
	}
	// A second init must not clobber the session.
	runCmdErr(t, "init", "plant")

	runCmd(t, "entry", "set", "-s", "plant", "1", "--analyte", "mercury", "--conc", "0.0001")
	runCmd(t, "entry", "add", "-s", "plant", "Chloride (Cl-)", "60")
	// Calcium has no alkaline threshold; duplicates are refused.
	runCmdErr(t, "entry", "add", "-s", "plant", "Calcium (Ca2+)", "1")
	runCmdErr(t, "entry", "add", "-s", "plant", "chloride", "1")

	s = loadSession(t, home, "plant")
	if len(s.Entries) != 2 || *s.Entries[0].Analyte != "Mercury (Hg2+)" || *s.Entries[0].Concentration != 0.0001 {
		t.Fatalf("unexpected rows: %+v", s.Entries)
	}

	out := filepath.Join(home, "plant.json")
	runCmd(t, "analyze", "-s", "plant", "--format", "json", "-o", out)
	doc := readDocument(t, out)
	summary := doc["summary"].(map[string]any)
	if summary["verdict"] != "critical_stop" || summary["escalation"].(float64) != 1 || summary["safe"].(float64) != 1 {
		t.Fatalf("unexpected summary: %v", summary)
	}
	if doc["headline"] != engine.CriticalStop.Headline() {
		t.Fatalf("unexpected headline: %v", doc["headline"])
	}
	if s = loadSession(t, home, "plant"); s.LastRun == nil {
		t.Fatalf("analysis should be stored on the session")
	}

	runCmd(t, "entry", "remove", "-s", "plant", "2")
	if s = loadSession(t, home, "plant"); len(s.Entries) != 1 || s.LastRun != nil {
		t.Fatalf("remove should drop the row and the stale result: rows=%d last=%v", len(s.Entries), s.LastRun)
	}
	runCmdErr(t, "entry", "remove", "-s", "plant", "1")

	runCmd(t, "mode", "Neutral", "-s", "plant")
	if s = loadSession(t, home, "plant"); s.Mode != catalog.Neutral || s.Entries[0].Analyte == nil {
		t.Fatalf("mercury should survive the switch to neutral: %+v", s)
	}

	runCmd(t, "entry", "clear", "-s", "plant")
	if s = loadSession(t, home, "plant"); len(s.Entries) != 1 || s.Entries[0].Complete() {
		t.Fatalf("clear should leave one blank row: %+v", s.Entries)
	}
	// Nothing to classify is a warning, not a failure.
	runCmd(t, "analyze", "-s", "plant")
	runCmd(t, "list")

	store, err := history.Open(filepath.Join(home, ".effluent", "history.db"), nil)
	if err != nil {
		t.Fatalf("open history: %v", err)
	}
	defer store.Close()
	runs, err := store.Recent(context.Background(), 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(runs) != 1 || runs[0].Source != "session:plant" || runs[0].Verdict != engine.CriticalStop {
		t.Fatalf("unexpected history: %+v", runs)
	}
	runCmd(t, "history", "--limit", "5")
}

func TestCLI_AnalyzePairsAndFile(t *testing.T) {
	home := tempHome(t)

	out := filepath.Join(home, "pairs.md")
	runCmd(t, "analyze", "--mode", "Neutral", "--no-history", "-o", out, "Chloride (Cl-)=6", "Bromide=0.01")
	body, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	if !strings.Contains(string(body), engine.CautionRequired.Headline()) {
		t.Fatalf("expected caution verdict in report:\n%s", body)
	}

	csvPath := filepath.Join(home, "lab.csv")
	csv := "Analyte;Concentration (ug/L)\nLead (Pb2+);1\nChloride (Cl-);\n"
	if err := os.WriteFile(csvPath, []byte(csv), 0o644); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	jsonOut := filepath.Join(home, "lab.json")
	runCmd(t, "analyze", "--mode", "Neutral", "-f", csvPath, "--format", "json", "-o", jsonOut)
	doc := readDocument(t, jsonOut)
	results := doc["results"].([]any)
	if len(results) != 1 {
		t.Fatalf("blank concentration rows should be skipped: %v", results)
	}
	if c := results[0].(map[string]any)["concentration"].(float64); c != 0.001 {
		t.Fatalf("ug/L should be converted to mg/L, got %v", c)
	}

	// Zero concentrations produce the warning and no report.
	zeroOut := filepath.Join(home, "zero.md")
	runCmd(t, "analyze", "--no-history", "-o", zeroOut, "Chloride=0")
	if _, err := os.Stat(zeroOut); !os.IsNotExist(err) {
		t.Fatalf("no report expected when nothing is eligible")
	}

	runCmdErr(t, "analyze", "--format", "pdf", "Chloride=1")
	runCmdErr(t, "analyze", "--mode", "Acidic", "Chloride=1")
	runCmdErr(t, "analyze", "Chloride")
}

func TestCLI_CatalogAndConfig(t *testing.T) {
	home := tempHome(t)

	runCmd(t, "catalog", "show", "--mode", "Alkaline", "--format", "md")

	bad := filepath.Join(home, "bad.yaml")
	body := "modes:\n  Alkaline:\n    - {analyte: X, action_level: 2, escalation_level: 1}\n  Neutral:\n    - {analyte: X, action_level: 1, escalation_level: 2}\n"
	if err := os.WriteFile(bad, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	runCmdErr(t, "catalog", "validate", bad)
	runCmdErr(t, "config", "set", "catalog_path", bad)

	runCmd(t, "config", "set", "default_mode", "alkaline")
	runCmd(t, "config", "set", "history_enabled", "false")
	runCmdErr(t, "config", "set", "output_format", "pdf")
	runCmdErr(t, "config", "set", "log_level", "loud")
	runCmdErr(t, "config", "set", "api_key", "x")

	b, err := os.ReadFile(filepath.Join(home, ".effluent", "config.yaml"))
	if err != nil {
		t.Fatalf("read config: %v", err)
	}
	if !strings.Contains(string(b), "default_mode: Alkaline") || !strings.Contains(string(b), "history_enabled: false") {
		t.Fatalf("config not saved:\n%s", b)
	}

	runCmd(t, "init", "alk")
	if s := loadSession(t, home, "alk"); s.Mode != catalog.Alkaline {
		t.Fatalf("default_mode should apply to new sessions, got %s", s.Mode)
	}
	runCmd(t, "analyze", "Chloride=1")
	if _, err := os.Stat(filepath.Join(home, ".effluent", "history.db")); !os.IsNotExist(err) {
		t.Fatalf("history disabled but database created")
	}
}

func TestCLI_AnalyzeJSONStaysParseableWhenRowsAreSkipped(t *testing.T) {
	tempHome(t)

	stdout, stderr := runCmdOutput(t, "analyze", "--format", "json", "--mode", "Alkaline", "--no-history",
		"Chloride (Cl-)=12", "Calcium (Ca2+)=5")
	var doc map[string]any
	if err := json.Unmarshal([]byte(stdout), &doc); err != nil {
		t.Fatalf("stdout is not JSON: %v\n%s", err, stdout)
	}
	if results := doc["results"].([]any); len(results) != 1 {
		t.Fatalf("expected only chloride to be classified: %v", results)
	}
	if !strings.Contains(stderr, `Skipping "Calcium (Ca2+)"`) {
		t.Fatalf("skip notice should go to stderr, got %q", stderr)
	}
}

func TestCLI_AnalyzeThousandsSeparator(t *testing.T) {
	tempHome(t)

	concentration := func(args ...string) float64 {
		t.Helper()
		stdout, _ := runCmdOutput(t, append([]string{"analyze", "--format", "json", "--mode", "Neutral", "--no-history"}, args...)...)
		var doc map[string]any
		if err := json.Unmarshal([]byte(stdout), &doc); err != nil {
			t.Fatalf("decode: %v\n%s", err, stdout)
		}
		return doc["results"].([]any)[0].(map[string]any)["concentration"].(float64)
	}
	if c := concentration("Chloride (Cl-)=1,000"); c != 1 {
		t.Fatalf("auto-detect should read a lone comma as decimal, got %v", c)
	}
	if c := concentration("--thousands", ",", "Chloride (Cl-)=1,000"); c != 1000 {
		t.Fatalf("--thousands , should read 1,000 as 1000, got %v", c)
	}
}
