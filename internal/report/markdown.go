package report

import (
	"fmt"
	"strings"

	"github.com/KaramelBytes/effluent-cli/internal/catalog"
	"github.com/KaramelBytes/effluent-cli/internal/engine"
)

// RenderMarkdown renders a standalone Markdown document for one run.
func RenderMarkdown(r *engine.Report) string {
	var b strings.Builder
	b.WriteString("# Electrolyser Feed Water Assessment\n\n")
	b.WriteString(fmt.Sprintf("Run: %s\n", r.RunID))
	b.WriteString(fmt.Sprintf("Mode: %s pH\n", r.Mode))
	b.WriteString(fmt.Sprintf("Created: %s\n\n", r.CreatedAt.Format("2006-01-02 15:04:05 UTC")))

	b.WriteString(fmt.Sprintf("## %s\n\n", r.Summary.Verdict.Headline()))
	b.WriteString(r.Summary.Verdict.Advice())
	b.WriteString("\n\n")

	b.WriteString("## Summary\n\n")
	b.WriteString("| Safe | Action | Escalation | Total |\n")
	b.WriteString("| --- | --- | --- | --- |\n")
	b.WriteString(fmt.Sprintf("| %d | %d | %d | %d |\n\n", r.Summary.Safe, r.Summary.Action, r.Summary.Escalation, r.Summary.Total))

	b.WriteString("## Results\n\n")
	for _, res := range r.Results {
		b.WriteString(fmt.Sprintf("### %s: %s\n\n", safeVal(res.Analyte), res.Status.Label()))
		b.WriteString(fmt.Sprintf("- Concentration: %s mg/L\n", conc(res.Concentration)))
		b.WriteString(fmt.Sprintf("- Action level: %s mg/L\n", level(res.ActionLevel)))
		b.WriteString(fmt.Sprintf("- Escalation level: %s mg/L\n", level(res.EscalationLevel)))
		b.WriteString(fmt.Sprintf("- Times action level: %.1fx\n", res.Multiplier))
		b.WriteString("\n")
		b.WriteString(res.Message)
		b.WriteString("\n\n")
	}

	b.WriteString("## Chart data\n\n")
	b.WriteString("| Analyte | Concentration (mg/L) | Action (mg/L) | Escalation (mg/L) | Severity | Badge |\n")
	b.WriteString("| --- | --- | --- | --- | --- | --- |\n")
	for _, p := range r.Chart() {
		b.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %.1f | %s |\n",
			safeVal(p.Analyte), conc(p.Concentration), level(p.ActionLevel), level(p.EscalationLevel), p.Severity, p.Badge))
	}
	return b.String()
}

// CatalogMarkdown lists a threshold table in declared order.
func CatalogMarkdown(t *catalog.Table) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("# %s pH thresholds\n\n", t.Mode()))
	b.WriteString("| Analyte | Action (mg/L) | Escalation (mg/L) | Why it matters | Reference |\n")
	b.WriteString("| --- | --- | --- | --- | --- |\n")
	for _, th := range t.Thresholds() {
		b.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %s |\n",
			safeVal(th.Analyte), engine.FormatLevel(th.ActionLevel), engine.FormatLevel(th.EscalationLevel),
			safeVal(th.Rationale), safeVal(th.Citation)))
	}
	return b.String()
}
