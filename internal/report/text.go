package report

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/KaramelBytes/effluent-cli/internal/catalog"
	"github.com/KaramelBytes/effluent-cli/internal/engine"
)

// RenderText writes an aligned plain-text table for terminals.
func RenderText(w io.Writer, r *engine.Report) error {
	fmt.Fprintf(w, "%s\n%s\n\n", r.Summary.Verdict.Headline(), r.Summary.Verdict.Advice())
	fmt.Fprintf(w, "Mode: %s pH  Safe: %d  Action: %d  Escalation: %d  Total: %d\n\n",
		r.Mode, r.Summary.Safe, r.Summary.Action, r.Summary.Escalation, r.Summary.Total)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ANALYTE\tCONC (mg/L)\tACTION\tESCALATION\tSTATUS\tx ACTION")
	for _, res := range r.Results {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			res.Analyte, conc(res.Concentration), level(res.ActionLevel), level(res.EscalationLevel),
			res.Status.Label(), engine.Badge(res.Multiplier))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintln(w)
	for _, res := range r.Results {
		if res.Status == engine.Safe {
			continue
		}
		if _, err := fmt.Fprintf(w, "- %s: %s\n", res.Analyte, res.Message); err != nil {
			return err
		}
	}
	return nil
}

// CatalogText writes a threshold table as aligned columns.
func CatalogText(w io.Writer, t *catalog.Table) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "%s pH\n", t.Mode())
	fmt.Fprintln(tw, "ANALYTE\tACTION (mg/L)\tESCALATION (mg/L)")
	for _, th := range t.Thresholds() {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", th.Analyte, engine.FormatLevel(th.ActionLevel), engine.FormatLevel(th.EscalationLevel))
	}
	return tw.Flush()
}
