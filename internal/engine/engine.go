// Package engine classifies measured concentrations against a threshold table
// and rolls the results up into a plant readiness verdict. Everything here is
// a pure function of its inputs.
package engine

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/KaramelBytes/effluent-cli/internal/catalog"
	"github.com/google/uuid"
)

// ErrNoEligibleEntries is returned by Analyze when no row has both an analyte
// and a concentration above zero. It is a warning for the operator, not a fault.
var ErrNoEligibleEntries = errors.New("select at least one analyte and enter a concentration greater than 0")

// Entry is one row of operator input. Nil fields are unset.
type Entry struct {
	Analyte       *string  `json:"analyte"`
	Concentration *float64 `json:"concentration"`
}

// NewEntry builds a complete entry.
func NewEntry(analyte string, concentration float64) Entry {
	return Entry{Analyte: &analyte, Concentration: &concentration}
}

// BlankEntry is an empty input row.
func BlankEntry() Entry { return Entry{} }

// Complete reports whether both fields are set.
func (e Entry) Complete() bool { return e.Analyte != nil && e.Concentration != nil }

// Result is the classification of one eligible entry. Levels and the
// multiplier are kept at full precision; rounding is left to renderers.
type Result struct {
	Analyte         string  `json:"analyte"`
	Concentration   float64 `json:"concentration"`
	ActionLevel     float64 `json:"action_level"`
	EscalationLevel float64 `json:"escalation_level"`
	Status          Status  `json:"status"`
	Multiplier      float64 `json:"multiplier"`
	Rationale       string  `json:"rationale"`
	Citation        string  `json:"citation"`
	Message         string  `json:"message"`
}

// Summary counts results per status and carries the resulting verdict.
type Summary struct {
	Safe       int     `json:"safe"`
	Action     int     `json:"action"`
	Escalation int     `json:"escalation"`
	Total      int     `json:"total"`
	Verdict    Verdict `json:"verdict"`
}

// Report is one complete analysis run.
type Report struct {
	RunID     string       `json:"run_id"`
	Mode      catalog.Mode `json:"mode"`
	CreatedAt time.Time    `json:"created_at"`
	Results   []Result     `json:"results"`
	Summary   Summary      `json:"summary"`
}

// Classify evaluates every eligible entry against table, preserving order.
// Rows without an analyte, with an analyte the table does not know, without a
// concentration, or with a concentration that is not a finite number above
// zero are skipped without error.
func Classify(entries []Entry, table *catalog.Table) []Result {
	results := make([]Result, 0, len(entries))
	if table == nil {
		return results
	}
	for _, e := range entries {
		th, c, ok := eligible(e, table)
		if !ok {
			continue
		}
		results = append(results, Evaluate(th, c))
	}
	return results
}

func eligible(e Entry, table *catalog.Table) (catalog.Threshold, float64, bool) {
	if e.Analyte == nil || e.Concentration == nil {
		return catalog.Threshold{}, 0, false
	}
	c := *e.Concentration
	if math.IsNaN(c) || math.IsInf(c, 0) || c <= 0 {
		return catalog.Threshold{}, 0, false
	}
	th, ok := table.Lookup(*e.Analyte)
	if !ok {
		return catalog.Threshold{}, 0, false
	}
	return th, c, true
}

// Evaluate classifies a single concentration against its threshold.
func Evaluate(th catalog.Threshold, concentration float64) Result {
	status := StatusFor(concentration, th)
	return Result{
		Analyte:         th.Analyte,
		Concentration:   concentration,
		ActionLevel:     th.ActionLevel,
		EscalationLevel: th.EscalationLevel,
		Status:          status,
		Multiplier:      concentration / th.ActionLevel,
		Rationale:       th.Rationale,
		Citation:        th.Citation,
		Message:         Message(status, th),
	}
}

// StatusFor places c in its band. Reaching a level counts as being in it.
func StatusFor(c float64, th catalog.Threshold) Status {
	switch {
	case c >= th.EscalationLevel:
		return Escalation
	case c >= th.ActionLevel:
		return Action
	default:
		return Safe
	}
}

// Message renders the operator note for a status.
func Message(s Status, th catalog.Threshold) string {
	switch s {
	case Escalation:
		return fmt.Sprintf("ESCALATION LEVEL REACHED: This is serious and green hydrogen production should be stopped. %s Reference: %s", th.Rationale, th.Citation)
	case Action:
		return fmt.Sprintf("ACTION LEVEL REACHED: This could start happening - %s Reference: %s", th.Rationale, th.Citation)
	default:
		return fmt.Sprintf("Concentration is within safe limits (below %s mg/L action level).", FormatLevel(th.ActionLevel))
	}
}

// FormatLevel prints a level with the shortest exact decimal representation.
func FormatLevel(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Aggregate counts results per status. Any escalation forces CriticalStop;
// otherwise any action result gives CautionRequired.
func Aggregate(results []Result) Summary {
	var s Summary
	for _, r := range results {
		switch r.Status {
		case Escalation:
			s.Escalation++
		case Action:
			s.Action++
		default:
			s.Safe++
		}
	}
	s.Total = len(results)
	switch {
	case s.Escalation > 0:
		s.Verdict = CriticalStop
	case s.Action > 0:
		s.Verdict = CautionRequired
	default:
		s.Verdict = AllClear
	}
	return s
}

// Analyze runs Classify and Aggregate as one pass. It returns
// ErrNoEligibleEntries instead of an empty report.
func Analyze(entries []Entry, table *catalog.Table) (*Report, error) {
	results := Classify(entries, table)
	if len(results) == 0 {
		return nil, ErrNoEligibleEntries
	}
	return &Report{
		RunID:     uuid.NewString(),
		Mode:      table.Mode(),
		CreatedAt: time.Now().UTC(),
		Results:   results,
		Summary:   Aggregate(results),
	}, nil
}
