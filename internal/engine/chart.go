package engine

import "fmt"

// ChartPoint is the per-analyte series data behind the status strip and the
// concentration-versus-levels chart.
type ChartPoint struct {
	Analyte         string  `json:"analyte"`
	Concentration   float64 `json:"concentration"`
	ActionLevel     float64 `json:"action_level"`
	EscalationLevel float64 `json:"escalation_level"`
	Multiplier      float64 `json:"multiplier"`
	Status          Status  `json:"status"`
	Severity        float64 `json:"severity"`
	Badge           string  `json:"badge"`
}

// Chart returns one point per result in report order.
func (r *Report) Chart() []ChartPoint {
	if r == nil {
		return nil
	}
	out := make([]ChartPoint, 0, len(r.Results))
	for _, res := range r.Results {
		out = append(out, ChartPoint{
			Analyte:         res.Analyte,
			Concentration:   res.Concentration,
			ActionLevel:     res.ActionLevel,
			EscalationLevel: res.EscalationLevel,
			Multiplier:      res.Multiplier,
			Status:          res.Status,
			Severity:        res.Status.Severity(),
			Badge:           Badge(res.Multiplier),
		})
	}
	return out
}

// Badge is "OK" below the action level and the multiplier (e.g. "2.5x") otherwise.
func Badge(multiplier float64) string {
	if multiplier >= 1 {
		return fmt.Sprintf("%.1fx", multiplier)
	}
	return "OK"
}
