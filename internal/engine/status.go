package engine

import "fmt"

// Status is the band a concentration falls into for its analyte.
type Status int

const (
	Safe Status = iota
	Action
	Escalation
)

var statusNames = [...]string{"safe", "action", "escalation"}

func (s Status) String() string {
	if s < Safe || s > Escalation {
		return fmt.Sprintf("Status(%d)", int(s))
	}
	return statusNames[s]
}

// Label is the capitalised form shown next to results.
func (s Status) Label() string {
	switch s {
	case Safe:
		return "Safe"
	case Action:
		return "Action"
	case Escalation:
		return "Escalation"
	}
	return s.String()
}

// Severity places the status on a 0..1 scale for colour ramps.
func (s Status) Severity() float64 {
	switch s {
	case Action:
		return 0.5
	case Escalation:
		return 1
	}
	return 0
}

func (s Status) MarshalText() ([]byte, error) {
	if s < Safe || s > Escalation {
		return nil, fmt.Errorf("invalid status %d", int(s))
	}
	return []byte(statusNames[s]), nil
}

func (s *Status) UnmarshalText(b []byte) error {
	for i, n := range statusNames {
		if n == string(b) {
			*s = Status(i)
			return nil
		}
	}
	return fmt.Errorf("unknown status %q", string(b))
}

// Verdict is the plant-level readiness call derived from a run.
type Verdict int

const (
	AllClear Verdict = iota
	CautionRequired
	CriticalStop
)

var verdictNames = [...]string{"all_clear", "caution_required", "critical_stop"}

func (v Verdict) String() string {
	if v < AllClear || v > CriticalStop {
		return fmt.Sprintf("Verdict(%d)", int(v))
	}
	return verdictNames[v]
}

// Headline is the one-line banner for the verdict.
func (v Verdict) Headline() string {
	switch v {
	case CriticalStop:
		return "CRITICAL: Production Should Be Stopped"
	case CautionRequired:
		return "CAUTION: Action Required"
	default:
		return "ALL CLEAR: Safe for Production"
	}
}

// Advice expands the headline into operator guidance.
func (v Verdict) Advice() string {
	switch v {
	case CriticalStop:
		return "One or more analytes have reached escalation levels. Green hydrogen production should be halted until wastewater treatment addresses these concentrations."
	case CautionRequired:
		return "One or more analytes have reached action levels. Monitor closely and consider treatment to prevent escalation."
	default:
		return "All analytes are within safe limits. Your wastewater is suitable for green hydrogen production."
	}
}

func (v Verdict) MarshalText() ([]byte, error) {
	if v < AllClear || v > CriticalStop {
		return nil, fmt.Errorf("invalid verdict %d", int(v))
	}
	return []byte(verdictNames[v]), nil
}

func (v *Verdict) UnmarshalText(b []byte) error {
	for i, n := range verdictNames {
		if n == string(b) {
			*v = Verdict(i)
			return nil
		}
	}
	return fmt.Errorf("unknown verdict %q", string(b))
}
