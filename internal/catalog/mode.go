package catalog

import "strings"

// Mode selects the pH regime whose threshold table applies.
type Mode string

const (
	Alkaline Mode = "Alkaline"
	Neutral  Mode = "Neutral"
)

// DefaultMode matches the selection the operator form starts with.
const DefaultMode = Neutral

// Modes lists every supported pH regime in display order.
func Modes() []Mode { return []Mode{Alkaline, Neutral} }

// Valid reports whether m is one of the supported modes.
func (m Mode) Valid() bool {
	return m == Alkaline || m == Neutral
}

func (m Mode) String() string { return string(m) }

// ParseMode accepts "alkaline", "Neutral", "Alkaline pH" and similar spellings.
func ParseMode(s string) (Mode, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	v = strings.TrimSpace(strings.TrimSuffix(v, "ph"))
	switch v {
	case "alkaline", "alk":
		return Alkaline, nil
	case "neutral", "neu":
		return Neutral, nil
	}
	return "", &ConfigurationError{Reason: "unknown pH mode " + quote(s) + " (use Alkaline or Neutral)"}
}

func quote(s string) string { return "\"" + s + "\"" }
