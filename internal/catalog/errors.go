package catalog

import "fmt"

// ConfigurationError reports threshold data that cannot be used: an unknown pH
// mode, a missing table, or a record that breaks the level invariants.
// It is raised while a catalog is built, never while entries are classified.
type ConfigurationError struct {
	Mode    Mode
	Analyte string
	Reason  string
}

func (e *ConfigurationError) Error() string {
	if e == nil {
		return "catalog configuration error"
	}
	switch {
	case e.Mode != "" && e.Analyte != "":
		return fmt.Sprintf("catalog configuration error: %s/%s: %s", e.Mode, e.Analyte, e.Reason)
	case e.Mode != "":
		return fmt.Sprintf("catalog configuration error: %s: %s", e.Mode, e.Reason)
	default:
		return fmt.Sprintf("catalog configuration error: %s", e.Reason)
	}
}
