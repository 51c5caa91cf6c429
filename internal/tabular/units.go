package tabular

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var unitPatterns = []struct {
	re   *regexp.Regexp
	pick int
}{
	{regexp.MustCompile(`^(.*)\s*\(([^)]+)\)\s*$`), 2},  // e.g., Concentration (mg/L)
	{regexp.MustCompile(`^(.*)\s*\[([^\]]+)\]\s*$`), 2}, // e.g., Concentration [ug/L]
	{regexp.MustCompile(`(?i)^(.*?)[_\s-]+(mg/L|g/L|ug/L|µg/L|μg/L|ng/L|ppm|ppb)$`), 2},
}

// HeaderKey normalises a column header into a lookup key and its unit:
// "Action Level (mg/L)" -> ("action_level", "mg/L").
func HeaderKey(header string) (key string, unit string) {
	s := strings.TrimSpace(header)
	for _, p := range unitPatterns {
		if m := p.re.FindStringSubmatch(s); len(m) >= 3 {
			base := strings.TrimSpace(m[1])
			u := strings.TrimSpace(m[p.pick])
			if base != "" && u != "" {
				s, unit = base, u
				break
			}
		}
	}
	key = strings.ToLower(s)
	key = strings.NewReplacer(" ", "_", "-", "_", ".", "").Replace(key)
	return key, unit
}

// ToMilligramsPerLitre converts a concentration expressed in unit to mg/L.
// An empty unit is taken to be mg/L already.
func ToMilligramsPerLitre(x float64, unit string) (float64, error) {
	switch normUnit(unit) {
	case "", "mg/l", "ppm":
		return x, nil
	case "g/l":
		return x * 1000, nil
	case "ug/l", "ppb":
		return x / 1000, nil
	case "ng/l":
		return x / 1e6, nil
	default:
		return 0, fmt.Errorf("unsupported unit %q (use mg/L, g/L, ug/L, ng/L, ppm or ppb)", unit)
	}
}

func normUnit(u string) string {
	u = strings.ToLower(strings.TrimSpace(u))
	u = strings.ReplaceAll(u, "µ", "u")
	u = strings.ReplaceAll(u, "μ", "u")
	return strings.ReplaceAll(u, " ", "")
}

var valueWithUnit = regexp.MustCompile(`^\s*([-+0-9.,eE\s]*[0-9])\s*([a-zA-Zµμ/]+)?\s*$`)

// SplitValueUnit separates "0.5 ug/L" into "0.5" and "ug/L".
func SplitValueUnit(s string) (value string, unit string) {
	m := valueWithUnit.FindStringSubmatch(s)
	if m == nil {
		return strings.TrimSpace(s), ""
	}
	return strings.TrimSpace(m[1]), m[2]
}

// ParseNumber parses a numeric cell, honouring locale separators. Empty or
// unparseable input reports ok=false.
func ParseNumber(s string, opt Options) (float64, bool) {
	raw := strings.ReplaceAll(s, "\u00A0", " ")
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	dec := opt.DecimalSeparator
	thou := opt.ThousandsSeparator
	// An explicit ',' or '.' thousands separator fixes the decimal one.
	if dec == 0 {
		switch thou {
		case ',':
			dec = '.'
		case '.':
			dec = ','
		}
	}
	if dec == 0 {
		cpos := strings.LastIndex(raw, ",")
		dpos := strings.LastIndex(raw, ".")
		switch {
		case cpos >= 0 && dpos >= 0 && cpos > dpos:
			dec, thou = ',', '.'
		case cpos >= 0 && dpos >= 0:
			dec, thou = '.', ','
		case cpos >= 0:
			dec = ','
		default:
			dec = '.'
		}
	}
	if thou == 0 {
		for _, sep := range []rune{',', '.', ' '} {
			if sep != dec {
				raw = strings.ReplaceAll(raw, string(sep), "")
			}
		}
	} else if thou != dec {
		raw = strings.ReplaceAll(raw, string(thou), "")
	}
	if dec != '.' {
		raw = strings.ReplaceAll(raw, string(dec), ".")
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
