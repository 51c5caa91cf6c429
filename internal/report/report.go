// Package report renders analysis runs for people and for other programs.
// Numbers are rounded here and nowhere else.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/KaramelBytes/effluent-cli/internal/engine"
)

// Format selects a renderer.
type Format string

const (
	Markdown Format = "md"
	Text     Format = "text"
	JSON     Format = "json"
)

// ParseFormat accepts md/markdown, text/txt and json.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "md", "markdown":
		return Markdown, nil
	case "text", "txt", "table":
		return Text, nil
	case "json":
		return JSON, nil
	}
	return "", fmt.Errorf("unknown output format %q (use md, text or json)", s)
}

// Write renders r to w in format f.
func Write(w io.Writer, r *engine.Report, f Format) error {
	switch f {
	case Markdown:
		_, err := io.WriteString(w, RenderMarkdown(r))
		return err
	case Text:
		return RenderText(w, r)
	case JSON:
		b, err := RenderJSON(r)
		if err != nil {
			return err
		}
		_, err = w.Write(append(b, '\n'))
		return err
	}
	return fmt.Errorf("unknown output format %q", string(f))
}

// Document is the machine-readable form of a run: the report plus the chart series.
type Document struct {
	*engine.Report
	Headline string              `json:"headline"`
	Advice   string              `json:"advice"`
	Chart    []engine.ChartPoint `json:"chart"`
}

// NewDocument wraps r with the derived banner text and chart series.
func NewDocument(r *engine.Report) Document {
	return Document{
		Report:   r,
		Headline: r.Summary.Verdict.Headline(),
		Advice:   r.Summary.Verdict.Advice(),
		Chart:    r.Chart(),
	}
}

// RenderJSON marshals the run as indented JSON at full precision.
func RenderJSON(r *engine.Report) ([]byte, error) {
	b, err := json.MarshalIndent(NewDocument(r), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal report: %w", err)
	}
	return b, nil
}

func conc(v float64) string  { return fmt.Sprintf("%.6f", v) }
func level(v float64) string { return fmt.Sprintf("%.4f", v) }

func safeVal(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/") }
