// Package tabular reads small spreadsheets (CSV, TSV and XLSX) into rows of
// strings and provides the number and unit helpers needed to interpret lab
// result sheets.
package tabular

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Options controls how sheets are read and numbers interpreted.
type Options struct {
	// Delimiter for CSV. If 0, ".tsv" files use tabs and other files are sniffed
	// for ';' before falling back to ','.
	Delimiter rune
	// DecimalSeparator and ThousandsSeparator are auto-detected per value when 0.
	DecimalSeparator   rune
	ThousandsSeparator rune
	// SheetName selects an XLSX sheet; otherwise SheetIndex (1-based) is used.
	SheetName  string
	SheetIndex int
	// MaxRows limits data rows read; 0 means unlimited.
	MaxRows int
}

// DefaultOptions returns reasonable defaults for lab result sheets.
func DefaultOptions() Options {
	return Options{SheetIndex: 1, MaxRows: 10000}
}

// Table is a header row plus data rows. Every row is padded to the header width.
type Table struct {
	Name   string
	Header []string
	Rows   [][]string
}

// ReadFile loads a .csv, .tsv or .xlsx file.
func ReadFile(path string, opt Options) (*Table, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return readXLSX(path, opt)
	case ".csv", ".tsv", ".txt":
		return readCSV(path, opt)
	default:
		return nil, fmt.Errorf("unsupported sheet format: %s", filepath.Base(path))
	}
}

// Column finds the first header matching one of keys and returns its index and
// declared unit. Headers are compared by HeaderKey, so "Concentration (ug/L)"
// matches the key "concentration". The index is -1 when nothing matches.
func (t *Table) Column(keys ...string) (int, string) {
	type parsed struct{ key, unit string }
	hs := make([]parsed, len(t.Header))
	for i, h := range t.Header {
		k, u := HeaderKey(h)
		hs[i] = parsed{k, u}
	}
	for _, want := range keys {
		for i, h := range hs {
			if h.key == want {
				return i, h.unit
			}
		}
	}
	return -1, ""
}

func readCSV(path string, opt Options) (*Table, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	delim := opt.Delimiter
	if delim == 0 {
		delim = sniffDelimiter(path, b)
	}
	r := csv.NewReader(bytes.NewReader(b))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	r.Comma = delim
	t := &Table{Name: filepath.Base(path)}
	header, err := r.Read()
	if err == io.EOF {
		return t, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	t.Header = trimAll(header)
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		if opt.MaxRows > 0 && len(t.Rows) >= opt.MaxRows {
			break
		}
		t.Rows = append(t.Rows, pad(trimAll(rec), len(t.Header)))
	}
	return t, nil
}

func sniffDelimiter(path string, content []byte) rune {
	if strings.HasSuffix(strings.ToLower(path), ".tsv") {
		return '\t'
	}
	first := content
	if i := bytes.IndexByte(content, '\n'); i >= 0 {
		first = content[:i]
	}
	switch {
	case bytes.Count(first, []byte{'\t'}) > 0 && bytes.Count(first, []byte{','}) == 0:
		return '\t'
	case bytes.Count(first, []byte{';'}) > bytes.Count(first, []byte{','}):
		return ';'
	}
	return ','
}

func trimAll(rec []string) []string {
	out := make([]string, len(rec))
	for i, v := range rec {
		out[i] = strings.TrimSpace(v)
	}
	return out
}

func pad(row []string, n int) []string {
	if len(row) >= n {
		return row
	}
	tmp := make([]string, n)
	copy(tmp, row)
	return tmp
}
