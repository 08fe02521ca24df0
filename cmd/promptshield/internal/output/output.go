// Package output formats CLI results for the promptshield command,
// grounded on the teacher's cmd/gibson/internal output package: a small
// Formatter interface with text and JSON implementations, selected by the
// --output global flag.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"

	"github.com/roshinpv1/promptshield/internal/model"
)

// Format is the CLI output format.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// Formatter prints command results to a writer.
type Formatter interface {
	PrintSuccess(message string) error
	PrintError(message string) error
	PrintTable(headers []string, rows [][]string) error
	PrintJSON(data any) error
}

// TextFormatter is the default human-readable formatter.
type TextFormatter struct {
	writer io.Writer
}

// NewTextFormatter builds a TextFormatter writing to w (os.Stdout if nil).
func NewTextFormatter(w io.Writer) *TextFormatter {
	if w == nil {
		w = os.Stdout
	}
	return &TextFormatter{writer: w}
}

func (f *TextFormatter) PrintSuccess(message string) error {
	_, err := fmt.Fprintf(f.writer, "%s %s\n", color.GreenString("✓"), message)
	return err
}

func (f *TextFormatter) PrintError(message string) error {
	_, err := fmt.Fprintf(f.writer, "%s %s\n", color.RedString("✗"), message)
	return err
}

func (f *TextFormatter) PrintTable(headers []string, rows [][]string) error {
	tw := tabwriter.NewWriter(f.writer, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	upper := make([]string, len(headers))
	for i, h := range headers {
		upper[i] = strings.ToUpper(h)
	}
	if _, err := fmt.Fprintln(tw, strings.Join(upper, "\t")); err != nil {
		return err
	}
	for _, row := range rows {
		if _, err := fmt.Fprintln(tw, strings.Join(row, "\t")); err != nil {
			return err
		}
	}
	return nil
}

func (f *TextFormatter) PrintJSON(data any) error {
	enc := json.NewEncoder(f.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

// JSONFormatter wraps every command result in a uniform JSON envelope.
type JSONFormatter struct {
	writer io.Writer
}

// NewJSONFormatter builds a JSONFormatter writing to w (os.Stdout if nil).
func NewJSONFormatter(w io.Writer) *JSONFormatter {
	if w == nil {
		w = os.Stdout
	}
	return &JSONFormatter{writer: w}
}

func (f *JSONFormatter) PrintSuccess(message string) error {
	return f.PrintJSON(map[string]any{"status": "success", "message": message})
}

func (f *JSONFormatter) PrintError(message string) error {
	return f.PrintJSON(map[string]any{"status": "error", "message": message})
}

func (f *JSONFormatter) PrintTable(headers []string, rows [][]string) error {
	data := make([]map[string]string, 0, len(rows))
	for _, row := range rows {
		m := make(map[string]string, len(headers))
		for i, h := range headers {
			if i < len(row) {
				m[h] = row[i]
			}
		}
		data = append(data, m)
	}
	return f.PrintJSON(map[string]any{"headers": headers, "data": data})
}

func (f *JSONFormatter) PrintJSON(data any) error {
	enc := json.NewEncoder(f.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

// New builds the Formatter for format, writing to w.
func New(format Format, w io.Writer) Formatter {
	switch format {
	case FormatJSON:
		return NewJSONFormatter(w)
	default:
		return NewTextFormatter(w)
	}
}

// SeverityColor returns the color a Finding severity renders in under the
// text formatter, matching the teacher's getSeverityColor bracket scheme.
func SeverityColor(s model.Severity) *color.Color {
	switch s {
	case model.SeverityCritical:
		return color.New(color.FgRed, color.Bold)
	case model.SeverityHigh:
		return color.New(color.FgRed)
	case model.SeverityMedium:
		return color.New(color.FgYellow)
	case model.SeverityLow:
		return color.New(color.FgCyan)
	case model.SeverityInfo:
		return color.New(color.FgWhite)
	default:
		return color.New(color.Reset)
	}
}

// ColorSeverity renders s through SeverityColor.
func ColorSeverity(s model.Severity) string {
	return SeverityColor(s).Sprint(string(s))
}

// DriftSeverityColor is SeverityColor's drift-scale counterpart (no "info"
// level, spec.md §3).
func DriftSeverityColor(s model.DriftSeverity) *color.Color {
	switch s {
	case model.DriftCritical:
		return color.New(color.FgRed, color.Bold)
	case model.DriftHigh:
		return color.New(color.FgRed)
	case model.DriftMedium:
		return color.New(color.FgYellow)
	case model.DriftLow:
		return color.New(color.FgCyan)
	default:
		return color.New(color.Reset)
	}
}

// ColorDriftSeverity renders s through DriftSeverityColor.
func ColorDriftSeverity(s model.DriftSeverity) string {
	return DriftSeverityColor(s).Sprint(string(s))
}
