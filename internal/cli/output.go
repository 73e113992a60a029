package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/pfrederiksen/theatre-alerts/internal/production"
	"github.com/pfrederiksen/theatre-alerts/internal/report"
)

// OutputFormat specifies the output format
type OutputFormat string

const (
	FormatText OutputFormat = "text"
	FormatJSON OutputFormat = "json"
)

// OutputResult contains data to be output
type OutputResult struct {
	GeneratedAt time.Time            `json:"generated_at"`
	RunID       string               `json:"run_id"`
	Source      string               `json:"source"`
	Records     []*production.Record `json:"records"`
	RecordCount int                  `json:"record_count"`
	Errors      []string             `json:"errors,omitempty"`
}

// WriteOutput writes the result in the specified format
func WriteOutput(w io.Writer, result *OutputResult, format OutputFormat, verbose bool) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, result)
	case FormatText:
		return writeText(w, result, verbose)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

// writeJSON outputs results as JSON
func writeJSON(w io.Writer, result *OutputResult) error {
	if result.Records == nil {
		result.Records = []*production.Record{}
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

// writeText outputs results as human-readable text
func writeText(w io.Writer, result *OutputResult, verbose bool) error {
	for _, msg := range result.Errors {
		fmt.Fprintf(w, "ERROR: %s\n", msg)
	}

	if result.RecordCount == 0 {
		fmt.Fprintln(w, "No productions found.")
		return nil
	}

	for _, rec := range result.Records {
		fmt.Fprintln(w, report.Line(rec))
		if verbose {
			fmt.Fprintf(w, "     ID: %s\n", rec.ID)
			fmt.Fprintf(w, "     Source: %s\n", rec.Source)
			if rec.Location != production.UnknownLocation {
				fmt.Fprintf(w, "     Location: %s\n", rec.Location)
			}
			if rec.DistanceMiles != nil {
				fmt.Fprintf(w, "     Distance: %.1f miles\n", *rec.DistanceMiles)
			}
		}
	}

	label := "productions"
	if result.RecordCount == 1 {
		label = "production"
	}
	fmt.Fprintf(w, "\nTotal: %d %s\n", result.RecordCount, label)
	return nil
}
