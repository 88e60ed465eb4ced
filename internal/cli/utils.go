// Package cli formats Lexsy results for the terminal.
package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/hyperjump/lexsy/internal/models"
	"github.com/hyperjump/lexsy/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat validates a --output flag value.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(s) {
	case "", OutputText:
		return OutputText, nil
	case OutputJSON:
		return OutputJSON, nil
	default:
		return "", fmt.Errorf("invalid output format %q (use text or json)", s)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteAnswer writes an answer and its sources to w.
func WriteAnswer(w io.Writer, answer *models.Answer, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, answer)
	}
	fmt.Fprintf(w, "\n%s\n", answer.Answer)
	if len(answer.Sources) == 0 {
		return nil
	}
	fmt.Fprintln(w, "\nSources:")
	for i, s := range answer.Sources {
		fmt.Fprintf(w, "  %d. %s\n", i+1, describeSource(s))
	}
	return nil
}

func describeSource(s models.Source) string {
	if s.Type == models.SourceEmail {
		return "email: " + s.Subject
	}
	return "document: " + s.Filename
}

// WriteUpload writes a document upload result.
func WriteUpload(w io.Writer, res *models.UploadResult, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, res)
	}
	fmt.Fprintf(w, "%s: %s (record %d)\n", res.Filename, res.Status, res.RecordID)
	return nil
}

// WriteBatch writes an email batch result.
func WriteBatch(w io.Writer, res *models.BatchResult, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, res)
	}
	fmt.Fprintf(w, "Batch %s: %d of %d emails ingested\n", res.BatchID, res.Processed, res.Total)
	writeFailures(w, res.Failures)
	return nil
}

// WriteThread writes a mail thread ingestion result.
func WriteThread(w io.Writer, res *models.ThreadResult, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, res)
	}
	fmt.Fprintf(w, "Thread %s: %d of %d messages ingested\n", res.ThreadID, res.Processed, res.Total)
	if res.UsedFallback {
		fmt.Fprintf(w, "Mail provider unavailable, demonstration thread used: %s\n", utils.OneLine(res.FallbackReason))
	}
	writeFailures(w, res.Failures)
	return nil
}

func writeFailures(w io.Writer, failures []models.ItemFailure) {
	for _, f := range failures {
		subject := f.Subject
		if subject == "" {
			subject = models.UnknownSubject
		}
		fmt.Fprintf(w, "  failed #%d %q [%s]: %s\n", f.Index, subject, f.Kind, utils.Truncate(utils.OneLine(f.Reason), 200))
	}
}
