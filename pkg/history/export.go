package history

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"
)

// Export formats.
const (
	FormatJSON = "json"
	FormatCSV  = "csv"
)

// csvHeader is the column order of CSV exports. The full result JSON is not
// exported to CSV.
var csvHeader = []string{
	"id", "system_id", "model_ref", "model_version", "evaluated_at",
	"activated_domains", "derived_controls", "missing_answers",
}

// JSONExporter writes records as a JSON array.
type JSONExporter struct {
	// Pretty enables indentation.
	Pretty bool
}

// Export writes records to w. An empty slice is written as [].
func (e *JSONExporter) Export(records []*Record, w io.Writer) error {
	if records == nil {
		records = []*Record{}
	}
	enc := json.NewEncoder(w)
	if e.Pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(records); err != nil {
		return NewExportError(FormatJSON, len(records), err)
	}
	return nil
}

// CSVExporter writes records as CSV, one row per record. List columns are
// joined with ';'.
type CSVExporter struct {
	// IncludeHeader includes a header row with column names.
	IncludeHeader bool
}

// Export writes records to w.
func (e *CSVExporter) Export(records []*Record, w io.Writer) error {
	writer := csv.NewWriter(w)

	if e.IncludeHeader {
		if err := writer.Write(csvHeader); err != nil {
			return NewExportError(FormatCSV, len(records), err)
		}
	}
	for _, r := range records {
		row := []string{
			r.ID,
			r.SystemID,
			r.ModelRef,
			r.ModelVersion,
			r.EvaluatedAt.UTC().Format(time.RFC3339),
			strings.Join(r.ActivatedDomains, ";"),
			strings.Join(r.DerivedControls, ";"),
			strings.Join(r.MissingAnswers, ";"),
		}
		if err := writer.Write(row); err != nil {
			return NewExportError(FormatCSV, len(records), err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return NewExportError(FormatCSV, len(records), err)
	}
	return nil
}

// Export writes records to w in the named format.
func Export(format string, records []*Record, w io.Writer) error {
	switch strings.ToLower(format) {
	case FormatJSON, "":
		return (&JSONExporter{Pretty: true}).Export(records, w)
	case FormatCSV:
		return (&CSVExporter{IncludeHeader: true}).Export(records, w)
	default:
		return NewExportError(format, len(records), fmt.Errorf("unsupported format %q (use json or csv)", format))
	}
}
