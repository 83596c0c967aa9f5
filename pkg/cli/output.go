package cli

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"mercator-hq/riskctl/pkg/assessment"
	"mercator-hq/riskctl/pkg/history"
	"mercator-hq/riskctl/pkg/model"
	"mercator-hq/riskctl/pkg/report"
)

// OutputFormat represents the output format for command results.
type OutputFormat string

const (
	// FormatText is human-readable output (default).
	FormatText OutputFormat = "text"
	// FormatJSON is indented JSON output.
	FormatJSON OutputFormat = "json"
	// FormatYAML is YAML output.
	FormatYAML OutputFormat = "yaml"
	// FormatCSV is CSV output for tabular results.
	FormatCSV OutputFormat = "csv"
)

// Formats lists the accepted --format values.
var Formats = []OutputFormat{FormatText, FormatJSON, FormatYAML, FormatCSV}

// ParseFormat validates a --format value. The empty string selects text.
func ParseFormat(s string) (OutputFormat, error) {
	if s == "" {
		return FormatText, nil
	}
	f := OutputFormat(strings.ToLower(s))
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	return "", NewConfigError("format", fmt.Sprintf("unknown output format %q (use text, json, yaml or csv)", s))
}

// Formatter formats command output.
type Formatter interface {
	FormatTo(w io.Writer, data any) error
}

// TextFormatter renders assessment results with the report package and
// anything else with %v.
type TextFormatter struct{}

// FormatTo writes data to w in text format.
func (f *TextFormatter) FormatTo(w io.Writer, data any) error {
	switch v := data.(type) {
	case *assessment.Evaluation:
		return report.Evaluation(w, v)
	case *assessment.Comparison:
		return report.Comparison(w, v)
	case *assessment.Portfolio:
		return report.Portfolio(w, v)
	case *assessment.ModelInfo:
		return report.ModelInfo(w, v)
	case []*history.Record:
		return report.History(w, v)
	case []model.Revision:
		return report.Revisions(w, v)
	case []model.Warning:
		if len(v) == 0 {
			_, err := fmt.Fprintln(w, "OK: no warnings")
			return err
		}
		return report.Warnings(w, v)
	case []string:
		for _, s := range v {
			if _, err := fmt.Fprintln(w, s); err != nil {
				return err
			}
		}
		return nil
	default:
		_, err := fmt.Fprintf(w, "%v\n", data)
		return err
	}
}

// JSONFormatter formats output as JSON.
type JSONFormatter struct {
	Indent bool
}

// FormatTo writes data to w in JSON format.
func (f *JSONFormatter) FormatTo(w io.Writer, data any) error {
	encoder := json.NewEncoder(w)
	if f.Indent {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(data)
}

// YAMLFormatter formats output as YAML via the value's JSON shape, so field
// names match the JSON output.
type YAMLFormatter struct{}

// FormatTo writes data to w in YAML format.
func (f *YAMLFormatter) FormatTo(w io.Writer, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	var node yaml.Node
	if err := yaml.Unmarshal(raw, &node); err != nil {
		return err
	}
	clearStyle(&node)
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&node); err != nil {
		return err
	}
	return enc.Close()
}

// clearStyle drops the flow style JSON input parses into.
func clearStyle(n *yaml.Node) {
	n.Style = 0
	for _, c := range n.Content {
		clearStyle(c)
	}
}

// CSVFormatter formats tabular results as CSV.
type CSVFormatter struct{}

// FormatTo writes data to w in CSV format. Only portfolios and history
// records are tabular.
func (f *CSVFormatter) FormatTo(w io.Writer, data any) error {
	switch v := data.(type) {
	case []*history.Record:
		return (&history.CSVExporter{IncludeHeader: true}).Export(v, w)
	case *assessment.Portfolio:
		cw := csv.NewWriter(w)
		if err := cw.Write([]string{"system", "derived_controls", "missing_answers", "activated_domains", "domains"}); err != nil {
			return err
		}
		for _, r := range v.Rows {
			if err := cw.Write([]string{
				r.ID,
				strconv.Itoa(r.DerivedControls),
				strconv.Itoa(r.MissingAnswers),
				strconv.Itoa(r.ActivatedDomains),
				strings.Join(r.Domains, ";"),
			}); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()
	default:
		return fmt.Errorf("csv output is not supported for %T", data)
	}
}

// NewFormatter creates a new formatter for the specified format.
func NewFormatter(format OutputFormat) Formatter {
	switch format {
	case FormatJSON:
		return &JSONFormatter{Indent: true}
	case FormatYAML:
		return &YAMLFormatter{}
	case FormatCSV:
		return &CSVFormatter{}
	default:
		return &TextFormatter{}
	}
}
