package formatter

import (
	"fmt"
	"io"

	"github.com/goccy/go-json"

	"github.com/artpar/bizadmin/core/schema"
)

// JSONFormatter formats output as JSON. Records are emitted raw, exactly
// as the backend returned them.
type JSONFormatter struct{}

// NewJSONFormatter creates a new JSON formatter.
func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{}
}

// Name returns the formatter name.
func (f *JSONFormatter) Name() string {
	return "json"
}

// Description returns the formatter description.
func (f *JSONFormatter) Description() string {
	return "JSON output format"
}

// FormatList formats a list of records as JSON.
func (f *JSONFormatter) FormatList(w io.Writer, mod schema.ModuleConfig, records []schema.Record, opts FormatOptions) error {
	data := project(records, opts.Columns)
	if data == nil {
		data = []schema.Record{}
	}
	return f.encode(w, map[string]any{
		"module": mod.Key,
		"count":  len(data),
		"data":   data,
	}, opts.Compact)
}

// FormatRecord formats a single record as JSON.
func (f *JSONFormatter) FormatRecord(w io.Writer, mod schema.ModuleConfig, record schema.Record, opts FormatOptions) error {
	return f.encode(w, map[string]any{
		"module": mod.Key,
		"data":   projectOne(record, opts.Columns),
	}, opts.Compact)
}

// FormatError formats an error as JSON.
func (f *JSONFormatter) FormatError(w io.Writer, err error) error {
	return f.encode(w, map[string]any{"error": err.Error()}, false)
}

func (f *JSONFormatter) encode(w io.Writer, data any, compact bool) error {
	encoder := json.NewEncoder(w)
	if !compact {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(data)
}

func init() {
	if err := Register(NewJSONFormatter()); err != nil {
		fmt.Printf("failed to register json formatter: %v\n", err)
	}
}
