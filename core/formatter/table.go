package formatter

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/artpar/bizadmin/core/schema"
)

// TableFormatter formats output as aligned text tables using the module's
// column definitions.
type TableFormatter struct{}

// NewTableFormatter creates a new table formatter.
func NewTableFormatter() *TableFormatter {
	return &TableFormatter{}
}

// Name returns the formatter name.
func (f *TableFormatter) Name() string {
	return "table"
}

// Description returns the formatter description.
func (f *TableFormatter) Description() string {
	return "Aligned text table output"
}

// FormatList formats a list of records as a table.
func (f *TableFormatter) FormatList(w io.Writer, mod schema.ModuleConfig, records []schema.Record, opts FormatOptions) error {
	if len(records) == 0 {
		fmt.Fprintln(w, "No records found.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	columns := f.resolveColumns(mod, opts.Columns)
	cells := opts.cells()

	if !opts.NoHeader {
		headers := make([]string, 0, len(columns)+1)
		headers = append(headers, "ID")
		for _, col := range columns {
			headers = append(headers, strings.ToUpper(col.Title))
		}
		fmt.Fprintln(tw, strings.Join(headers, "\t"))
	}

	for _, record := range records {
		id, ok := record.ID()
		if !ok {
			id = Placeholder
		}
		values := make([]string, 0, len(columns)+1)
		values = append(values, id)
		for _, col := range columns {
			values = append(values, truncate(cells.Format(col, record[col.Key]), opts.MaxWidth))
		}
		fmt.Fprintln(tw, strings.Join(values, "\t"))
	}

	return tw.Flush()
}

// FormatRecord formats a single record as label/value pairs.
func (f *TableFormatter) FormatRecord(w io.Writer, mod schema.ModuleConfig, record schema.Record, opts FormatOptions) error {
	if record == nil {
		fmt.Fprintln(w, "Record not found.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	cells := opts.cells()

	if id, ok := record.ID(); ok {
		fmt.Fprintf(tw, "ID:\t%s\n", id)
	}
	for _, col := range f.resolveColumns(mod, opts.Columns) {
		fmt.Fprintf(tw, "%s:\t%s\n", col.Title, cells.Format(col, record[col.Key]))
	}

	return tw.Flush()
}

// FormatError formats an error message.
func (f *TableFormatter) FormatError(w io.Writer, err error) error {
	fmt.Fprintf(w, "Error: %s\n", err.Error())
	return nil
}

// resolveColumns picks configured columns, optionally restricted to the
// requested keys. Unknown requested keys are shown as text.
func (f *TableFormatter) resolveColumns(mod schema.ModuleConfig, requested []string) []schema.ColumnDef {
	if len(requested) == 0 {
		return mod.Table.Columns
	}
	cols := make([]schema.ColumnDef, 0, len(requested))
	for _, key := range requested {
		if col, ok := mod.Column(key); ok {
			cols = append(cols, col)
			continue
		}
		cols = append(cols, schema.ColumnDef{Key: key, Title: key})
	}
	return cols
}

func truncate(s string, maxWidth int) string {
	if maxWidth > 3 && len(s) > maxWidth {
		return s[:maxWidth-3] + "..."
	}
	return s
}

func init() {
	Register(NewTableFormatter())
}
