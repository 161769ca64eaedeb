package formatter

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/goccy/go-json"

	"github.com/artpar/bizadmin/core/schema"
)

// Placeholder is rendered for missing values.
const Placeholder = "-"

// DateLayout is the default display layout for date columns.
const DateLayout = "Jan 2, 2006"

// Cells renders raw record values as display strings according to the
// column definition.
type Cells struct {
	// Symbol is the literal currency prefix.
	Symbol string

	// DateLayout is the layout used for date columns.
	DateLayout string

	// Location converts timestamps before display; nil means time.Local.
	Location *time.Location
}

// DefaultCells uses "$" and the process-local time zone.
var DefaultCells = Cells{Symbol: "$", DateLayout: DateLayout}

// NewCells creates a cell formatter with the given currency symbol.
func NewCells(symbol string) Cells {
	c := DefaultCells
	if symbol != "" {
		c.Symbol = symbol
	}
	return c
}

// Format renders one cell.
func (c Cells) Format(col schema.ColumnDef, v any) string {
	switch col.Type {
	case schema.ColumnCurrency:
		return c.Currency(v)
	case schema.ColumnNumber:
		if isMissing(v) {
			return Placeholder
		}
		if f, ok := ToFloat(v); ok {
			return Number(f)
		}
		return Text(v)
	case schema.ColumnDate:
		if isMissing(v) {
			return Placeholder
		}
		return c.Date(v)
	case schema.ColumnArray, schema.ColumnRelation:
		if isMissing(v) {
			return Placeholder
		}
		return Related(v, relationField(col))
	case schema.ColumnText:
		if isMissing(v) {
			return Placeholder
		}
		if col.Relation != nil {
			return Related(v, col.Relation.ValueField)
		}
		return Text(v)
	default:
		panic(fmt.Sprintf("formatter: unhandled column kind %v", col.Type))
	}
}

// Currency renders a fixed two-decimal, thousands-separated amount.
// Missing or non-numeric values render as zero.
func (c Cells) Currency(v any) string {
	f, _ := ToFloat(v)
	return CurrencyString(f, c.Symbol)
}

// CurrencyString formats an amount with the given symbol, e.g. "$1,250.50".
func CurrencyString(f float64, symbol string) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		f = 0
	}
	sign := ""
	if f < 0 {
		sign = "-"
		f = -f
	}
	// Round half away from zero before grouping so 0.005 becomes 0.01.
	f = math.Round(f*100) / 100
	return sign + symbol + humanize.FormatFloat("#,###.##", f)
}

// Number renders whole numbers with thousands separators and keeps
// fractional values as-is.
func Number(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return humanize.Comma(int64(f))
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Date renders a timestamp in the configured zone. Unparseable values are
// shown verbatim.
func (c Cells) Date(v any) string {
	t, ok := ToTime(v)
	if !ok {
		return Text(v)
	}
	loc := c.Location
	if loc == nil {
		loc = time.Local
	}
	layout := c.DateLayout
	if layout == "" {
		layout = DateLayout
	}
	return t.In(loc).Format(layout)
}

// Related renders a relation value: an object shows its field, a list of
// objects shows each field comma-joined, scalars show as text.
func Related(v any, field string) string {
	switch val := v.(type) {
	case map[string]any:
		return relatedOne(val, field)
	case schema.Record:
		return relatedOne(val, field)
	case []any:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			var s string
			switch obj := item.(type) {
			case map[string]any:
				s = relatedOne(obj, field)
			default:
				s = Text(obj)
			}
			if s != Placeholder {
				parts = append(parts, s)
			}
		}
		if len(parts) == 0 {
			return Placeholder
		}
		return strings.Join(parts, ", ")
	case []string:
		if len(val) == 0 {
			return Placeholder
		}
		return strings.Join(val, ", ")
	default:
		return Text(v)
	}
}

func relatedOne(obj map[string]any, field string) string {
	if field == "" {
		field = "name"
	}
	if isMissing(obj[field]) {
		return Placeholder
	}
	return Text(obj[field])
}

func relationField(col schema.ColumnDef) string {
	if col.Relation != nil {
		return col.Relation.ValueField
	}
	return ""
}

// Text renders a scalar for display.
func Text(v any) string {
	if isMissing(v) {
		return Placeholder
	}
	switch val := v.(type) {
	case string:
		return val
	case bool:
		if val {
			return "yes"
		}
		return "no"
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int, int64, int32:
		return fmt.Sprint(val)
	case json.Number:
		return val.String()
	case time.Time:
		return val.Format(time.RFC3339)
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(b)
	}
}

// ToFloat converts a JSON-decoded value to float64.
func ToFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ToTime converts a string or time value to time.Time.
func ToTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		s := strings.TrimSpace(t)
		for _, layout := range timeLayouts {
			if parsed, err := time.ParseInLocation(layout, s, time.Local); err == nil {
				return parsed, true
			}
		}
	}
	return time.Time{}, false
}

func isMissing(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(val) == ""
	default:
		return false
	}
}
