package form

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/artpar/bizadmin/core/formatter"
	"github.com/artpar/bizadmin/core/schema"
)

// DateLayout is the wire and input format of date fields.
const DateLayout = "2006-01-02"

// display converts a record value into the raw input strings of a field.
func display(f schema.FieldDef, v any, symbol string) []string {
	if v == nil {
		return nil
	}
	switch f.Type {
	case schema.FieldText, schema.FieldTextarea:
		return []string{plain(v)}
	case schema.FieldNumber:
		if n, ok := formatter.ToFloat(v); ok {
			return []string{strconv.FormatFloat(n, 'f', -1, 64)}
		}
		return []string{plain(v)}
	case schema.FieldCurrency:
		if n, ok := formatter.ToFloat(v); ok {
			return []string{formatter.CurrencyString(n, symbol)}
		}
		return []string{plain(v)}
	case schema.FieldDate:
		if t, ok := formatter.ToTime(v); ok {
			return []string{t.Format(DateLayout)}
		}
		return []string{plain(v)}
	case schema.FieldSelect:
		if id := choiceID(v); id != "" {
			return []string{id}
		}
		return nil
	case schema.FieldMultiSelect:
		items, ok := v.([]any)
		if !ok {
			if id := choiceID(v); id != "" {
				return []string{id}
			}
			return nil
		}
		out := make([]string, 0, len(items))
		for _, item := range items {
			if id := choiceID(item); id != "" {
				out = append(out, id)
			}
		}
		return out
	default:
		panic(fmt.Sprintf("form: unhandled field kind %v", f.Type))
	}
}

// choiceID renders a select value. Related objects contribute their id.
func choiceID(v any) string {
	if obj, ok := v.(map[string]any); ok {
		return schema.FormatID(obj["id"])
	}
	return schema.FormatID(v)
}

func plain(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	s := formatter.Text(v)
	if s == formatter.Placeholder {
		return ""
	}
	return s
}

// coerce converts the raw input of one field into the value sent to the
// backend. Empty optional inputs become nil (empty string for text).
func coerce(f schema.FieldDef, raw []string, opts []schema.Option, original any, symbol string) (any, *ValidationFailed) {
	first := ""
	if len(raw) > 0 {
		first = strings.TrimSpace(raw[0])
	}

	if f.Required && isEmpty(raw) {
		return nil, fail(f, "%s is required", f.Label)
	}

	switch f.Type {
	case schema.FieldText, schema.FieldTextarea:
		if len(raw) == 0 {
			return "", nil
		}
		return raw[0], nil

	case schema.FieldNumber:
		if first == "" {
			return nil, nil
		}
		n, err := strconv.ParseFloat(first, 64)
		if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
			return nil, fail(f, "%s must be a number", f.Label)
		}
		return n, bounds(f, n)

	case schema.FieldCurrency:
		if first == "" {
			return nil, nil
		}
		n, err := ParseCurrency(first, symbol)
		if err != nil {
			return nil, fail(f, "%s must be an amount", f.Label)
		}
		return n, bounds(f, n)

	case schema.FieldDate:
		if first == "" {
			return nil, nil
		}
		t, ok := formatter.ToTime(first)
		if !ok {
			return nil, fail(f, "%s must be a date (YYYY-MM-DD)", f.Label)
		}
		return t.Format(DateLayout), nil

	case schema.FieldSelect:
		if first == "" {
			return nil, nil
		}
		v, ok := choose(first, opts, original)
		if !ok {
			return nil, fail(f, "%s has an invalid choice", f.Label)
		}
		return v, nil

	case schema.FieldMultiSelect:
		originals, _ := original.([]any)
		out := make([]any, 0, len(raw))
		for _, r := range raw {
			r = strings.TrimSpace(r)
			if r == "" {
				continue
			}
			v, ok := chooseMany(r, opts, originals)
			if !ok {
				return nil, fail(f, "%s has an invalid choice", f.Label)
			}
			out = append(out, v)
		}
		return out, nil

	default:
		panic(fmt.Sprintf("form: unhandled field kind %v", f.Type))
	}
}

// choose maps a posted option value back to the option's original value so
// numeric ids stay numeric. Without options (e.g. the related list failed
// to load) the current value is kept if it matches, else the raw string.
func choose(raw string, opts []schema.Option, original any) (any, bool) {
	for _, o := range opts {
		if schema.FormatID(o.Value) == raw {
			return o.Value, true
		}
	}
	if choiceID(original) == raw {
		if obj, ok := original.(map[string]any); ok {
			return obj["id"], true
		}
		return original, true
	}
	if len(opts) == 0 {
		return raw, true
	}
	return nil, false
}

func chooseMany(raw string, opts []schema.Option, originals []any) (any, bool) {
	for _, o := range originals {
		if choiceID(o) == raw {
			return choose(raw, opts, o)
		}
	}
	return choose(raw, opts, nil)
}

func bounds(f schema.FieldDef, n float64) *ValidationFailed {
	if f.Min != nil && n < *f.Min {
		return fail(f, "%s must be at least %s", f.Label, formatter.Number(*f.Min))
	}
	if f.Max != nil && n > *f.Max {
		return fail(f, "%s must be at most %s", f.Label, formatter.Number(*f.Max))
	}
	return nil
}

func isEmpty(raw []string) bool {
	for _, r := range raw {
		if strings.TrimSpace(r) != "" {
			return false
		}
	}
	return true
}

func fail(f schema.FieldDef, format string, args ...any) *ValidationFailed {
	return &ValidationFailed{Field: f.Key, Label: f.Label, Message: fmt.Sprintf(format, args...)}
}

// ParseCurrency strips the currency symbol, thousands separators and spaces
// from an amount: "$1,234.50" -> 1234.5.
func ParseCurrency(s, symbol string) (float64, error) {
	s = strings.TrimSpace(s)
	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	}
	if symbol != "" {
		s = strings.ReplaceAll(s, symbol, "")
	}
	s = strings.NewReplacer("$", "", ",", "", " ", "", "\u00a0", "").Replace(s)
	if strings.HasPrefix(s, "-") {
		neg = !neg
		s = s[1:]
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, fmt.Errorf("amount %q is not finite", s)
	}
	if neg {
		n = -n
	}
	return n, nil
}
