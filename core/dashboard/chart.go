package dashboard

import (
	"sort"

	"github.com/artpar/bizadmin/core/formatter"
)

// Bar is one bar of an HTML bar chart. Percent is relative to the largest
// value of the series.
type Bar struct {
	Label   string
	Value   float64
	Display string
	Percent float64
}

// Bars scales points to the largest value. Negative values get no width.
func Bars(points []Point, display func(float64) string) []Bar {
	peak := 0.0
	for _, p := range points {
		if p.Value > peak {
			peak = p.Value
		}
	}
	out := make([]Bar, len(points))
	for i, p := range points {
		pct := 0.0
		if peak > 0 && p.Value > 0 {
			pct = p.Value / peak * 100
		}
		out[i] = Bar{Label: p.Label, Value: p.Value, Display: display(p.Value), Percent: pct}
	}
	return out
}

// series reads a chart series from either an object keyed by label
// ({"2024-01-01": 120}) or a list of objects ([{"date": ..., "amount": ...}]).
func series(v any, labelKey, valueKey string) []Point {
	switch val := v.(type) {
	case map[string]any:
		out := make([]Point, 0, len(val))
		for label, raw := range val {
			f, _ := formatter.ToFloat(raw)
			out = append(out, Point{Label: label, Value: f})
		}
		sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
		return out
	case []any:
		out := make([]Point, 0, len(val))
		for _, item := range val {
			obj, ok := item.(map[string]any)
			if !ok {
				continue
			}
			f, _ := formatter.ToFloat(obj[valueKey])
			out = append(out, Point{Label: formatter.Text(obj[labelKey]), Value: f})
		}
		return out
	default:
		return []Point{}
	}
}

func num(m map[string]any, key string) float64 {
	f, _ := formatter.ToFloat(m[key])
	return f
}

func objects(v any) []map[string]any {
	list, ok := v.([]any)
	if !ok {
		return []map[string]any{}
	}
	out := make([]map[string]any, 0, len(list))
	for _, item := range list {
		if obj, ok := item.(map[string]any); ok {
			out = append(out, obj)
		}
	}
	return out
}
