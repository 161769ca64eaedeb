package table

import (
	"sort"
	"strings"

	"github.com/artpar/bizadmin/core/formatter"
	"github.com/artpar/bizadmin/core/schema"
)

// DefaultPageSize is used when a query does not set one.
const DefaultPageSize = 10

// SortState is the active sort column and direction. The zero value means
// backend order.
type SortState struct {
	Key  string
	Desc bool
}

// Toggle returns the state after activating column key: the same column
// flips direction, another column starts ascending.
func (s SortState) Toggle(key string) SortState {
	if s.Key == key {
		return SortState{Key: key, Desc: !s.Desc}
	}
	return SortState{Key: key}
}

// Dir returns "asc" or "desc".
func (s SortState) Dir() string {
	if s.Desc {
		return "desc"
	}
	return "asc"
}

// ParseSort builds a state from query parameters.
func ParseSort(key, dir string) SortState {
	return SortState{Key: key, Desc: strings.EqualFold(dir, "desc")}
}

// Query selects what View shows.
type Query struct {
	Search   string
	Sort     SortState
	Page     int
	PageSize int
}

// Row is one displayed record.
type Row struct {
	ID     string
	Cells  []string
	Record schema.Record
}

// View is a rendering of the cache. It never changes the cache.
type View struct {
	Status  Status
	Err     error
	Columns []schema.ColumnDef
	Rows    []Row

	// Total counts rows after filtering; Cached counts the whole cache.
	Total  int
	Cached int

	Search   string
	Sort     SortState
	Page     int
	PageSize int
	Pages    int
}

// View filters, sorts and paginates the cached records. A Failed table
// has no rows.
func (t *Table) View(q Query) View {
	t.mu.RLock()
	records := t.records
	status, err := t.status, t.err
	t.mu.RUnlock()

	v := View{
		Status:   status,
		Err:      err,
		Columns:  t.mod.Table.Columns,
		Cached:   len(records),
		Search:   q.Search,
		PageSize: q.PageSize,
		Page:     1,
		Pages:    1,
	}
	if v.PageSize <= 0 {
		v.PageSize = t.pageSize
	}
	if col, ok := t.mod.Column(q.Sort.Key); ok && col.Sorter {
		v.Sort = q.Sort
	}
	if status == Failed || status == Idle {
		return v
	}

	matched := t.filter(records, q.Search)
	if v.Sort.Key != "" {
		t.sort(matched, v.Sort)
	}

	v.Total = len(matched)
	v.Pages = (v.Total + v.PageSize - 1) / v.PageSize
	if v.Pages < 1 {
		v.Pages = 1
	}
	v.Page = min(max(q.Page, 1), v.Pages)

	start := (v.Page - 1) * v.PageSize
	end := min(start+v.PageSize, v.Total)
	for _, rec := range matched[start:end] {
		v.Rows = append(v.Rows, t.row(rec))
	}
	return v
}

func (t *Table) row(rec schema.Record) Row {
	id, _ := rec.ID()
	cells := make([]string, len(t.mod.Table.Columns))
	for i, col := range t.mod.Table.Columns {
		cells[i] = t.cells.Format(col, rec[col.Key])
	}
	return Row{ID: id, Cells: cells, Record: rec}
}

// filter keeps records whose searchable columns contain the query,
// ignoring case. It matches both the raw and the displayed value.
func (t *Table) filter(records []schema.Record, query string) []schema.Record {
	query = strings.ToLower(strings.TrimSpace(query))
	var searchable []schema.ColumnDef
	for _, col := range t.mod.Table.Columns {
		if col.Search {
			searchable = append(searchable, col)
		}
	}

	out := make([]schema.Record, 0, len(records))
	if query == "" || len(searchable) == 0 {
		return append(out, records...)
	}
	for _, rec := range records {
		for _, col := range searchable {
			raw := rec[col.Key]
			if strings.Contains(strings.ToLower(formatter.Text(raw)), query) ||
				strings.Contains(strings.ToLower(t.cells.Format(col, raw)), query) {
				out = append(out, rec)
				break
			}
		}
	}
	return out
}

func (t *Table) sort(records []schema.Record, s SortState) {
	col, _ := t.mod.Column(s.Key)
	sort.SliceStable(records, func(i, j int) bool {
		c := compare(col, records[i][s.Key], records[j][s.Key])
		if s.Desc {
			return c > 0
		}
		return c < 0
	})
}

// compare orders nil first, then numbers numerically, then everything else
// by its text lexicographically.
func compare(col schema.ColumnDef, a, b any) int {
	an, bn := a == nil, b == nil
	switch {
	case an && bn:
		return 0
	case an:
		return -1
	case bn:
		return 1
	}

	af, aNum := number(a)
	bf, bNum := number(b)
	switch {
	case aNum && bNum:
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		}
		return 0
	case aNum:
		return -1
	case bNum:
		return 1
	}

	return strings.Compare(sortText(col, a), sortText(col, b))
}

// number reports numeric JSON values; numeric-looking strings stay strings.
func number(v any) (float64, bool) {
	if _, ok := v.(string); ok {
		return 0, false
	}
	return formatter.ToFloat(v)
}

func sortText(col schema.ColumnDef, v any) string {
	switch v.(type) {
	case map[string]any, []any:
		field := ""
		if col.Relation != nil {
			field = col.Relation.ValueField
		}
		return formatter.Related(v, field)
	}
	return formatter.Text(v)
}
