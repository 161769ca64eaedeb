package web

import (
	"net/url"
	"strconv"

	"github.com/artpar/bizadmin/core/form"
	"github.com/artpar/bizadmin/core/schema"
	"github.com/artpar/bizadmin/core/table"
)

// header is one rendered column heading.
type header struct {
	Title    string
	Sortable bool
	Active   bool
	Dir      string
	URL      string
}

// pageLink is one pagination link.
type pageLink struct {
	Number  int
	URL     string
	Current bool
}

// tableView prepares a table view for the module template.
type tableView struct {
	table.View
	Module   schema.ModuleConfig
	Base     string
	Headers  []header
	PageURLs []pageLink
	PrevURL  string
	NextURL  string
	Failed   bool
	Empty    bool
	Message  string
}

func newTableView(mod schema.ModuleConfig, v table.View) tableView {
	base := moduleURL(mod.Key)
	tv := tableView{View: v, Module: mod, Base: base}

	switch v.Status {
	case table.Failed:
		tv.Failed = true
		tv.Message = "Error loading data: " + errText(v.Err)
	case table.Idle, table.Loading:
		tv.Message = "Loading..."
	case table.Empty:
		tv.Empty = true
		tv.Message = "No records found."
	case table.Ready:
		if v.Total == 0 {
			tv.Empty = true
			tv.Message = "No records found."
		}
	}

	for _, col := range v.Columns {
		h := header{Title: col.Title, Sortable: col.Sorter}
		if col.Sorter {
			next := v.Sort.Toggle(col.Key)
			h.Active = v.Sort.Key == col.Key
			h.Dir = v.Sort.Dir()
			h.URL = listURL(base, v.Search, next, 1)
		}
		tv.Headers = append(tv.Headers, h)
	}

	if v.Pages > 1 {
		for p := 1; p <= v.Pages; p++ {
			tv.PageURLs = append(tv.PageURLs, pageLink{
				Number:  p,
				URL:     listURL(base, v.Search, v.Sort, p),
				Current: p == v.Page,
			})
		}
		if v.Page > 1 {
			tv.PrevURL = listURL(base, v.Search, v.Sort, v.Page-1)
		}
		if v.Page < v.Pages {
			tv.NextURL = listURL(base, v.Search, v.Sort, v.Page+1)
		}
	}
	return tv
}

func listURL(base, search string, sort table.SortState, page int) string {
	q := url.Values{}
	if search != "" {
		q.Set("q", search)
	}
	if sort.Key != "" {
		q.Set("sort", sort.Key)
		q.Set("dir", sort.Dir())
	}
	if page > 1 {
		q.Set("page", strconv.Itoa(page))
	}
	if len(q) == 0 {
		return base
	}
	return base + "?" + q.Encode()
}

func moduleURL(key string) string {
	return "/modules/" + url.PathEscape(key)
}

func recordURL(key, id string) string {
	return moduleURL(key) + "/" + url.PathEscape(id)
}

// field is one form input prepared for the form template.
type field struct {
	form.Input
	Name     string
	HTMLType string
	Textarea bool
	Select   bool
	Multiple bool
	Min      string
	Max      string
	Step     string
}

func newFields(inputs []form.Input) []field {
	out := make([]field, 0, len(inputs))
	for _, in := range inputs {
		f := field{Input: in, Name: in.Field.Key}
		switch in.Kind {
		case schema.FieldText:
			f.HTMLType = "text"
		case schema.FieldNumber:
			f.HTMLType = "number"
			f.Step = "any"
		case schema.FieldCurrency:
			// formatted amounts carry the symbol and separators
			f.HTMLType = "text"
		case schema.FieldDate:
			f.HTMLType = "date"
		case schema.FieldTextarea:
			f.Textarea = true
		case schema.FieldSelect:
			f.Select = true
		case schema.FieldMultiSelect:
			f.Select = true
			f.Multiple = true
		default:
			panic("web: unhandled field kind " + in.Kind.String())
		}
		if in.Field.Min != nil {
			f.Min = strconv.FormatFloat(*in.Field.Min, 'f', -1, 64)
		}
		if in.Field.Max != nil {
			f.Max = strconv.FormatFloat(*in.Field.Max, 'f', -1, 64)
		}
		out = append(out, f)
	}
	return out
}

// formView is the data of the add/edit page.
type formView struct {
	PageData
	Module  schema.ModuleConfig
	Action  string
	Cancel  string
	Submit  string
	Fields  []field
	Loading bool
}

func errText(err error) string {
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}
