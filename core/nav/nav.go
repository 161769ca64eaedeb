// Package nav builds the navigation menu from the catalog.
package nav

import (
	"strings"

	"github.com/artpar/bizadmin/core/schema"
)

// Entry is one rendered navigation link.
type Entry struct {
	Path   string
	Label  string
	Icon   string
	Key    string
	Active bool
}

// Build marks the item whose path equals the current route. A trailing
// slash is ignored; "/" only matches "/".
func Build(items []schema.NavItem, current string) []Entry {
	cur := clean(current)
	out := make([]Entry, len(items))
	for i, item := range items {
		out[i] = Entry{
			Path:   item.Path,
			Label:  item.Label,
			Icon:   item.Icon,
			Key:    item.Key,
			Active: clean(item.Path) == cur,
		}
	}
	return out
}

// Active returns the active entry, if any.
func Active(entries []Entry) (Entry, bool) {
	for _, e := range entries {
		if e.Active {
			return e, true
		}
	}
	return Entry{}, false
}

func clean(p string) string {
	if p == "" {
		return "/"
	}
	if len(p) > 1 {
		p = strings.TrimRight(p, "/")
		if p == "" {
			return "/"
		}
	}
	return p
}
