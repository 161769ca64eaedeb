package web

import (
	"net/http"

	"github.com/artpar/bizadmin/core/nav"
)

// PageData holds common data for all pages.
type PageData struct {
	Title       string
	AppName     string
	CurrentPath string
	Nav         []nav.Entry
	Notice      *Notice

	// Refresh, when set, makes the page reload to RefreshURL after
	// RefreshSeconds.
	RefreshURL     string
	RefreshSeconds int
}

// newPageData creates base page data for a request. moduleKey marks the
// navigation entry of the module being shown when no entry matches the
// path exactly, so /modules/inventory highlights the /inventory link.
func (h *Handler) newPageData(r *http.Request, title, moduleKey string) PageData {
	entries := nav.Build(h.catalog.Navigation(), r.URL.Path)
	if _, ok := nav.Active(entries); !ok && moduleKey != "" {
		for i := range entries {
			if entries[i].Key == moduleKey {
				entries[i].Active = true
				break
			}
		}
	}

	data := PageData{
		Title:       title,
		AppName:     h.appName,
		CurrentPath: r.URL.Path,
		Nav:         entries,
	}
	if n, ok := h.notices.Take(r.URL.Query().Get("notice")); ok {
		data.Notice = &n
	}
	return data
}
