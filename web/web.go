// Package web provides the server-rendered admin pages.
// All templates and static files are embedded in the binary.
// Pages are generated from the module catalog; no page is written per entity.
package web

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/artpar/bizadmin/core/dashboard"
	"github.com/artpar/bizadmin/core/formatter"
	"github.com/artpar/bizadmin/core/schema"
)

//go:embed templates static
var assets embed.FS

// DefaultRedirectDelay is how long the "Module not found" page waits
// before returning to the dashboard.
const DefaultRedirectDelay = 3 * time.Second

// Handler provides the web UI endpoints.
type Handler struct {
	templates     map[string]*template.Template // One template per page
	catalog       *schema.Catalog
	tables        *Tables
	dashboard     *dashboard.Service
	notices       *Notices
	appName       string
	redirectDelay time.Duration
	cells         formatter.Cells
	logger        zerolog.Logger
	now           func() time.Time
}

// Deps contains dependencies for the web handler.
type Deps struct {
	Catalog   *schema.Catalog
	Tables    *Tables
	Dashboard *dashboard.Service
	Notices   *Notices
	Logger    zerolog.Logger

	AppName        string
	RedirectDelay  time.Duration
	CurrencySymbol string

	// Now defaults to time.Now; the sales report range is relative to it.
	Now func() time.Time
}

// NewHandler creates a new web UI handler.
func NewHandler(deps Deps) (*Handler, error) {
	if deps.Catalog == nil || deps.Tables == nil || deps.Dashboard == nil {
		return nil, fmt.Errorf("web: catalog, tables and dashboard are required")
	}

	tmpl, err := parseTemplates()
	if err != nil {
		return nil, err
	}

	h := &Handler{
		templates:     tmpl,
		catalog:       deps.Catalog,
		tables:        deps.Tables,
		dashboard:     deps.Dashboard,
		notices:       deps.Notices,
		appName:       deps.AppName,
		redirectDelay: deps.RedirectDelay,
		cells:         formatter.NewCells(deps.CurrencySymbol),
		logger:        deps.Logger,
		now:           deps.Now,
	}
	if h.notices == nil {
		h.notices = NewNotices(DefaultNoticeTTL)
	}
	if h.appName == "" {
		h.appName = "Business Admin"
	}
	if h.redirectDelay <= 0 {
		h.redirectDelay = DefaultRedirectDelay
	}
	if h.now == nil {
		h.now = time.Now
	}
	return h, nil
}

// Router returns the web UI router.
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()

	staticFS, _ := fs.Sub(assets, "static")
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(staticFS))))

	// Dashboard
	r.Get("/", h.Dashboard)
	r.Get("/dashboard", h.Dashboard)

	// Modules
	r.Get("/modules/{key}", h.ModulePage)
	r.Post("/modules/{key}", h.RecordCreate)
	r.Get("/modules/{key}/new", h.RecordNewPage)
	r.Get("/modules/{key}/{id}/edit", h.RecordEditPage)
	r.Post("/modules/{key}/{id}", h.RecordUpdate)
	r.Get("/modules/{key}/{id}/delete", h.RecordDeletePage)
	r.Post("/modules/{key}/{id}/delete", h.RecordDelete)

	// Notices
	r.Post("/notices/{id}/dismiss", h.NoticeDismiss)

	// Navigation paths that open a module, e.g. /inventory.
	for _, item := range h.catalog.Navigation() {
		if reservedPath(item.Path) {
			continue
		}
		if key, ok := h.catalog.ModuleForPath(item.Path); ok {
			r.Get(item.Path, h.modulePath(key))
		}
	}

	r.NotFound(h.NotFound)

	return r
}

func reservedPath(p string) bool {
	switch {
	case p == "/", p == "/dashboard":
		return true
	case strings.HasPrefix(p, "/modules/"), strings.HasPrefix(p, "/static/"), strings.HasPrefix(p, "/notices/"):
		return true
	default:
		return false
	}
}

// Helper to parse all templates with layouts
func parseTemplates() (map[string]*template.Template, error) {
	funcs := template.FuncMap{
		"add": func(a, b int) int {
			return a + b
		},
		"sub": func(a, b int) int {
			return a - b
		},
		"width": func(pct float64) string {
			return fmt.Sprintf("%.1f%%", pct)
		},
		"formatDate": func(t time.Time) string {
			return t.Format("Jan 2, 2006")
		},
		"isoDate": func(t time.Time) string {
			return t.Format("2006-01-02")
		},
		"seconds": func(d time.Duration) int {
			return int(d / time.Second)
		},
	}

	templates := make(map[string]*template.Template)

	layoutContent, err := fs.ReadFile(assets, "templates/layouts/base.html")
	if err != nil {
		return nil, err
	}

	var componentContent []byte
	components, err := fs.Glob(assets, "templates/components/*.html")
	if err != nil {
		return nil, err
	}
	for _, comp := range components {
		content, err := fs.ReadFile(assets, comp)
		if err != nil {
			return nil, err
		}
		componentContent = append(componentContent, content...)
	}

	// Parse each page as its own template (layout + components + page)
	pages, err := fs.Glob(assets, "templates/pages/*.html")
	if err != nil {
		return nil, err
	}

	for _, page := range pages {
		name := strings.TrimPrefix(page, "templates/pages/")
		name = strings.TrimSuffix(name, ".html")

		pageContent, err := fs.ReadFile(assets, page)
		if err != nil {
			return nil, err
		}

		tmpl := template.New(name).Funcs(funcs)
		if _, err := tmpl.Parse(string(layoutContent)); err != nil {
			return nil, fmt.Errorf("parse layout for %s: %w", name, err)
		}
		if len(componentContent) > 0 {
			if _, err := tmpl.Parse(string(componentContent)); err != nil {
				return nil, fmt.Errorf("parse components for %s: %w", name, err)
			}
		}
		if _, err := tmpl.Parse(string(pageContent)); err != nil {
			return nil, fmt.Errorf("parse page %s: %w", name, err)
		}

		templates[name] = tmpl
	}

	return templates, nil
}

func (h *Handler) render(w http.ResponseWriter, status int, name string, data any) {
	tmpl, ok := h.templates[name]
	if !ok {
		h.logger.Error().Str("template", name).Msg("template not found")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	var buf strings.Builder
	if err := tmpl.ExecuteTemplate(&buf, "base", data); err != nil {
		h.logger.Error().Err(err).Str("template", name).Msg("template render error")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(buf.String()))
}
