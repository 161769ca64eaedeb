package web

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/artpar/bizadmin/adapters/remote"
	"github.com/artpar/bizadmin/core/dashboard"
	"github.com/artpar/bizadmin/core/form"
	"github.com/artpar/bizadmin/core/schema"
	"github.com/artpar/bizadmin/core/table"
)

// Dashboard renders the metric cards, the top-selling chart, recent
// transactions and the sales report for ?start=&end= (last 30 days by
// default).
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	stats, statsErr := h.dashboard.Load(ctx)

	start, end := dashboard.DefaultRange(h.now())
	var reportErr error
	q := r.URL.Query()
	if v := q.Get("start"); v != "" {
		if t, err := time.ParseInLocation(form.DateLayout, v, start.Location()); err == nil {
			start = t
		} else {
			reportErr = errors.New("start date must be YYYY-MM-DD")
		}
	}
	if v := q.Get("end"); v != "" {
		if t, err := time.ParseInLocation(form.DateLayout, v, end.Location()); err == nil {
			end = t
		} else {
			reportErr = errors.New("end date must be YYYY-MM-DD")
		}
	}

	var report dashboard.Report
	if reportErr == nil {
		report, reportErr = h.dashboard.SalesReport(ctx, start, end)
	}

	data := struct {
		PageData
		Cards        []dashboard.Card
		TopItems     []dashboard.Bar
		Transactions []dashboard.Transaction
		StatsError   string
		Start        time.Time
		End          time.Time
		Report       dashboard.Report
		ReportCards  []dashboard.Card
		DailySales   []dashboard.Bar
		Products     []dashboard.Bar
		ReportError  string
	}{
		PageData:     h.newPageData(r, "Dashboard", ""),
		Cards:        stats.Cards(),
		TopItems:     stats.TopItems(),
		Transactions: stats.Transactions(),
		Start:        start,
		End:          end,
	}
	if statsErr != nil {
		data.StatsError = "Error loading dashboard: " + statsErr.Error()
	}
	if reportErr != nil {
		data.ReportError = reportErr.Error()
	} else {
		data.Report = report
		data.ReportCards = report.Cards()
		data.DailySales = report.DailySales()
		data.Products = report.Products()
	}

	h.render(w, http.StatusOK, "dashboard", data)
}

// ModulePage renders the table of the module named in the URL.
func (h *Handler) ModulePage(w http.ResponseWriter, r *http.Request) {
	h.moduleTable(w, r, chi.URLParam(r, "key"))
}

func (h *Handler) modulePath(key string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.moduleTable(w, r, key)
	}
}

func (h *Handler) moduleTable(w http.ResponseWriter, r *http.Request, key string) {
	t, ok := h.table(w, r, key)
	if !ok {
		return
	}
	ctx := r.Context()
	q := r.URL.Query()

	// Load failures are shown through the view's status.
	if q.Get("refresh") == "1" {
		_ = t.Load(ctx)
	} else {
		_ = t.EnsureLoaded(ctx)
	}

	page, _ := strconv.Atoi(q.Get("page"))
	view := t.View(table.Query{
		Search: strings.TrimSpace(q.Get("q")),
		Sort:   table.ParseSort(q.Get("sort"), q.Get("dir")),
		Page:   page,
	})

	mod := t.Module()
	data := struct {
		PageData
		Table tableView
	}{
		PageData: h.newPageData(r, mod.Title, key),
		Table:    newTableView(mod, view),
	}
	h.render(w, http.StatusOK, "module", data)
}

// RecordNewPage renders an empty form.
func (h *Handler) RecordNewPage(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	t, ok := h.table(w, r, key)
	if !ok {
		return
	}
	f := t.NewForm()
	h.loadOptions(r.Context(), f)
	h.renderForm(w, r, http.StatusOK, t.Module(), f, "", nil)
}

// RecordCreate validates the posted form and creates the record.
func (h *Handler) RecordCreate(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	t, ok := h.table(w, r, key)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	f := t.NewForm()
	h.loadOptions(r.Context(), f)
	f.Bind(r.PostForm)

	err := f.Submit(r.Context(), func(ctx context.Context, rec schema.Record) error {
		_, err := t.Create(ctx, rec)
		return err
	})
	if err != nil {
		h.formFailed(w, r, t.Module(), f, "", err)
		return
	}
	h.redirectWithNotice(w, r, moduleURL(key), NoticeSuccess, t.Module().Title+": record created")
}

// RecordEditPage renders the form pre-filled from the cached record.
func (h *Handler) RecordEditPage(w http.ResponseWriter, r *http.Request) {
	key, id := chi.URLParam(r, "key"), chi.URLParam(r, "id")
	t, ok := h.table(w, r, key)
	if !ok {
		return
	}
	f, ok := h.editForm(w, r, t, id)
	if !ok {
		return
	}
	h.renderForm(w, r, http.StatusOK, t.Module(), f, id, nil)
}

// RecordUpdate validates the posted form and replaces the record.
func (h *Handler) RecordUpdate(w http.ResponseWriter, r *http.Request) {
	key, id := chi.URLParam(r, "key"), chi.URLParam(r, "id")
	t, ok := h.table(w, r, key)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	f, ok := h.editForm(w, r, t, id)
	if !ok {
		return
	}
	f.Bind(r.PostForm)

	err := f.Submit(r.Context(), func(ctx context.Context, rec schema.Record) error {
		_, err := t.Update(ctx, id, rec)
		return err
	})
	if remote.IsNotFound(err) {
		h.renderError(w, r, http.StatusNotFound, key, "Record not found.")
		return
	}
	if err != nil {
		h.formFailed(w, r, t.Module(), f, id, err)
		return
	}
	h.redirectWithNotice(w, r, moduleURL(key), NoticeSuccess, t.Module().Title+": record updated")
}

// RecordDeletePage asks for confirmation before deleting.
func (h *Handler) RecordDeletePage(w http.ResponseWriter, r *http.Request) {
	key, id := chi.URLParam(r, "key"), chi.URLParam(r, "id")
	t, ok := h.table(w, r, key)
	if !ok {
		return
	}
	if err := t.EnsureLoaded(r.Context()); err != nil {
		h.renderError(w, r, http.StatusBadGateway, key, "Error loading data: "+err.Error())
		return
	}
	rec, found := t.Record(id)
	if !found {
		h.renderError(w, r, http.StatusNotFound, key, "Record not found.")
		return
	}

	mod := t.Module()
	type detail struct {
		Title string
		Value string
	}
	var details []detail
	for _, col := range mod.Table.Columns {
		details = append(details, detail{Title: col.Title, Value: h.cells.Format(col, rec[col.Key])})
	}

	data := struct {
		PageData
		Module  schema.ModuleConfig
		ID      string
		Details []detail
		Action  string
		Cancel  string
	}{
		PageData: h.newPageData(r, "Delete "+mod.Title, key),
		Module:   mod,
		ID:       id,
		Details:  details,
		Action:   recordURL(key, id) + "/delete",
		Cancel:   moduleURL(key),
	}
	h.render(w, http.StatusOK, "confirm_delete", data)
}

// RecordDelete deletes a record after confirmation.
func (h *Handler) RecordDelete(w http.ResponseWriter, r *http.Request) {
	key, id := chi.URLParam(r, "key"), chi.URLParam(r, "id")
	t, ok := h.table(w, r, key)
	if !ok {
		return
	}
	err := t.Delete(r.Context(), id)
	if remote.IsNotFound(err) {
		h.renderError(w, r, http.StatusNotFound, key, "Record not found.")
		return
	}
	if err != nil {
		h.redirectWithNotice(w, r, moduleURL(key), NoticeError, err.Error())
		return
	}
	h.redirectWithNotice(w, r, moduleURL(key), NoticeSuccess, t.Module().Title+": record deleted")
}

// NoticeDismiss drops a notice and goes back to the page it was shown on.
func (h *Handler) NoticeDismiss(w http.ResponseWriter, r *http.Request) {
	h.notices.Dismiss(chi.URLParam(r, "id"))
	next := r.FormValue("next")
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") {
		next = "/"
	}
	http.Redirect(w, r, next, http.StatusSeeOther)
}

// NotFound renders the unknown-page screen, which returns to the
// dashboard after the redirect delay.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	h.notFound(w, r, "Page not found")
}

func (h *Handler) notFound(w http.ResponseWriter, r *http.Request, title string) {
	data := struct {
		PageData
		Delay time.Duration
	}{
		PageData: h.newPageData(r, title, ""),
		Delay:    h.redirectDelay,
	}
	data.RefreshURL = "/"
	data.RefreshSeconds = int(h.redirectDelay / time.Second)
	if data.RefreshSeconds < 1 {
		data.RefreshSeconds = 1
	}
	h.render(w, http.StatusNotFound, "not_found", data)
}

// table resolves a module key, rendering "Module not found" when the key
// is not configured.
func (h *Handler) table(w http.ResponseWriter, r *http.Request, key string) (*table.Table, bool) {
	t, err := h.tables.Get(key)
	if err != nil {
		var nf *schema.ModuleNotFound
		if errors.As(err, &nf) {
			h.logger.Debug().Str("module", key).Msg("unknown module")
			h.notFound(w, r, "Module not found")
			return nil, false
		}
		h.renderError(w, r, http.StatusInternalServerError, "", err.Error())
		return nil, false
	}
	return t, true
}

func (h *Handler) editForm(w http.ResponseWriter, r *http.Request, t *table.Table, id string) (*form.Form, bool) {
	f, err := t.EditForm(r.Context(), id)
	switch {
	case errors.Is(err, table.ErrRecordNotFound):
		h.renderError(w, r, http.StatusNotFound, t.Module().Key, "Record not found.")
		return nil, false
	case err != nil:
		h.renderError(w, r, http.StatusBadGateway, t.Module().Key, "Error loading data: "+err.Error())
		return nil, false
	}
	h.loadOptions(r.Context(), f)
	return f, true
}

// loadOptions resolves related options. A form whose request ends first
// stays Loading and renders its related inputs disabled.
func (h *Handler) loadOptions(ctx context.Context, f *form.Form) {
	if err := f.Load(ctx); err != nil {
		h.logger.Debug().Err(err).Msg("form options not loaded")
	}
}

// formFailed re-renders a rejected form with the input intact.
func (h *Handler) formFailed(w http.ResponseWriter, r *http.Request, mod schema.ModuleConfig, f *form.Form, id string, err error) {
	var verrs form.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		h.renderForm(w, r, http.StatusUnprocessableEntity, mod, f, id, nil)
	case errors.Is(err, form.ErrLoading):
		n := newNotice(NoticeWarning, "Related options are still loading, try again.")
		h.renderForm(w, r, http.StatusServiceUnavailable, mod, f, id, &n)
	default:
		n := newNotice(NoticeError, err.Error())
		h.renderForm(w, r, http.StatusBadGateway, mod, f, id, &n)
	}
}

func (h *Handler) renderForm(w http.ResponseWriter, r *http.Request, status int, mod schema.ModuleConfig, f *form.Form, id string, notice *Notice) {
	title, action, submit := "Add "+mod.Title, moduleURL(mod.Key), "Create"
	if id != "" {
		title, action, submit = "Edit "+mod.Title, recordURL(mod.Key, id), "Save"
	}
	data := formView{
		PageData: h.newPageData(r, title, mod.Key),
		Module:   mod,
		Action:   action,
		Cancel:   moduleURL(mod.Key),
		Submit:   submit,
		Fields:   newFields(f.Inputs()),
		Loading:  f.State() == form.Loading,
	}
	if notice != nil {
		data.Notice = notice
	}
	h.render(w, status, "form", data)
}

func (h *Handler) renderError(w http.ResponseWriter, r *http.Request, status int, moduleKey, message string) {
	data := struct {
		PageData
		Message string
		Back    string
	}{
		PageData: h.newPageData(r, "Error", moduleKey),
		Message:  message,
		Back:     "/",
	}
	if moduleKey != "" {
		data.Back = moduleURL(moduleKey)
	}
	h.render(w, status, "error", data)
}

func (h *Handler) redirectWithNotice(w http.ResponseWriter, r *http.Request, target, kind, message string) {
	n := h.notices.Add(kind, message)
	http.Redirect(w, r, target+"?notice="+n.ID, http.StatusSeeOther)
}
