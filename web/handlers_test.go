package web

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/artpar/bizadmin/adapters/remote"
	"github.com/artpar/bizadmin/core/dashboard"
	"github.com/artpar/bizadmin/core/events"
	"github.com/artpar/bizadmin/core/relation"
	"github.com/artpar/bizadmin/core/schema"
	"github.com/artpar/bizadmin/core/table"
)

// fakeBackend is an in-memory REST backend with one collection per
// endpoint under /api, plus the dashboard and sales report endpoints.
type fakeBackend struct {
	mu          sync.Mutex
	collections map[string][]map[string]any
	nextID      int
	fail        map[string]bool // "GET /api/inventory", "POST /api/inventory", ...
	dashboard   map[string]any
	report      map[string]any
	reportQuery url.Values
	nullData    bool
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		collections: map[string][]map[string]any{
			"inventory": {
				{"id": 1, "name": "Widget", "quantity": 5, "price": 9.5, "category": map[string]any{"id": 1, "name": "Tools"}},
				{"id": 2, "name": "Gadget", "quantity": 12, "price": 1250.5, "category": map[string]any{"id": 2, "name": "Toys"}},
			},
			"categories": {
				{"id": 1, "name": "Tools"},
				{"id": 2, "name": "Toys"},
			},
		},
		nextID: 100,
		fail:   make(map[string]bool),
		dashboard: map[string]any{
			"totalSales":      1250.5,
			"totalInventory":  42,
			"pendingInvoices": 3,
			"lowStock":        1,
			"topSellingItems": []any{
				map[string]any{"name": "Widget", "quantity": 10},
				map[string]any{"name": "Gadget", "quantity": 5},
			},
			"recentTransactions": []any{
				map[string]any{"invoice_number": "INV-001", "total_amount": 99.9, "date": "2024-03-01"},
			},
		},
		report: map[string]any{
			"totalSales":        500,
			"totalItems":        20,
			"averageOrderValue": 25,
			"salesByDay":        map[string]any{"2024-03-02": 300, "2024-03-01": 200},
			"topProducts":       []any{map[string]any{"name": "Widget", "quantity": 15}},
		},
	}
}

func (b *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()

	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) < 2 || parts[0] != "api" {
		http.NotFound(w, r)
		return
	}
	if b.fail[r.Method+" /api/"+parts[1]] {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"message":"backend exploded"}`))
		return
	}

	switch parts[1] {
	case "dashboard":
		json.NewEncoder(w).Encode(b.dashboard)
		return
	case "sales":
		b.reportQuery = r.URL.Query()
		json.NewEncoder(w).Encode(b.report)
		return
	}

	name := parts[1]
	id := ""
	if len(parts) > 2 {
		id = parts[2]
	}
	records := b.collections[name]
	switch {
	case r.Method == http.MethodGet && id == "" && b.nullData:
		w.Write([]byte(`{"data":null}`))
	case r.Method == http.MethodGet && id == "":
		if records == nil {
			records = []map[string]any{}
		}
		json.NewEncoder(w).Encode(map[string]any{"data": records})
	case r.Method == http.MethodPost && id == "":
		var rec map[string]any
		json.NewDecoder(r.Body).Decode(&rec)
		b.nextID++
		rec["id"] = b.nextID
		b.collections[name] = append(records, rec)
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(rec)
	case r.Method == http.MethodPut:
		var rec map[string]any
		json.NewDecoder(r.Body).Decode(&rec)
		for i, existing := range records {
			if schema.FormatID(existing["id"]) == id {
				rec["id"] = existing["id"]
				records[i] = rec
				json.NewEncoder(w).Encode(rec)
				return
			}
		}
		http.NotFound(w, r)
	case r.Method == http.MethodDelete:
		for i, existing := range records {
			if schema.FormatID(existing["id"]) == id {
				b.collections[name] = append(records[:i], records[i+1:]...)
				w.WriteHeader(http.StatusNoContent)
				return
			}
		}
		http.NotFound(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (b *fakeBackend) record(name, id string) (map[string]any, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, rec := range b.collections[name] {
		if schema.FormatID(rec["id"]) == id {
			return rec, true
		}
	}
	return nil, false
}

func (b *fakeBackend) setFail(key string) {
	b.mu.Lock()
	b.fail[key] = true
	b.mu.Unlock()
}

const testCatalog = `{
  "app": {"navigation": {"items": [
    {"path": "/", "key": "dashboard", "label": "Dashboard", "icon": "home"},
    {"path": "/inventory", "key": "inventory", "label": "Inventory", "icon": "box"},
    {"path": "/categories", "key": "categories", "label": "Categories"}
  ]}},
  "modules": {
    "inventory": {
      "title": "Inventory",
      "endpoint": "/api/inventory",
      "table": {"columns": [
        {"key": "name", "title": "Name", "sorter": true, "search": true},
        {"key": "quantity", "title": "Quantity", "type": "number", "sorter": true},
        {"key": "price", "title": "Price", "type": "currency"},
        {"key": "category", "title": "Category", "type": "relation", "relation": {"module": "categories", "valueField": "name"}}
      ]},
      "form": {"fields": [
        {"key": "name", "label": "Name", "required": true},
        {"key": "quantity", "label": "Quantity", "type": "number", "min": 0},
        {"key": "price", "label": "Price", "type": "currency"},
        {"key": "category", "label": "Category", "type": "select", "relation": {"module": "categories", "value": "name"}}
      ]}
    },
    "categories": {
      "endpoint": "/api/categories",
      "table": {"columns": [{"key": "name", "title": "Name", "search": true}]}
    }
  }
}`

type testEnv struct {
	backend *fakeBackend
	handler *Handler
	router  chi.Router
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	b := newFakeBackend()
	srv := httptest.NewServer(b)
	t.Cleanup(srv.Close)

	doc, err := schema.Parse([]byte(testCatalog), schema.FormatJSON)
	if err != nil {
		t.Fatalf("parse catalog: %v", err)
	}
	catalog := schema.NewCatalog(doc)

	logger := zerolog.Nop()
	client := remote.NewClient(remote.ClientConfig{BaseURL: srv.URL, Logger: logger, ReadRetries: -1})
	bus := events.NewBus(logger)
	relations := relation.NewLoader(catalog, client, relation.Options{Bus: bus, Logger: logger})
	tables := NewTables(catalog, func(mod schema.ModuleConfig) *table.Table {
		return table.New(mod, table.Deps{Client: client, Bus: bus, Relations: relations, Logger: logger})
	})
	t.Cleanup(tables.Close)

	h, err := NewHandler(Deps{
		Catalog:   catalog,
		Tables:    tables,
		Dashboard: dashboard.NewService(client, dashboard.Options{Logger: logger}),
		Logger:    logger,
		AppName:   "Acme Admin",
		Now: func() time.Time {
			return time.Date(2024, 3, 31, 15, 0, 0, 0, time.UTC)
		},
	})
	if err != nil {
		t.Fatalf("NewHandler: %v", err)
	}
	return &testEnv{backend: b, handler: h, router: h.Router()}
}

func (e *testEnv) get(t *testing.T, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) post(t *testing.T, target string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func assertContains(t *testing.T, body string, want ...string) {
	t.Helper()
	for _, w := range want {
		if !strings.Contains(body, w) {
			t.Errorf("body missing %q", w)
		}
	}
}

func TestDashboard(t *testing.T) {
	e := newTestEnv(t)

	rec := e.get(t, "/")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	assertContains(t, body,
		"Total Sales", "$1,250.50",
		"Total Inventory", "42 items",
		"Pending Invoices", "Low Stock Items",
		"Top Selling Items", "Widget",
		"INV-001", "$99.90",
		"Average Order Value", "$25.00",
		`class="active"`,
	)

	// default range is the last 30 days
	if got := e.backend.reportQuery.Get("startDate"); got != "2024-03-01" {
		t.Errorf("startDate = %q, want 2024-03-01", got)
	}
	if got := e.backend.reportQuery.Get("endDate"); got != "2024-03-31" {
		t.Errorf("endDate = %q, want 2024-03-31", got)
	}
}

func TestDashboard_BackendDown(t *testing.T) {
	e := newTestEnv(t)
	e.backend.setFail("GET /api/dashboard")
	e.backend.setFail("GET /api/sales")

	rec := e.get(t, "/dashboard")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	assertContains(t, body, "Error loading dashboard", "$0.00", "0 items", "Error loading report")
}

func TestDashboard_InvalidRange(t *testing.T) {
	e := newTestEnv(t)

	rec := e.get(t, "/dashboard?start=2024-03-10&end=2024-03-01")
	assertContains(t, rec.Body.String(), "report end date is before start date")

	rec = e.get(t, "/dashboard?start=yesterday")
	assertContains(t, rec.Body.String(), "start date must be YYYY-MM-DD")
}

func TestModulePage(t *testing.T) {
	e := newTestEnv(t)

	rec := e.get(t, "/modules/inventory")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	assertContains(t, body, "Widget", "Gadget", "$1,250.50", "Tools", "Toys",
		"/modules/inventory/1/edit", "/modules/inventory/2/delete")
}

func TestModulePage_Sort(t *testing.T) {
	e := newTestEnv(t)

	body := e.get(t, "/modules/inventory?sort=name&dir=asc").Body.String()
	if strings.Index(body, "Gadget") > strings.Index(body, "Widget") {
		t.Error("ascending sort: Gadget should come before Widget")
	}

	body = e.get(t, "/modules/inventory?sort=quantity&dir=desc").Body.String()
	if strings.Index(body, "Gadget") > strings.Index(body, "Widget") {
		t.Error("descending quantity sort: Gadget (12) should come before Widget (5)")
	}
	assertContains(t, body, "sorted-desc")
}

func TestModulePage_Search(t *testing.T) {
	e := newTestEnv(t)

	body := e.get(t, "/modules/inventory?q=widg").Body.String()
	if !strings.Contains(body, "Widget") || strings.Contains(body, "Gadget") {
		t.Error("search for widg should show only Widget")
	}

	body = e.get(t, "/modules/inventory?q=nothing-matches").Body.String()
	assertContains(t, body, "No records found.")
}

func TestModulePage_Empty(t *testing.T) {
	e := newTestEnv(t)
	e.backend.collections["inventory"] = nil

	body := e.get(t, "/modules/inventory").Body.String()
	assertContains(t, body, "No records found.")
}

func TestModulePage_LoadFailure(t *testing.T) {
	e := newTestEnv(t)
	e.backend.setFail("GET /api/inventory")

	rec := e.get(t, "/modules/inventory")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	assertContains(t, rec.Body.String(), "Error loading data:", "backend exploded")
}

func TestModulePage_RecoversAfterLoadFailure(t *testing.T) {
	e := newTestEnv(t)
	e.backend.setFail("GET /api/inventory")
	assertContains(t, e.get(t, "/modules/inventory").Body.String(), "Error loading data:")

	e.backend.mu.Lock()
	delete(e.backend.fail, "GET /api/inventory")
	e.backend.mu.Unlock()

	body := e.get(t, "/modules/inventory").Body.String()
	assertContains(t, body, "Widget", "Gadget")
	if strings.Contains(body, "Error loading data") {
		t.Error("failed load was not retried on the next visit")
	}
}

func TestModulePage_RefreshReloads(t *testing.T) {
	e := newTestEnv(t)
	e.get(t, "/modules/inventory")

	e.backend.mu.Lock()
	e.backend.collections["inventory"] = append(e.backend.collections["inventory"], map[string]any{"id": 3, "name": "Sprocket"})
	e.backend.mu.Unlock()

	if strings.Contains(e.get(t, "/modules/inventory").Body.String(), "Sprocket") {
		t.Error("cached page should not show records added behind its back")
	}
	assertContains(t, e.get(t, "/modules/inventory?refresh=1").Body.String(), "Sprocket")
}

func TestUnknownModule(t *testing.T) {
	e := newTestEnv(t)

	rec := e.get(t, "/modules/payroll")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	body := rec.Body.String()
	assertContains(t, body, "Module not found", `content="3;url=/"`)
}

func TestNavigationPathOpensModule(t *testing.T) {
	e := newTestEnv(t)

	rec := e.get(t, "/inventory")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	assertContains(t, body, "Widget", `href="/inventory" class="active"`)

	// the canonical module URL highlights the same entry
	assertContains(t, e.get(t, "/modules/inventory").Body.String(), `href="/inventory" class="active"`)
}

func TestNewForm_RelationOptions(t *testing.T) {
	e := newTestEnv(t)

	body := e.get(t, "/modules/inventory/new").Body.String()
	assertContains(t, body, "Add Inventory",
		`<option value="1">Tools</option>`,
		`<option value="2">Toys</option>`,
		`min="0"`,
	)
}

func TestNewForm_RelationFailure(t *testing.T) {
	e := newTestEnv(t)
	e.backend.setFail("GET /api/categories")

	rec := e.get(t, "/modules/inventory/new")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	assertContains(t, rec.Body.String(), "Options unavailable")
}

func TestCreateRecord(t *testing.T) {
	e := newTestEnv(t)

	rec := e.post(t, "/modules/inventory", url.Values{
		"name":     {"Sprocket"},
		"quantity": {"7"},
		"price":    {"$1,000.25"},
		"category": {"2"},
	})
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303; body: %s", rec.Code, rec.Body.String())
	}
	loc := rec.Header().Get("Location")
	if !strings.HasPrefix(loc, "/modules/inventory?notice=") {
		t.Fatalf("Location = %q", loc)
	}

	created, ok := e.backend.record("inventory", "101")
	if !ok {
		t.Fatal("record not created on backend")
	}
	if created["price"] != 1000.25 {
		t.Errorf("price = %v, want 1000.25", created["price"])
	}
	// select values go back as the related record's numeric id
	if created["category"] != float64(2) {
		t.Errorf("category = %#v, want 2", created["category"])
	}

	body := e.get(t, loc).Body.String()
	assertContains(t, body, "Inventory: record created", "Sprocket")

	// notices are shown once
	if strings.Contains(e.get(t, loc).Body.String(), "record created") {
		t.Error("notice shown twice")
	}
}

func TestCreateRecord_ValidationKeepsInput(t *testing.T) {
	e := newTestEnv(t)

	rec := e.post(t, "/modules/inventory", url.Values{"quantity": {"-3"}})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
	body := rec.Body.String()
	assertContains(t, body, "Name is required", "Quantity must be at least 0", `value="-3"`)
}

func TestCreateRecord_NonFiniteNumber(t *testing.T) {
	e := newTestEnv(t)

	rec := e.post(t, "/modules/inventory", url.Values{"name": {"Widget"}, "quantity": {"NaN"}})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
	assertContains(t, rec.Body.String(), "Quantity must be a number")
}

func TestModulePage_NullDataIsEmpty(t *testing.T) {
	e := newTestEnv(t)
	e.backend.mu.Lock()
	e.backend.nullData = true
	e.backend.mu.Unlock()

	body := e.get(t, "/modules/inventory").Body.String()
	assertContains(t, body, "No records found.")
	if strings.Contains(body, "Error loading data") {
		t.Error(`{"data":null} should render as an empty table`)
	}
}

func TestCreateRecord_BackendFailure(t *testing.T) {
	e := newTestEnv(t)
	e.backend.setFail("POST /api/inventory")

	rec := e.post(t, "/modules/inventory", url.Values{"name": {"Sprocket"}})
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}
	body := rec.Body.String()
	assertContains(t, body, "Failed to create record", "backend exploded", `value="Sprocket"`, "/dismiss")
}

func TestEditAndUpdate(t *testing.T) {
	e := newTestEnv(t)

	body := e.get(t, "/modules/inventory/1/edit").Body.String()
	assertContains(t, body, "Edit Inventory", `value="Widget"`, `value="$9.50"`,
		`<option value="1" selected>Tools</option>`)

	rec := e.post(t, "/modules/inventory/1", url.Values{
		"name":     {"Widget Pro"},
		"quantity": {"6"},
		"price":    {"$9.50"},
		"category": {"1"},
	})
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303; body: %s", rec.Code, rec.Body.String())
	}
	updated, _ := e.backend.record("inventory", "1")
	if updated["name"] != "Widget Pro" || updated["quantity"] != float64(6) {
		t.Errorf("updated = %v", updated)
	}
	assertContains(t, e.get(t, rec.Header().Get("Location")).Body.String(), "Widget Pro", "record updated")
}

func TestEditUnknownRecord(t *testing.T) {
	e := newTestEnv(t)

	rec := e.get(t, "/modules/inventory/999/edit")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	assertContains(t, rec.Body.String(), "Record not found.")
}

func TestUpdateRecord_GoneOnBackend(t *testing.T) {
	e := newTestEnv(t)
	e.get(t, "/modules/inventory")

	e.backend.mu.Lock()
	e.backend.collections["inventory"] = e.backend.collections["inventory"][:1]
	e.backend.mu.Unlock()

	rec := e.post(t, "/modules/inventory/2", url.Values{"name": {"Gadget"}, "quantity": {"1"}})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	assertContains(t, rec.Body.String(), "Record not found.")
}

func TestDeleteRecord_GoneOnBackend(t *testing.T) {
	e := newTestEnv(t)

	rec := e.post(t, "/modules/inventory/999/delete", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	assertContains(t, rec.Body.String(), "Record not found.")
}

func TestDeleteRecord(t *testing.T) {
	e := newTestEnv(t)

	body := e.get(t, "/modules/inventory/2/delete").Body.String()
	assertContains(t, body, "Are you sure", "Gadget", "$1,250.50")

	rec := e.post(t, "/modules/inventory/2/delete", nil)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", rec.Code)
	}
	if _, ok := e.backend.record("inventory", "2"); ok {
		t.Error("record still on backend")
	}
	body = e.get(t, rec.Header().Get("Location")).Body.String()
	assertContains(t, body, "record deleted")
	if strings.Contains(body, "Gadget") {
		t.Error("deleted record still listed")
	}
}

func TestDeleteRecord_Failure(t *testing.T) {
	e := newTestEnv(t)
	e.get(t, "/modules/inventory")
	e.backend.setFail("DELETE /api/inventory")

	rec := e.post(t, "/modules/inventory/2/delete", nil)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", rec.Code)
	}
	body := e.get(t, rec.Header().Get("Location")).Body.String()
	assertContains(t, body, "Failed to delete record", "Gadget")
}

func TestNoticeDismiss(t *testing.T) {
	e := newTestEnv(t)
	n := e.handler.notices.Add(NoticeError, "boom")

	rec := e.post(t, "/notices/"+n.ID+"/dismiss", url.Values{"next": {"/modules/inventory"}})
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/modules/inventory" {
		t.Errorf("Location = %q, want /modules/inventory", loc)
	}
	if e.handler.notices.Len() != 0 {
		t.Error("notice not dismissed")
	}

	rec = e.post(t, "/notices/x/dismiss", url.Values{"next": {"//evil.example"}})
	if loc := rec.Header().Get("Location"); loc != "/" {
		t.Errorf("Location = %q, want /", loc)
	}
}

func TestNotFoundPage(t *testing.T) {
	e := newTestEnv(t)

	rec := e.get(t, "/no/such/page")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	assertContains(t, rec.Body.String(), "Page not found", "url=/")
}

func TestStaticAssets(t *testing.T) {
	e := newTestEnv(t)

	rec := e.get(t, "/static/app.css")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}
