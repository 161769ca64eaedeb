package http_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	apihttp "github.com/artpar/bizadmin/adapters/http"
	"github.com/artpar/bizadmin/adapters/metrics"
	"github.com/artpar/bizadmin/core/schema"
)

type stubBackend struct {
	err error
}

func (s stubBackend) Ping(ctx context.Context) error {
	return s.err
}

func testCatalog(t *testing.T) *schema.Catalog {
	t.Helper()
	doc, err := schema.Parse([]byte(`{
  "app": {"navigation": {"items": [{"path": "/inventory", "key": "inventory"}]}},
  "modules": {"inventory": {"endpoint": "/api/inventory", "table": {"columns": [{"key": "name"}]}}}
}`), schema.FormatJSON)
	if err != nil {
		t.Fatalf("parse catalog: %v", err)
	}
	return schema.NewCatalog(doc)
}

func serve(h http.Handler, method, target string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	r := apihttp.NewRouter(apihttp.NewHealthHandler(stubBackend{}), zerolog.Nop(), apihttp.RouterConfig{})

	for _, path := range []string{"/health", "/health/live", "/health/ready"} {
		rec := serve(r, http.MethodGet, path, nil)
		if rec.Code != http.StatusOK {
			t.Errorf("%s status = %d, want 200", path, rec.Code)
		}
	}
}

func TestHealth_BackendDown(t *testing.T) {
	r := apihttp.NewRouter(apihttp.NewHealthHandler(stubBackend{err: errors.New("connection refused")}), zerolog.Nop(), apihttp.RouterConfig{})

	rec := serve(r, http.MethodGet, "/health/ready", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "unhealthy" || body["error"] != "connection refused" {
		t.Errorf("body = %v", body)
	}

	// liveness does not depend on the backend
	if rec := serve(r, http.MethodGet, "/health", nil); rec.Code != http.StatusOK {
		t.Errorf("liveness status = %d, want 200", rec.Code)
	}
}

func TestVersion(t *testing.T) {
	r := apihttp.NewRouter(apihttp.NewHealthHandler(nil), zerolog.Nop(), apihttp.RouterConfig{Version: "1.2.3"})

	var v apihttp.VersionResponse
	rec := serve(r, http.MethodGet, "/version", nil)
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if v.Version != "1.2.3" || v.Service != "bizadmin" {
		t.Errorf("version = %+v", v)
	}
}

func TestCatalogAPI(t *testing.T) {
	r := apihttp.NewRouter(apihttp.NewHealthHandler(nil), zerolog.Nop(), apihttp.RouterConfig{Catalog: testCatalog(t)})

	rec := serve(r, http.MethodGet, "/api/catalog", map[string]string{"Origin": "http://spa.example"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q, want *", got)
	}
	var body apihttp.CatalogResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Modules) != 1 || body.Modules[0].Key != "inventory" {
		t.Errorf("modules = %+v", body.Modules)
	}
	if len(body.Navigation) != 1 || body.Navigation[0].Label != "Inventory" {
		t.Errorf("navigation = %+v", body.Navigation)
	}

	rec = serve(r, http.MethodGet, "/api/catalog/modules/inventory", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("module status = %d, want 200", rec.Code)
	}
	var mod schema.ModuleConfig
	if err := json.Unmarshal(rec.Body.Bytes(), &mod); err != nil {
		t.Fatalf("decode module: %v", err)
	}
	if mod.Endpoint != "/api/inventory" || mod.Table.Columns[0].Title != "Name" {
		t.Errorf("module = %+v", mod)
	}

	rec = serve(r, http.MethodGet, "/api/catalog/modules/payroll", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown module status = %d, want 404", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "module_not_found") {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestOpenAPI(t *testing.T) {
	r := apihttp.NewRouter(apihttp.NewHealthHandler(nil), zerolog.Nop(), apihttp.RouterConfig{EnableOpenAPI: true})

	rec := serve(r, http.MethodGet, "/.well-known/openapi.json", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %s, want application/json", ct)
	}
	var doc struct {
		Swagger string                    `json:"swagger"`
		Paths   map[string]map[string]any `json:"paths"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &doc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if doc.Swagger != "2.0" {
		t.Errorf("swagger = %q, want 2.0", doc.Swagger)
	}
	for _, path := range []string{"/health", "/health/ready", "/version", "/api/catalog", "/api/catalog/modules/{key}"} {
		if _, ok := doc.Paths[path]["get"]; !ok {
			t.Errorf("document has no GET %s", path)
		}
	}

	if rec := serve(r, http.MethodGet, "/swagger/index.html", nil); rec.Code != http.StatusOK {
		t.Errorf("swagger UI status = %d, want 200", rec.Code)
	}
}

func TestOpenAPI_Disabled(t *testing.T) {
	r := apihttp.NewRouter(apihttp.NewHealthHandler(nil), zerolog.Nop(), apihttp.RouterConfig{})

	for _, path := range []string{"/.well-known/openapi.json", "/swagger/index.html"} {
		if rec := serve(r, http.MethodGet, path, nil); rec.Code != http.StatusNotFound {
			t.Errorf("%s status = %d, want 404", path, rec.Code)
		}
	}
}

func TestMetricsEndpoint(t *testing.T) {
	m := metrics.New()
	web := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	r := apihttp.NewRouter(apihttp.NewHealthHandler(nil), zerolog.Nop(), apihttp.RouterConfig{
		Metrics:     m,
		MetricsPath: "/internal/metrics",
		WebHandler:  web,
	})

	serve(r, http.MethodGet, "/modules/inventory/42/edit", nil)

	rec := serve(r, http.MethodGet, "/internal/metrics", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	want := `bizadmin_requests_total{method="GET",path="/modules/inventory/:id/edit",status="4xx"} 1`
	if !strings.Contains(body, want) {
		t.Errorf("metrics output missing %s", want)
	}
}

func TestWebHandlerMountedAtRoot(t *testing.T) {
	web := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("page " + r.URL.Path))
	})
	r := apihttp.NewRouter(apihttp.NewHealthHandler(nil), zerolog.Nop(), apihttp.RouterConfig{WebHandler: web})

	rec := serve(r, http.MethodGet, "/modules/inventory", nil)
	if rec.Body.String() != "page /modules/inventory" {
		t.Errorf("body = %q", rec.Body.String())
	}
}
