// Package http provides the root router: middleware, health checks,
// metrics and the read-only catalog API. The admin pages are mounted from
// the web package.
package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	httpSwagger "github.com/swaggo/http-swagger"
	"github.com/swaggo/swag"

	"github.com/artpar/bizadmin/adapters/metrics"
	"github.com/artpar/bizadmin/core/schema"
	_ "github.com/artpar/bizadmin/docs/swagger" // swagger docs
)

// ErrorResponseBody is the JSON error envelope.
type ErrorResponseBody struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail represents error details.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// VersionResponse represents the version endpoint response.
type VersionResponse struct {
	Version string `json:"version"`
	Service string `json:"service"`
}

// HealthHandler provides health check endpoints.
type HealthHandler struct {
	backend HealthChecker
}

// HealthChecker reports whether the backend is reachable.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(backend HealthChecker) *HealthHandler {
	return &HealthHandler{backend: backend}
}

// Liveness returns OK if the process is serving.
//
//	@Summary		Liveness check
//	@Description	Returns OK if the admin server is running
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	map[string]string	"status: ok"
//	@Router			/health [get]
//	@Router			/health/live [get]
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Readiness checks that the backend answers.
//
//	@Summary		Readiness check
//	@Description	Checks that the REST backend answers below 500
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	map[string]string		"status: ok"
//	@Failure		503	{object}	map[string]interface{}	"status: unhealthy, error: message"
//	@Router			/health/ready [get]
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if h.backend != nil {
		if err := h.backend.Ping(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{
				"status": "unhealthy",
				"error":  err.Error(),
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// CatalogHandler serves the module catalog as JSON so other front ends
// can render the same screens.
type CatalogHandler struct {
	catalog *schema.Catalog
}

// NewCatalogHandler creates a catalog API handler.
func NewCatalogHandler(catalog *schema.Catalog) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

// Routes returns the catalog API router.
func (h *CatalogHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.List)
	r.Get("/modules/{key}", h.Module)
	return r
}

// CatalogResponse is the body of the catalog listing.
type CatalogResponse struct {
	Navigation []schema.NavItem      `json:"navigation"`
	Modules    []schema.ModuleConfig `json:"modules"`
}

// List returns navigation and every module.
//
//	@Summary		List the catalog
//	@Description	Returns the navigation items and every module definition in navigation order
//	@Tags			Catalog
//	@Produce		json
//	@Success		200	{object}	CatalogResponse
//	@Router			/api/catalog [get]
func (h *CatalogHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, CatalogResponse{
		Navigation: h.catalog.Navigation(),
		Modules:    h.catalog.Modules(),
	})
}

// Module returns one module definition.
//
//	@Summary		Get a module
//	@Description	Returns the column and field definitions of one module
//	@Tags			Catalog
//	@Produce		json
//	@Param			key	path		string	true	"Module key"
//	@Success		200	{object}	map[string]interface{}	"module definition"
//	@Failure		404	{object}	ErrorResponseBody
//	@Router			/api/catalog/modules/{key} [get]
func (h *CatalogHandler) Module(w http.ResponseWriter, r *http.Request) {
	mod, err := h.catalog.Lookup(chi.URLParam(r, "key"))
	if err != nil {
		writeError(w, http.StatusNotFound, "module_not_found", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, mod)
}

// RouterConfig holds optional configuration for the router.
type RouterConfig struct {
	Metrics     *metrics.Collector
	MetricsPath string // default "/metrics"; empty Metrics disables the endpoint
	Catalog     *schema.Catalog
	WebHandler  http.Handler // Admin pages, mounted at root
	Version     string

	// EnableOpenAPI serves the API document and Swagger UI.
	EnableOpenAPI bool

	// CORSOrigins are allowed to read the catalog API. Default "*".
	CORSOrigins []string

	// RequestTimeout bounds each request; zero means 60s.
	RequestTimeout time.Duration
}

// NewRouter creates the main HTTP router.
func NewRouter(healthHandler *HealthHandler, logger zerolog.Logger, cfg RouterConfig) chi.Router {
	r := chi.NewRouter()

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(NewLoggingMiddleware(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(timeout))

	metricsPath := cfg.MetricsPath
	if metricsPath == "" {
		metricsPath = "/metrics"
	}
	if cfg.Metrics != nil {
		r.Use(NewMetricsMiddleware(cfg.Metrics, metricsPath))
	}

	// Health endpoints
	r.Get("/health", healthHandler.Liveness)
	r.Get("/health/live", healthHandler.Liveness)
	r.Get("/health/ready", healthHandler.Readiness)

	if cfg.Metrics != nil {
		r.Handle(metricsPath, cfg.Metrics.Handler())
	}

	r.Get("/version", Version(cfg.Version))

	if cfg.EnableOpenAPI {
		r.Get("/.well-known/openapi.json", OpenAPIDocument)
		r.Get("/swagger/*", httpSwagger.Handler(
			httpSwagger.URL("/.well-known/openapi.json"),
		))
	}

	if cfg.Catalog != nil {
		origins := cfg.CORSOrigins
		if len(origins) == 0 {
			origins = []string{"*"}
		}
		r.Route("/api/catalog", func(r chi.Router) {
			r.Use(cors.Handler(cors.Options{
				AllowedOrigins: origins,
				AllowedMethods: []string{"GET", "OPTIONS"},
				AllowedHeaders: []string{"Accept", "Content-Type"},
				MaxAge:         300,
			}))
			r.Mount("/", NewCatalogHandler(cfg.Catalog).Routes())
		})
	}

	if cfg.WebHandler != nil {
		r.Mount("/", cfg.WebHandler)
	}

	return r
}

// Version returns the service version.
//
//	@Summary		Get service version
//	@Description	Returns the version of the admin server
//	@Tags			System
//	@Produce		json
//	@Success		200	{object}	VersionResponse	"Version information"
//	@Router			/version [get]
func Version(version string) http.HandlerFunc {
	if version == "" {
		version = "dev"
	}
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, VersionResponse{Version: version, Service: "bizadmin"})
	}
}

// OpenAPIDocument serves the registered swagger document.
func OpenAPIDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := swag.ReadDoc()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "openapi_unavailable", err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	_, _ = w.Write([]byte(doc))
}

// NewMetricsMiddleware creates middleware that records request metrics.
func NewMetricsMiddleware(m *metrics.Collector, metricsPath string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Skip metrics for internal endpoints
			if strings.HasPrefix(r.URL.Path, "/health") || r.URL.Path == metricsPath ||
				strings.HasPrefix(r.URL.Path, "/static/") {
				next.ServeHTTP(w, r)
				return
			}

			m.RequestsInFlight.Inc()
			defer m.RequestsInFlight.Dec()

			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			path := metrics.NormalizePath(r.URL.Path)
			m.RequestsTotal.WithLabelValues(r.Method, path, metrics.StatusClass(ww.Status())).Inc()
			m.RequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
		})
	}
}

// NewLoggingMiddleware creates a new logging middleware.
func NewLoggingMiddleware(logger zerolog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			// Skip logging for health checks and static files
			if strings.HasPrefix(r.URL.Path, "/health") || strings.HasPrefix(r.URL.Path, "/static/") {
				return
			}

			ev := logger.Debug()
			if ww.Status() >= 500 {
				ev = logger.Warn()
			}
			ev.
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Str("request_id", middleware.GetReqID(r.Context())).
				Msg("http request")
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponseBody{Error: ErrorDetail{Code: code, Message: message}})
}
