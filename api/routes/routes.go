package routes

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"
	"time"

	"github.com/metalmatze/signal/server/signalhttp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/trace"

	"github.com/nicolastakashi/query-profiler-panel/api/models"
	"github.com/nicolastakashi/query-profiler-panel/api/response"
	"github.com/nicolastakashi/query-profiler-panel/internal/capture"
	"github.com/nicolastakashi/query-profiler-panel/internal/panel"
)

// DefaultPanelPrefix is where the panel is mounted when no prefix is configured.
const DefaultPanelPrefix = "/__profiler"

// Publisher accepts finished exchanges without blocking.
type Publisher interface {
	Publish(e capture.Exchange) error
}

type routes struct {
	handler http.Handler
	mux     *http.ServeMux

	table     *panel.Table
	publisher Publisher
	prefix    string
	refresh   time.Duration
}

type Option func(*routes)

func WithTable(table *panel.Table) Option {
	return func(r *routes) {
		r.table = table
	}
}

func WithPublisher(publisher Publisher) Option {
	return func(r *routes) {
		r.publisher = publisher
	}
}

func WithPanelPrefix(prefix string) Option {
	return func(r *routes) {
		prefix = "/" + strings.Trim(prefix, "/")
		if prefix == "/" {
			prefix = DefaultPanelPrefix
		}
		r.prefix = prefix
	}
}

func WithRefreshInterval(refresh time.Duration) Option {
	return func(r *routes) {
		r.refresh = refresh
	}
}

func WithProxy(upstream *url.URL) Option {
	return func(r *routes) {
		proxy := httputil.NewSingleHostReverseProxy(upstream)
		originalDirector := proxy.Director
		proxy.Director = func(req *http.Request) {
			originalDirector(req)
			req.Host = upstream.Host // Set the Host header to the target host
		}
		proxy.ErrorHandler = func(w http.ResponseWriter, req *http.Request, err error) {
			slog.Error("upstream request failed", "err", err, "url", req.URL.String())
			writeErrorResponse(req, w, fmt.Errorf("upstream request failed: %w", err), http.StatusBadGateway)
		}
		r.handler = proxy
	}
}

// WithHandlers mounts the proxy, the panel and /metrics. It must be the last
// option since it reads the others.
func WithHandlers(registry *prometheus.Registry, isTracingEnabled bool) Option {
	return func(r *routes) {
		i := signalhttp.NewHandlerInstrumenter(registry, []string{"handler"})
		mux := http.NewServeMux()

		var proxied http.Handler = http.HandlerFunc(r.passthrough)
		if isTracingEnabled {
			proxied = otelhttp.NewHandler(proxied, "proxy")
		}
		mux.Handle("/", proxied)
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

		mux.Handle(r.prefix, http.RedirectHandler(r.prefix+"/", http.StatusMovedPermanently))
		mux.Handle(r.prefix+"/{$}", i.NewHandler(
			prometheus.Labels{"handler": "panel"},
			http.HandlerFunc(r.panelPage),
		))
		mux.Handle(r.prefix+"/clear", i.NewHandler(
			prometheus.Labels{"handler": "clear"},
			http.HandlerFunc(r.clear),
		))
		mux.Handle(r.prefix+"/export", i.NewHandler(
			prometheus.Labels{"handler": "export"},
			http.HandlerFunc(r.export),
		))
		mux.Handle(r.prefix+"/api/rows", i.NewHandler(
			prometheus.Labels{"handler": "rows"},
			http.HandlerFunc(r.rows),
		))
		r.mux = mux
	}
}

func NewRoutes(opts ...Option) (*routes, error) {
	r := &routes{
		mux:    http.NewServeMux(), // Initialize mux to avoid nil pointer dereference
		prefix: DefaultPanelPrefix,
	}

	for _, opt := range opts {
		opt(r)
	}

	if r.table == nil {
		return nil, fmt.Errorf("panel table is required")
	}
	if r.handler == nil {
		r.handler = http.NotFoundHandler()
	}

	return r, nil
}

func (r *routes) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// passthrough proxies req upstream and publishes the finished exchange.
func (r *routes) passthrough(w http.ResponseWriter, req *http.Request) {
	start := time.Now()

	recw := response.NewResponseWriter(w)
	r.handler.ServeHTTP(recw, req)

	if r.publisher == nil {
		return
	}
	if err := r.publisher.Publish(recw.Exchange(req, time.Since(start))); err != nil {
		slog.Debug("exchange not published", "err", err, "url", req.URL.String())
	}
}

func (r *routes) panelPage(w http.ResponseWriter, req *http.Request) {
	if !allowMethods(w, req, http.MethodGet, http.MethodHead) {
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := r.table.Render(w, panel.RenderOptions{Prefix: r.prefix, Refresh: r.refresh}); err != nil {
		slog.Error("unable to render panel", "err", err)
		writeErrorResponse(req, w, err, http.StatusInternalServerError)
	}
}

func (r *routes) clear(w http.ResponseWriter, req *http.Request) {
	if !allowMethods(w, req, http.MethodPost, http.MethodDelete) {
		return
	}

	r.table.ClearRows()
	slog.Debug("panel table cleared")

	if wantsJSON(req) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, req, r.prefix+"/", http.StatusSeeOther)
}

func (r *routes) export(w http.ResponseWriter, req *http.Request) {
	if !allowMethods(w, req, http.MethodGet, http.MethodHead) {
		return
	}

	exp, err := r.table.Export()
	if err != nil {
		slog.Error("unable to export panel", "err", err)
		writeErrorResponse(req, w, err, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", exp.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", exp.FileName))
	w.Header().Set("ETag", exp.ETag())
	w.Header().Set("Cache-Control", "no-cache")
	if match := req.Header.Get("If-None-Match"); match != "" && match == exp.ETag() {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	if _, err := w.Write(exp.Body); err != nil {
		slog.Error("unable to write export", "err", err)
	}
}

func (r *routes) rows(w http.ResponseWriter, req *http.Request) {
	switch req.Method {
	case http.MethodGet, http.MethodHead:
		writeJSONResponse(req, w, models.NewRowsResponse(r.table.Rows()))
	case http.MethodDelete:
		r.table.ClearRows()
		w.WriteHeader(http.StatusNoContent)
	default:
		allowMethods(w, req, http.MethodGet, http.MethodHead, http.MethodDelete)
	}
}

func allowMethods(w http.ResponseWriter, req *http.Request, methods ...string) bool {
	for _, m := range methods {
		if req.Method == m {
			return true
		}
	}
	w.Header().Set("Allow", strings.Join(methods, ", "))
	writeErrorResponse(req, w, fmt.Errorf("method %s not allowed", req.Method), http.StatusMethodNotAllowed)
	return false
}

func wantsJSON(req *http.Request) bool {
	return strings.Contains(req.Header.Get("Accept"), "application/json")
}

func writeJSONResponse(req *http.Request, w http.ResponseWriter, response interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		slog.Error("failed to encode JSON response", "err", err)
		writeErrorResponse(req, w, fmt.Errorf("failed to encode response: %w", err), http.StatusInternalServerError)
		return
	}
}

func writeErrorResponse(r *http.Request, w http.ResponseWriter, err error, status int) {
	response := struct {
		Error   string `json:"error"`
		Code    int    `json:"code"`
		TraceID string `json:"traceId,omitempty"`
	}{
		Error: err.Error(),
		Code:  status,
	}
	if sc := trace.SpanFromContext(r.Context()).SpanContext(); sc.HasTraceID() {
		response.TraceID = sc.TraceID().String()
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	err = json.NewEncoder(w).Encode(response)
	if err != nil {
		slog.Error("failed to encode JSON response", "err", err)
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
		return
	}
}
