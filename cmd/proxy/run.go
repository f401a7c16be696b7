package proxy

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"syscall"
	"time"

	"github.com/KimMachineGun/automemlimit/memlimit"
	"github.com/oklog/run"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	versioncollector "github.com/prometheus/client_golang/prometheus/collectors/version"
	"github.com/prometheus/common/version"
	"github.com/rs/cors"

	"github.com/nicolastakashi/query-profiler-panel/api/routes"
	"github.com/nicolastakashi/query-profiler-panel/internal/capture"
	"github.com/nicolastakashi/query-profiler-panel/internal/config"
	"github.com/nicolastakashi/query-profiler-panel/internal/panel"
	"github.com/nicolastakashi/query-profiler-panel/internal/profiler"
	"github.com/nicolastakashi/query-profiler-panel/internal/tracing"
)

func RegisterFlags(fs *flag.FlagSet, configFile *string) {
	fs.StringVar(configFile, "config-file", "", "Path to the configuration file, it takes precedence over the command line flags.")
	fs.StringVar(&config.DefaultConfig.Server.InsecureListenAddress, "insecure-listen-address", config.DefaultConfig.Server.InsecureListenAddress, "The address the query-profiler-panel proxy HTTP server should listen on.")
	fs.StringVar(&config.DefaultConfig.Upstream.URL, "upstream", "", "The URL of the profiled upstream application.")
	fs.IntVar(&config.DefaultConfig.Dispatch.BufferSize, "dispatch-buffer-size", config.DefaultConfig.Dispatch.BufferSize, "Buffer size for the exchange channel.")
	fs.DurationVar(&config.DefaultConfig.Dispatch.GracePeriod, "dispatch-grace-period", config.DefaultConfig.Dispatch.GracePeriod, "Grace period to process pending exchanges after program shutdown.")

	config.RegisterPanelFlags(fs)
	config.RegisterLogFlags(fs)
	config.RegisterMemoryLimitFlags(fs)
}

func Run() error {
	cfg := config.DefaultConfig

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "err", err)
		return fmt.Errorf("validate config: %w", err)
	}

	upstreamURL, err := parseUpstream(cfg.Upstream.URL)
	if err != nil {
		slog.Error("unable to parse upstream", "err", err)
		return err
	}

	if cfg.MemoryLimit.Enabled {
		applyMemoryLimit(cfg.MemoryLimit.Ratio)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		versioncollector.NewCollector("query_profiler_panel"),
	)

	if cfg.IsTracingEnabled() {
		tp, err := tracing.WithTracing(context.Background(), slog.Default(), cfg)
		if err != nil {
			slog.Error("unable to set up tracing", "err", err)
			return fmt.Errorf("set up tracing: %w", err)
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tp.Shutdown(ctx); err != nil {
				slog.Error("error shutting down tracer provider", "err", err)
			}
		}()
	}

	table := panel.NewTable(reg)
	dispatcher := capture.NewDispatcher(
		reg,
		capture.WithBufferSize(cfg.Dispatch.BufferSize),
		capture.WithShutdownGracePeriod(cfg.Dispatch.GracePeriod),
	)
	dispatcher.Subscribe(profiler.NewExtractor(reg, table).Handle)

	var g run.Group

	{
		ctx, cancel := context.WithCancel(context.Background())
		g.Add(func() error {
			dispatcher.Run(ctx)
			return nil
		}, func(err error) {
			cancel()
		})
	}

	{
		routesHandler, err := routes.NewRoutes(
			routes.WithTable(table),
			routes.WithPublisher(dispatcher),
			routes.WithProxy(upstreamURL),
			routes.WithPanelPrefix(cfg.Panel.Prefix),
			routes.WithRefreshInterval(cfg.Panel.RefreshInterval),
			routes.WithHandlers(reg, cfg.IsTracingEnabled()),
		)
		if err != nil {
			slog.Error("unable to create routes", "err", err)
			return fmt.Errorf("create routes: %w", err)
		}

		l, err := net.Listen("tcp", cfg.Server.InsecureListenAddress)
		if err != nil {
			slog.Error("failed to listen on address", "err", err)
			return fmt.Errorf("listen: %w", err)
		}

		srv := &http.Server{
			Handler:           newHandler(routesHandler, cfg.Panel.Prefix, cfg.CORS),
			ReadHeaderTimeout: 10 * time.Second,
		}

		g.Add(func() error {
			slog.Info("listening insecurely", "version", version.Info(), "addr", l.Addr(), "upstream", upstreamURL.String(), "panel", panelPath(cfg.Panel.Prefix))
			if err := srv.Serve(l); err != nil && err != http.ErrServerClosed {
				slog.Error("server stopped", "err", err)
				return err
			}
			return nil
		}, func(error) {
			slog.Info("stopping HTTP Server")
			ctx, cancel := context.WithTimeout(context.Background(), cfg.Dispatch.GracePeriod+5*time.Second)
			defer cancel()
			if err := srv.Shutdown(ctx); err != nil {
				slog.Error("error shutting down server", "err", err)
			}
		})
	}

	{
		g.Add(run.SignalHandler(context.Background(), syscall.SIGINT, syscall.SIGTERM))
	}

	if err := g.Run(); err != nil {
		if !errors.As(err, &run.SignalError{}) {
			return err
		}
		slog.Info("caught signal; exiting gracefully...")
	}
	return nil
}

func parseUpstream(raw string) (*url.URL, error) {
	upstreamURL, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse upstream: %w", err)
	}
	if upstreamURL.Scheme != "http" && upstreamURL.Scheme != "https" {
		return nil, fmt.Errorf("invalid scheme for upstream URL %q, only 'http' and 'https' are supported", raw)
	}
	return upstreamURL, nil
}

func applyMemoryLimit(ratio float64) {
	limit, err := memlimit.SetGoMemLimitWithOpts(
		memlimit.WithRatio(ratio),
		memlimit.WithProvider(memlimit.ApplyFallback(memlimit.FromCgroup, memlimit.FromSystem)),
		memlimit.WithLogger(slog.Default()),
	)
	if err != nil {
		slog.Warn("unable to set memory limit", "err", err)
		return
	}
	slog.Info("memory limit set", "limit", limit, "ratio", ratio)
}

func panelPath(prefix string) string {
	prefix = "/" + strings.Trim(prefix, "/")
	if prefix == "/" {
		prefix = routes.DefaultPanelPrefix
	}
	return prefix + "/"
}

// newHandler applies CORS and browser security headers to the panel
// endpoints only. Proxied responses pass through untouched.
func newHandler(routesHandler http.Handler, prefix string, corsCfg config.CORSConfig) http.Handler {
	base := strings.TrimSuffix(panelPath(prefix), "/")

	secured := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-XSS-Protection", "1; mode=block")
		routesHandler.ServeHTTP(w, r)
	})

	panelHandler := cors.New(cors.Options{
		AllowedOrigins:   corsCfg.AllowedOrigins,
		AllowedMethods:   corsCfg.AllowedMethods,
		AllowedHeaders:   corsCfg.AllowedHeaders,
		AllowCredentials: corsCfg.AllowCredentials,
		MaxAge:           corsCfg.MaxAge,
	}).Handler(secured)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == base || strings.HasPrefix(r.URL.Path, base+"/") || r.URL.Path == "/metrics" {
			panelHandler.ServeHTTP(w, r)
			return
		}
		routesHandler.ServeHTTP(w, r)
	})
}
