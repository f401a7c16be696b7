package tracing

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/thanos-io/thanos/pkg/tracing/otlp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/trace"
	"gopkg.in/yaml.v3"

	"github.com/nicolastakashi/query-profiler-panel/internal/config"
)

type kitLogger struct {
	logger *slog.Logger
}

func newKitLogger(logger *slog.Logger) *kitLogger {
	return &kitLogger{logger: logger}
}

func (kl *kitLogger) Log(keyvals ...interface{}) error {
	kl.logger.Log(context.Background(), slog.LevelInfo, "", keyvals...)
	return nil
}

// WithTracing installs a global OTLP tracer provider built from cfg.Tracing.
// The service name honours OTEL_SERVICE_NAME.
func WithTracing(ctx context.Context, logger *slog.Logger, cfg *config.Config) (*trace.TracerProvider, error) {
	if !cfg.IsTracingEnabled() {
		return nil, fmt.Errorf("tracing is not configured")
	}

	tracingCfg := *cfg.Tracing
	if name := cfg.GetTracingServiceName(); name != "" {
		tracingCfg.ServiceName = name
	}

	f, err := yaml.Marshal(&tracingCfg)
	if err != nil {
		return nil, fmt.Errorf("unable to marshal tracing config: %w", err)
	}

	tp, err := otlp.NewTracerProvider(ctx, newKitLogger(logger), f)
	if err != nil {
		return nil, fmt.Errorf("create tracer provider: %w", err)
	}
	otel.SetTracerProvider(tp)
	return tp, nil
}
