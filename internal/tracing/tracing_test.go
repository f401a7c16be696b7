package tracing

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nicolastakashi/query-profiler-panel/internal/config"
)

func TestWithTracing_Disabled(t *testing.T) {
	_, err := WithTracing(context.Background(), slog.Default(), &config.Config{})
	assert.Error(t, err)
}

func TestKitLogger_Log(t *testing.T) {
	var buf bytes.Buffer
	kl := newKitLogger(slog.New(slog.NewTextHandler(&buf, nil)))

	assert.NoError(t, kl.Log("component", "otlp", "msg", "exporting"))
	assert.Contains(t, buf.String(), "component=otlp")
}
