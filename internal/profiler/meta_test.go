package profiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAPIPath(t *testing.T) {
	tests := []struct {
		url      string
		expected string
	}{
		{url: "https://host/api/v1/widgets?x=1", expected: "/api/v1/widgets"},
		{url: "http://host:8000/food/pizza/#top", expected: "/food/pizza/"},
		{url: "https://host", expected: "/"},
		{url: "/relative/path?q=1", expected: "/relative/path"},
		{url: "https://host/with%20space", expected: "/with%20space"},
		{url: "http://[::1/bad?x", expected: "http://[::1/bad"},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.expected, APIPath(tt.url))
		})
	}
}

func TestDetailedURL(t *testing.T) {
	assert.Equal(t, "https://h/r/1?name=/api", DetailedURL("https://h/r/1", "/api"))
	assert.Equal(t, "", DetailedURL("", "/api"))
}

func TestRequestMeta_LinkLabel(t *testing.T) {
	tests := []struct {
		name     string
		meta     RequestMeta
		expected string
	}{
		{name: "query", meta: RequestMeta{ProfilerType: "QUERY"}, expected: "query"},
		{name: "signature", meta: RequestMeta{ProfilerType: "QUERY_SIGNATURE"}, expected: "query_signature"},
		{name: "lowercase is not query", meta: RequestMeta{ProfilerType: "query"}, expected: "query_signature"},
		{name: "empty", meta: RequestMeta{}, expected: "query_signature"},
		{
			name:     "detailed view not set up",
			meta:     RequestMeta{ProfilerType: "QUERY", DetailedReportURL: DetailedViewNotSetupURL + "?name=/x"},
			expected: "redis_or_urls.py_not_setup",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.meta.LinkLabel())
		})
	}
}
