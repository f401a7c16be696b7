package response

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResponseWriter_RecordsExchange(t *testing.T) {
	rec := httptest.NewRecorder()
	w := NewResponseWriter(rec)

	w.Header().Set("X-QUERY_PROFILER_TYPE", "QUERY")
	w.WriteHeader(http.StatusCreated)
	_, err := w.Write([]byte("hello"))
	require.NoError(t, err)
	w.WriteHeader(http.StatusInternalServerError)

	assert.Equal(t, http.StatusCreated, w.GetStatusCode())
	assert.Equal(t, 5, w.GetBodySize())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/widgets?x=1", nil)
	e := w.Exchange(req, 42*time.Millisecond)

	assert.Equal(t, "http://example.com/api/v1/widgets?x=1", e.URL)
	assert.Equal(t, http.MethodGet, e.Method)
	assert.Equal(t, http.StatusCreated, e.StatusCode)
	assert.Equal(t, 42*time.Millisecond, e.Elapsed)

	v, ok := e.Lookup("x-query_profiler_type")
	assert.True(t, ok)
	assert.Equal(t, "QUERY", v)
}

func TestResponseWriter_DefaultStatus(t *testing.T) {
	w := NewResponseWriter(httptest.NewRecorder())
	_, err := w.Write([]byte("ok"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, w.GetStatusCode())
}
