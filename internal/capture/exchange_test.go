package capture

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExchange_Lookup(t *testing.T) {
	e := Exchange{Headers: []Header{
		{Name: "content-type", Value: "application/json"},
		{Name: "x-query_profiler_type", Value: "QUERY"},
		{Name: "X-Dup", Value: "first"},
		{Name: "x-dup", Value: "second"},
	}}

	v, ok := e.Lookup("X-QUERY_PROFILER_TYPE")
	assert.True(t, ok)
	assert.Equal(t, "QUERY", v)

	v, ok = e.Lookup("X-DUP")
	assert.True(t, ok)
	assert.Equal(t, "second", v)

	_, ok = e.Lookup("X-Missing")
	assert.False(t, ok)
}

func TestHeadersFrom(t *testing.T) {
	h := http.Header{}
	h.Add("X-A", "1")
	h.Add("X-A", "2")
	h.Set("X-B", "3")

	got := HeadersFrom(h)
	assert.ElementsMatch(t, []Header{
		{Name: "X-A", Value: "1"},
		{Name: "X-A", Value: "2"},
		{Name: "X-B", Value: "3"},
	}, got)
}
