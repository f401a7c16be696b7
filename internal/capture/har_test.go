package capture

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleHAR = `{
  "log": {
    "version": "1.2",
    "creator": {"name": "devtools", "version": "1"},
    "entries": [
      {
        "startedDateTime": "2024-01-01T00:00:00Z",
        "time": 12.7,
        "request": {"method": "GET", "url": "https://example.com/api/v1/widgets?x=1"},
        "response": {
          "status": 200,
          "headers": [{"name": "X-QUERY_PROFILER_TYPE", "value": "QUERY"}]
        }
      },
      {
        "startedDateTime": "2024-01-01T00:00:01Z",
        "time": 3,
        "request": {"method": "POST", "url": "https://example.com/static/app.js"},
        "response": {"status": 304, "headers": []}
      }
    ]
  }
}`

func TestLoadHAR(t *testing.T) {
	src, err := LoadHAR(strings.NewReader(sampleHAR))
	require.NoError(t, err)
	assert.Equal(t, 2, src.Len())

	var got []Exchange
	src.Subscribe(func(e Exchange) { got = append(got, e) })
	src.Replay()

	require.Len(t, got, 2)
	assert.Equal(t, "https://example.com/api/v1/widgets?x=1", got[0].URL)
	assert.Equal(t, "GET", got[0].Method)
	assert.Equal(t, 200, got[0].StatusCode)
	assert.Equal(t, time.Duration(12.7*float64(time.Millisecond)), got[0].Elapsed)
	v, ok := got[0].Lookup("x-query_profiler_type")
	assert.True(t, ok)
	assert.Equal(t, "QUERY", v)

	assert.Equal(t, 304, got[1].StatusCode)
	assert.Empty(t, got[1].Headers)
}

func TestLoadHAR_Invalid(t *testing.T) {
	_, err := LoadHAR(strings.NewReader("{not json"))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "decode har")
}
