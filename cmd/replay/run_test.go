package replay

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nicolastakashi/query-profiler-panel/internal/config"
)

const testHAR = `{
  "log": {
    "version": "1.2",
    "entries": [
      {
        "time": 42.7,
        "request": {"method": "GET", "url": "https://shop.local/api/v1/widgets?page=2"},
        "response": {
          "status": 200,
          "headers": [
            {"name": "Content-Type", "value": "application/json"},
            {"name": "x-query_profiler_summary_data", "value": "{\"total_query_execution_time_in_micros\": 12345, \"SELECT\": 1500, \"potential_n_plus1_query_count\": 3}"},
            {"name": "X-QUERY_PROFILER_DETAILED_URL", "value": "https://shop.local/profiler/detail/42"},
            {"name": "X-QUERY_PROFILER_TYPE", "value": "QUERY"}
          ]
        }
      },
      {
        "time": 3,
        "request": {"method": "GET", "url": "https://shop.local/static/app.js"},
        "response": {"status": 200, "headers": [{"name": "Content-Type", "value": "text/javascript"}]}
      }
    ]
  }
}`

func TestRun(t *testing.T) {
	config.Reset()
	t.Cleanup(config.Reset)

	dir := t.TempDir()
	harPath := filepath.Join(dir, "session.har")
	require.NoError(t, os.WriteFile(harPath, []byte(testHAR), 0o600))

	config.DefaultConfig.Replay.HARPath = harPath
	config.DefaultConfig.Replay.OutputPath = filepath.Join(dir, "out.xls")

	require.NoError(t, Run())

	out, err := os.ReadFile(config.DefaultConfig.Replay.OutputPath)
	require.NoError(t, err)

	body := string(out)
	assert.Contains(t, body, "/api/v1/widgets")
	assert.Contains(t, body, "1,500")
	assert.NotContains(t, body, "/static/app.js")
	assert.NotContains(t, strings.ToLower(body), "<a")
	assert.NotContains(t, strings.ToLower(body), "<input")
}

func TestRun_Errors(t *testing.T) {
	config.Reset()
	t.Cleanup(config.Reset)

	assert.ErrorIs(t, Run(), ErrNoHAR)

	config.DefaultConfig.Replay.HARPath = filepath.Join(t.TempDir(), "missing.har")
	assert.Error(t, Run())

	bad := filepath.Join(t.TempDir(), "bad.har")
	require.NoError(t, os.WriteFile(bad, []byte("{not json"), 0o600))
	config.DefaultConfig.Replay.HARPath = bad
	assert.ErrorContains(t, Run(), "decode har")
}
