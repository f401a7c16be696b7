package profiler

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nicolastakashi/query-profiler-panel/internal/capture"
	"github.com/nicolastakashi/query-profiler-panel/internal/format"
)

type recordingAppender struct {
	rows []Record
}

func (r *recordingAppender) AppendRow(meta RequestMeta, summary Summary) {
	r.rows = append(r.rows, Record{Meta: meta, Summary: summary})
}

func profiledExchange() capture.Exchange {
	return capture.Exchange{
		URL:     "https://host/api/v1/widgets?x=1",
		Elapsed: 153*time.Millisecond + 900*time.Microsecond,
		Headers: []capture.Header{
			{Name: "Content-Type", Value: "application/json"},
			{Name: "x-query_profiler_summary_data", Value: `{"total_query_execution_time_in_micros": 1234567, "SELECT": 1200, "INSERT": 1, "UPDATE": 0, "DELETE": 0, "TRANSACTIONALS": 2, "OTHER": 0, "total_db_row_count": null, "potential_n_plus1_query_count": 3, "exact_query_duplicates": 4}`},
			{Name: "X-Query_Profiler_Detailed_Url", Value: "https://host/django_query_profiler/abc/QUERY"},
			{Name: "X-TOTAL_SERVER_TIME_IN_MILLIS", Value: "140"},
			{Name: "X-TIME_SPENT_PROFILING_IN_MICROS", Value: "2500"},
			{Name: "X-QUERY_PROFILER_TYPE", Value: "QUERY"},
		},
	}
}

func TestExtract_AllHeaders(t *testing.T) {
	rec, err := Extract(profiledExchange())
	require.NoError(t, err)

	assert.Equal(t, "/api/v1/widgets", rec.Meta.APIPath)
	assert.Equal(t, format.Some(153), rec.Meta.RequestTimeMillis)
	assert.Equal(t, format.Some(140), rec.Meta.ServerTimeMillis)
	assert.Equal(t, format.Some(2500), rec.Meta.ProfilingTimeMicros)
	assert.Equal(t, "https://host/django_query_profiler/abc/QUERY?name=/api/v1/widgets", rec.Meta.DetailedReportURL)
	assert.Equal(t, "QUERY", rec.Meta.ProfilerType)
	assert.Equal(t, LinkLabelQuery, rec.Meta.LinkLabel())

	assert.Equal(t, format.Some(1234567), rec.Summary.TotalQueryExecutionTimeMicros)
	assert.Equal(t, format.Some(1200), rec.Summary.Select)
	assert.Equal(t, format.Some(2), rec.Summary.Transactionals)
	assert.Equal(t, format.Missing, rec.Summary.TotalDBRowCount)
	assert.Equal(t, format.Some(3), rec.Summary.PotentialNPlus1QueryCount)
	assert.Equal(t, format.Some(4), rec.Summary.ExactQueryDuplicates)
}

func TestExtract_NoRecognizedHeaders(t *testing.T) {
	_, err := Extract(capture.Exchange{
		URL:     "https://host/static/app.js",
		Headers: []capture.Header{{Name: "Content-Type", Value: "text/javascript"}},
	})
	assert.ErrorIs(t, err, ErrNotProfiled)
}

func TestExtract_SingleHeaderIsEnough(t *testing.T) {
	for _, name := range RecognizedHeaders {
		t.Run(name, func(t *testing.T) {
			value := "1"
			if name == HeaderSummaryData {
				value = "{}"
			}
			rec, err := Extract(capture.Exchange{
				URL:     "/only",
				Headers: []capture.Header{{Name: name, Value: value}},
			})
			require.NoError(t, err)
			assert.Equal(t, "/only", rec.Meta.APIPath)
		})
	}
}

func TestExtract_MissingFieldsStayMissing(t *testing.T) {
	rec, err := Extract(capture.Exchange{
		URL:     "https://host/api",
		Headers: []capture.Header{{Name: HeaderProfilerType, Value: "QUERY_SIGNATURE"}},
	})
	require.NoError(t, err)

	assert.Equal(t, format.Missing, rec.Meta.ServerTimeMillis)
	assert.Equal(t, format.Missing, rec.Meta.ProfilingTimeMicros)
	assert.Equal(t, "", rec.Meta.DetailedReportURL)
	assert.Equal(t, Summary{}, rec.Summary)
	assert.Equal(t, LinkLabelQuerySignature, rec.Meta.LinkLabel())
}

func TestExtract_NonNumericHeaders(t *testing.T) {
	rec, err := Extract(capture.Exchange{
		URL: "/x",
		Headers: []capture.Header{
			{Name: HeaderTotalServerTime, Value: "fast"},
			{Name: HeaderTimeSpentProfiling, Value: ""},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, format.Missing, rec.Meta.ServerTimeMillis)
	assert.Equal(t, format.Missing, rec.Meta.ProfilingTimeMicros)
}

func TestExtract_MalformedSummary(t *testing.T) {
	_, err := Extract(capture.Exchange{
		URL:     "/x",
		Headers: []capture.Header{{Name: HeaderSummaryData, Value: "{not json"}},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedSummary)

	var parseErr *SummaryParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, "{not json", parseErr.Raw)
}

func TestExtractor_Handle(t *testing.T) {
	reg := prometheus.NewRegistry()
	rows := &recordingAppender{}
	x := NewExtractor(reg, rows)

	x.Handle(capture.Exchange{URL: "/static.css"})
	x.Handle(capture.Exchange{URL: "/bad", Headers: []capture.Header{{Name: HeaderSummaryData, Value: "["}}})
	x.Handle(profiledExchange())
	x.Handle(capture.Exchange{URL: "/again", Headers: []capture.Header{{Name: HeaderTotalServerTime, Value: "5"}}})

	require.Len(t, rows.rows, 2)
	assert.Equal(t, "/api/v1/widgets", rows.rows[0].Meta.APIPath)
	assert.Equal(t, "/again", rows.rows[1].Meta.APIPath)

	assert.Equal(t, float64(1), testutil.ToFloat64(x.parseFailuresTotal))
	assert.Equal(t, float64(1), testutil.ToFloat64(x.exchangesTotal.WithLabelValues("not_profiled")))
	assert.Equal(t, float64(2), testutil.ToFloat64(x.exchangesTotal.WithLabelValues("row")))
}
