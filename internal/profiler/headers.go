// Package profiler extracts query-profiler metadata from finished exchanges.
package profiler

// Response headers emitted by the server-side query profiler. Names are
// matched case-insensitively.
const (
	HeaderSummaryData        = "X-QUERY_PROFILER_SUMMARY_DATA"
	HeaderDetailedURL        = "X-QUERY_PROFILER_DETAILED_URL"
	HeaderTotalServerTime    = "X-TOTAL_SERVER_TIME_IN_MILLIS"
	HeaderTimeSpentProfiling = "X-TIME_SPENT_PROFILING_IN_MICROS"
	HeaderProfilerType       = "X-QUERY_PROFILER_TYPE"
)

// RecognizedHeaders lists every header that makes an exchange produce a row.
var RecognizedHeaders = []string{
	HeaderSummaryData,
	HeaderDetailedURL,
	HeaderTotalServerTime,
	HeaderTimeSpentProfiling,
	HeaderProfilerType,
}

// ProfilerTypeQuery is the profiler type whose detailed view lists raw
// queries. Every other value is treated as a query-signature profile.
const ProfilerTypeQuery = "QUERY"

// DetailedViewNotSetupURL is what the profiler sends as the detailed URL when
// it could not store the detailed report.
const DetailedViewNotSetupURL = "django_query_profiler_detailed_view_not_setup_check_redis_and_urls.py"

const (
	LinkLabelQuery          = "query"
	LinkLabelQuerySignature = "query_signature"
	LinkLabelNotSetup       = "redis_or_urls.py_not_setup"
)
