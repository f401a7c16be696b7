package profiler

import (
	"errors"
	"log/slog"
	"math"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/nicolastakashi/query-profiler-panel/internal/capture"
	"github.com/nicolastakashi/query-profiler-panel/internal/format"
)

// ErrNotProfiled is returned by Extract when none of the recognized headers
// is present.
var ErrNotProfiled = errors.New("no profiler headers present")

// Record is the parsed profiler data of one exchange.
type Record struct {
	Meta    RequestMeta
	Summary Summary
}

// Extract scans e for the profiler headers. It returns ErrNotProfiled when
// none is present and a *SummaryParseError when the summary header is not
// valid JSON.
func Extract(e capture.Exchange) (Record, error) {
	found := false
	lookup := func(name string) string {
		v, ok := e.Lookup(name)
		found = found || ok
		return v
	}

	rawSummary := lookup(HeaderSummaryData)
	reportURL := lookup(HeaderDetailedURL)
	serverTime := lookup(HeaderTotalServerTime)
	profilingTime := lookup(HeaderTimeSpentProfiling)
	profilerType := lookup(HeaderProfilerType)
	if !found {
		return Record{}, ErrNotProfiled
	}

	summary, err := ParseSummary(rawSummary)
	if err != nil {
		return Record{}, err
	}

	apiPath := APIPath(e.URL)
	elapsedMillis := float64(e.Elapsed) / float64(time.Millisecond)

	return Record{
		Meta: RequestMeta{
			APIPath:             apiPath,
			RequestTimeMillis:   format.Some(math.Floor(elapsedMillis)),
			ServerTimeMillis:    format.ParseNumber(serverTime),
			ProfilingTimeMicros: format.ParseNumber(profilingTime),
			DetailedReportURL:   DetailedURL(reportURL, apiPath),
			ProfilerType:        profilerType,
		},
		Summary: summary,
	}, nil
}

// RowAppender receives one row per profiled exchange.
type RowAppender interface {
	AppendRow(meta RequestMeta, summary Summary)
}

// Extractor feeds profiled exchanges into a RowAppender.
type Extractor struct {
	rows RowAppender

	exchangesTotal     *prometheus.CounterVec
	parseFailuresTotal prometheus.Counter
}

func NewExtractor(reg prometheus.Registerer, rows RowAppender) *Extractor {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	return &Extractor{
		rows: rows,
		exchangesTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "panel_exchanges_total",
				Help: "Total number of exchanges inspected, by outcome",
			},
			[]string{"outcome"},
		),
		parseFailuresTotal: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "panel_summary_parse_failures_total",
				Help: "Total number of profiler summary headers that failed to parse",
			},
		),
	}
}

// Handle is a capture.Handler. A malformed summary skips the row and is
// logged; it never affects later exchanges.
func (x *Extractor) Handle(e capture.Exchange) {
	rec, err := Extract(e)

	var parseErr *SummaryParseError
	switch {
	case errors.Is(err, ErrNotProfiled):
		x.exchangesTotal.WithLabelValues("not_profiled").Inc()
		return
	case errors.As(err, &parseErr):
		x.exchangesTotal.WithLabelValues("parse_failure").Inc()
		x.parseFailuresTotal.Inc()
		slog.Warn("skipping row for malformed profiler summary", "url", e.URL, "err", err, "raw", parseErr.Raw)
		return
	case err != nil:
		x.exchangesTotal.WithLabelValues("error").Inc()
		slog.Error("unable to extract profiler data", "url", e.URL, "err", err)
		return
	}

	x.exchangesTotal.WithLabelValues("row").Inc()
	x.rows.AppendRow(rec.Meta, rec.Summary)
}
