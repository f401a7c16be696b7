// Package panel owns the on-screen table of profiled requests.
package panel

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/nicolastakashi/query-profiler-panel/internal/format"
	"github.com/nicolastakashi/query-profiler-panel/internal/profiler"
)

// ColumnCount is the number of display cells in every data row. The
// detailed-report link cell follows them.
const ColumnCount = 14

// Columns are the header row titles, in cell order, link column last.
var Columns = [ColumnCount + 1]string{
	"API",
	"Request time (ms)",
	"Server time (ms)",
	"Profiling time (ms)",
	"Query time (ms)",
	"SELECT",
	"INSERT",
	"UPDATE",
	"DELETE",
	"TRANSACTIONALS",
	"OTHER",
	"DB rows",
	"N+1 suspects",
	"Exact duplicates",
	"Details",
}

// Cell is one rendered table cell. Cells with IsLink set render as an anchor
// to Href opening in a new browsing context.
type Cell struct {
	Text   string
	Class  string
	Href   string
	IsLink bool
}

// Row is one profiled request.
type Row struct {
	Meta    profiler.RequestMeta
	Summary profiler.Summary
}

// Cells formats the row into its fourteen display cells.
func (r Row) Cells() [ColumnCount]Cell {
	m, s := r.Meta, r.Summary
	return [ColumnCount]Cell{
		{Text: pathText(m.APIPath), Class: "wrappedClass"},
		{Text: format.Commafy(m.RequestTimeMillis)},
		{Text: format.Commafy(m.ServerTimeMillis)},
		{Text: format.Commafy(m.ProfilingTimeMicros.Div(1000))},
		{Text: format.Commafy(s.TotalQueryExecutionTimeMicros.Div(1000))},
		{Text: format.Commafy(s.Select)},
		{Text: format.Commafy(s.Insert)},
		{Text: format.Commafy(s.Update)},
		{Text: format.Commafy(s.Delete)},
		{Text: format.Commafy(s.Transactionals)},
		{Text: format.Commafy(s.Other)},
		{Text: format.Commafy(s.TotalDBRowCount)},
		{Text: s.PotentialNPlus1QueryCount.Raw()},
		{Text: s.ExactQueryDuplicates.Raw()},
	}
}

// Link returns the detailed-report link cell that trails the data cells.
func (r Row) Link() Cell {
	return Cell{Text: r.Meta.LinkLabel(), Href: r.Meta.DetailedReportURL, IsLink: true}
}

func pathText(p string) string {
	if p == "" {
		return format.Placeholder
	}
	return p
}

// Table is the rendering context of the panel. It is safe for concurrent use.
type Table struct {
	mu   sync.RWMutex
	rows []Row

	rowsGauge     prometheus.Gauge
	appendedTotal prometheus.Counter
	clearedTotal  prometheus.Counter
}

func NewTable(reg prometheus.Registerer) *Table {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	return &Table{
		rowsGauge: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "panel_table_rows",
			Help: "Number of data rows currently in the panel table",
		}),
		appendedTotal: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "panel_table_rows_appended_total",
			Help: "Total number of rows appended to the panel table",
		}),
		clearedTotal: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "panel_table_clears_total",
			Help: "Total number of clear actions",
		}),
	}
}

// AppendRow adds a row at the end of the table.
func (t *Table) AppendRow(meta profiler.RequestMeta, summary profiler.Summary) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.rows = append(t.rows, Row{Meta: meta, Summary: summary})
	t.appendedTotal.Inc()
	t.rowsGauge.Set(float64(len(t.rows)))
}

// ClearRows removes every data row. The header and footer rows are part of
// the rendering and are never removed.
func (t *Table) ClearRows() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.rows = nil
	t.clearedTotal.Inc()
	t.rowsGauge.Set(0)
}

// Rows returns a snapshot of the data rows in append order.
func (t *Table) Rows() []Row {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]Row, len(t.rows))
	copy(out, t.rows)
	return out
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.rows)
}

var _ profiler.RowAppender = (*Table)(nil)
