package models

import (
	"github.com/nicolastakashi/query-profiler-panel/internal/format"
	"github.com/nicolastakashi/query-profiler-panel/internal/panel"
)

type QueryCounts struct {
	Select         format.Number `json:"select"`
	Insert         format.Number `json:"insert"`
	Update         format.Number `json:"update"`
	Delete         format.Number `json:"delete"`
	Transactionals format.Number `json:"transactionals"`
	Other          format.Number `json:"other"`
}

type Row struct {
	APIPath                   string        `json:"apiPath"`
	RequestTimeMillis         format.Number `json:"requestTimeMillis"`
	ServerTimeMillis          format.Number `json:"serverTimeMillis"`
	ProfilingTimeMicros       format.Number `json:"profilingTimeMicros"`
	QueryExecutionTimeMicros  format.Number `json:"totalQueryExecutionTimeMicros"`
	QueryCounts               QueryCounts   `json:"queryCounts"`
	TotalDBRowCount           format.Number `json:"totalDbRowCount"`
	PotentialNPlus1QueryCount format.Number `json:"potentialNPlus1QueryCount"`
	ExactQueryDuplicates      format.Number `json:"exactQueryDuplicates"`
	DetailedReportURL         string        `json:"detailedReportUrl"`
	ProfilerType              string        `json:"profilerType"`
	LinkLabel                 string        `json:"linkLabel"`
	Cells                     []string      `json:"cells"`
}

type RowsResponse struct {
	Total int   `json:"total"`
	Rows  []Row `json:"rows"`
}

func NewRowsResponse(rows []panel.Row) RowsResponse {
	out := RowsResponse{Total: len(rows), Rows: make([]Row, 0, len(rows))}
	for _, r := range rows {
		m, s := r.Meta, r.Summary
		cells := r.Cells()
		texts := make([]string, 0, len(cells))
		for _, c := range cells {
			texts = append(texts, c.Text)
		}
		out.Rows = append(out.Rows, Row{
			APIPath:                  m.APIPath,
			RequestTimeMillis:        m.RequestTimeMillis,
			ServerTimeMillis:         m.ServerTimeMillis,
			ProfilingTimeMicros:      m.ProfilingTimeMicros,
			QueryExecutionTimeMicros: s.TotalQueryExecutionTimeMicros,
			QueryCounts: QueryCounts{
				Select:         s.Select,
				Insert:         s.Insert,
				Update:         s.Update,
				Delete:         s.Delete,
				Transactionals: s.Transactionals,
				Other:          s.Other,
			},
			TotalDBRowCount:           s.TotalDBRowCount,
			PotentialNPlus1QueryCount: s.PotentialNPlus1QueryCount,
			ExactQueryDuplicates:      s.ExactQueryDuplicates,
			DetailedReportURL:         m.DetailedReportURL,
			ProfilerType:              m.ProfilerType,
			LinkLabel:                 m.LinkLabel(),
			Cells:                     texts,
		})
	}
	return out
}
