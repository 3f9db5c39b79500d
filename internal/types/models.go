package types

import (
	"time"

	"sales-dashboard-go/internal/aggregator"
	"sales-dashboard-go/internal/dataset"
	"sales-dashboard-go/internal/filter"
	"sales-dashboard-go/internal/insight"
	"sales-dashboard-go/internal/resolver"
	"sales-dashboard-go/internal/session"
)

// SessionInfo is returned when a session is created or inspected.
type SessionInfo struct {
	ID       string           `json:"id"`
	Created  time.Time        `json:"created"`
	Settings session.Settings `json:"settings"`
	Profile  dataset.Profile  `json:"profile"`
	Binding  resolver.Binding `json:"binding"`
	Controls []filter.Control `json:"controls"`
}

// Dashboard is one full recomputation for the current selection.
type Dashboard struct {
	SessionID   string              `json:"session_id,omitempty"`
	Source      string              `json:"source"`
	Binding     resolver.Binding    `json:"binding"`
	Controls    []filter.Control    `json:"controls"`
	KPIs        []aggregator.Metric `json:"kpis"`
	Summary     aggregator.Summary  `json:"summary"`
	Charts      []Chart             `json:"charts"`
	Insights    []insight.Card      `json:"insights"`
	Rows        []dataset.Record    `json:"rows"`
	TotalRows   int                 `json:"total_rows"`   // records in the filtered view
	DatasetRows int                 `json:"dataset_rows"` // records before filtering
	DurationMs  int64               `json:"duration_ms"`
}

// Chart is a render-ready aggregation table. Kinds lists the chart types
// the table is drawn as, e.g. "bar" and "pie" for the same data.
type Chart struct {
	ID     string            `json:"id"`
	Title  string            `json:"title"`
	Kinds  []string          `json:"kinds"`
	Result aggregator.Result `json:"result"`
}

// ChartByID returns the chart with the given id.
func (d Dashboard) ChartByID(id string) (Chart, bool) {
	for _, c := range d.Charts {
		if c.ID == id {
			return c, true
		}
	}
	return Chart{}, false
}
