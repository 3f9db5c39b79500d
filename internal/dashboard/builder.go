package dashboard

import (
	"time"

	"github.com/sirupsen/logrus"
	"sales-dashboard-go/internal/aggregator"
	"sales-dashboard-go/internal/dataset"
	"sales-dashboard-go/internal/filter"
	"sales-dashboard-go/internal/insight"
	"sales-dashboard-go/internal/logger"
	"sales-dashboard-go/internal/resolver"
	"sales-dashboard-go/internal/types"
)

// DefaultTopN bounds the sub-category chart when Options.TopN is zero.
const DefaultTopN = 10

// Options tune a dashboard build.
type Options struct {
	TopN           int // sub-category chart length; <0 = all
	RowLimit       int // raw rows returned; 0 = all
	CurrencySymbol string
}

// ChartDef is one standard dashboard chart.
type ChartDef struct {
	ID    string
	Title string
	Kinds []string
	Spec  aggregator.Spec
}

// Charts lists the standard charts in display order. topN is applied to the
// sub-category chart.
func Charts(topN int) []ChartDef {
	return []ChartDef{
		{
			ID:    "sales_by_category",
			Title: "Sales by Category",
			Kinds: []string{"bar", "pie"},
			Spec:  aggregator.Spec{Group: resolver.Category, Metric: resolver.Sales, Op: aggregator.Sum},
		},
		{
			ID:    "monthly_sales",
			Title: "Monthly Sales Trend",
			Kinds: []string{"line"},
			Spec:  aggregator.Spec{Group: resolver.OrderDate, Metric: resolver.Sales, Op: aggregator.Sum},
		},
		{
			ID:    "profit_by_region",
			Title: "Region-wise Profit",
			Kinds: []string{"bar"},
			Spec:  aggregator.Spec{Group: resolver.Region, Metric: resolver.Profit, Op: aggregator.Sum},
		},
		{
			ID:    "top_subcategories",
			Title: "Top Sub-Categories by Sales",
			Kinds: []string{"bar"},
			Spec: aggregator.Spec{
				Group:  resolver.SubCategory,
				Metric: resolver.Sales,
				Op:     aggregator.Sum,
				Order:  aggregator.ByValueDesc,
				Limit:  topN,
			},
		},
		{
			ID:    "sales_by_segment",
			Title: "Sales by Customer Segment",
			Kinds: []string{"pie"},
			Spec:  aggregator.Spec{Group: resolver.Segment, Metric: resolver.Sales, Op: aggregator.Sum},
		},
	}
}

// Build filters ds by sel and computes every dashboard output whose roles
// are bound. Charts with an unbound role are left out.
func Build(ds *dataset.Dataset, b resolver.Binding, sel filter.Selection, opts Options) types.Dashboard {
	start := time.Now()
	log := logger.Component("dashboard")

	topN := opts.TopN
	switch {
	case topN == 0:
		topN = DefaultTopN
	case topN < 0:
		topN = 0
	}

	view := filter.Apply(ds, b, sel)
	summary := aggregator.Summarize(view, b)
	fmtOpts := aggregator.FormatOptions{CurrencySymbol: opts.CurrencySymbol}

	d := types.Dashboard{
		Source:      ds.Source(),
		Binding:     b,
		Controls:    filter.Controls(ds, b, sel),
		KPIs:        summary.Metrics(fmtOpts),
		Summary:     summary,
		Charts:      []types.Chart{},
		Rows:        view.Records(opts.RowLimit),
		TotalRows:   view.Len(),
		DatasetRows: ds.Len(),
	}

	results := map[string]*aggregator.Result{}
	for _, def := range Charts(topN) {
		res, ok := aggregator.Aggregate(view, b, def.Spec)
		if !ok {
			log.WithField("chart", def.ID).Debug("chart skipped, role unbound")
			continue
		}
		d.Charts = append(d.Charts, types.Chart{ID: def.ID, Title: def.Title, Kinds: def.Kinds, Result: res})
		results[def.ID] = &res
	}

	d.Insights = insight.Generate(insight.Inputs{
		SalesByCategory: results["sales_by_category"],
		MonthlySales:    results["monthly_sales"],
		ProfitByRegion:  results["profit_by_region"],
		CurrencySymbol:  opts.CurrencySymbol,
	})

	d.DurationMs = time.Since(start).Milliseconds()
	log.WithFields(logrus.Fields{
		"records":     d.TotalRows,
		"charts":      len(d.Charts),
		"duration_ms": d.DurationMs,
	}).Debug("dashboard built")
	return d
}
