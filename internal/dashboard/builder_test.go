package dashboard

import (
	"reflect"
	"testing"

	"sales-dashboard-go/internal/dataset"
	"sales-dashboard-go/internal/filter"
	"sales-dashboard-go/internal/resolver"
)

func superstore() (*dataset.Dataset, resolver.Binding) {
	ds := dataset.New("memory", []string{"Order Date", "Category", "Region", "Sub-Category", "Sales", "Profit", "Quantity"}, [][]string{
		{"2023-01-05", "Furniture", "West", "Chairs", "100", "20", "2"},
		{"2023-01-20", "Technology", "East", "Phones", "250", "-10", "1"},
		{"2023-02-10", "Furniture", "East", "Tables", "50", "5", "3"},
		{"2023-03-01", "Office Supplies", "South", "Paper", "75", "9", "4"},
	})
	return ds, resolver.New(resolver.Exact).Resolve(ds.Columns())
}

func TestBuildDefaultSelection(t *testing.T) {
	ds, b := superstore()
	d := Build(ds, b, filter.Default(ds, b), Options{RowLimit: 2, CurrencySymbol: "$"})

	var ids []string
	for _, c := range d.Charts {
		ids = append(ids, c.ID)
	}
	if !reflect.DeepEqual(ids, []string{"sales_by_category", "monthly_sales", "profit_by_region", "top_subcategories"}) {
		t.Errorf("unexpected charts %v", ids)
	}
	if d.TotalRows != 4 || d.DatasetRows != 4 || len(d.Rows) != 2 {
		t.Errorf("unexpected row counts total=%d dataset=%d rows=%d", d.TotalRows, d.DatasetRows, len(d.Rows))
	}
	if d.KPIs[0].Key != "total_sales" || d.KPIs[0].Value != "$475" {
		t.Errorf("unexpected first KPI %+v", d.KPIs[0])
	}
	if len(d.Controls) != 3 {
		t.Errorf("expected 3 controls, got %d", len(d.Controls))
	}

	top, _ := d.ChartByID("top_subcategories")
	if top.Result.Rows[0].Key != "Phones" {
		t.Errorf("top sub-category should be Phones, got %v", top.Result.Rows)
	}
	monthly, _ := d.ChartByID("monthly_sales")
	if len(monthly.Result.Rows) != 3 || monthly.Result.Rows[0].Key != "2023-01" {
		t.Errorf("unexpected monthly rows %v", monthly.Result.Rows)
	}
	if len(d.Insights) == 0 || d.Insights[0].Kind != "top_category" {
		t.Errorf("expected insights, got %+v", d.Insights)
	}
}

func TestBuildFilteredSelection(t *testing.T) {
	ds, b := superstore()
	sel := filter.Merge(filter.Default(ds, b), filter.Selection{resolver.Region: {"East"}})
	d := Build(ds, b, sel, Options{})

	if d.TotalRows != 2 || len(d.Rows) != 2 {
		t.Fatalf("expected 2 East records, got %d", d.TotalRows)
	}
	if *d.Summary.TotalSales != 300 {
		t.Errorf("expected East sales 300, got %v", *d.Summary.TotalSales)
	}
	region, _ := d.ChartByID("profit_by_region")
	if len(region.Result.Rows) != 1 || region.Result.Rows[0].Key != "East" {
		t.Errorf("unexpected region chart %v", region.Result.Rows)
	}
}

func TestBuildEmptySelection(t *testing.T) {
	ds, b := superstore()
	d := Build(ds, b, filter.Selection{resolver.Category: {}}, Options{})

	if d.TotalRows != 0 || len(d.Rows) != 0 {
		t.Errorf("expected empty view, got %d", d.TotalRows)
	}
	for _, c := range d.Charts {
		if len(c.Result.Rows) != 0 {
			t.Errorf("%s: expected no rows, got %v", c.ID, c.Result.Rows)
		}
	}
	if d.Summary.Orders != 0 || *d.Summary.TotalSales != 0 {
		t.Errorf("expected zero KPIs, got %+v", d.Summary)
	}
}

func TestBuildTopNLimit(t *testing.T) {
	ds, b := superstore()
	d := Build(ds, b, nil, Options{TopN: 2})
	top, _ := d.ChartByID("top_subcategories")
	if len(top.Result.Rows) != 2 {
		t.Errorf("expected 2 sub-categories, got %d", len(top.Result.Rows))
	}

	all := Build(ds, b, nil, Options{TopN: -1})
	top, _ = all.ChartByID("top_subcategories")
	if len(top.Result.Rows) != 4 {
		t.Errorf("negative TopN should keep all, got %d", len(top.Result.Rows))
	}
}

func TestBuildSkipsUnboundCharts(t *testing.T) {
	ds := dataset.New("memory", []string{"Region", "Amount"}, [][]string{{"West", "10"}, {"East", "5"}})
	b := resolver.New(resolver.Heuristic).Resolve(ds.Columns())
	d := Build(ds, b, nil, Options{})

	if len(d.Charts) != 0 {
		t.Errorf("no chart has both roles bound, got %d", len(d.Charts))
	}
	if len(d.Insights) != 1 || d.Insights[0].Kind != "none" {
		t.Errorf("expected fallback insight, got %+v", d.Insights)
	}
	if d.KPIs[0].Key != "total_sales" || d.KPIs[0].Value != "15" {
		t.Errorf("Amount should bind Sales, got %+v", d.KPIs)
	}
}
