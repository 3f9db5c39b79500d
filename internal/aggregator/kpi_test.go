package aggregator

import (
	"testing"

	"sales-dashboard-go/internal/dataset"
	"sales-dashboard-go/internal/filter"
	"sales-dashboard-go/internal/resolver"
)

func TestSummarizeBoundRoles(t *testing.T) {
	ds, b := orders()
	s := Summarize(filter.All(ds), b)

	if s.Orders != 6 {
		t.Errorf("expected 6 orders, got %d", s.Orders)
	}
	if s.TotalSales == nil || !almostEqual(*s.TotalSales, 500) {
		t.Errorf("unexpected total sales %v", s.TotalSales)
	}
	if s.TotalProfit == nil || !almostEqual(*s.TotalProfit, 24) {
		t.Errorf("unexpected total profit %v", s.TotalProfit)
	}
	if s.TotalQuantity == nil || !almostEqual(*s.TotalQuantity, 11) {
		t.Errorf("unexpected total quantity %v", s.TotalQuantity)
	}
	if s.AvgQuantity == nil || !almostEqual(*s.AvgQuantity, 11.0/5.0) {
		t.Errorf("mean quantity should skip non-numeric cells, got %v", s.AvgQuantity)
	}
	if s.AvgDiscount == nil || !almostEqual(*s.AvgDiscount, 7) {
		t.Errorf("unexpected mean discount %v", s.AvgDiscount)
	}
}

func TestSummarizeOmitsUnboundRoles(t *testing.T) {
	ds := dataset.New("memory", []string{"Category", "Sales"}, [][]string{{"A", "10"}})
	b := resolver.New(resolver.Heuristic).Resolve(ds.Columns())
	s := Summarize(filter.All(ds), b)

	if s.TotalProfit != nil || s.TotalQuantity != nil || s.AvgDiscount != nil {
		t.Errorf("unbound metrics should be omitted: %+v", s)
	}
	formatted := s.Format(FormatOptions{})
	if _, ok := formatted["total_profit"]; ok {
		t.Error("formatted output should omit total_profit")
	}
	if formatted["total_sales"] != "10" || formatted["total_orders"] != "1" {
		t.Errorf("unexpected formatted KPIs %v", formatted)
	}
}

func TestSummarizeEmptyViewReportsZero(t *testing.T) {
	ds, b := orders()
	s := Summarize(filter.Apply(ds, b, filter.Selection{resolver.Category: {}}), b)

	if s.Orders != 0 {
		t.Errorf("expected 0 orders, got %d", s.Orders)
	}
	for name, v := range map[string]*float64{"sales": s.TotalSales, "profit": s.TotalProfit, "avg quantity": s.AvgQuantity, "avg discount": s.AvgDiscount} {
		if v == nil || *v != 0 {
			t.Errorf("%s: expected zero, got %v", name, v)
		}
	}
}

func TestMetricsFormatting(t *testing.T) {
	sales, profit, qty, avgQty, disc, avgDisc := 1234567.6, -1500.2, 42.9, 3.456, 30.0, 12.5
	s := Summary{
		Orders:        12345,
		TotalSales:    &sales,
		TotalProfit:   &profit,
		TotalQuantity: &qty,
		AvgQuantity:   &avgQty,
		TotalDiscount: &disc,
		AvgDiscount:   &avgDisc,
	}

	got := s.Format(FormatOptions{CurrencySymbol: "₹"})
	want := map[string]string{
		"total_sales":    "₹1,234,568",
		"total_profit":   "₹-1,500",
		"total_quantity": "42",
		"avg_quantity":   "3.46",
		"total_discount": "30.00",
		"avg_discount":   "12.50",
		"total_orders":   "12,345",
	}
	for k, w := range want {
		if got[k] != w {
			t.Errorf("%s: expected %q, got %q", k, w, got[k])
		}
	}

	metrics := s.Metrics(FormatOptions{})
	if metrics[0].Key != "total_sales" || metrics[len(metrics)-1].Key != "total_orders" {
		t.Errorf("unexpected metric order %v", metrics)
	}
}
