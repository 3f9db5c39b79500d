package aggregator

import (
	"math"

	"github.com/dustin/go-humanize"
	"sales-dashboard-go/internal/filter"
	"sales-dashboard-go/internal/resolver"
)

// Summary holds the view-level KPIs. Metrics whose role is unbound are nil.
type Summary struct {
	Orders        int      `json:"orders"`
	TotalSales    *float64 `json:"total_sales,omitempty"`
	TotalProfit   *float64 `json:"total_profit,omitempty"`
	TotalQuantity *float64 `json:"total_quantity,omitempty"`
	AvgQuantity   *float64 `json:"avg_quantity,omitempty"`
	TotalDiscount *float64 `json:"total_discount,omitempty"`
	AvgDiscount   *float64 `json:"avg_discount,omitempty"`
}

type columnStats struct {
	sum     float64
	numeric int
}

func (c columnStats) mean() float64 {
	if c.numeric == 0 {
		return 0
	}
	return c.sum / float64(c.numeric)
}

func stats(v *filter.View, col string) columnStats {
	var s columnStats
	for i := 0; i < v.Len(); i++ {
		if n, ok := v.Number(i, col); ok {
			s.sum += n
			s.numeric++
		}
	}
	return s
}

// Summarize computes KPIs over v. Sums treat missing values as zero; means
// skip them. An empty view reports zeros.
func Summarize(v *filter.View, b resolver.Binding) Summary {
	s := Summary{Orders: v.Len()}
	if col, ok := b.Column(resolver.Sales); ok {
		s.TotalSales = ptr(stats(v, col).sum)
	}
	if col, ok := b.Column(resolver.Profit); ok {
		s.TotalProfit = ptr(stats(v, col).sum)
	}
	if col, ok := b.Column(resolver.Quantity); ok {
		st := stats(v, col)
		s.TotalQuantity = ptr(st.sum)
		s.AvgQuantity = ptr(st.mean())
	}
	if col, ok := b.Column(resolver.Discount); ok {
		st := stats(v, col)
		s.TotalDiscount = ptr(st.sum)
		s.AvgDiscount = ptr(st.mean())
	}
	return s
}

func ptr(v float64) *float64 { return &v }

// FormatOptions tunes KPI display strings.
type FormatOptions struct {
	CurrencySymbol string // prefixed to sales and profit totals
}

// Metric is one formatted KPI tile.
type Metric struct {
	Key   string   `json:"key"`
	Label string   `json:"label"`
	Value string   `json:"value"`
	Raw   *float64 `json:"raw,omitempty"`
}

// Metrics returns the formatted KPIs in display order, omitting unbound ones.
func (s Summary) Metrics(opts FormatOptions) []Metric {
	var out []Metric
	add := func(key, label string, v *float64, format func(float64) string) {
		if v == nil {
			return
		}
		out = append(out, Metric{Key: key, Label: label, Value: format(*v), Raw: v})
	}
	money := func(v float64) string { return opts.CurrencySymbol + humanize.FormatFloat("#,###.", v) }
	whole := func(v float64) string { return humanize.Comma(int64(math.Trunc(v))) }
	twoDP := func(v float64) string { return humanize.FormatFloat("#,###.##", v) }

	add("total_sales", "Total Sales", s.TotalSales, money)
	add("total_profit", "Total Profit", s.TotalProfit, money)
	add("total_quantity", "Quantity Sold", s.TotalQuantity, whole)
	add("avg_quantity", "Avg Quantity", s.AvgQuantity, twoDP)
	add("total_discount", "Total Discount", s.TotalDiscount, twoDP)
	add("avg_discount", "Avg Discount (%)", s.AvgDiscount, twoDP)
	orders := float64(s.Orders)
	add("total_orders", "Total Orders", &orders, whole)
	return out
}

// Format maps metric key to display string.
func (s Summary) Format(opts FormatOptions) map[string]string {
	out := map[string]string{}
	for _, m := range s.Metrics(opts) {
		out[m.Key] = m.Value
	}
	return out
}
