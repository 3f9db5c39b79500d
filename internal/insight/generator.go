package insight

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/samber/lo"
	"sales-dashboard-go/internal/aggregator"
)

// Card is one headline shown above the charts.
type Card struct {
	Kind    string `json:"kind"`
	Insight string `json:"insight"`
	Action  string `json:"action"`
	Impact  string `json:"impact"`
}

// Inputs are the aggregation tables cards are derived from. A nil table is
// skipped.
type Inputs struct {
	SalesByCategory *aggregator.Result
	MonthlySales    *aggregator.Result
	ProfitByRegion  *aggregator.Result
	CurrencySymbol  string
}

// Generate returns cards in a fixed order: top category, peak month,
// loss-making regions. With no usable data it returns the single fallback
// card.
func Generate(in Inputs) []Card {
	money := func(v float64) string { return in.CurrencySymbol + humanize.FormatFloat("#,###.", v) }
	var cards []Card

	if r := in.SalesByCategory; r != nil && len(r.Rows) > 0 {
		top := lo.MaxBy(r.Rows, func(a, b aggregator.Row) bool { return a.Value > b.Value })
		share := 0.0
		if total := r.Total(); total != 0 {
			share = top.Value / total
		}
		cards = append(cards, Card{
			Kind:    "top_category",
			Insight: fmt.Sprintf("%s leads sales with %s (%.0f%% of total)", top.Key, money(top.Value), share*100),
			Action:  fmt.Sprintf("Protect stock and promotion budget for %s", top.Key),
			Impact:  "Keeps the largest revenue stream growing",
		})
	}

	if r := in.MonthlySales; r != nil && len(r.Rows) > 1 {
		peak := lo.MaxBy(r.Rows, func(a, b aggregator.Row) bool { return a.Value > b.Value })
		cards = append(cards, Card{
			Kind:    "peak_month",
			Insight: fmt.Sprintf("Sales peaked in %s at %s", peak.Key, money(peak.Value)),
			Action:  "Plan inventory and staffing ahead of the same period",
			Impact:  "Avoids stock-outs during seasonal demand",
		})
	}

	if r := in.ProfitByRegion; r != nil {
		losing := lo.Filter(r.Rows, func(row aggregator.Row, _ int) bool { return row.Value < 0 })
		if len(losing) > 0 {
			names := lo.Map(losing, func(row aggregator.Row, _ int) string { return row.Key })
			cards = append(cards, Card{
				Kind:    "loss_regions",
				Insight: fmt.Sprintf("Negative profit in %s", strings.Join(names, ", ")),
				Action:  "Review discounting and shipping cost in these regions",
				Impact:  "Stops margin erosion",
			})
		}
	}

	if len(cards) == 0 {
		return []Card{{
			Kind:    "none",
			Insight: "No strong pattern detected",
			Action:  "Monitor and collect more data",
			Impact:  "Low immediate intervention",
		}}
	}
	return cards
}
