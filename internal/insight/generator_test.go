package insight

import (
	"strings"
	"testing"

	"sales-dashboard-go/internal/aggregator"
)

func TestGenerateCards(t *testing.T) {
	cards := Generate(Inputs{
		SalesByCategory: &aggregator.Result{Rows: []aggregator.Row{
			{Key: "Furniture", Value: 150},
			{Key: "Technology", Value: 250},
			{Key: "Office Supplies", Value: 100},
		}},
		MonthlySales: &aggregator.Result{Rows: []aggregator.Row{
			{Key: "2023-01", Value: 350},
			{Key: "2023-02", Value: 50},
		}},
		ProfitByRegion: &aggregator.Result{Rows: []aggregator.Row{
			{Key: "Central", Value: -5},
			{Key: "East", Value: -5},
			{Key: "West", Value: 20},
		}},
		CurrencySymbol: "$",
	})

	if len(cards) != 3 {
		t.Fatalf("expected 3 cards, got %d: %+v", len(cards), cards)
	}
	if cards[0].Kind != "top_category" || cards[0].Insight != "Technology leads sales with $250 (50% of total)" {
		t.Errorf("unexpected top category card %+v", cards[0])
	}
	if cards[1].Kind != "peak_month" || !strings.Contains(cards[1].Insight, "2023-01") {
		t.Errorf("unexpected peak month card %+v", cards[1])
	}
	if cards[2].Insight != "Negative profit in Central, East" {
		t.Errorf("unexpected loss card %+v", cards[2])
	}
}

func TestGenerateFallback(t *testing.T) {
	cards := Generate(Inputs{
		SalesByCategory: &aggregator.Result{},
		MonthlySales:    &aggregator.Result{Rows: []aggregator.Row{{Key: "2023-01", Value: 10}}},
		ProfitByRegion:  &aggregator.Result{Rows: []aggregator.Row{{Key: "West", Value: 3}}},
	})
	if len(cards) != 1 || cards[0].Kind != "none" {
		t.Errorf("expected fallback card, got %+v", cards)
	}
}
