package resolver

import (
	"fmt"
	"strings"
)

// Strategy selects how column labels are matched to roles.
type Strategy string

const (
	// Exact binds a role only to a label equal to its expected name.
	Exact Strategy = "exact"
	// Heuristic binds a role to the first label containing one of its keywords.
	Heuristic Strategy = "heuristic"
)

func ParseStrategy(s string) (Strategy, error) {
	switch st := Strategy(strings.ToLower(strings.TrimSpace(s))); st {
	case Exact, Heuristic:
		return st, nil
	case "":
		return Heuristic, nil
	default:
		return "", fmt.Errorf("unknown resolve strategy %q", s)
	}
}

// SuperstoreNames is the exact-name table for the Superstore-style export.
var SuperstoreNames = map[Role]string{
	OrderDate:   "Order Date",
	Sales:       "Sales",
	Profit:      "Profit",
	Quantity:    "Quantity",
	Discount:    "Discount",
	Category:    "Category",
	Region:      "Region",
	SubCategory: "Sub-Category",
	Segment:     "Segment",
}

// EcommerceNames is the exact-name table for the derived-sales export.
var EcommerceNames = map[Role]string{
	OrderDate: "Date",
	Sales:     "Sales",
	Quantity:  "Units_Sold",
	Discount:  "Discount",
	Category:  "Product_Category",
	Segment:   "Customer_Segment",
}

// KeywordRule associates a role with lower-case substrings.
type KeywordRule struct {
	Role     Role
	Keywords []string
}

// DefaultKeywords is the canonical heuristic table, checked in order.
var DefaultKeywords = []KeywordRule{
	{OrderDate, []string{"date", "order"}},
	{Sales, []string{"sales", "revenue", "amount"}},
	{Profit, []string{"profit"}},
	{Quantity, []string{"quantity", "qty"}},
	{Discount, []string{"discount"}},
	{Category, []string{"category"}},
	{Region, []string{"region"}},
	{SubCategory, []string{"sub"}},
	{Segment, []string{"segment"}},
}

// Resolver maps dataset columns to roles.
type Resolver struct {
	strategy Strategy
	names    map[Role]string
	keywords []KeywordRule
}

func New(strategy Strategy) *Resolver {
	return &Resolver{strategy: strategy, names: SuperstoreNames, keywords: DefaultKeywords}
}

// WithNames returns a copy using names as the exact-name table.
func (r *Resolver) WithNames(names map[Role]string) *Resolver {
	cp := *r
	cp.names = names
	return &cp
}

// WithKeywords returns a copy using rules as the heuristic table.
func (r *Resolver) WithKeywords(rules []KeywordRule) *Resolver {
	cp := *r
	cp.keywords = rules
	return &cp
}

func (r *Resolver) Strategy() Strategy { return r.strategy }

// Resolve binds roles to columns. Labels are compared after stripping
// surrounding whitespace; the bound label is the stripped one. Roles with
// no match stay unbound.
func (r *Resolver) Resolve(columns []string) Binding {
	labels := make([]string, len(columns))
	for i, c := range columns {
		labels[i] = strings.TrimSpace(c)
	}

	bound := map[Role]string{}
	switch r.strategy {
	case Exact:
		for _, role := range Roles {
			want, ok := r.names[role]
			if !ok {
				continue
			}
			for _, l := range labels {
				if l == want {
					bound[role] = l
					break
				}
			}
		}
	default:
		for _, rule := range r.keywords {
			if _, done := bound[rule.Role]; done {
				continue
			}
			if col, ok := firstMatch(labels, rule.Keywords); ok {
				bound[rule.Role] = col
			}
		}
	}
	return NewBinding(bound)
}

// firstMatch scans labels in order and returns the first one whose
// lower-cased text contains any keyword verbatim.
func firstMatch(labels []string, keywords []string) (string, bool) {
	for _, l := range labels {
		lower := strings.ToLower(l)
		for _, k := range keywords {
			if strings.Contains(lower, k) {
				return l, true
			}
		}
	}
	return "", false
}
