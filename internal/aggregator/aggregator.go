package aggregator

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"sales-dashboard-go/internal/dataset"
	"sales-dashboard-go/internal/filter"
	"sales-dashboard-go/internal/resolver"
)

// Op is the per-group summary function.
type Op string

const (
	Sum   Op = "sum"
	Mean  Op = "mean"
	Count Op = "count"
)

func ParseOp(s string) (Op, error) {
	switch op := Op(strings.ToLower(strings.TrimSpace(s))); op {
	case Sum, Mean, Count:
		return op, nil
	case "avg":
		return Mean, nil
	default:
		return "", fmt.Errorf("unknown aggregation %q", s)
	}
}

// Order controls row ordering of a Result.
type Order int

const (
	// ByKey sorts keys ascending; month buckets sort chronologically.
	ByKey Order = iota
	// ByValueDesc sorts by value descending, ties by key ascending.
	ByValueDesc
)

// Spec describes one grouped aggregation.
type Spec struct {
	Group  resolver.Role
	Metric resolver.Role // ignored for Count
	Op     Op
	Order  Order
	Limit  int // 0 = all rows
}

// Row is one group of a Result.
type Row struct {
	Key   string  `json:"key"`
	Value float64 `json:"value"`
	Count int     `json:"count"` // records in the group
}

// Result is a grouped table with unique keys.
type Result struct {
	Group        resolver.Role `json:"group"`
	GroupColumn  string        `json:"group_column"`
	Metric       resolver.Role `json:"metric,omitempty"`
	MetricColumn string        `json:"metric_column,omitempty"`
	Op           Op            `json:"op"`
	Rows         []Row         `json:"rows"`
	// Excluded counts records left out because their date did not parse.
	Excluded int `json:"excluded,omitempty"`
}

type groupAcc struct {
	sum     float64
	numeric int
	records int
}

// Aggregate groups v by spec.Group and summarises spec.Metric. It reports
// false when a role it needs is unbound; that is not an error, the
// caller just skips the output.
func Aggregate(v *filter.View, b resolver.Binding, spec Spec) (Result, bool) {
	groupCol, ok := b.Column(spec.Group)
	if !ok {
		return Result{}, false
	}
	res := Result{Group: spec.Group, GroupColumn: groupCol, Op: spec.Op, Rows: []Row{}}

	var metricCol string
	if spec.Op != Count {
		if metricCol, ok = b.Column(spec.Metric); !ok {
			return Result{}, false
		}
		res.Metric = spec.Metric
		res.MetricColumn = metricCol
	}

	accs := map[string]*groupAcc{}
	var order []string
	for i := 0; i < v.Len(); i++ {
		key, ok := groupKey(v, i, spec.Group, groupCol)
		if !ok {
			res.Excluded++
			continue
		}
		acc, seen := accs[key]
		if !seen {
			acc = &groupAcc{}
			accs[key] = acc
			order = append(order, key)
		}
		acc.records++
		if metricCol != "" {
			if n, ok := v.Number(i, metricCol); ok {
				acc.sum += n
				acc.numeric++
			}
		}
	}

	for _, key := range order {
		acc := accs[key]
		row := Row{Key: key, Count: acc.records}
		switch spec.Op {
		case Count:
			row.Value = float64(acc.records)
		case Mean:
			if acc.numeric > 0 {
				row.Value = acc.sum / float64(acc.numeric)
			}
		default:
			row.Value = acc.sum
		}
		res.Rows = append(res.Rows, row)
	}

	SortRows(res.Rows, spec.Order)
	if spec.Limit > 0 && len(res.Rows) > spec.Limit {
		res.Rows = res.Rows[:spec.Limit]
	}
	return res, true
}

// groupKey extracts the grouping key of record i. OrderDate groups by
// YYYY-MM bucket and reports false for unparseable or missing dates.
func groupKey(v *filter.View, i int, role resolver.Role, col string) (string, bool) {
	raw, _ := v.Value(i, col)
	if role != resolver.OrderDate {
		return raw, true
	}
	t, ok := dataset.ParseDate(raw)
	if !ok {
		return "", false
	}
	return dataset.MonthBucket(t), true
}

func SortRows(rows []Row, order Order) {
	switch order {
	case ByValueDesc:
		slices.SortStableFunc(rows, func(a, b Row) int {
			if c := cmp.Compare(b.Value, a.Value); c != 0 {
				return c
			}
			return strings.Compare(a.Key, b.Key)
		})
	default:
		slices.SortStableFunc(rows, func(a, b Row) int { return strings.Compare(a.Key, b.Key) })
	}
}

// Total sums the values of all rows.
func (r Result) Total() float64 {
	var t float64
	for _, row := range r.Rows {
		t += row.Value
	}
	return t
}

// Lookup returns the row for key.
func (r Result) Lookup(key string) (Row, bool) {
	for _, row := range r.Rows {
		if row.Key == key {
			return row, true
		}
	}
	return Row{}, false
}
