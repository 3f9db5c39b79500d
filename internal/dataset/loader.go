package dataset

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"sales-dashboard-go/internal/logger"
)

// Variant selects the derived columns computed at load time.
type Variant string

const (
	// VariantAuto only strips labels; dates are read lazily.
	VariantAuto Variant = "auto"
	// VariantSuperstore requires "Order Date" and derives Month from it.
	VariantSuperstore Variant = "superstore"
	// VariantDerived requires Date, Price, Units_Sold and Discount and
	// derives Month and Sales.
	VariantDerived Variant = "derived"
)

func ParseVariant(s string) (Variant, error) {
	switch v := Variant(strings.ToLower(strings.TrimSpace(s))); v {
	case VariantAuto, VariantSuperstore, VariantDerived:
		return v, nil
	case "":
		return VariantAuto, nil
	default:
		return "", fmt.Errorf("unknown dataset variant %q", s)
	}
}

const (
	superstoreDateColumn = "Order Date"

	DerivedDateColumn     = "Date"
	DerivedPriceColumn    = "Price"
	DerivedUnitsColumn    = "Units_Sold"
	DerivedDiscountColumn = "Discount"
	DerivedSalesColumn    = "Sales"
)

// DefaultTimeout bounds remote source reads when Options.Timeout is zero.
const DefaultTimeout = 15 * time.Second

type Options struct {
	Variant Variant
	Timeout time.Duration
}

var (
	// ErrLoad matches every LoadError.
	ErrLoad = errors.New("dataset load failed")
	// ErrMissingColumns matches LoadErrors caused by absent required columns.
	ErrMissingColumns = errors.New("missing required columns")
)

// LoadError reports an unreadable or malformed source.
type LoadError struct {
	Source  string
	Missing []string
	Err     error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s: %v", e.Source, e.Err)
}

func (e *LoadError) Unwrap() []error { return []error{ErrLoad, e.Err} }

func componentLog() *logrus.Entry {
	return logger.Component("dataset.loader")
}

// LoadPath parses a source descriptor and loads it.
func LoadPath(ctx context.Context, raw string, opts Options) (*Dataset, error) {
	src, err := ParseSource(raw)
	if err != nil {
		return nil, &LoadError{Source: raw, Err: err}
	}
	return Load(ctx, src, opts)
}

// Load reads src, strips column labels and computes the variant's derived
// columns. The returned Dataset is fresh on every call.
func Load(ctx context.Context, src Source, opts Options) (*Dataset, error) {
	log := componentLog().WithFields(logrus.Fields{
		"source":  src.String(),
		"kind":    src.Kind,
		"variant": opts.Variant,
	})
	log.Info("loading dataset")

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	header, rows, err := readTable(ctx, src, timeout)
	if err != nil {
		log.WithError(err).Error("read failed")
		return nil, &LoadError{Source: src.String(), Err: err}
	}

	columns := lo.Map(header, func(h string, _ int) string { return strings.TrimSpace(h) })
	if len(columns) == 0 || lo.EveryBy(columns, func(c string) bool { return c == "" }) {
		return nil, &LoadError{Source: src.String(), Err: errors.New("empty header row")}
	}
	for i, row := range rows {
		switch {
		case len(row) > len(columns):
			return nil, &LoadError{
				Source: src.String(),
				Err:    fmt.Errorf("row %d has %d fields, header has %d", i+2, len(row), len(columns)),
			}
		case len(row) < len(columns):
			padded := make([]string, len(columns))
			copy(padded, row)
			rows[i] = padded
		}
	}

	ds := New(src.String(), columns, rows)

	switch opts.Variant {
	case VariantAuto, "":
	case VariantSuperstore:
		if err := requireColumns(ds, superstoreDateColumn); err != nil {
			return nil, err
		}
		ds = ds.WithMonth(superstoreDateColumn)
	case VariantDerived:
		if err := requireColumns(ds, DerivedDateColumn, DerivedPriceColumn, DerivedUnitsColumn, DerivedDiscountColumn); err != nil {
			return nil, err
		}
		if ds, err = deriveSales(ds); err != nil {
			return nil, err
		}
		ds = ds.WithMonth(DerivedDateColumn)
	default:
		return nil, &LoadError{Source: src.String(), Err: fmt.Errorf("unknown dataset variant %q", opts.Variant)}
	}

	log.WithFields(logrus.Fields{
		"rows":    ds.Len(),
		"columns": len(ds.columns),
	}).Info("dataset loaded")
	return ds, nil
}

func requireColumns(ds *Dataset, cols ...string) error {
	missing := lo.Filter(cols, func(c string, _ int) bool { return !ds.HasColumn(c) })
	if len(missing) == 0 {
		return nil
	}
	return &LoadError{
		Source:  ds.Source(),
		Missing: missing,
		Err:     fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", ")),
	}
}

// DerivedSales computes Price * Units_Sold * (1 - Discount/100), where
// discount is a percentage in [0,100].
func DerivedSales(price, units, discount float64) float64 {
	return price * units * (1 - discount/100)
}

// deriveSales fills the Sales column. Rows with a non-numeric input get an
// empty Sales cell; a numeric discount outside [0,100] fails the load.
func deriveSales(ds *Dataset) (*Dataset, error) {
	values := make([]string, ds.Len())
	for i := 0; i < ds.Len(); i++ {
		price, okP := ds.Number(i, DerivedPriceColumn)
		units, okU := ds.Number(i, DerivedUnitsColumn)
		discount, okD := ds.Number(i, DerivedDiscountColumn)
		if okD && (discount < 0 || discount > 100) {
			return nil, &LoadError{
				Source: ds.Source(),
				Err:    fmt.Errorf("row %d: discount %v is not a percentage in [0,100]", i+2, discount),
			}
		}
		if okP && okU && okD {
			values[i] = formatNumber(DerivedSales(price, units, discount))
		}
	}
	return ds.withColumn(DerivedSalesColumn, values), nil
}
