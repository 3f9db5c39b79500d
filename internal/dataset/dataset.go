package dataset

import (
	"bytes"
	"encoding/json"
	"slices"

	"github.com/samber/lo"
)

// MonthColumn is the derived year-month column added by WithMonth.
const MonthColumn = "Month"

// Table is the read surface shared by a Dataset and a filtered view of it.
type Table interface {
	Columns() []string
	Len() int
	Row(i int) []string
}

// Dataset is an immutable, ordered set of rows loaded from one source.
// Cells keep their raw text; numeric and date readings are done on access.
type Dataset struct {
	source  string
	columns []string
	index   map[string]int
	rows    [][]string
}

// New builds a Dataset. Every row must have len(columns) cells.
func New(source string, columns []string, rows [][]string) *Dataset {
	ds := &Dataset{
		source:  source,
		columns: slices.Clone(columns),
		index:   make(map[string]int, len(columns)),
		rows:    rows,
	}
	for i, c := range ds.columns {
		if _, dup := ds.index[c]; !dup {
			ds.index[c] = i
		}
	}
	return ds
}

// Source is the identity of the source descriptor the dataset came from.
func (d *Dataset) Source() string { return d.source }

func (d *Dataset) Columns() []string { return slices.Clone(d.columns) }

func (d *Dataset) Len() int { return len(d.rows) }

// Row returns a copy of the i-th row.
func (d *Dataset) Row(i int) []string { return slices.Clone(d.rows[i]) }

func (d *Dataset) HasColumn(col string) bool {
	_, ok := d.index[col]
	return ok
}

// Value returns the raw cell for column col of row i.
func (d *Dataset) Value(i int, col string) (string, bool) {
	idx, ok := d.index[col]
	if !ok || i < 0 || i >= len(d.rows) {
		return "", false
	}
	return d.rows[i][idx], true
}

// Number reads the cell as a float; missing or non-numeric cells report false.
func (d *Dataset) Number(i int, col string) (float64, bool) {
	v, ok := d.Value(i, col)
	if !ok {
		return 0, false
	}
	return ParseNumber(v)
}

func (d *Dataset) Record(i int) Record {
	return Record{Columns: d.Columns(), Values: d.Row(i)}
}

// Distinct lists the values of col in first-seen order.
func (d *Dataset) Distinct(col string) []string {
	idx, ok := d.index[col]
	if !ok {
		return nil
	}
	return lo.Uniq(lo.Map(d.rows, func(row []string, _ int) string { return row[idx] }))
}

// WithMonth returns a copy with a Month column holding the YYYY-MM bucket
// of dateCol. Unparseable dates leave the cell empty. If the dataset has no
// dateCol, or already has a Month column, d is returned unchanged.
func (d *Dataset) WithMonth(dateCol string) *Dataset {
	idx, ok := d.index[dateCol]
	if !ok || d.HasColumn(MonthColumn) {
		return d
	}
	values := make([]string, len(d.rows))
	for i, row := range d.rows {
		if t, ok := ParseDate(row[idx]); ok {
			values[i] = MonthBucket(t)
		}
	}
	return d.withColumn(MonthColumn, values)
}

// withColumn appends col, or replaces it when it already exists.
func (d *Dataset) withColumn(col string, values []string) *Dataset {
	columns := d.Columns()
	idx, exists := d.index[col]
	if !exists {
		columns = append(columns, col)
		idx = len(columns) - 1
	}
	rows := make([][]string, len(d.rows))
	for i, row := range d.rows {
		r := make([]string, len(columns))
		copy(r, row)
		r[idx] = values[i]
		rows[i] = r
	}
	return New(d.source, columns, rows)
}

// Record is one row with its column labels, in column order.
type Record struct {
	Columns []string
	Values  []string
}

func (r Record) Get(col string) (string, bool) {
	i := slices.Index(r.Columns, col)
	if i < 0 || i >= len(r.Values) {
		return "", false
	}
	return r.Values[i], true
}

// MarshalJSON encodes the record as an object that keeps column order.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, col := range r.Columns {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(col)
		if err != nil {
			return nil, err
		}
		var val string
		if i < len(r.Values) {
			val = r.Values[i]
		}
		v, err := json.Marshal(val)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
