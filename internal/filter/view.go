package filter

import (
	"slices"

	"sales-dashboard-go/internal/dataset"
	"sales-dashboard-go/internal/resolver"
)

// View is a filtered subset of a Dataset: an index list into the parent,
// no row data is copied.
type View struct {
	ds      *dataset.Dataset
	indices []int
}

// Split partitions v by keep; every record lands in exactly one side.
func (v *View) Split(keep func(i int) bool) (*View, *View) {
	in := &View{ds: v.ds, indices: []int{}}
	out := &View{ds: v.ds, indices: []int{}}
	for i, idx := range v.indices {
		if keep(i) {
			in.indices = append(in.indices, idx)
		} else {
			out.indices = append(out.indices, idx)
		}
	}
	return in, out
}

func (v *View) Dataset() *dataset.Dataset { return v.ds }

func (v *View) Len() int { return len(v.indices) }

func (v *View) Columns() []string { return v.ds.Columns() }

func (v *View) Row(i int) []string { return v.ds.Row(v.indices[i]) }

func (v *View) Record(i int) dataset.Record { return v.ds.Record(v.indices[i]) }

// Indices are the positions of the view's records in the parent dataset.
func (v *View) Indices() []int { return slices.Clone(v.indices) }

func (v *View) Value(i int, col string) (string, bool) {
	return v.ds.Value(v.indices[i], col)
}

func (v *View) Number(i int, col string) (float64, bool) {
	return v.ds.Number(v.indices[i], col)
}

// Records returns up to limit records in view order; limit <= 0 means all.
func (v *View) Records(limit int) []dataset.Record {
	n := v.Len()
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]dataset.Record, n)
	for i := 0; i < n; i++ {
		out[i] = v.Record(i)
	}
	return out
}

// Control is the multi-select input for one bound categorical role.
type Control struct {
	Role     resolver.Role `json:"role"`
	Label    string        `json:"label"`
	Column   string        `json:"column"`
	Options  []string      `json:"options"`
	Selected []string      `json:"selected"`
}

// Controls lists a Control per bound categorical role. Options come from
// the unfiltered dataset; Selected reflects sel, defaulting to all options.
func Controls(ds *dataset.Dataset, b resolver.Binding, sel Selection) []Control {
	var out []Control
	for _, role := range resolver.CategoricalRoles {
		col, ok := b.Column(role)
		if !ok {
			continue
		}
		options := ds.Distinct(col)
		selected, present := sel[role]
		if !present {
			selected = options
		}
		out = append(out, Control{
			Role:     role,
			Label:    role.Label(),
			Column:   col,
			Options:  options,
			Selected: slices.Clone(selected),
		})
	}
	return out
}
