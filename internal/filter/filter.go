package filter

import (
	"slices"

	"github.com/samber/lo"
	"sales-dashboard-go/internal/dataset"
	"sales-dashboard-go/internal/resolver"
)

// Selection maps a categorical role to its allowed values.
// A role that is absent imposes no constraint; a role present with an
// empty set lets nothing through.
type Selection map[resolver.Role][]string

// Clone returns a deep copy.
func (s Selection) Clone() Selection {
	out := make(Selection, len(s))
	for r, vals := range s {
		out[r] = slices.Clone(vals)
		if out[r] == nil {
			out[r] = []string{}
		}
	}
	return out
}

// Default selects every distinct value of every bound categorical role,
// taken from the unfiltered dataset.
func Default(ds *dataset.Dataset, b resolver.Binding) Selection {
	sel := Selection{}
	for _, role := range resolver.CategoricalRoles {
		if col, ok := b.Column(role); ok {
			sel[role] = ds.Distinct(col)
		}
	}
	return sel
}

// Merge overlays user choices onto base; roles in override replace base.
func Merge(base, override Selection) Selection {
	out := base.Clone()
	for r, vals := range override {
		out[r] = slices.Clone(vals)
		if out[r] == nil {
			out[r] = []string{}
		}
	}
	return out
}

// Apply returns the records of ds that pass sel. Only bound categorical
// roles are checked; roles are AND-combined and each role is an exact
// membership test. ds is never modified.
func Apply(ds *dataset.Dataset, b resolver.Binding, sel Selection) *View {
	type constraint struct {
		col     string
		allowed map[string]struct{}
	}
	var constraints []constraint
	for _, role := range resolver.CategoricalRoles {
		allowed, present := sel[role]
		if !present {
			continue
		}
		col, bound := b.Column(role)
		if !bound {
			continue
		}
		if len(allowed) == 0 {
			return &View{ds: ds, indices: []int{}}
		}
		constraints = append(constraints, constraint{
			col:     col,
			allowed: lo.SliceToMap(allowed, func(v string) (string, struct{}) { return v, struct{}{} }),
		})
	}

	indices := make([]int, 0, ds.Len())
	for i := 0; i < ds.Len(); i++ {
		pass := true
		for _, c := range constraints {
			v, _ := ds.Value(i, c.col)
			if _, ok := c.allowed[v]; !ok {
				pass = false
				break
			}
		}
		if pass {
			indices = append(indices, i)
		}
	}
	return &View{ds: ds, indices: indices}
}

// All is the unfiltered view of ds.
func All(ds *dataset.Dataset) *View {
	indices := make([]int, ds.Len())
	for i := range indices {
		indices[i] = i
	}
	return &View{ds: ds, indices: indices}
}
