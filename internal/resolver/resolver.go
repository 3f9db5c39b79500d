package resolver

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Role is a business concept independent of column naming.
type Role string

const (
	OrderDate   Role = "order_date"
	Sales       Role = "sales"
	Profit      Role = "profit"
	Quantity    Role = "quantity"
	Discount    Role = "discount"
	Category    Role = "category"
	Region      Role = "region"
	SubCategory Role = "sub_category"
	Segment     Role = "segment"
)

// Roles lists every role in declaration order, which is also resolution order.
var Roles = []Role{OrderDate, Sales, Profit, Quantity, Discount, Category, Region, SubCategory, Segment}

// CategoricalRoles are the roles that get filter controls.
var CategoricalRoles = []Role{Category, Region, SubCategory, Segment}

// NumericRoles are the roles that can be summed or averaged.
var NumericRoles = []Role{Sales, Profit, Quantity, Discount}

// Label is the display name of a role.
func (r Role) Label() string {
	switch r {
	case OrderDate:
		return "Order Date"
	case SubCategory:
		return "Sub-Category"
	case "":
		return ""
	default:
		s := string(r)
		return strings.ToUpper(s[:1]) + s[1:]
	}
}

func (r Role) IsCategorical() bool {
	for _, c := range CategoricalRoles {
		if c == r {
			return true
		}
	}
	return false
}

func ParseRole(s string) (Role, error) {
	key := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
	for _, r := range Roles {
		if string(r) == key {
			return r, nil
		}
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// Binding maps roles to column labels. It is immutable once built.
type Binding struct {
	columns map[Role]string
}

// NewBinding builds a Binding from an explicit mapping. Empty labels are
// treated as unbound.
func NewBinding(m map[Role]string) Binding {
	b := Binding{columns: make(map[Role]string, len(m))}
	for r, c := range m {
		if c != "" {
			b.columns[r] = c
		}
	}
	return b
}

// Column returns the bound label, if any.
func (b Binding) Column(r Role) (string, bool) {
	c, ok := b.columns[r]
	return c, ok
}

func (b Binding) Bound(r Role) bool {
	_, ok := b.columns[r]
	return ok
}

// BoundRoles lists bound roles in declaration order.
func (b Binding) BoundRoles() []Role {
	var out []Role
	for _, r := range Roles {
		if b.Bound(r) {
			out = append(out, r)
		}
	}
	return out
}

// Map returns a copy of the binding keyed by role.
func (b Binding) Map() map[Role]string {
	out := make(map[Role]string, len(b.columns))
	for r, c := range b.columns {
		out[r] = c
	}
	return out
}

// MarshalJSON lists every role, with null for unbound ones.
func (b Binding) MarshalJSON() ([]byte, error) {
	out := make(map[Role]*string, len(Roles))
	for _, r := range Roles {
		if c, ok := b.columns[r]; ok {
			out[r] = &c
		} else {
			out[r] = nil
		}
	}
	return json.Marshal(out)
}
