package dataset

// ColumnProfile describes one detected column.
type ColumnProfile struct {
	Name         string  `json:"name"`
	Distinct     int     `json:"distinct"`
	Empty        int     `json:"empty"`
	NumericShare float64 `json:"numeric_share"`
	DateShare    float64 `json:"date_share"`
}

// Profile is the "detected columns" overview shown before any mapping.
type Profile struct {
	Source  string          `json:"source"`
	Rows    int             `json:"rows"`
	Columns []ColumnProfile `json:"columns"`
}

// Describe profiles every column of ds in column order. Shares are taken
// over non-empty cells.
func Describe(ds *Dataset) Profile {
	p := Profile{Source: ds.Source(), Rows: ds.Len(), Columns: make([]ColumnProfile, 0, len(ds.columns))}
	for idx, col := range ds.columns {
		seen := map[string]bool{}
		cp := ColumnProfile{Name: col}
		numeric, dates, filled := 0, 0, 0
		for _, row := range ds.rows {
			v := row[idx]
			seen[v] = true
			if v == "" {
				cp.Empty++
				continue
			}
			filled++
			if _, ok := ParseNumber(v); ok {
				numeric++
			}
			if _, ok := ParseDate(v); ok {
				dates++
			}
		}
		cp.Distinct = len(seen)
		if filled > 0 {
			cp.NumericShare = float64(numeric) / float64(filled)
			cp.DateShare = float64(dates) / float64(filled)
		}
		p.Columns = append(p.Columns, cp)
	}
	return p
}
