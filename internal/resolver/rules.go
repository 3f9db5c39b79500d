package resolver

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Rules override the built-in exact-name and keyword tables. Empty parts
// keep the built-in table.
type Rules struct {
	Names    map[Role]string
	Keywords []KeywordRule
}

func (r Rules) Empty() bool { return len(r.Names) == 0 && len(r.Keywords) == 0 }

type rulesFile struct {
	Names    map[string]string `yaml:"names"`
	Keywords []struct {
		Role     string   `yaml:"role"`
		Keywords []string `yaml:"keywords"`
	} `yaml:"keywords"`
}

// LoadRules reads a rules file such as
//
//	names:
//	  order_date: Ship Date
//	keywords:
//	  - role: sales
//	    keywords: [sales, turnover]
//
// An empty path returns empty Rules.
func LoadRules(path string) (Rules, error) {
	if path == "" {
		return Rules{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Rules{}, fmt.Errorf("read rules file: %w", err)
	}
	return ParseRules(data)
}

func ParseRules(data []byte) (Rules, error) {
	var f rulesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return Rules{}, fmt.Errorf("parse rules: %w", err)
	}

	var rules Rules
	for name, label := range f.Names {
		role, err := ParseRole(name)
		if err != nil {
			return Rules{}, fmt.Errorf("names: %w", err)
		}
		if label = strings.TrimSpace(label); label == "" {
			continue
		}
		if rules.Names == nil {
			rules.Names = map[Role]string{}
		}
		rules.Names[role] = label
	}
	for i, k := range f.Keywords {
		role, err := ParseRole(k.Role)
		if err != nil {
			return Rules{}, fmt.Errorf("keywords[%d]: %w", i, err)
		}
		rule := KeywordRule{Role: role}
		for _, kw := range k.Keywords {
			if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" {
				rule.Keywords = append(rule.Keywords, kw)
			}
		}
		if len(rule.Keywords) == 0 {
			return Rules{}, fmt.Errorf("keywords[%d]: no keywords for %s", i, role)
		}
		rules.Keywords = append(rules.Keywords, rule)
	}
	return rules, nil
}

// WithRules returns a copy using the non-empty parts of rules.
func (r *Resolver) WithRules(rules Rules) *Resolver {
	out := r
	if len(rules.Names) > 0 {
		out = out.WithNames(rules.Names)
	}
	if len(rules.Keywords) > 0 {
		out = out.WithKeywords(rules.Keywords)
	}
	return out
}
