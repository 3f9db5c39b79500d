package config

import (
	"testing"
	"time"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, k := range []string{"ENVIRONMENT", "PORT", "DATASET_PATH", "DATASET_VARIANT", "RESOLVE_STRATEGY", "RESOLVE_RULES", "SOURCE_TIMEOUT", "ROW_LIMIT", "CURRENCY_SYMBOL"} {
		t.Setenv(k, "")
	}

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if cfg.Port != "8080" || cfg.Addr() != ":8080" {
		t.Errorf("unexpected port %q / addr %q", cfg.Port, cfg.Addr())
	}
	if cfg.DatasetPath != "Ecommerce_Sales.csv" {
		t.Errorf("unexpected dataset path %q", cfg.DatasetPath)
	}
	if cfg.Variant != "auto" || cfg.Strategy != "heuristic" {
		t.Errorf("unexpected variant/strategy %q/%q", cfg.Variant, cfg.Strategy)
	}
	if cfg.SourceTimeout != 15*time.Second {
		t.Errorf("unexpected timeout %s", cfg.SourceTimeout)
	}
	if cfg.RowLimit != 500 {
		t.Errorf("unexpected row limit %d", cfg.RowLimit)
	}
	if cfg.RulesPath != "" {
		t.Errorf("rules file should default to built-in tables, got %q", cfg.RulesPath)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("DATASET_VARIANT", "derived")
	t.Setenv("SOURCE_TIMEOUT", "2s")
	t.Setenv("ROW_LIMIT", "0")
	t.Setenv("CURRENCY_SYMBOL", "₹")
	t.Setenv("RESOLVE_RULES", "rules.yaml")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if cfg.Addr() != ":9090" || cfg.Variant != "derived" || cfg.SourceTimeout != 2*time.Second || cfg.RowLimit != 0 || cfg.CurrencySymbol != "₹" || cfg.RulesPath != "rules.yaml" {
		t.Errorf("overrides not applied: %+v", cfg)
	}
}

func TestFromEnvRejectsInvalid(t *testing.T) {
	cases := map[string][2]string{
		"bad timeout":   {"SOURCE_TIMEOUT", "soon"},
		"zero timeout":  {"SOURCE_TIMEOUT", "0s"},
		"bad row limit": {"ROW_LIMIT", "many"},
		"negative rows": {"ROW_LIMIT", "-1"},
	}
	for name, kv := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv(kv[0], kv[1])
			if _, err := FromEnv(); err == nil {
				t.Fatalf("expected error for %s=%s", kv[0], kv[1])
			}
		})
	}
}
