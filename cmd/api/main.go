package main

import (
	"net/http"
	"time"

	"sales-dashboard-go/internal/config"
	"sales-dashboard-go/internal/dataset"
	"sales-dashboard-go/internal/logger"
	"sales-dashboard-go/internal/resolver"
	"sales-dashboard-go/internal/server"
	"sales-dashboard-go/internal/session"
)

func main() {
	log := logger.New()

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}
	log.WithField("service", "sales-dashboard-go").WithField("environment", cfg.Environment).Info("starting service")

	variant, err := dataset.ParseVariant(cfg.Variant)
	if err != nil {
		log.WithError(err).Fatal("invalid DATASET_VARIANT")
	}
	strategy, err := resolver.ParseStrategy(cfg.Strategy)
	if err != nil {
		log.WithError(err).Fatal("invalid RESOLVE_STRATEGY")
	}

	rules, err := resolver.LoadRules(cfg.RulesPath)
	if err != nil {
		log.WithError(err).Fatal("invalid RESOLVE_RULES")
	}

	store := session.NewStore(cfg.SourceTimeout).WithRules(rules)
	srv := server.New(store, server.Defaults{
		Source:         cfg.DatasetPath,
		Variant:        variant,
		Strategy:       strategy,
		RowLimit:       cfg.RowLimit,
		CurrencySymbol: cfg.CurrencySymbol,
	}, log)

	httpSrv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      srv.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	log.WithField("addr", httpSrv.Addr).WithField("dataset_path", cfg.DatasetPath).Info("listening")
	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.WithError(err).Fatal("server terminated")
	}
}
