// Package app wires the pipeline components into a runnable application.
package app

import (
	"fmt"

	"github.com/sqanar/urlguard/internal/analyzer"
	"github.com/sqanar/urlguard/internal/classifier"
	"github.com/sqanar/urlguard/internal/collect"
	"github.com/sqanar/urlguard/internal/explain"
	"github.com/sqanar/urlguard/internal/logging"
	"github.com/sqanar/urlguard/internal/risk"
	"github.com/sqanar/urlguard/internal/store"
	"github.com/sqanar/urlguard/internal/webclient"
)

// Application holds the assembled pipeline plus the resources it owns.
type Application struct {
	Config   *Config
	Logger   logging.Logger
	Analyzer *analyzer.Analyzer

	webClient webclient.WebClient
	store     store.Store
}

// NewApplication assembles every component from cfg. The caller owns the
// returned Application and must Close it.
func NewApplication(cfg *Config, logger logging.Logger) (*Application, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = logging.NewStdoutLogger("urlguard")
	}

	table, err := risk.LoadTable(cfg.ThresholdsPath)
	if err != nil {
		return nil, fmt.Errorf("loading thresholds: %w", err)
	}

	wc, err := webclient.NewNetHTTPClient(cfg.WebClientCfg, logger, nil)
	if err != nil {
		return nil, fmt.Errorf("creating web client: %w", err)
	}

	var st store.Store
	if cfg.StoragePath == "" {
		st = store.NewMemoryStore()
	} else {
		st, err = store.NewSQLiteStore(cfg.StoragePath, logger)
		if err != nil {
			wc.Close()
			return nil, fmt.Errorf("opening verdict store: %w", err)
		}
	}

	agg := collect.NewAggregator(
		collect.NewWhoisCollector(cfg.CollectCfg, nil, logger),
		collect.NewTLSCollector(cfg.CollectCfg, logger),
		collect.NewContentCollector(cfg.CollectCfg, wc, nil, logger),
		logger,
	)
	cls := classifier.NewHTTPClassifier(cfg.ClassifierCfg, wc, logger)

	a := analyzer.New(cfg.AnalyzerCfg, agg, cls,
		risk.NewMapper(table), explain.NewRanker(table, cfg.TopK), st, logger)

	return &Application{
		Config:    cfg,
		Logger:    logger,
		Analyzer:  a,
		webClient: wc,
		store:     st,
	}, nil
}

// Close releases the application's resources.
func (a *Application) Close() {
	if a.webClient != nil {
		if err := a.webClient.Close(); err != nil {
			a.Logger.Warn("closing web client", logging.Field{Key: "error", Value: err.Error()})
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.Logger.Warn("closing verdict store", logging.Field{Key: "error", Value: err.Error()})
		}
	}
}
