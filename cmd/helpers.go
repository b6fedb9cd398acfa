package cmd

import (
	"fmt"

	"github.com/ziadkadry99/propwise/internal/config"
	"github.com/ziadkadry99/propwise/internal/db"
	"github.com/ziadkadry99/propwise/internal/loader"
	"github.com/ziadkadry99/propwise/internal/rag"
	"github.com/ziadkadry99/propwise/internal/runs"
)

// loadConfig loads and validates the config, providing a user-friendly error.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w\nRun `propwise init` to create a config file", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", cfgFile, err)
	}
	return cfg, nil
}

// app bundles what every command that touches the pipeline needs.
type app struct {
	cfg      *config.Config
	db       *db.DB
	ledger   *runs.Store
	pipeline *rag.Pipeline
}

// openApp loads the config, opens the run ledger and builds the pipeline.
// onLoad receives per-URL loading progress and may be nil.
func openApp(onLoad loader.ProgressFunc) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	database, err := db.Open(cfg.DatabasePath())
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	ledger := runs.NewStore(database)

	opts := rag.OptionsFromConfig(cfg)
	opts.Ledger = ledger
	opts.Verbose = verbose

	return &app{
		cfg:      cfg,
		db:       database,
		ledger:   ledger,
		pipeline: rag.New(rag.ConfigFactory(cfg, onLoad), opts),
	}, nil
}

func (a *app) Close() {
	a.pipeline.Close()
	a.db.Close()
}
