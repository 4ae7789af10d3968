// Package initializer wires the process: logger, config, database, schema
// and the in-memory ledger rebuilt from the store.
package initializer

import (
	"context"
	"fmt"
	"log/slog"

	"bankledger/infra"
	infrarepo "bankledger/infra/repository"
	"bankledger/pkg/config"
	"bankledger/pkg/ledger"
)

// App holds everything the front end needs.
type App struct {
	Config *config.Config
	Logger *slog.Logger
	Ledger *ledger.Ledger
}

// New loads config, connects to the store, migrates the schema and rebuilds
// the ledger from persisted state. The ledger accepts no mutating call
// before this load has succeeded.
func New(ctx context.Context) (*App, error) {
	bootLogger := setupLogger(config.Log{Format: "text", TimeFormat: "15:04:05", Prefix: "bankledger"})

	cfg, err := config.Load(bootLogger)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger := setupLogger(cfg.Log)

	db, err := infra.NewDBConnection(cfg.DB, cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := infrarepo.Migrate(db); err != nil {
		return nil, fmt.Errorf("migrate schema: %w", err)
	}

	led := ledger.New(infrarepo.NewStore(db), logger)
	if err := led.Load(ctx); err != nil {
		return nil, err
	}

	return &App{Config: cfg, Logger: logger, Ledger: led}, nil
}
