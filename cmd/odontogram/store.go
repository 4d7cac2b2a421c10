package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ehr/odontogram/internal/config"
	"github.com/ehr/odontogram/internal/domain/dentalchart"
	"github.com/ehr/odontogram/internal/platform/db"
)

// chartStore is an opened chart repository together with what the health
// check pings and how to release it.
type chartStore struct {
	repo    dentalchart.ChartRepository
	pinger  db.Pinger
	backend string
	close   func()
}

func openStore(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*chartStore, error) {
	switch cfg.ChartStore {
	case config.StorePostgres:
		pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
		if err != nil {
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		logger.Info().Msg("connected to database")
		return &chartStore{
			repo:    dentalchart.NewChartRepoPG(pool),
			pinger:  pool,
			backend: config.StorePostgres,
			close:   pool.Close,
		}, nil
	case config.StoreSQLite:
		repo, err := dentalchart.NewSQLiteChartRepo(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		logger.Info().Str("path", cfg.SQLitePath).Msg("opened sqlite chart store")
		return &chartStore{
			repo:    repo,
			pinger:  repo,
			backend: config.StoreSQLite,
			close: func() {
				if err := repo.Close(); err != nil {
					logger.Error().Err(err).Msg("close sqlite chart store")
				}
			},
		}, nil
	}
	return nil, fmt.Errorf("unknown chart store %q", cfg.ChartStore)
}
