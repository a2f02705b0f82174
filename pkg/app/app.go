// Package app wires configuration into the valuation services shared by the
// HTTP server and the command line.
package app

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"fcf_valuation/pkg/config"
	"fcf_valuation/pkg/core/analysis"
	"fcf_valuation/pkg/core/market"
	"fcf_valuation/pkg/core/statement"
	"fcf_valuation/pkg/core/store"
)

// Services holds everything needed to value companies.
type Services struct {
	Config    *config.Config
	Factory   analysis.Factory
	Provider  market.Provider
	Snapshots *store.SnapshotCache
	// Reports is nil unless a database is configured and report saving is on.
	Reports *store.ReportRepo

	pool *pgxpool.Pool
}

// New builds the services described by cfg. A configured database must be
// reachable; without one the snapshot cache stays on the file system.
func New(ctx context.Context, cfg *config.Config) (*Services, error) {
	assumptions, err := cfg.ValuationAssumptions()
	if err != nil {
		return nil, fmt.Errorf("invalid assumptions: %w", err)
	}

	s := &Services{Config: cfg}

	if cfg.Store.DatabaseURL != "" {
		if err := store.InitDB(ctx, cfg.Store.DatabaseURL); err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		s.pool = store.GetPool()
		log.Info().Msg("database connected")
	}
	s.Snapshots = store.NewSnapshotCache(s.pool, cfg.Store.CacheDir)
	if s.pool != nil && cfg.Store.SaveReports {
		s.Reports = store.NewReportRepo(s.pool)
	}

	if cfg.Market.QuotesFile != "" {
		s.Provider = market.NewFileProvider(cfg.Market.QuotesFile)
	}

	locator := statement.NewLocator(cfg.Locator.SimilarityThreshold, log.Logger)
	s.Factory = analysis.Factory{
		Locator: locator,
		Store:   s.Snapshots,
		Options: []analysis.Option{
			analysis.WithProvider(s.Provider),
			analysis.WithMarketDefaults(cfg.MarketDefaults()),
			analysis.WithAssumptions(assumptions),
			analysis.WithAxisSteps(cfg.AxisSteps()),
		},
	}
	return s, nil
}

// Close releases the database pool, if any.
func (s *Services) Close() {
	if s.pool != nil {
		store.Close()
	}
}
