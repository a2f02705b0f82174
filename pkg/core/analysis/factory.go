package analysis

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"fcf_valuation/pkg/core/metrics"
	"fcf_valuation/pkg/core/statement"
)

// Factory creates one engine per company directory with shared settings.
// Engines never share a calculator, so companies never share a snapshot.
type Factory struct {
	Locator *statement.Locator
	Store   metrics.SnapshotStore
	Logger  *zerolog.Logger
	Options []Option
}

// ForDir returns a new engine reading statements from dir.
func (f Factory) ForDir(dir string) *Engine {
	logger := log.Logger
	if f.Logger != nil {
		logger = *f.Logger
	}
	calcOpts := []metrics.Option{metrics.WithLogger(logger)}
	if f.Store != nil {
		calcOpts = append(calcOpts, metrics.WithStore(f.Store))
	}
	c := metrics.NewCalculator(metrics.DirSource{Dir: dir}, f.Locator, calcOpts...)

	opts := append([]Option{WithLogger(logger)}, f.Options...)
	return NewEngine(c, opts...)
}
