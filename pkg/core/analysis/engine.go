// Package analysis orchestrates one valuation: metrics snapshot, free cash
// flows, growth, market data, DCF and sensitivity, collected in a Report.
package analysis

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"fcf_valuation/pkg/core/calc"
	"fcf_valuation/pkg/core/diag"
	"fcf_valuation/pkg/core/market"
	"fcf_valuation/pkg/core/metrics"
	"fcf_valuation/pkg/core/valuation"
)

// Engine values one company. It is safe for concurrent use; the snapshot is
// shared through the calculator.
type Engine struct {
	calculator    *metrics.Calculator
	provider      market.Provider
	defaults      market.Defaults
	assumptions   valuation.Assumptions
	steps         valuation.AxisSteps
	growthPeriods []int
	logger        zerolog.Logger
	now           func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithProvider sets the market-data source.
func WithProvider(p market.Provider) Option {
	return func(e *Engine) { e.provider = p }
}

// WithMarketDefaults sets the values used when market data is missing.
func WithMarketDefaults(d market.Defaults) Option {
	return func(e *Engine) { e.defaults = d }
}

// WithAssumptions sets the assumptions used when a request carries none.
func WithAssumptions(a valuation.Assumptions) Option {
	return func(e *Engine) { e.assumptions = a }
}

// WithAxisSteps sets the default sensitivity grid spacing.
func WithAxisSteps(s valuation.AxisSteps) Option {
	return func(e *Engine) { e.steps = s }
}

// WithGrowthPeriods overrides the CAGR look-back windows.
func WithGrowthPeriods(periods []int) Option {
	return func(e *Engine) { e.growthPeriods = periods }
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// NewEngine creates an engine over one company's calculator.
func NewEngine(calculator *metrics.Calculator, opts ...Option) *Engine {
	e := &Engine{
		calculator:    calculator,
		assumptions:   valuation.DefaultAssumptions(),
		steps:         valuation.DefaultAxisSteps(),
		growthPeriods: calc.DefaultGrowthPeriods,
		logger:        log.Logger,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With().Str("component", "valuation").Logger()
	return e
}

// Calculator returns the metrics calculator the engine reads from.
func (e *Engine) Calculator() *metrics.Calculator {
	return e.calculator
}

// Run performs a full valuation. Missing metrics and market data degrade to
// warnings in the report; invalid assumptions are returned as
// *diag.DomainError.
func (e *Engine) Run(ctx context.Context, req Request) (*Report, error) {
	a := e.assumptions
	if req.Assumptions != nil {
		a = *req.Assumptions
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	fcfType, err := calc.ParseFCFType(string(req.FCFType))
	if err != nil {
		return nil, &diag.DomainError{Field: "fcf_type", Message: err.Error()}
	}

	snap, err := e.calculator.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to build metrics: %w", err)
	}

	report := &Report{
		Ticker:      req.Ticker,
		DatasetKey:  snap.Key,
		GeneratedAt: e.now().UTC(),
		FCFType:     fcfType,
		Growth:      make(map[calc.FCFType][]calc.GrowthRate),
	}
	report.Warnings = append(report.Warnings, snap.Warnings...)

	// 1. Free cash flows and growth
	report.FCF = calc.ComputeFCF(snap)
	report.Warnings = append(report.Warnings, report.FCF.Warnings...)
	for _, t := range calc.FCFTypes {
		if s, ok := report.FCF.Get(t); ok {
			report.Growth[t] = calc.AnalyzeGrowth(s, e.growthPeriods)
		}
	}
	report.RevenueGrowth = calc.AnalyzeGrowth(snap.Series(metrics.Revenue), e.growthPeriods)

	// 2. Market data
	quote, warnings, err := market.Resolve(ctx, e.provider, req.Ticker, req.Overrides, e.defaults)
	if err != nil {
		return nil, err
	}
	report.Quote = quote
	report.Warnings = append(report.Warnings, warnings...)

	// 3. DCF on the chosen definition
	skip := func(reason string) (*Report, error) {
		report.Warnings = append(report.Warnings, diag.Warning{
			Code:    diag.CodeDCFSkipped,
			Metric:  string(fcfType),
			Message: reason,
		})
		e.logger.Warn().Str("ticker", req.Ticker).Str("fcf_type", string(fcfType)).Str("reason", reason).Msg("dcf skipped")
		return report, nil
	}
	chosen, ok := report.FCF.Get(fcfType)
	if !ok {
		return skip("selected free cash flow could not be computed")
	}
	// A share count the caller supplied is validated by Project; a missing
	// one only leaves the report without a per-share value.
	if quote.SharesOutstanding <= 0 && req.Overrides.SharesOutstanding == nil {
		return skip("shares outstanding unknown for ticker")
	}
	baseYear, baseFCF, _ := chosen.Latest()
	report.BaseYear = baseYear

	mkt := valuation.MarketInputs{SharesOutstanding: quote.SharesOutstanding, NetDebt: quote.NetDebtOrZero()}
	dcf, err := valuation.Project(baseFCF, a, mkt)
	if err != nil {
		return nil, err
	}
	report.DCF = dcf

	// 4. Sensitivity
	axes := valuation.DefaultAxes(a, e.steps)
	if req.Axes != nil {
		axes = *req.Axes
	}
	grid, err := valuation.Sensitivity(baseFCF, a, mkt, quote.CurrentPrice, axes)
	if err != nil {
		return nil, err
	}
	report.Sensitivity = grid

	// 5. Every computable definition under the same assumptions
	bases := make(map[calc.FCFType]float64)
	for _, t := range calc.FCFTypes {
		if s, ok := report.FCF.Get(t); ok {
			if _, v, ok := s.Latest(); ok {
				bases[t] = v
			}
		}
	}
	report.Summary = valuation.RunAllValuations(bases, a, mkt, quote.CurrentPrice)

	e.logger.Info().
		Str("ticker", req.Ticker).
		Str("fcf_type", string(fcfType)).
		Int("base_year", baseYear).
		Float64("base_fcf", baseFCF).
		Float64("value_per_share", dcf.ValuePerShare).
		Int("warnings", len(report.Warnings)).
		Msg("valuation complete")

	return report, nil
}
