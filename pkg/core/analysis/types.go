package analysis

import (
	"time"

	"fcf_valuation/pkg/core/calc"
	"fcf_valuation/pkg/core/diag"
	"fcf_valuation/pkg/core/market"
	"fcf_valuation/pkg/core/valuation"
)

// Request selects what one valuation run computes. Nil fields take the
// engine defaults.
type Request struct {
	Ticker      string                 `json:"ticker"`
	FCFType     calc.FCFType           `json:"fcf_type,omitempty"`
	Assumptions *valuation.Assumptions `json:"assumptions,omitempty"`
	Axes        *valuation.Axes        `json:"axes,omitempty"`

	// Market overrides win over the provider and the defaults.
	market.Overrides
}

// Report is the complete output of one valuation run.
type Report struct {
	Ticker      string    `json:"ticker"`
	DatasetKey  string    `json:"dataset_key"`
	GeneratedAt time.Time `json:"generated_at"`

	FCFType calc.FCFType   `json:"fcf_type"`
	FCF     calc.FCFResult `json:"fcf"`

	// Growth holds the CAGR windows per FCF definition; RevenueGrowth the
	// same windows for revenue.
	Growth        map[calc.FCFType][]calc.GrowthRate `json:"growth"`
	RevenueGrowth []calc.GrowthRate                  `json:"revenue_growth"`

	Quote       market.Quote                  `json:"quote"`
	BaseYear    int                           `json:"base_year,omitempty"`
	DCF         *valuation.DCFResult          `json:"dcf,omitempty"`
	Sensitivity *valuation.Grid               `json:"sensitivity,omitempty"`
	Summary     []valuation.ValuationLineItem `json:"summary,omitempty"`

	Warnings []diag.Warning `json:"warnings"`
}

// Upside is the DCF value per share against the current price, when both
// are known.
func (r *Report) Upside() (float64, bool) {
	if r.DCF == nil || r.Quote.CurrentPrice <= 0 {
		return 0, false
	}
	return (r.DCF.ValuePerShare - r.Quote.CurrentPrice) / r.Quote.CurrentPrice, true
}
