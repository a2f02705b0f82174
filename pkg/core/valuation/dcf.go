package valuation

import (
	"fcf_valuation/pkg/core/calc"
	"fcf_valuation/pkg/core/diag"
)

// MarketInputs are the capital-structure figures the equity bridge needs.
type MarketInputs struct {
	SharesOutstanding float64 `json:"shares_outstanding"`
	NetDebt           float64 `json:"net_debt"`
}

// DCFResult holds the valuation outputs. Slices are indexed by projection
// year t = 1..N.
type DCFResult struct {
	BaseFCF         float64     `json:"base_fcf"`
	GrowthRates     []float64   `json:"growth_rates"`
	ProjectedFCF    []float64   `json:"projected_fcf"`
	DiscountFactors []float64   `json:"discount_factors"`
	PVFCF           []float64   `json:"pv_fcf"`
	SumPVFCF        float64     `json:"sum_pv_fcf"`
	TerminalFCF     float64     `json:"terminal_fcf"`
	TerminalValue   float64     `json:"terminal_value"`
	PVTerminal      float64     `json:"pv_terminal"`
	EnterpriseValue float64     `json:"enterprise_value"`
	NetDebt         float64     `json:"net_debt"`
	EquityValue     float64     `json:"equity_value"`
	Shares          float64     `json:"shares_outstanding"`
	ValuePerShare   float64     `json:"value_per_share"`
	Assumptions     Assumptions `json:"assumptions"`
}

// TerminalWeight is the share of enterprise value coming from the terminal
// value.
func (r *DCFResult) TerminalWeight() float64 {
	if r.EnterpriseValue == 0 {
		return 0
	}
	return r.PVTerminal / r.EnterpriseValue
}

// Project performs a two-phase DCF from baseFCF, the latest observed free
// cash flow.
//
// Years 1..k grow at GrowthRatePhase1 and years k+1..N at GrowthRatePhase2,
// compounding. The terminal value capitalises FCF[N]·(1+g) at (r - g) and is
// discounted N years. Equity = EV - net debt, divided by shares for the
// per-share value.
func Project(baseFCF float64, a Assumptions, m MarketInputs) (*DCFResult, error) {
	if err := a.Validate(); err != nil {
		return nil, err
	}
	if m.SharesOutstanding <= 0 {
		return nil, &diag.DomainError{
			Field:   "shares_outstanding",
			Value:   m.SharesOutstanding,
			Message: "must be positive",
		}
	}

	n := a.ProjectionYears
	k := a.EffectivePhase1Years()
	r := a.DiscountRate

	res := &DCFResult{
		BaseFCF:         baseFCF,
		GrowthRates:     make([]float64, n),
		ProjectedFCF:    make([]float64, n),
		DiscountFactors: make([]float64, n),
		Assumptions:     a,
		NetDebt:         m.NetDebt,
		Shares:          m.SharesOutstanding,
	}

	// 1. Project
	fcf := baseFCF
	for t := 1; t <= n; t++ {
		g := a.GrowthRatePhase2
		if t <= k {
			g = a.GrowthRatePhase1
		}
		fcf *= 1 + g
		res.GrowthRates[t-1] = g
		res.ProjectedFCF[t-1] = fcf
		res.DiscountFactors[t-1] = calc.DiscountFactor(r, t)
	}

	// 2. Discount
	res.PVFCF = calc.PresentValues(res.ProjectedFCF, r)
	for _, pv := range res.PVFCF {
		res.SumPVFCF += pv
	}

	// 3. Terminal value (Gordon Growth)
	res.TerminalFCF = res.ProjectedFCF[n-1] * (1 + a.TerminalGrowthRate)
	tv, err := calc.TerminalValueGordonGrowth(res.TerminalFCF, r, a.TerminalGrowthRate)
	if err != nil {
		return nil, err
	}
	res.TerminalValue = tv
	res.PVTerminal = calc.PresentValue(tv, r, n)

	// 4. Equity bridge
	res.EnterpriseValue = res.SumPVFCF + res.PVTerminal
	res.EquityValue = res.EnterpriseValue - m.NetDebt
	res.ValuePerShare = res.EquityValue / m.SharesOutstanding

	return res, nil
}
