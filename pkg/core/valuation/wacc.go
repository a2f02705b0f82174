package valuation

import (
	"fcf_valuation/pkg/core/calc"
	"fcf_valuation/pkg/core/diag"
)

// WACCInput parameters for calculating Cost of Capital
type WACCInput struct {
	UnleveredBeta     float64 `json:"unlevered_beta" yaml:"unlevered_beta" validate:"gte=0"`
	RiskFreeRate      float64 `json:"risk_free_rate" yaml:"risk_free_rate"`
	MarketRiskPremium float64 `json:"market_risk_premium" yaml:"market_risk_premium"`
	PreTaxCostOfDebt  float64 `json:"pre_tax_cost_of_debt" yaml:"pre_tax_cost_of_debt" validate:"gte=0"`
	TaxRate           float64 `json:"tax_rate" yaml:"tax_rate" validate:"gte=0,lt=1"`
	DebtToEquityRatio float64 `json:"debt_to_equity" yaml:"debt_to_equity" validate:"gte=0"` // target leverage (D/E)
}

// WACCResult holds the calculated rates
type WACCResult struct {
	LeveredBeta  float64 `json:"levered_beta"`
	CostOfEquity float64 `json:"cost_of_equity"`
	CostOfDebt   float64 `json:"cost_of_debt"` // after-tax
	WACC         float64 `json:"wacc"`
	WeightDebt   float64 `json:"weight_debt"`
	WeightEquity float64 `json:"weight_equity"`
}

// CalculateWACC computes the Weighted Average Cost of Capital using CAPM and
// the Hamada equation.
func CalculateWACC(input WACCInput) (WACCResult, error) {
	if err := Validator().Struct(input); err != nil {
		return WACCResult{}, &diag.DomainError{Field: "wacc", Message: err.Error()}
	}

	// 1. Re-lever beta: BetaL = BetaU * (1 + (1-t)*(D/E))
	leveredBeta := input.UnleveredBeta * (1 + (1-input.TaxRate)*input.DebtToEquityRatio)

	// 2. Cost of equity (CAPM)
	ke := calc.CostOfEquityCAPM(input.RiskFreeRate, leveredBeta, input.MarketRiskPremium)

	// 3. Weights from D/E = x: Wd = x/(1+x), We = 1/(1+x)
	wd := input.DebtToEquityRatio / (1 + input.DebtToEquityRatio)
	we := 1.0 / (1 + input.DebtToEquityRatio)

	return WACCResult{
		LeveredBeta:  leveredBeta,
		CostOfEquity: ke,
		CostOfDebt:   input.PreTaxCostOfDebt * (1 - input.TaxRate),
		WACC:         calc.WACC(input.PreTaxCostOfDebt, input.TaxRate, wd, ke, we),
		WeightDebt:   wd,
		WeightEquity: we,
	}, nil
}
