// Package calc provides deterministic financial calculations for the FCF
// model: the three free-cash-flow definitions, growth analysis and the
// discounting primitives the DCF projector is built on.
package calc

import (
	"math"

	"fcf_valuation/pkg/core/diag"
)

// =============================================================================
// COST OF CAPITAL
// =============================================================================

// CostOfEquityCAPM calculates required return on equity using CAPM.
//
// FORMULA: r_e = r_f + β × MRP
func CostOfEquityCAPM(riskFreeRate, beta, marketRiskPremium float64) float64 {
	return riskFreeRate + beta*marketRiskPremium
}

// WACC calculates Weighted Average Cost of Capital.
//
// FORMULA: WACC = r_d × (1 - T) × (D/V) + r_e × (E/V)
func WACC(costOfDebt, taxRate, debtWeight, costOfEquity, equityWeight float64) float64 {
	afterTaxDebtCost := costOfDebt * (1 - taxRate) * debtWeight
	equityCost := costOfEquity * equityWeight
	return afterTaxDebtCost + equityCost
}

// =============================================================================
// DISCOUNTING
// =============================================================================

// DiscountFactor returns 1 / (1 + r)^t.
func DiscountFactor(discountRate float64, periods int) float64 {
	return 1 / math.Pow(1+discountRate, float64(periods))
}

// PresentValue calculates PV of a single cash flow.
//
// FORMULA: PV = CF / (1 + r)^t
func PresentValue(cashFlow, discountRate float64, periods int) float64 {
	if periods < 0 {
		return 0
	}
	return cashFlow / math.Pow(1+discountRate, float64(periods))
}

// PresentValues discounts each cash flow to today. Cash flows are assumed to
// arrive at the end of periods 1..n.
func PresentValues(cashFlows []float64, discountRate float64) []float64 {
	out := make([]float64, len(cashFlows))
	for t, cf := range cashFlows {
		out[t] = PresentValue(cf, discountRate, t+1)
	}
	return out
}

// PresentValueOfCashFlows calculates PV of a series of cash flows.
//
// FORMULA: PV = Σ [ CF_t / (1 + r)^t ]
func PresentValueOfCashFlows(cashFlows []float64, discountRate float64) float64 {
	var pv float64
	for _, v := range PresentValues(cashFlows, discountRate) {
		pv += v
	}
	return pv
}

// TerminalValueGordonGrowth calculates terminal value using the Gordon
// Growth Model.
//
// FORMULA: TV = CF_{N+1} / (r - g)
//
// Growth at or above the discount rate has no finite perpetuity value and
// is a *diag.DomainError.
func TerminalValueGordonGrowth(nextPeriodCF, discountRate, growthRate float64) (float64, error) {
	if discountRate <= growthRate {
		return 0, &diag.DomainError{
			Field:   "terminal_growth_rate",
			Value:   growthRate,
			Message: "must be below the discount rate",
		}
	}
	return nextPeriodCF / (discountRate - growthRate), nil
}
