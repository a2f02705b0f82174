package valuation

import (
	"fcf_valuation/pkg/core/calc"
)

// ValuationLineItem is one row of the summary table: the per-share value
// implied by one free-cash-flow definition under the same assumptions.
type ValuationLineItem struct {
	FCFType       calc.FCFType `json:"fcf_type"`
	BaseFCF       float64      `json:"base_fcf"`
	ValuePerShare float64      `json:"value_per_share"`
	Upside        *float64     `json:"upside,omitempty"`
	Error         string       `json:"error,omitempty"`
}

// RunAllValuations values the company once per FCF definition present in
// bases, in calc.FCFTypes order. Definitions without a base are skipped.
func RunAllValuations(bases map[calc.FCFType]float64, a Assumptions, m MarketInputs, price float64) []ValuationLineItem {
	var results []ValuationLineItem
	for _, t := range calc.FCFTypes {
		base, ok := bases[t]
		if !ok {
			continue
		}
		item := ValuationLineItem{FCFType: t, BaseFCF: base}
		res, err := Project(base, a, m)
		if err != nil {
			item.Error = err.Error()
			results = append(results, item)
			continue
		}
		item.ValuePerShare = res.ValuePerShare
		if price > 0 {
			up := (res.ValuePerShare - price) / price
			item.Upside = &up
		}
		results = append(results, item)
	}
	return results
}
