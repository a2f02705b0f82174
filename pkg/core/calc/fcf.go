package calc

import (
	"fmt"
	"math"
	"strings"

	"fcf_valuation/pkg/core/diag"
	"fcf_valuation/pkg/core/metrics"
	"fcf_valuation/pkg/core/series"
)

// =============================================================================
// FREE CASH FLOW
// =============================================================================

// FCFType selects a free-cash-flow definition.
type FCFType string

const (
	FCFF FCFType = "fcff" // free cash flow to firm
	FCFE FCFType = "fcfe" // free cash flow to equity
	LFCF FCFType = "lfcf" // levered free cash flow
)

// FCFTypes lists every supported definition.
var FCFTypes = []FCFType{FCFF, FCFE, LFCF}

// ParseFCFType accepts the type name in any case. An empty string is FCFF.
func ParseFCFType(s string) (FCFType, error) {
	switch FCFType(strings.ToLower(strings.TrimSpace(s))) {
	case "", FCFF:
		return FCFF, nil
	case FCFE:
		return FCFE, nil
	case LFCF:
		return LFCF, nil
	}
	return "", fmt.Errorf("unknown fcf type %q", s)
}

// fcfInputs lists the snapshot series each formula consumes, in argument
// order.
var fcfInputs = map[FCFType][]metrics.Metric{
	FCFF: {metrics.EBIT, metrics.TaxRate, metrics.DepreciationAmortization, metrics.WorkingCapitalChange, metrics.CapitalExpenditure},
	FCFE: {metrics.NetIncome, metrics.DepreciationAmortization, metrics.WorkingCapitalChange, metrics.CapitalExpenditure, metrics.NetBorrowing},
	LFCF: {metrics.OperatingCashFlow, metrics.CapitalExpenditure},
}

// Inputs returns the metrics a definition needs.
func (t FCFType) Inputs() []metrics.Metric {
	return append([]metrics.Metric(nil), fcfInputs[t]...)
}

// ComputeFCFF returns EBIT·(1 - tax_rate) + D&A - ΔWC - |CapEx|.
//
// Inputs must already be aligned (same years, no gaps); see series.Align.
func ComputeFCFF(ebit, taxRate, da, wcc, capex series.Series) (series.Series, error) {
	if err := series.CheckAligned(ebit, taxRate, da, wcc, capex); err != nil {
		return series.Series{}, err
	}
	return combine(ebit, func(i int) float64 {
		return *ebit.Values[i]*(1-*taxRate.Values[i]) + *da.Values[i] - *wcc.Values[i] - math.Abs(*capex.Values[i])
	}), nil
}

// ComputeFCFE returns NetIncome + D&A - ΔWC - |CapEx| + NetBorrowing.
func ComputeFCFE(netIncome, da, wcc, capex, netBorrowing series.Series) (series.Series, error) {
	if err := series.CheckAligned(netIncome, da, wcc, capex, netBorrowing); err != nil {
		return series.Series{}, err
	}
	return combine(netIncome, func(i int) float64 {
		return *netIncome.Values[i] + *da.Values[i] - *wcc.Values[i] - math.Abs(*capex.Values[i]) + *netBorrowing.Values[i]
	}), nil
}

// ComputeLFCF returns OperatingCashFlow - |CapEx|. No tax or working-capital
// adjustment applies; operating cash flow already carries both.
func ComputeLFCF(ocf, capex series.Series) (series.Series, error) {
	if err := series.CheckAligned(ocf, capex); err != nil {
		return series.Series{}, err
	}
	return combine(ocf, func(i int) float64 {
		return *ocf.Values[i] - math.Abs(*capex.Values[i])
	}), nil
}

func combine(ref series.Series, fn func(i int) float64) series.Series {
	out := series.Series{
		Years:  append([]int(nil), ref.Years...),
		Values: make([]*float64, ref.Len()),
	}
	for i := range ref.Years {
		out.Values[i] = series.Float(fn(i))
	}
	return out
}

// FCFResult holds every FCF definition computed from one snapshot. A type
// missing from Series is listed in Uncomputable with the inputs it lacked.
type FCFResult struct {
	Series       map[FCFType]series.Series `json:"series"`
	Uncomputable map[FCFType][]string      `json:"uncomputable,omitempty"`
	Warnings     []diag.Warning            `json:"warnings,omitempty"`
}

// Get returns the series for t and whether it was computed.
func (r FCFResult) Get(t FCFType) (series.Series, bool) {
	s, ok := r.Series[t]
	return s, ok && !s.IsEmpty()
}

// ComputeFCF evaluates every FCF definition over the snapshot. Inputs are
// joined by fiscal year first, so a working-capital change is always paired
// with the income of the year it ends in. Years where any input is absent
// are dropped and reported.
func ComputeFCF(snap *metrics.Snapshot) FCFResult {
	res := FCFResult{
		Series:       make(map[FCFType]series.Series),
		Uncomputable: make(map[FCFType][]string),
	}

	for _, t := range FCFTypes {
		names := fcfInputs[t]
		inputs := make([]series.Series, len(names))
		var missing []string
		for i, m := range names {
			inputs[i] = snap.Series(m)
			if !inputs[i].HasData() {
				missing = append(missing, string(m))
			}
		}
		if len(missing) > 0 {
			res.Uncomputable[t] = missing
			res.Warnings = append(res.Warnings, diag.Warning{
				Code:    diag.CodeNotComputable,
				Metric:  string(t),
				Message: "missing inputs: " + strings.Join(missing, ", "),
			})
			continue
		}

		aligned := series.Align(inputs...)
		if aligned[0].IsEmpty() {
			res.Uncomputable[t] = []string{"no fiscal year with every input present"}
			res.Warnings = append(res.Warnings, diag.Warning{
				Code:    diag.CodeNotComputable,
				Metric:  string(t),
				Message: "inputs share no complete fiscal year",
			})
			continue
		}

		var (
			out series.Series
			err error
		)
		switch t {
		case FCFF:
			out, err = ComputeFCFF(aligned[0], aligned[1], aligned[2], aligned[3], aligned[4])
		case FCFE:
			out, err = ComputeFCFE(aligned[0], aligned[1], aligned[2], aligned[3], aligned[4])
		case LFCF:
			out, err = ComputeLFCF(aligned[0], aligned[1])
		}
		if err != nil {
			res.Uncomputable[t] = []string{err.Error()}
			res.Warnings = append(res.Warnings, diag.Warning{Code: diag.CodeNotComputable, Metric: string(t), Message: err.Error()})
			continue
		}
		res.Series[t] = out

		if dropped := droppedYears(inputs[0], out); len(dropped) > 0 {
			res.Warnings = append(res.Warnings, diag.Warning{
				Code:    diag.CodeMissingYears,
				Metric:  string(t),
				Years:   dropped,
				Message: "years skipped for incomplete inputs",
			})
		}
	}

	if len(res.Uncomputable) == 0 {
		res.Uncomputable = nil
	}
	return res
}

// droppedYears lists the years of primary that did not make it into out.
func droppedYears(primary, out series.Series) []int {
	var dropped []int
	for _, y := range primary.Years {
		if _, ok := out.Value(y); !ok {
			dropped = append(dropped, y)
		}
	}
	return dropped
}
