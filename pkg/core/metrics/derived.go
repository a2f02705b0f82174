package metrics

import (
	"math"

	"fcf_valuation/pkg/core/diag"
	"fcf_valuation/pkg/core/series"
)

const (
	// MaxTaxRate caps the effective tax rate.
	MaxTaxRate = 0.35
	// DefaultTaxRate applies when EBT is exactly zero.
	DefaultTaxRate = 0.25
)

// ComputeTaxRate returns clamp(|tax| / |EBT|, 0, MaxTaxRate) per year, or
// DefaultTaxRate where EBT is zero. Years missing either input stay absent;
// an empty input yields an empty series.
func ComputeTaxRate(tax, ebt series.Series) series.Series {
	if tax.IsEmpty() || ebt.IsEmpty() {
		return series.Series{}
	}
	out := series.Series{
		Years:  append([]int(nil), ebt.Years...),
		Values: make([]*float64, ebt.Len()),
	}
	for i, y := range ebt.Years {
		e, ok := ebt.At(i)
		if !ok {
			continue
		}
		t, ok := tax.Value(y)
		if !ok {
			continue
		}
		rate := DefaultTaxRate
		if e != 0 {
			rate = math.Min(math.Max(math.Abs(t)/math.Abs(e), 0), MaxTaxRate)
		}
		out.Values[i] = series.Float(rate)
	}
	return out
}

// ComputeWorkingCapitalChange returns the year-over-year change in
// (current assets - current liabilities). Each change is labeled with the
// year it ends in, so the result has exactly len(ca)-1 points. Fewer than two
// periods is an InsufficientHistoryError.
func ComputeWorkingCapitalChange(ca, cl series.Series) (series.Series, error) {
	if ca.IsEmpty() || cl.IsEmpty() {
		return series.Series{}, nil
	}
	if ca.Len() < 2 {
		return series.Series{}, &diag.InsufficientHistoryError{Metric: string(WorkingCapitalChange), Have: ca.Len(), Need: 2}
	}

	wc := func(i int) (float64, bool) {
		a, ok := ca.At(i)
		if !ok {
			return 0, false
		}
		l, ok := cl.Value(ca.Years[i])
		if !ok {
			return 0, false
		}
		return a - l, true
	}

	out := series.Series{
		Years:  append([]int(nil), ca.Years[1:]...),
		Values: make([]*float64, ca.Len()-1),
	}
	for i := 1; i < ca.Len(); i++ {
		cur, ok := wc(i)
		if !ok {
			continue
		}
		prev, ok := wc(i - 1)
		if !ok {
			continue
		}
		out.Values[i-1] = series.Float(cur - prev)
	}
	return out, nil
}

// ComputeNetBorrowing returns debt issued minus the absolute debt repaid.
func ComputeNetBorrowing(issued, repaid series.Series) series.Series {
	if issued.IsEmpty() || repaid.IsEmpty() {
		return series.Series{}
	}
	out := series.Series{
		Years:  append([]int(nil), issued.Years...),
		Values: make([]*float64, issued.Len()),
	}
	for i, y := range issued.Years {
		in, ok := issued.At(i)
		if !ok {
			continue
		}
		rp, ok := repaid.Value(y)
		if !ok {
			continue
		}
		out.Values[i] = series.Float(in - math.Abs(rp))
	}
	return out
}
