// Package synthesis merges a long fiscal-year history with the trailing
// window (LTM/TTM) for the same metric.
//
// Recency wins: the trailing figure replaces the latest historical point so
// the series reflects current performance, while every earlier point is kept
// for trend analysis.
package synthesis

import "fcf_valuation/pkg/core/series"

// Fused is the result of merging one metric.
type Fused struct {
	Series          series.Series
	TrailingApplied bool
	TrailingYear    int // year of the trailing value used, when applied
}

// Fuse returns history with its final point replaced by the most recent
// present value of trailing. The history's year labels are kept.
//
// If trailing has no present value the history passes through unchanged. If
// history is empty the result is the single trailing point.
func Fuse(history, trailing series.Series) Fused {
	tYear, tValue, ok := trailing.Latest()
	if !ok {
		return Fused{Series: history.Clone()}
	}

	if history.IsEmpty() {
		return Fused{
			Series:          series.Series{Years: []int{tYear}, Values: []*float64{series.Float(tValue)}},
			TrailingApplied: true,
			TrailingYear:    tYear,
		}
	}

	out := history.Clone()
	out.Values[len(out.Values)-1] = series.Float(tValue)
	return Fused{Series: out, TrailingApplied: true, TrailingYear: tYear}
}
