package calc

import (
	"fmt"
	"math"

	"fcf_valuation/pkg/core/series"
)

// =============================================================================
// GROWTH
// =============================================================================

// DefaultGrowthPeriods are the look-back windows, in years.
var DefaultGrowthPeriods = []int{1, 3, 5, 10}

// GrowthRate is the compound annual growth over one look-back window.
// Rate is meaningful only when Defined is true.
type GrowthRate struct {
	Period    int     `json:"period"`
	StartYear int     `json:"start_year,omitempty"`
	EndYear   int     `json:"end_year,omitempty"`
	Rate      float64 `json:"rate"`
	Defined   bool    `json:"defined"`
	Reason    string  `json:"reason,omitempty"`
}

// CAGR returns the sign-corrected compound annual growth rate between two
// values n years apart.
//
// The magnitude is rate = (|end| / |start|)^(1/n) - 1. The sign then reads
// as "better or worse":
//
//	start > 0, end >= 0   plain CAGR
//	start > 0, end <  0   turned to a loss: -|rate|
//	start < 0, end >= 0   recovered from a loss: +|rate|
//	start < 0, end <  0   -rate, so a shrinking loss is positive growth
//
// A zero start (or n < 1) has no defined rate and returns ok=false.
func CAGR(start, end float64, n int) (rate float64, ok bool) {
	if n < 1 || start == 0 || math.IsNaN(start) || math.IsNaN(end) {
		return 0, false
	}
	raw := math.Pow(math.Abs(end)/math.Abs(start), 1/float64(n)) - 1

	switch {
	case start > 0 && end >= 0:
		return raw, true
	case start > 0:
		return -math.Abs(raw), true
	case end >= 0:
		return math.Abs(raw), true
	default:
		return -raw, true
	}
}

// AnalyzeGrowth computes the CAGR of s for each period. The window ends at
// the latest present value and starts at the value exactly n fiscal years
// earlier; a missing or zero start leaves that period undefined.
func AnalyzeGrowth(s series.Series, periods []int) []GrowthRate {
	if len(periods) == 0 {
		periods = DefaultGrowthPeriods
	}
	out := make([]GrowthRate, 0, len(periods))

	endYear, endValue, ok := s.Latest()
	for _, n := range periods {
		g := GrowthRate{Period: n}
		if !ok {
			g.Reason = "no data"
			out = append(out, g)
			continue
		}
		g.EndYear = endYear
		g.StartYear = endYear - n

		startValue, present := s.Value(g.StartYear)
		switch {
		case !present:
			g.Reason = fmt.Sprintf("no value for %d", g.StartYear)
		case startValue == 0:
			g.Reason = "start value is zero"
		default:
			g.Rate, g.Defined = CAGR(startValue, endValue, n)
			if !g.Defined {
				g.Reason = "not computable"
			}
		}
		out = append(out, g)
	}
	return out
}
