package valuation

import (
	"fmt"
	"math"

	"fcf_valuation/pkg/core/diag"
)

// AxisSteps controls the default grid around the base assumptions.
type AxisSteps struct {
	Steps        int     `json:"steps" yaml:"steps"`                 // points on each side of the base
	DiscountStep float64 `json:"discount_step" yaml:"discount_step"` // spacing of discount rates
	GrowthStep   float64 `json:"growth_step" yaml:"growth_step"`     // spacing of terminal growth rates
}

// DefaultAxisSteps gives a 5×5 grid: ±2 steps of 1% and 0.5%.
func DefaultAxisSteps() AxisSteps {
	return AxisSteps{Steps: 2, DiscountStep: 0.01, GrowthStep: 0.005}
}

// Axes are the rates the grid is evaluated at.
type Axes struct {
	DiscountRates       []float64 `json:"discount_rates"`
	TerminalGrowthRates []float64 `json:"terminal_growth_rates"`
}

// DefaultAxes centres both axes on the base assumptions.
func DefaultAxes(a Assumptions, s AxisSteps) Axes {
	if s.Steps < 0 {
		s.Steps = 0
	}
	return Axes{
		DiscountRates:       spread(a.DiscountRate, s.DiscountStep, s.Steps),
		TerminalGrowthRates: spread(a.TerminalGrowthRate, s.GrowthStep, s.Steps),
	}
}

func spread(center, step float64, n int) []float64 {
	out := make([]float64, 0, 2*n+1)
	for i := -n; i <= n; i++ {
		// rounded so 0.1 - 0.01*2 prints as 0.08
		out = append(out, math.Round((center+float64(i)*step)*1e10)/1e10)
	}
	return out
}

// Cell is one (discount rate, terminal growth) scenario.
type Cell struct {
	DiscountRate       float64  `json:"discount_rate"`
	TerminalGrowthRate float64  `json:"terminal_growth_rate"`
	Defined            bool     `json:"defined"`
	ValuePerShare      float64  `json:"value_per_share"`
	Upside             *float64 `json:"upside"` // nil when the price is unknown
	Reason             string   `json:"reason,omitempty"`
}

// Grid is the sensitivity matrix. Cells[i][j] uses DiscountRates[i] and
// TerminalGrowthRates[j].
type Grid struct {
	Axes
	CurrentPrice float64  `json:"current_price"`
	Cells        [][]Cell `json:"cells"`
}

// Cell returns the scenario at discount rate r and growth g, if on the grid.
func (g *Grid) Cell(r, growth float64) (Cell, bool) {
	for i, dr := range g.DiscountRates {
		if math.Abs(dr-r) > 1e-12 {
			continue
		}
		for j, tg := range g.TerminalGrowthRates {
			if math.Abs(tg-growth) <= 1e-12 {
				return g.Cells[i][j], true
			}
		}
	}
	return Cell{}, false
}

// Sensitivity recomputes the per-share value for every rate pair on the
// axes. Pairs with g >= r have no finite terminal value and are marked
// undefined. Upside against price is only reported when price > 0.
// Non-positive shares fail the whole grid.
func Sensitivity(baseFCF float64, a Assumptions, m MarketInputs, price float64, axes Axes) (*Grid, error) {
	if m.SharesOutstanding <= 0 {
		return nil, &diag.DomainError{Field: "shares_outstanding", Value: m.SharesOutstanding, Message: "must be positive"}
	}

	grid := &Grid{
		Axes:         axes,
		CurrentPrice: price,
		Cells:        make([][]Cell, len(axes.DiscountRates)),
	}
	for i, r := range axes.DiscountRates {
		row := make([]Cell, len(axes.TerminalGrowthRates))
		for j, g := range axes.TerminalGrowthRates {
			cell := Cell{DiscountRate: r, TerminalGrowthRate: g}
			if g >= r {
				cell.Reason = fmt.Sprintf("terminal growth %.4f is not below discount rate %.4f", g, r)
				row[j] = cell
				continue
			}
			res, err := Project(baseFCF, a.WithRates(r, g), m)
			if err != nil {
				cell.Reason = err.Error()
				row[j] = cell
				continue
			}
			cell.Defined = true
			cell.ValuePerShare = res.ValuePerShare
			if price > 0 {
				up := (res.ValuePerShare - price) / price
				cell.Upside = &up
			}
			row[j] = cell
		}
		grid.Cells[i] = row
	}
	return grid, nil
}
