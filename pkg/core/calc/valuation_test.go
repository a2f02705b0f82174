package calc

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fcf_valuation/pkg/core/diag"
)

func TestTerminalValueGordonGrowth(t *testing.T) {
	tv, err := TerminalValueGordonGrowth(1000*1.025, 0.10, 0.025)
	require.NoError(t, err)
	assert.InDelta(t, 13666.67, tv, 0.005)
}

func TestTerminalValueGordonGrowth_DomainError(t *testing.T) {
	for _, g := range []float64{0.10, 0.12} {
		_, err := TerminalValueGordonGrowth(1000, 0.10, g)
		require.Error(t, err)
		assert.True(t, diag.IsDomain(err), "g=%v", g)
	}
}

func TestPresentValues(t *testing.T) {
	flows := []float64{100, 110, 121}
	pvs := PresentValues(flows, 0.10)
	for _, pv := range pvs {
		assert.InDelta(t, 100/1.1, pv, 1e-9)
	}
	assert.InDelta(t, 3*100/1.1, PresentValueOfCashFlows(flows, 0.10), 1e-9)
	assert.Equal(t, 0.0, PresentValue(100, 0.1, -1))
	assert.InDelta(t, 1/math.Pow(1.08, 5), DiscountFactor(0.08, 5), 1e-15)
}

func TestWACC(t *testing.T) {
	ke := CostOfEquityCAPM(0.04, 1.2, 0.05)
	assert.InDelta(t, 0.10, ke, 1e-12)
	assert.InDelta(t, 0.06*0.75*0.3+0.10*0.7, WACC(0.06, 0.25, 0.3, ke, 0.7), 1e-12)
}
