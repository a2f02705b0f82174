package calc

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fcf_valuation/pkg/core/metrics"
	"fcf_valuation/pkg/core/series"
	"fcf_valuation/pkg/core/statement"
)

func scenarioSnapshot(t *testing.T) *metrics.Snapshot {
	t.Helper()
	income, err := statement.NewTable("income", statement.Income, statement.History, [][]string{
		{"", "FY2022", "FY2023"},
		{"EBIT", "1,000", "1,100"},
		{"Income Tax Expense", "250", "275"},
		{"Income Before Taxes", "1,000", "1,100"},
		{"Net Income", "750", "825"},
	})
	require.NoError(t, err)
	balance, err := statement.NewTable("balance", statement.Balance, statement.History, [][]string{
		{"", "FY2022", "FY2023"},
		{"Total Current Assets", "500", "550"},
		{"Total Current Liabilities", "300", "310"},
	})
	require.NoError(t, err)
	cash, err := statement.NewTable("cash", statement.CashFlow, statement.History, [][]string{
		{"", "FY2022", "FY2023"},
		{"Depreciation & Amortization", "100", "110"},
		{"Cash from Operations", "900", "960"},
		{"Capital Expenditure", "(200)", "(220)"},
		{"Total Debt Issued", "50", "80"},
		{"Total Debt Repaid", "(30)", "(20)"},
	})
	require.NoError(t, err)

	loc := statement.NewLocator(statement.DefaultSimilarityThreshold, zerolog.Nop())
	return metrics.Build(statement.NewDataset(income, balance, cash), loc)
}

func TestComputeFCF_FCFFScenario(t *testing.T) {
	snap := scenarioSnapshot(t)

	rates, err := snap.Series(metrics.TaxRate).Floats()
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0.25, 0.25}, rates, 1e-12)

	wcc, err := snap.Series(metrics.WorkingCapitalChange).Floats()
	require.NoError(t, err)
	assert.Equal(t, []float64{40}, wcc)

	res := ComputeFCF(snap)
	fcff, ok := res.Get(FCFF)
	require.True(t, ok)
	assert.Equal(t, []int{2023}, fcff.Years)
	v, _ := fcff.At(0)
	assert.InDelta(t, 675.0, v, 1e-9) // 1100·0.75 + 110 − 40 − 220

	fcfe, ok := res.Get(FCFE)
	require.True(t, ok)
	v, _ = fcfe.At(0)
	assert.InDelta(t, 825.0+110-40-220+60, v, 1e-9)

	lfcf, ok := res.Get(LFCF)
	require.True(t, ok)
	got, _ := lfcf.Floats()
	assert.Equal(t, []float64{700, 740}, got)

	assert.Empty(t, res.Uncomputable)
}

func TestComputeFCF_MissingInputs(t *testing.T) {
	cash, err := statement.NewTable("cash", statement.CashFlow, statement.History, [][]string{
		{"", "2022", "2023"},
		{"Cash from Operations", "900", "960"},
		{"Capital Expenditure", "-200", "-220"},
	})
	require.NoError(t, err)
	snap := metrics.Build(statement.NewDataset(cash), statement.NewLocator(0, zerolog.Nop()))

	res := ComputeFCF(snap)
	_, ok := res.Get(LFCF)
	assert.True(t, ok)

	_, ok = res.Get(FCFF)
	assert.False(t, ok)
	assert.Contains(t, res.Uncomputable[FCFF], string(metrics.EBIT))
	assert.Contains(t, res.Uncomputable[FCFF], string(metrics.WorkingCapitalChange))
	assert.NotContains(t, res.Uncomputable[FCFF], string(metrics.CapitalExpenditure))
	assert.Contains(t, res.Uncomputable[FCFE], string(metrics.NetBorrowing))
}

func TestComputeLFCF_Exact(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for trial := 0; trial < 50; trial++ {
		n := 1 + r.Intn(10)
		ocf := make([]float64, n)
		capex := make([]float64, n)
		for i := range ocf {
			ocf[i] = r.NormFloat64() * 1e4
			capex[i] = r.NormFloat64() * 1e3
		}
		out, err := ComputeLFCF(series.FromFloats(2000, ocf...), series.FromFloats(2000, capex...))
		require.NoError(t, err)
		for i := range ocf {
			v, _ := out.At(i)
			want := ocf[i] - capex[i]
			if capex[i] < 0 {
				want = ocf[i] + capex[i]
			}
			assert.Equal(t, want, v)
		}
	}
}

func TestFormulas_RejectMisalignedSeries(t *testing.T) {
	base := series.FromFloats(2020, 1, 2, 3)
	shorter := series.FromFloats(2021, 2, 3)
	shifted := series.FromFloats(2021, 1, 2, 3)
	gappy := series.Series{Years: []int{2020, 2021, 2022}, Values: []*float64{series.Float(1), nil, series.Float(3)}}

	formulas := map[string]func(bad series.Series, pos int) error{
		"fcff": func(bad series.Series, pos int) error {
			in := []series.Series{base, base, base, base, base}
			in[pos%5] = bad
			_, err := ComputeFCFF(in[0], in[1], in[2], in[3], in[4])
			return err
		},
		"fcfe": func(bad series.Series, pos int) error {
			in := []series.Series{base, base, base, base, base}
			in[pos%5] = bad
			_, err := ComputeFCFE(in[0], in[1], in[2], in[3], in[4])
			return err
		},
		"lfcf": func(bad series.Series, pos int) error {
			in := []series.Series{base, base}
			in[pos%2] = bad
			_, err := ComputeLFCF(in[0], in[1])
			return err
		},
	}

	for name, run := range formulas {
		for _, bad := range []series.Series{shorter, shifted, gappy} {
			for pos := 0; pos < 5; pos++ {
				err := run(bad, pos)
				var ae *series.AlignmentError
				assert.True(t, errors.As(err, &ae), "%s: misaligned input at %d accepted", name, pos)
			}
		}
	}
}

func TestParseFCFType(t *testing.T) {
	tests := []struct {
		in   string
		want FCFType
		err  bool
	}{
		{"", FCFF, false},
		{"FCFE", FCFE, false},
		{" lfcf ", LFCF, false},
		{"ebitda", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFCFType(tt.in)
		if tt.err {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}
