package metrics

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fcf_valuation/pkg/core/diag"
	"fcf_valuation/pkg/core/series"
	"fcf_valuation/pkg/core/statement"
)

func mustTable(t *testing.T, kind statement.Kind, source statement.Source, grid [][]string) *statement.Table {
	t.Helper()
	tbl, err := statement.NewTable(string(source)+"_"+string(kind), kind, source, grid)
	require.NoError(t, err)
	return tbl
}

func fixtureDataset(t *testing.T) *statement.Dataset {
	t.Helper()
	income := mustTable(t, statement.Income, statement.History, [][]string{
		{"Income Statement"},
		{"", "FY2021", "FY2022", "FY2023"},
		{"Total Revenue", "1,000", "1,100", "1,250"},
		{"EBITDA", "150", "170", "190"},
		{"EBIT", "100", "120", "140"},
		{"Income Before Taxes", "100", "120", "140"},
		{"Income Tax Expense", "(25)", "(30)", "(35)"},
		{"Net Income", "75", "90", "105"},
	})
	balance := mustTable(t, statement.Balance, statement.History, [][]string{
		{"", "FY2021", "FY2022", "FY2023"},
		{"Total Current Assets", "500", "540", "600"},
		{"Total Current Liabilities", "300", "300", "320"},
	})
	cash := mustTable(t, statement.CashFlow, statement.History, [][]string{
		{"", "FY2021", "FY2022", "FY2023"},
		{"Depreciation & Amortization", "50", "55", "60"},
		{"Cash from Operations", "130", "140", "160"},
		{"Capital Expenditure", "(60)", "(65)", "(70)"},
		{"Total Debt Issued", "20", "0", "10"},
		{"Total Debt Repaid", "(10)", "(15)", "(5)"},
	})
	trailing := mustTable(t, statement.Income, statement.Trailing, [][]string{
		{"", "LTM Sep-2024"},
		{"Total Revenue", "1,300"},
		{"Net Income", "-"},
	})
	ds := statement.NewDataset(income, balance, cash, trailing)
	ds.Hash = "fixture"
	return ds
}

func testLocator() *statement.Locator {
	return statement.NewLocator(statement.DefaultSimilarityThreshold, zerolog.Nop())
}

func TestComputeTaxRate_Bounds(t *testing.T) {
	tax := series.FromFloats(2019, 10, -50, 80, 5, 0)
	ebt := series.FromFloats(2019, 100, 100, 100, 0, -40)

	rate := ComputeTaxRate(tax, ebt)
	require.Equal(t, 5, rate.Len())

	want := []float64{0.10, 0.35, 0.35, DefaultTaxRate, 0}
	for i, w := range want {
		v, ok := rate.At(i)
		require.True(t, ok)
		assert.InDelta(t, w, v, 1e-12, "year %d", rate.Years[i])
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, MaxTaxRate)
	}
}

func TestComputeTaxRate_AbsentInputsStayAbsent(t *testing.T) {
	tax := series.Series{Years: []int{2021, 2022}, Values: []*float64{series.Float(20), nil}}
	ebt := series.FromFloats(2021, 100, 100)

	rate := ComputeTaxRate(tax, ebt)
	v, ok := rate.At(0)
	require.True(t, ok)
	assert.InDelta(t, 0.2, v, 1e-12)
	_, ok = rate.At(1)
	assert.False(t, ok)

	assert.True(t, ComputeTaxRate(series.Series{}, ebt).IsEmpty())
}

func TestComputeWorkingCapitalChange_Length(t *testing.T) {
	for n := 2; n <= 8; n++ {
		ca := make([]float64, n)
		cl := make([]float64, n)
		for i := range ca {
			ca[i] = float64(100 + 10*i)
			cl[i] = float64(50 + 3*i)
		}
		wcc, err := ComputeWorkingCapitalChange(series.FromFloats(2010, ca...), series.FromFloats(2010, cl...))
		require.NoError(t, err)
		assert.Equal(t, n-1, wcc.Len())
		assert.Equal(t, 2011, wcc.Years[0], "each change carries the year it ends in")
		for i := 0; i < wcc.Len(); i++ {
			v, ok := wcc.At(i)
			require.True(t, ok)
			assert.InDelta(t, 7.0, v, 1e-12)
		}
	}
}

func TestComputeWorkingCapitalChange_InsufficientHistory(t *testing.T) {
	wcc, err := ComputeWorkingCapitalChange(series.FromFloats(2023, 500), series.FromFloats(2023, 300))
	assert.True(t, wcc.IsEmpty())

	var ih *diag.InsufficientHistoryError
	require.True(t, errors.As(err, &ih))
	assert.Equal(t, 1, ih.Have)
	assert.Equal(t, 2, ih.Need)
}

func TestComputeNetBorrowing(t *testing.T) {
	nb := ComputeNetBorrowing(series.FromFloats(2022, 20, 0), series.FromFloats(2022, -10, 15))
	v0, _ := nb.At(0)
	v1, _ := nb.At(1)
	assert.InDelta(t, 10, v0, 1e-12)
	assert.InDelta(t, -15, v1, 1e-12)
}

func TestBuild_ExtractsAndFuses(t *testing.T) {
	snap := Build(fixtureDataset(t), testLocator())

	assert.Equal(t, "fixture", snap.Key)

	ebit, err := snap.Series(EBIT).Floats()
	require.NoError(t, err)
	assert.Equal(t, []float64{100, 120, 140}, ebit, "EBIT must not resolve to the EBITDA row")

	rev := snap.Series(Revenue)
	assert.Equal(t, []int{2021, 2022, 2023}, rev.Years)
	last, _ := rev.At(2)
	assert.Equal(t, 1300.0, last, "trailing value replaces the final history point")
	assert.Contains(t, snap.Trailing, Revenue)

	ni, _ := snap.Series(NetIncome).At(2)
	assert.Equal(t, 105.0, ni, "absent trailing value leaves history untouched")
	assert.NotContains(t, snap.Trailing, NetIncome)

	taxRate, err := snap.Series(TaxRate).Floats()
	require.NoError(t, err)
	for _, r := range taxRate {
		assert.InDelta(t, 0.25, r, 1e-12)
	}

	wcc := snap.Series(WorkingCapitalChange)
	assert.Equal(t, []int{2022, 2023}, wcc.Years)
	w, _ := wcc.Floats()
	assert.Equal(t, []float64{40, 40}, w)

	nb, _ := snap.Series(NetBorrowing).Floats()
	assert.Equal(t, []float64{10, -15, 5}, nb)
}

func TestBuild_WarnsOnTrailingMiss(t *testing.T) {
	snap := Build(fixtureDataset(t), testLocator())

	var codes = map[string][]string{}
	for _, w := range snap.Warnings {
		codes[w.Code] = append(codes[w.Code], w.Metric)
	}
	// EBIT has no row in the trailing income statement.
	assert.Contains(t, codes[diag.CodeTrailingUnused], string(EBIT))
	assert.Empty(t, codes[diag.CodeMissingMetric])
}

func TestBuild_MissingStatementIsRecoverable(t *testing.T) {
	income := mustTable(t, statement.Income, statement.History, [][]string{
		{"", "2022", "2023"},
		{"Revenue", "10", "12"},
	})
	snap := Build(statement.NewDataset(income), testLocator())

	assert.True(t, snap.Series(CurrentAssets).IsEmpty())
	assert.True(t, snap.Series(WorkingCapitalChange).IsEmpty())

	missing := map[string]bool{}
	for _, w := range snap.Warnings {
		if w.Code == diag.CodeMissingMetric {
			missing[w.Metric] = true
		}
	}
	assert.True(t, missing[string(CurrentAssets)])
	assert.True(t, missing[string(OperatingCashFlow)])
	assert.True(t, missing[string(EBIT)])
	assert.False(t, missing[string(Revenue)])
}

func TestBuild_Idempotent(t *testing.T) {
	ds := fixtureDataset(t)
	loc := testLocator()
	assert.Equal(t, Build(ds, loc), Build(ds, loc))
}

func TestSnapshot_SeriesReturnsCopy(t *testing.T) {
	snap := Build(fixtureDataset(t), testLocator())
	s := snap.Series(EBIT)
	*s.Values[0] = math.NaN()

	v, _ := snap.Series(EBIT).At(0)
	assert.Equal(t, 100.0, v)
}

type memStore struct {
	mu    sync.Mutex
	snaps map[string]*Snapshot
	saves int
}

func (m *memStore) Load(_ context.Context, key string) (*Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snaps[key], nil
}

func (m *memStore) Save(_ context.Context, key string, snap *Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.snaps == nil {
		m.snaps = map[string]*Snapshot{}
	}
	m.snaps[key] = snap
	m.saves++
	return nil
}

func TestCalculator_BuildsOnce(t *testing.T) {
	calc := NewCalculator(DatasetSource{Dataset: fixtureDataset(t)}, testLocator(), WithLogger(zerolog.Nop()))
	ctx := context.Background()

	var wg sync.WaitGroup
	snaps := make([]*Snapshot, 8)
	for i := range snaps {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s, err := calc.Snapshot(ctx)
			assert.NoError(t, err)
			snaps[i] = s
		}(i)
	}
	wg.Wait()

	for _, s := range snaps {
		assert.Same(t, snaps[0], s)
	}
	assert.Equal(t, 1, calc.Builds())
}

func TestCalculator_ReloadRebuilds(t *testing.T) {
	calc := NewCalculator(DatasetSource{Dataset: fixtureDataset(t)}, testLocator(), WithLogger(zerolog.Nop()))
	ctx := context.Background()

	first, err := calc.Snapshot(ctx)
	require.NoError(t, err)

	calc.Reload()
	second, err := calc.Snapshot(ctx)
	require.NoError(t, err)

	assert.NotSame(t, first, second)
	assert.Equal(t, first, second)
	assert.Equal(t, 2, calc.Builds())
}

type failingSource struct{ calls int }

func (f *failingSource) Key() (string, error) { return "k", nil }

func (f *failingSource) Load() (*statement.Dataset, error) {
	f.calls++
	return nil, errors.New("disk unplugged")
}

func TestCalculator_FailedBuildIsRetried(t *testing.T) {
	src := &failingSource{}
	calc := NewCalculator(src, testLocator(), WithLogger(zerolog.Nop()))

	_, err := calc.Snapshot(context.Background())
	require.Error(t, err)
	_, err = calc.Snapshot(context.Background())
	require.Error(t, err)
	assert.Equal(t, 2, src.calls)
	assert.Equal(t, 0, calc.Builds())
}

func TestCalculator_UsesStore(t *testing.T) {
	store := &memStore{}
	ds := fixtureDataset(t)

	first := NewCalculator(DatasetSource{Dataset: ds}, testLocator(), WithStore(store), WithLogger(zerolog.Nop()))
	snap, err := first.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, store.saves)

	second := NewCalculator(DatasetSource{Dataset: ds}, testLocator(), WithStore(store), WithLogger(zerolog.Nop()))
	cached, err := second.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Same(t, snap, cached)
	assert.Equal(t, 1, store.saves, "a store hit is not saved again")
}

func TestCalculator_StoreKeyIncludesThreshold(t *testing.T) {
	store := &memStore{}
	ds := fixtureDataset(t)

	first := NewCalculator(DatasetSource{Dataset: ds}, testLocator(), WithStore(store), WithLogger(zerolog.Nop()))
	snap, err := first.Snapshot(context.Background())
	require.NoError(t, err)

	strict := NewCalculator(DatasetSource{Dataset: ds}, statement.NewLocator(0.9, zerolog.Nop()), WithStore(store), WithLogger(zerolog.Nop()))
	rebuilt, err := strict.Snapshot(context.Background())
	require.NoError(t, err)
	assert.NotSame(t, snap, rebuilt, "a different threshold must not reuse the stored snapshot")
	assert.Equal(t, 2, store.saves)
	assert.Equal(t, 1, strict.Builds())
	assert.Equal(t, snap.Key, rebuilt.Key, "the dataset key itself is unchanged")
	assert.NotEqual(t, first.storeKey(ds.Hash), strict.storeKey(ds.Hash))
}

func TestBuild_NilLocatorUsesDefault(t *testing.T) {
	ds := fixtureDataset(t)
	var snap *Snapshot
	require.NotPanics(t, func() { snap = Build(ds, nil) })
	assert.Equal(t, Build(ds, testLocator()), snap)
}
