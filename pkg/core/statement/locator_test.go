package statement

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fcf_valuation/pkg/core/diag"
)

func incomeTable(t *testing.T, rows ...[]string) *Table {
	t.Helper()
	grid := append([][]string{{"", "FY2022", "FY2023"}}, rows...)
	tbl, err := NewTable("income", Income, History, grid)
	require.NoError(t, err)
	return tbl
}

func newTestLocator(threshold float64) *Locator {
	return NewLocator(threshold, zerolog.Nop())
}

func TestLocator_ExactBeatsSubstring(t *testing.T) {
	tbl := incomeTable(t,
		[]string{"EBITDA", "200", "220"},
		[]string{"Operating Income (EBIT)", "150", "160"},
		[]string{"EBIT", "100", "120"},
	)
	m, _, ok := newTestLocator(0).Find(tbl, "ebit")
	require.True(t, ok)
	assert.Equal(t, MatchExact, m.Method)
	assert.Equal(t, "EBIT", m.Label)
	assert.Equal(t, 1.0, m.Score)
}

func TestLocator_SubstringIsWholeWord(t *testing.T) {
	tbl := incomeTable(t,
		[]string{"EBITDA", "200", "220"},
		[]string{"Operating Income (EBIT)", "150", "160"},
	)
	s, err := newTestLocator(0).Locate(tbl, "EBIT")
	require.NoError(t, err)
	v, _ := s.At(1)
	assert.Equal(t, 160.0, v, "EBITDA must never satisfy EBIT")
}

func TestLocator_SubstringPrefersRowsWithData(t *testing.T) {
	tbl := incomeTable(t,
		[]string{"Net Income", "", ""},
		[]string{"Net Income to Common Shareholders", "75", "90"},
		[]string{"Net Income Attributable to Parent", "70", "85"},
	)
	m, _, ok := newTestLocator(0).Find(tbl, "net income attributable")
	require.True(t, ok)
	assert.Equal(t, "Net Income Attributable to Parent", m.Label)

	// exact label wins even without data
	m, _, ok = newTestLocator(0).Find(tbl, "Net Income")
	require.True(t, ok)
	assert.Equal(t, MatchExact, m.Method)

	// among substring matches with data, a label led by the target wins
	tbl = incomeTable(t,
		[]string{"Total Net Income to Common Shareholders", "75", "90"},
		[]string{"Net Income Reported", "70", "85"},
		[]string{"Memo: Net Income", "", ""},
	)
	m, _, ok = newTestLocator(0).Find(tbl, "net income")
	require.True(t, ok)
	assert.Equal(t, MatchSubstring, m.Method)
	assert.Equal(t, "Net Income Reported", m.Label)
}

func TestLocator_SubstringSkipsQualifiedLabels(t *testing.T) {
	tbl := incomeTable(t,
		[]string{"Operating Income (Loss)", "150", "160"},
		[]string{"Non-Operating Income", "5", "7"},
	)
	s, err := newTestLocator(0).Locate(tbl, "EBIT", "Operating Income", "Operating Profit")
	require.NoError(t, err)
	v, _ := s.At(1)
	assert.Equal(t, 160.0, v)

	// a leading match beats a shorter label that embeds the target
	tbl = incomeTable(t,
		[]string{"Adj. Operating Income", "140", "150"},
		[]string{"Operating Income (Loss)", "150", "160"},
	)
	m, _, ok := newTestLocator(0).Find(tbl, "Operating Income")
	require.True(t, ok)
	assert.Equal(t, MatchSubstring, m.Method)
	assert.Equal(t, "Operating Income (Loss)", m.Label)

	for _, label := range []string{"Non-Operating Income", "Total Other Operating Income"} {
		tbl = incomeTable(t, []string{label, "5", "7"})
		m, _, ok = newTestLocator(0.9).Find(tbl, "Operating Income")
		assert.False(t, ok, "%q is not operating income", label)
		assert.NotEqual(t, MatchSubstring, m.Method)
	}
}

func TestLocator_Similarity(t *testing.T) {
	tbl := incomeTable(t, []string{"Total Revenues", "1,000", "1,100"})

	m, _, ok := newTestLocator(0).Find(tbl, "Total Revenue")
	require.True(t, ok)
	assert.Equal(t, MatchSimilarity, m.Method)
	assert.InDelta(t, 1-1.0/14, m.Score, 1e-9)

	_, best, ok := newTestLocator(0.95).Find(tbl, "Total Revenue")
	assert.False(t, ok)
	assert.Equal(t, "Total Revenues", best.Label)
}

func TestLocator_AliasesInOrder(t *testing.T) {
	tbl := incomeTable(t,
		[]string{"Operating Profit", "90", "95"},
		[]string{"EBIT", "100", "120"},
	)
	m, _, ok := newTestLocator(0).Find(tbl, "Operating Income", "EBIT", "Operating Profit")
	require.True(t, ok)
	assert.Equal(t, "EBIT", m.Label, "first name with an exact match wins")
}

func TestLocator_Miss(t *testing.T) {
	tbl := incomeTable(t, []string{"Revenue", "1", "2"})

	s, err := newTestLocator(0).Locate(tbl, "Revenue Growth")
	assert.True(t, s.IsEmpty())
	var mm *diag.MissingMetricError
	require.True(t, errors.As(err, &mm))
	assert.Equal(t, "Revenue Growth", mm.Metric)
	assert.Equal(t, "income", mm.Statement)
	assert.Equal(t, "history", mm.Source)
	assert.Equal(t, "Revenue", mm.BestLabel)

	_, err = newTestLocator(0).Locate(nil, "Revenue")
	require.True(t, errors.As(err, &mm))
	assert.Equal(t, "(none)", mm.Statement)
}

func TestLocator_ExtractsAbsentValues(t *testing.T) {
	tbl := incomeTable(t, []string{"Net Income", "-", "(12)"})
	s, err := newTestLocator(0).Locate(tbl, "Net Income")
	require.NoError(t, err)
	assert.Equal(t, []int{2022, 2023}, s.Years)
	_, ok := s.At(0)
	assert.False(t, ok)
	v, _ := s.At(1)
	assert.Equal(t, -12.0, v)
}

func TestLocator_ThresholdDefault(t *testing.T) {
	assert.Equal(t, DefaultSimilarityThreshold, newTestLocator(0).Threshold())
	assert.Equal(t, DefaultSimilarityThreshold, newTestLocator(1.5).Threshold())
	assert.Equal(t, 0.9, newTestLocator(0.9).Threshold())
}

func TestSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, Similarity("EBIT", " ebit: "))
	assert.Equal(t, 0.0, Similarity("", ""))
	assert.InDelta(t, 0.75, Similarity("abcd", "abce"), 1e-12)
}
