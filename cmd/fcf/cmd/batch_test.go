package cmd

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fcf_valuation/pkg/core/analysis"
	"fcf_valuation/pkg/core/market"
)

func writeCompany(t *testing.T, root, name string) string {
	t.Helper()
	dir := filepath.Join(root, name)
	files := map[string]string{
		"income.csv": `,FY2021,FY2022,FY2023
Total Revenue,"1,000","1,100","1,250"
EBIT,100,120,140
Income Before Taxes,100,120,140
Income Tax Expense,(25),(30),(35)
Net Income,75,90,105
`,
		"balance.csv": `,FY2021,FY2022,FY2023
Total Current Assets,500,540,600
Total Current Liabilities,300,300,320
`,
		"cash_flow.csv": `,FY2021,FY2022,FY2023
Depreciation & Amortization,50,55,60
Cash from Operations,130,140,160
Capital Expenditure,(60),(65),(70)
`,
	}
	require.NoError(t, os.MkdirAll(dir, 0o755))
	for rel, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, rel), []byte(body), 0o644))
	}
	return dir
}

func testFactory() analysis.Factory {
	nop := zerolog.Nop()
	return analysis.Factory{
		Logger: &nop,
		Options: []analysis.Option{analysis.WithProvider(market.StaticProvider{
			"ACME":   {CurrentPrice: 20, SharesOutstanding: 50},
			"GLOBEX": {CurrentPrice: 10, SharesOutstanding: 100},
		})},
	}
}

func TestValuateAll(t *testing.T) {
	root := t.TempDir()
	dirs := []string{
		writeCompany(t, root, "acme"),
		filepath.Join(root, "missing"),
		writeCompany(t, root, "globex"),
	}
	requests := make([]analysis.Request, len(dirs))
	for i, d := range dirs {
		requests[i] = analysis.Request{Ticker: tickerFromDir(d)}
	}

	results, err := valuateAll(context.Background(), testFactory().ForDir, dirs, requests, 2)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, "ACME", results[0].Ticker)
	require.NotNil(t, results[0].Report)
	require.NotNil(t, results[0].Report.DCF)
	assert.Equal(t, 50.0, results[0].Report.DCF.Shares)

	assert.Nil(t, results[1].Report)
	assert.NotEmpty(t, results[1].Error)

	require.NotNil(t, results[2].Report)
	assert.Equal(t, 100.0, results[2].Report.DCF.Shares)
	assert.Equal(t, results[0].Report.DatasetKey, results[2].Report.DatasetKey, "identical statements hash alike")
}

func TestValuateAll_Cancelled(t *testing.T) {
	root := t.TempDir()
	dirs := []string{writeCompany(t, root, "acme")}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := valuateAll(ctx, testFactory().ForDir, dirs, []analysis.Request{{Ticker: "ACME"}}, 1)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTickerFromDir(t *testing.T) {
	assert.Equal(t, "ACME", tickerFromDir("./data/acme/"))
	assert.Equal(t, "BRK.B", tickerFromDir("brk.b"))
}
