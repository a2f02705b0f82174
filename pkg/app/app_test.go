package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fcf_valuation/pkg/config"
	"fcf_valuation/pkg/core/analysis"
)

func TestNew_FileOnly(t *testing.T) {
	dir := t.TempDir()
	quotes := filepath.Join(dir, "quotes.yaml")
	require.NoError(t, os.WriteFile(quotes, []byte("quotes:\n  ACME:\n    current_price: 10\n    shares_outstanding: 5\n"), 0o644))

	cfg := config.Default()
	cfg.Store.CacheDir = filepath.Join(dir, "cache")
	cfg.Market.QuotesFile = quotes

	s, err := New(context.Background(), cfg)
	require.NoError(t, err)
	defer s.Close()

	assert.Nil(t, s.Reports)
	require.NotNil(t, s.Provider)
	q, err := s.Provider.Quote(context.Background(), "acme")
	require.NoError(t, err)
	assert.Equal(t, 10.0, q.CurrentPrice)

	e := s.Factory.ForDir(t.TempDir())
	assert.NotNil(t, e.Calculator())
}

func TestNew_InvalidAssumptions(t *testing.T) {
	cfg := config.Default()
	cfg.Assumptions.TerminalGrowthRate = cfg.Assumptions.DiscountRate
	_, err := New(context.Background(), cfg)
	assert.Error(t, err)
}

func TestNew_EmptyDirectoryFailsAtRun(t *testing.T) {
	cfg := config.Default()
	cfg.Store.CacheDir = t.TempDir()
	s, err := New(context.Background(), cfg)
	require.NoError(t, err)

	_, err = s.Factory.ForDir(filepath.Join(t.TempDir(), "missing")).Run(context.Background(), analysis.Request{})
	assert.Error(t, err)
}
