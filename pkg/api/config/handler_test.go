package config

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appconfig "fcf_valuation/pkg/config"
	"fcf_valuation/pkg/core/diag"
)

func TestHandleConfig(t *testing.T) {
	cfg := appconfig.Default()
	cfg.Market.DefaultNetDebt = 250
	cfg.Server.DataRoot = "/data"

	h, err := NewHandler(cfg)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var got Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, cfg.Assumptions.DiscountRate, got.Assumptions.DiscountRate)
	assert.Equal(t, 250.0, got.MarketDefaults.NetDebt)
	assert.Equal(t, cfg.Sensitivity.Steps, got.Sensitivity.Steps)
	assert.Equal(t, "/data", got.DataRoot)
	assert.False(t, got.DatabaseEnabled)
	assert.False(t, got.WACCEnabled)
}

func TestNewHandler_InvalidAssumptions(t *testing.T) {
	cfg := appconfig.Default()
	cfg.Assumptions.TerminalGrowthRate = cfg.Assumptions.DiscountRate

	_, err := NewHandler(cfg)
	assert.True(t, diag.IsDomain(err))
}
