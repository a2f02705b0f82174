// Package config serves the settings the valuation engine runs with, so a
// caller can see which defaults apply before overriding them.
package config

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	appconfig "fcf_valuation/pkg/config"
	"fcf_valuation/pkg/core/market"
	"fcf_valuation/pkg/core/valuation"
)

// Response is the body of GET /api/config.
type Response struct {
	Assumptions         valuation.Assumptions `json:"assumptions"`
	WACCEnabled         bool                  `json:"wacc_enabled"`
	MarketDefaults      market.Defaults       `json:"market_defaults"`
	Sensitivity         valuation.AxisSteps   `json:"sensitivity"`
	SimilarityThreshold float64               `json:"similarity_threshold"`
	DataRoot            string                `json:"data_root,omitempty"`
	QuotesFile          string                `json:"quotes_file,omitempty"`
	DatabaseEnabled     bool                  `json:"database_enabled"`
}

// Render implements render.Renderer.
func (*Response) Render(http.ResponseWriter, *http.Request) error { return nil }

// Handler holds the resolved settings.
type Handler struct {
	resp Response
}

// NewHandler resolves cfg once. It fails when the assumptions are invalid.
func NewHandler(cfg *appconfig.Config) (*Handler, error) {
	a, err := cfg.ValuationAssumptions()
	if err != nil {
		return nil, err
	}
	return &Handler{resp: Response{
		Assumptions:         a,
		WACCEnabled:         cfg.Assumptions.WACC.Enabled,
		MarketDefaults:      cfg.MarketDefaults(),
		Sensitivity:         cfg.AxisSteps(),
		SimilarityThreshold: cfg.Locator.SimilarityThreshold,
		DataRoot:            cfg.Server.DataRoot,
		QuotesFile:          cfg.Market.QuotesFile,
		DatabaseEnabled:     cfg.Store.DatabaseURL != "",
	}}, nil
}

// Routes returns the config router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.HandleConfig)
	return r
}

// HandleConfig writes the effective settings.
func (h *Handler) HandleConfig(w http.ResponseWriter, r *http.Request) {
	resp := h.resp
	_ = render.Render(w, r, &resp)
}
