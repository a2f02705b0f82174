// Package valuation exposes the valuation engine over HTTP.
package valuation

import (
	"context"
	"errors"
	"io/fs"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"fcf_valuation/pkg/core/analysis"
	"fcf_valuation/pkg/core/calc"
	"fcf_valuation/pkg/core/diag"
	"fcf_valuation/pkg/core/market"
	coreValuation "fcf_valuation/pkg/core/valuation"
)

// ReportSaver persists finished reports.
type ReportSaver interface {
	Save(ctx context.Context, report *analysis.Report) (uuid.UUID, error)
}

// Handler serves the valuation endpoints.
type Handler struct {
	registry *Registry
	reports  ReportSaver
	metrics  *Metrics
	gatherer prometheus.Gatherer
	logger   zerolog.Logger
	mounts   map[string]http.Handler
}

// Option configures a Handler.
type Option func(*Handler)

// WithReportSaver stores every successful report.
func WithReportSaver(s ReportSaver) Option {
	return func(h *Handler) { h.reports = s }
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(h *Handler) { h.logger = l }
}

// WithRegistry registers metrics with reg and serves them from gatherer.
func WithRegistry(reg prometheus.Registerer, gatherer prometheus.Gatherer) Option {
	return func(h *Handler) {
		h.metrics = NewMetrics(reg, h.registry.Len)
		h.gatherer = gatherer
	}
}

// WithMount serves sub under pattern, behind the same middleware.
func WithMount(pattern string, sub http.Handler) Option {
	return func(h *Handler) {
		if h.mounts == nil {
			h.mounts = make(map[string]http.Handler)
		}
		h.mounts[pattern] = sub
	}
}

// NewHandler creates a handler. Without WithRegistry it uses a private
// Prometheus registry.
func NewHandler(registry *Registry, opts ...Option) *Handler {
	h := &Handler{registry: registry, logger: log.Logger}
	for _, opt := range opts {
		opt(h)
	}
	if h.metrics == nil {
		reg := prometheus.NewRegistry()
		h.metrics = NewMetrics(reg, registry.Len)
		h.gatherer = reg
	}
	h.logger = h.logger.With().Str("component", "api").Logger()
	return h
}

// Routes returns the router with every endpoint mounted.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(h.metrics.Instrument)
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Get("/healthz", h.HandleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{}))
	r.Route("/api/valuation", func(r chi.Router) {
		r.Post("/run", h.HandleRun)
		r.Post("/reload", h.HandleReload)
	})
	for pattern, sub := range h.mounts {
		r.Mount(pattern, sub)
	}
	return r
}

// RunRequest is the body of POST /api/valuation/run.
type RunRequest struct {
	Dir               string                     `json:"dir" validate:"required"`
	Ticker            string                     `json:"ticker" validate:"omitempty,max=16"`
	FCFType           string                     `json:"fcf_type" validate:"omitempty,max=8"`
	Assumptions       *coreValuation.Assumptions `json:"assumptions,omitempty" validate:"-"`
	Axes              *coreValuation.Axes        `json:"axes,omitempty" validate:"-"`
	CurrentPrice      *float64                   `json:"current_price,omitempty"`
	SharesOutstanding *float64                   `json:"shares_outstanding,omitempty"`
	NetDebt           *float64                   `json:"net_debt,omitempty"`
}

// Bind validates the decoded body.
func (req *RunRequest) Bind(r *http.Request) error {
	req.Dir = strings.TrimSpace(req.Dir)
	return coreValuation.Validator().Struct(req)
}

func (req *RunRequest) analysisRequest() analysis.Request {
	return analysis.Request{
		Ticker:      req.Ticker,
		FCFType:     calc.FCFType(req.FCFType),
		Assumptions: req.Assumptions,
		Axes:        req.Axes,
		Overrides: market.Overrides{
			CurrentPrice:      req.CurrentPrice,
			SharesOutstanding: req.SharesOutstanding,
			NetDebt:           req.NetDebt,
		},
	}
}

// ReloadRequest is the body of POST /api/valuation/reload.
type ReloadRequest struct {
	Dir string `json:"dir" validate:"required"`
}

// Bind validates the decoded body.
func (req *ReloadRequest) Bind(r *http.Request) error {
	req.Dir = strings.TrimSpace(req.Dir)
	return coreValuation.Validator().Struct(req)
}

// RunResponse wraps a report with its stored id, when saved.
type RunResponse struct {
	ReportID string `json:"report_id,omitempty"`
	*analysis.Report
}

// Render implements render.Renderer.
func (rr *RunResponse) Render(w http.ResponseWriter, r *http.Request) error {
	return nil
}

// HandleRun values one company.
func (h *Handler) HandleRun(w http.ResponseWriter, r *http.Request) {
	var req RunRequest
	if err := render.Bind(r, &req); err != nil {
		render.Render(w, r, ErrInvalidRequest(err))
		return
	}

	engine, err := h.registry.Engine(req.Dir)
	if err != nil {
		render.Render(w, r, h.errorResponse(r, err))
		return
	}

	report, err := engine.Run(r.Context(), req.analysisRequest())
	if err != nil {
		h.metrics.ValuationsTotal.WithLabelValues(fcfLabel(req.FCFType), "error").Inc()
		render.Render(w, r, h.errorResponse(r, err))
		return
	}
	h.metrics.ValuationsTotal.WithLabelValues(string(report.FCFType), "ok").Inc()

	resp := &RunResponse{Report: report}
	if h.reports != nil {
		id, err := h.reports.Save(r.Context(), report)
		if err != nil {
			h.logger.Warn().Err(err).Str("ticker", report.Ticker).Msg("failed to save report")
		} else {
			resp.ReportID = id.String()
		}
	}
	render.Render(w, r, resp)
}

// HandleReload drops the cached snapshot of a company directory.
func (h *Handler) HandleReload(w http.ResponseWriter, r *http.Request) {
	var req ReloadRequest
	if err := render.Bind(r, &req); err != nil {
		render.Render(w, r, ErrInvalidRequest(err))
		return
	}
	reloaded, err := h.registry.Reload(req.Dir)
	if err != nil {
		render.Render(w, r, h.errorResponse(r, err))
		return
	}
	h.logger.Info().Str("dir", req.Dir).Bool("reloaded", reloaded).Msg("snapshot reload requested")
	render.JSON(w, r, map[string]interface{}{"dir": req.Dir, "reloaded": reloaded})
}

// HandleHealth reports liveness.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]interface{}{"status": "ok", "engines": h.registry.Len()})
}

func fcfLabel(t string) string {
	parsed, err := calc.ParseFCFType(t)
	if err != nil {
		return "invalid"
	}
	return string(parsed)
}

// ErrResponse is the JSON error body.
type ErrResponse struct {
	HTTPStatusCode int `json:"-"`

	Status    string  `json:"status"`
	Error     string  `json:"error"`
	Field     string  `json:"field,omitempty"`
	Value     float64 `json:"value,omitempty"`
	RequestID string  `json:"request_id,omitempty"`
}

// Render implements render.Renderer.
func (e *ErrResponse) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.HTTPStatusCode)
	return nil
}

// ErrInvalidRequest is a 400 for malformed or invalid bodies.
func ErrInvalidRequest(err error) render.Renderer {
	msg := err.Error()
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		msg = "invalid field " + verrs[0].Field() + ": " + verrs[0].Tag()
	}
	return &ErrResponse{
		HTTPStatusCode: http.StatusBadRequest,
		Status:         http.StatusText(http.StatusBadRequest),
		Error:          msg,
	}
}

// errorResponse maps core errors to status codes: domain errors are 422,
// missing datasets 404, directories outside the data root 400.
func (h *Handler) errorResponse(r *http.Request, err error) *ErrResponse {
	resp := &ErrResponse{Error: err.Error(), RequestID: middleware.GetReqID(r.Context())}

	var de *diag.DomainError
	switch {
	case errors.As(err, &de):
		resp.HTTPStatusCode = http.StatusUnprocessableEntity
		resp.Field = de.Field
		resp.Value = de.Value
	case errors.Is(err, ErrDatasetNotFound), errors.Is(err, fs.ErrNotExist):
		resp.HTTPStatusCode = http.StatusNotFound
	case errors.Is(err, ErrOutsideDataRoot):
		resp.HTTPStatusCode = http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		resp.HTTPStatusCode = http.StatusGatewayTimeout
	default:
		resp.HTTPStatusCode = http.StatusInternalServerError
		h.logger.Error().Err(err).Str("request_id", resp.RequestID).Str("path", r.URL.Path).Msg("request failed")
	}
	resp.Status = http.StatusText(resp.HTTPStatusCode)
	return resp
}
