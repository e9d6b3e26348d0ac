package httpserver

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/mselser95/swap-arb/internal/engine"
	"github.com/mselser95/swap-arb/pkg/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Controller is the engine control surface exposed over HTTP.
type Controller interface {
	Snapshot() engine.Snapshot
	Subscribe(buffer int) (<-chan engine.Snapshot, func())
	Start(ctx context.Context) error
	Pause()
	SetTradeAmount(amount decimal.Decimal) error
	SelectStrategyFilter(filter types.StrategyFilter) error
	ConnectWallet(address string) error
	DisconnectWallet()
	EnableRoute(label string) error
	Routes() []types.RouteTemplate
}

// APIHandler serves the /api control endpoints.
type APIHandler struct {
	baseCtx    context.Context
	controller Controller
	logger     *zap.Logger
}

// NewAPIHandler creates a new API handler. baseCtx bounds the engine loop started via /control/start.
func NewAPIHandler(baseCtx context.Context, c Controller, logger *zap.Logger) *APIHandler {
	return &APIHandler{
		baseCtx:    baseCtx,
		controller: c,
		logger:     logger,
	}
}

// Mount registers the API routes on r.
func (h *APIHandler) Mount(r chi.Router) {
	r.Get("/snapshot", h.HandleSnapshot)
	r.Get("/stats", h.HandleStats)
	r.Get("/opportunities", h.HandleOpportunities)
	r.Get("/routes", h.HandleRoutes)
	r.Post("/routes/{label}/enable", h.HandleEnableRoute)

	r.Post("/control/start", h.HandleStart)
	r.Post("/control/pause", h.HandlePause)
	r.Put("/control/amount", h.HandleSetAmount)
	r.Put("/control/filter", h.HandleSetFilter)

	r.Post("/wallet/connect", h.HandleConnectWallet)
	r.Post("/wallet/disconnect", h.HandleDisconnectWallet)
}

// ErrorResponse represents an HTTP error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// RouteView is a configured route and whether it is currently in rotation.
type RouteView struct {
	Label          string             `json:"label"`
	Kind           types.StrategyKind `json:"kind"`
	Hops           []string           `json:"hops"`
	Venues         []string           `json:"venues,omitempty"`
	Disabled       bool               `json:"disabled"`
	DisabledReason string             `json:"disabled_reason,omitempty"`
}

type amountRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

type filterRequest struct {
	Filter string `json:"filter"`
}

type walletRequest struct {
	Address string `json:"address"`
}

// HandleSnapshot handles GET /api/snapshot.
func (h *APIHandler) HandleSnapshot(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, h.controller.Snapshot())
}

// HandleStats handles GET /api/stats.
func (h *APIHandler) HandleStats(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, h.controller.Snapshot().Stats)
}

// HandleOpportunities handles GET /api/opportunities.
func (h *APIHandler) HandleOpportunities(w http.ResponseWriter, _ *http.Request) {
	opps := h.controller.Snapshot().Opportunities
	if opps == nil {
		opps = []types.PricedOpportunity{}
	}
	h.writeJSON(w, http.StatusOK, opps)
}

// HandleRoutes handles GET /api/routes.
func (h *APIHandler) HandleRoutes(w http.ResponseWriter, _ *http.Request) {
	disabled := make(map[string]string)
	for _, d := range h.controller.Snapshot().DisabledRoutes {
		disabled[d.Label] = d.Reason
	}

	routes := h.controller.Routes()
	out := make([]RouteView, 0, len(routes))
	for _, r := range routes {
		reason, off := disabled[r.Label]
		out = append(out, RouteView{
			Label:          r.Label,
			Kind:           r.Kind,
			Hops:           r.Hops,
			Venues:         r.Venues,
			Disabled:       off,
			DisabledReason: reason,
		})
	}
	h.writeJSON(w, http.StatusOK, out)
}

// HandleEnableRoute handles POST /api/routes/{label}/enable.
func (h *APIHandler) HandleEnableRoute(w http.ResponseWriter, r *http.Request) {
	label := chi.URLParam(r, "label")

	err := h.controller.EnableRoute(label)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, h.controller.Snapshot())
}

// HandleStart handles POST /api/control/start.
func (h *APIHandler) HandleStart(w http.ResponseWriter, _ *http.Request) {
	err := h.controller.Start(h.baseCtx)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, h.controller.Snapshot())
}

// HandlePause handles POST /api/control/pause.
func (h *APIHandler) HandlePause(w http.ResponseWriter, _ *http.Request) {
	h.controller.Pause()
	h.writeJSON(w, http.StatusOK, h.controller.Snapshot())
}

// HandleSetAmount handles PUT /api/control/amount with {"amount":"250"}.
func (h *APIHandler) HandleSetAmount(w http.ResponseWriter, r *http.Request) {
	var req amountRequest
	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		h.writeStatus(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	err = h.controller.SetTradeAmount(req.Amount)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, h.controller.Snapshot())
}

// HandleSetFilter handles PUT /api/control/filter with {"filter":"triangular"}.
func (h *APIHandler) HandleSetFilter(w http.ResponseWriter, r *http.Request) {
	var req filterRequest
	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		h.writeStatus(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	filter, err := types.ParseStrategyFilter(req.Filter)
	if err != nil {
		h.writeError(w, err)
		return
	}

	err = h.controller.SelectStrategyFilter(filter)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, h.controller.Snapshot())
}

// HandleConnectWallet handles POST /api/wallet/connect with {"address":"0x..."}.
func (h *APIHandler) HandleConnectWallet(w http.ResponseWriter, r *http.Request) {
	var req walletRequest
	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		h.writeStatus(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	err = h.controller.ConnectWallet(req.Address)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, h.controller.Snapshot())
}

// HandleDisconnectWallet handles POST /api/wallet/disconnect.
func (h *APIHandler) HandleDisconnectWallet(w http.ResponseWriter, _ *http.Request) {
	h.controller.DisconnectWallet()
	h.writeJSON(w, http.StatusOK, h.controller.Snapshot())
}

// statusFor maps the engine's error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, types.ErrInvalidAmount),
		errors.Is(err, types.ErrInvalidFilter),
		errors.Is(err, types.ErrInvalidAddress):
		return http.StatusBadRequest
	case errors.Is(err, types.ErrWalletNotConnected):
		return http.StatusConflict
	case errors.Is(err, types.ErrUnknownRoute):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func (h *APIHandler) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("api-request-failed", zap.Error(err))
	}
	h.writeStatus(w, status, err.Error())
}

func (h *APIHandler) writeStatus(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, ErrorResponse{Error: message})
}

func (h *APIHandler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		h.logger.Error("failed-to-encode-response", zap.Error(err))
	}
}
