// Package api exposes a registry.Service over HTTP.
package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth"
	"github.com/go-chi/render"
	"github.com/tendant/simple-registry/pkg/registry"
)

// Handler handles HTTP requests for the registry
type Handler struct {
	service   registry.Service
	tokenAuth *jwtauth.JWTAuth
	balances  registry.BalanceReader
	logger    *slog.Logger
}

// HandlerOption configures a Handler
type HandlerOption func(*Handler)

// WithBalanceReader enables the balance endpoint.
func WithBalanceReader(balances registry.BalanceReader) HandlerOption {
	return func(h *Handler) {
		h.balances = balances
	}
}

// WithLogger sets the request logger. A nil logger keeps the default.
func WithLogger(logger *slog.Logger) HandlerOption {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// NewHandler creates a new registry handler. Mutating routes verify bearer
// tokens with tokenAuth.
func NewHandler(service registry.Service, tokenAuth *jwtauth.JWTAuth, opts ...HandlerOption) *Handler {
	h := &Handler{
		service:   service,
		tokenAuth: tokenAuth,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Routes returns the registry routes
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/owner", h.GetOwner)

	r.Get("/contents", h.ListContents)
	r.Get("/contents/{id}", h.GetContent)
	r.Get("/contents/{id}/rating", h.GetAverageRating)
	r.Get("/contents/{id}/ratings/{address}", h.GetUserRating)

	r.Get("/governance/members", h.ListGovernanceMembers)
	r.Get("/governance/members/{address}", h.IsGovernanceMember)
	r.Get("/governance/proposals", h.ListProposals)
	r.Get("/governance/proposals/{id}", h.GetProposal)
	r.Get("/governance/proposals/{id}/votes/{address}", h.HasVoted)

	r.Get("/pause", h.GetPaused)
	r.Get("/balances/{address}", h.GetBalance)

	// Routes that act on behalf of a caller
	r.Group(func(r chi.Router) {
		r.Use(jwtauth.Verifier(h.tokenAuth))
		r.Use(RequireCaller)

		r.Post("/contents", h.PublishContent)
		r.Post("/contents/{id}/views", h.ViewContent)
		r.Post("/contents/{id}/ratings", h.RateContent)

		r.Post("/governance/members", h.AddGovernanceMember)
		r.Post("/governance/proposals", h.CreateProposal)
		r.Post("/governance/proposals/{id}/votes", h.Vote)
		r.Post("/governance/proposals/{id}/execute", h.ExecuteProposal)

		r.Post("/pause/toggle", h.TogglePause)
	})

	return r
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "invalid request body")
		return false
	}
	return true
}

func idParam(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_id", fmt.Sprintf("invalid id %q", raw))
		return 0, false
	}
	return id, true
}

func parseAddress(raw string) (common.Address, error) {
	if !common.IsHexAddress(raw) {
		return common.Address{}, fmt.Errorf("invalid address %q", raw)
	}
	return common.HexToAddress(raw), nil
}

func addressParam(w http.ResponseWriter, r *http.Request) (common.Address, bool) {
	addr, err := parseAddress(chi.URLParam(r, "address"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_address", err.Error())
		return common.Address{}, false
	}
	return addr, true
}

// caller is set by RequireCaller on every authenticated route.
func caller(r *http.Request) common.Address {
	addr, _ := CallerFromContext(r.Context())
	return addr
}

// OwnerResponse is the response body for the registry owner
type OwnerResponse struct {
	Owner common.Address `json:"owner"`
}

// GetOwner returns the fixed registry owner
func (h *Handler) GetOwner(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, OwnerResponse{Owner: h.service.Owner()})
}

// PausedResponse is the response body for the pause flag
type PausedResponse struct {
	Paused bool `json:"paused"`
}

// GetPaused returns the pause flag
func (h *Handler) GetPaused(w http.ResponseWriter, r *http.Request) {
	paused, err := h.service.Paused(r.Context())
	if err != nil {
		h.writeServiceError(w, r, "Failed to read pause flag", err)
		return
	}
	render.JSON(w, r, PausedResponse{Paused: paused})
}

// TogglePause flips the pause flag. Only the owner may call it.
func (h *Handler) TogglePause(w http.ResponseWriter, r *http.Request) {
	paused, err := h.service.TogglePause(r.Context(), caller(r))
	if err != nil {
		h.writeServiceError(w, r, "Failed to toggle pause", err, "caller", caller(r).Hex())
		return
	}
	h.logger.InfoContext(r.Context(), "Pause toggled", "paused", paused)
	render.JSON(w, r, PausedResponse{Paused: paused})
}

// BalanceResponse is the response body for a ledger balance
type BalanceResponse struct {
	Address common.Address `json:"address"`
	Balance uint64         `json:"balance"`
}

// GetBalance returns the ledger balance of an address
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	if h.balances == nil {
		writeError(w, r, http.StatusNotImplemented, "balance_unavailable", "the configured ledger does not report balances")
		return
	}
	addr, ok := addressParam(w, r)
	if !ok {
		return
	}

	balance, err := h.balances.Balance(r.Context(), addr)
	if err != nil {
		h.writeServiceError(w, r, "Failed to read balance", err, "address", addr.Hex())
		return
	}
	render.JSON(w, r, BalanceResponse{Address: addr, Balance: balance})
}
