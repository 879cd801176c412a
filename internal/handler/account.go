package handler

import (
	"net/http"

	"arrodes-economy/internal/announce"
	"arrodes-economy/internal/inventory"
	"arrodes-economy/internal/service"
	"arrodes-economy/pkg/apierror"
	"arrodes-economy/pkg/response"

	"github.com/go-chi/chi/v5"
)

// AccountHandler handles account, inventory and growth requests.
type AccountHandler struct {
	economy *service.Economy
	hub     *announce.Hub
}

// NewAccountHandler creates a new account handler. hub may be nil, which
// disables the reveal stream.
func NewAccountHandler(economy *service.Economy, hub *announce.Hub) *AccountHandler {
	return &AccountHandler{
		economy: economy,
		hub:     hub,
	}
}

// ItemsRequest carries a quantity map.
type ItemsRequest struct {
	Items inventory.Items `json:"items"`
}

// GiftRequest is the body of POST /accounts/{id}/gift.
type GiftRequest struct {
	To    string          `json:"to"`
	Items inventory.Items `json:"items"`
}

// OpenLootboxesRequest is the body of POST /accounts/{id}/lootboxes/open.
type OpenLootboxesRequest struct {
	Amount int `json:"amount"`
}

// StartGrowthRequest is the body of POST /accounts/{id}/growth/{registry}.
type StartGrowthRequest struct {
	Kind string `json:"kind"`
}

// GetAccount handles GET /api/v1/accounts/{id}
func (h *AccountHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
	view, err := h.economy.Account(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.OK(w, view)
}

// DeleteAccount handles DELETE /api/v1/accounts/{id}
func (h *AccountHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.economy.DeleteAccount(r.Context(), id); err != nil {
		response.Error(w, r, err)
		return
	}
	response.OK(w, map[string]interface{}{
		"status": "deleted",
		"id":     id,
	})
}

// Gift handles POST /api/v1/accounts/{id}/gift
func (h *AccountHandler) Gift(w http.ResponseWriter, r *http.Request) {
	from := chi.URLParam(r, "id")

	var req GiftRequest
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, r, err)
		return
	}
	if req.To == "" {
		response.Error(w, r, apierror.BadRequest("to is required"))
		return
	}

	if err := h.economy.Gift(r.Context(), from, req.To, req.Items); err != nil {
		response.Error(w, r, err)
		return
	}
	response.OK(w, map[string]interface{}{
		"status": "gifted",
		"from":   from,
		"to":     req.To,
		"items":  req.Items,
	})
}

// OpenLootboxes handles POST /api/v1/accounts/{id}/lootboxes/open
func (h *AccountHandler) OpenLootboxes(w http.ResponseWriter, r *http.Request) {
	req := OpenLootboxesRequest{Amount: 1}
	if r.ContentLength > 0 {
		if err := decodeJSON(r, &req); err != nil {
			response.Error(w, r, err)
			return
		}
	}

	items, err := h.economy.OpenLootboxes(r.Context(), chi.URLParam(r, "id"), req.Amount)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.OK(w, map[string]interface{}{
		"opened": req.Amount,
		"items":  items,
	})
}

// Discard handles POST /api/v1/accounts/{id}/discard
func (h *AccountHandler) Discard(w http.ResponseWriter, r *http.Request) {
	var req ItemsRequest
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, r, err)
		return
	}

	if err := h.economy.Discard(r.Context(), chi.URLParam(r, "id"), req.Items); err != nil {
		response.Error(w, r, err)
		return
	}
	response.OK(w, map[string]interface{}{
		"status": "discarded",
		"items":  req.Items,
	})
}

// StartGrowth handles POST /api/v1/accounts/{id}/growth/{registry}
func (h *AccountHandler) StartGrowth(w http.ResponseWriter, r *http.Request) {
	var req StartGrowthRequest
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, r, err)
		return
	}
	if req.Kind == "" {
		response.Error(w, r, apierror.BadRequest("kind is required"))
		return
	}

	asset, err := h.economy.StartGrowth(r.Context(), chi.URLParam(r, "registry"), chi.URLParam(r, "id"), req.Kind)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.Created(w, asset)
}

// Growth handles GET /api/v1/accounts/{id}/growth
func (h *AccountHandler) Growth(w http.ResponseWriter, r *http.Request) {
	growing, err := h.economy.Growth(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.OK(w, growing)
}

// CheckGrowth handles POST /api/v1/accounts/{id}/growth/check
func (h *AccountHandler) CheckGrowth(w http.ResponseWriter, r *http.Request) {
	harvests, err := h.economy.CheckGrowth(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.OK(w, map[string]interface{}{
		"resolved": len(harvests),
		"harvests": harvests,
	})
}

// Reveals handles GET /api/v1/accounts/{id}/reveals (websocket)
func (h *AccountHandler) Reveals(w http.ResponseWriter, r *http.Request) {
	if h.hub == nil {
		response.Error(w, r, apierror.NotFound("reveal stream is disabled"))
		return
	}
	h.hub.Serve(w, r, chi.URLParam(r, "id"))
}
