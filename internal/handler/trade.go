package handler

import (
	"net/http"

	"arrodes-economy/internal/inventory"
	"arrodes-economy/internal/service"
	"arrodes-economy/pkg/apierror"
	"arrodes-economy/pkg/response"
	"arrodes-economy/pkg/uid"

	"github.com/go-chi/chi/v5"
)

// TradeHandler handles escrow trade requests.
type TradeHandler struct {
	economy *service.Economy
}

// NewTradeHandler creates a new trade handler.
func NewTradeHandler(economy *service.Economy) *TradeHandler {
	return &TradeHandler{economy: economy}
}

// CreateOfferRequest is the body of POST /trades. ID is the originating
// post id; one is generated when omitted.
type CreateOfferRequest struct {
	ID        string          `json:"id"`
	Seller    string          `json:"seller"`
	Items     inventory.Items `json:"items"`
	AllowList []string        `json:"allow_list"`
}

// AcceptOfferRequest is the body of POST /trades/{id}/accept.
type AcceptOfferRequest struct {
	Trader string          `json:"trader"`
	Items  inventory.Items `json:"items"`
}

// CallerRequest names the user acting on a trade or sale.
type CallerRequest struct {
	User string `json:"user"`
}

// CreateOffer handles POST /api/v1/trades
func (h *TradeHandler) CreateOffer(w http.ResponseWriter, r *http.Request) {
	var req CreateOfferRequest
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, r, err)
		return
	}
	if req.Seller == "" {
		response.Error(w, r, apierror.BadRequest("seller is required"))
		return
	}
	if req.ID == "" {
		req.ID = uid.New()
	}

	view, err := h.economy.CreateOffer(r.Context(), req.ID, req.Seller, req.Items, req.AllowList)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.Created(w, view)
}

// AcceptOffer handles POST /api/v1/trades/{id}/accept
func (h *TradeHandler) AcceptOffer(w http.ResponseWriter, r *http.Request) {
	var req AcceptOfferRequest
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, r, err)
		return
	}

	view, err := h.economy.AcceptOffer(r.Context(), chi.URLParam(r, "id"), req.Trader, req.Items)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.OK(w, view)
}

// Confirm handles POST /api/v1/trades/{id}/confirm
func (h *TradeHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	var req CallerRequest
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, r, err)
		return
	}
	if req.User == "" {
		response.Error(w, r, apierror.BadRequest("user is required"))
		return
	}

	view, err := h.economy.ConfirmTrade(r.Context(), chi.URLParam(r, "id"), req.User)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.OK(w, view)
}

// Cancel handles POST /api/v1/trades/{id}/cancel
func (h *TradeHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	var req CallerRequest
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, r, err)
		return
	}
	if req.User == "" {
		response.Error(w, r, apierror.BadRequest("user is required"))
		return
	}

	view, err := h.economy.CancelTrade(r.Context(), chi.URLParam(r, "id"), req.User)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.OK(w, view)
}

// Get handles GET /api/v1/trades/{id}
func (h *TradeHandler) Get(w http.ResponseWriter, r *http.Request) {
	view, err := h.economy.Trade(chi.URLParam(r, "id"))
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.OK(w, view)
}
