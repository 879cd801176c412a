package handler

import (
	"net/http"

	"arrodes-economy/internal/service"
	"arrodes-economy/pkg/apierror"
	"arrodes-economy/pkg/response"

	"github.com/go-chi/chi/v5"
)

// defaultPageSize is the number of listings per page.
const defaultPageSize = 10

// ShopHandler handles marketplace requests.
type ShopHandler struct {
	economy *service.Economy
}

// NewShopHandler creates a new shop handler.
func NewShopHandler(economy *service.Economy) *ShopHandler {
	return &ShopHandler{economy: economy}
}

// SellRequest is the body of POST /shop.
type SellRequest struct {
	Seller string `json:"seller"`
	Item   string `json:"item"`
	Amount int    `json:"amount"`
	Price  int64  `json:"price"`
}

// BuyRequest is the body of POST /shop/{id}/buy.
type BuyRequest struct {
	Buyer string `json:"buyer"`
}

// List handles GET /api/v1/shop?seller=&page=&limit=
func (h *ShopHandler) List(w http.ResponseWriter, r *http.Request) {
	sales := h.economy.Sales(r.URL.Query().Get("seller"))

	page := queryInt(r, "page", 1)
	limit := queryInt(r, "limit", defaultPageSize)
	start := (page - 1) * limit
	if start > len(sales) {
		start = len(sales)
	}
	end := start + limit
	if end > len(sales) {
		end = len(sales)
	}

	response.Page(w, sales[start:end], page, limit, int64(len(sales)))
}

// Sell handles POST /api/v1/shop
func (h *ShopHandler) Sell(w http.ResponseWriter, r *http.Request) {
	var req SellRequest
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, r, err)
		return
	}

	// Accept item names as well as ids.
	if it, err := h.economy.Catalog().Resolve(req.Item); err == nil {
		req.Item = it.ID
	}

	sale, err := h.economy.Sell(r.Context(), req.Seller, req.Item, req.Amount, req.Price)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.Created(w, sale)
}

// Buy handles POST /api/v1/shop/{id}/buy
func (h *ShopHandler) Buy(w http.ResponseWriter, r *http.Request) {
	var req BuyRequest
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, r, err)
		return
	}

	sale, err := h.economy.Buy(r.Context(), chi.URLParam(r, "id"), req.Buyer)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.OK(w, sale)
}

// Cancel handles POST /api/v1/shop/{id}/cancel
func (h *ShopHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	var req CallerRequest
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, r, err)
		return
	}
	if req.User == "" {
		response.Error(w, r, apierror.BadRequest("user is required"))
		return
	}

	sale, err := h.economy.CancelSale(r.Context(), chi.URLParam(r, "id"), req.User)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.OK(w, sale)
}

// Items handles GET /api/v1/items
func (h *ShopHandler) Items(w http.ResponseWriter, r *http.Request) {
	response.OK(w, h.economy.Catalog().Items())
}
