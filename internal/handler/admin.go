package handler

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"arrodes-economy/internal/inventory"
	"arrodes-economy/internal/model"
	"arrodes-economy/internal/repository"
	"arrodes-economy/internal/service"
	"arrodes-economy/pkg/apierror"
	"arrodes-economy/pkg/response"

	"github.com/go-chi/chi/v5"
)

// AdminHandler handles admin-related HTTP requests.
type AdminHandler struct {
	economy   *service.Economy
	scheduler *service.PersistenceScheduler
	db        repository.Database
	dbType    string // sqlite, postgres, mysql, mongodb, redis or memory
	startTime time.Time
}

// NewAdminHandler creates a new admin handler. scheduler may be nil, in
// which case flushes go straight to the economy.
func NewAdminHandler(
	economy *service.Economy,
	scheduler *service.PersistenceScheduler,
	db repository.Database,
	dbType string,
) *AdminHandler {
	return &AdminHandler{
		economy:   economy,
		scheduler: scheduler,
		db:        db,
		dbType:    dbType,
		startTime: time.Now(),
	}
}

// GetStats handles GET /api/v1/admin/stats
func (h *AdminHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	stats := make(map[string]interface{})

	// System info
	stats["uptime_seconds"] = int64(time.Since(h.startTime).Seconds())
	stats["uptime_human"] = time.Since(h.startTime).Round(time.Second).String()
	stats["server_time"] = time.Now().Format(time.RFC3339)
	stats["db_type"] = h.dbType

	// Memory stats
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	stats["memory"] = map[string]interface{}{
		"alloc_mb":      float64(memStats.Alloc) / 1024 / 1024,
		"sys_mb":        float64(memStats.Sys) / 1024 / 1024,
		"heap_inuse_mb": float64(memStats.HeapInuse) / 1024 / 1024,
		"num_gc":        memStats.NumGC,
		"goroutines":    runtime.NumGoroutine(),
	}

	// Identity maps, escrow and shop
	stats["economy"] = h.economy.Stats()

	// Store stats
	if h.db != nil {
		storeStats, err := h.db.GetStats(ctx)
		if err == nil {
			storeStats["status"] = "connected"
			stats["store"] = storeStats
		} else {
			stats["store"] = map[string]interface{}{
				"status": "error",
				"error":  err.Error(),
			}
		}
	} else {
		stats["store"] = map[string]interface{}{
			"status": "not_configured",
		}
	}

	// Runtime info
	stats["runtime"] = map[string]interface{}{
		"go_version": runtime.Version(),
		"os":         runtime.GOOS,
		"arch":       runtime.GOARCH,
		"cpus":       runtime.NumCPU(),
	}

	response.OK(w, stats)
}

// Flush handles POST /api/v1/admin/flush
func (h *AdminHandler) Flush(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var err error
	if h.scheduler != nil {
		err = h.scheduler.RunNow()
	} else {
		err = h.economy.Flush(r.Context())
	}
	if err != nil {
		response.Error(w, r, err)
		return
	}

	response.OK(w, map[string]interface{}{
		"status":      "flushed",
		"duration_ms": time.Since(start).Milliseconds(),
	})
}

// BalanceRequest is the body of POST /admin/accounts/{id}/balance.
type BalanceRequest struct {
	Amount int64 `json:"amount"`
}

// PeekAccount handles GET /api/v1/admin/accounts/{id}
func (h *AdminHandler) PeekAccount(w http.ResponseWriter, r *http.Request) {
	peek, err := h.economy.Peek(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.OK(w, peek)
}

// GrantItems handles POST /api/v1/admin/accounts/{id}/items/grant
func (h *AdminHandler) GrantItems(w http.ResponseWriter, r *http.Request) {
	h.adjustItems(w, r, h.economy.GrantItems)
}

// RevokeItems handles POST /api/v1/admin/accounts/{id}/items/revoke
func (h *AdminHandler) RevokeItems(w http.ResponseWriter, r *http.Request) {
	h.adjustItems(w, r, h.economy.RevokeItems)
}

func (h *AdminHandler) adjustItems(w http.ResponseWriter, r *http.Request, apply func(context.Context, string, inventory.Items) (model.AccountView, error)) {
	var req ItemsRequest
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, r, err)
		return
	}

	view, err := apply(r.Context(), chi.URLParam(r, "id"), req.Items)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.OK(w, view)
}

// AdjustBalance handles POST /api/v1/admin/accounts/{id}/balance
func (h *AdminHandler) AdjustBalance(w http.ResponseWriter, r *http.Request) {
	var req BalanceRequest
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, r, err)
		return
	}
	if req.Amount == 0 {
		response.Error(w, r, apierror.BadRequest("amount is required"))
		return
	}

	view, err := h.economy.AdjustBalance(r.Context(), chi.URLParam(r, "id"), req.Amount)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.OK(w, view)
}

// ClearInventory handles POST /api/v1/admin/accounts/{id}/inventory/clear
func (h *AdminHandler) ClearInventory(w http.ResponseWriter, r *http.Request) {
	removed, err := h.economy.ClearInventory(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.OK(w, map[string]interface{}{
		"status":  "cleared",
		"removed": removed,
	})
}

// CancelSalesFor handles POST /api/v1/admin/accounts/{id}/sales/cancel
func (h *AdminHandler) CancelSalesFor(w http.ResponseWriter, r *http.Request) {
	n, err := h.economy.CancelSalesFor(r.Context(), chi.URLParam(r, "id"))
	h.cancelled(w, r, n, err)
}

// CancelAllSales handles POST /api/v1/admin/sales/cancel
func (h *AdminHandler) CancelAllSales(w http.ResponseWriter, r *http.Request) {
	n, err := h.economy.CancelAllSales(r.Context())
	h.cancelled(w, r, n, err)
}

// CancelAllTrades handles POST /api/v1/admin/trades/cancel
func (h *AdminHandler) CancelAllTrades(w http.ResponseWriter, r *http.Request) {
	n, err := h.economy.CancelAllTrades(r.Context())
	h.cancelled(w, r, n, err)
}

// cancelled reports a bulk cancel. Partial failures still report how many
// went through.
func (h *AdminHandler) cancelled(w http.ResponseWriter, r *http.Request, n int, err error) {
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.OK(w, map[string]interface{}{
		"status":    "cancelled",
		"cancelled": n,
	})
}

// ListTrades handles GET /api/v1/admin/trades
func (h *AdminHandler) ListTrades(w http.ResponseWriter, r *http.Request) {
	response.OK(w, h.economy.Trades())
}

// ReloadShop handles POST /api/v1/admin/shop/reload
func (h *AdminHandler) ReloadShop(w http.ResponseWriter, r *http.Request) {
	n, err := h.economy.ReloadShop(r.Context())
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.OK(w, map[string]interface{}{
		"status": "reloaded",
		"sales":  n,
	})
}
