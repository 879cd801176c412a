package router

import (
	"arrodes-economy/internal/handler"
	"arrodes-economy/internal/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
)

// Config holds the configuration for creating a router.
type Config struct {
	Logger         zerolog.Logger
	Handler        *handler.Handler
	AccountHandler *handler.AccountHandler
	TradeHandler   *handler.TradeHandler
	ShopHandler    *handler.ShopHandler
	AdminHandler   *handler.AdminHandler
	// AllowedOrigins defaults to any origin.
	AllowedOrigins []string
}

// New creates and configures the HTTP router.
func New(cfg Config) *chi.Mux {
	r := chi.NewRouter()

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	// Global middleware stack (applies to ALL routes)
	r.Use(middleware.RequestID(cfg.Logger))
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.Logging(cfg.Logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", middleware.RequestIDHeader},
		ExposedHeaders:   []string{middleware.RequestIDHeader},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	if cfg.Handler != nil {
		r.Get("/api/status", cfg.Handler.Status)
	}

	r.Route("/api/v1", func(r chi.Router) {
		// Health check endpoints
		if cfg.Handler != nil {
			r.Get("/health", cfg.Handler.Health)
			r.Get("/ready", cfg.Handler.Ready)
		}

		// Account endpoints
		if cfg.AccountHandler != nil {
			r.Route("/accounts/{id}", func(r chi.Router) {
				r.Get("/", cfg.AccountHandler.GetAccount)
				r.Delete("/", cfg.AccountHandler.DeleteAccount)
				r.Post("/gift", cfg.AccountHandler.Gift)
				r.Post("/lootboxes/open", cfg.AccountHandler.OpenLootboxes)
				r.Post("/discard", cfg.AccountHandler.Discard)
				r.Get("/growth", cfg.AccountHandler.Growth)
				r.Post("/growth/check", cfg.AccountHandler.CheckGrowth)
				r.Post("/growth/{registry}", cfg.AccountHandler.StartGrowth)
				r.Get("/reveals", cfg.AccountHandler.Reveals)
			})
		}

		// Escrow trade endpoints
		if cfg.TradeHandler != nil {
			r.Route("/trades", func(r chi.Router) {
				r.Post("/", cfg.TradeHandler.CreateOffer)
				r.Get("/{id}", cfg.TradeHandler.Get)
				r.Post("/{id}/accept", cfg.TradeHandler.AcceptOffer)
				r.Post("/{id}/confirm", cfg.TradeHandler.Confirm)
				r.Post("/{id}/cancel", cfg.TradeHandler.Cancel)
			})
		}

		// Shop endpoints
		if cfg.ShopHandler != nil {
			r.Get("/items", cfg.ShopHandler.Items)
			r.Route("/shop", func(r chi.Router) {
				r.Get("/", cfg.ShopHandler.List)
				r.Post("/", cfg.ShopHandler.Sell)
				r.Post("/{id}/buy", cfg.ShopHandler.Buy)
				r.Post("/{id}/cancel", cfg.ShopHandler.Cancel)
			})
		}

		// Admin endpoints
		if cfg.AdminHandler != nil {
			r.Route("/admin", func(r chi.Router) {
				r.Get("/stats", cfg.AdminHandler.GetStats)
				r.Post("/flush", cfg.AdminHandler.Flush)

				r.Route("/accounts/{id}", func(r chi.Router) {
					r.Get("/", cfg.AdminHandler.PeekAccount)
					r.Post("/items/grant", cfg.AdminHandler.GrantItems)
					r.Post("/items/revoke", cfg.AdminHandler.RevokeItems)
					r.Post("/balance", cfg.AdminHandler.AdjustBalance)
					r.Post("/inventory/clear", cfg.AdminHandler.ClearInventory)
					r.Post("/sales/cancel", cfg.AdminHandler.CancelSalesFor)
				})
				r.Post("/sales/cancel", cfg.AdminHandler.CancelAllSales)
				r.Get("/trades", cfg.AdminHandler.ListTrades)
				r.Post("/trades/cancel", cfg.AdminHandler.CancelAllTrades)
				r.Post("/shop/reload", cfg.AdminHandler.ReloadShop)
			})
		}
	})

	return r
}
