package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"arrodes-economy/internal/announce"
	"arrodes-economy/internal/catalog"
	"arrodes-economy/internal/config"
	"arrodes-economy/internal/handler"
	"arrodes-economy/internal/logging"
	"arrodes-economy/internal/repository"
	"arrodes-economy/internal/router"
	"arrodes-economy/internal/service"
)

func main() {
	// Load configuration
	cfg := config.MustLoad()

	logger := logging.New(cfg.App.Environment, cfg.App.Debug)
	logger.Info().Str("app", cfg.App.Name).Str("version", cfg.App.Version).Str("env", cfg.App.Environment).Msg("starting")

	// Initialize the backing store based on config
	db, err := repository.Open(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Str("store", cfg.Store.Type).Msg("failed to initialize store")
	}
	defer db.Close()

	// Reveals stream over websockets when enabled, otherwise they are only logged
	var hub *announce.Hub
	var announcer announce.Announcer = announce.NewLogAnnouncer(logger, cfg.Game.RevealDelay)
	if cfg.Game.RevealStream {
		hub = announce.NewHub(logger, cfg.Game.RevealDelay, announce.WithAllowedOrigins(cfg.Server.AllowedOrigins...))
		announcer = hub
	}

	startCtx, cancel := context.WithTimeout(context.Background(), cfg.Game.FlushTimeout)
	economy, err := service.Build(startCtx, cfg.Game, db, catalog.Default(), announcer, logger)
	cancel()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize economy")
	}

	// Periodic write-back of every cache
	scheduler := service.NewPersistenceScheduler(economy, service.PersistenceConfig{
		Interval: cfg.Game.FlushInterval,
		Timeout:  cfg.Game.FlushTimeout,
	}, logger)
	scheduler.Start()

	// Initialize handlers
	r := router.New(router.Config{
		Logger:         logging.Component(logger, "http"),
		Handler:        handler.New(db, cfg.App.Name, cfg.App.Version),
		AccountHandler: handler.NewAccountHandler(economy, hub),
		TradeHandler:   handler.NewTradeHandler(economy),
		ShopHandler:    handler.NewShopHandler(economy),
		AdminHandler:   handler.NewAdminHandler(economy, scheduler, db, cfg.Store.Type),
		AllowedOrigins: cfg.Server.AllowedOrigins,
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in goroutine
	go func() {
		logger.Info().Str("addr", cfg.Server.Address()).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	// Stop taking commands first, then return escrowed items and flush
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("server shutdown error")
	}
	if err := scheduler.Stop(); err != nil {
		logger.Error().Err(err).Msg("scheduled flush failed during shutdown")
	}
	if err := economy.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("final flush failed, unsaved changes may be lost")
	}

	logger.Info().Msg("server stopped")
}
