package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"machine-manual-backend/config"
	"machine-manual-backend/internal/api"
	"machine-manual-backend/internal/auth"
	"machine-manual-backend/internal/db"
	"machine-manual-backend/internal/logging"
	"machine-manual-backend/internal/qr"
	"machine-manual-backend/internal/store"
)

func main() {
	// Load configuration
	configPath := config.Path()
	cfg, err := config.Load(configPath)
	if err != nil {
		log.WithError(err).WithField("path", configPath).Fatal("failed to load configuration")
	}
	if err := logging.Configure(nil, cfg.Logging); err != nil {
		log.WithError(err).Fatal("failed to configure logging")
	}
	logger := log.StandardLogger()
	logger.WithField("path", configPath).Info("configuration loaded")
	if cfg.Server.BaseURL == "" {
		logger.Warn("server.base_url is not set; qr images are rendered per request and not stored")
	}

	// Stop on SIGINT/SIGTERM, including while waiting for the database
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize database
	gormDB, err := db.Init(ctx, &cfg.Database)
	if err != nil {
		logger.WithError(err).Fatal("failed to initialize database")
	}
	logger.WithField("driver", cfg.Database.Driver).Info("database initialized")

	appStore := store.NewGormStore(gormDB)
	gen := qr.NewGenerator(cfg.QR.Dir, cfg.QR.Size, logger)
	handler := api.NewHandler(appStore, gen, cfg, logger)

	// Initialize router
	router := api.NewRouter(handler, auth.NewAdmin(cfg.Admin, logger), logger)
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.RequestTimeout,
		WriteTimeout:      cfg.Server.RequestTimeout,
	}

	// Start the server in a goroutine
	go func() {
		logger.WithField("port", cfg.Server.Port).Info("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("HTTP server stopped unexpectedly")
		}
	}()

	// Block until a signal is received.
	<-ctx.Done()
	logger.Info("shutdown signal received, stopping server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("HTTP server shutdown failed")
	}
	if sqlDB, err := gormDB.DB(); err == nil {
		_ = sqlDB.Close()
	}
	logger.Info("server gracefully stopped")
}
