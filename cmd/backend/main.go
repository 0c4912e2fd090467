// Package main provides the entry point for the LinkVault backend service.
package main

import (
	"LinkVault-Backend/internal/auth"
	"LinkVault-Backend/internal/config"
	"LinkVault-Backend/internal/database"
	httpHandler "LinkVault-Backend/internal/handler/http"
	"LinkVault-Backend/internal/repository/postgres"
	"LinkVault-Backend/internal/service"
	"LinkVault-Backend/pkg/logger"
	"context"
	"fmt"
	lg "log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
)

func main() {
	cfg := config.MustLoad()
	log := logger.New(cfg.Env)
	defer func() {
		if err := log.Sync(); err != nil {
			lg.Printf("ERROR: failed to sync zap logger: %v\n", err)
		}
	}()

	log.Info("starting LinkVault backend", zap.String("env", cfg.Env))

	db, err := database.NewConnection(&cfg.Database, log)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := database.Close(db, log); err != nil {
			log.Error("failed to close database connection", zap.Error(err))
		}
	}()

	if cfg.Database.AutoMigrate {
		log.Info("running database migrations (auto_migrate: true)")
		if err := database.AutoMigrate(db, log); err != nil {
			log.Fatal("failed to run database migrations", zap.Error(err))
		}
	} else {
		log.Info("skipping database migrations (auto_migrate: false)")
	}

	storage := postgres.New(db, log)

	entitlement := service.NewEntitlement(storage, &cfg.Entitlement, log)
	linkService := service.NewLinkService(storage, entitlement, log, cfg.BaseURL)
	billing := service.NewBilling(storage, &cfg.Stripe, cfg.BaseURL, log)
	cleanup := service.NewCleanup(storage, cfg.Cleanup.Interval, log)

	verifier := auth.NewVerifier(&auth.Config{
		SecretKey: []byte(cfg.Auth.JWTSecret),
		Issuer:    cfg.Auth.Issuer,
	})

	server := httpHandler.NewServer(storage, linkService, entitlement, billing, cleanup, verifier, cfg, log)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPServer.Port),
		Handler:      server.SetupRoutes(),
		ReadTimeout:  cfg.HTTPServer.ReadTimeout,
		WriteTimeout: cfg.HTTPServer.WriteTimeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	log.Info("starting HTTP server", zap.String("address", httpServer.Addr))
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server failed", zap.Error(err))
		}
	}()

	cleanup.Start()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down LinkVault backend...")

	cleanup.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("failed to shutdown HTTP server", zap.Error(err))
	} else {
		log.Info("HTTP server stopped")
	}
}
