// Command pichd serves the in-memory PICH backend over HTTP for local
// development of clients.
//
// @title                       PICH mock backend
// @version                     1.0
// @description                 Development backend for the PICH client core: sessions, cards, connections and QR codes.
// @host                        localhost:8080
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pich-app/pich-core/internal/api"
	"github.com/pich-app/pich-core/internal/core/ports"
	"github.com/pich-app/pich-core/internal/infrastructure/remote/mock"
	"github.com/pich-app/pich-core/internal/infrastructure/storage"
	"github.com/pich-app/pich-core/internal/pkg/config"
	"github.com/pich-app/pich-core/pkg/logger"
)

func main() {
	cfg := config.Load()
	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: "pichd",
	})

	ctx := context.Background()

	backend, err := mock.New(mock.Options{
		JWTSecret: cfg.JWTSecret,
		TokenTTL:  cfg.TokenTTL,
		Latency:   cfg.MockLatency,
		Seed:      cfg.MockSeed,
	}, logger.Component(log, "mock"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build backend")
	}

	// The configured device storage is probed by /health/ready so a shared
	// redis/mongo/postgres used by clients can be checked from one place.
	probes := map[string]ports.Pinger{}
	store, err := storage.Open(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.Client.StorageBackend).Msg("failed to open storage")
	}
	if p := store.Pinger(); p != nil {
		probes[store.Name] = p
	}

	e, err := api.NewRouter(api.Options{
		Remote:    backend,
		JWTSecret: cfg.JWTSecret,
		Log:       logger.Component(log, "http"),
		Probes:    probes,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build router")
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Info().Str("port", cfg.Port).Bool("seed", cfg.MockSeed).Msg("server starting")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	<-quit
	log.Info().Msg("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown error")
	}
	if err := store.Close(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("storage close error")
	}

	log.Info().Msg("server stopped")
}
