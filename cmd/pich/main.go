// Command pich drives the client core from the command line: it restores the
// persisted session, optionally logs in, refreshes every collection and prints
// the resulting store snapshot as JSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/pich-app/pich-core/internal/core/ports"
	"github.com/pich-app/pich-core/internal/core/service"
	"github.com/pich-app/pich-core/internal/infrastructure/remote/httpapi"
	"github.com/pich-app/pich-core/internal/infrastructure/remote/mock"
	"github.com/pich-app/pich-core/internal/infrastructure/storage"
	"github.com/pich-app/pich-core/internal/pkg/config"
	"github.com/pich-app/pich-core/pkg/logger"
)

func main() {
	logout := flag.Bool("logout", false, "end the session after printing the snapshot")
	qr := flag.Bool("qr", false, "also load the QR code")
	flag.Parse()

	cfg := config.Load()
	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: "pich",
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log, *qr, *logout); err != nil {
		log.Error().Err(err).Msg("pich failed")
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger, qr, logout bool) error {
	remote, err := newRemote(cfg, log)
	if err != nil {
		return err
	}

	kv, err := storage.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open %s storage: %w", cfg.Client.StorageBackend, err)
	}
	defer func() {
		if err := kv.Close(context.Background()); err != nil {
			log.Warn().Err(err).Msg("storage close")
		}
	}()

	store, err := service.NewStore(service.Deps{
		Remote:          remote,
		Storage:         kv.Store,
		Logger:          log,
		StoragePrefix:   cfg.Client.StoragePrefix,
		PersistDebounce: cfg.Client.PersistDebounce,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Dispose(context.Background()); err != nil {
			log.Warn().Err(err).Msg("store dispose")
		}
	}()

	if err := store.Init(ctx); err != nil {
		return err
	}

	if !store.Session.State().IsAuthenticated() && cfg.Client.Email != "" {
		creds := ports.Credentials{Email: cfg.Client.Email, Password: cfg.Client.Password}
		if err := store.Session.Login(ctx, creds); err != nil {
			return fmt.Errorf("login %s: %w", creds.Email, err)
		}
	}

	if store.Session.State().IsAuthenticated() {
		if err := store.Profile.Fetch(ctx); err != nil {
			log.Warn().Err(err).Msg("profile refresh failed")
		}
		if err := store.Cards.FetchAll(ctx); err != nil {
			log.Warn().Err(err).Msg("cards refresh failed")
		}
		if err := store.Connections.FetchAll(ctx); err != nil {
			log.Warn().Err(err).Msg("connections refresh failed")
		}
		if qr {
			if _, err := store.Profile.FetchQRCode(ctx); err != nil {
				log.Warn().Err(err).Msg("qr code load failed")
			}
		}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(store.Snapshot()); err != nil {
		return err
	}

	if logout {
		return store.Session.Logout(ctx)
	}
	return nil
}

func newRemote(cfg *config.Config, log zerolog.Logger) (ports.Remote, error) {
	switch cfg.Client.RemoteBackend {
	case config.RemoteHTTP:
		return httpapi.New(cfg.Client.RemoteURL, cfg.Client.RemoteTimeout), nil
	}
	backend, err := mock.New(mock.Options{
		JWTSecret: cfg.JWTSecret,
		TokenTTL:  cfg.TokenTTL,
		Latency:   cfg.MockLatency,
		Seed:      cfg.MockSeed,
	}, logger.Component(log, "mock"))
	if err != nil {
		return nil, err
	}
	return backend, nil
}
