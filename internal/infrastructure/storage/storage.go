// Package storage selects the device KeyValueStore named by configuration.
package storage

import (
	"context"
	"fmt"

	"github.com/pich-app/pich-core/internal/core/ports"
	"github.com/pich-app/pich-core/internal/infrastructure/storage/memory"
	"github.com/pich-app/pich-core/internal/infrastructure/storage/mongo"
	"github.com/pich-app/pich-core/internal/infrastructure/storage/postgres"
	"github.com/pich-app/pich-core/internal/infrastructure/storage/redis"
	"github.com/pich-app/pich-core/internal/pkg/config"
)

// Backend is an opened store and the function that releases it.
type Backend struct {
	Name  string
	Store ports.KeyValueStore
	Close func(ctx context.Context) error
}

// Pinger returns the store as a readiness probe, or nil for in-process stores.
func (b *Backend) Pinger() ports.Pinger {
	p, _ := b.Store.(ports.Pinger)
	return p
}

// Open connects to the backend selected by cfg.Client.StorageBackend.
func Open(ctx context.Context, cfg *config.Config) (*Backend, error) {
	name := cfg.Client.StorageBackend
	switch name {
	case config.StorageMemory:
		return &Backend{Name: name, Store: memory.New(), Close: func(context.Context) error { return nil }}, nil

	case config.StorageRedis:
		kv, err := redis.Open(ctx, redis.Config{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
		if err != nil {
			return nil, err
		}
		return &Backend{Name: name, Store: kv, Close: func(context.Context) error { return kv.Close() }}, nil

	case config.StorageMongo:
		kv, err := mongo.Open(ctx, mongo.Config{
			URI:        cfg.Mongo.URI,
			Database:   cfg.Mongo.Database,
			Collection: cfg.Mongo.Collection,
		})
		if err != nil {
			return nil, err
		}
		return &Backend{Name: name, Store: kv, Close: kv.Close}, nil

	case config.StoragePostgres:
		kv, err := postgres.Open(ctx, cfg.Postgres.DSN)
		if err != nil {
			return nil, err
		}
		return &Backend{Name: name, Store: kv, Close: func(context.Context) error { return kv.Close() }}, nil
	}
	return nil, fmt.Errorf("storage: unknown backend %q", name)
}
