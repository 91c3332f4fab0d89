// Package mongo persists device state as one MongoDB document per key.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	defaultCollection = "device_storage"
	dialTimeout       = 10 * time.Second
)

type Config struct {
	URI        string
	Database   string
	Collection string
	// Timeout bounds connect and the initial ping. Zero uses 10s.
	Timeout time.Duration
}

// entry is one persisted key. The key doubles as the document id.
type entry struct {
	Key       string `bson:"_id"`
	Value     string `bson:"value"`
	UpdatedAt int64  `bson:"updated_at"`
}

type KV struct {
	client *mongo.Client
	db     *mongo.Database
	coll   *mongo.Collection
}

// Open connects to cfg.URI and verifies the server answers a ping.
func Open(ctx context.Context, cfg Config) (*KV, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = dialTimeout
	}

	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(dialCtx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	kv := NewKV(client.Database(cfg.Database), cfg.Collection)
	kv.client = client

	if err := kv.Ping(dialCtx); err != nil {
		_ = client.Disconnect(dialCtx)
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	return kv, nil
}

// NewKV uses collection in db, or "device_storage" when empty.
func NewKV(db *mongo.Database, collection string) *KV {
	if collection == "" {
		collection = defaultCollection
	}
	return &KV{client: db.Client(), db: db, coll: db.Collection(collection)}
}

func (s *KV) Get(ctx context.Context, key string) (string, bool, error) {
	var doc entry
	err := s.coll.FindOne(ctx, bson.M{"_id": key}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("find %s: %w", key, err)
	}
	return doc.Value, true, nil
}

func (s *KV) Set(ctx context.Context, key, value string) error {
	doc := entry{Key: key, Value: value, UpdatedAt: time.Now().UTC().Unix()}
	_, err := s.coll.ReplaceOne(ctx, bson.M{"_id": key}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("upsert %s: %w", key, err)
	}
	return nil
}

func (s *KV) Remove(ctx context.Context, key string) error {
	if _, err := s.coll.DeleteOne(ctx, bson.M{"_id": key}); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// Ping runs the ping command against the database.
func (s *KV) Ping(ctx context.Context) error {
	return s.db.RunCommand(ctx, bson.D{{Key: "ping", Value: 1}}).Err()
}

func (s *KV) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
