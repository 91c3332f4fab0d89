package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Storage and remote backend names.
const (
	StorageMemory   = "memory"
	StorageRedis    = "redis"
	StorageMongo    = "mongo"
	StoragePostgres = "postgres"

	RemoteMock = "mock"
	RemoteHTTP = "http"
)

type Config struct {
	Port      string `env:"PORT,      default=8080"`
	Env       string `env:"ENV,       default=development"`
	LogLevel  string `env:"LOG_LEVEL, default=info"`
	JWTSecret string `env:"JWT_SECRET, default=pich-dev-secret"`

	TokenTTL    time.Duration `env:"TOKEN_TTL,    default=24h"`
	MockLatency time.Duration `env:"MOCK_LATENCY, default=300ms"`
	MockSeed    bool          `env:"MOCK_SEED,    default=true"`

	Client   ClientConfig
	Redis    RedisConfig
	Mongo    MongoConfig
	Postgres PostgresConfig
}

// ClientConfig drives the client core built by cmd/pich.
type ClientConfig struct {
	StorageBackend  string        `env:"STORAGE_BACKEND,  default=memory"`
	StoragePrefix   string        `env:"STORAGE_PREFIX,   default=pich:"`
	PersistDebounce time.Duration `env:"PERSIST_DEBOUNCE, default=0s"`
	RemoteBackend   string        `env:"REMOTE_BACKEND,   default=mock"`
	RemoteURL       string        `env:"REMOTE_URL,       default=http://localhost:8080"`
	RemoteTimeout   time.Duration `env:"REMOTE_TIMEOUT,   default=10s"`
	Email           string        `env:"PICH_EMAIL"`
	Password        string        `env:"PICH_PASSWORD"`
}

type RedisConfig struct {
	Addr string `env:"REDIS_ADDR, default=localhost:6379"`
	DB   int    `env:"REDIS_DB,   default=0"`
}

type MongoConfig struct {
	URI        string `env:"MONGO_URI,        default=mongodb://localhost:27017"`
	Database   string `env:"MONGO_DB,         default=pich"`
	Collection string `env:"MONGO_COLLECTION, default=device_storage"`
}

type PostgresConfig struct {
	DSN string `env:"POSTGRES_DSN, default=postgres://postgres@localhost:5432/pich?sslmode=disable"`
}

// IsDevelopment reports whether the process runs in a development environment.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development" || c.Env == "dev" || c.Env == "local"
}

// Validate checks the enumerated settings.
func (c *Config) Validate() error {
	switch c.Client.StorageBackend {
	case StorageMemory, StorageRedis, StorageMongo, StoragePostgres:
	default:
		return fmt.Errorf("config: unknown STORAGE_BACKEND %q", c.Client.StorageBackend)
	}
	switch c.Client.RemoteBackend {
	case RemoteMock, RemoteHTTP:
	default:
		return fmt.Errorf("config: unknown REMOTE_BACKEND %q", c.Client.RemoteBackend)
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("config: JWT_SECRET must not be empty")
	}
	return nil
}

// Load reads configuration from environment variables using go-envconfig.
func Load() *Config {
	cfg, err := LoadFrom(context.Background(), envconfig.OsLookuper())
	if err != nil {
		panic(err.Error())
	}
	return cfg
}

// LoadFrom reads configuration through the given lookuper.
func LoadFrom(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return nil, fmt.Errorf("config: failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
