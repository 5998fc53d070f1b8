package config

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

const (
	BackendFile  = "file"
	BackendRedis = "redis"
	BackendMongo = "mongo"
)

type Config struct {
	Port     string `env:"PORT,      default=8080"`
	Env      string `env:"ENV,       default=development"`
	LogLevel string `env:"LOG_LEVEL, default=info"`

	Remote  RemoteConfig
	Session SessionConfig
	Store   StoreConfig
	Mongo   MongoConfig
	Redis   RedisConfig
}

type RemoteConfig struct {
	BaseURL string        `env:"REMOTE_BASE_URL, default=http://localhost:5000/api"`
	Timeout time.Duration `env:"REMOTE_TIMEOUT,  default=15s"`
}

type SessionConfig struct {
	BootstrapTimeout time.Duration `env:"BOOTSTRAP_TIMEOUT, default=10s"`
	NotifyWorkers    int           `env:"NOTIFY_WORKERS,    default=2"`
}

type StoreConfig struct {
	Backend   string `env:"STORE_BACKEND,   default=file"`
	Namespace string `env:"STORE_NAMESPACE, default=default"`
	FileDir   string `env:"STORE_FILE_DIR,  default=.hris"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=hris_portal"`
}

type RedisConfig struct {
	Addr string `env:"REDIS_ADDR, default=localhost:6379"`
	DB   int    `env:"REDIS_DB,   default=0"`
}

// IsProduction reports whether the process runs with ENV=production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// Load reads an optional .env file, then the process environment.
func Load(ctx context.Context) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		var pathErr *os.PathError
		if !errors.As(err, &pathErr) {
			return nil, fmt.Errorf("load .env file: %w", err)
		}
	}
	return process(ctx, envconfig.OsLookuper())
}

// FromMap builds a Config from the given key/value pairs. Used by tests.
func FromMap(ctx context.Context, m map[string]string) (*Config, error) {
	return process(ctx, envconfig.MapLookuper(m))
}

func process(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	cfg.Store.Backend = strings.ToLower(strings.TrimSpace(cfg.Store.Backend))
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the portal cannot start with.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Remote.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("config: REMOTE_BASE_URL must be an absolute http(s) URL, got %q", c.Remote.BaseURL)
	}
	if c.Remote.Timeout <= 0 {
		return errors.New("config: REMOTE_TIMEOUT must be positive")
	}
	if c.Session.BootstrapTimeout <= 0 {
		return errors.New("config: BOOTSTRAP_TIMEOUT must be positive")
	}
	switch c.Store.Backend {
	case BackendFile:
		if c.Store.FileDir == "" {
			return errors.New("config: STORE_FILE_DIR is required for the file backend")
		}
	case BackendRedis, BackendMongo:
	default:
		return fmt.Errorf("config: unknown STORE_BACKEND %q", c.Store.Backend)
	}
	return nil
}
