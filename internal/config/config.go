package config

import (
	"errors"
	"fmt"
	"time"
)

// Store drivers.
const (
	StoreMongo  = "mongo"
	StoreSQLite = "sqlite"
)

// Broadcast drivers.
const (
	BroadcastLocal = "local"
	BroadcastRedis = "redis"
	BroadcastNATS  = "nats"
)

// Config holds server configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	MaxMessageBytes   int64         `mapstructure:"max_message_bytes" yaml:"max_message_bytes"`

	Log       LogConfig       `mapstructure:"log" yaml:"log"`
	Store     StoreConfig     `mapstructure:"store" yaml:"store"`
	Broadcast BroadcastConfig `mapstructure:"broadcast" yaml:"broadcast"`
	Relay     RelayConfig     `mapstructure:"relay" yaml:"relay"`
	Auth      AuthConfig      `mapstructure:"auth" yaml:"auth"`
}

// LogConfig selects log verbosity and output format (console or json).
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// StoreConfig selects and configures the message store.
type StoreConfig struct {
	Driver          string        `mapstructure:"driver" yaml:"driver"`
	MongoURI        string        `mapstructure:"mongo_uri" yaml:"mongo_uri"`
	MongoDatabase   string        `mapstructure:"mongo_database" yaml:"mongo_database"`
	MongoCollection string        `mapstructure:"mongo_collection" yaml:"mongo_collection"`
	SQLitePath      string        `mapstructure:"sqlite_path" yaml:"sqlite_path"`
	Timeout         time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// BroadcastConfig selects how live messages reach other relay nodes.
type BroadcastConfig struct {
	Driver         string        `mapstructure:"driver" yaml:"driver"`
	RedisAddr      string        `mapstructure:"redis_addr" yaml:"redis_addr"`
	RedisPassword  string        `mapstructure:"redis_password" yaml:"redis_password"`
	RedisDB        int           `mapstructure:"redis_db" yaml:"redis_db"`
	RedisChannel   string        `mapstructure:"redis_channel" yaml:"redis_channel"`
	NATSURL        string        `mapstructure:"nats_url" yaml:"nats_url"`
	NATSSubject    string        `mapstructure:"nats_subject" yaml:"nats_subject"`
	NATSTimeout    time.Duration `mapstructure:"nats_timeout" yaml:"nats_timeout"`
	PublishTimeout time.Duration `mapstructure:"publish_timeout" yaml:"publish_timeout"`
}

// RelayConfig tunes message handling.
type RelayConfig struct {
	HistoryLimit  int  `mapstructure:"history_limit" yaml:"history_limit"`
	Workers       int  `mapstructure:"workers" yaml:"workers"`
	RatePerMinute int  `mapstructure:"rate_per_minute" yaml:"rate_per_minute"`
	SanitizeHTML  bool `mapstructure:"sanitize_html" yaml:"sanitize_html"`
}

// AuthConfig configures JWT identity verification. An empty secret disables it.
type AuthConfig struct {
	JWTSecret   string `mapstructure:"jwt_secret" yaml:"jwt_secret"`
	JWTIssuer   string `mapstructure:"jwt_issuer" yaml:"jwt_issuer"`
	JWTAudience string `mapstructure:"jwt_audience" yaml:"jwt_audience"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:              ":8000",
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   5 * time.Second,
		MaxMessageBytes:   64 << 10,
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Store: StoreConfig{
			Driver:          StoreMongo,
			MongoURI:        "mongodb://localhost:27017/",
			MongoDatabase:   "chat_app_db",
			MongoCollection: "messages",
			SQLitePath:      "relay.db",
			Timeout:         5 * time.Second,
		},
		Broadcast: BroadcastConfig{
			Driver:         BroadcastLocal,
			RedisAddr:      "localhost:6379",
			RedisChannel:   "relay.messages",
			NATSURL:        "nats://127.0.0.1:4222",
			NATSSubject:    "relay.messages",
			NATSTimeout:    5 * time.Second,
			PublishTimeout: 2 * time.Second,
		},
		Relay: RelayConfig{
			HistoryLimit:  100,
			RatePerMinute: 0,
		},
		Auth: AuthConfig{
			JWTIssuer:   "room-relay",
			JWTAudience: "room-relay",
		},
	}
}

// UpdateFrom overwrites non-zero values from other config into receiver.
// Only the fields exposed as command-line flags are considered.
func (c *Config) UpdateFrom(other Config) {
	if other.Addr != "" {
		c.Addr = other.Addr
	}
	if other.ReadHeaderTimeout != 0 {
		c.ReadHeaderTimeout = other.ReadHeaderTimeout
	}
	if other.ShutdownTimeout != 0 {
		c.ShutdownTimeout = other.ShutdownTimeout
	}
	if other.Log.Level != "" {
		c.Log.Level = other.Log.Level
	}
	if other.Store.Driver != "" {
		c.Store.Driver = other.Store.Driver
	}
	if other.Broadcast.Driver != "" {
		c.Broadcast.Driver = other.Broadcast.Driver
	}
}

// Validate reports configuration that cannot run.
func (c *Config) Validate() error {
	var errs []error

	if c.Addr == "" {
		errs = append(errs, errors.New("addr is required"))
	}
	if c.MaxMessageBytes <= 0 {
		errs = append(errs, errors.New("max_message_bytes must be positive"))
	}

	switch c.Store.Driver {
	case StoreMongo:
		if c.Store.MongoURI == "" {
			errs = append(errs, errors.New("store.mongo_uri is required for the mongo driver"))
		}
	case StoreSQLite:
		if c.Store.SQLitePath == "" {
			errs = append(errs, errors.New("store.sqlite_path is required for the sqlite driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("store.driver %q is not one of mongo, sqlite", c.Store.Driver))
	}
	if c.Store.Timeout <= 0 {
		errs = append(errs, errors.New("store.timeout must be positive"))
	}

	switch c.Broadcast.Driver {
	case BroadcastLocal, "":
	case BroadcastRedis:
		if c.Broadcast.RedisAddr == "" {
			errs = append(errs, errors.New("broadcast.redis_addr is required for the redis driver"))
		}
	case BroadcastNATS:
		if c.Broadcast.NATSURL == "" {
			errs = append(errs, errors.New("broadcast.nats_url is required for the nats driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("broadcast.driver %q is not one of local, redis, nats", c.Broadcast.Driver))
	}

	if c.Broadcast.PublishTimeout <= 0 {
		errs = append(errs, errors.New("broadcast.publish_timeout must be positive"))
	}
	if c.Broadcast.Driver == BroadcastNATS && c.Broadcast.NATSTimeout <= 0 {
		errs = append(errs, errors.New("broadcast.nats_timeout must be positive for the nats driver"))
	}

	if c.Relay.HistoryLimit <= 0 {
		errs = append(errs, errors.New("relay.history_limit must be positive"))
	}
	if c.Relay.Workers < 0 {
		errs = append(errs, errors.New("relay.workers must not be negative"))
	}
	if c.Relay.RatePerMinute < 0 {
		errs = append(errs, errors.New("relay.rate_per_minute must not be negative"))
	}

	return errors.Join(errs...)
}
