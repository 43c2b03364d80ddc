package config

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"cloudkv/internal/kvsync"

	"github.com/caarlos0/env/v11"
)

// Store backends.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
)

// Config holds server and client configuration.
type Config struct {
	ListenAddr  string        `env:"CLOUDKV_LISTEN" envDefault:":50051"`
	ServerID    string        `env:"CLOUDKV_SERVER_ID" envDefault:"cloudkv-1"`
	Backend     string        `env:"CLOUDKV_BACKEND" envDefault:"memory"`
	DBPath      string        `env:"CLOUDKV_DB_PATH"`
	RemoteAddr  string        `env:"CLOUDKV_REMOTE" envDefault:"127.0.0.1:50051"`
	ClientID    string        `env:"CLOUDKV_CLIENT_ID" envDefault:"cloudkv-cli"`
	CallTimeout time.Duration `env:"CLOUDKV_CALL_TIMEOUT" envDefault:"5s"`
	LogLevel    string        `env:"CLOUDKV_LOG_LEVEL" envDefault:"info"`
	Seeds       string        `env:"CLOUDKV_SEEDS"`
}

// Seed is an initial entry applied to a served store.
type Seed struct {
	Key   kvsync.Key
	Value any
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// RegisterFlags binds command-line flags to c. Current field values become
// the flag defaults, so flags override the environment.
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.ListenAddr, "listen", c.ListenAddr, "address to serve the store on")
	fs.StringVar(&c.ServerID, "server-id", c.ServerID, "server identifier used in logs")
	fs.StringVar(&c.Backend, "backend", c.Backend, "store backend: memory or sqlite")
	fs.StringVar(&c.DBPath, "db", c.DBPath, "sqlite database path")
	fs.StringVar(&c.RemoteAddr, "remote", c.RemoteAddr, "address of the store server")
	fs.StringVar(&c.ClientID, "client-id", c.ClientID, "client identifier sent with each call")
	fs.DurationVar(&c.CallTimeout, "timeout", c.CallTimeout, "per-call timeout")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "debug, info, warn or error")
	fs.StringVar(&c.Seeds, "seeds", c.Seeds, "initial entries: key=value,key2=value2")
}

// Validate checks that the configuration is consistent.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendMemory:
	case BackendSQLite:
		if strings.TrimSpace(c.DBPath) == "" {
			return fmt.Errorf("backend %s requires a database path", BackendSQLite)
		}
	default:
		return fmt.Errorf("unknown backend: %q", c.Backend)
	}
	if c.CallTimeout <= 0 {
		return fmt.Errorf("call timeout must be positive, got %s", c.CallTimeout)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	if _, err := ParseSeeds(c.Seeds); err != nil {
		return err
	}
	return nil
}

// Level returns the configured slog level.
func (c *Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", c.LogLevel, err)
	}
	return level, nil
}

// ParseSeeds parses a comma-separated list of entries in the format:
// "key1=value1,key2=value2". Values that are valid JSON are decoded;
// anything else is kept as a string.
func ParseSeeds(seedsStr string) ([]Seed, error) {
	if seedsStr == "" {
		return []Seed{}, nil
	}

	parts := strings.Split(seedsStr, ",")
	seeds := make([]Seed, 0, len(parts))

	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		kv := strings.SplitN(part, "=", 2)
		if len(kv) != 2 {
			return nil, fmt.Errorf("invalid seed format: %s (expected key=value)", part)
		}

		name := strings.TrimSpace(kv[0])
		raw := strings.TrimSpace(kv[1])
		if name == "" || raw == "" {
			return nil, fmt.Errorf("seed key and value cannot be empty: %s", part)
		}

		key, err := kvsync.ParseKey(name)
		if err != nil {
			return nil, fmt.Errorf("invalid seed: %w", err)
		}

		seeds = append(seeds, Seed{Key: key, Value: ParseValue(raw)})
	}

	return seeds, nil
}

// ParseValue decodes raw as JSON, falling back to the raw string. Numbers
// are kept as json.Number so they are stored with their exact digits.
func ParseValue(raw string) any {
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()

	var value any
	if err := dec.Decode(&value); err != nil {
		return raw
	}
	if _, err := dec.Token(); err != io.EOF {
		return raw
	}
	return value
}
