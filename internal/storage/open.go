package storage

import (
	"context"
	"log"
	"time"
)

// Backend names
const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// Options selects and configures a backend
type Options struct {
	Backend     string
	DataDir     string
	RedisURL    string
	RedisTTL    time.Duration
	DatabaseURL string
}

// Open creates the configured backend. Callers should Close the result when
// it implements Closer.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Backend {
	case BackendMemory:
		log.Printf("[STORAGE] Using in-memory storage; data is lost on exit")
		return NewMemoryStore(), nil
	case BackendFile, "":
		log.Printf("[STORAGE] Using file storage in %s", opts.DataDir)
		return NewFileStore(opts.DataDir)
	case BackendRedis:
		if opts.RedisURL == "" {
			return nil, &ConfigError{Backend: opts.Backend, Message: "REDIS_URL is required"}
		}
		log.Printf("[STORAGE] Using redis storage")
		return ConnectRedis(ctx, opts.RedisURL, opts.RedisTTL)
	case BackendPostgres:
		if opts.DatabaseURL == "" {
			return nil, &ConfigError{Backend: opts.Backend, Message: "DATABASE_URL is required"}
		}
		log.Printf("[STORAGE] Using postgres storage")
		return ConnectPostgres(ctx, opts.DatabaseURL)
	default:
		return nil, &ConfigError{Backend: opts.Backend, Message: "unknown backend (expected memory, file, redis or postgres)"}
	}
}

// Close closes store if it holds connections
func Close(store Store) error {
	if c, ok := store.(Closer); ok {
		return c.Close()
	}
	return nil
}
