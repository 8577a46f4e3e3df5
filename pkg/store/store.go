// Package store provides key-value persistence for the portfolio.
//
// The portfolio is saved under a single key as a JSON array of records (see
// [Encode] and [Decode]). Backends only move opaque bytes:
//   - file: one JSON file per key below a data directory, for CLI usage
//   - redis: a Redis string per key, for shared deployments
//   - mongo: one document per key in a MongoDB collection
//   - none: discards everything
//
// # Usage
//
//	s, err := store.Open(ctx, store.Options{Backend: store.BackendFile, Path: dir})
//	if err != nil {
//	    return err
//	}
//	defer s.Close()
//
//	data, ok, err := s.Get(ctx, store.DefaultKey)
//
// Persistence is best-effort: a failing backend never corrupts the in-memory
// portfolio, and callers decide whether to surface the error.
package store

import (
	"context"
	"fmt"

	"github.com/matzehuels/coinstack/pkg/errors"
)

// DefaultKey is the key the portfolio is saved under.
const DefaultKey = "coinstack:portfolio"

// Backend names accepted by Open.
const (
	BackendFile  = "file"
	BackendRedis = "redis"
	BackendMongo = "mongo"
	BackendNone  = "none"
)

// Store is a minimal key-value store.
type Store interface {
	// Get returns the value for key. A missing key is (nil, false, nil).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key, replacing any previous value.
	Set(ctx context.Context, key string, data []byte) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// Options selects and configures a backend.
type Options struct {
	Backend string

	// file
	Path string

	// redis
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// mongo
	MongoURI        string
	MongoDatabase   string
	MongoCollection string
}

// Open creates the store selected by opts.Backend. An empty backend means file.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Backend {
	case BackendFile, "":
		return NewFileStore(opts.Path)
	case BackendRedis:
		return NewRedisStore(ctx, RedisConfig{
			Addr:     opts.RedisAddr,
			Password: opts.RedisPassword,
			DB:       opts.RedisDB,
		})
	case BackendMongo:
		return NewMongoStore(ctx, MongoConfig{
			URI:        opts.MongoURI,
			Database:   opts.MongoDatabase,
			Collection: opts.MongoCollection,
		})
	case BackendNone:
		return NewNullStore(), nil
	default:
		return nil, errors.New(errors.ErrCodeInvalidConfig, "unknown store backend %q", opts.Backend)
	}
}

// Name returns the backend name of s, used in logs and hooks.
func Name(s Store) string {
	switch s.(type) {
	case *FileStore:
		return BackendFile
	case *RedisStore:
		return BackendRedis
	case *MongoStore:
		return BackendMongo
	case *NullStore:
		return BackendNone
	case *MemoryStore:
		return "memory"
	}
	return fmt.Sprintf("%T", s)
}
