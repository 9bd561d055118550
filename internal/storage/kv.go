// Package storage is the local cache: a small key/value port with JSON
// values, plus the backends that persist it.
package storage

import (
	"context"
	"fmt"
	"log"

	"reposcanner/internal/config"
)

// KV is one namespace of the local cache. Values are stored as JSON and are
// opaque to the backend; writes are last-write-wins.
type KV interface {
	// Get decodes the value stored under key into v. It reports false when
	// the key is absent.
	Get(ctx context.Context, key string, v any) (bool, error)
	Set(ctx context.Context, key string, v any) error
	Remove(ctx context.Context, key string) error
	// Clear removes every key of the namespace.
	Clear(ctx context.Context) error
}

// Backend is a persistence medium partitioned into namespaces.
type Backend interface {
	Namespace(ns string) KV
	Close(ctx context.Context) error
}

// Open returns the backend selected by the configuration. When an encryption
// key is configured every namespace is sealed with it.
func Open(ctx context.Context, cfg *config.Config) (Backend, error) {
	var (
		backend Backend
		err     error
	)

	switch cfg.StorageDriver {
	case config.StorageMemory:
		backend = NewMemory()
	case config.StorageSQLite:
		backend, err = OpenSQLite(cfg.SQLitePath)
	case config.StorageMongo:
		backend, err = ConnectMongo(ctx, cfg.MongoDBURI, cfg.DatabaseName)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
	if err != nil {
		return nil, err
	}

	log.Printf("Local cache backend: %s", cfg.StorageDriver)

	if cfg.EncryptionKey == "" {
		return backend, nil
	}
	sealed, err := Sealed(backend, cfg.EncryptionKey)
	if err != nil {
		_ = backend.Close(ctx)
		return nil, err
	}
	return sealed, nil
}
