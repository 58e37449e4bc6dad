// Package database stores small JSON documents under fixed keys. It replaces
// the browser's local storage with SQLite, libSQL or Postgres.
package database

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/letieu/strategia/config"
)

// Store is a key/value store of JSON-encoded strings.
type Store interface {
	// Get returns the value for key and whether it exists.
	Get(ctx context.Context, key string) (string, bool, error)
	// Put creates or replaces the value for key.
	Put(ctx context.Context, key, value string) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	Close() error
}

// Open connects to the configured backend and applies migrations.
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	var (
		s   Store
		err error
	)
	switch cfg.Database.Type {
	case "sqlite":
		s, err = NewSQLite(ctx, cfg.Database.DBName)
	case "libsql":
		s, err = NewLibSQL(ctx, cfg.Database.Url, cfg.Database.Token)
	case "postgres":
		s, err = NewPostgres(ctx, cfg.Database.DSN)
	case "memory":
		s = NewMemory()
	default:
		return nil, fmt.Errorf("unknown database type %q", cfg.Database.Type)
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// GetJSON decodes the value stored under key into v. It reports false when the
// key does not exist.
func GetJSON(ctx context.Context, s Store, key string, v any) (bool, error) {
	raw, ok, err := s.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

// PutJSON encodes v and stores it under key.
func PutJSON(ctx context.Context, s Store, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.Put(ctx, key, string(raw))
}
