package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS kv (
    namespace  TEXT NOT NULL,
    key        TEXT NOT NULL,
    value      TEXT NOT NULL,
    updated_at INTEGER NOT NULL,
    PRIMARY KEY (namespace, key)
) WITHOUT ROWID;
`

// SQLite stores the local cache in a single-file database. It is the default
// medium for a local install.
type SQLite struct {
	db *sql.DB
}

func OpenSQLite(path string) (*SQLite, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create cache directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}

	// SQLite only supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize cache schema: %w", err)
	}

	return &SQLite{db: db}, nil
}

func (s *SQLite) Namespace(ns string) KV {
	return &sqliteKV{db: s.db, ns: ns}
}

func (s *SQLite) Close(context.Context) error {
	return s.db.Close()
}

type sqliteKV struct {
	db *sql.DB
	ns string
}

func (kv *sqliteKV) Get(ctx context.Context, key string, v any) (bool, error) {
	var raw string
	err := kv.db.QueryRowContext(ctx,
		"SELECT value FROM kv WHERE namespace = ? AND key = ?", kv.ns, key,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return false, err
	}
	return true, nil
}

func (kv *sqliteKV) Set(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = kv.db.ExecContext(ctx, `
INSERT INTO kv (namespace, key, value, updated_at) VALUES (?, ?, ?, ?)
ON CONFLICT (namespace, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		kv.ns, key, string(raw), time.Now().Unix())
	return err
}

func (kv *sqliteKV) Remove(ctx context.Context, key string) error {
	_, err := kv.db.ExecContext(ctx, "DELETE FROM kv WHERE namespace = ? AND key = ?", kv.ns, key)
	return err
}

func (kv *sqliteKV) Clear(ctx context.Context) error {
	_, err := kv.db.ExecContext(ctx, "DELETE FROM kv WHERE namespace = ?", kv.ns)
	return err
}
