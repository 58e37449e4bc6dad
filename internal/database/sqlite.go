package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"
	_ "github.com/tursodatabase/libsql-client-go/libsql"
)

// DB is a Store backed by database/sql. It serves both local SQLite files and
// remote libSQL databases.
type DB struct {
	conn *sql.DB
	now  func() time.Time
}

// NewSQLite opens (or creates) a local database file with the sqlite-vec
// extension registered.
func NewSQLite(ctx context.Context, path string) (*DB, error) {
	sqlite_vec.Auto()
	conn, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	return newDB(ctx, conn)
}

// NewLibSQL connects to a remote libSQL database such as Turso.
func NewLibSQL(ctx context.Context, url, token string) (*DB, error) {
	dsn := url
	if token != "" {
		dsn = fmt.Sprintf("%s?authToken=%s", url, token)
	}
	conn, err := sql.Open("libsql", dsn)
	if err != nil {
		return nil, fmt.Errorf("open libsql: %w", err)
	}
	return newDB(ctx, conn)
}

func newDB(ctx context.Context, conn *sql.DB) (*DB, error) {
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := Migrate(ctx, conn); err != nil {
		conn.Close()
		return nil, err
	}
	return &DB{conn: conn, now: time.Now}, nil
}

// Conn exposes the underlying connection pool.
func (db *DB) Conn() *sql.DB {
	return db.conn
}

func (db *DB) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := db.conn.QueryRowContext(ctx, `SELECT value FROM kv_entries WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get %s: %w", key, err)
	}
	return value, true, nil
}

func (db *DB) Put(ctx context.Context, key, value string) error {
	query := `
		INSERT INTO kv_entries (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`
	if _, err := db.conn.ExecContext(ctx, query, key, value, db.now().UTC().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

func (db *DB) Delete(ctx context.Context, key string) error {
	if _, err := db.conn.ExecContext(ctx, `DELETE FROM kv_entries WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

func (db *DB) Close() error {
	return db.conn.Close()
}
