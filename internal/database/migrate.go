package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log"
	"os"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

const migrationsDir = "migrations"

func setupGoose() error {
	goose.SetBaseFS(embedMigrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	return nil
}

// Migrate brings the schema up to date without logging each step.
func Migrate(ctx context.Context, conn *sql.DB) error {
	if err := setupGoose(); err != nil {
		return err
	}
	goose.SetLogger(goose.NopLogger())
	if err := goose.UpContext(ctx, conn, migrationsDir); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// RunMigrations runs a goose command ("up", "down", "status", "version",
// "reset") against conn, logging progress to stderr.
func RunMigrations(ctx context.Context, conn *sql.DB, command string, args ...string) error {
	if err := setupGoose(); err != nil {
		return err
	}
	goose.SetLogger(log.New(os.Stderr, "", log.LstdFlags))
	if err := goose.RunContext(ctx, command, conn, migrationsDir, args...); err != nil {
		return fmt.Errorf("goose %s: %w", command, err)
	}
	return nil
}

// OpenSQL opens a raw connection for migration tooling. Postgres is migrated
// by gorm and is not supported here.
func OpenSQL(dbType, dbName, url, token string) (*sql.DB, error) {
	switch dbType {
	case "sqlite":
		return sql.Open("sqlite3", dbName)
	case "libsql":
		dsn := url
		if token != "" {
			dsn = fmt.Sprintf("%s?authToken=%s", url, token)
		}
		return sql.Open("libsql", dsn)
	default:
		return nil, fmt.Errorf("migrations are not supported for database type %q", dbType)
	}
}
