package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// KVEntry is the gorm model of one stored document.
type KVEntry struct {
	Key       string `gorm:"primaryKey"`
	Value     string `gorm:"not null"`
	UpdatedAt time.Time
}

func (KVEntry) TableName() string { return "kv_entries" }

// PostgresStore is a Store backed by gorm and Postgres.
type PostgresStore struct {
	db *gorm.DB
}

// connectAttempts bounds how long NewPostgres waits for a database that is
// still starting, e.g. under docker compose.
const connectAttempts = 10

// NewPostgres connects with retries and auto-migrates the entry table.
func NewPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	var db *gorm.DB
	backoff := retry.WithMaxRetries(connectAttempts-1, retry.NewConstant(2*time.Second))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		conn, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
		if err != nil {
			return retry.RetryableError(err)
		}
		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		if err := sqlDB.PingContext(ctx); err != nil {
			sqlDB.Close()
			return retry.RetryableError(err)
		}
		db = conn
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err := db.WithContext(ctx).AutoMigrate(&KVEntry{}); err != nil {
		return nil, fmt.Errorf("migrate postgres: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Get(ctx context.Context, key string) (string, bool, error) {
	var e KVEntry
	err := s.db.WithContext(ctx).First(&e, "key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get %s: %w", key, err)
	}
	return e.Value, true, nil
}

func (s *PostgresStore) Put(ctx context.Context, key, value string) error {
	e := KVEntry{Key: key, Value: value, UpdatedAt: time.Now().UTC()}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&e).Error
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, key string) error {
	if err := s.db.WithContext(ctx).Delete(&KVEntry{}, "key = ?", key).Error; err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
