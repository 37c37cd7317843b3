package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/shikkhajar/internal/logging"
	"github.com/example/shikkhajar/internal/persistence"
	"github.com/example/shikkhajar/internal/persistence/sqlite/migration"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Storage persists collection documents in a single SQLite records table.
type Storage struct {
	pool  *ConnectionPool
	retry RetryConfig
	now   func() time.Time
}

// Open connects to the database at dsn. Call Migrate before first use.
func Open(dsn string) (*Storage, error) {
	pool, err := NewConnectionPool(migration.DefaultSQLiteConfig(dsn))
	if err != nil {
		return nil, err
	}
	return &Storage{
		pool:  pool,
		retry: DefaultRetryConfig(),
		now:   time.Now,
	}, nil
}

// Close releases the underlying connection pool.
func (s *Storage) Close() error {
	return s.pool.Close()
}

// Migrate applies every pending schema migration.
func (s *Storage) Migrate(ctx context.Context) error {
	logger := logging.FromContext(ctx)
	if logger == nil {
		logger = slog.Default()
	}
	manager := migration.NewMigrationManager(
		migration.NewFileScanner(),
		migration.NewSQLiteExecutor(s.pool.DB()),
		migrationFiles,
		"migrations",
		logger,
	)
	if err := manager.RunMigrations(ctx); err != nil {
		return fmt.Errorf("sqlite: migrate: %w", err)
	}
	return nil
}

// MigrationStatus reports applied and pending schema versions.
func (s *Storage) MigrationStatus(ctx context.Context) (*migration.MigrationStatus, error) {
	manager := migration.NewMigrationManager(
		migration.NewFileScanner(),
		migration.NewSQLiteExecutor(s.pool.DB()),
		migrationFiles,
		"migrations",
		logging.FromContext(ctx),
	)
	return manager.GetMigrationStatus(ctx)
}

// Get returns the stored value for key or persistence.ErrNotFound.
func (s *Storage) Get(ctx context.Context, key persistence.Key) ([]byte, error) {
	var value string
	err := withRetry(ctx, s.retry, func() error {
		return s.pool.DB().QueryRowContext(ctx,
			`SELECT value FROM records WHERE key = ?`, string(key)).Scan(&value)
	})
	if err != nil {
		return nil, err
	}
	return []byte(value), nil
}

// SetMany upserts every entry inside one transaction.
func (s *Storage) SetMany(ctx context.Context, entries map[persistence.Key][]byte) error {
	if len(entries) == 0 {
		return nil
	}
	updatedAt := s.now().UTC().Format(time.RFC3339Nano)

	return withRetry(ctx, s.retry, func() error {
		return s.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
			for key, value := range entries {
				_, err := tx.ExecContext(ctx, `
					INSERT INTO records (key, value, updated_at) VALUES (?, ?, ?)
					ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
					string(key), string(value), updatedAt)
				if err != nil {
					return fmt.Errorf("sqlite: write %s: %w", key, err)
				}
			}
			return nil
		})
	})
}

// Delete removes the given keys inside one transaction. Missing keys are ignored.
func (s *Storage) Delete(ctx context.Context, keys ...persistence.Key) error {
	if len(keys) == 0 {
		return nil
	}
	return withRetry(ctx, s.retry, func() error {
		return s.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
			for _, key := range keys {
				if _, err := tx.ExecContext(ctx, `DELETE FROM records WHERE key = ?`, string(key)); err != nil {
					return fmt.Errorf("sqlite: delete %s: %w", key, err)
				}
			}
			return nil
		})
	})
}

// UpdatedAt reports when key was last written.
func (s *Storage) UpdatedAt(ctx context.Context, key persistence.Key) (time.Time, error) {
	var raw string
	err := withRetry(ctx, s.retry, func() error {
		return s.pool.DB().QueryRowContext(ctx,
			`SELECT updated_at FROM records WHERE key = ?`, string(key)).Scan(&raw)
	})
	if err != nil {
		return time.Time{}, err
	}
	return time.Parse(time.RFC3339Nano, raw)
}
