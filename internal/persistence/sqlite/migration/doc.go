// Package migration provides a versioned schema migration system for the
// SQLite record store.
//
// Migrations are read from an fs.FS (normally an embedded directory) and
// must follow the naming convention {version}_{description}.sql, for example
// "001_create_records.sql". Applied versions are tracked in the
// schema_migrations table so each file runs exactly once, inside its own
// transaction.
//
// Example usage:
//
//	manager := NewMigrationManager(NewFileScanner(), NewSQLiteExecutor(db), migrations, "migrations", logger)
//	if err := manager.RunMigrations(ctx); err != nil {
//		return fmt.Errorf("migrate: %w", err)
//	}
package migration
