package db

import (
	"context"
	"embed"
	"fmt"
	"net/http"

	migrate "github.com/rubenv/sql-migrate"
)

// MigrationsTableName is the name of the table sql-migrate uses to track
// which migrations have already been applied.
const MigrationsTableName = "schema_migrations"

// Migrate applies (or reverts) the embedded SQL migrations against dbURL.
// It opens and closes its own connection pool so that callers (the CLI, the
// integration test harness) don't need to share one with the server.
func Migrate(dbURL string, dir migrate.MigrationDirection, count int, migrationFiles embed.FS) (int, error) {
	pool, err := OpenDBConnectionPool(dbURL)
	if err != nil {
		return 0, fmt.Errorf("opening database connection pool: %w", err)
	}
	defer pool.Close()

	ms := migrate.MigrationSet{TableName: MigrationsTableName}
	src := migrate.HttpFileSystemMigrationSource{FileSystem: http.FS(migrationFiles)}

	sqlDB, err := pool.SqlDB(context.Background())
	if err != nil {
		return 0, fmt.Errorf("fetching sql.DB: %w", err)
	}

	return ms.ExecMax(sqlDB, pool.DriverName(), src, dir, count)
}

// Status reports how many migrations have been applied versus how many are
// known, without applying anything.
func Status(dbURL string, migrationFiles embed.FS) (applied int, total int, err error) {
	pool, err := OpenDBConnectionPool(dbURL)
	if err != nil {
		return 0, 0, fmt.Errorf("opening database connection pool: %w", err)
	}
	defer pool.Close()

	src := migrate.HttpFileSystemMigrationSource{FileSystem: http.FS(migrationFiles)}
	all, err := src.FindMigrations()
	if err != nil {
		return 0, 0, fmt.Errorf("reading migration source: %w", err)
	}

	sqlDB, err := pool.SqlDB(context.Background())
	if err != nil {
		return 0, 0, fmt.Errorf("fetching sql.DB: %w", err)
	}

	recs, err := migrate.GetMigrationRecords(sqlDB, pool.DriverName())
	if err != nil {
		return 0, len(all), fmt.Errorf("reading migration records: %w", err)
	}

	return len(recs), len(all), nil
}
