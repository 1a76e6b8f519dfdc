// Package dbtest spins up an ephemeral Postgres database per test, with the
// full schema applied, the way the rest of this stack isolates persistence
// tests from a shared development database.
package dbtest

import (
	"net/http"
	"testing"

	migrate "github.com/rubenv/sql-migrate"
	"github.com/stellar/go/support/db/dbtest"

	"github.com/innovategy/innosystem/db"
	"github.com/innovategy/innosystem/db/migrations"
)

// Open returns a fresh database with every migration in db/migrations
// applied. Callers are responsible for calling Close when done.
func Open(t *testing.T) *dbtest.DB {
	d := dbtest.Postgres(t)

	conn := d.Open()
	defer conn.Close()

	ms := migrate.MigrationSet{TableName: db.MigrationsTableName}
	source := migrate.HttpFileSystemMigrationSource{FileSystem: http.FS(migrations.FS)}
	if _, err := ms.ExecMax(conn.DB, "postgres", source, migrate.Up, 0); err != nil {
		t.Fatal(err)
	}

	return d
}
