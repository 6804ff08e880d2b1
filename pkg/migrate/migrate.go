// Package migrate applies the embedded SQL migrations in migrations/ with
// goose. cmd/migrate calls it so that migrations run from the embedded
// files instead of shelling out to the goose binary; the server does not
// run migrations at startup.
package migrate

import (
	"database/sql"
	"embed"

	"github.com/Abraxas-365/identity-core/pkg/errx"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var embedded embed.FS

const dir = "migrations"

func init() {
	goose.SetBaseFS(embedded)
	if err := goose.SetDialect("postgres"); err != nil {
		panic(err)
	}
}

// Up applies every pending migration.
func Up(db *sql.DB) error {
	if err := goose.Up(db, dir); err != nil {
		return errx.Wrap(err, "failed to apply migrations", errx.TypeInternal)
	}
	return nil
}

// Down rolls back the most recently applied migration.
func Down(db *sql.DB) error {
	if err := goose.Down(db, dir); err != nil {
		return errx.Wrap(err, "failed to roll back migration", errx.TypeInternal)
	}
	return nil
}

// Status logs the applied/pending state of every migration file.
func Status(db *sql.DB) error {
	if err := goose.Status(db, dir); err != nil {
		return errx.Wrap(err, "failed to read migration status", errx.TypeInternal)
	}
	return nil
}
