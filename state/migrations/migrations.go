// Package migrations holds goose migrations for the roster schema. Tables are
// created by the table constructors in package state; migrations exist for
// fixes that have to run after the fact on live databases.
package migrations

import (
	"embed"

	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
)

//go:embed *.go
var migrationFS embed.FS

// Run applies any outstanding migrations.
func Run(db *sqlx.DB) error {
	goose.SetBaseFS(migrationFS)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return goose.Up(db.DB, ".")
}
