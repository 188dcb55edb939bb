// Package db ships the schema migration files inside the binary, so a
// client can bring a fresh database up to date no matter which
// directory it runs from.
package db

import (
	"embed"
	"io/fs"
)

//go:embed migrations/*.sql
var embedded embed.FS

// Migrations returns the migration files rooted at the directory that
// contains them, pairs of NNNN_name.up.sql / NNNN_name.down.sql.
func Migrations() fs.FS {
	sub, err := fs.Sub(embedded, "migrations")
	if err != nil {
		// go:embed guarantees the migrations directory exists.
		panic(err)
	}
	return sub
}
