// Package assets embeds files the server needs at runtime.
package assets

import (
	"embed"
	"io/fs"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Migrations returns the SQL migration files rooted at their directory,
// in the layout goose expects (NNNNN_name.sql).
func Migrations() (fs.FS, error) {
	return fs.Sub(migrations, "migrations")
}
