// Package schemas provides embedded SQL migration files.
package schemas

import (
	"embed"
	"fmt"
	"io/fs"
)

// Migrations contains the SQL migration files, one directory per dialect.
//
//go:embed migrations/mysql/*.sql migrations/sqlite/*.sql
var Migrations embed.FS

// MigrationsFor returns the migrations of one dialect ("mysql" or "sqlite").
func MigrationsFor(dialect string) (fs.FS, error) {
	switch dialect {
	case "mysql", "sqlite":
	default:
		return nil, fmt.Errorf("no migrations for dialect %q", dialect)
	}
	sub, err := fs.Sub(Migrations, "migrations/"+dialect)
	if err != nil {
		return nil, fmt.Errorf("fs.Sub(%s) > %w", dialect, err)
	}
	return sub, nil
}
