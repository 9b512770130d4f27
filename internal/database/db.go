// Package database provides database connection management.
package database

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/at-ishikawa/cantocards/internal/config"
	"github.com/at-ishikawa/cantocards/schemas"
)

// Dialects of the result store.
const (
	DialectMySQL  = "mysql"
	DialectSQLite = "sqlite"
)

// Open opens a MySQL connection using the provided config.
func Open(cfg config.DatabaseConfig) (*sqlx.DB, error) {
	mysqlCfg := mysql.NewConfig()
	mysqlCfg.User = cfg.Username
	mysqlCfg.Passwd = cfg.Password
	mysqlCfg.Net = "tcp"
	mysqlCfg.Addr = fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	mysqlCfg.DBName = cfg.Database
	mysqlCfg.ParseTime = true
	mysqlCfg.MultiStatements = true
	if cfg.TLS {
		mysqlCfg.TLSConfig = "true"
	}
	if len(cfg.Params) > 0 {
		mysqlCfg.Params = cfg.Params
	}

	db, err := sqlx.Open("mysql", mysqlCfg.FormatDSN())
	if err != nil {
		return nil, fmt.Errorf("sqlx.Open() > %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Second)
	}

	return db, nil
}

// OpenSQLite opens (and creates if needed) a SQLite database file.
// SQLite allows a single writer, so the pool is limited to one connection.
func OpenSQLite(path string) (*sqlx.DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("os.MkdirAll(%s) > %w", dir, err)
		}
	}

	db, err := sqlx.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("sqlx.Open(%s) > %w", path, err)
	}
	db.SetMaxOpenConns(1)
	return db, nil
}

// OpenStore opens the result store database selected by cfg.Store.Driver.
func OpenStore(cfg *config.Config) (*sqlx.DB, string, error) {
	switch cfg.Store.Driver {
	case DialectMySQL:
		db, err := Open(cfg.Database)
		if err != nil {
			return nil, "", err
		}
		return db, DialectMySQL, nil
	case DialectSQLite:
		db, err := OpenSQLite(cfg.Store.Path)
		if err != nil {
			return nil, "", err
		}
		return db, DialectSQLite, nil
	default:
		return nil, "", fmt.Errorf("store driver %q has no database", cfg.Store.Driver)
	}
}

// Migrate applies every pending migration of the dialect.
func Migrate(ctx context.Context, db *sqlx.DB, dialect string) ([]*goose.MigrationResult, error) {
	migrations, err := schemas.MigrationsFor(dialect)
	if err != nil {
		return nil, fmt.Errorf("schemas.MigrationsFor() > %w", err)
	}

	gooseDialect := goose.DialectSQLite3
	if dialect == DialectMySQL {
		gooseDialect = goose.DialectMySQL
	}
	provider, err := goose.NewProvider(gooseDialect, db.DB, migrations)
	if err != nil {
		return nil, fmt.Errorf("goose.NewProvider() > %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return nil, fmt.Errorf("provider.Up() > %w", err)
	}
	return results, nil
}
