package storage

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite" // pure-Go SQLite driver

	"github.com/dmitrijs2005/tailorbook/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/tailorbook/internal/client/repositories/records"
)

//go:embed migrations/*.sql
var migrations embed.FS

type Repositories struct {
	DB       *sql.DB
	Metadata metadata.Repository
	Records  *records.LocalStore
}

func (r *Repositories) Close() error {
	return r.DB.Close()
}

func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations)
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}

// Open opens the database at dsn, migrates it and builds the repositories.
func Open(ctx context.Context, dsn string) (*Repositories, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// a single writer keeps ":memory:" databases shared and avoids SQLITE_BUSY
	db.SetMaxOpenConns(1)

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	kv := metadata.NewSQLiteRepository(db)
	return &Repositories{
		DB:       db,
		Metadata: kv,
		Records:  records.NewLocalStore(kv),
	}, nil
}
