// Package repositories opens the local SQLite note store and wires its
// repositories.
package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"
	"github.com/ustczzh/AlephNote/internal/repositories/migrations"
	"github.com/ustczzh/AlephNote/internal/repositories/notes"
	"github.com/ustczzh/AlephNote/internal/repositories/syncstate"

	_ "modernc.org/sqlite"
)

type Repositories struct {
	DB        *sql.DB
	Notes     notes.Repository
	SyncState syncstate.Repository
}

func RunMigrations(ctx context.Context, db *sql.DB) error {
	p, err := goose.NewProvider(goose.DialectSQLite3, db, migrations.Migrations)
	if err != nil {
		return fmt.Errorf("failed to create migration provider: %w", err)
	}
	if _, err := p.Up(ctx); err != nil {
		return fmt.Errorf("failed to migrate: %w", err)
	}
	return nil
}

// InitDatabase opens dsn and brings the schema up to date. The caller owns
// Repositories.DB and closes it.
func InitDatabase(ctx context.Context, dsn string) (*Repositories, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// one writer; SQLite serialises anyway and this keeps :memory: databases
	// on a single connection
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, `PRAGMA busy_timeout = 5000`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to configure sqlite: %w", err)
	}

	if err := RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &Repositories{
		DB:        db,
		Notes:     notes.NewSQLiteRepository(db),
		SyncState: syncstate.NewSQLiteRepository(db),
	}, nil
}

// DSN turns a file path into a sqlite DSN with WAL enabled.
func DSN(path string) string {
	return "file:" + path + "?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
}
