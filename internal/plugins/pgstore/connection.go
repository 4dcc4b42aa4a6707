package pgstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"strconv"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pressly/goose/v3"
	"github.com/ustczzh/AlephNote/internal/common"
	"github.com/ustczzh/AlephNote/internal/logging"
	"github.com/ustczzh/AlephNote/internal/models"
	"github.com/ustczzh/AlephNote/internal/plugins/pgstore/migrations"
	"github.com/ustczzh/AlephNote/internal/remote"
)

// RunMigrations brings the notes table up to date.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	p, err := goose.NewProvider(goose.DialectPostgres, db, migrations.Migrations)
	if err != nil {
		return err
	}
	_, err = p.Up(ctx)
	return err
}

var migrate = RunMigrations

type Connection struct {
	db       *sql.DB
	repo     *Repository
	account  string
	log      logging.Logger
	migrated bool
}

func newConnection(db *sql.DB, account string, log logging.Logger) *Connection {
	return &Connection{db: db, repo: NewRepository(db), account: account, log: log}
}

func (c *Connection) Connect(ctx context.Context) error {
	if err := c.db.PingContext(ctx); err != nil {
		return mapError(err)
	}
	if c.migrated {
		return nil
	}
	if err := migrate(ctx, c.db); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: migrations: %v", common.ErrConfiguration, err)
		}
		return mapError(fmt.Errorf("migration error: %w", err))
	}
	c.migrated = true
	c.log.Debug(ctx, "notes table ready")
	return nil
}

func (c *Connection) List(ctx context.Context) ([]remote.Ref, error) {
	rows, err := c.repo.ListVersions(ctx, c.account)
	if err != nil {
		return nil, mapError(err)
	}
	refs := make([]remote.Ref, 0, len(rows))
	for _, r := range rows {
		refs = append(refs, remote.Ref{ID: r.ID, Revision: strconv.FormatInt(r.Version, 10)})
	}
	return refs, nil
}

func (c *Connection) Fetch(ctx context.Context, id string) (*models.Note, error) {
	n, version, err := c.repo.Get(ctx, c.account, id)
	if err != nil {
		return nil, mapError(err)
	}
	n.Revision = strconv.FormatInt(version, 10)
	return n, nil
}

func (c *Connection) Push(ctx context.Context, note *models.Note) (string, error) {
	version, err := c.repo.Upsert(ctx, c.account, note)
	if err != nil {
		return "", mapError(err)
	}
	return strconv.FormatInt(version, 10), nil
}

func (c *Connection) Delete(ctx context.Context, id string) error {
	if err := c.repo.Delete(ctx, c.account, id); err != nil {
		return mapError(err)
	}
	return nil
}

func (c *Connection) Close() error {
	return c.db.Close()
}

func mapError(err error) error {
	if err == nil || remote.Classified(err) {
		return err
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "28000", "28P01", "42501":
			return fmt.Errorf("%w: %v", common.ErrAuthentication, err)
		case "3D000", "42P01":
			return fmt.Errorf("%w: %v", common.ErrConfiguration, err)
		case "57014":
			return fmt.Errorf("%w: %v", common.ErrTimeout, err)
		case "22P02", "22021":
			return fmt.Errorf("%w: %v", common.ErrSerialization, err)
		}
	}
	mapped := remote.MapTransportError(err)
	if !remote.Classified(mapped) {
		return fmt.Errorf("%w: %v", common.ErrNetwork, err)
	}
	return mapped
}
