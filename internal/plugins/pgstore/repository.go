package pgstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ustczzh/AlephNote/internal/common"
	"github.com/ustczzh/AlephNote/internal/dbx"
	"github.com/ustczzh/AlephNote/internal/models"
)

// Repository is the SQL layer over the shared notes table. Every query is
// scoped to one account so several users can share a database.
type Repository struct {
	db dbx.DBTX
}

func NewRepository(db dbx.DBTX) *Repository {
	return &Repository{db: db}
}

type VersionRow struct {
	ID      string
	Version int64
}

func (r *Repository) ListVersions(ctx context.Context, account string) ([]VersionRow, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, version FROM notes WHERE account = $1`, account)
	if err != nil {
		return nil, fmt.Errorf("failed to select notes: %w", err)
	}
	return dbx.CollectRows(rows, func(rows *sql.Rows) (VersionRow, error) {
		var v VersionRow
		return v, rows.Scan(&v.ID, &v.Version)
	})
}

func (r *Repository) Get(ctx context.Context, account, id string) (*models.Note, int64, error) {
	var (
		n       models.Note
		tags    string
		version int64
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, title, body, tags, modified_at, version FROM notes WHERE account = $1 AND id = $2`,
		account, id).Scan(&n.ID, &n.Title, &n.Text, &tags, &n.ModifiedAt, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, 0, fmt.Errorf("note %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get note %s: %w", id, err)
	}
	if err := json.Unmarshal([]byte(tags), &n.Tags); err != nil {
		return nil, 0, fmt.Errorf("%w: note %s tags: %v", common.ErrSerialization, id, err)
	}
	return &n, version, nil
}

// Upsert writes the note and returns the version stored by the database.
// Versions come from one sequence shared by all rows, so a note deleted and
// written again never gets a version it had before.
func (r *Repository) Upsert(ctx context.Context, account string, n *models.Note) (int64, error) {
	tags, err := json.Marshal(tagsOrEmpty(n.Tags))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", common.ErrSerialization, err)
	}

	query := `
		INSERT INTO notes (account, id, title, body, tags, modified_at, version)
		VALUES ($1, $2, $3, $4, $5, $6, nextval('notes_version_seq'))
		ON CONFLICT (account, id)
		DO UPDATE SET
			title = EXCLUDED.title,
			body = EXCLUDED.body,
			tags = EXCLUDED.tags,
			modified_at = EXCLUDED.modified_at,
			version = nextval('notes_version_seq')
		RETURNING version;
	`
	var version int64
	err = r.db.QueryRowContext(ctx, query,
		account, n.ID, n.Title, n.Text, string(tags), n.ModifiedAt.UTC().Truncate(time.Microsecond)).Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return version, nil
}

func (r *Repository) Delete(ctx context.Context, account, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM notes WHERE account = $1 AND id = $2`, account, id)
	if err != nil {
		return fmt.Errorf("failed to delete note %s: %w", id, err)
	}
	return nil
}

func tagsOrEmpty(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
