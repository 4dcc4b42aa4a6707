package notes

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

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const selectNote = `SELECT id, title, text, tags, modified_at, revision, dirty FROM notes`

func scanNote(row interface{ Scan(...any) error }) (*models.Note, error) {
	var (
		n        models.Note
		tags     string
		modified string
	)
	if err := row.Scan(&n.ID, &n.Title, &n.Text, &tags, &modified, &n.Revision, &n.Dirty); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(tags), &n.Tags); err != nil {
		return nil, fmt.Errorf("%w: note %s tags: %v", common.ErrSerialization, n.ID, err)
	}
	t, err := time.Parse(time.RFC3339Nano, modified)
	if err != nil {
		return nil, fmt.Errorf("%w: note %s modified_at: %v", common.ErrSerialization, n.ID, err)
	}
	n.ModifiedAt = t
	return &n, nil
}

func (r *SQLiteRepository) GetAll(ctx context.Context) ([]*models.Note, error) {
	rows, err := r.db.QueryContext(ctx, selectNote+` ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}
	result, err := dbx.CollectRows(rows, func(rows *sql.Rows) (*models.Note, error) {
		return scanNote(rows)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read notes: %w", err)
	}
	return result, nil
}

func (r *SQLiteRepository) Get(ctx context.Context, id string) (*models.Note, error) {
	n, err := scanNote(r.db.QueryRowContext(ctx, selectNote+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("note %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get note[%s]: %w", id, err)
	}
	return n, nil
}

func (r *SQLiteRepository) Upsert(ctx context.Context, n *models.Note) error {
	tags := n.Tags
	if tags == nil {
		tags = []string{}
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrSerialization, err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO notes (id, title, text, tags, modified_at, revision, dirty)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			text = excluded.text,
			tags = excluded.tags,
			modified_at = excluded.modified_at,
			revision = excluded.revision,
			dirty = excluded.dirty
	`, n.ID, n.Title, n.Text, string(b), n.ModifiedAt.UTC().Format(time.RFC3339Nano), n.Revision, n.Dirty)
	if err != nil {
		return fmt.Errorf("failed to upsert note[%s]: %w", n.ID, err)
	}
	return nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM notes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete note[%s]: %w", id, err)
	}
	return nil
}
