package syncstate

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ustczzh/AlephNote/internal/common"
	"github.com/ustczzh/AlephNote/internal/dbx"
	"github.com/ustczzh/AlephNote/internal/remote"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) AddDeletion(ctx context.Context, provider uuid.UUID, id string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO pending_deletions (provider, id, created_at) VALUES (?, ?, ?)
		ON CONFLICT(provider, id) DO NOTHING
	`, provider.String(), id, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to add pending deletion[%s]: %w", id, err)
	}
	return nil
}

func (r *SQLiteRepository) ClearDeletion(ctx context.Context, provider uuid.UUID, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM pending_deletions WHERE provider = ? AND id = ?`, provider.String(), id)
	if err != nil {
		return fmt.Errorf("failed to clear pending deletion[%s]: %w", id, err)
	}
	return nil
}

func (r *SQLiteRepository) ListDeletions(ctx context.Context, provider uuid.UUID) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id FROM pending_deletions WHERE provider = ? ORDER BY created_at, id`, provider.String())
	if err != nil {
		return nil, fmt.Errorf("failed to list pending deletions: %w", err)
	}
	ids, err := dbx.CollectRows(rows, func(rows *sql.Rows) (string, error) {
		var id string
		return id, rows.Scan(&id)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read pending deletions: %w", err)
	}
	return ids, nil
}

func (r *SQLiteRepository) GetSyncData(ctx context.Context, provider uuid.UUID) (*remote.SyncData, error) {
	var raw []byte
	err := r.db.QueryRowContext(ctx, `SELECT data FROM sync_data WHERE provider = ?`, provider.String()).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sync data[%s]: %w", provider, err)
	}
	var d remote.SyncData
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("%w: sync data[%s]: %v", common.ErrSerialization, provider, err)
	}
	return &d, nil
}

func (r *SQLiteRepository) SetSyncData(ctx context.Context, data *remote.SyncData) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrSerialization, err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO sync_data (provider, data) VALUES (?, ?)
		ON CONFLICT(provider) DO UPDATE SET data = excluded.data
	`, data.Provider.String(), raw)
	if err != nil {
		return fmt.Errorf("failed to set sync data[%s]: %w", data.Provider, err)
	}
	return nil
}
