// Package syncstate keeps per-provider sync bookkeeping: remote deletions
// still to be carried out and the provider's persisted sync data.
package syncstate

import (
	"context"

	"github.com/google/uuid"
	"github.com/ustczzh/AlephNote/internal/remote"
)

type Repository interface {
	AddDeletion(ctx context.Context, provider uuid.UUID, id string) error
	ClearDeletion(ctx context.Context, provider uuid.UUID, id string) error
	ListDeletions(ctx context.Context, provider uuid.UUID) ([]string, error)

	// GetSyncData returns nil when nothing was stored for provider.
	GetSyncData(ctx context.Context, provider uuid.UUID) (*remote.SyncData, error)
	SetSyncData(ctx context.Context, data *remote.SyncData) error
}
