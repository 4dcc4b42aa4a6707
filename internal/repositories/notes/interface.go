// Package notes persists the local note collection.
package notes

import (
	"context"

	"github.com/ustczzh/AlephNote/internal/models"
)

type Repository interface {
	GetAll(ctx context.Context) ([]*models.Note, error)
	Get(ctx context.Context, id string) (*models.Note, error)
	Upsert(ctx context.Context, n *models.Note) error
	Delete(ctx context.Context, id string) error
}
