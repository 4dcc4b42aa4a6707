// Package remote is the contract between the sync engine and the storage
// backends. A Plugin describes a backend and builds Connections from a
// typed Configuration; the engine never sees backend-specific types.
package remote

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/ustczzh/AlephNote/internal/logging"
	"github.com/ustczzh/AlephNote/internal/models"
	"github.com/ustczzh/AlephNote/internal/settings"
)

// Descriptor identifies a provider. Lookups are by ID only.
type Descriptor struct {
	ID      uuid.UUID
	Name    string
	Version string
}

// Configuration is the per-provider settings bag.
type Configuration interface {
	// Fields binds the persisted settings of this configuration.
	Fields() []settings.Field

	// Validate reports missing or inconsistent values, wrapped in
	// common.ErrConfiguration.
	Validate() error

	Clone() Configuration
}

// Ref is one entry of a remote listing.
type Ref struct {
	ID       string
	Revision string
}

// SyncData is provider bookkeeping persisted between passes.
type SyncData struct {
	Provider uuid.UUID `json:"provider"`
	LastSync time.Time `json:"last_sync"`
	Cursor   string    `json:"cursor,omitempty"`
}

// Connection is a live handle to a backend. Implementations honour ctx
// cancellation on every call and report failures using the common error
// taxonomy (ErrNetwork, ErrAuthentication, ErrTimeout, ErrSerialization,
// ErrNotFound).
type Connection interface {
	// Connect validates that the backend is reachable and the credentials work.
	Connect(ctx context.Context) error

	// List returns every note the backend holds with its current revision.
	List(ctx context.Context) ([]Ref, error)

	// Fetch downloads a note. The returned note carries its revision and is
	// not dirty.
	Fetch(ctx context.Context, id string) (*models.Note, error)

	// Push uploads a note and returns its new revision.
	Push(ctx context.Context, note *models.Note) (string, error)

	// Delete removes a note. Deleting an absent note is not an error.
	Delete(ctx context.Context, id string) error

	Close() error
}

// Watcher is implemented by connections that can signal remote changes.
// The channel is closed when ctx is done.
type Watcher interface {
	Watch(ctx context.Context) (<-chan struct{}, error)
}

// Plugin is a registered storage backend.
type Plugin interface {
	Descriptor() Descriptor
	CreateEmptyConfiguration() Configuration
	CreateConnection(proxy ProxyConfig, cfg Configuration, log logging.Logger) (Connection, error)
	CreateEmptyNote(cfg Configuration) *models.Note
	CreateEmptySyncData() *SyncData
}
