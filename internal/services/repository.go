// Package services holds the note repository: the local note collection and
// the background engine that keeps it in sync with the active provider.
package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/ustczzh/AlephNote/internal/common"
	"github.com/ustczzh/AlephNote/internal/dbx"
	"github.com/ustczzh/AlephNote/internal/logging"
	"github.com/ustczzh/AlephNote/internal/models"
	"github.com/ustczzh/AlephNote/internal/plugins"
	"github.com/ustczzh/AlephNote/internal/remote"
	"github.com/ustczzh/AlephNote/internal/repositories"
	"github.com/ustczzh/AlephNote/internal/repositories/notes"
	"github.com/ustczzh/AlephNote/internal/repositories/syncstate"
)

var ErrNotInitialized = errors.New("note repository not initialised")

const DefaultRemoteTimeout = 30 * time.Second

// Options selects the provider and tunes the engine.
type Options struct {
	ProviderID uuid.UUID
	// Config is the provider configuration. Nil means the plugin's empty one.
	Config remote.Configuration
	Proxy  remote.ProxyConfig

	// RemoteTimeout bounds every remote call. Zero means DefaultRemoteTimeout.
	RemoteTimeout time.Duration
	// SyncInterval starts a pass periodically when positive.
	SyncInterval time.Duration
	// SyncOnStart requests a pass as soon as Init finishes.
	SyncOnStart bool
	SortMode    models.SortMode
}

// NoteRepository owns the local note collection. Front-end calls and the
// sync worker share it under one mutex; remote calls are made on clones
// outside the lock.
type NoteRepository struct {
	store    *repositories.Repositories
	registry *plugins.Registry
	feedback SynchronizationFeedback
	log      logging.Logger
	opts     Options
	now      func() time.Time

	mu    sync.Mutex
	notes map[string]*models.Note
	// gen is bumped on every local edit; a push only clears Dirty when the
	// generation it started from is still current.
	gen     map[string]uint64
	seq     uint64
	deleted map[string]bool

	plugin   remote.Plugin
	config   remote.Configuration
	conn     remote.Connection
	syncData *remote.SyncData

	connected bool
	syncing   atomic.Bool
	lastSync  atomic.Pointer[time.Time]
	trigger   chan struct{}
	cancel    context.CancelFunc
	done      chan struct{}

	shutdownOnce sync.Once
	shutdownErr  error
}

func NewNoteRepository(store *repositories.Repositories, registry *plugins.Registry, feedback SynchronizationFeedback, log logging.Logger, opts Options) *NoteRepository {
	if feedback == nil {
		feedback = FeedbackFuncs{}
	}
	if opts.RemoteTimeout <= 0 {
		opts.RemoteTimeout = DefaultRemoteTimeout
	}
	return &NoteRepository{
		store:    store,
		registry: registry,
		feedback: feedback,
		log:      log.With("module", "notes"),
		opts:     opts,
		now:      time.Now,
		notes:    make(map[string]*models.Note),
		gen:      make(map[string]uint64),
		deleted:  make(map[string]bool),
		trigger:  make(chan struct{}, 1),
	}
}

// Init loads the local notes, builds the provider connection and starts the
// sync worker. Only configuration problems fail it; the remote is not
// contacted until the first pass.
func (r *NoteRepository) Init(ctx context.Context) error {
	plugin, err := r.registry.Resolve(r.opts.ProviderID)
	if err != nil {
		plugin = r.registry.Default()
		if plugin == nil {
			return fmt.Errorf("%w: %v", common.ErrConfiguration, err)
		}
		r.log.Warn(ctx, "unknown provider, using default", "provider", r.opts.ProviderID, "default", plugin.Descriptor().Name)
	}

	cfg := r.opts.Config
	if cfg == nil {
		cfg = plugin.CreateEmptyConfiguration()
	}

	conn, err := plugin.CreateConnection(r.opts.Proxy, cfg, r.log)
	if err != nil {
		if !errors.Is(err, common.ErrConfiguration) {
			err = fmt.Errorf("%w: %v", common.ErrConfiguration, err)
		}
		return err
	}

	all, err := r.store.Notes.GetAll(ctx)
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to load notes: %w", err)
	}

	id := plugin.Descriptor().ID
	data, err := r.store.SyncState.GetSyncData(ctx, id)
	if err != nil {
		r.log.Warn(ctx, "discarding unreadable sync data", "err", err)
		data = nil
	}
	if data == nil {
		data = plugin.CreateEmptySyncData()
	}

	r.mu.Lock()
	for _, n := range all {
		r.notes[n.ID] = n
		r.seq++
		r.gen[n.ID] = r.seq
	}
	r.plugin, r.config, r.conn, r.syncData = plugin, cfg, conn, data
	r.mu.Unlock()

	if !data.LastSync.IsZero() {
		t := data.LastSync
		r.lastSync.Store(&t)
	}

	workerCtx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	r.done = make(chan struct{})
	go r.run(workerCtx)

	r.log.Info(ctx, "note repository ready", "provider", plugin.Descriptor().Name, "notes", len(all))

	if r.opts.SyncOnStart {
		r.SyncNow()
	}
	return nil
}

func (r *NoteRepository) Provider() remote.Descriptor {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.plugin == nil {
		return remote.Descriptor{}
	}
	return r.plugin.Descriptor()
}

// Syncing reports whether a pass is running.
func (r *NoteRepository) Syncing() bool { return r.syncing.Load() }

// LastSync is the end of the last successful pass, zero if none.
func (r *NoteRepository) LastSync() time.Time {
	if t := r.lastSync.Load(); t != nil {
		return *t
	}
	return time.Time{}
}

// Notes returns clones ordered by the configured sort mode.
func (r *NoteRepository) Notes() []*models.Note {
	r.mu.Lock()
	out := make([]*models.Note, 0, len(r.notes))
	for _, n := range r.notes {
		out = append(out, n.Clone())
	}
	r.mu.Unlock()

	slices.SortFunc(out, func(a, b *models.Note) int { return strings.Compare(a.ID, b.ID) })
	models.SortNotes(out, r.opts.SortMode)
	return out
}

func (r *NoteRepository) Get(id string) (*models.Note, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.notes[id]
	if !ok {
		return nil, fmt.Errorf("note %s: %w", id, common.ErrNotFound)
	}
	return n.Clone(), nil
}

func (r *NoteRepository) CreateNewNote(ctx context.Context) (*models.Note, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.plugin == nil {
		return nil, ErrNotInitialized
	}
	n := r.plugin.CreateEmptyNote(r.config)
	n.Dirty = true
	n.Revision = ""
	if n.ModifiedAt.IsZero() {
		n.ModifiedAt = r.now().UTC()
	}

	if err := r.store.Notes.Upsert(ctx, n); err != nil {
		return nil, err
	}
	r.notes[n.ID] = n
	r.bump(n.ID)
	return n.Clone(), nil
}

// UpdateNote stores the user-editable content of note. Revision and Dirty
// are owned by the repository; unchanged content is a no-op.
func (r *NoteRepository) UpdateNote(ctx context.Context, note *models.Note) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.notes[note.ID]
	if !ok {
		return fmt.Errorf("note %s: %w", note.ID, common.ErrNotFound)
	}
	if cur.SameContent(note) {
		return nil
	}

	updated := note.Clone()
	updated.Revision = cur.Revision
	updated.Dirty = true
	updated.ModifiedAt = r.now().UTC()

	if err := r.store.Notes.Upsert(ctx, updated); err != nil {
		return err
	}
	r.notes[note.ID] = updated
	r.bump(note.ID)
	return nil
}

// DeleteNote removes note locally right away. With alsoRemote the remote
// copy is removed by the next pass, provided the note was ever uploaded.
func (r *NoteRepository) DeleteNote(ctx context.Context, note *models.Note, alsoRemote bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.notes[note.ID]
	if !ok {
		return fmt.Errorf("note %s: %w", note.ID, common.ErrNotFound)
	}

	recordRemote := alsoRemote && cur.Revision != "" && r.plugin != nil
	err := dbx.WithTx(ctx, r.store.DB, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := notes.NewSQLiteRepository(tx).Delete(ctx, note.ID); err != nil {
			return err
		}
		if recordRemote {
			return syncstate.NewSQLiteRepository(tx).AddDeletion(ctx, r.plugin.Descriptor().ID, note.ID)
		}
		return nil
	})
	if err != nil {
		return err
	}

	delete(r.notes, note.ID)
	delete(r.gen, note.ID)
	r.deleted[note.ID] = alsoRemote
	return nil
}

// SyncNow asks for a pass and returns immediately. While a pass runs, any
// number of requests collapse into one follow-up pass.
func (r *NoteRepository) SyncNow() {
	select {
	case r.trigger <- struct{}{}:
	default:
	}
}

// Shutdown stops the worker, aborting a running pass, then closes the
// connection and the local store. If ctx ends before the worker exits, the
// resources are closed once it does and Shutdown reports the timeout.
// Later calls return the first result.
func (r *NoteRepository) Shutdown(ctx context.Context) error {
	r.shutdownOnce.Do(func() {
		if r.cancel != nil {
			r.cancel()
			select {
			case <-r.done:
			case <-ctx.Done():
				r.shutdownErr = fmt.Errorf("waiting for sync worker: %w", ctx.Err())
				go func() {
					<-r.done
					if err := r.release(); err != nil {
						r.log.Error(context.Background(), "closing note repository", "err", err)
					}
				}()
				return
			}
		}

		r.shutdownErr = r.release()
		r.log.Info(ctx, "note repository closed")
	})
	return r.shutdownErr
}

// release closes the connection and the local store.
func (r *NoteRepository) release() error {
	var errs []error
	if r.conn != nil {
		if err := r.conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing connection: %w", err))
		}
	}
	if r.store != nil && r.store.DB != nil {
		if err := r.store.DB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing database: %w", err))
		}
	}
	return errors.Join(errs...)
}

// bump must be called with mu held.
func (r *NoteRepository) bump(id string) {
	r.seq++
	r.gen[id] = r.seq
}

func (r *NoteRepository) run(ctx context.Context) {
	defer close(r.done)

	var tick <-chan time.Time
	if r.opts.SyncInterval > 0 {
		t := time.NewTicker(r.opts.SyncInterval)
		defer t.Stop()
		tick = t.C
	}

	var changes <-chan struct{}
	if w, ok := r.conn.(remote.Watcher); ok {
		ch, err := w.Watch(ctx)
		if err != nil {
			r.log.Warn(ctx, "remote change notifications unavailable", "err", err)
		} else {
			changes = ch
		}
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-tick:
			r.SyncNow()
		case _, ok := <-changes:
			if !ok {
				changes = nil
				continue
			}
			r.SyncNow()
		case <-r.trigger:
			r.pass(ctx)
		}
	}
}
