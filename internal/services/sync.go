package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ustczzh/AlephNote/internal/common"
	"github.com/ustczzh/AlephNote/internal/models"
	"golang.org/x/sync/errgroup"
)

const fetchConcurrency = 4

const localStoreLabel = "local database"

// pass runs one sync and reports it. It never panics or returns an error;
// everything ends up in the feedback.
func (r *NoteRepository) pass(ctx context.Context) {
	r.syncing.Store(true)
	r.feedback.StartSync()
	failures := r.safeSync(ctx)
	r.syncing.Store(false)

	if len(failures) > 0 {
		r.feedback.SyncError(failures)
		return
	}
	t := r.now()
	r.lastSync.Store(&t)
	r.feedback.SyncSuccess(t)
}

func (r *NoteRepository) safeSync(ctx context.Context) (failures []SyncFailure) {
	defer func() {
		if p := recover(); p != nil {
			r.log.Error(ctx, "sync pass panicked", "panic", p)
			failures = append(failures, SyncFailure{Label: r.plugin.Descriptor().Name, Err: fmt.Errorf("internal error: %v", p)})
		}
	}()
	return r.sync(ctx)
}

// passState collects the outcome of a pass. add is safe for concurrent use.
type passState struct {
	mu       sync.Mutex
	failures []SyncFailure
}

func (s *passState) add(label string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, SyncFailure{Label: label, Err: err})
}

func (r *NoteRepository) sync(ctx context.Context) []SyncFailure {
	st := &passState{}
	provider := r.plugin.Descriptor()
	local := context.WithoutCancel(ctx)

	r.mu.Lock()
	clear(r.deleted)
	r.mu.Unlock()

	if !r.connected {
		if err := r.call(ctx, r.conn.Connect); err != nil {
			st.add(provider.Name, err)
			return st.failures
		}
		r.connected = true
	}

	var refs map[string]string
	err := r.call(ctx, func(ctx context.Context) error {
		list, err := r.conn.List(ctx)
		if err != nil {
			return err
		}
		refs = make(map[string]string, len(list))
		for _, ref := range list {
			refs[ref.ID] = ref.Revision
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, common.ErrAuthentication) || errors.Is(err, common.ErrNetwork) {
			r.connected = false
		}
		st.add(provider.Name, err)
		return st.failures
	}

	r.processDeletions(ctx, refs, st)

	r.mu.Lock()
	snapshot := make([]*models.Note, 0, len(r.notes))
	gens := make(map[string]uint64, len(r.notes))
	for id, n := range r.notes {
		snapshot = append(snapshot, n.Clone())
		gens[id] = r.gen[id]
	}
	r.mu.Unlock()

	for _, n := range snapshot {
		if ctx.Err() != nil {
			break
		}
		rev, onRemote := refs[n.ID]
		delete(refs, n.ID)
		r.reconcile(ctx, n, gens[n.ID], rev, onRemote, st)
	}

	if ctx.Err() == nil {
		r.fetchNew(ctx, refs, st)
	}

	if ctx.Err() != nil {
		st.add(provider.Name, fmt.Errorf("sync aborted: %w", ctx.Err()))
		return st.failures
	}

	r.mu.Lock()
	data := *r.syncData
	r.mu.Unlock()
	data.LastSync = r.now().UTC()
	if err := r.store.SyncState.SetSyncData(local, &data); err != nil {
		st.add(localStoreLabel, err)
	} else {
		r.mu.Lock()
		r.syncData = &data
		r.mu.Unlock()
	}

	return st.failures
}

// call runs fn with the per-call timeout.
func (r *NoteRepository) call(ctx context.Context, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, r.opts.RemoteTimeout)
	defer cancel()

	err := fn(ctx)
	if err != nil && errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, common.ErrTimeout) {
		err = fmt.Errorf("%w: %v", common.ErrTimeout, err)
	}
	return err
}

// processDeletions carries out pending remote deletions. Every pending ID is
// dropped from refs so a note deleted locally is never downloaded again.
func (r *NoteRepository) processDeletions(ctx context.Context, refs map[string]string, st *passState) {
	provider := r.plugin.Descriptor().ID
	local := context.WithoutCancel(ctx)

	ids, err := r.store.SyncState.ListDeletions(local, provider)
	if err != nil {
		st.add(localStoreLabel, err)
		return
	}

	for _, id := range ids {
		_, onRemote := refs[id]
		delete(refs, id)

		if onRemote {
			err := r.call(ctx, func(ctx context.Context) error { return r.conn.Delete(ctx, id) })
			if err != nil && !errors.Is(err, common.ErrNotFound) {
				st.add(id, err)
				continue
			}
		}
		if err := r.store.SyncState.ClearDeletion(local, provider, id); err != nil {
			st.add(localStoreLabel, err)
		}
	}
}

func (r *NoteRepository) reconcile(ctx context.Context, n *models.Note, gen uint64, rev string, onRemote bool, st *passState) {
	switch {
	case onRemote && rev == n.Revision:
		if n.Dirty {
			r.push(ctx, n, gen, st)
		}

	case onRemote && !n.Dirty:
		r.pull(ctx, n, gen, st)

	case onRemote:
		r.resolveConflict(ctx, n, gen, st)

	case n.Revision == "" || n.Dirty:
		// never uploaded, or edited after the remote copy went away
		r.push(ctx, n, gen, st)

	default:
		r.log.Info(ctx, "note removed remotely", "id", n.ID)
		r.dropLocal(ctx, n.ID, gen, st)
	}
}

func (r *NoteRepository) push(ctx context.Context, n *models.Note, gen uint64, st *passState) {
	var rev string
	err := r.call(ctx, func(ctx context.Context) (err error) {
		rev, err = r.conn.Push(ctx, n)
		return err
	})
	if err != nil {
		st.add(n.Label(), err)
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	local := context.WithoutCancel(ctx)
	cur, ok := r.notes[n.ID]
	if !ok {
		// deleted while the push was in flight; the remote copy now exists
		if r.deleted[n.ID] {
			if err := r.store.SyncState.AddDeletion(local, r.plugin.Descriptor().ID, n.ID); err != nil {
				st.add(localStoreLabel, err)
			}
		}
		return
	}

	updated := cur.Clone()
	updated.Revision = rev
	if r.gen[n.ID] == gen {
		updated.Dirty = false
	}
	if err := r.store.Notes.Upsert(local, updated); err != nil {
		st.add(localStoreLabel, err)
		return
	}
	r.notes[n.ID] = updated
}

func (r *NoteRepository) fetch(ctx context.Context, id string) (*models.Note, error) {
	var remoteNote *models.Note
	err := r.call(ctx, func(ctx context.Context) (err error) {
		remoteNote, err = r.conn.Fetch(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	if remoteNote == nil {
		return nil, fmt.Errorf("%w: remote returned no note for %s", common.ErrSerialization, id)
	}
	remoteNote.ID = id
	remoteNote.Dirty = false
	return remoteNote, nil
}

func (r *NoteRepository) pull(ctx context.Context, n *models.Note, gen uint64, st *passState) {
	remoteNote, err := r.fetch(ctx, n.ID)
	if err != nil {
		st.add(n.Label(), err)
		return
	}
	r.replace(ctx, remoteNote, gen, true, st)
}

// resolveConflict handles a note changed on both sides: the later
// modification wins and ties go to the remote copy.
func (r *NoteRepository) resolveConflict(ctx context.Context, n *models.Note, gen uint64, st *passState) {
	remoteNote, err := r.fetch(ctx, n.ID)
	if err != nil {
		st.add(n.Label(), err)
		return
	}

	if n.ModifiedAt.After(remoteNote.ModifiedAt) {
		r.log.Info(ctx, "conflict resolved with local copy", "id", n.ID, "err", common.ErrConflict)
		r.push(ctx, n, gen, st)
		return
	}
	r.log.Info(ctx, "conflict resolved with remote copy", "id", n.ID, "err", common.ErrConflict)
	r.replace(ctx, remoteNote, gen, true, st)
}

// replace installs a downloaded note unless the local copy changed since the
// snapshot (exists) or appeared meanwhile (!exists), or was deleted.
func (r *NoteRepository) replace(ctx context.Context, n *models.Note, gen uint64, exists bool, st *passState) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, gone := r.deleted[n.ID]; gone {
		return
	}
	_, ok := r.notes[n.ID]
	if ok != exists || (exists && r.gen[n.ID] != gen) {
		return
	}

	if err := r.store.Notes.Upsert(context.WithoutCancel(ctx), n); err != nil {
		st.add(localStoreLabel, err)
		return
	}
	r.notes[n.ID] = n
	r.bump(n.ID)
}

func (r *NoteRepository) dropLocal(ctx context.Context, id string, gen uint64, st *passState) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.notes[id]; !ok || r.gen[id] != gen {
		return
	}
	if err := r.store.Notes.Delete(context.WithoutCancel(ctx), id); err != nil {
		st.add(localStoreLabel, err)
		return
	}
	delete(r.notes, id)
	delete(r.gen, id)
}

// fetchNew downloads notes that only exist remotely.
func (r *NoteRepository) fetchNew(ctx context.Context, refs map[string]string, st *passState) {
	var g errgroup.Group
	g.SetLimit(fetchConcurrency)

	for id := range refs {
		g.Go(func() error {
			n, err := r.fetch(ctx, id)
			if err != nil {
				st.add(id, err)
				return nil
			}
			r.replace(ctx, n, 0, false, st)
			return nil
		})
	}
	_ = g.Wait()
}
