package services

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/ustczzh/AlephNote/internal/common"
	"github.com/ustczzh/AlephNote/internal/logging"
	"github.com/ustczzh/AlephNote/internal/models"
	"github.com/ustczzh/AlephNote/internal/plugins"
	"github.com/ustczzh/AlephNote/internal/remote"
	"github.com/ustczzh/AlephNote/internal/repositories"
	"github.com/ustczzh/AlephNote/internal/settings"
)

var fakeID = uuid.MustParse("0d6f3a52-9a0e-4a8f-b1a4-7f3f6c2e9d11")

type fakeConfig struct{ Valid bool }

func (c *fakeConfig) Fields() []settings.Field      { return nil }
func (c *fakeConfig) Clone() remote.Configuration { x := *c; return &x }
func (c *fakeConfig) Validate() error {
	if !c.Valid {
		return common.ErrConfiguration
	}
	return nil
}

type fakePlugin struct {
	conn remote.Connection
}

func (p *fakePlugin) Descriptor() remote.Descriptor {
	return remote.Descriptor{ID: fakeID, Name: "Fake", Version: "0"}
}
func (p *fakePlugin) CreateEmptyConfiguration() remote.Configuration { return &fakeConfig{Valid: true} }
func (p *fakePlugin) CreateConnection(_ remote.ProxyConfig, cfg remote.Configuration, _ logging.Logger) (remote.Connection, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return p.conn, nil
}
func (p *fakePlugin) CreateEmptyNote(remote.Configuration) *models.Note {
	return &models.Note{ID: common.NewNoteID(), Dirty: true}
}
func (p *fakePlugin) CreateEmptySyncData() *remote.SyncData { return &remote.SyncData{Provider: fakeID} }

// fakeConn is an in-memory remote. Hooks run outside its lock.
type fakeConn struct {
	mu    sync.Mutex
	notes map[string]*models.Note
	rev   int

	connectErr error
	listErr    error
	fetchErr   map[string]error
	pushErr    map[string]error
	deleteErr  map[string]error

	listHook func(ctx context.Context) error
	pushHook func(n *models.Note)

	connects int
	lists    int
	pushes   []string
	fetches  []string
	deletes  []string
	closed   bool
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		notes:     map[string]*models.Note{},
		fetchErr:  map[string]error{},
		pushErr:   map[string]error{},
		deleteErr: map[string]error{},
	}
}

// put stores a note remotely as if another device had pushed it.
func (f *fakeConn) put(n *models.Note) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rev++
	c := n.Clone()
	c.Revision = "r" + strconv.Itoa(f.rev)
	c.Dirty = false
	f.notes[c.ID] = c
	return c.Revision
}

func (f *fakeConn) get(id string) (*models.Note, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n, ok := f.notes[id]
	return n.Clone(), ok
}

func (f *fakeConn) Connect(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connects++
	return f.connectErr
}

func (f *fakeConn) List(ctx context.Context) ([]remote.Ref, error) {
	f.mu.Lock()
	f.lists++
	hook, err := f.listHook, f.listErr
	f.mu.Unlock()

	if hook != nil {
		if err := hook(ctx); err != nil {
			return nil, err
		}
	}
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	refs := make([]remote.Ref, 0, len(f.notes))
	for id, n := range f.notes {
		refs = append(refs, remote.Ref{ID: id, Revision: n.Revision})
	}
	return refs, nil
}

func (f *fakeConn) Fetch(ctx context.Context, id string) (*models.Note, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches = append(f.fetches, id)
	if err := f.fetchErr[id]; err != nil {
		return nil, err
	}
	n, ok := f.notes[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return n.Clone(), nil
}

func (f *fakeConn) Push(ctx context.Context, note *models.Note) (string, error) {
	f.mu.Lock()
	hook := f.pushHook
	f.mu.Unlock()
	if hook != nil {
		hook(note)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.pushes = append(f.pushes, note.ID)
	if err := f.pushErr[note.ID]; err != nil {
		return "", err
	}
	f.rev++
	c := note.Clone()
	c.Revision = "r" + strconv.Itoa(f.rev)
	c.Dirty = false
	f.notes[c.ID] = c
	return c.Revision, nil
}

func (f *fakeConn) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, id)
	if err := f.deleteErr[id]; err != nil {
		return err
	}
	delete(f.notes, id)
	return nil
}

func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeConn) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

type passResult struct {
	ok       bool
	at       time.Time
	failures []SyncFailure
}

// recorder collects feedback calls.
type recorder struct {
	mu      sync.Mutex
	starts  int
	results chan passResult
}

func newRecorder() *recorder {
	return &recorder{results: make(chan passResult, 64)}
}

func (r *recorder) StartSync() {
	r.mu.Lock()
	r.starts++
	r.mu.Unlock()
}

func (r *recorder) SyncSuccess(at time.Time)     { r.results <- passResult{ok: true, at: at} }
func (r *recorder) SyncError(fs []SyncFailure) { r.results <- passResult{failures: fs} }

func (r *recorder) Starts() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.starts
}

func (r *recorder) wait(t *testing.T) passResult {
	t.Helper()
	select {
	case res := <-r.results:
		return res
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for a sync pass")
		return passResult{}
	}
}

// sync runs one pass and waits for its result.
func (r *recorder) sync(t *testing.T, repo *NoteRepository) passResult {
	t.Helper()
	repo.SyncNow()
	return r.wait(t)
}

type harness struct {
	repo  *NoteRepository
	conn  *fakeConn
	store *repositories.Repositories
	fb    *recorder
}

func newHarness(t *testing.T, conn remote.Connection, opts Options) *harness {
	t.Helper()
	ctx := context.Background()

	store, err := repositories.InitDatabase(ctx, ":memory:")
	require.NoError(t, err)

	reg := plugins.NewRegistry()
	require.NoError(t, reg.Register(&fakePlugin{conn: conn}))

	if opts.ProviderID == uuid.Nil {
		opts.ProviderID = fakeID
	}
	fb := newRecorder()
	repo := NewNoteRepository(store, reg, fb, logging.Nop(), opts)
	require.NoError(t, repo.Init(ctx))
	t.Cleanup(func() { _ = repo.Shutdown(context.Background()) })

	h := &harness{repo: repo, store: store, fb: fb}
	if fc, ok := conn.(*fakeConn); ok {
		h.conn = fc
	}
	return h
}

func (h *harness) local(t *testing.T, id string) *models.Note {
	t.Helper()
	n, err := h.repo.Get(id)
	require.NoError(t, err)
	return n
}
