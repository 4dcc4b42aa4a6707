package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/ustczzh/AlephNote/internal/appsettings"
	"github.com/ustczzh/AlephNote/internal/common"
	"github.com/ustczzh/AlephNote/internal/config"
	"github.com/ustczzh/AlephNote/internal/filex"
	"github.com/ustczzh/AlephNote/internal/logging"
	"github.com/ustczzh/AlephNote/internal/models"
	"github.com/ustczzh/AlephNote/internal/plugins"
	"github.com/ustczzh/AlephNote/internal/remote"
	"github.com/ustczzh/AlephNote/internal/repositories"
	"github.com/ustczzh/AlephNote/internal/services"
	"github.com/ustczzh/AlephNote/internal/settings"
)

const shutdownTimeout = 10 * time.Second

// noteStore is the part of services.NoteRepository the CLI drives.
type noteStore interface {
	Notes() []*models.Note
	Get(id string) (*models.Note, error)
	CreateNewNote(ctx context.Context) (*models.Note, error)
	UpdateNote(ctx context.Context, note *models.Note) error
	DeleteNote(ctx context.Context, note *models.Note, alsoRemote bool) error
	SyncNow()
	Syncing() bool
	LastSync() time.Time
	Provider() remote.Descriptor
	Shutdown(ctx context.Context) error
}

type App struct {
	config   *config.Config
	log      logging.Logger
	registry *plugins.Registry
	codec    *settings.Codec
	settings *appsettings.AppSettings
	status   *syncStatus
	feedback services.SynchronizationFeedback

	repo    noteStore
	repoErr error
	newRepo func(ctx context.Context, s *appsettings.AppSettings) (noteStore, error)

	// lastList maps the numbers printed by list to note IDs.
	lastList []string

	reader *bufio.Reader
	out    io.Writer
}

func NewApp(ctx context.Context, c *config.Config, log logging.Logger) (*App, error) {
	secret, err := appsettings.LoadOrCreateSecret(c.SecretFile)
	if err != nil {
		return nil, fmt.Errorf("secret key: %w", err)
	}

	registry, err := plugins.Builtin()
	if err != nil {
		return nil, err
	}

	codec := settings.NewCodec(secret, registry, log)
	s, err := appsettings.Load(ctx, c.SettingsFile, codec, registry, log)
	if err != nil {
		log.Warn(ctx, "settings unreadable, using defaults", "path", c.SettingsFile, "err", err)
	}

	status := &syncStatus{}
	app := &App{
		config:   c,
		log:      log,
		registry: registry,
		codec:    codec,
		settings: s,
		status:   status,
		feedback: services.Feedbacks{services.NewLoggingFeedback(log), status.feedback()},
		reader:   bufio.NewReader(os.Stdin),
		out:      os.Stdout,
	}
	app.newRepo = app.openRepository
	return app, nil
}

// options derives the engine options from s. Positive settings values win
// over the process configuration.
func (a *App) options(s *appsettings.AppSettings) services.Options {
	opts := services.Options{
		ProviderID:    s.NoteProvider,
		Proxy:         s.Proxy,
		RemoteTimeout: a.config.RemoteTimeout,
		SyncInterval:  a.config.SyncInterval,
		SyncOnStart:   true,
		SortMode:      s.Sorting,
	}
	if cfg := s.ActiveConfig(); cfg != nil {
		opts.Config = cfg.Clone()
	}
	if s.RemoteTimeoutSeconds != nil && *s.RemoteTimeoutSeconds > 0 {
		opts.RemoteTimeout = time.Duration(*s.RemoteTimeoutSeconds) * time.Second
	}
	if s.SyncIntervalSeconds > 0 {
		opts.SyncInterval = time.Duration(s.SyncIntervalSeconds) * time.Second
	}
	return opts
}

func (a *App) openRepository(ctx context.Context, s *appsettings.AppSettings) (noteStore, error) {
	if _, err := filex.EnsureDir(filepath.Dir(a.config.DatabaseFile)); err != nil {
		return nil, err
	}
	store, err := repositories.InitDatabase(ctx, repositories.DSN(a.config.DatabaseFile))
	if err != nil {
		return nil, fmt.Errorf("error initializing database: %w", err)
	}

	repo := services.NewNoteRepository(store, a.registry, a.feedback, a.log, a.options(s))
	if err := repo.Init(ctx); err != nil {
		store.DB.Close()
		return nil, err
	}
	return repo, nil
}

// connect (re)builds the repository for the current settings. A failure
// leaves the app without notes until the settings are fixed.
func (a *App) connect(ctx context.Context) {
	a.disconnect(ctx)
	a.status.set(nil)

	repo, err := a.newRepo(ctx, a.settings)
	if err != nil {
		a.repoErr = err
		a.log.Error(ctx, "note repository unavailable", "err", err)
		fmt.Fprintf(a.out, "Note repository unavailable: %v\n", err)
		if errors.Is(err, common.ErrConfiguration) {
			fmt.Fprintln(a.out, "Use 'settings' and 'set' to fix the provider configuration.")
		}
		return
	}
	a.repo, a.repoErr = repo, nil
}

func (a *App) disconnect(ctx context.Context) {
	if a.repo == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := a.repo.Shutdown(ctx); err != nil {
		a.log.Warn(ctx, "shutdown incomplete", "err", err)
	}
	a.repo = nil
	a.lastList = nil
}

// notes returns the repository or explains why there is none.
func (a *App) notes() (noteStore, error) {
	if a.repo == nil {
		if a.repoErr != nil {
			return nil, a.repoErr
		}
		return nil, services.ErrNotInitialized
	}
	return a.repo, nil
}

// Status is the prompt text.
func (a *App) Status() string {
	if a.repo == nil {
		return "[OFFLINE]"
	}
	return a.repo.Provider().Name + " " + describe(a.repo.Syncing(), a.repo.LastSync(), a.status.Failures())
}

// Run starts the REPL and blocks until the user exits or input ends.
func (a *App) Run(ctx context.Context) {
	a.connect(ctx)
	defer a.disconnect(ctx)

	runREPL(ctx, a, a.Status, a.reader)
}
