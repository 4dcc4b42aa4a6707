package folder

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/ustczzh/AlephNote/internal/common"
	"github.com/ustczzh/AlephNote/internal/filex"
	"github.com/ustczzh/AlephNote/internal/logging"
	"github.com/ustczzh/AlephNote/internal/models"
	"github.com/ustczzh/AlephNote/internal/remote"
)

const ext = ".md"

type Connection struct {
	dir   string
	watch bool
	log   logging.Logger
}

func newConnection(cfg Config, log logging.Logger) *Connection {
	return &Connection{dir: cfg.Path, watch: cfg.Watch, log: log}
}

func (c *Connection) Connect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return remote.MapTransportError(err)
	}
	dir, err := filex.EnsureDir(c.dir)
	if err != nil {
		return mapError(err)
	}
	c.dir = dir
	return nil
}

func (c *Connection) List(ctx context.Context) ([]remote.Ref, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return nil, mapError(err)
	}

	refs := make([]remote.Ref, 0, len(entries))
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, remote.MapTransportError(err)
		}
		name := e.Name()
		if e.IsDir() || filex.IsTempFile(name) || !strings.HasSuffix(name, ext) {
			continue
		}
		data, err := os.ReadFile(filepath.Join(c.dir, name))
		if err != nil {
			return nil, mapError(err)
		}
		refs = append(refs, remote.Ref{ID: strings.TrimSuffix(name, ext), Revision: revision(data)})
	}
	return refs, nil
}

func (c *Connection) Fetch(ctx context.Context, id string) (*models.Note, error) {
	path, err := c.path(id)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, remote.MapTransportError(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, mapError(err)
	}
	n, err := remote.UnmarshalNote(id, data)
	if err != nil {
		return nil, err
	}
	n.Revision = revision(data)
	return n, nil
}

func (c *Connection) Push(ctx context.Context, note *models.Note) (string, error) {
	path, err := c.path(note.ID)
	if err != nil {
		return "", err
	}
	data, err := remote.MarshalNote(note)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", remote.MapTransportError(err)
	}
	if err := filex.WriteFileAtomic(path, data, 0o600); err != nil {
		return "", mapError(err)
	}
	return revision(data), nil
}

func (c *Connection) Delete(ctx context.Context, id string) error {
	path, err := c.path(id)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return remote.MapTransportError(err)
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return mapError(err)
	}
	return nil
}

func (c *Connection) Close() error { return nil }

// Watch reports changes to note files made by other processes (for
// example a file sync client writing into the folder).
func (c *Connection) Watch(ctx context.Context) (<-chan struct{}, error) {
	out := make(chan struct{}, 1)
	if !c.watch {
		close(out)
		return out, nil
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, mapError(err)
	}
	if err := w.Add(c.dir); err != nil {
		w.Close()
		return nil, mapError(err)
	}

	go func() {
		defer close(out)
		defer w.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filex.IsTempFile(ev.Name) || !strings.HasSuffix(ev.Name, ext) {
					continue
				}
				select {
				case out <- struct{}{}:
				default:
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				c.log.Warn(ctx, "folder watcher error", "error", err)
			}
		}
	}()
	return out, nil
}

func (c *Connection) path(id string) (string, error) {
	if id == "" || strings.ContainsAny(id, `/\`) || id == "." || id == ".." {
		return "", fmt.Errorf("%w: invalid note id %q", common.ErrSerialization, id)
	}
	return filepath.Join(c.dir, id+ext), nil
}

func revision(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:16])
}

func mapError(err error) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("%w: %v", common.ErrNotFound, err)
	case errors.Is(err, fs.ErrPermission):
		return fmt.Errorf("%w: %v", common.ErrAuthentication, err)
	default:
		return fmt.Errorf("%w: %v", common.ErrNetwork, err)
	}
}
