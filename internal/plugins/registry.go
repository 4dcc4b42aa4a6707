// Package plugins keeps the set of storage backends available at runtime.
package plugins

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/ustczzh/AlephNote/internal/remote"
)

var (
	ErrPluginNotFound  = errors.New("plugin not found")
	ErrDuplicatePlugin = errors.New("duplicate plugin id")
)

// Registry maps provider IDs to plugins. It is safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	plugins   map[uuid.UUID]remote.Plugin
	defaultID uuid.UUID
}

func NewRegistry() *Registry {
	return &Registry{plugins: make(map[uuid.UUID]remote.Plugin)}
}

// Register adds p. The first plugin registered becomes the default until
// SetDefault says otherwise.
func (r *Registry) Register(p remote.Plugin) error {
	d := p.Descriptor()

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.plugins[d.ID]; ok {
		return fmt.Errorf("%w: %s is used by %q and %q", ErrDuplicatePlugin, d.ID, existing.Descriptor().Name, d.Name)
	}
	r.plugins[d.ID] = p
	if r.defaultID == uuid.Nil {
		r.defaultID = d.ID
	}
	return nil
}

func (r *Registry) SetDefault(id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.plugins[id]; !ok {
		return fmt.Errorf("%w: %s", ErrPluginNotFound, id)
	}
	r.defaultID = id
	return nil
}

func (r *Registry) Resolve(id uuid.UUID) (remote.Plugin, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.plugins[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPluginNotFound, id)
	}
	return p, nil
}

// Default returns the fallback plugin, or nil for an empty registry.
func (r *Registry) Default() remote.Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.plugins[r.defaultID]
}

// List returns all plugins ordered by name.
func (r *Registry) List() []remote.Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]remote.Plugin, 0, len(r.plugins))
	for _, p := range r.plugins {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Descriptor().Name < out[j].Descriptor().Name
	})
	return out
}

// Has and DefaultID let the settings codec resolve provider references.
func (r *Registry) Has(id uuid.UUID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.plugins[id]
	return ok
}

func (r *Registry) DefaultID() uuid.UUID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.defaultID
}
