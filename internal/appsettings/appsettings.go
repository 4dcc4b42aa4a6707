// Package appsettings is the user-facing settings object: the active
// provider, engine options, proxy and every provider's configuration,
// persisted as one YAML document through the settings codec.
package appsettings

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/ustczzh/AlephNote/internal/common"
	"github.com/ustczzh/AlephNote/internal/filex"
	"github.com/ustczzh/AlephNote/internal/logging"
	"github.com/ustczzh/AlephNote/internal/models"
	"github.com/ustczzh/AlephNote/internal/remote"
	"github.com/ustczzh/AlephNote/internal/settings"
	"gopkg.in/yaml.v3"
)

const (
	settingsKey  = "settings"
	providersKey = "providers"
)

// Plugins is the part of the provider registry the settings need.
type Plugins interface {
	Resolve(id uuid.UUID) (remote.Plugin, error)
	List() []remote.Plugin
	DefaultID() uuid.UUID
}

type AppSettings struct {
	NoteProvider        uuid.UUID
	SyncIntervalSeconds int
	// RemoteTimeoutSeconds overrides the configured remote timeout when set.
	RemoteTimeoutSeconds *int
	NoteFont             string
	Sorting              models.SortMode
	DeviceID             uuid.UUID
	Proxy                remote.ProxyConfig

	// PluginSettings holds one configuration per known provider, active or
	// not, so switching back and forth keeps what the user typed.
	PluginSettings map[uuid.UUID]remote.Configuration
}

var table = settings.Table[AppSettings]{
	{Name: "NoteProvider", Kind: settings.ProviderReference, Ref: func(s *AppSettings) any { return &s.NoteProvider }},
	{Name: "SyncIntervalSeconds", Kind: settings.Integer, Ref: func(s *AppSettings) any { return &s.SyncIntervalSeconds }},
	{Name: "RemoteTimeoutSeconds", Kind: settings.NullableInteger, Ref: func(s *AppSettings) any { return &s.RemoteTimeoutSeconds }},
	{Name: "NoteFont", Kind: settings.FontName, Ref: func(s *AppSettings) any { return &s.NoteFont }},
	{Name: "Sorting", Kind: settings.Enumeration, Ref: func(s *AppSettings) any { return &s.Sorting }},
	{Name: "DeviceID", Kind: settings.Identifier, Ref: func(s *AppSettings) any { return &s.DeviceID }},
}

// Fields binds the top-level settings, proxy included.
func (s *AppSettings) Fields() []settings.Field {
	return append(table.Bind(s), s.Proxy.Fields()...)
}

// Default returns settings pointing at the registry default with an empty
// configuration for every provider.
func Default(plugins Plugins) *AppSettings {
	s := &AppSettings{
		NoteProvider:        plugins.DefaultID(),
		SyncIntervalSeconds: 300,
		Sorting:             models.SortByModified,
		DeviceID:            uuid.New(),
		PluginSettings:      make(map[uuid.UUID]remote.Configuration),
	}
	for _, p := range plugins.List() {
		s.PluginSettings[p.Descriptor().ID] = p.CreateEmptyConfiguration()
	}
	return s
}

// ProviderConfig returns the stored configuration of provider id.
func (s *AppSettings) ProviderConfig(id uuid.UUID) remote.Configuration {
	return s.PluginSettings[id]
}

// ActiveConfig is the configuration of the selected provider.
func (s *AppSettings) ActiveConfig() remote.Configuration {
	return s.PluginSettings[s.NoteProvider]
}

func (s *AppSettings) Clone() *AppSettings {
	c := *s
	if s.RemoteTimeoutSeconds != nil {
		v := *s.RemoteTimeoutSeconds
		c.RemoteTimeoutSeconds = &v
	}
	c.PluginSettings = make(map[uuid.UUID]remote.Configuration, len(s.PluginSettings))
	for id, cfg := range s.PluginSettings {
		c.PluginSettings[id] = cfg.Clone()
	}
	return &c
}

// Equal compares every persisted value, provider configurations included.
func (s *AppSettings) Equal(o *AppSettings) bool {
	if !settings.Equal(s.Fields(), o.Fields()) || len(s.PluginSettings) != len(o.PluginSettings) {
		return false
	}
	for id, cfg := range s.PluginSettings {
		other, ok := o.PluginSettings[id]
		if !ok || !settings.Equal(cfg.Fields(), other.Fields()) {
			return false
		}
	}
	return true
}

// RequiresReconnect reports whether moving from s to o means the note
// repository has to be rebuilt: another provider, another configuration of
// the active one, or another proxy.
func (s *AppSettings) RequiresReconnect(o *AppSettings) bool {
	if s.NoteProvider != o.NoteProvider {
		return true
	}
	if !settings.Equal(s.Proxy.Fields(), o.Proxy.Fields()) {
		return true
	}
	a, b := s.ActiveConfig(), o.ActiveConfig()
	if a == nil || b == nil {
		return a != b
	}
	return !settings.Equal(a.Fields(), b.Fields())
}

// Load reads path. A missing file yields defaults. A file that is not a
// YAML document yields defaults and an ErrSerialization; individual bad
// values are skipped by the codec.
func Load(ctx context.Context, path string, codec *settings.Codec, plugins Plugins, log logging.Logger) (*AppSettings, error) {
	s := Default(plugins)

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		log.Info(ctx, "no settings file, using defaults", "path", path)
		return s, nil
	}
	if err != nil {
		return s, fmt.Errorf("failed to read settings: %w", err)
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return s, fmt.Errorf("%w: settings file %s: %v", common.ErrSerialization, path, err)
	}
	root := &doc
	if root.Kind == yaml.DocumentNode && len(root.Content) == 1 {
		root = root.Content[0]
	}
	if root.Kind != yaml.MappingNode {
		if len(doc.Content) == 0 {
			return s, nil
		}
		return s, fmt.Errorf("%w: settings file %s is not a mapping", common.ErrSerialization, path)
	}

	codec.Decode(ctx, child(root, settingsKey), s.Fields())

	if providers := child(root, providersKey); providers != nil && providers.Kind == yaml.MappingNode {
		for i := 0; i+1 < len(providers.Content); i += 2 {
			key := strings.Trim(providers.Content[i].Value, "{}")
			id, err := uuid.Parse(key)
			if err != nil {
				log.Debug(ctx, "skipping provider section with bad id", "key", providers.Content[i].Value)
				continue
			}
			p, err := plugins.Resolve(id)
			if err != nil {
				log.Debug(ctx, "skipping settings of unknown provider", "id", id)
				continue
			}
			cfg := p.CreateEmptyConfiguration()
			codec.Decode(ctx, providers.Content[i+1], cfg.Fields())
			s.PluginSettings[id] = cfg
		}
	}

	return s, nil
}

// Save writes s to path atomically, secrets encrypted.
func (s *AppSettings) Save(ctx context.Context, path string, codec *settings.Codec) error {
	top, err := codec.Encode(ctx, s.Fields())
	if err != nil {
		return err
	}

	ids := make([]uuid.UUID, 0, len(s.PluginSettings))
	for id := range s.PluginSettings {
		ids = append(ids, id)
	}
	slices.SortFunc(ids, func(a, b uuid.UUID) int { return strings.Compare(a.String(), b.String()) })

	providers := &yaml.Node{Kind: yaml.MappingNode}
	for _, id := range ids {
		n, err := codec.Encode(ctx, s.PluginSettings[id].Fields())
		if err != nil {
			return fmt.Errorf("provider %s: %w", id, err)
		}
		providers.Content = append(providers.Content, str("{"+id.String()+"}"), n)
	}

	root := &yaml.Node{Kind: yaml.MappingNode, Content: []*yaml.Node{
		str(settingsKey), top,
		str(providersKey), providers,
	}}
	data, err := yaml.Marshal(&yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{root}})
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrSerialization, err)
	}

	if _, err := filex.EnsureDir(filepath.Dir(path)); err != nil {
		return err
	}
	return filex.WriteFileAtomic(path, data, 0o600)
}

func child(m *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return m.Content[i+1]
		}
	}
	return nil
}

func str(v string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v}
}
