// Package folder stores notes as markdown files in a local (or mounted)
// directory. It is the default provider.
package folder

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ustczzh/AlephNote/internal/common"
	"github.com/ustczzh/AlephNote/internal/logging"
	"github.com/ustczzh/AlephNote/internal/models"
	"github.com/ustczzh/AlephNote/internal/remote"
	"github.com/ustczzh/AlephNote/internal/settings"
)

var ID = uuid.MustParse("37de6de1-26b0-41f5-b252-5e625d9ecfa3")

type Config struct {
	Path  string
	Watch bool
}

var table = settings.Table[Config]{
	{Name: "Path", Kind: settings.String, Ref: func(c *Config) any { return &c.Path }},
	{Name: "Watch", Kind: settings.Boolean, Ref: func(c *Config) any { return &c.Watch }},
}

func (c *Config) Fields() []settings.Field { return table.Bind(c) }

func (c *Config) Validate() error {
	if strings.TrimSpace(c.Path) == "" {
		return fmt.Errorf("%w: folder path is empty", common.ErrConfiguration)
	}
	return nil
}

func (c *Config) Clone() remote.Configuration {
	x := *c
	return &x
}

type Plugin struct{}

func New() *Plugin { return &Plugin{} }

func (p *Plugin) Descriptor() remote.Descriptor {
	return remote.Descriptor{ID: ID, Name: "Local Folder", Version: "1.0.0"}
}

func (p *Plugin) CreateEmptyConfiguration() remote.Configuration {
	return &Config{Watch: true}
}

func (p *Plugin) CreateConnection(_ remote.ProxyConfig, cfg remote.Configuration, log logging.Logger) (remote.Connection, error) {
	c, ok := cfg.(*Config)
	if !ok {
		return nil, fmt.Errorf("%w: folder plugin got %T", common.ErrConfiguration, cfg)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return newConnection(*c, log.With("provider", "folder")), nil
}

func (p *Plugin) CreateEmptyNote(remote.Configuration) *models.Note {
	return &models.Note{ID: common.NewNoteID(), ModifiedAt: time.Now().UTC(), Dirty: true}
}

func (p *Plugin) CreateEmptySyncData() *remote.SyncData {
	return &remote.SyncData{Provider: ID}
}
