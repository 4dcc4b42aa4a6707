// Package grpcstore talks to an AlephNote hub over gRPC. The hub keeps
// notes per account and authenticates requests with a bearer JWT.
package grpcstore

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

var ID = uuid.MustParse("5f1d7a9e-0b3c-4e62-8a4f-2c9d6e1b7a30")

type Config struct {
	Address        string
	Token          string
	TLS            bool
	TimeoutSeconds int
}

var table = settings.Table[Config]{
	{Name: "Address", Kind: settings.String, Ref: func(c *Config) any { return &c.Address }},
	{Name: "Token", Kind: settings.EncryptedString, Ref: func(c *Config) any { return &c.Token }},
	{Name: "TLS", Kind: settings.Boolean, Ref: func(c *Config) any { return &c.TLS }},
	{Name: "TimeoutSeconds", Kind: settings.Integer, Ref: func(c *Config) any { return &c.TimeoutSeconds }},
}

func (c *Config) Fields() []settings.Field { return table.Bind(c) }

func (c *Config) Validate() error {
	if strings.TrimSpace(c.Address) == "" {
		return fmt.Errorf("%w: hub address is empty", common.ErrConfiguration)
	}
	if strings.TrimSpace(c.Token) == "" {
		return fmt.Errorf("%w: access token is empty", common.ErrConfiguration)
	}
	return nil
}

func (c *Config) Clone() remote.Configuration {
	x := *c
	return &x
}

func (c *Config) timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 12 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

type Plugin struct{}

func New() *Plugin { return &Plugin{} }

func (p *Plugin) Descriptor() remote.Descriptor {
	return remote.Descriptor{ID: ID, Name: "AlephNote Hub", Version: "1.0.0"}
}

func (p *Plugin) CreateEmptyConfiguration() remote.Configuration {
	return &Config{Address: "localhost:50051", TimeoutSeconds: 12}
}

func (p *Plugin) CreateConnection(_ remote.ProxyConfig, cfg remote.Configuration, log logging.Logger) (remote.Connection, error) {
	c, ok := cfg.(*Config)
	if !ok {
		return nil, fmt.Errorf("%w: hub plugin got %T", common.ErrConfiguration, cfg)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return newConnection(*c, log.With("provider", "hub", "address", c.Address))
}

func (p *Plugin) CreateEmptyNote(remote.Configuration) *models.Note {
	return &models.Note{ID: common.NewNoteID(), ModifiedAt: time.Now().UTC(), Dirty: true}
}

func (p *Plugin) CreateEmptySyncData() *remote.SyncData {
	return &remote.SyncData{Provider: ID}
}
