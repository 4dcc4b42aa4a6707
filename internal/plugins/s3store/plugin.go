// Package s3store keeps notes as objects in an S3-compatible bucket
// (AWS S3, MinIO). The object ETag is the note revision.
package s3store

import (
	"context"
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

var ID = uuid.MustParse("9b0f5e27-3f0c-4b5e-a4d8-6a2d3c1e8f40")

type Config struct {
	Endpoint       string
	Region         string
	Bucket         string
	Prefix         string
	AccessKey      string
	SecretKey      string
	PathStyle      bool
	TimeoutSeconds int
}

var table = settings.Table[Config]{
	{Name: "Endpoint", Kind: settings.String, Ref: func(c *Config) any { return &c.Endpoint }},
	{Name: "Region", Kind: settings.String, Ref: func(c *Config) any { return &c.Region }},
	{Name: "Bucket", Kind: settings.String, Ref: func(c *Config) any { return &c.Bucket }},
	{Name: "Prefix", Kind: settings.String, Ref: func(c *Config) any { return &c.Prefix }},
	{Name: "AccessKey", Kind: settings.String, Ref: func(c *Config) any { return &c.AccessKey }},
	{Name: "SecretKey", Kind: settings.EncryptedString, Ref: func(c *Config) any { return &c.SecretKey }},
	{Name: "PathStyle", Kind: settings.Boolean, Ref: func(c *Config) any { return &c.PathStyle }},
	{Name: "TimeoutSeconds", Kind: settings.Integer, Ref: func(c *Config) any { return &c.TimeoutSeconds }},
}

func (c *Config) Fields() []settings.Field { return table.Bind(c) }

func (c *Config) Validate() error {
	var missing []string
	if strings.TrimSpace(c.Region) == "" {
		missing = append(missing, "Region")
	}
	if strings.TrimSpace(c.Bucket) == "" {
		missing = append(missing, "Bucket")
	}
	if strings.TrimSpace(c.AccessKey) == "" || strings.TrimSpace(c.SecretKey) == "" {
		missing = append(missing, "credentials")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: s3 settings missing %s", common.ErrConfiguration, strings.Join(missing, ", "))
	}
	if c.TimeoutSeconds < 0 {
		return fmt.Errorf("%w: negative timeout", common.ErrConfiguration)
	}
	return nil
}

func (c *Config) Clone() remote.Configuration {
	x := *c
	return &x
}

func (c *Config) timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

type Plugin struct{}

func New() *Plugin { return &Plugin{} }

func (p *Plugin) Descriptor() remote.Descriptor {
	return remote.Descriptor{ID: ID, Name: "S3 Bucket", Version: "1.0.0"}
}

func (p *Plugin) CreateEmptyConfiguration() remote.Configuration {
	return &Config{Region: "us-east-1", Prefix: "notes/", TimeoutSeconds: 30}
}

func (p *Plugin) CreateConnection(proxy remote.ProxyConfig, cfg remote.Configuration, log logging.Logger) (remote.Connection, error) {
	c, ok := cfg.(*Config)
	if !ok {
		return nil, fmt.Errorf("%w: s3 plugin got %T", common.ErrConfiguration, cfg)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	api, err := newClient(context.Background(), *c, proxy)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrConfiguration, err)
	}
	return &Connection{api: api, bucket: c.Bucket, prefix: c.Prefix, log: log.With("provider", "s3", "bucket", c.Bucket)}, nil
}

func (p *Plugin) CreateEmptyNote(remote.Configuration) *models.Note {
	return &models.Note{ID: common.NewNoteID(), ModifiedAt: time.Now().UTC(), Dirty: true}
}

func (p *Plugin) CreateEmptySyncData() *remote.SyncData {
	return &remote.SyncData{Provider: ID}
}
