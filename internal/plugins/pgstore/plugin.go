// Package pgstore mirrors notes into a PostgreSQL table, letting several
// devices share one database. Each row carries a version counter that is
// bumped on every write and serves as the note revision.
package pgstore

import (
	"database/sql"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/ustczzh/AlephNote/internal/common"
	"github.com/ustczzh/AlephNote/internal/logging"
	"github.com/ustczzh/AlephNote/internal/models"
	"github.com/ustczzh/AlephNote/internal/remote"
	"github.com/ustczzh/AlephNote/internal/settings"
)

var ID = uuid.MustParse("c2a3d1f4-8e6b-4f0a-9d27-51b7e0c9a6d8")

type Config struct {
	Host           string
	Port           int
	Database       string
	User           string
	Password       string
	SSLMode        string
	Account        string
	TimeoutSeconds int
}

var table = settings.Table[Config]{
	{Name: "Host", Kind: settings.String, Ref: func(c *Config) any { return &c.Host }},
	{Name: "Port", Kind: settings.Integer, Ref: func(c *Config) any { return &c.Port }},
	{Name: "Database", Kind: settings.String, Ref: func(c *Config) any { return &c.Database }},
	{Name: "User", Kind: settings.String, Ref: func(c *Config) any { return &c.User }},
	{Name: "Password", Kind: settings.EncryptedString, Ref: func(c *Config) any { return &c.Password }},
	{Name: "SSLMode", Kind: settings.String, Ref: func(c *Config) any { return &c.SSLMode }},
	{Name: "Account", Kind: settings.String, Ref: func(c *Config) any { return &c.Account }},
	{Name: "TimeoutSeconds", Kind: settings.Integer, Ref: func(c *Config) any { return &c.TimeoutSeconds }},
}

func (c *Config) Fields() []settings.Field { return table.Bind(c) }

func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Host) == "":
		return fmt.Errorf("%w: postgres host is empty", common.ErrConfiguration)
	case c.Port <= 0 || c.Port > 65535:
		return fmt.Errorf("%w: postgres port %d out of range", common.ErrConfiguration, c.Port)
	case strings.TrimSpace(c.Database) == "":
		return fmt.Errorf("%w: postgres database is empty", common.ErrConfiguration)
	case strings.TrimSpace(c.Account) == "":
		return fmt.Errorf("%w: account is empty", common.ErrConfiguration)
	}
	return nil
}

func (c *Config) Clone() remote.Configuration {
	x := *c
	return &x
}

// DSN renders the connection URL understood by pgx.
func (c *Config) DSN() string {
	q := url.Values{}
	if c.SSLMode != "" {
		q.Set("sslmode", c.SSLMode)
	}
	timeout := c.TimeoutSeconds
	if timeout <= 0 {
		timeout = 10
	}
	q.Set("connect_timeout", strconv.Itoa(timeout))

	u := url.URL{
		Scheme:   "postgres",
		Host:     net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:     "/" + c.Database,
		RawQuery: q.Encode(),
	}
	if c.User != "" {
		u.User = url.UserPassword(c.User, c.Password)
	}
	return u.String()
}

type Plugin struct{}

func New() *Plugin { return &Plugin{} }

func (p *Plugin) Descriptor() remote.Descriptor {
	return remote.Descriptor{ID: ID, Name: "PostgreSQL", Version: "1.0.0"}
}

func (p *Plugin) CreateEmptyConfiguration() remote.Configuration {
	return &Config{Host: "localhost", Port: 5432, Database: "alephnote", SSLMode: "disable", TimeoutSeconds: 10}
}

func (p *Plugin) CreateConnection(_ remote.ProxyConfig, cfg remote.Configuration, log logging.Logger) (remote.Connection, error) {
	c, ok := cfg.(*Config)
	if !ok {
		return nil, fmt.Errorf("%w: postgres plugin got %T", common.ErrConfiguration, cfg)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}

	db, err := sql.Open("pgx", c.DSN())
	if err != nil {
		return nil, fmt.Errorf("%w: db open error: %v", common.ErrConfiguration, err)
	}
	db.SetMaxOpenConns(4)
	db.SetConnMaxIdleTime(5 * time.Minute)

	return newConnection(db, c.Account, log.With("provider", "postgres", "account", c.Account)), nil
}

func (p *Plugin) CreateEmptyNote(remote.Configuration) *models.Note {
	return &models.Note{ID: common.NewNoteID(), ModifiedAt: time.Now().UTC(), Dirty: true}
}

func (p *Plugin) CreateEmptySyncData() *remote.SyncData {
	return &remote.SyncData{Provider: ID}
}
