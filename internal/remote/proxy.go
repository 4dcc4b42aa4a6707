package remote

import (
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ustczzh/AlephNote/internal/settings"
)

// ProxyConfig is the outbound proxy shared by all HTTP based backends.
type ProxyConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Username string
	Password string
}

var proxyTable = settings.Table[ProxyConfig]{
	{Name: "ProxyEnabled", Kind: settings.Boolean, Ref: func(p *ProxyConfig) any { return &p.Enabled }},
	{Name: "ProxyHost", Kind: settings.String, Ref: func(p *ProxyConfig) any { return &p.Host }},
	{Name: "ProxyPort", Kind: settings.Integer, Ref: func(p *ProxyConfig) any { return &p.Port }},
	{Name: "ProxyUsername", Kind: settings.String, Ref: func(p *ProxyConfig) any { return &p.Username }},
	{Name: "ProxyPassword", Kind: settings.EncryptedString, Ref: func(p *ProxyConfig) any { return &p.Password }},
}

func (p *ProxyConfig) Fields() []settings.Field {
	return proxyTable.Bind(p)
}

// URL returns the proxy URL, or nil when no proxy should be used.
func (p ProxyConfig) URL() *url.URL {
	if !p.Enabled || strings.TrimSpace(p.Host) == "" {
		return nil
	}
	u := &url.URL{Scheme: "http", Host: net.JoinHostPort(p.Host, strconv.Itoa(p.Port))}
	if p.Username != "" {
		u.User = url.UserPassword(p.Username, p.Password)
	}
	return u
}

// HTTPClient builds a client that goes through the proxy (if enabled) and
// gives up after timeout.
func (p ProxyConfig) HTTPClient(timeout time.Duration) *http.Client {
	tr := http.DefaultTransport.(*http.Transport).Clone()
	if u := p.URL(); u != nil {
		tr.Proxy = http.ProxyURL(u)
	}
	return &http.Client{Transport: tr, Timeout: timeout}
}
