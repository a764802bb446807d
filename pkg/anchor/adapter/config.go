package adapter

import (
	"fmt"
	"net"
	"strconv"

	"github.com/redbco/redb-anchor/pkg/dbcapabilities"
)

// ConnectionConfig contains the engine-specific connection parameters of a
// data source. Relational engines use Host/User/Password (+Port, Database),
// the document engine uses URL or Host (+Database), the key-value engine
// uses Host (+Port, Password, DB).
type ConnectionConfig struct {
	Host     string `json:"host,omitempty" yaml:"host,omitempty"`
	Port     int    `json:"port,omitempty" yaml:"port,omitempty"`
	User     string `json:"user,omitempty" yaml:"user,omitempty"`
	Password string `json:"password,omitempty" yaml:"password,omitempty"`
	Database string `json:"database,omitempty" yaml:"database,omitempty"`
	URL      string `json:"url,omitempty" yaml:"url,omitempty"`
	DB       *int   `json:"db,omitempty" yaml:"db,omitempty"`

	// SSL/TLS configuration
	SSL                   bool   `json:"ssl,omitempty" yaml:"ssl,omitempty"`
	SSLMode               string `json:"sslMode,omitempty" yaml:"sslMode,omitempty"` // verify-full, require, etc.
	SSLRejectUnauthorized *bool  `json:"sslRejectUnauthorized,omitempty" yaml:"sslRejectUnauthorized,omitempty"`
	SSLCert               string `json:"sslCert,omitempty" yaml:"sslCert,omitempty"`
	SSLKey                string `json:"sslKey,omitempty" yaml:"sslKey,omitempty"`
	SSLRootCert           string `json:"sslRootCert,omitempty" yaml:"sslRootCert,omitempty"`

	// Driver-specific options (use sparingly)
	Options map[string]string `json:"options,omitempty" yaml:"options,omitempty"`
}

// Target names what the connection is pointed at: the database, the logical
// key-value database, or "server" when neither is set.
func (c ConnectionConfig) Target() string {
	if c.Database != "" {
		return c.Database
	}
	if c.DB != nil {
		return "db" + strconv.Itoa(*c.DB)
	}
	return "server"
}

// HostOrURLHost returns Host, or the first host of URL when Host is empty.
func (c ConnectionConfig) HostOrURLHost() string {
	if c.Host != "" {
		return c.Host
	}
	return dbcapabilities.HostFromURL(c.URL)
}

// PortOr returns Port, or def when Port is not set.
func (c ConnectionConfig) PortOr(def int) int {
	if c.Port > 0 {
		return c.Port
	}
	return def
}

// Address returns host:port using the engine default port when Port is not set.
func (c ConnectionConfig) Address(dbType dbcapabilities.DatabaseType) string {
	def := 0
	if capability, ok := dbcapabilities.Get(dbType); ok {
		def = capability.DefaultPort
	}
	return net.JoinHostPort(c.Host, strconv.Itoa(c.PortOr(def)))
}

// RejectUnauthorized reports whether server certificates must be verified.
func (c ConnectionConfig) RejectUnauthorized() bool {
	return GetBool(c.SSLRejectUnauthorized, true)
}

// Option returns a driver option or def when unset.
func (c ConnectionConfig) Option(key, def string) string {
	if v, ok := c.Options[key]; ok && v != "" {
		return v
	}
	return def
}

// Redacted returns a copy safe to log.
func (c ConnectionConfig) Redacted() ConnectionConfig {
	out := c
	if out.Password != "" {
		out.Password = "[REDACTED]"
	}
	if out.URL != "" {
		out.URL = redactURL(out.URL)
	}
	return out
}

// String implements fmt.Stringer without leaking credentials.
func (c ConnectionConfig) String() string {
	r := c.Redacted()
	if r.URL != "" {
		return r.URL
	}
	return fmt.Sprintf("%s@%s:%d/%s", r.User, r.Host, r.Port, r.Target())
}

// GetStringPtr returns a pointer to s, or nil for the empty string.
func GetStringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// GetString safely dereferences a string pointer.
func GetString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// GetBoolPtr returns a pointer to b.
func GetBoolPtr(b bool) *bool {
	return &b
}

// GetBool safely dereferences a bool pointer, returning def for nil.
func GetBool(b *bool, def bool) bool {
	if b == nil {
		return def
	}
	return *b
}

// GetIntPtr returns a pointer to i.
func GetIntPtr(i int) *int {
	return &i
}
