package catalog

import (
	"strings"
	"time"

	"github.com/redbco/redb-anchor/pkg/anchor/adapter"
	"github.com/redbco/redb-anchor/pkg/dbcapabilities"
	"github.com/redbco/redb-anchor/pkg/keyring"
)

// Status is the connection state of a definition.
type Status string

const (
	StatusConnected    Status = "connected"
	StatusDisconnected Status = "disconnected"
)

// ConnectionStats accumulates connect outcomes of a definition.
type ConnectionStats struct {
	TotalConnections  int64   `json:"totalConnections" yaml:"totalConnections"`
	FailedConnections int64   `json:"failedConnections" yaml:"failedConnections"`
	AvgResponseTimeMs float64 `json:"avgResponseTimeMs" yaml:"avgResponseTimeMs"`
}

// record folds a successful connect of sample duration into the running
// average: avg' = (avg*(n-1) + sample) / n.
func (s *ConnectionStats) record(sample time.Duration) {
	s.TotalConnections++
	n := float64(s.TotalConnections)
	ms := float64(sample) / float64(time.Millisecond)
	s.AvgResponseTimeMs = (s.AvgResponseTimeMs*(n-1) + ms) / n
}

// Definition is a named, persisted data source. ConnectionID refers to a
// Registry entry without owning it; it is set only while Status is
// connected.
type Definition struct {
	ID              string                      `json:"id" yaml:"id"`
	Name            string                      `json:"name" yaml:"name"`
	Type            dbcapabilities.DatabaseType `json:"type" yaml:"type"`
	Config          adapter.ConnectionConfig    `json:"config" yaml:"config"`
	Description     string                      `json:"description,omitempty" yaml:"description,omitempty"`
	Tags            []string                    `json:"tags" yaml:"tags"`
	Status          Status                      `json:"status" yaml:"status"`
	ConnectionID    *string                     `json:"connectionId" yaml:"connectionId"`
	CreatedAt       time.Time                   `json:"createdAt" yaml:"createdAt"`
	UpdatedAt       time.Time                   `json:"updatedAt" yaml:"updatedAt"`
	LastConnected   *time.Time                  `json:"lastConnected,omitempty" yaml:"lastConnected,omitempty"`
	ConnectionStats ConnectionStats             `json:"connectionStats" yaml:"connectionStats"`
}

// IsConnected reports whether the definition holds a live connection id.
func (d *Definition) IsConnected() bool {
	return d.Status == StatusConnected && d.ConnectionID != nil
}

// Clone returns a deep copy.
func (d *Definition) Clone() *Definition {
	out := *d
	out.Config = cloneConfig(d.Config)
	if d.Tags != nil {
		out.Tags = append([]string(nil), d.Tags...)
	}
	if d.ConnectionID != nil {
		id := *d.ConnectionID
		out.ConnectionID = &id
	}
	if d.LastConnected != nil {
		t := *d.LastConnected
		out.LastConnected = &t
	}
	return &out
}

func cloneConfig(c adapter.ConnectionConfig) adapter.ConnectionConfig {
	out := c
	if c.DB != nil {
		db := *c.DB
		out.DB = &db
	}
	if c.SSLRejectUnauthorized != nil {
		v := *c.SSLRejectUnauthorized
		out.SSLRejectUnauthorized = &v
	}
	if c.Options != nil {
		out.Options = make(map[string]string, len(c.Options))
		for k, v := range c.Options {
			out.Options[k] = v
		}
	}
	return out
}

// Redacted returns a copy with the password hidden. Keyring references stay
// visible since they are not secrets.
func (d *Definition) Redacted() *Definition {
	out := d.Clone()
	password := out.Config.Password
	out.Config = out.Config.Redacted()
	if keyring.IsReference(password) {
		out.Config.Password = password
	}
	return out
}

// HasTag reports whether the definition carries tag, ignoring case.
func (d *Definition) HasTag(tag string) bool {
	for _, t := range d.Tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

// normalizeTags trims tags and drops empty and repeated ones, keeping the
// first occurrence order.
func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		key := strings.ToLower(t)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, t)
	}
	return out
}

// Patch describes an update. Nil fields are left unchanged.
type Patch struct {
	Type        *dbcapabilities.DatabaseType
	Config      *adapter.ConnectionConfig
	Description *string
	Tags        []string
}

func (p Patch) changesConnection() bool {
	return p.Type != nil || p.Config != nil
}
