package dbcapabilities

import (
	"sort"
	"strings"
)

// DatabaseType is the canonical identifier for a database engine the anchor
// service can reach. Use these constants to look up capability information.
type DatabaseType string

const (
	MySQL      DatabaseType = "mysql"
	PostgreSQL DatabaseType = "postgres"
	MongoDB    DatabaseType = "mongodb"
	Redis      DatabaseType = "redis"
)

// DataParadigm enumerates the primary data storage paradigm of an engine.
type DataParadigm string

const (
	ParadigmRelational DataParadigm = "relational" // Tables, schemas, SQL
	ParadigmDocument   DataParadigm = "document"   // Collections, documents
	ParadigmKeyValue   DataParadigm = "keyvalue"   // Key/Value
)

// Capability describes what an engine supports in a way the registry,
// catalog and CLI can consume uniformly.
type Capability struct {
	// Human-friendly product name, e.g. "PostgreSQL".
	Name string `json:"name"`

	// Canonical ID, e.g. "postgres".
	ID DatabaseType `json:"id"`

	Paradigm DataParadigm `json:"paradigm"`

	DefaultPort int `json:"defaultPort"`

	// Whether the engine has a built-in system database and its typical names.
	HasSystemDatabase bool     `json:"hasSystemDatabase"`
	SystemDatabases   []string `json:"systemDatabases,omitempty"`

	// Whether a submitted statement may hold several ';' separated statements.
	SupportsScripts bool `json:"supportsScripts"`

	// Whether the engine has a declared structure (columns, indexes, keys).
	HasStructure bool `json:"hasStructure"`

	// Common aliases (URL schemes, catalog labels) that map to this engine.
	Aliases []string `json:"aliases,omitempty"`
}

// All is a registry of capabilities keyed by the canonical database type.
var All = map[DatabaseType]Capability{
	MySQL: {
		Name:              "MySQL",
		ID:                MySQL,
		Paradigm:          ParadigmRelational,
		DefaultPort:       3306,
		HasSystemDatabase: true,
		SystemDatabases:   []string{"mysql", "information_schema", "performance_schema", "sys"},
		SupportsScripts:   true,
		HasStructure:      true,
		Aliases:           []string{"relational-a", "mariadb", "aurora-mysql"},
	},
	PostgreSQL: {
		Name:              "PostgreSQL",
		ID:                PostgreSQL,
		Paradigm:          ParadigmRelational,
		DefaultPort:       5432,
		HasSystemDatabase: true,
		SystemDatabases:   []string{"postgres"},
		SupportsScripts:   true,
		HasStructure:      true,
		Aliases:           []string{"relational-b", "postgresql", "pgsql"},
	},
	MongoDB: {
		Name:              "MongoDB",
		ID:                MongoDB,
		Paradigm:          ParadigmDocument,
		DefaultPort:       27017,
		HasSystemDatabase: true,
		SystemDatabases:   []string{"admin", "config", "local"},
		HasStructure:      true,
		Aliases:           []string{"document", "mongo", "mongodb+srv"},
	},
	Redis: {
		Name:        "Redis",
		ID:          Redis,
		Paradigm:    ParadigmKeyValue,
		DefaultPort: 6379,
		Aliases:     []string{"key-value", "keyvalue", "rediss"},
	},
}

// nameToID is a normalized lookup index from any known name/alias to the canonical type.
var nameToID map[string]DatabaseType

func init() {
	nameToID = make(map[string]DatabaseType, len(All)*4)
	for id, c := range All {
		nameToID[strings.ToLower(string(id))] = id
		if c.Name != "" {
			nameToID[strings.ToLower(c.Name)] = id
		}
		for _, a := range c.Aliases {
			if a == "" {
				continue
			}
			nameToID[strings.ToLower(a)] = id
		}
	}
}

// ParseType resolves an arbitrary engine name (canonical id, alias or product
// name) to a canonical DatabaseType. Returns false if unknown.
func ParseType(name string) (DatabaseType, bool) {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "" {
		return "", false
	}
	id, ok := nameToID[n]
	return id, ok
}

// Get returns the capability for the given type.
func Get(id DatabaseType) (Capability, bool) {
	c, ok := All[id]
	return c, ok
}

// MustGet returns the capability for the given type or panics if unknown.
func MustGet(id DatabaseType) Capability {
	c, ok := Get(id)
	if !ok {
		panic("dbcapabilities: unknown database type " + string(id))
	}
	return c
}

// GetByName resolves name with ParseType and returns its capability.
func GetByName(name string) (Capability, bool) {
	id, ok := ParseType(name)
	if !ok {
		return Capability{}, false
	}
	return Get(id)
}

// Types returns every known database type in a stable order.
func Types() []DatabaseType {
	out := make([]DatabaseType, 0, len(All))
	for id := range All {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// IsRelational reports whether the type is a SQL engine.
func IsRelational(id DatabaseType) bool {
	c, ok := Get(id)
	return ok && c.Paradigm == ParadigmRelational
}

// IsSystemDatabase reports whether name is one of the engine's built-in databases.
func IsSystemDatabase(id DatabaseType, name string) bool {
	c, ok := Get(id)
	if !ok {
		return false
	}
	for _, s := range c.SystemDatabases {
		if strings.EqualFold(s, name) {
			return true
		}
	}
	return false
}
