package adapter

import (
	"regexp"
	"strconv"
	"strings"
)

// Structure describes a table or collection.
type Structure struct {
	Columns     []Column     `json:"columns"`
	Indexes     []Index      `json:"indexes"`
	ForeignKeys []ForeignKey `json:"foreignKeys"`
}

// Column describes one column or document field. Type is the declared type
// as reported by the engine; DataType, Length and Scale are parsed from it.
type Column struct {
	Name          string  `json:"name"`
	Type          string  `json:"type"`
	DataType      string  `json:"dataType"`
	Length        *int    `json:"length,omitempty"`
	Scale         *int    `json:"scale,omitempty"`
	Unsigned      bool    `json:"unsigned,omitempty"`
	Nullable      bool    `json:"nullable"`
	Default       *string `json:"default,omitempty"`
	PrimaryKey    bool    `json:"primaryKey"`
	AutoIncrement bool    `json:"autoIncrement,omitempty"`
	Comment       string  `json:"comment,omitempty"`
}

// Index describes an index.
type Index struct {
	Name    string   `json:"name"`
	Columns []string `json:"columns"`
	Unique  bool     `json:"unique"`
	Primary bool     `json:"primary"`
}

// ForeignKey describes a foreign key constraint.
type ForeignKey struct {
	Name              string   `json:"name"`
	Columns           []string `json:"columns"`
	ReferencedSchema  string   `json:"referencedSchema,omitempty"`
	ReferencedTable   string   `json:"referencedTable"`
	ReferencedColumns []string `json:"referencedColumns"`
	OnUpdate          string   `json:"onUpdate,omitempty"`
	OnDelete          string   `json:"onDelete,omitempty"`
}

// EmptyStructure is the structure of engines without declared columns.
func EmptyStructure() *Structure {
	return &Structure{
		Columns:     []Column{},
		Indexes:     []Index{},
		ForeignKeys: []ForeignKey{},
	}
}

func (s *Structure) normalize() {
	if s.Columns == nil {
		s.Columns = []Column{}
	}
	if s.Indexes == nil {
		s.Indexes = []Index{}
	}
	if s.ForeignKeys == nil {
		s.ForeignKeys = []ForeignKey{}
	}
	for i := range s.Columns {
		if s.Columns[i].DataType == "" {
			s.Columns[i].applyType()
		}
	}
}

// NewColumn builds a column whose type metadata is parsed from declared.
func NewColumn(name, declared string) Column {
	c := Column{Name: name, Type: declared}
	c.applyType()
	return c
}

func (c *Column) applyType() {
	info := ParseColumnType(c.Type)
	c.DataType = info.Base
	c.Length = info.Length
	c.Scale = info.Scale
	c.Unsigned = info.Unsigned
}

// TypeInfo is the parsed form of a declared column type.
type TypeInfo struct {
	Base     string
	Length   *int
	Scale    *int
	Unsigned bool
}

var typeArgs = regexp.MustCompile(`\(([^)]*)\)`)

// ParseColumnType parses declared types such as "varchar(255)",
// "decimal(10,2) unsigned", "character varying(64)" or
// "timestamp(6) with time zone". Enumerations keep no length.
func ParseColumnType(declared string) TypeInfo {
	decl := strings.ToLower(strings.TrimSpace(declared))
	info := TypeInfo{}
	if decl == "" {
		return info
	}

	if strings.Contains(decl, " unsigned") {
		info.Unsigned = true
		decl = strings.Replace(decl, " unsigned", "", 1)
	}
	decl = strings.Replace(decl, " zerofill", "", 1)

	if m := typeArgs.FindStringSubmatchIndex(decl); m != nil {
		args := decl[m[2]:m[3]]
		base := strings.TrimSpace(decl[:m[0]] + decl[m[1]:])
		info.Base = strings.Join(strings.Fields(base), " ")
		if strings.HasPrefix(info.Base, "enum") || strings.HasPrefix(info.Base, "set") {
			return info
		}
		parts := strings.Split(args, ",")
		if n, err := strconv.Atoi(strings.TrimSpace(parts[0])); err == nil {
			info.Length = &n
		}
		if len(parts) > 1 {
			if n, err := strconv.Atoi(strings.TrimSpace(parts[1])); err == nil {
				info.Scale = &n
			}
		}
		return info
	}

	info.Base = strings.Join(strings.Fields(decl), " ")
	return info
}
