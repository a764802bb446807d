package catalog

import (
	"sort"
	"strings"

	"github.com/redbco/redb-anchor/pkg/dbcapabilities"
)

// Filter selects definitions. Empty fields match everything.
type Filter struct {
	Type   dbcapabilities.DatabaseType
	Tag    string
	Status Status
}

func (f Filter) matches(d *Definition) bool {
	if f.Type != "" && d.Type != f.Type {
		return false
	}
	if f.Tag != "" && !d.HasTag(f.Tag) {
		return false
	}
	if f.Status != "" && d.Status != f.Status {
		return false
	}
	return true
}

// Filter returns the definitions matching f in creation order. Type
// accepts aliases.
func (c *Catalog) Filter(f Filter) ([]*Definition, error) {
	if f.Type != "" {
		id, err := resolveType(f.Type)
		if err != nil {
			return nil, err
		}
		f.Type = id
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	out := []*Definition{}
	for _, name := range c.order {
		if d := c.defs[name]; f.matches(d) {
			out = append(out, d.Clone())
		}
	}
	return out, nil
}

// Search returns definitions whose name, description, tags or type contain
// text, ignoring case. Empty text matches everything.
func (c *Catalog) Search(text string) []*Definition {
	needle := strings.ToLower(strings.TrimSpace(text))

	c.mu.Lock()
	defer c.mu.Unlock()

	out := []*Definition{}
	for _, name := range c.order {
		d := c.defs[name]
		if needle == "" || searchable(d, needle) {
			out = append(out, d.Clone())
		}
	}
	return out
}

func searchable(d *Definition, needle string) bool {
	fields := []string{d.Name, d.Description, string(d.Type)}
	if capability, ok := dbcapabilities.Get(d.Type); ok {
		fields = append(fields, capability.Name)
		fields = append(fields, capability.Aliases...)
	}
	fields = append(fields, d.Tags...)
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), needle) {
			return true
		}
	}
	return false
}

// TagCount is a tag and the number of definitions carrying it.
type TagCount struct {
	Tag   string `json:"tag" yaml:"tag"`
	Count int    `json:"count" yaml:"count"`
}

// Tags returns every tag in use, sorted, with usage counts. Tags that only
// differ in case are counted together under their first spelling.
func (c *Catalog) Tags() []TagCount {
	c.mu.Lock()
	defer c.mu.Unlock()

	counts := map[string]*TagCount{}
	for _, name := range c.order {
		for _, t := range c.defs[name].Tags {
			key := strings.ToLower(t)
			if tc, ok := counts[key]; ok {
				tc.Count++
				continue
			}
			counts[key] = &TagCount{Tag: t, Count: 1}
		}
	}

	out := make([]TagCount, 0, len(counts))
	for _, tc := range counts {
		out = append(out, *tc)
	}
	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i].Tag) < strings.ToLower(out[j].Tag)
	})
	return out
}
