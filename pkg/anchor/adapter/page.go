package adapter

import "strings"

const (
	DefaultPageSize = 50
	MaxPageSize     = 1000
)

// PageRequest selects one page of a table. Filter is engine-specific: a SQL
// boolean expression for relational engines, an extended-JSON filter for the
// document engine, a key pattern for the key-value engine. OrderBy names a
// column, optionally prefixed with '-' or suffixed with " desc".
type PageRequest struct {
	Schema   string `json:"schema"`
	Table    string `json:"table"`
	Page     int    `json:"page"`
	PageSize int    `json:"pageSize"`
	Filter   string `json:"filter,omitempty"`
	OrderBy  string `json:"orderBy,omitempty"`
}

// Normalize applies defaults: page starts at 1, page size defaults to
// DefaultPageSize and is capped at MaxPageSize.
func (r PageRequest) Normalize() PageRequest {
	if r.Page < 1 {
		r.Page = 1
	}
	if r.PageSize < 1 {
		r.PageSize = DefaultPageSize
	}
	if r.PageSize > MaxPageSize {
		r.PageSize = MaxPageSize
	}
	r.Filter = strings.TrimSpace(r.Filter)
	r.OrderBy = strings.TrimSpace(r.OrderBy)
	return r
}

// Offset is the number of rows before the requested page.
func (r PageRequest) Offset() int {
	n := r.Normalize()
	return (n.Page - 1) * n.PageSize
}

// Order parses OrderBy into a column and a direction.
func (r PageRequest) Order() (column string, desc bool) {
	return ParseOrderBy(r.OrderBy)
}

// ParseOrderBy accepts "col", "-col", "col asc" and "col desc".
func ParseOrderBy(s string) (column string, desc bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	if strings.HasPrefix(s, "-") {
		return strings.TrimSpace(s[1:]), true
	}
	fields := strings.Fields(s)
	if len(fields) == 2 {
		switch strings.ToLower(fields[1]) {
		case "desc":
			return fields[0], true
		case "asc":
			return fields[0], false
		}
	}
	return s, false
}

// Pagination describes where a page sits in the whole table.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"pageSize"`
	TotalRows  int64 `json:"totalRows"`
	TotalPages int64 `json:"totalPages"`
	HasNext    bool  `json:"hasNext"`
}

// NewPagination computes page counts for total rows.
func NewPagination(req PageRequest, total int64) Pagination {
	n := req.Normalize()
	pages := total / int64(n.PageSize)
	if total%int64(n.PageSize) != 0 {
		pages++
	}
	return Pagination{
		Page:       n.Page,
		PageSize:   n.PageSize,
		TotalRows:  total,
		TotalPages: pages,
		HasNext:    int64(n.Page) < pages,
	}
}

// Page is the result of Paginate.
type Page struct {
	Columns    []string                 `json:"columns,omitempty"`
	Rows       []map[string]interface{} `json:"rows"`
	Pagination Pagination               `json:"pagination"`
}

// NewPage builds a page, never leaving Rows nil.
func NewPage(req PageRequest, columns []string, rows []map[string]interface{}, total int64) *Page {
	if rows == nil {
		rows = []map[string]interface{}{}
	}
	return &Page{
		Columns:    columns,
		Rows:       rows,
		Pagination: NewPagination(req, total),
	}
}
