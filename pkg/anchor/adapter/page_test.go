package adapter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPageRequestNormalize(t *testing.T) {
	n := PageRequest{Page: 0, PageSize: 0}.Normalize()
	assert.Equal(t, 1, n.Page)
	assert.Equal(t, DefaultPageSize, n.PageSize)

	n = PageRequest{Page: 3, PageSize: 5000}.Normalize()
	assert.Equal(t, MaxPageSize, n.PageSize)
	assert.Equal(t, 2*MaxPageSize, n.Offset())
}

func TestParseOrderBy(t *testing.T) {
	tests := []struct {
		in   string
		col  string
		desc bool
	}{
		{"", "", false},
		{"id", "id", false},
		{"-created_at", "created_at", true},
		{"name DESC", "name", true},
		{"name asc", "name", false},
	}
	for _, tt := range tests {
		col, desc := ParseOrderBy(tt.in)
		assert.Equal(t, tt.col, col, tt.in)
		assert.Equal(t, tt.desc, desc, tt.in)
	}
}

func TestNewPagination(t *testing.T) {
	p := NewPagination(PageRequest{Page: 2, PageSize: 10}, 25)
	assert.Equal(t, int64(3), p.TotalPages)
	assert.True(t, p.HasNext)

	p = NewPagination(PageRequest{Page: 3, PageSize: 10}, 25)
	assert.False(t, p.HasNext)

	p = NewPagination(PageRequest{}, 0)
	assert.Equal(t, int64(0), p.TotalPages)
	assert.False(t, p.HasNext)
}
