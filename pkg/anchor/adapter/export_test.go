package adapter

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeRowsCSV(t *testing.T) {
	rows := []map[string]interface{}{
		{"id": int64(1), "name": "Ada, Countess", "tags": []interface{}{"a", "b"}},
		{"id": int64(2), "name": nil},
	}
	out, err := EncodeRows([]string{"id", "name", "tags"}, rows, ExportCSV)
	require.NoError(t, err)
	assert.Equal(t, "id,name,tags\n1,\"Ada, Countess\",\"[\"\"a\"\",\"\"b\"\"]\"\n2,,\n", out)
}

func TestEncodeRowsCSVDerivesColumns(t *testing.T) {
	rows := []map[string]interface{}{{"b": 1}, {"a": time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)}}
	out, err := EncodeRows(nil, rows, ExportCSV)
	require.NoError(t, err)
	assert.Equal(t, "a,b\n,1\n2024-01-02T03:04:05Z,\n", out)
}

func TestEncodeRowsJSON(t *testing.T) {
	out, err := EncodeRows(nil, nil, ExportJSON)
	require.NoError(t, err)
	assert.Equal(t, "[]", out)

	out, err = EncodeRows(nil, []map[string]interface{}{{"id": 1}}, ExportJSON)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":1}]`, out)
}

func TestParseExportFormat(t *testing.T) {
	f, err := ParseExportFormat(" CSV ")
	require.NoError(t, err)
	assert.Equal(t, ExportCSV, f)

	_, err = ParseExportFormat("xml")
	assert.True(t, errors.Is(err, ErrValidation))
}
