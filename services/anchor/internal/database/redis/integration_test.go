//go:build integration

package redis

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redbco/redb-anchor/pkg/anchor/adapter"
	"github.com/redbco/redb-anchor/services/anchor/internal/testhelpers"
)

func TestSessionAgainstServer(t *testing.T) {
	engine := testhelpers.Redis(t)
	session := engine.Connect(t, NewAdapter())
	ctx := context.Background()

	result, err := session.Execute(ctx, "SET greeting hello\nGET greeting\nBOGUS x\nHSET user:1 name ada", nil)
	require.NoError(t, err)
	commands, ok := result.Data.([]adapter.CommandResult)
	require.True(t, ok)
	require.Len(t, commands, 4)
	assert.True(t, commands[0].Success)
	assert.Equal(t, "hello", commands[1].Result)
	assert.False(t, commands[2].Success)
	assert.True(t, commands[3].Success)

	schemas, err := session.ListSchemas(ctx)
	require.NoError(t, err)
	assert.Contains(t, schemas, "db0")

	keys, err := session.ListTables(ctx, "db0")
	require.NoError(t, err)
	assert.Contains(t, keys, "greeting")
	assert.Contains(t, keys, "user:1")

	structure, err := session.GetStructure(ctx, "db0", "greeting")
	require.NoError(t, err)
	assert.Empty(t, structure.Columns)

	require.NoError(t, session.Ping(ctx))
}
