package keyring

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "keyring.json")
	store := NewFileStore(path, "master")

	require.NoError(t, store.Set("db1", "hunter2"))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "hunter2")

	got, err := store.Get("db1")
	require.NoError(t, err)
	assert.Equal(t, "hunter2", got)

	_, err = NewFileStore(path, "other").Get("db1")
	assert.Error(t, err)

	require.NoError(t, store.Delete("db1"))
	_, err = store.Get("db1")
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.NoError(t, store.Delete("db1"))
}

func TestSystemStoreWithMock(t *testing.T) {
	keyring.MockInit()
	store := NewSystemStore(DefaultService)

	require.NoError(t, store.Set("cache", "s3cret"))
	got, err := store.Get("cache")
	require.NoError(t, err)
	assert.Equal(t, "s3cret", got)

	require.NoError(t, store.Delete("cache"))
	_, err = store.Get("cache")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestResolve(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "k.json"), "m")
	require.NoError(t, store.Set("db1", "pw"))

	got, err := Resolve(store, Ref("db1"))
	require.NoError(t, err)
	assert.Equal(t, "pw", got)

	got, err = Resolve(nil, "plain")
	require.NoError(t, err)
	assert.Equal(t, "plain", got)

	_, err = Resolve(store, Ref("missing"))
	assert.True(t, errors.Is(err, ErrNotFound))

	_, err = Resolve(nil, Ref("db1"))
	assert.Error(t, err)
}
