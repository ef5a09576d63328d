package local_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/adfiller/internal/checkpoint"
	"github.com/JakeFAU/adfiller/internal/checkpoint/local"
)

func TestNew(t *testing.T) {
	t.Run("MissingPath", func(t *testing.T) {
		_, err := local.New(local.Config{})
		require.Error(t, err)
	})
	t.Run("CreatesParent", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "state", "nested")
		_, err := local.New(local.Config{Path: filepath.Join(dir, "last_id.txt")})
		require.NoError(t, err)
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	})
}

func TestLoadSave(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "last_id.txt")
	store, err := local.New(local.Config{Path: path})
	require.NoError(t, err)

	_, err = store.Load(ctx)
	require.ErrorIs(t, err, checkpoint.ErrNotFound)

	require.NoError(t, store.Save(ctx, 41925800))
	require.NoError(t, store.Save(ctx, 41925877))

	id, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(41925877), id)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "41925877", string(raw))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestLoadUnparsable(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "last_id.txt")
	require.NoError(t, os.WriteFile(path, []byte("not-a-number\n"), 0o600))
	store, err := local.New(local.Config{Path: path})
	require.NoError(t, err)

	_, err = store.Load(ctx)
	require.Error(t, err)
	assert.NotErrorIs(t, err, checkpoint.ErrNotFound)
	assert.Equal(t, int64(77), checkpoint.Load(ctx, store, 77, nil))
}

func TestLoadTrimsWhitespace(t *testing.T) {
	path := filepath.Join(t.TempDir(), "last_id.txt")
	require.NoError(t, os.WriteFile(path, []byte(" 41925759\n"), 0o600))
	store, err := local.New(local.Config{Path: path})
	require.NoError(t, err)
	id, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(41925759), id)
}
