// Package local_test tests the destination store.
package local_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/vaultdl/internal/storage/local"
	"github.com/JakeFAU/vaultdl/internal/vault"
)

func TestNew(t *testing.T) {
	t.Run("ValidConfig", func(t *testing.T) {
		store, err := local.New(local.Config{BaseDir: t.TempDir()})
		require.NoError(t, err)
		assert.NotNil(t, store)
	})

	t.Run("CreatesMissingDir", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "new", "dest")
		_, err := local.New(local.Config{BaseDir: dir})
		require.NoError(t, err)
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		assert.Empty(t, entries, "probe file must be cleaned up")
	})

	t.Run("MissingBaseDir", func(t *testing.T) {
		_, err := local.New(local.Config{})
		assert.Error(t, err)
	})

	t.Run("BaseDirIsNotADirectory", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "file")
		require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))
		_, err := local.New(local.Config{BaseDir: file})
		assert.Error(t, err)
	})
}

func TestReserveAndWrite(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	store, err := local.New(local.Config{BaseDir: root, ChunkSize: 7})
	require.NoError(t, err)

	target, err := store.Reserve("notes/a.md", []string{"notes", "a.md"})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "notes", "a.md"), target)

	payload := strings.Repeat("chunked body ", 1000)
	n, err := store.Write(context.Background(), target, strings.NewReader(payload))
	require.NoError(t, err)
	assert.Equal(t, int64(len(payload)), n)

	// #nosec G304 -- test reads from the controlled temp directory.
	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, payload, string(data))
}

func TestReserveDetectsCollisions(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	store, err := local.New(local.Config{BaseDir: root})
	require.NoError(t, err)

	_, err = store.Reserve("a?.md", []string{"a_.md"})
	require.NoError(t, err)
	_, err = store.Reserve("a*.md", []string{"a_.md"})
	require.ErrorIs(t, err, vault.ErrConflict)

	require.NoError(t, os.WriteFile(filepath.Join(root, "blocker"), []byte("x"), 0o600))
	_, err = store.Reserve("blocker/x.md", []string{"blocker", "x.md"})
	require.ErrorIs(t, err, vault.ErrConflict)
}

func TestWriteReadFailureIsNetwork(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	store, err := local.New(local.Config{BaseDir: root})
	require.NoError(t, err)

	target := filepath.Join(root, "broken.bin")
	body := io.MultiReader(bytes.NewReader([]byte("partial")), &failingReader{err: errors.New("connection reset")})
	_, err = store.Write(context.Background(), target, body)
	require.ErrorIs(t, err, vault.ErrNetwork)
	assert.False(t, errors.Is(err, vault.ErrIO))

	_, statErr := os.Stat(target)
	assert.True(t, os.IsNotExist(statErr), "partial file must be removed")
}

func TestWriteLocalFailureIsIO(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	store, err := local.New(local.Config{BaseDir: root})
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(root, "file"), []byte("x"), 0o600))
	// The parent path is a file, so MkdirAll must fail.
	_, err = store.Write(context.Background(), filepath.Join(root, "file", "child.txt"), strings.NewReader("data"))
	require.ErrorIs(t, err, vault.ErrIO)
}

func TestWriteCanceled(t *testing.T) {
	t.Parallel()

	store, err := local.New(local.Config{BaseDir: t.TempDir()})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = store.Write(ctx, filepath.Join(store.BaseDir(), "x"), strings.NewReader("data"))
	require.ErrorIs(t, err, context.Canceled)
}

type failingReader struct {
	err error
}

func (f *failingReader) Read([]byte) (int, error) {
	return 0, f.err
}
