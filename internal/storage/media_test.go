package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"minbar/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *DiskStore {
	t.Helper()
	return NewDiskStore(&config.Config{
		MediaUploadDir:       t.TempDir(),
		MediaMaxUploadSizeMB: 1,
	})
}

func TestMediaKey(t *testing.T) {
	t.Parallel()

	key := MediaKey("user-123", "mp3")

	assert.True(t, strings.HasPrefix(key, "recitations/user-123/"))
	assert.True(t, strings.HasSuffix(key, ".mp3"))

	// timestamp and 8-char disambiguator joined by an underscore
	base := strings.TrimSuffix(filepath.Base(key), ".mp3")
	parts := strings.Split(base, "_")
	require.Len(t, parts, 3)
	assert.Len(t, parts[2], 8)
}

func TestDiskStore_PutAndDelete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	locator, err := store.Put(ctx, []byte("audio-bytes"), "mp3", "u1")
	require.NoError(t, err)

	stored := filepath.Join(store.baseDir, filepath.FromSlash(locator))
	data, err := os.ReadFile(stored)
	require.NoError(t, err)
	assert.Equal(t, []byte("audio-bytes"), data)

	require.NoError(t, store.Delete(ctx, locator))
	_, err = os.Stat(stored)
	assert.True(t, os.IsNotExist(err))

	// Deleting again is a no-op, not an error.
	assert.NoError(t, store.Delete(ctx, locator))
}

func TestDiskStore_PutRejectsEmptyAndOversized(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.Put(ctx, nil, "mp3", "u1")
	assert.Error(t, err)

	big := make([]byte, 2*1024*1024)
	_, err = store.Put(ctx, big, "mp3", "u1")
	assert.Error(t, err)
}

func TestDiskStore_DeleteRejectsTraversal(t *testing.T) {
	store := newTestStore(t)

	assert.Error(t, store.Delete(context.Background(), "../../etc/passwd"))
	assert.Error(t, store.Delete(context.Background(), "/etc/passwd"))
}
