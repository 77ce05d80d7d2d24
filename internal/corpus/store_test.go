package corpus

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreReloadAndSnapshot(t *testing.T) {
	dir := t.TempDir()
	logFile := filepath.Join(dir, "nova-api.log")
	require.NoError(t, os.WriteFile(logFile,
		[]byte("2017-05-16 00:00:01 100 INFO nova.osapi_compute.wsgi.server [-] first\n"), 0o644))

	store := NewStore(dir)
	assert.Nil(t, store.Snapshot())

	c, err := store.Reload(context.Background())
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, 1, c.Len())
	assert.Same(t, c, store.Snapshot())

	// second reload picks up new content and swaps the snapshot
	require.NoError(t, os.WriteFile(logFile,
		[]byte("2017-05-16 00:00:01 100 INFO nova.osapi_compute.wsgi.server [-] first\n"+
			"2017-05-16 00:00:02 100 ERROR nova.osapi_compute.wsgi.server [-] second\n"), 0o644))
	c2, err := store.Reload(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, c2.Len())
	assert.Same(t, c2, store.Snapshot())
	assert.NotEqual(t, c.Fingerprint(), c2.Fingerprint())
}

func TestStoreReloadFailureKeepsSnapshot(t *testing.T) {
	dir := t.TempDir()
	logFile := filepath.Join(dir, "nova-api.log")
	require.NoError(t, os.WriteFile(logFile,
		[]byte("2017-05-16 00:00:01 100 INFO nova.osapi_compute.wsgi.server [-] first\n"), 0o644))

	store := NewStore(dir)
	c, err := store.Reload(context.Background())
	require.NoError(t, err)

	require.NoError(t, os.Remove(logFile))
	_, err = store.Reload(context.Background())
	require.Error(t, err)
	assert.Same(t, c, store.Snapshot())
}

func TestStoreReloadCanceledContext(t *testing.T) {
	store := NewStore(t.TempDir())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.Reload(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, store.Snapshot())
}
