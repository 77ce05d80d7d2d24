package config

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, path string, port int) {
	t.Helper()
	content := []byte("api_port: " + itoa(port) + "\n")
	require.NoError(t, os.WriteFile(path, content, 0o644))
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var digits []byte
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}

func TestWatcherValidation(t *testing.T) {
	_, err := NewWatcher(WatcherOptions{}, func(*Config) error { return nil })
	assert.Error(t, err)

	_, err = NewWatcher(WatcherOptions{FilePath: "x.yaml"}, nil)
	assert.Error(t, err)
}

func TestWatcherInitialLoadAndReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rca.yaml")
	writeConfigFile(t, path, 9001)

	var mu sync.Mutex
	var ports []int
	callback := func(cfg *Config) error {
		mu.Lock()
		defer mu.Unlock()
		ports = append(ports, cfg.APIPort)
		return nil
	}

	w, err := NewWatcher(WatcherOptions{FilePath: path, DebounceMillis: 50}, callback)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))
	defer w.Stop()

	mu.Lock()
	require.Len(t, ports, 1)
	assert.Equal(t, 9001, ports[0])
	mu.Unlock()

	writeConfigFile(t, path, 9002)

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(ports) >= 2 && ports[len(ports)-1] == 9002
	}, 5*time.Second, 20*time.Millisecond, "reload callback not invoked")
}

func TestWatcherKeepsPreviousConfigOnInvalidReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rca.yaml")
	writeConfigFile(t, path, 9001)

	var mu sync.Mutex
	reloads := 0
	callback := func(cfg *Config) error {
		mu.Lock()
		defer mu.Unlock()
		reloads++
		return nil
	}

	w, err := NewWatcher(WatcherOptions{FilePath: path, DebounceMillis: 50}, callback)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))
	defer w.Stop()

	// Invalid config: reload must be skipped, callback count stays at 1.
	require.NoError(t, os.WriteFile(path, []byte("api_port: -5\n"), 0o644))

	time.Sleep(500 * time.Millisecond)
	mu.Lock()
	assert.Equal(t, 1, reloads)
	mu.Unlock()
}
