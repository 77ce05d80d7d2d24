package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Chandanbam/openstack-rca-system/internal/config"
)

func TestParseLogLevelFlags(t *testing.T) {
	t.Run("empty flags leave the default unset", func(t *testing.T) {
		level, components, err := parseLogLevelFlags(nil)
		require.NoError(t, err)
		assert.Equal(t, "", level)
		assert.Empty(t, components)
	})

	t.Run("bare level sets the default", func(t *testing.T) {
		level, components, err := parseLogLevelFlags([]string{"debug"})
		require.NoError(t, err)
		assert.Equal(t, "debug", level)
		assert.Empty(t, components)
	})

	t.Run("component overrides", func(t *testing.T) {
		level, components, err := parseLogLevelFlags([]string{"warn", "embedding=debug", "api=error"})
		require.NoError(t, err)
		assert.Equal(t, "warn", level)
		assert.Equal(t, map[string]string{"embedding": "debug", "api": "error"}, components)
	})

	t.Run("default key form", func(t *testing.T) {
		level, _, err := parseLogLevelFlags([]string{"default=error"})
		require.NoError(t, err)
		assert.Equal(t, "error", level)
	})

	t.Run("invalid levels rejected", func(t *testing.T) {
		_, _, err := parseLogLevelFlags([]string{"loud"})
		require.Error(t, err)

		_, _, err = parseLogLevelFlags([]string{"embedding=loud"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "embedding")
	})

	t.Run("env vars feed component levels", func(t *testing.T) {
		t.Setenv("LOG_LEVEL_CONFIG_WATCHER", "debug")
		level, components, err := parseLogLevelFlags(nil)
		require.NoError(t, err)
		assert.Equal(t, "", level)
		assert.Equal(t, "debug", components["config.watcher"])
	})

	t.Run("env default level", func(t *testing.T) {
		t.Setenv("LOG_LEVEL_DEFAULT", "warn")
		level, _, err := parseLogLevelFlags(nil)
		require.NoError(t, err)
		assert.Equal(t, "warn", level)
	})

	t.Run("cli flags override env vars", func(t *testing.T) {
		t.Setenv("LOG_LEVEL_EMBEDDING", "debug")
		_, components, err := parseLogLevelFlags([]string{"embedding=error"})
		require.NoError(t, err)
		assert.Equal(t, "error", components["embedding"])
	})
}

func TestConvertEnvKeyToComponentName(t *testing.T) {
	assert.Equal(t, "embedding", convertEnvKeyToComponentName("LOG_LEVEL_EMBEDDING"))
	assert.Equal(t, "config.watcher", convertEnvKeyToComponentName("LOG_LEVEL_CONFIG_WATCHER"))
}

func TestSetupLog(t *testing.T) {
	// Without a config the default level falls back to info.
	require.NoError(t, setupLog(nil, nil))

	// Config file levels apply when no flags are given; flags override.
	cfg := config.DefaultConfig()
	cfg.LogLevel = "warn"
	cfg.ComponentLogLevels = map[string]string{"embedding": "debug"}
	require.NoError(t, setupLog(nil, cfg))
	require.NoError(t, setupLog([]string{"error", "embedding=info"}, cfg))

	require.Error(t, setupLog([]string{"loud"}, cfg))
}
