package modelstore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeModelVersion(t *testing.T, root, name, ver string, withVocab bool) {
	t.Helper()
	dir := filepath.Join(root, name, ver)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, modelFileName), []byte("onnx"), 0o644))
	if withVocab {
		require.NoError(t, os.WriteFile(filepath.Join(dir, vocabFileName), []byte("{}"), 0o644))
	}
}

func TestLoadLatestPicksHighestVersion(t *testing.T) {
	root := t.TempDir()
	writeModelVersion(t, root, "lstm-importance", "1.0.0", true)
	writeModelVersion(t, root, "lstm-importance", "1.2.0", true)
	writeModelVersion(t, root, "lstm-importance", "1.10.0", true)

	handle, err := NewStore(root).LoadLatest("lstm-importance")
	require.NoError(t, err)

	// semantic ordering, not lexicographic: 1.10.0 > 1.2.0
	assert.Equal(t, "1.10.0", handle.Version)
	assert.Equal(t, filepath.Join(root, "lstm-importance", "1.10.0", modelFileName), handle.ModelPath)
	assert.Equal(t, filepath.Join(root, "lstm-importance", "1.10.0", vocabFileName), handle.VocabPath)
}

func TestLoadLatestSkipsNonVersionDirs(t *testing.T) {
	root := t.TempDir()
	writeModelVersion(t, root, "lstm-importance", "0.9.0", false)
	require.NoError(t, os.MkdirAll(filepath.Join(root, "lstm-importance", "scratch"), 0o755))

	handle, err := NewStore(root).LoadLatest("lstm-importance")
	require.NoError(t, err)
	assert.Equal(t, "0.9.0", handle.Version)
	assert.Empty(t, handle.VocabPath)
}

func TestLoadLatestNoVersions(t *testing.T) {
	_, err := NewStore(t.TempDir()).LoadLatest("lstm-importance")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no versions")
}

func TestLoadMissingModelFile(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "lstm-importance", "1.0.0"), 0o755))

	_, err := NewStore(root).Load("lstm-importance", "1.0.0")
	require.Error(t, err)
}

func TestLoadPathFallback(t *testing.T) {
	dir := t.TempDir()
	modelPath := filepath.Join(dir, "lstm_log_classifier.onnx")
	require.NoError(t, os.WriteFile(modelPath, []byte("onnx"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, vocabFileName), []byte("{}"), 0o644))

	handle, err := LoadPath(modelPath)
	require.NoError(t, err)
	assert.Equal(t, "lstm_log_classifier", handle.Name)
	assert.Equal(t, "local", handle.Version)
	assert.Equal(t, filepath.Join(dir, vocabFileName), handle.VocabPath)
}

func TestResolveOrder(t *testing.T) {
	t.Run("versioned store wins", func(t *testing.T) {
		root := t.TempDir()
		writeModelVersion(t, root, "lstm-importance", "2.0.0", true)
		fallback := filepath.Join(root, "fallback.onnx")
		require.NoError(t, os.WriteFile(fallback, []byte("onnx"), 0o644))

		handle, err := Resolve(root, "lstm-importance", fallback)
		require.NoError(t, err)
		assert.Equal(t, "2.0.0", handle.Version)
	})

	t.Run("fallback used when store is empty", func(t *testing.T) {
		root := t.TempDir()
		fallback := filepath.Join(root, "fallback.onnx")
		require.NoError(t, os.WriteFile(fallback, []byte("onnx"), 0o644))

		handle, err := Resolve(root, "lstm-importance", fallback)
		require.NoError(t, err)
		assert.Equal(t, "local", handle.Version)
	})

	t.Run("both missing", func(t *testing.T) {
		root := t.TempDir()
		_, err := Resolve(root, "lstm-importance", filepath.Join(root, "missing.onnx"))
		require.Error(t, err)
	})
}
