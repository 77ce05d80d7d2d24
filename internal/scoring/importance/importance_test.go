package importance

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Chandanbam/openstack-rca-system/internal/config"
	"github.com/Chandanbam/openstack-rca-system/internal/models"
)

func writeVocab(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "vocab.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadVocab(t *testing.T) {
	dir := t.TempDir()
	path := writeVocab(t, dir, `{"<OOV>": 1, "connection": 2, "timeout": 3, "failed": 4}`)

	v, err := loadVocab(path)
	require.NoError(t, err)
	assert.Equal(t, 4, v.size())
	assert.Equal(t, int64(2), v.lookup("connection"))
	assert.Equal(t, int64(1), v.lookup("never-seen"))
}

func TestLoadVocabErrors(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing file", func(t *testing.T) {
		_, err := loadVocab(filepath.Join(dir, "nope.json"))
		require.Error(t, err)
	})

	t.Run("invalid json", func(t *testing.T) {
		path := writeVocab(t, dir, "not json")
		_, err := loadVocab(path)
		require.Error(t, err)
	})

	t.Run("empty object", func(t *testing.T) {
		path := writeVocab(t, dir, "{}")
		_, err := loadVocab(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "empty")
	})
}

func TestVocabEncode(t *testing.T) {
	v := &vocab{
		tokenToID: map[string]int64{"<OOV>": 1, "connection": 2, "timeout": 3},
		oov:       1,
	}

	t.Run("pads on the left", func(t *testing.T) {
		ids := v.encode([]string{"connection", "timeout"}, 5)
		assert.Equal(t, []int64{0, 0, 0, 2, 3}, ids)
	})

	t.Run("keeps the tail when truncating", func(t *testing.T) {
		ids := v.encode([]string{"a", "b", "connection", "timeout"}, 2)
		assert.Equal(t, []int64{2, 3}, ids)
	})

	t.Run("unknown tokens map to oov", func(t *testing.T) {
		ids := v.encode([]string{"mystery"}, 2)
		assert.Equal(t, []int64{0, 1}, ids)
	})

	t.Run("empty tokens all padding", func(t *testing.T) {
		ids := v.encode(nil, 3)
		assert.Equal(t, []int64{0, 0, 0}, ids)
	})
}

func TestNewModelUnavailable(t *testing.T) {
	dir := t.TempDir()

	t.Run("no model anywhere", func(t *testing.T) {
		_, err := New(config.ImportanceConfig{
			ModelDir:          dir,
			ModelName:         "lstm-importance",
			FallbackModelPath: filepath.Join(dir, "missing.onnx"),
			MaxSequenceLength: 100,
		})
		require.Error(t, err)
		assert.ErrorIs(t, err, models.ErrModelUnavailable)
	})

	t.Run("model without vocab", func(t *testing.T) {
		modelPath := filepath.Join(dir, "bare.onnx")
		require.NoError(t, os.WriteFile(modelPath, []byte("onnx"), 0o644))

		_, err := New(config.ImportanceConfig{
			ModelDir:          filepath.Join(dir, "store"),
			ModelName:         "lstm-importance",
			FallbackModelPath: modelPath,
			MaxSequenceLength: 100,
		})
		require.Error(t, err)
		assert.ErrorIs(t, err, models.ErrModelUnavailable)
		assert.Contains(t, err.Error(), "vocab.json")
	})
}

func TestClamp01(t *testing.T) {
	assert.Equal(t, 0.0, clamp01(-0.2))
	assert.Equal(t, 1.0, clamp01(1.7))
	assert.Equal(t, 0.42, clamp01(0.42))
}
