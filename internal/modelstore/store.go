// Package modelstore resolves versioned model artifacts on disk. Models live
// under <root>/<name>/<version>/ with a model.onnx and its vocab.json; the
// store picks the highest semantic version so operators can roll a model
// forward by dropping in a new directory.
package modelstore

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/hashicorp/go-version"

	"github.com/Chandanbam/openstack-rca-system/internal/logging"
)

const (
	modelFileName = "model.onnx"
	vocabFileName = "vocab.json"
)

// ModelHandle points at the resolved files of one model version.
type ModelHandle struct {
	// Name is the model family name, e.g. "lstm-importance"
	Name string

	// Version is the resolved version string, or "local" for fallback paths
	Version string

	// ModelPath is the absolute path to the ONNX graph
	ModelPath string

	// VocabPath is the absolute path to the vocabulary, empty if absent
	VocabPath string
}

// Store resolves model handles under a root directory.
type Store struct {
	root   string
	logger *logging.Logger
}

// NewStore creates a store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{
		root:   dir,
		logger: logging.GetLogger("modelstore"),
	}
}

// LoadLatest resolves the highest semantic version of the named model.
func (s *Store) LoadLatest(name string) (*ModelHandle, error) {
	versions, err := s.Versions(name)
	if err != nil {
		return nil, err
	}
	if len(versions) == 0 {
		return nil, fmt.Errorf("model %s: no versions under %s", name, filepath.Join(s.root, name))
	}
	latest := versions[len(versions)-1]
	return s.Load(name, latest.Original())
}

// Load resolves a specific version of the named model.
func (s *Store) Load(name, versionStr string) (*ModelHandle, error) {
	dir := filepath.Join(s.root, name, versionStr)
	modelPath := filepath.Join(dir, modelFileName)
	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("model %s@%s: %w", name, versionStr, err)
	}

	handle := &ModelHandle{
		Name:      name,
		Version:   versionStr,
		ModelPath: modelPath,
	}
	vocabPath := filepath.Join(dir, vocabFileName)
	if _, err := os.Stat(vocabPath); err == nil {
		handle.VocabPath = vocabPath
	}

	s.logger.DebugWithFields("resolved model",
		logging.Field("name", name),
		logging.Field("version", versionStr),
		logging.Field("path", modelPath))
	return handle, nil
}

// LoadPath wraps a bare ONNX file as a handle with version "local". A
// vocab.json next to the file is picked up when present. Used for the
// configured fallback model path when no versioned store exists.
func LoadPath(path string) (*ModelHandle, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("model file: %w", err)
	}
	handle := &ModelHandle{
		Name:      trimModelExt(filepath.Base(path)),
		Version:   "local",
		ModelPath: path,
	}
	vocabPath := filepath.Join(filepath.Dir(path), vocabFileName)
	if _, err := os.Stat(vocabPath); err == nil {
		handle.VocabPath = vocabPath
	}
	return handle, nil
}

// Versions lists the parseable versions of the named model in ascending
// order. Directories that are not valid versions are skipped.
func (s *Store) Versions(name string) ([]*version.Version, error) {
	dir := filepath.Join(s.root, name)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("model %s: %w", name, err)
	}

	var versions []*version.Version
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		v, err := version.NewVersion(entry.Name())
		if err != nil {
			s.logger.DebugWithFields("skipping non-version directory",
				logging.Field("name", name),
				logging.Field("dir", entry.Name()))
			continue
		}
		versions = append(versions, v)
	}
	sort.Sort(version.Collection(versions))
	return versions, nil
}

// Resolve applies the configured resolution order: a versioned store entry
// first, then the fallback path.
func Resolve(root, name, fallbackPath string) (*ModelHandle, error) {
	store := NewStore(root)
	handle, err := store.LoadLatest(name)
	if err == nil {
		return handle, nil
	}
	if fallbackPath == "" {
		return nil, err
	}
	handle, fbErr := LoadPath(fallbackPath)
	if fbErr != nil {
		return nil, fmt.Errorf("no versioned model (%v) and fallback failed: %w", err, fbErr)
	}
	return handle, nil
}

func trimModelExt(base string) string {
	ext := filepath.Ext(base)
	if ext == ".onnx" {
		return base[:len(base)-len(ext)]
	}
	return base
}
