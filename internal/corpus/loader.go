package corpus

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Chandanbam/openstack-rca-system/internal/logging"
	"github.com/Chandanbam/openstack-rca-system/internal/models"
)

var loaderLog = logging.GetLogger("corpus")

// LoadFiles parses the given log files into a single corpus. Files are
// processed in sorted order so repeated loads of the same set produce the
// same corpus fingerprint.
func LoadFiles(paths []string) (*Corpus, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("no log files given")
	}

	sorted := make([]string, len(paths))
	copy(sorted, paths)
	sort.Strings(sorted)

	var entries []models.LogEntry
	for _, path := range sorted {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", path, err)
		}
		result, err := ParseReader(f, filepath.Base(path))
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		loaderLog.DebugWithFields("parsed log file",
			logging.Field("file", path),
			logging.Field("entries", len(result.Entries)),
			logging.Field("continuations", result.ContinuationLines),
			logging.Field("skipped", result.SkippedLines))
		entries = append(entries, result.Entries...)
	}

	c, err := NewCorpus(entries)
	if err != nil {
		return nil, err
	}
	loaderLog.InfoWithFields("corpus loaded",
		logging.Field("files", len(sorted)),
		logging.Field("entries", c.Len()),
		logging.Field("fingerprint", c.Fingerprint()[:12]))
	return c, nil
}

// LoadDir parses every *.log file under dir (including rotated files such as
// nova-api.log.1.2017-05-16) into a single corpus.
func LoadDir(dir string) (*Corpus, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if strings.Contains(filepath.Base(path), ".log") {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", dir, err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no log files under %s", dir)
	}
	return LoadFiles(paths)
}
