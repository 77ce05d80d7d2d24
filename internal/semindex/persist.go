package semindex

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/Chandanbam/openstack-rca-system/internal/logging"
)

const snapshotVersion = 1

// snapshotHeader is the first line of a snapshot file.
type snapshotHeader struct {
	Version     int       `json:"version"`
	Model       string    `json:"model"`
	Dimensions  int       `json:"dimensions"`
	Fingerprint string    `json:"fingerprint"`
	BuiltAt     time.Time `json:"built_at"`
	Count       int       `json:"count"`
}

// snapshotVector is one vector line.
type snapshotVector struct {
	ID  string    `json:"id"`
	TS  time.Time `json:"ts"`
	Seq int       `json:"seq"`
	Vec []float32 `json:"vec"`
}

// save writes the state as JSON lines: a header line followed by one line
// per vector. Atomic write (temp file + rename) prevents corruption on crash.
func (idx *Index) save(st *state) error {
	tmpPath := idx.opts.SnapshotPath + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)

	header := snapshotHeader{
		Version:     snapshotVersion,
		Model:       idx.embedder.ModelID(),
		Dimensions:  idx.embedder.Dimensions(),
		Fingerprint: st.fingerprint,
		BuiltAt:     st.builtAt,
		Count:       len(st.vectors),
	}
	if err := enc.Encode(header); err != nil {
		f.Close()
		return fmt.Errorf("write snapshot header: %w", err)
	}
	for _, iv := range st.vectors {
		line := snapshotVector{ID: iv.id, TS: iv.ts, Seq: iv.seq, Vec: iv.vec}
		if err := enc.Encode(line); err != nil {
			f.Close()
			return fmt.Errorf("write snapshot vector: %w", err)
		}
	}

	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("flush snapshot: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close snapshot: %w", err)
	}
	if err := os.Rename(tmpPath, idx.opts.SnapshotPath); err != nil {
		return fmt.Errorf("rename snapshot: %w", err)
	}
	return nil
}

// LoadSnapshot restores the index from the configured snapshot file. A
// missing file or a snapshot built with a different embedding model leaves
// the index empty without error; a corrupted file returns an error.
func (idx *Index) LoadSnapshot() error {
	if idx.opts.SnapshotPath == "" {
		return nil
	}
	f, err := os.Open(idx.opts.SnapshotPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("open snapshot: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	if !scanner.Scan() {
		return fmt.Errorf("snapshot is empty: %s", idx.opts.SnapshotPath)
	}
	var header snapshotHeader
	if err := json.Unmarshal(scanner.Bytes(), &header); err != nil {
		return fmt.Errorf("parse snapshot header: %w", err)
	}
	if header.Version != snapshotVersion {
		return fmt.Errorf("unsupported snapshot version: %d", header.Version)
	}
	if header.Model != idx.embedder.ModelID() || header.Dimensions != idx.embedder.Dimensions() {
		idx.logger.WarnWithFields("discarding snapshot built with different embedding model",
			logging.Field("snapshot_model", header.Model),
			logging.Field("configured_model", idx.embedder.ModelID()))
		return nil
	}

	vectors := make([]indexedVector, 0, header.Count)
	for scanner.Scan() {
		var line snapshotVector
		if err := json.Unmarshal(scanner.Bytes(), &line); err != nil {
			return fmt.Errorf("parse snapshot vector: %w", err)
		}
		vectors = append(vectors, indexedVector{id: line.ID, ts: line.TS, seq: line.Seq, vec: line.Vec})
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read snapshot: %w", err)
	}
	if len(vectors) != header.Count {
		return fmt.Errorf("snapshot truncated: header says %d vectors, found %d", header.Count, len(vectors))
	}

	idx.mu.Lock()
	idx.state = &state{
		vectors:     vectors,
		fingerprint: header.Fingerprint,
		builtAt:     header.BuiltAt,
	}
	idx.mu.Unlock()

	idx.logger.InfoWithFields("semantic index restored from snapshot",
		logging.Field("vectors", len(vectors)),
		logging.Field("fingerprint", shortFingerprint(header.Fingerprint)))
	return nil
}
