// Package semindex maintains the in-memory semantic search index: one
// unit-normalized vector per log entry, searchable by cosine similarity.
// The index is refreshed against a corpus snapshot and persisted to disk so
// restarts do not re-embed an unchanged corpus.
package semindex

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Chandanbam/openstack-rca-system/internal/corpus"
	"github.com/Chandanbam/openstack-rca-system/internal/embedding"
	"github.com/Chandanbam/openstack-rca-system/internal/logging"
	"github.com/Chandanbam/openstack-rca-system/internal/models"
)

// Embedder is the vector source for the index. Satisfied by
// *embedding.Client.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedOne(ctx context.Context, text string) ([]float32, error)
	ModelID() string
	Dimensions() int
}

// indexedVector is one entry's embedded representation.
type indexedVector struct {
	id  string
	ts  time.Time
	seq int
	vec []float32
}

// state is the swappable index content. Refresh builds a new state and
// installs it atomically so searches never observe a half-built index.
type state struct {
	vectors     []indexedVector
	fingerprint string
	builtAt     time.Time
}

// Options tunes index refresh and persistence.
type Options struct {
	// SnapshotPath is where the index persists itself, empty disables
	SnapshotPath string

	// BatchSize is entries per embedding request during refresh
	BatchSize int

	// MaxConcurrency bounds in-flight embedding requests during refresh
	MaxConcurrency int
}

// Index is the semantic search index.
type Index struct {
	embedder Embedder
	cache    *embedding.CacheStore
	opts     Options
	logger   *logging.Logger

	mu    sync.RWMutex
	state *state
}

// New creates an index. cache may be nil to disable vector caching.
func New(embedder Embedder, cache *embedding.CacheStore, opts Options) *Index {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 64
	}
	if opts.MaxConcurrency <= 0 {
		opts.MaxConcurrency = 4
	}
	return &Index{
		embedder: embedder,
		cache:    cache,
		opts:     opts,
		logger:   logging.GetLogger("semindex"),
	}
}

// Ready reports whether the index holds a built snapshot.
func (idx *Index) Ready() bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.state != nil
}

// Fingerprint returns the corpus fingerprint of the current snapshot, or ""
// when the index is empty.
func (idx *Index) Fingerprint() string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	if idx.state == nil {
		return ""
	}
	return idx.state.fingerprint
}

// ModelID returns the embedding model identifier backing the index.
func (idx *Index) ModelID() string {
	return idx.embedder.ModelID()
}

// Size returns the number of indexed vectors.
func (idx *Index) Size() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	if idx.state == nil {
		return 0
	}
	return len(idx.state.vectors)
}

// Search embeds the query and returns the k most similar entries.
// corpusFingerprint identifies the corpus under analysis; a missing index or
// a snapshot built from a different corpus returns ErrIndexUnavailable, and
// embedding failures pass through as ErrEmbeddingService. Equal similarities
// rank the earlier entry first.
func (idx *Index) Search(ctx context.Context, corpusFingerprint, query string, k int) ([]models.SearchResult, error) {
	idx.mu.RLock()
	st := idx.state
	idx.mu.RUnlock()

	if st == nil {
		return nil, fmt.Errorf("%w: index not built", models.ErrIndexUnavailable)
	}
	if st.fingerprint != corpusFingerprint {
		return nil, fmt.Errorf("%w: index fingerprint %.12s does not match corpus %.12s",
			models.ErrIndexUnavailable, st.fingerprint, corpusFingerprint)
	}

	queryVec, err := idx.embedder.EmbedOne(ctx, query)
	if err != nil {
		return nil, err
	}

	results := make([]models.SearchResult, 0, len(st.vectors))
	for _, iv := range st.vectors {
		results = append(results, models.SearchResult{
			EntryID:    iv.id,
			Similarity: dot(queryVec, iv.vec),
		})
	}

	bySeq := make(map[string]int, len(st.vectors))
	byTS := make(map[string]time.Time, len(st.vectors))
	for _, iv := range st.vectors {
		bySeq[iv.id] = iv.seq
		byTS[iv.id] = iv.ts
	}
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Similarity != results[j].Similarity {
			return results[i].Similarity > results[j].Similarity
		}
		ti, tj := byTS[results[i].EntryID], byTS[results[j].EntryID]
		if !ti.Equal(tj) {
			return ti.Before(tj)
		}
		return bySeq[results[i].EntryID] < bySeq[results[j].EntryID]
	})

	if k > 0 && len(results) > k {
		results = results[:k]
	}
	for i := range results {
		results[i].Rank = i + 1
	}
	return results, nil
}

// Refresh embeds every corpus entry and swaps the index to the new snapshot.
// Embedding runs in bounded-concurrency batches; cached vectors are reused.
// On success the snapshot is persisted when a snapshot path is configured.
func (idx *Index) Refresh(ctx context.Context, c *corpus.Corpus) error {
	entries := c.Entries()
	vectors := make([]indexedVector, len(entries))

	// resolve cache hits first so only misses go over the wire
	var missIdx []int
	for i, entry := range entries {
		vectors[i] = indexedVector{id: entry.ID(), ts: entry.Timestamp, seq: i}
		if idx.cache != nil {
			if vec, ok := idx.cache.Get(entry.ID()); ok {
				vectors[i].vec = vec
				continue
			}
		}
		missIdx = append(missIdx, i)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(idx.opts.MaxConcurrency)
	var mu sync.Mutex
	batchSize := idx.opts.BatchSize

	for start := 0; start < len(missIdx); start += batchSize {
		end := min(start+batchSize, len(missIdx))
		batch := missIdx[start:end]

		g.Go(func() error {
			texts := make([]string, len(batch))
			for i, pos := range batch {
				texts[i] = entries[pos].Message
			}
			vecs, err := idx.embedder.Embed(gctx, texts)
			if err != nil {
				return err
			}

			mu.Lock()
			for i, pos := range batch {
				vectors[pos].vec = vecs[i]
				if idx.cache != nil {
					idx.cache.Put(entries[pos].ID(), vecs[i])
				}
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("index refresh: %w", err)
	}

	newState := &state{
		vectors:     vectors,
		fingerprint: c.Fingerprint(),
		builtAt:     time.Now().UTC(),
	}

	idx.mu.Lock()
	idx.state = newState
	idx.mu.Unlock()

	idx.logger.InfoWithFields("semantic index refreshed",
		logging.Field("vectors", len(vectors)),
		logging.Field("embedded", len(missIdx)),
		logging.Field("cached", len(vectors)-len(missIdx)),
		logging.Field("fingerprint", shortFingerprint(newState.fingerprint)))

	if idx.opts.SnapshotPath != "" {
		if err := idx.save(newState); err != nil {
			idx.logger.ErrorWithErr("failed to persist index snapshot", err)
		}
	}
	return nil
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

func shortFingerprint(fp string) string {
	if len(fp) > 12 {
		return fp[:12]
	}
	return fp
}
