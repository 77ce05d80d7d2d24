// Package importance scores log entries with a trained LSTM classifier
// exported to ONNX. Each entry gets a probability that it is relevant to
// incident diagnosis; the classifier is optional and the engine degrades to
// the remaining signals when the model cannot be loaded.
package importance

import (
	"context"
	"fmt"

	"github.com/Chandanbam/openstack-rca-system/internal/config"
	"github.com/Chandanbam/openstack-rca-system/internal/corpus"
	"github.com/Chandanbam/openstack-rca-system/internal/logging"
	"github.com/Chandanbam/openstack-rca-system/internal/models"
	"github.com/Chandanbam/openstack-rca-system/internal/modelstore"
)

// batchSize is the number of entries per inference call.
const batchSize = 64

// Scorer runs the importance classifier over a corpus.
type Scorer struct {
	session      *onnxSession
	vocab        *vocab
	maxSeqLen    int
	modelVersion string
	logger       *logging.Logger
}

// New resolves the classifier model and loads it. All failures wrap
// ErrModelUnavailable so callers can treat a missing model as a degraded
// signal rather than a fatal error.
func New(cfg config.ImportanceConfig) (*Scorer, error) {
	handle, err := modelstore.Resolve(cfg.ModelDir, cfg.ModelName, cfg.FallbackModelPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrModelUnavailable, err)
	}
	if handle.VocabPath == "" {
		return nil, fmt.Errorf("%w: model %s has no vocab.json", models.ErrModelUnavailable, handle.ModelPath)
	}

	v, err := loadVocab(handle.VocabPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrModelUnavailable, err)
	}

	session, err := newONNXSession(handle.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrModelUnavailable, err)
	}

	logger := logging.GetLogger("scoring.importance")
	logger.InfoWithFields("importance classifier loaded",
		logging.Field("model", handle.Name),
		logging.Field("version", handle.Version),
		logging.Field("vocab_size", v.size()))

	return &Scorer{
		session:      session,
		vocab:        v,
		maxSeqLen:    cfg.MaxSequenceLength,
		modelVersion: fmt.Sprintf("%s@%s", handle.Name, handle.Version),
		logger:       logger,
	}, nil
}

// ModelVersion returns the resolved model identity for report metadata.
func (s *Scorer) ModelVersion() string {
	return s.modelVersion
}

// Score classifies every entry in the corpus. The result maps entry identity
// to its importance probability in [0, 1]. Inference runs in batches with a
// cancellation check between batches; inference failures wrap
// ErrModelUnavailable.
func (s *Scorer) Score(ctx context.Context, c *corpus.Corpus) (map[string]models.ImportanceScore, error) {
	entries := c.Entries()
	out := make(map[string]models.ImportanceScore, len(entries))

	for start := 0; start < len(entries); start += batchSize {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("importance scoring: %w", err)
		}

		end := min(start+batchSize, len(entries))
		batch := entries[start:end]

		flat := make([]int64, 0, len(batch)*s.maxSeqLen)
		for _, e := range batch {
			flat = append(flat, s.vocab.encode(e.Tokens, s.maxSeqLen)...)
		}

		probs, err := s.session.infer(flat, int64(len(batch)), int64(s.maxSeqLen))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", models.ErrModelUnavailable, err)
		}
		if len(probs) != len(batch) {
			return nil, fmt.Errorf("%w: expected %d probabilities, got %d",
				models.ErrModelUnavailable, len(batch), len(probs))
		}

		for i, e := range batch {
			out[e.ID()] = models.ImportanceScore{
				EntryID:      e.ID(),
				Probability:  clamp01(float64(probs[i])),
				ModelVersion: s.modelVersion,
			}
		}
	}

	s.logger.DebugWithFields("importance scoring complete",
		logging.Field("entries", len(entries)))
	return out, nil
}

// Close releases the ONNX session.
func (s *Scorer) Close() error {
	if s.session != nil {
		return s.session.close()
	}
	return nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
