package importance

import (
	"encoding/json"
	"fmt"
	"os"
)

const (
	padID = 0
	oovID = 1

	oovToken = "<OOV>"
)

// vocab maps tokens to the integer IDs the classifier was trained with.
// vocab.json is the trainer's word index: a JSON object of token to ID, with
// ID 0 reserved for padding and the out-of-vocabulary token at ID 1.
type vocab struct {
	tokenToID map[string]int64
	oov       int64
}

// loadVocab reads a vocab.json word index.
func loadVocab(path string) (*vocab, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("vocab: %w", err)
	}

	var tokenToID map[string]int64
	if err := json.Unmarshal(data, &tokenToID); err != nil {
		return nil, fmt.Errorf("vocab: parse %s: %w", path, err)
	}
	if len(tokenToID) == 0 {
		return nil, fmt.Errorf("vocab: file is empty: %s", path)
	}

	v := &vocab{tokenToID: tokenToID, oov: oovID}
	if id, ok := tokenToID[oovToken]; ok {
		v.oov = id
	}
	return v, nil
}

// lookup returns the ID for a token, or the out-of-vocabulary ID.
func (v *vocab) lookup(token string) int64 {
	if id, ok := v.tokenToID[token]; ok {
		return id
	}
	return v.oov
}

// encode turns tokens into a fixed-length ID sequence. Sequences longer than
// maxLen keep their tail; shorter ones are padded on the left with the pad
// ID. Both match how the trainer prepares sequences.
func (v *vocab) encode(tokens []string, maxLen int) []int64 {
	if len(tokens) > maxLen {
		tokens = tokens[len(tokens)-maxLen:]
	}

	ids := make([]int64, maxLen)
	offset := maxLen - len(tokens)
	for i, tok := range tokens {
		ids[offset+i] = v.lookup(tok)
	}
	return ids
}

// size returns the vocabulary size.
func (v *vocab) size() int {
	return len(v.tokenToID)
}
