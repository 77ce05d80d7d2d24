// Package corpus parses OpenStack service logs into an ordered, immutable
// log corpus. A corpus is the read-only snapshot every scoring signal works
// from: entries keep their file order, carry stable identities derived from
// (source file, line offset), and never change after construction.
package corpus

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"time"

	"github.com/Chandanbam/openstack-rca-system/internal/models"
)

// Corpus is an immutable ordered collection of log entries. Construction
// validates and indexes the entries; all accessors are safe for concurrent
// use because nothing mutates after NewCorpus returns.
type Corpus struct {
	entries     []models.LogEntry
	byID        map[string]int
	fingerprint string
}

// NewCorpus builds a corpus from entries, preserving their order. Entries
// with duplicate identities are rejected; identity is what ties scores from
// independent signals back to the same entry.
func NewCorpus(entries []models.LogEntry) (*Corpus, error) {
	byID := make(map[string]int, len(entries))
	for i, e := range entries {
		if err := e.Validate(); err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		id := e.ID()
		if prev, dup := byID[id]; dup {
			return nil, fmt.Errorf("duplicate entry identity %q at positions %d and %d", id, prev, i)
		}
		byID[id] = i
	}

	owned := make([]models.LogEntry, len(entries))
	copy(owned, entries)

	return &Corpus{
		entries:     owned,
		byID:        byID,
		fingerprint: computeFingerprint(owned),
	}, nil
}

// computeFingerprint hashes entry identities in order. Two corpora with the
// same entries in the same order share a fingerprint, which is how the
// semantic index detects staleness.
func computeFingerprint(entries []models.LogEntry) string {
	h := sha256.New()
	for _, e := range entries {
		fmt.Fprintf(h, "%s\n", e.ID())
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Len returns the number of entries.
func (c *Corpus) Len() int {
	return len(c.entries)
}

// Fingerprint returns the order-sensitive content hash of the corpus.
func (c *Corpus) Fingerprint() string {
	return c.fingerprint
}

// Entries returns the entries in corpus order. Callers must not modify the
// returned slice.
func (c *Corpus) Entries() []models.LogEntry {
	return c.entries
}

// Get returns the entry with the given identity.
func (c *Corpus) Get(id string) (models.LogEntry, bool) {
	i, ok := c.byID[id]
	if !ok {
		return models.LogEntry{}, false
	}
	return c.entries[i], true
}

// Position returns the corpus-order index of an entry identity. Stable
// ordering tie-breaks use this.
func (c *Corpus) Position(id string) (int, bool) {
	i, ok := c.byID[id]
	return i, ok
}

// Window returns a new corpus holding only entries with from <= timestamp < to.
// Entry identities are unchanged, so scores computed against the window still
// resolve against the parent corpus.
func (c *Corpus) Window(from, to time.Time) (*Corpus, error) {
	var kept []models.LogEntry
	for _, e := range c.entries {
		if e.Timestamp.Before(from) || !e.Timestamp.Before(to) {
			continue
		}
		kept = append(kept, e)
	}
	return NewCorpus(kept)
}

// FilterImportant returns a new corpus holding only entries whose message
// carries an incident-evidence keyword or whose level is ERROR or above.
func (c *Corpus) FilterImportant() (*Corpus, error) {
	var kept []models.LogEntry
	for _, e := range c.entries {
		if e.Level.AtLeast(models.SeverityError) || HasImportantKeyword(e.Message) {
			kept = append(kept, e)
		}
	}
	return NewCorpus(kept)
}

// Stats aggregates corpus composition for the stats endpoint and CLI.
type Stats struct {
	TotalEntries int            `json:"total_entries"`
	Services     map[string]int `json:"services"`
	Levels       map[string]int `json:"levels"`
	Earliest     time.Time      `json:"earliest,omitzero"`
	Latest       time.Time      `json:"latest,omitzero"`
	Fingerprint  string         `json:"fingerprint"`
}

// Stats computes composition counts over the corpus.
func (c *Corpus) Stats() Stats {
	s := Stats{
		TotalEntries: len(c.entries),
		Services:     make(map[string]int),
		Levels:       make(map[string]int),
		Fingerprint:  c.fingerprint,
	}
	for _, e := range c.entries {
		s.Services[e.Service]++
		s.Levels[string(e.Level)]++
		if s.Earliest.IsZero() || e.Timestamp.Before(s.Earliest) {
			s.Earliest = e.Timestamp
		}
		if e.Timestamp.After(s.Latest) {
			s.Latest = e.Timestamp
		}
	}
	return s
}

// ServiceNames returns the distinct services in the corpus, sorted.
func (c *Corpus) ServiceNames() []string {
	seen := make(map[string]bool)
	for _, e := range c.entries {
		seen[e.Service] = true
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
