// Package patterns clusters log messages into recurring templates using the
// Drain algorithm. Template groups compress thousands of near-identical lines
// into a handful of patterns with counts, which keeps LLM prompt context
// small without losing the shape of the incident.
package patterns

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/faceair/drain"

	"github.com/Chandanbam/openstack-rca-system/internal/corpus"
)

// MinerConfig holds the Drain clustering parameters.
type MinerConfig struct {
	// LogClusterDepth controls the depth of the parse tree (minimum 3).
	LogClusterDepth int

	// SimTh is the similarity threshold; 0.4 balances OpenStack's structured
	// messages against free-text tracebacks.
	SimTh float64

	// MaxChildren limits branches per node to prevent explosion from
	// variable-starting messages.
	MaxChildren int

	// MaxClusters limits total templates (0 = unlimited).
	MaxClusters int

	// ExtraDelimiters are token separators beyond whitespace.
	ExtraDelimiters []string

	// ParamString is the wildcard placeholder used in templates.
	ParamString string
}

// DefaultMinerConfig returns the clustering parameters tuned for OpenStack
// service logs.
func DefaultMinerConfig() MinerConfig {
	return MinerConfig{
		LogClusterDepth: 4,
		SimTh:           0.4,
		MaxChildren:     100,
		MaxClusters:     0,
		ExtraDelimiters: []string{"_", "="},
		ParamString:     "<*>",
	}
}

// TemplateGroup is one mined template with the entries it covers.
type TemplateGroup struct {
	// ID is a stable hash of the template pattern
	ID string `json:"id"`

	// Template is the mined pattern with variables replaced by wildcards
	Template string `json:"template"`

	// Count is the number of entries matching the template
	Count int `json:"count"`

	// RepresentativeID is the identity of the first entry seen for the template
	RepresentativeID string `json:"representative_id"`

	// EntryIDs are the identities of all covered entries, in corpus order
	EntryIDs []string `json:"entry_ids"`
}

// Miner clusters messages into templates. A miner is single-use per corpus;
// clustering state is not shared across corpora so results stay deterministic
// for a given input.
type Miner struct {
	config MinerConfig
}

// NewMiner creates a miner with the given configuration.
func NewMiner(config MinerConfig) *Miner {
	return &Miner{config: config}
}

// Mine clusters every entry message and returns template groups sorted by
// descending count, ties broken by first appearance.
//
// Grouping keys on the cluster object, not its pattern text: the first entry
// of a cluster trains a template without wildcards, and only later entries
// generalize it. Patterns are extracted after all training so every group
// carries the final wildcarded form.
func (m *Miner) Mine(c *corpus.Corpus) []TemplateGroup {
	d := drain.New(&drain.Config{
		LogClusterDepth: m.config.LogClusterDepth,
		SimTh:           m.config.SimTh,
		MaxChildren:     m.config.MaxChildren,
		MaxClusters:     m.config.MaxClusters,
		ExtraDelimiters: m.config.ExtraDelimiters,
		ParamString:     m.config.ParamString,
	})

	byCluster := make(map[*drain.LogCluster][]string)
	var order []*drain.LogCluster
	for _, entry := range c.Entries() {
		cluster := d.Train(entry.Message)
		if cluster == nil {
			continue
		}
		if _, seen := byCluster[cluster]; !seen {
			order = append(order, cluster)
		}
		byCluster[cluster] = append(byCluster[cluster], entry.ID())
	}

	// Clusters whose final patterns converge merge into one group.
	groups := make(map[string]*TemplateGroup)
	var groupOrder []string
	for _, cluster := range order {
		pattern := extractPattern(cluster.String())
		id := templateID(pattern)
		ids := byCluster[cluster]

		group, exists := groups[id]
		if !exists {
			group = &TemplateGroup{
				ID:               id,
				Template:         pattern,
				RepresentativeID: ids[0],
			}
			groups[id] = group
			groupOrder = append(groupOrder, id)
		}
		group.Count += len(ids)
		group.EntryIDs = append(group.EntryIDs, ids...)
	}

	firstSeen := make(map[string]int, len(groupOrder))
	for i, id := range groupOrder {
		firstSeen[id] = i
	}

	out := make([]TemplateGroup, 0, len(groups))
	for _, id := range groupOrder {
		out = append(out, *groups[id])
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return firstSeen[out[i].ID] < firstSeen[out[j].ID]
	})
	return out
}

// extractPattern pulls the template text out of a cluster's string form,
// which is "id={X} : size={Y} : pattern".
func extractPattern(clusterStr string) string {
	lastSep := strings.LastIndex(clusterStr, " : ")
	if lastSep == -1 {
		return clusterStr
	}
	return strings.TrimSpace(clusterStr[lastSep+3:])
}

// templateID hashes a pattern into a stable identifier. Drain rewrites
// learned positions to the wildcard over time, so the hash uses the final
// pattern text, not the first occurrence.
func templateID(pattern string) string {
	hash := sha256.Sum256([]byte(pattern))
	return hex.EncodeToString(hash[:])[:16]
}

// Summarize renders the top template groups as prompt-ready lines, one per
// template: "47x [nova-compute] Instance failed to spawn <*>".
func Summarize(groups []TemplateGroup, c *corpus.Corpus, limit int) []string {
	if limit <= 0 || limit > len(groups) {
		limit = len(groups)
	}
	lines := make([]string, 0, limit)
	for _, g := range groups[:limit] {
		service := "unknown"
		if entry, ok := c.Get(g.RepresentativeID); ok {
			service = entry.Service
		}
		lines = append(lines, fmt.Sprintf("%dx [%s] %s", g.Count, service, g.Template))
	}
	return lines
}
