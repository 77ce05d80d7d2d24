package config

import (
	"fmt"
	"math"
	"path/filepath"
)

// Config holds all configuration for the RCA system. Loaded from a YAML file
// with defaults applied first, then passed explicitly into the engine at
// construction. There is no process-wide mutable config state.
type Config struct {
	// DataDir is the directory for index snapshots and derived state
	DataDir string `yaml:"data_dir"`

	// LogDir is the default directory of OpenStack log files to ingest
	LogDir string `yaml:"log_dir"`

	// APIPort is the port the HTTP API listens on
	APIPort int `yaml:"api_port"`

	// LogLevel is the default logging level (debug, info, warn, error)
	LogLevel string `yaml:"log_level"`

	// ComponentLogLevels overrides the level per component, "scoring.*" style
	ComponentLogLevels map[string]string `yaml:"component_log_levels"`

	// MaxConcurrentRequests bounds simultaneous analyze requests
	MaxConcurrentRequests int `yaml:"max_concurrent_requests"`

	// Scoring holds fusion weights and candidate limits
	Scoring ScoringConfig `yaml:"scoring"`

	// Timeouts holds the per-call and per-request budgets in milliseconds
	Timeouts TimeoutConfig `yaml:"timeouts"`

	// Importance configures the classifier model store
	Importance ImportanceConfig `yaml:"importance"`

	// Embedding configures the embedding service client
	Embedding EmbeddingConfig `yaml:"embedding"`

	// Index configures the semantic search index
	Index IndexConfig `yaml:"index"`

	// LLM configures the report-narrative provider
	LLM LLMConfig `yaml:"llm"`

	// Window configures time-window corpus filtering
	Window WindowConfig `yaml:"window"`

	// TracingEnabled turns on OpenTelemetry tracing
	TracingEnabled bool `yaml:"tracing_enabled"`

	// TracingEndpoint is the OTLP gRPC endpoint for trace export
	TracingEndpoint string `yaml:"tracing_endpoint"`
}

// ScoringConfig holds the fusion weight sets and candidate limits. Weights
// are tunable configuration, not constants; each active set must sum to 1.0.
type ScoringConfig struct {
	// HybridWeights apply when importance, semantic, and lexical all run
	HybridWeights SignalWeights `yaml:"hybrid_weights"`

	// FastWeights apply when the semantic signal is absent
	FastWeights SignalWeights `yaml:"fast_weights"`

	// MaxCandidates truncates the fused ranking
	MaxCandidates int `yaml:"max_candidates"`

	// ReportTopN is how many candidates the report prompt carries
	ReportTopN int `yaml:"report_top_n"`
}

// SignalWeights is one weight set over the three signals. A zero weight
// removes the signal from the set.
type SignalWeights struct {
	Importance float64 `yaml:"importance"`
	Semantic   float64 `yaml:"semantic"`
	Lexical    float64 `yaml:"lexical"`
}

// Sum returns the total of all weights in the set.
func (w SignalWeights) Sum() float64 {
	return w.Importance + w.Semantic + w.Lexical
}

// TimeoutConfig holds time budgets in milliseconds. Every external call gets
// its own budget; RequestMS is the request-level deadline for hybrid mode.
type TimeoutConfig struct {
	ClassifierMS int `yaml:"classifier_ms"`
	EmbeddingMS  int `yaml:"embedding_ms"`
	SearchMS     int `yaml:"search_ms"`
	LLMMS        int `yaml:"llm_ms"`
	RequestMS    int `yaml:"request_ms"`
}

// ImportanceConfig locates the classifier. ModelDir holds versioned
// subdirectories per model name; FallbackModelPath is used when the store has
// no versions.
type ImportanceConfig struct {
	ModelDir          string `yaml:"model_dir"`
	ModelName         string `yaml:"model_name"`
	FallbackModelPath string `yaml:"fallback_model_path"`
	MaxSequenceLength int    `yaml:"max_sequence_length"`
}

// EmbeddingConfig configures the sentence-embedding HTTP service client.
type EmbeddingConfig struct {
	BaseURL        string `yaml:"base_url"`
	Model          string `yaml:"model"`
	Dimensions     int    `yaml:"dimensions"`
	BatchSize      int    `yaml:"batch_size"`
	MaxConcurrency int    `yaml:"max_concurrency"`
	CacheSize      int    `yaml:"cache_size"`
}

// IndexConfig configures the semantic search index.
type IndexConfig struct {
	// SnapshotFile is the persisted index path, relative to DataDir when not
	// absolute
	SnapshotFile string `yaml:"snapshot_file"`

	// TopK is how many semantic hits a search returns
	TopK int `yaml:"top_k"`
}

// LLMConfig configures the narrative provider.
type LLMConfig struct {
	// Provider is "anthropic" or "gemini"
	Provider string `yaml:"provider"`

	Model       string  `yaml:"model"`
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`
}

// WindowConfig configures time-window filtering of the corpus.
type WindowConfig struct {
	// DefaultMinutes is the window applied when a request asks for windowing
	// without explicit bounds
	DefaultMinutes int `yaml:"default_minutes"`
}

// DefaultConfig returns the configuration used when no file is given. The
// fusion weights and model settings follow the shipped deployment profile.
func DefaultConfig() *Config {
	return &Config{
		DataDir:               "./data",
		LogDir:                "./logs",
		APIPort:               8080,
		LogLevel:              "info",
		MaxConcurrentRequests: 16,
		Scoring: ScoringConfig{
			HybridWeights: SignalWeights{Importance: 0.4, Semantic: 0.4, Lexical: 0.2},
			FastWeights:   SignalWeights{Importance: 0.6, Semantic: 0, Lexical: 0.4},
			MaxCandidates: 50,
			ReportTopN:    10,
		},
		Timeouts: TimeoutConfig{
			ClassifierMS: 5000,
			EmbeddingMS:  5000,
			SearchMS:     3000,
			LLMMS:        30000,
			RequestMS:    60000,
		},
		Importance: ImportanceConfig{
			ModelDir:          "./models",
			ModelName:         "lstm-importance",
			FallbackModelPath: "./models/lstm_log_classifier.onnx",
			MaxSequenceLength: 100,
		},
		Embedding: EmbeddingConfig{
			BaseURL:        "http://localhost:8081",
			Model:          "all-MiniLM-L12-v2",
			Dimensions:     384,
			BatchSize:      64,
			MaxConcurrency: 4,
			CacheSize:      8192,
		},
		Index: IndexConfig{
			SnapshotFile: "semantic_index.json",
			TopK:         20,
		},
		LLM: LLMConfig{
			Provider:    "anthropic",
			Model:       "claude-3-5-sonnet-20241022",
			MaxTokens:   2000,
			Temperature: 0.1,
		},
		Window: WindowConfig{
			DefaultMinutes: 30,
		},
	}
}

// IndexSnapshotPath resolves the snapshot file against DataDir.
func (c *Config) IndexSnapshotPath() string {
	if filepath.IsAbs(c.Index.SnapshotFile) {
		return c.Index.SnapshotFile
	}
	return filepath.Join(c.DataDir, c.Index.SnapshotFile)
}

// weightEpsilon is the tolerance for weight-set sums.
const weightEpsilon = 1e-9

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return NewConfigError("data_dir must not be empty")
	}
	if c.APIPort < 1 || c.APIPort > 65535 {
		return NewConfigError("api_port must be between 1 and 65535")
	}
	if c.MaxConcurrentRequests < 1 {
		return NewConfigError("max_concurrent_requests must be at least 1")
	}

	if err := validateWeights("scoring.hybrid_weights", c.Scoring.HybridWeights); err != nil {
		return err
	}
	if err := validateWeights("scoring.fast_weights", c.Scoring.FastWeights); err != nil {
		return err
	}
	if c.Scoring.FastWeights.Semantic != 0 {
		return NewConfigError("scoring.fast_weights.semantic must be 0: fast mode runs without the semantic signal")
	}
	if c.Scoring.MaxCandidates < 1 {
		return NewConfigError("scoring.max_candidates must be at least 1")
	}
	if c.Scoring.ReportTopN < 1 || c.Scoring.ReportTopN > c.Scoring.MaxCandidates {
		return NewConfigError("scoring.report_top_n must be between 1 and scoring.max_candidates")
	}

	for name, ms := range map[string]int{
		"timeouts.classifier_ms": c.Timeouts.ClassifierMS,
		"timeouts.embedding_ms":  c.Timeouts.EmbeddingMS,
		"timeouts.search_ms":     c.Timeouts.SearchMS,
		"timeouts.llm_ms":        c.Timeouts.LLMMS,
		"timeouts.request_ms":    c.Timeouts.RequestMS,
	} {
		if ms < 1 {
			return NewConfigError(fmt.Sprintf("%s must be at least 1", name))
		}
	}

	if c.Importance.ModelName == "" {
		return NewConfigError("importance.model_name must not be empty")
	}
	if c.Importance.MaxSequenceLength < 1 {
		return NewConfigError("importance.max_sequence_length must be at least 1")
	}

	if c.Embedding.Dimensions < 1 {
		return NewConfigError("embedding.dimensions must be at least 1")
	}
	if c.Embedding.BatchSize < 1 {
		return NewConfigError("embedding.batch_size must be at least 1")
	}
	if c.Embedding.MaxConcurrency < 1 {
		return NewConfigError("embedding.max_concurrency must be at least 1")
	}

	if c.Index.TopK < 1 {
		return NewConfigError("index.top_k must be at least 1")
	}

	switch c.LLM.Provider {
	case "anthropic", "gemini":
	default:
		return NewConfigError(fmt.Sprintf("llm.provider %q is not supported (anthropic, gemini)", c.LLM.Provider))
	}
	if c.LLM.MaxTokens < 1 {
		return NewConfigError("llm.max_tokens must be at least 1")
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return NewConfigError("llm.temperature must be between 0 and 2")
	}

	if c.Window.DefaultMinutes < 1 {
		return NewConfigError("window.default_minutes must be at least 1")
	}

	if c.TracingEnabled && c.TracingEndpoint == "" {
		return NewConfigError("tracing_endpoint must be set when tracing is enabled")
	}

	return nil
}

// validateWeights checks a weight set: non-negative components summing to 1.0.
func validateWeights(name string, w SignalWeights) error {
	if w.Importance < 0 || w.Semantic < 0 || w.Lexical < 0 {
		return NewConfigError(fmt.Sprintf("%s components must be non-negative", name))
	}
	if math.Abs(w.Sum()-1.0) > weightEpsilon {
		return NewConfigError(fmt.Sprintf("%s must sum to 1.0, got %v", name, w.Sum()))
	}
	return nil
}

// ConfigError represents a configuration error.
type ConfigError struct {
	message string
}

// NewConfigError creates a new configuration error.
func NewConfigError(message string) *ConfigError {
	return &ConfigError{message: message}
}

// Error returns the error message.
func (e *ConfigError) Error() string {
	return e.message
}
