package config

import (
	"fmt"
	"time"
)

// Config is the root configuration for the lexigraph service.
type Config struct {
	Logging   LoggingConfig   `yaml:"logging"`
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Ontology  OntologyConfig  `yaml:"ontology"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	LLM       LLMConfig       `yaml:"llm"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // simple or verbose
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`

	// Per-client token bucket.
	RateLimitPerSecond float64 `yaml:"rate_limit_per_second"`
	RateLimitBurst     int     `yaml:"rate_limit_burst"`

	// Process-wide cap on concurrently running jobs. Requests over the
	// limit are rejected with a retry-after hint.
	MaxActiveJobs int `yaml:"max_active_jobs"`
}

type StorageConfig struct {
	JobsDir          string `yaml:"jobs_dir"`
	FeedbackDir      string `yaml:"feedback_dir"`
	JobRetentionDays int    `yaml:"job_retention_days"`
}

type OntologyConfig struct {
	Path           string `yaml:"path"`
	MaxBranchDepth int    `yaml:"max_branch_depth"`
}

type PipelineConfig struct {
	MaxChunkChars     int `yaml:"max_chunk_chars"`
	ChunkOverlapChars int `yaml:"chunk_overlap_chars"`

	// Reconciliation / resolution knobs. Empirical; defaults mirror
	// production values.
	RulerOnlyMinConfidence float64 `yaml:"ruler_only_min_confidence"`
	ResolverThreshold      float64 `yaml:"resolver_threshold"`
	ResolverCacheSize      int     `yaml:"resolver_cache_size"`
	ResolverCacheTTL       time.Duration `yaml:"resolver_cache_ttl"`

	// Property matcher base confidences by label type.
	PropertyPreferredConfidence float64 `yaml:"property_preferred_confidence"`
	PropertyAltConfidence       float64 `yaml:"property_alt_confidence"`
	PropertyLemmaConfidence     float64 `yaml:"property_lemma_confidence"`

	// Contextual reranker document prefix length.
	RerankContextChars int `yaml:"rerank_context_chars"`

	// Event stream polling cadence.
	EventPollInterval time.Duration `yaml:"event_poll_interval"`
}

type EmbeddingConfig struct {
	Enabled bool   `yaml:"enabled"`
	Model   string `yaml:"model"`
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

// LLMProviderConfig configures one LLM provider endpoint.
type LLMProviderConfig struct {
	Provider    string        `yaml:"provider"` // openai, anthropic, gemini, ollama
	Model       string        `yaml:"model"`
	APIKey      string        `yaml:"api_key"`
	BaseURL     string        `yaml:"base_url"`
	MaxTokens   int           `yaml:"max_tokens"`
	Temperature float64       `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"`
	MaxRetries  int           `yaml:"max_retries"`
}

// LLMConfig holds the default provider plus per-task overrides.
// Task names: classifier, extractor, concept, branch_judge, area_of_law,
// individual, property, document_type.
type LLMConfig struct {
	Default LLMProviderConfig            `yaml:"default"`
	Tasks   map[string]LLMProviderConfig `yaml:"tasks"`
}

// SetDefaults fills zero values with production defaults.
func (c *Config) SetDefaults() {
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "simple"
	}
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.RateLimitPerSecond == 0 {
		c.Server.RateLimitPerSecond = 5
	}
	if c.Server.RateLimitBurst == 0 {
		c.Server.RateLimitBurst = 10
	}
	if c.Server.MaxActiveJobs == 0 {
		c.Server.MaxActiveJobs = 4
	}
	if c.Storage.JobsDir == "" {
		c.Storage.JobsDir = "data/jobs"
	}
	if c.Storage.FeedbackDir == "" {
		c.Storage.FeedbackDir = "data/feedback"
	}
	if c.Storage.JobRetentionDays == 0 {
		c.Storage.JobRetentionDays = 30
	}
	if c.Ontology.MaxBranchDepth == 0 {
		c.Ontology.MaxBranchDepth = 3
	}
	if c.Pipeline.MaxChunkChars == 0 {
		c.Pipeline.MaxChunkChars = 8000
	}
	if c.Pipeline.ChunkOverlapChars == 0 {
		c.Pipeline.ChunkOverlapChars = 400
	}
	if c.Pipeline.RulerOnlyMinConfidence == 0 {
		c.Pipeline.RulerOnlyMinConfidence = 0.60
	}
	if c.Pipeline.ResolverThreshold == 0 {
		c.Pipeline.ResolverThreshold = 30.0
	}
	if c.Pipeline.ResolverCacheSize == 0 {
		c.Pipeline.ResolverCacheSize = 4096
	}
	if c.Pipeline.ResolverCacheTTL == 0 {
		c.Pipeline.ResolverCacheTTL = time.Hour
	}
	if c.Pipeline.PropertyPreferredConfidence == 0 {
		c.Pipeline.PropertyPreferredConfidence = 0.85
	}
	if c.Pipeline.PropertyAltConfidence == 0 {
		c.Pipeline.PropertyAltConfidence = 0.75
	}
	if c.Pipeline.PropertyLemmaConfidence == 0 {
		c.Pipeline.PropertyLemmaConfidence = 0.72
	}
	if c.Pipeline.RerankContextChars == 0 {
		c.Pipeline.RerankContextChars = 3000
	}
	if c.Pipeline.EventPollInterval == 0 {
		c.Pipeline.EventPollInterval = 300 * time.Millisecond
	}
	c.LLM.Default.setDefaults()
	for name, task := range c.LLM.Tasks {
		task.setDefaults()
		c.LLM.Tasks[name] = task
	}
}

func (p *LLMProviderConfig) setDefaults() {
	if p.MaxTokens == 0 {
		p.MaxTokens = 4096
	}
	if p.Timeout == 0 {
		p.Timeout = 120 * time.Second
	}
	if p.MaxRetries == 0 {
		p.MaxRetries = 2
	}
}

// Validate checks the configuration for inconsistencies.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Pipeline.ChunkOverlapChars >= c.Pipeline.MaxChunkChars {
		return fmt.Errorf("chunk overlap (%d) must be smaller than chunk size (%d)",
			c.Pipeline.ChunkOverlapChars, c.Pipeline.MaxChunkChars)
	}
	if c.Pipeline.RulerOnlyMinConfidence < 0 || c.Pipeline.RulerOnlyMinConfidence > 1 {
		return fmt.Errorf("ruler_only_min_confidence must be in [0,1]")
	}
	for name, task := range c.LLM.Tasks {
		if task.Provider == "" {
			return fmt.Errorf("llm task %q missing provider", name)
		}
	}
	return nil
}

// TaskProvider returns the provider config for a task, falling back to the
// default when no task-specific override exists.
func (c *LLMConfig) TaskProvider(task string) LLMProviderConfig {
	if cfg, ok := c.Tasks[task]; ok && cfg.Provider != "" {
		return cfg
	}
	return c.Default
}
