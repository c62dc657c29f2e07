package llms

import (
	"fmt"
	"sync"

	"github.com/lexigraph/lexigraph/pkg/config"
)

// Pipeline task names used for per-task provider overrides.
const (
	TaskClassifier   = "classifier"
	TaskExtractor    = "extractor"
	TaskConcept      = "concept"
	TaskBranchJudge  = "branch_judge"
	TaskAreaOfLaw    = "area_of_law"
	TaskIndividual   = "individual"
	TaskProperty     = "property"
	TaskDocumentType = "document_type"
)

// NewFromConfig constructs a provider for one endpoint config.
func NewFromConfig(cfg config.LLMProviderConfig) (Provider, error) {
	switch cfg.Provider {
	case "openai", "ollama", "lmstudio", "":
		return NewOpenAIProvider(cfg), nil
	case "anthropic":
		return NewAnthropicProvider(cfg), nil
	case "gemini":
		return NewGeminiProvider(cfg), nil
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", cfg.Provider)
	}
}

// TaskSet resolves providers per pipeline task. Identical endpoint configs
// share a single provider instance so rate-limit state is not fragmented.
type TaskSet struct {
	cfg config.LLMConfig

	mu    sync.Mutex
	cache map[string]Provider // keyed by provider+model+baseURL
}

// NewTaskSet builds a task-aware provider resolver.
func NewTaskSet(cfg config.LLMConfig) *TaskSet {
	return &TaskSet{cfg: cfg, cache: make(map[string]Provider)}
}

// ForTask returns the provider configured for the task, or the default. A
// task whose resolved endpoint names no model is treated as unconfigured so
// the orchestrator can skip its stage.
func (s *TaskSet) ForTask(task string) (Provider, error) {
	pc := s.cfg.TaskProvider(task)
	if pc.Model == "" {
		return nil, fmt.Errorf("task %s: no model configured", task)
	}
	key := pc.Provider + "|" + pc.Model + "|" + pc.BaseURL

	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.cache[key]; ok {
		return p, nil
	}
	p, err := NewFromConfig(pc)
	if err != nil {
		return nil, fmt.Errorf("task %s: %w", task, err)
	}
	s.cache[key] = p
	return p, nil
}

// Default returns the fallback provider.
func (s *TaskSet) Default() (Provider, error) {
	return s.ForTask("")
}
