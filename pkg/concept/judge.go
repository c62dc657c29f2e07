package concept

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/lexigraph/lexigraph/pkg/llms"
	"github.com/lexigraph/lexigraph/pkg/logger"
)

const branchJudgePrompt = `You are a legal ontology expert. Given a concept that appears in a sentence, determine which ontology branch it **best** belongs to.

Ontology branches:
%s

Given:
- **concept**: %s
- **sentence**: %s
- **candidate_branches**: %s

Pick the SINGLE best branch. Respond with JSON:
{"branch": "...", "confidence": 0.95, "reasoning": "..."}`

// JudgeItem is one concept needing branch disambiguation.
type JudgeItem struct {
	ConceptText string
	Sentence    string
	Candidates  []string
}

// Judgment is the model's branch decision.
type Judgment struct {
	Branch     string  `json:"branch"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

// BranchJudge asks the model to disambiguate concepts that resolved without
// a branch assignment.
type BranchJudge struct {
	llm      llms.Provider
	branches []string
}

// NewBranchJudge builds a judge over the given branch catalog.
func NewBranchJudge(llm llms.Provider, branches []string) *BranchJudge {
	return &BranchJudge{llm: llm, branches: branches}
}

// Judge decides the branch for one concept. On failure the first candidate
// wins at half confidence so the pipeline keeps moving.
func (j *BranchJudge) Judge(ctx context.Context, item JudgeItem) Judgment {
	branchList := make([]string, 0, len(j.branches))
	for _, b := range j.branches {
		branchList = append(branchList, "- "+b)
	}
	candidates := item.Candidates
	if len(candidates) == 0 {
		candidates = j.branches
	}
	prompt := fmt.Sprintf(branchJudgePrompt,
		strings.Join(branchList, "\n"),
		item.ConceptText,
		item.Sentence,
		strings.Join(candidates, ", "))

	var result Judgment
	err := j.llm.Structured(ctx, prompt, llms.SchemaFor(&Judgment{}), &result, llms.Options{})
	if err != nil {
		logger.GetLogger().Warn("branch judge failed", "concept", item.ConceptText, "error", err)
		fallback := ""
		if len(item.Candidates) > 0 {
			fallback = item.Candidates[0]
		}
		return Judgment{Branch: fallback, Confidence: 0.5, Reasoning: "fallback"}
	}
	return result
}

// JudgeBatch dispatches items concurrently, preserving input order.
func (j *BranchJudge) JudgeBatch(ctx context.Context, items []JudgeItem) []Judgment {
	results := make([]Judgment, len(items))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for i, item := range items {
		i, item := i, item
		g.Go(func() error {
			judgment := j.Judge(gctx, item)
			mu.Lock()
			results[i] = judgment
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return results
}
