// Package quality cross-checks a completed job's self-identified document
// type against what the pipeline actually found.
package quality

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/lexigraph/lexigraph/pkg/llms"
	"github.com/lexigraph/lexigraph/pkg/logger"
	"github.com/lexigraph/lexigraph/pkg/model"
)

const qualityCheckPrompt = `You are a quality assurance reviewer for a legal document enrichment pipeline.

The document identifies itself as: %s

The pipeline found the following enrichment results:
- Annotation count: %d
- Property count: %d
- Top concept branches: %s
- Top concept labels: %s

Identify any quality concerns:
1. Are there expected concept branches for this document type that are MISSING?
2. Are there unexpected branches that dominate the results?
3. Does the annotation count seem reasonable for this document type?
4. Any other mismatches between the document type and the pipeline findings?

Respond with JSON:
{"signals": [
  {"signal": "short description", "severity": "warning or info", "details": "explanation"}
]}

If everything looks consistent, return an empty signals array.`

// Signal is one quality concern.
type Signal struct {
	Signal   string `json:"signal"`
	Severity string `json:"severity"` // warning or info
	Details  string `json:"details"`
}

type checkResponse struct {
	Signals []Signal `json:"signals"`
}

// Checker runs the post-completion document-type consistency review.
type Checker struct {
	llm llms.Provider
}

// NewChecker builds a checker.
func NewChecker(llm llms.Provider) *Checker {
	return &Checker{llm: llm}
}

// Check reviews the job. No self-identified type means nothing to check.
func (c *Checker) Check(ctx context.Context, job *model.Job) []Signal {
	selfType := job.Result.Metadata.SelfIdentifiedType
	if selfType == "" {
		return nil
	}

	branchSummary, conceptSummary := summarize(job.Result.Metadata.ResolvedConcepts)
	prompt := fmt.Sprintf(qualityCheckPrompt,
		selfType,
		len(job.Result.Annotations),
		len(job.Result.Properties),
		branchSummary,
		conceptSummary)

	var resp checkResponse
	if err := c.llm.Structured(ctx, prompt, llms.SchemaFor(&checkResponse{}), &resp, llms.Options{}); err != nil {
		logger.GetLogger().Warn("document type quality check failed", "error", err)
		return nil
	}

	for i := range resp.Signals {
		if resp.Signals[i].Severity != "warning" && resp.Signals[i].Severity != "info" {
			resp.Signals[i].Severity = "info"
		}
	}
	return resp.Signals
}

// summarize counts branches and labels over the resolved concepts, most
// common first.
func summarize(resolved []model.ResolvedConcept) (branches, concepts string) {
	branchCounts := make(map[string]int)
	conceptCounts := make(map[string]int)
	for _, c := range resolved {
		if c.Branch != "" {
			branchCounts[c.Branch]++
		}
		label := c.Label
		if label == "" {
			label = c.ConceptText
		}
		if label != "" {
			conceptCounts[label]++
		}
	}
	return mostCommon(branchCounts, 10), mostCommon(conceptCounts, 15)
}

func mostCommon(counts map[string]int, limit int) string {
	type entry struct {
		key   string
		count int
	}
	entries := make([]entry, 0, len(counts))
	for k, n := range counts {
		entries = append(entries, entry{k, n})
	}
	if len(entries) == 0 {
		return "none"
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].count != entries[j].count {
			return entries[i].count > entries[j].count
		}
		return entries[i].key < entries[j].key
	})
	if len(entries) > limit {
		entries = entries[:limit]
	}
	parts := make([]string, len(entries))
	for i, e := range entries {
		parts[i] = fmt.Sprintf("%s (x%d)", e.key, e.count)
	}
	return strings.Join(parts, ", ")
}
