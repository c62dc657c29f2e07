package concept

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/lexigraph/lexigraph/pkg/llms"
	"github.com/lexigraph/lexigraph/pkg/model"
)

const areaOfLawPrompt = `You are a legal document classifier. Based on the document metadata and concepts already extracted from a legal document, classify which areas of law (practice areas) the document relates to.

Document information:
- Document type: %s
- Extracted fields: %s
- Key concepts found: %s

Classify the document into one or more areas of law. For each area, provide:
1. **area**: The practice area name (e.g., "Litigation", "Corporate / M&A", "Real Estate", "Employment Law", "Intellectual Property", "Regulatory / Compliance", "Tax", "Bankruptcy / Insolvency", "Environmental Law", "Family Law", "Criminal Law", "Immigration", "Healthcare Law", "Securities", "Antitrust", "International Trade", "Insurance", "Banking / Finance", "Government Contracts", "Privacy / Data Protection")
2. **confidence**: Your confidence (0.0-1.0) that this area of law applies
3. **reasoning**: Brief explanation of why this area applies

Only include areas with confidence >= 0.5. Order by confidence descending.

Respond with JSON:
{"areas": [{"area": "...", "confidence": 0.95, "reasoning": "..."}]}`

type areaResponse struct {
	Areas []model.AreaOfLaw `json:"areas"`
}

// AreaAssessor classifies the document's practice areas from aggregated
// pipeline signals. Runs post-completion.
type AreaAssessor struct {
	llm llms.Provider
}

// NewAreaAssessor builds an assessor.
func NewAreaAssessor(llm llms.Provider) *AreaAssessor {
	return &AreaAssessor{llm: llm}
}

// Assess returns practice areas at confidence >= 0.5, highest first.
func (a *AreaAssessor) Assess(ctx context.Context, meta *model.Metadata) ([]model.AreaOfLaw, error) {
	documentType := meta.DocumentType
	if documentType == "" {
		documentType = "Unknown"
	}

	fields := "{}"
	if meta.ExtractedFields != nil {
		if data, err := json.Marshal(meta.ExtractedFields); err == nil {
			fields = string(data)
		}
	}

	prompt := fmt.Sprintf(areaOfLawPrompt, documentType, fields, conceptsSummary(meta.ResolvedConcepts))

	var resp areaResponse
	if err := a.llm.Structured(ctx, prompt, llms.SchemaFor(&areaResponse{}), &resp, llms.Options{}); err != nil {
		return nil, err
	}

	areas := resp.Areas[:0]
	for _, area := range resp.Areas {
		if area.Confidence >= 0.5 {
			areas = append(areas, area)
		}
	}
	sort.SliceStable(areas, func(i, j int) bool {
		return areas[i].Confidence > areas[j].Confidence
	})
	return areas, nil
}

// conceptsSummary dedupes resolved concepts by label+branch with counts.
func conceptsSummary(resolved []model.ResolvedConcept) string {
	type entry struct {
		label string
		count int
		order int
	}
	counts := make(map[string]*entry)
	for i, c := range resolved {
		label := c.Label
		if label == "" {
			label = c.ConceptText
		}
		key := fmt.Sprintf("%s [%s]", label, c.Branch)
		if e, ok := counts[key]; ok {
			e.count++
		} else {
			counts[key] = &entry{label: key, count: 1, order: i}
		}
	}
	if len(counts) == 0 {
		return "No concepts extracted"
	}

	entries := make([]*entry, 0, len(counts))
	for _, e := range counts {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].count != entries[j].count {
			return entries[i].count > entries[j].count
		}
		return entries[i].order < entries[j].order
	})
	if len(entries) > 30 {
		entries = entries[:30]
	}

	parts := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.count > 1 {
			parts = append(parts, fmt.Sprintf("%s (x%d)", e.label, e.count))
		} else {
			parts = append(parts, e.label)
		}
	}
	return strings.Join(parts, ", ")
}
