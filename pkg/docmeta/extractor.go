package docmeta

import (
	"context"
	"fmt"

	"github.com/lexigraph/lexigraph/pkg/llms"
	"github.com/lexigraph/lexigraph/pkg/logger"
	"github.com/lexigraph/lexigraph/pkg/model"
)

const extractPrompt = `You are a legal metadata extractor. A pipeline has already extracted entities, relationships, and concepts from the entire document. Use this structured context plus the document bookends to extract metadata fields.

Document type: %s

%s

For each field below, extract the value from the context above. Leave empty string "" or empty list [] if not found. Do NOT invent information; only extract what is supported by the context.

Fields:
- court: Court name
- judge: Judge name(s)
- case_number: Case/docket number
- parties: List of parties with roles (e.g., "Acme Corp (Plaintiff)")
- date_filed: Filing date
- jurisdiction: Jurisdiction (e.g., "Federal", "State: New York")
- governing_law: Governing law clause or applicable law
- claim_types: Types of claims (e.g., "Breach of Contract", "Negligence")
- author: Document author
- recipient: Document recipient
- addresses: List of addresses mentioned

Respond with JSON matching this schema exactly.`

// Extractor pulls structured fields from the pipeline context summary.
type Extractor struct {
	llm llms.Provider
}

// NewExtractor builds an extractor.
func NewExtractor(llm llms.Provider) *Extractor {
	return &Extractor{llm: llm}
}

// Extract requests all fields in one structured call. Failure yields an
// empty field set.
func (e *Extractor) Extract(ctx context.Context, contextBlock, docType string) *model.DocumentFields {
	prompt := fmt.Sprintf(extractPrompt, docType, contextBlock)

	var fields model.DocumentFields
	err := e.llm.Structured(ctx, prompt, llms.SchemaFor(&model.DocumentFields{}), &fields, llms.Options{})
	if err != nil {
		logger.GetLogger().Warn("metadata field extraction failed", "error", err)
		return &model.DocumentFields{}
	}
	return &fields
}
