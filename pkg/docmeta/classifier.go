// Package docmeta classifies the document and extracts structured metadata
// fields from the accumulated pipeline context.
package docmeta

import (
	"context"
	"fmt"

	"github.com/lexigraph/lexigraph/pkg/llms"
	"github.com/lexigraph/lexigraph/pkg/logger"
)

const classifyPrompt = `You are a legal document classifier. Given the beginning of a document, classify its type.

Common legal document types:
- Motion to Dismiss, Motion for Summary Judgment, Motion in Limine
- Complaint, Answer, Counterclaim
- Commercial Lease, Employment Agreement, NDA, Purchase Agreement
- Court Opinion, Order, Judgment
- Memorandum of Law, Brief, Legal Memorandum
- Deposition Transcript, Affidavit, Declaration
- Statute, Regulation, Administrative Rule
- Contract Amendment, Settlement Agreement

Respond with JSON:
{"document_type": "...", "confidence": 0.95, "reasoning": "..."}

DOCUMENT TEXT (first 500 chars):
%s`

// Classification is the model's document-type decision.
type Classification struct {
	DocumentType string  `json:"document_type"`
	Confidence   float64 `json:"confidence"`
	Reasoning    string  `json:"reasoning"`
}

// Classifier decides the document type from the document's opening.
type Classifier struct {
	llm llms.Provider
}

// NewClassifier builds a classifier.
func NewClassifier(llm llms.Provider) *Classifier {
	return &Classifier{llm: llm}
}

const selfIdentifyPrompt = `You are a legal document analyst. Read the beginning of this document and determine what type of document it identifies itself as.

Extract the VERBATIM document type as the document describes itself. Use the full, specific label from the document's title, caption, or header. Do NOT normalize or simplify.

Examples of good self_identified_type values:
- "Defendant's Motion to Dismiss Under Rule 12(b)(6) for Failure to State a Claim"
- "Verified Complaint for Declaratory and Injunctive Relief"
- "Commercial Lease Agreement"
- "Memorandum of Law in Support of Plaintiff's Motion for Summary Judgment"
- "Order Granting in Part and Denying in Part Defendant's Motion to Dismiss"

If the document does not clearly identify its type, use your best judgment based on its structure and content.

Respond with JSON:
{"self_identified_type": "...", "confidence": 0.95, "reasoning": "brief explanation of where you found this"}

DOCUMENT TEXT (first 500 chars):
%s`

// SelfIdentification is what the document calls itself, verbatim.
type SelfIdentification struct {
	SelfIdentifiedType string  `json:"self_identified_type"`
	Confidence         float64 `json:"confidence"`
	Reasoning          string  `json:"reasoning"`
}

// SelfIdentify asks what the document calls itself in its title, caption,
// or header. Returns ok=false on failure or an empty answer.
func (c *Classifier) SelfIdentify(ctx context.Context, fullText string) (SelfIdentification, bool) {
	snippet := fullText
	if len(snippet) > 500 {
		snippet = snippet[:500]
	}

	var result SelfIdentification
	err := c.llm.Structured(ctx, fmt.Sprintf(selfIdentifyPrompt, snippet),
		llms.SchemaFor(&SelfIdentification{}), &result, llms.Options{})
	if err != nil {
		logger.GetLogger().Warn("early document type classification failed", "error", err)
		return SelfIdentification{}, false
	}
	return result, result.SelfIdentifiedType != ""
}

// Classify sends the first 500 characters. Failure yields Unknown at zero
// confidence rather than an error.
func (c *Classifier) Classify(ctx context.Context, fullText string) Classification {
	snippet := fullText
	if len(snippet) > 500 {
		snippet = snippet[:500]
	}

	var result Classification
	err := c.llm.Structured(ctx, fmt.Sprintf(classifyPrompt, snippet),
		llms.SchemaFor(&Classification{}), &result, llms.Options{})
	if err != nil {
		logger.GetLogger().Warn("document classification failed", "error", err)
		return Classification{DocumentType: "Unknown", Confidence: 0, Reasoning: "error"}
	}
	if result.DocumentType == "" {
		result.DocumentType = "Unknown"
	}
	return result
}
