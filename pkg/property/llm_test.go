package property

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexigraph/lexigraph/pkg/llms"
	"github.com/lexigraph/lexigraph/pkg/model"
	"github.com/lexigraph/lexigraph/pkg/testutils"
)

// cannedProvider answers every structured call with a fixed JSON payload.
type cannedProvider struct {
	payload string
}

func (p *cannedProvider) Complete(ctx context.Context, prompt string, opts llms.Options) (string, error) {
	return p.payload, nil
}

func (p *cannedProvider) Chat(ctx context.Context, messages []llms.Message, opts llms.Options) (string, error) {
	return p.payload, nil
}

func (p *cannedProvider) Structured(ctx context.Context, prompt string, schema map[string]any, out any, opts llms.Options) error {
	return json.Unmarshal([]byte(p.payload), out)
}

func (p *cannedProvider) TestConnection(ctx context.Context) error { return nil }

func (p *cannedProvider) Name() string { return "canned" }

func (p *cannedProvider) ListModels(ctx context.Context) ([]llms.ModelInfo, error) {
	return nil, nil
}

func TestIdentifyChunkSpanUsesDocumentCasing(t *testing.T) {
	payload := `{"properties": [{
		"property_text": "breaches",
		"folio_label": "",
		"confidence": 0.8,
		"is_new": true
	}]}`
	chunk := model.TextChunk{
		Text:        "The tenant BREACHES the covenant of quiet enjoyment.",
		StartOffset: 100,
		EndOffset:   152,
		ChunkIndex:  1,
	}

	ident := NewLLMIdentifier(&cannedProvider{payload: payload}, testutils.TestOntology(t))
	found := ident.IdentifyChunk(context.Background(), chunk, nil, nil)

	require.Len(t, found, 1)
	prop := found[0]
	// The verb only matches case-insensitively; the span must still carry
	// the document text at the located offsets.
	assert.Equal(t, 111, prop.Span.Start)
	assert.Equal(t, 119, prop.Span.End)
	assert.Equal(t, "BREACHES", prop.Span.Text)
	assert.Equal(t, chunk.Text[11:19], prop.Span.Text)
	assert.Equal(t, "BREACHES", prop.PropertyText)
	assert.Equal(t, SourceLLM, prop.Source)
	assert.Equal(t, 0.8, prop.Confidence)
}

func TestIdentifyChunkFillsOntologyData(t *testing.T) {
	payload := `{"properties": [{
		"property_text": "violates",
		"folio_label": "violates",
		"confidence": 0.75,
		"is_new": true
	}]}`
	chunk := model.TextChunk{
		Text:       "Defendant violates the lease agreement.",
		EndOffset:  39,
		ChunkIndex: 0,
	}

	ident := NewLLMIdentifier(&cannedProvider{payload: payload}, testutils.TestOntology(t))
	found := ident.IdentifyChunk(context.Background(), chunk, nil, nil)

	require.Len(t, found, 1)
	prop := found[0]
	assert.Equal(t, "violates", prop.Span.Text)
	assert.NotEmpty(t, prop.FolioIRI)
	assert.Equal(t, chunk.Text[prop.Span.Start:prop.Span.End], prop.Span.Text)
}

func TestIdentifyChunkSkipsUnlocatablePhrase(t *testing.T) {
	payload := `{"properties": [{
		"property_text": "remanded",
		"confidence": 0.9,
		"is_new": true
	}]}`
	chunk := model.TextChunk{Text: "The lease was signed.", EndOffset: 21}

	ident := NewLLMIdentifier(&cannedProvider{payload: payload}, testutils.TestOntology(t))
	assert.Empty(t, ident.IdentifyChunk(context.Background(), chunk, nil, nil))
}
