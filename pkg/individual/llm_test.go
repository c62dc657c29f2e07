package individual

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexigraph/lexigraph/pkg/llms"
	"github.com/lexigraph/lexigraph/pkg/model"
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
	payload := `{"individuals": [{
		"name": "Acme Corp",
		"mention_text": "Acme Corp",
		"individual_type": "named_entity",
		"class_labels": ["Organization"],
		"confidence": 0.9,
		"is_new": true
	}]}`
	chunk := model.TextChunk{
		Text:        "The ACME CORP agreement was signed.",
		StartOffset: 0,
		EndOffset:   35,
	}

	ident := NewLLMIdentifier(&cannedProvider{payload: payload})
	found := ident.IdentifyChunk(context.Background(), chunk, nil, nil)

	require.Len(t, found, 1)
	ind := found[0]
	// The mention only matches case-insensitively; the span must still
	// carry the document text at the located offsets.
	assert.Equal(t, 4, ind.Span.Start)
	assert.Equal(t, 13, ind.Span.End)
	assert.Equal(t, "ACME CORP", ind.Span.Text)
	assert.Equal(t, chunk.Text[ind.Span.Start:ind.Span.End], ind.Span.Text)
	assert.Equal(t, "ACME CORP", ind.MentionText)
	assert.Equal(t, "Acme Corp", ind.Name)
	assert.Equal(t, model.IndSourceLLM, ind.Source)
	require.Len(t, ind.ClassLinks, 1)
	assert.Equal(t, "Organization", ind.ClassLinks[0].FolioLabel)
}

func TestIdentifyChunkOffsetsShiftByChunkStart(t *testing.T) {
	payload := `{"individuals": [{
		"name": "John Smith",
		"mention_text": "John Smith",
		"individual_type": "named_entity",
		"confidence": 0.95,
		"is_new": true
	}]}`
	chunk := model.TextChunk{
		Text:        "Plaintiff John Smith appeared.",
		StartOffset: 200,
		EndOffset:   230,
		ChunkIndex:  1,
	}

	ident := NewLLMIdentifier(&cannedProvider{payload: payload})
	found := ident.IdentifyChunk(context.Background(), chunk, nil, nil)

	require.Len(t, found, 1)
	assert.Equal(t, 210, found[0].Span.Start)
	assert.Equal(t, 220, found[0].Span.End)
	assert.Equal(t, "John Smith", found[0].Span.Text)
}

func TestIdentifyChunkSkipsUnlocatableMention(t *testing.T) {
	payload := `{"individuals": [{
		"name": "Jane Doe",
		"mention_text": "Jane Doe",
		"individual_type": "named_entity",
		"confidence": 0.9,
		"is_new": true
	}]}`
	chunk := model.TextChunk{Text: "No such person appears here.", EndOffset: 28}

	ident := NewLLMIdentifier(&cannedProvider{payload: payload})
	assert.Empty(t, ident.IdentifyChunk(context.Background(), chunk, nil, nil))
}
