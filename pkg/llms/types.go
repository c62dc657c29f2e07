package llms

import (
	"github.com/invopop/jsonschema"
)

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ModelInfo describes a model exposed by a provider.
type ModelInfo struct {
	ID      string `json:"id"`
	Name    string `json:"name,omitempty"`
	OwnedBy string `json:"owned_by,omitempty"`
}

// Options tunes a single request. Zero values fall back to provider config.
type Options struct {
	MaxTokens   int
	Temperature float64
	System      string
}

// SchemaFor builds a JSON-Schema descriptor for a Go struct, suitable for
// passing to Provider.Structured. Providers that support native structured
// output send it on the wire; the rest embed it in the prompt.
func SchemaFor(v any) map[string]any {
	r := &jsonschema.Reflector{
		Anonymous:      true,
		DoNotReference: true,
	}
	schema := r.Reflect(v)
	return schemaToMap(schema)
}

func schemaToMap(s *jsonschema.Schema) map[string]any {
	data, err := s.MarshalJSON()
	if err != nil {
		return map[string]any{"type": "object"}
	}
	m, err := parseJSONObject(data)
	if err != nil {
		return map[string]any{"type": "object"}
	}
	// OpenAI strict mode rejects $schema and similar metadata keys.
	delete(m, "$schema")
	delete(m, "$id")
	return m
}
