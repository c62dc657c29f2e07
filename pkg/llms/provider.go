package llms

import (
	"context"
	"errors"
)

// ErrEmptyResponse is returned when the provider replied with no content.
var ErrEmptyResponse = errors.New("llm returned empty response")

// Provider is the uniform surface the pipeline consumes. Implementations
// wrap one vendor API each; failures surface as errors and are swallowed by
// the calling stage (results default to empty).
type Provider interface {
	// Complete sends a single-turn prompt and returns the raw text reply.
	Complete(ctx context.Context, prompt string, opts Options) (string, error)

	// Chat sends a multi-turn conversation and returns the raw text reply.
	Chat(ctx context.Context, messages []Message, opts Options) (string, error)

	// Structured requests a JSON object conforming to the given
	// JSON-Schema descriptor and decodes it into out.
	Structured(ctx context.Context, prompt string, schema map[string]any, out any, opts Options) error

	// TestConnection verifies the provider is reachable and authorized.
	TestConnection(ctx context.Context) error

	// ListModels enumerates models available on the endpoint.
	ListModels(ctx context.Context) ([]ModelInfo, error)

	// Name identifies the provider for logging.
	Name() string
}
