// Package llm defines the generation provider interface and its backends.
// Providers are interchangeable behind this interface — the hosted gateway
// today, direct Gemini tomorrow.
package llm

import "context"

// CompletionRequest is the input to a provider's Complete() call.
type CompletionRequest struct {
	SystemPrompt string
	UserPrompt   string
	Model        string // override provider default if set
	MaxTokens    int
	Temperature  float64
}

// CompletionResponse is the raw, unvalidated model output.
type CompletionResponse struct {
	Text         string
	Model        string
	InputTokens  int
	OutputTokens int
}

// Provider is the core abstraction for generation backends.
// Implementations: GatewayProvider, GeminiProvider.
type Provider interface {
	// Complete sends a completion request and waits for the full response.
	// The response text is returned as-is; extraction and validation happen
	// downstream.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)

	// ModelID returns the provider's default model identifier.
	ModelID() string
}
