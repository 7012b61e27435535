package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"google.golang.org/genai"

	perrors "github.com/phaseflow/phaseflow/internal/errors"
)

const defaultGeminiModel = "gemini-2.0-flash"

// GeminiProvider implements Provider using the Google GenAI SDK directly,
// bypassing the chat-completion gateway.
type GeminiProvider struct {
	client *genai.Client
	model  string
	logger zerolog.Logger
}

// GeminiOption configures the provider.
type GeminiOption func(*GeminiProvider)

func WithGeminiModel(model string) GeminiOption {
	return func(p *GeminiProvider) { p.model = model }
}

func WithGeminiLogger(l zerolog.Logger) GeminiOption {
	return func(p *GeminiProvider) { p.logger = l.With().Str("component", "gemini").Logger() }
}

// NewGeminiProvider constructs a direct Gemini provider.
func NewGeminiProvider(ctx context.Context, apiKey string, opts ...GeminiOption) (*GeminiProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: Gemini API key is required", perrors.ErrAuth)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	p := &GeminiProvider{
		client: client,
		model:  defaultGeminiModel,
		logger: zerolog.Nop(),
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

func (p *GeminiProvider) ModelID() string { return p.model }

// Complete sends a blocking generation request to Gemini.
func (p *GeminiProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	model := p.model
	if req.Model != "" {
		model = req.Model
	}

	var cfg *genai.GenerateContentConfig
	if req.SystemPrompt != "" {
		cfg = &genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(req.SystemPrompt, genai.RoleUser),
		}
	}

	resp, err := p.client.Models.GenerateContent(ctx, model, genai.Text(req.UserPrompt), cfg)
	if err != nil {
		return nil, classifyGeminiError(err)
	}

	text := resp.Text()
	if text == "" {
		return nil, fmt.Errorf("%w: empty Gemini response", perrors.ErrMalformedResponse)
	}

	out := &CompletionResponse{Text: text, Model: model}
	if resp.UsageMetadata != nil {
		out.InputTokens = int(resp.UsageMetadata.PromptTokenCount)
		out.OutputTokens = int(resp.UsageMetadata.CandidatesTokenCount)
	}

	p.logger.Debug().
		Str("model", model).
		Int("in_tokens", out.InputTokens).
		Int("out_tokens", out.OutputTokens).
		Msg("gemini complete")

	return out, nil
}

// classifyGeminiError maps SDK errors onto the pipeline taxonomy. The SDK
// does not expose stable error types for these cases, so this matches on
// message content.
func classifyGeminiError(err error) error {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "quota") || strings.Contains(msg, "resource_exhausted"):
		return fmt.Errorf("%w: %v", perrors.ErrQuotaExceeded, err)
	case strings.Contains(msg, "api key") || strings.Contains(msg, "permission_denied") || strings.Contains(msg, "unauthenticated"):
		return fmt.Errorf("%w: %v", perrors.ErrAuth, err)
	case strings.Contains(msg, "429") || strings.Contains(msg, "rate limit"):
		return fmt.Errorf("%w: %v", perrors.ErrRateLimit, err)
	case strings.Contains(msg, "500") || strings.Contains(msg, "503") || strings.Contains(msg, "unavailable") || strings.Contains(msg, "deadline"):
		return fmt.Errorf("%w: %v", perrors.ErrUnavailable, err)
	default:
		return fmt.Errorf("gemini generate: %w", err)
	}
}
