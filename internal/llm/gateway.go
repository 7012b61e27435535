package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	perrors "github.com/phaseflow/phaseflow/internal/errors"
)

const (
	defaultGatewayURL = "https://ai.gateway.lovable.dev/v1/chat/completions"
	defaultModel      = "google/gemini-2.5-flash"
)

// GatewayProvider implements Provider against an OpenAI-style chat-completion
// gateway. The pipeline only depends on choices[0].message.content; every
// other response field is opaque.
type GatewayProvider struct {
	url    string
	apiKey string
	model  string
	client *http.Client
	logger zerolog.Logger
}

// GatewayOption configures the provider.
type GatewayOption func(*GatewayProvider)

func WithGatewayURL(url string) GatewayOption {
	return func(p *GatewayProvider) { p.url = url }
}

func WithModel(model string) GatewayOption {
	return func(p *GatewayProvider) { p.model = model }
}

func WithHTTPClient(c *http.Client) GatewayOption {
	return func(p *GatewayProvider) { p.client = c }
}

func WithLogger(l zerolog.Logger) GatewayOption {
	return func(p *GatewayProvider) { p.logger = l.With().Str("component", "gateway").Logger() }
}

// NewGatewayProvider constructs a gateway provider.
func NewGatewayProvider(apiKey string, opts ...GatewayOption) *GatewayProvider {
	p := &GatewayProvider{
		url:    defaultGatewayURL,
		apiKey: apiKey,
		model:  defaultModel,
		client: &http.Client{Timeout: 90 * time.Second},
		logger: zerolog.Nop(),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

func (p *GatewayProvider) ModelID() string { return p.model }

// ---- gateway wire types ----

type gatewayMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type gatewayRequest struct {
	Model       string           `json:"model"`
	Messages    []gatewayMessage `json:"messages"`
	MaxTokens   int              `json:"max_tokens,omitempty"`
	Temperature float64          `json:"temperature,omitempty"`
}

type gatewayResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// Complete sends a blocking completion request to the gateway.
func (p *GatewayProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	model := p.model
	if req.Model != "" {
		model = req.Model
	}

	gr := gatewayRequest{
		Model: model,
		Messages: []gatewayMessage{
			{Role: "system", Content: req.SystemPrompt},
			{Role: "user", Content: req.UserPrompt},
		},
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	}

	body, err := json.Marshal(gr)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", perrors.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, perrors.FromStatusCode("gateway", resp.StatusCode, string(raw))
	}

	var gr2 gatewayResponse
	if err := json.Unmarshal(raw, &gr2); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	if gr2.Error != nil {
		return nil, perrors.NewAPIError("gateway", resp.StatusCode, gr2.Error.Message)
	}
	if len(gr2.Choices) == 0 {
		return nil, fmt.Errorf("%w: gateway returned no choices", perrors.ErrMalformedResponse)
	}

	out := &CompletionResponse{
		Text:         gr2.Choices[0].Message.Content,
		Model:        gr2.Model,
		InputTokens:  gr2.Usage.PromptTokens,
		OutputTokens: gr2.Usage.CompletionTokens,
	}

	p.logger.Debug().
		Str("model", model).
		Int("in_tokens", out.InputTokens).
		Int("out_tokens", out.OutputTokens).
		Msg("gateway complete")

	return out, nil
}
