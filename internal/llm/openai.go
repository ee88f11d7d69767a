package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"todo-assistant/internal/apperr"
)

// Defaults for the Groq OpenAI-compatible endpoint.
const (
	DefaultBaseURL     = "https://api.groq.com/openai/v1"
	DefaultModel       = "llama-3.1-8b-instant"
	DefaultTemperature = 0.3
	DefaultMaxTokens   = 1000
)

// OpenAIConfig configures an OpenAI-compatible completion endpoint.
type OpenAIConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration
}

// OpenAIProvider executes completions against any OpenAI-compatible API
// (Groq, OpenAI, Ollama, vLLM).
type OpenAIProvider struct {
	client *openai.Client
	cfg    OpenAIConfig
}

func NewOpenAIProvider(cfg OpenAIConfig) *OpenAIProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	return &OpenAIProvider{client: openai.NewClientWithConfig(clientCfg), cfg: cfg}
}

func (p *OpenAIProvider) Complete(ctx context.Context, req Request) (*Completion, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.History)+1)
	if req.SystemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: req.SystemPrompt})
	}
	for _, m := range req.History {
		messages = append(messages, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}

	body := openai.ChatCompletionRequest{
		Model:       p.cfg.Model,
		Messages:    messages,
		Temperature: wireTemperature(p.cfg.Temperature),
		MaxTokens:   p.cfg.MaxTokens,
	}
	if len(req.Tools) > 0 {
		body.Tools = make([]openai.Tool, 0, len(req.Tools))
		for _, t := range req.Tools {
			body.Tools = append(body.Tools, openai.Tool{
				Type: openai.ToolTypeFunction,
				Function: &openai.FunctionDefinition{
					Name:        t.Name,
					Description: t.Description,
					Parameters:  t.Parameters,
				},
			})
		}
		body.ToolChoice = "auto"
	}

	resp, err := p.client.CreateChatCompletion(ctx, body)
	if err != nil {
		return nil, classify(err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: completion has no choices", apperr.ErrProviderError)
	}

	msg := resp.Choices[0].Message
	out := &Completion{Text: msg.Content}
	for _, call := range msg.ToolCalls {
		args := strings.TrimSpace(call.Function.Arguments)
		if args == "" {
			args = "{}"
		}
		out.ToolCalls = append(out.ToolCalls, ToolCall{
			ID:        call.ID,
			Name:      call.Function.Name,
			Arguments: json.RawMessage(args),
		})
	}
	return out, nil
}

// wireTemperature keeps an explicit zero on the wire. The client drops a zero
// temperature as omitempty and providers then fall back to their own default.
func wireTemperature(t float32) float32 {
	if t == 0 {
		return math.SmallestNonzeroFloat32
	}
	return t
}

// classify maps client errors onto the provider taxonomy: throttling, server
// faults and transport errors are retryable, anything else is a rejected request.
func classify(err error) error {
	status := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}

	switch {
	case status == 0, status == http.StatusTooManyRequests, status >= 500:
		return fmt.Errorf("%w: %v", apperr.ErrProviderUnavailable, err)
	default:
		return fmt.Errorf("%w: %v", apperr.ErrProviderError, err)
	}
}
