package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	logpkg "github.com/benvon/manasmitra/internal/logger"
)

const (
	DefaultOpenAIModel   = "gpt-4o-mini"
	DefaultOpenAIBaseURL = "https://api.openai.com/v1"
	// DefaultTimeout bounds a single HTTP exchange with the provider.
	DefaultTimeout = 30 * time.Second
)

// OpenAIProvider implements Backend against any OpenAI-compatible chat
// completions endpoint in JSON object mode.
type OpenAIProvider struct {
	client    openai.Client
	model     string
	logger    *zap.Logger
	debugMode bool
}

// NewOpenAIProvider creates a provider. Empty baseURL and model use the defaults.
func NewOpenAIProvider(apiKey, baseURL, model string, log *zap.Logger, debugMode bool) *OpenAIProvider {
	if model == "" {
		model = DefaultOpenAIModel
	}
	if baseURL == "" {
		baseURL = DefaultOpenAIBaseURL
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &OpenAIProvider{
		client: openai.NewClient(
			option.WithAPIKey(apiKey),
			option.WithBaseURL(baseURL),
			option.WithHTTPClient(&http.Client{Timeout: DefaultTimeout}),
			// Client owns retries so the 503 policy runs exactly once.
			option.WithMaxRetries(0),
		),
		model:     model,
		logger:    log,
		debugMode: debugMode,
	}
}

// RegisterOpenAI adds the "openai" factory to r. Recognized keys: api_key,
// base_url, model.
func RegisterOpenAI(r *ProviderRegistry, log *zap.Logger, debugMode bool) {
	r.Register("openai", func(config map[string]string) (Backend, error) {
		if config["api_key"] == "" {
			return nil, errors.New("openai provider requires an API key (OPENAI_API_KEY)")
		}
		return NewOpenAIProvider(config["api_key"], config["base_url"], config["model"], log, debugMode), nil
	})
}

// params builds the chat request for prompt.
func (p *OpenAIProvider) params(prompt Prompt) openai.ChatCompletionNewParams {
	req := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(p.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(prompt.System),
			openai.UserMessage(prompt.User),
		},
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		},
	}
	if prompt.Sampling.Temperature > 0 {
		req.Temperature = openai.Float(prompt.Sampling.Temperature)
	}
	if prompt.Sampling.MaxTokens > 0 {
		req.MaxCompletionTokens = openai.Int(prompt.Sampling.MaxTokens)
	}
	return req
}

// Complete sends the prompt and returns the first choice's content.
func (p *OpenAIProvider) Complete(ctx context.Context, prompt Prompt) (string, error) {
	fields := []zap.Field{
		zap.String("operation", prompt.Operation),
		zap.String("model", p.model),
		zap.String("request_id", ExtractRequestID(ctx)),
		logpkg.Profile(ExtractProfileID(ctx)),
	}
	if p.debugMode {
		// Prompts embed check-in details; they are only logged in debug mode.
		p.logger.Debug("llm_api_request", append(fields,
			zap.Int("prompt_length", len(prompt.User)),
			zap.String("prompt_preview", logpkg.Preview(prompt.User, true)),
		)...)
	}

	start := time.Now()
	resp, err := p.client.Chat.Completions.New(ctx, p.params(prompt))
	fields = append(fields, zap.Int64("latency_ms", time.Since(start).Milliseconds()))
	if err != nil {
		mapped := mapOpenAIError(err)
		p.logger.Debug("llm_api_error", append(fields, logpkg.Err(mapped))...)
		return "", fmt.Errorf("%s request failed: %w", prompt.Operation, mapped)
	}
	if len(resp.Choices) == 0 {
		return "", ErrNoChoicesInResponse
	}
	choice := resp.Choices[0]

	trace.SpanFromContext(ctx).SetAttributes(
		attribute.Int64("ai.usage.prompt_tokens", resp.Usage.PromptTokens),
		attribute.Int64("ai.usage.completion_tokens", resp.Usage.CompletionTokens),
		attribute.String("ai.finish_reason", string(choice.FinishReason)),
	)
	if choice.FinishReason == "length" {
		// A truncated JSON object will fail schema checks; make the cause visible.
		p.logger.Warn("llm_response_truncated", append(fields, zap.Int64("max_tokens", prompt.Sampling.MaxTokens))...)
	}
	if p.debugMode {
		p.logger.Debug("llm_api_response", append(fields,
			zap.Int64("prompt_tokens", resp.Usage.PromptTokens),
			zap.Int64("completion_tokens", resp.Usage.CompletionTokens),
			zap.String("response_preview", logpkg.Preview(choice.Message.Content, true)),
		)...)
	}
	return choice.Message.Content, nil
}

// mapOpenAIError converts SDK errors to *APIError so the status checks
// (503 unavailable, 429 rate limit) work with errors.Is.
func mapOpenAIError(err error) error {
	var sdkErr *openai.Error
	if !errors.As(err, &sdkErr) {
		return err
	}

	apiErr := &APIError{
		Message:    sdkErr.Message,
		Type:       sdkErr.Type,
		Code:       sdkErr.Code,
		StatusCode: sdkErr.StatusCode,
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(sdkErr.StatusCode)
	}
	if sdkErr.Response != nil {
		if secs, convErr := strconv.Atoi(sdkErr.Response.Header.Get("Retry-After")); convErr == nil && secs > 0 {
			d := time.Duration(secs) * time.Second
			apiErr.RetryAfter = &d
		}
	}
	return apiErr
}
