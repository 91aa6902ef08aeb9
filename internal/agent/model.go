package agent

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/memohai/supportdesk/internal/config"
	"github.com/memohai/supportdesk/internal/httpkit"
)

// ErrMissingAPIKey is returned when no model credential is configured.
var ErrMissingAPIKey = errors.New("model api key is not configured")

// Model is the chat-completion surface the agent needs. langchaingo models
// satisfy it.
type Model interface {
	GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error)
}

var _ Model = (*openai.LLM)(nil)

// NewModel builds an OpenAI-compatible chat model for settings. The request
// timeout comes from settings.Timeout and a non-empty Thinking mode is added
// to every completion request body.
func NewModel(settings config.ModelSettings, apiKey, baseURL string, log *slog.Logger) (Model, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, ErrMissingAPIKey
	}
	if log == nil {
		log = slog.Default()
	}
	interceptors := []httpkit.Interceptor{
		httpkit.UserAgent(httpkit.DefaultUserAgent),
		httpkit.Logging(log, "model"),
	}
	if mode := strings.TrimSpace(settings.Thinking); mode != "" {
		interceptors = append(interceptors, httpkit.InjectJSON(
			map[string]any{"thinking": map[string]any{"type": mode}},
			"/chat/completions",
		))
	}
	client := httpkit.NewClient(settings.TimeoutDuration(), interceptors...)

	opts := []openai.Option{
		openai.WithModel(settings.Model),
		openai.WithToken(apiKey),
		openai.WithHTTPClient(client),
	}
	if u := strings.TrimSpace(baseURL); u != "" {
		opts = append(opts, openai.WithBaseURL(strings.TrimRight(u, "/")))
	}
	llm, err := openai.New(opts...)
	if err != nil {
		return nil, err
	}
	return llm, nil
}

// callOptions renders the sampling settings as langchaingo call options.
func callOptions(settings config.ModelSettings) []llms.CallOption {
	opts := []llms.CallOption{llms.WithTemperature(settings.Temperature)}
	if settings.TopP > 0 {
		opts = append(opts, llms.WithTopP(settings.TopP))
	}
	if settings.MaxCompletionTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(settings.MaxCompletionTokens))
	}
	return opts
}
