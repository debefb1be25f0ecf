package ai

import (
	"context"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"finbrief/internal/metrics"
	"finbrief/pkg/errors"
)

// OpenAIProvider generates text via the OpenAI chat completions API
type OpenAIProvider struct {
	client  openai.Client
	model   openai.ChatModel
	timeout time.Duration
}

// NewOpenAIProvider creates a new OpenAI generation provider
func NewOpenAIProvider(apiKey string, model string, timeout time.Duration) (*OpenAIProvider, error) {
	if apiKey == "" {
		return nil, errors.Wrap(errors.ErrInvalidRequest, "openai API key is required")
	}
	if model == "" {
		model = openai.ChatModelGPT4oMini
	}
	if timeout == 0 {
		timeout = 60 * time.Second
	}

	return &OpenAIProvider{
		client:  openai.NewClient(option.WithAPIKey(apiKey)),
		model:   openai.ChatModel(model),
		timeout: timeout,
	}, nil
}

// Name returns provider name
func (p *OpenAIProvider) Name() string { return ProviderNameOpenAI }

// Complete sends a chat completion request and returns the generated text
func (p *OpenAIProvider) Complete(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	start := time.Now()
	resp, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: p.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
	})
	metrics.RecordAICall("generation", ProviderNameOpenAI, time.Since(start), err)
	if err != nil {
		return "", errors.Wrap(errors.NewSourceError("generation", errors.ErrTransientSource, err), "openai chat completion")
	}

	if len(resp.Choices) == 0 {
		return "", errors.Wrap(errors.ErrInternal, "no completion choices returned")
	}

	return resp.Choices[0].Message.Content, nil
}
