package ai

import (
	"context"
	"time"

	"google.golang.org/genai"

	"finbrief/internal/metrics"
	"finbrief/pkg/errors"
)

// GeminiProvider generates text via the Google Gemini API
type GeminiProvider struct {
	client  *genai.Client
	model   string
	timeout time.Duration
}

// NewGeminiProvider creates a new Gemini generation provider
func NewGeminiProvider(ctx context.Context, apiKey string, model string, timeout time.Duration) (*GeminiProvider, error) {
	if apiKey == "" {
		return nil, errors.Wrap(errors.ErrInvalidRequest, "gemini API key is required")
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}
	if timeout == 0 {
		timeout = 60 * time.Second
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, errors.Wrap(err, "create gemini client")
	}

	return &GeminiProvider{client: client, model: model, timeout: timeout}, nil
}

// Name returns provider name
func (p *GeminiProvider) Name() string { return ProviderNameGemini }

// Complete generates content for the given prompt
func (p *GeminiProvider) Complete(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	start := time.Now()
	resp, err := p.client.Models.GenerateContent(ctx, p.model, genai.Text(prompt), nil)
	metrics.RecordAICall("generation", ProviderNameGemini, time.Since(start), err)
	if err != nil {
		return "", errors.Wrap(errors.NewSourceError("generation", errors.ErrTransientSource, err), "gemini generate content")
	}

	text := resp.Text()
	if text == "" {
		return "", errors.Wrap(errors.ErrInternal, "empty generation response")
	}

	return text, nil
}
