package ai

import (
	"context"

	"finbrief/internal/adapters/config"
	"finbrief/pkg/errors"
)

// NewProvider builds the generation provider selected by configuration
func NewProvider(ctx context.Context, cfg config.AIConfig) (Provider, error) {
	switch cfg.DefaultProvider {
	case ProviderNameGemini:
		return NewGeminiProvider(ctx, cfg.GeminiKey, cfg.GenerationModel, 0)
	case ProviderNameOpenAI:
		return NewOpenAIProvider(cfg.OpenAIKey, cfg.GenerationModel, 0)
	default:
		return nil, errors.Wrapf(errors.ErrInvalidRequest, "unknown AI provider %q", cfg.DefaultProvider)
	}
}
