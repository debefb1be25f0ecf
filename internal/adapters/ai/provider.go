// Package ai adapts external text generation services behind one narrow
// contract: structured prompt in, text out.
package ai

import "context"

// Provider is an opaque generation service
type Provider interface {
	Name() string

	// Complete generates text for the given prompt
	Complete(ctx context.Context, prompt string) (string, error)
}

// Provider names
const (
	ProviderNameOpenAI = "openai"
	ProviderNameGemini = "gemini"
)
