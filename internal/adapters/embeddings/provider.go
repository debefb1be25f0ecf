package embeddings

import "context"

// Provider generates vector embeddings for text. The retriever treats it as
// an opaque external service; only the request/response shape matters.
type Provider interface {
	// GenerateEmbedding creates a vector embedding for a single text
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)

	// GenerateBatchEmbeddings creates embeddings for multiple texts in one call
	GenerateBatchEmbeddings(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the fixed dimensionality of produced vectors
	Dimensions() int

	// Name returns the model identifier
	Name() string
}
