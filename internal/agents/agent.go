// Package agents defines the uniform fetch contract every source agent
// implements. Agents are stateless per call; the shared cache is the only
// state they touch.
package agents

import (
	"context"

	"finbrief/internal/domain/document"
)

// SourceAgent wraps one external data source. Implementations check the
// cache first, retry transient upstream failures with backoff, normalize
// payloads into SourceDocuments and write successful fetches through to
// the cache with a source-specific TTL.
type SourceAgent interface {
	// Source identifies which origin this agent produces
	Source() document.Origin

	// Fetch returns the documents for one symbol query
	Fetch(ctx context.Context, symbol string) ([]document.SourceDocument, error)
}
