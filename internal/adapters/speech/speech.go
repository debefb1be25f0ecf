// Package speech adapts external speech services to narrow contracts:
// audio bytes to text, and text to audio bytes.
package speech

import "context"

// Transcriber converts spoken audio into text
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte) (string, error)
}

// Synthesizer converts text into spoken audio
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}
