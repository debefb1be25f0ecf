// Package voice fronts the speech services for the voice-brief flow:
// inbound audio becomes a query string, outbound narrative becomes audio.
package voice

import (
	"context"

	"finbrief/internal/adapters/speech"
	"finbrief/pkg/errors"
	"finbrief/pkg/logger"
)

// Gateway bridges audio and text. Synthesis failures degrade to a text-only
// brief; transcription failures are fatal for a voice request since there is
// no query to serve without them.
type Gateway struct {
	transcriber speech.Transcriber
	synthesizer speech.Synthesizer
	log         *logger.Logger
}

// New creates a voice gateway
func New(transcriber speech.Transcriber, synthesizer speech.Synthesizer) *Gateway {
	return &Gateway{
		transcriber: transcriber,
		synthesizer: synthesizer,
		log:         logger.Get().With("component", "voice"),
	}
}

// Transcribe converts request audio into a query string
func (g *Gateway) Transcribe(ctx context.Context, audio []byte) (string, error) {
	if g.transcriber == nil {
		return "", errors.Wrap(errors.ErrDependencyUnavailable, "transcription not configured")
	}
	if len(audio) == 0 {
		return "", errors.Wrap(errors.ErrInvalidRequest, "empty audio payload")
	}

	text, err := g.transcriber.Transcribe(ctx, audio)
	if err != nil {
		return "", errors.Wrap(err, "transcribe query audio")
	}
	return text, nil
}

// Synthesize renders the narrative as audio. Returns nil without error when
// synthesis is unavailable or fails; the brief still ships as text.
func (g *Gateway) Synthesize(ctx context.Context, narrative string) []byte {
	if g.synthesizer == nil || narrative == "" {
		return nil
	}

	audio, err := g.synthesizer.Synthesize(ctx, narrative)
	if err != nil {
		g.log.Warnw("Narrative synthesis failed", "error", err)
		return nil
	}
	return audio
}
