package speech

import (
	"bytes"
	"context"
	"io"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"finbrief/internal/adapters/config"
	"finbrief/internal/metrics"
	"finbrief/pkg/errors"
)

// OpenAI implements both speech directions via the OpenAI audio endpoints
type OpenAI struct {
	client             openai.Client
	transcriptionModel string
	speechModel        string
	voice              string
	timeout            time.Duration
}

// NewOpenAI creates a speech adapter backed by OpenAI
func NewOpenAI(apiKey string, cfg config.VoiceConfig) (*OpenAI, error) {
	if apiKey == "" {
		return nil, errors.Wrap(errors.ErrInvalidRequest, "openai API key is required")
	}

	return &OpenAI{
		client:             openai.NewClient(option.WithAPIKey(apiKey)),
		transcriptionModel: cfg.TranscriptionModel,
		speechModel:        cfg.SpeechModel,
		voice:              cfg.SpeechVoice,
		timeout:            60 * time.Second,
	}, nil
}

// Transcribe converts audio bytes to text
func (s *OpenAI) Transcribe(ctx context.Context, audio []byte) (string, error) {
	if len(audio) == 0 {
		return "", errors.Wrap(errors.ErrInvalidRequest, "audio payload is empty")
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	resp, err := s.client.Audio.Transcriptions.New(ctx, openai.AudioTranscriptionNewParams{
		File:  openai.File(bytes.NewReader(audio), "input.wav", "audio/wav"),
		Model: openai.AudioModel(s.transcriptionModel),
	})
	metrics.RecordAICall("transcription", "openai", time.Since(start), err)
	if err != nil {
		return "", errors.Wrap(errors.NewSourceError("speech-to-text", errors.ErrTransientSource, err), "transcription failed")
	}

	return resp.Text, nil
}

// Synthesize converts text to audio bytes
func (s *OpenAI) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if text == "" {
		return nil, errors.Wrap(errors.ErrInvalidRequest, "text is empty")
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	resp, err := s.client.Audio.Speech.New(ctx, openai.AudioSpeechNewParams{
		Model: openai.SpeechModel(s.speechModel),
		Input: text,
		Voice: openai.AudioSpeechNewParamsVoice(s.voice),
	})
	metrics.RecordAICall("synthesis", "openai", time.Since(start), err)
	if err != nil {
		return nil, errors.Wrap(errors.NewSourceError("text-to-speech", errors.ErrTransientSource, err), "speech synthesis failed")
	}
	defer resp.Body.Close()

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "read synthesized audio")
	}

	return audio, nil
}
