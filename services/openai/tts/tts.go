package tts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/Nonhuman-Nonsense/council-of-foods-sub001/core"
)

// OpenAI caps speech input at 4096 characters.
const maxInputLength = 4096

// Config holds configuration for the OpenAI TTS service
type Config struct {
	APIKey string
	Model  string
}

// OpenAITTS synthesizes speech through the OpenAI audio API. The vendor has
// no word-level alignment, so callers fall back to transcription for caption
// timing.
type OpenAITTS struct {
	client *openai.Client
	model  string
	logger *core.Logger
}

// NewOpenAITTS creates a new OpenAI TTS service with the provided config
func NewOpenAITTS(config Config, logger *core.Logger) *OpenAITTS {
	if config.Model == "" {
		config.Model = string(openai.TTSModel1HD)
	}
	if logger == nil {
		logger = core.GetLogger()
	}
	return &OpenAITTS{
		client: openai.NewClient(config.APIKey),
		model:  config.Model,
		logger: logger,
	}
}

func (t *OpenAITTS) Name() string { return "openai" }

func (t *OpenAITTS) MaxTextLength() int { return maxInputLength }

// Synthesize converts text to MP3 audio. Transient network errors are retried
// with a linear backoff before giving up.
func (t *OpenAITTS) Synthesize(ctx context.Context, text string, voice core.VoiceParams) (*core.Synthesis, error) {
	const maxRetries = 3
	const baseDelay = 500 * time.Millisecond

	speed := voice.Speed
	if speed == 0 {
		speed = 1.0
	}

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			delay := baseDelay * time.Duration(attempt)
			t.logger.Infof("OpenAI TTS: retrying synthesis (attempt %d/%d) in %v after error: %v",
				attempt+1, maxRetries, delay, lastErr)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		res, err := t.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
			Model:          openai.SpeechModel(t.model),
			Input:          text,
			Voice:          openai.SpeechVoice(voice.VoiceID),
			ResponseFormat: openai.SpeechResponseFormatMp3,
			Speed:          speed,
		})
		if err != nil {
			if !isTransient(err) {
				return nil, fmt.Errorf("openai tts: %w", err)
			}
			lastErr = err
			continue
		}

		data, err := io.ReadAll(res)
		res.Close()
		if err != nil {
			lastErr = err
			continue
		}

		return &core.Synthesis{Audio: data, Format: core.FormatMP3}, nil
	}
	return nil, fmt.Errorf("openai tts: failed after %d attempts: %w", maxRetries, lastErr)
}

// isTransient reports whether an error is worth retrying: timeouts, dropped
// connections and 5xx/429 API responses.
func isTransient(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == 429 || apiErr.HTTPStatusCode >= 500
	}
	return false
}
