package tts

import (
	"context"
	"fmt"
	"sync"

	"google.golang.org/genai"

	"github.com/Nonhuman-Nonsense/council-of-foods-sub001/core"
	audioutil "github.com/Nonhuman-Nonsense/council-of-foods-sub001/utils/audio"
)

const (
	// Gemini native audio returns raw 16-bit PCM at 24 kHz mono.
	outputSampleRate = 24000
	outputChannels   = 1

	// Conservative input cap; the model accepts more but quality degrades on
	// very long single calls, so long turns are chunked upstream.
	maxInputLength = 4000
)

// Config holds configuration for the Gemini TTS service
type Config struct {
	APIKey string
	Model  string
}

// GeminiTTS synthesizes speech through the Gemini native-audio models. The
// vendor has no word-level alignment.
type GeminiTTS struct {
	apiKey string
	model  string
	logger *core.Logger

	mu     sync.Mutex
	client *genai.Client
}

// NewGeminiTTS creates a new Gemini TTS service with the provided config
func NewGeminiTTS(config Config, logger *core.Logger) *GeminiTTS {
	if config.Model == "" {
		config.Model = "gemini-2.5-flash-preview-tts"
	}
	if logger == nil {
		logger = core.GetLogger()
	}
	return &GeminiTTS{
		apiKey: config.APIKey,
		model:  config.Model,
		logger: logger,
	}
}

func (t *GeminiTTS) Name() string { return "gemini" }

func (t *GeminiTTS) MaxTextLength() int { return maxInputLength }

// getClient lazily creates the genai client; creation needs a context.
func (t *GeminiTTS) getClient(ctx context.Context) (*genai.Client, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.client != nil {
		return t.client, nil
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  t.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini tts: create client: %w", err)
	}
	t.client = client
	return client, nil
}

// Synthesize converts text to WAV-wrapped PCM audio.
func (t *GeminiTTS) Synthesize(ctx context.Context, text string, voice core.VoiceParams) (*core.Synthesis, error) {
	client, err := t.getClient(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := client.Models.GenerateContent(ctx, t.model, genai.Text(text), &genai.GenerateContentConfig{
		ResponseModalities: []string{"AUDIO"},
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{
					VoiceName: voice.VoiceID,
				},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("gemini tts: generate: %w", err)
	}

	pcm := extractAudio(resp)
	if len(pcm) == 0 {
		return nil, fmt.Errorf("gemini tts: response contains no audio")
	}

	return &core.Synthesis{
		Audio:  audioutil.EncodeWAV(pcm, outputSampleRate, outputChannels),
		Format: core.FormatWAV,
	}, nil
}

// extractAudio pulls the inline PCM bytes out of the first audio part.
func extractAudio(resp *genai.GenerateContentResponse) []byte {
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				return part.InlineData.Data
			}
		}
	}
	return nil
}
