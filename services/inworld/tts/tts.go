package tts

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"regexp"
	"time"

	"github.com/Nonhuman-Nonsense/council-of-foods-sub001/core"
	audioutil "github.com/Nonhuman-Nonsense/council-of-foods-sub001/utils/audio"
	textutil "github.com/Nonhuman-Nonsense/council-of-foods-sub001/utils/text"
)

const (
	defaultBaseURL = "https://api.inworld.ai/tts/v1/voice"
	defaultModel   = "inworld-tts-1"

	maxInputLength = 2000

	linear16SampleRate = 24000
	mulawSampleRate    = 8000
)

// Config holds configuration for the Inworld TTS service
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
}

// InworldTTS synthesizes speech through the Inworld voice API. It is the one
// vendor that returns word-level timestamps natively, so its utterances skip
// the transcription fallback. Per-voice IPA respellings are substituted into
// the text before synthesis and mapped back afterwards so captions show the
// original spelling.
type InworldTTS struct {
	config Config
	http   *http.Client
	logger *core.Logger
}

// Wire format
type (
	inworldRequest struct {
		Text          string             `json:"text"`
		VoiceID       string             `json:"voiceId"`
		ModelID       string             `json:"modelId"`
		AudioConfig   inworldAudioConfig `json:"audioConfig"`
		TimestampType string             `json:"timestampType"`
	}

	inworldAudioConfig struct {
		AudioEncoding   string  `json:"audioEncoding"`
		SampleRateHertz int     `json:"sampleRateHertz,omitempty"`
		SpeakingRate    float64 `json:"speakingRate,omitempty"`
	}

	inworldResponse struct {
		AudioContent string `json:"audioContent"` // base64
		Timestamps   struct {
			Words []inworldWord `json:"words"`
		} `json:"timestamps"`
	}

	inworldWord struct {
		Word      string  `json:"word"`
		StartTime float64 `json:"startTime"`
		EndTime   float64 `json:"endTime"`
	}

	inworldError struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	}
)

// NewInworldTTS creates a new Inworld TTS service with the provided config
func NewInworldTTS(config Config, logger *core.Logger) *InworldTTS {
	if config.BaseURL == "" {
		config.BaseURL = defaultBaseURL
	}
	if config.Model == "" {
		config.Model = defaultModel
	}
	if logger == nil {
		logger = core.GetLogger()
	}
	return &InworldTTS{
		config: config,
		http:   &http.Client{Timeout: 60 * time.Second},
		logger: logger,
	}
}

func (t *InworldTTS) Name() string { return "inworld" }

func (t *InworldTTS) MaxTextLength() int { return maxInputLength }

// Synthesize converts text to audio with native word timestamps.
func (t *InworldTTS) Synthesize(ctx context.Context, text string, voice core.VoiceParams) (*core.Synthesis, error) {
	spoken, reverse := applyPronunciations(text, voice.Pronunciations)

	encoding := voice.Encoding
	if encoding == "" {
		encoding = "LINEAR16"
	}
	sampleRate := linear16SampleRate
	if encoding == "MULAW" {
		sampleRate = mulawSampleRate
	}

	req := inworldRequest{
		Text:    spoken,
		VoiceID: voice.VoiceID,
		ModelID: t.config.Model,
		AudioConfig: inworldAudioConfig{
			AudioEncoding:   encoding,
			SampleRateHertz: sampleRate,
			SpeakingRate:    voice.Speed,
		},
		TimestampType: "WORD",
	}

	resp, err := t.post(ctx, req)
	if err != nil {
		return nil, err
	}

	raw, err := base64.StdEncoding.DecodeString(resp.AudioContent)
	if err != nil {
		return nil, fmt.Errorf("inworld tts: decode audio: %w", err)
	}

	var audio []byte
	switch encoding {
	case "MULAW":
		// Telephony μ-law comes back headerless; decode to PCM and WAV-wrap.
		audio = audioutil.EncodeWAV(audioutil.DecodeUlaw(raw), mulawSampleRate, 1)
	default:
		if bytes.HasPrefix(raw, []byte("RIFF")) {
			audio = raw
		} else {
			audio = audioutil.EncodeWAV(raw, linear16SampleRate, 1)
		}
	}

	words := make([]core.Word, 0, len(resp.Timestamps.Words))
	for _, w := range resp.Timestamps.Words {
		word := w.Word
		if original, ok := reverse[textutil.NormalizeToken(word)]; ok {
			word = original
		}
		words = append(words, core.Word{Word: word, Start: w.StartTime, End: w.EndTime})
	}

	return &core.Synthesis{Audio: audio, Format: core.FormatWAV, Words: words}, nil
}

// post sends the synthesis request, retrying transient failures with a linear
// backoff the same way the connection-oriented vendors do.
func (t *InworldTTS) post(ctx context.Context, req inworldRequest) (*inworldResponse, error) {
	const maxRetries = 3
	const baseDelay = 500 * time.Millisecond

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("inworld tts: marshal request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			delay := baseDelay * time.Duration(attempt)
			t.logger.Infof("Inworld TTS: retrying request (attempt %d/%d) in %v after error: %v",
				attempt+1, maxRetries, delay, lastErr)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, t.config.BaseURL, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("inworld tts: build request: %w", err)
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("Authorization", "Basic "+t.config.APIKey)

		httpResp, err := t.http.Do(httpReq)
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) {
				lastErr = err
				continue
			}
			return nil, fmt.Errorf("inworld tts: %w", err)
		}

		data, err := io.ReadAll(httpResp.Body)
		httpResp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}

		if httpResp.StatusCode != http.StatusOK {
			var apiErr inworldError
			_ = json.Unmarshal(data, &apiErr)
			err := fmt.Errorf("inworld tts: status %d: %s", httpResp.StatusCode, apiErr.Message)
			if httpResp.StatusCode == http.StatusTooManyRequests || httpResp.StatusCode >= 500 {
				lastErr = err
				continue
			}
			return nil, err
		}

		var resp inworldResponse
		if err := json.Unmarshal(data, &resp); err != nil {
			return nil, fmt.Errorf("inworld tts: decode response: %w", err)
		}
		return &resp, nil
	}
	return nil, fmt.Errorf("inworld tts: failed after %d attempts: %w", maxRetries, lastErr)
}

// applyPronunciations replaces whole words that have an IPA respelling and
// returns the spoken text plus a reverse map from the normalized respelling
// back to the original word, used to restore captions.
func applyPronunciations(text string, pronunciations map[string]string) (string, map[string]string) {
	if len(pronunciations) == 0 {
		return text, nil
	}
	reverse := make(map[string]string, len(pronunciations))
	for word, spoken := range pronunciations {
		re, err := regexp.Compile(`(?i)\b` + regexp.QuoteMeta(word) + `\b`)
		if err != nil {
			continue
		}
		if re.MatchString(text) {
			text = re.ReplaceAllString(text, spoken)
			reverse[textutil.NormalizeToken(spoken)] = word
		}
	}
	return text, reverse
}
