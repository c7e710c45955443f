package stt

import (
	"bytes"
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"

	"github.com/Nonhuman-Nonsense/council-of-foods-sub001/core"
)

// Config holds configuration for the whisper transcription service
type Config struct {
	APIKey string
	Model  string
}

// WhisperSTT transcribes synthesized audio back to word-level timestamps. It
// is the fallback caption aligner input for vendors without native alignment.
type WhisperSTT struct {
	client *openai.Client
	model  string
}

// NewWhisperSTT creates a new whisper transcription service
func NewWhisperSTT(config Config) *WhisperSTT {
	if config.Model == "" {
		config.Model = openai.Whisper1
	}
	return &WhisperSTT{
		client: openai.NewClient(config.APIKey),
		model:  config.Model,
	}
}

// Transcribe returns word-level timestamps for an audio buffer.
func (t *WhisperSTT) Transcribe(ctx context.Context, audio []byte, format core.AudioFormat) ([]core.Word, error) {
	resp, err := t.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    t.model,
		Reader:   bytes.NewReader(audio),
		FilePath: "audio." + string(format), // name only; sets the upload extension
		Format:   openai.AudioResponseFormatVerboseJSON,
		TimestampGranularities: []openai.TranscriptionTimestampGranularity{
			openai.TranscriptionTimestampGranularityWord,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("whisper transcription: %w", err)
	}

	words := make([]core.Word, 0, len(resp.Words))
	for _, w := range resp.Words {
		words = append(words, core.Word{Word: w.Word, Start: w.Start, End: w.End})
	}
	return words, nil
}
