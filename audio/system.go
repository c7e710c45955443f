// Package audio turns conversation messages into synthesized, caption-aligned
// audio. A bounded queue feeds per-vendor TTS adapters; long text is chunked
// to vendor limits, chunk audio is losslessly merged, and sentence timing
// comes from native vendor timestamps or a transcription fallback.
package audio

import (
	"context"
	"errors"
	"fmt"

	"github.com/Nonhuman-Nonsense/council-of-foods-sub001/core"
	"github.com/Nonhuman-Nonsense/council-of-foods-sub001/protocol"
	"github.com/Nonhuman-Nonsense/council-of-foods-sub001/store"
	audioutil "github.com/Nonhuman-Nonsense/council-of-foods-sub001/utils/audio"
	textutil "github.com/Nonhuman-Nonsense/council-of-foods-sub001/utils/text"
)

// Provider is one TTS vendor adapter.
type Provider interface {
	Name() string
	// MaxTextLength is the vendor's input size limit in bytes; longer text is
	// chunked before synthesis.
	MaxTextLength() int
	Synthesize(ctx context.Context, text string, voice core.VoiceParams) (*core.Synthesis, error)
}

// Transcriber produces word timestamps for vendors without native alignment.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, format core.AudioFormat) ([]core.Word, error)
}

// Job is one audio generation request. Ephemeral: it exists only inside the
// queue and is never persisted as an entity.
type Job struct {
	Message        core.ConversationMessage
	Speaker        core.Character
	MeetingID      int64
	SkipAudio      bool
	MatchSubtitles bool // false for summaries, which are read in full
}

// Config tunes the audio system.
type Config struct {
	Concurrency int // bound on concurrent TTS calls
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() Config {
	return Config{Concurrency: 3}
}

// System composes the queue, the vendor adapters, the merge utilities and the
// caption aligner into "generate audio for this message".
type System struct {
	queue       *Queue
	providers   map[string]Provider
	transcriber Transcriber
	store       store.Store
	logger      *core.Logger
}

// NewSystem creates an audio system over the given vendor adapters.
func NewSystem(providers []Provider, transcriber Transcriber, st store.Store, config Config, logger *core.Logger) *System {
	if logger == nil {
		logger = core.GetLogger()
	}
	byName := make(map[string]Provider, len(providers))
	for _, p := range providers {
		byName[p.Name()] = p
	}
	return &System{
		queue:       NewQueue(config.Concurrency),
		providers:   byName,
		transcriber: transcriber,
		store:       st,
		logger:      logger,
	}
}

// Enqueue schedules audio generation for a message, fire-and-forget. The turn
// loop never waits on it. Audio failure must not stop text generation, so
// failures surface as a non-fatal broadcast error.
func (s *System) Enqueue(ctx context.Context, job Job, send protocol.Sender) {
	s.queue.Add(job.Message.ID, func() {
		if err := s.Generate(ctx, job, send); err != nil {
			s.logger.With(map[string]interface{}{
				"message_id": job.Message.ID,
				"error":      err,
			}).Error("audio generation failed")
			_ = send.Send(protocol.MsgConversationError, protocol.ConversationErrorPayload{
				Message: fmt.Sprintf("audio generation failed for message %s", job.Message.ID),
				Code:    core.CodeInternal,
			})
		}
	})
}

// Generate synthesizes, aligns, persists and broadcasts one message's audio.
// Synchronous; the wrap-up path calls it directly.
func (s *System) Generate(ctx context.Context, job Job, send protocol.Sender) error {
	msg := job.Message

	if msg.Type == core.MessageSkipped {
		// No audio to make; tell the client so playback does not stall.
		return send.Send(protocol.MsgAudioUpdate, protocol.AudioUpdatePayload{ID: msg.ID, Type: "skipped"})
	}
	if job.SkipAudio {
		return nil
	}

	// Cache first: a reconnection may re-request audio that already exists.
	if rec, err := s.store.FindAudio(ctx, msg.ID); err == nil {
		return send.Send(protocol.MsgAudioUpdate, protocol.AudioUpdatePayload{
			ID:        msg.ID,
			Audio:     rec.Audio,
			Format:    rec.Format,
			Sentences: rec.Sentences,
		})
	} else if !errors.Is(err, store.ErrNotFound) {
		return err
	}

	provider, ok := s.providers[job.Speaker.Voice.Provider]
	if !ok {
		return fmt.Errorf("no TTS provider %q for speaker %s", job.Speaker.Voice.Provider, job.Speaker.Name)
	}

	synthesis, err := s.synthesize(ctx, provider, msg.Text, job.Speaker.Voice)
	if err != nil {
		return err
	}

	var sentences []core.SentenceSpan
	if job.MatchSubtitles {
		words := synthesis.Words
		if len(words) == 0 && s.transcriber != nil {
			words, err = s.transcriber.Transcribe(ctx, synthesis.Audio, synthesis.Format)
			if err != nil {
				// Alignment is best-effort; audio without captions beats no audio.
				s.logger.With(map[string]interface{}{
					"message_id": msg.ID,
					"error":      err,
				}).Warn("transcription fallback failed, sending audio without sentence timing")
				words = nil
			}
		}
		if len(words) > 0 {
			sentenceTexts := msg.Sentences
			if len(sentenceTexts) == 0 {
				sentenceTexts = textutil.SplitSentences(msg.Text)
			}
			sentences = AlignSentences(sentenceTexts, words)
		}
	}

	// Durability precedes visibility.
	if err := s.store.UpsertAudio(ctx, &store.AudioRecord{
		MessageID: msg.ID,
		MeetingID: job.MeetingID,
		Audio:     synthesis.Audio,
		Format:    synthesis.Format,
		Sentences: sentences,
		Speaker:   msg.Speaker,
	}); err != nil {
		return err
	}

	return send.Send(protocol.MsgAudioUpdate, protocol.AudioUpdatePayload{
		ID:        msg.ID,
		Audio:     synthesis.Audio,
		Format:    synthesis.Format,
		Sentences: sentences,
	})
}

// synthesize runs one provider call, splitting text that exceeds the vendor
// limit into independent chunk calls and merging the resulting buffers.
func (s *System) synthesize(ctx context.Context, provider Provider, text string, voice core.VoiceParams) (*core.Synthesis, error) {
	limit := provider.MaxTextLength()
	if limit <= 0 || len(text) <= limit {
		return provider.Synthesize(ctx, text, voice)
	}

	chunks := textutil.SplitText(text, limit)
	buffers := make([][]byte, 0, len(chunks))
	var (
		format     core.AudioFormat
		words      []core.Word
		wordOffset float64
		haveWords  = true
	)
	for _, chunk := range chunks {
		part, err := provider.Synthesize(ctx, chunk, voice)
		if err != nil {
			return nil, err
		}
		buffers = append(buffers, part.Audio)
		format = part.Format

		// Native timestamps are per-chunk; they survive merging only when
		// every chunk's duration is knowable so later words can be offset.
		duration := audioutil.WAVDuration(part.Audio)
		if len(part.Words) == 0 || duration == 0 {
			haveWords = false
		}
		if haveWords {
			for _, w := range part.Words {
				words = append(words, core.Word{Word: w.Word, Start: w.Start + wordOffset, End: w.End + wordOffset})
			}
			wordOffset += duration
		}
	}

	merged, err := audioutil.MergeBuffers(ctx, buffers, string(format))
	if err != nil {
		return nil, err
	}
	if !haveWords {
		words = nil
	}
	return &core.Synthesis{Audio: merged, Format: format, Words: words}, nil
}
