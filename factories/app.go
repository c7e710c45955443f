package factories

import (
	"context"
	"fmt"

	"github.com/Nonhuman-Nonsense/council-of-foods-sub001/audio"
	"github.com/Nonhuman-Nonsense/council-of-foods-sub001/core"
	"github.com/Nonhuman-Nonsense/council-of-foods-sub001/dialog"
	"github.com/Nonhuman-Nonsense/council-of-foods-sub001/meeting"
	geminitts "github.com/Nonhuman-Nonsense/council-of-foods-sub001/services/gemini/tts"
	inworldtts "github.com/Nonhuman-Nonsense/council-of-foods-sub001/services/inworld/tts"
	openaillm "github.com/Nonhuman-Nonsense/council-of-foods-sub001/services/openai/llm"
	openaistt "github.com/Nonhuman-Nonsense/council-of-foods-sub001/services/openai/stt"
	openaitts "github.com/Nonhuman-Nonsense/council-of-foods-sub001/services/openai/tts"
	"github.com/Nonhuman-Nonsense/council-of-foods-sub001/store"
)

// BuildStore picks Postgres when DATABASE_URL is set, otherwise the
// in-memory store.
func BuildStore(ctx context.Context, settings Settings, logger *core.Logger) (store.Store, error) {
	if settings.DatabaseURL == "" {
		logger.Warn("DATABASE_URL not set, meetings will not survive a restart")
		return store.NewMemoryStore(), nil
	}
	pg, err := store.NewPostgresStore(ctx, settings.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	logger.Info("connected to postgres")
	return pg, nil
}

// BuildGenerator wires the dialog generator onto the OpenAI completion
// service.
func BuildGenerator(settings Settings, logger *core.Logger) (*dialog.Generator, *openaillm.OpenAILLMService) {
	llm := openaillm.NewOpenAILLMService(openaillm.Config{
		APIKey:      settings.OpenAIAPIKey,
		Model:       settings.LLMModel,
		Temperature: float32(settings.LLMTemperature),
	})
	gen := dialog.NewGenerator(llm, dialog.DefaultConfig(), logger)
	return gen, llm
}

// BuildAudioSystem constructs every TTS provider that has credentials, plus
// the whisper transcriber for caption timing.
func BuildAudioSystem(settings Settings, st store.Store, logger *core.Logger) *audio.System {
	providers := []audio.Provider{
		openaitts.NewOpenAITTS(openaitts.Config{
			APIKey: settings.OpenAIAPIKey,
			Model:  settings.OpenAITTSModel,
		}, logger),
	}
	if settings.GeminiAPIKey != "" {
		providers = append(providers, geminitts.NewGeminiTTS(geminitts.Config{
			APIKey: settings.GeminiAPIKey,
			Model:  settings.GeminiTTSModel,
		}, logger))
	}
	if settings.InworldAPIKey != "" {
		providers = append(providers, inworldtts.NewInworldTTS(inworldtts.Config{
			APIKey: settings.InworldAPIKey,
			Model:  settings.InworldTTSModel,
		}, logger))
	}

	transcriber := openaistt.NewWhisperSTT(openaistt.Config{
		APIKey: settings.OpenAIAPIKey,
		Model:  settings.WhisperModel,
	})

	config := audio.DefaultConfig()
	if settings.TTSConcurrency > 0 {
		config.Concurrency = settings.TTSConcurrency
	}
	return audio.NewSystem(providers, transcriber, st, config, logger)
}

// BuildHub assembles the meeting hub from its collaborators.
func BuildHub(settings Settings, st store.Store, gen *dialog.Generator, audioSys *audio.System, logger *core.Logger) *meeting.Hub {
	config := meeting.DefaultConfig()
	if settings.MaxMeetingLength > 0 {
		config.DefaultMaxLength = settings.MaxMeetingLength
	}
	config.HumanVoice = core.VoiceParams{
		Provider: settings.HumanVoiceProvider,
		VoiceID:  settings.HumanVoiceID,
	}
	return meeting.NewHub(st, gen, audioSys, config, logger)
}
