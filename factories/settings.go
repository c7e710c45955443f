// Package factories builds the application's services from environment
// settings and wires them together.
package factories

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Settings is the full environment surface of the server.
type Settings struct {
	Port string `env:"PORT" envDefault:"8080"`

	// Empty means the in-memory store; meetings then live only as long as
	// the process.
	DatabaseURL string `env:"DATABASE_URL"`

	OpenAIAPIKey  string `env:"OPENAI_API_KEY"`
	GeminiAPIKey  string `env:"GEMINI_API_KEY"`
	InworldAPIKey string `env:"INWORLD_API_KEY"`

	LLMModel       string  `env:"LLM_MODEL"`
	LLMTemperature float64 `env:"LLM_TEMPERATURE" envDefault:"1.0"`

	OpenAITTSModel  string `env:"OPENAI_TTS_MODEL"`
	GeminiTTSModel  string `env:"GEMINI_TTS_MODEL"`
	InworldTTSModel string `env:"INWORLD_TTS_MODEL"`
	WhisperModel    string `env:"WHISPER_MODEL"`

	TTSConcurrency int `env:"TTS_CONCURRENCY" envDefault:"3"`

	// Voice used for ad hoc human speakers, who have no character voice.
	HumanVoiceProvider string `env:"HUMAN_VOICE_PROVIDER" envDefault:"openai"`
	HumanVoiceID       string `env:"HUMAN_VOICE_ID" envDefault:"alloy"`

	MaxMeetingLength int `env:"MAX_MEETING_LENGTH" envDefault:"20"`
}

// LoadSettings parses settings from the environment.
func LoadSettings() (Settings, error) {
	var s Settings
	if err := env.Parse(&s); err != nil {
		return s, fmt.Errorf("parse settings: %w", err)
	}
	if s.OpenAIAPIKey == "" {
		return s, fmt.Errorf("OPENAI_API_KEY is required")
	}
	return s, nil
}
