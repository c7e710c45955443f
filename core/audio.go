package core

// AudioFormat is the container of a synthesized buffer.
type AudioFormat string

const (
	FormatWAV AudioFormat = "wav"
	FormatMP3 AudioFormat = "mp3"
)

// VoiceParams select and tune a TTS vendor for one character.
type VoiceParams struct {
	Provider       string            `json:"provider"` // "gemini", "openai" or "inworld"
	VoiceID        string            `json:"voice_id"`
	Model          string            `json:"model,omitempty"`
	Speed          float64           `json:"speed,omitempty"`
	Encoding       string            `json:"encoding,omitempty"`       // inworld only: LINEAR16 or MULAW
	Pronunciations map[string]string `json:"pronunciations,omitempty"` // word -> IPA respelling
}

// Word is one transcribed or vendor-aligned token with its time range in seconds.
type Word struct {
	Word  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// SentenceSpan maps one sentence of a message to a time range within its audio,
// for caption display.
type SentenceSpan struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Synthesis is the result of one provider call: an audio buffer plus, when the
// vendor supports it, word-level timestamps.
type Synthesis struct {
	Audio  []byte
	Format AudioFormat
	Words  []Word // nil when the vendor has no native alignment
}

// PCMDurationSeconds returns the playable duration of a raw 16-bit PCM buffer.
func PCMDurationSeconds(data []byte, sampleRate, channels int) float64 {
	if sampleRate == 0 || channels == 0 {
		return 0
	}
	samples := len(data) / (2 * channels)
	return float64(samples) / float64(sampleRate)
}
