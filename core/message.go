package core

// CharacterRole determines how a participant takes part in the rotation.
type CharacterRole string

const (
	RoleChair    CharacterRole = "chair"    // character at index 0; issues invitations and summaries
	RolePanelist CharacterRole = "panelist" // a human playing a fixed character slot
	RoleAI       CharacterRole = "ai"
)

// Character is one meeting participant. Immutable for the meeting's lifetime.
type Character struct {
	ID     string        `json:"id"`
	Name   string        `json:"name"`
	Prompt string        `json:"prompt"`
	Role   CharacterRole `json:"role"`
	Voice  VoiceParams   `json:"voice"`
}

// MessageType classifies a conversation entry.
type MessageType string

const (
	MessageDefault               MessageType = "message"
	MessageHuman                 MessageType = "human"
	MessagePanelist              MessageType = "panelist"
	MessageResponse              MessageType = "response"
	MessageInvitation            MessageType = "invitation"
	MessageSummary               MessageType = "summary"
	MessageSkipped               MessageType = "skipped"
	MessageAwaitingHumanQuestion MessageType = "awaiting_human_question"
	MessageAwaitingHumanPanelist MessageType = "awaiting_human_panelist"
)

// Awaiting reports whether the type is a placeholder that an external event
// must pop and replace.
func (t MessageType) Awaiting() bool {
	return t == MessageAwaitingHumanQuestion || t == MessageAwaitingHumanPanelist
}

// ConversationMessage is one turn of the meeting. Once appended, Text and Type
// are immutable except for the awaiting_* placeholders, which are popped and
// replaced when the human responds. Array index is the sole timing signal.
type ConversationMessage struct {
	ID            string      `json:"id"`
	Speaker       string      `json:"speaker"` // character id, or human name for ad hoc speakers
	Text          string      `json:"text"`
	Sentences     []string    `json:"sentences,omitempty"`
	Type          MessageType `json:"type"`
	AskParticular string      `json:"ask_particular,omitempty"` // direct-address target on human messages
	Trimmed       bool        `json:"trimmed,omitempty"`
	Pretrimmed    bool        `json:"pretrimmed,omitempty"`
}

// MeetingOptions are the per-meeting knobs supplied on start_conversation.
type MeetingOptions struct {
	Topic         string `json:"topic"`
	Language      string `json:"language,omitempty"`
	MaxLength     int    `json:"conversation_max_length"`
	TrimParagraph bool   `json:"trim_paragraph,omitempty"` // trim to paragraph instead of sentence on hard stops
	SkipAudio     bool   `json:"skip_audio,omitempty"`
}
