package protocol

import (
	"encoding/json"

	"github.com/Nonhuman-Nonsense/council-of-foods-sub001/core"
)

// MessageType enumerates all meeting socket message types.
type MessageType string

const (
	// Client -> server
	MsgStartConversation    MessageType = "start_conversation"
	MsgAttemptReconnection  MessageType = "attempt_reconnection"
	MsgRaiseHand            MessageType = "raise_hand"
	MsgSubmitHumanMessage   MessageType = "submit_human_message"
	MsgSubmitHumanPanelist  MessageType = "submit_human_panelist"
	MsgWrapUpMeeting        MessageType = "wrap_up_meeting"
	MsgContinueConversation MessageType = "continue_conversation"

	// Server -> client
	MsgMeetingStarted     MessageType = "meeting_started"
	MsgConversationUpdate MessageType = "conversation_update"
	MsgConversationEnd    MessageType = "conversation_end"
	MsgAudioUpdate        MessageType = "audio_update"
	MsgConversationError  MessageType = "conversation_error"
	MsgMeetingNotFound    MessageType = "meeting_not_found"
)

// Envelope is the outer JSON wrapper for all WebSocket messages.
type Envelope struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// --- Client -> server payloads ---

// StartConversationPayload opens a new meeting.
type StartConversationPayload struct {
	Topic      string              `json:"topic"`
	Characters []core.Character    `json:"characters"`
	Options    core.MeetingOptions `json:"options"`
	Language   string              `json:"language,omitempty"`
}

// AttemptReconnectionPayload resumes a previously persisted meeting.
type AttemptReconnectionPayload struct {
	MeetingID             int64 `json:"meeting_id"`
	HandRaised            bool  `json:"hand_raised"`
	ConversationMaxLength int   `json:"conversation_max_length,omitempty"`
}

// RaiseHandPayload interrupts the meeting at a given turn index.
type RaiseHandPayload struct {
	Index     int    `json:"index"`
	HumanName string `json:"human_name"`
}

// SubmitHumanMessagePayload resolves an awaiting_human_question placeholder.
type SubmitHumanMessagePayload struct {
	Text          string `json:"text"`
	AskParticular string `json:"ask_particular,omitempty"`
}

// SubmitHumanPanelistPayload resolves an awaiting_human_panelist placeholder.
type SubmitHumanPanelistPayload struct {
	Text    string `json:"text"`
	Speaker string `json:"speaker"` // character id of the panelist slot
}

// WrapUpMeetingPayload asks the chair to summarize and close the meeting.
type WrapUpMeetingPayload struct {
	Date string `json:"date"`
}

// --- Server -> client payloads ---

// MeetingStartedPayload acknowledges start_conversation with the assigned id.
type MeetingStartedPayload struct {
	MeetingID int64 `json:"meeting_id"`
}

// ConversationPayload carries the full conversation on update and end.
type ConversationPayload struct {
	Conversation []core.ConversationMessage `json:"conversation"`
}

// AudioUpdatePayload carries one message's synthesized audio, or a marker for
// turns that have none.
type AudioUpdatePayload struct {
	ID        string              `json:"id"`
	Audio     []byte              `json:"audio,omitempty"` // base64 on the wire
	Format    core.AudioFormat    `json:"format,omitempty"`
	Sentences []core.SentenceSpan `json:"sentences,omitempty"`
	Type      string              `json:"type,omitempty"` // "skipped" or "error"
}

// ConversationErrorPayload surfaces a non-fatal error to the client.
type ConversationErrorPayload struct {
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// MeetingNotFoundPayload answers a reconnection attempt for an unknown meeting.
type MeetingNotFoundPayload struct {
	MeetingID int64 `json:"meeting_id"`
}
