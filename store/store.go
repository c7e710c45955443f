// Package store persists meetings and synthesized audio behind a narrow
// document-store interface so the engine never sees the storage engine.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/Nonhuman-Nonsense/council-of-foods-sub001/core"
)

// ErrNotFound is returned when a meeting or audio record does not exist.
var ErrNotFound = errors.New("store: not found")

// Meeting is the persisted document for one council meeting.
type Meeting struct {
	ID           int64
	Topic        string
	Language     string
	Options      core.MeetingOptions
	Characters   []core.Character
	Conversation []core.ConversationMessage
	Date         string
	CreatedAt    time.Time
}

// AudioRecord is the persisted audio (and caption metadata) for one message.
type AudioRecord struct {
	MessageID string
	MeetingID int64
	Audio     []byte
	Format    core.AudioFormat
	Sentences []core.SentenceSpan
	Speaker   string
	CreatedAt time.Time
}

// Store is the persistence collaborator used by the meeting engine.
type Store interface {
	// FindMeeting returns the meeting by id, or ErrNotFound.
	FindMeeting(ctx context.Context, id int64) (*Meeting, error)
	// InsertMeeting stores a new meeting and returns its auto-incremented id.
	InsertMeeting(ctx context.Context, m *Meeting) (int64, error)
	// UpdateMeetingConversation replaces the persisted conversation of a meeting.
	UpdateMeetingConversation(ctx context.Context, id int64, conversation []core.ConversationMessage) error
	// UpdateMeetingDate records the wrap-up date of a meeting.
	UpdateMeetingDate(ctx context.Context, id int64, date string) error
	// FindAudio returns the audio record for a message id, or ErrNotFound.
	FindAudio(ctx context.Context, messageID string) (*AudioRecord, error)
	// UpsertAudio stores or replaces the audio record for a message id.
	UpsertAudio(ctx context.Context, rec *AudioRecord) error
}
