package store

import (
	"context"
	"sync"
	"time"

	"github.com/Nonhuman-Nonsense/council-of-foods-sub001/core"
)

// MemoryStore is an in-process Store used for keyless development runs and
// tests. Meeting ids come from an atomic counter, matching the serial ids of
// the Postgres implementation.
type MemoryStore struct {
	mu       sync.RWMutex
	nextID   int64
	meetings map[int64]*Meeting
	audio    map[string]*AudioRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nextID:   1,
		meetings: make(map[int64]*Meeting),
		audio:    make(map[string]*AudioRecord),
	}
}

func (s *MemoryStore) FindMeeting(_ context.Context, id int64) (*Meeting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.meetings[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *m
	cp.Conversation = append([]core.ConversationMessage(nil), m.Conversation...)
	return &cp, nil
}

func (s *MemoryStore) InsertMeeting(_ context.Context, m *Meeting) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++

	cp := *m
	cp.ID = id
	cp.CreatedAt = time.Now()
	cp.Conversation = append([]core.ConversationMessage(nil), m.Conversation...)
	s.meetings[id] = &cp
	return id, nil
}

func (s *MemoryStore) UpdateMeetingConversation(_ context.Context, id int64, conversation []core.ConversationMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.meetings[id]
	if !ok {
		return ErrNotFound
	}
	m.Conversation = append([]core.ConversationMessage(nil), conversation...)
	return nil
}

func (s *MemoryStore) UpdateMeetingDate(_ context.Context, id int64, date string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.meetings[id]
	if !ok {
		return ErrNotFound
	}
	m.Date = date
	return nil
}

func (s *MemoryStore) FindAudio(_ context.Context, messageID string) (*AudioRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.audio[messageID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (s *MemoryStore) UpsertAudio(_ context.Context, rec *AudioRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *rec
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now()
	}
	s.audio[rec.MessageID] = &cp
	return nil
}
