package meeting

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/Nonhuman-Nonsense/council-of-foods-sub001/core"
	"github.com/Nonhuman-Nonsense/council-of-foods-sub001/protocol"
	"github.com/Nonhuman-Nonsense/council-of-foods-sub001/store"
)

// Hub tracks active sessions by meeting id so a reconnecting client
// reattaches to the running loop instead of spawning a second one.
type Hub struct {
	mu       sync.Mutex
	sessions map[int64]*Session

	store  store.Store
	gen    TextGenerator
	audio  AudioSystem
	config Config
	logger *core.Logger
}

// NewHub creates a hub.
func NewHub(st store.Store, gen TextGenerator, audioSys AudioSystem, config Config, logger *core.Logger) *Hub {
	if logger == nil {
		logger = core.GetLogger()
	}
	return &Hub{
		sessions: make(map[int64]*Session),
		store:    st,
		gen:      gen,
		audio:    audioSys,
		config:   config,
		logger:   logger,
	}
}

// NewSession creates a session bound to the given sender. The session joins
// the hub's registry once Start assigns it a meeting id.
func (h *Hub) NewSession(ctx context.Context, send protocol.Sender) *Session {
	return NewSession(ctx, h.store, h.gen, h.audio, send, h.config, h.logger)
}

// Register makes the session reachable for reconnection. Call after Start.
func (h *Hub) Register(s *Session) {
	id := s.MeetingID()
	if id == 0 {
		return
	}
	h.mu.Lock()
	h.sessions[id] = s
	h.mu.Unlock()
}

// Reconnect resumes a meeting for a new connection. If the meeting's session
// is still active the sender is swapped onto it; otherwise the meeting is
// loaded from the store into a fresh session. Returns store.ErrNotFound when
// the meeting does not exist.
func (h *Hub) Reconnect(ctx context.Context, p protocol.AttemptReconnectionPayload, send protocol.Sender) (*Session, error) {
	h.mu.Lock()
	s, active := h.sessions[p.MeetingID]
	h.mu.Unlock()

	if active {
		if err := s.Reattach(send, p.HandRaised); err != nil {
			return nil, err
		}
		return s, nil
	}

	m, err := h.store.FindMeeting(ctx, p.MeetingID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("load meeting %d: %w", p.MeetingID, err)
	}

	s = h.NewSession(ctx, send)
	if err := s.Resume(m, p.HandRaised, p.ConversationMaxLength); err != nil {
		return nil, err
	}
	h.mu.Lock()
	h.sessions[p.MeetingID] = s
	h.mu.Unlock()
	return s, nil
}

// Release tears the session down on disconnect. The meeting document stays
// persisted; a later reconnection rebuilds the session from the store.
func (h *Hub) Release(s *Session) {
	if s == nil {
		return
	}
	s.Close()
	if id := s.MeetingID(); id != 0 {
		h.mu.Lock()
		if h.sessions[id] == s {
			delete(h.sessions, id)
		}
		h.mu.Unlock()
	}
}

// ActiveSessions reports how many meetings currently have a live loop.
func (h *Hub) ActiveSessions() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}
