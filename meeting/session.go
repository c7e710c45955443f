// Package meeting owns the turn-based conversation state machine: who speaks
// next, how turns are generated and persisted, and how human interruption,
// wrap-up and reconnection interleave with the loop.
package meeting

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/Nonhuman-Nonsense/council-of-foods-sub001/audio"
	"github.com/Nonhuman-Nonsense/council-of-foods-sub001/core"
	"github.com/Nonhuman-Nonsense/council-of-foods-sub001/dialog"
	"github.com/Nonhuman-Nonsense/council-of-foods-sub001/protocol"
	"github.com/Nonhuman-Nonsense/council-of-foods-sub001/store"
	textutil "github.com/Nonhuman-Nonsense/council-of-foods-sub001/utils/text"
)

// TextGenerator is the dialog collaborator.
type TextGenerator interface {
	Turn(ctx context.Context, history []core.ConversationMessage, characters []core.Character, speaker core.Character, opts core.MeetingOptions) (*dialog.Result, error)
	Invitation(ctx context.Context, history []core.ConversationMessage, characters []core.Character, chair core.Character, humanName string, opts core.MeetingOptions) (*dialog.Result, error)
	Summary(ctx context.Context, history []core.ConversationMessage, characters []core.Character, chair core.Character, date string, opts core.MeetingOptions) (*dialog.Result, error)
}

// AudioSystem is the audio collaborator.
type AudioSystem interface {
	Enqueue(ctx context.Context, job audio.Job, send protocol.Sender)
	Generate(ctx context.Context, job audio.Job, send protocol.Sender) error
}

// Config tunes the turn engine.
type Config struct {
	// MaxAttempts is the generation retry budget before a turn degrades to a
	// skipped message.
	MaxAttempts int
	// ContinueExtraMessages is added to the admitted turn count on every
	// continue_conversation.
	ContinueExtraMessages int
	// DefaultMaxLength applies when start_conversation carries none.
	DefaultMaxLength int
	// HumanVoice synthesizes ad hoc human utterances.
	HumanVoice core.VoiceParams
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:           5,
		ContinueExtraMessages: 4,
		DefaultMaxLength:      20,
		HumanVoice:            core.VoiceParams{Provider: "openai", VoiceID: "alloy"},
	}
}

// Session is the turn engine for one active meeting. All state is owned by
// the session and mutated only by its own methods; meetings never share
// state. The drive loop runs in a single goroutine and returns (never blocks,
// never recurses) on every suspension condition; event handlers resume it by
// calling kick.
type Session struct {
	mu     sync.Mutex
	ctx    context.Context
	logger *core.Logger
	config Config

	store store.Store
	gen   TextGenerator
	audio AudioSystem
	send  protocol.Sender

	meetingID  int64
	date       string
	characters []core.Character
	opts       core.MeetingOptions
	history    []core.ConversationMessage

	extraMessages int
	handRaised    bool
	humanName     string
	ended         bool // wrap-up happened; nothing resumes this session
	endSent       bool // conversation_end already broadcast for the current budget
	driving       bool

	// epoch identifies the current generation context. It is bumped on every
	// interruption, truncation or teardown; a completion that observes a
	// different epoch than it started with is stale and must be discarded.
	epoch int64
}

// NewSession creates a session; it owns no meeting until Start or a
// reconnection populates it.
func NewSession(ctx context.Context, st store.Store, gen TextGenerator, audioSys AudioSystem, send protocol.Sender, config Config, logger *core.Logger) *Session {
	if logger == nil {
		logger = core.GetLogger()
	}
	return &Session{
		ctx:    ctx,
		logger: logger,
		config: config,
		store:  st,
		gen:    gen,
		audio:  audioSys,
		send:   send,
	}
}

// MeetingID returns the persisted meeting id, 0 before Start.
func (s *Session) MeetingID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.meetingID
}

// SetSender swaps the outbound channel, used when a reconnecting socket
// reattaches to an already-active session.
func (s *Session) SetSender(send protocol.Sender) {
	s.mu.Lock()
	s.send = send
	s.mu.Unlock()
}

// Start opens a new meeting: validates, persists the meeting document, tells
// the client its id and starts the loop.
func (s *Session) Start(p protocol.StartConversationPayload) error {
	if p.Topic == "" {
		return core.BadRequest("topic is required")
	}
	if len(p.Characters) == 0 {
		return core.BadRequest("at least one character is required")
	}
	if p.Characters[0].Role != core.RoleChair {
		return core.BadRequest("the character at index 0 must be the chair")
	}

	opts := p.Options
	opts.Topic = p.Topic
	if p.Language != "" {
		opts.Language = p.Language
	}
	if opts.MaxLength <= 0 {
		opts.MaxLength = s.config.DefaultMaxLength
	}

	id, err := s.store.InsertMeeting(s.ctx, &store.Meeting{
		Topic:      p.Topic,
		Language:   opts.Language,
		Options:    opts,
		Characters: p.Characters,
	})
	if err != nil {
		return fmt.Errorf("start conversation: %w", err)
	}

	s.mu.Lock()
	s.meetingID = id
	s.characters = p.Characters
	s.opts = opts
	s.history = nil
	send := s.send
	s.mu.Unlock()

	if err := send.Send(protocol.MsgMeetingStarted, protocol.MeetingStartedPayload{MeetingID: id}); err != nil {
		return err
	}
	s.kick()
	return nil
}

// Resume populates the session from a persisted meeting and re-queues audio
// for any message that has none, then restarts the loop. Idempotent with
// respect to the loop: kick never spawns a second driver.
func (s *Session) Resume(m *store.Meeting, handRaised bool, maxLengthOverride int) error {
	s.mu.Lock()
	s.meetingID = m.ID
	s.characters = m.Characters
	s.opts = m.Options
	if maxLengthOverride > 0 {
		s.opts.MaxLength = maxLengthOverride
	}
	s.history = append([]core.ConversationMessage(nil), m.Conversation...)
	s.handRaised = handRaised
	s.date = m.Date
	history := append([]core.ConversationMessage(nil), s.history...)
	send := s.send
	s.mu.Unlock()

	if err := send.Send(protocol.MsgConversationUpdate, protocol.ConversationPayload{Conversation: history}); err != nil {
		return err
	}

	// Diff persisted audio against the conversation; anything missing is
	// re-queued. The queue and the cache check make this idempotent.
	for _, msg := range history {
		if msg.Type == core.MessageSkipped || msg.Type.Awaiting() {
			continue
		}
		if _, err := s.store.FindAudio(s.ctx, msg.ID); err == nil {
			continue
		}
		s.audio.Enqueue(s.ctx, s.audioJob(msg, false), send)
	}

	s.kick()
	return nil
}

// Reattach swaps a new connection onto an already-active session: the
// current conversation is replayed, missing audio re-queued and the loop
// resumed. No second drive loop is ever started.
func (s *Session) Reattach(send protocol.Sender, handRaised bool) error {
	s.SetSender(send)
	s.mu.Lock()
	s.handRaised = handRaised
	history := append([]core.ConversationMessage(nil), s.history...)
	s.mu.Unlock()

	if err := send.Send(protocol.MsgConversationUpdate, protocol.ConversationPayload{Conversation: history}); err != nil {
		return err
	}
	for _, msg := range history {
		if msg.Type == core.MessageSkipped || msg.Type.Awaiting() {
			continue
		}
		if _, err := s.store.FindAudio(s.ctx, msg.ID); err == nil {
			continue
		}
		s.audio.Enqueue(s.ctx, s.audioJob(msg, false), send)
	}
	s.kick()
	return nil
}

// --- decision step ---

type actionKind int

const (
	actionWait actionKind = iota
	actionEnd
	actionRequestPanelist
	actionGenerate
)

type action struct {
	kind    actionKind
	speaker int
}

// decideNext is the pure decision step evaluated once per loop iteration.
// Caller holds s.mu.
func (s *Session) decideNext() action {
	if s.ended || s.handRaised {
		return action{kind: actionWait}
	}
	if len(s.history) >= s.opts.MaxLength+s.extraMessages {
		return action{kind: actionEnd}
	}
	if n := len(s.history); n > 0 && s.history[n-1].Type.Awaiting() {
		return action{kind: actionWait}
	}
	idx := NextSpeaker(s.history, s.characters)
	if s.characters[idx].Role == core.RolePanelist {
		return action{kind: actionRequestPanelist, speaker: idx}
	}
	return action{kind: actionGenerate, speaker: idx}
}

// kick starts the drive loop unless one is already running.
func (s *Session) kick() {
	s.mu.Lock()
	if s.driving || s.ended {
		s.mu.Unlock()
		return
	}
	s.driving = true
	s.mu.Unlock()
	go s.drive()
}

// drive advances the conversation until a suspension condition. It is an
// explicit loop: every iteration re-evaluates decideNext, and the loop
// returns, never recurses, when there is nothing to do.
func (s *Session) drive() {
	defer func() {
		s.mu.Lock()
		s.driving = false
		s.mu.Unlock()
	}()

	for {
		s.mu.Lock()
		act := s.decideNext()

		switch act.kind {
		case actionWait:
			s.mu.Unlock()
			return

		case actionEnd:
			alreadySent := s.endSent
			s.endSent = true
			history := append([]core.ConversationMessage(nil), s.history...)
			send := s.send
			s.mu.Unlock()
			if !alreadySent {
				_ = send.Send(protocol.MsgConversationEnd, protocol.ConversationPayload{Conversation: history})
			}
			return

		case actionRequestPanelist:
			speaker := s.characters[act.speaker]
			msg := core.ConversationMessage{
				ID:      uuid.New().String(),
				Speaker: speaker.ID,
				Type:    core.MessageAwaitingHumanPanelist,
			}
			err := s.appendLocked(msg)
			s.mu.Unlock()
			if err != nil {
				s.reportError(err)
			}
			return

		case actionGenerate:
			speaker := s.characters[act.speaker]
			epoch := s.epoch
			history := append([]core.ConversationMessage(nil), s.history...)
			s.mu.Unlock()
			if !s.generateTurn(epoch, speaker, history) {
				return
			}
		}
	}
}

// generateTurn runs the retry budget for one AI turn and appends either the
// utterance or a skipped marker. Returns false when the loop must stop
// (stale context or persistence failure).
func (s *Session) generateTurn(epoch int64, speaker core.Character, history []core.ConversationMessage) bool {
	var result *dialog.Result

	for attempt := 1; attempt <= s.config.MaxAttempts; attempt++ {
		res, err := s.gen.Turn(s.ctx, history, s.characters, speaker, s.opts)
		if s.stale(epoch) {
			// A superseded generation must never be appended.
			return false
		}
		if err != nil {
			s.logger.With(map[string]interface{}{
				"speaker": speaker.Name,
				"attempt": attempt,
				"error":   err,
			}).Warn("turn generation failed, retrying")
			continue
		}
		if res.Text != "" {
			result = res
			break
		}
	}

	msg := core.ConversationMessage{
		ID:      uuid.New().String(),
		Speaker: speaker.ID,
		Type:    core.MessageSkipped,
	}
	if result != nil {
		msg.Text = result.Text
		msg.Sentences = result.Sentences
		msg.Trimmed = result.Trimmed
		msg.Type = s.turnType(history, speaker)
	} else {
		s.logger.With(map[string]interface{}{"speaker": speaker.Name}).Warn("all generation attempts empty, skipping turn")
	}

	s.mu.Lock()
	if s.staleLocked(epoch) {
		s.mu.Unlock()
		return false
	}
	err := s.appendLocked(msg)
	send := s.send
	s.mu.Unlock()
	if err != nil {
		s.reportError(err)
		return false
	}

	// Fire-and-forget: the text loop never waits on audio.
	s.audio.Enqueue(s.ctx, s.audioJob(msg, false), send)
	return true
}

// turnType marks an utterance as an out-of-rotation response when it answers
// a direct question that is still the last thing said.
func (s *Session) turnType(history []core.ConversationMessage, speaker core.Character) core.MessageType {
	if n := len(history); n > 0 {
		last := history[n-1]
		if last.Type == core.MessageHuman && last.AskParticular != "" {
			if idx := characterIndex(s.characters, last.AskParticular); idx >= 0 && s.characters[idx].ID == speaker.ID {
				return core.MessageResponse
			}
		}
	}
	return core.MessageDefault
}

// appendLocked appends a message, persists the conversation and only then
// broadcasts it: durability precedes visibility. Caller holds s.mu.
func (s *Session) appendLocked(msg core.ConversationMessage) error {
	s.history = append(s.history, msg)
	if err := s.store.UpdateMeetingConversation(s.ctx, s.meetingID, s.history); err != nil {
		s.history = s.history[:len(s.history)-1]
		return fmt.Errorf("persist conversation: %w", err)
	}
	history := append([]core.ConversationMessage(nil), s.history...)
	return s.send.Send(protocol.MsgConversationUpdate, protocol.ConversationPayload{Conversation: history})
}

// stale reports whether the generation context the caller snapshotted has
// been superseded. Callers check after every await.
func (s *Session) stale(epoch int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.staleLocked(epoch)
}

func (s *Session) staleLocked(epoch int64) bool {
	return s.ended || s.epoch != epoch
}

// --- human interruption ---

// RaiseHand suspends the loop, truncates the history to the interruption
// point and has the chair invite the human to speak. The invitation plus an
// awaiting placeholder are appended; SubmitHumanMessage resolves them.
func (s *Session) RaiseHand(index int, humanName string) error {
	if humanName == "" {
		return core.BadRequest("human_name is required")
	}

	s.mu.Lock()
	if s.ended {
		s.mu.Unlock()
		return core.BadRequest("meeting already ended")
	}
	if index >= 0 && index < len(s.history) {
		s.history = s.history[:index]
	}
	s.handRaised = true
	s.humanName = humanName
	s.epoch++ // any in-flight generation is now stale
	epoch := s.epoch
	chair := s.characters[0]
	history := append([]core.ConversationMessage(nil), s.history...)
	s.mu.Unlock()

	if err := s.store.UpdateMeetingConversation(s.ctx, s.meetingID, history); err != nil {
		return fmt.Errorf("persist truncation: %w", err)
	}

	// The invitation takes a model round-trip; run it off the event goroutine
	// so the socket stays responsive.
	go func() {
		res, err := s.gen.Invitation(s.ctx, history, s.characters, chair, humanName, s.opts)
		if s.stale(epoch) {
			return
		}
		var invitation *core.ConversationMessage
		if err != nil {
			s.logger.With(map[string]interface{}{"error": err}).Warn("invitation generation failed, awaiting human without one")
		} else if res.Text != "" {
			invitation = &core.ConversationMessage{
				ID:        uuid.New().String(),
				Speaker:   chair.ID,
				Text:      res.Text,
				Sentences: res.Sentences,
				Type:      core.MessageInvitation,
			}
		}

		s.mu.Lock()
		if s.staleLocked(epoch) {
			s.mu.Unlock()
			return
		}
		if invitation != nil {
			s.history = append(s.history, *invitation)
		}
		placeholder := core.ConversationMessage{
			ID:      uuid.New().String(),
			Speaker: humanName,
			Type:    core.MessageAwaitingHumanQuestion,
		}
		appendErr := s.appendLocked(placeholder)
		send := s.send
		s.mu.Unlock()

		if appendErr != nil {
			s.reportError(appendErr)
			return
		}
		if invitation != nil {
			s.audio.Enqueue(s.ctx, s.audioJob(*invitation, false), send)
		}
	}()
	return nil
}


// SubmitHumanMessage resolves the awaiting_human_question placeholder with
// the human's words, clears the suspension and resumes the loop.
func (s *Session) SubmitHumanMessage(text, askParticular string) error {
	if text == "" {
		return core.BadRequest("text is required")
	}

	s.mu.Lock()
	// An invitation still in flight must not land after the human has spoken.
	s.epoch++
	if n := len(s.history); n > 0 && s.history[n-1].Type == core.MessageAwaitingHumanQuestion {
		s.history = s.history[:n-1]
	}
	if n := len(s.history); n > 0 && s.history[n-1].Type == core.MessageInvitation {
		s.history = s.history[:n-1]
	}
	name := s.humanName
	if name == "" {
		name = "Guest"
	}
	msg := core.ConversationMessage{
		ID:            uuid.New().String(),
		Speaker:       name,
		Text:          text,
		Sentences:     textutil.SplitSentences(text),
		Type:          core.MessageHuman,
		AskParticular: askParticular,
	}
	err := s.appendLocked(msg)
	if err == nil {
		s.handRaised = false
	}
	send := s.send
	s.mu.Unlock()
	if err != nil {
		return err
	}

	s.audio.Enqueue(s.ctx, s.humanAudioJob(msg, name), send)
	s.kick()
	return nil
}

// SubmitHumanPanelist resolves the awaiting_human_panelist placeholder with
// the human's words spoken as their character, then resumes the loop.
func (s *Session) SubmitHumanPanelist(text, speakerID string) error {
	if text == "" {
		return core.BadRequest("text is required")
	}

	s.mu.Lock()
	idx := characterIndex(s.characters, speakerID)
	if idx < 0 {
		s.mu.Unlock()
		return core.BadRequest("unknown panelist character %q", speakerID)
	}
	if n := len(s.history); n > 0 && s.history[n-1].Type == core.MessageAwaitingHumanPanelist {
		s.history = s.history[:n-1]
	}
	msg := core.ConversationMessage{
		ID:        uuid.New().String(),
		Speaker:   s.characters[idx].ID,
		Text:      text,
		Sentences: textutil.SplitSentences(text),
		Type:      core.MessagePanelist,
	}
	err := s.appendLocked(msg)
	send := s.send
	s.mu.Unlock()
	if err != nil {
		return err
	}

	s.audio.Enqueue(s.ctx, s.audioJob(msg, false), send)
	s.kick()
	return nil
}

// --- wrap-up, continue, teardown ---

// WrapUp has the chair summarize the whole meeting, appends the summary and
// synthesizes its audio synchronously with subtitle matching disabled:
// summaries are read in full, not scrubbed to word timings. Ends the session.
func (s *Session) WrapUp(date string) error {
	s.mu.Lock()
	if s.ended {
		s.mu.Unlock()
		return core.BadRequest("meeting already ended")
	}
	s.epoch++ // cancel any in-flight generation
	s.date = date
	chair := s.characters[0]
	history := append([]core.ConversationMessage(nil), s.history...)
	s.mu.Unlock()

	res, err := s.gen.Summary(s.ctx, history, s.characters, chair, date, s.opts)
	if err != nil {
		return fmt.Errorf("summary generation: %w", err)
	}

	msg := core.ConversationMessage{
		ID:        uuid.New().String(),
		Speaker:   chair.ID,
		Text:      res.Text,
		Sentences: res.Sentences,
		Type:      core.MessageSummary,
	}

	s.mu.Lock()
	appendErr := s.appendLocked(msg)
	if appendErr == nil {
		s.ended = true
	}
	final := append([]core.ConversationMessage(nil), s.history...)
	send := s.send
	s.mu.Unlock()
	if appendErr != nil {
		return appendErr
	}

	if err := s.store.UpdateMeetingDate(s.ctx, s.meetingID, date); err != nil {
		s.logger.With(map[string]interface{}{"error": err}).Warn("persisting meeting date failed")
	}

	if err := s.audio.Generate(s.ctx, s.audioJob(msg, true), send); err != nil {
		s.logger.With(map[string]interface{}{"error": err}).Error("summary audio generation failed")
		s.reportError(err)
	}

	return send.Send(protocol.MsgConversationEnd, protocol.ConversationPayload{Conversation: final})
}

// Continue admits more turns after the meeting hit its length budget.
func (s *Session) Continue() error {
	s.mu.Lock()
	if s.ended {
		s.mu.Unlock()
		return core.BadRequest("meeting already ended")
	}
	s.extraMessages += s.config.ContinueExtraMessages
	s.endSent = false
	s.mu.Unlock()
	s.kick()
	return nil
}

// Close halts the loop permanently; called on transport disconnect. Audio
// jobs already queued keep running and persist their results.
func (s *Session) Close() {
	s.mu.Lock()
	s.ended = true
	s.epoch++
	s.mu.Unlock()
}

// --- helpers ---

func (s *Session) audioJob(msg core.ConversationMessage, summary bool) audio.Job {
	speaker := core.Character{ID: msg.Speaker, Name: msg.Speaker, Voice: s.config.HumanVoice}
	if idx := characterIndex(s.characters, msg.Speaker); idx >= 0 {
		speaker = s.characters[idx]
	}
	return audio.Job{
		Message:        msg,
		Speaker:        speaker,
		MeetingID:      s.meetingID,
		SkipAudio:      s.opts.SkipAudio,
		MatchSubtitles: !summary,
	}
}

func (s *Session) humanAudioJob(msg core.ConversationMessage, name string) audio.Job {
	return audio.Job{
		Message:        msg,
		Speaker:        core.Character{ID: name, Name: name, Voice: s.config.HumanVoice},
		MeetingID:      s.meetingID,
		SkipAudio:      s.opts.SkipAudio,
		MatchSubtitles: true,
	}
}

// reportError logs an internal failure and surfaces a generic error to the
// client; the session is not torn down.
func (s *Session) reportError(err error) {
	s.mu.Lock()
	id := s.meetingID
	send := s.send
	s.mu.Unlock()
	s.logger.With(map[string]interface{}{"meeting_id": id, "error": err}).Error("meeting loop error")
	_ = send.Send(protocol.MsgConversationError, protocol.ConversationErrorPayload{
		Message: "internal error",
		Code:    core.CodeInternal,
	})
}
