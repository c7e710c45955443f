package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/Nonhuman-Nonsense/council-of-foods-sub001/core"
	"github.com/Nonhuman-Nonsense/council-of-foods-sub001/meeting"
	"github.com/Nonhuman-Nonsense/council-of-foods-sub001/protocol"
	"github.com/Nonhuman-Nonsense/council-of-foods-sub001/store"
)

// Server upgrades HTTP requests to meeting WebSocket connections and
// dispatches inbound envelopes onto hub sessions.
type Server struct {
	hub      *meeting.Hub
	upgrader websocket.Upgrader
	logger   *core.Logger
}

// NewServer creates a server over the given hub.
func NewServer(hub *meeting.Hub, logger *core.Logger) *Server {
	if logger == nil {
		logger = core.GetLogger()
	}
	return &Server{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// The meeting socket is same-origin in production and localhost in
			// development; origin enforcement lives at the proxy.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: logger,
	}
}

// ServeHTTP upgrades the request and runs the connection's read loop until
// the client goes away.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	raw, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.With(map[string]interface{}{"error": err}).Warn("websocket upgrade failed")
		return
	}
	conn := NewConn(raw)
	defer conn.Close()

	var session *meeting.Session
	defer func() {
		// Disconnect destroys the turn loop; the meeting document survives in
		// the store for a later reconnection.
		s.hub.Release(session)
	}()

	ctx := context.Background()
	for {
		msgType, payload, err := conn.ReadEnvelope()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.With(map[string]interface{}{"error": err}).Warn("websocket read failed")
			}
			return
		}
		session = s.dispatch(ctx, conn, session, msgType, payload)
	}
}

// dispatch handles one inbound envelope. A handler error never tears the
// connection down: validation failures and internal errors are both reported
// as conversation_error and the loop keeps reading.
func (s *Server) dispatch(ctx context.Context, conn *Conn, session *meeting.Session, msgType protocol.MessageType, payload json.RawMessage) *meeting.Session {
	defer func() {
		if r := recover(); r != nil {
			s.logger.With(map[string]interface{}{"type": msgType, "panic": r}).Error("panic in message handler")
			s.sendError(conn, core.Internal())
		}
	}()

	var err error
	switch msgType {
	case protocol.MsgStartConversation:
		session, err = s.handleStart(ctx, conn, session, payload)
	case protocol.MsgAttemptReconnection:
		session, err = s.handleReconnect(ctx, conn, session, payload)
	case protocol.MsgRaiseHand:
		err = s.handleRaiseHand(session, payload)
	case protocol.MsgSubmitHumanMessage:
		err = s.handleHumanMessage(session, payload)
	case protocol.MsgSubmitHumanPanelist:
		err = s.handleHumanPanelist(session, payload)
	case protocol.MsgWrapUpMeeting:
		err = s.handleWrapUp(session, payload)
	case protocol.MsgContinueConversation:
		err = s.handleContinue(session)
	default:
		err = core.BadRequest("unknown message type %q", msgType)
	}

	if err != nil {
		var clientErr *core.ClientError
		if !errors.As(err, &clientErr) {
			s.logger.With(map[string]interface{}{"type": msgType, "error": err}).Error("message handler failed")
			clientErr = core.Internal()
		}
		s.sendError(conn, clientErr)
	}
	return session
}

func (s *Server) handleStart(ctx context.Context, conn *Conn, session *meeting.Session, payload json.RawMessage) (*meeting.Session, error) {
	p, err := protocol.UnmarshalPayload[protocol.StartConversationPayload](payload)
	if err != nil {
		return session, core.BadRequest("malformed start_conversation payload")
	}
	if session != nil {
		return session, core.BadRequest("connection already has an active meeting")
	}
	sess := s.hub.NewSession(ctx, conn)
	if err := sess.Start(p); err != nil {
		return nil, err
	}
	s.hub.Register(sess)
	return sess, nil
}

func (s *Server) handleReconnect(ctx context.Context, conn *Conn, session *meeting.Session, payload json.RawMessage) (*meeting.Session, error) {
	p, err := protocol.UnmarshalPayload[protocol.AttemptReconnectionPayload](payload)
	if err != nil {
		return session, core.BadRequest("malformed attempt_reconnection payload")
	}
	if session != nil {
		return session, core.BadRequest("connection already has an active meeting")
	}
	sess, err := s.hub.Reconnect(ctx, p, conn)
	if errors.Is(err, store.ErrNotFound) {
		sendErr := conn.Send(protocol.MsgMeetingNotFound, protocol.MeetingNotFoundPayload{MeetingID: p.MeetingID})
		return nil, sendErr
	}
	if err != nil {
		return nil, err
	}
	return sess, nil
}

func (s *Server) handleRaiseHand(session *meeting.Session, payload json.RawMessage) error {
	if session == nil {
		return core.BadRequest("no active meeting on this connection")
	}
	p, err := protocol.UnmarshalPayload[protocol.RaiseHandPayload](payload)
	if err != nil {
		return core.BadRequest("malformed raise_hand payload")
	}
	return session.RaiseHand(p.Index, p.HumanName)
}

func (s *Server) handleHumanMessage(session *meeting.Session, payload json.RawMessage) error {
	if session == nil {
		return core.BadRequest("no active meeting on this connection")
	}
	p, err := protocol.UnmarshalPayload[protocol.SubmitHumanMessagePayload](payload)
	if err != nil {
		return core.BadRequest("malformed submit_human_message payload")
	}
	return session.SubmitHumanMessage(p.Text, p.AskParticular)
}

func (s *Server) handleHumanPanelist(session *meeting.Session, payload json.RawMessage) error {
	if session == nil {
		return core.BadRequest("no active meeting on this connection")
	}
	p, err := protocol.UnmarshalPayload[protocol.SubmitHumanPanelistPayload](payload)
	if err != nil {
		return core.BadRequest("malformed submit_human_panelist payload")
	}
	return session.SubmitHumanPanelist(p.Text, p.Speaker)
}

func (s *Server) handleWrapUp(session *meeting.Session, payload json.RawMessage) error {
	if session == nil {
		return core.BadRequest("no active meeting on this connection")
	}
	p, err := protocol.UnmarshalPayload[protocol.WrapUpMeetingPayload](payload)
	if err != nil {
		return core.BadRequest("malformed wrap_up_meeting payload")
	}
	return session.WrapUp(p.Date)
}

func (s *Server) handleContinue(session *meeting.Session) error {
	if session == nil {
		return core.BadRequest("no active meeting on this connection")
	}
	return session.Continue()
}

func (s *Server) sendError(conn *Conn, clientErr *core.ClientError) {
	err := conn.Send(protocol.MsgConversationError, protocol.ConversationErrorPayload{
		Message: clientErr.Message,
		Code:    clientErr.Code,
	})
	if err != nil {
		s.logger.With(map[string]interface{}{"error": err}).Warn("failed to send error to client")
	}
}
