package ws

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"

	"socialhub-server-go/internal/domain/chat/aggregate"
	"socialhub-server-go/internal/domain/chat/orchestrator"
	"socialhub-server-go/internal/platform/logging"
	"socialhub-server-go/internal/transport/http/conversation"
)

// Frame is the envelope of every server-to-client message.
type Frame struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// inbound is a client message. Type defaults to "message".
type inbound struct {
	Type        string                 `json:"type"`
	Message     string                 `json:"message"`
	Attachments []aggregate.Attachment `json:"attachments"`
}

const (
	frameReady = "ready"
	framePong  = "pong"
)

// Session runs exchanges for one websocket connection, one inbound message at
// a time, relaying every exchange event as a Frame.
type Session struct {
	id     string
	user   string
	conn   *Connection
	runner conversation.Runner
	logger *logging.Logger

	ctx    context.Context
	cancel context.CancelCauseFunc

	closed atomic.Bool
}

func NewSession(parent context.Context, user string, conn *Connection, runner conversation.Runner, logger *logging.Logger) *Session {
	sessionCtx, cancel := context.WithCancelCause(parent)
	return &Session{
		id:     conn.ID(),
		user:   user,
		conn:   conn,
		runner: runner,
		logger: logger,
		ctx:    sessionCtx,
		cancel: cancel,
	}
}

func (s *Session) Context() context.Context {
	return s.ctx
}

func (s *Session) ID() string {
	return s.id
}

// Run executes the read loop and invokes onDone once exiting.
func (s *Session) Run(onDone func(error)) {
	var runErr error
	defer func() {
		s.Close(runErr)
		if onDone != nil {
			onDone(runErr)
		}
	}()

	if err := s.conn.WriteJSON(Frame{Type: frameReady, Data: map[string]any{"sessionId": s.id, "anonymous": s.user == ""}}); err != nil {
		runErr = err
		return
	}

	for {
		messageType, payload, err := s.conn.ReadMessage()
		if err != nil {
			if s.ctx.Err() == nil && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				runErr = err
			}
			return
		}
		if messageType != websocket.TextMessage {
			s.writeError("", "only text frames are supported")
			continue
		}

		var msg inbound
		if err := sonic.Unmarshal(payload, &msg); err != nil {
			s.writeError("", "invalid message: "+err.Error())
			continue
		}
		if msg.Type == "ping" {
			_ = s.conn.WriteJSON(Frame{Type: framePong})
			continue
		}

		if err := s.exchange(msg); err != nil {
			runErr = err
			return
		}
	}
}

// exchange runs one message. Only a failed write ends the session.
func (s *Session) exchange(msg inbound) error {
	req, err := conversation.ParseRequest(conversation.Request{Message: msg.Message, Attachments: msg.Attachments}, s.user)
	if err != nil {
		s.writeError("", err.Error())
		return nil
	}

	var writeErr error
	terminal := false
	observe := func(ev orchestrator.Event) {
		if ev.Type == orchestrator.EventDone || ev.Type == orchestrator.EventError {
			terminal = true
		}
		if writeErr == nil {
			writeErr = s.conn.WriteJSON(Frame{Type: string(ev.Type), Data: ev.Data})
		}
	}

	if _, err := s.runner.RunExchange(s.ctx, req, observe); err != nil {
		s.logger.WarnTag("WS", "session %s exchange failed: %v", s.id, err)
		if !terminal && writeErr == nil {
			s.writeError("", err.Error())
		}
	}
	return writeErr
}

func (s *Session) writeError(conversationID, message string) {
	if err := s.conn.WriteJSON(Frame{
		Type: string(orchestrator.EventError),
		Data: orchestrator.ErrorData{ConversationID: conversationID, Message: message},
	}); err != nil && !errors.Is(err, context.Canceled) {
		s.logger.DebugTag("WS", "session %s write failed: %v", s.id, err)
	}
}

// Close cancels any running exchange and closes the connection.
func (s *Session) Close(reason error) {
	if reason == nil {
		reason = ErrClientClosed
	}
	if !s.closed.CompareAndSwap(false, true) {
		return
	}

	s.cancel(reason)
	if err := s.conn.Close(); err != nil {
		s.logger.DebugTag("WS", "session %s connection close failed: %v", s.id, err)
	}
}
