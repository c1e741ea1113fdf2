package ws

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"socialhub-server-go/internal/platform/logging"
	"socialhub-server-go/internal/platform/observability"
	"socialhub-server-go/internal/transport/http/conversation"
)

// Resolver identifies the acting user of an upgrade request.
type Resolver interface {
	Resolve(req *http.Request) (string, error)
}

// Router upgrades HTTP requests to conversation sessions.
type Router struct {
	hub      *Hub
	runner   conversation.Runner
	identity Resolver
	logger   *logging.Logger

	upgrader *websocket.Upgrader
	baseCtx  context.Context
}

type RouterOptions struct {
	HandshakeTimeout time.Duration
	CheckOrigin      func(r *http.Request) bool
	// BaseContext parents every session. Sessions outlive the upgrade request.
	BaseContext context.Context
}

func NewRouter(hub *Hub, runner conversation.Runner, identity Resolver, logger *logging.Logger, opts RouterOptions) *Router {
	timeout := opts.HandshakeTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	upgrader := &websocket.Upgrader{
		HandshakeTimeout: timeout,
		CheckOrigin:      opts.CheckOrigin,
	}
	if upgrader.CheckOrigin == nil {
		upgrader.CheckOrigin = func(r *http.Request) bool { return true }
	}
	base := opts.BaseContext
	if base == nil {
		base = context.Background()
	}
	if logger == nil {
		logger = logging.NewDiscard()
	}

	return &Router{
		hub:      hub,
		runner:   runner,
		identity: identity,
		logger:   logger,
		upgrader: upgrader,
		baseCtx:  base,
	}
}

// Handle upgrades the HTTP connection and launches a new session.
func (r *Router) Handle(w http.ResponseWriter, req *http.Request) {
	_, spanEnd := observability.StartSpan(req.Context(), "transport.websocket", "handle")
	var spanErr error
	defer func() {
		spanEnd(spanErr)
	}()

	user := ""
	if r.identity != nil {
		var err error
		user, err = r.identity.Resolve(req)
		if err != nil {
			spanErr = err
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
	}

	socket, err := r.upgrader.Upgrade(w, req, nil)
	if err != nil {
		spanErr = err
		r.logger.ErrorTag("WS", "handshake failed: %v", err)
		return
	}

	conn := NewConnection(uuid.NewString(), socket)
	session := NewSession(r.baseCtx, user, conn, r.runner, r.logger)
	r.hub.Register(session)
	r.logger.InfoTag("WS", "session %s opened for %q", session.ID(), user)

	go session.Run(func(runErr error) {
		r.hub.Unregister(session.ID())
		if runErr != nil {
			r.logger.WarnTag("WS", "session %s ended abnormally: %v", session.ID(), runErr)
			return
		}
		r.logger.InfoTag("WS", "session %s closed", session.ID())
	})
}
