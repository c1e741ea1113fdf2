package ws

import (
	"github.com/gin-gonic/gin"
)

// DefaultPath is where the conversation socket is mounted under /api.
const DefaultPath = "/ws/conversation"

// Server mounts the websocket router on a gin group and owns the session hub.
type Server struct {
	hub    *Hub
	router *Router
	path   string
}

func NewServer(path string, router *Router, hub *Hub) *Server {
	if path == "" {
		path = DefaultPath
	}
	return &Server{hub: hub, router: router, path: path}
}

func (s *Server) Register(group *gin.RouterGroup) {
	group.GET(s.path, gin.WrapF(s.router.Handle))
}

// Stop closes every open session.
func (s *Server) Stop() {
	s.hub.CloseAll(ErrSessionShutdown)
}

// Count reports open sessions.
func (s *Server) Count() int {
	return s.hub.Count()
}
