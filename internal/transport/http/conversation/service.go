// Package conversation exposes the exchange pipeline over HTTP: a blocking
// endpoint, an SSE stream and the per-user history.
package conversation

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"socialhub-server-go/internal/domain/chat/aggregate"
	"socialhub-server-go/internal/domain/chat/orchestrator"
	"socialhub-server-go/internal/platform/errors"
	"socialhub-server-go/internal/platform/logging"
	httptransport "socialhub-server-go/internal/transport/http"
)

// MaxAttachmentBytes bounds one decoded attachment.
const MaxAttachmentBytes = 5 * 1024 * 1024

// Runner runs one exchange. *orchestrator.Orchestrator implements it.
type Runner interface {
	RunExchange(ctx context.Context, req orchestrator.Request, observe orchestrator.Observer) (*orchestrator.Result, error)
}

// History reads and clears a user's turns. *session.Session implements it.
type History interface {
	Recent(ctx context.Context, userID string, n int) ([]aggregate.Turn, error)
	Clear(ctx context.Context, userID string) (int, error)
}

// Request is the body of both conversation endpoints.
type Request struct {
	Message     string                 `json:"message"`
	Attachments []aggregate.Attachment `json:"attachments"`
}

type Service struct {
	runner  Runner
	history History
	logger  *logging.Logger
}

func NewService(runner Runner, history History, logger *logging.Logger) (*Service, error) {
	if runner == nil || history == nil {
		return nil, errors.New(errors.KindConfig, "conversation.new", "runner and history are required")
	}
	if logger == nil {
		logger = logging.NewDiscard()
	}
	return &Service{runner: runner, history: history, logger: logger}, nil
}

// Register mounts the routes on a group that already resolves the acting user.
func (s *Service) Register(router *gin.RouterGroup) {
	router.POST("/conversation", s.handleConversation)
	router.POST("/conversation/stream", s.handleStream)

	history := router.Group("/conversation/history", httptransport.RequireUser())
	history.GET("", s.handleHistory)
	history.DELETE("", s.handleClearHistory)

	s.logger.InfoTag("HTTP", "conversation routes registered")
}

// ParseRequest validates a decoded body and turns it into an exchange request.
func ParseRequest(body Request, user string) (orchestrator.Request, error) {
	for i, a := range body.Attachments {
		if a.MimeType == "" {
			return orchestrator.Request{}, errors.New(errors.KindDomain, "conversation.parse",
				fmt.Sprintf("attachment %d has no mimeType", i))
		}
		raw, err := a.Decode()
		if err != nil {
			return orchestrator.Request{}, errors.Wrap(errors.KindDomain, "conversation.parse",
				fmt.Sprintf("attachment %d is not valid base64", i), err)
		}
		if len(raw) > MaxAttachmentBytes {
			return orchestrator.Request{}, errors.New(errors.KindDomain, "conversation.parse",
				fmt.Sprintf("attachment %d exceeds %d bytes", i, MaxAttachmentBytes))
		}
	}
	return orchestrator.Request{
		UserID:      user,
		Message:     body.Message,
		Attachments: body.Attachments,
	}, nil
}

func (s *Service) bind(c *gin.Context) (orchestrator.Request, bool) {
	var body Request
	if err := c.ShouldBindJSON(&body); err != nil {
		httptransport.RespondError(c, http.StatusBadRequest, "invalid request body", gin.H{"error": err.Error()})
		return orchestrator.Request{}, false
	}
	req, err := ParseRequest(body, httptransport.ActingUser(c))
	if err != nil {
		httptransport.RespondErr(c, err)
		return orchestrator.Request{}, false
	}
	return req, true
}

// handleConversation runs one exchange and returns its result.
// @Summary Send a message to the assistant
// @Tags Conversation
// @Accept json
// @Produce json
// @Router /conversation [post]
func (s *Service) handleConversation(c *gin.Context) {
	req, ok := s.bind(c)
	if !ok {
		return
	}

	result, err := s.runner.RunExchange(c.Request.Context(), req, nil)
	if err != nil {
		httptransport.RespondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// handleStream runs one exchange and relays its events as server-sent events.
// @Summary Send a message and stream progress
// @Tags Conversation
// @Accept json
// @Produce text/event-stream
// @Router /conversation/stream [post]
func (s *Service) handleStream(c *gin.Context) {
	req, ok := s.bind(c)
	if !ok {
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	terminal := false
	observe := func(ev orchestrator.Event) {
		if ev.Type == orchestrator.EventDone || ev.Type == orchestrator.EventError {
			terminal = true
		}
		c.SSEvent(string(ev.Type), ev.Data)
		c.Writer.Flush()
	}

	if _, err := s.runner.RunExchange(c.Request.Context(), req, observe); err != nil {
		_ = c.Error(err)
		if !terminal {
			c.SSEvent(string(orchestrator.EventError), orchestrator.ErrorData{Message: err.Error()})
			c.Writer.Flush()
		}
		s.logger.WarnTag("HTTP", "stream for %q ended with error: %v", req.UserID, err)
	}
}

// handleHistory returns the acting user's turns, oldest first.
// @Summary Conversation history
// @Tags Conversation
// @Produce json
// @Param limit query int false "number of turns"
// @Router /conversation/history [get]
func (s *Service) handleHistory(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			httptransport.RespondError(c, http.StatusBadRequest, "limit must be a non-negative integer", nil)
			return
		}
		limit = n
	}

	turns, err := s.history.Recent(c.Request.Context(), httptransport.ActingUser(c), limit)
	if err != nil {
		httptransport.RespondErr(c, errors.Wrap(errors.KindStorage, "conversation.history", "failed to load history", err))
		return
	}
	if turns == nil {
		turns = []aggregate.Turn{}
	}
	httptransport.RespondSuccess(c, http.StatusOK, gin.H{"turns": turns}, "")
}

// @Summary Delete conversation history
// @Tags Conversation
// @Router /conversation/history [delete]
func (s *Service) handleClearHistory(c *gin.Context) {
	removed, err := s.history.Clear(c.Request.Context(), httptransport.ActingUser(c))
	if err != nil {
		httptransport.RespondErr(c, errors.Wrap(errors.KindStorage, "conversation.clear", "failed to clear history", err))
		return
	}
	httptransport.RespondSuccess(c, http.StatusOK, gin.H{"removed": removed}, "")
}
