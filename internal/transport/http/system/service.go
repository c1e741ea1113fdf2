// Package system serves operational endpoints: health, metrics and the
// runtime provider switch.
package system

import (
	"context"
	"net/http"
	"runtime"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shirou/gopsutil/v3/mem"

	"socialhub-server-go/internal/domain/chat/provider"
	platformerrors "socialhub-server-go/internal/platform/errors"
	"socialhub-server-go/internal/platform/logging"
	"socialhub-server-go/internal/platform/observability"
	httptransport "socialhub-server-go/internal/transport/http"
)

// Providers switches the active backend. *provider.Manager implements it.
type Providers interface {
	Current() provider.Adapter
	Reconfigure(ctx context.Context, name string) error
}

// SessionCounter reports open websocket sessions.
type SessionCounter interface {
	Count() int
}

type Options struct {
	Providers   Providers
	Sessions    SessionCounter
	Metrics     *observability.Metrics
	MetricsPath string
	Logger      *logging.Logger
}

type Service struct {
	opts    Options
	started time.Time
	logger  *logging.Logger
}

func NewService(opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewDiscard()
	}
	if opts.MetricsPath == "" {
		opts.MetricsPath = "/metrics"
	}
	return &Service{opts: opts, started: time.Now(), logger: logger}
}

// Register mounts /api/health and /api/admin/provider on api and the
// Prometheus handler on engine.
func (s *Service) Register(engine *gin.Engine, api, secured *gin.RouterGroup, identity *httptransport.Identity) {
	api.GET("/health", s.handleHealth)
	if s.opts.Metrics != nil {
		engine.GET(s.opts.MetricsPath, gin.WrapH(s.opts.Metrics.Handler()))
	}
	admin := secured.Group("/admin", identity.RequireAdmin())
	admin.POST("/provider", s.handleProvider)
}

type healthResponse struct {
	Status     string  `json:"status"`
	Provider   string  `json:"provider"`
	Uptime     string  `json:"uptime"`
	Goroutines int     `json:"goroutines"`
	Sessions   int     `json:"websocket_sessions"`
	MemUsedPct float64 `json:"mem_used_percent,omitempty"`
	HeapAlloc  uint64  `json:"heap_alloc_bytes"`
}

// @Summary Service health
// @Tags System
// @Router /health [get]
func (s *Service) handleHealth(c *gin.Context) {
	resp := healthResponse{
		Status:     "ok",
		Uptime:     time.Since(s.started).Truncate(time.Second).String(),
		Goroutines: runtime.NumGoroutine(),
	}

	if s.opts.Providers != nil {
		if a := s.opts.Providers.Current(); a != nil {
			resp.Provider = a.Name()
		}
	}
	if resp.Provider == "" {
		resp.Status = "degraded"
	}
	if s.opts.Sessions != nil {
		resp.Sessions = s.opts.Sessions.Count()
	}

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	resp.HeapAlloc = ms.HeapAlloc
	if vm, err := mem.VirtualMemoryWithContext(c.Request.Context()); err == nil {
		resp.MemUsedPct = vm.UsedPercent
	} else {
		s.logger.DebugTag("HTTP", "host memory unavailable: %v", err)
	}

	httptransport.RespondSuccess(c, http.StatusOK, resp, "")
}

type providerRequest struct {
	Provider string `json:"provider" binding:"required"`
}

// @Summary Switch the active model provider
// @Tags System
// @Accept json
// @Router /admin/provider [post]
func (s *Service) handleProvider(c *gin.Context) {
	var body providerRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		httptransport.RespondError(c, http.StatusBadRequest, "provider is required", nil)
		return
	}
	if s.opts.Providers == nil {
		httptransport.RespondError(c, http.StatusServiceUnavailable, "provider manager unavailable", nil)
		return
	}

	name := strings.ToLower(strings.TrimSpace(body.Provider))
	if err := s.opts.Providers.Reconfigure(c.Request.Context(), name); err != nil {
		if platformerrors.IsKind(err, platformerrors.KindConfig) {
			httptransport.RespondError(c, http.StatusBadRequest, err.Error(), nil)
			return
		}
		httptransport.RespondErr(c, err)
		return
	}
	s.logger.InfoTag("HTTP", "provider switched to %s by %s", name, httptransport.ActingUser(c))
	httptransport.RespondSuccess(c, http.StatusOK, gin.H{"provider": name}, "")
}
