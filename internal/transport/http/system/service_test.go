package system

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"socialhub-server-go/internal/domain/chat/aggregate"
	"socialhub-server-go/internal/domain/chat/ledger"
	"socialhub-server-go/internal/domain/chat/provider"
	"socialhub-server-go/internal/platform/config"
	platformerrors "socialhub-server-go/internal/platform/errors"
	"socialhub-server-go/internal/platform/observability"
	httptransport "socialhub-server-go/internal/transport/http"
)

type namedAdapter struct{ name string }

func (a namedAdapter) Name() string { return a.name }
func (a namedAdapter) MergeMode() ledger.Mode { return ledger.Additive }
func (a namedAdapter) Close() error { return nil }
func (a namedAdapter) StartExchange(context.Context, provider.StartRequest) (*provider.Response, error) {
	return &provider.Response{Text: "ok"}, nil
}
func (a namedAdapter) ContinueExchange(context.Context, provider.Continuation, []aggregate.ToolResult) (*provider.Response, error) {
	return &provider.Response{Text: "ok"}, nil
}

func newManager() *provider.Manager {
	m := provider.NewManager(func(_ context.Context, name string) (provider.Adapter, error) {
		if name != "openai" && name != "gemini" {
			return nil, platformerrors.New(platformerrors.KindConfig, "provider.build", "provider \""+name+"\" is not configured")
		}
		return namedAdapter{name: name}, nil
	}, nil)
	m.SetAdapter(namedAdapter{name: "openai"})
	return m
}

type fixedCount int

func (f fixedCount) Count() int { return int(f) }

func newTestServer(t *testing.T, opts Options) *httptransport.Router {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Server.Auth.AdminUsers = []string{"root"}
	router, err := httptransport.Build(httptransport.Options{Config: cfg, Metrics: opts.Metrics})
	require.NoError(t, err)
	NewService(opts).Register(router.Engine, router.API, router.Secured, router.Identity)
	return router
}

func post(r *httptransport.Router, path, user, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set("X-User-ID", user)
	}
	rec := httptest.NewRecorder()
	r.Engine.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	r := newTestServer(t, Options{Providers: newManager(), Sessions: fixedCount(3)})

	rec := httptest.NewRecorder()
	r.Engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data healthResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Data.Status)
	assert.Equal(t, "openai", resp.Data.Provider)
	assert.Equal(t, 3, resp.Data.Sessions)
	assert.Positive(t, resp.Data.Goroutines)
}

func TestHealthDegradedWithoutProvider(t *testing.T) {
	m := provider.NewManager(nil, nil)
	r := newTestServer(t, Options{Providers: m})

	rec := httptest.NewRecorder()
	r.Engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Contains(t, rec.Body.String(), `"status":"degraded"`)
}

func TestSwitchProvider(t *testing.T) {
	m := newManager()
	r := newTestServer(t, Options{Providers: m})

	rec := post(r, "/api/admin/provider", "root", `{"provider":" Gemini "}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "gemini", m.Current().Name())

	rec = post(r, "/api/admin/provider", "root", `{"provider":"claude"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "gemini", m.Current().Name())

	rec = post(r, "/api/admin/provider", "root", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSwitchProviderRequiresAdmin(t *testing.T) {
	m := newManager()
	r := newTestServer(t, Options{Providers: m})

	assert.Equal(t, http.StatusUnauthorized, post(r, "/api/admin/provider", "", `{"provider":"gemini"}`).Code)
	assert.Equal(t, http.StatusForbidden, post(r, "/api/admin/provider", "alice", `{"provider":"gemini"}`).Code)
	assert.Equal(t, "openai", m.Current().Name())
}

func TestMetricsEndpoint(t *testing.T) {
	metrics := observability.NewMetrics()
	r := newTestServer(t, Options{Providers: newManager(), Metrics: metrics})

	rec := httptest.NewRecorder()
	r.Engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	r.Engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `socialhub_http_requests_total{method="GET",path="/api/health",status="200"} 1`)
}
