package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	platformerrors "socialhub-server-go/internal/platform/errors"
	platformlogging "socialhub-server-go/internal/platform/logging"
)

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

func writeConfig(t *testing.T, port int) Options {
	t.Helper()
	dir := t.TempDir()
	content := fmt.Sprintf(`server:
  ip: 127.0.0.1
  port: %d
  shutdown_timeout: 2s
log:
  log_level: debug
  log_dir: %s
  log_file: test.log
  console: false
database:
  dsn: %s
session:
  driver: sqlite
metrics:
  enabled: true
  path: /metrics
`, port, filepath.Join(dir, "logs"), filepath.Join(dir, "data", "test.db"))
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return Options{ConfigPath: path, SkipDotEnv: true}
}

func TestInitGraphOrder(t *testing.T) {
	steps := InitGraph()
	want := []string{
		"config:load",
		"logging:init-provider",
		"observability:setup-hooks",
		"storage:init-database",
		"session:init-store",
		"tools:init-catalogue",
		"social:init-service",
		"tools:init-dispatcher",
		"events:init-bus",
		"provider:init-manager",
		"orchestrator:init",
	}
	require.Len(t, steps, len(want))

	seen := map[string]bool{}
	for i, step := range steps {
		assert.Equal(t, want[i], step.ID)
		for _, dep := range step.DependsOn {
			assert.True(t, seen[dep], "%s depends on %s which runs later", step.ID, dep)
		}
		seen[step.ID] = true
	}
}

func TestExecuteInitGraph(t *testing.T) {
	state := &appState{opts: writeConfig(t, freePort(t))}
	require.NoError(t, executeInitSteps(context.Background(), InitGraph(), state))
	defer state.close()

	assert.NotNil(t, state.config)
	assert.NotNil(t, state.logger)
	assert.NotNil(t, state.metrics)
	assert.NotNil(t, state.db)
	assert.NotNil(t, state.session)
	assert.NotNil(t, state.catalogue)
	assert.NotNil(t, state.dispatcher)
	assert.NotNil(t, state.scheduler)
	assert.NotNil(t, state.bus)
	assert.NotNil(t, state.providers)
	assert.NotNil(t, state.orchestrator)
	assert.Empty(t, state.dispatcher.Missing(state.catalogue.Names()))
}

func TestExecuteInitStepsMissingDependency(t *testing.T) {
	steps := []initStep{{
		ID:        "b",
		DependsOn: []string{"a"},
		Execute:   func(context.Context, *appState) error { return nil },
	}}
	err := executeInitSteps(context.Background(), steps, &appState{})
	require.Error(t, err)
	assert.True(t, platformerrors.IsKind(err, platformerrors.KindBootstrap))
	assert.Contains(t, err.Error(), "dependency a not satisfied")
}

func TestExecuteInitStepsUsesStepKind(t *testing.T) {
	steps := []initStep{{
		ID:      "storage:broken",
		Kind:    platformerrors.KindStorage,
		Execute: func(context.Context, *appState) error { return errors.New("disk full") },
	}}
	err := executeInitSteps(context.Background(), steps, &appState{})
	require.Error(t, err)
	assert.True(t, platformerrors.IsKind(err, platformerrors.KindStorage))

	assert.Error(t, executeInitSteps(context.Background(), nil, nil))
}

func TestLogBootstrapGraphOutput(t *testing.T) {
	dir := t.TempDir()
	logger, err := platformlogging.New(platformlogging.Config{Level: "info", Dir: dir, Filename: "graph.log"})
	require.NoError(t, err)
	logBootstrapGraph(InitGraph(), logger)
	require.NoError(t, logger.Close())

	data, err := os.ReadFile(filepath.Join(dir, "graph.log"))
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, "init graph")
	for _, step := range InitGraph() {
		assert.Contains(t, content, step.ID)
	}
}

func TestRunServesAndShutsDown(t *testing.T) {
	port := freePort(t)
	opts := writeConfig(t, port)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Run(ctx, opts) }()

	url := fmt.Sprintf("http://127.0.0.1:%d/api/health", port)
	require.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 50*time.Millisecond)

	resp, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d/metrics", port))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := strings.NewReader(`{"message":""}`)
	resp, err = http.Post(fmt.Sprintf("http://127.0.0.1:%d/api/conversation", port), "application/json", body)
	require.NoError(t, err)
	resp.Body.Close()
	assert.NotEqual(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
