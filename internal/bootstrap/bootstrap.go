package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	goopenai "github.com/sashabaranov/go-openai"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"socialhub-server-go/internal/domain/chat/catalogue"
	"socialhub-server-go/internal/domain/chat/dispatch"
	"socialhub-server-go/internal/domain/chat/orchestrator"
	"socialhub-server-go/internal/domain/chat/provider"
	providerfactory "socialhub-server-go/internal/domain/chat/provider/factory"
	"socialhub-server-go/internal/domain/chat/session"
	sessionstore "socialhub-server-go/internal/domain/chat/session/store"
	"socialhub-server-go/internal/domain/eventbus"
	eventinfra "socialhub-server-go/internal/domain/eventbus/infrastructure"
	"socialhub-server-go/internal/domain/social"
	socialinfra "socialhub-server-go/internal/domain/social/infrastructure"
	platformconfig "socialhub-server-go/internal/platform/config"
	platformerrors "socialhub-server-go/internal/platform/errors"
	platformlogging "socialhub-server-go/internal/platform/logging"
	platformobservability "socialhub-server-go/internal/platform/observability"
	platformstorage "socialhub-server-go/internal/platform/storage"
	httptransport "socialhub-server-go/internal/transport/http"
	httpconversation "socialhub-server-go/internal/transport/http/conversation"
	httpsystem "socialhub-server-go/internal/transport/http/system"
	"socialhub-server-go/internal/transport/ws"
)

// Options controls how Run locates its configuration.
type Options struct {
	ConfigPath string
	// SkipDotEnv disables loading a .env file from the working directory.
	SkipDotEnv bool
}

type stepFn func(context.Context, *appState) error

type initStep struct {
	ID        string
	Title     string
	DependsOn []string
	Kind      platformerrors.Kind
	Execute   stepFn
}

type appState struct {
	opts       Options
	config     *platformconfig.Config
	configPath string
	logger     *platformlogging.Logger

	metrics               *platformobservability.Metrics
	observabilityShutdown platformobservability.ShutdownFunc

	db        *gorm.DB
	session   *session.Session
	catalogue *catalogue.Catalogue

	socialService *social.Service
	scheduler     *social.Scheduler
	dispatcher    *dispatch.Dispatcher

	bus       *eventbus.Bus
	retention *eventbus.Retention

	providers    *provider.Manager
	orchestrator *orchestrator.Orchestrator
}

// Run starts the service and blocks until ctx is cancelled or a signal arrives.
func Run(ctx context.Context, opts Options) error {
	state := &appState{opts: opts}

	steps := InitGraph()
	if err := executeInitSteps(ctx, steps, state); err != nil {
		state.close()
		return err
	}
	defer state.close()

	logger := state.logger
	logBootstrapGraph(steps, logger)

	rootCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	signalCtx, stop := signal.NotifyContext(rootCtx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(signalCtx)

	if err := startServices(state, group, groupCtx); err != nil {
		cancel()
		_ = group.Wait()
		return err
	}

	return waitForShutdown(groupCtx, cancel, logger, group, state.config.Server.ShutdownTimeout+5*time.Second)
}

func logBootstrapGraph(steps []initStep, logger *platformlogging.Logger) {
	logger.InfoTag("BOOT", "init graph:")
	for _, step := range steps {
		if len(step.DependsOn) == 0 {
			logger.InfoTag("BOOT", "  %s (%s)", step.ID, step.Title)
			continue
		}
		logger.InfoTag("BOOT", "  %s (%s) <- %s", step.ID, step.Title, strings.Join(step.DependsOn, ", "))
	}
}

func executeInitSteps(ctx context.Context, steps []initStep, state *appState) error {
	if state == nil {
		return platformerrors.New(
			platformerrors.KindBootstrap,
			"execute init steps",
			"nil bootstrap state",
		)
	}

	completed := make(map[string]struct{}, len(steps))
	for _, step := range steps {
		for _, dep := range step.DependsOn {
			if _, ok := completed[dep]; !ok {
				return platformerrors.New(
					platformerrors.KindBootstrap,
					step.ID,
					fmt.Sprintf("dependency %s not satisfied", dep),
				)
			}
		}
		if step.Execute == nil {
			return platformerrors.New(
				platformerrors.KindBootstrap,
				step.ID,
				"missing execute function",
			)
		}
		if err := step.Execute(ctx, state); err != nil {
			var typed *platformerrors.Error
			if errors.As(err, &typed) {
				return err
			}

			kind := step.Kind
			if kind == "" {
				kind = platformerrors.KindBootstrap
			}
			return platformerrors.Wrap(kind, step.ID, "bootstrap step failed", err)
		}
		completed[step.ID] = struct{}{}
	}
	return nil
}

func InitGraph() []initStep {
	return []initStep{
		{
			ID:      "config:load",
			Title:   "Load configuration",
			Kind:    platformerrors.KindConfig,
			Execute: loadConfigStep,
		},
		{
			ID:        "logging:init-provider",
			Title:     "Initialise logging provider",
			DependsOn: []string{"config:load"},
			Execute:   initLoggingStep,
		},
		{
			ID:        "observability:setup-hooks",
			Title:     "Setup observability hooks",
			DependsOn: []string{"logging:init-provider"},
			Execute:   setupObservabilityStep,
		},
		{
			ID:        "storage:init-database",
			Title:     "Open database and migrate",
			DependsOn: []string{"logging:init-provider"},
			Kind:      platformerrors.KindStorage,
			Execute:   initDatabaseStep,
		},
		{
			ID:        "session:init-store",
			Title:     "Initialise conversation store",
			DependsOn: []string{"storage:init-database"},
			Kind:      platformerrors.KindStorage,
			Execute:   initSessionStep,
		},
		{
			ID:        "tools:init-catalogue",
			Title:     "Validate tool catalogue",
			DependsOn: []string{"logging:init-provider"},
			Execute:   initCatalogueStep,
		},
		{
			ID:        "social:init-service",
			Title:     "Initialise social post tools",
			DependsOn: []string{"storage:init-database"},
			Execute:   initSocialStep,
		},
		{
			ID:        "tools:init-dispatcher",
			Title:     "Initialise tool dispatcher",
			DependsOn: []string{"tools:init-catalogue", "social:init-service", "observability:setup-hooks"},
			Execute:   initDispatcherStep,
		},
		{
			ID:        "events:init-bus",
			Title:     "Initialise exchange event bus",
			DependsOn: []string{"storage:init-database"},
			Execute:   initEventBusStep,
		},
		{
			ID:        "provider:init-manager",
			Title:     "Initialise model provider",
			DependsOn: []string{"tools:init-catalogue", "observability:setup-hooks"},
			Kind:      platformerrors.KindProvider,
			Execute:   initProviderStep,
		},
		{
			ID:        "orchestrator:init",
			Title:     "Initialise exchange orchestrator",
			DependsOn: []string{"session:init-store", "tools:init-dispatcher", "events:init-bus", "provider:init-manager"},
			Execute:   initOrchestratorStep,
		},
	}
}

func loadConfigStep(_ context.Context, state *appState) error {
	result, err := platformconfig.NewLoader().
		WithDotEnv(!state.opts.SkipDotEnv).
		WithPath(state.opts.ConfigPath).
		Load()
	if err != nil {
		return err
	}
	state.config = result.Config
	state.configPath = result.Path
	if state.configPath == "" {
		state.configPath = "defaults"
	}
	return nil
}

func initLoggingStep(_ context.Context, state *appState) error {
	logger, err := platformlogging.New(platformlogging.Config{
		Level:    state.config.Log.Level,
		Dir:      state.config.Log.Dir,
		Filename: state.config.Log.File,
		Console:  state.config.Log.Console,
	})
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindBootstrap, "logging:init-provider", "failed to initialize logging provider", err)
	}
	state.logger = logger
	logger.InfoTag("BOOT", "logging ready [%s] config=%s", state.config.Log.Level, state.configPath)
	return nil
}

func setupObservabilityStep(ctx context.Context, state *appState) error {
	cfg := platformobservability.Config{
		Enabled:     state.config.Metrics.Enabled,
		MetricsPath: state.config.Metrics.Path,
	}
	metrics, shutdown, err := platformobservability.Setup(ctx, cfg, state.logger.Slog())
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindBootstrap, "observability:setup-hooks", "failed to setup observability hooks", err)
	}
	state.metrics = metrics
	state.observabilityShutdown = shutdown
	return nil
}

func initDatabaseStep(_ context.Context, state *appState) error {
	db, err := platformstorage.Open(state.config.Database.DSN)
	if err != nil {
		return err
	}
	state.db = db
	state.logger.InfoTag("STORAGE", "database ready at %s", state.config.Database.DSN)
	return nil
}

func initSessionStep(_ context.Context, state *appState) error {
	sc := state.config.Session
	storeCfg := sessionstore.Config{Driver: sc.Driver}
	if sc.Driver == sessionstore.DriverRedis {
		storeCfg.Redis = &sessionstore.RedisConfig{
			Addr:     sc.Redis.Addr,
			Username: sc.Redis.Username,
			Password: sc.Redis.Password,
			DB:       sc.Redis.DB,
			Prefix:   sc.Redis.Prefix,
		}
	}

	st, err := sessionstore.New(storeCfg, sessionstore.Dependencies{SQLiteDB: state.db})
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindStorage, "session:init-store", "failed to create session store", err)
	}
	state.session = session.New(st, sc.HistoryWindow, state.logger)
	state.logger.InfoTag("SESSION", "driver=%s window=%d", sc.Driver, state.session.Window())
	return nil
}

func initCatalogueStep(_ context.Context, state *appState) error {
	cat := catalogue.Default()
	if err := cat.Validate(); err != nil {
		return platformerrors.Wrap(platformerrors.KindConfig, "tools:init-catalogue", "tool catalogue is inconsistent", err)
	}
	state.catalogue = cat
	state.logger.InfoTag("TOOLS", "catalogue %s with %d tools", cat.Version(), len(cat.Tools()))
	return nil
}

func initSocialStep(_ context.Context, state *appState) error {
	posts := socialinfra.NewPostRepository(state.db)
	publisher := social.NewPublisher(posts, state.logger)

	content := social.UnavailableContentGenerator()
	images := social.UnavailableImageGenerator()
	if pc := state.config.Provider("openai"); pc.APIKey != "" {
		clientCfg := goopenai.DefaultConfig(pc.APIKey)
		if pc.BaseURL != "" {
			clientCfg.BaseURL = pc.BaseURL
		}
		client := goopenai.NewClientWithConfig(clientCfg)
		content = social.NewOpenAIContentGenerator(client, state.config.Tools.ContentModel)
		images = social.NewOpenAIImageGenerator(client, state.config.Tools.ImageModel, state.config.Tools.ImageSize)
	} else {
		state.logger.WarnTag("TOOLS", "no openai api key: content and image generation are unavailable")
	}

	state.socialService = social.NewService(posts, content, images, publisher, state.logger)
	if interval := state.config.Tools.PublishInterval; interval > 0 {
		state.scheduler = social.NewScheduler(posts, publisher, interval, state.logger)
	}
	return nil
}

func initDispatcherStep(_ context.Context, state *appState) error {
	d := dispatch.New(state.socialService.Handlers(), state.logger).WithObserver(state.metrics.RecordToolCall)
	if missing := d.Missing(state.catalogue.Names()); len(missing) > 0 {
		state.logger.WarnTag("TOOLS", "no handler for tools: %s", strings.Join(missing, ", "))
	}
	state.dispatcher = d
	return nil
}

func initEventBusStep(_ context.Context, state *appState) error {
	repo := eventinfra.NewEventRepository(state.db)
	bus := eventbus.New(state.config.Events.Workers, state.logger)
	if err := eventbus.Register(bus,
		eventbus.NewLoggingHandler(state.logger),
		eventbus.NewAuditHandler(repo, state.logger),
	); err != nil {
		bus.Shutdown()
		return platformerrors.Wrap(platformerrors.KindBootstrap, "events:init-bus", "failed to register event handlers", err)
	}
	state.bus = bus
	state.retention = eventbus.NewRetention(repo, state.config.Events.Retention, state.logger)
	return nil
}

// initProviderStep installs the configured backend. A backend that cannot be
// built leaves the service running without one; exchanges fail until an
// admin switches to a working provider.
func initProviderStep(ctx context.Context, state *appState) error {
	factory := providerfactory.New(state.config, state.catalogue, state.logger)
	state.providers = provider.NewManager(factory.Builder(), state.logger)

	if err := state.providers.Reconfigure(ctx, state.config.Agent.Provider); err != nil {
		state.logger.ErrorTag("LLM", "provider %s unavailable: %v", state.config.Agent.Provider, err)
	}
	return nil
}

func initOrchestratorStep(_ context.Context, state *appState) error {
	orch, err := orchestrator.New(orchestrator.Config{
		MaxHops: state.config.Agent.MaxHops,
		Timeout: state.config.Agent.ExchangeTimeout,
	}, orchestrator.Dependencies{
		Providers:  state.providers,
		Dispatcher: state.dispatcher,
		Session:    state.session,
		Bus:        state.bus,
		Metrics:    state.metrics,
		Logger:     state.logger,
	})
	if err != nil {
		return err
	}
	state.orchestrator = orch
	return nil
}

func startServices(state *appState, g *errgroup.Group, groupCtx context.Context) error {
	if _, err := startHTTPServer(state, g, groupCtx); err != nil {
		return fmt.Errorf("start http server: %w", err)
	}

	if state.scheduler != nil {
		g.Go(func() error {
			state.logger.InfoTag("TOOLS", "scheduled publishing every %s", state.config.Tools.PublishInterval)
			return state.scheduler.Run(groupCtx)
		})
	}
	if state.retention != nil {
		g.Go(func() error {
			return state.retention.Run(groupCtx)
		})
	}
	return nil
}

func buildRouter(state *appState, sessionCtx context.Context) (*httptransport.Router, *ws.Server, error) {
	router, err := httptransport.Build(httptransport.Options{
		Config:  state.config,
		Logger:  state.logger,
		Metrics: state.metrics,
	})
	if err != nil {
		return nil, nil, err
	}

	conversationService, err := httpconversation.NewService(state.orchestrator, state.session, state.logger)
	if err != nil {
		return nil, nil, err
	}
	conversationService.Register(router.Secured)

	hub := ws.NewHub(state.metrics)
	wsRouter := ws.NewRouter(hub, state.orchestrator, router.Identity, state.logger, ws.RouterOptions{BaseContext: sessionCtx})
	wsServer := ws.NewServer(ws.DefaultPath, wsRouter, hub)
	wsServer.Register(router.API)

	httpsystem.NewService(httpsystem.Options{
		Providers:   state.providers,
		Sessions:    wsServer,
		Metrics:     state.metrics,
		MetricsPath: state.config.Metrics.Path,
		Logger:      state.logger,
	}).Register(router.Engine, router.API, router.Secured, router.Identity)

	return router, wsServer, nil
}

func startHTTPServer(state *appState, g *errgroup.Group, groupCtx context.Context) (*http.Server, error) {
	router, wsServer, err := buildRouter(state, groupCtx)
	if err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindTransport, "http:build-router", "failed to build router", err)
	}

	cfg := state.config.Server
	addr := net.JoinHostPort(cfg.IP, strconv.Itoa(cfg.Port))
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           router.Engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindTransport, "http:listen", "failed to listen on "+addr, err)
	}

	logger := state.logger
	g.Go(func() error {
		logger.InfoTag("HTTP", "listening on http://%s", listener.Addr())

		go func() {
			<-groupCtx.Done()
			wsServer.Stop()

			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
			defer cancel()
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				logger.ErrorTag("HTTP", "shutdown failed: %v", err)
			} else {
				logger.InfoTag("HTTP", "server stopped")
			}
		}()

		if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.ErrorTag("HTTP", "server failed: %v", err)
			return err
		}
		return nil
	})

	return httpServer, nil
}

func waitForShutdown(
	ctx context.Context,
	cancel context.CancelFunc,
	logger *platformlogging.Logger,
	g *errgroup.Group,
	timeout time.Duration,
) error {
	<-ctx.Done()
	logger.InfoTag("BOOT", "shutting down: %v", context.Cause(ctx))

	cancel()

	done := make(chan error, 1)
	go func() {
		done <- g.Wait()
	}()

	select {
	case err := <-done:
		if err != nil {
			logger.ErrorTag("BOOT", "service stopped with error: %v", err)
			return err
		}
		logger.InfoTag("BOOT", "all services stopped")
	case <-time.After(timeout):
		logger.ErrorTag("BOOT", "shutdown timed out after %s", timeout)
		return platformerrors.New(platformerrors.KindBootstrap, "bootstrap.shutdown", "shutdown timed out")
	}
	return nil
}

// close releases everything the init steps acquired, in reverse order.
func (s *appState) close() {
	if s.providers != nil {
		if err := s.providers.Reset(); err != nil {
			s.logger.WarnTag("LLM", "closing provider: %v", err)
		}
	}
	if s.bus != nil {
		s.bus.Shutdown()
	}
	if s.session != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := s.session.Close(ctx); err != nil {
			s.logger.WarnTag("SESSION", "closing store: %v", err)
		}
		cancel()
	}
	if s.db != nil {
		if err := platformstorage.Close(s.db); err != nil {
			s.logger.WarnTag("STORAGE", "closing database: %v", err)
		}
	}
	if s.observabilityShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = s.observabilityShutdown(ctx)
		cancel()
	}
	if s.logger != nil {
		_ = s.logger.Close()
	}
}
