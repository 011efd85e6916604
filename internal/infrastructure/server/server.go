// Package server wires the proxy, the panel host and the control API into
// one process.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	apihttp "github.com/GriffinCanCode/webview-iframe/internal/api/http"
	"github.com/GriffinCanCode/webview-iframe/internal/api/middleware"
	"github.com/GriffinCanCode/webview-iframe/internal/domain/commands"
	"github.com/GriffinCanCode/webview-iframe/internal/domain/panel"
	"github.com/GriffinCanCode/webview-iframe/internal/domain/project"
	"github.com/GriffinCanCode/webview-iframe/internal/host"
	"github.com/GriffinCanCode/webview-iframe/internal/host/desktop"
	"github.com/GriffinCanCode/webview-iframe/internal/infrastructure/config"
	"github.com/GriffinCanCode/webview-iframe/internal/infrastructure/logging"
	"github.com/GriffinCanCode/webview-iframe/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/webview-iframe/internal/providers/archive"
	"github.com/GriffinCanCode/webview-iframe/internal/providers/download"
	"github.com/GriffinCanCode/webview-iframe/internal/proxy"
	"github.com/GriffinCanCode/webview-iframe/internal/shared/tasks"
)

const shutdownTimeout = 5 * time.Second

// Option overrides a collaborator, mainly for tests.
type Option func(*options)

type options struct {
	logger    *logging.Logger
	picker    host.FolderPicker
	commander host.Commander
	notifier  host.Notifier
	opener    func(url string) error
}

// WithLogger replaces the configured logger.
func WithLogger(l *logging.Logger) Option { return func(o *options) { o.logger = l } }

// WithPicker replaces the folder picker.
func WithPicker(p host.FolderPicker) Option { return func(o *options) { o.picker = p } }

// WithCommander replaces the editor launcher.
func WithCommander(c host.Commander) Option { return func(o *options) { o.commander = c } }

// WithNotifier replaces the console notifier.
func WithNotifier(n host.Notifier) Option { return func(o *options) { o.notifier = n } }

// WithBrowserOpener replaces the browser launcher.
func WithBrowserOpener(fn func(url string) error) Option { return func(o *options) { o.opener = fn } }

// Server wraps the proxy and control servers and their dependencies.
type Server struct {
	config     *config.Config
	logger     *logging.Logger
	metrics    *monitoring.Metrics
	binding    *proxy.Binding
	runner     *tasks.Runner
	controller *panel.Controller
	commands   *commands.Registry
	controlURL string

	proxyListener   net.Listener
	controlListener net.Listener
	proxyServer     *http.Server
	controlServer   *http.Server

	disposables []host.Disposable
}

// NewServer binds both listeners and builds every component.
func NewServer(cfg *config.Config, opts ...Option) (*Server, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	logger := o.logger
	if logger == nil {
		logCfg := logging.DefaultConfig()
		logCfg.Level = cfg.Logging.Level
		logCfg.Development = cfg.Logging.Development
		l, err := logging.New(logCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create logger: %w", err)
		}
		logger = l
	}

	logger.Info("Initializing webview iframe bridge",
		zap.String("upstream", cfg.Proxy.Upstream),
		zap.String("trigger", cfg.Proxy.TriggerPattern),
		zap.String("trigger_mode", cfg.Proxy.TriggerMode),
	)

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}

	metrics := monitoring.NewMetrics()

	// The proxy port must be known before the first panel renders.
	binding := &proxy.Binding{}
	proxyListener, err := binding.Listen(cfg.Proxy.Host)
	if err != nil {
		return nil, err
	}
	logger.Info("Proxy bound", zap.Int("port", binding.Port()))

	controlListener, err := net.Listen("tcp", net.JoinHostPort(cfg.Host.ControlHost, strconv.Itoa(cfg.Host.ControlPort)))
	if err != nil {
		proxyListener.Close()
		return nil, fmt.Errorf("failed to bind control listener: %w", err)
	}
	controlURL := "http://" + controlListener.Addr().String()

	s := &Server{
		config:          cfg,
		logger:          logger,
		metrics:         metrics,
		binding:         binding,
		controlURL:      controlURL,
		proxyListener:   proxyListener,
		controlListener: controlListener,
	}
	if err := s.build(o); err != nil {
		proxyListener.Close()
		controlListener.Close()
		return nil, err
	}

	logger.Info("Server initialized successfully",
		zap.String("proxy_url", fmt.Sprintf("http://localhost:%d/", binding.Port())),
		zap.String("control_url", controlURL),
	)
	return s, nil
}

func (s *Server) build(o options) error {
	cfg := s.config

	opener := o.opener
	if opener == nil {
		opener = desktop.BrowserOpener(cfg.Host.BrowserCommand)
	}
	window := desktop.New(desktop.Options{
		BaseURL:         s.controlURL,
		MediaDir:        cfg.Panel.MediaDir,
		DisconnectGrace: cfg.Host.DisconnectGrace,
		OpenBrowser:     cfg.Host.OpenBrowser,
		Opener:          opener,
	}, s.logger)

	s.controller = panel.NewController(window, s.binding, panel.Options{
		ViewType: cfg.Panel.ViewType,
		Title:    cfg.Panel.Title,
		MediaDir: cfg.Panel.MediaDir,
		Upstream: cfg.Proxy.Upstream,
	}, s.logger, s.metrics)
	window.SetReviver(s.controller.Revive)

	picker := o.picker
	if picker == nil {
		if cfg.Host.ExtractDir != "" {
			picker = desktop.StaticPicker{Dir: cfg.Host.ExtractDir}
		} else {
			picker = desktop.NewTerminalPicker()
		}
	}
	commander := o.commander
	if commander == nil {
		commander = desktop.NewEditorCommander(cfg.Host.EditorCommand, cfg.Host.NewWindowFlag, s.logger)
	}
	notifier := o.notifier
	if notifier == nil {
		notifier = desktop.NewConsoleNotifier(nil, s.logger)
	}

	importer := project.NewImporter(
		s.controller,
		picker,
		download.NewClient(download.Config{
			Timeout:    cfg.Download.Timeout,
			RetryCount: cfg.Download.RetryCount,
			UserAgent:  cfg.Download.UserAgent,
		}, s.logger),
		archive.NewExtractor(s.logger),
		commander,
		notifier,
		project.Options{
			Upstream:       cfg.Proxy.Upstream,
			Marker:         cfg.Proxy.ProjectMarker,
			SuppressErrors: cfg.Download.SuppressErrors,
		},
		s.logger,
		s.metrics,
	)

	s.runner = tasks.NewRunner(context.Background(), cfg.Download.MaxConcurrent, s.logger)

	trigger, err := proxy.NewTrigger(cfg.Proxy.TriggerPattern, proxy.MatchMode(cfg.Proxy.TriggerMode))
	if err != nil {
		return err
	}
	p, err := proxy.New(proxy.Config{
		Upstream:        cfg.Proxy.Upstream,
		Trigger:         trigger,
		StripHeaders:    cfg.Proxy.StripHeaders,
		FollowRedirects: cfg.Proxy.FollowRedirects,
	}, importer, s.runner, s.logger, s.metrics)
	if err != nil {
		return err
	}

	s.commands = commands.NewRegistry(s.logger)
	startCmd, err := s.commands.Register(commands.Start, func(ctx context.Context) error {
		return s.controller.CreateOrShow()
	})
	if err != nil {
		return err
	}
	s.disposables = append(s.disposables, startCmd)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.AccessLog(s.logger))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	window.RegisterRoutes(router)

	api := router.Group("/")
	if cfg.RateLimit.Enabled {
		s.logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		api.Use(middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		}))
	}
	apihttp.NewHandlers(s.commands, s.controller, s.binding, s.metrics, s.logger).Register(api)

	s.proxyServer = &http.Server{Handler: p.Handler(), ReadHeaderTimeout: 10 * time.Second}
	s.controlServer = &http.Server{Handler: router, ReadHeaderTimeout: 10 * time.Second}
	return nil
}

// ProxyPort returns the bound proxy port.
func (s *Server) ProxyPort() int { return s.binding.Port() }

// ControlURL returns the control server origin.
func (s *Server) ControlURL() string { return s.controlURL }

// Controller returns the panel controller.
func (s *Server) Controller() *panel.Controller { return s.controller }

// Commands returns the command registry.
func (s *Server) Commands() *commands.Registry { return s.commands }

// Run serves until ctx is cancelled or a server fails.
func (s *Server) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return serve(s.proxyServer, s.proxyListener) })
	g.Go(func() error { return serve(s.controlServer, s.controlListener) })

	if s.config.Panel.AutoStart {
		if err := s.commands.Execute(ctx, commands.Start); err != nil {
			s.logger.Warn("Failed to open panel on startup", zap.Error(err))
		}
	}
	s.logger.Info("Bridge running",
		zap.Int("proxy_port", s.ProxyPort()),
		zap.String("control_url", s.controlURL),
	)

	g.Go(func() error {
		<-ctx.Done()
		return s.shutdown()
	})

	if err := g.Wait(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func serve(srv *http.Server, ln net.Listener) error {
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var errs []error
	if err := s.controlServer.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("control server: %w", err))
	}
	if err := s.proxyServer.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("proxy server: %w", err))
	}
	return errors.Join(errs...)
}

// Close hides the panel, stops background imports and flushes the logger.
func (s *Server) Close() error {
	s.logger.Info("Shutting down server...")

	s.controller.Hide()
	for i := len(s.disposables) - 1; i >= 0; i-- {
		s.disposables[i].Dispose()
	}
	s.disposables = nil

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var errs []error
	if err := s.runner.Close(ctx); err != nil {
		errs = append(errs, err)
	}
	// No-ops when Run already shut them down.
	if err := s.controlServer.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := s.proxyServer.Close(); err != nil {
		errs = append(errs, err)
	}
	// Listeners are not tracked by a server that never ran.
	_ = s.controlListener.Close()
	_ = s.proxyListener.Close()

	_ = s.logger.Sync()
	return errors.Join(errs...)
}
