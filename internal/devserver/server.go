// Package devserver serves the project directory over HTTP and tells connected
// browsers to reload after each successful rebuild.
package devserver

import (
	"context"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/fluxbase-eu/jsbundle/cli/bundler"
	"github.com/fluxbase-eu/jsbundle/internal/observability"
)

const (
	liveReloadPath       = "/__livereload"
	liveReloadScriptPath = "/__livereload.js"
)

// liveReloadScript connects to the reload socket and reloads the page on "reload"
const liveReloadScript = `(function () {
  var proto = location.protocol === 'https:' ? 'wss://' : 'ws://';
  var ws = new WebSocket(proto + location.host + '` + liveReloadPath + `');
  ws.onmessage = function (e) {
    if (e.data === '` + ReloadMessage + `') {
      location.reload();
    }
  };
})();
`

// Builder produces the bundle. *bundler.Bundler satisfies it.
type Builder interface {
	Build(ctx context.Context, manifest []string) (*bundler.Result, error)
}

// Config holds dev server settings
type Config struct {
	Root       string
	Address    string
	LiveReload bool
	Metrics    bool
}

// Server is the development HTTP server
type Server struct {
	app      *fiber.App
	config   Config
	builder  Builder
	manifest []string
	metrics  *observability.Metrics
	hub      *Hub
	logger   zerolog.Logger

	mu        sync.Mutex
	lastBuild *bundler.Result
	lastErr   error
	builtAt   time.Time
}

// Option configures a Server
type Option func(*Server)

// WithMetrics sets the metrics the server records into
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithLogger sets the server logger
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a dev server that rebuilds manifest with builder
func NewServer(cfg Config, builder Builder, manifest []string, opts ...Option) *Server {
	s := &Server{
		config:   cfg,
		builder:  builder,
		manifest: manifest,
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = observability.NewMetrics(nil)
	}
	s.hub = NewHub(s.metrics, s.logger)

	s.app = fiber.New(fiber.Config{
		ServerHeader:          "jsbundle",
		AppName:               "jsbundle dev server",
		DisableStartupMessage: true,
	})
	s.setupRoutes()

	return s
}

func (s *Server) setupRoutes() {
	if s.config.Metrics {
		s.app.Use(s.metrics.MetricsMiddleware())
		s.app.Get("/metrics", s.metrics.Handler())
	}

	s.app.Get("/healthz", s.handleHealth)

	if s.config.LiveReload {
		s.app.Get(liveReloadScriptPath, s.handleLiveReloadScript)
		s.app.Get(liveReloadPath, s.handleLiveReload)
	}

	root := s.config.Root
	if root == "" {
		root = "."
	}
	s.app.Static("/", root, fiber.Static{
		CacheDuration: -1,
		MaxAge:        0,
	})
}

// Rebuild runs one build and notifies live reload clients when it succeeds.
// Concurrent calls are serialised.
func (s *Server) Rebuild(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	result, err := s.builder.Build(ctx, s.manifest)
	s.metrics.RecordBuild(result, time.Since(start), err)

	s.lastErr = err
	s.builtAt = time.Now()
	if err != nil {
		return err
	}
	s.lastBuild = result

	if s.config.LiveReload {
		n := s.hub.Broadcast(ReloadMessage)
		s.logger.Debug().Int("clients", n).Msg("Sent reload")
	}
	return nil
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.builtAt.IsZero() {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status": "starting",
		})
	}

	if s.lastErr != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status":     "error",
			"error":      s.lastErr.Error(),
			"last_build": s.builtAt,
		})
	}

	resp := fiber.Map{
		"status":     "ok",
		"last_build": s.builtAt,
		"clients":    s.hub.Count(),
	}
	if s.lastBuild != nil {
		resp["output"] = s.lastBuild.Output
		resp["bytes"] = s.lastBuild.TotalBytes
		resp["files"] = s.lastBuild.Bundled()
		resp["missing"] = s.lastBuild.Missing()
	}
	return c.JSON(resp)
}

func (s *Server) handleLiveReloadScript(c *fiber.Ctx) error {
	c.Set(fiber.HeaderContentType, "application/javascript; charset=utf-8")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	return c.SendString(liveReloadScript)
}

func (s *Server) handleLiveReload(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	return websocket.New(s.serveClient)(c)
}

func (s *Server) serveClient(c *websocket.Conn) {
	connectionID := uuid.New().String()

	s.hub.Add(connectionID, c)
	defer s.hub.Remove(connectionID)

	// Browsers never send anything; reading detects the close.
	for {
		if _, _, err := c.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Debug().Err(err).Str("connection_id", connectionID).Msg("Live reload socket error")
			}
			return
		}
	}
}

// Hub returns the live reload hub
func (s *Server) Hub() *Hub {
	return s.hub
}

// App returns the underlying Fiber app instance for testing
func (s *Server) App() *fiber.App {
	return s.app
}

// Start listens on the configured address and blocks until shutdown
func (s *Server) Start() error {
	s.logger.Info().Str("address", s.config.Address).Str("root", s.config.Root).Msg("Dev server listening")
	return s.app.Listen(s.config.Address)
}

// Shutdown closes live reload connections and stops the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.CloseAll()
	s.logger.Info().Msg("Shutting down dev server")
	return s.app.ShutdownWithContext(ctx)
}
