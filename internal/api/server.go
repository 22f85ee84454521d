//nolint:revive // Package name 'api' is intentionally generic for the HTTP API layer
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/CAFxX/httpcompression"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/ygggate/ygggate/internal/api/handlers"
	apimw "github.com/ygggate/ygggate/internal/api/middleware"
	"github.com/ygggate/ygggate/internal/api/ratelimit"
	"github.com/ygggate/ygggate/internal/gateway"
	"github.com/ygggate/ygggate/internal/indexer/grab"
	"github.com/ygggate/ygggate/internal/indexer/session"
	"github.com/ygggate/ygggate/internal/indexer/types"
	"github.com/ygggate/ygggate/internal/scheduler"
)

// Engine is what the API needs from the gateway.
type Engine interface {
	Search(ctx context.Context, cookie string, req gateway.SearchRequest) ([]types.Torrent, error)
	Download(ctx context.Context, cookie string, id int64) (*grab.File, error)
	Remaining(ctx context.Context, cookie string) (int, error)
	Account(ctx context.Context, cookie string) (*types.Account, error)
	Categories() []types.Category
	Authenticate(ctx context.Context, creds session.Credentials) (string, error)
	CookieHeader(cookie string) (string, bool)
	Status() gateway.Status
}

// TaskLister lists background jobs for the status endpoint.
type TaskLister interface {
	ListTasks() []scheduler.TaskInfo
}

// Server handles HTTP requests for the gateway API.
type Server struct {
	echo        *echo.Echo
	engine      Engine
	tasks       TaskLister
	scheduler   *scheduler.Scheduler
	logs        LogsProvider
	authLimiter *ratelimit.AuthLimiter
	started     time.Time
	logger      zerolog.Logger
}

// Options are the optional collaborators of a Server.
type Options struct {
	Scheduler *scheduler.Scheduler
	Logs      LogsProvider
}

// NewServer creates a new API server instance.
func NewServer(engine Engine, opts Options, logger zerolog.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:        e,
		engine:      engine,
		scheduler:   opts.Scheduler,
		logs:        opts.Logs,
		authLimiter: ratelimit.NewAuthLimiter(),
		started:     time.Now(),
		logger:      logger.With().Str("component", "api").Logger(),
	}
	if opts.Scheduler != nil {
		s.tasks = opts.Scheduler
	}

	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.echo.Use(middleware.Recover())
	s.echo.Use(middleware.RequestID())
	s.echo.Use(apimw.SecurityHeaders())

	s.echo.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogMethod:   true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			// Query strings may carry cookies and passwords.
			event := s.logger.Info()
			if v.Error != nil {
				event = s.logger.Error().Err(v.Error)
			}
			event.
				Str("method", v.Method).
				Str("path", c.Request().URL.Path).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Msg("request")
			return nil
		},
	}))

	compressor, err := httpcompression.DefaultAdapter(
		httpcompression.MinSize(1024),
		httpcompression.GzipCompressionLevel(2),
		httpcompression.Prefer(httpcompression.PreferServer),
	)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to create HTTP compression adapter")
		return
	}
	s.echo.Use(echo.WrapMiddleware(compressor))
}

func (s *Server) setupRoutes() {
	s.echo.GET("/health", s.healthCheck)
	s.echo.GET("/status", s.getStatus)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	s.echo.GET("/search", s.search)
	s.echo.GET("/torrent/:id", s.downloadTorrent)
	s.echo.GET("/categories", s.listCategories)
	s.echo.GET("/user", s.getAccount)
	s.echo.GET("/remain", s.getRemaining)
	s.echo.GET("/auth", s.authenticate, s.authLimiter.Middleware())

	if s.logs != nil {
		NewLogsHandlers(s.logs).RegisterRoutes(s.echo.Group("/logs"))
	}
	if s.scheduler != nil {
		h := handlers.NewSchedulerHandler(s.scheduler)
		tasks := s.echo.Group("/tasks")
		tasks.GET("", h.ListTasks)
		tasks.POST("/:id/run", h.RunTask)
	}
}

// ServeHTTP lets the server be used as an http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start(address string) error {
	s.logger.Info().Str("address", address).Msg("Starting HTTP server")
	s.authLimiter.StartCleanup(10 * time.Minute)
	return s.echo.Start(address)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("Shutting down HTTP server")
	return s.echo.Shutdown(ctx)
}
