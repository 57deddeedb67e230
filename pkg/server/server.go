package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"github.com/Ramsey-B/thistle/pkg/middleware"
	"github.com/Ramsey-B/thistle/pkg/routes/account"
	"github.com/Ramsey-B/thistle/pkg/routes/contact"
	"github.com/Ramsey-B/thistle/pkg/routes/health"
)

type Config struct {
	ServiceName       string
	Port              int
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	ReadHeaderTimeout time.Duration
	MaxHeaderBytes    int
	AllowOrigins      []string
	AllowMethods      []string
}

// Routes are the handlers mounted by the server
type Routes struct {
	Accounts *account.Handler
	Contacts *contact.Handler
	Health   *health.Checker
}

// Server owns the echo router and the http.Server it is served from
type Server struct {
	echo       *echo.Echo
	httpServer *http.Server
	logger     ectologger.Logger
}

// NewRouter builds the echo router with the request middleware chain
func NewRouter(cfg Config, routes Routes, logger ectologger.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = middleware.Error(logger)

	e.Use(echomw.Recover())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.AllowOrigins,
		AllowMethods: cfg.AllowMethods,
	}))
	e.Use(otelecho.Middleware(cfg.ServiceName))
	e.Use(middleware.Context())
	e.Use(middleware.Logger(logger))

	if routes.Health != nil {
		routes.Health.RegisterRoutes(e)
	}

	v1 := e.Group("/v1")
	if routes.Accounts != nil {
		routes.Accounts.Register(v1.Group("/accounts"))
	}
	if routes.Contacts != nil {
		routes.Contacts.Register(v1.Group("/contacts"))
	}

	return e
}

func New(cfg Config, routes Routes, logger ectologger.Logger) *Server {
	e := NewRouter(cfg, routes, logger)
	return &Server{
		echo:   e,
		logger: logger,
		httpServer: &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Port),
			Handler:           e,
			ReadTimeout:       cfg.ReadTimeout,
			WriteTimeout:      cfg.WriteTimeout,
			IdleTimeout:       cfg.IdleTimeout,
			ReadHeaderTimeout: cfg.ReadHeaderTimeout,
			MaxHeaderBytes:    cfg.MaxHeaderBytes,
		},
	}
}

// Handler exposes the router for in-process callers
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start serves until Shutdown is called. It never returns http.ErrServerClosed.
func (s *Server) Start() error {
	s.logger.WithField("addr", s.httpServer.Addr).Info("Starting http server")
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests until ctx is done
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down http server")
	return s.httpServer.Shutdown(ctx)
}
