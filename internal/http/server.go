// Package http provides the HTTP API for ragd.
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/ragd/internal/kb"
	"github.com/fyrsmithlabs/ragd/internal/rag"
	"github.com/fyrsmithlabs/ragd/internal/vectorstore"
	"github.com/fyrsmithlabs/ragd/internal/verify"
)

const serviceName = "ragd"

// KnowledgeBase is the service surface the HTTP handlers call.
// *kb.Service implements it.
type KnowledgeBase interface {
	Ingest(ctx context.Context, disease, filename string, data []byte) (*kb.IngestResult, error)
	Query(ctx context.Context, disease, question string, opts verify.Options) (*verify.Result, error)
	QuerySimple(ctx context.Context, disease, question string) (*rag.GenerationResult, error)
	Documents(ctx context.Context, disease string) ([]vectorstore.DocumentInfo, error)
	DeleteDocument(ctx context.Context, disease, documentID string) (bool, error)
	Collections(ctx context.Context) ([]vectorstore.CollectionInfo, error)
	CreateCollection(ctx context.Context, disease string) error
	DeleteCollection(ctx context.Context, disease string) (bool, error)
}

// Server provides HTTP endpoints for ragd.
type Server struct {
	echo   *echo.Echo
	kb     KnowledgeBase
	logger *zap.Logger
	config *Config
}

// Config holds HTTP server configuration.
type Config struct {
	Host            string
	Port            int
	ShutdownTimeout time.Duration
	Version         string
}

// NewServer creates a new HTTP server.
func NewServer(kbSvc KnowledgeBase, logger *zap.Logger, cfg *Config) (*Server, error) {
	if kbSvc == nil {
		return nil, fmt.Errorf("knowledge base service cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = &Config{
			Host:            "0.0.0.0",
			Port:            8000,
			ShutdownTimeout: 10 * time.Second,
		}
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Middleware
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			duration := time.Since(start)

			logger.Info("http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", duration),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)

			return err
		}
	})
	e.Use(NewHTTPMetrics(logger).MetricsMiddleware())

	s := &Server{
		echo:   e,
		kb:     kbSvc,
		logger: logger,
		config: cfg,
	}

	e.HTTPErrorHandler = s.handleError

	// Register routes
	s.registerRoutes()

	return s, nil
}

// registerRoutes sets up the HTTP endpoints.
func (s *Server) registerRoutes() {
	// Health check
	s.echo.GET("/health", s.handleHealth)

	// API v1 routes
	v1 := s.echo.Group("/api/v1")
	v1.GET("/diseases", s.handleListDiseases)
	v1.POST("/diseases", s.handleCreateDisease)
	v1.DELETE("/diseases/:disease", s.handleDeleteDisease)
	v1.GET("/diseases/:disease/documents", s.handleListDocuments)
	v1.POST("/diseases/:disease/documents", s.handleUploadDocument)
	v1.DELETE("/diseases/:disease/documents/:id", s.handleDeleteDocument)
	v1.POST("/query", s.handleQuery)
}

// handleError renders every error as an {error} JSON body. Non-HTTP errors
// are logged and reported as a generic 500 so internals don't leak.
func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	msg := "internal server error"

	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		msg = fmt.Sprintf("%v", he.Message)
	} else {
		s.logger.Error("unhandled request error",
			zap.String("uri", c.Request().RequestURI),
			zap.Error(err))
	}

	if err := c.JSON(code, ErrorResponse{Error: msg}); err != nil {
		s.logger.Error("failed to write error response", zap.Error(err))
	}
}

// Start starts the HTTP server and blocks until the context is cancelled.
//
// When the context is cancelled the server shuts down gracefully within
// the configured timeout. Returns http.ErrServerClosed on graceful
// shutdown, any other error on startup or shutdown failure.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info("starting http server", zap.String("addr", addr))

	errCh := make(chan error, 1)
	go func() {
		if err := s.echo.Start(addr); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("server start: %w", err)
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
		defer cancel()

		if err := s.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}

		return http.ErrServerClosed
	}
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.echo.Shutdown(ctx)
}

// Echo returns the underlying Echo instance for registering additional
// routes, such as the Prometheus metrics handler.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}
