// Package server hosts the login endpoints, the GitLab webhook receiver and a
// token-protected JSON API on a gin router.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/sessions"
	"github.com/meysam81/go-bus/audit"
	"github.com/meysam81/go-bus/gitlab"
	"github.com/meysam81/go-bus/internal/config"
	"github.com/meysam81/go-bus/middleware"
	"go.uber.org/zap"
)

// Deps are the services the server exposes. A nil service disables its routes.
type Deps struct {
	Login    *audit.ClientWrapper
	Sessions sessions.Store
	Hooks    *gitlab.WebHookManager
	GitLab   *gitlab.Client
	Logger   *zap.Logger
}

type Server struct {
	config config.ServerConfig
	deps   Deps
	router *gin.Engine
	logger *zap.Logger
}

// New builds the router. Login routes require a session store; the /api/v1
// group is only mounted when an API token is configured.
func New(cfg config.ServerConfig, deps Deps) (*Server, error) {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	gin.SetMode(gin.ReleaseMode)
	if logger.Core().Enabled(zap.DebugLevel) {
		gin.SetMode(gin.DebugMode)
	}
	router := gin.New()
	router.UseRawPath = true
	router.UnescapePathValues = true
	router.Use(requestLogger(logger), gin.Recovery(), auditSource())

	s := &Server{
		config: cfg,
		deps:   deps,
		router: router,
		logger: logger.Named("server"),
	}
	if err := s.setupRoutes(); err != nil {
		return nil, err
	}
	return s, nil
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRoutes() error {
	s.router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if s.deps.Login != nil {
		if s.deps.Sessions == nil {
			return errors.New("session store is required for login routes")
		}
		login, err := middleware.NewLoginHandler(middleware.LoginConfig{
			Flow:        s.deps.Login,
			Store:       s.deps.Sessions,
			SessionName: s.config.SessionName,
		})
		if err != nil {
			return err
		}
		s.router.Any("/auth/*path", gin.WrapH(http.StripPrefix("/auth", login.Routes())))
	}

	if s.deps.Hooks != nil {
		s.router.POST("/hooks/gitlab", gin.WrapH(s.deps.Hooks))
	}

	token := s.config.APIToken.Value()
	if token == "" {
		s.logger.Warn("server.api_token is empty, /api/v1 is disabled")
		return nil
	}
	v1 := s.router.Group("/api/v1")
	v1.Use(wrap(middleware.RequireToken(token, nil, nil)))
	s.apiRoutes(v1)
	return nil
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.config.Addr(),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting http server", zap.String("address", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("failed to start http server: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("shutting down http server")
	timeout := s.config.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("error during http server shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	s.logger.Info("http server stopped")
	return nil
}

// wrap adapts net/http middleware to gin. The chain continues only when the
// middleware calls the next handler.
func wrap(mw func(http.Handler) http.Handler) gin.HandlerFunc {
	return func(c *gin.Context) {
		passed := false
		mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			passed = true
			c.Request = r
		})).ServeHTTP(c.Writer, c.Request)
		if !passed {
			c.Abort()
			return
		}
		c.Next()
	}
}

// auditSource records the caller in the request context for audit events.
func auditSource() gin.HandlerFunc {
	return func(c *gin.Context) {
		src := &audit.Source{
			IPAddress: c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
			RequestID: c.GetHeader("X-Request-ID"),
		}
		c.Request = c.Request.WithContext(audit.WithSource(c.Request.Context(), src))
		c.Next()
	}
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	logger = logger.Named("http")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			logger.Warn("request", fields...)
			return
		}
		logger.Debug("request", fields...)
	}
}
