// Package api exposes the indexed sessions over HTTP. It is a read-only
// query surface; the only write path is triggering an indexing run.
package api

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/pkerr/ai-session-index/internal/index"
	"github.com/pkerr/ai-session-index/internal/store"
)

// Server serves the session query API.
type Server struct {
	echo    *echo.Echo
	store   *store.Store
	indexer *index.Indexer
	logger  *zap.Logger
}

// NewServer wires the routes over the given store and indexer.
func NewServer(st *store.Store, ix *index.Indexer, logger *zap.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			logger.Info("http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", time.Since(start)),
			)
			return err
		}
	})

	s := &Server{echo: e, store: st, indexer: ix, logger: logger}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)

	api := s.echo.Group("/api")
	api.GET("/sessions", s.handleListSessions)
	api.GET("/sessions/:id", s.handleGetSession)
	api.GET("/sessions/:id/messages", s.handleSessionMessages)
	api.GET("/sessions/:id/files", s.handleSessionFiles)
	api.GET("/sessions/:id/subagents", s.handleSessionSubagents)
	api.GET("/sessions/:id/subagents/:agentID/messages", s.handleSubagentMessages)
	api.GET("/projects", s.handleProjects)
	api.POST("/index/refresh", s.handleIndexRefresh)
	api.GET("/index/status", s.handleIndexStatus)
}

// Start blocks serving HTTP on addr.
func (s *Server) Start(addr string) error {
	return s.echo.Start(addr)
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
