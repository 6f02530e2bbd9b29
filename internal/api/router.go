// Package api exposes the narration route, play sessions and their snapshot
// feed over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/cory-johannsen/questweaver/internal/game/session"
	"github.com/cory-johannsen/questweaver/internal/narrator"
)

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error

// Options tunes the router.
type Options struct {
	// NarrationTimeout bounds each request that calls the narrator; zero
	// leaves only the client's own deadline.
	NarrationTimeout time.Duration
	// Health is consulted by GET /health; nil always reports healthy.
	Health HealthCheck
}

// Router owns the gin engine and its handlers.
type Router struct {
	engine   *gin.Engine
	sessions *session.Manager
	narrator narrator.Narrator
	opts     Options
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewRouter builds the engine with every route registered.
//
// n serves the stateless POST /api/game route.
//
// Precondition: sessions, n and logger must be non-nil.
func NewRouter(sessions *session.Manager, n *narrator.Resilient, opts Options, logger *zap.Logger) *Router {
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(requestLogger(logger))

	r := &Router{
		engine:   engine,
		sessions: sessions,
		narrator: n,
		opts:     opts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		logger: logger,
	}
	r.setupRoutes()
	return r
}

// Handler returns the http.Handler serving all routes.
func (r *Router) Handler() http.Handler {
	return r.engine
}

func (r *Router) setupRoutes() {
	r.engine.GET("/health", r.healthCheck)

	api := r.engine.Group("/api")
	{
		api.POST("/game", r.narrate)

		sessions := api.Group("/sessions")
		{
			sessions.GET("", r.listSessions)
			sessions.POST("", r.createSession)
			sessions.POST("/:id", r.openSession)
			sessions.GET("/:id", r.getSession)
			sessions.DELETE("/:id", r.closeSession)
			sessions.POST("/:id/actions", r.playerAction)
			sessions.POST("/:id/say", r.say)
			sessions.POST("/:id/rolls", r.roll)
			sessions.POST("/:id/reset", r.reset)
			sessions.GET("/:id/stream", r.stream)
		}
	}
}

func (r *Router) healthCheck(c *gin.Context) {
	if r.opts.Health != nil {
		if err := r.opts.Health(c.Request.Context()); err != nil {
			r.logger.Warn("health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "sessions": r.sessions.SessionCount()})
}

// narrationContext applies NarrationTimeout to the request context.
func (r *Router) narrationContext(c *gin.Context) (context.Context, context.CancelFunc) {
	if r.opts.NarrationTimeout <= 0 {
		return context.WithCancel(c.Request.Context())
	}
	return context.WithTimeout(c.Request.Context(), r.opts.NarrationTimeout)
}

// requestLogger logs one line per request.
func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if id := c.Param("id"); id != "" {
			fields = append(fields, zap.String("session", id))
		}
		switch status := c.Writer.Status(); {
		case status >= http.StatusInternalServerError:
			logger.Error("request", fields...)
		case status >= http.StatusBadRequest:
			logger.Info("request", fields...)
		default:
			logger.Debug("request", fields...)
		}
	}
}
