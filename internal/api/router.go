package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/wfunc/remi-scorer/internal/database"
	"github.com/wfunc/remi-scorer/internal/logger"
	"github.com/wfunc/remi-scorer/internal/middleware"
	"github.com/wfunc/remi-scorer/internal/service"
	ws "github.com/wfunc/remi-scorer/internal/websocket"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Router HTTP routing over the service layer
type Router struct {
	engine         *gin.Engine
	db             *gorm.DB
	services       *service.Services
	seriesHandler  *SeriesHandler
	sessionHandler *SessionHandler
	wsHandler      *WebSocketHandler
	log            *zap.Logger
}

// NewRouter wires handlers and routes over the given database and hub
func NewRouter(db *gorm.DB, hub *ws.Hub, log *zap.Logger) *Router {
	engine := gin.New()

	engine.Use(gin.Recovery())
	engine.Use(requestLogger())
	engine.Use(middleware.DeviceID())

	services := service.NewServices(db, hub)

	router := &Router{
		engine:         engine,
		db:             db,
		services:       services,
		seriesHandler:  NewSeriesHandler(services.Series, services.Session),
		sessionHandler: NewSessionHandler(services.Session, services.Score),
		wsHandler:      NewWebSocketHandler(hub, log),
		log:            log,
	}

	router.setupRoutes()

	return router
}

// setupRoutes registers every route
func (r *Router) setupRoutes() {
	r.engine.GET("/", r.root)
	r.engine.GET("/health", r.healthCheck)

	api := r.engine.Group("/api")
	{
		series := api.Group("/series")
		{
			series.POST("/create", r.seriesHandler.Create)
			series.POST("/login-with-role", r.seriesHandler.Login)
			series.GET("", r.seriesHandler.List)
			// static segment registered before the :seriesId wildcard
			series.GET("/recent-series", r.seriesHandler.ListRecent)
			series.GET("/:seriesId", r.seriesHandler.Get)
			series.GET("/:seriesId/exists", r.seriesHandler.Exists)
			series.GET("/:seriesId/sessions", r.seriesHandler.ListSessions)
			series.POST("/:seriesId/sessions", r.seriesHandler.CreateSession)
			series.PUT("/:seriesId/sessions/:sessionId", r.seriesHandler.UpdateSession)
		}

		sessions := api.Group("/sessions")
		{
			sessions.GET("", r.sessionHandler.List)
			sessions.GET("/:sessionId", r.sessionHandler.Get)
			sessions.POST("/:sessionId/scores", r.sessionHandler.AddScore)
			sessions.PUT("/:sessionId/scores/last", r.sessionHandler.EditLastScore)
			sessions.POST("/:sessionId/end", r.sessionHandler.End)
		}
	}

	r.engine.GET("/ws", r.wsHandler.Serve)
	r.engine.GET("/ws/online", r.wsHandler.Online)

	registerOpenAPIRoutes(r.engine)
	registerSwaggerRoutes(r.engine)

	r.engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"message": "endpoint not found",
		})
	})
}

// root service banner
func (r *Router) root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message":   "Remi Scorer API",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// healthCheck reports service and database health
func (r *Router) healthCheck(c *gin.Context) {
	if !database.IsConnected() {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":   "unhealthy",
			"database": "disconnected",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "OK",
		"database":  "connected",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// requestLogger logs each request through the zap logger
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		logger.LogRequest(
			c.Request.Method,
			c.Request.URL.Path,
			c.Writer.Status(),
			time.Since(start),
			c.ClientIP(),
		)
	}
}

// Run starts the HTTP server
func (r *Router) Run(addr string) error {
	r.log.Info("starting API server", zap.String("address", addr))
	return r.engine.Run(addr)
}

// GetEngine exposes the gin engine for tests and the http.Server
func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}
