package server

import (
	"errors"
	"log/slog"
	"net/http"
	"sync"

	glog "github.com/gin-contrib/slog"
	"github.com/gin-gonic/gin"

	"github.com/lumenlabs/chainflow/internal/engine"
	"github.com/lumenlabs/chainflow/internal/util"
)

// Server implements the HTTP API for the flow tracker
type Server struct {
	tracker *engine.Tracker
	hub     *engine.Hub
	sockets util.Set[*Client]
	mu      sync.Mutex
}

var ErrInvalidJSON = errors.New("invalid JSON in request body")

// NewServer creates a new HTTP API server
func NewServer(tracker *engine.Tracker, hub *engine.Hub) *Server {
	return &Server{
		tracker: tracker,
		hub:     hub,
		sockets: util.Set[*Client]{},
	}
}

// SetupRoutes configures and returns the HTTP router with all API endpoints
func (s *Server) SetupRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(glog.SetLogger(
		glog.WithLogger(func(c *gin.Context, l *slog.Logger) *slog.Logger {
			return slog.Default()
		}),
	))

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set(
			"Access-Control-Allow-Methods",
			"GET, POST, PUT, DELETE, OPTIONS",
		)
		c.Writer.Header().Set(
			"Access-Control-Allow-Headers",
			"Content-Type, Authorization",
		)

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusOK)
			return
		}

		c.Next()
	})

	// Health check
	router.GET("/health", s.handleHealth)

	// Tracker endpoints
	eng := router.Group("/tracker")
	{
		// Flow endpoints
		eng.GET("/flow", s.listFlows)
		eng.POST("/flow", s.startFlow)
		eng.GET("/flow/:flowID", s.getFlow)
		eng.DELETE("/flow/:flowID", s.removeFlow)

		// Flow lifecycle
		eng.PUT("/flow/:flowID/step", s.patchCurrentStep)
		eng.POST("/flow/:flowID/advance", s.advanceFlow)
		eng.POST("/flow/:flowID/fail", s.failFlow)
		eng.POST("/flow/:flowID/cancel", s.cancelFlow)

		// WebSocket
		eng.GET("/ws", s.handleWebSocket)
	}

	return router
}

func (s *Server) registerWebSocket(c *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sockets.Add(c)
}

func (s *Server) unregisterWebSocket(c *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sockets.Remove(c)
}

// CloseWebSockets closes all active WebSocket connections.
func (s *Server) CloseWebSockets() {
	s.mu.Lock()
	conns := s.sockets.Values()
	s.mu.Unlock()

	for _, c := range conns {
		c.Close()
	}
}
