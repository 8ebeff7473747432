package server

import (
	"log/slog"
	"net/http"
	"sync"

	glog "github.com/gin-contrib/slog"
	"github.com/gin-gonic/gin"

	"github.com/kode4food/atelier/internal/docs"
	"github.com/kode4food/atelier/internal/events"
	"github.com/kode4food/atelier/internal/flow"
	"github.com/kode4food/atelier/pkg/api"
	"github.com/kode4food/atelier/pkg/util"
)

// Server implements the HTTP API for the flow executor
type Server struct {
	executor *flow.Executor
	eventHub *events.Hub
	docs     *docs.Store
	sockets  util.Set[*Client]
	mu       sync.Mutex
}

// NewServer creates a new HTTP API server. The document store may be nil,
// in which case share links never resolve
func NewServer(
	exec *flow.Executor, hub *events.Hub, store *docs.Store,
) *Server {
	return &Server{
		executor: exec,
		eventHub: hub,
		docs:     store,
		sockets:  util.Set[*Client]{},
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
			"Access-Control-Allow-Methods", "GET, POST, OPTIONS",
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

	router.GET("/health", s.handleHealth)

	fl := router.Group("/flow")
	{
		fl.GET("", s.listFlows)
		fl.GET("/:name", s.getFlow)
		fl.POST("/:name", s.runFlow)
	}

	router.GET("/share/:token", s.resolveShare)
	router.GET("/ws", s.handleWebSocket)

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

// CloseWebSockets closes all active WebSocket connections
func (s *Server) CloseWebSockets() {
	s.mu.Lock()
	conns := make([]*Client, 0, len(s.sockets))
	for c := range s.sockets {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	for _, c := range conns {
		c.Close()
	}
}

func errorResponse(c *gin.Context, status int, msg string) {
	c.JSON(status, api.ErrorResponse{
		Error:  msg,
		Status: status,
	})
}
