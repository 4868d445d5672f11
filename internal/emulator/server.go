package emulator

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"chatlink/internal/rtdb"
	"chatlink/pkg/logger"

	"go.uber.org/zap"
)

// Server is an in-process stand-in for the hosted realtime backend: the
// memory tree behind a small HTTP surface plus a WebSocket watch stream.
// It exists for local development and integration tests, not production.
type Server struct {
	store  *rtdb.MemoryStore
	router *gin.Engine
}

// New creates an emulator server around the given tree.
func New(store *rtdb.MemoryStore) *Server {
	router := gin.New()
	router.Use(gin.Recovery())

	s := &Server{store: store, router: router}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/v1")
	v1.GET("/tree/*path", s.handleGet)
	v1.PUT("/tree/*path", s.handleSet)
	v1.PATCH("/tree/*path", s.handleUpdate)
	v1.POST("/tree/*path", s.handlePush)
	v1.GET("/watch/*path", s.handleWatch)

	return s
}

// Handler exposes the router for embedding in tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until the listener fails.
func (s *Server) Run(addr string) error {
	return s.router.Run(addr)
}

func (s *Server) handleGet(c *gin.Context) {
	raw, err := s.store.Get(c.Request.Context(), c.Param("path"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "application/json", raw)
}

func (s *Server) handleSet(c *gin.Context) {
	value, ok := readValue(c)
	if !ok {
		return
	}
	if err := s.store.Set(c.Request.Context(), c.Param("path"), value); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{})
}

func (s *Server) handleUpdate(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return
	}
	var fields map[string]any
	if err := json.Unmarshal(body, &fields); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "update body must be an object"})
		return
	}
	if err := s.store.Update(c.Request.Context(), c.Param("path"), fields); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{})
}

func (s *Server) handlePush(c *gin.Context) {
	value, ok := readValue(c)
	if !ok {
		return
	}
	key, err := s.store.Push(c.Request.Context(), c.Param("path"), value)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"name": key})
}

// readValue decodes an arbitrary JSON body; JSON null becomes nil.
func readValue(c *gin.Context) (any, bool) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return nil, false
	}
	var value any
	if len(body) > 0 {
		if err := json.Unmarshal(body, &value); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "body must be JSON"})
			return nil, false
		}
	}
	return value, true
}

func logWatchError(err error) {
	if err != nil && logger.Log != nil {
		logger.Debug("watch stream closed", zap.Error(err))
	}
}
