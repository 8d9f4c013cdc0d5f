package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

func registerHealthRoutes(g *gin.RouterGroup, s *Server) {
	g.GET("/platforms", s.handlePlatforms)
	g.GET("/health", s.handleHealth)
}

// handlePlatforms reports which platforms have a complete credential set.
// GET /api/platforms
func (s *Server) handlePlatforms(c *gin.Context) {
	c.JSON(http.StatusOK, s.Platforms.Configured())
}

// handleHealth pings the article store.
// GET /api/health
func (s *Server) handleHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if err := s.Lister.Ping(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}
