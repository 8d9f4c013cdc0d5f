package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"newsrelay/types"
)

func registerNewsRoutes(g *gin.RouterGroup, s *Server) {
	g.GET("/news", s.handleListNews)
	g.GET("/news/:id", s.handleGetNews)
}

// handleListNews returns articles from allow-listed sources that have images.
// GET /api/news
func (s *Server) handleListNews(c *gin.Context) {
	articles, err := s.Lister.ListPublishable(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	if articles == nil {
		articles = []*types.Article{}
	}
	c.JSON(http.StatusOK, articles)
}

// GET /api/news/:id
func (s *Server) handleGetNews(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid news id"})
		return
	}

	article, err := s.Articles.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	if article == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "news not found"})
		return
	}
	c.JSON(http.StatusOK, article)
}
