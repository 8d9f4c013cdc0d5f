package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"newsrelay/types"
)

func registerRewriteRoutes(g *gin.RouterGroup, s *Server) {
	g.POST("/ai-rewrite", s.handleRewrite)
}

// RewriteBody is the rewrite request body.
type RewriteBody struct {
	NewsItems     []types.ArticleDraft        `json:"news_items"`
	SystemPrompts []types.InstructionFragment `json:"system_prompts"`
}

// handleRewrite rewrites the drafts and stores the results.
// POST /api/ai-rewrite
func (s *Server) handleRewrite(c *gin.Context) {
	var body RewriteBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	report, err := s.Rewriter.Run(context.WithoutCancel(c.Request.Context()), body.NewsItems, body.SystemPrompts)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}
