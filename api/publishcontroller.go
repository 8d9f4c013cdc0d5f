package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"newsrelay/types"
)

func registerPublishRoutes(g *gin.RouterGroup, s *Server) {
	g.POST("/publish/:platform", s.handlePublish)
}

// PublishBody is the publish request body. NewsIDs is the older shape, a bare
// id list without image choices.
type PublishBody struct {
	Items   []types.PublishItem `json:"items"`
	NewsIDs []int64             `json:"news_ids"`
	Status  string              `json:"status"`
}

// handlePublish runs a batch synchronously and returns the report. A client
// that goes away only loses the response; the batch runs to the end.
// POST /api/publish/:platform
func (s *Server) handlePublish(c *gin.Context) {
	var body PublishBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	items := body.Items
	if len(items) == 0 {
		for _, id := range body.NewsIDs {
			items = append(items, types.PublishItem{NewsID: id})
		}
	}

	report, err := s.Batch.Run(context.WithoutCancel(c.Request.Context()), types.PublishRequest{
		Platform: types.Platform(c.Param("platform")),
		Items:    items,
		Status:   body.Status,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}
