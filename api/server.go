package api

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"newsrelay/store"
	"newsrelay/types"
)

// BatchRunner is implemented by orchestrator.Batch.
type BatchRunner interface {
	Run(ctx context.Context, req types.PublishRequest) (*types.BatchReport, error)
}

// RewriteRunner is implemented by rewrite.Rewriter.
type RewriteRunner interface {
	Run(ctx context.Context, drafts []types.ArticleDraft, fragments []types.InstructionFragment) (*types.RewriteReport, error)
}

// PlatformStatus is implemented by credentials.Registry.
type PlatformStatus interface {
	Configured() map[types.Platform]bool
}

// Server bundles what the handlers need.
type Server struct {
	Batch     BatchRunner
	Rewriter  RewriteRunner
	Articles  store.ArticleStore
	Lister    store.ArticleLister
	Platforms PlatformStatus
	Prompts   *PromptStore
}

// NewRouter constructs a Gin engine with registered routes.
func NewRouter(s *Server, allowedOrigins []string) *gin.Engine {
	if s.Prompts == nil {
		s.Prompts = NewPromptStore()
	}
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"http://localhost:3000"}
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(cors.New(cors.Config{
		AllowOrigins: allowedOrigins,
		AllowMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type"},
	}))

	g := r.Group("/api")
	registerPublishRoutes(g, s)
	registerRewriteRoutes(g, s)
	registerNewsRoutes(g, s)
	registerPromptRoutes(g, s)
	registerHealthRoutes(g, s)
	return r
}

// respondError writes {"error": ...} with the status the error kind maps to.
func respondError(c *gin.Context, err error) {
	status := types.HTTPStatus(err)
	msg := err.Error()
	var pe *types.PublishError
	if errors.As(err, &pe) {
		msg = pe.Reason
	}
	if status >= http.StatusInternalServerError {
		log.Printf("❌ API Error: %s %s: %v", c.Request.Method, c.FullPath(), err)
	}
	c.JSON(status, gin.H{"error": msg})
}
