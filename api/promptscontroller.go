package api

import (
	"net/http"
	"strconv"
	"sync"

	"github.com/gin-gonic/gin"

	"newsrelay/types"
)

// PromptStore keeps the saved system prompts for the process lifetime.
type PromptStore struct {
	mu      sync.RWMutex
	prompts []types.InstructionFragment
	nextID  int
}

func NewPromptStore() *PromptStore {
	return &PromptStore{nextID: 1}
}

// List returns a copy in creation order.
func (p *PromptStore) List() []types.InstructionFragment {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]types.InstructionFragment{}, p.prompts...)
}

// Add stores a prompt under a new id. Ids are never reused.
func (p *PromptStore) Add(name, prompt string) types.InstructionFragment {
	p.mu.Lock()
	defer p.mu.Unlock()
	f := types.InstructionFragment{ID: p.nextID, Name: name, Prompt: prompt}
	p.nextID++
	p.prompts = append(p.prompts, f)
	return f
}

// Delete removes the prompt with id; deleting an unknown id is a no-op.
func (p *PromptStore) Delete(id int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	kept := p.prompts[:0]
	for _, f := range p.prompts {
		if f.ID != id {
			kept = append(kept, f)
		}
	}
	p.prompts = kept
}

func registerPromptRoutes(g *gin.RouterGroup, s *Server) {
	g.GET("/system-prompts", s.handleListPrompts)
	g.POST("/system-prompts", s.handleCreatePrompt)
	g.DELETE("/system-prompts/:id", s.handleDeletePrompt)
}

// CreatePromptBody is the body of POST /api/system-prompts.
type CreatePromptBody struct {
	Name   string `json:"name" binding:"required"`
	Prompt string `json:"prompt" binding:"required"`
}

func (s *Server) handleListPrompts(c *gin.Context) {
	c.JSON(http.StatusOK, s.Prompts.List())
}

func (s *Server) handleCreatePrompt(c *gin.Context) {
	var body CreatePromptBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, s.Prompts.Add(body.Name, body.Prompt))
}

func (s *Server) handleDeletePrompt(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid prompt id"})
		return
	}
	s.Prompts.Delete(id)
	c.JSON(http.StatusOK, gin.H{"message": "deleted"})
}
