package mockapi

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

type agentEnvelope struct {
	Agent map[string]any `json:"agent"`
	Mask  string         `json:"mask"`
}

// listAgents returns every stored agent (GET /agents).
func (s *Server) listAgents(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"agents": s.store.listAgents()})
}

// getAgent returns a single agent (GET /agents/{id}).
func (s *Server) getAgent(c *gin.Context) {
	id := c.Param("id")
	agent, ok := s.store.getAgent(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("agent '%s' not found", id)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"agent": agent})
}

// updateAgent replaces the agent configuration (PUT /agents/{id}).
func (s *Server) updateAgent(c *gin.Context) {
	id := c.Param("id")
	env, ok := bindAgent(c)
	if !ok {
		return
	}
	if _, found := s.store.getAgent(id); !found {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("agent '%s' not found", id)})
		return
	}
	s.store.putAgent(id, env.Agent)
	agent, _ := s.store.getAgent(id)
	c.JSON(http.StatusOK, gin.H{"agent": agent})
}

// patchAgent modifies the agent fields named by the mask
// (PATCH /agents/{id}). The name field is read-only.
func (s *Server) patchAgent(c *gin.Context) {
	id := c.Param("id")
	env, ok := bindAgent(c)
	if !ok {
		return
	}
	if env.Mask == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "request body is missing 'mask'"})
		return
	}
	if _, found := env.Agent["name"]; found {
		c.JSON(http.StatusBadRequest, gin.H{"error": "agent field 'name' is read-only"})
		return
	}
	current, found := s.store.getAgent(id)
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("agent '%s' not found", id)})
		return
	}
	if err := applyMask(current, env.Agent, env.Mask, "agent"); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s.store.putAgent(id, current)
	c.JSON(http.StatusOK, gin.H{"agent": current})
}

// deleteAgent removes the agent (DELETE /agents/{id}).
func (s *Server) deleteAgent(c *gin.Context) {
	id := c.Param("id")
	if !s.store.removeAgent(id) {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("agent '%s' not found", id)})
		return
	}
	c.JSON(http.StatusOK, gin.H{})
}

func bindAgent(c *gin.Context) (agentEnvelope, bool) {
	var env agentEnvelope
	if err := c.ShouldBindJSON(&env); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return env, false
	}
	if env.Agent == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "request body is missing 'agent'"})
		return env, false
	}
	return env, true
}
