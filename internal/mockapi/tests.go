package mockapi

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type testEnvelope struct {
	Test map[string]any `json:"test"`
	Mask string         `json:"mask"`
}

type statusEnvelope struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// listTests returns the stored tests (GET /tests). Preset tests only show
// up with the presets=true query parameter.
func (s *Server) listTests(c *gin.Context) {
	presets := c.Query("presets") == "true"
	c.JSON(http.StatusOK, gin.H{"tests": s.store.listTests(presets)})
}

// createTest stores a new test under the next free id and returns the
// server's view of it (POST /tests).
func (s *Server) createTest(c *gin.Context) {
	env, ok := bindTest(c)
	if !ok {
		return
	}
	doc := env.Test
	delete(doc, "id")
	id := s.store.insertTest(doc, false)
	stored, _ := s.store.getTest(id)
	c.JSON(http.StatusOK, gin.H{"test": stored})
}

// getTest returns a single test (GET /tests/{id}).
func (s *Server) getTest(c *gin.Context) {
	id := c.Param("id")
	test, ok := s.store.getTest(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("test '%s' not found", id)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"test": test})
}

// updateTest replaces the test configuration, keeping the creation record
// and bumping the modification time (PUT /tests/{id}).
func (s *Server) updateTest(c *gin.Context) {
	id := c.Param("id")
	env, ok := bindTest(c)
	if !ok {
		return
	}
	current, found := s.store.getTest(id)
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("test '%s' not found", id)})
		return
	}
	doc := env.Test
	doc["cdate"] = current["cdate"]
	doc["createdBy"] = current["createdBy"]
	doc["edate"] = time.Now().UTC().Format(time.RFC3339)
	doc["lastUpdatedBy"] = mockUser()
	s.store.putTest(id, doc)
	stored, _ := s.store.getTest(id)
	c.JSON(http.StatusOK, gin.H{"test": stored})
}

// patchTest modifies the test fields named by the mask (PATCH /tests/{id}).
func (s *Server) patchTest(c *gin.Context) {
	id := c.Param("id")
	env, ok := bindTest(c)
	if !ok {
		return
	}
	if env.Mask == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "request body is missing 'mask'"})
		return
	}
	current, found := s.store.getTest(id)
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("test '%s' not found", id)})
		return
	}
	if err := applyMask(current, env.Test, env.Mask, "test"); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	current["edate"] = time.Now().UTC().Format(time.RFC3339)
	current["lastUpdatedBy"] = mockUser()
	s.store.putTest(id, current)
	c.JSON(http.StatusOK, gin.H{"test": current})
}

// deleteTest removes the test (DELETE /tests/{id}).
func (s *Server) deleteTest(c *gin.Context) {
	id := c.Param("id")
	if !s.store.removeTest(id) {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("test '%s' not found", id)})
		return
	}
	c.JSON(http.StatusOK, gin.H{})
}

// setTestStatus mutates the test status (PUT /tests/{id}/status).
func (s *Server) setTestStatus(c *gin.Context) {
	id := c.Param("id")
	var env statusEnvelope
	if err := c.ShouldBindJSON(&env); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	if env.Status == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "request body is missing 'status'"})
		return
	}
	if env.ID != "" && env.ID != id {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": fmt.Sprintf("body id '%s' does not match path id '%s'", env.ID, id),
		})
		return
	}
	current, found := s.store.getTest(id)
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("test '%s' not found", id)})
		return
	}
	current["status"] = env.Status
	current["edate"] = time.Now().UTC().Format(time.RFC3339)
	current["lastUpdatedBy"] = mockUser()
	s.store.putTest(id, current)
	c.JSON(http.StatusOK, gin.H{})
}

func bindTest(c *gin.Context) (testEnvelope, bool) {
	var env testEnvelope
	if err := c.ShouldBindJSON(&env); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return env, false
	}
	if env.Test == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "request body is missing 'test'"})
		return env, false
	}
	return env, true
}
