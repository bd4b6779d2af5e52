package mockapi

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type dataQuery struct {
	ID        string   `json:"id"`
	IDs       []string `json:"ids"`
	StartTime string   `json:"startTime"`
	EndTime   string   `json:"endTime"`
	Augment   bool     `json:"augment"`
	AgentIDs  []string `json:"agentIds"`
	TaskIDs   []string `json:"taskIds"`
	TargetIPs []string `json:"targetIps"`
}

// testsHealth replays one scripted health document per requested test
// (POST /health/tests).
func (s *Server) testsHealth(c *gin.Context) {
	q, ok := bindDataQuery(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"health": s.store.popHealth(q.IDs)})
}

// testsResults replays one scripted result batch per requested test
// (POST /tests/results).
func (s *Server) testsResults(c *gin.Context) {
	q, ok := bindDataQuery(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": s.store.popResults(q.IDs)})
}

// testTrace replays one scripted trace document of a stored test
// (POST /tests/{id}/results/trace). An exhausted queue reads as an empty
// document.
func (s *Server) testTrace(c *gin.Context) {
	id := c.Param("id")
	if _, found := s.store.getTest(id); !found {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("test '%s' not found", id)})
		return
	}
	if _, ok := bindDataQuery(c); !ok {
		return
	}
	doc := s.store.popTrace(id)
	if doc == nil {
		doc = map[string]any{}
	}
	c.JSON(http.StatusOK, gin.H{"trace": doc})
}

func bindDataQuery(c *gin.Context) (dataQuery, bool) {
	var q dataQuery
	if err := c.ShouldBindJSON(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return q, false
	}
	for _, ts := range []string{q.StartTime, q.EndTime} {
		if ts == "" {
			continue
		}
		if _, err := time.Parse(time.RFC3339, ts); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid timestamp '%s'", ts)})
			return q, false
		}
	}
	return q, true
}
