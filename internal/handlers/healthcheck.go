package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AlkaloidWells/GraphWork/internal/db"
	"github.com/AlkaloidWells/GraphWork/internal/platform/neo4jdb"
)

type HealthHandler struct {
	relational *db.RelationalService
	graph      *neo4jdb.Client
}

func NewHealthHandler(relational *db.RelationalService, graph *neo4jdb.Client) *HealthHandler {
	return &HealthHandler{relational: relational, graph: graph}
}

// GET /healthcheck
//
// Verifies both stores. A failing store degrades the service but the
// response still names which side is down.
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	ctx := c.Request.Context()
	body := gin.H{"status": "ok"}
	degraded := false

	if h.relational != nil {
		if err := h.relational.Ping(ctx); err != nil {
			body["relational"] = err.Error()
			degraded = true
		}
	}
	if h.graph != nil {
		if err := h.graph.Ping(ctx); err != nil {
			body["graph"] = err.Error()
			degraded = true
		}
	}
	if degraded {
		body["status"] = "degraded"
		c.JSON(http.StatusServiceUnavailable, body)
		return
	}
	c.JSON(http.StatusOK, body)
}
