package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AlkaloidWells/GraphWork/internal/domain"
	"github.com/AlkaloidWells/GraphWork/internal/etl/pipeline"
	pkgerrors "github.com/AlkaloidWells/GraphWork/internal/pkg/errors"
	"github.com/AlkaloidWells/GraphWork/internal/pkg/logger"
)

type PipelineHandler struct {
	log      *logger.Logger
	pipeline *pipeline.Service
}

func NewPipelineHandler(log *logger.Logger, p *pipeline.Service) *PipelineHandler {
	return &PipelineHandler{
		log:      log.With("handler", "PipelineHandler"),
		pipeline: p,
	}
}

type runRequest struct {
	Scope domain.Scope `json:"scope"`
}

// POST /api/pipeline/runs
//
// Runs the pipeline synchronously for one scope and returns the load
// summary. An aborted run still reports the partial counters.
func (h *PipelineHandler) RunPipeline(c *gin.Context) {
	req := runRequest{Scope: domain.Scope{Kind: domain.ScopeAll}}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			RespondError(c, http.StatusBadRequest, "invalid_scope", err)
			return
		}
	}
	if req.Scope.Kind == "" {
		req.Scope.Kind = domain.ScopeAll
	}
	if err := req.Scope.Validate(); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_scope", err)
		return
	}

	summary, err := h.pipeline.Run(c.Request.Context(), req.Scope)
	if err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, pkgerrors.ErrExtraction) {
			status = http.StatusFailedDependency
		}
		c.JSON(status, gin.H{
			"summary": summary,
			"error":   err.Error(),
		})
		return
	}
	RespondOK(c, gin.H{"summary": summary})
}
