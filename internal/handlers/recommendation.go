package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/AlkaloidWells/GraphWork/internal/domain"
	pkgerrors "github.com/AlkaloidWells/GraphWork/internal/pkg/errors"
	"github.com/AlkaloidWells/GraphWork/internal/pkg/logger"
	"github.com/AlkaloidWells/GraphWork/internal/recommend"
)

type RecommendationHandler struct {
	log    *logger.Logger
	engine *recommend.Engine
}

func NewRecommendationHandler(log *logger.Logger, engine *recommend.Engine) *RecommendationHandler {
	return &RecommendationHandler{
		log:    log.With("handler", "RecommendationHandler"),
		engine: engine,
	}
}

// GET /api/recommendations/co-viewed/:user_id
func (h *RecommendationHandler) GetCoViewedProducts(c *gin.Context) {
	h.ranked(c, "user_id", h.engine.CoViewedProducts)
}

// GET /api/recommendations/similar-users/:user_id
func (h *RecommendationHandler) GetSimilarUsers(c *gin.Context) {
	h.ranked(c, "user_id", h.engine.SimilarUsers)
}

// GET /api/recommendations/category-audience/:category_id
func (h *RecommendationHandler) GetCategoryAudience(c *gin.Context) {
	h.ranked(c, "category_id", h.engine.CategoryAudience)
}

// GET /api/recommendations/viewed-not-bought/:user_id
func (h *RecommendationHandler) GetViewedNotBought(c *gin.Context) {
	h.ranked(c, "user_id", h.engine.ViewedNotBought)
}

// GET /api/recommendations/products/:user_id
func (h *RecommendationHandler) GetRecommendedProducts(c *gin.Context) {
	h.ranked(c, "user_id", h.engine.RecommendProducts)
}

func (h *RecommendationHandler) ranked(c *gin.Context, param string, query func(context.Context, int64, int) ([]domain.Ranked, error)) {
	id, err := strconv.ParseInt(c.Param(param), 10, 64)
	if err != nil || id <= 0 {
		RespondError(c, http.StatusBadRequest, "invalid_target", pkgerrors.ErrValidation)
		return
	}

	limit := h.engine.DefaultLimit()
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			RespondError(c, http.StatusBadRequest, "invalid_limit", pkgerrors.ErrValidation)
			return
		}
		limit = parsed
	}

	results, err := query(c.Request.Context(), id, limit)
	if err != nil {
		respondQueryError(c, err)
		return
	}
	RespondOK(c, gin.H{"results": results})
}
