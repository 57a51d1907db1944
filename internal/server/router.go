package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/AlkaloidWells/GraphWork/internal/handlers"
)

type RouterConfig struct {
	HealthHandler         *handlers.HealthHandler
	RecommendationHandler *handlers.RecommendationHandler
	PipelineHandler       *handlers.PipelineHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{
			"http://localhost:80",
			"http://localhost:3000",
		},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	router.GET("/healthcheck", cfg.HealthHandler.HealthCheck)

	api := router.Group("/api")
	{
		rec := api.Group("/recommendations")
		rec.GET("/co-viewed/:user_id", cfg.RecommendationHandler.GetCoViewedProducts)
		rec.GET("/similar-users/:user_id", cfg.RecommendationHandler.GetSimilarUsers)
		rec.GET("/category-audience/:category_id", cfg.RecommendationHandler.GetCategoryAudience)
		rec.GET("/viewed-not-bought/:user_id", cfg.RecommendationHandler.GetViewedNotBought)
		rec.GET("/products/:user_id", cfg.RecommendationHandler.GetRecommendedProducts)

		api.POST("/pipeline/runs", cfg.PipelineHandler.RunPipeline)
	}

	return router
}
