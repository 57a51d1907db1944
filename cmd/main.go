package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/AlkaloidWells/GraphWork/internal/app"
	"github.com/AlkaloidWells/GraphWork/internal/db"
	"github.com/AlkaloidWells/GraphWork/internal/etl/extractor"
	"github.com/AlkaloidWells/GraphWork/internal/etl/loader"
	"github.com/AlkaloidWells/GraphWork/internal/etl/pipeline"
	"github.com/AlkaloidWells/GraphWork/internal/handlers"
	"github.com/AlkaloidWells/GraphWork/internal/pkg/logger"
	"github.com/AlkaloidWells/GraphWork/internal/platform/neo4jdb"
	"github.com/AlkaloidWells/GraphWork/internal/recommend"
	"github.com/AlkaloidWells/GraphWork/internal/server"
	"github.com/AlkaloidWells/GraphWork/internal/utils"
)

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	cfg := app.LoadConfig(log)
	ctx := context.Background()

	// Relational source
	log.Info("Connecting to relational source...")
	relational, err := db.NewRelationalService(log)
	if err != nil {
		log.Error("Relational source init failed", "error", err)
		os.Exit(1)
	}
	defer relational.Close()

	// Graph store
	log.Info("Connecting to graph store...")
	graph, err := neo4jdb.NewFromEnv(log)
	if err != nil {
		log.Error("Graph store init failed", "error", err)
		os.Exit(1)
	}
	defer graph.Close(ctx)

	// ETL
	extract := extractor.NewService(relational.DB(), log, cfg.ExtractTimeout)
	writer := loader.NewNeo4jWriter(graph, log)
	writer.EnsureSchema(ctx)
	load := loader.NewService(writer, log, cfg.LoadTimeout)
	pipe := pipeline.NewService(extract, load, log)

	// Recommendation engine, with an optional Redis result cache
	var cache recommend.Cache
	if strings.TrimSpace(os.Getenv("REDIS_ADDR")) != "" {
		c, err := recommend.NewRedisCache(log, cfg.CacheTTL)
		if err != nil {
			log.Warn("Redis cache init failed, continuing without cache", "error", err)
		} else {
			cache = c
			defer c.Close()
		}
	}
	engine := recommend.NewEngine(recommend.NewNeo4jRunner(graph), cache, log, recommend.Config{
		DefaultLimit: cfg.DefaultLimit,
		Timeout:      cfg.QueryTimeout,
	})

	// Router
	router := server.NewRouter(server.RouterConfig{
		HealthHandler:         handlers.NewHealthHandler(relational, graph),
		RecommendationHandler: handlers.NewRecommendationHandler(log, engine),
		PipelineHandler:       handlers.NewPipelineHandler(log, pipe),
	})

	port := utils.GetEnv("PORT", "8080", log)
	log.Info("Server listening", "port", port)
	if err := router.Run(":" + port); err != nil {
		log.Error("Server failed", "error", err)
	}
}
