package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/AlkaloidWells/GraphWork/internal/app"
	"github.com/AlkaloidWells/GraphWork/internal/db"
	"github.com/AlkaloidWells/GraphWork/internal/domain"
	"github.com/AlkaloidWells/GraphWork/internal/etl/extractor"
	"github.com/AlkaloidWells/GraphWork/internal/etl/loader"
	"github.com/AlkaloidWells/GraphWork/internal/etl/pipeline"
	"github.com/AlkaloidWells/GraphWork/internal/pkg/logger"
	"github.com/AlkaloidWells/GraphWork/internal/platform/neo4jdb"
)

// scopeFile is the YAML shape accepted by -scopes: a list of scope
// descriptors run concurrently.
type scopeFile struct {
	Scopes []domain.Scope `yaml:"scopes"`
}

func main() {
	var (
		kind       = flag.String("scope", "all", "scope kind: all, vendor, category or user")
		vendorID   = flag.Int64("vendor", 0, "vendor id for -scope vendor")
		categoryID = flag.Int64("category", 0, "category id for -scope category")
		userID     = flag.Int64("user", 0, "user id for -scope user")
		scopesPath = flag.String("scopes", "", "YAML file with a list of scopes to run concurrently")
	)
	flag.Parse()

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

	scopes, err := resolveScopes(*scopesPath, domain.Scope{
		Kind:       domain.ScopeKind(*kind),
		VendorID:   *vendorID,
		CategoryID: *categoryID,
		UserID:     *userID,
	})
	if err != nil {
		log.Error("Invalid scope arguments", "error", err)
		os.Exit(2)
	}

	cfg := app.LoadConfig(log)
	ctx := context.Background()

	relational, err := db.NewRelationalService(log)
	if err != nil {
		log.Error("Relational source init failed", "error", err)
		os.Exit(1)
	}
	defer relational.Close()

	graph, err := neo4jdb.NewFromEnv(log)
	if err != nil {
		log.Error("Graph store init failed", "error", err)
		os.Exit(1)
	}
	defer graph.Close(ctx)

	extract := extractor.NewService(relational.DB(), log, cfg.ExtractTimeout)
	writer := loader.NewNeo4jWriter(graph, log)
	writer.EnsureSchema(ctx)
	load := loader.NewService(writer, log, cfg.LoadTimeout)
	pipe := pipeline.NewService(extract, load, log)

	summaries, runErr := pipe.RunAll(ctx, scopes)
	for _, summary := range summaries {
		fmt.Printf("run %s scope=%s attempted=%d succeeded=%d failed=%d\n",
			summary.RunID, summary.Scope, summary.Attempted, summary.Succeeded, summary.Failed)
	}
	if runErr != nil {
		log.Error("Pipeline run failed", "error", runErr)
		os.Exit(1)
	}
}

func resolveScopes(path string, flagScope domain.Scope) ([]domain.Scope, error) {
	if path == "" {
		if err := flagScope.Validate(); err != nil {
			return nil, err
		}
		return []domain.Scope{flagScope}, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scope file: %w", err)
	}
	var file scopeFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse scope file: %w", err)
	}
	if len(file.Scopes) == 0 {
		return nil, fmt.Errorf("scope file %s lists no scopes", path)
	}
	for i, scope := range file.Scopes {
		if err := scope.Validate(); err != nil {
			return nil, fmt.Errorf("scope %d: %w", i, err)
		}
	}
	return file.Scopes, nil
}
