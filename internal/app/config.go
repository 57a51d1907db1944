package app

import (
	"time"

	"github.com/AlkaloidWells/GraphWork/internal/pkg/logger"
	"github.com/AlkaloidWells/GraphWork/internal/utils"
)

type Config struct {
	DefaultLimit   int
	ExtractTimeout time.Duration
	LoadTimeout    time.Duration
	QueryTimeout   time.Duration
	CacheTTL       time.Duration
}

func LoadConfig(log *logger.Logger) Config {
	defaultLimit := utils.GetEnvAsInt("RECOMMEND_DEFAULT_LIMIT", 10, log)
	extractTimeoutSeconds := utils.GetEnvAsInt("EXTRACT_TIMEOUT_SECONDS", 60, log)
	loadTimeoutSeconds := utils.GetEnvAsInt("LOAD_TIMEOUT_SECONDS", 10, log)
	queryTimeoutSeconds := utils.GetEnvAsInt("QUERY_TIMEOUT_SECONDS", 15, log)
	cacheTTLSeconds := utils.GetEnvAsInt("RECOMMEND_CACHE_TTL_SECONDS", 300, log)
	return Config{
		DefaultLimit:   defaultLimit,
		ExtractTimeout: time.Duration(extractTimeoutSeconds) * time.Second,
		LoadTimeout:    time.Duration(loadTimeoutSeconds) * time.Second,
		QueryTimeout:   time.Duration(queryTimeoutSeconds) * time.Second,
		CacheTTL:       time.Duration(cacheTTLSeconds) * time.Second,
	}
}
