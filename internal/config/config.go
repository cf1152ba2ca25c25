// Package config loads pipeline configuration from the environment, the
// way every Lambda in this module expects it: no config files, no flags.
package config

import (
	"time"

	"github.com/nasa/earthdata-mcp/internal/platform/envutil"
	"github.com/nasa/earthdata-mcp/internal/platform/logger"
)

type Config struct {
	CMRBaseURL string
	KMSBaseURL string

	EmbeddingQueueURL string
	AWSRegion         string

	BedrockModelID string

	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string

	RedisAddr    string
	RedisChannel string

	KMSCacheSize int

	CMRConceptTimeout time.Duration
	CMRSearchTimeout  time.Duration
	KMSLookupTimeout  time.Duration

	MaxChunkConcurrency int

	LogMode string
}

func LoadConfig(log *logger.Logger) Config {
	cfg := loadConfig()
	if log != nil {
		log.Info("loaded config",
			"cmr_url", cfg.CMRBaseURL,
			"kms_url", cfg.KMSBaseURL,
			"aws_region", cfg.AWSRegion,
			"embedding_model", cfg.BedrockModelID,
			"max_chunk_concurrency", cfg.MaxChunkConcurrency,
		)
	}
	return cfg
}

func loadConfig() Config {
	return Config{
		CMRBaseURL: envutil.String("CMR_URL", "https://cmr.earthdata.nasa.gov"),
		KMSBaseURL: envutil.String("KMS_URL", "https://cmr.earthdata.nasa.gov/kms"),

		EmbeddingQueueURL: envutil.String("EMBEDDING_QUEUE_URL", ""),
		AWSRegion:         envutil.String("AWS_REGION", "us-east-1"),

		BedrockModelID: envutil.String("EMBEDDING_MODEL", "amazon.titan-embed-text-v2:0"),

		PostgresHost:     envutil.String("POSTGRES_HOST", "localhost"),
		PostgresPort:     envutil.String("POSTGRES_PORT", "5432"),
		PostgresUser:     envutil.String("POSTGRES_USER", "postgres"),
		PostgresPassword: envutil.String("POSTGRES_PASSWORD", ""),
		PostgresDB:       envutil.String("POSTGRES_NAME", "earthdata_embeddings"),

		RedisAddr:    envutil.String("REDIS_ADDR", ""),
		RedisChannel: envutil.String("REDIS_CHANNEL", "pipeline-progress"),

		KMSCacheSize: envutil.Int("KMS_CACHE_SIZE", 2048),

		CMRConceptTimeout: envutil.Duration("CMR_CONCEPT_TIMEOUT", 30*time.Second),
		CMRSearchTimeout:  envutil.Duration("CMR_SEARCH_TIMEOUT", 60*time.Second),
		KMSLookupTimeout:  envutil.Duration("KMS_LOOKUP_TIMEOUT", 10*time.Second),

		MaxChunkConcurrency: envutil.Int("MAX_CHUNK_CONCURRENCY", 4),

		LogMode: envutil.String("LOG_MODE", "production"),
	}
}
