package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"
)

const (
	IS_PROD        = false
	LOG_LEVEL_PROD = slog.LevelInfo

	FALLBACK_REDIS_TO_INTERNALSTORE = false //if redis init fails, it falls back to an in-memory store
	TRACE_ID_KEY                    = "traceId"
	RATE_LIMIT_PER_SECOND           = 2
	BURST_RATE_LIMIT_PER_SECOND     = 5

	//chunking
	ChunkMinLen  = 800
	ChunkMaxLen  = 1200
	ChunkOverlap = 200
	//advisory bounds checked after segmentation, not enforced by the splitter
	ChunkWarnMin = 500
	ChunkWarnMax = 1500

	//duplicate detection
	NearDuplicateMaxDistance = 3  //simhash hamming bits
	RecentFileWindow         = 50 //near-dup comparisons only look this far back per tenant
	NearDuplicateEvidenceCap = 5

	//readiness scoring
	DeductCritical = 40
	DeductWarn     = 15
	DeductInfo     = 5
	//segmentation warnings arriving after the base score use a smaller deduction
	AdjustDeductWarn = 3

	//vector ingestion
	IngestBatchSize      = 50
	IngestConcurrency    = 4
	DefaultIndexName     = "ragready_chunks_v1"
	SearchDefaultTopK    = 8
	BulkErrorSampleLimit = 3

	//artifacts
	ArtifactsRootDefault = "processed_data"
	SchemaVersion        = "1.0"

	//a full extract-embed-index run over a large pdf can take a while
	IngestJobTimeout = 10 * time.Minute

	RequestsPerNewWorkerCount int64 = 10
	MaxWorkerCount            int64 = 10
	MinWorkerCount            int64 = 1
	IdleWorkerTimeout               = 1 * time.Minute

	//serverTimeouts
	ReadTimeout            = 5 * time.Second
	WriteTimeout           = 10 * time.Second
	IdleTimeout            = 120 * time.Second
	ShutdownContextTimeout = 10 * time.Second

	//server listening port
	ServerListenAddr = ":3000"

	//job requests buffer limit
	BufferLimit = 100

	MaxIdleConns        = 50
	MaxIdleConnsPerHost = 25
	IdleConnTimeout     = 60 * time.Second

	//redis
	redisHost     = "127.0.0.1"
	redisPort     = "6379"
	RedisAddr     = redisHost + ":" + redisPort
	RedisPassword = ""

	//redis has 16 DB we can use
	RedisJobStore  = 0
	RedisFileIndex = 1

	//redis timeouts
	RedisJobStoreTTL = 24 * time.Hour

	NoAuthBypass = true
	AuthToken    = ""
)

// IngestEnv carries the externally supplied ingestion configuration, the same
// surface the deployed pipeline reads from its environment.
type IngestEnv struct {
	OpenSearchEndpoint string
	IndexName          string
	EmbedEndpoint      string
	EmbedModelID       string
	EmbedAPIKey        string
	EmbeddingDimension int
	BatchSize          int
	Concurrency        int
	VectorBackend      string //"opensearch" or "pgvector"
	ArtifactsRoot      string

	DBHost     string
	DBPort     int
	DBName     string
	DBUser     string
	DBPassword string
}

func LoadIngestEnv() IngestEnv {
	return IngestEnv{
		OpenSearchEndpoint: os.Getenv("OPENSEARCH_ENDPOINT"),
		IndexName:          envOr("OPENSEARCH_INDEX_NAME", DefaultIndexName),
		EmbedEndpoint:      os.Getenv("EMBED_ENDPOINT"),
		EmbedModelID:       os.Getenv("EMBED_MODEL_ID"),
		EmbedAPIKey:        os.Getenv("EMBED_API_KEY"),
		EmbeddingDimension: envInt("EMBEDDING_DIMENSION", 0),
		BatchSize:          envInt("INGEST_BATCH_SIZE", IngestBatchSize),
		Concurrency:        envInt("INGEST_CONCURRENCY", IngestConcurrency),
		VectorBackend:      envOr("VECTOR_BACKEND", "opensearch"),
		ArtifactsRoot:      envOr("ARTIFACTS_DIR", ArtifactsRootDefault),
		DBHost:             os.Getenv("DB_HOST"),
		DBPort:             envInt("DB_PORT", 5432),
		DBName:             envOr("DB_NAME", "ragready"),
		DBUser:             os.Getenv("DB_USER"),
		DBPassword:         os.Getenv("DB_PASSWORD"),
	}
}

func envOr(key string, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return parsed
}
