package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/ragready/pipeline/internal/config"
	"github.com/ragready/pipeline/internal/data/artifacts"
	"github.com/ragready/pipeline/internal/data/store"
	jobmodel "github.com/ragready/pipeline/internal/domain/jobModel"
	"github.com/ragready/pipeline/internal/handlers"
	"github.com/ragready/pipeline/internal/job"
	"github.com/ragready/pipeline/internal/pipeline"
	"github.com/ragready/pipeline/internal/pipeline/extract"
	"github.com/ragready/pipeline/internal/rag/embedding"
	"github.com/ragready/pipeline/internal/rag/embedding/httpEmbedding"
	"github.com/ragready/pipeline/internal/rag/embedding/openaiEmbedding"
	"github.com/ragready/pipeline/internal/rag/ingest"
	"github.com/ragready/pipeline/internal/rag/vectorDB"
	"github.com/ragready/pipeline/internal/rag/vectorDB/openSearchDB"
	"github.com/ragready/pipeline/internal/rag/vectorDB/pgVectorDB"
	"github.com/ragready/pipeline/internal/server"
	"github.com/ragready/pipeline/internal/worker"
	"github.com/ragready/pipeline/pkg/logger_i"
)

var (
	listenAddr        string
	requestCount      int64
	stopWorkerChannel chan bool
	workerWaitGroup   sync.WaitGroup
)

func main() {

	logger_i.Init()
	var logger = logger_i.NewLogger("main")

	//config
	flag.StringVar(&listenAddr, "listen-addr", config.ServerListenAddr, "server listen address")
	flag.Parse()
	env := config.LoadIngestEnv()

	//init buffered job channel
	jobChannel := make(chan jobmodel.Job, config.BufferLimit)
	dispatcherChannel := make(chan bool, 1)
	stopWorkerChannel = make(chan bool, 1)

	serviceContext, closeExternalServices := context.WithCancel(context.Background())
	defer closeExternalServices()

	//init job service with the redis stores, falling back to memory
	var jobStore jobmodel.JobStore
	if redisJobs := store.GetRedisJobStore(serviceContext); redisJobs != nil {
		jobStore = redisJobs
	} else {
		logger.Error("Redis job store is offline")
		jobStore = store.InitInMemoryJobStore()
	}
	var fileIndex jobmodel.FileIndex
	if redisIndex := store.GetRedisFileIndex(serviceContext); redisIndex != nil {
		fileIndex = redisIndex
	} else {
		logger.Error("Redis file index is offline")
		fileIndex = store.InitInMemoryFileIndex()
	}

	serviceConfig := job.ServiceConfig{
		JobChannel:        jobChannel,
		RequestCount:      requestCount,
		DispatcherChannel: dispatcherChannel,
		JobStore:          jobStore,
		FileIndex:         fileIndex,
	}
	logger.Info("Starting job service")
	service := job.InitJobService(serviceConfig)

	artifactStore, err := artifacts.NewStore(env.ArtifactsRoot)
	if err != nil {
		logger.Error("Could not initialize artifact storage", "error", err)
		return
	}

	vectorStore := buildVectorStore(env, logger)
	embedder := buildEmbedder(env)
	if vectorStore == nil || embedder == nil {
		logger.Error("One or more external services failed to initialize. Shutting down.")
		logger.Debug("Available services : ", "VectorStore", vectorStore != nil, "Embedder", embedder != nil)
		return
	}

	indexer, err := ingest.NewIndexer(vectorStore, embedder, env.EmbedModelID, env.EmbeddingDimension, env.BatchSize, env.Concurrency)
	if err != nil {
		logger.Error("Could not initialize vector indexer", "error", err)
		return
	}
	defer indexer.Release()

	pipelineService := pipeline.NewService(fileIndex, artifactStore, indexer, embedder, vectorStore, env.EmbedModelID, extract.Pages)

	handlers.InitJobHandler(service, artifactStore, pipelineService)

	//init worker pool
	worker.InitServices(service, pipelineService)
	worker.InitWorkerPool(stopWorkerChannel, &workerWaitGroup)

	//server handling
	gracefulShutdown := make(chan os.Signal, 1)
	signal.Notify(gracefulShutdown, syscall.SIGINT, syscall.SIGTERM)
	stopExecution := make(chan bool, 1)

	shutdownParams := server.ShutdownParams{
		GracefulShutdown: gracefulShutdown,
		StopExecution:    stopExecution,
		WorkerStop:       stopWorkerChannel,
		Group:            &workerWaitGroup,
		CloseServices:    closeExternalServices,
	}
	go server.ShutDownHandler(shutdownParams)
	go server.CreateServer(listenAddr)

	<-stopExecution
	logger.Info("Server stopped")
}

func buildVectorStore(env config.IngestEnv, logger *logger_i.Logger) vectorDB.DataProcessor {
	switch env.VectorBackend {
	case "pgvector":
		if env.DBHost == "" || env.DBUser == "" {
			logger.Error("pgvector backend selected but DB_HOST/DB_USER are not set")
			return nil
		}
		return pgVectorDB.NewStore(env.DBHost, env.DBPort, env.DBName, env.DBUser, env.DBPassword, env.EmbeddingDimension)
	default:
		if env.OpenSearchEndpoint == "" {
			logger.Error("opensearch backend selected but OPENSEARCH_ENDPOINT is not set")
			return nil
		}
		return openSearchDB.NewStore(env.OpenSearchEndpoint, env.IndexName, env.EmbeddingDimension)
	}
}

func buildEmbedder(env config.IngestEnv) embedding.Embedder {
	if env.EmbedEndpoint != "" {
		return httpEmbedding.NewClient(env.EmbedEndpoint, env.EmbedModelID, env.EmbedAPIKey)
	}
	if env.EmbedAPIKey != "" && env.EmbedModelID != "" {
		return openaiEmbedding.NewClient(env.EmbedAPIKey, env.EmbedModelID)
	}
	return nil
}
