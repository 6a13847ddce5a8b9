// Package pipeline runs the document ingestion stages end to end: extract,
// normalize, quality checks, segmentation, vector indexing and artifact
// persistence. The worker only sees the Service interface, so stores and
// providers can be swapped for mocks in tests.
package pipeline

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/ragready/pipeline/internal/config"
	"github.com/ragready/pipeline/internal/data/artifacts"
	"github.com/ragready/pipeline/internal/domain/docModel"
	"github.com/ragready/pipeline/internal/domain/jobModel"
	"github.com/ragready/pipeline/internal/metrics"
	"github.com/ragready/pipeline/internal/pipeline/identity"
	"github.com/ragready/pipeline/internal/pipeline/metadata"
	"github.com/ragready/pipeline/internal/pipeline/normalize"
	"github.com/ragready/pipeline/internal/pipeline/quality"
	"github.com/ragready/pipeline/internal/pipeline/segment"
	"github.com/ragready/pipeline/internal/rag/embedding"
	"github.com/ragready/pipeline/internal/rag/ingest"
	"github.com/ragready/pipeline/internal/rag/vectorDB"
	"github.com/ragready/pipeline/pkg/logger_i"
)

type Service interface {
	IngestDocument(ctx context.Context, job jobModel.Job) jobModel.Job
	Search(ctx context.Context, tenantId string, datasetId string, query string, topK int) ([]vectorDB.SearchHit, error)
}

type service struct {
	fileIndex jobModel.FileIndex
	artifacts *artifacts.Store
	indexer   *ingest.Indexer
	embedder  embedding.Embedder
	store     vectorDB.DataProcessor
	modelId   string
	extract   func(path string) ([]docModel.Page, error)
	logger    *logger_i.Logger
}

// NewService constructor. extractFn is the page producer, injected so
// tests can feed pages without real files.
func NewService(fileIndex jobModel.FileIndex, art *artifacts.Store, indexer *ingest.Indexer, em embedding.Embedder, store vectorDB.DataProcessor, modelId string, extractFn func(path string) ([]docModel.Page, error)) Service {
	return &service{
		fileIndex: fileIndex,
		artifacts: art,
		indexer:   indexer,
		embedder:  em,
		store:     store,
		modelId:   modelId,
		extract:   extractFn,
		logger:    logger_i.NewLogger("Pipeline Service :"),
	}
}

func (s *service) IngestDocument(ctx context.Context, job jobModel.Job) jobModel.Job {
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("document_ingestion", time.Since(start)) }()

	inMethodLogger := s.logger.With("traceId", job.TraceId, "JobId", job.Id)

	// Extraction
	pages, err := s.executeExtractStep(&job, inMethodLogger)
	if err != nil {
		return s.jobError(job, err, "EXTRACTION_FAILURE", false)
	}
	extraction := normalize.ExtractionStats(pages)

	// Normalization
	cleaned, normStats := s.executeNormalizeStep(&job, inMethodLogger, pages)
	cleanedText := normalize.FullText(cleaned)

	// Quality checks
	findings, err := s.executeQualityStep(ctx, &job, inMethodLogger, cleanedText, extraction, normStats)
	if err != nil {
		return s.jobError(job, err, "QUALITY_CHECK_FAILURE", true)
	}
	baseScore := quality.ComputeReadiness(findings)

	// Segmentation
	chunks, chunkWarnings, err := s.executeChunkStep(&job, inMethodLogger, cleaned)
	if err != nil {
		return s.jobError(job, err, "SEGMENTATION_FAILURE", false)
	}
	records := s.buildRecords(job, chunks)

	chunksKey, err := s.artifacts.WriteChunks(job.TenantId, job.DatasetId, job.FileId, records)
	if err != nil {
		return s.jobError(job, err, "ARTIFACT_WRITE_FAILURE", true)
	}
	job.Artifacts.ChunksKey = chunksKey

	// Vector indexing
	indexed, err := s.executeIndexStep(ctx, &job, inMethodLogger, records)
	if err != nil {
		return s.jobError(job, err, "VECTOR_INGEST_FAILURE", true)
	}
	metrics.CaptureChunksIndexed(indexed)

	// Persist results
	job, err = s.executePersistStep(&job, inMethodLogger, persistInput{
		baseScore:     baseScore,
		findings:      findings,
		chunkWarnings: chunkWarnings,
		pages:         cleaned,
		extraction:    extraction,
		normalization: normStats,
		chunkCount:    indexed,
	})
	if err != nil {
		return s.jobError(job, err, "ARTIFACT_WRITE_FAILURE", true)
	}

	if job.Payload.SourcePath != "" {
		if err := os.Remove(job.Payload.SourcePath); err != nil {
			inMethodLogger.Error("Error removing uploaded file", "error", err)
		}
	}

	job.Status = jobModel.JobStatusComplete
	job.CurrentStep = jobModel.Complete
	return job
}

func (s *service) executeExtractStep(job *jobModel.Job, log *logger_i.Logger) ([]docModel.Page, error) {
	*job = logOutput(*job, jobModel.ExtractStage, log)

	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("extract", time.Since(start)) }()

	return s.extract(job.Payload.SourcePath)
}

func (s *service) executeNormalizeStep(job *jobModel.Job, log *logger_i.Logger, pages []docModel.Page) ([]docModel.Page, docModel.NormalizationStats) {
	*job = logOutput(*job, jobModel.NormalizeStage, log)

	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("normalize", time.Since(start)) }()

	return normalize.Pages(pages)
}

func (s *service) executeQualityStep(ctx context.Context, job *jobModel.Job, log *logger_i.Logger, cleanedText string, extraction docModel.ExtractionStats, norm docModel.NormalizationStats) ([]docModel.Finding, error) {
	*job = logOutput(*job, jobModel.QualityStage, log)

	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("quality_checks", time.Since(start)) }()

	return quality.Run(ctx, s.fileIndex, quality.CheckInput{
		TenantId:    job.TenantId,
		FileId:      job.FileId,
		Filename:    job.Payload.Filename,
		RawSha256:   job.Payload.RawSha256,
		CleanedText: cleanedText,
		Extraction:  extraction,
		Norm:        norm,
	})
}

func (s *service) executeChunkStep(job *jobModel.Job, log *logger_i.Logger, pages []docModel.Page) ([]docModel.Chunk, []docModel.Finding, error) {
	*job = logOutput(*job, jobModel.ChunkStage, log)

	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("chunk", time.Since(start)) }()

	chunks := segment.ChunkPages(pages, segment.Options{
		MinLen:        config.ChunkMinLen,
		MaxLen:        config.ChunkMaxLen,
		Overlap:       config.ChunkOverlap,
		BoundaryAware: true,
	})
	if len(chunks) == 0 {
		return nil, nil, segment.ErrNoChunkableText
	}
	return chunks, segment.Warnings(chunks, config.ChunkWarnMin, config.ChunkWarnMax), nil
}

func (s *service) buildRecords(job jobModel.Job, chunks []docModel.Chunk) []docModel.ChunkRecord {
	createdAt := time.Now().UTC().Format(time.RFC3339)
	records := make([]docModel.ChunkRecord, 0, len(chunks))
	for i, chunk := range chunks {
		docType, confidence := metadata.ClassifyDocument(chunk.Text)
		record := docModel.ChunkRecord{
			TenantId:            job.TenantId,
			DatasetId:           job.DatasetId,
			DocId:               job.FileId,
			ChunkId:             identity.ChunkId(job.FileId, chunk.PageRange.Start, i),
			ChunkIndex:          i,
			SourceUri:           job.Payload.SourcePath,
			Filename:            job.Payload.Filename,
			Page:                chunk.PageRange.Start,
			Text:                chunk.Text,
			CreatedAt:           createdAt,
			EmbeddingModel:      s.modelId,
			ContentHash:         identity.ContentHash(job.FileId, chunk.PageRange.Start, i, chunk.Text),
			Acl:                 []string{},
			DocType:             docType,
			DocTypeConfidence:   confidence,
			Discipline:          metadata.DetectDiscipline(chunk.Text),
			SectionReference:    metadata.ExtractSectionReference(chunk.Text),
			StandardsReferenced: metadata.ExtractStandards(chunk.Text),
		}
		records = append(records, record)
	}
	return records
}

func (s *service) executeIndexStep(ctx context.Context, job *jobModel.Job, log *logger_i.Logger, records []docModel.ChunkRecord) (int, error) {
	*job = logOutput(*job, jobModel.IndexStage, log)

	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("vector_ingest", time.Since(start)) }()

	return s.indexer.IndexDocument(ctx, ingest.DocumentContext{
		TenantId:       job.TenantId,
		DatasetId:      job.DatasetId,
		DocId:          job.FileId,
		SourceUri:      job.Payload.SourcePath,
		Filename:       job.Payload.Filename,
		CreatedAt:      time.Now().UTC().Format(time.RFC3339),
		EmbeddingModel: s.modelId,
	}, records)
}

type persistInput struct {
	baseScore     int
	findings      []docModel.Finding
	chunkWarnings []docModel.Finding
	pages         []docModel.Page
	extraction    docModel.ExtractionStats
	normalization docModel.NormalizationStats
	chunkCount    int
}

func (s *service) executePersistStep(job *jobModel.Job, log *logger_i.Logger, in persistInput) (jobModel.Job, error) {
	*job = logOutput(*job, jobModel.PersistStage, log)

	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("persist_results", time.Since(start)) }()

	score := quality.AdjustReadiness(in.baseScore, in.chunkWarnings)
	allFindings := append(append([]docModel.Finding{}, in.findings...), in.chunkWarnings...)
	summary := quality.Summarize(allFindings)

	textLength := 0
	for _, page := range in.pages {
		textLength += len(page.Text)
	}

	documentKey := s.artifacts.DocumentKey(job.TenantId, job.DatasetId, job.FileId)
	if err := s.artifacts.WriteJSON(documentKey, docModel.DocumentSnapshot{
		SchemaVersion:  config.SchemaVersion,
		TenantId:       job.TenantId,
		DatasetId:      job.DatasetId,
		FileId:         job.FileId,
		SourceFilename: job.Payload.Filename,
		PageCount:      len(in.pages),
		TextLength:     textLength,
		Extraction:     in.extraction,
		Normalization:  in.normalization,
		Pages:          in.pages,
		CreatedAt:      time.Now().UTC(),
	}); err != nil {
		return *job, err
	}

	qualityKey := s.artifacts.QualityReportKey(job.TenantId, job.DatasetId, job.FileId)
	if err := s.artifacts.WriteJSON(qualityKey, docModel.QualityReport{
		SchemaVersion:  config.SchemaVersion,
		TenantId:       job.TenantId,
		DatasetId:      job.DatasetId,
		FileId:         job.FileId,
		ReadinessScore: score,
		Summary:        summary,
		Findings:       allFindings,
		CreatedAt:      time.Now().UTC(),
	}); err != nil {
		return *job, err
	}

	job.Artifacts.DocumentKey = documentKey
	job.Artifacts.QualityReportKey = qualityKey
	job.ReadinessScore = score
	job.ChunkCount = in.chunkCount
	job.Summary = map[string]int{
		string(docModel.SeverityCritical): summary[docModel.SeverityCritical],
		string(docModel.SeverityWarn):     summary[docModel.SeverityWarn],
		string(docModel.SeverityInfo):     summary[docModel.SeverityInfo],
	}
	job.EndTime = time.Now()
	return *job, nil
}

func (s *service) Search(ctx context.Context, tenantId string, datasetId string, query string, topK int) ([]vectorDB.SearchHit, error) {
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("search", time.Since(start)) }()

	vector, err := s.embedder.GetEmbedding(ctx, query)
	if err != nil {
		return nil, err
	}
	if topK <= 0 {
		topK = config.SearchDefaultTopK
	}
	return s.store.Search(ctx, vector, vectorDB.SearchFilter{TenantId: tenantId, DatasetId: datasetId}, topK)
}

func logOutput(job jobModel.Job, status jobModel.InternalStatus, log *logger_i.Logger) jobModel.Job {
	job.CurrentStep = status
	log.Debug("IngestDocument", "Current Status", job.CurrentStep)
	return job
}

func (s *service) jobError(job jobModel.Job, err error, message string, canRetry bool) jobModel.Job {
	s.logger.Error(message, "error", err)

	job.Error = jobModel.JobError{
		Code:    http.StatusInternalServerError,
		Message: message,
		Retry:   canRetry,
	}
	job.Status = jobModel.JobStatusError
	job.CurrentStep = jobModel.Error
	job.EndTime = time.Now()
	return job
}
