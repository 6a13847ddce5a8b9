package handlers

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ragready/pipeline/internal/api"
	"github.com/ragready/pipeline/internal/config"
	"github.com/ragready/pipeline/internal/data/artifacts"
	"github.com/ragready/pipeline/internal/domain/docModel"
	"github.com/ragready/pipeline/internal/domain/jobModel"
	"github.com/ragready/pipeline/internal/job"
	"github.com/ragready/pipeline/internal/metrics"
	"github.com/ragready/pipeline/internal/pipeline"
	"github.com/ragready/pipeline/internal/rag/vectorDB"
	"github.com/ragready/pipeline/pkg/logger_i"
)

var (
	handlerInstance *JobHandler //private singleton
	once            sync.Once
	logJH           *logger_i.Logger
)

type JobHandler struct {
	service         *job.Service
	artifacts       *artifacts.Store
	pipelineService pipeline.Service
}

func InitJobHandler(jobService *job.Service, art *artifacts.Store, pipelineService pipeline.Service) {
	once.Do(func() {
		handlerInstance = &JobHandler{
			service:         jobService,
			artifacts:       art,
			pipelineService: pipelineService,
		}

		logJH = logger_i.NewLogger("JobHandler")
		logRH = logger_i.NewLogger("RequestHandler")
		logJH.Info("Starting job handler")
	})

}

func CreateNewJob(newJob newJobData) {
	logJH.With("traceId", newJob.traceId, "job id", newJob.id)
	logJH.Info("To create new job")
	handlerInstance.registerUpload(newJob)
	handlerInstance.pushToJobChannel(newJob)
}

func GetJobStatus(id string, traceId string) (result jobModel.Job, isFound bool) {
	ctxC := context.WithValue(context.Background(), config.TRACE_ID_KEY, traceId)
	if handlerInstance != nil {
		return handlerInstance.service.JobStore.GetJob(ctxC, id)
	}
	return result, false
}

// private methods
func (h *JobHandler) pushToJobChannel(newJob newJobData) {

	_job := jobModel.Job{}
	_job.Id = newJob.id
	_job.CreatedTime = time.Now()
	_job.TraceId = newJob.traceId
	_job.Status = jobModel.JobStatusQueued
	_job.CurrentStep = jobModel.IngestInit
	_job.TenantId = newJob.tenantId
	_job.DatasetId = newJob.datasetId
	_job.FileId = newJob.id
	_job.Payload.Filename = newJob.filename
	_job.Payload.SourcePath = newJob.sourceURI
	_job.Payload.RawSha256 = newJob.rawSha256

	//metrics
	metrics.IncrementJobsInQueue()

	h.service.JobChannel <- _job //this is a blocking send to prevent the system from being overwhelmed
	logJH.Info("Created new job")

	//every ingestion job gets a dispatcher signal - extraction and embedding
	//involve external calls that can hold a worker for a while, and idle
	//workers retire on their own
	atomic.AddInt64(&h.service.RequestCount, 1)
	metrics.StartDispatcherSignalCount() //metrics
	h.service.DispatcherChannel <- true
}

// registerUpload records the file in the tenant index so duplicate checks
// can see it. Registration failure is logged, not fatal: the pipeline can
// still run, it just can't flag this upload for later files.
func (h *JobHandler) registerUpload(newJob newJobData) {
	ctxC := context.WithValue(context.Background(), config.TRACE_ID_KEY, newJob.traceId)
	entry := docModel.FileEntry{
		FileId:    newJob.id,
		Filename:  newJob.filename,
		RawSha256: newJob.rawSha256,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}
	if err := h.service.FileIndex.RegisterFile(ctxC, newJob.tenantId, entry); err != nil {
		logJH.Error("Error registering upload", "fileId", newJob.id, "err", err)
	}
}

func (h *JobHandler) readQualityReport(key string) (docModel.QualityReport, error) {
	var report docModel.QualityReport
	err := h.artifacts.ReadJSON(key, &report)
	return report, err
}

func (h *JobHandler) search(ctx context.Context, req api.SearchRequest) ([]vectorDB.SearchHit, error) {
	return h.pipelineService.Search(ctx, req.TenantId, req.DatasetId, req.Query, req.TopK)
}
