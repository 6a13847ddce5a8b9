package adapter

import (
	"fmt"
	"time"

	"github.com/ragready/pipeline/internal/api"
	"github.com/ragready/pipeline/internal/domain/jobModel"
	"github.com/ragready/pipeline/internal/rag/vectorDB"
)

func ToInitJobResponse(id string) api.InitJobResponse {
	return api.InitJobResponse{
		Id:        id,
		StatusURL: fmt.Sprintf("status/%s", id), //pass "status/job.Id"
	}
}

func ToAPIResponse(job jobModel.Job) api.JobResponse {

	var errorPtr *api.JobOutgoingError
	if job.Error.Message != "" || job.Error.Code != 0 {
		errorPtr = &api.JobOutgoingError{
			Code:    job.Error.Code,
			Message: job.Error.Message,
			Retry:   job.Error.Retry,
		}
	}

	result := api.Result{
		Status:      string(job.Status),
		CurrentStep: string(job.CurrentStep),
		Ingest:      ToIngestResult(job),
	}

	return api.JobResponse{
		Id:        job.Id,
		StartTime: job.CreatedTime,
		EndTime:   job.EndTime,
		Error:     errorPtr,
		Result:    result,
	}
}

func ToIngestResult(job jobModel.Job) *api.IngestResult {
	if job.Status != jobModel.JobStatusComplete {
		return nil
	}

	return &api.IngestResult{
		ReadinessScore:  job.ReadinessScore,
		ChunkCount:      job.ChunkCount,
		FindingsSummary: job.Summary,
		QualityReport:   job.Artifacts.QualityReportKey,
	}
}

func ToSearchResponse(hits []vectorDB.SearchHit) api.SearchResponse {
	out := api.SearchResponse{Hits: make([]api.SearchHit, 0, len(hits))}
	for _, hit := range hits {
		out.Hits = append(out.Hits, api.SearchHit{
			ChunkId: hit.ChunkId,
			DocId:   hit.DocId,
			Text:    hit.Text,
			Page:    hit.Page,
			Score:   hit.Score,
		})
	}
	return out
}

func BadRequest(id string, error string, code int) api.JobResponse {
	return api.JobResponse{
		Id:        id,
		StartTime: time.Time{},
		EndTime:   time.Time{},
		Result: api.Result{
			Status: string(api.JobStatusError),
		},
		Error: &api.JobOutgoingError{
			Code:    code,
			Message: error,
			Retry:   false,
		},
	}
}
