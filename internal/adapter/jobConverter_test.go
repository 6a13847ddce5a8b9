package adapter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ragready/pipeline/internal/domain/jobModel"
	"github.com/ragready/pipeline/internal/rag/vectorDB"
)

func TestToAPIResponse_RunningJob(t *testing.T) {
	job := jobModel.Job{
		Id:          "job-1",
		Status:      jobModel.JobStatusRunning,
		CurrentStep: jobModel.ChunkStage,
	}

	resp := ToAPIResponse(job)

	assert.Equal(t, "job-1", resp.Id)
	assert.Equal(t, string(jobModel.JobStatusRunning), resp.Result.Status)
	assert.Equal(t, string(jobModel.ChunkStage), resp.Result.CurrentStep)
	assert.Nil(t, resp.Error, "a running job has no error")
	assert.Nil(t, resp.Result.Ingest, "ingest results only appear on completed jobs")
}

func TestToAPIResponse_CompletedJob(t *testing.T) {
	job := jobModel.Job{
		Id:             "job-2",
		Status:         jobModel.JobStatusComplete,
		CurrentStep:    jobModel.Complete,
		ReadinessScore: 82,
		ChunkCount:     14,
		Summary:        map[string]int{"WARN": 1, "INFO": 2, "CRITICAL": 0},
		Artifacts:      jobModel.Artifacts{QualityReportKey: "processed/t/d/f/quality_report.json"},
	}

	resp := ToAPIResponse(job)

	require.NotNil(t, resp.Result.Ingest)
	assert.Equal(t, 82, resp.Result.Ingest.ReadinessScore)
	assert.Equal(t, 14, resp.Result.Ingest.ChunkCount)
	assert.Equal(t, 1, resp.Result.Ingest.FindingsSummary["WARN"])
	assert.Equal(t, "processed/t/d/f/quality_report.json", resp.Result.Ingest.QualityReport)
}

func TestToAPIResponse_FailedJob(t *testing.T) {
	job := jobModel.Job{
		Id:     "job-3",
		Status: jobModel.JobStatusError,
		Error: jobModel.JobError{
			Code:    500,
			Message: "VECTOR_INGEST_FAILURE",
			Retry:   true,
		},
	}

	resp := ToAPIResponse(job)

	require.NotNil(t, resp.Error)
	assert.Equal(t, 500, resp.Error.Code)
	assert.Equal(t, "VECTOR_INGEST_FAILURE", resp.Error.Message)
	assert.True(t, resp.Error.Retry)
	assert.Nil(t, resp.Result.Ingest)
}

func TestToSearchResponse(t *testing.T) {
	hits := []vectorDB.SearchHit{
		{ChunkId: "doc-1#p2#c0", DocId: "doc-1", Text: "anchor bolts", Page: 2, Score: 0.91},
	}

	resp := ToSearchResponse(hits)

	require.Len(t, resp.Hits, 1)
	assert.Equal(t, "doc-1#p2#c0", resp.Hits[0].ChunkId)
	assert.Equal(t, 2, resp.Hits[0].Page)
	assert.InDelta(t, 0.91, resp.Hits[0].Score, 1e-6)
}

func TestToSearchResponse_Empty(t *testing.T) {
	resp := ToSearchResponse(nil)
	assert.NotNil(t, resp.Hits, "hits serializes as [] rather than null")
	assert.Empty(t, resp.Hits)
}
