package api

import "time"

type JobExternalStatus string

const (
	JobStatusError JobExternalStatus = "Error"
)

type JobResponse struct {
	Id        string            `json:"id" example:"job_cz109"`
	Result    Result            `json:"result"`
	Error     *JobOutgoingError `json:"error,omitempty"`
	StartTime time.Time         `json:"start_time"`
	EndTime   time.Time         `json:"end_time,omitempty"`
}

type JobOutgoingError struct {
	Code    int    `json:"code" example:"400"`
	Message string `json:"message" example:"Job not found"`
	Retry   bool   `json:"can_retry" example:"false"`
}

// IngestResult carries the pipeline outputs once a job completes.
type IngestResult struct {
	ReadinessScore  int            `json:"readiness_score"`
	ChunkCount      int            `json:"chunk_count"`
	FindingsSummary map[string]int `json:"findings_summary,omitempty"`
	QualityReport   string         `json:"quality_report,omitempty"`
}

type Result struct {
	Status      string        `json:"status"`
	CurrentStep string        `json:"current_step,omitempty"`
	Ingest      *IngestResult `json:"ingest,omitempty"`
}

type InitJobResponse struct {
	Id        string `json:"id"`
	StatusURL string `json:"status_url"`
}

// requests---------------------

type JobStatusRequest struct {
	JobId string `json:"job_id" validate:"required"`
}

type SearchRequest struct {
	TenantId  string `json:"tenant_id" validate:"required"`
	DatasetId string `json:"dataset_id,omitempty"`
	Query     string `json:"query" validate:"required"`
	TopK      int    `json:"top_k,omitempty"`
}

type SearchHit struct {
	ChunkId string  `json:"chunk_id"`
	DocId   string  `json:"doc_id"`
	Text    string  `json:"text"`
	Page    int     `json:"page"`
	Score   float32 `json:"score"`
}

type SearchResponse struct {
	Hits []SearchHit `json:"hits"`
}
