package jobModel

import (
	"context"
	"time"

	"github.com/ragready/pipeline/internal/domain/docModel"
)

type JobStatus string
type InternalStatus string

const (
	JobStatusQueued   JobStatus = "QUEUED"
	JobStatusRunning  JobStatus = "RUNNING"
	JobStatusComplete JobStatus = "COMPLETE"
	JobStatusError    JobStatus = "Error"

	IngestInit     InternalStatus = "IngestInit"
	ExtractStage   InternalStatus = "Extract"
	NormalizeStage InternalStatus = "Normalize"
	QualityStage   InternalStatus = "QualityChecks"
	ChunkStage     InternalStatus = "Chunk"
	IndexStage     InternalStatus = "VectorIndex"
	PersistStage   InternalStatus = "PersistResults"
	Error          InternalStatus = "Error"
	Complete       InternalStatus = "Complete"
)

type Job struct {
	Id          string         `json:"id"`
	TraceId     string         `json:"trace_id"`
	TenantId    string         `json:"tenant_id"`
	DatasetId   string         `json:"dataset_id"`
	FileId      string         `json:"file_id"`
	Payload     JobPayload     `json:"job_payload"`
	Error       JobError       `json:"error,omitempty"`
	CreatedTime time.Time      `json:"created_time"`
	EndTime     time.Time      `json:"end_time,omitempty"`
	Status      JobStatus      `json:"status"`
	CurrentStep InternalStatus `json:"current_step"`

	ReadinessScore int            `json:"readiness_score,omitempty"`
	ChunkCount     int            `json:"chunk_count,omitempty"`
	Artifacts      Artifacts      `json:"artifacts,omitempty"`
	Summary        map[string]int `json:"findings_summary,omitempty"`
}

type JobError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Retry   bool   `json:"retry"`
}

type JobPayload struct {
	Filename   string `json:"filename,omitempty"`
	SourcePath string `json:"source_path,omitempty"`
	RawSha256  string `json:"raw_sha256,omitempty"`
}

// Artifacts records where a completed run left its outputs.
type Artifacts struct {
	ChunksKey        string `json:"chunks_key,omitempty"`
	QualityReportKey string `json:"quality_report_key,omitempty"`
	DocumentKey      string `json:"document_key,omitempty"`
}

type JobStore interface {
	GetJob(ctx context.Context, jobId string) (Job, bool)
	SaveJob(ctx context.Context, job Job) error
	DeleteJob(ctx context.Context, jobID string)
}

// FileIndex is the tenant-scoped file registry backing duplicate detection.
type FileIndex interface {
	RegisterFile(ctx context.Context, tenantId string, entry docModel.FileEntry) error
	QueryByRawHash(ctx context.Context, tenantId string, rawSha256 string) ([]docModel.FileEntry, error)
	RecentFiles(ctx context.Context, tenantId string, limit int) ([]docModel.FileEntry, error)
	SaveFingerprint(ctx context.Context, tenantId string, fileId string, fingerprint uint64) error
}
