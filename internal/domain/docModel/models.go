package docModel

import "time"

// Page is the ephemeral unit of extracted text handed to the pipeline,
// ordered by number.
type Page struct {
	Number int    `json:"pageNumber"`
	Text   string `json:"text"`
}

// PageRange records the first and last page contributing to a chunk.
type PageRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Chunk is a length-bounded slice of document text produced by the segmenter.
// Length stays at or below the configured max except possibly for the final
// chunk of a document.
type Chunk struct {
	Text      string    `json:"text"`
	PageRange PageRange `json:"pageRange"`
	Length    int       `json:"length"`
}

// ChunkRecord is the persisted form of a chunk, one JSON object per line in
// the chunks artifact. ChunkId and ContentHash are pure functions of the
// identity fields and text.
type ChunkRecord struct {
	TenantId       string   `json:"tenant_id"`
	DatasetId      string   `json:"dataset_id"`
	DocId          string   `json:"doc_id"`
	ChunkId        string   `json:"chunk_id"`
	ChunkIndex     int      `json:"chunk_index"`
	SourceUri      string   `json:"source_uri"`
	Filename       string   `json:"filename"`
	Page           int      `json:"page"`
	Text           string   `json:"text"`
	CreatedAt      string   `json:"created_at"`
	EmbeddingModel string   `json:"embedding_model"`
	ContentHash    string   `json:"content_hash"`
	Acl            []string `json:"acl"`

	//legacy records carried the id under this key before the schema settled
	LegacyChunkId string `json:"chunkId,omitempty"`

	//optional enrichment written at chunk time, preserved by row-level upserts
	DocType             string   `json:"doc_type,omitempty"`
	DocTypeConfidence   float64  `json:"doc_type_confidence,omitempty"`
	Discipline          string   `json:"discipline,omitempty"`
	SectionReference    string   `json:"section_reference,omitempty"`
	StandardsReferenced []string `json:"standards_referenced,omitempty"`
}

type Severity string

const (
	SeverityCritical Severity = "CRITICAL"
	SeverityWarn     Severity = "WARN"
	SeverityInfo     Severity = "INFO"
)

// Finding is a single advisory observation. Findings are returned as data,
// folded into the quality report, never raised as errors.
type Finding struct {
	Type           string         `json:"type"`
	Severity       Severity       `json:"severity"`
	Description    string         `json:"description"`
	Evidence       map[string]any `json:"evidence,omitempty"`
	Recommendation string         `json:"recommendation,omitempty"`
}

// QualityReport is the write-once snapshot of a quality-check run.
type QualityReport struct {
	SchemaVersion  string           `json:"schemaVersion"`
	TenantId       string           `json:"tenantId"`
	DatasetId      string           `json:"datasetId"`
	FileId         string           `json:"fileId"`
	ReadinessScore int              `json:"readinessScore"`
	Summary        map[Severity]int `json:"summary"`
	Findings       []Finding        `json:"findings"`
	CreatedAt      time.Time        `json:"createdAt"`
}

// DocumentSnapshot is the persisted per-document artifact: cleaned pages
// plus the stats the pipeline gathered along the way.
type DocumentSnapshot struct {
	SchemaVersion  string             `json:"schemaVersion"`
	TenantId       string             `json:"tenantId"`
	DatasetId      string             `json:"datasetId"`
	FileId         string             `json:"fileId"`
	SourceFilename string             `json:"sourceFilename"`
	PageCount      int                `json:"pageCount"`
	TextLength     int                `json:"textLength"`
	Extraction     ExtractionStats    `json:"extraction"`
	Normalization  NormalizationStats `json:"normalization"`
	Pages          []Page             `json:"pages"`
	CreatedAt      time.Time          `json:"createdAt"`
}

// FileEntry is what the tenant file index retains per upload: enough to run
// exact and near duplicate comparisons against later files.
type FileEntry struct {
	FileId    string `json:"fileId"`
	Filename  string `json:"filename"`
	RawSha256 string `json:"rawSha256"`
	Simhash   uint64 `json:"simhash"`
	CreatedAt string `json:"createdAt"`
}

// ExtractionStats summarizes the extracted text ahead of quality checks.
type ExtractionStats struct {
	TextLength        int     `json:"textLength"`
	PageCount         int     `json:"pageCount"`
	NonAlphaRatio     float64 `json:"nonAlphaRatio"`
	RepeatedLineRatio float64 `json:"repeatedLineRatio"`
}

// NormalizationStats records what page cleanup removed.
type NormalizationStats struct {
	RemovedHeaderLines      []string `json:"removedHeaderLines"`
	RemovedFooterLines      []string `json:"removedFooterLines"`
	RemovedBoilerplateLines []string `json:"removedBoilerplateLines"`
	HeaderFooterConfidence  float64  `json:"headerFooterConfidence"`
}
