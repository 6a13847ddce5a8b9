package quality

import (
	"github.com/ragready/pipeline/internal/config"
	"github.com/ragready/pipeline/internal/domain/docModel"
)

// severityDeductions is the base table applied to findings produced by the
// quality-check stage.
var severityDeductions = map[docModel.Severity]int{
	docModel.SeverityCritical: config.DeductCritical,
	docModel.SeverityWarn:     config.DeductWarn,
	docModel.SeverityInfo:     config.DeductInfo,
}

// ComputeReadiness scores a document's fitness for retrieval from its
// findings: start at 100, subtract the per-severity deduction for every
// finding, clamp to [0,100].
func ComputeReadiness(findings []docModel.Finding) int {
	score := 100
	for _, finding := range findings {
		score -= severityDeductions[finding.Severity]
	}
	return clamp(score)
}

// AdjustReadiness applies segmentation-quality warnings that arrive after the
// base score was computed. These use a deliberately smaller deduction than
// the base table: 3 per WARN, other severities ignored. The two tables are
// independent on purpose; do not unify them.
func AdjustReadiness(baseScore int, extraFindings []docModel.Finding) int {
	score := baseScore
	for _, finding := range extraFindings {
		if finding.Severity == docModel.SeverityWarn {
			score -= config.AdjustDeductWarn
		}
	}
	return clamp(score)
}

// Summarize counts findings per severity. All three keys are always present.
func Summarize(findings []docModel.Finding) map[docModel.Severity]int {
	summary := map[docModel.Severity]int{
		docModel.SeverityCritical: 0,
		docModel.SeverityWarn:     0,
		docModel.SeverityInfo:     0,
	}
	for _, finding := range findings {
		if _, known := summary[finding.Severity]; known {
			summary[finding.Severity]++
		}
	}
	return summary
}

func clamp(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
