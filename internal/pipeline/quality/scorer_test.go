package quality

import (
	"testing"

	"github.com/ragready/pipeline/internal/domain/docModel"
)

func findingsOf(severities ...docModel.Severity) []docModel.Finding {
	var findings []docModel.Finding
	for _, severity := range severities {
		findings = append(findings, docModel.Finding{Type: "TEST", Severity: severity})
	}
	return findings
}

func TestComputeReadiness(t *testing.T) {
	tests := []struct {
		name     string
		findings []docModel.Finding
		expected int
	}{
		{"no findings", nil, 100},
		{"single info", findingsOf(docModel.SeverityInfo), 95},
		{"single warn", findingsOf(docModel.SeverityWarn), 85},
		{"single critical", findingsOf(docModel.SeverityCritical), 60},
		{"mixed", findingsOf(docModel.SeverityCritical, docModel.SeverityWarn, docModel.SeverityInfo), 40},
		{"clamped at zero", findingsOf(docModel.SeverityCritical, docModel.SeverityCritical, docModel.SeverityCritical), 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := ComputeReadiness(tc.findings)
			if got != tc.expected {
				t.Errorf("ComputeReadiness() = %d, expected %d", got, tc.expected)
			}
		})
	}
}

func TestComputeReadiness_MoreFindingsNeverScoreHigher(t *testing.T) {
	base := findingsOf(docModel.SeverityWarn, docModel.SeverityInfo)
	baseScore := ComputeReadiness(base)
	extended := append(base, docModel.Finding{Type: "TEST", Severity: docModel.SeverityWarn})
	if got := ComputeReadiness(extended); got > baseScore {
		t.Errorf("score rose from %d to %d after adding a finding", baseScore, got)
	}
}

func TestAdjustReadiness(t *testing.T) {
	tests := []struct {
		name     string
		base     int
		extra    []docModel.Finding
		expected int
	}{
		{"no extra findings", 90, nil, 90},
		{"one warn", 90, findingsOf(docModel.SeverityWarn), 87},
		{"three warns", 90, findingsOf(docModel.SeverityWarn, docModel.SeverityWarn, docModel.SeverityWarn), 81},
		{"critical and info ignored", 90, findingsOf(docModel.SeverityCritical, docModel.SeverityInfo), 90},
		{"clamped at zero", 2, findingsOf(docModel.SeverityWarn), 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := AdjustReadiness(tc.base, tc.extra)
			if got != tc.expected {
				t.Errorf("AdjustReadiness(%d) = %d, expected %d", tc.base, got, tc.expected)
			}
		})
	}
}

func TestSummarize_AllKeysAlwaysPresent(t *testing.T) {
	summary := Summarize(nil)
	for _, severity := range []docModel.Severity{docModel.SeverityCritical, docModel.SeverityWarn, docModel.SeverityInfo} {
		count, ok := summary[severity]
		if !ok {
			t.Errorf("missing severity key %q", severity)
		}
		if count != 0 {
			t.Errorf("severity %q count = %d, expected 0", severity, count)
		}
	}
}

func TestSummarize_Counts(t *testing.T) {
	findings := findingsOf(
		docModel.SeverityWarn,
		docModel.SeverityWarn,
		docModel.SeverityInfo,
		docModel.SeverityCritical,
	)
	summary := Summarize(findings)
	if summary[docModel.SeverityCritical] != 1 || summary[docModel.SeverityWarn] != 2 || summary[docModel.SeverityInfo] != 1 {
		t.Errorf("unexpected summary: %v", summary)
	}
}
