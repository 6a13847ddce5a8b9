// Package quality inspects an ingested document and produces advisory
// findings plus a readiness score. Findings are data, never errors: a
// document full of problems still ingests, it just scores low.
package quality

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ragready/pipeline/internal/config"
	"github.com/ragready/pipeline/internal/domain/docModel"
	"github.com/ragready/pipeline/internal/pipeline/metadata"
	"github.com/ragready/pipeline/internal/pipeline/simhash"
)

// FileIndex is the per-tenant lookup the duplicate detector consults. The
// Redis store implements it; tests use the in-memory variant.
type FileIndex interface {
	QueryByRawHash(ctx context.Context, tenantId string, rawSha256 string) ([]docModel.FileEntry, error)
	RecentFiles(ctx context.Context, tenantId string, limit int) ([]docModel.FileEntry, error)
	SaveFingerprint(ctx context.Context, tenantId string, fileId string, fingerprint uint64) error
}

// CheckInput bundles everything the quality checks look at for one document.
type CheckInput struct {
	TenantId    string
	FileId      string
	Filename    string
	RawSha256   string
	CleanedText string
	Extraction  docModel.ExtractionStats
	Norm        docModel.NormalizationStats
}

var revisionToken = regexp.MustCompile(`(?i)\b(?:rev|revision|issue)[ ._-]?([a-z0-9]+)\b|\bv(\d+(?:\.\d+)*)\b`)
var datePattern = regexp.MustCompile(`\b(?:20\d{2}[-/.]\d{1,2}[-/.]\d{1,2}|\d{1,2}[-/.]\d{1,2}[-/.]20\d{2})\b`)

// Run executes every check against the document, persists the new simhash
// fingerprint for future comparisons, and returns the collected findings.
// Index lookup failures abort the run; individual checks never do.
func Run(ctx context.Context, index FileIndex, input CheckInput) ([]docModel.Finding, error) {
	var findings []docModel.Finding

	exact, err := checkExactDuplicate(ctx, index, input)
	if err != nil {
		return nil, err
	}
	if exact != nil {
		findings = append(findings, *exact)
	}

	fingerprint := simhash.Fingerprint(input.CleanedText)
	near, recent, err := checkNearDuplicate(ctx, index, input, fingerprint)
	if err != nil {
		return nil, err
	}
	if near != nil {
		findings = append(findings, *near)
	}

	if err := index.SaveFingerprint(ctx, input.TenantId, input.FileId, fingerprint); err != nil {
		return nil, err
	}

	checks := []func(CheckInput) *docModel.Finding{
		checkLowTextVolume,
		checkNonAlphaRatio,
		checkRepeatedLines,
		checkHeaderFooterRemoval,
		checkRevisionMetadata,
		checkStandardsReferenced,
	}
	for _, check := range checks {
		if finding := check(input); finding != nil {
			findings = append(findings, *finding)
		}
	}

	if finding := checkSupersededVersion(input, recent); finding != nil {
		findings = append(findings, *finding)
	}

	return findings, nil
}

// checkExactDuplicate compares the raw file hash against the tenant's other
// files. Any match is CRITICAL and lists every matching file id.
func checkExactDuplicate(ctx context.Context, index FileIndex, input CheckInput) (*docModel.Finding, error) {
	if input.RawSha256 == "" {
		return nil, nil
	}
	matches, err := index.QueryByRawHash(ctx, input.TenantId, input.RawSha256)
	if err != nil {
		return nil, fmt.Errorf("duplicate hash lookup failed: %w", err)
	}
	var matchingIds []string
	for _, entry := range matches {
		if entry.FileId != input.FileId {
			matchingIds = append(matchingIds, entry.FileId)
		}
	}
	if len(matchingIds) == 0 {
		return nil, nil
	}
	return &docModel.Finding{
		Type:           "EXACT_DUPLICATE",
		Severity:       docModel.SeverityCritical,
		Description:    "Exact duplicate detected based on raw file hash.",
		Evidence:       map[string]any{"matchingFileIds": matchingIds},
		Recommendation: "Remove duplicates or keep the most complete copy.",
	}, nil
}

// checkNearDuplicate compares the document fingerprint against the tenant's
// most recent files only. The bounded window trades completeness for cost:
// duplicates of older files go undetected by design.
func checkNearDuplicate(ctx context.Context, index FileIndex, input CheckInput, fingerprint uint64) (*docModel.Finding, []docModel.FileEntry, error) {
	recent, err := index.RecentFiles(ctx, input.TenantId, config.RecentFileWindow)
	if err != nil {
		return nil, nil, fmt.Errorf("recent file lookup failed: %w", err)
	}

	type match struct {
		FileId   string `json:"fileId"`
		Distance int    `json:"distance"`
	}
	var matches []match
	for _, entry := range recent {
		if entry.FileId == input.FileId || entry.Simhash == 0 {
			continue
		}
		distance := simhash.Distance(fingerprint, entry.Simhash)
		if distance <= config.NearDuplicateMaxDistance {
			matches = append(matches, match{FileId: entry.FileId, Distance: distance})
		}
	}
	if len(matches) == 0 {
		return nil, recent, nil
	}
	if len(matches) > config.NearDuplicateEvidenceCap {
		matches = matches[:config.NearDuplicateEvidenceCap]
	}
	return &docModel.Finding{
		Type:           "NEAR_DUPLICATE",
		Severity:       docModel.SeverityWarn,
		Description:    "Near duplicate detected based on text fingerprint.",
		Evidence:       map[string]any{"matches": matches},
		Recommendation: "Review similar files to reduce redundancy.",
	}, recent, nil
}

func checkLowTextVolume(input CheckInput) *docModel.Finding {
	if input.Extraction.TextLength >= 300 {
		return nil
	}
	return &docModel.Finding{
		Type:           "LOW_TEXT_VOLUME",
		Severity:       docModel.SeverityWarn,
		Description:    "Extracted text is very short.",
		Evidence:       map[string]any{"textLength": input.Extraction.TextLength},
		Recommendation: "Verify the PDF has selectable text or re-export it.",
	}
}

func checkNonAlphaRatio(input CheckInput) *docModel.Finding {
	if input.Extraction.NonAlphaRatio <= 0.5 {
		return nil
	}
	return &docModel.Finding{
		Type:           "HIGH_NON_ALPHA_RATIO",
		Severity:       docModel.SeverityWarn,
		Description:    "Extracted text contains a high ratio of non-alphanumeric characters.",
		Evidence:       map[string]any{"nonAlphaRatio": input.Extraction.NonAlphaRatio},
		Recommendation: "Clean formatting artifacts or re-export the PDF.",
	}
}

func checkRepeatedLines(input CheckInput) *docModel.Finding {
	if input.Extraction.RepeatedLineRatio <= 0.4 {
		return nil
	}
	return &docModel.Finding{
		Type:           "REPEATED_LINES",
		Severity:       docModel.SeverityWarn,
		Description:    "Repeated lines suggest header/footer noise.",
		Evidence:       map[string]any{"repeatedLineRatio": input.Extraction.RepeatedLineRatio},
		Recommendation: "Remove recurring headers or footers and reprocess.",
	}
}

func checkHeaderFooterRemoval(input CheckInput) *docModel.Finding {
	if len(input.Norm.RemovedHeaderLines) == 0 && len(input.Norm.RemovedFooterLines) == 0 {
		return nil
	}
	return &docModel.Finding{
		Type:        "HEADER_FOOTER_REMOVAL",
		Severity:    docModel.SeverityInfo,
		Description: "Repeated headers or footers were removed during normalization.",
		Evidence: map[string]any{
			"headers": input.Norm.RemovedHeaderLines,
			"footers": input.Norm.RemovedFooterLines,
		},
		Recommendation: "Review the cleaned output to ensure important data was preserved.",
	}
}

// checkRevisionMetadata flags documents whose filename and opening text carry
// neither a revision token nor a date: hard to tell apart from later issues.
func checkRevisionMetadata(input CheckInput) *docModel.Finding {
	sample := input.CleanedText
	if len(sample) > 2000 {
		sample = sample[:2000]
	}
	if revisionToken.MatchString(input.Filename) || revisionToken.MatchString(sample) {
		return nil
	}
	if datePattern.MatchString(input.Filename) || datePattern.MatchString(sample) {
		return nil
	}
	return &docModel.Finding{
		Type:           "MISSING_REVISION_METADATA",
		Severity:       docModel.SeverityInfo,
		Description:    "No revision token or date found in the filename or opening text.",
		Evidence:       map[string]any{"filename": input.Filename},
		Recommendation: "Include a revision or issue date so superseded copies can be identified.",
	}
}

func checkStandardsReferenced(input CheckInput) *docModel.Finding {
	standards := metadata.ExtractStandards(input.CleanedText)
	if len(standards) == 0 {
		return nil
	}
	if len(standards) > 10 {
		standards = standards[:10]
	}
	return &docModel.Finding{
		Type:           "STANDARDS_REFERENCED",
		Severity:       docModel.SeverityInfo,
		Description:    "Document references recognized industry standards.",
		Evidence:       map[string]any{"standards": standards},
		Recommendation: "",
	}
}

// checkSupersededVersion looks for an earlier upload sharing this file's base
// name but carrying a different revision token.
func checkSupersededVersion(input CheckInput, recent []docModel.FileEntry) *docModel.Finding {
	base, rev := splitRevision(input.Filename)
	if rev == "" {
		return nil
	}
	var superseded []string
	for _, entry := range recent {
		if entry.FileId == input.FileId {
			continue
		}
		otherBase, otherRev := splitRevision(entry.Filename)
		if otherBase == base && otherRev != "" && otherRev != rev {
			superseded = append(superseded, entry.FileId)
		}
	}
	if len(superseded) == 0 {
		return nil
	}
	return &docModel.Finding{
		Type:           "SUPERSEDED_VERSION",
		Severity:       docModel.SeverityWarn,
		Description:    "An earlier upload shares this filename with a different revision token.",
		Evidence:       map[string]any{"supersededFileIds": superseded, "revision": rev},
		Recommendation: "Remove superseded revisions to avoid retrieving stale content.",
	}
}

// splitRevision separates a filename into its revision-free base and the
// revision token, if any.
func splitRevision(filename string) (base string, rev string) {
	name := strings.TrimSuffix(filename, filepath.Ext(filename))
	match := revisionToken.FindStringSubmatch(name)
	if match == nil {
		return strings.ToLower(name), ""
	}
	rev = match[1]
	if rev == "" {
		rev = match[2]
	}
	base = strings.ToLower(strings.TrimSpace(revisionToken.ReplaceAllString(name, "")))
	base = strings.Trim(base, " ._-")
	return base, strings.ToLower(rev)
}
