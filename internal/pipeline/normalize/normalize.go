// Package normalize cleans extracted page text before quality checks and
// segmentation: whitespace normalization, abbreviation-aware dehyphenation,
// and removal of repeated headers, footers and boilerplate lines.
package normalize

import (
	"regexp"
	"strings"

	"github.com/ragready/pipeline/internal/domain/docModel"
	"github.com/ragready/pipeline/internal/pipeline/metadata"
)

var (
	hSpaceRun       = regexp.MustCompile(`[ \t]+`)
	blankLineRun    = regexp.MustCompile(`\n{3,}`)
	lineBreakHyphen = regexp.MustCompile(`([A-Za-z])-\n([A-Za-z])`)
	standardPrefix  = regexp.MustCompile(`(?i)\b(AS|NZS|BCA|NCC)\s*[-/]?\s*$`)
	nonAlphaNum     = regexp.MustCompile(`[^A-Za-z0-9\s]`)
)

// Whitespace normalizes line endings, collapses horizontal whitespace runs
// and caps consecutive blank lines, preserving paragraph structure.
func Whitespace(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = hSpaceRun.ReplaceAllString(text, " ")
	text = blankLineRun.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// Dehyphenate joins words split by a hyphen at a line break, leaving known
// construction abbreviations and standard references (AS-NZS etc.) alone.
func Dehyphenate(text string) string {
	return lineBreakHyphen.ReplaceAllStringFunc(text, func(match string) string {
		sub := lineBreakHyphen.FindStringSubmatchIndex(match)
		before := match[sub[2]:sub[3]]
		after := match[sub[4]:sub[5]]

		start := strings.Index(text, match)
		if start >= 0 {
			contextStart := start - 10
			if contextStart < 0 {
				contextStart = 0
			}
			if standardPrefix.MatchString(strings.ToUpper(text[contextStart : start+1])) {
				return match
			}
		}

		combined := strings.ToUpper(before + after)
		for abbr := range metadata.ProtectedAbbreviations {
			if strings.Contains(combined, abbr) || strings.Contains(abbr, combined) {
				return match
			}
		}
		return before + after
	})
}

// SplitLines returns the trimmed non-empty lines of the text.
func SplitLines(text string) []string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	return lines
}

// DetectHeadersFooters finds lines recurring at the top or bottom of most
// pages. The returned confidence grows with the number of detected lines.
func DetectHeadersFooters(pages []docModel.Page, lineCount int) (headers []string, footers []string, confidence float64) {
	if len(pages) == 0 {
		return nil, nil, 0.0
	}

	headerCounts := make(map[string]int)
	footerCounts := make(map[string]int)
	for _, page := range pages {
		lines := SplitLines(page.Text)
		if len(lines) == 0 {
			continue
		}
		top := lines
		if len(top) > lineCount {
			top = lines[:lineCount]
		}
		bottom := lines
		if len(bottom) > lineCount {
			bottom = lines[len(lines)-lineCount:]
		}
		for _, line := range top {
			headerCounts[line]++
		}
		for _, line := range bottom {
			footerCounts[line]++
		}
	}

	threshold := len(pages) * 6 / 10
	if threshold < 2 {
		threshold = 2
	}
	for line, count := range headerCounts {
		if count >= threshold && len(line) > 3 {
			headers = append(headers, line)
		}
	}
	for line, count := range footerCounts {
		if count >= threshold && len(line) > 3 {
			footers = append(footers, line)
		}
	}

	if len(headers) > 0 || len(footers) > 0 {
		confidence = float64(len(headers)+len(footers)) / float64(len(pages))
		if confidence > 1.0 {
			confidence = 1.0
		}
	}
	return headers, footers, confidence
}

// DetectBoilerplate finds lines repeated across a large share of pages,
// counting each line once per page.
func DetectBoilerplate(pages []docModel.Page, thresholdRatio float64) []string {
	if len(pages) == 0 {
		return nil
	}
	counts := make(map[string]int)
	for _, page := range pages {
		seen := make(map[string]struct{})
		for _, line := range SplitLines(page.Text) {
			if _, dup := seen[line]; dup {
				continue
			}
			seen[line] = struct{}{}
			counts[line]++
		}
	}
	threshold := int(float64(len(pages)) * thresholdRatio)
	if threshold < 2 {
		threshold = 2
	}
	var boilerplate []string
	for line, count := range counts {
		if count >= threshold && len(line) > 4 {
			boilerplate = append(boilerplate, line)
		}
	}
	return boilerplate
}

// RemoveLines drops every occurrence of the given lines from the text.
func RemoveLines(text string, linesToRemove []string) string {
	if len(linesToRemove) == 0 {
		return text
	}
	remove := make(map[string]struct{}, len(linesToRemove))
	for _, line := range linesToRemove {
		remove[line] = struct{}{}
	}
	var kept []string
	for _, line := range SplitLines(text) {
		if _, drop := remove[line]; !drop {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}

// ExtractionStats summarizes the extracted text for the quality checks.
func ExtractionStats(pages []docModel.Page) docModel.ExtractionStats {
	var builder strings.Builder
	for i, page := range pages {
		if i > 0 {
			builder.WriteString("\n")
		}
		builder.WriteString(page.Text)
	}
	fullText := builder.String()

	stats := docModel.ExtractionStats{
		TextLength: len(fullText),
		PageCount:  len(pages),
	}

	if stats.TextLength > 0 {
		nonAlpha := len(nonAlphaNum.FindAllString(fullText, -1))
		stats.NonAlphaRatio = float64(nonAlpha) / float64(stats.TextLength)
	} else {
		stats.NonAlphaRatio = 1.0
	}

	lines := SplitLines(fullText)
	if len(lines) > 0 {
		unique := make(map[string]struct{}, len(lines))
		for _, line := range lines {
			unique[line] = struct{}{}
		}
		stats.RepeatedLineRatio = 1.0 - float64(len(unique))/float64(len(lines))
	}
	return stats
}

// Pages runs the full normalization pass: per-page cleanup, header/footer and
// boilerplate removal, and returns the cleaned pages with removal stats.
func Pages(pages []docModel.Page) ([]docModel.Page, docModel.NormalizationStats) {
	cleaned := make([]docModel.Page, 0, len(pages))
	for _, page := range pages {
		text := Dehyphenate(page.Text)
		text = Whitespace(text)
		cleaned = append(cleaned, docModel.Page{Number: page.Number, Text: text})
	}

	headers, footers, confidence := DetectHeadersFooters(cleaned, 2)
	boilerplate := DetectBoilerplate(cleaned, 0.7)

	toRemove := append(append(append([]string{}, headers...), footers...), boilerplate...)
	normalized := make([]docModel.Page, 0, len(cleaned))
	for _, page := range cleaned {
		normalized = append(normalized, docModel.Page{
			Number: page.Number,
			Text:   RemoveLines(page.Text, toRemove),
		})
	}

	return normalized, docModel.NormalizationStats{
		RemovedHeaderLines:      headers,
		RemovedFooterLines:      footers,
		RemovedBoilerplateLines: boilerplate,
		HeaderFooterConfidence:  confidence,
	}
}

// FullText joins cleaned pages into the single text blob the fingerprint and
// quality checks consume.
func FullText(pages []docModel.Page) string {
	parts := make([]string, 0, len(pages))
	for _, page := range pages {
		parts = append(parts, page.Text)
	}
	return strings.Join(parts, "\n\n")
}
