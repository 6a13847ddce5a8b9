// Package segment splits page text into overlapping, length-bounded chunks
// ready for embedding. Splitting never fails: edge cases produce an empty
// chunk list, and out-of-bound chunk lengths surface later as advisory
// findings, not errors.
package segment

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ragready/pipeline/internal/domain/docModel"
	"github.com/ragready/pipeline/internal/pipeline/metadata"
)

// ErrNoChunkableText is returned by callers that require at least one chunk,
// typically when a document extracted to nothing but whitespace.
var ErrNoChunkableText = errors.New("document produced no chunkable text")

// Options bound the segmenter. Zero values fall back to nothing; callers pass
// the configured limits explicitly.
type Options struct {
	MinLen        int
	MaxLen        int
	Overlap       int
	BoundaryAware bool
}

type pageSegment struct {
	page int
	text string
}

// ChunkPages splits the ordered pages into chunks. Pages at or under MaxLen
// become single segments; longer pages are pre-split. Segments then
// accumulate greedily into chunks: when appending a segment would push the
// buffer past MaxLen and the buffer has already reached MinLen, the buffer is
// emitted and a trailing overlap window carries into the next chunk. The
// final non-empty buffer is always emitted even when under MinLen.
func ChunkPages(pages []docModel.Page, opts Options) []docModel.Chunk {
	var segments []pageSegment
	for _, page := range pages {
		text := strings.TrimSpace(page.Text)
		if text == "" {
			continue
		}
		if len(text) <= opts.MaxLen {
			segments = append(segments, pageSegment{page: page.Number, text: text})
			continue
		}
		for _, part := range splitLongText(text, opts.MaxLen, opts.BoundaryAware) {
			segments = append(segments, pageSegment{page: page.Number, text: part})
		}
	}

	var chunks []docModel.Chunk
	var currentText string
	var currentPages []int

	for _, seg := range segments {
		if currentText == "" {
			currentText = seg.text
			currentPages = []int{seg.page}
			continue
		}

		prospective := len(currentText) + 1 + len(seg.text)
		if prospective > opts.MaxLen && len(currentText) >= opts.MinLen {
			chunks = append(chunks, buildChunk(currentText, currentPages))

			carry := overlapTail(currentText, opts.Overlap, opts.MaxLen, len(seg.text))
			if carry != "" {
				currentText = strings.TrimSpace(carry + " " + seg.text)
			} else {
				currentText = seg.text
			}
			currentPages = []int{currentPages[len(currentPages)-1], seg.page}
		} else {
			currentText = strings.TrimSpace(currentText + " " + seg.text)
			if !containsPage(currentPages, seg.page) {
				currentPages = append(currentPages, seg.page)
			}
		}
	}

	if currentText != "" {
		chunks = append(chunks, buildChunk(currentText, currentPages))
	}
	return chunks
}

// splitLongText cuts a single over-long page into segments of at most maxLen.
// Boundary-aware mode prefers cutting immediately before a structural heading
// line; otherwise the cut falls back to the last whitespace at or after 60%
// of maxLen, and finally to a hard cut at maxLen.
func splitLongText(text string, maxLen int, boundaryAware bool) []string {
	var segments []string
	for start := 0; start < len(text); {
		end := start + maxLen
		if end >= len(text) {
			end = len(text)
		} else {
			window := text[start:end]
			cut := -1
			if boundaryAware {
				cut = headingCut(window)
			}
			if cut <= 0 {
				lastSpace := strings.LastIndex(window, " ")
				if float64(lastSpace) > float64(maxLen)*0.6 {
					cut = lastSpace
				}
			}
			if cut > 0 {
				end = start + cut
			}
		}
		if segment := strings.TrimSpace(text[start:end]); segment != "" {
			segments = append(segments, segment)
		}
		start = end
	}
	return segments
}

// headingCut scans the window line by line and returns the offset of the last
// line opening a structural section, or -1 when the window has none.
func headingCut(window string) int {
	cut := -1
	offset := 0
	for _, line := range strings.Split(window, "\n") {
		if offset > 0 && metadata.IsSectionBoundary(line) {
			cut = offset
		}
		offset += len(line) + 1
	}
	return cut
}

// overlapTail returns the trailing overlap window of the emitted chunk,
// trimmed to a word boundary and shrunk so the next chunk still fits maxLen.
func overlapTail(text string, overlap int, maxLen int, nextSegLen int) string {
	if overlap <= 0 {
		return ""
	}
	tail := text
	if len(tail) > overlap {
		tail = tail[len(tail)-overlap:]
		//drop the leading partial word the cut may have produced
		if idx := strings.IndexAny(tail, " \n"); idx >= 0 && idx < len(tail)-1 {
			tail = tail[idx+1:]
		}
	}
	tail = strings.TrimSpace(tail)
	if tail == "" {
		return ""
	}
	available := maxLen - nextSegLen - 1
	if available <= 0 {
		return ""
	}
	if available < len(tail) {
		tail = strings.TrimSpace(tail[len(tail)-available:])
	}
	return tail
}

func buildChunk(text string, pages []int) docModel.Chunk {
	pageRange := docModel.PageRange{}
	if len(pages) > 0 {
		pageRange.Start, pageRange.End = pages[0], pages[0]
		for _, p := range pages[1:] {
			if p < pageRange.Start {
				pageRange.Start = p
			}
			if p > pageRange.End {
				pageRange.End = p
			}
		}
	}
	return docModel.Chunk{Text: text, PageRange: pageRange, Length: len(text)}
}

func containsPage(pages []int, page int) bool {
	for _, p := range pages {
		if p == page {
			return true
		}
	}
	return false
}

// Warnings flags chunks outside the advisory length bounds. These findings
// adjust the readiness score later; they never fail segmentation.
func Warnings(chunks []docModel.Chunk, warnMin int, warnMax int) []docModel.Finding {
	var findings []docModel.Finding
	for _, chunk := range chunks {
		if chunk.Length < warnMin {
			findings = append(findings, docModel.Finding{
				Type:           "CHUNK_TOO_SMALL",
				Severity:       docModel.SeverityWarn,
				Description:    fmt.Sprintf("Chunk length %d is below recommended minimum.", chunk.Length),
				Recommendation: "Increase chunk size or adjust overlap for better context.",
			})
		}
		if chunk.Length > warnMax {
			findings = append(findings, docModel.Finding{
				Type:           "CHUNK_TOO_LARGE",
				Severity:       docModel.SeverityWarn,
				Description:    fmt.Sprintf("Chunk length %d exceeds recommended maximum.", chunk.Length),
				Recommendation: "Reduce chunk size to avoid embedding truncation.",
			})
		}
	}
	return findings
}
