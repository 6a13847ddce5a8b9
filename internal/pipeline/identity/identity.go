// Package identity derives stable content-addressed identifiers for chunks.
// Everything here is a pure function: same inputs, same outputs, across
// processes. Used at chunk creation and again at ingestion time to fill
// identifiers omitted by legacy records.
package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// ChunkId builds the canonical chunk identifier. Page defaults to 0 upstream
// when the source format has no page numbers.
func ChunkId(docId string, page int, chunkIndex int) string {
	return fmt.Sprintf("%s#p%d#c%d", docId, page, chunkIndex)
}

// NormalizeText collapses every whitespace run to a single space and trims.
// Two chunks differing only in whitespace therefore share a content hash.
func NormalizeText(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// ContentHash digests the chunk identity fields and normalized text.
func ContentHash(docId string, page int, chunkIndex int, text string) string {
	base := fmt.Sprintf("%s|%d|%d|%s", docId, page, chunkIndex, NormalizeText(text))
	sum := sha256.Sum256([]byte(base))
	return hex.EncodeToString(sum[:])
}
