// Package simhash fingerprints documents with a 64-bit locality-sensitive
// hash. Similar token sets produce fingerprints with a small Hamming
// distance, which is what the near-duplicate detector compares.
package simhash

import (
	"crypto/md5"
	"encoding/binary"
	"math/bits"
	"regexp"
	"strings"
)

var tokenPattern = regexp.MustCompile(`[a-z0-9]+`)

// Tokenize lowers the text and extracts alphanumeric runs.
func Tokenize(text string) []string {
	return tokenPattern.FindAllString(strings.ToLower(text), -1)
}

// Fingerprint computes the 64-bit simhash of the text's token set.
// An empty token set yields 0.
func Fingerprint(text string) uint64 {
	tokens := Tokenize(text)
	if len(tokens) == 0 {
		return 0
	}

	var counters [64]int
	for _, token := range tokens {
		sum := md5.Sum([]byte(token))
		tokenHash := binary.BigEndian.Uint64(sum[8:16])
		for i := 0; i < 64; i++ {
			if tokenHash&(1<<uint(i)) != 0 {
				counters[i]++
			} else {
				counters[i]--
			}
		}
	}

	var fingerprint uint64
	for i := 0; i < 64; i++ {
		if counters[i] >= 0 {
			fingerprint |= 1 << uint(i)
		}
	}
	return fingerprint
}

// Distance is the Hamming distance between two fingerprints.
func Distance(a uint64, b uint64) int {
	return bits.OnesCount64(a ^ b)
}
