// Package metadata extracts construction-industry metadata from document
// text: document type, discipline, Australian standards references and
// section references. The section boundary patterns double as the structural
// cut points used by boundary-aware segmentation.
package metadata

import (
	"regexp"
	"sort"
	"strings"
)

// Abbreviations that must survive dehyphenation intact.
var ProtectedAbbreviations = map[string]struct{}{
	"SWMS": {}, "JSA": {}, "WHS": {}, "OHS": {}, "PCBU": {}, "PPE": {}, "SDS": {},
	"MSDS": {}, "TBT": {}, "HSE": {}, "ITP": {}, "ITR": {}, "QA": {}, "QC": {},
	"NCR": {}, "CAR": {}, "FAT": {}, "SAT": {}, "EOT": {}, "VO": {}, "VR": {},
	"PC": {}, "DLP": {}, "LOD": {}, "BQ": {}, "BOQ": {}, "SOW": {}, "NTA": {},
	"SI": {}, "RFI": {}, "TQ": {}, "TBE": {}, "TBC": {}, "TBA": {}, "NTS": {},
	"AFC": {}, "IFC": {}, "IFR": {}, "WBS": {}, "CPM": {}, "EVM": {}, "PMO": {},
	"RFP": {}, "RFQ": {}, "NCC": {}, "BCA": {}, "MEP": {}, "HVAC": {}, "FHR": {},
	"SWD": {}, "HWS": {}, "CWS": {}, "DB": {}, "MCC": {}, "VSD": {}, "VFD": {},
	"AS": {}, "NZS": {},
}

var standardsPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)AS\s*/?NZS\s*\d{4}(?:\.\d+)*(?::\d{4})?`),
	regexp.MustCompile(`(?i)AS\s*\d{4}(?:\.\d+)*(?::\d{4})?`),
	regexp.MustCompile(`(?i)NCC\s*(?:20\d{2})?`),
	regexp.MustCompile(`(?i)BCA\s*(?:20\d{2})?`),
}

var sectionBoundaryPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^CLAUSE\s+\d+`),
	regexp.MustCompile(`(?i)^SECTION\s+\d+`),
	regexp.MustCompile(`(?i)^PART\s+[A-Z0-9]+`),
	regexp.MustCompile(`(?i)^APPENDIX\s+[A-Z0-9]+`),
	regexp.MustCompile(`(?i)^SCHEDULE\s+[A-Z0-9]+`),
	regexp.MustCompile(`(?i)^ATTACHMENT\s+[A-Z0-9]+`),
	regexp.MustCompile(`^\d+\.\d+(?:\.\d+)*\s+[A-Z]`),
	regexp.MustCompile(`^[A-Z]\d+\.\d+`),
}

var docTypePatterns = map[string][]*regexp.Regexp{
	"specification": {
		regexp.MustCompile(`(?i)^specification`),
		regexp.MustCompile(`(?i)technical\s+specification`),
		regexp.MustCompile(`(?i)spec\s+section\s+\d+`),
	},
	"contract": {
		regexp.MustCompile(`(?i)contract\s+(agreement|document)`),
		regexp.MustCompile(`(?i)conditions\s+of\s+contract`),
		regexp.MustCompile(`(?i)general\s+conditions`),
		regexp.MustCompile(`(?i)AS\s*2124`),
		regexp.MustCompile(`(?i)AS\s*4000`),
	},
	"swms": {
		regexp.MustCompile(`(?i)safe\s+work\s+method\s+statement`),
		regexp.MustCompile(`(?i)\bSWMS\b`),
		regexp.MustCompile(`(?i)job\s+safety\s+analysis`),
		regexp.MustCompile(`(?i)risk\s+assessment`),
	},
	"itp": {
		regexp.MustCompile(`(?i)inspection\s+(?:and\s+)?test\s+plan`),
		regexp.MustCompile(`(?i)\bITP\b`),
		regexp.MustCompile(`(?i)hold\s+points?`),
		regexp.MustCompile(`(?i)witness\s+points?`),
	},
	"rfi": {
		regexp.MustCompile(`(?i)request\s+for\s+information`),
		regexp.MustCompile(`(?i)\bRFI[\s\-]?\d+`),
		regexp.MustCompile(`(?i)technical\s+query`),
	},
	"variation": {
		regexp.MustCompile(`(?i)variation\s+(?:order|request|notice)`),
		regexp.MustCompile(`(?i)\bVO[\s\-]?\d+`),
		regexp.MustCompile(`(?i)change\s+order`),
	},
	"meeting_minutes": {
		regexp.MustCompile(`(?i)meeting\s+minutes`),
		regexp.MustCompile(`(?i)site\s+meeting`),
		regexp.MustCompile(`(?i)minutes\s+of\s+meeting`),
	},
}

var disciplinePatterns = map[string][]*regexp.Regexp{
	"electrical": {
		regexp.MustCompile(`(?i)electrical`),
		regexp.MustCompile(`(?i)\bMCC\b`),
		regexp.MustCompile(`(?i)AS/?NZS\s*3000`),
		regexp.MustCompile(`(?i)switchboard`),
		regexp.MustCompile(`(?i)cabling`),
	},
	"mechanical": {
		regexp.MustCompile(`(?i)mechanical`),
		regexp.MustCompile(`(?i)\bHVAC\b`),
		regexp.MustCompile(`(?i)air\s+conditioning`),
		regexp.MustCompile(`(?i)ductwork`),
	},
	"structural": {
		regexp.MustCompile(`(?i)structural`),
		regexp.MustCompile(`(?i)AS\s*3600`),
		regexp.MustCompile(`(?i)reinforcement`),
		regexp.MustCompile(`(?i)concrete`),
	},
	"hydraulic": {
		regexp.MustCompile(`(?i)hydraulic`),
		regexp.MustCompile(`(?i)plumbing`),
		regexp.MustCompile(`(?i)drainage`),
		regexp.MustCompile(`(?i)stormwater`),
	},
	"fire": {
		regexp.MustCompile(`(?i)fire\s+(?:protection|services|systems)`),
		regexp.MustCompile(`(?i)sprinkler`),
		regexp.MustCompile(`(?i)hydrant`),
	},
	"civil": {
		regexp.MustCompile(`(?i)civil`),
		regexp.MustCompile(`(?i)earthworks`),
		regexp.MustCompile(`(?i)pavement`),
		regexp.MustCompile(`(?i)retaining\s+wall`),
	},
}

var sectionRefPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?im)(?:CLAUSE|SECTION|PART)\s+(\d+(?:\.\d+)*)`),
	regexp.MustCompile(`(?m)^(\d+\.\d+(?:\.\d+)*)\s`),
	regexp.MustCompile(`(?im)APPENDIX\s+([A-Z])`),
	regexp.MustCompile(`(?im)SCHEDULE\s+(\d+)`),
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// IsSectionBoundary reports whether the line opens a new structural section.
func IsSectionBoundary(line string) bool {
	line = strings.TrimSpace(line)
	for _, pattern := range sectionBoundaryPatterns {
		if pattern.MatchString(line) {
			return true
		}
	}
	return false
}

// ExtractStandards returns the sorted unique Australian standards referenced
// in the text, normalized to upper case with single spacing.
func ExtractStandards(text string) []string {
	seen := make(map[string]struct{})
	for _, pattern := range standardsPatterns {
		for _, match := range pattern.FindAllString(text, -1) {
			normalized := whitespaceRun.ReplaceAllString(strings.TrimSpace(strings.ToUpper(match)), " ")
			normalized = strings.ReplaceAll(normalized, "/ ", "/")
			seen[normalized] = struct{}{}
		}
	}
	standards := make([]string, 0, len(seen))
	for s := range seen {
		standards = append(standards, s)
	}
	sort.Strings(standards)
	return standards
}

// ClassifyDocument scores the document against known type patterns and
// returns the best type with a confidence in [0,1]. Unmatched text
// classifies as "general" with zero confidence.
func ClassifyDocument(text string) (string, float64) {
	sample := head(text, 5000)
	scores := make(map[string]int)
	total := 0
	for docType, patterns := range docTypePatterns {
		score := 0
		for _, pattern := range patterns {
			score += len(pattern.FindAllString(sample, -1))
		}
		if score > 0 {
			scores[docType] = score
			total += score
		}
	}
	if len(scores) == 0 {
		return "general", 0.0
	}
	best, bestScore := "", 0
	for docType, score := range scores {
		if score > bestScore || (score == bestScore && docType < best) {
			best, bestScore = docType, score
		}
	}
	confidence := float64(bestScore) / float64(total)
	if confidence > 1.0 {
		confidence = 1.0
	}
	return best, confidence
}

// DetectDiscipline returns the trade/discipline the text most resembles,
// or "" when nothing matches.
func DetectDiscipline(text string) string {
	sample := head(text, 10000)
	best, bestScore := "", 0
	for discipline, patterns := range disciplinePatterns {
		score := 0
		for _, pattern := range patterns {
			score += len(pattern.FindAllString(sample, -1))
		}
		if score > bestScore || (score == bestScore && score > 0 && discipline < best) {
			best, bestScore = discipline, score
		}
	}
	if bestScore == 0 {
		return ""
	}
	return best
}

// ExtractSectionReference pulls the primary section reference from the start
// of the text, or "" when none is found.
func ExtractSectionReference(text string) string {
	sample := head(text, 500)
	for _, pattern := range sectionRefPatterns {
		if match := pattern.FindString(sample); match != "" {
			return strings.TrimSpace(match)
		}
	}
	return ""
}

func head(text string, n int) string {
	if len(text) > n {
		return text[:n]
	}
	return text
}
