package lmclient

import (
	"encoding/json"
	"regexp"
)

var (
	fencedBlockRe = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")
	lineCommentRe = regexp.MustCompile(`//[^\n]*`)
	blockCommentRe = regexp.MustCompile(`(?s)/\*.*?\*/`)
	trailingCommaRe = regexp.MustCompile(`,(\s*[\]}])`)
	rawNewlineRe = regexp.MustCompile(`(?s)([\w"])\n([\w"])`)
)

// repairAndParse extracts a JSON object out of a raw LM response and
// parses it, tolerating the malformed output LMs commonly produce.
// Mirrors the original implementation's _parse_json_response: strip a
// fenced code block if present, else take the substring between the
// first '{' and the last '}'; then try direct parse, then parse after
// stripping comments and trailing commas, then parse after escaping bare
// newlines between word/quote characters. Returns false if every attempt
// fails, the caller must treat that as a soft error.
func repairAndParse(text string, out interface{}) bool {
	jsonStr := extractJSONCandidate(text)

	if json.Unmarshal([]byte(jsonStr), out) == nil {
		return true
	}

	repaired := stripCommentsAndTrailingCommas(jsonStr)
	if json.Unmarshal([]byte(repaired), out) == nil {
		return true
	}

	withEscapedNewlines := rawNewlineRe.ReplaceAllString(jsonStr, "$1\\n$2")
	return json.Unmarshal([]byte(withEscapedNewlines), out) == nil
}

func extractJSONCandidate(text string) string {
	if m := fencedBlockRe.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	start := indexByte(text, '{')
	end := lastIndexByte(text, '}')
	if start != -1 && end != -1 && end > start {
		return text[start : end+1]
	}
	return text
}

func stripCommentsAndTrailingCommas(s string) string {
	s = blockCommentRe.ReplaceAllString(s, "")
	s = lineCommentRe.ReplaceAllString(s, "")
	s = trailingCommaRe.ReplaceAllString(s, "$1")
	return s
}

func indexByte(s string, b byte) int {
	for i := 0; i < len(s); i++ {
		if s[i] == b {
			return i
		}
	}
	return -1
}

func lastIndexByte(s string, b byte) int {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == b {
			return i
		}
	}
	return -1
}
