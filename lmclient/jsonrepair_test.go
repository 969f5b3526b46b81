package lmclient

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type repairTarget struct {
	Genre      string  `json:"genre"`
	Confidence float64 `json:"confidence"`
}

func TestRepairAndParseDirect(t *testing.T) {
	var out repairTarget
	ok := repairAndParse(`{"genre": "vlog", "confidence": 0.9}`, &out)
	require.True(t, ok)
	require.Equal(t, "vlog", out.Genre)
}

func TestRepairAndParseFencedBlock(t *testing.T) {
	var out repairTarget
	ok := repairAndParse("Here you go:\n```json\n{\"genre\": \"vlog\", \"confidence\": 0.5}\n```\nThanks", &out)
	require.True(t, ok)
	require.Equal(t, "vlog", out.Genre)
}

func TestRepairAndParseBraceExtraction(t *testing.T) {
	var out repairTarget
	ok := repairAndParse("sure, here is the answer: {\"genre\": \"podcast_panel\", \"confidence\": 0.7} hope that helps", &out)
	require.True(t, ok)
	require.Equal(t, "podcast_panel", out.Genre)
}

func TestRepairAndParseStripsTrailingCommaAndComments(t *testing.T) {
	var out repairTarget
	raw := "{\n  // a comment\n  \"genre\": \"vlog\",\n  \"confidence\": 0.3,\n}"
	ok := repairAndParse(raw, &out)
	require.True(t, ok)
	require.Equal(t, "vlog", out.Genre)
}

func TestRepairAndParseEscapesBareNewlines(t *testing.T) {
	var out struct {
		Reason string `json:"reason"`
	}
	raw := "{\"reason\": \"first line\nsecond line\"}"
	ok := repairAndParse(raw, &out)
	require.True(t, ok)
}

func TestRepairAndParseTotalFailureReturnsFalse(t *testing.T) {
	var out repairTarget
	ok := repairAndParse("not json at all, no braces here", &out)
	require.False(t, ok)
}
