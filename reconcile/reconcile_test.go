package reconcile

import (
	"testing"

	"github.com/clipmind/video-report/model"
	"github.com/stretchr/testify/require"
)

// TestDedupeSegmentsMergesOverlappingChunks mirrors the literal scenario
// from spec.md section 8: two overlapping chunk transcriptions emit the
// same duplicate text over most of their overlapping span; with equal text
// and equal span lengths the earlier segment is kept and a single segment
// remains.
func TestDedupeSegmentsMergesOverlappingChunks(t *testing.T) {
	segs := []model.Segment{
		{Text: "Hello world", StartS: 0, EndS: 10},
		{Text: "Hello world", StartS: 2, EndS: 12},
	}
	out := DedupeSegments(segs)
	require.Len(t, out, 1)
	require.Equal(t, 0.0, out[0].StartS)
	require.Equal(t, 10.0, out[0].EndS)
}

func TestDedupeSegmentsAppendsNonOverlapping(t *testing.T) {
	segs := []model.Segment{
		{Text: "first", StartS: 0, EndS: 5},
		{Text: "second", StartS: 20, EndS: 25},
	}
	out := DedupeSegments(segs)
	require.Len(t, out, 2)
}

func TestDedupeSegmentsMergesSmallGap(t *testing.T) {
	segs := []model.Segment{
		{Text: "first", StartS: 0, EndS: 5},
		{Text: "second", StartS: 6, EndS: 10},
	}
	out := DedupeSegments(segs)
	require.Len(t, out, 1)
	require.Equal(t, "first second", out[0].Text)
	require.Equal(t, 10.0, out[0].EndS)
}

func TestDedupeSegmentsEmptyInput(t *testing.T) {
	require.Nil(t, DedupeSegments(nil))
}

func TestDedupeTopicsKeepsMoreKeyPoints(t *testing.T) {
	topics := []model.Topic{
		{Title: "A", StartS: 0, EndS: 100, KeyPoints: []string{"p1"}},
		{Title: "B", StartS: 10, EndS: 95, KeyPoints: []string{"p1", "p2", "p3"}},
	}
	out := DedupeTopics(topics)
	require.Len(t, out, 1)
	require.Equal(t, "B", out[0].Title)
}

func TestDedupeTopicsKeepsDistinctSpans(t *testing.T) {
	topics := []model.Topic{
		{Title: "A", StartS: 0, EndS: 50},
		{Title: "B", StartS: 100, EndS: 150},
	}
	out := DedupeTopics(topics)
	require.Len(t, out, 2)
}

func TestBindFramesMatchesNearestWithinTolerance(t *testing.T) {
	topics := []model.Topic{
		{
			Title:  "Demo",
			StartS: 0,
			EndS:   100,
			SubTopics: []model.SubTopic{
				{Title: "slide", FrameTimestampS: 50.5},
			},
		},
	}
	heroes := []model.HeroFrame{
		{TimestampS: 50, BlobURL: "https://store/thumbnail?id=a"},
		{TimestampS: 90, BlobURL: "https://store/thumbnail?id=b"},
	}

	out := BindFrames(topics, heroes)
	require.Equal(t, "https://store/thumbnail?id=a", out[0].SubTopics[0].ImageURL)
	require.Contains(t, out[0].Frames, "https://store/thumbnail?id=a")
}

func TestBindFramesSkipsWhenBeyondTolerance(t *testing.T) {
	topics := []model.Topic{
		{
			Title:     "Demo",
			StartS:    0,
			EndS:      100,
			SubTopics: []model.SubTopic{{Title: "slide", FrameTimestampS: 50}},
		},
	}
	heroes := []model.HeroFrame{{TimestampS: 55, BlobURL: "https://store/thumbnail?id=a"}}

	out := BindFrames(topics, heroes)
	require.Empty(t, out[0].SubTopics[0].ImageURL)
	require.Empty(t, out[0].Frames)
}

func TestBindFramesDeduplicatesRepeatedFrame(t *testing.T) {
	topics := []model.Topic{
		{
			Title:  "Demo",
			StartS: 0,
			EndS:   100,
			SubTopics: []model.SubTopic{
				{Title: "slide-1", FrameTimestampS: 10},
				{Title: "slide-2", FrameTimestampS: 10.5},
			},
		},
	}
	heroes := []model.HeroFrame{{TimestampS: 10, BlobURL: "https://store/thumbnail?id=a"}}

	out := BindFrames(topics, heroes)
	require.Len(t, out[0].Frames, 1)
}
