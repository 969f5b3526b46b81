// Package reconcile stitches together the overlapping, out-of-order
// results the transcription, analysis, and visual stages produce: it
// deduplicates transcript segments and topics and binds visual
// sub-topics to their nearest uploaded hero frame. Grounded on the
// original implementation's _deduplicate_topics (gemini_service.py) and
// the pipeline's frame-binding loop, generalized to transcript segments
// as well as topics.
package reconcile

import (
	"sort"

	"github.com/clipmind/video-report/config"
	"github.com/clipmind/video-report/model"
)

// DedupeSegments flattens and reconciles overlapping transcript segments
// from chunked transcription, per spec.md §4.8. Input need not be
// sorted; output is sorted by StartS.
func DedupeSegments(segments []model.Segment) []model.Segment {
	if len(segments) == 0 {
		return nil
	}

	sorted := make([]model.Segment, len(segments))
	copy(sorted, segments)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].StartS < sorted[j].StartS })

	out := []model.Segment{sorted[0]}
	for _, s := range sorted[1:] {
		tail := &out[len(out)-1]

		overlap := overlapOf(tail.StartS, tail.EndS, s.StartS, s.EndS)
		tailLen := tail.Len()
		sLen := s.Len()

		switch {
		case (tailLen > 0 && overlap/tailLen > config.SegmentDedupOverlapRatio) ||
			(sLen > 0 && overlap/sLen > config.SegmentDedupOverlapRatio):
			if longerText(s, *tail) {
				*tail = s
			}
		case absDiff(s.StartS, tail.EndS) < config.SegmentMergeGapSeconds:
			mergeInto(tail, s)
		default:
			out = append(out, s)
		}
	}
	return out
}

func absDiff(a, b float64) float64 {
	if a < b {
		return b - a
	}
	return a - b
}

func overlapOf(aStart, aEnd, bStart, bEnd float64) float64 {
	start := aStart
	if bStart > start {
		start = bStart
	}
	end := aEnd
	if bEnd < end {
		end = bEnd
	}
	if end <= start {
		return 0
	}
	return end - start
}

// longerText reports whether candidate's text is the one to keep over
// incumbent: longer text wins, ties broken by longer span.
func longerText(candidate, incumbent model.Segment) bool {
	if len(candidate.Text) != len(incumbent.Text) {
		return len(candidate.Text) > len(incumbent.Text)
	}
	return candidate.Len() > incumbent.Len()
}

func mergeInto(tail *model.Segment, s model.Segment) {
	if tail.Text == "" {
		tail.Text = s.Text
	} else if s.Text != "" {
		tail.Text = tail.Text + " " + s.Text
	}
	if s.EndS > tail.EndS {
		tail.EndS = s.EndS
	}
	if tail.Speaker == "" {
		tail.Speaker = s.Speaker
	}
}

// DedupeTopics sorts topics by start and drops any topic overlapping
// more than config.TopicDedupOverlapRatio of the previous topic's span,
// keeping whichever of the two has more key points.
func DedupeTopics(topics []model.Topic) []model.Topic {
	if len(topics) == 0 {
		return nil
	}

	sorted := make([]model.Topic, len(topics))
	copy(sorted, topics)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].StartS < sorted[j].StartS })

	out := []model.Topic{sorted[0]}
	for _, t := range sorted[1:] {
		tail := &out[len(out)-1]
		tailSpan := tail.Span()

		if tailSpan > 0 && tail.Overlap(t)/tailSpan > config.TopicDedupOverlapRatio {
			if len(t.KeyPoints) > len(tail.KeyPoints) {
				*tail = t
			}
			continue
		}
		out = append(out, t)
	}
	return out
}

// BindFrames matches every sub-topic lacking an ImageURL to the uploaded
// hero frame whose timestamp is nearest, within
// config.FrameBindingMaxDistanceSeconds. The matched frame's blob URL is
// bound to the sub-topic and added to its owning topic's Frames list
// exactly once.
func BindFrames(topics []model.Topic, heroes []model.HeroFrame) []model.Topic {
	out := make([]model.Topic, len(topics))
	copy(out, topics)

	for ti := range out {
		seen := map[string]bool{}
		for _, f := range out[ti].Frames {
			seen[f] = true
		}

		for si := range out[ti].SubTopics {
			sub := &out[ti].SubTopics[si]
			if sub.ImageURL != "" {
				continue
			}

			best, ok := nearestHero(heroes, sub.FrameTimestampS)
			if !ok {
				continue
			}
			sub.ImageURL = best.BlobURL
			if !seen[best.BlobURL] {
				out[ti].Frames = append(out[ti].Frames, best.BlobURL)
				seen[best.BlobURL] = true
			}
		}
	}
	return out
}

func nearestHero(heroes []model.HeroFrame, ts float64) (model.HeroFrame, bool) {
	var best model.HeroFrame
	bestDist := config.FrameBindingMaxDistanceSeconds
	found := false
	for _, h := range heroes {
		d := ts - h.TimestampS
		if d < 0 {
			d = -d
		}
		if d < bestDist {
			bestDist = d
			best = h
			found = true
		}
	}
	return best, found
}
