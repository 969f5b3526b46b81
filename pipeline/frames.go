package pipeline

import (
	"sort"

	"github.com/clipmind/video-report/media"
	"github.com/clipmind/video-report/roi"
	"github.com/clipmind/video-report/visual"
)

// mergeFramesByIntegerSecond unions coarse and dense frames, keyed by
// truncated integer second. A dense frame at the same second as a coarse
// one wins the collision, per spec.md §4.7 stage 7. The result is sorted
// by timestamp.
func mergeFramesByIntegerSecond(coarse, dense []media.Frame) []visual.SampledFrame {
	bySecond := make(map[int]media.Frame, len(coarse)+len(dense))
	for _, f := range coarse {
		bySecond[int(f.TimestampS)] = f
	}
	for _, f := range dense {
		bySecond[int(f.TimestampS)] = f
	}

	merged := make([]visual.SampledFrame, 0, len(bySecond))
	for _, f := range bySecond {
		merged = append(merged, visual.SampledFrame{Path: f.Path, TimestampS: f.TimestampS})
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].TimestampS < merged[j].TimestampS })
	return merged
}

func toMediaWindows(windows []roi.Window) []media.Window {
	out := make([]media.Window, len(windows))
	for i, w := range windows {
		out[i] = media.Window{StartS: w.StartS, EndS: w.EndS}
	}
	return out
}
