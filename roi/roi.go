// Package roi fuses audio-cue and gatekeeper-approved visual timestamps
// into a small set of non-overlapping windows worth densely resampling.
// Grounded directly on the original implementation's
// merge_time_windows: pad each event, sort by start, then sweep-merge.
package roi

import "sort"

// Window is a time-ordered, non-overlapping span of interest in a video.
type Window struct {
	StartS float64
	EndS   float64
}

// Merge pads each event timestamp into [t-bufferS, t+bufferS] (clamped to
// [0, durationS]), sorts by start, and sweeps left to right merging the
// next window into the tail whenever its start falls within minGapS of
// the tail's end. The result is sorted, pairwise non-overlapping, and
// covers exactly the union of the dilated events after merging.
func Merge(events []float64, durationS, bufferS, minGapS float64) []Window {
	if len(events) == 0 {
		return nil
	}

	windows := make([]Window, len(events))
	for i, ts := range events {
		start := ts - bufferS
		if start < 0 {
			start = 0
		}
		end := ts + bufferS
		if end > durationS {
			end = durationS
		}
		windows[i] = Window{StartS: start, EndS: end}
	}

	sort.Slice(windows, func(i, j int) bool { return windows[i].StartS < windows[j].StartS })

	merged := []Window{windows[0]}
	for _, w := range windows[1:] {
		tail := &merged[len(merged)-1]
		if w.StartS <= tail.EndS+minGapS {
			if w.EndS > tail.EndS {
				tail.EndS = w.EndS
			}
		} else {
			merged = append(merged, w)
		}
	}
	return merged
}
