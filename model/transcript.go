package model

// Segment is one chunk of transcribed speech with its time range in the
// source video. Within a finalized transcript, segments are sorted by
// StartS and satisfy the dedup invariants enforced by package reconcile.
type Segment struct {
	Text       string  `json:"text"`
	StartS     float64 `json:"start_s"`
	EndS       float64 `json:"end_s"`
	Speaker    string  `json:"speaker,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
}

// Len returns the segment's duration in seconds.
func (s Segment) Len() float64 {
	return s.EndS - s.StartS
}

// RebaseBy shifts the segment's timestamps by offset seconds, as done when
// stitching together the results of transcribing one audio chunk that began
// offset seconds into the full recording.
func (s Segment) RebaseBy(offset float64) Segment {
	s.StartS += offset
	s.EndS += offset
	return s
}
