package pipeline

import (
	"fmt"
	"strings"

	"github.com/clipmind/video-report/model"
)

// renderTranscript formats segments as "[HH:MM:SS] text" per line, the
// shape the audio-cue scout prompt expects.
func renderTranscript(segments []model.Segment) string {
	var b strings.Builder
	for _, s := range segments {
		if s.Text == "" {
			continue
		}
		b.WriteString(fmt.Sprintf("[%s] %s\n", formatTimestamp(s.StartS), s.Text))
	}
	return b.String()
}

func formatTimestamp(totalSeconds float64) string {
	total := int(totalSeconds)
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// plainTranscript concatenates segment text with a single space, the
// plain-text view the genre, analysis, and slide-deck prompts take.
func plainTranscript(segments []model.Segment) string {
	parts := make([]string, 0, len(segments))
	for _, s := range segments {
		if s.Text != "" {
			parts = append(parts, s.Text)
		}
	}
	return strings.Join(parts, " ")
}
