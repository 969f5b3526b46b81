// Package model holds the data types shared across the processing pipeline:
// the Job record and everything it accumulates as it moves through the
// stage machine in package pipeline.
package model

import "time"

// SourceKind identifies which ingest adapter produced the local video file.
type SourceKind string

const (
	SourceDrive  SourceKind = "drive"
	SourceSite   SourceKind = "site"
	SourceUpload SourceKind = "upload"
)

// Status is the job's position in the pipeline's stage machine. Transitions
// are strictly forward; only the orchestrator may mutate it.
type Status string

const (
	StatusPending      Status = "pending"
	StatusDownloading  Status = "downloading"
	StatusExtracting   Status = "extracting"
	StatusTranscribing Status = "transcribing"
	StatusAnalyzing    Status = "analyzing"
	StatusSynthesizing Status = "synthesizing"
	StatusCompleted    Status = "completed"
	StatusFailed       Status = "failed"
)

// LogEntry is one append-only progress message.
type LogEntry struct {
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
}

// Job is the single mutable record owned exclusively by the pipeline
// orchestrator. All other components receive only the slices they need to
// do their work and never hold a reference to the Job itself.
type Job struct {
	ID              string     `json:"id"`
	SourceKind      SourceKind `json:"source_kind"`
	SourceRef       string     `json:"source_ref"`
	LocalPath       string     `json:"local_path"`
	VideoName       string     `json:"video_name,omitempty"`
	PlaylistContext string     `json:"playlist_context,omitempty"`

	Status        Status  `json:"status"`
	Progress      float64 `json:"progress"`
	CurrentAction string  `json:"current_action"`
	Log           []LogEntry `json:"log"`

	DurationSeconds float64 `json:"duration_seconds"`

	Transcript []Segment    `json:"transcript"`
	Topics     []Topic      `json:"topics"`
	Frames     []HeroFrame  `json:"frames"`
	Entities   map[string][]string `json:"entities"`

	ExecutiveSummary string   `json:"executive_summary"`
	KeyTakeaways     []string `json:"key_takeaways"`
	SlideSummary     []Slide  `json:"slide_summary"`

	Genre           Genre   `json:"genre"`
	GenreConfidence float64 `json:"genre_confidence"`
	GenreReason     string  `json:"genre_reason"`

	ErrorMessage string `json:"error_message,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// New creates a Job in its initial pending state with empty, non-nil
// collections so downstream code never needs to nil-check them.
func New(id string, source SourceKind, ref string) *Job {
	now := time.Now()
	return &Job{
		ID:         id,
		SourceKind: source,
		SourceRef:  ref,
		Status:     StatusPending,
		Entities:   map[string][]string{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// IsTerminal reports whether the job has reached a final state.
func (j *Job) IsTerminal() bool {
	return j.Status == StatusCompleted || j.Status == StatusFailed
}
