package model

// FrameKind is the per-frame visual category assigned by the LM gatekeeper
// or the hero-cluster description step.
type FrameKind string

const (
	FrameSlide    FrameKind = "slide"
	FrameDiagram  FrameKind = "diagram"
	FrameChart    FrameKind = "chart"
	FrameDemo     FrameKind = "demo"
	FramePerson   FrameKind = "person"
	FrameOther    FrameKind = "other"
	FrameErrorTag FrameKind = "error" // gatekeeper/describe call failed; frame is dropped or gets a placeholder
)

// HeroFrame is the single frame selected as the canonical visual for one
// cluster of near-duplicate frames. LocalPath is transient: set by the
// media toolkit, consumed by visual/lmclient/blobstore, then discarded once
// BlobURL is populated.
type HeroFrame struct {
	TimestampS  float64   `json:"timestamp_s"`
	LocalPath   string    `json:"-"`
	BlobURL     string    `json:"blob_url"`
	Description string    `json:"description"`
	OCRText     string    `json:"ocr_text,omitempty"`
	Kind        FrameKind `json:"kind"`
}

// SampledFrame is a single frame emitted by the media toolkit before any
// gatekeeping, clustering, or upload has happened.
type SampledFrame struct {
	Path       string
	TimestampS float64
}

// Candidate is one member of a Cluster, ranked by sharpness for hero
// selection.
type Candidate struct {
	Path       string  `json:"path"`
	TimestampS float64 `json:"timestamp_s"`
	BlurScore  float64 `json:"blur_score"`
}

// Cluster is a contiguous run of near-duplicate frames (by perceptual hash)
// with the same fields as package visual's Cluster type; the pipeline works
// with visual.Cluster values and does not construct this type.
type Cluster struct {
	StartS     float64     `json:"start_s"`
	EndS       float64     `json:"end_s"`
	FrameCount int         `json:"frame_count"`
	Candidates []Candidate `json:"candidates"` // sorted by descending BlurScore, capped at 5
}
