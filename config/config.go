// Package config centralizes the pipeline's tunables: concurrency caps,
// media toolkit defaults, and the few process-wide values that spec
// section 9 allows (everything else is constructed explicitly and passed
// down, never read from a package-level global at call time).
package config

import "time"

// Used so that tests can generate fixed timestamps instead of time.Now().
var Clock TimestampGenerator = RealTimestampGenerator{}

// Version is set at build time via -ldflags, mirroring the teacher's
// convention for surfacing the running build in logs and metrics.
var Version string

const (
	// DefaultMaxConcurrentTranscribes bounds the transcribe semaphore (spec
	// section 5, MAX_CONCURRENT_TRANSCRIBES).
	DefaultMaxConcurrentTranscribes = 2
	// DefaultMaxConcurrentVisionTasks bounds the vision semaphore (spec
	// section 5, MAX_CONCURRENT_VISION_TASKS).
	DefaultMaxConcurrentVisionTasks = 2
	// DefaultMaxConcurrentUploads bounds the upload semaphore (spec section
	// 5, MAX_CONCURRENT_UPLOADS).
	DefaultMaxConcurrentUploads = 3

	// DefaultAudioChunkDuration is MAX_AUDIO_CHUNK_DURATION in seconds.
	DefaultAudioChunkDuration = 300 * time.Second
	// DefaultAudioOverlapDuration is AUDIO_OVERLAP_DURATION in seconds.
	DefaultAudioOverlapDuration = 30 * time.Second
	// DefaultKeyframeInterval is the configured KEYFRAME_INTERVAL. Per the
	// Open Question decision in DESIGN.md, the orchestrator's coarse
	// sampling call site uses CoarseSampleInterval (30s) instead; this
	// value remains available to adapters/tools that want the coarser
	// interval.
	DefaultKeyframeInterval = 60 * time.Second
	// CoarseSampleInterval is the authoritative interval used by the
	// orchestrator's coarse visual sampling stage.
	CoarseSampleInterval = 30 * time.Second
	// DefaultAudioSampleRate is AUDIO_SAMPLE_RATE in Hz.
	DefaultAudioSampleRate = 16000

	// DenseSampleFPS is the frame rate used when densely resampling inside
	// an ROI window.
	DenseSampleFPS = 1.0

	// ClusterHammingThreshold is the pHash hamming-distance threshold used
	// to decide whether consecutive frames belong to the same cluster.
	ClusterHammingThreshold = 12

	// ROIBufferSeconds pads each event into a [t-buffer, t+buffer] window.
	ROIBufferSeconds = 10.0
	// ROIMinGapSeconds merges two windows whose gap is at most this.
	ROIMinGapSeconds = 5.0

	// TopicDedupOverlapRatio is the maximum pairwise overlap ratio (of the
	// shorter span) allowed between two finalized topics.
	TopicDedupOverlapRatio = 0.7
	// SegmentDedupOverlapRatio mirrors TopicDedupOverlapRatio for
	// transcript segments.
	SegmentDedupOverlapRatio = 0.7
	// SegmentMergeGapSeconds bounds the gap between consecutive segments
	// that triggers a merge instead of an append; only gaps strictly
	// smaller than this merge.
	SegmentMergeGapSeconds = 2.0

	// SynthesisTopicPreservationRatio is the minimum fraction of analyzer
	// topics synthesis must return before its output is trusted over the
	// analyzer's.
	SynthesisTopicPreservationRatio = 0.8

	// FrameBindingMaxDistanceSeconds is the maximum |frame.ts - sub.ts| for
	// binding a sub-topic to an uploaded hero frame.
	FrameBindingMaxDistanceSeconds = 2.0

	// MaxSubTopicsPerTopic caps how many visual sub-topics a single topic
	// may be mapped to.
	MaxSubTopicsPerTopic = 3

	// TranscriptAnalysisSplitThreshold is the character count above which a
	// transcript is split into three parts for analysis.
	TranscriptAnalysisSplitThreshold = 50_000

	// ProbeTimeout, AudioOpTimeout, FrameTimeout, and DenseWindowTimeout are
	// the per-call subprocess timeouts from spec section 5.
	ProbeTimeout       = 30 * time.Second
	AudioOpTimeout     = 300 * time.Second
	FrameTimeout       = 60 * time.Second
	DenseWindowTimeout = 120 * time.Second

	// UploadRateLimitInterval is the minimum spacing enforced between
	// uploads from any single caller.
	UploadRateLimitInterval = 500 * time.Millisecond

	// UploadMaxAttempts, UploadBackoffBase, and UploadBackoffFactor govern
	// blob upload retries (spec section 4.5).
	UploadMaxAttempts   = 5
	UploadBackoffBase   = 1 * time.Second
	UploadBackoffFactor = 2.0

	// LMBackoffBase, LMBackoffFactor, and LMMaxAttempts govern retries for
	// LM calls (spec section 4.4). Callers may reduce attempts to 2.
	LMBackoffBase   = 2 * time.Second
	LMBackoffFactor = 2.0
	LMMaxAttempts   = 3

	// ThumbnailURLTemplate is the deterministic public URL template for an
	// uploaded blob (spec section 6).
	ThumbnailURLTemplate = "https://%s/thumbnail?id=%s&sz=w800"
)
