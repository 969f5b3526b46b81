package config

// Cli holds the process-wide configuration enumerated in spec section 6.
// cmd/report-worker parses it with github.com/peterbourgon/ff/v3, the same
// binding library the teacher uses for its own Cli struct. Only the
// concurrency caps, TempDir, the LM and Blob fields, and PromPort are bound
// to a flag or environment variable; the audio chunk/overlap, keyframe,
// sample-rate, StoreURI, and AllowedCORSOrigins fields have no flag and are
// not read anywhere.
type Cli struct {
	MaxConcurrentTranscribes int
	MaxConcurrentVisionTasks int
	MaxConcurrentUploads     int

	MaxAudioChunkDurationSecs int
	AudioOverlapDurationSecs  int
	KeyframeIntervalSecs      int
	AudioSampleRate           int

	TempDir    string
	LMBaseURL  string
	LMAPIKey   string
	LMModel    string
	StoreURI   string

	BlobAccessKey string
	BlobSecretKey string
	BlobEndpoint  string
	BlobBucket    string

	AllowedCORSOrigins []string

	PromPort int
}
