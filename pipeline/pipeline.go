// Package pipeline is the stage machine that drives a single job from
// acquisition through a finished report. Grounded directly on
// pipeline/coordinator.go's Coordinator/JobInfo shape: a coordinator
// holding long-lived, explicitly-constructed collaborators, per-job
// mutation guarded by the job store rather than a bespoke mutex, and
// panic-safe background execution via the same recovered[T] pattern.
package pipeline

import (
	"context"

	"github.com/clipmind/video-report/blobstore"
	"github.com/clipmind/video-report/jobstore"
	"github.com/clipmind/video-report/lmclient"
	"github.com/clipmind/video-report/media"
	"github.com/clipmind/video-report/model"
	"github.com/clipmind/video-report/visual"
	"golang.org/x/sync/semaphore"
)

// IngestAdapter acquires the source video onto local disk and returns its
// path. Implementations own side effects like setting VideoName or
// playlist context on job before returning.
type IngestAdapter interface {
	Acquire(ctx context.Context, job *model.Job) (localPath string, err error)
}

// LMOps is the subset of lmclient.Client the orchestrator calls. Narrowed
// to an interface, mirroring the teacher's Handler interface, so tests can
// substitute a stub instead of making real model requests.
type LMOps interface {
	ClassifyGenre(ctx context.Context, transcriptPrefix string, durationS float64) (model.Genre, float64, string, error)
	TranscribeChunk(ctx context.Context, audioPath string, startOffsetS, endOffsetS float64) ([]model.Segment, error)
	AnalyzeTranscript(ctx context.Context, transcript string, durationS float64, genre model.Genre, dedupeTopics func([]model.Topic) []model.Topic) (lmclient.TranscriptAnalysis, error)
	ScoutAudioCues(ctx context.Context, renderedTranscript string) []lmclient.AudioCue
	GatekeepFrame(ctx context.Context, imagePath string) lmclient.GatekeeperVerdict
	DescribeCluster(ctx context.Context, candidatePaths []string, startS, endS float64) (lmclient.ClusterDescription, error)
	MapVisualsToTopics(ctx context.Context, topics []model.Topic, subTopics []lmclient.VisualSubTopic) ([]model.Topic, error)
	Synthesize(ctx context.Context, analyzedTopics []model.Topic, frameSummaries string, durationS float64, fallbackSummary string, fallbackTakeaways []string, fallbackEntities lmclient.Entities) (lmclient.Synthesis, error)
	GenerateSlideDeck(ctx context.Context, transcript, summary string, keyTakeaways []string) []model.Slide
}

// BlobOps is the subset of blobstore.Store the orchestrator calls.
type BlobOps interface {
	EnsureFolder(jobID string) string
	Upload(ctx context.Context, localPath, folderID, remoteName string) (blobstore.Uploaded, error)
	Publicize(ctx context.Context, id string)
}

// MediaOps wraps the media toolkit's free functions behind an interface,
// the same way the teacher wraps ffprobe behind video.Prober, so the
// orchestrator can be driven in tests without invoking real subprocesses.
type MediaOps interface {
	ProbeDuration(ctx context.Context, path string) (float64, error)
	ExtractAudio(ctx context.Context, videoPath, outPath string) error
	SplitAudio(ctx context.Context, audioPath, outDir string, duration, chunkSecs, overlapSecs float64) ([]media.Chunk, error)
	ExtractKeyframes(ctx context.Context, videoPath, outDir string, duration, intervalSecs float64) []media.Frame
	ExtractDenseFrames(ctx context.Context, videoPath, outDir string, windows []media.Window, fps float64) []media.Frame
}

// VisualOps wraps visual.Cluster behind an interface for the same reason.
type VisualOps interface {
	Cluster(frames []visual.SampledFrame, threshold int) []visual.Cluster
}

type defaultMedia struct{}

func (defaultMedia) ProbeDuration(ctx context.Context, path string) (float64, error) {
	return media.ProbeDuration(ctx, path)
}
func (defaultMedia) ExtractAudio(ctx context.Context, videoPath, outPath string) error {
	return media.ExtractAudio(ctx, videoPath, outPath)
}
func (defaultMedia) SplitAudio(ctx context.Context, audioPath, outDir string, duration, chunkSecs, overlapSecs float64) ([]media.Chunk, error) {
	return media.SplitAudio(ctx, audioPath, outDir, duration, chunkSecs, overlapSecs)
}
func (defaultMedia) ExtractKeyframes(ctx context.Context, videoPath, outDir string, duration, intervalSecs float64) []media.Frame {
	return media.ExtractKeyframes(ctx, videoPath, outDir, duration, intervalSecs)
}
func (defaultMedia) ExtractDenseFrames(ctx context.Context, videoPath, outDir string, windows []media.Window, fps float64) []media.Frame {
	return media.ExtractDenseFrames(ctx, videoPath, outDir, windows, fps)
}

type defaultVisual struct{}

func (defaultVisual) Cluster(frames []visual.SampledFrame, threshold int) []visual.Cluster {
	return visual.Cluster(frames, threshold)
}

// Options bounds the three semaphores and the per-job chunking/sampling
// parameters spec.md §5 and §6 leave as configuration.
type Options struct {
	MaxConcurrentTranscribes int
	MaxConcurrentVisionTasks int
	MaxConcurrentUploads     int

	AudioChunkSecs   float64
	AudioOverlapSecs float64

	TempDir string
}

// Coordinator owns the collaborators needed to run a job end to end. It
// holds no package-level state; every dependency is constructed once by
// the caller (cmd/report-worker) and passed in, per spec.md §9's design
// note that the only process-wide state is the three semaphores.
type Coordinator struct {
	Jobs  jobstore.Store
	LM    LMOps
	Blob  BlobOps
	Media MediaOps
	Vis   VisualOps

	adapters map[model.SourceKind]IngestAdapter

	transcribeSem *semaphore.Weighted
	visionSem     *semaphore.Weighted
	uploadSem     *semaphore.Weighted

	opts Options
}

// NewCoordinator wires a Coordinator with the real media/visual adapters.
// Tests construct Coordinator{} directly with stub LM/Blob/Media/Vis
// fields instead of calling this.
func NewCoordinator(jobs jobstore.Store, lm LMOps, blob BlobOps, adapters map[model.SourceKind]IngestAdapter, opts Options) *Coordinator {
	if opts.MaxConcurrentTranscribes <= 0 {
		opts.MaxConcurrentTranscribes = 2
	}
	if opts.MaxConcurrentVisionTasks <= 0 {
		opts.MaxConcurrentVisionTasks = 2
	}
	if opts.MaxConcurrentUploads <= 0 {
		opts.MaxConcurrentUploads = 3
	}
	return &Coordinator{
		Jobs:          jobs,
		LM:            lm,
		Blob:          blob,
		Media:         defaultMedia{},
		Vis:           defaultVisual{},
		adapters:      adapters,
		transcribeSem: semaphore.NewWeighted(int64(opts.MaxConcurrentTranscribes)),
		visionSem:     semaphore.NewWeighted(int64(opts.MaxConcurrentVisionTasks)),
		uploadSem:     semaphore.NewWeighted(int64(opts.MaxConcurrentUploads)),
		opts:          opts,
	}
}

func (c *Coordinator) semaphores() (transcribe, vision, upload *semaphore.Weighted) {
	return c.transcribeSem, c.visionSem, c.uploadSem
}
