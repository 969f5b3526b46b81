package pipeline

import (
	"context"
	"fmt"
	"testing"

	"github.com/clipmind/video-report/blobstore"
	"github.com/clipmind/video-report/jobstore"
	"github.com/clipmind/video-report/lmclient"
	"github.com/clipmind/video-report/media"
	"github.com/clipmind/video-report/model"
	"github.com/clipmind/video-report/visual"
	"github.com/stretchr/testify/require"
)

// stubAdapter satisfies IngestAdapter without touching a real source.
type stubAdapter struct{}

func (stubAdapter) Acquire(ctx context.Context, job *model.Job) (string, error) {
	return "/tmp/video.mp4", nil
}

// stubLM satisfies LMOps with deterministic, network-free answers. Fields
// let individual tests inject failures on a single operation.
type stubLM struct {
	gatekeepUseful bool
	describeErr    error
	mapErr         bool
	synthesizeErr  error
}

func (s *stubLM) ClassifyGenre(ctx context.Context, transcriptPrefix string, durationS float64) (model.Genre, float64, string, error) {
	return model.GenreEducationalLecture, 0.9, "lecture keywords", nil
}

func (s *stubLM) TranscribeChunk(ctx context.Context, audioPath string, startOffsetS, endOffsetS float64) ([]model.Segment, error) {
	return []model.Segment{{Text: "hello", StartS: startOffsetS, EndS: endOffsetS}}, nil
}

func (s *stubLM) AnalyzeTranscript(ctx context.Context, transcript string, durationS float64, genre model.Genre, dedupeTopics func([]model.Topic) []model.Topic) (lmclient.TranscriptAnalysis, error) {
	topics := []model.Topic{
		{Title: "Introduction", StartS: 0, EndS: 10},
		{Title: "Sponsor message", StartS: 10, EndS: 20},
	}
	if dedupeTopics != nil {
		topics = dedupeTopics(topics)
	}
	return lmclient.TranscriptAnalysis{
		Topics:       topics,
		KeyTakeaways: []string{"takeaway one"},
		Entities:     lmclient.Entities{People: []string{"Ada Lovelace"}},
	}, nil
}

func (s *stubLM) ScoutAudioCues(ctx context.Context, renderedTranscript string) []lmclient.AudioCue {
	return []lmclient.AudioCue{{TimestampS: 5, CuePhrase: "as you can see here"}}
}

func (s *stubLM) GatekeepFrame(ctx context.Context, imagePath string) lmclient.GatekeeperVerdict {
	return lmclient.GatekeeperVerdict{IsUseful: s.gatekeepUseful, Category: "slide_presentation"}
}

func (s *stubLM) DescribeCluster(ctx context.Context, candidatePaths []string, startS, endS float64) (lmclient.ClusterDescription, error) {
	if s.describeErr != nil {
		return lmclient.ClusterDescription{}, s.describeErr
	}
	return lmclient.ClusterDescription{HeroIndex: 0, SubTopicTitle: "diagram", VisualSummary: "a diagram"}, nil
}

func (s *stubLM) MapVisualsToTopics(ctx context.Context, topics []model.Topic, subTopics []lmclient.VisualSubTopic) ([]model.Topic, error) {
	if s.mapErr {
		return nil, fmt.Errorf("mapping unavailable")
	}
	return topics, nil
}

func (s *stubLM) Synthesize(ctx context.Context, analyzedTopics []model.Topic, frameSummaries string, durationS float64, fallbackSummary string, fallbackTakeaways []string, fallbackEntities lmclient.Entities) (lmclient.Synthesis, error) {
	if s.synthesizeErr != nil {
		return lmclient.Synthesis{}, s.synthesizeErr
	}
	return lmclient.Synthesis{
		ExecutiveSummary: "a lecture about introductions",
		Topics:           analyzedTopics,
		KeyTakeaways:     fallbackTakeaways,
		Entities:         fallbackEntities,
	}, nil
}

func (s *stubLM) GenerateSlideDeck(ctx context.Context, transcript, summary string, keyTakeaways []string) []model.Slide {
	return []model.Slide{{Title: "Slide 1", Bullets: []string{"point one"}}}
}

// stubBlob satisfies BlobOps. failOn, if set, makes Upload fail for that
// exact remoteName so tests can exercise the placeholder-containment path.
type stubBlob struct {
	failOn string
}

func (b *stubBlob) EnsureFolder(jobID string) string { return "folder-" + jobID }

func (b *stubBlob) Upload(ctx context.Context, localPath, folderID, remoteName string) (blobstore.Uploaded, error) {
	if remoteName == b.failOn {
		return blobstore.Uploaded{}, fmt.Errorf("upload failed")
	}
	return blobstore.Uploaded{PublicURL: "https://blobs.example/" + remoteName}, nil
}

func (b *stubBlob) Publicize(ctx context.Context, id string) {}

// stubMedia satisfies MediaOps without shelling out to ffmpeg/ffprobe.
type stubMedia struct {
	chunks []media.Chunk
	coarse []media.Frame
	dense  []media.Frame
}

func (m *stubMedia) ProbeDuration(ctx context.Context, path string) (float64, error) { return 60, nil }
func (m *stubMedia) ExtractAudio(ctx context.Context, videoPath, outPath string) error {
	return nil
}
func (m *stubMedia) SplitAudio(ctx context.Context, audioPath, outDir string, duration, chunkSecs, overlapSecs float64) ([]media.Chunk, error) {
	return m.chunks, nil
}
func (m *stubMedia) ExtractKeyframes(ctx context.Context, videoPath, outDir string, duration, intervalSecs float64) []media.Frame {
	return m.coarse
}
func (m *stubMedia) ExtractDenseFrames(ctx context.Context, videoPath, outDir string, windows []media.Window, fps float64) []media.Frame {
	return m.dense
}

// stubVisual satisfies VisualOps, returning one fixed cluster regardless
// of input so hero selection has something to fan out over.
type stubVisual struct{}

func (stubVisual) Cluster(frames []visual.SampledFrame, threshold int) []visual.Cluster {
	if len(frames) == 0 {
		return nil
	}
	cands := make([]visual.Candidate, len(frames))
	for i, f := range frames {
		cands[i] = visual.Candidate{Path: f.Path, TimestampS: f.TimestampS, BlurScore: float64(i)}
	}
	return []visual.Cluster{{
		StartS:     frames[0].TimestampS,
		EndS:       frames[len(frames)-1].TimestampS,
		FrameCount: len(frames),
		Candidates: cands,
	}}
}

func newTestCoordinator(t *testing.T, lm *stubLM, blob *stubBlob, med *stubMedia) (*Coordinator, jobstore.Store) {
	t.Helper()
	jobs := jobstore.NewMemoryStore()
	c := &Coordinator{
		Jobs:  jobs,
		LM:    lm,
		Blob:  blob,
		Media: med,
		Vis:   stubVisual{},
		adapters: map[model.SourceKind]IngestAdapter{
			model.SourceUpload: stubAdapter{},
		},
		opts: Options{TempDir: t.TempDir()},
	}
	return c, jobs
}

func createAndRun(t *testing.T, c *Coordinator, jobs jobstore.Store, jobID string) *model.Job {
	t.Helper()
	job := model.New(jobID, model.SourceUpload, "ref")
	_, err := jobs.Create(job)
	require.NoError(t, err)
	require.NoError(t, c.run(context.Background(), jobID))
	got, err := jobs.Read(jobID)
	require.NoError(t, err)
	return got
}

func TestRunHappyPathCompletesJob(t *testing.T) {
	lm := &stubLM{gatekeepUseful: true}
	blob := &stubBlob{}
	med := &stubMedia{
		chunks: []media.Chunk{{Path: "/tmp/chunk0.wav", StartS: 0, EndS: 30}},
		coarse: []media.Frame{{Path: "/tmp/frame0.jpg", TimestampS: 1}},
		dense:  []media.Frame{{Path: "/tmp/frame1.jpg", TimestampS: 2}},
	}
	c, jobs := newTestCoordinator(t, lm, blob, med)

	got := createAndRun(t, c, jobs, "job-1")
	require.Equal(t, model.StatusCompleted, got.Status)
	require.Equal(t, 1.0, got.Progress)
	require.NotEmpty(t, got.Frames)
	require.Equal(t, "https://blobs.example/hero_000.jpg", got.Frames[0].BlobURL)
}

func TestRunAppliesAdFilterToAnalyzerAndSynthesisTopics(t *testing.T) {
	lm := &stubLM{gatekeepUseful: false}
	blob := &stubBlob{}
	med := &stubMedia{}
	c, jobs := newTestCoordinator(t, lm, blob, med)

	got := createAndRun(t, c, jobs, "job-2")
	for _, topic := range got.Topics {
		require.NotContains(t, topic.Title, "Sponsor")
	}
}

func TestRunContainsHeroUploadFailureWithoutLosingDescription(t *testing.T) {
	lm := &stubLM{gatekeepUseful: true}
	blob := &stubBlob{failOn: "hero_000.jpg"}
	med := &stubMedia{
		coarse: []media.Frame{{Path: "/tmp/frame0.jpg", TimestampS: 1}},
	}
	c, jobs := newTestCoordinator(t, lm, blob, med)

	got := createAndRun(t, c, jobs, "job-3")
	require.Len(t, got.Frames, 1)
	require.Empty(t, got.Frames[0].BlobURL)
	require.Equal(t, "a diagram", got.Frames[0].Description)
}

func TestRunContainsClusterDescriptionFailureAsPlaceholder(t *testing.T) {
	lm := &stubLM{gatekeepUseful: true, describeErr: fmt.Errorf("vision call failed")}
	blob := &stubBlob{}
	med := &stubMedia{
		coarse: []media.Frame{{Path: "/tmp/frame0.jpg", TimestampS: 1}},
	}
	c, jobs := newTestCoordinator(t, lm, blob, med)

	got := createAndRun(t, c, jobs, "job-4")
	require.Len(t, got.Frames, 1)
	require.Equal(t, "Analysis failed", got.Frames[0].Description)
}

func TestRunMapVisualsFailureFallsBackToSynthesisTopics(t *testing.T) {
	lm := &stubLM{gatekeepUseful: false, mapErr: true}
	blob := &stubBlob{}
	med := &stubMedia{}
	c, jobs := newTestCoordinator(t, lm, blob, med)

	got := createAndRun(t, c, jobs, "job-5")
	require.NotEmpty(t, got.Topics)
}

func TestRunProgressIsMonotonicallyIncreasing(t *testing.T) {
	lm := &stubLM{gatekeepUseful: true}
	blob := &stubBlob{}
	med := &stubMedia{
		coarse: []media.Frame{{Path: "/tmp/frame0.jpg", TimestampS: 1}},
	}
	c, jobs := newTestCoordinator(t, lm, blob, med)

	job := model.New("job-6", model.SourceUpload, "ref")
	_, err := jobs.Create(job)
	require.NoError(t, err)

	var last float64
	c.Jobs = &progressTrackingStore{Store: jobs, onUpdate: func(p float64) {
		require.GreaterOrEqual(t, p, last)
		last = p
	}}

	require.NoError(t, c.run(context.Background(), job.ID))
	require.Equal(t, 1.0, last)
}

// progressTrackingStore wraps a jobstore.Store and calls onUpdate with the
// job's progress after every patch, letting a test observe every
// intermediate advance() call rather than only the final state.
type progressTrackingStore struct {
	jobstore.Store
	onUpdate func(float64)
}

func (p *progressTrackingStore) Update(id string, patch func(*model.Job)) error {
	err := p.Store.Update(id, patch)
	if job, readErr := p.Store.Read(id); readErr == nil {
		p.onUpdate(job.Progress)
	}
	return err
}
