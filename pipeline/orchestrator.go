package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"sort"
	"time"

	"github.com/clipmind/video-report/apierrors"
	"github.com/clipmind/video-report/config"
	"github.com/clipmind/video-report/lmclient"
	"github.com/clipmind/video-report/log"
	"github.com/clipmind/video-report/media"
	"github.com/clipmind/video-report/metrics"
	"github.com/clipmind/video-report/model"
	"github.com/clipmind/video-report/reconcile"
	"github.com/clipmind/video-report/roi"
	"github.com/clipmind/video-report/visual"
	"golang.org/x/sync/semaphore"
)

// StartJob registers job and runs it to completion in a background
// goroutine, recovering from panics the same way the teacher's
// runHandlerAsync does: a panicking stage fails the job instead of
// crashing the process.
func (c *Coordinator) StartJob(job *model.Job) {
	if _, err := c.Jobs.Create(job); err != nil {
		log.LogNoRequestID("failed to register job", "job", job.ID, "err", err)
		return
	}
	go func(jobID string) {
		if _, err := recovered(func() (bool, error) {
			return true, c.run(context.Background(), jobID)
		}); err != nil {
			c.fail(jobID, err)
		}
	}(job.ID)
}

func recovered[T any](f func() (T, error)) (t T, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			log.LogNoRequestID("panic in pipeline stage, recovering", "err", rec, "trace", string(debug.Stack()))
			err = fmt.Errorf("panic in pipeline: %v", rec)
		}
	}()
	return f()
}

func (c *Coordinator) ensureSemaphores() {
	if c.transcribeSem == nil {
		c.transcribeSem = semaphore.NewWeighted(2)
	}
	if c.visionSem == nil {
		c.visionSem = semaphore.NewWeighted(2)
	}
	if c.uploadSem == nil {
		c.uploadSem = semaphore.NewWeighted(3)
	}
	if c.Media == nil {
		c.Media = defaultMedia{}
	}
	if c.Vis == nil {
		c.Vis = defaultVisual{}
	}
}

// advance sets status and, if higher than the current value, progress;
// progress is monotonically increasing per spec.md §3. message, if
// non-empty, is appended to the job's log.
func (c *Coordinator) advance(jobID string, status model.Status, progress float64, message string) {
	_ = c.Jobs.Update(jobID, func(j *model.Job) {
		j.Status = status
		if progress > j.Progress {
			j.Progress = progress
		}
	})
	if message != "" {
		_ = c.Jobs.AppendLog(jobID, message)
	}
}

func (c *Coordinator) fail(jobID string, err error) {
	log.LogNoRequestID("job failed", "job", jobID, "err", err)
	_ = c.Jobs.Update(jobID, func(j *model.Job) {
		j.Status = model.StatusFailed
		j.ErrorMessage = err.Error()
	})
	metrics.Metrics.JobsCompleted.WithLabelValues("failed").Inc()
	c.cleanup(jobID)
}

func (c *Coordinator) checkCancelled(ctx context.Context) error {
	if ctx.Err() != nil {
		return apierrors.CancelledError
	}
	return nil
}

func (c *Coordinator) stageTimed(name string, fn func() error) error {
	start := time.Now()
	err := fn()
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	metrics.Metrics.StageDuration.Count.WithLabelValues(name, outcome).Inc()
	metrics.Metrics.StageDuration.Duration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	return err
}

func (c *Coordinator) videoPath(jobID string) string {
	return filepath.Join(c.opts.TempDir, jobID+"_video")
}
func (c *Coordinator) audioPath(jobID string) string {
	return filepath.Join(c.opts.TempDir, jobID+"_audio.wav")
}
func (c *Coordinator) chunksDir(jobID string) string {
	return filepath.Join(c.opts.TempDir, jobID+"_audio_chunks")
}
func (c *Coordinator) framesDir(jobID string) string {
	return filepath.Join(c.opts.TempDir, jobID+"_frames")
}

// cleanup removes the video file, audio chunk directory, and frames
// directory; the merged audio file is retained for later user download
// per spec.md §4.7 stage 14.
func (c *Coordinator) cleanup(jobID string) {
	_ = os.RemoveAll(c.chunksDir(jobID))
	_ = os.RemoveAll(c.framesDir(jobID))
	job, err := c.Jobs.Read(jobID)
	if err == nil && job.LocalPath != "" {
		_ = os.Remove(job.LocalPath)
	}
}

// run drives job jobID through all fourteen stages of spec.md §4.7 in
// order. Any stage error transitions the job to failed and stops
// execution; individual frame/chunk/cluster failures inside a stage are
// instead contained as placeholders, per the same section's closing
// paragraph.
func (c *Coordinator) run(ctx context.Context, jobID string) error {
	c.ensureSemaphores()

	job, err := c.Jobs.Read(jobID)
	if err != nil {
		return err
	}

	adapter, ok := c.adapters[job.SourceKind]
	if !ok {
		return fmt.Errorf("no ingest adapter registered for source kind %q", job.SourceKind)
	}

	if err := os.MkdirAll(c.opts.TempDir, 0o755); err != nil {
		return fmt.Errorf("creating temp dir: %w", err)
	}

	// Stage 1: download/acquire.
	c.advance(jobID, model.StatusDownloading, 0.05, "acquiring source")
	var localPath string
	var duration float64
	if err := c.stageTimed("acquire", func() error {
		lp, err := adapter.Acquire(ctx, job)
		if err != nil {
			return fmt.Errorf("acquire: %w", err)
		}
		localPath = lp
		duration, _ = c.Media.ProbeDuration(ctx, localPath)
		return c.Jobs.Update(jobID, func(j *model.Job) {
			j.LocalPath = localPath
			j.DurationSeconds = duration
		})
	}); err != nil {
		c.fail(jobID, err)
		return err
	}
	c.advance(jobID, model.StatusDownloading, 0.10, "source acquired")

	if err := c.checkCancelled(ctx); err != nil {
		c.fail(jobID, err)
		return err
	}

	// Stage 2: extract audio.
	c.advance(jobID, model.StatusExtracting, 0.15, "extracting audio")
	audioPath := c.audioPath(jobID)
	if err := c.stageTimed("extract_audio", func() error {
		return c.Media.ExtractAudio(ctx, localPath, audioPath)
	}); err != nil {
		c.fail(jobID, fmt.Errorf("extract audio: %w", err))
		return err
	}
	c.advance(jobID, model.StatusExtracting, 0.25, "audio extracted")

	// Stage 3: transcribe.
	c.advance(jobID, model.StatusTranscribing, 0.30, "transcribing audio")
	chunkSecs := c.opts.AudioChunkSecs
	if chunkSecs <= 0 {
		chunkSecs = config.DefaultAudioChunkDuration.Seconds()
	}
	overlapSecs := c.opts.AudioOverlapSecs
	if overlapSecs <= 0 {
		overlapSecs = config.DefaultAudioOverlapDuration.Seconds()
	}

	var transcript []model.Segment
	if err := c.stageTimed("transcribe", func() error {
		if err := os.MkdirAll(c.chunksDir(jobID), 0o755); err != nil {
			return err
		}
		chunks, err := c.Media.SplitAudio(ctx, audioPath, c.chunksDir(jobID), duration, chunkSecs, overlapSecs)
		if err != nil {
			return fmt.Errorf("split audio: %w", err)
		}

		results := fanOut(ctx, c.transcribeSem, "transcribe", chunks, []model.Segment(nil),
			func(ctx context.Context, _ int, chunk media.Chunk) ([]model.Segment, error) {
				return c.LM.TranscribeChunk(ctx, chunk.Path, chunk.StartS, chunk.EndS)
			})

		var flat []model.Segment
		for _, segs := range results {
			flat = append(flat, segs...)
		}
		transcript = reconcile.DedupeSegments(flat)
		return c.Jobs.Update(jobID, func(j *model.Job) { j.Transcript = transcript })
	}); err != nil {
		c.fail(jobID, fmt.Errorf("transcribe: %w", err))
		return err
	}
	c.advance(jobID, model.StatusTranscribing, 0.50, "transcription complete")

	if err := c.checkCancelled(ctx); err != nil {
		c.fail(jobID, err)
		return err
	}

	// Stage 4: audio-cue scout + transcript analysis/genre, then ad
	// filter on the analyzer's topics.
	c.advance(jobID, model.StatusAnalyzing, 0.50, "analyzing transcript")
	fullText := plainTranscript(transcript)
	rendered := renderTranscript(transcript)

	genre, genreConfidence, genreReason, _ := c.LM.ClassifyGenre(ctx, fullText, duration)

	var audioCues []lmclient.AudioCue
	var analysis lmclient.TranscriptAnalysis
	if err := c.stageTimed("analyze", func() error {
		type analyzeResult struct {
			analysis lmclient.TranscriptAnalysis
			err      error
		}
		analyzeCh := make(chan analyzeResult, 1)
		go func() {
			a, err := c.LM.AnalyzeTranscript(ctx, fullText, duration, genre, reconcile.DedupeTopics)
			analyzeCh <- analyzeResult{a, err}
		}()
		audioCues = c.LM.ScoutAudioCues(ctx, rendered)
		r := <-analyzeCh
		if r.err != nil {
			return fmt.Errorf("analyze transcript: %w", r.err)
		}
		analysis = r.analysis
		analysis.Topics = lmclient.FilterAds(analysis.Topics)
		return nil
	}); err != nil {
		c.fail(jobID, err)
		return err
	}
	_ = c.Jobs.Update(jobID, func(j *model.Job) {
		j.Genre = genre
		j.GenreConfidence = genreConfidence
		j.GenreReason = genreReason
	})
	c.advance(jobID, model.StatusAnalyzing, 0.60, "transcript analysis complete")

	// Stage 5: coarse visual sampling + parallel gatekeeper.
	framesDir := c.framesDir(jobID)
	if err := os.MkdirAll(framesDir, 0o755); err != nil {
		c.fail(jobID, err)
		return err
	}
	coarseFrames := c.Media.ExtractKeyframes(ctx, localPath, framesDir, duration, config.CoarseSampleInterval.Seconds())

	var usefulCoarse []media.Frame
	if err := c.stageTimed("gatekeeper", func() error {
		verdicts := fanOut(ctx, c.visionSem, "gatekeeper", coarseFrames, lmclient.GatekeeperVerdict{Category: "error"},
			func(ctx context.Context, _ int, f media.Frame) (lmclient.GatekeeperVerdict, error) {
				v := c.LM.GatekeepFrame(ctx, f.Path)
				return v, nil
			})
		for i, v := range verdicts {
			if v.IsUseful {
				usefulCoarse = append(usefulCoarse, coarseFrames[i])
			}
		}
		return nil
	}); err != nil {
		c.fail(jobID, err)
		return err
	}
	c.advance(jobID, model.StatusAnalyzing, 0.70, "visual sampling complete")

	// Stage 6: ROI fusion + dense resample.
	var events []float64
	for _, cue := range audioCues {
		events = append(events, cue.TimestampS)
	}
	for _, f := range usefulCoarse {
		events = append(events, f.TimestampS)
	}
	roiWindows := roi.Merge(events, duration, config.ROIBufferSeconds, config.ROIMinGapSeconds)
	denseFrames := c.Media.ExtractDenseFrames(ctx, localPath, framesDir, toMediaWindows(roiWindows), config.DenseSampleFPS)

	// Stage 7: clustering over the union of useful-coarse and dense
	// frames, deduplicated by integer second (dense wins collision).
	sampled := mergeFramesByIntegerSecond(usefulCoarse, denseFrames)
	clusters := c.Vis.Cluster(sampled, config.ClusterHammingThreshold)

	// Stage 8: hero selection per cluster.
	type heroPlan struct {
		hero     model.HeroFrame
		subTopic lmclient.VisualSubTopic
	}
	var heroPlans []heroPlan
	if err := c.stageTimed("hero_selection", func() error {
		// Hero-cluster description is a vision task, bounded by the same
		// semaphore as the per-frame gatekeeper (spec.md §5).
		heroPlans = fanOut(ctx, c.visionSem, "hero_selection", clusters, heroPlan{},
			func(ctx context.Context, idx int, cl visual.Cluster) (heroPlan, error) {
				paths := make([]string, len(cl.Candidates))
				for i, cand := range cl.Candidates {
					paths[i] = cand.Path
				}
				desc, err := c.LM.DescribeCluster(ctx, paths, cl.StartS, cl.EndS)
				if err != nil {
					log.LogNoRequestID("cluster description failed, using placeholder", "cluster", idx, "err", err)
					desc = lmclient.ClusterDescription{VisualSummary: "Analysis failed"}
				}
				heroCandidate := cl.Candidates[desc.HeroIndex]
				return heroPlan{
					hero: model.HeroFrame{
						TimestampS:  heroCandidate.TimestampS,
						LocalPath:   heroCandidate.Path,
						Description: desc.VisualSummary,
						OCRText:     joinKeywords(desc.OCRKeywords),
					},
					subTopic: lmclient.VisualSubTopic{
						Title:         desc.SubTopicTitle,
						Summary:       desc.VisualSummary,
						TimestampS:    heroCandidate.TimestampS,
						OriginalIndex: idx,
					},
				}, nil
			})
		return nil
	}); err != nil {
		c.fail(jobID, err)
		return err
	}

	// Stage 9: parallel hero upload.
	c.advance(jobID, model.StatusAnalyzing, 0.70, "uploading hero frames")
	folder := c.Blob.EnsureFolder(jobID)
	heroes := make([]model.HeroFrame, len(heroPlans))
	subTopics := make([]lmclient.VisualSubTopic, len(heroPlans))
	var frameSummaries []string
	if err := c.stageTimed("upload_heroes", func() error {
		uploaded := fanOut(ctx, c.uploadSem, "upload_heroes", heroPlans, model.HeroFrame{},
			func(ctx context.Context, i int, plan heroPlan) (model.HeroFrame, error) {
				result, err := c.Blob.Upload(ctx, plan.hero.LocalPath, folder, fmt.Sprintf("hero_%03d.jpg", i))
				// Hold the upload slot for config.UploadRateLimitInterval so
				// successive uploads through one slot are spaced apart.
				select {
				case <-time.After(config.UploadRateLimitInterval):
				case <-ctx.Done():
				}
				if err != nil {
					// Upload failure is contained: keep the hero's
					// description and timestamp, just without a BlobURL,
					// rather than losing it to a blank placeholder.
					log.LogNoRequestID("hero upload failed, keeping frame without a blob url", "index", i, "err", err)
					return plan.hero, nil
				}
				plan.hero.BlobURL = result.PublicURL
				return plan.hero, nil
			})
		for i, h := range uploaded {
			heroes[i] = h
			subTopics[i] = heroPlans[i].subTopic
			if h.Description != "" {
				frameSummaries = append(frameSummaries, fmt.Sprintf("[%.0fs] %s", h.TimestampS, h.Description))
			}
		}
		return nil
	}); err != nil {
		c.fail(jobID, err)
		return err
	}
	_ = c.Jobs.Update(jobID, func(j *model.Job) { j.Frames = heroes })
	c.advance(jobID, model.StatusSynthesizing, 0.85, "hero frames uploaded")

	// Stage 10: synthesis + ad-refilter.
	synthesis, err := c.LM.Synthesize(ctx, analysis.Topics, joinSummaries(frameSummaries), duration,
		"Video processing completed but synthesis had errors.", analysis.KeyTakeaways, analysis.Entities)
	if err != nil {
		c.fail(jobID, fmt.Errorf("synthesize: %w", err))
		return err
	}
	synthesis.Topics = lmclient.FilterAds(synthesis.Topics)
	c.advance(jobID, model.StatusSynthesizing, 0.90, "synthesis complete")

	// Stage 11: topic<->visual mapping.
	topics, err := c.LM.MapVisualsToTopics(ctx, synthesis.Topics, subTopics)
	if err != nil {
		topics = synthesis.Topics
	}

	// Stage 12: frame binding.
	topics = reconcile.BindFrames(topics, heroes)

	// Stage 13: slide deck.
	slides := c.LM.GenerateSlideDeck(ctx, fullText, synthesis.ExecutiveSummary, synthesis.KeyTakeaways)
	c.advance(jobID, model.StatusSynthesizing, 0.95, "slide deck generated")

	// Stage 14: persist final job + cleanup.
	_ = c.Jobs.Update(jobID, func(j *model.Job) {
		j.Topics = topics
		j.ExecutiveSummary = synthesis.ExecutiveSummary
		j.KeyTakeaways = synthesis.KeyTakeaways
		j.SlideSummary = slides
		j.Entities = entitiesToMap(synthesis.Entities)
		j.Status = model.StatusCompleted
		j.Progress = 1.0
	})
	metrics.Metrics.JobsCompleted.WithLabelValues("completed").Inc()
	c.cleanup(jobID)
	return nil
}

func joinKeywords(keywords []string) string {
	return joinSummaries(keywords)
}

func joinSummaries(parts []string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += "; "
		}
		out += p
	}
	return out
}

func entitiesToMap(e lmclient.Entities) map[string][]string {
	uniqueSorted := func(in []string) []string {
		seen := make(map[string]bool, len(in))
		out := make([]string, 0, len(in))
		for _, s := range in {
			if !seen[s] {
				seen[s] = true
				out = append(out, s)
			}
		}
		sort.Strings(out)
		return out
	}
	return map[string][]string{
		"people":    uniqueSorted(e.People),
		"companies": uniqueSorted(e.Companies),
		"concepts":  uniqueSorted(e.Concepts),
		"tools":     uniqueSorted(e.Tools),
	}
}
