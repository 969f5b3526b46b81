// Package media wraps the ffmpeg/ffprobe toolkit used to pull audio and
// frames out of a source video. Probing mirrors the teacher's
// video/probe.go approach; every ffmpeg invocation is built with
// github.com/u2takey/ffmpeg-go's fluent Input/Output/KwArgs builder,
// grounded on the teacher's newer frame-extraction implementation
// (thumbnails/thumbnails.go's processSegment and handlers/image.go),
// generalized from HLS segment thumbnailing to the sampling and
// extraction operations a report job needs.
package media

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/clipmind/video-report/config"
	"github.com/clipmind/video-report/log"
	ffmpeg "github.com/u2takey/ffmpeg-go"
	"gopkg.in/vansante/go-ffprobe.v2"
)

// Frame is one sampled image together with the timestamp it was taken at.
type Frame struct {
	Path       string
	TimestampS float64
}

// Chunk is one overlapping audio window produced by SplitAudio.
type Chunk struct {
	Path   string
	StartS float64
	EndS   float64
}

// Window is a merged region-of-interest the caller wants densely resampled.
type Window struct {
	StartS float64
	EndS   float64
}

// ProbeDuration returns the video's duration in seconds. Per spec.md
// §4.1 a probe failure is non-fatal: it returns 0, nil rather than an
// error, since the orchestrator treats duration as best-effort metadata.
func ProbeDuration(ctx context.Context, path string) (float64, error) {
	ctx, cancel := context.WithTimeout(ctx, config.ProbeTimeout)
	defer cancel()

	var data *ffprobe.ProbeData
	operation := func() error {
		var err error
		data, err = ffprobe.ProbeURL(ctx, path)
		return err
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 500 * time.Millisecond
	bo.MaxInterval = 2 * time.Second
	bo.MaxElapsedTime = config.ProbeTimeout

	if err := backoff.Retry(operation, backoff.WithContext(bo, ctx)); err != nil {
		log.LogNoRequestID("probe failed, returning zero duration", "path", path, "err", err)
		return 0, nil
	}
	if data.Format == nil {
		return 0, nil
	}
	return data.Format.DurationSeconds, nil
}

// ExtractAudio decodes the video's audio track to mono 16-bit PCM at
// 16 kHz and writes it to outPath. It fails only if ffmpeg returns a
// non-zero exit code.
func ExtractAudio(ctx context.Context, videoPath, outPath string) error {
	var errOut bytes.Buffer
	run := func() error {
		err := ffmpeg.Input(videoPath).
			Output(outPath, ffmpeg.KwArgs{
				"vn":         "",
				"ac":         1,
				"ar":         config.DefaultAudioSampleRate,
				"sample_fmt": "s16",
			}).OverWriteOutput().WithErrorOutput(&errOut).Run()
		if err != nil {
			return fmt.Errorf("ffmpeg extract_audio failed [%s]: %w", errOut.String(), err)
		}
		return nil
	}
	return runFFmpeg(ctx, config.AudioOpTimeout, run)
}

// windowBounds computes the overlapping [start,end) windows SplitAudio
// slices the source audio into. Factored out of SplitAudio so the stride
// arithmetic is unit-testable without invoking ffmpeg.
func windowBounds(duration, chunkSecs, overlapSecs float64) ([][2]float64, error) {
	stride := chunkSecs - overlapSecs
	if stride <= 0 {
		return nil, fmt.Errorf("chunk duration %v must exceed overlap %v", chunkSecs, overlapSecs)
	}

	var bounds [][2]float64
	for start := 0.0; start < duration; start += stride {
		end := start + chunkSecs
		if end > duration {
			end = duration
		}
		bounds = append(bounds, [2]float64{start, end})
		if end >= duration {
			break
		}
	}
	return bounds, nil
}

// SplitAudio splits an already-extracted audio file into overlapping
// windows of chunkSecs with overlapSecs overlap, using stream copy (no
// re-encode). The stride between chunk starts is chunkSecs-overlapSecs;
// the last chunk may be shorter than chunkSecs.
func SplitAudio(ctx context.Context, audioPath, outDir string, duration float64, chunkSecs, overlapSecs float64) ([]Chunk, error) {
	bounds, err := windowBounds(duration, chunkSecs, overlapSecs)
	if err != nil {
		return nil, err
	}

	var chunks []Chunk
	for idx, b := range bounds {
		start, end := b[0], b[1]
		outPath := filepath.Join(outDir, fmt.Sprintf("chunk_%03d.wav", idx))

		var errOut bytes.Buffer
		run := func() error {
			err := ffmpeg.Input(audioPath, ffmpeg.KwArgs{"ss": fmt.Sprintf("%f", start), "t": fmt.Sprintf("%f", end-start)}).
				Output(outPath, ffmpeg.KwArgs{"c": "copy"}).
				OverWriteOutput().WithErrorOutput(&errOut).Run()
			if err != nil {
				return fmt.Errorf("ffmpeg split_audio failed [%s]: %w", errOut.String(), err)
			}
			return nil
		}
		if runErr := runFFmpeg(ctx, config.AudioOpTimeout, run); runErr != nil {
			log.LogNoRequestID("split_audio chunk failed, skipping", "index", idx, "err", runErr)
			continue
		}

		chunks = append(chunks, Chunk{Path: outPath, StartS: start, EndS: end})
	}
	return chunks, nil
}

// keyframeTimestamps returns the interval boundaries ExtractKeyframes
// samples at, starting at 0 and stopping before duration.
func keyframeTimestamps(duration, intervalSecs float64) []float64 {
	var out []float64
	for ts := 0.0; ts < duration; ts += intervalSecs {
		out = append(out, ts)
	}
	return out
}

// ExtractKeyframes samples one JPEG every intervalSecs starting at 0.
// Per-frame failures are tolerated: the frame is simply missing from the
// result.
func ExtractKeyframes(ctx context.Context, videoPath, outDir string, duration float64, intervalSecs float64) []Frame {
	var frames []Frame
	for _, ts := range keyframeTimestamps(duration, intervalSecs) {
		outPath := filepath.Join(outDir, fmt.Sprintf("keyframe_%08d.jpg", int(ts*1000)))
		if err := extractFrameAt(ctx, videoPath, outPath, ts, config.FrameTimeout); err != nil {
			log.LogNoRequestID("extract_keyframes frame failed, skipping", "ts", ts, "err", err)
			continue
		}
		frames = append(frames, Frame{Path: outPath, TimestampS: ts})
	}
	return frames
}

// denseFrameTimestamps returns, for a single window, the list of
// timestamps ExtractDenseFrames samples at: start + frameIndex/fps for
// each frameIndex whose timestamp falls inside the window.
func denseFrameTimestamps(w Window, fps float64) []float64 {
	step := 1.0 / fps
	var out []float64
	frameIdx := 0
	for ts := w.StartS; ts < w.EndS; ts += step {
		out = append(out, w.StartS+float64(frameIdx)/fps)
		frameIdx++
	}
	return out
}

// ExtractDenseFrames samples inside each window at fps frames per second.
// Files are named so they can never collide across windows, and the
// timestamp of every emitted file is derivable from
// window.StartS + frameIndex/fps.
func ExtractDenseFrames(ctx context.Context, videoPath, outDir string, windows []Window, fps float64) []Frame {
	var frames []Frame
	for wi, w := range windows {
		ctx, cancel := context.WithTimeout(ctx, config.DenseWindowTimeout)
		for frameIdx, ts := range denseFrameTimestamps(w, fps) {
			outPath := filepath.Join(outDir, fmt.Sprintf("dense_w%03d_f%05d.jpg", wi, frameIdx))
			if err := extractFrameAt(ctx, videoPath, outPath, ts, config.FrameTimeout); err != nil {
				log.LogNoRequestID("extract_dense_frames frame failed, skipping", "window", wi, "ts", ts, "err", err)
				continue
			}
			frames = append(frames, Frame{Path: outPath, TimestampS: ts})
		}
		cancel()
	}
	return frames
}

// extractFrameAt pulls a single JPEG at ts, the same
// Input(...).Output(..., KwArgs{"ss":..., "vframes":..., "vf":...}) shape
// as the teacher's thumbnails.go:processSegment and handlers/image.go.
func extractFrameAt(ctx context.Context, videoPath, outPath string, ts float64, timeout time.Duration) error {
	var errOut bytes.Buffer
	run := func() error {
		err := ffmpeg.Input(videoPath, ffmpeg.KwArgs{"ss": fmt.Sprintf("%f", ts)}).
			Output(outPath, ffmpeg.KwArgs{
				"vframes": "1",
				"q:v":     "2",
			}).OverWriteOutput().WithErrorOutput(&errOut).Run()
		if err != nil {
			return fmt.Errorf("ffmpeg extract_frame failed [%s]: %w", errOut.String(), err)
		}
		return nil
	}
	return runFFmpeg(ctx, timeout, run)
}

// runFFmpeg bounds how long the caller waits on run by ctx/timeout.
// u2takey/ffmpeg-go's Run() has no context support, so a timeout here
// only stops the caller from waiting further; it does not kill the
// ffmpeg subprocess, the same limitation the teacher's own ffmpeg-go
// call sites (thumbnails.go, video/segment.go, handlers/image.go) accept.
func runFFmpeg(ctx context.Context, timeout time.Duration, run func() error) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- run() }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("ffmpeg timed out after %s", timeout)
	}
}
