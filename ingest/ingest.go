// Package ingest provides the pipeline.IngestAdapter implementations
// cmd/report-worker wires into the orchestrator: a Google Drive fetcher,
// a yt-dlp-backed site downloader, and a pass-through for files already
// uploaded to local disk by the HTTP layer. Subprocess invocation and
// output streaming follow package subprocess and package media's
// exec.Cmd pattern; retries follow the teacher's backoff.Retry idiom.
package ingest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/clipmind/video-report/log"
	"github.com/clipmind/video-report/model"
	"github.com/clipmind/video-report/subprocess"
)

// DriveAdapter fetches a publicly-shared Google Drive file by ID over a
// direct HTTPS download link. There is no Drive SDK in the example pack
// to ground a richer client on, so this is a thin net/http GET, the same
// "no ecosystem library fits, fall back to stdlib with a documented
// reason" call made for package visual's perceptual hashing.
type DriveAdapter struct {
	HTTPClient *http.Client
	TempDir    string
}

func NewDriveAdapter(tempDir string) *DriveAdapter {
	return &DriveAdapter{HTTPClient: &http.Client{Timeout: 30 * time.Minute}, TempDir: tempDir}
}

func (d *DriveAdapter) Acquire(ctx context.Context, job *model.Job) (string, error) {
	downloadURL := fmt.Sprintf("https://drive.google.com/uc?export=download&id=%s", url.QueryEscape(job.SourceRef))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, downloadURL, nil)
	if err != nil {
		return "", fmt.Errorf("building drive request: %w", err)
	}

	var resp *http.Response
	operation := func() error {
		r, err := d.HTTPClient.Do(req)
		if err != nil {
			return err
		}
		if r.StatusCode >= 500 {
			r.Body.Close()
			return fmt.Errorf("drive returned %d", r.StatusCode)
		}
		resp = r
		return nil
	}
	if err := backoff.Retry(operation, backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3)); err != nil {
		return "", fmt.Errorf("downloading drive file %s: %w", job.SourceRef, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("drive file %s returned status %d", job.SourceRef, resp.StatusCode)
	}

	destPath := filepath.Join(d.TempDir, job.ID+"_video_src")
	out, err := os.Create(destPath)
	if err != nil {
		return "", fmt.Errorf("creating drive download destination: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, resp.Body); err != nil {
		return "", fmt.Errorf("writing drive download: %w", err)
	}

	job.VideoName = job.SourceRef
	return destPath, nil
}

// SiteAdapter downloads from a generic URL (YouTube included) by
// shelling out to yt-dlp, mirroring the teacher's pattern of driving an
// external binary (ffmpeg/ffprobe) through exec.Cmd with streamed
// stdout/stderr logging rather than linking a heavyweight scraper
// library.
type SiteAdapter struct {
	TempDir string
	Binary  string
}

func NewSiteAdapter(tempDir string) *SiteAdapter {
	return &SiteAdapter{TempDir: tempDir, Binary: "yt-dlp"}
}

func (s *SiteAdapter) Acquire(ctx context.Context, job *model.Job) (string, error) {
	destPath := filepath.Join(s.TempDir, job.ID+"_video_src.mp4")

	cmd := exec.CommandContext(ctx, s.Binary,
		"--no-playlist",
		"-f", "mp4/best",
		"-o", destPath,
		job.SourceRef,
	)
	if err := subprocess.LogOutputs(cmd); err != nil {
		return "", fmt.Errorf("attaching yt-dlp logging: %w", err)
	}
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("yt-dlp download of %s: %w", job.SourceRef, err)
	}

	job.VideoName = strings.TrimSuffix(filepath.Base(job.SourceRef), filepath.Ext(job.SourceRef))
	return destPath, nil
}

// UploadAdapter handles jobs whose video arrived over the HTTP upload
// endpoint and already sits on local disk at SourceRef; it just
// validates and returns the path, matching the teacher's
// StubInputCopy-style "no-op adapter" shape for sources that need no
// network fetch.
type UploadAdapter struct{}

func (UploadAdapter) Acquire(ctx context.Context, job *model.Job) (string, error) {
	if _, err := os.Stat(job.SourceRef); err != nil {
		return "", fmt.Errorf("uploaded file missing at %s: %w", job.SourceRef, err)
	}
	if job.VideoName == "" {
		job.VideoName = filepath.Base(job.SourceRef)
	}
	log.LogNoRequestID("upload adapter using pre-staged file", "job", job.ID, "path", job.SourceRef)
	return job.SourceRef, nil
}
