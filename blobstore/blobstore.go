// Package blobstore publishes locally extracted hero frames and audio to
// an object store, grounded on the teacher's clients/object_store_client.go
// wrapper over github.com/livepeer/go-tools/drivers. Folder-scoped
// uploads and the 5-attempt jittered-backoff retry policy (spec.md
// §4.5) are new relative to the teacher, which uploads directly to a
// flat OS URL; everything else — driver parsing, metrics, redacted
// logging of the target URL — follows the teacher's shape.
package blobstore

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/clipmind/video-report/config"
	"github.com/clipmind/video-report/log"
	"github.com/clipmind/video-report/metrics"
	"github.com/livepeer/go-tools/drivers"
)

// Store publishes local files to a folder-scoped remote bucket.
type Store struct {
	driver drivers.OSDriver
	bucket string
	host   string
}

// Uploaded is the result of a successful Upload call.
type Uploaded struct {
	ID        string
	PublicURL string
}

func New(osURL, bucket string) (*Store, error) {
	driver, err := drivers.ParseOSURL(osURL, true)
	if err != nil {
		return nil, fmt.Errorf("failed to parse object store URL: %w", err)
	}

	var host string
	sess := driver.NewSession("")
	if info := sess.GetInfo(); info != nil && info.S3Info != nil {
		host = info.S3Info.Host
	}

	return &Store{driver: driver, bucket: bucket, host: host}, nil
}

// EnsureFolder returns the folder ID uploads for this job should target.
// Object-store drivers address objects by key prefix rather than by a
// separate folder resource, so the "folder ID" is simply the prefix
// itself; this keeps the facade's signature aligned with spec.md §4.5
// while staying a thin wrapper over the driver.
func (s *Store) EnsureFolder(jobID string) string {
	return strings.TrimSuffix(jobID, "/") + "/"
}

// Upload writes localPath to folderID/remoteName, retrying up to
// config.UploadMaxAttempts times with exponential backoff and uniform
// jitter (base 1s, factor 2, 0-1s jitter added per attempt).
func (s *Store) Upload(ctx context.Context, localPath, folderID, remoteName string) (Uploaded, error) {
	key := folderID + remoteName

	var result Uploaded
	attempt := 0

	op := func() error {
		attempt++
		if attempt > 1 {
			time.Sleep(jitter(time.Second)) // uniform 0-1s on top of the backoff wait
		}
		start := time.Now()

		f, err := os.Open(localPath)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("opening %s: %w", localPath, err))
		}
		defer f.Close()

		sess := s.driver.NewSession("")
		_, err = sess.SaveData(ctx, key, f, nil, 2*time.Minute)
		duration := time.Since(start)
		if err != nil {
			metrics.Metrics.BlobStoreClient.FailureCount.WithLabelValues("upload", s.bucket).Inc()
			return fmt.Errorf("uploading %s: %w", key, err)
		}

		metrics.Metrics.BlobStoreClient.RequestDuration.WithLabelValues("upload", s.bucket).Observe(duration.Seconds())
		result = Uploaded{ID: key, PublicURL: ThumbnailURL(s.host, key)}
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = config.UploadBackoffBase
	bo.Multiplier = config.UploadBackoffFactor
	bo.MaxElapsedTime = 0
	bo.RandomizationFactor = 0 // waits of 1s, 2s, 4s, ...; op adds the 0-1s jitter

	err := backoff.Retry(op, backoff.WithMaxRetries(bo, uint64(config.UploadMaxAttempts-1)))
	metrics.Metrics.BlobStoreClient.RetryCount.WithLabelValues("upload", s.bucket).Set(float64(attempt - 1))
	if err != nil {
		log.LogNoRequestID("upload exhausted retries", "key", key, "attempts", attempt, "err", err)
		return Uploaded{}, err
	}
	return result, nil
}

// Publicize makes an uploaded object publicly readable. Best effort: a
// failure is logged, never returned as an error, per spec.md §4.5.
func (s *Store) Publicize(ctx context.Context, id string) {
	sess := s.driver.NewSession("")
	if publisher, ok := sess.(interface{ Publish(context.Context, string) error }); ok {
		if err := publisher.Publish(ctx, id); err != nil {
			log.LogNoRequestID("publicize failed, continuing", "id", id, "err", err)
		}
		return
	}
	log.LogNoRequestID("driver does not support publish, assuming public-by-default", "id", id)
}

// ThumbnailURL returns the deterministic public URL for an uploaded
// object, per spec.md §4.5's template.
func ThumbnailURL(host, id string) string {
	return fmt.Sprintf(config.ThumbnailURLTemplate, host, id)
}

// jitter returns a uniform random duration in [0, d), used by Upload to
// add spacing jitter on top of each retry backoff wait.
func jitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return time.Duration(rand.Int63n(int64(d)))
}
