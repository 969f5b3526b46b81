package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/clipmind/video-report/blobstore"
	"github.com/clipmind/video-report/config"
	"github.com/clipmind/video-report/httpapi"
	"github.com/clipmind/video-report/ingest"
	"github.com/clipmind/video-report/jobstore"
	"github.com/clipmind/video-report/lmclient"
	"github.com/clipmind/video-report/log"
	"github.com/clipmind/video-report/metrics"
	"github.com/clipmind/video-report/model"
	"github.com/clipmind/video-report/pipeline"
	"github.com/golang/glog"
	"github.com/peterbourgon/ff/v3"
	"golang.org/x/sync/errgroup"
)

func main() {
	fs := flag.NewFlagSet("report-worker", flag.ExitOnError)
	cli := config.Cli{}

	httpAddr := fs.String("http-addr", "0.0.0.0:8989", "address to bind the HTTP API")
	apiToken := fs.String("api-token", "", "bearer token required on every request; empty disables auth")
	uploadDir := fs.String("upload-dir", os.TempDir(), "directory multipart video uploads are staged to before a job starts")

	fs.IntVar(&cli.MaxConcurrentTranscribes, "max-concurrent-transcribes", config.DefaultMaxConcurrentTranscribes, "bound on concurrent transcription LM calls")
	fs.IntVar(&cli.MaxConcurrentVisionTasks, "max-concurrent-vision-tasks", config.DefaultMaxConcurrentVisionTasks, "bound on concurrent vision LM calls (gatekeeping and hero description)")
	fs.IntVar(&cli.MaxConcurrentUploads, "max-concurrent-uploads", config.DefaultMaxConcurrentUploads, "bound on concurrent blob uploads")
	fs.StringVar(&cli.TempDir, "temp-dir", os.TempDir(), "scratch directory for extracted audio/frames")
	fs.StringVar(&cli.LMBaseURL, "lm-base-url", "", "base URL of the vision/language model endpoint")
	fs.StringVar(&cli.LMAPIKey, "lm-api-key", "", "API key for the vision/language model endpoint")
	fs.StringVar(&cli.LMModel, "lm-model", "gemini-1.5-pro", "model identifier passed on every LM request")
	fs.StringVar(&cli.BlobAccessKey, "blob-access-key", "", "access key for the object store holding hero frames and audio")
	fs.StringVar(&cli.BlobSecretKey, "blob-secret-key", "", "secret key for the object store holding hero frames and audio")
	fs.StringVar(&cli.BlobEndpoint, "blob-endpoint", "", "host[:port] of the S3-compatible object store")
	fs.StringVar(&cli.BlobBucket, "blob-bucket", "", "bucket name hero frames and audio are published under")
	fs.IntVar(&cli.PromPort, "prom-port", 9090, "port the /metrics Prometheus handler listens on")

	err := ff.Parse(fs, os.Args[1:],
		ff.WithConfigFileFlag("config"),
		ff.WithConfigFileParser(ff.PlainParser),
		ff.WithEnvVarPrefix("REPORT_WORKER"),
	)
	if err != nil {
		glog.Fatalf("error parsing cli: %s", err)
	}

	blob, err := blobstore.New(blobStoreURL(cli), cli.BlobBucket)
	if err != nil {
		glog.Fatalf("error configuring blob store: %s", err)
	}

	lm := lmclient.New(cli.LMBaseURL, cli.LMAPIKey, cli.LMModel)

	jobs := jobstore.NewMemoryStore()

	adapters := map[model.SourceKind]pipeline.IngestAdapter{
		model.SourceDrive:  ingest.NewDriveAdapter(cli.TempDir),
		model.SourceSite:   ingest.NewSiteAdapter(cli.TempDir),
		model.SourceUpload: ingest.UploadAdapter{},
	}

	coordinator := pipeline.NewCoordinator(jobs, lm, blob, adapters, pipeline.Options{
		MaxConcurrentTranscribes: cli.MaxConcurrentTranscribes,
		MaxConcurrentVisionTasks: cli.MaxConcurrentVisionTasks,
		MaxConcurrentUploads:     cli.MaxConcurrentUploads,
		TempDir:                  cli.TempDir,
	})

	server := httpapi.NewServer(coordinator, jobs, *apiToken, *uploadDir)

	group, ctx := errgroup.WithContext(context.Background())

	group.Go(func() error {
		log.LogNoRequestID("starting report-worker HTTP API", "addr", *httpAddr)
		return http.ListenAndServe(*httpAddr, server.Router())
	})
	group.Go(func() error {
		return metrics.ListenAndServe(cli.PromPort)
	})
	group.Go(func() error {
		return handleSignals(ctx)
	})

	if err := group.Wait(); err != nil {
		glog.Errorf("report-worker shutting down: %s", err)
	}
}

// blobStoreURL composes the driver URL package blobstore parses, folding
// the separately-flagged access key, secret key, and endpoint into the
// single connection string github.com/livepeer/go-tools/drivers expects,
// the same s3://key:secret@host shape the teacher's mediaconvert flag
// documents inline.
func blobStoreURL(cli config.Cli) string {
	return fmt.Sprintf("s3://%s:%s@%s", cli.BlobAccessKey, cli.BlobSecretKey, cli.BlobEndpoint)
}

func handleSignals(ctx context.Context) error {
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGQUIT, syscall.SIGTERM, syscall.SIGINT)
	select {
	case s := <-c:
		return fmt.Errorf("caught signal=%v", s)
	case <-ctx.Done():
		return nil
	}
}
