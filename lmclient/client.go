// Package lmclient is a typed wrapper over the vision/language model used
// throughout the pipeline for transcription, transcript analysis, visual
// cue scouting, per-frame gatekeeping, hero cluster description,
// topic<->visual mapping, synthesis, slide-deck generation, and genre
// classification. Every operation shares three transport-level concerns:
// tolerant JSON parsing of the model's response, retry with exponential
// backoff, and no hidden mutation of caller state. Grounded on the
// teacher's retryablehttp-wrapped remote client
// (clients/broadcaster_remote.go) generalized from a Livepeer-specific
// transcode API to a single-endpoint multimodal generation call.
package lmclient

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/clipmind/video-report/config"
	"github.com/clipmind/video-report/log"
	"github.com/clipmind/video-report/metrics"
	"github.com/hashicorp/go-retryablehttp"
)

// Client talks to the configured LM endpoint. It is safe for concurrent
// use by multiple goroutines, the same as the teacher's client types.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
	maxAttempts int
}

// Option configures a Client at construction time.
type Option func(*Client)

// WithMaxAttempts overrides the default LM retry attempt count (spec
// allows callers to reduce from 3 to 2).
func WithMaxAttempts(n int) Option {
	return func(c *Client) { c.maxAttempts = n }
}

func New(baseURL, apiKey, model string, opts ...Option) *Client {
	c := &Client{
		httpClient:  newRetryableClient(),
		baseURL:     baseURL,
		apiKey:      apiKey,
		model:       model,
		maxAttempts: config.LMMaxAttempts,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func newRetryableClient() *http.Client {
	client := retryablehttp.NewClient()
	client.RetryMax = 0 // the outer exponential backoff in call() owns retries, not the transport
	client.HTTPClient.Timeout = 2 * time.Minute
	client.Logger = log.NewRetryableHTTPLogger()
	client.CheckRetry = metrics.HttpRetryHook
	return client.StandardClient()
}

// part is one piece of multimodal input: text, or base64-encoded image
// bytes with a mime type.
type part struct {
	Text     string `json:"text,omitempty"`
	ImageB64 string `json:"image_b64,omitempty"`
	MimeType string `json:"mime_type,omitempty"`
}

func textPart(s string) part { return part{Text: s} }

func imagePart(data []byte, mimeType string) part {
	return part{ImageB64: base64.StdEncoding.EncodeToString(data), MimeType: mimeType}
}

type generateRequest struct {
	Model string `json:"model"`
	Parts []part `json:"parts"`
}

type generateResponse struct {
	Text string `json:"text"`
}

// call sends parts to the model and returns the raw text response,
// retrying transient failures with exponential backoff (base 2s, factor
// 2, up to c.maxAttempts attempts).
func (c *Client) call(ctx context.Context, operation string, parts []part) (string, error) {
	var text string
	attempt := 0

	op := func() error {
		attempt++
		body, err := json.Marshal(generateRequest{Model: c.model, Parts: parts})
		if err != nil {
			return backoff.Permanent(fmt.Errorf("marshaling request: %w", err))
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/generate", bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(fmt.Errorf("building request: %w", err))
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.apiKey)

		// MonitorRequest/HttpRetryHook record retry count, failure count, and
		// request duration against metrics.Metrics.LMClient; the outer
		// backoff.Retry loop here only decides whether to issue another
		// attempt, it does not record metrics of its own.
		res, err := metrics.MonitorRequest(metrics.Metrics.LMClient, c.httpClient, req)
		if err != nil {
			return fmt.Errorf("lm request failed: %w", err)
		}
		defer res.Body.Close()

		payload, err := io.ReadAll(res.Body)
		if err != nil {
			return fmt.Errorf("reading lm response: %w", err)
		}
		if res.StatusCode >= 500 {
			return fmt.Errorf("lm returned %d: %s", res.StatusCode, payload)
		}
		if res.StatusCode >= 400 {
			return backoff.Permanent(fmt.Errorf("lm returned %d: %s", res.StatusCode, payload))
		}

		var decoded generateResponse
		if err := json.Unmarshal(payload, &decoded); err != nil {
			return backoff.Permanent(fmt.Errorf("decoding lm envelope: %w", err))
		}
		text = decoded.Text
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = config.LMBackoffBase
	bo.Multiplier = config.LMBackoffFactor
	bo.MaxElapsedTime = 0

	err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(bo, uint64(c.maxAttempts-1)), ctx))
	if err != nil {
		log.LogNoRequestID("lm call exhausted retries", "operation", operation, "attempts", attempt, "err", err)
		return "", err
	}
	return text, nil
}

// callJSON wraps call and parses the response as tolerant JSON into out,
// counting responses that no repair technique could parse.
func (c *Client) callJSON(ctx context.Context, operation string, parts []part, out interface{}) error {
	text, err := c.call(ctx, operation, parts)
	if err != nil {
		return err
	}
	if !repairAndParse(text, out) {
		metrics.Metrics.JSONRepairCount.WithLabelValues("failed").Inc()
		return fmt.Errorf("%s: could not parse lm response as json", operation)
	}
	return nil
}
