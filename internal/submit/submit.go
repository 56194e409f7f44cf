// Package submit posts collected inventory bundles to the configured
// HTTP endpoint.
package submit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/charmsmith/charmsmith/internal/log"
)

// ErrSubmitFailed reports that the endpoint never accepted the payload.
var ErrSubmitFailed = errors.New("submit failed")

// Payload is the wire format: the submitting host's identity and the
// raw datafile contents.
type Payload struct {
	Filename string `json:"filename"`
	Contents string `json:"contents"`
}

// Option configures a Submitter.
type Option func(*Submitter)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Submitter) {
		s.client = c
	}
}

// WithTimeout bounds the total time spent retrying a submission.
func WithTimeout(d time.Duration) Option {
	return func(s *Submitter) {
		s.timeout = d
	}
}

// WithBackOff overrides the retry schedule, mainly for tests.
func WithBackOff(factory func() backoff.BackOff) Option {
	return func(s *Submitter) {
		s.newBackOff = factory
	}
}

// Submitter delivers bundles to one endpoint, retrying transient
// failures with exponential backoff. Responses in the 4xx range are
// treated as permanent rejections.
type Submitter struct {
	url        string
	client     *http.Client
	timeout    time.Duration
	newBackOff func() backoff.BackOff
	logger     *slog.Logger
}

// New creates a Submitter for the given endpoint URL.
func New(url string, opts ...Option) *Submitter {
	s := &Submitter{
		url:     url,
		client:  &http.Client{Timeout: 30 * time.Second},
		timeout: 30 * time.Second,
		newBackOff: func() backoff.BackOff {
			return backoff.NewExponentialBackOff()
		},
		logger: log.Component("submit"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SubmitFile reads the datafile and submits its contents under the
// local hostname.
func (s *Submitter) SubmitFile(ctx context.Context, path string) error {
	contents, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read datafile: %w", err)
	}

	hostname, err := os.Hostname()
	if err != nil {
		return fmt.Errorf("failed to determine hostname: %w", err)
	}

	return s.Submit(ctx, hostname, string(contents))
}

// Submit posts the payload, retrying until it is accepted, permanently
// rejected, or the retry budget runs out.
func (s *Submitter) Submit(ctx context.Context, filename, contents string) error {
	body, err := json.Marshal(Payload{Filename: filename, Contents: contents})
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	attempt := 0
	operation := func() (any, error) {
		attempt++
		if err := s.post(ctx, body); err != nil {
			s.logger.Debug("submission attempt failed", "attempt", attempt, "error", err)
			return nil, err
		}
		return nil, nil
	}

	retryOpts := []backoff.RetryOption{
		backoff.WithBackOff(s.newBackOff()),
	}
	if s.timeout > 0 {
		retryOpts = append(retryOpts, backoff.WithMaxElapsedTime(s.timeout))
	}

	if _, err := backoff.Retry(ctx, operation, retryOpts...); err != nil {
		return fmt.Errorf("%w: %w", ErrSubmitFailed, err)
	}

	s.logger.Info("bundle submitted", "url", s.url, "filename", filename, "bytes", len(contents))
	return nil
}

func (s *Submitter) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return backoff.Permanent(fmt.Errorf("failed to build request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	err = fmt.Errorf("endpoint returned %s", resp.Status)
	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		return backoff.Permanent(err)
	}
	return err
}
