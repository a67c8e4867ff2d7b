package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/JonMunkholm/sourcefields/internal/logging"
)

var (
	// ErrMalformedBody is wrapped by every error caused by an unparseable source body.
	ErrMalformedBody = errors.New("malformed source body")

	// ErrBodyTooLarge is returned when a buffered response exceeds MaxBodyBytes.
	ErrBodyTooLarge = errors.New("source response body too large")
)

// StatusError reports a non-2xx upstream response.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream returned status %d for %s", e.StatusCode, e.URL)
}

// FetchOptions configures outbound requests.
type FetchOptions struct {
	Timeout      time.Duration
	UserAgent    string
	MaxBodyBytes int64
}

// DefaultMaxBodyBytes caps buffered responses when no limit is configured.
const DefaultMaxBodyBytes = 10 << 20

// Fetcher issues GET requests against sources, either fully buffered or
// as a cancellable incremental stream.
type Fetcher struct {
	client *http.Client
	opts   FetchOptions
}

// NewFetcher creates a Fetcher with its own http.Client.
func NewFetcher(opts FetchOptions) *Fetcher {
	return NewFetcherWithClient(&http.Client{Timeout: opts.Timeout}, opts)
}

// NewFetcherWithClient creates a Fetcher around an existing client.
func NewFetcherWithClient(client *http.Client, opts FetchOptions) *Fetcher {
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = DefaultMaxBodyBytes
	}
	return &Fetcher{client: client, opts: opts}
}

// newRequest builds a GET for rawURL with extra query parameters merged
// over any the URL already carries.
func (f *Fetcher) newRequest(ctx context.Context, rawURL string, query url.Values) (*http.Request, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}
	if len(query) > 0 {
		q := u.Query()
		for k, v := range query {
			q[k] = v
		}
		u.RawQuery = q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if f.opts.UserAgent != "" {
		req.Header.Set("User-Agent", f.opts.UserAgent)
	}
	return req, nil
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{URL: resp.Request.URL.Redacted(), StatusCode: resp.StatusCode}
	}
	return nil
}

// GetJSON fetches rawURL with query merged in and decodes the whole body into dst.
func (f *Fetcher) GetJSON(ctx context.Context, rawURL string, query url.Values, dst any) error {
	req, err := f.newRequest(ctx, rawURL, query)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return err
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.opts.MaxBodyBytes+1))
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if int64(len(body)) > f.opts.MaxBodyBytes {
		return fmt.Errorf("%w: more than %d bytes", ErrBodyTooLarge, f.opts.MaxBodyBytes)
	}

	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedBody, err)
	}
	return nil
}

// Stream opens rawURL for incremental reading. The caller must Close the
// returned stream; Cancel may be called first to abort the transfer.
func (f *Fetcher) Stream(ctx context.Context, rawURL string) (*Stream, error) {
	streamCtx, cancel := context.WithCancel(ctx)

	req, err := f.newRequest(streamCtx, rawURL, nil)
	if err != nil {
		cancel()
		return nil, err
	}

	resp, err := f.client.Do(req)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("fetch: %w", err)
	}
	if err := checkStatus(resp); err != nil {
		resp.Body.Close()
		cancel()
		return nil, err
	}

	return &Stream{
		body:    resp.Body,
		counter: NewCountingReader(resp.Body, resp.ContentLength),
		cancel:  cancel,
		logger:  logging.FromContext(ctx).With("url", resp.Request.URL.Redacted()),
		t0:      time.Now(),
	}, nil
}

// Stream is an in-flight response body whose transfer can be cancelled.
type Stream struct {
	body    io.ReadCloser
	counter *CountingReader
	cancel  context.CancelFunc
	logger  *slog.Logger
	t0      time.Time

	cancelOnce sync.Once
	closeOnce  sync.Once
	cancelled  atomic.Bool
}

var _ io.ReadCloser = &Stream{}

// Read implements io.Reader. After Cancel every Read fails.
func (s *Stream) Read(p []byte) (int, error) {
	if s.cancelled.Load() {
		return 0, context.Canceled
	}
	return s.counter.Read(p)
}

// Cancel aborts the transfer: the request context is cancelled, which
// makes the transport drop the connection, and no further Read succeeds.
// Safe to call more than once.
func (s *Stream) Cancel() {
	s.cancelOnce.Do(func() {
		s.cancelled.Store(true)
		s.cancel()
	})
}

// Cancelled reports whether Cancel has been called.
func (s *Stream) Cancelled() bool {
	return s.cancelled.Load()
}

// BytesRead returns how many body bytes were consumed.
func (s *Stream) BytesRead() int64 {
	return s.counter.BytesRead()
}

// Close releases the body and the request context. Safe to call more than once.
func (s *Stream) Close() (err error) {
	s.closeOnce.Do(func() {
		err = s.body.Close()
		s.cancel()
		s.logger.Debug("fetch stream done",
			"bytes_read", s.counter.BytesRead(),
			"progress", s.counter.Progress(),
			"cancelled", s.Cancelled(),
			"duration_ms", time.Since(s.t0).Milliseconds(),
		)
	})
	if s.Cancelled() {
		// closing an aborted body reports the cancellation, not a failure
		return nil
	}
	return err
}
