// Package fetch downloads remote media assets into a workspace under
// byte-size and wall-clock limits.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// Static errors for fetch operations. The HTTP layer maps each of these
// to a distinct client-facing status.
var (
	// ErrTimeout is returned when the transfer exceeds the configured wall-clock limit.
	ErrTimeout = errors.New("fetch: download timed out")
	// ErrTooLarge is returned when the transfer exceeds the configured byte cap.
	ErrTooLarge = errors.New("fetch: downloaded file too large")
	// ErrNotFound is returned when the remote server reports the resource missing.
	ErrNotFound = errors.New("fetch: resource not found")
	// ErrTransport is returned for any other transport or upstream failure.
	ErrTransport = errors.New("fetch: transport failure")
)

// Kind identifies what a fetched asset is used for.
type Kind string

const (
	// KindVideo marks an asset consumed as a video input.
	KindVideo Kind = "video"
	// KindAudio marks an asset consumed as an audio input.
	KindAudio Kind = "audio"
)

// Asset describes a successfully downloaded file. It is owned by the
// workspace that contains it and is never shared across requests.
type Asset struct {
	// Path is the local file path inside the workspace.
	Path string
	// Size is the downloaded byte count.
	Size int64
	// URL is the source the asset was fetched from.
	URL string
	// Kind is the role of the asset (video or audio).
	Kind Kind
}

// Fetcher downloads URLs to local files. It holds no per-fetch mutable
// state, so a single Fetcher is safe for concurrent use.
type Fetcher struct {
	client   *http.Client
	maxBytes int64
	timeout  time.Duration
}

// Option is a function that configures a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) {
		f.client = c
	}
}

// New creates a Fetcher enforcing the given per-download byte cap and
// wall-clock timeout.
func New(maxBytes int64, timeout time.Duration, opts ...Option) *Fetcher {
	f := &Fetcher{
		client:   &http.Client{},
		maxBytes: maxBytes,
		timeout:  timeout,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch downloads url into dest. The whole transfer must finish within
// the configured timeout and stay under the byte cap; on any failure a
// partially written dest is removed before returning.
func (f *Fetcher) Fetch(ctx context.Context, url, dest string, kind Kind) (*Asset, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, classify(ctx, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return nil, fmt.Errorf("%w: %s returned %d", ErrNotFound, url, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, fmt.Errorf("%w: %s returned %d", ErrTransport, url, resp.StatusCode)
	}

	out, err := os.Create(dest) // #nosec G304 - dest is a workspace path built by trusted code
	if err != nil {
		return nil, fmt.Errorf("%w: create %s: %w", ErrTransport, dest, err)
	}

	// Read one byte past the cap so an exactly-at-cap body still succeeds.
	written, err := io.Copy(out, io.LimitReader(resp.Body, f.maxBytes+1))
	closeErr := out.Close()

	switch {
	case err != nil:
		_ = os.Remove(dest)
		return nil, classify(ctx, err)
	case written > f.maxBytes:
		_ = os.Remove(dest)
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", ErrTooLarge, url, f.maxBytes)
	case closeErr != nil:
		_ = os.Remove(dest)
		return nil, fmt.Errorf("%w: close %s: %w", ErrTransport, dest, closeErr)
	}

	return &Asset{
		Path: dest,
		Size: written,
		URL:  url,
		Kind: kind,
	}, nil
}

// classify maps a transfer error onto the fetch error taxonomy, using the
// context to distinguish our deadline from other transport failures.
func classify(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	if errors.Is(ctx.Err(), context.Canceled) {
		return fmt.Errorf("fetch: cancelled: %w", ctx.Err())
	}
	return fmt.Errorf("%w: %w", ErrTransport, err)
}
