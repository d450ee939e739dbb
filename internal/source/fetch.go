package source

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
)

const (
	DefaultTimeout  = 30 * time.Second
	DefaultMaxBytes = 64 << 20
)

// Fetcher downloads URLs into temporary files.
type Fetcher struct {
	client   *resty.Client
	maxBytes int64
	logger   zerolog.Logger
}

// FetchOptions configures a Fetcher. Zero values take the defaults.
type FetchOptions struct {
	Timeout   time.Duration
	MaxBytes  int64
	UserAgent string
	Logger    zerolog.Logger
}

// NewFetcher returns a Fetcher with a bounded timeout and response size.
func NewFetcher(opts FetchOptions) *Fetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = DefaultMaxBytes
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "towebp"
	}
	client := resty.New().
		SetTimeout(opts.Timeout).
		SetHeader("User-Agent", opts.UserAgent).
		SetDoNotParseResponse(true)
	return &Fetcher{client: client, maxBytes: opts.MaxBytes, logger: opts.Logger}
}

// FromURL downloads rawURL with the default options.
func FromURL(ctx context.Context, rawURL string, timeout time.Duration) (*Source, error) {
	return NewFetcher(FetchOptions{Timeout: timeout, Logger: zerolog.Nop()}).Fetch(ctx, rawURL)
}

// Fetch downloads rawURL into a temporary file. Any non-2xx status, network
// error or oversized body fails with ErrDownloadFailed and leaves nothing on
// disk. The Content-Type header is ignored; the format is sniffed later.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Source, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q is not an http(s) URL", ErrDownloadFailed, rawURL)
	}

	start := time.Now()
	resp, err := f.client.R().SetContext(ctx).Get(u.String())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDownloadFailed, err)
	}
	body := resp.RawBody()
	defer body.Close()

	if !resp.IsSuccess() {
		return nil, fmt.Errorf("%w: %s returned %s", ErrDownloadFailed, u.Redacted(), resp.Status())
	}

	tmp, err := os.CreateTemp("", tempPattern)
	if err != nil {
		return nil, err
	}
	s := &Source{Path: tmp.Name(), Name: urlName(u), Temporary: true}

	n, err := io.Copy(tmp, io.LimitReader(body, f.maxBytes+1))
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	switch {
	case err != nil:
		s.Release()
		return nil, fmt.Errorf("%w: %v", ErrDownloadFailed, err)
	case n > f.maxBytes:
		s.Release()
		return nil, fmt.Errorf("%w: response larger than %d bytes", ErrDownloadFailed, f.maxBytes)
	case n == 0:
		s.Release()
		return nil, fmt.Errorf("%w: empty response", ErrDownloadFailed)
	}
	s.Size = n

	f.logger.Debug().Str("url", u.Redacted()).Int64("bytes", n).Dur("took", time.Since(start)).Msg("downloaded")
	return s, nil
}

// urlName returns the last path element, or "" when the URL has none.
func urlName(u *url.URL) string {
	name := path.Base(u.Path)
	if name == "." || name == "/" {
		return ""
	}
	return name
}
