package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/AnyUserName/towebp/internal/source"
)

// Acquire resolves ref to a local source: http(s) URLs are downloaded,
// anything else is treated as a file path. The caller must Release the
// source.
func (c *Converter) Acquire(ctx context.Context, ref string) (*source.Source, error) {
	if isURL(ref) {
		return c.fetcher.Fetch(ctx, ref)
	}
	return source.FromPath(ref)
}

// ConvertPath converts the file at path.
func (c *Converter) ConvertPath(ctx context.Context, path string, quality int, opts ...Option) Result {
	src, err := source.FromPath(path)
	if err != nil {
		return invalid(Result{Quality: quality}, err)
	}
	return c.Convert(ctx, src, quality, opts...)
}

// ConvertURL downloads rawURL and converts it. The download is removed
// before returning, whatever the outcome.
func (c *Converter) ConvertURL(ctx context.Context, rawURL string, quality int, opts ...Option) Result {
	src, err := c.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return AcquireFailure(quality, err)
	}
	defer src.Release()
	return c.Convert(ctx, src, quality, opts...)
}

// ConvertBytes persists data to a temporary file and converts it. name is
// optional and only used to name the output.
func (c *Converter) ConvertBytes(ctx context.Context, data []byte, name string, quality int, opts ...Option) Result {
	src, err := source.FromBytes(data, name)
	if err != nil {
		return AcquireFailure(quality, err)
	}
	defer src.Release()
	return c.Convert(ctx, src, quality, opts...)
}

// AcquireFailure turns an error from Acquire into a failed Result.
func AcquireFailure(quality int, err error) Result {
	if errors.Is(err, source.ErrDownloadFailed) {
		return Result{Quality: quality, Message: err.Error(), Err: err}
	}
	if errors.Is(err, source.ErrInvalidSource) {
		return invalid(Result{Quality: quality}, err)
	}
	return Result{Quality: quality, Message: err.Error(), Err: fmt.Errorf("acquire: %w", err)}
}

func isURL(ref string) bool {
	lower := strings.ToLower(ref)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}
