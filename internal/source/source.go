// Package source resolves a path, URL or byte buffer into a local file that
// the converter can read. Temporary files are removed by Release.
package source

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

var (
	// ErrInvalidSource means the source is missing, unreadable or empty.
	ErrInvalidSource = errors.New("invalid source")
	// ErrDownloadFailed means a URL could not be fetched.
	ErrDownloadFailed = errors.New("download failed")
)

// tempPattern names temporary artifacts in the system temp directory.
const tempPattern = "towebp-src-*"

// Source is a local file ready for conversion.
type Source struct {
	// Path is the local file to read.
	Path string
	// Name is the display name of the source. It is empty when the source
	// carried none (raw bytes, a URL ending in "/").
	Name string
	Size int64
	// Temporary reports whether Path was created by this package.
	Temporary bool

	release sync.Once
}

// Release removes the temporary artifact, if any. It is safe to call more
// than once and on a nil Source.
func (s *Source) Release() {
	if s == nil || !s.Temporary {
		return
	}
	s.release.Do(func() {
		os.Remove(s.Path)
	})
}

// FromPath wraps an existing regular file. Release is a no-op.
func FromPath(path string) (*Source, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSource, err)
	}
	if !fi.Mode().IsRegular() {
		return nil, fmt.Errorf("%w: %s is not a regular file", ErrInvalidSource, path)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSource, err)
	}
	f.Close()
	return &Source{Path: path, Name: filepath.Base(path), Size: fi.Size()}, nil
}

// FromBytes persists data to a temporary file. name may be empty.
func FromBytes(data []byte, name string) (*Source, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: no data", ErrInvalidSource)
	}
	f, err := os.CreateTemp("", tempPattern)
	if err != nil {
		return nil, err
	}
	if name != "" {
		name = filepath.Base(name)
	}
	s := &Source{Path: f.Name(), Name: name, Size: int64(len(data)), Temporary: true}
	if _, err := f.Write(data); err != nil {
		f.Close()
		s.Release()
		return nil, fmt.Errorf("write temp: %w", err)
	}
	if err := f.Close(); err != nil {
		s.Release()
		return nil, fmt.Errorf("write temp: %w", err)
	}
	return s, nil
}
