package reader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/zuhrulumam/mortchart/internal/errors"
)

// Stamp identifies a version of a source. Two equal stamps mean the source
// has not visibly changed. Remote sources have no stamp.
type Stamp struct {
	ModTime time.Time
	Size    int64
}

// Equal reports whether both stamps describe the same version
func (s Stamp) Equal(o Stamp) bool {
	return s.Size == o.Size && s.ModTime.Equal(o.ModTime)
}

// IsRemote reports whether source is an http(s) URL
func IsRemote(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

// SourceName returns the short name used in diagnostics
func SourceName(source string) string {
	if IsRemote(source) {
		if u, err := url.Parse(source); err == nil {
			return path.Base(u.Path)
		}
		return source
	}
	return filepath.Base(source)
}

// StatSource returns the current stamp of a local source.
// ok is false for remote sources and for files that cannot be stat'ed.
func StatSource(source string) (stamp Stamp, ok bool) {
	if IsRemote(source) {
		return Stamp{}, false
	}
	info, err := os.Stat(source)
	if err != nil {
		return Stamp{}, false
	}
	return Stamp{ModTime: info.ModTime(), Size: info.Size()}, true
}

// openSource opens a local file or fetches a remote URL
func openSource(ctx context.Context, client *http.Client, source string) (io.ReadCloser, error) {
	if !IsRemote(source) {
		file, err := os.Open(source)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, errors.ErrFileNotFound
			}
			return nil, fmt.Errorf("open file: %w", err)
		}
		return file, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "text/csv, text/plain;q=0.9, */*;q=0.5")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: %s", errors.ErrBadStatus, resp.Status)
	}
	return resp.Body, nil
}
