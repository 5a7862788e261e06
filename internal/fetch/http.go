// Package fetch downloads model files over HTTP into local storage.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

// Destination resolves where a model id is stored locally.
type Destination interface {
	ModelPath(id string) string
}

// Resolver maps a model id to the URL it is downloaded from.
type Resolver func(ctx context.Context, id string) (string, error)

// HTTPFetcher streams a model file to disk, reporting progress as a
// fraction in [0,1].
type HTTPFetcher struct {
	client  *http.Client
	dest    Destination
	resolve Resolver
	log     zerolog.Logger
}

// Option customises an HTTPFetcher.
type Option func(*HTTPFetcher)

// WithClient replaces the default HTTP client.
func WithClient(c *http.Client) Option { return func(f *HTTPFetcher) { f.client = c } }

// WithResolver replaces the base-URL resolver.
func WithResolver(r Resolver) Option { return func(f *HTTPFetcher) { f.resolve = r } }

// WithLogger installs a structured logger.
func WithLogger(l zerolog.Logger) Option { return func(f *HTTPFetcher) { f.log = l } }

// NewHTTPFetcher builds a fetcher that downloads <baseURL>/<id> unless a
// resolver is supplied.
func NewHTTPFetcher(baseURL string, dest Destination, opts ...Option) *HTTPFetcher {
	base := strings.TrimRight(baseURL, "/")
	f := &HTTPFetcher{
		client: http.DefaultClient,
		dest:   dest,
		log:    zerolog.Nop(),
		resolve: func(_ context.Context, id string) (string, error) {
			if base == "" {
				return "", fmt.Errorf("no download URL configured for %q", id)
			}
			return base + "/" + url.PathEscape(id), nil
		},
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

// FetchModel downloads id and returns the local path. The file is written
// under a temporary name and renamed into place only once complete.
func (f *HTTPFetcher) FetchModel(ctx context.Context, id string, onProgress func(float64)) (string, error) {
	src, err := f.resolve(ctx, id)
	if err != nil {
		return "", err
	}
	dst := f.dest.ModelPath(id)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("create model dir: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return "", err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", id, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch %s: unexpected status %s", id, resp.Status)
	}
	f.log.Debug().Str("event", "fetch_start").Str("model", id).Str("url", src).Int64("bytes", resp.ContentLength).Msg("")

	partial := dst + ".partial"
	out, err := os.Create(partial)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", partial, err)
	}
	pr := &progressReader{r: resp.Body, total: resp.ContentLength, report: onProgress}
	_, copyErr := io.Copy(out, pr)
	closeErr := out.Close()
	if copyErr != nil || closeErr != nil {
		os.Remove(partial)
		if copyErr != nil {
			return "", fmt.Errorf("download %s: %w", id, copyErr)
		}
		return "", fmt.Errorf("close %s: %w", partial, closeErr)
	}
	if err := os.Rename(partial, dst); err != nil {
		os.Remove(partial)
		return "", fmt.Errorf("install %s: %w", id, err)
	}
	if onProgress != nil {
		onProgress(1)
	}
	f.log.Debug().Str("event", "fetch_done").Str("model", id).Int64("bytes", pr.read).Msg("")
	return dst, nil
}

// progressReader reports whole-percent steps so callbacks are not flooded.
type progressReader struct {
	r      io.Reader
	total  int64
	read   int64
	last   int
	report func(float64)
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	p.read += int64(n)
	if p.report != nil && p.total > 0 {
		pct := int(p.read * 100 / p.total)
		if pct > 100 {
			pct = 100
		}
		// 100% is reported once the file is in place.
		if pct > p.last && pct < 100 {
			p.last = pct
			p.report(float64(pct) / 100)
		}
	}
	return n, err
}
