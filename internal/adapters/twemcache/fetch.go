package twemcache

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	perr "cachetrace/internal/platform/errors"
	"cachetrace/internal/platform/logger"

	"github.com/cenkalti/backoff/v4"
)

const (
	defaultRetries   = 3
	defaultRetryBase = 500 * time.Millisecond
	maxRetryInterval = 30 * time.Second
)

// Fetcher downloads cluster traces into a local directory
// A complete local copy short-circuits the download unless refetch is set
type Fetcher struct {
	dir       string
	client    *http.Client
	endpoints Endpoints
	refetch   bool
	retries   int
	retryBase time.Duration
}

// Option configures the fetcher
type Option func(*Fetcher)

// WithClient replaces the HTTP client (tests, custom transports)
func WithClient(c *http.Client) Option {
	return func(f *Fetcher) {
		if c != nil {
			f.client = c
		}
	}
}

// WithTimeout sets a whole-request client timeout; 0 means none.
// It applies to a copy of the current client, keeping its transport
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		c := *f.client
		c.Timeout = d
		f.client = &c
	}
}

// WithEndpoints overrides the dataset base URLs
func WithEndpoints(e Endpoints) Option {
	return func(f *Fetcher) { f.endpoints = e }
}

// WithRefetch forces a download even when a local copy exists
func WithRefetch(on bool) Option {
	return func(f *Fetcher) { f.refetch = on }
}

// WithRetries sets the retry budget for transient failures and the first backoff interval
func WithRetries(n int, base time.Duration) Option {
	return func(f *Fetcher) {
		f.retries = max(n, 0)
		if base > 0 {
			f.retryBase = base
		}
	}
}

// NewFetcher builds a fetcher that stores files under dir
func NewFetcher(dir string, opts ...Option) *Fetcher {
	f := &Fetcher{
		dir:       dir,
		client:    &http.Client{},
		endpoints: DefaultEndpoints,
		retries:   defaultRetries,
		retryBase: defaultRetryBase,
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

// Path returns where ref is stored locally
func (f *Fetcher) Path(ref ClusterRef) string { return filepath.Join(f.dir, ref.Filename()) }

// Fetch makes sure ref is present locally and returns its path
func (f *Fetcher) Fetch(ctx context.Context, ref ClusterRef) (string, error) {
	path := f.Path(ref)
	log := logger.NamedC(ctx, "fetch")

	url := f.endpoints.URL(ref)
	if !f.refetch {
		size, ok := localComplete(path, url)
		if ok {
			log.Info().Str("path", path).Int64("bytes", size).Msg("using local copy")
			return path, nil
		}
		if size > 0 {
			log.Warn().Str("path", path).Str("url", url).Msg("local copy disagrees with its sidecar; downloading again")
		}
	}

	if err := os.MkdirAll(f.dir, 0o755); err != nil {
		return "", perr.Wrapf(err, perr.ErrorCodeIO, "create work dir %s", f.dir)
	}

	start := time.Now()
	log.Info().Str("url", url).Str("path", path).Msg("downloading trace")

	var n int64
	op := func() error {
		var err error
		n, err = f.download(ctx, url, path)
		if err != nil && !perr.Retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		log.Warn().Err(err).Dur("wait", wait).Str("url", url).Msg("download failed; retrying")
	}
	if err := backoff.RetryNotify(op, f.policy(ctx), notify); err != nil {
		return "", perr.WithOp(err, "fetch "+ref.String())
	}

	log.Info().
		Str("path", path).
		Int64("bytes", n).
		Dur("elapsed", time.Since(start)).
		Msg("download complete")
	return path, nil
}

func (f *Fetcher) policy(ctx context.Context) backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = f.retryBase
	eb.MaxInterval = maxRetryInterval
	eb.MaxElapsedTime = 0 // bounded by the retry count instead
	return backoff.WithContext(backoff.WithMaxRetries(eb, uint64(f.retries)), ctx)
}

// download streams url into path via a .part file
func (f *Fetcher) download(ctx context.Context, url, path string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, perr.Wrapf(err, perr.ErrorCodeFetch, "build request for %s", url)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return 0, perr.FromTransport(err, "get "+url)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		return 0, perr.FromHTTPStatus(resp.StatusCode, url)
	}

	tmp := path + ".part"
	out, err := os.Create(tmp)
	if err != nil {
		return 0, perr.Wrapf(err, perr.ErrorCodeIO, "create %s", tmp)
	}
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmp)
		}
	}()

	n, werr := io.Copy(out, resp.Body)
	cerr := out.Close()
	if werr != nil {
		return n, perr.FromTransport(werr, "read body of "+url)
	}
	if cerr != nil {
		return n, perr.Wrapf(cerr, perr.ErrorCodeIO, "close %s", tmp)
	}
	if resp.ContentLength >= 0 && n != resp.ContentLength {
		return n, perr.Unavailablef("short body for %s: got %d of %d bytes", url, n, resp.ContentLength)
	}
	if err := os.Rename(tmp, path); err != nil {
		return n, perr.Wrapf(err, perr.ErrorCodeIO, "rename %s", tmp)
	}
	committed = true

	meta := &cacheMeta{
		URL:          url,
		ETag:         resp.Header.Get("ETag"),
		LastModified: resp.Header.Get("Last-Modified"),
		Size:         n,
		FetchedAt:    time.Now().UTC(),
	}
	if err := saveMeta(metaPath(path), meta); err != nil {
		// the trace itself is complete; a missing sidecar only means it is trusted as is next time
		logger.Named("fetch").Warn().Err(err).Str("path", path).Msg("could not write sidecar")
	}
	return n, nil
}
