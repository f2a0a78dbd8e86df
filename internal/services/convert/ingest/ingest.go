// Package ingest holds adapter shims for the convert ports
package ingest

import (
	"time"

	"cachetrace/internal/adapters/decompress"
	"cachetrace/internal/adapters/twemcache"
	"cachetrace/internal/services/convert/domain"
)

// FetchConfig configures the cluster fetcher
type FetchConfig struct {
	WorkDir     string
	Refetch     bool
	Retries     int
	RetryBase   time.Duration
	HTTPTimeout time.Duration // 0 == no client timeout
	FullURL     string
	SampleURL   string
}

// NewFetcher builds a domain.Fetcher backed by the twemcache HTTP fetcher
func NewFetcher(c FetchConfig) domain.Fetcher {
	ep := twemcache.DefaultEndpoints
	if c.FullURL != "" {
		ep.Full = c.FullURL
	}
	if c.SampleURL != "" {
		ep.Sample = c.SampleURL
	}
	opts := []twemcache.Option{
		twemcache.WithEndpoints(ep),
		twemcache.WithRefetch(c.Refetch),
		twemcache.WithRetries(c.Retries, c.RetryBase),
	}
	if c.HTTPTimeout > 0 {
		opts = append(opts, twemcache.WithTimeout(c.HTTPTimeout))
	}
	return twemcache.NewFetcher(c.WorkDir, opts...)
}

// NewDecompressor returns the decompressor named by kind
func NewDecompressor(kind string, threads int) (domain.Decompressor, error) {
	return decompress.New(kind, threads)
}

// readerFactory adapts twemcache.Open to domain.ReaderFactory
type readerFactory struct{}

// NewReaderFactory returns a factory that opens plain text traces
func NewReaderFactory() domain.ReaderFactory { return readerFactory{} }

func (readerFactory) Open(path string) (domain.LineReader, error) {
	r, err := twemcache.Open(path)
	if err != nil {
		return nil, err
	}
	return r, nil
}
