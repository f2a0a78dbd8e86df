package domain

import "context"

// RunnerPort is the port exposed by the convert module
type RunnerPort interface {
	Run(ctx context.Context, src Source) (Stats, error)
}

// Fetcher makes a cluster trace available locally and returns its path
type Fetcher interface {
	Fetch(ctx context.Context, ref ClusterRef) (string, error)
}

// Decompressor returns the path of a plain text version of path
type Decompressor interface {
	Decompress(ctx context.Context, path string) (string, error)
}

// LineReader yields raw trace lines in file order; io.EOF when done
type LineReader interface {
	Next() (string, error)
	Close() error
	Stats() (lines, bytes int64)
}

// ReaderFactory opens a plain text trace
type ReaderFactory interface {
	Open(path string) (LineReader, error)
}

// Classifier turns one raw line into a record; ok is false for dropped verbs
type Classifier interface {
	Classify(line string) (rec Record, ok bool, err error)
}
