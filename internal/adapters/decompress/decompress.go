package decompress

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	perr "cachetrace/internal/platform/errors"
)

// Format is the container detected from the leading bytes of a file
type Format int

const (
	FormatPlain Format = iota
	FormatZstd
	FormatGzip
)

func (f Format) String() string {
	switch f {
	case FormatZstd:
		return "zstd"
	case FormatGzip:
		return "gzip"
	default:
		return "plain"
	}
}

var (
	zstdMagic = []byte{0x28, 0xB5, 0x2F, 0xFD}
	gzipMagic = []byte{0x1F, 0x8B}
)

// Kind names a decompressor implementation
type Kind string

const (
	KindNative Kind = "native"
	KindZstd   Kind = "zstd"
)

// Kinds lists the accepted decompressor names
func Kinds() []string { return []string{string(KindNative), string(KindZstd)} }

// Decompressor is satisfied by Native and Exec
type Decompressor interface {
	Decompress(ctx context.Context, path string) (string, error)
}

// New returns the implementation for kind; threads is passed to both
func New(kind string, threads int) (Decompressor, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(kind))) {
	case "", KindNative:
		return NewNative(threads), nil
	case KindZstd:
		return NewExec(threads), nil
	default:
		return nil, perr.WithField(
			perr.Validationf("unknown decompressor %q (want one of %s)", kind, strings.Join(Kinds(), ", ")),
			"decompressor",
		)
	}
}

// Sniff reads the magic bytes of path
func Sniff(path string) (Format, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return FormatPlain, perr.Wrapf(err, perr.ErrorCodeNotFound, "open %s", path)
		}
		return FormatPlain, perr.Wrapf(err, perr.ErrorCodeIO, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	head := make([]byte, len(zstdMagic))
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return FormatPlain, perr.Wrapf(err, perr.ErrorCodeIO, "read header of %s", path)
	}
	return sniffBytes(head[:n]), nil
}

func sniffBytes(head []byte) Format {
	switch {
	case bytes.HasPrefix(head, zstdMagic):
		return FormatZstd
	case bytes.HasPrefix(head, gzipMagic):
		return FormatGzip
	default:
		return FormatPlain
	}
}

// plainName reports whether the file name allows plain text content:
// no extension (the published sample traces) or .txt.
// Any other name must carry a zstd or gzip header
func plainName(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case "", ".txt":
		return true
	default:
		return false
	}
}

// archiveName is the container a non-plain name claims, for error text
func archiveName(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gz", ".gzip":
		return "gzip"
	default:
		return "zstd"
	}
}

// OutputPath is where the decompressed text for in is written:
// the input without its last extension plus _decompressed.txt
func OutputPath(in string) string {
	return strings.TrimSuffix(in, filepath.Ext(in)) + "_decompressed.txt"
}

// ctxReader stops a long copy once ctx is done
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
