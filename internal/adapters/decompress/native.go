package decompress

import (
	"context"
	"errors"
	"io"
	"os"
	"time"

	perr "cachetrace/internal/platform/errors"
	"cachetrace/internal/platform/logger"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// decoder memory ceiling; the twemcache archives use default window sizes
const maxDecoderMemory = 1 << 31

// Native decodes zstd and gzip archives in process
type Native struct {
	threads int
}

// NewNative builds a Native decompressor; threads <= 0 lets zstd pick
func NewNative(threads int) *Native { return &Native{threads: threads} }

// Decompress writes the decoded content of path next to it and returns the new path.
// Plain text input is returned unchanged when its name allows it; a .zst or .gz
// name without the matching header is a corrupt archive
func (n *Native) Decompress(ctx context.Context, path string) (string, error) {
	format, err := Sniff(path)
	if err != nil {
		return "", err
	}
	log := logger.NamedC(ctx, "decompress")
	if format == FormatPlain {
		if !plainName(path) {
			return "", perr.Decompressf("%s: not a %s archive", path, archiveName(path))
		}
		log.Debug().Str("path", path).Msg("input is plain text")
		return path, nil
	}

	out := OutputPath(path)
	start := time.Now()
	log.Info().Str("in", path).Str("out", out).Str("format", format.String()).Msg("decompressing")

	written, err := n.decode(ctx, format, path, out)
	if err != nil {
		return "", perr.WithOp(err, "decompress "+path)
	}
	log.Info().
		Str("out", out).
		Int64("bytes", written).
		Dur("elapsed", time.Since(start)).
		Msg("decompressed")
	return out, nil
}

func (n *Native) decode(ctx context.Context, format Format, in, out string) (int64, error) {
	src, err := os.Open(in)
	if err != nil {
		return 0, perr.Wrapf(err, perr.ErrorCodeIO, "open %s", in)
	}
	defer func() { _ = src.Close() }()

	var r io.Reader
	switch format {
	case FormatZstd:
		opts := []zstd.DOption{zstd.WithDecoderMaxMemory(maxDecoderMemory)}
		if n.threads > 0 {
			opts = append(opts, zstd.WithDecoderConcurrency(n.threads))
		}
		dec, err := zstd.NewReader(src, opts...)
		if err != nil {
			return 0, perr.Wrap(err, perr.ErrorCodeDecompress, "init zstd decoder")
		}
		defer dec.Close()
		r = dec
	case FormatGzip:
		gz, err := gzip.NewReader(src)
		if err != nil {
			return 0, perr.Wrap(err, perr.ErrorCodeDecompress, "read gzip header")
		}
		defer func() { _ = gz.Close() }()
		r = gz
	default:
		return 0, perr.Internalf("no decoder for %s", format)
	}

	return writeAtomic(out, ctxReader{ctx: ctx, r: r})
}

// writeAtomic copies r into out via out.part, renaming only on success
func writeAtomic(out string, r io.Reader) (int64, error) {
	tmp := out + ".part"
	f, err := os.Create(tmp)
	if err != nil {
		return 0, perr.Wrapf(err, perr.ErrorCodeIO, "create %s", tmp)
	}
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmp)
		}
	}()

	written, cerr := io.Copy(f, r)
	ferr := f.Close()
	switch {
	case errors.Is(cerr, context.Canceled), errors.Is(cerr, context.DeadlineExceeded):
		return written, perr.Wrap(cerr, perr.ErrorCodeCanceled, "decompression interrupted")
	case cerr != nil:
		return written, perr.Wrap(cerr, perr.ErrorCodeDecompress, "corrupt or truncated archive")
	case ferr != nil:
		return written, perr.Wrapf(ferr, perr.ErrorCodeIO, "close %s", tmp)
	}
	if err := os.Rename(tmp, out); err != nil {
		return written, perr.Wrapf(err, perr.ErrorCodeIO, "rename %s", tmp)
	}
	committed = true
	return written, nil
}
