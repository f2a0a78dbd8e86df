package decompress

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	perr "cachetrace/internal/platform/errors"
	"cachetrace/internal/platform/logger"
)

// seams for tests
var (
	lookPath       = exec.LookPath
	commandContext = exec.CommandContext
)

// Exec runs the external zstd binary
type Exec struct {
	bin     string
	threads int
}

// NewExec builds an Exec decompressor; threads <= 0 means zstd's -T0 (all cores)
func NewExec(threads int) *Exec { return &Exec{bin: "zstd", threads: max(threads, 0)} }

// Args returns the zstd command line used for in -> out
func (e *Exec) Args(in, out string) []string {
	return []string{"-d", "-T" + strconv.Itoa(e.threads), "-f", in, "-o", out}
}

// Decompress runs zstd -d on path. Plain text under a plain name is returned unchanged;
// anything else goes to the binary, which reports bad headers itself.
// gzip input is rejected since the binary only handles zstd
func (e *Exec) Decompress(ctx context.Context, path string) (string, error) {
	format, err := Sniff(path)
	if err != nil {
		return "", err
	}
	log := logger.NamedC(ctx, "decompress")
	switch {
	case format == FormatPlain && plainName(path):
		log.Debug().Str("path", path).Msg("input is plain text")
		return path, nil
	case format == FormatGzip:
		return "", perr.Decompressf("%s is gzip; use the native decompressor", path)
	}

	bin, err := lookPath(e.bin)
	if err != nil {
		return "", perr.Wrapf(err, perr.ErrorCodeDecompress, "%s binary not found in PATH", e.bin)
	}

	out := OutputPath(path)
	tmp := out + ".part"
	args := e.Args(path, tmp)
	start := time.Now()
	log.Info().Str("bin", bin).Strs("args", args).Msg("running zstd")

	var stderr bytes.Buffer
	cmd := commandContext(ctx, bin, args...)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		_ = os.Remove(tmp)
		if ctx.Err() != nil {
			return "", perr.Wrap(ctx.Err(), perr.ErrorCodeCanceled, "zstd interrupted")
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return "", perr.Wrapf(err, perr.ErrorCodeDecompress, "zstd -d %s: %s", path, msg)
	}
	if err := os.Rename(tmp, out); err != nil {
		_ = os.Remove(tmp)
		return "", perr.Wrapf(err, perr.ErrorCodeIO, "rename %s", tmp)
	}

	log.Info().Str("out", out).Dur("elapsed", time.Since(start)).Msg("decompressed")
	return out, nil
}
