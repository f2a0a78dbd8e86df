package twemcache

import (
	"bufio"
	"bytes"
	"io"
	"os"

	perr "cachetrace/internal/platform/errors"
)

const (
	initialBufSize = 256 * 1024
	// MaxLineSize bounds one trace line; longer lines are reported as malformed and skipped
	MaxLineSize = 4 * 1024 * 1024
)

// Reader streams raw trace lines in file order
type Reader struct {
	r     io.ReadCloser
	br    *bufio.Reader
	max   int
	buf   []byte
	err   error
	lines int64
	bytes int64
}

// NewReader wraps rc; the Reader owns rc and closes it
func NewReader(rc io.ReadCloser) *Reader { return NewReaderSize(rc, MaxLineSize) }

// NewReaderSize is NewReader with a custom line limit
func NewReaderSize(rc io.ReadCloser, maxLine int) *Reader {
	if maxLine <= 0 {
		maxLine = MaxLineSize
	}
	return &Reader{r: rc, br: bufio.NewReaderSize(rc, min(initialBufSize, maxLine+1)), max: maxLine}
}

// Open opens a decompressed trace file for reading
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, perr.Wrapf(err, perr.ErrorCodeNotFound, "open trace %s", path)
		}
		return nil, perr.Wrapf(err, perr.ErrorCodeIO, "open trace %s", path)
	}
	return NewReader(f), nil
}

// Next returns the next line without its terminator; io.EOF when done.
// A line longer than the limit is consumed and returned as a malformed error,
// so the caller may skip it and keep reading
func (rd *Reader) Next() (string, error) {
	if rd.err != nil {
		return "", rd.err
	}
	rd.buf = rd.buf[:0]
	var size int64
	long := false
	for {
		chunk, err := rd.br.ReadSlice('\n')
		size += int64(len(chunk))
		if !long {
			if len(rd.buf)+len(chunk) > rd.max+2 { // room for \r\n
				long = true
				rd.buf = rd.buf[:0]
			} else {
				rd.buf = append(rd.buf, chunk...)
			}
		}
		if err == bufio.ErrBufferFull {
			continue
		}
		if err == io.EOF {
			if size == 0 {
				rd.err = io.EOF
				return "", io.EOF
			}
			break
		}
		if err != nil {
			rd.err = perr.Wrapf(err, perr.ErrorCodeIO, "read line %d", rd.lines+1)
			return "", rd.err
		}
		break
	}
	rd.lines++
	rd.bytes += size

	line := bytes.TrimSuffix(rd.buf, []byte{'\n'})
	line = bytes.TrimSuffix(line, []byte{'\r'})
	if long || len(line) > rd.max {
		return "", perr.Malformedf("line %d is %d bytes, over the %d byte limit", rd.lines, size, rd.max)
	}
	return string(line), nil
}

// Close closes the underlying reader
func (rd *Reader) Close() error {
	if rd.r == nil {
		return nil
	}
	err := rd.r.Close()
	rd.r = nil
	return err
}

// Stats returns the number of lines and uncompressed bytes read so far
func (rd *Reader) Stats() (lines, bytes int64) {
	return rd.lines, rd.bytes
}
