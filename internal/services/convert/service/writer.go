package service

import (
	"bufio"
	"os"
	"path/filepath"

	perr "cachetrace/internal/platform/errors"
	"cachetrace/internal/services/convert/domain"
)

const writeBufSize = 1 << 20

// SeenSet tracks hashed keys already written to the unique stream
type SeenSet struct {
	m map[string]struct{}
}

// NewSeenSet returns an empty set
func NewSeenSet() *SeenSet { return &SeenSet{m: make(map[string]struct{})} }

// Add marks key as seen and reports whether it was new
func (s *SeenSet) Add(key string) bool {
	if _, ok := s.m[key]; ok {
		return false
	}
	s.m[key] = struct{}{}
	return true
}

// Has reports whether key was seen
func (s *SeenSet) Has(key string) bool {
	_, ok := s.m[key]
	return ok
}

// Len is the number of distinct keys
func (s *SeenSet) Len() int { return len(s.m) }

// sink is one buffered output stream written to a .part file
type sink struct {
	path string
	tmp  string
	f    *os.File
	w    *bufio.Writer
}

func openSink(path string) (*sink, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeIO, "create output dir for %s", path)
	}
	tmp := path + ".part"
	f, err := os.Create(tmp)
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeIO, "create %s", tmp)
	}
	return &sink{path: path, tmp: tmp, f: f, w: bufio.NewWriterSize(f, writeBufSize)}, nil
}

func (s *sink) write(b []byte) error {
	if _, err := s.w.Write(b); err != nil {
		return perr.Wrapf(err, perr.ErrorCodeIO, "write %s", s.tmp)
	}
	return nil
}

func (s *sink) commit() error {
	if err := s.w.Flush(); err != nil {
		s.discard()
		return perr.Wrapf(err, perr.ErrorCodeIO, "flush %s", s.tmp)
	}
	if err := s.f.Close(); err != nil {
		_ = os.Remove(s.tmp)
		return perr.Wrapf(err, perr.ErrorCodeIO, "close %s", s.tmp)
	}
	if err := os.Rename(s.tmp, s.path); err != nil {
		_ = os.Remove(s.tmp)
		return perr.Wrapf(err, perr.ErrorCodeIO, "rename %s", s.tmp)
	}
	return nil
}

func (s *sink) discard() {
	_ = s.f.Close()
	_ = os.Remove(s.tmp)
}

// Writer fans converted records out to the full stream and, when dedup is on,
// to the unique stream on the first sighting of each key.
// Nothing is visible under the final names until Commit
type Writer struct {
	full   *sink
	unique *sink
	seen   *SeenSet
	buf    []byte
	done   bool

	fullN   int64
	uniqueN int64
}

// NewWriter opens the streams named by out. seen is the run's key set and is
// required when out.Unique is set
func NewWriter(out domain.Outputs, seen *SeenSet) (*Writer, error) {
	full, err := openSink(out.Full)
	if err != nil {
		return nil, err
	}
	w := &Writer{full: full, buf: make([]byte, 0, 128)}
	if out.Unique != "" {
		if seen == nil {
			full.discard()
			return nil, perr.Internalf("dedup requested without a seen-key set")
		}
		u, err := openSink(out.Unique)
		if err != nil {
			full.discard()
			return nil, err
		}
		w.unique = u
		w.seen = seen
	}
	return w, nil
}

// Write appends rec to the full stream and to the unique stream if its key is new
func (w *Writer) Write(rec domain.Record) error {
	w.buf = append(rec.AppendTo(w.buf[:0]), '\n')
	if err := w.full.write(w.buf); err != nil {
		return err
	}
	w.fullN++
	if w.unique != nil && w.seen.Add(rec.Key) {
		if err := w.unique.write(w.buf); err != nil {
			return err
		}
		w.uniqueN++
	}
	return nil
}

// Counts returns the number of lines written to each stream
func (w *Writer) Counts() (full, unique int64) { return w.fullN, w.uniqueN }

// Commit flushes both streams and moves them to their final names
func (w *Writer) Commit() error {
	if w.done {
		return nil
	}
	w.done = true
	if err := w.full.commit(); err != nil {
		if w.unique != nil {
			w.unique.discard()
		}
		return err
	}
	if w.unique != nil {
		if err := w.unique.commit(); err != nil {
			_ = os.Remove(w.full.path)
			return err
		}
	}
	return nil
}

// Abort drops both partial streams; safe after Commit
func (w *Writer) Abort() {
	if w.done {
		return
	}
	w.done = true
	w.full.discard()
	if w.unique != nil {
		w.unique.discard()
	}
}
