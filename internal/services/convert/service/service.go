// Package service runs one trace conversion: resolve, decompress, classify, write
package service

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	perr "cachetrace/internal/platform/errors"
	"cachetrace/internal/platform/logger"
	"cachetrace/internal/services/convert/domain"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	defaultCheckEvery    = 4096
	DefaultProgressEvery = 10_000_000
	malformedLogLimit    = 20
)

// Config holds the run settings of the conversion service
type Config struct {
	// OutDir relocates outputs; empty keeps them next to the input (path
	// source) or in the download dir (cluster source)
	OutDir string

	Dedup     bool
	Malformed domain.MalformedPolicy

	ProgressEvery int64 // converted lines between progress logs; <=0 disables
	CheckEvery    int   // lines between context checks; <=0 -> 4096
}

// Service implements domain.RunnerPort
type Service struct {
	Fetch   domain.Fetcher
	Decomp  domain.Decompressor
	Readers domain.ReaderFactory
	Class   domain.Classifier
	Cfg     Config

	printer *message.Printer
}

// New constructs the conversion service. fetch may be nil when only path sources are used
func New(
	fetch domain.Fetcher,
	decomp domain.Decompressor,
	readers domain.ReaderFactory,
	class domain.Classifier,
	cfg Config,
) *Service {
	if decomp == nil {
		panic("convert.Service requires a non nil Decompressor")
	}
	if readers == nil {
		panic("convert.Service requires a non nil ReaderFactory")
	}
	if class == nil {
		panic("convert.Service requires a non nil Classifier")
	}
	if cfg.CheckEvery <= 0 {
		cfg.CheckEvery = defaultCheckEvery
	}
	if cfg.Malformed == "" {
		cfg.Malformed = domain.MalformedSkip
	}
	return &Service{
		Fetch: fetch, Decomp: decomp, Readers: readers, Class: class,
		Cfg:     cfg,
		printer: message.NewPrinter(language.English),
	}
}

// Outputs derives the output paths for src. input is the local path of the
// archive (the fetched file for a cluster source)
func (s *Service) Outputs(src domain.Source, input string) domain.Outputs {
	var base string
	if src.IsCluster() {
		dir := s.Cfg.OutDir
		if dir == "" {
			dir = filepath.Dir(input)
		}
		base = filepath.Join(dir, src.Cluster.Name())
	} else {
		base = strings.TrimSuffix(src.Path, filepath.Ext(src.Path))
		if s.Cfg.OutDir != "" {
			base = filepath.Join(s.Cfg.OutDir, filepath.Base(base))
		}
	}
	out := domain.Outputs{Full: base + "_full.txt"}
	if s.Cfg.Dedup {
		out.Unique = base + "_unique.txt"
	}
	return out
}

// Run converts src end to end. On error no output file is left under its final name
func (s *Service) Run(ctx context.Context, src domain.Source) (domain.Stats, error) {
	var st domain.Stats
	if err := src.Validate(); err != nil {
		return st, err
	}
	start := time.Now()
	log := logger.NamedC(ctx, "convert")

	input, err := s.resolve(ctx, src)
	if err != nil {
		return st, err
	}
	plain, err := s.Decomp.Decompress(ctx, input)
	if err != nil {
		return st, err
	}

	rd, err := s.Readers.Open(plain)
	if err != nil {
		return st, err
	}
	defer func() { _ = rd.Close() }()

	st.Outputs = s.Outputs(src, input)
	var seen *SeenSet
	if s.Cfg.Dedup {
		seen = NewSeenSet()
	}
	w, err := NewWriter(st.Outputs, seen)
	if err != nil {
		return st, err
	}

	log.Info().
		Str("input", plain).
		Str("full", st.Outputs.Full).
		Str("unique", st.Outputs.Unique).
		Str("malformed_policy", string(s.Cfg.Malformed)).
		Msg("converting")

	if err := s.convert(ctx, rd, w, &st); err != nil {
		w.Abort()
		st.Lines, st.Bytes = rd.Stats()
		st.Elapsed = time.Since(start)
		return st, err
	}
	if err := w.Commit(); err != nil {
		return st, err
	}

	st.Converted, st.Unique = w.Counts()
	st.Lines, st.Bytes = rd.Stats()
	st.Elapsed = time.Since(start)
	s.logSummary(ctx, st)
	return st, nil
}

func (s *Service) resolve(ctx context.Context, src domain.Source) (string, error) {
	if !src.IsCluster() {
		if _, err := os.Stat(src.Path); err != nil {
			if os.IsNotExist(err) {
				return "", perr.NotFoundf("input %s does not exist", src.Path)
			}
			return "", perr.Wrapf(err, perr.ErrorCodeIO, "stat %s", src.Path)
		}
		return src.Path, nil
	}
	if s.Fetch == nil {
		return "", perr.Internalf("cluster source given but no fetcher is wired")
	}
	return s.Fetch.Fetch(ctx, *src.Cluster)
}

func (s *Service) convert(ctx context.Context, rd domain.LineReader, w *Writer, st *domain.Stats) error {
	log := logger.NamedC(ctx, "convert")
	st.PerCategory = make(map[string]int64, 4)

	var n, converted int64
	for {
		if n%int64(s.Cfg.CheckEvery) == 0 {
			if err := ctx.Err(); err != nil {
				return perr.Wrapf(err, perr.ErrorCodeCanceled, "interrupted after %d lines", n)
			}
		}
		line, err := rd.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil && !perr.IsCode(err, perr.ErrorCodeMalformed) {
			return err
		}
		n++

		// an oversized line arrives as a malformed read error
		var rec domain.Record
		ok := false
		if err == nil {
			rec, ok, err = s.Class.Classify(line)
		}
		if err != nil {
			if !perr.IsCode(err, perr.ErrorCodeMalformed) {
				return err
			}
			st.Malformed++
			if s.Cfg.Malformed == domain.MalformedAbort {
				return perr.Wrapf(err, perr.ErrorCodeMalformed, "line %d", n)
			}
			switch {
			case st.Malformed <= malformedLogLimit:
				log.Warn().Int64("line", n).Err(err).Msg("skipping malformed record")
			case st.Malformed == malformedLogLimit+1:
				log.Warn().Msg("further malformed records are skipped silently")
			}
			continue
		}
		if !ok {
			st.Dropped++
			continue
		}

		if err := w.Write(rec); err != nil {
			return err
		}
		st.PerCategory[rec.Category]++
		converted++
		if s.Cfg.ProgressEvery > 0 && converted%s.Cfg.ProgressEvery == 0 {
			log.Info().
				Str("converted", s.printer.Sprintf("%d", converted)).
				Str("read", s.printer.Sprintf("%d", n)).
				Msg("progress")
		}
	}
}

func (s *Service) logSummary(ctx context.Context, st domain.Stats) {
	ev := logger.NamedC(ctx, "convert").Info().
		Str("lines", s.printer.Sprintf("%d", st.Lines)).
		Str("converted", s.printer.Sprintf("%d", st.Converted)).
		Int64("dropped", st.Dropped).
		Int64("malformed", st.Malformed).
		Str("full", st.Outputs.Full).
		Dur("elapsed", st.Elapsed)
	if st.Outputs.Unique != "" {
		ev = ev.Str("unique_keys", s.printer.Sprintf("%d", st.Unique)).Str("unique", st.Outputs.Unique)
	}
	for cat, c := range st.PerCategory {
		ev = ev.Int64("cat_"+strings.ToLower(cat), c)
	}
	ev.Msg("conversion complete")
}
