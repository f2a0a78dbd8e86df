// Package module provides the convert module implementation
package module

import (
	"cachetrace/internal/core/classify"
	"cachetrace/internal/modkit"
	perr "cachetrace/internal/platform/errors"
	"cachetrace/internal/platform/logger"
	"cachetrace/internal/services/convert/domain"
	"cachetrace/internal/services/convert/ingest"
	"cachetrace/internal/services/convert/service"
)

var _ modkit.Module = (*Module)(nil)

// Ports defines the convert module ports
type Ports struct {
	Runner domain.RunnerPort
}

// Module implements the convert module
type Module struct {
	deps  modkit.Deps
	opts  Options
	ports Ports
}

// New constructs the convert module.
// It reads and validates options from deps.Cfg and wires the adapters into the service
func New(deps modkit.Deps) (*Module, error) {
	opts := FromConfig(deps.Cfg)
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	profile, err := opts.ResolveProfile()
	if err != nil {
		return nil, err
	}
	class, err := classify.New(profile)
	if err != nil {
		return nil, err
	}
	policy, err := domain.ParseMalformedPolicy(opts.Malformed)
	if err != nil {
		return nil, err
	}
	decomp, err := ingest.NewDecompressor(opts.Decomp.Kind, opts.Decomp.Threads)
	if err != nil {
		return nil, perr.WithOp(err, "convert.New")
	}

	fetch := ingest.NewFetcher(ingest.FetchConfig{
		WorkDir:     opts.Fetch.WorkDir,
		Refetch:     opts.Fetch.Refetch,
		Retries:     opts.Fetch.Retries,
		RetryBase:   opts.Fetch.RetryBase,
		HTTPTimeout: opts.Fetch.HTTPTimeout,
		FullURL:     opts.Fetch.FullURL,
		SampleURL:   opts.Fetch.SampleURL,
	})

	svc := service.New(fetch, decomp, ingest.NewReaderFactory(), class, service.Config{
		OutDir:        opts.OutDir,
		Dedup:         profile.Dedup,
		Malformed:     policy,
		ProgressEvery: opts.ProgressEvery,
	})

	logger.Named("convert").Info().
		Str("profile", profile.Name).
		Strs("categories", profile.Categories()).
		Int("hash_len", profile.HashLen).
		Str("hash", profile.Hash.String()).
		Bool("dedup", profile.Dedup).
		Str("decompressor", opts.Decomp.Kind).
		Str("malformed", string(policy)).
		Msg("effective settings")

	m := &Module{deps: deps, opts: opts}
	m.ports = Ports{Runner: svc}
	return m, nil
}

// Name returns the module name
func (m *Module) Name() string { return "convert" }

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }

// Runner returns the typed runner port
func (m *Module) Runner() domain.RunnerPort { return m.ports.Runner }

// Options returns the validated options the module was built with
func (m *Module) Options() Options { return m.opts }
