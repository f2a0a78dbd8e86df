// Package domain holds the types and ports of a conversion run
package domain

import (
	"strings"
	"time"

	"cachetrace/internal/adapters/twemcache"
	"cachetrace/internal/core/classify"
	perr "cachetrace/internal/platform/errors"
)

// ClusterRef re-exports the cluster reference used by the fetcher
type ClusterRef = twemcache.ClusterRef

// Record re-exports the classifier output
type Record = classify.Record

// Source is what a run converts: a local file or a published cluster.
// Exactly one of Path and Cluster is set
type Source struct {
	Path    string
	Cluster *ClusterRef
}

// PathSource converts a local file
func PathSource(p string) Source { return Source{Path: p} }

// ClusterSource fetches and converts a cluster trace
func ClusterSource(ref ClusterRef) Source { return Source{Cluster: &ref} }

// IsCluster reports whether the source must be fetched
func (s Source) IsCluster() bool { return s.Cluster != nil }

// Validate checks that exactly one origin is set
func (s Source) Validate() error {
	switch {
	case s.Path == "" && s.Cluster == nil:
		return perr.Usagef("a trace path or a cluster number is required")
	case s.Path != "" && s.Cluster != nil:
		return perr.Usagef("give either a trace path or a cluster number, not both")
	case s.Cluster != nil && s.Cluster.Index < 0:
		return perr.WithField(perr.Usagef("cluster number must not be negative"), "cluster")
	}
	return nil
}

// String is used in logs
func (s Source) String() string {
	if s.Cluster != nil {
		return s.Cluster.String()
	}
	return s.Path
}

// MalformedPolicy decides what a short record does to the run
type MalformedPolicy string

const (
	// MalformedSkip logs and counts the line, then continues
	MalformedSkip MalformedPolicy = "skip"
	// MalformedAbort fails the run on the first malformed line
	MalformedAbort MalformedPolicy = "abort"
)

// ParseMalformedPolicy maps a flag value; empty means skip
func ParseMalformedPolicy(s string) (MalformedPolicy, error) {
	switch MalformedPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", MalformedSkip:
		return MalformedSkip, nil
	case MalformedAbort:
		return MalformedAbort, nil
	default:
		return "", perr.WithField(perr.Validationf("unknown malformed policy %q (want skip or abort)", s), "malformed")
	}
}

// Outputs are the final paths of the converted streams.
// Unique is empty when dedup is off
type Outputs struct {
	Full   string
	Unique string
}

// Stats summarizes a run
type Stats struct {
	Lines       int64 // raw lines read
	Bytes       int64 // uncompressed bytes read
	Converted   int64 // lines written to the full stream
	Dropped     int64 // unrecognized verbs
	Malformed   int64 // short records skipped
	Unique      int64 // lines written to the unique stream
	PerCategory map[string]int64
	Outputs     Outputs
	Elapsed     time.Duration
}
