package twemcache

import (
	"fmt"
	"strings"

	perr "cachetrace/internal/platform/errors"
)

// Variant selects which published dataset a cluster is fetched from
type Variant string

const (
	// VariantSample is the small uncompressed sample kept in the cache-trace repository
	VariantSample Variant = "sample"
	// VariantFull is the complete zstd-compressed trace
	VariantFull Variant = "full"
)

// ParseVariant maps a flag value to a Variant; empty means sample
func ParseVariant(s string) (Variant, error) {
	switch Variant(strings.ToLower(strings.TrimSpace(s))) {
	case "", VariantSample:
		return VariantSample, nil
	case VariantFull:
		return VariantFull, nil
	default:
		return "", perr.WithField(perr.Validationf("unknown variant %q (want sample or full)", s), "variant")
	}
}

// ClusterRef identifies one cluster trace
type ClusterRef struct {
	Index   int
	Variant Variant
}

// Name returns the zero-padded cluster name, e.g. cluster052
func (c ClusterRef) Name() string { return fmt.Sprintf("cluster%03d", c.Index) }

// Filename is the local file name; full traces keep their .zst extension
func (c ClusterRef) Filename() string {
	if c.Variant == VariantFull {
		return c.Name() + ".zst"
	}
	return c.Name()
}

// String returns name/variant for logs
func (c ClusterRef) String() string { return c.Name() + "/" + string(c.Variant) }

// Endpoints holds the base URLs for both variants
type Endpoints struct {
	Full   string
	Sample string
}

// DefaultEndpoints are the public dataset locations
var DefaultEndpoints = Endpoints{
	Full:   "https://ftp.pdl.cmu.edu/pub/datasets/twemcacheWorkload/open_source",
	Sample: "https://raw.githubusercontent.com/twitter/cache-trace/master/samples/2020Mar",
}

// URL returns the download URL for ref
func (e Endpoints) URL(ref ClusterRef) string {
	base := e.Sample
	if ref.Variant == VariantFull {
		base = e.Full
	}
	return strings.TrimRight(base, "/") + "/" + ref.Name()
}
