package module

import (
	"strconv"
	"time"

	"cachetrace/internal/core/classify"
	"cachetrace/internal/platform/config"
	"cachetrace/internal/platform/validate"
	"cachetrace/internal/services/convert/service"
)

// Options holds the settings of a conversion run
type Options struct {
	Profile       string `flag:"profile" validate:"oneof=ycsb twemcache"`
	HashLen       int    `flag:"hash-len" validate:"min=1"`
	Hash          string `flag:"hash" validate:"oneof=sha256 sha512"`
	Dedup         bool   `flag:"dedup"`
	OutDir        string `flag:"out-dir"`
	Malformed     string `flag:"malformed" validate:"oneof=skip abort"`
	ProgressEvery int64  `flag:"progress-every" validate:"min=0"`

	Fetch  FetchOptions
	Decomp DecompOptions
}

// FetchOptions configures the cluster download
type FetchOptions struct {
	WorkDir     string        `flag:"work-dir" validate:"required"`
	Refetch     bool          `flag:"refetch"`
	Retries     int           `flag:"retries" validate:"min=0,max=20"`
	RetryBase   time.Duration `flag:"retry-base" validate:"min=0"`
	HTTPTimeout time.Duration `flag:"http-timeout" validate:"min=0"`
	FullURL     string        `flag:"full-url" validate:"omitempty,url"`
	SampleURL   string        `flag:"sample-url" validate:"omitempty,url"`
}

// DecompOptions configures the decompressor
type DecompOptions struct {
	Kind    string `flag:"decompressor" validate:"oneof=native zstd"`
	Threads int    `flag:"zstd-threads" validate:"min=0,max=256"`
}

// FromConfig reads options under CONVERT_, CONVERT_FETCH_ and CONVERT_DECOMP_.
// Hash length, hash and dedup default to the selected profile
func FromConfig(cfg config.Conf) Options {
	cv := cfg.Prefix("CONVERT_")
	fc := cv.Prefix("FETCH_")
	dc := cv.Prefix("DECOMP_")

	name := cv.MayLower("PROFILE", classify.DefaultProfile)
	p, err := classify.LookupProfile(name)
	if err != nil {
		// validation reports the bad name; fall back for the remaining defaults
		p = classify.YCSB
	}

	return Options{
		Profile:       name,
		HashLen:       cv.MayInt("HASH_LEN", p.HashLen),
		Hash:          cv.MayLower("HASH", p.Hash.String()),
		Dedup:         cv.MayBool("DEDUP", p.Dedup),
		OutDir:        cv.MayString("OUT_DIR", ""),
		Malformed:     cv.MayLower("MALFORMED", "skip"),
		ProgressEvery: cv.MayInt64("PROGRESS_EVERY", service.DefaultProgressEvery),
		Fetch: FetchOptions{
			WorkDir:     fc.MayString("WORK_DIR", "."),
			Refetch:     fc.MayBool("REFETCH", false),
			Retries:     fc.MayInt("RETRIES", 3),
			RetryBase:   fc.MayDuration("RETRY_BASE", 500*time.Millisecond),
			HTTPTimeout: fc.MayDuration("HTTP_TIMEOUT", 0), // 0 == no client timeout
			FullURL:     fc.MayURL("FULL_URL", ""),
			SampleURL:   fc.MayURL("SAMPLE_URL", ""),
		},
		Decomp: DecompOptions{
			Kind:    dc.MayLower("KIND", "native"),
			Threads: dc.MayInt("THREADS", 0),
		},
	}
}

func init() {
	validate.RegisterStructValidation(hashFits, Options{})
	validate.RegisterMessage("hashfits", "{0} must not exceed {1} for the chosen --hash")
}

// hashFits keeps the truncation inside the digest's hex width
func hashFits(sl validate.StructLevel) {
	o := sl.Current().Interface().(Options)
	alg := classify.ParseAlgorithm(o.Hash)
	if !alg.Available() {
		return // oneof on Hash reports it
	}
	if limit := classify.MaxHexLen(alg); o.HashLen > limit {
		sl.ReportError(o.HashLen, "--hash-len", "HashLen", "hashfits", strconv.Itoa(limit))
	}
}

// Validate checks option ranges and the hash length against the digest width
func (o Options) Validate() error { return validate.Struct(o) }

// ResolveProfile returns the effective classifier profile with overrides applied
func (o Options) ResolveProfile() (classify.Profile, error) {
	p, err := classify.LookupProfile(o.Profile)
	if err != nil {
		return classify.Profile{}, err
	}
	p.HashLen = o.HashLen
	p.Hash = classify.ParseAlgorithm(o.Hash)
	p.Dedup = o.Dedup
	return p, nil
}
