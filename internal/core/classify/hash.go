package classify

import (
	_ "crypto/sha256" // registers digest.SHA256
	_ "crypto/sha512" // registers digest.SHA512

	perr "cachetrace/internal/platform/errors"

	"github.com/opencontainers/go-digest"
)

// Supported key digest algorithms
const (
	SHA256 = digest.SHA256
	SHA512 = digest.SHA512
)

// Hasher renders a key as the first n hex characters of its digest
type Hasher struct {
	alg digest.Algorithm
	n   int
}

// NewHasher validates the algorithm and truncation length
func NewHasher(alg digest.Algorithm, n int) (Hasher, error) {
	if alg != SHA256 && alg != SHA512 {
		return Hasher{}, perr.Validationf("unsupported hash %q (want sha256 or sha512)", alg)
	}
	if !alg.Available() {
		return Hasher{}, perr.Validationf("hash %q not available", alg)
	}
	if n < 1 || n > MaxHexLen(alg) {
		return Hasher{}, perr.Validationf("hash length %d out of range 1..%d for %s", n, MaxHexLen(alg), alg)
	}
	return Hasher{alg: alg, n: n}, nil
}

// MaxHexLen returns the full hex width of alg's digest
func MaxHexLen(alg digest.Algorithm) int { return alg.Size() * 2 }

// ParseAlgorithm maps a config string to an algorithm; empty means sha256
func ParseAlgorithm(s string) digest.Algorithm {
	if s == "" {
		return SHA256
	}
	return digest.Algorithm(s)
}

// Hash digests the UTF-8 bytes of key and truncates the hex encoding
func (h Hasher) Hash(key string) string {
	return h.alg.FromString(key).Encoded()[:h.n]
}

// Len returns the configured truncation length
func (h Hasher) Len() int { return h.n }

// Algorithm returns the digest algorithm
func (h Hasher) Algorithm() digest.Algorithm { return h.alg }
