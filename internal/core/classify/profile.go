package classify

import (
	"sort"
	"strings"

	perr "cachetrace/internal/platform/errors"

	"github.com/opencontainers/go-digest"
)

// Profile is a named output vocabulary plus its key width
// Tokens are indexed by Class; ClassNone is never written
type Profile struct {
	Name    string
	Tokens  [4]string
	HashLen int
	Hash    digest.Algorithm
	Dedup   bool
}

// Token returns the category token written for c
func (p Profile) Token(c Class) string { return p.Tokens[c] }

// Categories returns the distinct tokens of the profile in class order
func (p Profile) Categories() []string {
	var out []string
	seen := map[string]bool{}
	for _, c := range []Class{ClassRead, ClassSet, ClassMutate} {
		t := p.Tokens[c]
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}

// Built-in profiles
var (
	// YCSB matches the harness trace workload format: READ or UPDATE, 63 hex chars
	YCSB = Profile{
		Name:    "ycsb",
		Tokens:  [4]string{ClassRead: "READ", ClassSet: "UPDATE", ClassMutate: "UPDATE"},
		HashLen: 63,
		Hash:    SHA256,
	}

	// Twemcache keeps set apart from other writes: GET, SET or UPD, 15 hex chars, deduped
	Twemcache = Profile{
		Name:    "twemcache",
		Tokens:  [4]string{ClassRead: "GET", ClassSet: "SET", ClassMutate: "UPD"},
		HashLen: 15,
		Hash:    SHA256,
		Dedup:   true,
	}
)

var profiles = map[string]Profile{
	YCSB.Name:      YCSB,
	Twemcache.Name: Twemcache,
}

// DefaultProfile is used when no profile is configured
const DefaultProfile = "ycsb"

// ProfileNames lists the built-in profile names sorted
func ProfileNames() []string {
	out := make([]string, 0, len(profiles))
	for k := range profiles {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// LookupProfile returns a built-in profile by case-insensitive name
func LookupProfile(name string) (Profile, error) {
	if name == "" {
		name = DefaultProfile
	}
	p, ok := profiles[strings.ToLower(name)]
	if !ok {
		return Profile{}, perr.WithField(
			perr.Validationf("unknown profile %q (want one of %s)", name, strings.Join(ProfileNames(), ", ")),
			"profile",
		)
	}
	return p, nil
}
