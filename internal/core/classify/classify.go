package classify

import (
	"strings"

	perr "cachetrace/internal/platform/errors"
)

const (
	keyField  = 1
	verbField = 5
	minFields = verbField + 1
)

// Record is one converted trace line
type Record struct {
	Class    Class
	Category string
	Key      string
}

// String renders the record as written to the output streams
func (r Record) String() string { return r.Category + "," + r.Key }

// AppendTo appends the rendered record without a trailing newline
func (r Record) AppendTo(b []byte) []byte {
	b = append(b, r.Category...)
	b = append(b, ',')
	return append(b, r.Key...)
}

// Classifier maps raw trace lines to records under a fixed profile
type Classifier struct {
	profile Profile
	hasher  Hasher
}

// New builds a Classifier; the profile's hash settings are validated here
func New(p Profile) (*Classifier, error) {
	h, err := NewHasher(p.Hash, p.HashLen)
	if err != nil {
		return nil, perr.WithOp(err, "classify.New")
	}
	return &Classifier{profile: p, hasher: h}, nil
}

// Profile returns the profile the classifier was built with
func (c *Classifier) Profile() Profile { return c.profile }

// Classify parses one raw line.
// ok is false when the verb is not recognized; that is a drop, not an error.
// Lines with fewer than six comma-separated fields return a malformed error
func (c *Classifier) Classify(line string) (rec Record, ok bool, err error) {
	fields := strings.SplitN(strings.TrimSpace(line), ",", minFields+1)
	if len(fields) < minFields {
		return Record{}, false, perr.Malformedf("expected at least %d fields, got %d", minFields, len(fields))
	}

	class := ClassOf(strings.ToUpper(fields[verbField]))
	if class == ClassNone {
		return Record{}, false, nil
	}
	return Record{
		Class:    class,
		Category: c.profile.Token(class),
		Key:      c.hasher.Hash(fields[keyField]),
	}, true, nil
}
