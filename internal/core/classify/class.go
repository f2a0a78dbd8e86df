package classify

// Class is the operation class a verb folds into
type Class uint8

const (
	// ClassNone marks verbs that produce no output record
	ClassNone Class = iota
	// ClassRead covers get and gets
	ClassRead
	// ClassSet covers plain set
	ClassSet
	// ClassMutate covers every other write: add, replace, cas, append, prepend, delete, incr, decr
	ClassMutate
)

// String returns a lower case label for logs
func (c Class) String() string {
	switch c {
	case ClassRead:
		return "read"
	case ClassSet:
		return "set"
	case ClassMutate:
		return "mutate"
	default:
		return "none"
	}
}

// verbs maps upper-cased verbs to their class; anything absent is ClassNone
var verbs = map[string]Class{
	"GET":  ClassRead,
	"GETS": ClassRead,

	"SET": ClassSet,

	"ADD":     ClassMutate,
	"REPLACE": ClassMutate,
	"CAS":     ClassMutate,
	"APPEND":  ClassMutate,
	"PREPEND": ClassMutate,
	"DELETE":  ClassMutate,
	"INCR":    ClassMutate,
	"DECR":    ClassMutate,
}

// ClassOf returns the class for an upper-cased verb
func ClassOf(verb string) Class { return verbs[verb] }

// Verbs returns the recognized verbs in a stable order (reads, set, mutators)
func Verbs() []string {
	return []string{"GET", "GETS", "SET", "ADD", "REPLACE", "CAS", "APPEND", "PREPEND", "DELETE", "INCR", "DECR"}
}
